// Package polldata reads the bot's polldata.json offer log and its
// pricelist.json.
package polldata

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/offerledger/pnl-backend/internal/domain"
)

type document struct {
	OfferData  map[string]json.RawMessage `json:"offerData"`
	Timestamps map[string]json.RawMessage `json:"timestamps"`
}

type offer struct {
	Partner    json.RawMessage `json:"partner"`
	IsAccepted *bool           `json:"isAccepted"`
	Action     *struct {
		Action string `json:"action"`
	} `json:"action"`
	Dict struct {
		Our   map[string]json.RawMessage `json:"our"`
		Their map[string]json.RawMessage `json:"their"`
	} `json:"dict"`
	Value struct {
		Our   map[string]json.RawMessage `json:"our"`
		Their map[string]json.RawMessage `json:"their"`
	} `json:"value"`
	Prices map[string]struct {
		Buy  map[string]json.RawMessage `json:"buy"`
		Sell map[string]json.RawMessage `json:"sell"`
	} `json:"prices"`
	FinishTimestamp json.RawMessage `json:"finishTimestamp"`
	ActionTimestamp json.RawMessage `json:"actionTimestamp"`
	HandleTimestamp json.RawMessage `json:"handleTimestamp"`
	Time            json.RawMessage `json:"time"`
}

// DecodeOffers reads a polldata document and returns its accepted offers.
// A document that is not JSON or has no offerData is fatal; a single offer
// that cannot be decoded is rejected and the rest are kept.
func DecodeOffers(r io.Reader) (*domain.OfferLog, error) {
	var doc document
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("%w: failed to decode polldata: %v", domain.ErrFatalInput, err)
	}
	if doc.OfferData == nil {
		return nil, fmt.Errorf("%w: polldata has no offerData", domain.ErrFatalInput)
	}

	ids := make([]string, 0, len(doc.OfferData))
	for id := range doc.OfferData {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		// offer ids are numeric strings
		if len(ids[i]) != len(ids[j]) {
			return len(ids[i]) < len(ids[j])
		}
		return ids[i] < ids[j]
	})

	out := &domain.OfferLog{Records: make([]domain.TradeRecord, 0, len(ids))}
	for _, id := range ids {
		rec, accepted, err := DecodeOffer(id, doc.OfferData[id], doc.Timestamps[id])
		if err != nil {
			out.Rejected = append(out.Rejected, domain.Rejection{OfferID: id, Err: err})
			continue
		}
		if !accepted {
			continue
		}
		out.Records = append(out.Records, rec)
	}

	return out, nil
}

// Raw is a polldata document with its offers left undecoded, as stored by
// the postgres offer repository.
type Raw struct {
	Offers    map[string]json.RawMessage
	PollTimes map[string]int64 // seconds
}

// ReadRaw reads a polldata document without decoding individual offers.
// Poll times that are not integral numbers are left out.
func ReadRaw(r io.Reader) (*Raw, error) {
	var doc document
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("%w: failed to decode polldata: %v", domain.ErrFatalInput, err)
	}
	if doc.OfferData == nil {
		return nil, fmt.Errorf("%w: polldata has no offerData", domain.ErrFatalInput)
	}

	raw := &Raw{
		Offers:    doc.OfferData,
		PollTimes: make(map[string]int64, len(doc.Timestamps)),
	}
	for id, ts := range doc.Timestamps {
		s, ok := text(ts)
		if !ok {
			continue
		}
		if n, err := strconv.ParseInt(s, 10, 64); err == nil {
			raw.PollTimes[id] = n
		}
	}
	return raw, nil
}

// DecodeOffer decodes a single offerData entry. pollTime is the offer's
// entry in the top-level timestamps map, used when the offer carries no
// timestamp of its own.
func DecodeOffer(id string, raw, pollTime json.RawMessage) (domain.TradeRecord, bool, error) {
	var o offer
	if err := json.Unmarshal(raw, &o); err != nil {
		return domain.TradeRecord{}, false, fmt.Errorf("failed to decode offer %s: %w", id, err)
	}

	accepted := o.Action != nil && o.Action.Action == "accept"
	if o.IsAccepted != nil {
		accepted = *o.IsAccepted
	}
	if !accepted {
		return domain.TradeRecord{ID: id}, false, nil
	}

	partner, _ := text(o.Partner)

	given, err := quantities(o.Dict.Our)
	if err != nil {
		return domain.TradeRecord{}, false, fmt.Errorf("offer %s dict.our: %w", id, err)
	}
	received, err := quantities(o.Dict.Their)
	if err != nil {
		return domain.TradeRecord{}, false, fmt.Errorf("offer %s dict.their: %w", id, err)
	}

	rec := domain.TradeRecord{
		ID:             id,
		CounterpartyID: partner,
		ItemsGiven:     given,
		ItemsReceived:  received,
		ValueGiven:     value(o.Value.Our),
		ValueReceived:  value(o.Value.Their),
	}

	fields := []struct {
		name string
		raw  json.RawMessage
	}{
		{domain.FieldFinishTimestamp, o.FinishTimestamp},
		{domain.FieldActionTimestamp, o.ActionTimestamp},
		{domain.FieldHandleTimestamp, o.HandleTimestamp},
		{domain.FieldTime, o.Time},
		{domain.FieldTime, pollTime},
	}
	for _, f := range fields {
		if s, ok := text(f.raw); ok {
			rec.TimestampCandidates = append(rec.TimestampCandidates, domain.TimestampCandidate{Field: f.name, Raw: s})
		}
	}

	if len(o.Prices) > 0 {
		rec.PerItemPrice = make(map[string]domain.PricePair, len(o.Prices))
		for sku, p := range o.Prices {
			var pair domain.PricePair
			if p.Buy != nil {
				v := value(p.Buy)
				pair.Buy = &v
			}
			if p.Sell != nil {
				v := value(p.Sell)
				pair.Sell = &v
			}
			rec.PerItemPrice[sku] = pair
		}
	}

	return rec, true, nil
}

// text returns the literal of a JSON number or the contents of a JSON
// string. Absent and null values report false.
func text(raw json.RawMessage) (string, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return "", false
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return "", false
		}
		return s, true
	}
	return string(raw), true
}

func quantities(raw map[string]json.RawMessage) (map[string]int64, error) {
	out := make(map[string]int64, len(raw))
	for sku, q := range raw {
		s, ok := text(q)
		if !ok {
			continue
		}
		qty, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("quantity of %s is not an integer: %q", sku, s)
		}
		out[sku] = qty
	}
	return out, nil
}

// value reads keys/metal/total fields. A present but non-numeric field marks
// the value invalid rather than failing the offer.
func value(raw map[string]json.RawMessage) domain.Value {
	var v domain.Value
	read := func(field string, dst *decimal.NullDecimal) {
		s, ok := text(raw[field])
		if !ok {
			return
		}
		d, err := decimal.NewFromString(strings.TrimSpace(s))
		if err != nil {
			v.Invalid = true
			return
		}
		*dst = decimal.NewNullDecimal(d)
	}
	read("keys", &v.Keys)
	read("metal", &v.Metal)
	read("total", &v.Scrap)
	return v
}
