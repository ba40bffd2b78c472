package domain

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// Timestamp candidate fields, in the order they are consulted.
const (
	FieldFinishTimestamp = "finishTimestamp"
	FieldActionTimestamp = "actionTimestamp"
	FieldHandleTimestamp = "handleTimestamp"
	FieldTime            = "time"
)

// TimestampFields lists every field a bot build has used to stamp an offer.
// The first one present on a record wins.
var TimestampFields = []string{
	FieldFinishTimestamp,
	FieldActionTimestamp,
	FieldHandleTimestamp,
	FieldTime,
}

const (
	// secondsThreshold separates second-resolution stamps (10 digits) from
	// millisecond-resolution ones (13 digits).
	secondsThreshold = 1e12

	// maxTimestampMillis is 9999-12-31T23:59:59.999Z.
	maxTimestampMillis = 253402300799999
)

// TimestampCandidate is one raw timestamp field found on an offer.
// Raw keeps the original text so that unparseable values can be rejected
// by the sanitizer instead of the decoder.
type TimestampCandidate struct {
	Field string
	Raw   string
}

// TradeRecord represents one accepted offer from the bot's offer log
type TradeRecord struct {
	ID                  string
	CounterpartyID      string
	TimestampCandidates []TimestampCandidate
	ItemsGiven          map[string]int64 // sell side
	ItemsReceived       map[string]int64 // buy side
	ValueGiven          Value
	ValueReceived       Value
	PerItemPrice        map[string]PricePair
}

// Rejection records why an offer, or one entry of it, was left out of a
// report
type Rejection struct {
	OfferID string
	Err     error
}

// OfferLog is the decoded offer history. Rejected holds the offers dropped
// while decoding so that they are counted alongside the engine's own drops.
type OfferLog struct {
	Records  []TradeRecord
	Rejected []Rejection
}

// SanitizedTrade is a TradeRecord with a resolved, strictly increasing
// millisecond timestamp.
type SanitizedTrade struct {
	TradeRecord
	TimestampMillis int64
}

// Time returns the resolved timestamp as a UTC instant
func (t SanitizedTrade) Time() time.Time {
	return time.UnixMilli(t.TimestampMillis).UTC()
}

// ISOTimestamp formats the resolved timestamp as an ISO-8601 instant with
// millisecond precision, e.g. 2023-11-14T22:13:20.000Z.
func (t SanitizedTrade) ISOTimestamp() string {
	return FormatISOMillis(t.TimestampMillis)
}

// FormatISOMillis formats epoch milliseconds as an ISO-8601 UTC instant
func FormatISOMillis(ms int64) string {
	return time.UnixMilli(ms).UTC().Format("2006-01-02T15:04:05.000Z07:00")
}

// ResolveTimestamp returns the record's timestamp in epoch milliseconds.
// The first present candidate is used; it is not retried against later
// candidates if it fails to parse.
// Values below 1e12 are treated as seconds.
func (r *TradeRecord) ResolveTimestamp() (int64, error) {
	if len(r.TimestampCandidates) == 0 {
		return 0, fmt.Errorf("%w: offer %s has no timestamp field", ErrMalformedTimestamp, r.ID)
	}

	candidate := r.TimestampCandidates[0]
	v, err := strconv.ParseFloat(strings.TrimSpace(candidate.Raw), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("%w: offer %s field %s=%q is not numeric", ErrMalformedTimestamp, r.ID, candidate.Field, candidate.Raw)
	}
	if v <= 0 {
		return 0, fmt.Errorf("%w: offer %s field %s=%q is not a valid instant", ErrMalformedTimestamp, r.ID, candidate.Field, candidate.Raw)
	}

	if v < secondsThreshold {
		v *= 1000
	}
	if v > maxTimestampMillis {
		return 0, fmt.Errorf("%w: offer %s field %s=%q is out of range", ErrMalformedTimestamp, r.ID, candidate.Field, candidate.Raw)
	}

	return int64(math.Round(v)), nil
}

// ValidateQuantity rejects negative item quantities
func ValidateQuantity(sku string, qty int64) error {
	if qty < 0 {
		return fmt.Errorf("%w: %s has quantity %d", ErrNegativeQuantity, sku, qty)
	}
	return nil
}
