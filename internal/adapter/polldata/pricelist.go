package polldata

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/offerledger/pnl-backend/internal/domain"
)

type priceItem struct {
	SKU  string                     `json:"sku"`
	Buy  map[string]json.RawMessage `json:"buy"`
	Sell map[string]json.RawMessage `json:"sell"`
	Time json.RawMessage            `json:"time"`
}

// DecodePricelist reads a pricelist.json document: an array of entries with
// sku, buy, sell and time (seconds).
func DecodePricelist(r io.Reader) ([]domain.PriceEntry, error) {
	var items []priceItem
	if err := json.NewDecoder(r).Decode(&items); err != nil {
		return nil, fmt.Errorf("failed to decode pricelist: %w", err)
	}

	entries := make([]domain.PriceEntry, 0, len(items))
	for _, item := range items {
		if item.SKU == "" {
			continue
		}
		entries = append(entries, domain.PriceEntry{
			ID:   EntryID(item.SKU, parseSeconds(item.Time)),
			SKU:  item.SKU,
			Buy:  value(item.Buy),
			Sell: value(item.Sell),
			Time: parseSeconds(item.Time),
		})
	}
	return entries, nil
}

// EncodePricelist writes entries in the pricelist.json layout
func EncodePricelist(w io.Writer, entries []domain.PriceEntry) error {
	items := make([]map[string]interface{}, 0, len(entries))
	for _, e := range entries {
		items = append(items, map[string]interface{}{
			"sku":  e.SKU,
			"buy":  encodeValue(e.Buy),
			"sell": encodeValue(e.Sell),
			"time": e.Time.Unix(),
		})
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "    ")
	return enc.Encode(items)
}

// Upsert replaces the entry with the same SKU, or appends it
func Upsert(entries []domain.PriceEntry, entry domain.PriceEntry) []domain.PriceEntry {
	for i := range entries {
		if entries[i].SKU == entry.SKU {
			entries[i] = entry
			return entries
		}
	}
	return append(entries, entry)
}

// Latest returns the newest entry for sku, or ErrNotFound
func Latest(entries []domain.PriceEntry, sku string) (*domain.PriceEntry, error) {
	var latest *domain.PriceEntry
	for i := range entries {
		if entries[i].SKU != sku {
			continue
		}
		if latest == nil || entries[i].Time.After(latest.Time) {
			latest = &entries[i]
		}
	}
	if latest == nil {
		return nil, fmt.Errorf("no price found for %s: %w", sku, domain.ErrNotFound)
	}
	return latest, nil
}

// EntryID derives a stable id for a SKU's price at a point in time
func EntryID(sku string, t time.Time) uuid.UUID {
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(sku+"@"+strconv.FormatInt(t.Unix(), 10)))
}

func encodeValue(v domain.Value) map[string]interface{} {
	out := map[string]interface{}{}
	if v.Keys.Valid {
		out["keys"] = json.Number(v.Keys.Decimal.String())
	}
	if v.Metal.Valid {
		out["metal"] = json.Number(v.Metal.Decimal.String())
	}
	if v.Scrap.Valid {
		out["total"] = json.Number(v.Scrap.Decimal.String())
	}
	return out
}

func parseSeconds(raw json.RawMessage) time.Time {
	s, ok := text(raw)
	if !ok {
		return time.Time{}
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) || v <= 0 {
		return time.Time{}
	}
	if v >= 1e12 {
		return time.UnixMilli(int64(v)).UTC()
	}
	return time.Unix(int64(v), 0).UTC()
}
