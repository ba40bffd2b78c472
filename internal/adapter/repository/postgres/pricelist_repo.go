package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/offerledger/pnl-backend/internal/domain"
)

// pricelistRepository implements domain.PricelistRepository
type pricelistRepository struct {
	db *DB
}

// NewPricelistRepository creates a new pricelist repository
func NewPricelistRepository(db *DB) domain.PricelistRepository {
	return &pricelistRepository{db: db}
}

// Add creates a new pricelist history entry
func (r *pricelistRepository) Add(ctx context.Context, entry *domain.PriceEntry) error {
	query := `
		INSERT INTO pricelist_history (id, sku, buy_keys, buy_metal, buy_scrap, sell_keys, sell_metal, sell_scrap, recorded_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO NOTHING
	`

	_, err := r.db.ExecContext(ctx, query,
		entry.ID,
		entry.SKU,
		nullString(entry.Buy.Keys),
		nullString(entry.Buy.Metal),
		nullString(entry.Buy.Scrap),
		nullString(entry.Sell.Keys),
		nullString(entry.Sell.Metal),
		nullString(entry.Sell.Scrap),
		entry.Time,
	)
	if err != nil {
		return fmt.Errorf("failed to insert pricelist history entry: %w", err)
	}

	return nil
}

// GetLatest retrieves the most recent price entry for a given SKU
func (r *pricelistRepository) GetLatest(ctx context.Context, sku string) (*domain.PriceEntry, error) {
	query := `
		SELECT id, sku, buy_keys, buy_metal, buy_scrap, sell_keys, sell_metal, sell_scrap, recorded_at
		FROM pricelist_history
		WHERE sku = $1
		ORDER BY recorded_at DESC
		LIMIT 1
	`

	var entry domain.PriceEntry
	var buyKeys, buyMetal, buyScrap, sellKeys, sellMetal, sellScrap sql.NullString

	err := r.db.QueryRowContext(ctx, query, sku).Scan(
		&entry.ID,
		&entry.SKU,
		&buyKeys,
		&buyMetal,
		&buyScrap,
		&sellKeys,
		&sellMetal,
		&sellScrap,
		&entry.Time,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("no price found for %s: %w", sku, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get latest price: %w", err)
	}

	// Parse NUMERIC columns
	for _, col := range []struct {
		src sql.NullString
		dst *decimal.NullDecimal
	}{
		{buyKeys, &entry.Buy.Keys},
		{buyMetal, &entry.Buy.Metal},
		{buyScrap, &entry.Buy.Scrap},
		{sellKeys, &entry.Sell.Keys},
		{sellMetal, &entry.Sell.Metal},
		{sellScrap, &entry.Sell.Scrap},
	} {
		if !col.src.Valid {
			continue
		}
		d, err := decimal.NewFromString(col.src.String)
		if err != nil {
			return nil, fmt.Errorf("failed to parse price for %s: %w", sku, err)
		}
		*col.dst = decimal.NewNullDecimal(d)
	}

	return &entry, nil
}

func nullString(d decimal.NullDecimal) sql.NullString {
	if !d.Valid {
		return sql.NullString{}
	}
	return sql.NullString{String: d.Decimal.String(), Valid: true}
}
