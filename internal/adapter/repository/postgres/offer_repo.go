package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/sirupsen/logrus"

	"github.com/offerledger/pnl-backend/internal/adapter/polldata"
	"github.com/offerledger/pnl-backend/internal/domain"
)

// OfferRepository implements domain.OfferRepository on the offers table.
// Each row keeps the offer's raw polldata JSON so that decoding stays in one
// place.
type OfferRepository struct {
	db     *DB
	logger logrus.FieldLogger
}

// NewOfferRepository creates a new offer repository
func NewOfferRepository(db *DB, logger logrus.FieldLogger) *OfferRepository {
	return &OfferRepository{
		db:     db,
		logger: logger.WithField("component", "postgres_offers"),
	}
}

// List retrieves every accepted offer.
// Query failures wrap ErrUnavailable; a row whose payload cannot be decoded
// is rejected and the rest are kept.
func (r *OfferRepository) List(ctx context.Context) (*domain.OfferLog, error) {
	query := `
		SELECT id, payload, poll_time
		FROM offers
		ORDER BY length(id), id
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to query offers: %w", domain.ErrUnavailable, err)
	}
	defer rows.Close()

	offerLog := &domain.OfferLog{Records: make([]domain.TradeRecord, 0)}
	for rows.Next() {
		var (
			id       string
			payload  []byte
			pollTime sql.NullInt64
		)
		if err := rows.Scan(&id, &payload, &pollTime); err != nil {
			return nil, fmt.Errorf("%w: failed to scan offer: %w", domain.ErrUnavailable, err)
		}

		var rawTime json.RawMessage
		if pollTime.Valid {
			rawTime = json.RawMessage(strconv.FormatInt(pollTime.Int64, 10))
		}

		rec, accepted, err := polldata.DecodeOffer(id, payload, rawTime)
		if err != nil {
			r.logger.WithField("offer_id", id).WithError(err).Warn("offer rejected")
			offerLog.Rejected = append(offerLog.Rejected, domain.Rejection{OfferID: id, Err: err})
			continue
		}
		if accepted {
			offerLog.Records = append(offerLog.Records, rec)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: failed to iterate offers: %w", domain.ErrUnavailable, err)
	}

	return offerLog, nil
}

// Import upserts raw offers in a single database transaction.
// pollTimes holds the top-level polldata timestamps keyed by offer id.
func (r *OfferRepository) Import(ctx context.Context, offers map[string]json.RawMessage, pollTimes map[string]int64) error {
	dbTx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer dbTx.Rollback()

	upsertQuery := `
		INSERT INTO offers (id, payload, poll_time, updated_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (id) DO UPDATE
		SET payload = EXCLUDED.payload, poll_time = EXCLUDED.poll_time, updated_at = now()
	`

	for id, payload := range offers {
		var pollTime sql.NullInt64
		if t, ok := pollTimes[id]; ok {
			pollTime = sql.NullInt64{Int64: t, Valid: true}
		}
		if _, err := dbTx.ExecContext(ctx, upsertQuery, id, []byte(payload), pollTime); err != nil {
			return fmt.Errorf("failed to upsert offer %s: %w", id, err)
		}
	}

	if err := dbTx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}
