package polldata

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/offerledger/pnl-backend/internal/domain"
)

// offerRepository implements domain.OfferRepository over a polldata.json file
type offerRepository struct {
	path   string
	logger logrus.FieldLogger
}

// NewOfferRepository creates an offer repository reading the file at path
func NewOfferRepository(path string, logger logrus.FieldLogger) domain.OfferRepository {
	return &offerRepository{
		path:   path,
		logger: logger.WithField("component", "polldata_offers"),
	}
}

// List reads and decodes the whole offer log
func (r *offerRepository) List(ctx context.Context) (*domain.OfferLog, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f, err := os.Open(r.path)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to open polldata: %v", domain.ErrFatalInput, err)
	}
	defer f.Close()

	offers, err := DecodeOffers(f)
	if err != nil {
		return nil, err
	}
	for _, rej := range offers.Rejected {
		r.logger.WithField("offer_id", rej.OfferID).WithError(rej.Err).Warn("offer rejected")
	}

	return offers, nil
}

// pricelistRepository implements domain.PricelistRepository over a
// pricelist.json file. The file holds one entry per SKU.
type pricelistRepository struct {
	mu   sync.Mutex
	path string
}

// NewPricelistRepository creates a pricelist repository for the file at path
func NewPricelistRepository(path string) domain.PricelistRepository {
	return &pricelistRepository{path: path}
}

// Add upserts the entry by SKU and rewrites the file
func (r *pricelistRepository) Add(ctx context.Context, entry *domain.PriceEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	entries, err := r.load()
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}

	entries = Upsert(entries, *entry)

	tmp, err := os.CreateTemp(filepath.Dir(r.path), ".pricelist-*.json")
	if err != nil {
		return fmt.Errorf("failed to create pricelist temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := EncodePricelist(tmp, entries); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write pricelist: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write pricelist: %w", err)
	}
	if err := os.Rename(tmp.Name(), r.path); err != nil {
		return fmt.Errorf("failed to replace pricelist: %w", err)
	}
	return nil
}

// GetLatest retrieves the newest entry for a SKU
func (r *pricelistRepository) GetLatest(ctx context.Context, sku string) (*domain.PriceEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	entries, err := r.load()
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("no pricelist at %s: %w", r.path, domain.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}

	return Latest(entries, sku)
}

func (r *pricelistRepository) load() ([]domain.PriceEntry, error) {
	f, err := os.Open(r.path)
	if err != nil {
		return nil, fmt.Errorf("failed to open pricelist: %w", err)
	}
	defer f.Close()

	return DecodePricelist(f)
}
