package s3blob

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/sirupsen/logrus"

	"github.com/offerledger/pnl-backend/internal/adapter/polldata"
	"github.com/offerledger/pnl-backend/internal/domain"
)

// offerRepository implements domain.OfferRepository over a polldata object
type offerRepository struct {
	api    objectAPI
	bucket string
	key    string
	logger logrus.FieldLogger
}

// NewOfferRepository creates an offer repository reading the object at key
func NewOfferRepository(c *Client, key string, logger logrus.FieldLogger) domain.OfferRepository {
	return newOfferRepository(c.s3, c.bucket, key, logger)
}

func newOfferRepository(api objectAPI, bucket, key string, logger logrus.FieldLogger) *offerRepository {
	return &offerRepository{
		api:    api,
		bucket: bucket,
		key:    key,
		logger: logger.WithField("component", "s3_offers"),
	}
}

// List downloads and decodes the whole offer log.
// A missing object is fatal input; any other store error is ErrUnavailable.
func (r *offerRepository) List(ctx context.Context) (*domain.OfferLog, error) {
	out, err := r.api.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(r.bucket),
		Key:    aws.String(r.key),
	})
	if err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("%w: s3blob: get %s: %v", domain.ErrFatalInput, r.key, err)
		}
		return nil, fmt.Errorf("%w: s3blob: get %s: %w", domain.ErrUnavailable, r.key, err)
	}
	defer out.Body.Close()

	offers, err := polldata.DecodeOffers(out.Body)
	if err != nil {
		return nil, err
	}
	for _, rej := range offers.Rejected {
		r.logger.WithField("offer_id", rej.OfferID).WithError(rej.Err).Warn("offer rejected")
	}

	return offers, nil
}

// pricelistRepository implements domain.PricelistRepository over a
// pricelist.json object. Writes replace the whole object.
type pricelistRepository struct {
	mu     sync.Mutex
	api    objectAPI
	bucket string
	key    string
}

// NewPricelistRepository creates a pricelist repository for the object at key
func NewPricelistRepository(c *Client, key string) domain.PricelistRepository {
	return newPricelistRepository(c.s3, c.bucket, key)
}

func newPricelistRepository(api objectAPI, bucket, key string) *pricelistRepository {
	return &pricelistRepository{api: api, bucket: bucket, key: key}
}

// Add upserts the entry by SKU and uploads the pricelist
func (r *pricelistRepository) Add(ctx context.Context, entry *domain.PriceEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	entries, err := r.load(ctx)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return err
	}
	entries = polldata.Upsert(entries, *entry)

	var buf bytes.Buffer
	if err := polldata.EncodePricelist(&buf, entries); err != nil {
		return fmt.Errorf("failed to encode pricelist: %w", err)
	}

	_, err = r.api.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(r.bucket),
		Key:         aws.String(r.key),
		Body:        bytes.NewReader(buf.Bytes()),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("s3blob: put %s: %w", r.key, err)
	}
	return nil
}

// GetLatest retrieves the newest entry for a SKU
func (r *pricelistRepository) GetLatest(ctx context.Context, sku string) (*domain.PriceEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	entries, err := r.load(ctx)
	if err != nil {
		return nil, err
	}
	return polldata.Latest(entries, sku)
}

func (r *pricelistRepository) load(ctx context.Context) ([]domain.PriceEntry, error) {
	out, err := r.api.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(r.bucket),
		Key:    aws.String(r.key),
	})
	if err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("s3blob: get %s: %w", r.key, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("%w: s3blob: get %s: %w", domain.ErrUnavailable, r.key, err)
	}
	defer out.Body.Close()

	return polldata.DecodePricelist(out.Body)
}

// isNotFound reports whether err means the object does not exist
func isNotFound(err error) bool {
	var nsk *types.NoSuchKey
	if errors.As(err, &nsk) {
		return true
	}
	var nf *types.NotFound
	if errors.As(err, &nf) {
		return true
	}

	// some S3-compatible providers only surface the HTTP status
	type httpResponseError interface {
		HTTPStatusCode() int
	}
	var httpErr httpResponseError
	return errors.As(err, &httpErr) && httpErr.HTTPStatusCode() == 404
}
