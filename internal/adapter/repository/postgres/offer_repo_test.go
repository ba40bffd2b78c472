package postgres

import (
	"context"
	"database/sql"
	"testing"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/offerledger/pnl-backend/internal/domain"
)

func TestOfferRepository_List_ClosedDatabaseIsUnavailable(t *testing.T) {
	// sql.Open does not connect, so no server is needed
	conn, err := sql.Open("postgres", "host=localhost dbname=pnl sslmode=disable")
	require.NoError(t, err)
	require.NoError(t, conn.Close())

	logger, _ := test.NewNullLogger()
	repo := NewOfferRepository(&DB{DB: conn}, logger)

	offerLog, err := repo.List(context.Background())
	assert.Nil(t, offerLog)
	assert.ErrorIs(t, err, domain.ErrUnavailable)
	assert.NotErrorIs(t, err, domain.ErrFatalInput)
}
