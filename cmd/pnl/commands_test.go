package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/offerledger/pnl-backend/internal/adapter/polldata"
)

const offers = `{
	"offerData": {
		"10": {
			"partner": "1",
			"isAccepted": true,
			"dict": {"our": {"5002;6": 3}, "their": {"200;6": 1}},
			"value": {"our": {"metal": 3}, "their": {"metal": 3}},
			"finishTimestamp": 1700000000000
		},
		"11": {
			"partner": "2",
			"isAccepted": true,
			"dict": {"our": {"200;6": 1}, "their": {"5002;6": 4}},
			"value": {"our": {"metal": 4}, "their": {"metal": 4}},
			"finishTimestamp": 1700000001000
		}
	}
}`

func writeFile(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestRunReport(t *testing.T) {
	dir := t.TempDir()
	polldataPath := writeFile(t, dir, "polldata.json", offers)
	pricelistPath := filepath.Join(dir, "pricelist.json")
	logger, _ := test.NewNullLogger()

	var out bytes.Buffer
	err := runReport(context.Background(), []string{
		"-polldata", polldataPath,
		"-pricelist", pricelistPath,
		"-limit", "5",
	}, &out, logger)
	require.NoError(t, err)

	var decoded struct {
		RateSource string `json:"rateSource"`
		Report     struct {
			CumulativeProfit string `json:"cumulativeProfit"`
			PerItem          map[string]struct {
				RealizedProfit string `json:"realizedProfit"`
			} `json:"perItem"`
			Diagnostics struct {
				DegradedPricing bool `json:"degradedPricing"`
			} `json:"diagnostics"`
		} `json:"report"`
		TopItems []struct {
			SKU string `json:"sku"`
		} `json:"topItems"`
	}
	require.NoError(t, json.Unmarshal(out.Bytes(), &decoded))

	assert.Equal(t, "none", decoded.RateSource)
	assert.True(t, decoded.Report.Diagnostics.DegradedPricing)
	assert.Equal(t, "0", decoded.Report.CumulativeProfit)
	assert.Equal(t, "1", decoded.Report.PerItem["200;6"].RealizedProfit)
	require.Len(t, decoded.TopItems, 1)
	assert.Equal(t, "200;6", decoded.TopItems[0].SKU)
}

func TestRunReport_MissingPolldata(t *testing.T) {
	logger, _ := test.NewNullLogger()
	err := runReport(context.Background(), []string{
		"-polldata", filepath.Join(t.TempDir(), "absent.json"),
	}, &bytes.Buffer{}, logger)
	assert.Error(t, err)
}

func TestRunReport_NegativeLimit(t *testing.T) {
	logger, _ := test.NewNullLogger()
	err := runReport(context.Background(), []string{"-limit", "-1"}, &bytes.Buffer{}, logger)
	assert.EqualError(t, err, "limit must not be negative")
}

func TestRunPrice(t *testing.T) {
	dir := t.TempDir()
	pricelistPath := filepath.Join(dir, "pricelist.json")
	t.Setenv("PNL_STORAGE_PRICELIST_PATH", pricelistPath)
	logger, _ := test.NewNullLogger()

	err := runPrice(context.Background(), []string{"-sku", "5021;6", "-buy-metal", "59.11", "-sell-metal", "59.33"}, logger)
	require.NoError(t, err)

	entry, err := polldata.NewPricelistRepository(pricelistPath).GetLatest(context.Background(), "5021;6")
	require.NoError(t, err)
	rate, err := entry.MetalSellPrice()
	require.NoError(t, err)
	assert.True(t, rate.Equal(decimal.RequireFromString("59.33")))
}

func TestRunPrice_InvalidInput(t *testing.T) {
	logger, _ := test.NewNullLogger()

	tests := []struct {
		name string
		args []string
		err  string
	}{
		{name: "missing sku", args: []string{}, err: "sku is required"},
		{name: "bad metal", args: []string{"-sku", "1;6", "-sell-metal", "lots"}, err: `sell: invalid metal "lots"`},
		{name: "negative", args: []string{"-sku", "1;6", "-buy-keys", "-1"}, err: "buy: prices must not be negative"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := runPrice(context.Background(), tt.args, logger)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.err)
		})
	}
}

func TestRunImport_RequiresPostgres(t *testing.T) {
	logger, _ := test.NewNullLogger()
	polldataPath := writeFile(t, t.TempDir(), "polldata.json", offers)

	err := runImport(context.Background(), []string{"-polldata", polldataPath}, logger)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `import needs storage.source = "postgres"`)
}
