package domain

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestNewNormalizer(t *testing.T) {
	fallback := decimal.NewFromInt(60)
	maxRate := decimal.NewFromInt(1000)

	tests := []struct {
		name         string
		rate         decimal.Decimal
		maxRate      decimal.Decimal
		wantRate     decimal.Decimal
		wantDegraded bool
	}{
		{
			name:     "Sane rate is kept",
			rate:     decimal.RequireFromString("55.11"),
			maxRate:  maxRate,
			wantRate: decimal.RequireFromString("55.11"),
		},
		{
			name:         "Missing rate falls back",
			rate:         decimal.Zero,
			maxRate:      maxRate,
			wantRate:     fallback,
			wantDegraded: true,
		},
		{
			name:         "Negative rate falls back",
			rate:         decimal.NewFromInt(-3),
			maxRate:      maxRate,
			wantRate:     fallback,
			wantDegraded: true,
		},
		{
			name:         "Rate above the sanity bound falls back",
			rate:         decimal.NewFromInt(5000),
			maxRate:      maxRate,
			wantRate:     fallback,
			wantDegraded: true,
		},
		{
			name:     "Zero bound disables the upper check",
			rate:     decimal.NewFromInt(5000),
			maxRate:  decimal.Zero,
			wantRate: decimal.NewFromInt(5000),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n := NewNormalizer(tt.rate, fallback, tt.maxRate)
			assert.True(t, tt.wantRate.Equal(n.Rate), "rate %s", n.Rate)
			assert.Equal(t, tt.wantDegraded, n.Degraded)
		})
	}
}

func TestNormalizer_Normalize(t *testing.T) {
	n := Normalizer{Rate: decimal.NewFromInt(50)}

	tests := []struct {
		name    string
		value   Value
		want    decimal.Decimal
		wantErr bool
	}{
		{
			name:  "Keys and metal",
			value: KeysMetal(decimal.NewFromInt(2), decimal.RequireFromString("1.33")),
			want:  decimal.RequireFromString("101.33"),
		},
		{
			name:  "Metal only",
			value: Value{Metal: decimal.NewNullDecimal(decimal.NewFromInt(4))},
			want:  decimal.NewFromInt(4),
		},
		{
			name:  "Keys only",
			value: Value{Keys: decimal.NewNullDecimal(decimal.NewFromInt(1))},
			want:  decimal.NewFromInt(50),
		},
		{
			name:  "Scrap total ignores the rate",
			value: ScrapTotal(decimal.NewFromInt(27)),
			want:  decimal.NewFromInt(3),
		},
		{
			name: "Keys and metal win over the scrap total",
			value: Value{
				Keys:  decimal.NewNullDecimal(decimal.NewFromInt(1)),
				Metal: decimal.NewNullDecimal(decimal.Zero),
				Scrap: decimal.NewNullDecimal(decimal.NewFromInt(9)),
			},
			want: decimal.NewFromInt(50),
		},
		{
			name:    "Empty value should fail",
			value:   Value{},
			wantErr: true,
		},
		{
			name:    "Invalid value should fail",
			value:   Value{Invalid: true, Metal: decimal.NewNullDecimal(decimal.NewFromInt(1))},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := n.Normalize(tt.value)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrUnresolvableValue)
				assert.True(t, got.IsZero())
			} else {
				assert.NoError(t, err)
				assert.True(t, tt.want.Equal(got), "got %s want %s", got, tt.want)
			}
		})
	}
}

func TestValue_IsZero(t *testing.T) {
	assert.True(t, Value{}.IsZero())
	assert.False(t, ScrapTotal(decimal.Zero).IsZero())
	assert.False(t, Value{Invalid: true}.IsZero())
}
