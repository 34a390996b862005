package apportion

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fkhayef/nebenkosten/internal/calcerr"
)

func TestFactory_EveryKeyHasStrategy(t *testing.T) {
	f := NewStrategyFactory()
	for _, key := range Keys {
		s, err := f.Create(key)
		require.NoError(t, err, "key %s", key)
		assert.Equal(t, key, s.Key())
	}
	assert.Len(t, f.strategies, len(Keys))
}

func TestFactory_CreateRejectsUnknown(t *testing.T) {
	_, err := NewStrategyFactory().Create(Key("per_square_foot"))
	assert.True(t, errors.Is(err, calcerr.ErrInvalidInput))
}

func TestParseKey(t *testing.T) {
	k, err := ParseKey("co_ownership")
	require.NoError(t, err)
	assert.Equal(t, KeyCoOwnership, k)

	_, err = ParseKey("")
	assert.True(t, errors.Is(err, calcerr.ErrInvalidInput))
}

func TestHasReadings(t *testing.T) {
	withHeat := []Tenancy{
		{TenantID: 1, Readings: map[string]decimal.Decimal{"heating": d("10")}},
		{TenantID: 2, Readings: map[string]decimal.Decimal{"heating": d("0")}},
	}
	assert.True(t, HasReadings("heating", withHeat))

	withHeat[1].Readings = nil
	assert.False(t, HasReadings("heating", withHeat))
	assert.False(t, HasReadings("heating", nil))
}

func TestDistributeResidual(t *testing.T) {
	tests := []struct {
		name  string
		total string
		exact []string
		want  []string
	}{
		{
			name:  "leftover cent to largest",
			total: "10.00",
			exact: []string{"3.3333", "3.3333", "3.3334"},
			want:  []string{"3.33", "3.33", "3.34"},
		},
		{
			name:  "excess cent taken from first of equal largest",
			total: "0.01",
			exact: []string{"0.005", "0.005"},
			want:  []string{"0.00", "0.01"},
		},
		{
			name:  "no residual",
			total: "10.00",
			exact: []string{"5", "5"},
			want:  []string{"5.00", "5.00"},
		},
		{
			name:  "empty",
			total: "0",
			exact: nil,
			want:  []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			exact := make([]decimal.Decimal, len(tt.exact))
			for i, s := range tt.exact {
				exact[i] = d(s)
			}
			got := DistributeResidual(d(tt.total), exact)

			gotStr := make([]string, len(got))
			sum := decimal.Zero
			for i, g := range got {
				gotStr[i] = g.StringFixed(2)
				sum = sum.Add(g)
			}
			assert.Equal(t, tt.want, gotStr)
			assert.True(t, sum.Equal(d(tt.total).Round(2)))
		})
	}
}
