package period

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fkhayef/nebenkosten/internal/calcerr"
)

func date(s string) time.Time {
	t, err := time.Parse(Layout, s)
	if err != nil {
		panic(err)
	}
	return t
}

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		start   string
		end     string
		wantErr bool
	}{
		{"calendar year", "2023-01-01", "2023-12-31", false},
		{"shifted year", "2023-07-01", "2024-06-30", false},
		{"single day", "2023-05-05", "2023-05-05", false},
		{"thirteen months", "2023-01-01", "2024-01-31", true},
		{"exactly one year plus a day", "2023-01-01", "2024-01-01", true},
		{"reversed", "2023-12-31", "2023-01-01", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(date(tt.start), date(tt.end))
			if tt.wantErr {
				assert.True(t, errors.Is(err, calcerr.ErrInvalidInput), "got %v", err)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestPeriod_DaysAndMonths(t *testing.T) {
	p, err := Parse("2023-01-01", "2023-12-31")
	require.NoError(t, err)
	assert.Equal(t, 365, p.Days())
	assert.Equal(t, 12, p.Months())

	leap, err := Parse("2024-01-01", "2024-12-31")
	require.NoError(t, err)
	assert.Equal(t, 366, leap.Days())

	partial, err := Parse("2023-03-15", "2023-06-01")
	require.NoError(t, err)
	assert.Equal(t, 4, partial.Months())
}

func TestPeriod_Overlap(t *testing.T) {
	p, err := Parse("2023-01-01", "2023-12-31")
	require.NoError(t, err)

	out := date("2023-06-30")
	o, ok := p.Overlap(date("2022-04-01"), &out)
	require.True(t, ok)
	assert.Equal(t, "2023-01-01..2023-06-30", o.String())

	o, ok = p.Overlap(date("2023-07-01"), nil)
	require.True(t, ok)
	assert.Equal(t, "2023-07-01..2023-12-31", o.String())
	assert.Equal(t, 6, o.Months())

	before := date("2022-12-31")
	_, ok = p.Overlap(date("2022-01-01"), &before)
	assert.False(t, ok)

	_, ok = p.Overlap(date("2024-01-01"), nil)
	assert.False(t, ok)
}

func TestPeriod_JSON(t *testing.T) {
	var p Period
	require.NoError(t, json.Unmarshal([]byte(`{"start":"2023-01-01","end":"2023-12-31"}`), &p))
	assert.Equal(t, date("2023-12-31"), p.End)

	raw, err := json.Marshal(p)
	require.NoError(t, err)
	assert.JSONEq(t, `{"start":"2023-01-01","end":"2023-12-31"}`, string(raw))

	err = json.Unmarshal([]byte(`{"start":"2023-01-01","end":"2024-03-31"}`), &p)
	assert.True(t, errors.Is(err, calcerr.ErrInvalidInput))
}
