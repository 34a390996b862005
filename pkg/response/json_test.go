package response

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fkhayef/nebenkosten/internal/calcerr"
)

func decode(t *testing.T, rec *httptest.ResponseRecorder) APIResponse {
	t.Helper()
	var body APIResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestCalculationError(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		handled   bool
		status    int
		code      string
		wantField string
	}{
		{
			name:      "invalid input",
			err:       calcerr.Invalid("property.total_area", "must be positive"),
			handled:   true,
			status:    http.StatusBadRequest,
			code:      "INVALID_INPUT",
			wantField: "property.total_area",
		},
		{
			name:    "wrapped allocation failure",
			err:     fmt.Errorf("settle: %w", &calcerr.AllocationError{Item: "Heizung", Key: "area", Reason: "measure base is zero"}),
			handled: true,
			status:  http.StatusUnprocessableEntity,
			code:    "ALLOCATION_FAILED",
		},
		{
			name:    "unrelated error",
			err:     errors.New("connection refused"),
			handled: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			handled := CalculationError(rec, tt.err)

			assert.Equal(t, tt.handled, handled)
			if !tt.handled {
				assert.Zero(t, rec.Body.Len())
				return
			}

			assert.Equal(t, tt.status, rec.Code)
			body := decode(t, rec)
			assert.False(t, body.Success)
			require.NotNil(t, body.Error)
			assert.Equal(t, tt.code, body.Error.Code)
			assert.Equal(t, tt.wantField, body.Error.Field)
		})
	}
}

func TestNewMeta(t *testing.T) {
	meta := NewMeta(2, 20, 41)

	assert.Equal(t, 2, meta.Page)
	assert.Equal(t, 20, meta.PerPage)
	assert.Equal(t, 41, meta.Total)
	assert.Equal(t, 3, meta.TotalPages)

	assert.Equal(t, 0, NewMeta(1, 20, 0).TotalPages)
}

func TestJSONWithMeta(t *testing.T) {
	rec := httptest.NewRecorder()
	JSONWithMeta(rec, http.StatusOK, []string{"a"}, NewMeta(1, 20, 1))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	body := decode(t, rec)
	assert.True(t, body.Success)
	require.NotNil(t, body.Meta)
	assert.Equal(t, 1, body.Meta.TotalPages)
}

func TestFile(t *testing.T) {
	rec := httptest.NewRecorder()
	File(rec, "application/pdf", "abrechnung-7-2023.pdf", []byte("%PDF-1.3"))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="abrechnung-7-2023.pdf"`, rec.Header().Get("Content-Disposition"))
	assert.Equal(t, "8", rec.Header().Get("Content-Length"))
	assert.Equal(t, "%PDF-1.3", rec.Body.String())
}

func TestErrorHelpers(t *testing.T) {
	rec := httptest.NewRecorder()
	Forbidden(rec, "not your property")

	assert.Equal(t, http.StatusForbidden, rec.Code)
	body := decode(t, rec)
	require.NotNil(t, body.Error)
	assert.Equal(t, "FORBIDDEN", body.Error.Code)
	assert.Equal(t, "not your property", body.Error.Message)
}
