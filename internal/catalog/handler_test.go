package catalog

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fkhayef/nebenkosten/internal/rules"
)

func TestHandler(t *testing.T) {
	rs, err := rules.Default()
	require.NoError(t, err)
	c, err := New(rs)
	require.NoError(t, err)
	router := NewHandler(c).Routes()

	tests := []struct {
		target     string
		wantStatus int
		wantBody   string
	}{
		{"/", http.StatusOK, `"version":"2023.1"`},
		{"/garden", http.StatusOK, `"citation":"§ 2 Nr. 10 BetrKV"`},
		{"/administration", http.StatusOK, `"apportionable":false`},
		{"/yacht", http.StatusNotFound, "NOT_FOUND"},
	}
	for _, tt := range tests {
		t.Run(tt.target, func(t *testing.T) {
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.target, nil))
			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Contains(t, rec.Body.String(), tt.wantBody)
		})
	}
}
