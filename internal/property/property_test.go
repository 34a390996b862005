package property

import (
	"context"
	"database/sql"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/fkhayef/nebenkosten/pkg/middleware"
)

var (
	propertyColumns = []string{"id", "landlord_id", "name", "address", "total_area", "fuel_type", "is_condominium", "created_at"}
	unitColumns     = []string{"id", "property_id", "label", "area", "occupants", "co_ownership_mille", "created_at"}
)

func setupMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock, *Service) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	return db, mock, NewService(NewRepository(db), zap.NewNop())
}

func expectProperty(mock sqlmock.Sqlmock, id, landlordID int64, totalArea string) {
	mock.ExpectQuery(`SELECT id, landlord_id, name`).
		WithArgs(id).
		WillReturnRows(sqlmock.NewRows(propertyColumns).
			AddRow(id, landlordID, "Lindenstraße 4", "Lindenstraße 4, 10115 Berlin", totalArea, "gas", false, time.Now()))
}

func TestRepository_GetByID_NotFound(t *testing.T) {
	db, mock, _ := setupMockDB(t)
	defer db.Close()

	mock.ExpectQuery(`SELECT id, landlord_id, name`).
		WithArgs(int64(9)).
		WillReturnError(sql.ErrNoRows)

	p, err := NewRepository(db).GetByID(context.Background(), 9)
	require.NoError(t, err)
	assert.Nil(t, p)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestService_GetWithUnits(t *testing.T) {
	db, mock, svc := setupMockDB(t)
	defer db.Close()

	expectProperty(mock, 1, 5, "500")
	mock.ExpectQuery(`SELECT id, property_id, label`).
		WithArgs(int64(1)).
		WillReturnRows(sqlmock.NewRows(unitColumns).
			AddRow(10, 1, "EG links", "80", 2, "0", time.Now()).
			AddRow(11, 1, "EG rechts", "120.5", 3, "0", time.Now()))

	p, err := svc.GetWithUnits(context.Background(), 5, 1)
	require.NoError(t, err)
	assert.Equal(t, 2, p.UnitCount())
	assert.Equal(t, "200.5", p.UnitArea().String())

	u, ok := p.UnitByID(11)
	require.True(t, ok)
	assert.Equal(t, 3, u.Occupants)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestService_GetByID_OtherLandlord(t *testing.T) {
	db, mock, svc := setupMockDB(t)
	defer db.Close()

	expectProperty(mock, 1, 5, "500")

	_, err := svc.GetByID(context.Background(), 6, 1)
	assert.ErrorIs(t, err, ErrNotOwner)
}

func TestService_AddUnit_RejectsAreaOverflow(t *testing.T) {
	db, mock, svc := setupMockDB(t)
	defer db.Close()

	expectProperty(mock, 1, 5, "100")
	mock.ExpectQuery(`SELECT id, property_id, label`).
		WithArgs(int64(1)).
		WillReturnRows(sqlmock.NewRows(unitColumns).AddRow(10, 1, "EG", "80", 1, "0", time.Now()))

	_, err := svc.AddUnit(context.Background(), 5, 1, &UnitRequest{Label: "OG", Area: decimal.NewFromInt(30), Occupants: 1})
	assert.ErrorIs(t, err, ErrAreaExceeded)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestService_AddUnit(t *testing.T) {
	db, mock, svc := setupMockDB(t)
	defer db.Close()

	expectProperty(mock, 1, 5, "100")
	mock.ExpectQuery(`SELECT id, property_id, label`).
		WithArgs(int64(1)).
		WillReturnRows(sqlmock.NewRows(unitColumns))
	mock.ExpectQuery(`INSERT INTO units`).
		WithArgs(int64(1), "OG", sqlmock.AnyArg(), 2, sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows(unitColumns).AddRow(12, 1, "OG", "30", 2, "0", time.Now()))

	u, err := svc.AddUnit(context.Background(), 5, 1, &UnitRequest{Label: "OG", Area: decimal.NewFromInt(30), Occupants: 2})
	require.NoError(t, err)
	assert.Equal(t, int64(12), u.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRequestValidation(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"missing name", (&CreatePropertyRequest{TotalArea: decimal.NewFromInt(10), FuelType: "gas"}).Validate()},
		{"zero area", (&CreatePropertyRequest{Name: "A", FuelType: "gas"}).Validate()},
		{"missing fuel", (&CreatePropertyRequest{Name: "A", TotalArea: decimal.NewFromInt(10)}).Validate()},
		{"unit without label", (&UnitRequest{Area: decimal.NewFromInt(10)}).Validate()},
		{"unit negative occupants", (&UnitRequest{Label: "A", Area: decimal.NewFromInt(10), Occupants: -1}).Validate()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Error(t, tt.err)
		})
	}

	assert.NoError(t, (&CreatePropertyRequest{Name: "A", TotalArea: decimal.NewFromInt(10), FuelType: "gas"}).Validate())
}

func TestHandler_GetByID(t *testing.T) {
	db, mock, svc := setupMockDB(t)
	defer db.Close()

	mock.ExpectQuery(`SELECT id, landlord_id, name`).
		WithArgs(int64(3)).
		WillReturnError(sql.ErrNoRows)

	req := httptest.NewRequest(http.MethodGet, "/3", nil)
	req = req.WithContext(middleware.WithLandlordID(req.Context(), 5))
	rec := httptest.NewRecorder()
	NewHandler(svc).Routes().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "property not found")
}

func TestHandler_CreateValidation(t *testing.T) {
	db, _, svc := setupMockDB(t)
	defer db.Close()

	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"","total_area":"100","fuel_type":"gas"}`))
	req = req.WithContext(middleware.WithLandlordID(req.Context(), 5))
	rec := httptest.NewRecorder()
	NewHandler(svc).Routes().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "INVALID_INPUT")
}

func TestHandler_Unauthenticated(t *testing.T) {
	db, _, svc := setupMockDB(t)
	defer db.Close()

	rec := httptest.NewRecorder()
	NewHandler(svc).Routes().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
