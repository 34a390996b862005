package tenant

import (
	"context"
	"database/sql"
	"errors"
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

	"github.com/fkhayef/nebenkosten/internal/calcerr"
	"github.com/fkhayef/nebenkosten/internal/database"
	"github.com/fkhayef/nebenkosten/internal/period"
	"github.com/fkhayef/nebenkosten/internal/property"
	"github.com/fkhayef/nebenkosten/pkg/middleware"
)

var columns = []string{"id", "property_id", "unit_id", "name", "email", "move_in", "move_out", "monthly_prepayment", "persons", "created_at"}

type fakeProperties struct {
	p *property.Property
}

func (f *fakeProperties) GetWithUnits(_ context.Context, landlordID, id int64) (*property.Property, error) {
	if f.p == nil || f.p.ID != id {
		return nil, property.ErrPropertyNotFound
	}
	if f.p.LandlordID != landlordID {
		return nil, property.ErrNotOwner
	}
	return f.p, nil
}

func setup(t *testing.T) (*sql.DB, sqlmock.Sqlmock, *Service) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	props := &fakeProperties{p: &property.Property{
		ID:         1,
		LandlordID: 5,
		TotalArea:  decimal.NewFromInt(300),
		Units: []*property.Unit{
			{ID: 10, PropertyID: 1, Label: "EG", Area: decimal.NewFromInt(80), Occupants: 2},
		},
	}}
	return db, mock, NewService(NewRepository(db), props, zap.NewNop())
}

func date(s string) time.Time {
	t, err := time.Parse(period.Layout, s)
	if err != nil {
		panic(err)
	}
	return t
}

func intPtr(v int) *int { return &v }

func TestTenantRequest_ToModel(t *testing.T) {
	valid := TenantRequest{PropertyID: 1, UnitID: 10, Name: "Erika Mustermann", MoveIn: "2023-01-01"}

	tests := []struct {
		name   string
		mutate func(*TenantRequest)
		field  string
	}{
		{"missing name", func(r *TenantRequest) { r.Name = " " }, "name"},
		{"bad move in", func(r *TenantRequest) { r.MoveIn = "01.01.2023" }, "move_in"},
		{"move out before move in", func(r *TenantRequest) { r.MoveOut = "2022-12-31" }, "move_out"},
		{"negative prepayment", func(r *TenantRequest) { r.MonthlyPrepayment = decimal.NewFromInt(-1) }, "monthly_prepayment"},
		{"negative persons", func(r *TenantRequest) { r.Persons = intPtr(-1) }, "persons"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := valid
			tt.mutate(&req)
			_, err := req.ToModel()
			var invalid *calcerr.InvalidInputError
			require.True(t, errors.As(err, &invalid), "got %v", err)
			assert.Equal(t, tt.field, invalid.Field)
		})
	}

	req := valid
	req.MoveOut = "2023-06-30"
	tn, err := req.ToModel()
	require.NoError(t, err)
	require.NotNil(t, tn.MoveOut)
	assert.Equal(t, date("2023-06-30"), *tn.MoveOut)
}

func TestTenant_Occupies(t *testing.T) {
	out := date("2023-03-31")
	tn := &Tenant{MoveIn: date("2022-05-01"), MoveOut: &out}

	assert.True(t, tn.Occupies(date("2023-01-01"), date("2023-12-31")))
	assert.True(t, tn.Occupies(date("2023-03-31"), date("2023-12-31")))
	assert.False(t, tn.Occupies(date("2023-04-01"), date("2023-12-31")))
	assert.False(t, tn.Occupies(date("2021-01-01"), date("2022-04-30")))

	open := &Tenant{MoveIn: date("2023-01-01")}
	assert.True(t, open.Occupies(date("2030-01-01"), date("2030-12-31")))
}

func TestService_Create_PersonsExceedOccupants(t *testing.T) {
	db, mock, svc := setup(t)
	defer db.Close()

	_, err := svc.Create(context.Background(), 5, &TenantRequest{
		PropertyID: 1, UnitID: 10, Name: "A", MoveIn: "2023-01-01", Persons: intPtr(3),
	})
	assert.ErrorIs(t, err, calcerr.ErrInvalidInput)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestService_Create_UnknownUnit(t *testing.T) {
	db, _, svc := setup(t)
	defer db.Close()

	_, err := svc.Create(context.Background(), 5, &TenantRequest{
		PropertyID: 1, UnitID: 99, Name: "A", MoveIn: "2023-01-01",
	})
	assert.ErrorIs(t, err, property.ErrUnitNotFound)
}

func TestService_Create(t *testing.T) {
	db, mock, svc := setup(t)
	defer db.Close()

	mock.ExpectQuery(`INSERT INTO tenants`).
		WithArgs(int64(1), int64(10), "Erika", "", date("2023-01-01"), nil, sqlmock.AnyArg(), nil).
		WillReturnRows(sqlmock.NewRows(columns).
			AddRow(7, 1, 10, "Erika", "", date("2023-01-01"), nil, "150", nil, time.Now()))

	tn, err := svc.Create(context.Background(), 5, &TenantRequest{
		PropertyID: 1, UnitID: 10, Name: "Erika", MoveIn: "2023-01-01",
		MonthlyPrepayment: decimal.NewFromInt(150),
	})
	require.NoError(t, err)
	assert.Equal(t, int64(7), tn.ID)
	assert.Nil(t, tn.MoveOut)
	assert.Nil(t, tn.Persons)
	assert.Equal(t, "150", tn.MonthlyPrepayment.String())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_ReadingsForPeriod(t *testing.T) {
	db, mock, _ := setup(t)
	defer db.Close()

	mock.ExpectQuery(`SELECT m.tenant_id, m.readings`).
		WithArgs(int64(1), date("2023-01-01"), date("2023-12-31")).
		WillReturnRows(sqlmock.NewRows([]string{"tenant_id", "readings"}).
			AddRow(7, []byte(`{"heating":"1200.5","water":"48"}`)).
			AddRow(8, []byte(`{"heating":800}`)))

	out, err := NewRepository(db).ReadingsForPeriod(context.Background(), 1, date("2023-01-01"), date("2023-12-31"))
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, "1200.5", out[7]["heating"].String())
	assert.Equal(t, "48", out[7]["water"].String())
	assert.Equal(t, "800", out[8]["heating"].String())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_WithTx_ReadsThroughTransaction(t *testing.T) {
	db, mock, _ := setup(t)
	defer db.Close()

	start, end := date("2023-01-01"), date("2023-12-31")
	mock.ExpectBegin()
	mock.ExpectQuery(`FROM tenants`).
		WithArgs(int64(1), start, end).
		WillReturnRows(sqlmock.NewRows(columns).
			AddRow(7, 1, 10, "Erika", "", date("2022-04-01"), nil, "150", nil, time.Now()))
	mock.ExpectQuery(`SELECT m.tenant_id, m.readings`).
		WithArgs(int64(1), start, end).
		WillReturnRows(sqlmock.NewRows([]string{"tenant_id", "readings"}).AddRow(7, []byte(`{"heating":"900"}`)))
	mock.ExpectCommit()

	repo := NewRepository(db)
	var (
		tenants  []*Tenant
		readings map[int64]map[string]decimal.Decimal
	)
	err := database.ReadSnapshot(context.Background(), db, func(tx *sql.Tx) error {
		var err error
		if tenants, err = repo.WithTx(tx).ListForPeriod(context.Background(), 1, start, end); err != nil {
			return err
		}
		readings, err = repo.WithTx(tx).ReadingsForPeriod(context.Background(), 1, start, end)
		return err
	})
	require.NoError(t, err)
	require.Len(t, tenants, 1)
	assert.Equal(t, "Erika", tenants[0].Name)
	assert.Equal(t, "900", readings[7]["heating"].String())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHandler_GetByID_OtherLandlord(t *testing.T) {
	db, mock, svc := setup(t)
	defer db.Close()

	mock.ExpectQuery(`SELECT id, property_id, unit_id`).
		WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows(columns).
			AddRow(7, 1, 10, "Erika", "", date("2023-01-01"), nil, "150", nil, time.Now()))

	req := httptest.NewRequest(http.MethodGet, "/7", nil)
	req = req.WithContext(middleware.WithLandlordID(req.Context(), 6))
	rec := httptest.NewRecorder()
	NewHandler(svc).Routes().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestHandler_PutReadings_Invalid(t *testing.T) {
	db, mock, svc := setup(t)
	defer db.Close()

	mock.ExpectQuery(`SELECT id, property_id, unit_id`).
		WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows(columns).
			AddRow(7, 1, 10, "Erika", "", date("2023-01-01"), nil, "150", nil, time.Now()))

	body := `{"period_start":"2023-01-01","period_end":"2023-12-31","values":{"heating":"-5"}}`
	req := httptest.NewRequest(http.MethodPut, "/7/readings", strings.NewReader(body))
	req = req.WithContext(middleware.WithLandlordID(req.Context(), 5))
	rec := httptest.NewRecorder()
	NewHandler(svc).Routes().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "values.heating")
}
