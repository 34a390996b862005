package settlement

import (
	"bytes"
	"context"
	"database/sql"
	"database/sql/driver"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/fkhayef/nebenkosten/internal/calcerr"
	"github.com/fkhayef/nebenkosten/internal/costitem"
	"github.com/fkhayef/nebenkosten/internal/notification"
	"github.com/fkhayef/nebenkosten/internal/property"
	"github.com/fkhayef/nebenkosten/internal/tenant"
	"github.com/fkhayef/nebenkosten/pkg/middleware"
)

const landlord = int64(5)

type fakeProperties struct {
	prop *property.Property
}

func (f *fakeProperties) GetByID(ctx context.Context, landlordID, id int64) (*property.Property, error) {
	return f.GetWithUnits(ctx, landlordID, id)
}

func (f *fakeProperties) GetWithUnits(_ context.Context, landlordID, id int64) (*property.Property, error) {
	if f.prop == nil || id != f.prop.ID {
		return nil, property.ErrPropertyNotFound
	}
	if landlordID != landlord {
		return nil, property.ErrNotOwner
	}
	return f.prop, nil
}

type fakeTenants struct {
	tenants  []*tenant.Tenant
	readings map[int64]map[string]decimal.Decimal
	err      error
}

func (f *fakeTenants) ListForPeriod(context.Context, int64, time.Time, time.Time) ([]*tenant.Tenant, error) {
	return f.tenants, f.err
}

func (f *fakeTenants) ReadingsForPeriod(context.Context, int64, time.Time, time.Time) (map[int64]map[string]decimal.Decimal, error) {
	return f.readings, nil
}

type fakeCosts struct {
	items     []*costitem.LineItem
	emissions *costitem.EmissionsRecord
}

func (f *fakeCosts) ListForPeriod(context.Context, int64, time.Time, time.Time) ([]*costitem.LineItem, error) {
	return f.items, nil
}

func (f *fakeCosts) GetEmissions(context.Context, int64, time.Time, time.Time) (*costitem.EmissionsRecord, error) {
	return f.emissions, nil
}

// sharedSnapshot hands out the same sources without a transaction
type sharedSnapshot struct {
	snap Snapshot
}

func (s sharedSnapshot) ReadSnapshot(_ context.Context, fn func(Snapshot) error) error {
	return fn(s.snap)
}

type recordingNotifier struct {
	notices map[int64]decimal.Decimal
	err     error
}

func (n *recordingNotifier) NotifyStatement(_ context.Context, _ int64, _ uuid.UUID, tenantID int64, _ string, difference decimal.Decimal) (*notification.Notification, error) {
	if n.err != nil {
		return nil, n.err
	}
	if n.notices == nil {
		n.notices = make(map[int64]decimal.Decimal)
	}
	n.notices[tenantID] = difference
	return &notification.Notification{}, nil
}

type fixture struct {
	db       *sql.DB
	mock     sqlmock.Sqlmock
	svc      *Service
	tenants  *fakeTenants
	costs    *fakeCosts
	notifier *recordingNotifier
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	in := threeUnitInput(t)
	in.Property.LandlordID = landlord
	f := &fixture{
		db:       db,
		mock:     mock,
		tenants:  &fakeTenants{tenants: in.Tenants},
		costs:    &fakeCosts{items: in.Items},
		notifier: &recordingNotifier{},
	}
	props := &fakeProperties{prop: in.Property}
	snapshots := sharedSnapshot{Snapshot{Properties: props, Tenants: f.tenants, Costs: f.costs}}
	f.svc = NewService(NewRepository(db), newCalculator(t, Options{}), props, snapshots, f.notifier, nil)
	f.svc.now = func() time.Time { return time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC) }
	return f
}

func runRequest() *RunRequest {
	return &RunRequest{PropertyID: 1, PeriodStart: "2023-01-01", PeriodEnd: "2023-12-31"}
}

func TestService_Run(t *testing.T) {
	f := newFixture(t)

	f.mock.ExpectExec(`INSERT INTO settlement_runs`).
		WithArgs(sqlmock.AnyArg(), landlord, int64(1), date("2023-01-01"), date("2023-12-31"), "2023.1", sqlmock.AnyArg(), sqlmock.AnyArg(), time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	run, err := f.svc.Run(context.Background(), landlord, runRequest())
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, run.ID)
	assert.Equal(t, landlord, run.LandlordID)
	require.Len(t, run.Results, 3)

	// 320 allocated against 12 x 100 prepaid
	assert.Equal(t, "-880", f.notifier.notices[101].String())
	assert.Len(t, f.notifier.notices, 3)
	assert.NoError(t, f.mock.ExpectationsWereMet())
}

func TestService_Run_StoresNothingOnFailure(t *testing.T) {
	f := newFixture(t)
	for _, tn := range f.tenants.tenants {
		tn.Persons = intPtr(0)
	}
	f.costs.items = []*costitem.LineItem{{Category: "street_cleaning_waste", Amount: d("600")}}

	run, err := f.svc.Run(context.Background(), landlord, runRequest())
	assert.Nil(t, run)
	assert.ErrorIs(t, err, calcerr.ErrAllocation)
	assert.Empty(t, f.notifier.notices)
	assert.NoError(t, f.mock.ExpectationsWereMet())
}

func TestService_Run_NoticeFailureIsNotFatal(t *testing.T) {
	f := newFixture(t)
	f.notifier.err = errors.New("connection reset")

	f.mock.ExpectExec(`INSERT INTO settlement_runs`).WillReturnResult(sqlmock.NewResult(0, 1))

	run, err := f.svc.Run(context.Background(), landlord, runRequest())
	require.NoError(t, err)
	assert.Len(t, run.Results, 3)
}

func TestService_Run_PropagatesLoadErrors(t *testing.T) {
	f := newFixture(t)
	f.tenants.err = errors.New("db down")

	_, err := f.svc.Run(context.Background(), landlord, runRequest())
	assert.EqualError(t, err, "db down")

	_, err = f.svc.Run(context.Background(), 6, runRequest())
	assert.ErrorIs(t, err, property.ErrNotOwner)
}

func TestService_LoadsInsideOneReadOnlyTransaction(t *testing.T) {
	f := newFixture(t)
	in := threeUnitInput(t)
	in.Property.LandlordID = landlord

	var bound []*sql.Tx
	snapshots := NewTxSnapshots(f.db, func(tx *sql.Tx) Snapshot {
		bound = append(bound, tx)
		return Snapshot{Properties: &fakeProperties{prop: in.Property}, Tenants: f.tenants, Costs: f.costs}
	})
	svc := NewService(NewRepository(f.db), newCalculator(t, Options{}), &fakeProperties{prop: in.Property}, snapshots, nil, nil)

	f.mock.ExpectBegin()
	f.mock.ExpectCommit()
	f.mock.ExpectExec(`INSERT INTO settlement_runs`).WillReturnResult(sqlmock.NewResult(0, 1))

	run, err := svc.Run(context.Background(), landlord, runRequest())
	require.NoError(t, err)
	assert.Len(t, run.Results, 3)
	require.Len(t, bound, 1)
	assert.NotNil(t, bound[0])
	assert.NoError(t, f.mock.ExpectationsWereMet())
}

func TestService_RollsBackSnapshotOnLoadError(t *testing.T) {
	f := newFixture(t)
	f.tenants.err = errors.New("db down")

	snapshots := NewTxSnapshots(f.db, func(*sql.Tx) Snapshot {
		return Snapshot{Properties: &fakeProperties{prop: threeUnitInput(t).Property}, Tenants: f.tenants, Costs: f.costs}
	})
	svc := NewService(NewRepository(f.db), newCalculator(t, Options{}), nil, snapshots, nil, nil)

	f.mock.ExpectBegin()
	f.mock.ExpectRollback()

	_, err := svc.Preview(context.Background(), landlord, runRequest())
	assert.EqualError(t, err, "db down")
	assert.NoError(t, f.mock.ExpectationsWereMet())
}

func TestService_Preview(t *testing.T) {
	f := newFixture(t)

	run, err := f.svc.Preview(context.Background(), landlord, runRequest())
	require.NoError(t, err)
	assert.Equal(t, uuid.Nil, run.ID)
	assert.True(t, run.CreatedAt.IsZero())
	assert.Empty(t, f.notifier.notices)
	assert.NoError(t, f.mock.ExpectationsWereMet())
}

func TestService_Preview_Emissions(t *testing.T) {
	f := newFixture(t)
	f.costs.emissions = &costitem.EmissionsRecord{
		PropertyID:    1,
		FuelType:      "gas",
		Consumption:   d("50000"),
		TotalFuelCost: d("10000"),
		HeatedArea:    d("480"),
	}

	run, err := f.svc.Preview(context.Background(), landlord, runRequest())
	require.NoError(t, err)
	require.NotNil(t, run.Emissions)
	assert.Equal(t, 3, run.Emissions.Tier.Number)
	assert.Equal(t, "10000", run.ApportionedTotal.String())
}

func TestService_GetByID(t *testing.T) {
	f := newFixture(t)
	id := uuid.New()

	stored, err := json.Marshal(&Run{ID: id, PropertyID: 1, RulesVersion: "2023.1"})
	require.NoError(t, err)

	f.mock.ExpectQuery(`SELECT landlord_id, payload FROM settlement_runs`).
		WithArgs(id).
		WillReturnRows(sqlmock.NewRows([]string{"landlord_id", "payload"}).AddRow(landlord, stored))
	run, err := f.svc.GetByID(context.Background(), landlord, id)
	require.NoError(t, err)
	assert.Equal(t, id, run.ID)
	assert.Equal(t, landlord, run.LandlordID)

	f.mock.ExpectQuery(`SELECT landlord_id, payload FROM settlement_runs`).
		WithArgs(id).
		WillReturnRows(sqlmock.NewRows([]string{"landlord_id", "payload"}).AddRow(int64(6), stored))
	_, err = f.svc.GetByID(context.Background(), landlord, id)
	assert.ErrorIs(t, err, property.ErrNotOwner)

	f.mock.ExpectQuery(`SELECT landlord_id, payload FROM settlement_runs`).
		WithArgs(id).
		WillReturnError(sql.ErrNoRows)
	_, err = f.svc.GetByID(context.Background(), landlord, id)
	assert.ErrorIs(t, err, ErrRunNotFound)
}

func TestRepository_RoundTrip(t *testing.T) {
	f := newFixture(t)

	run, err := f.svc.Preview(context.Background(), landlord, runRequest())
	require.NoError(t, err)
	run.ID = uuid.New()

	var payload []byte
	f.mock.ExpectExec(`INSERT INTO settlement_runs`).
		WithArgs(run.ID, landlord, int64(1), sqlmock.AnyArg(), sqlmock.AnyArg(), "2023.1", sqlmock.AnyArg(), payloadCapture{&payload}, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, f.svc.repo.Create(context.Background(), run))

	f.mock.ExpectQuery(`SELECT landlord_id, payload FROM settlement_runs`).
		WithArgs(run.ID).
		WillReturnRows(sqlmock.NewRows([]string{"landlord_id", "payload"}).AddRow(landlord, payload))
	loaded, err := f.svc.repo.GetByID(context.Background(), run.ID)
	require.NoError(t, err)

	require.Len(t, loaded.Results, 3)
	res, _ := loaded.ResultFor(101)
	assert.Equal(t, "320", res.TotalAllocated.String())
	assert.True(t, run.Period.Start.Equal(loaded.Period.Start))
	assert.True(t, run.TotalAllocated().Equal(loaded.TotalAllocated()))
}

// payloadCapture matches any argument and keeps it
type payloadCapture struct {
	dst *[]byte
}

func (c payloadCapture) Match(v driver.Value) bool {
	b, ok := v.([]byte)
	if ok {
		*c.dst = append([]byte(nil), b...)
	}
	return ok
}

func TestRender(t *testing.T) {
	f := newFixture(t)
	f.costs.emissions = &costitem.EmissionsRecord{
		FuelType: "gas", Consumption: d("50000"), TotalFuelCost: d("10000"), HeatedArea: d("480"),
	}
	run, err := f.svc.Preview(context.Background(), landlord, runRequest())
	require.NoError(t, err)

	pdf, err := Render(run, FormatPDF)
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", pdf.ContentType)
	assert.Equal(t, "abrechnung-1-2023.pdf", pdf.Filename)
	assert.True(t, bytes.HasPrefix(pdf.Body, []byte("%PDF")))

	xlsx, err := Render(run, FormatXLSX)
	require.NoError(t, err)
	book, err := excelize.OpenReader(bytes.NewReader(xlsx.Body))
	require.NoError(t, err)
	defer book.Close()

	name, err := book.GetCellValue("summary", "A8")
	require.NoError(t, err)
	assert.Equal(t, "Becker", name)
	rows, err := book.GetRows("lines")
	require.NoError(t, err)
	assert.Len(t, rows, 1+3*2)

	_, err = Render(run, "docx")
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestHandler_Run(t *testing.T) {
	f := newFixture(t)
	f.mock.ExpectExec(`INSERT INTO settlement_runs`).WillReturnResult(sqlmock.NewResult(0, 1))

	body := `{"property_id":1,"period_start":"2023-01-01","period_end":"2023-12-31","prepayments":{"101":{"monthly_amount":"50"}}}`
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	req = req.WithContext(middleware.WithLandlordID(req.Context(), landlord))
	rec := httptest.NewRecorder()
	NewHandler(f.svc).Routes().ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), `"difference":"-280"`)
	assert.NoError(t, f.mock.ExpectationsWereMet())
}

func TestHandler_Errors(t *testing.T) {
	f := newFixture(t)
	f.costs.items = []*costitem.LineItem{{Category: "street_cleaning_waste", Amount: d("600")}}
	for _, tn := range f.tenants.tenants {
		tn.Persons = intPtr(0)
	}

	tests := []struct {
		name       string
		method     string
		target     string
		body       string
		landlordID int64
		wantStatus int
		wantBody   string
	}{
		{"allocation failure", http.MethodPost, "/preview", `{"property_id":1,"period_start":"2023-01-01","period_end":"2023-12-31"}`, landlord, http.StatusUnprocessableEntity, "ALLOCATION_FAILED"},
		{"bad period", http.MethodPost, "/preview", `{"property_id":1,"period_start":"2023-12-31","period_end":"2023-01-01"}`, landlord, http.StatusBadRequest, "INVALID_INPUT"},
		{"foreign property", http.MethodPost, "/preview", `{"property_id":1,"period_start":"2023-01-01","period_end":"2023-12-31"}`, 6, http.StatusForbidden, "FORBIDDEN"},
		{"unknown property", http.MethodPost, "/", `{"property_id":2,"period_start":"2023-01-01","period_end":"2023-12-31"}`, landlord, http.StatusNotFound, "NOT_FOUND"},
		{"malformed id", http.MethodGet, "/not-a-uuid", "", landlord, http.StatusBadRequest, "Invalid settlement ID"},
		{"unauthenticated", http.MethodGet, "/?property_id=1", "", 0, http.StatusUnauthorized, "UNAUTHORIZED"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.target, strings.NewReader(tt.body))
			if tt.landlordID != 0 {
				req = req.WithContext(middleware.WithLandlordID(req.Context(), tt.landlordID))
			}
			rec := httptest.NewRecorder()
			NewHandler(f.svc).Routes().ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Contains(t, rec.Body.String(), tt.wantBody)
		})
	}
}

func TestHandler_Export(t *testing.T) {
	f := newFixture(t)
	run, err := f.svc.Preview(context.Background(), landlord, runRequest())
	require.NoError(t, err)
	run.ID = uuid.New()
	stored, err := json.Marshal(run)
	require.NoError(t, err)

	f.mock.ExpectQuery(`SELECT landlord_id, payload FROM settlement_runs`).
		WithArgs(run.ID).
		WillReturnRows(sqlmock.NewRows([]string{"landlord_id", "payload"}).AddRow(landlord, stored))

	req := httptest.NewRequest(http.MethodGet, "/"+run.ID.String()+"/export?format=xlsx", nil)
	req = req.WithContext(middleware.WithLandlordID(req.Context(), landlord))
	rec := httptest.NewRecorder()
	NewHandler(f.svc).Routes().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "abrechnung-1-2023.xlsx")
	assert.NotZero(t, rec.Body.Len())
}
