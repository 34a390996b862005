package settlement

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/fkhayef/nebenkosten/internal/calcerr"
	"github.com/fkhayef/nebenkosten/internal/costitem"
	"github.com/fkhayef/nebenkosten/internal/database"
	"github.com/fkhayef/nebenkosten/internal/metrics"
	"github.com/fkhayef/nebenkosten/internal/notification"
	"github.com/fkhayef/nebenkosten/internal/property"
	"github.com/fkhayef/nebenkosten/internal/tenant"
)

// Common errors
var (
	ErrRunNotFound       = errors.New("settlement run not found")
	ErrUnsupportedFormat = errors.New("unsupported export format")
)

// PropertyLookup resolves properties owned by a landlord
type PropertyLookup interface {
	GetByID(ctx context.Context, landlordID, id int64) (*property.Property, error)
	GetWithUnits(ctx context.Context, landlordID, id int64) (*property.Property, error)
}

// TenantSource loads the tenancies and meter readings of a period
type TenantSource interface {
	ListForPeriod(ctx context.Context, propertyID int64, start, end time.Time) ([]*tenant.Tenant, error)
	ReadingsForPeriod(ctx context.Context, propertyID int64, start, end time.Time) (map[int64]map[string]decimal.Decimal, error)
}

// CostSource loads the booked costs and heating data of a period
type CostSource interface {
	ListForPeriod(ctx context.Context, propertyID int64, start, end time.Time) ([]*costitem.LineItem, error)
	GetEmissions(ctx context.Context, propertyID int64, start, end time.Time) (*costitem.EmissionsRecord, error)
}

// Snapshot is one consistent read view of a property's settlement data
type Snapshot struct {
	Properties PropertyLookup
	Tenants    TenantSource
	Costs      CostSource
}

// SnapshotReader runs fn against a single consistent Snapshot
type SnapshotReader interface {
	ReadSnapshot(ctx context.Context, fn func(Snapshot) error) error
}

// TxSnapshots binds the sources to a read-only, repeatable-read
// transaction for the duration of one load
type TxSnapshots struct {
	db   *sql.DB
	bind func(tx *sql.Tx) Snapshot
}

// NewTxSnapshots creates a snapshot reader over db. bind returns the
// sources that query through tx.
func NewTxSnapshots(db *sql.DB, bind func(tx *sql.Tx) Snapshot) *TxSnapshots {
	return &TxSnapshots{db: db, bind: bind}
}

// ReadSnapshot implements SnapshotReader
func (t *TxSnapshots) ReadSnapshot(ctx context.Context, fn func(Snapshot) error) error {
	return database.ReadSnapshot(ctx, t.db, func(tx *sql.Tx) error {
		return fn(t.bind(tx))
	})
}

// Notifier informs the landlord about each tenant's outcome
type Notifier interface {
	NotifyStatement(ctx context.Context, landlordID int64, runID uuid.UUID, tenantID int64, tenantName string, difference decimal.Decimal) (*notification.Notification, error)
}

// Service runs and stores settlements
type Service struct {
	repo       *Repository
	calc       *Calculator
	properties PropertyLookup
	snapshots  SnapshotReader
	notifier   Notifier
	logger     *zap.Logger
	now        func() time.Time
}

// NewService creates a new settlement service. notifier may be nil.
func NewService(repo *Repository, calc *Calculator, properties PropertyLookup, snapshots SnapshotReader, notifier Notifier, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		repo:       repo,
		calc:       calc,
		properties: properties,
		snapshots:  snapshots,
		notifier:   notifier,
		logger:     logger,
		now:        time.Now,
	}
}

// Preview calculates a settlement without storing it
func (s *Service) Preview(ctx context.Context, landlordID int64, req *RunRequest) (*Run, error) {
	start := time.Now()
	run, err := s.settle(ctx, landlordID, req)
	if err != nil {
		s.fail(req, err, start)
		return nil, err
	}
	run.LandlordID = landlordID
	return run, nil
}

// Run calculates a settlement, stores it and notifies the landlord about
// every tenant's balance. Nothing is stored when the calculation fails.
func (s *Service) Run(ctx context.Context, landlordID int64, req *RunRequest) (*Run, error) {
	start := time.Now()

	run, err := s.settle(ctx, landlordID, req)
	if err != nil {
		s.fail(req, err, start)
		return nil, err
	}

	run.ID = uuid.New()
	run.LandlordID = landlordID
	run.CreatedAt = s.now().UTC()

	if err := s.repo.Create(ctx, run); err != nil {
		metrics.ObserveSettlementRun(metrics.ResultError, time.Since(start))
		return nil, err
	}

	if s.notifier != nil {
		for _, res := range run.Results {
			if _, err := s.notifier.NotifyStatement(ctx, landlordID, run.ID, res.TenantID, res.TenantName, res.Difference); err != nil {
				s.logger.Warn("failed to create statement notice",
					zap.String("run_id", run.ID.String()),
					zap.Int64("tenant_id", res.TenantID),
					zap.Error(err),
				)
			}
		}
	}

	metrics.ObserveSettlementRun(metrics.ResultSuccess, time.Since(start))
	metrics.ObserveTenantsSettled(len(run.Results))
	if run.Emissions != nil {
		metrics.IncEmissionsTier(strconv.Itoa(run.Emissions.Tier.Number))
	}

	s.logger.Info("settlement run stored",
		zap.String("run_id", run.ID.String()),
		zap.Int64("property_id", run.PropertyID),
		zap.Stringer("period", run.Period),
		zap.Int("tenants", len(run.Results)),
		zap.Int("excluded_items", len(run.Excluded)),
		zap.String("apportioned_total", run.ApportionedTotal.StringFixed(2)),
		zap.String("rules_version", run.RulesVersion),
		zap.Bool("prorate_by_occupancy", s.calc.Options().ProrateByOccupancy),
	)
	return run, nil
}

// settle loads a consistent snapshot of the property's data and runs the
// calculator on it once the snapshot is released
func (s *Service) settle(ctx context.Context, landlordID int64, req *RunRequest) (*Run, error) {
	p, err := req.Period()
	if err != nil {
		return nil, err
	}

	in := Input{Prepayments: req.Prepayments, Period: p}
	err = s.snapshots.ReadSnapshot(ctx, func(snap Snapshot) error {
		prop, err := snap.Properties.GetWithUnits(ctx, landlordID, req.PropertyID)
		if err != nil {
			return err
		}
		in.Property = prop

		if in.Tenants, err = snap.Tenants.ListForPeriod(ctx, prop.ID, p.Start, p.End); err != nil {
			return err
		}
		if in.Readings, err = snap.Tenants.ReadingsForPeriod(ctx, prop.ID, p.Start, p.End); err != nil {
			return err
		}
		if in.Items, err = snap.Costs.ListForPeriod(ctx, prop.ID, p.Start, p.End); err != nil {
			return err
		}
		rec, err := snap.Costs.GetEmissions(ctx, prop.ID, p.Start, p.End)
		if err != nil {
			return err
		}
		if rec != nil {
			data := rec.ToData()
			in.Emissions = &data
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return s.calc.Settle(in)
}

func (s *Service) fail(req *RunRequest, err error, start time.Time) {
	result := metrics.ResultError
	switch {
	case errors.Is(err, calcerr.ErrInvalidInput):
		result = metrics.ResultInvalid
	case errors.Is(err, calcerr.ErrAllocation):
		result = metrics.ResultRejected
	}
	metrics.ObserveSettlementRun(result, time.Since(start))

	s.logger.Info("settlement rejected",
		zap.Int64("property_id", req.PropertyID),
		zap.String("period_start", req.PeriodStart),
		zap.String("period_end", req.PeriodEnd),
		zap.String("result", result),
		zap.Error(err),
	)
}

// GetByID retrieves a stored run of the landlord
func (s *Service) GetByID(ctx context.Context, landlordID int64, id uuid.UUID) (*Run, error) {
	run, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if run == nil {
		return nil, ErrRunNotFound
	}
	if run.LandlordID != landlordID {
		return nil, property.ErrNotOwner
	}
	return run, nil
}

// ListByProperty retrieves the stored runs of a property, newest first
func (s *Service) ListByProperty(ctx context.Context, landlordID, propertyID int64, page, perPage int) ([]*Run, int, error) {
	if _, err := s.properties.GetByID(ctx, landlordID, propertyID); err != nil {
		return nil, 0, err
	}

	if page < 1 {
		page = 1
	}
	if perPage < 1 || perPage > 100 {
		perPage = 20
	}

	offset := (page - 1) * perPage
	return s.repo.ListByProperty(ctx, propertyID, perPage, offset)
}

// Export renders a stored run as a PDF or XLSX document
func (s *Service) Export(ctx context.Context, landlordID int64, id uuid.UUID, format string) (*Document, error) {
	run, err := s.GetByID(ctx, landlordID, id)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	doc, err := Render(run, format)
	if err != nil {
		result := metrics.ResultError
		if errors.Is(err, ErrUnsupportedFormat) {
			result = metrics.ResultInvalid
		}
		metrics.ObserveStatementExport(format, result, time.Since(start))
		return nil, err
	}
	metrics.ObserveStatementExport(format, metrics.ResultSuccess, time.Since(start))
	return doc, nil
}

// Document is a rendered statement
type Document struct {
	ContentType string
	Filename    string
	Body        []byte
}

// Render builds the statement document of run in the given format
func Render(run *Run, format string) (*Document, error) {
	name := fmt.Sprintf("abrechnung-%d-%s", run.PropertyID, run.Period.Start.Format("2006"))

	switch format {
	case FormatPDF, "":
		body, err := BuildStatementPDF(run)
		if err != nil {
			return nil, fmt.Errorf("failed to render pdf: %w", err)
		}
		return &Document{ContentType: "application/pdf", Filename: name + ".pdf", Body: body}, nil
	case FormatXLSX:
		body, err := BuildStatementXLSX(run)
		if err != nil {
			return nil, fmt.Errorf("failed to render xlsx: %w", err)
		}
		return &Document{
			ContentType: "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
			Filename:    name + ".xlsx",
			Body:        body,
		}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
}
