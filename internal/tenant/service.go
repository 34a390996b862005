package tenant

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/fkhayef/nebenkosten/internal/calcerr"
	"github.com/fkhayef/nebenkosten/internal/period"
	"github.com/fkhayef/nebenkosten/internal/property"
)

// Common errors
var (
	ErrTenantNotFound   = errors.New("tenant not found")
	ErrReadingsNotFound = errors.New("readings not found")
)

// PropertyLookup resolves a landlord's property including its units
type PropertyLookup interface {
	GetWithUnits(ctx context.Context, landlordID, id int64) (*property.Property, error)
}

// Service handles tenant business logic
type Service struct {
	repo       *Repository
	properties PropertyLookup
	logger     *zap.Logger
}

// NewService creates a new tenant service
func NewService(repo *Repository, properties PropertyLookup, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{repo: repo, properties: properties, logger: logger}
}

// Create registers a tenancy on a unit of one of the landlord's properties
func (s *Service) Create(ctx context.Context, landlordID int64, req *TenantRequest) (*Tenant, error) {
	t, err := req.ToModel()
	if err != nil {
		return nil, err
	}
	if err := s.checkUnit(ctx, landlordID, t); err != nil {
		return nil, err
	}

	created, err := s.repo.Create(ctx, t)
	if err != nil {
		return nil, err
	}
	s.logger.Info("tenant created",
		zap.Int64("tenant_id", created.ID),
		zap.Int64("property_id", created.PropertyID),
		zap.Int64("unit_id", created.UnitID),
	)
	return created, nil
}

// GetByID retrieves a tenant of one of the landlord's properties
func (s *Service) GetByID(ctx context.Context, landlordID, id int64) (*Tenant, error) {
	t, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if t == nil {
		return nil, ErrTenantNotFound
	}
	if _, err := s.properties.GetWithUnits(ctx, landlordID, t.PropertyID); err != nil {
		return nil, err
	}
	return t, nil
}

// ListByProperty retrieves the tenants of a property with pagination
func (s *Service) ListByProperty(ctx context.Context, landlordID, propertyID int64, page, perPage int) ([]*Tenant, int, error) {
	if _, err := s.properties.GetWithUnits(ctx, landlordID, propertyID); err != nil {
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

// Update replaces a tenant's data; the tenancy cannot move to another property
func (s *Service) Update(ctx context.Context, landlordID, id int64, req *TenantRequest) (*Tenant, error) {
	existing, err := s.GetByID(ctx, landlordID, id)
	if err != nil {
		return nil, err
	}

	t, err := req.ToModel()
	if err != nil {
		return nil, err
	}
	if t.PropertyID != existing.PropertyID {
		return nil, calcerr.Invalid("property_id", "a tenancy cannot change its property")
	}
	if err := s.checkUnit(ctx, landlordID, t); err != nil {
		return nil, err
	}

	updated, err := s.repo.Update(ctx, id, t)
	if err != nil {
		return nil, err
	}
	if updated == nil {
		return nil, ErrTenantNotFound
	}
	return updated, nil
}

// Delete removes a tenant
func (s *Service) Delete(ctx context.Context, landlordID, id int64) error {
	if _, err := s.GetByID(ctx, landlordID, id); err != nil {
		return err
	}
	return s.repo.Delete(ctx, id)
}

// PutReadings records a tenant's meter readings for one period
func (s *Service) PutReadings(ctx context.Context, landlordID, tenantID int64, req *ReadingsRequest) (*Readings, error) {
	if _, err := s.GetByID(ctx, landlordID, tenantID); err != nil {
		return nil, err
	}

	rd, err := req.ToModel(tenantID)
	if err != nil {
		return nil, err
	}
	return s.repo.UpsertReadings(ctx, rd)
}

// GetReadings retrieves a tenant's meter readings for one period
func (s *Service) GetReadings(ctx context.Context, landlordID, tenantID int64, p period.Period) (*Readings, error) {
	if _, err := s.GetByID(ctx, landlordID, tenantID); err != nil {
		return nil, err
	}

	rd, err := s.repo.GetReadings(ctx, tenantID, p.Start, p.End)
	if err != nil {
		return nil, err
	}
	if rd == nil {
		return nil, ErrReadingsNotFound
	}
	return rd, nil
}

// checkUnit verifies the unit belongs to the property and can house the
// declared number of persons
func (s *Service) checkUnit(ctx context.Context, landlordID int64, t *Tenant) error {
	p, err := s.properties.GetWithUnits(ctx, landlordID, t.PropertyID)
	if err != nil {
		return err
	}
	unit, ok := p.UnitByID(t.UnitID)
	if !ok {
		return property.ErrUnitNotFound
	}
	if t.Persons != nil && *t.Persons > unit.Occupants {
		return calcerr.Invalid("persons", "%d exceeds the %d occupants of unit %s", *t.Persons, unit.Occupants, unit.Label)
	}
	return nil
}
