package property

import (
	"context"
	"database/sql"
	"errors"

	"go.uber.org/zap"
)

// Common errors
var (
	ErrPropertyNotFound = errors.New("property not found")
	ErrUnitNotFound     = errors.New("unit not found")
	ErrNotOwner         = errors.New("property belongs to another landlord")
	ErrAreaExceeded     = errors.New("unit areas exceed the property's total area")
)

// Service handles property business logic
type Service struct {
	repo   *Repository
	logger *zap.Logger
}

// NewService creates a new property service
func NewService(repo *Repository, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{repo: repo, logger: logger}
}

// WithTx returns a service whose reads and writes run inside tx
func (s *Service) WithTx(tx *sql.Tx) *Service {
	return &Service{repo: s.repo.WithTx(tx), logger: s.logger}
}

// Create creates a new property for the landlord
func (s *Service) Create(ctx context.Context, landlordID int64, req *CreatePropertyRequest) (*Property, error) {
	p, err := s.repo.Create(ctx, landlordID, req)
	if err != nil {
		return nil, err
	}
	s.logger.Info("property created", zap.Int64("property_id", p.ID), zap.Int64("landlord_id", landlordID))
	return p, nil
}

// GetByID retrieves a property owned by the landlord
func (s *Service) GetByID(ctx context.Context, landlordID, id int64) (*Property, error) {
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, ErrPropertyNotFound
	}
	if p.LandlordID != landlordID {
		return nil, ErrNotOwner
	}
	return p, nil
}

// GetWithUnits retrieves a property together with its units
func (s *Service) GetWithUnits(ctx context.Context, landlordID, id int64) (*Property, error) {
	p, err := s.GetByID(ctx, landlordID, id)
	if err != nil {
		return nil, err
	}

	units, err := s.repo.GetUnits(ctx, id)
	if err != nil {
		return nil, err
	}
	p.Units = units

	return p, nil
}

// ListByLandlordID retrieves the landlord's properties
func (s *Service) ListByLandlordID(ctx context.Context, landlordID int64, page, perPage int) ([]*Property, int, error) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 || perPage > 100 {
		perPage = 20
	}

	offset := (page - 1) * perPage
	return s.repo.ListByLandlordID(ctx, landlordID, perPage, offset)
}

// Update modifies an existing property
func (s *Service) Update(ctx context.Context, landlordID, id int64, req *UpdatePropertyRequest) (*Property, error) {
	existing, err := s.GetWithUnits(ctx, landlordID, id)
	if err != nil {
		return nil, err
	}
	if req.TotalArea != nil && existing.UnitArea().GreaterThan(*req.TotalArea) {
		return nil, ErrAreaExceeded
	}

	p, err := s.repo.Update(ctx, id, req)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, ErrPropertyNotFound
	}
	return p, nil
}

// Delete removes a property
func (s *Service) Delete(ctx context.Context, landlordID, id int64) error {
	if _, err := s.GetByID(ctx, landlordID, id); err != nil {
		return err
	}
	return s.repo.Delete(ctx, id)
}

// AddUnit adds a unit to a property, keeping the summed unit area within
// the property's total area
func (s *Service) AddUnit(ctx context.Context, landlordID, propertyID int64, req *UnitRequest) (*Unit, error) {
	p, err := s.GetWithUnits(ctx, landlordID, propertyID)
	if err != nil {
		return nil, err
	}
	if p.UnitArea().Add(req.Area).GreaterThan(p.TotalArea) {
		return nil, ErrAreaExceeded
	}

	return s.repo.AddUnit(ctx, propertyID, req)
}

// GetUnits retrieves all units of a property
func (s *Service) GetUnits(ctx context.Context, landlordID, propertyID int64) ([]*Unit, error) {
	if _, err := s.GetByID(ctx, landlordID, propertyID); err != nil {
		return nil, err
	}
	return s.repo.GetUnits(ctx, propertyID)
}

// UpdateUnit replaces a unit's data
func (s *Service) UpdateUnit(ctx context.Context, landlordID, propertyID, unitID int64, req *UnitRequest) (*Unit, error) {
	p, err := s.GetWithUnits(ctx, landlordID, propertyID)
	if err != nil {
		return nil, err
	}
	current, ok := p.UnitByID(unitID)
	if !ok {
		return nil, ErrUnitNotFound
	}
	if p.UnitArea().Sub(current.Area).Add(req.Area).GreaterThan(p.TotalArea) {
		return nil, ErrAreaExceeded
	}

	u, err := s.repo.UpdateUnit(ctx, propertyID, unitID, req)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, ErrUnitNotFound
	}
	return u, nil
}

// RemoveUnit removes a unit from a property
func (s *Service) RemoveUnit(ctx context.Context, landlordID, propertyID, unitID int64) error {
	if _, err := s.GetByID(ctx, landlordID, propertyID); err != nil {
		return err
	}
	return s.repo.DeleteUnit(ctx, propertyID, unitID)
}
