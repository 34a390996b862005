package costitem

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/fkhayef/nebenkosten/internal/calcerr"
	"github.com/fkhayef/nebenkosten/internal/catalog"
	"github.com/fkhayef/nebenkosten/internal/emissions"
	"github.com/fkhayef/nebenkosten/internal/period"
	"github.com/fkhayef/nebenkosten/internal/property"
)

// Common errors
var (
	ErrItemNotFound      = errors.New("cost item not found")
	ErrEmissionsNotFound = errors.New("emissions data not found")
)

// PropertyLookup resolves a landlord's property
type PropertyLookup interface {
	GetByID(ctx context.Context, landlordID, id int64) (*property.Property, error)
}

// Service handles cost item business logic
type Service struct {
	repo       *Repository
	catalog    *catalog.Catalog
	emissions  *emissions.Engine
	properties PropertyLookup
	logger     *zap.Logger
}

// NewService creates a new cost item service with dependencies injected
func NewService(repo *Repository, cat *catalog.Catalog, em *emissions.Engine, properties PropertyLookup, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		repo:       repo,
		catalog:    cat,
		emissions:  em,
		properties: properties,
		logger:     logger,
	}
}

// Create books a cost item on one of the landlord's properties
func (s *Service) Create(ctx context.Context, landlordID int64, req *LineItemRequest) (*LineItem, error) {
	li, err := req.ToModel()
	if err != nil {
		return nil, err
	}
	if _, err := s.properties.GetByID(ctx, landlordID, li.PropertyID); err != nil {
		return nil, err
	}
	if err := s.classify(li); err != nil {
		return nil, err
	}

	created, err := s.repo.Create(ctx, li)
	if err != nil {
		return nil, err
	}
	s.logger.Info("cost item created",
		zap.Int64("item_id", created.ID),
		zap.Int64("property_id", created.PropertyID),
		zap.String("category", created.Category),
		zap.Bool("apportionable", created.Apportionable),
	)
	return created, nil
}

// GetByID retrieves a cost item of one of the landlord's properties
func (s *Service) GetByID(ctx context.Context, landlordID, id int64) (*LineItem, error) {
	li, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if li == nil {
		return nil, ErrItemNotFound
	}
	if _, err := s.properties.GetByID(ctx, landlordID, li.PropertyID); err != nil {
		return nil, err
	}
	return li, nil
}

// ListByProperty retrieves the cost items of a property with pagination
func (s *Service) ListByProperty(ctx context.Context, landlordID, propertyID int64, page, perPage int) ([]*LineItem, int, error) {
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

// Update replaces a cost item; it cannot move to another property
func (s *Service) Update(ctx context.Context, landlordID, id int64, req *LineItemRequest) (*LineItem, error) {
	existing, err := s.GetByID(ctx, landlordID, id)
	if err != nil {
		return nil, err
	}

	li, err := req.ToModel()
	if err != nil {
		return nil, err
	}
	if li.PropertyID != existing.PropertyID {
		return nil, calcerr.Invalid("property_id", "a cost item cannot change its property")
	}
	if err := s.classify(li); err != nil {
		return nil, err
	}

	updated, err := s.repo.Update(ctx, id, li)
	if err != nil {
		return nil, err
	}
	if updated == nil {
		return nil, ErrItemNotFound
	}
	return updated, nil
}

// Delete removes a cost item
func (s *Service) Delete(ctx context.Context, landlordID, id int64) error {
	if _, err := s.GetByID(ctx, landlordID, id); err != nil {
		return err
	}
	return s.repo.Delete(ctx, id)
}

// PutEmissions validates and stores a property's heating data and returns
// the carbon cost split it currently yields
func (s *Service) PutEmissions(ctx context.Context, landlordID int64, req *EmissionsRequest) (*EmissionsRecord, *emissions.Split, error) {
	rec, err := req.ToModel()
	if err != nil {
		return nil, nil, err
	}
	if _, err := s.properties.GetByID(ctx, landlordID, rec.PropertyID); err != nil {
		return nil, nil, err
	}

	split, err := s.emissions.ComputeSplit(rec.ToData())
	if err != nil {
		return nil, nil, err
	}

	stored, err := s.repo.UpsertEmissions(ctx, rec)
	if err != nil {
		return nil, nil, err
	}
	return stored, split, nil
}

// GetEmissions retrieves a property's heating data for one period
func (s *Service) GetEmissions(ctx context.Context, landlordID, propertyID int64, p period.Period) (*EmissionsRecord, *emissions.Split, error) {
	if _, err := s.properties.GetByID(ctx, landlordID, propertyID); err != nil {
		return nil, nil, err
	}

	rec, err := s.repo.GetEmissions(ctx, propertyID, p.Start, p.End)
	if err != nil {
		return nil, nil, err
	}
	if rec == nil {
		return nil, nil, ErrEmissionsNotFound
	}

	split, err := s.emissions.ComputeSplit(rec.ToData())
	if err != nil {
		return nil, nil, err
	}
	return rec, split, nil
}

// classify completes an item from the catalog: catalogued categories get
// their default key and citation when none is given and always take the
// catalog's apportionable flag
func (s *Service) classify(li *LineItem) error {
	if li.Category == catalog.CO2Category {
		return calcerr.Invalid("category", "%q is derived from the emissions data and cannot be booked", li.Category)
	}

	cat, ok := s.catalog.Lookup(li.Category)
	if !ok {
		if li.Key == "" {
			return calcerr.Invalid("key", "is required for category %q outside the catalog", li.Category)
		}
		if li.Name == "" {
			li.Name = li.Category
		}
		li.Apportionable = true
		return nil
	}

	if li.Key == "" {
		li.Key = cat.DefaultKey
	}
	if li.Citation == "" {
		li.Citation = cat.Citation
	}
	if li.Name == "" {
		li.Name = cat.Name
	}
	li.Apportionable = cat.Apportionable
	return nil
}
