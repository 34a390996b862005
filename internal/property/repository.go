package property

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/fkhayef/nebenkosten/internal/database"
)

// Repository handles property and unit persistence
type Repository struct {
	db database.Querier
}

// NewRepository creates a new property repository
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository whose queries run inside tx
func (r *Repository) WithTx(tx *sql.Tx) *Repository {
	return &Repository{db: tx}
}

// Create inserts a new property
func (r *Repository) Create(ctx context.Context, landlordID int64, req *CreatePropertyRequest) (*Property, error) {
	query := `
		INSERT INTO properties (landlord_id, name, address, total_area, fuel_type, is_condominium)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, landlord_id, name, address, total_area, fuel_type, is_condominium, created_at
	`

	p := &Property{}
	err := r.db.QueryRowContext(ctx, query,
		landlordID,
		req.Name,
		req.Address,
		req.TotalArea,
		req.FuelType,
		req.IsCondominium,
	).Scan(
		&p.ID,
		&p.LandlordID,
		&p.Name,
		&p.Address,
		&p.TotalArea,
		&p.FuelType,
		&p.IsCondominium,
		&p.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create property: %w", err)
	}

	return p, nil
}

// GetByID retrieves a property without its units
func (r *Repository) GetByID(ctx context.Context, id int64) (*Property, error) {
	query := `
		SELECT id, landlord_id, name, address, total_area, fuel_type, is_condominium, created_at
		FROM properties
		WHERE id = $1
	`

	p := &Property{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&p.ID,
		&p.LandlordID,
		&p.Name,
		&p.Address,
		&p.TotalArea,
		&p.FuelType,
		&p.IsCondominium,
		&p.CreatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get property: %w", err)
	}

	return p, nil
}

// ListByLandlordID retrieves the properties of a landlord
func (r *Repository) ListByLandlordID(ctx context.Context, landlordID int64, limit, offset int) ([]*Property, int, error) {
	var total int
	countQuery := `SELECT COUNT(*) FROM properties WHERE landlord_id = $1`
	if err := r.db.QueryRowContext(ctx, countQuery, landlordID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count properties: %w", err)
	}

	query := `
		SELECT id, landlord_id, name, address, total_area, fuel_type, is_condominium, created_at
		FROM properties
		WHERE landlord_id = $1
		ORDER BY name
		LIMIT $2 OFFSET $3
	`

	rows, err := r.db.QueryContext(ctx, query, landlordID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list properties: %w", err)
	}
	defer rows.Close()

	var properties []*Property
	for rows.Next() {
		p := &Property{}
		if err := rows.Scan(
			&p.ID,
			&p.LandlordID,
			&p.Name,
			&p.Address,
			&p.TotalArea,
			&p.FuelType,
			&p.IsCondominium,
			&p.CreatedAt,
		); err != nil {
			return nil, 0, fmt.Errorf("failed to scan property: %w", err)
		}
		properties = append(properties, p)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to iterate properties: %w", err)
	}

	return properties, total, nil
}

// Update modifies an existing property
func (r *Repository) Update(ctx context.Context, id int64, req *UpdatePropertyRequest) (*Property, error) {
	query := `
		UPDATE properties
		SET name = COALESCE($2, name),
		    address = COALESCE($3, address),
		    total_area = COALESCE($4, total_area),
		    fuel_type = COALESCE($5, fuel_type)
		WHERE id = $1
		RETURNING id, landlord_id, name, address, total_area, fuel_type, is_condominium, created_at
	`

	p := &Property{}
	err := r.db.QueryRowContext(ctx, query, id, req.Name, req.Address, req.TotalArea, req.FuelType).Scan(
		&p.ID,
		&p.LandlordID,
		&p.Name,
		&p.Address,
		&p.TotalArea,
		&p.FuelType,
		&p.IsCondominium,
		&p.CreatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to update property: %w", err)
	}

	return p, nil
}

// Delete removes a property and, via cascade, its units
func (r *Repository) Delete(ctx context.Context, id int64) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM properties WHERE id = $1`, id); err != nil {
		return fmt.Errorf("failed to delete property: %w", err)
	}
	return nil
}

// AddUnit inserts a unit into a property
func (r *Repository) AddUnit(ctx context.Context, propertyID int64, req *UnitRequest) (*Unit, error) {
	query := `
		INSERT INTO units (property_id, label, area, occupants, co_ownership_mille)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, property_id, label, area, occupants, co_ownership_mille, created_at
	`

	u := &Unit{}
	err := r.db.QueryRowContext(ctx, query, propertyID, req.Label, req.Area, req.Occupants, req.CoOwnershipMille).Scan(
		&u.ID,
		&u.PropertyID,
		&u.Label,
		&u.Area,
		&u.Occupants,
		&u.CoOwnershipMille,
		&u.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to add unit: %w", err)
	}

	return u, nil
}

// UpdateUnit replaces a unit's data
func (r *Repository) UpdateUnit(ctx context.Context, propertyID, unitID int64, req *UnitRequest) (*Unit, error) {
	query := `
		UPDATE units
		SET label = $3, area = $4, occupants = $5, co_ownership_mille = $6
		WHERE property_id = $1 AND id = $2
		RETURNING id, property_id, label, area, occupants, co_ownership_mille, created_at
	`

	u := &Unit{}
	err := r.db.QueryRowContext(ctx, query, propertyID, unitID, req.Label, req.Area, req.Occupants, req.CoOwnershipMille).Scan(
		&u.ID,
		&u.PropertyID,
		&u.Label,
		&u.Area,
		&u.Occupants,
		&u.CoOwnershipMille,
		&u.CreatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to update unit: %w", err)
	}

	return u, nil
}

// DeleteUnit removes a unit from a property
func (r *Repository) DeleteUnit(ctx context.Context, propertyID, unitID int64) error {
	query := `DELETE FROM units WHERE property_id = $1 AND id = $2`
	if _, err := r.db.ExecContext(ctx, query, propertyID, unitID); err != nil {
		return fmt.Errorf("failed to delete unit: %w", err)
	}
	return nil
}

// GetUnits retrieves all units of a property ordered by id
func (r *Repository) GetUnits(ctx context.Context, propertyID int64) ([]*Unit, error) {
	query := `
		SELECT id, property_id, label, area, occupants, co_ownership_mille, created_at
		FROM units
		WHERE property_id = $1
		ORDER BY id
	`

	rows, err := r.db.QueryContext(ctx, query, propertyID)
	if err != nil {
		return nil, fmt.Errorf("failed to get units: %w", err)
	}
	defer rows.Close()

	var units []*Unit
	for rows.Next() {
		u := &Unit{}
		if err := rows.Scan(
			&u.ID,
			&u.PropertyID,
			&u.Label,
			&u.Area,
			&u.Occupants,
			&u.CoOwnershipMille,
			&u.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan unit: %w", err)
		}
		units = append(units, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate units: %w", err)
	}

	return units, nil
}
