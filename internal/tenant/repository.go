package tenant

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/fkhayef/nebenkosten/internal/database"
)

const tenantColumns = `id, property_id, unit_id, name, email, move_in, move_out, monthly_prepayment, persons, created_at`

// Repository handles tenant and meter reading persistence
type Repository struct {
	db database.Querier
}

// NewRepository creates a new tenant repository with database dependency injected
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository whose queries run inside tx
func (r *Repository) WithTx(tx *sql.Tx) *Repository {
	return &Repository{db: tx}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTenant(row rowScanner) (*Tenant, error) {
	t := &Tenant{}
	err := row.Scan(
		&t.ID,
		&t.PropertyID,
		&t.UnitID,
		&t.Name,
		&t.Email,
		&t.MoveIn,
		&t.MoveOut,
		&t.MonthlyPrepayment,
		&t.Persons,
		&t.CreatedAt,
	)
	return t, err
}

// Create inserts a new tenant into the database
func (r *Repository) Create(ctx context.Context, t *Tenant) (*Tenant, error) {
	query := `
		INSERT INTO tenants (property_id, unit_id, name, email, move_in, move_out, monthly_prepayment, persons)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING ` + tenantColumns

	created, err := scanTenant(r.db.QueryRowContext(ctx, query,
		t.PropertyID, t.UnitID, t.Name, t.Email, t.MoveIn, t.MoveOut, t.MonthlyPrepayment, t.Persons,
	))
	if err != nil {
		return nil, fmt.Errorf("failed to create tenant: %w", err)
	}

	return created, nil
}

// GetByID retrieves a tenant by their ID
func (r *Repository) GetByID(ctx context.Context, id int64) (*Tenant, error) {
	query := `SELECT ` + tenantColumns + ` FROM tenants WHERE id = $1`

	t, err := scanTenant(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get tenant: %w", err)
	}

	return t, nil
}

// ListByProperty retrieves the tenants of a property with pagination
func (r *Repository) ListByProperty(ctx context.Context, propertyID int64, limit, offset int) ([]*Tenant, int, error) {
	var total int
	countQuery := `SELECT COUNT(*) FROM tenants WHERE property_id = $1`
	if err := r.db.QueryRowContext(ctx, countQuery, propertyID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count tenants: %w", err)
	}

	query := `SELECT ` + tenantColumns + `
		FROM tenants
		WHERE property_id = $1
		ORDER BY move_in, id
		LIMIT $2 OFFSET $3`

	tenants, err := r.query(ctx, query, propertyID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	return tenants, total, nil
}

// ListForPeriod retrieves the tenants whose occupancy overlaps the
// inclusive date range, ordered by id
func (r *Repository) ListForPeriod(ctx context.Context, propertyID int64, start, end time.Time) ([]*Tenant, error) {
	query := `SELECT ` + tenantColumns + `
		FROM tenants
		WHERE property_id = $1
		  AND move_in <= $3
		  AND (move_out IS NULL OR move_out >= $2)
		ORDER BY id`

	return r.query(ctx, query, propertyID, start, end)
}

func (r *Repository) query(ctx context.Context, query string, args ...any) ([]*Tenant, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list tenants: %w", err)
	}
	defer rows.Close()

	var tenants []*Tenant
	for rows.Next() {
		t, err := scanTenant(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan tenant: %w", err)
		}
		tenants = append(tenants, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate tenants: %w", err)
	}

	return tenants, nil
}

// Update replaces a tenant's data
func (r *Repository) Update(ctx context.Context, id int64, t *Tenant) (*Tenant, error) {
	query := `
		UPDATE tenants
		SET unit_id = $2, name = $3, email = $4, move_in = $5, move_out = $6,
		    monthly_prepayment = $7, persons = $8
		WHERE id = $1
		RETURNING ` + tenantColumns

	updated, err := scanTenant(r.db.QueryRowContext(ctx, query,
		id, t.UnitID, t.Name, t.Email, t.MoveIn, t.MoveOut, t.MonthlyPrepayment, t.Persons,
	))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to update tenant: %w", err)
	}

	return updated, nil
}

// Delete removes a tenant
func (r *Repository) Delete(ctx context.Context, id int64) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM tenants WHERE id = $1`, id); err != nil {
		return fmt.Errorf("failed to delete tenant: %w", err)
	}
	return nil
}

// UpsertReadings stores the readings of a tenant for one period, replacing
// earlier values for the same period
func (r *Repository) UpsertReadings(ctx context.Context, rd *Readings) (*Readings, error) {
	values, err := json.Marshal(rd.Values)
	if err != nil {
		return nil, fmt.Errorf("failed to encode readings: %w", err)
	}

	query := `
		INSERT INTO meter_readings (tenant_id, period_start, period_end, readings)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (tenant_id, period_start, period_end)
		DO UPDATE SET readings = EXCLUDED.readings, updated_at = NOW()
		RETURNING updated_at
	`

	out := *rd
	if err := r.db.QueryRowContext(ctx, query, rd.TenantID, rd.PeriodStart, rd.PeriodEnd, values).Scan(&out.UpdatedAt); err != nil {
		return nil, fmt.Errorf("failed to store readings: %w", err)
	}

	return &out, nil
}

// GetReadings retrieves a tenant's readings for one period
func (r *Repository) GetReadings(ctx context.Context, tenantID int64, start, end time.Time) (*Readings, error) {
	query := `
		SELECT readings, updated_at
		FROM meter_readings
		WHERE tenant_id = $1 AND period_start = $2 AND period_end = $3
	`

	var raw []byte
	rd := &Readings{TenantID: tenantID, PeriodStart: start, PeriodEnd: end}
	if err := r.db.QueryRowContext(ctx, query, tenantID, start, end).Scan(&raw, &rd.UpdatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get readings: %w", err)
	}
	if err := json.Unmarshal(raw, &rd.Values); err != nil {
		return nil, fmt.Errorf("failed to decode readings: %w", err)
	}

	return rd, nil
}

// ReadingsForPeriod retrieves the readings of every tenant of a property
// for one period, keyed by tenant ID
func (r *Repository) ReadingsForPeriod(ctx context.Context, propertyID int64, start, end time.Time) (map[int64]map[string]decimal.Decimal, error) {
	query := `
		SELECT m.tenant_id, m.readings
		FROM meter_readings m
		JOIN tenants t ON t.id = m.tenant_id
		WHERE t.property_id = $1 AND m.period_start = $2 AND m.period_end = $3
	`

	rows, err := r.db.QueryContext(ctx, query, propertyID, start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to get readings: %w", err)
	}
	defer rows.Close()

	out := make(map[int64]map[string]decimal.Decimal)
	for rows.Next() {
		var (
			tenantID int64
			raw      []byte
		)
		if err := rows.Scan(&tenantID, &raw); err != nil {
			return nil, fmt.Errorf("failed to scan readings: %w", err)
		}
		values := make(map[string]decimal.Decimal)
		if err := json.Unmarshal(raw, &values); err != nil {
			return nil, fmt.Errorf("failed to decode readings of tenant %d: %w", tenantID, err)
		}
		out[tenantID] = values
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate readings: %w", err)
	}

	return out, nil
}
