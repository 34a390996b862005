package costitem

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/fkhayef/nebenkosten/internal/database"
)

const itemColumns = `id, property_id, period_start, period_end, category, name, amount, alloc_key, apportionable, citation, created_at`

// Repository handles cost item and emissions data persistence
type Repository struct {
	db database.Querier
}

// NewRepository creates a new cost item repository
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

func scanItem(row rowScanner) (*LineItem, error) {
	li := &LineItem{}
	err := row.Scan(
		&li.ID,
		&li.PropertyID,
		&li.PeriodStart,
		&li.PeriodEnd,
		&li.Category,
		&li.Name,
		&li.Amount,
		&li.Key,
		&li.Apportionable,
		&li.Citation,
		&li.CreatedAt,
	)
	return li, err
}

// Create inserts a new cost item
func (r *Repository) Create(ctx context.Context, li *LineItem) (*LineItem, error) {
	query := `
		INSERT INTO cost_items (property_id, period_start, period_end, category, name, amount, alloc_key, apportionable, citation)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING ` + itemColumns

	created, err := scanItem(r.db.QueryRowContext(ctx, query,
		li.PropertyID, li.PeriodStart, li.PeriodEnd, li.Category, li.Name,
		li.Amount, string(li.Key), li.Apportionable, li.Citation,
	))
	if err != nil {
		return nil, fmt.Errorf("failed to create cost item: %w", err)
	}

	return created, nil
}

// GetByID retrieves a cost item by its ID
func (r *Repository) GetByID(ctx context.Context, id int64) (*LineItem, error) {
	query := `SELECT ` + itemColumns + ` FROM cost_items WHERE id = $1`

	li, err := scanItem(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get cost item: %w", err)
	}

	return li, nil
}

// ListByProperty retrieves the cost items of a property with pagination,
// newest period first
func (r *Repository) ListByProperty(ctx context.Context, propertyID int64, limit, offset int) ([]*LineItem, int, error) {
	var total int
	countQuery := `SELECT COUNT(*) FROM cost_items WHERE property_id = $1`
	if err := r.db.QueryRowContext(ctx, countQuery, propertyID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count cost items: %w", err)
	}

	query := `SELECT ` + itemColumns + `
		FROM cost_items
		WHERE property_id = $1
		ORDER BY period_start DESC, id
		LIMIT $2 OFFSET $3`

	items, err := r.query(ctx, query, propertyID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

// ListForPeriod retrieves the cost items booked on exactly the given period
func (r *Repository) ListForPeriod(ctx context.Context, propertyID int64, start, end time.Time) ([]*LineItem, error) {
	query := `SELECT ` + itemColumns + `
		FROM cost_items
		WHERE property_id = $1 AND period_start = $2 AND period_end = $3
		ORDER BY id`

	return r.query(ctx, query, propertyID, start, end)
}

func (r *Repository) query(ctx context.Context, query string, args ...any) ([]*LineItem, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list cost items: %w", err)
	}
	defer rows.Close()

	var items []*LineItem
	for rows.Next() {
		li, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan cost item: %w", err)
		}
		items = append(items, li)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate cost items: %w", err)
	}

	return items, nil
}

// Update replaces a cost item's data
func (r *Repository) Update(ctx context.Context, id int64, li *LineItem) (*LineItem, error) {
	query := `
		UPDATE cost_items
		SET period_start = $2, period_end = $3, category = $4, name = $5, amount = $6,
		    alloc_key = $7, apportionable = $8, citation = $9
		WHERE id = $1
		RETURNING ` + itemColumns

	updated, err := scanItem(r.db.QueryRowContext(ctx, query,
		id, li.PeriodStart, li.PeriodEnd, li.Category, li.Name,
		li.Amount, string(li.Key), li.Apportionable, li.Citation,
	))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to update cost item: %w", err)
	}

	return updated, nil
}

// Delete removes a cost item
func (r *Repository) Delete(ctx context.Context, id int64) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM cost_items WHERE id = $1`, id); err != nil {
		return fmt.Errorf("failed to delete cost item: %w", err)
	}
	return nil
}

// UpsertEmissions stores the heating data of a property for one period
func (r *Repository) UpsertEmissions(ctx context.Context, rec *EmissionsRecord) (*EmissionsRecord, error) {
	query := `
		INSERT INTO emissions_data (property_id, period_start, period_end, fuel_type, consumption_kwh, total_fuel_cost, heated_area)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (property_id, period_start, period_end)
		DO UPDATE SET fuel_type = EXCLUDED.fuel_type,
		              consumption_kwh = EXCLUDED.consumption_kwh,
		              total_fuel_cost = EXCLUDED.total_fuel_cost,
		              heated_area = EXCLUDED.heated_area,
		              updated_at = NOW()
		RETURNING updated_at
	`

	out := *rec
	err := r.db.QueryRowContext(ctx, query,
		rec.PropertyID, rec.PeriodStart, rec.PeriodEnd, string(rec.FuelType),
		rec.Consumption, rec.TotalFuelCost, rec.HeatedArea,
	).Scan(&out.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to store emissions data: %w", err)
	}

	return &out, nil
}

// GetEmissions retrieves the heating data of a property for one period
func (r *Repository) GetEmissions(ctx context.Context, propertyID int64, start, end time.Time) (*EmissionsRecord, error) {
	query := `
		SELECT fuel_type, consumption_kwh, total_fuel_cost, heated_area, updated_at
		FROM emissions_data
		WHERE property_id = $1 AND period_start = $2 AND period_end = $3
	`

	rec := &EmissionsRecord{PropertyID: propertyID, PeriodStart: start, PeriodEnd: end}
	err := r.db.QueryRowContext(ctx, query, propertyID, start, end).Scan(
		&rec.FuelType,
		&rec.Consumption,
		&rec.TotalFuelCost,
		&rec.HeatedArea,
		&rec.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get emissions data: %w", err)
	}

	return rec, nil
}
