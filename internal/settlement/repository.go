package settlement

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// Repository handles settlement run persistence.
// Runs are written once and never updated.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a new settlement repository
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// Create stores a run together with its full payload
func (r *Repository) Create(ctx context.Context, run *Run) error {
	payload, err := json.Marshal(run)
	if err != nil {
		return fmt.Errorf("failed to encode settlement run: %w", err)
	}

	query := `
		INSERT INTO settlement_runs (id, landlord_id, property_id, period_start, period_end, rules_version, apportioned_total, payload, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err = r.db.ExecContext(ctx, query,
		run.ID,
		run.LandlordID,
		run.PropertyID,
		run.Period.Start,
		run.Period.End,
		run.RulesVersion,
		run.ApportionedTotal,
		payload,
		run.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create settlement run: %w", err)
	}

	return nil
}

// GetByID retrieves a run by its ID
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*Run, error) {
	query := `SELECT landlord_id, payload FROM settlement_runs WHERE id = $1`

	var (
		landlordID int64
		payload    []byte
	)
	err := r.db.QueryRowContext(ctx, query, id).Scan(&landlordID, &payload)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get settlement run: %w", err)
	}

	run := &Run{}
	if err := json.Unmarshal(payload, run); err != nil {
		return nil, fmt.Errorf("failed to decode settlement run %s: %w", id, err)
	}
	run.LandlordID = landlordID

	return run, nil
}

// ListByProperty retrieves the runs of a property, newest first
func (r *Repository) ListByProperty(ctx context.Context, propertyID int64, limit, offset int) ([]*Run, int, error) {
	var total int
	countQuery := `SELECT COUNT(*) FROM settlement_runs WHERE property_id = $1`
	if err := r.db.QueryRowContext(ctx, countQuery, propertyID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count settlement runs: %w", err)
	}

	query := `
		SELECT landlord_id, payload
		FROM settlement_runs
		WHERE property_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`

	rows, err := r.db.QueryContext(ctx, query, propertyID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list settlement runs: %w", err)
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		var (
			landlordID int64
			payload    []byte
		)
		if err := rows.Scan(&landlordID, &payload); err != nil {
			return nil, 0, fmt.Errorf("failed to scan settlement run: %w", err)
		}
		run := &Run{}
		if err := json.Unmarshal(payload, run); err != nil {
			return nil, 0, fmt.Errorf("failed to decode settlement run: %w", err)
		}
		run.LandlordID = landlordID
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to list settlement runs: %w", err)
	}

	return runs, total, nil
}
