package ledger

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/tconn93/Day-trader/internal/apperr"
	"github.com/tconn93/Day-trader/internal/domain"
)

// AlgorithmRepository persists user-owned algorithms in the core database.
type AlgorithmRepository struct {
	db *sql.DB
}

// NewAlgorithmRepository constructs an AlgorithmRepository against the
// core database.
func NewAlgorithmRepository(db *sql.DB) *AlgorithmRepository {
	return &AlgorithmRepository{db: db}
}

const algorithmColumns = "id, user_id, name, description, is_active, created_at, updated_at"

func scanAlgorithm(row interface{ Scan(...interface{}) error }) (*domain.Algorithm, error) {
	var a domain.Algorithm
	var isActive int
	var createdAt, updatedAt string
	if err := row.Scan(&a.ID, &a.UserID, &a.Name, &a.Description, &isActive, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	a.IsActive = isActive != 0
	a.CreatedAt = parseTimestamp(createdAt)
	a.UpdatedAt = parseTimestamp(updatedAt)
	return &a, nil
}

// Create inserts a new algorithm owned by userID.
func (r *AlgorithmRepository) Create(ctx context.Context, userID int64, name, description string) (*domain.Algorithm, error) {
	res, err := r.db.ExecContext(ctx,
		"INSERT INTO trading_algorithms (user_id, name, description) VALUES (?, ?, ?)",
		userID, name, description)
	if err != nil {
		return nil, fmt.Errorf("create algorithm: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("create algorithm: %w", err)
	}
	return r.GetByID(ctx, userID, id)
}

// GetByID returns the algorithm with the given id, scoped to userID, or
// apperr.ErrNotFound if it does not exist or is owned by someone else.
func (r *AlgorithmRepository) GetByID(ctx context.Context, userID, id int64) (*domain.Algorithm, error) {
	row := r.db.QueryRowContext(ctx,
		fmt.Sprintf("SELECT %s FROM trading_algorithms WHERE id = ? AND user_id = ?", algorithmColumns),
		id, userID)
	a, err := scanAlgorithm(row)
	if err == sql.ErrNoRows {
		return nil, apperr.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get algorithm: %w", err)
	}
	return a, nil
}

// ListByUser returns all algorithms owned by userID.
func (r *AlgorithmRepository) ListByUser(ctx context.Context, userID int64) ([]domain.Algorithm, error) {
	rows, err := r.db.QueryContext(ctx,
		fmt.Sprintf("SELECT %s FROM trading_algorithms WHERE user_id = ? ORDER BY created_at DESC", algorithmColumns),
		userID)
	if err != nil {
		return nil, fmt.Errorf("list algorithms: %w", err)
	}
	defer rows.Close()

	var out []domain.Algorithm
	for rows.Next() {
		a, err := scanAlgorithm(rows)
		if err != nil {
			return nil, fmt.Errorf("scan algorithm: %w", err)
		}
		out = append(out, *a)
	}
	return out, rows.Err()
}

// Update modifies name/description for an algorithm owned by userID.
func (r *AlgorithmRepository) Update(ctx context.Context, userID, id int64, name, description string) error {
	res, err := r.db.ExecContext(ctx,
		"UPDATE trading_algorithms SET name = ?, description = ?, updated_at = datetime('now') WHERE id = ? AND user_id = ?",
		name, description, id, userID)
	if err != nil {
		return fmt.Errorf("update algorithm: %w", err)
	}
	return requireRowsAffected(res)
}

// Delete removes an algorithm owned by userID; algorithm_rules cascade.
func (r *AlgorithmRepository) Delete(ctx context.Context, userID, id int64) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM trading_algorithms WHERE id = ? AND user_id = ?", id, userID)
	if err != nil {
		return fmt.Errorf("delete algorithm: %w", err)
	}
	return requireRowsAffected(res)
}

// Toggle flips is_active for an algorithm owned by userID and returns the
// new state.
func (r *AlgorithmRepository) Toggle(ctx context.Context, userID, id int64) (bool, error) {
	algo, err := r.GetByID(ctx, userID, id)
	if err != nil {
		return false, err
	}
	newState := !algo.IsActive
	_, err = r.db.ExecContext(ctx,
		"UPDATE trading_algorithms SET is_active = ?, updated_at = datetime('now') WHERE id = ?",
		boolToInt(newState), id)
	if err != nil {
		return false, fmt.Errorf("toggle algorithm: %w", err)
	}
	return newState, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func requireRowsAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return apperr.ErrNotFound
	}
	return nil
}
