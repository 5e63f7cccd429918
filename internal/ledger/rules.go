package ledger

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/tconn93/Day-trader/internal/apperr"
	"github.com/tconn93/Day-trader/internal/domain"
)

// RuleRepository persists an Algorithm's ordered rule chain in the core
// database.
type RuleRepository struct {
	db *sql.DB
}

// NewRuleRepository constructs a RuleRepository against the core database.
func NewRuleRepository(db *sql.DB) *RuleRepository {
	return &RuleRepository{db: db}
}

const ruleColumns = "id, algorithm_id, order_index, rule_type, condition_field, condition_operator, condition_value, action"

func scanRule(row interface{ Scan(...interface{}) error }) (*domain.Rule, error) {
	var r domain.Rule
	if err := row.Scan(&r.ID, &r.AlgorithmID, &r.OrderIndex, &r.RuleType, &r.ConditionField, &r.ConditionOperator, &r.ConditionValue, &r.Action); err != nil {
		return nil, err
	}
	return &r, nil
}

// Create appends a rule to algorithmID at the next order_index (current max
// + 1, or 0 for the first rule).
func (r *RuleRepository) Create(ctx context.Context, algorithmID int64, rule domain.Rule) (*domain.Rule, error) {
	if err := rule.Validate(); err != nil {
		return nil, apperr.Wrap(apperr.CodeValidation, "invalid rule", err)
	}

	var maxIndex sql.NullInt64
	if err := r.db.QueryRowContext(ctx, "SELECT MAX(order_index) FROM algorithm_rules WHERE algorithm_id = ?", algorithmID).Scan(&maxIndex); err != nil {
		return nil, fmt.Errorf("create rule: %w", err)
	}
	nextIndex := 0
	if maxIndex.Valid {
		nextIndex = int(maxIndex.Int64) + 1
	}

	res, err := r.db.ExecContext(ctx,
		`INSERT INTO algorithm_rules (algorithm_id, order_index, rule_type, condition_field, condition_operator, condition_value, action)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		algorithmID, nextIndex, rule.RuleType, rule.ConditionField, rule.ConditionOperator, rule.ConditionValue, rule.Action)
	if err != nil {
		return nil, fmt.Errorf("create rule: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("create rule: %w", err)
	}
	rule.ID = id
	rule.AlgorithmID = algorithmID
	rule.OrderIndex = nextIndex
	return &rule, nil
}

// Update replaces the condition/action fields of an existing rule.
// order_index is not changed; reordering is not exposed by the spec.
func (r *RuleRepository) Update(ctx context.Context, algorithmID, ruleID int64, rule domain.Rule) error {
	if err := rule.Validate(); err != nil {
		return apperr.Wrap(apperr.CodeValidation, "invalid rule", err)
	}
	res, err := r.db.ExecContext(ctx,
		`UPDATE algorithm_rules SET rule_type = ?, condition_field = ?, condition_operator = ?, condition_value = ?, action = ?
		 WHERE id = ? AND algorithm_id = ?`,
		rule.RuleType, rule.ConditionField, rule.ConditionOperator, rule.ConditionValue, rule.Action, ruleID, algorithmID)
	if err != nil {
		return fmt.Errorf("update rule: %w", err)
	}
	return requireRowsAffected(res)
}

// Delete removes a single rule from algorithmID.
func (r *RuleRepository) Delete(ctx context.Context, algorithmID, ruleID int64) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM algorithm_rules WHERE id = ? AND algorithm_id = ?", ruleID, algorithmID)
	if err != nil {
		return fmt.Errorf("delete rule: %w", err)
	}
	return requireRowsAffected(res)
}

// ListByAlgorithmOrdered returns every rule belonging to algorithmID in
// order_index ascending order — the order the rule engine evaluates them in.
func (r *RuleRepository) ListByAlgorithmOrdered(ctx context.Context, algorithmID int64) ([]domain.Rule, error) {
	rows, err := r.db.QueryContext(ctx,
		fmt.Sprintf("SELECT %s FROM algorithm_rules WHERE algorithm_id = ? ORDER BY order_index ASC", ruleColumns),
		algorithmID)
	if err != nil {
		return nil, fmt.Errorf("list rules: %w", err)
	}
	defer rows.Close()

	var out []domain.Rule
	for rows.Next() {
		rule, err := scanRule(rows)
		if err != nil {
			return nil, fmt.Errorf("scan rule: %w", err)
		}
		out = append(out, *rule)
	}
	return out, rows.Err()
}
