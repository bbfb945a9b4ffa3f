package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tikhomirovv/tg-moderator-ai/internal/domain/model"
)

type RuleRepo struct {
	pool *pgxpool.Pool
}

func NewRuleRepo(pool *pgxpool.Pool) *RuleRepo {
	return &RuleRepo{pool: pool}
}

// FindActiveByIDs resolves a chat's configured rule ids to active rules.
// Unknown or inactive ids are simply absent from the result; a chat
// configured with stale ids degrades to a smaller (possibly empty) rule set.
func (r *RuleRepo) FindActiveByIDs(ctx context.Context, ids []string) ([]model.Rule, error) {
	if r.pool == nil {
		return nil, fmt.Errorf("postgres pool is nil")
	}
	if len(ids) == 0 {
		return nil, nil
	}

	rows, err := r.pool.Query(ctx, `
SELECT id, name, description, ai_prompt, severity, is_active, created_at, updated_at
FROM rules
WHERE id = ANY($1) AND is_active = TRUE
ORDER BY id
`, ids)
	if err != nil {
		return nil, fmt.Errorf("find rules by ids: %w", err)
	}
	defer rows.Close()

	return scanRules(rows)
}

func (r *RuleRepo) FindAllActive(ctx context.Context) ([]model.Rule, error) {
	if r.pool == nil {
		return nil, fmt.Errorf("postgres pool is nil")
	}

	rows, err := r.pool.Query(ctx, `
SELECT id, name, description, ai_prompt, severity, is_active, created_at, updated_at
FROM rules
WHERE is_active = TRUE
ORDER BY id
`)
	if err != nil {
		return nil, fmt.Errorf("find active rules: %w", err)
	}
	defer rows.Close()

	return scanRules(rows)
}

func scanRules(rows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}) ([]model.Rule, error) {
	var rules []model.Rule
	for rows.Next() {
		var rule model.Rule
		if err := rows.Scan(
			&rule.ID,
			&rule.Name,
			&rule.Description,
			&rule.AIPrompt,
			&rule.Severity,
			&rule.IsActive,
			&rule.CreatedAt,
			&rule.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan rule row: %w", err)
		}
		rules = append(rules, rule)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rule rows: %w", err)
	}

	return rules, nil
}
