package policy

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/claimflow/internal/claim"
)

// PGLedger reads policies from the carrier's Postgres policy store. The core
// only ever queries; writes belong to the policy administration system.
type PGLedger struct {
	pool *pgxpool.Pool
}

// NewPGLedger wraps an existing connection pool.
func NewPGLedger(pool *pgxpool.Pool) *PGLedger {
	return &PGLedger{pool: pool}
}

// GetPolicy looks a policy up by ID or policy number.
func (l *PGLedger) GetPolicy(ctx context.Context, id string) (*Policy, error) {
	row := l.pool.QueryRow(ctx, `
		SELECT policy_id, policy_number, product_type, holder_name,
		       effective_date, expiration_date,
		       deductible, coverage_limit, total_loss_threshold
		FROM policies
		WHERE policy_id::text = $1 OR policy_number = $1`, id)

	var (
		p          Policy
		product    string
		deductible *decimal.Decimal
		limit      *decimal.Decimal
		threshold  *decimal.Decimal
		from, to   time.Time
	)
	err := row.Scan(&p.ID, &p.Number, &product, &p.HolderName,
		&from, &to, &deductible, &limit, &threshold)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query policy %s: %w", id, err)
	}
	p.Product = claim.ProductLine(product)
	p.EffectiveFrom = from
	p.EffectiveTo = to
	p.Deductible = deductible
	p.CoverageLimit = limit
	p.TotalLossThreshold = threshold

	if err := l.loadExclusions(ctx, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (l *PGLedger) loadExclusions(ctx context.Context, p *Policy) error {
	rows, err := l.pool.Query(ctx, `
		SELECT rule_id, loss_types, keyword, amount, percent
		FROM policy_exclusions
		WHERE policy_id::text = $1
		ORDER BY rule_order`, p.ID)
	if err != nil {
		return fmt.Errorf("query exclusions for policy %s: %w", p.ID, err)
	}
	defer rows.Close()

	for rows.Next() {
		var r ExclusionRule
		if err := rows.Scan(&r.ID, &r.LossTypes, &r.Keyword, &r.Amount, &r.Percent); err != nil {
			return fmt.Errorf("scan exclusion rule: %w", err)
		}
		p.Exclusions = append(p.Exclusions, r)
	}
	return rows.Err()
}
