package reports

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository materializes per-account aggregates for the report builders.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// AccountActivity sums validated postings per account in a single pass:
// movement strictly before start feeds the opening columns, movement within
// [start, end] feeds the period columns. Draft entries never count.
func (r *Repository) AccountActivity(ctx context.Context, start, end time.Time) ([]AccountActivity, error) {
	rows, err := r.pool.Query(ctx, `SELECT a.numero, a.libelle,
  COALESCE(SUM(l.debit)  FILTER (WHERE e.date < $1), 0)                   AS opening_debit,
  COALESCE(SUM(l.credit) FILTER (WHERE e.date < $1), 0)                   AS opening_credit,
  COALESCE(SUM(l.debit)  FILTER (WHERE e.date >= $1 AND e.date <= $2), 0) AS period_debit,
  COALESCE(SUM(l.credit) FILTER (WHERE e.date >= $1 AND e.date <= $2), 0) AS period_credit
FROM accounts a
LEFT JOIN ledger_lines l ON l.account_numero = a.numero
LEFT JOIN ledger_entries e ON e.id = l.entry_id AND e.status = 'VALIDATED' AND e.date <= $2
GROUP BY a.numero, a.libelle
ORDER BY a.numero ASC`, start, end)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var activity []AccountActivity
	for rows.Next() {
		var acc AccountActivity
		if err := rows.Scan(&acc.Numero, &acc.Libelle,
			&acc.OpeningDebit, &acc.OpeningCredit,
			&acc.PeriodDebit, &acc.PeriodCredit); err != nil {
			return nil, err
		}
		activity = append(activity, acc)
	}
	return activity, rows.Err()
}

// SaveTrialBalanceSnapshot stores a materialized trial balance, replacing
// any previous snapshot for the same range.
func (r *Repository) SaveTrialBalanceSnapshot(ctx context.Context, tb TrialBalance) error {
	payload, err := json.Marshal(tb)
	if err != nil {
		return err
	}
	_, err = r.pool.Exec(ctx, `INSERT INTO trial_balance_snapshots (start_date, end_date, payload, created_at)
VALUES ($1, $2, $3, NOW())
ON CONFLICT (start_date, end_date) DO UPDATE SET payload = EXCLUDED.payload, created_at = NOW()`,
		tb.StartDate, tb.EndDate, payload)
	return err
}
