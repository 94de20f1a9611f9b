package jobs

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
)

// RunGLIntegrityCheck verifies two invariants over validated entries: every
// entry's stored totals match its lines, and the ledger-wide debit and
// credit sums agree. Violations are logged and reported as an error so the
// job shows up failed.
func RunGLIntegrityCheck(ctx context.Context, pool *pgxpool.Pool, logger *slog.Logger) error {
	if pool == nil {
		return nil
	}
	rows, err := pool.Query(ctx, `SELECT e.id, e.piece_number
FROM ledger_entries e
JOIN ledger_lines l ON l.entry_id = e.id
WHERE e.status = 'VALIDATED'
GROUP BY e.id, e.piece_number
HAVING ABS(SUM(l.debit) - SUM(l.credit)) >= 0.01
   OR ABS(SUM(l.debit) - e.total_debit) >= 0.01
   OR ABS(SUM(l.credit) - e.total_credit) >= 0.01`)
	if err != nil {
		return err
	}
	defer rows.Close()
	var broken []string
	for rows.Next() {
		var id int64
		var piece string
		if err := rows.Scan(&id, &piece); err != nil {
			return err
		}
		broken = append(broken, piece)
	}
	if err := rows.Err(); err != nil {
		return err
	}

	var totalDebit, totalCredit float64
	err = pool.QueryRow(ctx, `SELECT COALESCE(SUM(l.debit), 0), COALESCE(SUM(l.credit), 0)
FROM ledger_lines l
JOIN ledger_entries e ON e.id = l.entry_id
WHERE e.status = 'VALIDATED'`).Scan(&totalDebit, &totalCredit)
	if err != nil {
		return err
	}

	if len(broken) > 0 || totalDebit-totalCredit >= 0.01 || totalCredit-totalDebit >= 0.01 {
		if logger != nil {
			logger.Error("ledger integrity violated",
				slog.Int("unbalanced_entries", len(broken)),
				slog.Float64("total_debit", totalDebit),
				slog.Float64("total_credit", totalCredit))
		}
		return fmt.Errorf("jobs: ledger integrity violated, %d unbalanced entries", len(broken))
	}
	if logger != nil {
		logger.Info("ledger integrity verified",
			slog.Float64("total_debit", totalDebit),
			slog.String("job", "gl_integrity"))
	}
	return nil
}
