package accounts

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository persists chart of accounts entries.
type Repository interface {
	List(ctx context.Context, activeOnly bool) ([]Account, error)
	GetByNumero(ctx context.Context, numero string) (Account, error)
	Insert(ctx context.Context, a Account) (Account, error)
	Update(ctx context.Context, a Account) (Account, error)
	IsReferenced(ctx context.Context, numero string) (bool, error)
}

type repository struct {
	db *pgxpool.Pool
}

// NewRepository constructs a Repository backed by pgx.
func NewRepository(db *pgxpool.Pool) Repository {
	return &repository{db: db}
}

const accountColumns = `id, numero, libelle, classe, normal_side, category, is_active, created_at, updated_at`

func scanAccount(row pgx.Row) (Account, error) {
	var a Account
	err := row.Scan(&a.ID, &a.Numero, &a.Libelle, &a.Classe, &a.NormalSide, &a.Category, &a.IsActive, &a.CreatedAt, &a.UpdatedAt)
	return a, err
}

func (r *repository) List(ctx context.Context, activeOnly bool) ([]Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts ORDER BY numero`
	if activeOnly {
		query = `SELECT ` + accountColumns + ` FROM accounts WHERE is_active ORDER BY numero`
	}
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var accounts []Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, a)
	}
	return accounts, rows.Err()
}

func (r *repository) GetByNumero(ctx context.Context, numero string) (Account, error) {
	a, err := scanAccount(r.db.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE numero = $1`, numero))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Account{}, ErrAccountNotFound
		}
		return Account{}, err
	}
	return a, nil
}

func (r *repository) Insert(ctx context.Context, a Account) (Account, error) {
	row := r.db.QueryRow(ctx, `INSERT INTO accounts (numero, libelle, classe, normal_side, category, is_active)
VALUES ($1,$2,$3,$4,$5,$6) RETURNING id, created_at, updated_at`,
		a.Numero, a.Libelle, a.Classe, a.NormalSide, a.Category, a.IsActive)
	if err := row.Scan(&a.ID, &a.CreatedAt, &a.UpdatedAt); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return Account{}, ErrNumeroTaken
		}
		return Account{}, err
	}
	return a, nil
}

func (r *repository) Update(ctx context.Context, a Account) (Account, error) {
	row := r.db.QueryRow(ctx, `UPDATE accounts SET numero=$2, libelle=$3, classe=$4, normal_side=$5, category=$6, is_active=$7, updated_at=NOW()
WHERE id=$1 RETURNING `+accountColumns, a.ID, a.Numero, a.Libelle, a.Classe, a.NormalSide, a.Category, a.IsActive)
	updated, err := scanAccount(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Account{}, ErrAccountNotFound
		}
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return Account{}, ErrNumeroTaken
		}
		return Account{}, err
	}
	return updated, nil
}

func (r *repository) IsReferenced(ctx context.Context, numero string) (bool, error) {
	var referenced bool
	err := r.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM ledger_lines WHERE account_numero = $1)`, numero).Scan(&referenced)
	return referenced, err
}
