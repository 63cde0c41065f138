// Package postgres implements core.Store on PostgreSQL through pgx.
//
// Rows are mapped to core types explicitly at this boundary; the core types carry
// no knowledge of column names. Run migrations.Apply before use.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"erp-ledger/internal/core"
)

const uniqueViolation = "23505"

// dbtx is satisfied by *pgxpool.Pool and pgx.Tx.
type dbtx interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type Store struct {
	pool *pgxpool.Pool
	db   dbtx
	// inTx is true for the store handed to a WithTx callback.
	inTx bool
}

func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool, db: pool}
}

// WithTx begins a transaction, runs fn and commits if fn returns nil.
// On a transactional store fn joins the running transaction.
func (s *Store) WithTx(ctx context.Context, fn func(tx core.Store) error) error {
	if s.inTx {
		return fn(s)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := fn(&Store{pool: s.pool, db: tx, inTx: true}); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// ── Accounts ──────────────────────────────────────────────────────────────────

const accountColumns = "id, tenant_id, code, name, type, is_system"

func scanAccount(row pgx.Row) (*core.Account, error) {
	var a core.Account
	var typ string
	if err := row.Scan(&a.ID, &a.TenantID, &a.Code, &a.Name, &typ, &a.IsSystem); err != nil {
		return nil, err
	}
	a.Type = core.AccountType(typ)
	return &a, nil
}

func (s *Store) GetAccountByCode(ctx context.Context, tenantID, code string) (*core.Account, error) {
	a, err := scanAccount(s.db.QueryRow(ctx,
		"SELECT "+accountColumns+" FROM accounts WHERE tenant_id = $1 AND code = $2", tenantID, code))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &core.NotFoundError{Kind: "account", ID: code}
		}
		return nil, fmt.Errorf("failed to fetch account %s: %w", code, err)
	}
	return a, nil
}

func (s *Store) GetAccount(ctx context.Context, tenantID string, id int64) (*core.Account, error) {
	a, err := scanAccount(s.db.QueryRow(ctx,
		"SELECT "+accountColumns+" FROM accounts WHERE tenant_id = $1 AND id = $2", tenantID, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &core.NotFoundError{Kind: "account", ID: fmt.Sprint(id)}
		}
		return nil, fmt.Errorf("failed to fetch account %d: %w", id, err)
	}
	return a, nil
}

func (s *Store) InsertAccount(ctx context.Context, tenantID string, a *core.Account) error {
	err := s.db.QueryRow(ctx, `
		INSERT INTO accounts (tenant_id, code, name, type, is_system)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`, tenantID, a.Code, a.Name, string(a.Type), a.IsSystem).Scan(&a.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("account %s: %w", a.Code, core.ErrDuplicateAccount)
		}
		return fmt.Errorf("failed to insert account %s: %w", a.Code, err)
	}
	a.TenantID = tenantID
	return nil
}

func (s *Store) ListAccounts(ctx context.Context, tenantID string) ([]core.Account, error) {
	rows, err := s.db.Query(ctx,
		"SELECT "+accountColumns+" FROM accounts WHERE tenant_id = $1 ORDER BY code", tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}
	defer rows.Close()

	var out []core.Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan account: %w", err)
		}
		out = append(out, *a)
	}
	return out, rows.Err()
}

func (s *Store) UpdateAccount(ctx context.Context, tenantID string, a *core.Account) error {
	tag, err := s.db.Exec(ctx,
		"UPDATE accounts SET code = $3, name = $4 WHERE tenant_id = $1 AND id = $2",
		tenantID, a.ID, a.Code, a.Name)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("account %s: %w", a.Code, core.ErrDuplicateAccount)
		}
		return fmt.Errorf("failed to update account %d: %w", a.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return &core.NotFoundError{Kind: "account", ID: fmt.Sprint(a.ID)}
	}
	return nil
}

func (s *Store) DeleteAccount(ctx context.Context, tenantID string, id int64) error {
	tag, err := s.db.Exec(ctx, "DELETE FROM accounts WHERE tenant_id = $1 AND id = $2", tenantID, id)
	if err != nil {
		return fmt.Errorf("failed to delete account %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return &core.NotFoundError{Kind: "account", ID: fmt.Sprint(id)}
	}
	return nil
}

func (s *Store) AccountReferenced(ctx context.Context, tenantID string, id int64) (bool, error) {
	var used bool
	err := s.db.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM journal_lines jl
			JOIN journal_entries je ON je.id = jl.entry_id
			WHERE je.tenant_id = $1 AND jl.account_id = $2
		)
	`, tenantID, id).Scan(&used)
	if err != nil {
		return false, fmt.Errorf("failed to check account usage: %w", err)
	}
	return used, nil
}

// ── Sequences ─────────────────────────────────────────────────────────────────

// NextSequence increments the counter row, creating it on first use. The row stays
// locked until the surrounding transaction ends, so numbers are gapless.
func (s *Store) NextSequence(ctx context.Context, tenantID, typeCode string, year int) (int64, error) {
	var n int64
	err := s.db.QueryRow(ctx, `
		INSERT INTO document_sequences (tenant_id, type_code, year, last_number)
		VALUES ($1, $2, $3, 1)
		ON CONFLICT (tenant_id, type_code, year)
		DO UPDATE SET last_number = document_sequences.last_number + 1
		RETURNING last_number
	`, tenantID, typeCode, year).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to increment %s sequence: %w", typeCode, err)
	}
	return n, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

// dateArg maps an open range bound to NULL.
func dateArg(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t
}

var _ core.Store = (*Store)(nil)
