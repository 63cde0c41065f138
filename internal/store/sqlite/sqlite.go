/*
Package sqlite implements core.Store on SQLite for single-node deployments and
for SQL-level tests that need no server.

STORAGE:

	Money is stored as decimal TEXT and summed in Go, so no precision is lost to
	SQLite's floating point. Dates are ISO-8601 TEXT (2006-01-02), which keeps
	range filters as plain string comparisons.

CONCURRENCY:

	The pool is limited to one connection. Transactions therefore serialise, which
	also makes the sequence counters gapless.

USAGE:

	store, err := sqlite.New("./data/ledger.db")
	if err != nil {
		log.Fatal(err)
	}
	defer store.Close()

Use ":memory:" for a throwaway database. The schema is created on New().
*/
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/mattn/go-sqlite3"

	"erp-ledger/internal/core"
)

const (
	dateLayout = "2006-01-02"
	timeLayout = time.RFC3339Nano
)

// dbtx is satisfied by *sql.DB and *sql.Tx.
type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type Store struct {
	db   *sql.DB
	q    dbtx
	inTx bool
}

// New opens (creating if needed) the database at path and migrates the schema.
func New(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path+"?_foreign_keys=on&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	s := &Store{db: db, q: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS accounts (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		tenant_id TEXT NOT NULL,
		code TEXT NOT NULL,
		name TEXT NOT NULL,
		type TEXT NOT NULL,
		is_system INTEGER NOT NULL DEFAULT 0,
		UNIQUE (tenant_id, code)
	);

	CREATE TABLE IF NOT EXISTS document_sequences (
		tenant_id TEXT NOT NULL,
		type_code TEXT NOT NULL,
		year INTEGER NOT NULL,
		last_number INTEGER NOT NULL,
		PRIMARY KEY (tenant_id, type_code, year)
	);

	CREATE TABLE IF NOT EXISTS journal_entries (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		tenant_id TEXT NOT NULL,
		entry_number TEXT NOT NULL,
		entry_date TEXT NOT NULL,
		reference TEXT NOT NULL DEFAULT '',
		description TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL,
		source_key TEXT,
		reversal_of INTEGER REFERENCES journal_entries (id),
		reversed_by INTEGER REFERENCES journal_entries (id),
		created_by TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL,
		UNIQUE (tenant_id, entry_number)
	);

	CREATE UNIQUE INDEX IF NOT EXISTS idx_journal_entries_source_key
		ON journal_entries (tenant_id, source_key) WHERE source_key IS NOT NULL;
	CREATE INDEX IF NOT EXISTS idx_journal_entries_tenant_date
		ON journal_entries (tenant_id, entry_date);

	CREATE TABLE IF NOT EXISTS journal_lines (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		entry_id INTEGER NOT NULL REFERENCES journal_entries (id) ON DELETE CASCADE,
		line_no INTEGER NOT NULL,
		account_id INTEGER NOT NULL REFERENCES accounts (id),
		description TEXT NOT NULL DEFAULT '',
		debit TEXT NOT NULL,
		credit TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_journal_lines_entry ON journal_lines (entry_id);
	CREATE INDEX IF NOT EXISTS idx_journal_lines_account ON journal_lines (account_id);

	CREATE TABLE IF NOT EXISTS tax_invoices (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		tenant_id TEXT NOT NULL,
		invoice_number TEXT NOT NULL,
		invoice_type TEXT NOT NULL,
		status TEXT NOT NULL,
		issue_date TEXT NOT NULL,
		seller_json TEXT NOT NULL,
		buyer_json TEXT NOT NULL,
		items_json TEXT NOT NULL,
		subtotal TEXT NOT NULL,
		vat_amount TEXT NOT NULL,
		total_amount TEXT NOT NULL,
		posting_ref INTEGER REFERENCES journal_entries (id),
		created_by TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL,
		approved_by TEXT NOT NULL DEFAULT '',
		approved_at TEXT,
		posted_at TEXT,
		UNIQUE (tenant_id, invoice_number)
	);

	CREATE INDEX IF NOT EXISTS idx_tax_invoices_tenant_date
		ON tax_invoices (tenant_id, issue_date);
	`
	_, err := s.db.Exec(schema)
	return err
}

// WithTx executes fn within a database transaction. On a transactional store fn
// joins the running transaction.
func (s *Store) WithTx(ctx context.Context, fn func(tx core.Store) error) error {
	if s.inTx {
		return fn(s)
	}

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	if err := fn(&Store{db: s.db, q: sqlTx, inTx: true}); err != nil {
		return err
	}
	if err := sqlTx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// ── Accounts ──────────────────────────────────────────────────────────────────

const accountColumns = "id, tenant_id, code, name, type, is_system"

type scanner interface {
	Scan(dest ...any) error
}

func scanAccount(row scanner) (*core.Account, error) {
	var a core.Account
	var typ string
	if err := row.Scan(&a.ID, &a.TenantID, &a.Code, &a.Name, &typ, &a.IsSystem); err != nil {
		return nil, err
	}
	a.Type = core.AccountType(typ)
	return &a, nil
}

func (s *Store) GetAccountByCode(ctx context.Context, tenantID, code string) (*core.Account, error) {
	a, err := scanAccount(s.q.QueryRowContext(ctx,
		"SELECT "+accountColumns+" FROM accounts WHERE tenant_id = ? AND code = ?", tenantID, code))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, &core.NotFoundError{Kind: "account", ID: code}
		}
		return nil, fmt.Errorf("failed to fetch account %s: %w", code, err)
	}
	return a, nil
}

func (s *Store) GetAccount(ctx context.Context, tenantID string, id int64) (*core.Account, error) {
	a, err := scanAccount(s.q.QueryRowContext(ctx,
		"SELECT "+accountColumns+" FROM accounts WHERE tenant_id = ? AND id = ?", tenantID, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, &core.NotFoundError{Kind: "account", ID: fmt.Sprint(id)}
		}
		return nil, fmt.Errorf("failed to fetch account %d: %w", id, err)
	}
	return a, nil
}

func (s *Store) InsertAccount(ctx context.Context, tenantID string, a *core.Account) error {
	res, err := s.q.ExecContext(ctx,
		"INSERT INTO accounts (tenant_id, code, name, type, is_system) VALUES (?, ?, ?, ?, ?)",
		tenantID, a.Code, a.Name, string(a.Type), a.IsSystem)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("account %s: %w", a.Code, core.ErrDuplicateAccount)
		}
		return fmt.Errorf("failed to insert account %s: %w", a.Code, err)
	}
	if a.ID, err = res.LastInsertId(); err != nil {
		return fmt.Errorf("failed to read account id: %w", err)
	}
	a.TenantID = tenantID
	return nil
}

func (s *Store) ListAccounts(ctx context.Context, tenantID string) ([]core.Account, error) {
	rows, err := s.q.QueryContext(ctx,
		"SELECT "+accountColumns+" FROM accounts WHERE tenant_id = ? ORDER BY code", tenantID)
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
	res, err := s.q.ExecContext(ctx,
		"UPDATE accounts SET code = ?, name = ? WHERE tenant_id = ? AND id = ?",
		a.Code, a.Name, tenantID, a.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("account %s: %w", a.Code, core.ErrDuplicateAccount)
		}
		return fmt.Errorf("failed to update account %d: %w", a.ID, err)
	}
	return requireRow(res, "account", a.ID)
}

func (s *Store) DeleteAccount(ctx context.Context, tenantID string, id int64) error {
	res, err := s.q.ExecContext(ctx, "DELETE FROM accounts WHERE tenant_id = ? AND id = ?", tenantID, id)
	if err != nil {
		return fmt.Errorf("failed to delete account %d: %w", id, err)
	}
	return requireRow(res, "account", id)
}

func (s *Store) AccountReferenced(ctx context.Context, tenantID string, id int64) (bool, error) {
	var used bool
	err := s.q.QueryRowContext(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM journal_lines jl
			JOIN journal_entries je ON je.id = jl.entry_id
			WHERE je.tenant_id = ? AND jl.account_id = ?
		)`, tenantID, id).Scan(&used)
	if err != nil {
		return false, fmt.Errorf("failed to check account usage: %w", err)
	}
	return used, nil
}

// ── Sequences ─────────────────────────────────────────────────────────────────

func (s *Store) NextSequence(ctx context.Context, tenantID, typeCode string, year int) (int64, error) {
	var n int64
	err := s.q.QueryRowContext(ctx, `
		INSERT INTO document_sequences (tenant_id, type_code, year, last_number)
		VALUES (?, ?, ?, 1)
		ON CONFLICT (tenant_id, type_code, year)
		DO UPDATE SET last_number = last_number + 1
		RETURNING last_number`, tenantID, typeCode, year).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to increment %s sequence: %w", typeCode, err)
	}
	return n, nil
}

func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	return errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique
}

func requireRow(res sql.Result, kind string, id int64) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return &core.NotFoundError{Kind: kind, ID: fmt.Sprint(id)}
	}
	return nil
}

func formatDate(t time.Time) string {
	return t.Format(dateLayout)
}

// dateArg maps an open range bound to NULL.
func dateArg(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return formatDate(t)
}

func parseDate(s string) (time.Time, error) {
	return time.ParseInLocation(dateLayout, s, time.UTC)
}

func formatTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC().Format(timeLayout)
}

func parseTime(s sql.NullString) (*time.Time, error) {
	if !s.Valid {
		return nil, nil
	}
	t, err := time.Parse(timeLayout, s.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func nullInt(p *int64) any {
	if p == nil {
		return nil
	}
	return *p
}

func intPtr(n sql.NullInt64) *int64 {
	if !n.Valid {
		return nil
	}
	v := n.Int64
	return &v
}

var _ core.Store = (*Store)(nil)
