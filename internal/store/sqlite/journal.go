package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"erp-ledger/internal/core"
)

const entryColumns = `id, tenant_id, entry_number, entry_date, reference, description, status,
	COALESCE(source_key, ''), reversal_of, reversed_by, created_by, created_at`

const balanceAffecting = `(je.status = 'POSTED' OR (je.status = 'VOIDED' AND je.reversed_by IS NOT NULL))`

func scanEntry(row scanner) (*core.JournalEntry, error) {
	var (
		e                      core.JournalEntry
		status, date, created  string
		reversalOf, reversedBy sql.NullInt64
	)
	err := row.Scan(&e.ID, &e.TenantID, &e.EntryNumber, &date, &e.Reference, &e.Description, &status,
		&e.SourceKey, &reversalOf, &reversedBy, &e.CreatedBy, &created)
	if err != nil {
		return nil, err
	}
	if e.Date, err = parseDate(date); err != nil {
		return nil, fmt.Errorf("bad entry date %q: %w", date, err)
	}
	if e.CreatedAt, err = time.Parse(timeLayout, created); err != nil {
		return nil, fmt.Errorf("bad created_at %q: %w", created, err)
	}
	e.Status = core.EntryStatus(status)
	e.ReversalOf = intPtr(reversalOf)
	e.ReversedBy = intPtr(reversedBy)
	return &e, nil
}

// InsertEntry writes the header and all lines in one transaction. A source key
// already used by the tenant yields *core.DuplicateEntryError and writes nothing.
func (s *Store) InsertEntry(ctx context.Context, tenantID string, e *core.JournalEntry) error {
	return s.WithTx(ctx, func(txs core.Store) error {
		tx := txs.(*Store)

		if e.SourceKey != "" {
			var existing int64
			err := tx.q.QueryRowContext(ctx,
				"SELECT id FROM journal_entries WHERE tenant_id = ? AND source_key = ?",
				tenantID, e.SourceKey).Scan(&existing)
			if err == nil {
				return &core.DuplicateEntryError{SourceKey: e.SourceKey, ExistingID: existing}
			}
			if !errors.Is(err, sql.ErrNoRows) {
				return fmt.Errorf("failed to check source %s: %w", e.SourceKey, err)
			}
		}

		res, err := tx.q.ExecContext(ctx, `
			INSERT INTO journal_entries
				(tenant_id, entry_number, entry_date, reference, description, status,
				 source_key, reversal_of, created_by, created_at)
			VALUES (?, ?, ?, ?, ?, ?, NULLIF(?, ''), ?, ?, ?)`,
			tenantID, e.EntryNumber, formatDate(e.Date), e.Reference, e.Description, string(e.Status),
			e.SourceKey, nullInt(e.ReversalOf), e.CreatedBy, e.CreatedAt.UTC().Format(timeLayout))
		if err != nil {
			if isUniqueViolation(err) && e.SourceKey != "" {
				return &core.DuplicateEntryError{SourceKey: e.SourceKey}
			}
			return fmt.Errorf("failed to insert journal entry: %w", err)
		}
		if e.ID, err = res.LastInsertId(); err != nil {
			return fmt.Errorf("failed to read journal entry id: %w", err)
		}
		e.TenantID = tenantID

		for i := range e.Lines {
			l := &e.Lines[i]
			res, err := tx.q.ExecContext(ctx, `
				INSERT INTO journal_lines (entry_id, line_no, account_id, description, debit, credit)
				VALUES (?, ?, ?, ?, ?, ?)`,
				e.ID, i+1, l.AccountID, l.Description, l.Debit.String(), l.Credit.String())
			if err != nil {
				return fmt.Errorf("failed to insert journal line %d: %w", i+1, err)
			}
			if l.ID, err = res.LastInsertId(); err != nil {
				return fmt.Errorf("failed to read journal line id: %w", err)
			}
			l.JournalID = e.ID
		}
		return nil
	})
}

func (s *Store) GetEntry(ctx context.Context, tenantID string, id int64) (*core.JournalEntry, error) {
	e, err := scanEntry(s.q.QueryRowContext(ctx,
		"SELECT "+entryColumns+" FROM journal_entries WHERE tenant_id = ? AND id = ?", tenantID, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, &core.NotFoundError{Kind: "journal entry", ID: fmt.Sprint(id)}
		}
		return nil, fmt.Errorf("failed to fetch journal entry %d: %w", id, err)
	}

	lines, err := s.loadLines(ctx, []int64{e.ID})
	if err != nil {
		return nil, err
	}
	e.Lines = lines[e.ID]
	return e, nil
}

func (s *Store) ListEntries(ctx context.Context, tenantID string, f core.EntryFilter) ([]core.JournalEntry, error) {
	rows, err := s.q.QueryContext(ctx, `
		SELECT `+entryColumns+`
		FROM journal_entries
		WHERE tenant_id = ?
		  AND (? IS NULL OR entry_date >= ?)
		  AND (? IS NULL OR entry_date <= ?)
		  AND (? = '' OR status = ?)
		ORDER BY id`,
		tenantID, dateArg(f.Range.From), dateArg(f.Range.From), dateArg(f.Range.To), dateArg(f.Range.To),
		string(f.Status), string(f.Status))
	if err != nil {
		return nil, fmt.Errorf("failed to list journal entries: %w", err)
	}

	var out []core.JournalEntry
	var ids []int64
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan journal entry: %w", err)
		}
		out = append(out, *e)
		ids = append(ids, e.ID)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return out, nil
	}

	lines, err := s.loadLines(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range out {
		out[i].Lines = lines[out[i].ID]
	}
	return out, nil
}

func (s *Store) loadLines(ctx context.Context, entryIDs []int64) (map[int64][]core.JournalLine, error) {
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(entryIDs)), ",")
	args := make([]any, len(entryIDs))
	for i, id := range entryIDs {
		args[i] = id
	}

	rows, err := s.q.QueryContext(ctx, `
		SELECT id, entry_id, account_id, description, debit, credit
		FROM journal_lines
		WHERE entry_id IN (`+placeholders+`)
		ORDER BY entry_id, line_no`, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to load journal lines: %w", err)
	}
	defer rows.Close()

	out := make(map[int64][]core.JournalLine, len(entryIDs))
	for rows.Next() {
		var l core.JournalLine
		if err := rows.Scan(&l.ID, &l.JournalID, &l.AccountID, &l.Description, &l.Debit, &l.Credit); err != nil {
			return nil, fmt.Errorf("failed to scan journal line: %w", err)
		}
		out[l.JournalID] = append(out[l.JournalID], l)
	}
	return out, rows.Err()
}

func (s *Store) UpdateEntryStatus(ctx context.Context, tenantID string, id int64, status core.EntryStatus, reversedBy *int64) error {
	res, err := s.q.ExecContext(ctx, `
		UPDATE journal_entries
		SET status = ?, reversed_by = COALESCE(?, reversed_by)
		WHERE tenant_id = ? AND id = ?`,
		string(status), nullInt(reversedBy), tenantID, id)
	if err != nil {
		return fmt.Errorf("failed to update journal entry %d: %w", id, err)
	}
	return requireRow(res, "journal entry", id)
}

func (s *Store) DeleteEntry(ctx context.Context, tenantID string, id int64) error {
	res, err := s.q.ExecContext(ctx,
		"DELETE FROM journal_entries WHERE tenant_id = ? AND id = ? AND status = 'DRAFT'", tenantID, id)
	if err != nil {
		return fmt.Errorf("failed to delete journal entry %d: %w", id, err)
	}
	return requireRow(res, "draft journal entry", id)
}

// SumLedgerLines filters in SQL and sums in Go; the amounts are decimal text.
func (s *Store) SumLedgerLines(ctx context.Context, tenantID string, r core.DateRange) ([]core.AccountTotals, error) {
	rows, err := s.q.QueryContext(ctx, `
		SELECT jl.account_id, jl.debit, jl.credit
		FROM journal_lines jl
		JOIN journal_entries je ON je.id = jl.entry_id
		WHERE je.tenant_id = ?
		  AND `+balanceAffecting+`
		  AND (? IS NULL OR je.entry_date >= ?)
		  AND (? IS NULL OR je.entry_date <= ?)`,
		tenantID, dateArg(r.From), dateArg(r.From), dateArg(r.To), dateArg(r.To))
	if err != nil {
		return nil, fmt.Errorf("failed to sum ledger lines: %w", err)
	}
	defer rows.Close()

	sums := make(map[int64]*core.AccountTotals)
	for rows.Next() {
		var (
			accountID     int64
			debit, credit decimal.Decimal
		)
		if err := rows.Scan(&accountID, &debit, &credit); err != nil {
			return nil, fmt.Errorf("failed to scan ledger line: %w", err)
		}
		t, ok := sums[accountID]
		if !ok {
			t = &core.AccountTotals{AccountID: accountID}
			sums[accountID] = t
		}
		t.TotalDebit = t.TotalDebit.Add(debit)
		t.TotalCredit = t.TotalCredit.Add(credit)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	out := make([]core.AccountTotals, 0, len(sums))
	for _, t := range sums {
		out = append(out, *t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AccountID < out[j].AccountID })
	return out, nil
}
