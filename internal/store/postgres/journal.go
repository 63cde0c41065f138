package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"erp-ledger/internal/core"
)

const entryColumns = `id, tenant_id, entry_number, entry_date, reference, description, status,
	COALESCE(source_key, ''), reversal_of, reversed_by, created_by, created_at`

// balanceAffecting selects posted entries and voided originals that have a reversal.
const balanceAffecting = `(je.status = 'POSTED' OR (je.status = 'VOIDED' AND je.reversed_by IS NOT NULL))`

func scanEntry(row pgx.Row) (*core.JournalEntry, error) {
	var e core.JournalEntry
	var status string
	err := row.Scan(&e.ID, &e.TenantID, &e.EntryNumber, &e.Date, &e.Reference, &e.Description, &status,
		&e.SourceKey, &e.ReversalOf, &e.ReversedBy, &e.CreatedBy, &e.CreatedAt)
	if err != nil {
		return nil, err
	}
	e.Status = core.EntryStatus(status)
	return &e, nil
}

// InsertEntry writes the header and all lines in one transaction. A source key
// already used by the tenant yields *core.DuplicateEntryError and writes nothing.
func (s *Store) InsertEntry(ctx context.Context, tenantID string, e *core.JournalEntry) error {
	return s.WithTx(ctx, func(txs core.Store) error {
		tx := txs.(*Store)

		err := tx.db.QueryRow(ctx, `
			INSERT INTO journal_entries
				(tenant_id, entry_number, entry_date, reference, description, status,
				 source_key, reversal_of, created_by, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, NULLIF($7, ''), $8, $9, $10)
			ON CONFLICT (tenant_id, source_key) WHERE source_key IS NOT NULL DO NOTHING
			RETURNING id
		`, tenantID, e.EntryNumber, e.Date, e.Reference, e.Description, string(e.Status),
			e.SourceKey, e.ReversalOf, e.CreatedBy, e.CreatedAt).Scan(&e.ID)
		if errors.Is(err, pgx.ErrNoRows) {
			var existing int64
			if err := tx.db.QueryRow(ctx,
				"SELECT id FROM journal_entries WHERE tenant_id = $1 AND source_key = $2",
				tenantID, e.SourceKey).Scan(&existing); err != nil {
				return fmt.Errorf("failed to find entry for source %s: %w", e.SourceKey, err)
			}
			return &core.DuplicateEntryError{SourceKey: e.SourceKey, ExistingID: existing}
		}
		if err != nil {
			return fmt.Errorf("failed to insert journal entry: %w", err)
		}
		e.TenantID = tenantID

		for i := range e.Lines {
			l := &e.Lines[i]
			err := tx.db.QueryRow(ctx, `
				INSERT INTO journal_lines (entry_id, line_no, account_id, description, debit, credit)
				VALUES ($1, $2, $3, $4, $5, $6)
				RETURNING id
			`, e.ID, i+1, l.AccountID, l.Description, l.Debit, l.Credit).Scan(&l.ID)
			if err != nil {
				return fmt.Errorf("failed to insert journal line %d: %w", i+1, err)
			}
			l.JournalID = e.ID
		}
		return nil
	})
}

func (s *Store) GetEntry(ctx context.Context, tenantID string, id int64) (*core.JournalEntry, error) {
	e, err := scanEntry(s.db.QueryRow(ctx,
		"SELECT "+entryColumns+" FROM journal_entries WHERE tenant_id = $1 AND id = $2", tenantID, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
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
	rows, err := s.db.Query(ctx, `
		SELECT `+entryColumns+`
		FROM journal_entries
		WHERE tenant_id = $1
		  AND ($2::date IS NULL OR entry_date >= $2)
		  AND ($3::date IS NULL OR entry_date <= $3)
		  AND ($4 = '' OR status = $4)
		ORDER BY id
	`, tenantID, dateArg(f.Range.From), dateArg(f.Range.To), string(f.Status))
	if err != nil {
		return nil, fmt.Errorf("failed to list journal entries: %w", err)
	}
	defer rows.Close()

	var out []core.JournalEntry
	var ids []int64
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan journal entry: %w", err)
		}
		out = append(out, *e)
		ids = append(ids, e.ID)
	}
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
	rows, err := s.db.Query(ctx, `
		SELECT id, entry_id, account_id, description, debit, credit
		FROM journal_lines
		WHERE entry_id = ANY($1)
		ORDER BY entry_id, line_no
	`, entryIDs)
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
	tag, err := s.db.Exec(ctx, `
		UPDATE journal_entries
		SET status = $3, reversed_by = COALESCE($4, reversed_by)
		WHERE tenant_id = $1 AND id = $2
	`, tenantID, id, string(status), reversedBy)
	if err != nil {
		return fmt.Errorf("failed to update journal entry %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return &core.NotFoundError{Kind: "journal entry", ID: fmt.Sprint(id)}
	}
	return nil
}

// DeleteEntry removes a draft; its lines go with it through ON DELETE CASCADE.
func (s *Store) DeleteEntry(ctx context.Context, tenantID string, id int64) error {
	tag, err := s.db.Exec(ctx,
		"DELETE FROM journal_entries WHERE tenant_id = $1 AND id = $2 AND status = 'DRAFT'", tenantID, id)
	if err != nil {
		return fmt.Errorf("failed to delete journal entry %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return &core.NotFoundError{Kind: "draft journal entry", ID: fmt.Sprint(id)}
	}
	return nil
}

func (s *Store) SumLedgerLines(ctx context.Context, tenantID string, r core.DateRange) ([]core.AccountTotals, error) {
	rows, err := s.db.Query(ctx, `
		SELECT jl.account_id, COALESCE(SUM(jl.debit), 0), COALESCE(SUM(jl.credit), 0)
		FROM journal_lines jl
		JOIN journal_entries je ON je.id = jl.entry_id
		WHERE je.tenant_id = $1
		  AND `+balanceAffecting+`
		  AND ($2::date IS NULL OR je.entry_date >= $2)
		  AND ($3::date IS NULL OR je.entry_date <= $3)
		GROUP BY jl.account_id
		ORDER BY jl.account_id
	`, tenantID, dateArg(r.From), dateArg(r.To))
	if err != nil {
		return nil, fmt.Errorf("failed to sum ledger lines: %w", err)
	}
	defer rows.Close()

	var out []core.AccountTotals
	for rows.Next() {
		var t core.AccountTotals
		if err := rows.Scan(&t.AccountID, &t.TotalDebit, &t.TotalCredit); err != nil {
			return nil, fmt.Errorf("failed to scan account totals: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}
