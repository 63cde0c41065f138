package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"erp-ledger/internal/core"
)

func TestWithTx_RollsBackOnError(t *testing.T) {
	ctx := context.Background()
	s := New()

	boom := errors.New("boom")
	err := s.WithTx(ctx, func(tx core.Store) error {
		require.NoError(t, tx.InsertAccount(ctx, "t1", &core.Account{Code: "1001", Name: "Cash", Type: core.Asset}))
		_, err := tx.NextSequence(ctx, "t1", "JE", 2025)
		require.NoError(t, err)
		return boom
	})
	assert.ErrorIs(t, err, boom)

	accs, err := s.ListAccounts(ctx, "t1")
	require.NoError(t, err)
	assert.Empty(t, accs)

	n, err := s.NextSequence(ctx, "t1", "JE", 2025)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestInsertEntry_DuplicateSourceKeyPerTenant(t *testing.T) {
	ctx := context.Background()
	s := New()

	entry := func() *core.JournalEntry {
		return &core.JournalEntry{
			Date:      time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
			Status:    core.EntryStatusPosted,
			SourceKey: "expense-1",
			Lines: []core.JournalLine{
				{AccountID: 1, Debit: decimal.NewFromInt(5)},
				{AccountID: 2, Credit: decimal.NewFromInt(5)},
			},
		}
	}

	first := entry()
	require.NoError(t, s.InsertEntry(ctx, "t1", first))

	var de *core.DuplicateEntryError
	require.ErrorAs(t, s.InsertEntry(ctx, "t1", entry()), &de)
	assert.Equal(t, first.ID, de.ExistingID)

	require.NoError(t, s.InsertEntry(ctx, "t2", entry()))
}

func TestSumLedgerLines_SkipsDraftsAndUnreversedVoids(t *testing.T) {
	ctx := context.Background()
	s := New()
	day := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	for _, status := range []core.EntryStatus{core.EntryStatusPosted, core.EntryStatusDraft, core.EntryStatusVoided} {
		require.NoError(t, s.InsertEntry(ctx, "t1", &core.JournalEntry{
			Date:   day,
			Status: status,
			Lines: []core.JournalLine{
				{AccountID: 1, Debit: decimal.NewFromInt(10)},
				{AccountID: 2, Credit: decimal.NewFromInt(10)},
			},
		}))
	}

	totals, err := s.SumLedgerLines(ctx, "t1", core.DateRange{})
	require.NoError(t, err)
	require.Len(t, totals, 2)
	assert.True(t, totals[0].TotalDebit.Equal(decimal.NewFromInt(10)))
	assert.True(t, totals[1].TotalCredit.Equal(decimal.NewFromInt(10)))
}

func TestGetEntry_ReturnsCopy(t *testing.T) {
	ctx := context.Background()
	s := New()
	e := &core.JournalEntry{Status: core.EntryStatusPosted, Lines: []core.JournalLine{{AccountID: 1, Debit: decimal.NewFromInt(1)}}}
	require.NoError(t, s.InsertEntry(ctx, "t1", e))

	got, err := s.GetEntry(ctx, "t1", e.ID)
	require.NoError(t, err)
	got.Lines[0].Debit = decimal.NewFromInt(99)

	again, err := s.GetEntry(ctx, "t1", e.ID)
	require.NoError(t, err)
	assert.True(t, again.Lines[0].Debit.Equal(decimal.NewFromInt(1)))
}
