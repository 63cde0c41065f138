package postgres_test

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"erp-ledger/internal/core"
	"erp-ledger/internal/store/postgres"
	"erp-ledger/migrations"
)

func setupTestDB(t *testing.T) *pgxpool.Pool {
	_ = godotenv.Load("../../../.env")

	// Use a dedicated TEST database to avoid touching live data.
	dbURL := os.Getenv("TEST_DATABASE_URL")
	if dbURL == "" {
		t.Skip("TEST_DATABASE_URL not set, skipping integration test")
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, dbURL)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	_, err = migrations.Apply(ctx, pool, nil)
	require.NoError(t, err)
	return pool
}

// Each test gets its own tenant, so runs never see each other's rows.
func newTenant(t *testing.T, store core.Store) (core.TenantContext, map[string]int64) {
	t.Helper()
	ctx := context.Background()
	tc := core.TenantContext{TenantID: "it-" + uuid.NewString(), Actor: core.Actor{ID: "tester"}}

	_, err := core.NewAccountService(store).SeedChartOfAccounts(ctx, tc, core.DefaultChart())
	require.NoError(t, err)

	accs, err := store.ListAccounts(ctx, tc.TenantID)
	require.NoError(t, err)
	ids := make(map[string]int64)
	for _, a := range accs {
		ids[a.Code] = a.ID
	}
	return tc, ids
}

func TestPostgres_JournalRoundTrip(t *testing.T) {
	pool := setupTestDB(t)
	store := postgres.New(pool)
	tc, ids := newTenant(t, store)
	ctx := context.Background()

	journal := core.NewJournalService(store, nil, nil)
	ledger := core.NewLedgerService(store)

	id, err := journal.CreateEntry(ctx, tc, core.EntryInput{
		Date:      time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC),
		Reference: "CAP-1",
		SourceKey: "capital-1",
		Lines: []core.LineInput{
			core.Debit(ids["1002"], decimal.RequireFromString("2500.75"), ""),
			core.Credit(ids["3000"], decimal.RequireFromString("2500.75"), ""),
		},
	})
	require.NoError(t, err)

	entry, err := journal.GetEntry(ctx, tc, id)
	require.NoError(t, err)
	assert.Equal(t, "JE-2025-00001", entry.EntryNumber)
	require.Len(t, entry.Lines, 2)
	assert.True(t, entry.Lines[0].Debit.Equal(decimal.RequireFromString("2500.75")))

	_, err = journal.CreateEntry(ctx, tc, core.EntryInput{
		SourceKey: "capital-1",
		Lines: []core.LineInput{
			core.Debit(ids["1002"], decimal.NewFromInt(1), ""),
			core.Credit(ids["3000"], decimal.NewFromInt(1), ""),
		},
	})
	var de *core.DuplicateEntryError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, id, de.ExistingID)

	_, err = journal.VoidEntry(ctx, tc, id, "test")
	require.NoError(t, err)

	tb, err := ledger.TrialBalance(ctx, tc)
	require.NoError(t, err)
	assert.True(t, tb.Balanced)
	row, ok := tb.Row("1002")
	require.True(t, ok)
	assert.True(t, row.Balance.IsZero())
}

func TestPostgres_InvoiceLifecycle(t *testing.T) {
	pool := setupTestDB(t)
	store := postgres.New(pool)
	tc, _ := newTenant(t, store)
	ctx := context.Background()

	journal := core.NewJournalService(store, nil, nil)
	posting := core.NewPostingService(store, journal, nil)
	invoices := core.NewInvoiceService(store, posting, nil, nil)

	inv, err := invoices.CreateInvoice(ctx, tc, core.InvoiceInput{
		IssueDate: time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
		Seller:    core.Party{Name: "Acme"},
		Buyer:     core.Party{Name: "Globex"},
		Items:     []core.LineItemInput{{Description: "Widgets", Quantity: decimal.NewFromInt(10), UnitPrice: decimal.NewFromInt(100)}},
	})
	require.NoError(t, err)

	_, err = invoices.ApproveInvoice(ctx, tc, inv.ID)
	require.NoError(t, err)
	posted, err := invoices.PostInvoice(ctx, tc, inv.ID)
	require.NoError(t, err)
	require.NotNil(t, posted.PostingRef)

	got, err := invoices.GetInvoice(ctx, tc, inv.ID)
	require.NoError(t, err)
	assert.Equal(t, core.InvoiceStatusPosted, got.Status)
	assert.Equal(t, "Globex", got.Buyer.Name)
	assert.True(t, got.TotalAmount.Equal(decimal.NewFromInt(1150)))

	entry, err := journal.GetEntry(ctx, tc, *got.PostingRef)
	require.NoError(t, err)
	assert.Len(t, entry.Lines, 3)
}

func TestPostgres_ConcurrentNumbersAreGapless(t *testing.T) {
	pool := setupTestDB(t)
	store := postgres.New(pool)
	tc, ids := newTenant(t, store)
	ctx := context.Background()
	journal := core.NewJournalService(store, nil, nil)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := journal.CreateEntry(ctx, tc, core.EntryInput{
				Date: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
				Lines: []core.LineInput{
					core.Debit(ids["1001"], decimal.NewFromInt(1), ""),
					core.Credit(ids["4000"], decimal.NewFromInt(1), ""),
				},
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	entries, err := journal.ListEntries(ctx, tc, core.EntryFilter{})
	require.NoError(t, err)
	require.Len(t, entries, 20)
	seen := make(map[string]bool)
	for _, e := range entries {
		seen[e.EntryNumber] = true
	}
	assert.True(t, seen["JE-2025-00001"])
	assert.True(t, seen["JE-2025-00020"])
	assert.Len(t, seen, 20)
}
