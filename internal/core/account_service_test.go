package core_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"erp-ledger/internal/core"
)

func TestSeedChart_Idempotent(t *testing.T) {
	f := newFixture(t)

	added, err := f.accounts.SeedChartOfAccounts(f.ctx, f.tc, core.DefaultChart())
	require.NoError(t, err)
	assert.Zero(t, added)

	accs, err := f.accounts.ListAccounts(f.ctx, f.tc)
	require.NoError(t, err)
	assert.Len(t, accs, len(core.DefaultChart()))
	for _, a := range accs {
		assert.True(t, a.IsSystem, a.Code)
	}
}

func TestAccounts_CreateDuplicate(t *testing.T) {
	f := newFixture(t)

	acc, err := f.accounts.CreateAccount(f.ctx, f.tc, "5500", "Rent", core.Expense)
	require.NoError(t, err)
	assert.False(t, acc.IsSystem)

	_, err = f.accounts.CreateAccount(f.ctx, f.tc, "5500", "Rent again", core.Expense)
	assert.ErrorIs(t, err, core.ErrDuplicateAccount)

	_, err = f.accounts.CreateAccount(f.ctx, f.tc, "5600", "Odd", core.AccountType("contra"))
	assert.ErrorIs(t, err, core.ErrInvalidInput)
}

func TestAccounts_DeleteRules(t *testing.T) {
	f := newFixture(t)

	err := f.accounts.DeleteAccount(f.ctx, f.tc, f.ids["1001"])
	assert.ErrorIs(t, err, core.ErrSystemAccount)

	rent, err := f.accounts.CreateAccount(f.ctx, f.tc, "5500", "Rent", core.Expense)
	require.NoError(t, err)
	f.ids["5500"] = rent.ID
	f.post(t, date(2025, 1, 1), "5500", "1001", "10")

	err = f.accounts.DeleteAccount(f.ctx, f.tc, rent.ID)
	assert.ErrorIs(t, err, core.ErrAccountInUse)

	unused, err := f.accounts.CreateAccount(f.ctx, f.tc, "5600", "Spare", core.Expense)
	require.NoError(t, err)
	require.NoError(t, f.accounts.DeleteAccount(f.ctx, f.tc, unused.ID))
}

func TestAccounts_CodeImmutableOnceReferenced(t *testing.T) {
	f := newFixture(t)

	acc, err := f.accounts.ChangeAccountCode(f.ctx, f.tc, f.ids["1300"], "1310")
	require.NoError(t, err)
	assert.Equal(t, "1310", acc.Code)

	f.post(t, date(2025, 1, 1), "1001", "3000", "10")
	_, err = f.accounts.ChangeAccountCode(f.ctx, f.tc, f.ids["1001"], "1005")
	assert.ErrorIs(t, err, core.ErrAccountInUse)

	renamed, err := f.accounts.RenameAccount(f.ctx, f.tc, f.ids["1001"], "Cash on Hand")
	require.NoError(t, err)
	assert.Equal(t, "1001", renamed.Code)
	assert.Equal(t, "Cash on Hand", renamed.Name)
}
