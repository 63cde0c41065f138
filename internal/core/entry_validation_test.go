package core_test

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"erp-ledger/internal/core"
)

func TestValidate_Balanced(t *testing.T) {
	in := core.EntryInput{Lines: []core.LineInput{
		core.Debit(1, dec("100.00"), ""),
		core.Credit(2, dec("60.00"), ""),
		core.Credit(3, dec("40.00"), ""),
	}}
	assert.NoError(t, in.Validate())
}

func TestValidate_WithinTolerance(t *testing.T) {
	in := core.EntryInput{Lines: []core.LineInput{
		core.Debit(1, dec("100.00"), ""),
		core.Credit(2, dec("99.99"), ""),
	}}
	assert.NoError(t, in.Validate())
}

func TestValidate_Unbalanced(t *testing.T) {
	in := core.EntryInput{Lines: []core.LineInput{
		core.Debit(1, dec("100.00"), ""),
		core.Credit(2, dec("99.00"), ""),
	}}
	err := in.Validate()

	var ue *core.UnbalancedEntryError
	require.ErrorAs(t, err, &ue)
	assert.True(t, ue.DebitTotal.Equal(dec("100")))
	assert.True(t, ue.CreditTotal.Equal(dec("99")))
	assert.ErrorIs(t, err, core.ErrUnbalancedEntry)
}

func TestValidate_Empty(t *testing.T) {
	err := core.EntryInput{}.Validate()
	assert.ErrorIs(t, err, core.ErrInvalidEntry)
}

func TestValidate_LineRules(t *testing.T) {
	cases := []struct {
		name string
		line core.LineInput
	}{
		{"both sides", core.LineInput{AccountID: 1, Debit: dec("10"), Credit: dec("10")}},
		{"neither side", core.LineInput{AccountID: 1}},
		{"negative", core.LineInput{AccountID: 1, Debit: dec("-10")}},
		{"no account", core.LineInput{Debit: dec("10")}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			in := core.EntryInput{Lines: []core.LineInput{tc.line, core.Credit(2, dec("10"), "")}}
			err := in.Validate()

			var le *core.InvalidLineError
			require.True(t, errors.As(err, &le), "got %v", err)
			assert.Equal(t, 0, le.Index)
			assert.ErrorIs(t, err, core.ErrInvalidEntry)
		})
	}
}

func TestNormalize_Defaults(t *testing.T) {
	now := time.Date(2025, 3, 14, 15, 9, 26, 0, time.UTC)
	in := core.EntryInput{Reference: "  INV-7 ", Lines: []core.LineInput{{Description: " x "}}}
	in.Normalize(now)

	assert.Equal(t, date(2025, 3, 14), in.Date)
	assert.Equal(t, "INV-7", in.Reference)
	assert.Equal(t, "INV-7", in.Description)
	assert.Equal(t, "x", in.Lines[0].Description)
}

func TestAccountType_SignedBalance(t *testing.T) {
	d, c := decimal.NewFromInt(300), decimal.NewFromInt(100)
	assert.True(t, core.Asset.SignedBalance(d, c).Equal(decimal.NewFromInt(200)))
	assert.True(t, core.Expense.SignedBalance(d, c).Equal(decimal.NewFromInt(200)))
	assert.True(t, core.Liability.SignedBalance(d, c).Equal(decimal.NewFromInt(-200)))
	assert.True(t, core.Equity.SignedBalance(d, c).Equal(decimal.NewFromInt(-200)))
	assert.True(t, core.Revenue.SignedBalance(d, c).Equal(decimal.NewFromInt(-200)))
}
