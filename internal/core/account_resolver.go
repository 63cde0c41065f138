package core

import (
	"context"
	"fmt"
)

// AccountRole names an account a posting adapter needs, independent of its code.
type AccountRole string

const (
	RoleCash           AccountRole = "cash"
	RoleBank           AccountRole = "bank"
	RoleReceivable     AccountRole = "receivable"
	RoleInventory      AccountRole = "inventory"
	RoleVATInput       AccountRole = "vat_input"
	RoleFixedAssets    AccountRole = "fixed_assets"
	RoleVATOutput      AccountRole = "vat_output"
	RoleSalesRevenue   AccountRole = "sales_revenue"
	RoleCOGS           AccountRole = "cogs"
	RoleSalaries       AccountRole = "salaries"
	RoleGeneralExpense AccountRole = "general_expense"
	RoleRounding       AccountRole = "rounding"
)

// AccountMap maps roles to account codes.
type AccountMap map[AccountRole]string

// DefaultAccountMap returns the codes of the default chart of accounts.
func DefaultAccountMap() AccountMap {
	return AccountMap{
		RoleCash:           "1001",
		RoleBank:           "1002",
		RoleReceivable:     "1100",
		RoleInventory:      "1200",
		RoleVATInput:       "1300",
		RoleFixedAssets:    "1500",
		RoleVATOutput:      "2100",
		RoleSalesRevenue:   "4000",
		RoleCOGS:           "5000",
		RoleSalaries:       "5100",
		RoleGeneralExpense: "5400",
		RoleRounding:       "5900",
	}
}

// Merge returns a copy of m with the non-empty codes of overrides applied.
func (m AccountMap) Merge(overrides map[string]string) AccountMap {
	out := make(AccountMap, len(m))
	for role, code := range m {
		out[role] = code
	}
	for role, code := range overrides {
		if code != "" {
			out[AccountRole(role)] = code
		}
	}
	return out
}

// AccountResolver resolves the accounts posting adapters need.
// Lookups go through the given AccountLookup so callers control the transaction.
type AccountResolver interface {
	Resolve(ctx context.Context, lookup AccountLookup, tenantID string, role AccountRole) (*Account, error)
	ResolveCode(ctx context.Context, lookup AccountLookup, tenantID, code string) (*Account, error)
}

type accountResolver struct {
	codes AccountMap
}

// NewAccountResolver constructs a resolver over codes. A nil map uses DefaultAccountMap.
func NewAccountResolver(codes AccountMap) AccountResolver {
	if codes == nil {
		codes = DefaultAccountMap()
	}
	return &accountResolver{codes: codes}
}

// Resolve returns the account for role. A role without a code, or a code absent
// from the chart of accounts, yields *MissingAccountError.
func (r *accountResolver) Resolve(ctx context.Context, lookup AccountLookup, tenantID string, role AccountRole) (*Account, error) {
	code, ok := r.codes[role]
	if !ok || code == "" {
		return nil, &MissingAccountError{Code: string(role)}
	}
	return r.ResolveCode(ctx, lookup, tenantID, code)
}

func (r *accountResolver) ResolveCode(ctx context.Context, lookup AccountLookup, tenantID, code string) (*Account, error) {
	acc, err := lookup.GetAccountByCode(ctx, tenantID, code)
	if err != nil {
		if IsNotFound(err) {
			return nil, &MissingAccountError{Code: code}
		}
		return nil, fmt.Errorf("failed to resolve account %s: %w", code, err)
	}
	return acc, nil
}
