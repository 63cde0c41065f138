package core

import (
	"context"
	"fmt"
	"strings"
)

// DefaultChart returns the seeded chart of accounts. Every account is a system account.
func DefaultChart() []Account {
	return []Account{
		{Code: "1001", Name: "Cash", Type: Asset, IsSystem: true},
		{Code: "1002", Name: "Bank", Type: Asset, IsSystem: true},
		{Code: "1100", Name: "Accounts Receivable", Type: Asset, IsSystem: true},
		{Code: "1200", Name: "Inventory", Type: Asset, IsSystem: true},
		{Code: "1300", Name: "VAT Input Receivable", Type: Asset, IsSystem: true},
		{Code: "1500", Name: "Fixed Assets", Type: Asset, IsSystem: true},
		{Code: "2000", Name: "Accounts Payable", Type: Liability, IsSystem: true},
		{Code: "2100", Name: "VAT Output Payable", Type: Liability, IsSystem: true},
		{Code: "3000", Name: "Owner's Capital", Type: Equity, IsSystem: true},
		{Code: "3100", Name: "Retained Earnings", Type: Equity, IsSystem: true},
		{Code: "4000", Name: "Sales Revenue", Type: Revenue, IsSystem: true},
		{Code: "5000", Name: "Cost of Goods Sold", Type: Expense, IsSystem: true},
		{Code: "5100", Name: "Salaries Expense", Type: Expense, IsSystem: true},
		{Code: "5400", Name: "General Expense", Type: Expense, IsSystem: true},
		{Code: "5900", Name: "Rounding Differences", Type: Expense, IsSystem: true},
	}
}

// AccountService manages the chart of accounts.
type AccountService interface {
	// SeedChartOfAccounts inserts every account whose code is not yet present and
	// returns how many were added. Seeded accounts are system accounts.
	SeedChartOfAccounts(ctx context.Context, tc TenantContext, chart []Account) (int, error)
	CreateAccount(ctx context.Context, tc TenantContext, code, name string, typ AccountType) (*Account, error)
	ListAccounts(ctx context.Context, tc TenantContext) ([]Account, error)
	GetAccountByCode(ctx context.Context, tc TenantContext, code string) (*Account, error)
	RenameAccount(ctx context.Context, tc TenantContext, id int64, name string) (*Account, error)
	// ChangeAccountCode fails with ErrAccountInUse once any journal line references the account.
	ChangeAccountCode(ctx context.Context, tc TenantContext, id int64, code string) (*Account, error)
	// DeleteAccount refuses system accounts and accounts referenced by journal lines.
	DeleteAccount(ctx context.Context, tc TenantContext, id int64) error
}

type accountService struct {
	store Store
}

func NewAccountService(store Store) AccountService {
	return &accountService{store: store}
}

func (s *accountService) SeedChartOfAccounts(ctx context.Context, tc TenantContext, chart []Account) (int, error) {
	if err := tc.validate(); err != nil {
		return 0, err
	}
	added := 0
	err := s.store.WithTx(ctx, func(tx Store) error {
		for _, a := range chart {
			if err := validateAccount(a.Code, a.Name, a.Type); err != nil {
				return err
			}
			_, err := tx.GetAccountByCode(ctx, tc.TenantID, a.Code)
			if err == nil {
				continue
			}
			if !IsNotFound(err) {
				return fmt.Errorf("failed to check account %s: %w", a.Code, err)
			}
			acc := Account{Code: a.Code, Name: a.Name, Type: a.Type, IsSystem: true}
			if err := tx.InsertAccount(ctx, tc.TenantID, &acc); err != nil {
				return fmt.Errorf("failed to seed account %s: %w", a.Code, err)
			}
			added++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return added, nil
}

func (s *accountService) CreateAccount(ctx context.Context, tc TenantContext, code, name string, typ AccountType) (*Account, error) {
	if err := tc.validate(); err != nil {
		return nil, err
	}
	code, name = strings.TrimSpace(code), strings.TrimSpace(name)
	if err := validateAccount(code, name, typ); err != nil {
		return nil, err
	}
	acc := &Account{Code: code, Name: name, Type: typ}
	if err := s.store.InsertAccount(ctx, tc.TenantID, acc); err != nil {
		return nil, err
	}
	return acc, nil
}

func (s *accountService) ListAccounts(ctx context.Context, tc TenantContext) ([]Account, error) {
	if err := tc.validate(); err != nil {
		return nil, err
	}
	return s.store.ListAccounts(ctx, tc.TenantID)
}

func (s *accountService) GetAccountByCode(ctx context.Context, tc TenantContext, code string) (*Account, error) {
	if err := tc.validate(); err != nil {
		return nil, err
	}
	return s.store.GetAccountByCode(ctx, tc.TenantID, code)
}

func (s *accountService) RenameAccount(ctx context.Context, tc TenantContext, id int64, name string) (*Account, error) {
	if err := tc.validate(); err != nil {
		return nil, err
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: account name is required", ErrInvalidInput)
	}
	var acc *Account
	err := s.store.WithTx(ctx, func(tx Store) error {
		var err error
		if acc, err = tx.GetAccount(ctx, tc.TenantID, id); err != nil {
			return err
		}
		acc.Name = name
		return tx.UpdateAccount(ctx, tc.TenantID, acc)
	})
	return acc, err
}

func (s *accountService) ChangeAccountCode(ctx context.Context, tc TenantContext, id int64, code string) (*Account, error) {
	if err := tc.validate(); err != nil {
		return nil, err
	}
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, fmt.Errorf("%w: account code is required", ErrInvalidInput)
	}
	var acc *Account
	err := s.store.WithTx(ctx, func(tx Store) error {
		var err error
		if acc, err = tx.GetAccount(ctx, tc.TenantID, id); err != nil {
			return err
		}
		used, err := tx.AccountReferenced(ctx, tc.TenantID, id)
		if err != nil {
			return fmt.Errorf("failed to check account usage: %w", err)
		}
		if used {
			return fmt.Errorf("account %s: %w", acc.Code, ErrAccountInUse)
		}
		acc.Code = code
		return tx.UpdateAccount(ctx, tc.TenantID, acc)
	})
	return acc, err
}

func (s *accountService) DeleteAccount(ctx context.Context, tc TenantContext, id int64) error {
	if err := tc.validate(); err != nil {
		return err
	}
	return s.store.WithTx(ctx, func(tx Store) error {
		acc, err := tx.GetAccount(ctx, tc.TenantID, id)
		if err != nil {
			return err
		}
		if acc.IsSystem {
			return fmt.Errorf("account %s: %w", acc.Code, ErrSystemAccount)
		}
		used, err := tx.AccountReferenced(ctx, tc.TenantID, id)
		if err != nil {
			return fmt.Errorf("failed to check account usage: %w", err)
		}
		if used {
			return fmt.Errorf("account %s: %w", acc.Code, ErrAccountInUse)
		}
		return tx.DeleteAccount(ctx, tc.TenantID, id)
	})
}

func validateAccount(code, name string, typ AccountType) error {
	if code == "" {
		return fmt.Errorf("%w: account code is required", ErrInvalidInput)
	}
	if name == "" {
		return fmt.Errorf("%w: account name is required", ErrInvalidInput)
	}
	if !typ.Valid() {
		return fmt.Errorf("%w: unknown account type %q", ErrInvalidInput, typ)
	}
	return nil
}
