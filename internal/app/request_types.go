package app

import (
	"github.com/shopspring/decimal"
)

type CreateAccountRequest struct {
	Code string `json:"code"`
	Name string `json:"name"`
	Type string `json:"type"`
}

// UpdateAccountRequest renames the account; a non-empty Code also changes its code.
type UpdateAccountRequest struct {
	Name string `json:"name"`
	Code string `json:"code,omitempty"`
}

// CreateEntryRequest is a manual journal entry.
type CreateEntryRequest struct {
	Date        string             `json:"date"` // YYYY-MM-DD; empty means today
	Reference   string             `json:"reference"`
	Description string             `json:"description"`
	Draft       bool               `json:"draft"`
	SourceKey   string             `json:"source_key,omitempty"`
	Lines       []EntryLineRequest `json:"lines"`
}

// EntryLineRequest names its account by code. Exactly one of Debit and Credit is non-zero.
type EntryLineRequest struct {
	AccountCode string          `json:"account_code"`
	Description string          `json:"description,omitempty"`
	Debit       decimal.Decimal `json:"debit"`
	Credit      decimal.Decimal `json:"credit"`
}

type EntryQuery struct {
	From   string
	To     string
	Status string
}

type PartyRequest struct {
	Name      string `json:"name"`
	VATNumber string `json:"vat_number,omitempty"`
	Address   string `json:"address,omitempty"`
}

// InvoiceRequest carries the editable part of a tax invoice.
type InvoiceRequest struct {
	InvoiceNumber string               `json:"invoice_number,omitempty"` // empty means next in sequence
	Type          string               `json:"type,omitempty"`           // STANDARD (default) or SIMPLIFIED
	IssueDate     string               `json:"issue_date"`
	Seller        PartyRequest         `json:"seller"`
	Buyer         PartyRequest         `json:"buyer"`
	Items         []InvoiceItemRequest `json:"items"`
}

// InvoiceItemRequest is one invoice line. A nil VATRate means the default rate.
type InvoiceItemRequest struct {
	Description string           `json:"description"`
	Quantity    decimal.Decimal  `json:"quantity"`
	UnitPrice   decimal.Decimal  `json:"unit_price"`
	VATRate     *decimal.Decimal `json:"vat_rate,omitempty"`
}

type InvoiceQuery struct {
	From     string
	To       string
	Statuses []string
}

type ExpenseRequest struct {
	ExpenseID     string          `json:"expense_id"`
	Date          string          `json:"date"`
	Description   string          `json:"description"`
	Amount        decimal.Decimal `json:"amount"`
	PaymentMethod string          `json:"payment_method"`
	AccountCode   string          `json:"account_code,omitempty"`
}

type ProductionRequest struct {
	WorkOrderID       string          `json:"work_order_id"`
	Date              string          `json:"date"`
	Description       string          `json:"description"`
	TotalStandardCost decimal.Decimal `json:"total_standard_cost"`
}

type PayrollRequest struct {
	RunID         string          `json:"run_id"`
	Date          string          `json:"date"`
	Period        string          `json:"period"`
	TotalNet      decimal.Decimal `json:"total_net"`
	PaymentMethod string          `json:"payment_method"`
}
