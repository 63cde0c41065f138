package core

import (
	"time"

	"github.com/shopspring/decimal"
)

type InvoiceType string

const (
	InvoiceTypeStandard   InvoiceType = "STANDARD"
	InvoiceTypeSimplified InvoiceType = "SIMPLIFIED"
)

// InvoiceStatus progresses through the state machine:
//
//	DRAFT → APPROVED → POSTED
//	APPROVED → DRAFT (reopen, authorized roles only)
//
// SENT_TO_AUTHORITY and PAID are recorded by external collaborators after posting.
type InvoiceStatus string

const (
	InvoiceStatusDraft           InvoiceStatus = "DRAFT"
	InvoiceStatusApproved        InvoiceStatus = "APPROVED"
	InvoiceStatusPosted          InvoiceStatus = "POSTED"
	InvoiceStatusSentToAuthority InvoiceStatus = "SENT_TO_AUTHORITY"
	InvoiceStatusPaid            InvoiceStatus = "PAID"
)

// DefaultVATRate applies when a line item does not name a rate.
var DefaultVATRate = decimal.RequireFromString("0.15")

// Party is the seller or buyer as printed on the invoice at issue time.
type Party struct {
	Name      string `json:"name"`
	VATNumber string `json:"vat_number,omitempty"`
	Address   string `json:"address,omitempty"`
}

type InvoiceLineItem struct {
	Description string          `json:"description"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	NetAmount   decimal.Decimal `json:"net_amount"`
	VATRate     decimal.Decimal `json:"vat_rate"`
	VATAmount   decimal.Decimal `json:"vat_amount"`
	TotalAmount decimal.Decimal `json:"total_amount"`
}

// TaxInvoice is a point-in-time snapshot: parties and amounts are copied onto it,
// never joined from master data.
type TaxInvoice struct {
	ID            int64             `json:"id"`
	TenantID      string            `json:"tenant_id"`
	InvoiceNumber string            `json:"invoice_number"`
	Type          InvoiceType       `json:"type"`
	Status        InvoiceStatus     `json:"status"`
	IssueDate     time.Time         `json:"issue_date"`
	Seller        Party             `json:"seller"`
	Buyer         Party             `json:"buyer"`
	Items         []InvoiceLineItem `json:"items"`
	Subtotal      decimal.Decimal   `json:"subtotal"`
	VATAmount     decimal.Decimal   `json:"vat_amount"`
	TotalAmount   decimal.Decimal   `json:"total_amount"`
	PostingRef    *int64            `json:"posting_ref,omitempty"`
	CreatedBy     string            `json:"created_by"`
	CreatedAt     time.Time         `json:"created_at"`
	ApprovedBy    string            `json:"approved_by,omitempty"`
	ApprovedAt    *time.Time        `json:"approved_at,omitempty"`
	PostedAt      *time.Time        `json:"posted_at,omitempty"`
}

// LineItemInput describes one invoice line. A nil VATRate means DefaultVATRate.
type LineItemInput struct {
	Description string
	Quantity    decimal.Decimal
	UnitPrice   decimal.Decimal
	VATRate     *decimal.Decimal
}

// InvoiceInput carries the editable part of an invoice.
type InvoiceInput struct {
	InvoiceNumber string
	Type          InvoiceType
	IssueDate     time.Time
	Seller        Party
	Buyer         Party
	Items         []LineItemInput
}

type InvoiceFilter struct {
	Range    DateRange
	Statuses []InvoiceStatus
}

// Matches reports whether inv passes the filter.
func (f InvoiceFilter) Matches(inv TaxInvoice) bool {
	if !f.Range.Contains(inv.IssueDate) {
		return false
	}
	if len(f.Statuses) == 0 {
		return true
	}
	for _, s := range f.Statuses {
		if inv.Status == s {
			return true
		}
	}
	return false
}

// NewInvoiceLineItem computes net, VAT and total amounts for one line, each rounded to 2 dp.
func NewInvoiceLineItem(in LineItemInput) InvoiceLineItem {
	rate := DefaultVATRate
	if in.VATRate != nil {
		rate = *in.VATRate
	}
	net := in.Quantity.Mul(in.UnitPrice).Round(2)
	vat := net.Mul(rate).Round(2)
	return InvoiceLineItem{
		Description: in.Description,
		Quantity:    in.Quantity,
		UnitPrice:   in.UnitPrice,
		NetAmount:   net,
		VATRate:     rate,
		VATAmount:   vat,
		TotalAmount: net.Add(vat),
	}
}

// Recalculate derives the header totals from the line items.
func (inv *TaxInvoice) Recalculate() {
	inv.Subtotal = decimal.Zero
	inv.VATAmount = decimal.Zero
	for _, it := range inv.Items {
		inv.Subtotal = inv.Subtotal.Add(it.NetAmount)
		inv.VATAmount = inv.VATAmount.Add(it.VATAmount)
	}
	inv.TotalAmount = inv.Subtotal.Add(inv.VATAmount)
}
