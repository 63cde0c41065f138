package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"erp-ledger/internal/core"
)

const invoiceColumns = `id, tenant_id, invoice_number, invoice_type, status, issue_date,
	seller, buyer, items, subtotal, vat_amount, total_amount, posting_ref,
	created_by, created_at, approved_by, approved_at, posted_at`

// invoiceRow holds the JSONB columns before they are decoded.
type invoiceRow struct {
	inv                  core.TaxInvoice
	typ, status          string
	seller, buyer, items []byte
}

func scanInvoice(row pgx.Row) (*core.TaxInvoice, error) {
	var r invoiceRow
	err := row.Scan(&r.inv.ID, &r.inv.TenantID, &r.inv.InvoiceNumber, &r.typ, &r.status, &r.inv.IssueDate,
		&r.seller, &r.buyer, &r.items, &r.inv.Subtotal, &r.inv.VATAmount, &r.inv.TotalAmount, &r.inv.PostingRef,
		&r.inv.CreatedBy, &r.inv.CreatedAt, &r.inv.ApprovedBy, &r.inv.ApprovedAt, &r.inv.PostedAt)
	if err != nil {
		return nil, err
	}
	inv := r.inv
	inv.Type = core.InvoiceType(r.typ)
	inv.Status = core.InvoiceStatus(r.status)
	if err := json.Unmarshal(r.seller, &inv.Seller); err != nil {
		return nil, fmt.Errorf("failed to decode seller: %w", err)
	}
	if err := json.Unmarshal(r.buyer, &inv.Buyer); err != nil {
		return nil, fmt.Errorf("failed to decode buyer: %w", err)
	}
	if err := json.Unmarshal(r.items, &inv.Items); err != nil {
		return nil, fmt.Errorf("failed to decode items: %w", err)
	}
	return &inv, nil
}

// encodeSnapshot serialises the parts of the invoice stored as JSONB.
func encodeSnapshot(inv *core.TaxInvoice) (seller, buyer, items string, err error) {
	parts := []any{inv.Seller, inv.Buyer, inv.Items}
	out := make([]string, len(parts))
	for i, p := range parts {
		b, err := json.Marshal(p)
		if err != nil {
			return "", "", "", fmt.Errorf("failed to encode invoice: %w", err)
		}
		out[i] = string(b)
	}
	return out[0], out[1], out[2], nil
}

func (s *Store) InsertInvoice(ctx context.Context, tenantID string, inv *core.TaxInvoice) error {
	seller, buyer, items, err := encodeSnapshot(inv)
	if err != nil {
		return err
	}
	err = s.db.QueryRow(ctx, `
		INSERT INTO tax_invoices
			(tenant_id, invoice_number, invoice_type, status, issue_date, seller, buyer, items,
			 subtotal, vat_amount, total_amount, posting_ref, created_by, created_at,
			 approved_by, approved_at, posted_at)
		VALUES ($1, $2, $3, $4, $5, $6::jsonb, $7::jsonb, $8::jsonb, $9, $10, $11, $12, $13, $14, $15, $16, $17)
		RETURNING id
	`, tenantID, inv.InvoiceNumber, string(inv.Type), string(inv.Status), inv.IssueDate, seller, buyer, items,
		inv.Subtotal, inv.VATAmount, inv.TotalAmount, inv.PostingRef, inv.CreatedBy, inv.CreatedAt,
		inv.ApprovedBy, inv.ApprovedAt, inv.PostedAt).Scan(&inv.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: invoice number %s already exists", core.ErrInvalidInput, inv.InvoiceNumber)
		}
		return fmt.Errorf("failed to insert invoice: %w", err)
	}
	inv.TenantID = tenantID
	return nil
}

// GetInvoice takes a row lock when called inside a transaction, serialising
// concurrent transitions of the same invoice.
func (s *Store) GetInvoice(ctx context.Context, tenantID string, id int64) (*core.TaxInvoice, error) {
	query := "SELECT " + invoiceColumns + " FROM tax_invoices WHERE tenant_id = $1 AND id = $2"
	if s.inTx {
		query += " FOR UPDATE"
	}
	inv, err := scanInvoice(s.db.QueryRow(ctx, query, tenantID, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &core.NotFoundError{Kind: "invoice", ID: fmt.Sprint(id)}
		}
		return nil, fmt.Errorf("failed to fetch invoice %d: %w", id, err)
	}
	return inv, nil
}

func (s *Store) UpdateInvoice(ctx context.Context, tenantID string, inv *core.TaxInvoice) error {
	seller, buyer, items, err := encodeSnapshot(inv)
	if err != nil {
		return err
	}
	tag, err := s.db.Exec(ctx, `
		UPDATE tax_invoices SET
			invoice_number = $3, invoice_type = $4, status = $5, issue_date = $6,
			seller = $7::jsonb, buyer = $8::jsonb, items = $9::jsonb,
			subtotal = $10, vat_amount = $11, total_amount = $12, posting_ref = $13,
			approved_by = $14, approved_at = $15, posted_at = $16
		WHERE tenant_id = $1 AND id = $2
	`, tenantID, inv.ID, inv.InvoiceNumber, string(inv.Type), string(inv.Status), inv.IssueDate,
		seller, buyer, items, inv.Subtotal, inv.VATAmount, inv.TotalAmount, inv.PostingRef,
		inv.ApprovedBy, inv.ApprovedAt, inv.PostedAt)
	if err != nil {
		return fmt.Errorf("failed to update invoice %d: %w", inv.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return &core.NotFoundError{Kind: "invoice", ID: fmt.Sprint(inv.ID)}
	}
	return nil
}

func (s *Store) ListInvoices(ctx context.Context, tenantID string, f core.InvoiceFilter) ([]core.TaxInvoice, error) {
	statuses := make([]string, 0, len(f.Statuses))
	for _, st := range f.Statuses {
		statuses = append(statuses, string(st))
	}

	rows, err := s.db.Query(ctx, `
		SELECT `+invoiceColumns+`
		FROM tax_invoices
		WHERE tenant_id = $1
		  AND ($2::date IS NULL OR issue_date >= $2)
		  AND ($3::date IS NULL OR issue_date <= $3)
		  AND (cardinality($4::text[]) = 0 OR status = ANY($4))
		ORDER BY id
	`, tenantID, dateArg(f.Range.From), dateArg(f.Range.To), statuses)
	if err != nil {
		return nil, fmt.Errorf("failed to list invoices: %w", err)
	}
	defer rows.Close()

	var out []core.TaxInvoice
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan invoice: %w", err)
		}
		out = append(out, *inv)
	}
	return out, rows.Err()
}
