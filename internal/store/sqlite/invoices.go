package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"erp-ledger/internal/core"
)

const invoiceColumns = `id, tenant_id, invoice_number, invoice_type, status, issue_date,
	seller_json, buyer_json, items_json, subtotal, vat_amount, total_amount, posting_ref,
	created_by, created_at, approved_by, approved_at, posted_at`

func scanInvoice(row scanner) (*core.TaxInvoice, error) {
	var (
		inv                          core.TaxInvoice
		typ, status, issued, created string
		seller, buyer, items         string
		postingRef                   sql.NullInt64
		approvedAt, postedAt         sql.NullString
	)
	err := row.Scan(&inv.ID, &inv.TenantID, &inv.InvoiceNumber, &typ, &status, &issued,
		&seller, &buyer, &items, &inv.Subtotal, &inv.VATAmount, &inv.TotalAmount, &postingRef,
		&inv.CreatedBy, &created, &inv.ApprovedBy, &approvedAt, &postedAt)
	if err != nil {
		return nil, err
	}

	inv.Type = core.InvoiceType(typ)
	inv.Status = core.InvoiceStatus(status)
	inv.PostingRef = intPtr(postingRef)
	if inv.IssueDate, err = parseDate(issued); err != nil {
		return nil, fmt.Errorf("bad issue date %q: %w", issued, err)
	}
	if inv.CreatedAt, err = time.Parse(timeLayout, created); err != nil {
		return nil, fmt.Errorf("bad created_at %q: %w", created, err)
	}
	if inv.ApprovedAt, err = parseTime(approvedAt); err != nil {
		return nil, fmt.Errorf("bad approved_at: %w", err)
	}
	if inv.PostedAt, err = parseTime(postedAt); err != nil {
		return nil, fmt.Errorf("bad posted_at: %w", err)
	}

	if err := json.Unmarshal([]byte(seller), &inv.Seller); err != nil {
		return nil, fmt.Errorf("failed to decode seller: %w", err)
	}
	if err := json.Unmarshal([]byte(buyer), &inv.Buyer); err != nil {
		return nil, fmt.Errorf("failed to decode buyer: %w", err)
	}
	if err := json.Unmarshal([]byte(items), &inv.Items); err != nil {
		return nil, fmt.Errorf("failed to decode items: %w", err)
	}
	return &inv, nil
}

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
	res, err := s.q.ExecContext(ctx, `
		INSERT INTO tax_invoices
			(tenant_id, invoice_number, invoice_type, status, issue_date, seller_json, buyer_json, items_json,
			 subtotal, vat_amount, total_amount, posting_ref, created_by, created_at,
			 approved_by, approved_at, posted_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		tenantID, inv.InvoiceNumber, string(inv.Type), string(inv.Status), formatDate(inv.IssueDate),
		seller, buyer, items, inv.Subtotal.String(), inv.VATAmount.String(), inv.TotalAmount.String(),
		nullInt(inv.PostingRef), inv.CreatedBy, inv.CreatedAt.UTC().Format(timeLayout),
		inv.ApprovedBy, formatTime(inv.ApprovedAt), formatTime(inv.PostedAt))
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: invoice number %s already exists", core.ErrInvalidInput, inv.InvoiceNumber)
		}
		return fmt.Errorf("failed to insert invoice: %w", err)
	}
	if inv.ID, err = res.LastInsertId(); err != nil {
		return fmt.Errorf("failed to read invoice id: %w", err)
	}
	inv.TenantID = tenantID
	return nil
}

// GetInvoice needs no row lock: the single connection already serialises transactions.
func (s *Store) GetInvoice(ctx context.Context, tenantID string, id int64) (*core.TaxInvoice, error) {
	inv, err := scanInvoice(s.q.QueryRowContext(ctx,
		"SELECT "+invoiceColumns+" FROM tax_invoices WHERE tenant_id = ? AND id = ?", tenantID, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
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
	res, err := s.q.ExecContext(ctx, `
		UPDATE tax_invoices SET
			invoice_number = ?, invoice_type = ?, status = ?, issue_date = ?,
			seller_json = ?, buyer_json = ?, items_json = ?,
			subtotal = ?, vat_amount = ?, total_amount = ?, posting_ref = ?,
			approved_by = ?, approved_at = ?, posted_at = ?
		WHERE tenant_id = ? AND id = ?`,
		inv.InvoiceNumber, string(inv.Type), string(inv.Status), formatDate(inv.IssueDate),
		seller, buyer, items, inv.Subtotal.String(), inv.VATAmount.String(), inv.TotalAmount.String(),
		nullInt(inv.PostingRef), inv.ApprovedBy, formatTime(inv.ApprovedAt), formatTime(inv.PostedAt),
		tenantID, inv.ID)
	if err != nil {
		return fmt.Errorf("failed to update invoice %d: %w", inv.ID, err)
	}
	return requireRow(res, "invoice", inv.ID)
}

func (s *Store) ListInvoices(ctx context.Context, tenantID string, f core.InvoiceFilter) ([]core.TaxInvoice, error) {
	query := `
		SELECT ` + invoiceColumns + `
		FROM tax_invoices
		WHERE tenant_id = ?
		  AND (? IS NULL OR issue_date >= ?)
		  AND (? IS NULL OR issue_date <= ?)`
	args := []any{tenantID, dateArg(f.Range.From), dateArg(f.Range.From), dateArg(f.Range.To), dateArg(f.Range.To)}
	if len(f.Statuses) > 0 {
		query += " AND status IN (" + strings.TrimSuffix(strings.Repeat("?,", len(f.Statuses)), ",") + ")"
		for _, st := range f.Statuses {
			args = append(args, string(st))
		}
	}
	query += " ORDER BY id"

	rows, err := s.q.QueryContext(ctx, query, args...)
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
