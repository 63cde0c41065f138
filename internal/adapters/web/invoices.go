package web

import (
	"context"
	"net/http"

	"erp-ledger/internal/app"
	"erp-ledger/internal/core"
)

// apiListInvoices handles GET /api/invoices?from=&to=&status=POSTED,PAID.
func (h *Handler) apiListInvoices(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	invoices, err := h.svc.ListInvoices(r.Context(), tenantFromContext(r.Context()), app.InvoiceQuery{
		From:     q.Get("from"),
		To:       q.Get("to"),
		Statuses: splitAndTrim(q.Get("status")),
	})
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, r, invoices)
}

// apiCreateInvoice handles POST /api/invoices. New invoices start as drafts.
func (h *Handler) apiCreateInvoice(w http.ResponseWriter, r *http.Request) {
	var req app.InvoiceRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	inv, err := h.svc.CreateInvoice(r.Context(), tenantFromContext(r.Context()), req)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeCreated(w, r, inv)
}

// apiGetInvoice handles GET /api/invoices/{id}.
func (h *Handler) apiGetInvoice(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	inv, err := h.svc.GetInvoice(r.Context(), tenantFromContext(r.Context()), id)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, r, inv)
}

// apiUpdateInvoice handles PUT /api/invoices/{id}. Only drafts are editable.
func (h *Handler) apiUpdateInvoice(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	var req app.InvoiceRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	inv, err := h.svc.UpdateInvoice(r.Context(), tenantFromContext(r.Context()), id, req)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, r, inv)
}

func (h *Handler) apiApproveInvoice(w http.ResponseWriter, r *http.Request) {
	h.invoiceAction(w, r, h.svc.ApproveInvoice)
}

func (h *Handler) apiReopenInvoice(w http.ResponseWriter, r *http.Request) {
	h.invoiceAction(w, r, h.svc.ReopenInvoice)
}

// apiPostInvoice handles POST /api/invoices/{id}/post, which books the sales entry.
func (h *Handler) apiPostInvoice(w http.ResponseWriter, r *http.Request) {
	h.invoiceAction(w, r, h.svc.PostInvoice)
}

type invoiceTransition func(ctx context.Context, tc core.TenantContext, id int64) (*core.TaxInvoice, error)

func (h *Handler) invoiceAction(w http.ResponseWriter, r *http.Request, action invoiceTransition) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	inv, err := action(r.Context(), tenantFromContext(r.Context()), id)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, r, inv)
}
