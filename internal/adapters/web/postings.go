package web

import (
	"net/http"

	"erp-ledger/internal/app"
)

// apiPostExpense handles POST /api/postings/expenses.
func (h *Handler) apiPostExpense(w http.ResponseWriter, r *http.Request) {
	var req app.ExpenseRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	res, err := h.svc.PostExpense(r.Context(), tenantFromContext(r.Context()), req)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeCreated(w, r, res)
}

// apiPostProduction handles POST /api/postings/production.
func (h *Handler) apiPostProduction(w http.ResponseWriter, r *http.Request) {
	var req app.ProductionRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	res, err := h.svc.PostProduction(r.Context(), tenantFromContext(r.Context()), req)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeCreated(w, r, res)
}

// apiPostPayroll handles POST /api/postings/payroll.
func (h *Handler) apiPostPayroll(w http.ResponseWriter, r *http.Request) {
	var req app.PayrollRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	res, err := h.svc.PostPayroll(r.Context(), tenantFromContext(r.Context()), req)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeCreated(w, r, res)
}
