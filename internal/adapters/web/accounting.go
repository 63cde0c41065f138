package web

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"erp-ledger/internal/app"
	"erp-ledger/internal/core"
	"erp-ledger/internal/export"
)

// ── Accounts ──────────────────────────────────────────────────────────────────

// apiListAccounts handles GET /api/accounts.
func (h *Handler) apiListAccounts(w http.ResponseWriter, r *http.Request) {
	accounts, err := h.svc.ListAccounts(r.Context(), tenantFromContext(r.Context()))
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, r, accounts)
}

// apiCreateAccount handles POST /api/accounts.
func (h *Handler) apiCreateAccount(w http.ResponseWriter, r *http.Request) {
	var req app.CreateAccountRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	acc, err := h.svc.CreateAccount(r.Context(), tenantFromContext(r.Context()), req)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeCreated(w, r, acc)
}

// apiSeedAccounts handles POST /api/accounts/seed.
func (h *Handler) apiSeedAccounts(w http.ResponseWriter, r *http.Request) {
	res, err := h.svc.SeedAccounts(r.Context(), tenantFromContext(r.Context()))
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, r, res)
}

// apiUpdateAccount handles PUT /api/accounts/{id}.
func (h *Handler) apiUpdateAccount(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	var req app.UpdateAccountRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	acc, err := h.svc.UpdateAccount(r.Context(), tenantFromContext(r.Context()), id, req)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, r, acc)
}

// apiDeleteAccount handles DELETE /api/accounts/{id}.
func (h *Handler) apiDeleteAccount(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	if err := h.svc.DeleteAccount(r.Context(), tenantFromContext(r.Context()), id); err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ── Journal entries ───────────────────────────────────────────────────────────

// apiListEntries handles GET /api/journal-entries?from=&to=&status=.
func (h *Handler) apiListEntries(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	entries, err := h.svc.ListEntries(r.Context(), tenantFromContext(r.Context()), app.EntryQuery{
		From:   q.Get("from"),
		To:     q.Get("to"),
		Status: q.Get("status"),
	})
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, r, entries)
}

// apiCreateEntry handles POST /api/journal-entries.
func (h *Handler) apiCreateEntry(w http.ResponseWriter, r *http.Request) {
	var req app.CreateEntryRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	entry, err := h.svc.CreateEntry(r.Context(), tenantFromContext(r.Context()), req)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeCreated(w, r, entry)
}

// apiGetEntry handles GET /api/journal-entries/{id}.
func (h *Handler) apiGetEntry(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	entry, err := h.svc.GetEntry(r.Context(), tenantFromContext(r.Context()), id)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, r, entry)
}

// apiDeleteDraft handles DELETE /api/journal-entries/{id}.
func (h *Handler) apiDeleteDraft(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	if err := h.svc.DeleteDraft(r.Context(), tenantFromContext(r.Context()), id); err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// apiPostEntry handles POST /api/journal-entries/{id}/post.
func (h *Handler) apiPostEntry(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	entry, err := h.svc.PostEntry(r.Context(), tenantFromContext(r.Context()), id)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, r, entry)
}

type voidRequest struct {
	Reason string `json:"reason"`
}

// apiVoidEntry handles POST /api/journal-entries/{id}/void.
func (h *Handler) apiVoidEntry(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	var req voidRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	res, err := h.svc.VoidEntry(r.Context(), tenantFromContext(r.Context()), id, req.Reason)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, r, res)
}

// ── Reports ───────────────────────────────────────────────────────────────────

// apiTrialBalance handles GET /api/reports/trial-balance?from=&to=&format=json|csv|xlsx.
func (h *Handler) apiTrialBalance(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	tb, err := h.svc.GetTrialBalance(r.Context(), tenantFromContext(r.Context()), q.Get("from"), q.Get("to"))
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}

	switch q.Get("format") {
	case "", "json":
		writeJSON(w, r, tb)
	case "csv":
		setAttachment(w, export.ContentTypeCSV, "trial_balance", "csv")
		if err := export.TrialBalanceCSV(w, tb); err != nil {
			h.logger.Warn("trial balance csv export failed", zap.Error(err))
		}
	case "xlsx":
		setAttachment(w, export.ContentTypeXLSX, "trial_balance", "xlsx")
		if err := export.TrialBalanceXLSX(w, tb); err != nil {
			h.logger.Warn("trial balance xlsx export failed", zap.Error(err))
		}
	default:
		writeError(w, r, "format must be json, csv or xlsx", "BAD_REQUEST", http.StatusBadRequest)
	}
}

// apiProfitAndLoss handles GET /api/reports/pl?from=&to=.
func (h *Handler) apiProfitAndLoss(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	report, err := h.svc.GetProfitAndLoss(r.Context(), tenantFromContext(r.Context()), q.Get("from"), q.Get("to"))
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, r, report)
}

// apiBalanceSheet handles GET /api/reports/balance-sheet?date=.
func (h *Handler) apiBalanceSheet(w http.ResponseWriter, r *http.Request) {
	report, err := h.svc.GetBalanceSheet(r.Context(), tenantFromContext(r.Context()), r.URL.Query().Get("date"))
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, r, report)
}

// apiAccountStatement handles GET /api/reports/statement/{code}?from=&to=&format=json|csv.
func (h *Handler) apiAccountStatement(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	code := chi.URLParam(r, "code")
	st, err := h.svc.GetAccountStatement(r.Context(), tenantFromContext(r.Context()), code, q.Get("from"), q.Get("to"))
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	if q.Get("format") == "csv" {
		setAttachment(w, export.ContentTypeCSV, "statement_"+code, "csv")
		if err := export.AccountStatementCSV(w, st); err != nil {
			h.logger.Warn("statement csv export failed", zap.Error(err))
		}
		return
	}
	writeJSON(w, r, st)
}

// apiVATReport handles GET /api/reports/vat?from=&to=.
func (h *Handler) apiVATReport(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	report, err := h.svc.GetVATReport(r.Context(), tenantFromContext(r.Context()), q.Get("from"), q.Get("to"))
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, r, report)
}

// apiZakatEstimate handles GET /api/reports/zakat?year=. The year defaults to the current one.
func (h *Handler) apiZakatEstimate(w http.ResponseWriter, r *http.Request) {
	year := 0
	if y := r.URL.Query().Get("year"); y != "" {
		parsed, err := strconv.Atoi(y)
		if err != nil || parsed < 1 {
			writeError(w, r, "year must be a positive integer", "BAD_REQUEST", http.StatusBadRequest)
			return
		}
		year = parsed
	}
	est, err := h.svc.GetZakatEstimate(r.Context(), tenantFromContext(r.Context()), year)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, r, est)
}

type integrityResponse struct {
	Healthy  bool                    `json:"healthy"`
	Problems []core.IntegrityProblem `json:"problems"`
}

// apiVerifyLedger handles GET /api/reports/integrity.
func (h *Handler) apiVerifyLedger(w http.ResponseWriter, r *http.Request) {
	problems, err := h.svc.VerifyLedger(r.Context(), tenantFromContext(r.Context()))
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	if problems == nil {
		problems = []core.IntegrityProblem{}
	}
	writeJSON(w, r, integrityResponse{Healthy: len(problems) == 0, Problems: problems})
}

func setAttachment(w http.ResponseWriter, contentType, name, ext string) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s_%s.%s\"",
		name, time.Now().Format("20060102"), ext))
}
