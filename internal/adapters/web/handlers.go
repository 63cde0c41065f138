package web

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"erp-ledger/internal/app"
)

// Handler holds the ApplicationService and the chi router.
type Handler struct {
	svc    app.ApplicationService
	router chi.Router
	logger *zap.Logger
}

// NewHandler creates and wires the chi router with all routes.
// An empty allowedOrigins disables CORS.
func NewHandler(svc app.ApplicationService, allowedOrigins []string, logger *zap.Logger) http.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	h := &Handler{svc: svc, logger: logger}

	r := chi.NewRouter()
	r.Use(RequestID)
	r.Use(middleware.RealIP)
	r.Use(Logger(logger))
	r.Use(Recoverer(logger))
	if len(allowedOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   allowedOrigins,
			AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-ID", headerTenantID, headerActorID, headerActorRoles},
			ExposedHeaders:   []string{"X-Request-ID"},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}

	// ── Health (public) ───────────────────────────────────────────────────────
	r.Get("/api/health", h.health)

	r.Route("/api", func(r chi.Router) {
		r.Use(Tenant)
		r.Use(RequestBodyLimit(1 << 20)) // 1 MB

		r.Route("/accounts", func(r chi.Router) {
			r.Get("/", h.apiListAccounts)
			r.Post("/", h.apiCreateAccount)
			r.Post("/seed", h.apiSeedAccounts)
			r.Put("/{id}", h.apiUpdateAccount)
			r.Delete("/{id}", h.apiDeleteAccount)
		})

		r.Route("/journal-entries", func(r chi.Router) {
			r.Get("/", h.apiListEntries)
			r.Post("/", h.apiCreateEntry)
			r.Get("/{id}", h.apiGetEntry)
			r.Delete("/{id}", h.apiDeleteDraft)
			r.Post("/{id}/post", h.apiPostEntry)
			r.Post("/{id}/void", h.apiVoidEntry)
		})

		r.Route("/invoices", func(r chi.Router) {
			r.Get("/", h.apiListInvoices)
			r.Post("/", h.apiCreateInvoice)
			r.Get("/{id}", h.apiGetInvoice)
			r.Put("/{id}", h.apiUpdateInvoice)
			r.Post("/{id}/approve", h.apiApproveInvoice)
			r.Post("/{id}/reopen", h.apiReopenInvoice)
			r.Post("/{id}/post", h.apiPostInvoice)
		})

		r.Route("/postings", func(r chi.Router) {
			r.Post("/expenses", h.apiPostExpense)
			r.Post("/production", h.apiPostProduction)
			r.Post("/payroll", h.apiPostPayroll)
		})

		r.Route("/reports", func(r chi.Router) {
			r.Get("/trial-balance", h.apiTrialBalance)
			r.Get("/pl", h.apiProfitAndLoss)
			r.Get("/balance-sheet", h.apiBalanceSheet)
			r.Get("/vat", h.apiVATReport)
			r.Get("/zakat", h.apiZakatEstimate)
			r.Get("/statement/{code}", h.apiAccountStatement)
			r.Get("/integrity", h.apiVerifyLedger)
		})
	})

	h.router = r
	return r
}

// health returns service status.
func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, map[string]string{"status": "ok"})
}

// decodeJSON decodes the request body into v and returns false + writes an appropriate
// error response on failure. Returns HTTP 413 when the body exceeds the size limit set
// by RequestBodyLimit middleware; HTTP 400 for all other decode errors.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			writeError(w, r, "request body too large", "REQUEST_TOO_LARGE", http.StatusRequestEntityTooLarge)
			return false
		}
		writeError(w, r, "invalid JSON body: "+err.Error(), "BAD_REQUEST", http.StatusBadRequest)
		return false
	}
	return true
}

// idParam parses the {id} URL parameter, writing a 400 when it is not a positive integer.
func idParam(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, r, "invalid id", "BAD_REQUEST", http.StatusBadRequest)
		return 0, false
	}
	return id, true
}
