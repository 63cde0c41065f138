package web

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"erp-ledger/internal/core"
)

type errorResponse struct {
	Error     string `json:"error"`
	Code      string `json:"code"`
	RequestID string `json:"request_id,omitempty"`
}

// writeError writes a structured JSON error response.
func writeError(w http.ResponseWriter, r *http.Request, message, code string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	encodeJSON(w, r, errorResponse{
		Error:     message,
		Code:      code,
		RequestID: requestIDFromContext(r.Context()),
	})
}

// writeJSON writes a JSON response with status 200.
func writeJSON(w http.ResponseWriter, r *http.Request, v any) {
	w.Header().Set("Content-Type", "application/json")
	encodeJSON(w, r, v)
}

// writeCreated writes a JSON response with status 201.
func writeCreated(w http.ResponseWriter, r *http.Request, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	encodeJSON(w, r, v)
}

// encodeJSON writes v as the body. The status line is already sent, so a failure
// can only be logged.
func encodeJSON(w http.ResponseWriter, r *http.Request, v any) {
	if err := json.NewEncoder(w).Encode(v); err != nil {
		loggerFromContext(r.Context()).Error("failed to encode response",
			zap.Error(err),
			zap.String("path", r.URL.Path),
			zap.String("request_id", requestIDFromContext(r.Context())),
		)
	}
}

// errorStatus maps a domain error to its HTTP status and error code.
func errorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, core.ErrNotFound):
		return http.StatusNotFound, "NOT_FOUND"
	case errors.Is(err, core.ErrTenantRequired):
		return http.StatusBadRequest, "TENANT_REQUIRED"
	case errors.Is(err, core.ErrTransitionNotPermitted):
		return http.StatusForbidden, "NOT_PERMITTED"
	case errors.Is(err, core.ErrUnbalancedEntry):
		return http.StatusUnprocessableEntity, "UNBALANCED_ENTRY"
	case errors.Is(err, core.ErrMissingAccount):
		return http.StatusUnprocessableEntity, "MISSING_ACCOUNT"
	case errors.Is(err, core.ErrInvalidEntry):
		return http.StatusUnprocessableEntity, "INVALID_ENTRY"
	case errors.Is(err, core.ErrInvalidInput):
		return http.StatusUnprocessableEntity, "INVALID_INPUT"
	case errors.Is(err, core.ErrInvalidTransition):
		return http.StatusConflict, "INVALID_TRANSITION"
	case errors.Is(err, core.ErrDuplicatePosting):
		return http.StatusConflict, "DUPLICATE_POSTING"
	case errors.Is(err, core.ErrDuplicateAccount):
		return http.StatusConflict, "DUPLICATE_ACCOUNT"
	case errors.Is(err, core.ErrInvoiceLocked):
		return http.StatusConflict, "INVOICE_LOCKED"
	case errors.Is(err, core.ErrAccountInUse):
		return http.StatusConflict, "ACCOUNT_IN_USE"
	case errors.Is(err, core.ErrSystemAccount):
		return http.StatusConflict, "SYSTEM_ACCOUNT"
	case errors.Is(err, core.ErrSourceDocumentEntry):
		return http.StatusConflict, "SOURCE_DOCUMENT_ENTRY"
	}
	return http.StatusInternalServerError, "INTERNAL"
}

// writeDomainError maps err onto an error response. Server errors are logged
// and their text is withheld from the client.
func (h *Handler) writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	status, code := errorStatus(err)
	if status == http.StatusInternalServerError {
		h.logger.Error("request failed",
			zap.Error(err),
			zap.String("path", r.URL.Path),
			zap.String("request_id", requestIDFromContext(r.Context())),
		)
		writeError(w, r, "internal server error", code, status)
		return
	}
	writeError(w, r, err.Error(), code, status)
}
