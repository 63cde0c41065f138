package web

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"erp-ledger/internal/app"
	"erp-ledger/internal/core"
	"erp-ledger/internal/export"
	"erp-ledger/internal/store/memory"
)

const testTenant = "acme"

func newTestServer(t *testing.T) http.Handler {
	t.Helper()
	svc := app.NewAppService(memory.New(), app.Options{})
	_, err := svc.SeedAccounts(context.Background(), core.TenantContext{TenantID: testTenant})
	require.NoError(t, err)
	return NewHandler(svc, nil, nil)
}

func do(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(headerTenantID, testTenant)
	req.Header.Set(headerActorID, "alice")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func capitalEntry(amount int64) app.CreateEntryRequest {
	return app.CreateEntryRequest{
		Date: "2025-01-15",
		Lines: []app.EntryLineRequest{
			{AccountCode: "1002", Debit: decimal.NewFromInt(amount)},
			{AccountCode: "3000", Credit: decimal.NewFromInt(amount)},
		},
	}
}

func TestHealth_NeedsNoTenant(t *testing.T) {
	h := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestMissingTenant(t *testing.T) {
	h := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/api/accounts", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "TENANT_REQUIRED", decodeBody[errorResponse](t, rec).Code)
}

func TestRequestID_EchoesSafeValue(t *testing.T) {
	h := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	req.Header.Set("X-Request-ID", "trace-42")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, "trace-42", rec.Header().Get("X-Request-ID"))

	req = httptest.NewRequest(http.MethodGet, "/api/health", nil)
	req.Header.Set("X-Request-ID", "<script>")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.NotEqual(t, "<script>", rec.Header().Get("X-Request-ID"))
}

func TestJournalEntryLifecycle(t *testing.T) {
	h := newTestServer(t)

	rec := do(t, h, http.MethodPost, "/api/journal-entries", capitalEntry(500))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	entry := decodeBody[core.JournalEntry](t, rec)
	assert.Equal(t, "JE-2025-00001", entry.EntryNumber)

	rec = do(t, h, http.MethodGet, "/api/journal-entries/1", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, h, http.MethodPost, "/api/journal-entries/1/void", voidRequest{Reason: "typo"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	res := decodeBody[app.VoidResult](t, rec)
	assert.Equal(t, entry.ID, res.OriginalID)
	assert.NotZero(t, res.ReversalID)

	rec = do(t, h, http.MethodPost, "/api/journal-entries/1/void", voidRequest{Reason: "again"})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, h, http.MethodGet, "/api/reports/integrity", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, decodeBody[integrityResponse](t, rec).Healthy)
}

func TestCreateEntry_Errors(t *testing.T) {
	h := newTestServer(t)

	unbalanced := capitalEntry(500)
	unbalanced.Lines[1].Credit = decimal.NewFromInt(400)
	rec := do(t, h, http.MethodPost, "/api/journal-entries", unbalanced)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "UNBALANCED_ENTRY", decodeBody[errorResponse](t, rec).Code)

	rec = do(t, h, http.MethodGet, "/api/journal-entries/999", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, h, http.MethodGet, "/api/journal-entries/abc", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	req := httptest.NewRequest(http.MethodPost, "/api/journal-entries", strings.NewReader("{"))
	req.Header.Set(headerTenantID, testTenant)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestInvoiceFlow(t *testing.T) {
	h := newTestServer(t)

	rec := do(t, h, http.MethodPost, "/api/invoices", app.InvoiceRequest{
		IssueDate: "2025-03-10",
		Seller:    app.PartyRequest{Name: "Acme"},
		Buyer:     app.PartyRequest{Name: "Globex"},
		Items: []app.InvoiceItemRequest{
			{Description: "Consulting", Quantity: decimal.NewFromInt(2), UnitPrice: decimal.NewFromInt(500)},
		},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	inv := decodeBody[core.TaxInvoice](t, rec)
	assert.Equal(t, core.InvoiceStatusDraft, inv.Status)

	rec = do(t, h, http.MethodPost, "/api/invoices/1/post", nil)
	assert.Equal(t, http.StatusConflict, rec.Code, "drafts cannot be posted directly")

	rec = do(t, h, http.MethodPost, "/api/invoices/1/approve", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = do(t, h, http.MethodPost, "/api/invoices/1/post", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	posted := decodeBody[core.TaxInvoice](t, rec)
	assert.Equal(t, core.InvoiceStatusPosted, posted.Status)
	require.NotNil(t, posted.PostingRef)

	rec = do(t, h, http.MethodPost, "/api/invoices/1/post", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = do(t, h, http.MethodGet, "/api/invoices?status=POSTED,PAID", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decodeBody[[]core.TaxInvoice](t, rec), 1)

	rec = do(t, h, http.MethodGet, "/api/reports/vat?from=2025-03-01&to=2025-03-31", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	vat := decodeBody[core.VATReport](t, rec)
	assert.True(t, vat.OutputVAT.Equal(decimal.NewFromInt(150)))
}

func TestExpensePosting_Duplicate(t *testing.T) {
	h := newTestServer(t)
	body := app.ExpenseRequest{
		ExpenseID:     "EXP-1",
		Date:          "2025-02-01",
		Description:   "Office rent",
		Amount:        decimal.NewFromInt(1200),
		PaymentMethod: "bank_transfer",
	}

	rec := do(t, h, http.MethodPost, "/api/postings/expenses", body)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.NotZero(t, decodeBody[app.PostingResult](t, rec).EntryID)

	rec = do(t, h, http.MethodPost, "/api/postings/expenses", body)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "DUPLICATE_POSTING", decodeBody[errorResponse](t, rec).Code)
}

func TestTrialBalanceFormats(t *testing.T) {
	h := newTestServer(t)
	require.Equal(t, http.StatusCreated, do(t, h, http.MethodPost, "/api/journal-entries", capitalEntry(250)).Code)

	rec := do(t, h, http.MethodGet, "/api/reports/trial-balance", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, h, http.MethodGet, "/api/reports/trial-balance?format=csv", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, export.ContentTypeCSV, rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "trial_balance_")
	assert.Contains(t, rec.Body.String(), "TOTAL,,250.00,250.00")

	rec = do(t, h, http.MethodGet, "/api/reports/trial-balance?format=xlsx", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	f, err := excelize.OpenReader(bytes.NewReader(rec.Body.Bytes()))
	require.NoError(t, err)
	defer f.Close()
	assert.Equal(t, []string{"Trial Balance"}, f.GetSheetList())

	rec = do(t, h, http.MethodGet, "/api/reports/trial-balance?format=pdf", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, h, http.MethodGet, "/api/reports/trial-balance?from=2025-02-01&to=2025-01-01", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestAccountStatementAndZakat(t *testing.T) {
	h := newTestServer(t)
	require.Equal(t, http.StatusCreated, do(t, h, http.MethodPost, "/api/journal-entries", capitalEntry(1000)).Code)

	rec := do(t, h, http.MethodGet, "/api/reports/statement/1002", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	st := decodeBody[core.AccountStatement](t, rec)
	assert.True(t, st.ClosingBalance.Equal(decimal.NewFromInt(1000)))

	rec = do(t, h, http.MethodGet, "/api/reports/statement/9999", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, h, http.MethodGet, "/api/reports/zakat?year=2025", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, h, http.MethodGet, "/api/reports/zakat?year=abc", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestVoidEntry_InvoicePostingIsConflict(t *testing.T) {
	h := newTestServer(t)

	rec := do(t, h, http.MethodPost, "/api/invoices", app.InvoiceRequest{
		IssueDate: "2025-03-10",
		Seller:    app.PartyRequest{Name: "Acme"},
		Buyer:     app.PartyRequest{Name: "Globex"},
		Items: []app.InvoiceItemRequest{
			{Description: "Consulting", Quantity: decimal.NewFromInt(1), UnitPrice: decimal.NewFromInt(1000)},
		},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	require.Equal(t, http.StatusOK, do(t, h, http.MethodPost, "/api/invoices/1/approve", nil).Code)
	rec = do(t, h, http.MethodPost, "/api/invoices/1/post", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	posted := decodeBody[core.TaxInvoice](t, rec)
	require.NotNil(t, posted.PostingRef)

	path := fmt.Sprintf("/api/journal-entries/%d/void", *posted.PostingRef)
	rec = do(t, h, http.MethodPost, path, voidRequest{Reason: "refund"})
	assert.Equal(t, http.StatusConflict, rec.Code, rec.Body.String())
	assert.Equal(t, "SOURCE_DOCUMENT_ENTRY", decodeBody[errorResponse](t, rec).Code)

	rec = do(t, h, http.MethodGet, "/api/invoices/1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, core.InvoiceStatusPosted, decodeBody[core.TaxInvoice](t, rec).Status)
}

func TestWriteJSON_EncodeFailureIsLogged(t *testing.T) {
	obs, logs := observer.New(zapcore.ErrorLevel)
	logger := zap.New(obs)

	h := RequestID(Logger(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, r, map[string]any{"bad": make(chan int)})
	})))

	req := httptest.NewRequest(http.MethodGet, "/api/reports/broken", nil)
	req.Header.Set("X-Request-ID", "req-42")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	entries := logs.FilterMessage("failed to encode response").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "/api/reports/broken", fields["path"])
	assert.Equal(t, "req-42", fields["request_id"])
	assert.Contains(t, fields["error"], "chan int")
}
