package web

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"grain-orders/internal/app"
	"grain-orders/internal/core"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus/hooks/test"
)

// fakeService implements the calls these tests make; anything else panics via the nil embed
// and the Recoverer turns it into a 500.
type fakeService struct {
	app.ApplicationService
	pingErr     error
	created     *core.CreateOrderInput
	createErr   error
	deleteErr   error
	gotKey      core.LogicalOrderKey
	rolledOver  bool
	exportCalls int
}

func (f *fakeService) Ping(context.Context) error { return f.pingErr }

func (f *fakeService) CreateOrder(_ context.Context, in core.CreateOrderInput) (*core.OrderResult, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	f.created = &in
	return &core.OrderResult{Inserted: len(in.Slots)}, nil
}

func (f *fakeService) GetOrder(_ context.Context, key core.LogicalOrderKey) (*core.LogicalOrder, error) {
	f.gotKey = key
	return &core.LogicalOrder{Key: key, CustomerName: "Ravi"}, nil
}

func (f *fakeService) DeleteVariety(context.Context, string) error { return f.deleteErr }

func (f *fakeService) ExportOrders(_ context.Context, w io.Writer) error {
	f.exportCalls++
	_, err := w.Write([]byte("PK"))
	return err
}

func (f *fakeService) YearRollover(context.Context, string) (*app.RolloverResult, error) {
	f.rolledOver = true
	return &app.RolloverResult{BackupPath: "/tmp/backup.xlsx"}, nil
}

func (f *fakeService) ResolveRate(_ context.Context, productType, areaID string) (decimal.Decimal, error) {
	if areaID == "a1" {
		return decimal.NewFromInt(22), nil
	}
	return decimal.NewFromInt(20), nil
}

func newTestServer(svc *fakeService) http.Handler {
	logger, _ := test.NewNullLogger()
	return NewHandler(svc, "", logger)
}

func do(h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) errorResponse {
	t.Helper()
	var resp errorResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	return resp
}

func TestHealth(t *testing.T) {
	svc := &fakeService{}
	rec := do(newTestServer(svc), http.MethodGet, "/api/health", "")
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}

	svc.pingErr = errors.New("connection refused")
	rec = do(newTestServer(svc), http.MethodGet, "/api/health", "")
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("expected 503 when the database is down, got %d", rec.Code)
	}
}

func TestCreateOrder(t *testing.T) {
	svc := &fakeService{}
	body := `{"customer_name":"Ravi","phone":"9000000001","area_id":"a1",
		"slots":[{"product_type":"Tukdi","quantity_kg":5,"rate_per_kg":"20"},{"product_type":"Sasiya","quantity_kg":"2"}],
		"amount_paid":110}`
	rec := do(newTestServer(svc), http.MethodPost, "/api/orders", body)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("expected JSON content type, got %q", ct)
	}
	if svc.created == nil || len(svc.created.Slots) != 2 {
		t.Fatalf("service not called with both slots: %+v", svc.created)
	}
	if !svc.created.AmountPaid.Equal(decimal.NewFromInt(110)) {
		t.Errorf("expected amount paid 110, got %s", svc.created.AmountPaid)
	}
}

func TestServiceErrorMapping(t *testing.T) {
	tests := []struct {
		err    error
		status int
		code   string
	}{
		{fmt.Errorf("%w: phone must be 10 digits", core.ErrValidation), http.StatusBadRequest, "VALIDATION_ERROR"},
		{fmt.Errorf("%w: area x", core.ErrNotFound), http.StatusNotFound, "NOT_FOUND"},
		{fmt.Errorf("%w: variety in use", core.ErrRefused), http.StatusConflict, "REFUSED"},
		{errors.New("connection reset"), http.StatusInternalServerError, "INTERNAL_ERROR"},
	}
	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			svc := &fakeService{createErr: tt.err}
			rec := do(newTestServer(svc), http.MethodPost, "/api/orders", `{}`)
			if rec.Code != tt.status {
				t.Fatalf("expected %d, got %d", tt.status, rec.Code)
			}
			resp := decodeError(t, rec)
			if resp.Code != tt.code {
				t.Errorf("expected code %s, got %s", tt.code, resp.Code)
			}
			if resp.RequestID == "" {
				t.Error("expected request_id in error body")
			}
			if tt.status == http.StatusInternalServerError && strings.Contains(resp.Error, "connection") {
				t.Errorf("store error detail leaked: %q", resp.Error)
			}
		})
	}
}

func TestDeleteVarietyRefused(t *testing.T) {
	svc := &fakeService{deleteErr: fmt.Errorf("%w: Tukdi has 3 order lines", core.ErrRefused)}
	rec := do(newTestServer(svc), http.MethodDelete, "/api/varieties/Tukdi", "")
	if rec.Code != http.StatusConflict {
		t.Errorf("expected 409, got %d", rec.Code)
	}

	svc.deleteErr = nil
	rec = do(newTestServer(svc), http.MethodDelete, "/api/varieties/Tukdi", "")
	if rec.Code != http.StatusNoContent {
		t.Errorf("expected 204, got %d", rec.Code)
	}
}

func TestGetOrderReadsKeyFromQuery(t *testing.T) {
	svc := &fakeService{}
	rec := do(newTestServer(svc), http.MethodGet, "/api/orders/group?customer=c1&date=2025-03-01&sub_area=Ward+4", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	want := core.LogicalOrderKey{CustomerID: "c1", Date: "2025-03-01", SubArea: "Ward 4"}
	if svc.gotKey != want {
		t.Errorf("expected key %+v, got %+v", want, svc.gotKey)
	}
}

func TestResolveRate(t *testing.T) {
	svc := &fakeService{}
	rec := do(newTestServer(svc), http.MethodGet, "/api/rates/resolve?product=Tukdi&area=a1", "")
	var body struct {
		Rate decimal.Decimal `json:"rate_per_kg"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if !body.Rate.Equal(decimal.NewFromInt(22)) {
		t.Errorf("expected 22, got %s", body.Rate)
	}

	rec = do(newTestServer(svc), http.MethodGet, "/api/rates/resolve", "")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 without product, got %d", rec.Code)
	}
}

func TestExportOrders(t *testing.T) {
	svc := &fakeService{}
	rec := do(newTestServer(svc), http.MethodGet, "/api/export/orders.xlsx", "")
	if rec.Code != http.StatusOK || svc.exportCalls != 1 {
		t.Fatalf("expected export, got %d (calls %d)", rec.Code, svc.exportCalls)
	}
	if cd := rec.Header().Get("Content-Disposition"); !strings.HasPrefix(cd, `attachment; filename="Orders_`) {
		t.Errorf("unexpected Content-Disposition %q", cd)
	}
}

func TestYearRolloverRequiresConfirm(t *testing.T) {
	svc := &fakeService{}
	rec := do(newTestServer(svc), http.MethodPost, "/api/admin/year-rollover", `{}`)
	if rec.Code != http.StatusBadRequest || svc.rolledOver {
		t.Fatalf("expected 400 and no rollover, got %d (rolled=%v)", rec.Code, svc.rolledOver)
	}

	rec = do(newTestServer(svc), http.MethodPost, "/api/admin/year-rollover", `{"confirm":true}`)
	if rec.Code != http.StatusOK || !svc.rolledOver {
		t.Errorf("expected rollover, got %d", rec.Code)
	}
}

func TestRecovererReturnsJSON500(t *testing.T) {
	// Dashboard is not implemented by the fake, so the nil embed panics.
	rec := do(newTestServer(&fakeService{}), http.MethodGet, "/api/dashboard", "")
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
	if decodeError(t, rec).Code != "INTERNAL_ERROR" {
		t.Error("expected INTERNAL_ERROR code")
	}
}

func TestRequestIDHeader(t *testing.T) {
	h := newTestServer(&fakeService{})
	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	req.Header.Set("X-Request-ID", "abc-123")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if got := rec.Header().Get("X-Request-ID"); got != "abc-123" {
		t.Errorf("expected caller request id echoed, got %q", got)
	}
}
