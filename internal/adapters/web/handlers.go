package web

import (
	"encoding/json"
	"errors"
	"net/http"

	"grain-orders/internal/app"
	"grain-orders/internal/core"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"
)

// Handler holds the ApplicationService and the chi router.
type Handler struct {
	svc    app.ApplicationService
	logger *logrus.Logger
	router chi.Router
}

// NewHandler creates and wires the chi router with all routes.
func NewHandler(svc app.ApplicationService, allowedOrigins string, logger *logrus.Logger) http.Handler {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	h := &Handler{svc: svc, logger: logger}

	r := chi.NewRouter()
	r.Use(RequestID)
	r.Use(Logger(logger))
	r.Use(Recoverer(logger))
	r.Use(CORS(allowedOrigins))

	r.Get("/api/health", h.health)

	r.Group(func(r chi.Router) {
		r.Use(RequestBodyLimit(1 << 20)) // 1 MB

		r.Get("/api/dashboard", h.apiDashboard)

		// ── Areas and rates ───────────────────────────────────────────────────
		r.Get("/api/areas", h.apiListAreas)
		r.Post("/api/areas", h.apiCreateArea)
		r.Delete("/api/areas/{id}", h.apiDeleteArea)
		r.Get("/api/areas/{id}/rates", h.apiListAreaRates)
		r.Put("/api/areas/{id}/rates", h.apiSetAreaRates)
		r.Get("/api/rates", h.apiListProductRates)
		r.Get("/api/rates/resolve", h.apiResolveRate)
		r.Put("/api/rates/{productType}", h.apiSetProductRate)

		// ── Customers and drivers ─────────────────────────────────────────────
		r.Get("/api/customers", h.apiListCustomers)
		r.Get("/api/customers/lookup", h.apiLookupCustomer)
		r.Delete("/api/customers/{id}", h.apiDeleteCustomer)
		r.Get("/api/drivers", h.apiListDrivers)
		r.Post("/api/drivers", h.apiCreateDriver)
		r.Delete("/api/drivers/{id}", h.apiDeleteDriver)
		r.Get("/api/sub-areas", h.apiSubAreas)

		// ── Stock and varieties ───────────────────────────────────────────────
		r.Get("/api/stock", h.apiGetStock)
		r.Post("/api/stock/{productType}/add", h.apiAddStock)
		r.Put("/api/stock/{productType}", h.apiCorrectStock)
		r.Post("/api/varieties", h.apiCreateVariety)
		r.Delete("/api/varieties/{productType}", h.apiDeleteVariety)

		// ── Orders ────────────────────────────────────────────────────────────
		r.Get("/api/orders", h.apiListOrders)
		r.Post("/api/orders", h.apiCreateOrder)
		r.Get("/api/orders/group", h.apiGetOrder)
		r.Put("/api/orders/group", h.apiEditOrder)
		r.Delete("/api/orders/group", h.apiDeleteOrder)
		r.Post("/api/orders/group/status", h.apiSetOrderStatus)
		r.Get("/api/orders/group/slip", h.apiSlip)
		r.Post("/api/orders/slips", h.apiSlips)
		r.Delete("/api/orders/lines/{id}", h.apiDeleteLine)

		// ── Expenses, reports, exports ────────────────────────────────────────
		r.Get("/api/expenses", h.apiListExpenses)
		r.Post("/api/expenses", h.apiAddExpense)
		r.Delete("/api/expenses/{id}", h.apiDeleteExpense)
		r.Get("/api/reports/summary", h.apiReportSummary)
		r.Get("/api/export/orders.xlsx", h.apiExportOrders)
		r.Get("/api/export/drivers.xlsx", h.apiExportDrivers)
		r.Get("/api/export/report.xlsx", h.apiExportReport)
		r.Get("/api/export/backup.xlsx", h.apiExportBackup)
		r.Post("/api/admin/year-rollover", h.apiYearRollover)
	})

	h.router = r
	return r
}

// health reports whether the database answers.
func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	type response struct {
		Status   string `json:"status"`
		Database string `json:"database"`
	}
	if err := h.svc.Ping(r.Context()); err != nil {
		h.logger.WithError(err).Warn("health: database ping failed")
		writeJSONStatus(w, http.StatusServiceUnavailable, response{Status: "degraded", Database: "unreachable"})
		return
	}
	writeJSON(w, response{Status: "ok", Database: "ok"})
}

// keyFromQuery reads a logical order key from ?customer=&date=&sub_area=.
func keyFromQuery(r *http.Request) core.LogicalOrderKey {
	q := r.URL.Query()
	return core.LogicalOrderKey{
		CustomerID: q.Get("customer"),
		Date:       q.Get("date"),
		SubArea:    q.Get("sub_area"),
	}
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
