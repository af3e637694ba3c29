package web

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"grain-orders/internal/app"
	"grain-orders/internal/export"

	"github.com/go-chi/chi/v5"
)

func (h *Handler) apiDashboard(w http.ResponseWriter, r *http.Request) {
	d, err := h.svc.Dashboard(r.Context())
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, d)
}

// apiReportSummary handles GET /api/reports/summary.
func (h *Handler) apiReportSummary(w http.ResponseWriter, r *http.Request) {
	report, err := h.svc.BusinessReport(r.Context())
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, report)
}

func (h *Handler) apiListExpenses(w http.ResponseWriter, r *http.Request) {
	expenses, err := h.svc.ListExpenses(r.Context())
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	summary, err := h.svc.ExpenseSummary(r.Context())
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	type response struct {
		Expenses any `json:"expenses"`
		Summary  any `json:"summary"`
	}
	writeJSON(w, response{Expenses: expenses, Summary: summary})
}

func (h *Handler) apiAddExpense(w http.ResponseWriter, r *http.Request) {
	var body app.ExpenseRequest
	if !decodeJSON(w, r, &body) {
		return
	}
	e, err := h.svc.AddExpense(r.Context(), body.Reason, body.Amount)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSONStatus(w, http.StatusCreated, e)
}

func (h *Handler) apiDeleteExpense(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.DeleteExpense(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ── Spreadsheet downloads ─────────────────────────────────────────────────────

// writeWorkbook buffers the workbook so a failure can still be reported as JSON.
func (h *Handler) writeWorkbook(w http.ResponseWriter, r *http.Request, name string,
	fn func(ctx context.Context, w io.Writer) error) {
	var buf bytes.Buffer
	if err := fn(r.Context(), &buf); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	filename := fmt.Sprintf("%s_%s.xlsx", name, time.Now().Format("2006-01-02"))
	w.Header().Set("Content-Type", export.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	_, _ = buf.WriteTo(w)
}

func (h *Handler) apiExportOrders(w http.ResponseWriter, r *http.Request) {
	h.writeWorkbook(w, r, "Orders", h.svc.ExportOrders)
}

func (h *Handler) apiExportDrivers(w http.ResponseWriter, r *http.Request) {
	h.writeWorkbook(w, r, "Drivers", h.svc.ExportDrivers)
}

func (h *Handler) apiExportReport(w http.ResponseWriter, r *http.Request) {
	h.writeWorkbook(w, r, "Orders_Report", h.svc.ExportReport)
}

func (h *Handler) apiExportBackup(w http.ResponseWriter, r *http.Request) {
	h.writeWorkbook(w, r, "Backup", h.svc.ExportBackup)
}

// apiYearRollover handles POST /api/admin/year-rollover. The body must carry
// {"confirm": true}; the backup is written to the server's backup directory.
func (h *Handler) apiYearRollover(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Confirm bool `json:"confirm"`
	}
	if !decodeJSON(w, r, &body) {
		return
	}
	if !body.Confirm {
		writeError(w, r, "year rollover deletes all orders and expenses; send confirm=true", "VALIDATION_ERROR", http.StatusBadRequest)
		return
	}
	result, err := h.svc.YearRollover(r.Context(), "")
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, result)
}
