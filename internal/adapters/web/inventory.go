package web

import (
	"net/http"

	"grain-orders/internal/app"

	"github.com/go-chi/chi/v5"
)

func (h *Handler) apiGetStock(w http.ResponseWriter, r *http.Request) {
	stock, err := h.svc.GetStock(r.Context())
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, stock)
}

// apiAddStock handles POST /api/stock/{productType}/add (increment).
func (h *Handler) apiAddStock(w http.ResponseWriter, r *http.Request) {
	var body app.StockRequest
	if !decodeJSON(w, r, &body) {
		return
	}
	item, err := h.svc.AddStock(r.Context(), chi.URLParam(r, "productType"), body.Quantity)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, item)
}

// apiCorrectStock handles PUT /api/stock/{productType} (manual correction, absolute value).
func (h *Handler) apiCorrectStock(w http.ResponseWriter, r *http.Request) {
	var body app.StockRequest
	if !decodeJSON(w, r, &body) {
		return
	}
	item, err := h.svc.CorrectStock(r.Context(), chi.URLParam(r, "productType"), body.Quantity)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, item)
}

func (h *Handler) apiCreateVariety(w http.ResponseWriter, r *http.Request) {
	var body app.VarietyRequest
	if !decodeJSON(w, r, &body) {
		return
	}
	if err := h.svc.CreateVariety(r.Context(), body.ProductType); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSONStatus(w, http.StatusCreated, body)
}

// apiDeleteVariety refuses with 409 while any order line uses the variety.
func (h *Handler) apiDeleteVariety(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.DeleteVariety(r.Context(), chi.URLParam(r, "productType")); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) apiListProductRates(w http.ResponseWriter, r *http.Request) {
	rates, err := h.svc.ListProductRates(r.Context())
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, rates)
}

func (h *Handler) apiSetProductRate(w http.ResponseWriter, r *http.Request) {
	var body app.RateRequest
	if !decodeJSON(w, r, &body) {
		return
	}
	rate, err := h.svc.SetProductRate(r.Context(), chi.URLParam(r, "productType"), body.Rate)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, rate)
}

// apiResolveRate handles GET /api/rates/resolve?product=&area=.
func (h *Handler) apiResolveRate(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	product := q.Get("product")
	if product == "" {
		writeError(w, r, "product is required", "VALIDATION_ERROR", http.StatusBadRequest)
		return
	}
	rate, err := h.svc.ResolveRate(r.Context(), product, q.Get("area"))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, map[string]any{"product_type": product, "area_id": q.Get("area"), "rate_per_kg": rate})
}
