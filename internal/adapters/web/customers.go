package web

import (
	"net/http"

	"grain-orders/internal/app"
	"grain-orders/internal/core"

	"github.com/go-chi/chi/v5"
)

// apiListCustomers handles GET /api/customers.
func (h *Handler) apiListCustomers(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := core.CustomerFilter{
		Search: q.Get("search"),
		AreaID: q.Get("area"),
		View:   q.Get("view"),
		Sort:   q.Get("sort"),
		Dir:    q.Get("dir"),
	}
	customers, err := h.svc.ListCustomers(r.Context(), filter)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, customers)
}

// apiLookupCustomer handles GET /api/customers/lookup?phone=.
func (h *Handler) apiLookupCustomer(w http.ResponseWriter, r *http.Request) {
	c, err := h.svc.LookupCustomer(r.Context(), r.URL.Query().Get("phone"))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, c)
}

// apiDeleteCustomer handles DELETE /api/customers/{id}.
func (h *Handler) apiDeleteCustomer(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.DeleteCustomer(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) apiListAreas(w http.ResponseWriter, r *http.Request) {
	areas, err := h.svc.ListAreas(r.Context())
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, areas)
}

func (h *Handler) apiCreateArea(w http.ResponseWriter, r *http.Request) {
	var body app.AreaRequest
	if !decodeJSON(w, r, &body) {
		return
	}
	area, err := h.svc.CreateArea(r.Context(), body.Name)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSONStatus(w, http.StatusCreated, area)
}

// apiDeleteArea refuses with 409 while customers still reference the area.
func (h *Handler) apiDeleteArea(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.DeleteArea(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) apiListAreaRates(w http.ResponseWriter, r *http.Request) {
	rates, err := h.svc.ListAreaRates(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, rates)
}

func (h *Handler) apiSetAreaRates(w http.ResponseWriter, r *http.Request) {
	var body app.AreaRatesRequest
	if !decodeJSON(w, r, &body) {
		return
	}
	areaID := chi.URLParam(r, "id")
	if err := h.svc.SetAreaRates(r.Context(), areaID, body.Rates); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	rates, err := h.svc.ListAreaRates(r.Context(), areaID)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, rates)
}

func (h *Handler) apiListDrivers(w http.ResponseWriter, r *http.Request) {
	drivers, err := h.svc.ListDrivers(r.Context())
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, drivers)
}

func (h *Handler) apiCreateDriver(w http.ResponseWriter, r *http.Request) {
	var body core.DriverInput
	if !decodeJSON(w, r, &body) {
		return
	}
	d, err := h.svc.CreateDriver(r.Context(), body)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSONStatus(w, http.StatusCreated, d)
}

func (h *Handler) apiDeleteDriver(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.DeleteDriver(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
