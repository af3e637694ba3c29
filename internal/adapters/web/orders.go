package web

import (
	"bytes"
	"net/http"

	"grain-orders/internal/app"
	"grain-orders/internal/core"

	"github.com/go-chi/chi/v5"
)

// apiListOrders handles GET /api/orders.
func (h *Handler) apiListOrders(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := core.OrderFilter{
		Name:    q.Get("name"),
		Phone:   q.Get("phone"),
		AreaID:  q.Get("area"),
		SubArea: q.Get("sub_area"),
		Payment: q.Get("payment"),
	}
	result, err := h.svc.ListOrders(r.Context(), filter)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, result)
}

// apiCreateOrder handles POST /api/orders.
func (h *Handler) apiCreateOrder(w http.ResponseWriter, r *http.Request) {
	var body core.CreateOrderInput
	if !decodeJSON(w, r, &body) {
		return
	}
	result, err := h.svc.CreateOrder(r.Context(), body)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSONStatus(w, http.StatusCreated, result)
}

// apiGetOrder handles GET /api/orders/group.
func (h *Handler) apiGetOrder(w http.ResponseWriter, r *http.Request) {
	order, err := h.svc.GetOrder(r.Context(), keyFromQuery(r))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, order)
}

// apiEditOrder handles PUT /api/orders/group.
func (h *Handler) apiEditOrder(w http.ResponseWriter, r *http.Request) {
	var body core.EditOrderInput
	if !decodeJSON(w, r, &body) {
		return
	}
	result, err := h.svc.EditOrder(r.Context(), body)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, result)
}

// apiDeleteOrder handles DELETE /api/orders/group.
func (h *Handler) apiDeleteOrder(w http.ResponseWriter, r *http.Request) {
	n, err := h.svc.DeleteOrder(r.Context(), keyFromQuery(r))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, map[string]int64{"deleted": n})
}

// apiSetOrderStatus handles POST /api/orders/group/status.
func (h *Handler) apiSetOrderStatus(w http.ResponseWriter, r *http.Request) {
	var body app.StatusRequest
	if !decodeJSON(w, r, &body) {
		return
	}
	n, err := h.svc.SetOrderStatus(r.Context(), body.Key, body.Status)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, map[string]int64{"updated": n})
}

// apiDeleteLine handles DELETE /api/orders/lines/{id}.
func (h *Handler) apiDeleteLine(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.DeleteOrderLine(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// apiSlip handles GET /api/orders/group/slip.
func (h *Handler) apiSlip(w http.ResponseWriter, r *http.Request) {
	h.renderSlips(w, r, []core.LogicalOrderKey{keyFromQuery(r)})
}

// apiSlips handles POST /api/orders/slips.
func (h *Handler) apiSlips(w http.ResponseWriter, r *http.Request) {
	var body app.SlipsRequest
	if !decodeJSON(w, r, &body) {
		return
	}
	h.renderSlips(w, r, body.Keys)
}

func (h *Handler) renderSlips(w http.ResponseWriter, r *http.Request, keys []core.LogicalOrderKey) {
	var buf bytes.Buffer
	if err := h.svc.PrintSlips(r.Context(), &buf, keys); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = buf.WriteTo(w)
}

// apiSubAreas handles GET /api/sub-areas.
func (h *Handler) apiSubAreas(w http.ResponseWriter, r *http.Request) {
	subs, err := h.svc.SubAreas(r.Context())
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, subs)
}
