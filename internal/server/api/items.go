package api

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"github.com/ayusman/shelfscan/internal/app"
	"github.com/ayusman/shelfscan/internal/inventory"
)

// PendingBarcode is the part of the scan workflow the item form uses.
type PendingBarcode interface {
	Pending() (app.Pending, bool)
	ClearPending()
}

// ItemHandler handles HTTP requests for inventory items.
type ItemHandler struct {
	inv     *inventory.Store
	pending PendingBarcode
}

// NewItemHandler creates an ItemHandler. pending may be nil.
func NewItemHandler(inv *inventory.Store, pending PendingBarcode) *ItemHandler {
	return &ItemHandler{inv: inv, pending: pending}
}

// Register adds the item routes to r. Routes in write need a token.
func (h *ItemHandler) Register(r, write *mux.Router) {
	r.HandleFunc("/api/items", h.list).Methods(http.MethodGet)
	r.HandleFunc("/api/items/{reference}", h.get).Methods(http.MethodGet)
	write.HandleFunc("/api/items", h.create).Methods(http.MethodPost)
	write.HandleFunc("/api/items/{reference}", h.update).Methods(http.MethodPut, http.MethodPatch)
	write.HandleFunc("/api/items/{reference}", h.delete).Methods(http.MethodDelete)
}

type createItemRequest struct {
	Barcode  string  `json:"barcode"`
	Name     string  `json:"name"`
	Quantity int     `json:"quantity"`
	Price    float64 `json:"price"`
}

type listItemsResponse struct {
	Items []inventory.Item `json:"items"`
}

// list handles GET /api/items. ?barcode= narrows the result to one code.
func (h *ItemHandler) list(w http.ResponseWriter, r *http.Request) {
	if barcode := r.URL.Query().Get("barcode"); barcode != "" {
		items := []inventory.Item{}
		if item, ok := h.inv.FindByBarcode(barcode); ok {
			items = append(items, item)
		}
		writeJSON(w, http.StatusOK, listItemsResponse{Items: items})
		return
	}
	items := h.inv.List()
	if items == nil {
		items = []inventory.Item{}
	}
	writeJSON(w, http.StatusOK, listItemsResponse{Items: items})
}

// get handles GET /api/items/{reference}.
func (h *ItemHandler) get(w http.ResponseWriter, r *http.Request) {
	item, err := h.inv.Get(mux.Vars(r)["reference"])
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

// create handles POST /api/items. A missing barcode is taken from the
// pending scan.
func (h *ItemHandler) create(w http.ResponseWriter, r *http.Request) {
	var req createItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	fromPending := false
	if strings.TrimSpace(req.Barcode) == "" && h.pending != nil {
		if p, ok := h.pending.Pending(); ok {
			req.Barcode = p.Barcode
			fromPending = true
		}
	}

	item, err := h.inv.Add(r.Context(), inventory.Item{
		Barcode:  req.Barcode,
		Name:     req.Name,
		Quantity: req.Quantity,
		Price:    req.Price,
	})
	if err != nil {
		writeAppError(w, err)
		return
	}

	if h.pending != nil {
		if p, ok := h.pending.Pending(); ok && (fromPending || p.Barcode == item.Barcode) {
			h.pending.ClearPending()
		}
	}
	writeJSON(w, http.StatusCreated, item)
}

// update handles PUT and PATCH /api/items/{reference}.
func (h *ItemHandler) update(w http.ResponseWriter, r *http.Request) {
	var patch inventory.Patch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	item, err := h.inv.Update(r.Context(), mux.Vars(r)["reference"], patch)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

// delete handles DELETE /api/items/{reference}.
func (h *ItemHandler) delete(w http.ResponseWriter, r *http.Request) {
	if _, err := h.inv.Remove(r.Context(), mux.Vars(r)["reference"]); err != nil {
		writeAppError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
