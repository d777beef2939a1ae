package api

import (
	"context"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/ayusman/shelfscan/internal/app"
	"github.com/ayusman/shelfscan/internal/store"
)

// maxImageSize bounds uploaded still images.
const maxImageSize = 20 << 20

// ScanHistory lists recorded scans. *store.ScanRepository satisfies it.
type ScanHistory interface {
	Recent(ctx context.Context, limit int) ([]store.Scan, error)
}

// ScanHandler drives the scan workflow over HTTP.
type ScanHandler struct {
	app     *app.App
	history ScanHistory
}

// NewScanHandler creates a ScanHandler. history may be nil.
func NewScanHandler(a *app.App, history ScanHistory) *ScanHandler {
	return &ScanHandler{app: a, history: history}
}

// Register adds the scan routes to r. Routes in write need a token.
func (h *ScanHandler) Register(r, write *mux.Router) {
	r.HandleFunc("/api/scan", h.status).Methods(http.MethodGet)
	r.HandleFunc("/api/scan/pending", h.pending).Methods(http.MethodGet)
	r.HandleFunc("/api/scans", h.recent).Methods(http.MethodGet)
	write.HandleFunc("/api/scan", h.start).Methods(http.MethodPost)
	write.HandleFunc("/api/scan", h.cancel).Methods(http.MethodDelete)
	write.HandleFunc("/api/scan/image", h.image).Methods(http.MethodPost)
	write.HandleFunc("/api/scan/pending", h.clearPending).Methods(http.MethodDelete)
}

type scanStatusResponse struct {
	Scanning bool         `json:"scanning"`
	Pending  *app.Pending `json:"pending,omitempty"`
}

// status handles GET /api/scan.
func (h *ScanHandler) status(w http.ResponseWriter, r *http.Request) {
	resp := scanStatusResponse{Scanning: h.app.Scanning()}
	if p, ok := h.app.Pending(); ok {
		resp.Pending = &p
	}
	writeJSON(w, http.StatusOK, resp)
}

// start handles POST /api/scan. It blocks until a barcode is accepted, the
// scan fails or the client goes away.
func (h *ScanHandler) start(w http.ResponseWriter, r *http.Request) {
	result, err := h.app.Scan(r.Context())
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// image handles POST /api/scan/image with a PNG or JPEG body.
func (h *ScanHandler) image(w http.ResponseWriter, r *http.Request) {
	img, _, err := image.Decode(http.MaxBytesReader(w, r.Body, maxImageSize))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Body is not a PNG or JPEG image")
		return
	}
	result, err := h.app.ScanImage(r.Context(), img)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

type cancelResponse struct {
	Cancelled bool `json:"cancelled"`
}

// cancel handles DELETE /api/scan.
func (h *ScanHandler) cancel(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, cancelResponse{Cancelled: h.app.Cancel()})
}

// pending handles GET /api/scan/pending.
func (h *ScanHandler) pending(w http.ResponseWriter, r *http.Request) {
	p, ok := h.app.Pending()
	if !ok {
		writeError(w, http.StatusNotFound, "No pending barcode")
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// clearPending handles DELETE /api/scan/pending.
func (h *ScanHandler) clearPending(w http.ResponseWriter, r *http.Request) {
	h.app.ClearPending()
	w.WriteHeader(http.StatusNoContent)
}

type recentScansResponse struct {
	Scans []store.Scan `json:"scans"`
}

// recent handles GET /api/scans?limit=N.
func (h *ScanHandler) recent(w http.ResponseWriter, r *http.Request) {
	if h.history == nil {
		writeJSON(w, http.StatusOK, recentScansResponse{Scans: []store.Scan{}})
		return
	}
	limit := 20
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 || n > 500 {
			writeError(w, http.StatusBadRequest, "limit must be between 1 and 500")
			return
		}
		limit = n
	}
	scans, err := h.history.Recent(r.Context(), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to read scan history")
		return
	}
	if scans == nil {
		scans = []store.Scan{}
	}
	writeJSON(w, http.StatusOK, recentScansResponse{Scans: scans})
}
