package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/ayusman/shelfscan/internal/app"
	"github.com/ayusman/shelfscan/internal/docstore"
	"github.com/ayusman/shelfscan/internal/inventory"
	"github.com/ayusman/shelfscan/internal/logging"
)

// maxDocumentSize bounds request bodies accepted by save.
const maxDocumentSize = 10 << 20

// InventoryReplacer swaps the whole inventory. *inventory.Store satisfies
// it.
type InventoryReplacer interface {
	Replace(ctx context.Context, items []inventory.Item) ([]inventory.Item, error)
}

// DocumentHandler serves the load/save API over named JSON documents.
type DocumentHandler struct {
	store  docstore.Store
	logger *slog.Logger

	// inventoryDoc is the document the inventory persists to, if any.
	// Saves to it go through inventory so the cached items stay current.
	inventoryDoc string
	inventory    InventoryReplacer
}

// NewDocumentHandler creates a DocumentHandler backed by s.
func NewDocumentHandler(s docstore.Store, logger *slog.Logger) *DocumentHandler {
	return &DocumentHandler{store: s, logger: logging.NewComponentLogger(logger, "documents")}
}

// BindInventory routes saves of the named document through inv and
// refuses to delete it.
func (h *DocumentHandler) BindInventory(name string, inv InventoryReplacer) {
	h.inventoryDoc = name
	h.inventory = inv
}

// Register adds the document routes to r. Routes in write need a token.
func (h *DocumentHandler) Register(r, write *mux.Router) {
	r.HandleFunc("/api/load/{filename}", h.load).Methods(http.MethodGet)
	r.HandleFunc("/api/documents", h.list).Methods(http.MethodGet)
	write.HandleFunc("/api/save/{filename}", h.save).Methods(http.MethodPost)
	write.HandleFunc("/api/documents/{filename}", h.delete).Methods(http.MethodDelete)
}

// load handles GET /api/load/{filename}. An empty document reads as [].
func (h *DocumentHandler) load(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["filename"]
	if err := docstore.ValidateName(name); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid file name")
		return
	}

	data, err := h.store.Load(r.Context(), name)
	if errors.Is(err, docstore.ErrNotFound) {
		writeError(w, http.StatusNotFound, "File not found")
		return
	}
	if err != nil {
		h.logger.Error("reading document failed", slog.String("document", name), logging.Error(err))
		writeError(w, http.StatusInternalServerError, "Failed to read file")
		return
	}

	body, err := docstore.Normalize(data)
	if err != nil {
		h.logger.Error("stored document is not valid JSON", slog.String("document", name), logging.Error(err))
		writeError(w, http.StatusInternalServerError, "Failed to read file")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(body)
}

// save handles POST /api/save/{filename}. The body is stored pretty-printed.
func (h *DocumentHandler) save(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["filename"]
	if err := docstore.ValidateName(name); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid file name")
		return
	}

	raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxDocumentSize))
	if err != nil {
		writeError(w, http.StatusRequestEntityTooLarge, "Request body too large")
		return
	}
	body, err := docstore.Normalize(raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}

	if h.backsInventory(name) {
		h.saveInventory(w, r, name, body)
		return
	}

	if err := h.store.Save(r.Context(), name, body); err != nil {
		h.logger.Error("saving document failed", slog.String("document", name), logging.Error(err))
		writeError(w, http.StatusInternalServerError, "Failed to save file")
		return
	}
	h.logger.Debug("document saved", slog.String("document", name), slog.Int("bytes", len(body)))
	writeJSON(w, http.StatusOK, messageResponse{Message: "File saved successfully"})
}

func (h *DocumentHandler) backsInventory(name string) bool {
	return h.inventory != nil && h.inventoryDoc != "" && name == h.inventoryDoc
}

// saveInventory replaces the inventory with the items in body; the
// inventory persister writes the document.
func (h *DocumentHandler) saveInventory(w http.ResponseWriter, r *http.Request, name string, body []byte) {
	var items []inventory.Item
	if err := json.Unmarshal(body, &items); err != nil {
		writeError(w, http.StatusBadRequest, "Inventory document must be an array of items")
		return
	}
	stored, err := h.inventory.Replace(r.Context(), items)
	if err != nil {
		switch app.Classify(err) {
		case app.CategoryInvalidItem, app.CategoryDuplicateItem:
			writeAppError(w, err)
		default:
			h.logger.Error("saving inventory document failed", slog.String("document", name), logging.Error(err))
			writeError(w, http.StatusInternalServerError, "Failed to save file")
		}
		return
	}
	h.logger.Info("inventory replaced from document", slog.String("document", name), slog.Int("items", len(stored)))
	writeJSON(w, http.StatusOK, messageResponse{Message: "File saved successfully"})
}

type listDocumentsResponse struct {
	Driver    string              `json:"driver"`
	Documents []docstore.Document `json:"documents"`
}

// list handles GET /api/documents.
func (h *DocumentHandler) list(w http.ResponseWriter, r *http.Request) {
	docs, err := h.store.List(r.Context())
	if err != nil {
		h.logger.Error("listing documents failed", logging.Error(err))
		writeError(w, http.StatusInternalServerError, "Failed to list files")
		return
	}
	if docs == nil {
		docs = []docstore.Document{}
	}
	writeJSON(w, http.StatusOK, listDocumentsResponse{Driver: string(h.store.Driver()), Documents: docs})
}

// delete handles DELETE /api/documents/{filename}.
func (h *DocumentHandler) delete(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["filename"]
	if err := docstore.ValidateName(name); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid file name")
		return
	}
	if h.backsInventory(name) {
		writeError(w, http.StatusConflict, "File backs the inventory")
		return
	}
	removed, err := h.store.Delete(r.Context(), name)
	if err != nil {
		h.logger.Error("deleting document failed", slog.String("document", name), logging.Error(err))
		writeError(w, http.StatusInternalServerError, "Failed to delete file")
		return
	}
	if !removed {
		writeError(w, http.StatusNotFound, "File not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
