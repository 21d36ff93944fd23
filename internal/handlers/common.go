package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/lehigh-university-libraries/scangallery/internal/gallery"
	"github.com/lehigh-university-libraries/scangallery/internal/legacy"
	"github.com/lehigh-university-libraries/scangallery/internal/navigation"
	"github.com/lehigh-university-libraries/scangallery/internal/storage"
)

type Handler struct {
	gallery   *gallery.Gallery
	blobs     *storage.BlobStore
	importer  *legacy.Importer
	navigator *navigation.Navigator
	// acquisitions outlive the request that started them
	baseCtx context.Context
}

func New(baseCtx context.Context, g *gallery.Gallery, blobs *storage.BlobStore, importer *legacy.Importer, nav *navigation.Navigator) *Handler {
	return &Handler{
		gallery:   g,
		blobs:     blobs,
		importer:  importer,
		navigator: nav,
		baseCtx:   baseCtx,
	}
}

// Response helpers
func (h *Handler) writeJSON(w http.ResponseWriter, data interface{}) {
	h.writeJSONStatus(w, http.StatusOK, data)
}

func (h *Handler) writeJSONStatus(w http.ResponseWriter, code int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("Unable to encode JSON response", "err", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, message string, code int) {
	slog.Error(message)
	http.Error(w, message, code)
}

func (h *Handler) menu() []gallery.MenuItem {
	actions := h.navigator.Actions()
	items := make([]gallery.MenuItem, 0, len(actions))
	for _, a := range actions {
		items = append(items, gallery.MenuItem{Key: a.Key, Label: a.Label})
	}
	return items
}
