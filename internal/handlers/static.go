package handlers

import (
	"bytes"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
)

// HandleIndex renders the gallery page with the navigation header
func (h *Handler) HandleIndex(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	if err := h.gallery.Render(&buf, h.menu()); err != nil {
		h.writeError(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if _, err := w.Write(buf.Bytes()); err != nil {
		h.writeError(w, "Unable to write page: "+err.Error(), http.StatusInternalServerError)
	}
}

// HandleBlob serves the bytes behind an object URL
func (h *Handler) HandleBlob(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	blob, ok := h.blobs.Get(id)
	if !ok {
		http.NotFound(w, r)
		return
	}

	w.Header().Set("Content-Type", blob.MIMEType)
	w.Header().Set("Content-Length", strconv.Itoa(len(blob.Data)))
	w.Header().Set("Cache-Control", "private, max-age=3600")
	if _, err := w.Write(blob.Data); err != nil {
		h.writeError(w, "Unable to write blob: "+err.Error(), http.StatusInternalServerError)
	}
}
