package handlers

import (
	"errors"
	"net/http"

	"github.com/lehigh-university-libraries/scangallery/internal/legacy"
)

// HandleUpload imports the first uploaded file into the gallery
func (h *Handler) HandleUpload(w http.ResponseWriter, r *http.Request) {
	file, header, err := r.FormFile("file")
	if err != nil {
		file, header, err = r.FormFile("files")
		if err != nil {
			h.writeError(w, "Failed to read file: "+err.Error(), http.StatusBadRequest)
			return
		}
	}
	defer file.Close()

	before := h.gallery.Len()
	err = h.importer.Import(header.Filename, file, h.gallery.Append)
	switch {
	case errors.Is(err, legacy.ErrTooLarge):
		h.writeError(w, err.Error(), http.StatusRequestEntityTooLarge)
		return
	case errors.Is(err, legacy.ErrNotImage):
		h.writeError(w, err.Error(), http.StatusUnsupportedMediaType)
		return
	case err != nil:
		h.writeError(w, err.Error(), http.StatusInternalServerError)
		return
	}

	response := map[string]any{
		"message": "Successfully imported 1 image",
		"images":  1,
		"index":   before,
	}

	h.writeJSON(w, response)
}
