package handlers

import (
	"errors"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/lehigh-university-libraries/scangallery/internal/models"
	"github.com/lehigh-university-libraries/scangallery/internal/navigation"
)

type imagesResponse struct {
	Images []models.ImageSource `json:"images"`
}

func (h *Handler) HandleImages(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, imagesResponse{Images: h.gallery.Images()})
}

func (h *Handler) HandleClear(w http.ResponseWriter, r *http.Request) {
	h.gallery.Clear()
	h.writeJSON(w, imagesResponse{Images: []models.ImageSource{}})
}

// HandleNavigate starts the acquisition path bound to the menu key. The path
// runs in the background; results show up in the image list.
func (h *Handler) HandleNavigate(w http.ResponseWriter, r *http.Request) {
	key := mux.Vars(r)["key"]

	err := h.navigator.Go(h.baseCtx, key)
	if errors.Is(err, navigation.ErrUnknownAction) {
		h.writeError(w, err.Error(), http.StatusNotFound)
		return
	}
	if err != nil {
		h.writeError(w, err.Error(), http.StatusInternalServerError)
		return
	}

	h.writeJSONStatus(w, http.StatusAccepted, map[string]string{
		"status": "started",
		"key":    key,
	})
}
