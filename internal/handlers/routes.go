package handlers

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/klauspost/compress/gzhttp"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Router wires every route. Responses other than /metrics are gzip-compressed
// when the client accepts it.
func (h *Handler) Router(gatherer prometheus.Gatherer) http.Handler {
	r := mux.NewRouter()

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/images", h.HandleImages).Methods(http.MethodGet)
	api.HandleFunc("/navigate/{key}", h.HandleNavigate).Methods(http.MethodPost)
	api.HandleFunc("/upload", h.HandleUpload).Methods(http.MethodPost)
	api.HandleFunc("/clear", h.HandleClear).Methods(http.MethodPost)

	r.HandleFunc("/blob/{id}", h.HandleBlob).Methods(http.MethodGet)
	r.HandleFunc("/healthcheck", func(w http.ResponseWriter, r *http.Request) {
		if _, err := w.Write([]byte("OK")); err != nil {
			slog.Error("Unable to write healthcheck", "err", err)
		}
	})
	r.HandleFunc("/", h.HandleIndex).Methods(http.MethodGet)

	root := http.NewServeMux()
	if gatherer != nil {
		root.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}
	root.Handle("/", gzhttp.GzipHandler(r))
	return root
}
