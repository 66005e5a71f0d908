package handlers

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/devfolio/portfolio/internal/storage"
)

// ImageHandler streams project images out of object storage.
type ImageHandler struct {
	storage *storage.Storage
	log     zerolog.Logger
}

// ImageRouter registers the image route. A nil store answers every
// request with 404.
func ImageRouter(r chi.Router, store *storage.Storage, log zerolog.Logger) {
	handler := &ImageHandler{storage: store, log: log}
	r.Get("/images/*", handler.Get)
}

func (h *ImageHandler) Get(w http.ResponseWriter, r *http.Request) {
	if h.storage == nil {
		http.NotFound(w, r)
		return
	}

	key := chi.URLParam(r, "*")
	obj, err := h.storage.OpenImage(r.Context(), key)
	if errors.Is(err, storage.ErrObjectNotFound) {
		http.NotFound(w, r)
		return
	}
	if err != nil {
		h.log.Error().Err(err).Str("key", key).Msg("open image")
		http.Error(w, http.StatusText(http.StatusBadGateway), http.StatusBadGateway)
		return
	}
	defer obj.Body.Close()

	if obj.ContentType != "" {
		w.Header().Set("Content-Type", obj.ContentType)
	}
	if obj.Size > 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(obj.Size, 10))
	}
	w.Header().Set("Cache-Control", "public, max-age=86400")
	if _, err := io.Copy(w, obj.Body); err != nil {
		h.log.Warn().Err(err).Str("key", key).Msg("stream image")
	}
}
