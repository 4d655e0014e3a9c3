package handlers

import (
	"Whisper/internal/storage"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// ObjectHandler раздаёт объекты локального хранилища по публичным ссылкам.
type ObjectHandler struct {
	Store  storage.ObjectStore
	Logger *zap.SugaredLogger
}

func NewObjectHandler(store storage.ObjectStore, logger *zap.SugaredLogger) *ObjectHandler {
	return &ObjectHandler{Store: store, Logger: logger}
}

// Serve отдаёт /objects/<path>. Выход за корень хранилища - 404.
func (h *ObjectHandler) Serve(w http.ResponseWriter, r *http.Request) {
	p, err := storage.CleanPath(chi.URLParam(r, "*"))
	if err != nil {
		http.NotFound(w, r)
		return
	}
	obj, err := h.Store.Get(r.Context(), p)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) {
			http.NotFound(w, r)
			return
		}
		h.Logger.Errorw("ServeObject: storage error", "path", p, "error", err)
		http.Error(w, "internal error", http.StatusBadGateway)
		return
	}
	w.Header().Set("Content-Type", obj.ContentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(obj.Data)))
	w.Header().Set("Cache-Control", "public, max-age=31536000, immutable")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(obj.Data)
}
