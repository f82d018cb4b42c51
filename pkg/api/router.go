package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"

	"github.com/igorvan/rfid-tap/pkg/database"
	"github.com/igorvan/rfid-tap/pkg/rfid"
)

const (
	defaultLimit = 20
	maxLimit     = 500
)

// Storage - read side of the tag table
type Storage interface {
	Get(ctx context.Context, uid string) (*database.TagData, error)
	Recent(ctx context.Context, limit int) ([]*database.TagData, error)
}

// Handler - read-only HTTP view over the tag table
type Handler struct {
	storage Storage
	log     database.Logger
}

// NewHandler - Handler constructor
func NewHandler(storage Storage, log database.Logger) *Handler {
	return &Handler{storage: storage, log: database.NewNullSafeLogger(log)}
}

// Router - chi router with the handler's routes mounted
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(10 * time.Second))

	r.Get("/healthz", h.health)
	r.Route("/tags", func(r chi.Router) {
		r.Get("/", h.listTags)
		r.Get("/{uid}", h.getTag)
	})
	return r
}

func (h *Handler) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) listTags(w http.ResponseWriter, r *http.Request) {
	limit := defaultLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 || n > maxLimit {
			writeError(w, http.StatusBadRequest, "limit must be between 1 and 500")
			return
		}
		limit = n
	}

	tags, err := h.storage.Recent(r.Context(), limit)
	if err != nil {
		h.log.Error("cannot list tags", "error", err)
		writeError(w, http.StatusInternalServerError, "database error")
		return
	}
	writeJSON(w, http.StatusOK, tags)
}

func (h *Handler) getTag(w http.ResponseWriter, r *http.Request) {
	raw := chi.URLParam(r, "uid")
	uid, err := rfid.DecodeUID(raw)
	if err != nil || len(uid) == 0 {
		writeError(w, http.StatusBadRequest, "uid must be hex encoded")
		return
	}

	tag, err := h.storage.Get(r.Context(), rfid.EncodeUID(uid))
	switch {
	case errors.Is(err, database.ErrNotFound):
		writeError(w, http.StatusNotFound, "unknown tag")
	case err != nil:
		h.log.Error("cannot get tag", "uid", raw, "error", err)
		writeError(w, http.StatusInternalServerError, "database error")
	default:
		writeJSON(w, http.StatusOK, tag)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
