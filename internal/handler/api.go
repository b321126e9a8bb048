package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel/codes"

	"github.com/devaloi/toastbox/internal/domain"
	"github.com/devaloi/toastbox/internal/hub"
	"github.com/devaloi/toastbox/internal/store"
	"github.com/devaloi/toastbox/internal/toast"
	"github.com/devaloi/toastbox/internal/tracing"
)

const (
	maxBodyBytes    = 64 << 10
	maxHistoryLimit = 500
)

// Health returns a simple health check handler.
func Health() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

// ListProviders returns all live providers.
func ListProviders(h *hub.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, h.ListProviders())
	}
}

// ProviderInfo returns details about a specific provider.
func ProviderInfo(h *hub.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		info := h.ProviderInfo(chi.URLParam(r, "name"))
		if info == nil {
			writeError(w, http.StatusNotFound, "provider not found")
			return
		}
		writeJSON(w, http.StatusOK, info)
	}
}

// ListToasts returns the visible toasts of a provider in display order,
// newest first unless ?order=oldest.
func ListToasts(h *hub.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		order, err := toast.ParseOrder(r.URL.Query().Get("order"))
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		toasts, err := h.Toasts(chi.URLParam(r, "name"))
		if err != nil {
			writeStoreError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, domain.NewToasts(toast.Arrange(toasts, order)))
	}
}

// AddToast creates a toast, creating the provider on first use.
func AddToast(h *hub.Hub, logger *slog.Logger) http.HandlerFunc {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return func(w http.ResponseWriter, r *http.Request) {
		name := chi.URLParam(r, "name")
		ctx, span := tracing.StartSpan(r.Context(), "toast.add")
		defer span.End()
		span.SetAttributes(tracing.AttrProvider.String(name))

		var req domain.AddRequest
		r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		span.SetAttributes(tracing.AttrVariant.String(req.Type))

		var id int64
		spec, err := req.Spec()
		if err == nil {
			id, err = h.AddToast(name, spec)
		}
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			logger.DebugContext(ctx, "add toast rejected", slog.String("provider", name), slog.Any("error", err))
			writeStoreError(w, err)
			return
		}
		span.SetAttributes(tracing.AttrToastID.Int64(id))
		writeJSON(w, http.StatusCreated, domain.AddResponse{ID: id})
	}
}

// CloseToast removes a toast. Unknown ids succeed so the call is idempotent,
// and so do unknown providers: an idle provider is torn down once its last
// toast leaves, and a repeated close must not turn into a 404.
func CloseToast(h *hub.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name := chi.URLParam(r, "name")
		id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "toast id must be an integer")
			return
		}

		_, span := tracing.StartSpan(r.Context(), "toast.close")
		defer span.End()
		span.SetAttributes(tracing.AttrProvider.String(name), tracing.AttrToastID.Int64(id))

		if _, err := h.CloseToast(name, id); err != nil && !errors.Is(err, hub.ErrProviderNotFound) {
			writeStoreError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// History returns recently closed toasts of a provider, newest first.
func History(history store.History, defaultLimit int) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := defaultLimit
		if raw := r.URL.Query().Get("limit"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil || n < 1 {
				writeError(w, http.StatusBadRequest, "limit must be a positive integer")
				return
			}
			limit = min(n, maxHistoryLimit)
		}

		entries, err := history.Recent(chi.URLParam(r, "name"), limit)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "history unavailable")
			return
		}
		if entries == nil {
			entries = []domain.HistoryEntry{}
		}
		writeJSON(w, http.StatusOK, entries)
	}
}

// writeStoreError maps hub and store errors to HTTP status codes.
func writeStoreError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, toast.ErrInvalidArgument), errors.Is(err, hub.ErrInvalidProviderName):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, hub.ErrProviderNotFound):
		writeError(w, http.StatusNotFound, "provider not found")
	case errors.Is(err, toast.ErrCapacity):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, hub.ErrTooManyProviders), errors.Is(err, toast.ErrClosed):
		writeError(w, http.StatusServiceUnavailable, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
