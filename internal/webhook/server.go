// Package webhook serves the provider call-status callback plus health and
// metrics endpoints.
package webhook

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/mliyanage/kickass-morning-sub000/internal/domain"
	"github.com/mliyanage/kickass-morning-sub000/internal/metrics"
	"github.com/mliyanage/kickass-morning-sub000/internal/store"
)

// Reconciler applies a late call-status update by external call id.
type Reconciler interface {
	AttachCallUpdate(ctx context.Context, externalID string, status domain.CallStatus, durationSec int, recordingURL string) error
}

// Handler routes webhook traffic.
type Handler struct {
	reconciler Reconciler
	log        *zap.Logger
	metrics    *metrics.Collector
}

// NewRouter builds the HTTP router: call-status webhook, healthz, metrics.
func NewRouter(reconciler Reconciler, log *zap.Logger, m *metrics.Collector) *chi.Mux {
	h := &Handler{reconciler: reconciler, log: log, metrics: m}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(15 * time.Second))

	r.Post("/webhooks/call-status", h.handleCallStatus)
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) })
	r.Handle("/metrics", promhttp.Handler())
	return r
}

type callStatusPayload struct {
	CallID       string `json:"call_id"`
	Status       string `json:"status"`
	DurationSec  int    `json:"duration_sec"`
	RecordingURL string `json:"recording_url"`
}

// handleCallStatus reconciles an out-of-band provider update into call
// history and the owning schedule. Unknown call ids get 404 so the provider
// stops retrying them.
func (h *Handler) handleCallStatus(w http.ResponseWriter, r *http.Request) {
	var payload callStatusPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}
	if payload.CallID == "" {
		http.Error(w, "missing call_id", http.StatusBadRequest)
		return
	}
	status, err := domain.ParseCallStatus(payload.Status)
	if err != nil {
		http.Error(w, "unknown status", http.StatusBadRequest)
		return
	}

	err = h.reconciler.AttachCallUpdate(r.Context(), payload.CallID, status, payload.DurationSec, payload.RecordingURL)
	if errors.Is(err, store.ErrNotFound) {
		http.Error(w, "unknown call", http.StatusNotFound)
		return
	}
	if err != nil {
		h.log.Error("webhook reconcile failed",
			zap.String("callID", payload.CallID), zap.Error(err))
		http.Error(w, "reconcile failed", http.StatusInternalServerError)
		return
	}

	h.metrics.RecordWebhookUpdate()
	h.log.Info("call status reconciled",
		zap.String("callID", payload.CallID),
		zap.String("status", string(status)))
	w.WriteHeader(http.StatusNoContent)
}
