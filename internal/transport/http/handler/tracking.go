package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/payorbit-api/internal/application/invoice"
	"github.com/payorbit-api/internal/application/tracking"
	"github.com/payorbit-api/internal/transport/http/middleware"
)

// TrackingHandler exposes the reconciliation engine. Ownership is checked
// through the invoice service before touching the tracker registry.
type TrackingHandler struct {
	tracks   tracking.Service
	invoices invoice.Service
}

func NewTrackingHandler(tracks tracking.Service, invoices invoice.Service) *TrackingHandler {
	return &TrackingHandler{tracks: tracks, invoices: invoices}
}

func (h *TrackingHandler) owns(w http.ResponseWriter, r *http.Request) (string, bool) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return "", false
	}
	invoiceID := chi.URLParam(r, "id")
	if _, err := h.invoices.Get(r.Context(), claims.AccountID, invoiceID); err != nil {
		writeServiceError(w, err)
		return "", false
	}
	return invoiceID, true
}

func (h *TrackingHandler) Start(w http.ResponseWriter, r *http.Request) {
	invoiceID, ok := h.owns(w, r)
	if !ok {
		return
	}
	params, err := h.tracks.Start(r.Context(), invoiceID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, params)
}

func (h *TrackingHandler) Stop(w http.ResponseWriter, r *http.Request) {
	invoiceID, ok := h.owns(w, r)
	if !ok {
		return
	}
	if err := h.tracks.Stop(r.Context(), invoiceID); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageEnvelope{Message: "tracking stopped"})
}

func (h *TrackingHandler) Status(w http.ResponseWriter, r *http.Request) {
	invoiceID, ok := h.owns(w, r)
	if !ok {
		return
	}
	status, err := h.tracks.Status(r.Context(), invoiceID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, status)
}
