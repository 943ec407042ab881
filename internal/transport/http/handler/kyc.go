package handler

import (
	"encoding/json"
	"net/http"

	"github.com/payorbit-api/internal/application/kyc"
	"github.com/payorbit-api/internal/pkg/validate"
	"github.com/payorbit-api/internal/transport/http/middleware"
)

// KYCHandler handles identity verification and virtual account endpoints.
type KYCHandler struct {
	svc kyc.Service
}

func NewKYCHandler(svc kyc.Service) *KYCHandler {
	return &KYCHandler{svc: svc}
}

func (h *KYCHandler) Initiate(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var req kyc.InitiateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validate.Struct(&req); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	result, err := h.svc.Initiate(r.Context(), claims.AccountID, &req)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *KYCHandler) Status(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	result, err := h.svc.Status(r.Context(), claims.AccountID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *KYCHandler) CreateVirtualAccount(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var req kyc.CreateVirtualAccountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	va, err := h.svc.CreateVirtualAccount(r.Context(), claims.AccountID, &req)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, va)
}

func (h *KYCHandler) GetVirtualAccount(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	va, err := h.svc.GetVirtualAccount(r.Context(), claims.AccountID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, va)
}
