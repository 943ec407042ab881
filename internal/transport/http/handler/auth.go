package handler

import (
	"encoding/json"
	"net/http"

	"github.com/payorbit-api/internal/application/auth"
	"github.com/payorbit-api/internal/pkg/validate"
)

// AuthHandler handles the OTP verification endpoints.
type AuthHandler struct {
	svc auth.Service
}

func NewAuthHandler(svc auth.Service) *AuthHandler {
	return &AuthHandler{svc: svc}
}

// Begin starts (or restarts) an OTP challenge for an email address.
func (h *AuthHandler) Begin(w http.ResponseWriter, r *http.Request) {
	var req auth.BeginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validate.Struct(&req); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	result, err := h.svc.Begin(r.Context(), req)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// Verify submits the OTP code and, on success, returns the merchant account
// plus a Bearer token.
func (h *AuthHandler) Verify(w http.ResponseWriter, r *http.Request) {
	var req auth.VerifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validate.Struct(&req); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	result, err := h.svc.Verify(r.Context(), req)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, AuthEnvelope{
		Bearer:       result.Bearer,
		Account:      result.Account,
		IsNewAccount: result.IsNewAccount,
	})
}
