package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/payorbit-api/internal/application/auth"
	"github.com/payorbit-api/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// --- mock ---

type mockAuthSvc struct{ mock.Mock }

func (m *mockAuthSvc) Begin(ctx context.Context, req auth.BeginRequest) (*auth.BeginResult, error) {
	args := m.Called(ctx, req)
	if r, _ := args.Get(0).(*auth.BeginResult); r != nil {
		return r, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockAuthSvc) Verify(ctx context.Context, req auth.VerifyRequest) (*auth.VerifyResult, error) {
	args := m.Called(ctx, req)
	if r, _ := args.Get(0).(*auth.VerifyResult); r != nil {
		return r, args.Error(1)
	}
	return nil, args.Error(1)
}

// --- Begin ---

func TestBegin_InvalidBody(t *testing.T) {
	h := NewAuthHandler(&mockAuthSvc{})
	r := httptest.NewRequest(http.MethodPost, "/v1/auth/begin", bytes.NewBufferString("not-json"))
	rr := httptest.NewRecorder()
	h.Begin(rr, r)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestBegin_MissingEmail(t *testing.T) {
	h := NewAuthHandler(&mockAuthSvc{})
	body, _ := json.Marshal(auth.BeginRequest{DisplayName: "Shop"})
	r := httptest.NewRequest(http.MethodPost, "/v1/auth/begin", bytes.NewReader(body))
	rr := httptest.NewRecorder()
	h.Begin(rr, r)
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
}

func TestBegin_ProviderDown(t *testing.T) {
	svc := &mockAuthSvc{}
	svc.On("Begin", mock.Anything, mock.Anything).Return(nil, domain.ErrProviderUnavailable)
	h := NewAuthHandler(svc)
	body, _ := json.Marshal(auth.BeginRequest{Email: "m@shop.com"})
	r := httptest.NewRequest(http.MethodPost, "/v1/auth/begin", bytes.NewReader(body))
	rr := httptest.NewRecorder()
	h.Begin(rr, r)
	assert.Equal(t, http.StatusBadGateway, rr.Code)
}

func TestBegin_HappyPath(t *testing.T) {
	svc := &mockAuthSvc{}
	svc.On("Begin", mock.Anything, auth.BeginRequest{Email: "m@shop.com"}).Return(&auth.BeginResult{
		IsNewAccount: true,
		SessionID:    "sess1",
		ExpiresAt:    time.Now().Add(10 * time.Minute),
	}, nil)
	h := NewAuthHandler(svc)
	body, _ := json.Marshal(auth.BeginRequest{Email: "m@shop.com"})
	r := httptest.NewRequest(http.MethodPost, "/v1/auth/begin", bytes.NewReader(body))
	rr := httptest.NewRecorder()
	h.Begin(rr, r)

	assert.Equal(t, http.StatusOK, rr.Code)
	var resp auth.BeginResult
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	assert.True(t, resp.IsNewAccount)
	svc.AssertExpectations(t)
}

// --- Verify ---

func TestVerify_ExpiredWindow_MapsToGone(t *testing.T) {
	svc := &mockAuthSvc{}
	svc.On("Verify", mock.Anything, mock.Anything).Return(nil, domain.ErrExpired)
	h := NewAuthHandler(svc)
	body, _ := json.Marshal(auth.VerifyRequest{Email: "m@shop.com", Code: "123456"})
	r := httptest.NewRequest(http.MethodPost, "/v1/auth/verify", bytes.NewReader(body))
	rr := httptest.NewRecorder()
	h.Verify(rr, r)
	assert.Equal(t, http.StatusGone, rr.Code)
}

func TestVerify_WrongCode_MapsToUnauthorized(t *testing.T) {
	svc := &mockAuthSvc{}
	svc.On("Verify", mock.Anything, mock.Anything).Return(nil, domain.ErrUnauthorized)
	h := NewAuthHandler(svc)
	body, _ := json.Marshal(auth.VerifyRequest{Email: "m@shop.com", Code: "000000"})
	r := httptest.NewRequest(http.MethodPost, "/v1/auth/verify", bytes.NewReader(body))
	rr := httptest.NewRecorder()
	h.Verify(rr, r)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestVerify_HappyPath(t *testing.T) {
	svc := &mockAuthSvc{}
	svc.On("Verify", mock.Anything, auth.VerifyRequest{Email: "m@shop.com", Code: "123456"}).Return(&auth.VerifyResult{
		Account:      &domain.Account{AccountID: "m1", Email: "m@shop.com"},
		IsNewAccount: true,
		Bearer:       "bearer-token",
	}, nil)
	h := NewAuthHandler(svc)
	body, _ := json.Marshal(auth.VerifyRequest{Email: "m@shop.com", Code: "123456"})
	r := httptest.NewRequest(http.MethodPost, "/v1/auth/verify", bytes.NewReader(body))
	rr := httptest.NewRecorder()
	h.Verify(rr, r)

	assert.Equal(t, http.StatusOK, rr.Code)
	var resp AuthEnvelope
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	assert.Equal(t, "bearer-token", resp.Bearer)
	assert.Equal(t, "m1", resp.Account.AccountID)
	svc.AssertExpectations(t)
}
