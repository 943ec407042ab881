package grid

import (
	"bytes"
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/payorbit-api/internal/config"
	"github.com/payorbit-api/internal/domain"
)

// Client talks to the Grid payment-rail API. Transport failures and malformed
// payloads surface as domain.ErrProviderUnavailable; a rejected OTP surfaces
// as domain.ErrUnauthorized. The HTTP client carries a timeout so a hung
// provider call cannot stall a poll cycle forever.
type Client struct {
	httpClient  *http.Client
	baseURL     string
	apiKey      string
	environment string
}

func NewClient(cfg *config.Config) *Client {
	return &Client{
		httpClient:  &http.Client{Timeout: cfg.GridHTTPTimeout},
		baseURL:     cfg.GridBaseURL,
		apiKey:      cfg.GridAPIKey,
		environment: cfg.GridEnvironment,
	}
}

// GenerateSessionSecrets produces a fresh opaque secret blob for one
// challenge/response round trip. The provider treats it as an opaque
// client-held value; it is stored alongside the session and echoed back on
// completion.
func (c *Client) GenerateSessionSecrets() (json.RawMessage, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return nil, fmt.Errorf("generate session secrets: %w", err)
	}
	secrets, err := json.Marshal(map[string]string{
		"secret": base64.StdEncoding.EncodeToString(b),
	})
	if err != nil {
		return nil, err
	}
	return secrets, nil
}

// CreateAccount registers a brand-new email account with the provider, which
// sends an OTP out of band. An "already exists" rejection comes back as a
// plain error so the caller can fall back to InitAuth.
func (c *Client) CreateAccount(ctx context.Context, email string) error {
	env, err := c.post(ctx, "/api/grid/v1/accounts", map[string]string{"email": email})
	if err != nil {
		return err
	}
	if !env.Success {
		return fmt.Errorf("create account rejected: %s", env.Error)
	}
	return nil
}

// InitAuth requests a login challenge for an existing account; the provider
// sends an OTP out of band.
func (c *Client) InitAuth(ctx context.Context, email string) error {
	env, err := c.post(ctx, "/api/grid/v1/auth/init", map[string]string{"email": email})
	if err != nil {
		return err
	}
	if !env.Success {
		return fmt.Errorf("init auth rejected: %s: %w", env.Error, domain.ErrProviderUnavailable)
	}
	return nil
}

// CompleteAuthAndCreateAccount finishes a first-time verification, creating
// the provider-side account. No signers are supplied.
func (c *Client) CompleteAuthAndCreateAccount(ctx context.Context, in CompleteAuthInput) (*AuthenticatedAccount, error) {
	return c.completeAuth(ctx, "/api/grid/v1/auth/complete-and-create", in)
}

// CompleteAuth finishes a login verification for an existing account; the
// stored signers (possibly an empty list) must be supplied.
func (c *Client) CompleteAuth(ctx context.Context, in CompleteAuthInput) (*AuthenticatedAccount, error) {
	return c.completeAuth(ctx, "/api/grid/v1/auth/complete", in)
}

func (c *Client) completeAuth(ctx context.Context, path string, in CompleteAuthInput) (*AuthenticatedAccount, error) {
	body := map[string]interface{}{
		"user":            map[string]interface{}{"email": in.Email},
		"otp_code":        in.Code,
		"session_secrets": in.SessionSecrets,
	}
	if in.Signers != nil {
		body["user"] = map[string]interface{}{"email": in.Email, "signers": in.Signers}
	}
	env, err := c.post(ctx, path, body)
	if err != nil {
		return nil, err
	}
	if !env.Success {
		return nil, fmt.Errorf("verification rejected: %s: %w", env.Error, domain.ErrUnauthorized)
	}
	var acct AuthenticatedAccount
	if err := json.Unmarshal(env.Data, &acct); err != nil {
		return nil, fmt.Errorf("decode authenticated account: %w", domain.ErrProviderUnavailable)
	}
	if acct.Address == "" || acct.AccountID == "" {
		return nil, fmt.Errorf("authenticated account missing address or id: %w", domain.ErrProviderUnavailable)
	}
	return &acct, nil
}

// ListTransfers returns settled transfers to a receiving address, optionally
// filtered by provider status and capped at q.Limit.
func (c *Client) ListTransfers(ctx context.Context, address string, q TransferQuery) ([]Transfer, error) {
	params := url.Values{}
	if q.Status != "" {
		params.Set("status", q.Status)
	}
	if q.Limit > 0 {
		params.Set("limit", strconv.Itoa(q.Limit))
	}
	path := fmt.Sprintf("/api/grid/v1/accounts/%s/transfers", url.PathEscape(address))
	if len(params) > 0 {
		path += "?" + params.Encode()
	}
	env, err := c.get(ctx, path)
	if err != nil {
		return nil, err
	}
	if !env.Success {
		return nil, fmt.Errorf("list transfers rejected: %s: %w", env.Error, domain.ErrProviderUnavailable)
	}
	var transfers []Transfer
	if err := json.Unmarshal(env.Data, &transfers); err != nil {
		return nil, fmt.Errorf("decode transfers: %w", domain.ErrProviderUnavailable)
	}
	for _, t := range transfers {
		if t.ID == "" || t.Amount == "" {
			return nil, fmt.Errorf("transfer missing id or amount: %w", domain.ErrProviderUnavailable)
		}
	}
	return transfers, nil
}

// RequestKYCLink asks for a hosted KYC verification link for an account.
func (c *Client) RequestKYCLink(ctx context.Context, address string, req KYCRequest) (*KYCLink, error) {
	path := fmt.Sprintf("/api/grid/v1/accounts/%s/kyc", url.PathEscape(address))
	env, err := c.post(ctx, path, req)
	if err != nil {
		return nil, err
	}
	if !env.Success {
		return nil, fmt.Errorf("kyc link rejected: %s: %w", env.Error, domain.ErrProviderUnavailable)
	}
	var link KYCLink
	if err := json.Unmarshal(env.Data, &link); err != nil || link.ID == "" {
		return nil, fmt.Errorf("decode kyc link: %w", domain.ErrProviderUnavailable)
	}
	return &link, nil
}

// GetKYCStatus returns the provider's current KYC status for an account.
func (c *Client) GetKYCStatus(ctx context.Context, address, kycID string) (string, error) {
	path := fmt.Sprintf("/api/grid/v1/accounts/%s/kyc/%s", url.PathEscape(address), url.PathEscape(kycID))
	env, err := c.get(ctx, path)
	if err != nil {
		return "", err
	}
	if !env.Success {
		return "", fmt.Errorf("kyc status rejected: %s: %w", env.Error, domain.ErrProviderUnavailable)
	}
	var data struct {
		Status string `json:"status"`
	}
	if err := json.Unmarshal(env.Data, &data); err != nil || data.Status == "" {
		return "", fmt.Errorf("decode kyc status: %w", domain.ErrProviderUnavailable)
	}
	return data.Status, nil
}

// RequestVirtualAccount issues a fiat virtual receiving account tied to the
// merchant's provider account.
func (c *Client) RequestVirtualAccount(ctx context.Context, address, providerAccountID, currency string) (*VirtualAccountData, error) {
	path := fmt.Sprintf("/api/grid/v1/accounts/%s/virtual-accounts", url.PathEscape(address))
	env, err := c.post(ctx, path, map[string]string{
		"grid_user_id": providerAccountID,
		"currency":     currency,
	})
	if err != nil {
		return nil, err
	}
	if !env.Success {
		return nil, fmt.Errorf("virtual account rejected: %s: %w", env.Error, domain.ErrProviderUnavailable)
	}
	var va VirtualAccountData
	if err := json.Unmarshal(env.Data, &va); err != nil || va.ID == "" {
		return nil, fmt.Errorf("decode virtual account: %w", domain.ErrProviderUnavailable)
	}
	return &va, nil
}

func (c *Client) post(ctx context.Context, path string, body interface{}) (*envelope, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req)
}

func (c *Client) get(ctx context.Context, path string) (*envelope, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, err
	}
	return c.do(req)
}

func (c *Client) do(req *http.Request) (*envelope, error) {
	req.Header.Set("x-grid-api-key", c.apiKey)
	req.Header.Set("x-grid-environment", c.environment)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("grid request failed: %w", domain.ErrProviderUnavailable)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusInternalServerError {
		return nil, fmt.Errorf("grid returned %d: %w", resp.StatusCode, domain.ErrProviderUnavailable)
	}

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return nil, fmt.Errorf("decode grid response: %w", domain.ErrProviderUnavailable)
	}
	return &env, nil
}
