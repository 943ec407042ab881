package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/payorbit-api/internal/domain"
	"github.com/payorbit-api/internal/infrastructure/grid"
	"github.com/payorbit-api/internal/pkg/id"
)

type BeginRequest struct {
	Email       string `json:"email" validate:"required,email"`
	DisplayName string `json:"display_name"`
}

type VerifyRequest struct {
	Email string `json:"email" validate:"required,email"`
	Code  string `json:"code" validate:"required"`
}

type BeginResult struct {
	IsNewAccount bool      `json:"is_new_account"`
	SessionID    string    `json:"session_id"`
	ExpiresAt    time.Time `json:"expires_at"`
}

type VerifyResult struct {
	Account      *domain.Account `json:"account"`
	IsNewAccount bool            `json:"is_new_account"`
	Bearer       string          `json:"-"`
}

// Service drives the email OTP challenge/response protocol against the
// payment provider. Begin issues (or re-issues) a challenge; Verify completes
// it and materializes the merchant Account on first success.
type Service interface {
	Begin(ctx context.Context, req BeginRequest) (*BeginResult, error)
	Verify(ctx context.Context, req VerifyRequest) (*VerifyResult, error)
}

// accountProvider is the slice of the Grid client the sequencer needs.
type accountProvider interface {
	GenerateSessionSecrets() (json.RawMessage, error)
	CreateAccount(ctx context.Context, email string) error
	InitAuth(ctx context.Context, email string) error
	CompleteAuthAndCreateAccount(ctx context.Context, in grid.CompleteAuthInput) (*grid.AuthenticatedAccount, error)
	CompleteAuth(ctx context.Context, in grid.CompleteAuthInput) (*grid.AuthenticatedAccount, error)
}

type sessionStore interface {
	Put(ctx context.Context, s *domain.AuthSession) error
	Get(ctx context.Context, email string) (*domain.AuthSession, error)
	Delete(ctx context.Context, email string) error
	MarkVerified(ctx context.Context, email string, signers []json.RawMessage, verifiedAt int64) error
}

type accountStore interface {
	GetByEmail(ctx context.Context, email string) (*domain.Account, error)
	Put(ctx context.Context, a *domain.Account) error
}

type tokenSigner interface {
	Sign(accountID, email, sessionID string) (string, error)
}

// ServiceDeps wires the sequencer's collaborators. Signer may be nil, in
// which case Verify returns an empty bearer token.
type ServiceDeps struct {
	Provider    accountProvider
	SessionRepo sessionStore
	AccountRepo accountStore
	Signer      tokenSigner
	OTPExpiry   time.Duration
}

type service struct {
	provider  accountProvider
	sessions  sessionStore
	accounts  accountStore
	signer    tokenSigner
	otpExpiry time.Duration
}

func NewService(deps ServiceDeps) Service {
	return &service{
		provider:  deps.Provider,
		sessions:  deps.SessionRepo,
		accounts:  deps.AccountRepo,
		signer:    deps.Signer,
		otpExpiry: deps.OTPExpiry,
	}
}

// Begin tries the new-account registration path first; if the provider
// rejects it (typically because the account already exists) it falls back to
// a login challenge. Either way the pending session for this email is
// replaced, restarting the OTP window. This is how "resend code" works.
func (s *service) Begin(ctx context.Context, req BeginRequest) (*BeginResult, error) {
	secrets, err := s.provider.GenerateSessionSecrets()
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	sess := &domain.AuthSession{
		Email:          req.Email,
		SessionID:      id.New(),
		DisplayName:    req.DisplayName,
		SessionSecrets: secrets,
		Signers:        []json.RawMessage{},
		OTPSentAt:      now.Unix(),
		ExpiresAt:      now.Add(s.otpExpiry).Unix(),
	}

	if err := s.provider.CreateAccount(ctx, req.Email); err == nil {
		sess.Status = domain.AuthAwaitingNew
		if delErr := s.sessions.Delete(ctx, req.Email); delErr != nil {
			slog.Warn("failed to delete previous auth session", "email", req.Email, "err", delErr)
		}
		if err := s.sessions.Put(ctx, sess); err != nil {
			return nil, err
		}
		return &BeginResult{IsNewAccount: true, SessionID: sess.SessionID, ExpiresAt: time.Unix(sess.ExpiresAt, 0).UTC()}, nil
	}

	// Registration was rejected, so assume the account exists and request a
	// login challenge instead.
	if err := s.provider.InitAuth(ctx, req.Email); err != nil {
		return nil, fmt.Errorf("login challenge failed: %w", err)
	}

	// Keep signers from a previous verified session so login completion can
	// present them to the provider.
	if prior, err := s.sessions.Get(ctx, req.Email); err == nil {
		sess.Signers = prior.Signers
		if sess.DisplayName == "" {
			sess.DisplayName = prior.DisplayName
		}
	}
	sess.Status = domain.AuthAwaitingLogin
	if err := s.sessions.Put(ctx, sess); err != nil {
		return nil, err
	}
	return &BeginResult{IsNewAccount: false, SessionID: sess.SessionID, ExpiresAt: time.Unix(sess.ExpiresAt, 0).UTC()}, nil
}

// Verify completes the pending challenge. A wrong code leaves the session
// untouched so the caller may retry until the OTP window closes.
func (s *service) Verify(ctx context.Context, req VerifyRequest) (*VerifyResult, error) {
	sess, err := s.sessions.Get(ctx, req.Email)
	if err != nil {
		return nil, fmt.Errorf("no auth session for email: %w", domain.ErrNotFound)
	}
	if sess.Expired(time.Now().Unix()) {
		return nil, fmt.Errorf("OTP window closed: %w", domain.ErrExpired)
	}

	in := grid.CompleteAuthInput{
		Email:          req.Email,
		Code:           req.Code,
		SessionSecrets: sess.SessionSecrets,
	}

	isNew := sess.Status == domain.AuthAwaitingNew
	var acct *grid.AuthenticatedAccount
	if isNew {
		acct, err = s.provider.CompleteAuthAndCreateAccount(ctx, in)
	} else {
		in.Signers = sess.Signers
		if in.Signers == nil {
			in.Signers = []json.RawMessage{}
		}
		acct, err = s.provider.CompleteAuth(ctx, in)
	}
	if err != nil {
		return nil, err
	}

	// The session record must reflect the successful check before any
	// account is created or a bearer issued; the caller may retry Verify.
	now := time.Now().UTC()
	if err := s.sessions.MarkVerified(ctx, req.Email, acct.Signers, now.Unix()); err != nil {
		return nil, fmt.Errorf("mark auth session verified: %w", err)
	}

	account, err := s.accounts.GetByEmail(ctx, req.Email)
	if errors.Is(err, domain.ErrNotFound) {
		account = &domain.Account{
			AccountID:         id.New(),
			Email:             req.Email,
			DisplayName:       sess.DisplayName,
			ReceivingAddress:  acct.Address,
			ProviderAccountID: acct.AccountID,
			CreatedAt:         now,
			UpdatedAt:         now,
		}
		if err := s.accounts.Put(ctx, account); err != nil {
			return nil, err
		}
	} else if err != nil {
		return nil, err
	}

	var bearer string
	if s.signer != nil {
		if bearer, err = s.signer.Sign(account.AccountID, account.Email, sess.SessionID); err != nil {
			return nil, err
		}
	}

	return &VerifyResult{Account: account, IsNewAccount: isNew, Bearer: bearer}, nil
}
