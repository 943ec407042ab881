package kyc

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/payorbit-api/internal/domain"
	"github.com/payorbit-api/internal/infrastructure/grid"
	"github.com/payorbit-api/internal/pkg/validate"
)

// DynamoDB attribute names used in partial update maps.
const (
	fieldKYCID     = "kyc_id"
	fieldKYCStatus = "kyc_status"
)

type InitiateRequest struct {
	Type        string `json:"type" validate:"omitempty,oneof=individual business"`
	FullName    string `json:"full_name" validate:"required"`
	RedirectURI string `json:"redirect_uri" validate:"omitempty,url"`
}

type InitiateResult struct {
	KYCID string `json:"kyc_id"`
	URL   string `json:"url"`
}

type StatusResult struct {
	KYCID  string `json:"kyc_id"`
	Status string `json:"status"`
}

type CreateVirtualAccountRequest struct {
	Currency string `json:"currency" validate:"omitempty,len=3"`
}

// Service runs the merchant's KYC sub-flow: requesting a hosted verification
// link, refreshing the verification status, and provisioning a fiat virtual
// account once the provider allows it.
type Service interface {
	Initiate(ctx context.Context, merchantID string, req *InitiateRequest) (*InitiateResult, error)
	Status(ctx context.Context, merchantID string) (*StatusResult, error)
	CreateVirtualAccount(ctx context.Context, merchantID string, req *CreateVirtualAccountRequest) (*domain.VirtualAccount, error)
	GetVirtualAccount(ctx context.Context, merchantID string) (*domain.VirtualAccount, error)
}

type kycProvider interface {
	RequestKYCLink(ctx context.Context, address string, req grid.KYCRequest) (*grid.KYCLink, error)
	GetKYCStatus(ctx context.Context, address, kycID string) (string, error)
	RequestVirtualAccount(ctx context.Context, address, providerAccountID, currency string) (*grid.VirtualAccountData, error)
}

type accountStore interface {
	Get(ctx context.Context, accountID string) (*domain.Account, error)
	Update(ctx context.Context, accountID string, updates map[string]interface{}) error
}

type virtualAccountStore interface {
	Put(ctx context.Context, va *domain.VirtualAccount) error
	GetByCustomer(ctx context.Context, customerID string) (*domain.VirtualAccount, error)
}

type ServiceDeps struct {
	Provider           kycProvider
	AccountRepo        accountStore
	VirtualAccountRepo virtualAccountStore
}

type service struct {
	provider        kycProvider
	accounts        accountStore
	virtualAccounts virtualAccountStore
}

func NewService(deps ServiceDeps) Service {
	return &service{
		provider:        deps.Provider,
		accounts:        deps.AccountRepo,
		virtualAccounts: deps.VirtualAccountRepo,
	}
}

func (s *service) Initiate(ctx context.Context, merchantID string, req *InitiateRequest) (*InitiateResult, error) {
	if err := validate.Struct(req); err != nil {
		return nil, fmt.Errorf("%v: %w", err, domain.ErrBadRequest)
	}
	merchant, err := s.accounts.Get(ctx, merchantID)
	if err != nil {
		return nil, err
	}
	if merchant.ReceivingAddress == "" || merchant.ProviderAccountID == "" {
		return nil, fmt.Errorf("merchant is not provisioned at the provider: %w", domain.ErrBadRequest)
	}

	kycType := req.Type
	if kycType == "" {
		kycType = "individual"
	}
	link, err := s.provider.RequestKYCLink(ctx, merchant.ReceivingAddress, grid.KYCRequest{
		ProviderAccountID: merchant.ProviderAccountID,
		Type:              kycType,
		Email:             merchant.Email,
		FullName:          req.FullName,
		RedirectURI:       req.RedirectURI,
	})
	if err != nil {
		return nil, err
	}

	if err := s.accounts.Update(ctx, merchantID, map[string]interface{}{
		fieldKYCID:     link.ID,
		fieldKYCStatus: "pending",
	}); err != nil {
		return nil, err
	}
	slog.Info("kyc link issued", "merchant_id", merchantID, "kyc_id", link.ID)

	return &InitiateResult{KYCID: link.ID, URL: link.URL}, nil
}

// Status refreshes the merchant's KYC status from the provider and persists
// the latest value.
func (s *service) Status(ctx context.Context, merchantID string) (*StatusResult, error) {
	merchant, err := s.accounts.Get(ctx, merchantID)
	if err != nil {
		return nil, err
	}
	if merchant.KYCID == nil || *merchant.KYCID == "" {
		return nil, fmt.Errorf("kyc was never initiated for this merchant: %w", domain.ErrNotFound)
	}

	status, err := s.provider.GetKYCStatus(ctx, merchant.ReceivingAddress, *merchant.KYCID)
	if err != nil {
		return nil, err
	}
	if merchant.KYCStatus == nil || *merchant.KYCStatus != status {
		if err := s.accounts.Update(ctx, merchantID, map[string]interface{}{
			fieldKYCStatus: status,
		}); err != nil {
			slog.Warn("failed to persist kyc status", "merchant_id", merchantID, "err", err)
		}
	}
	return &StatusResult{KYCID: *merchant.KYCID, Status: status}, nil
}

func (s *service) CreateVirtualAccount(ctx context.Context, merchantID string, req *CreateVirtualAccountRequest) (*domain.VirtualAccount, error) {
	if err := validate.Struct(req); err != nil {
		return nil, fmt.Errorf("%v: %w", err, domain.ErrBadRequest)
	}
	merchant, err := s.accounts.Get(ctx, merchantID)
	if err != nil {
		return nil, err
	}
	if merchant.ReceivingAddress == "" || merchant.ProviderAccountID == "" {
		return nil, fmt.Errorf("merchant is not provisioned at the provider: %w", domain.ErrBadRequest)
	}
	if merchant.KYCStatus == nil || *merchant.KYCStatus != "approved" {
		return nil, fmt.Errorf("kyc approval required before opening a virtual account: %w", domain.ErrConflict)
	}

	currency := strings.ToLower(req.Currency)
	if currency == "" {
		currency = "usd"
	}
	data, err := s.provider.RequestVirtualAccount(ctx, merchant.ReceivingAddress, merchant.ProviderAccountID, currency)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	va := &domain.VirtualAccount{
		VirtualAccountID: data.ID,
		CustomerID:       data.CustomerID,
		Deposit: domain.DepositInstructions{
			Currency:        data.SourceDepositInstructions.Currency,
			BankName:        data.SourceDepositInstructions.BankName,
			BankAddress:     data.SourceDepositInstructions.BankAddress,
			RoutingNumber:   data.SourceDepositInstructions.BankRoutingNumber,
			AccountNumber:   data.SourceDepositInstructions.BankAccountNumber,
			BeneficiaryName: data.SourceDepositInstructions.BankBeneficiaryName,
			PaymentRails:    data.SourceDepositInstructions.PaymentRails,
		},
		Destination: domain.Destination{
			Currency:    data.Destination.Currency,
			PaymentRail: data.Destination.PaymentRail,
			Address:     data.Destination.Address,
		},
		Status:          data.Status,
		DeveloperFeePct: data.DeveloperFeePercent,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := s.virtualAccounts.Put(ctx, va); err != nil {
		return nil, err
	}
	slog.Info("virtual account provisioned", "merchant_id", merchantID, "virtual_account_id", va.VirtualAccountID)
	return va, nil
}

func (s *service) GetVirtualAccount(ctx context.Context, merchantID string) (*domain.VirtualAccount, error) {
	merchant, err := s.accounts.Get(ctx, merchantID)
	if err != nil {
		return nil, err
	}
	if merchant.ProviderAccountID == "" {
		return nil, fmt.Errorf("virtual account not found: %w", domain.ErrNotFound)
	}
	return s.virtualAccounts.GetByCustomer(ctx, merchant.ProviderAccountID)
}
