package kyc

import (
	"context"
	"errors"
	"testing"

	"github.com/payorbit-api/internal/domain"
	"github.com/payorbit-api/internal/infrastructure/grid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// --- mocks ---

type mockProvider struct{ mock.Mock }

func (m *mockProvider) RequestKYCLink(ctx context.Context, address string, req grid.KYCRequest) (*grid.KYCLink, error) {
	args := m.Called(ctx, address, req)
	if l, _ := args.Get(0).(*grid.KYCLink); l != nil {
		return l, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockProvider) GetKYCStatus(ctx context.Context, address, kycID string) (string, error) {
	args := m.Called(ctx, address, kycID)
	return args.String(0), args.Error(1)
}
func (m *mockProvider) RequestVirtualAccount(ctx context.Context, address, providerAccountID, currency string) (*grid.VirtualAccountData, error) {
	args := m.Called(ctx, address, providerAccountID, currency)
	if v, _ := args.Get(0).(*grid.VirtualAccountData); v != nil {
		return v, args.Error(1)
	}
	return nil, args.Error(1)
}

type mockAccountStore struct{ mock.Mock }

func (m *mockAccountStore) Get(ctx context.Context, accountID string) (*domain.Account, error) {
	args := m.Called(ctx, accountID)
	if a, _ := args.Get(0).(*domain.Account); a != nil {
		return a, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockAccountStore) Update(ctx context.Context, accountID string, updates map[string]interface{}) error {
	return m.Called(ctx, accountID, updates).Error(0)
}

type mockVirtualAccountStore struct{ mock.Mock }

func (m *mockVirtualAccountStore) Put(ctx context.Context, va *domain.VirtualAccount) error {
	return m.Called(ctx, va).Error(0)
}
func (m *mockVirtualAccountStore) GetByCustomer(ctx context.Context, customerID string) (*domain.VirtualAccount, error) {
	args := m.Called(ctx, customerID)
	if v, _ := args.Get(0).(*domain.VirtualAccount); v != nil {
		return v, args.Error(1)
	}
	return nil, args.Error(1)
}

// --- fixtures ---

func provisionedMerchant() *domain.Account {
	return &domain.Account{
		AccountID:         "m1",
		Email:             "m@shop.com",
		ReceivingAddress:  "addr1",
		ProviderAccountID: "grid-u1",
	}
}

func newService(p *mockProvider, as *mockAccountStore, vs *mockVirtualAccountStore) Service {
	return NewService(ServiceDeps{Provider: p, AccountRepo: as, VirtualAccountRepo: vs})
}

// --- Initiate ---

func TestInitiate_UnprovisionedMerchant_BadRequest(t *testing.T) {
	as := &mockAccountStore{}
	as.On("Get", mock.Anything, "m1").Return(&domain.Account{AccountID: "m1"}, nil)

	svc := newService(&mockProvider{}, as, nil)
	_, err := svc.Initiate(context.Background(), "m1", &InitiateRequest{FullName: "Ada Shop"})

	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrBadRequest))
}

func TestInitiate_HappyPath_PersistsKYCID(t *testing.T) {
	as := &mockAccountStore{}
	p := &mockProvider{}
	as.On("Get", mock.Anything, "m1").Return(provisionedMerchant(), nil)
	p.On("RequestKYCLink", mock.Anything, "addr1", mock.MatchedBy(func(req grid.KYCRequest) bool {
		return req.ProviderAccountID == "grid-u1" && req.Type == "individual" && req.Email == "m@shop.com"
	})).Return(&grid.KYCLink{ID: "kyc1", URL: "https://kyc.example/kyc1"}, nil)
	as.On("Update", mock.Anything, "m1", mock.MatchedBy(func(m map[string]interface{}) bool {
		return m[fieldKYCID] == "kyc1" && m[fieldKYCStatus] == "pending"
	})).Return(nil)

	svc := newService(p, as, nil)
	res, err := svc.Initiate(context.Background(), "m1", &InitiateRequest{FullName: "Ada Shop"})

	require.NoError(t, err)
	assert.Equal(t, "kyc1", res.KYCID)
	assert.Equal(t, "https://kyc.example/kyc1", res.URL)
	as.AssertExpectations(t)
}

// --- Status ---

func TestStatus_NeverInitiated_NotFound(t *testing.T) {
	as := &mockAccountStore{}
	as.On("Get", mock.Anything, "m1").Return(provisionedMerchant(), nil)

	svc := newService(&mockProvider{}, as, nil)
	_, err := svc.Status(context.Background(), "m1")

	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestStatus_RefreshesAndPersistsChange(t *testing.T) {
	as := &mockAccountStore{}
	p := &mockProvider{}
	acct := provisionedMerchant()
	kycID := "kyc1"
	pending := "pending"
	acct.KYCID = &kycID
	acct.KYCStatus = &pending
	as.On("Get", mock.Anything, "m1").Return(acct, nil)
	p.On("GetKYCStatus", mock.Anything, "addr1", "kyc1").Return("approved", nil)
	as.On("Update", mock.Anything, "m1", mock.MatchedBy(func(m map[string]interface{}) bool {
		return m[fieldKYCStatus] == "approved"
	})).Return(nil)

	svc := newService(p, as, nil)
	res, err := svc.Status(context.Background(), "m1")

	require.NoError(t, err)
	assert.Equal(t, "approved", res.Status)
	as.AssertExpectations(t)
}

// --- CreateVirtualAccount ---

func TestCreateVirtualAccount_RequiresApprovedKYC(t *testing.T) {
	as := &mockAccountStore{}
	acct := provisionedMerchant()
	pending := "pending"
	acct.KYCStatus = &pending
	as.On("Get", mock.Anything, "m1").Return(acct, nil)

	svc := newService(&mockProvider{}, as, &mockVirtualAccountStore{})
	_, err := svc.CreateVirtualAccount(context.Background(), "m1", &CreateVirtualAccountRequest{})

	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrConflict))
}

func TestCreateVirtualAccount_HappyPath(t *testing.T) {
	as := &mockAccountStore{}
	p := &mockProvider{}
	vs := &mockVirtualAccountStore{}
	acct := provisionedMerchant()
	approved := "approved"
	acct.KYCStatus = &approved
	as.On("Get", mock.Anything, "m1").Return(acct, nil)

	data := &grid.VirtualAccountData{ID: "va1", CustomerID: "grid-u1", Status: "activated"}
	data.SourceDepositInstructions.BankName = "Lead Bank"
	data.SourceDepositInstructions.BankRoutingNumber = "101019644"
	p.On("RequestVirtualAccount", mock.Anything, "addr1", "grid-u1", "usd").Return(data, nil)
	vs.On("Put", mock.Anything, mock.MatchedBy(func(va *domain.VirtualAccount) bool {
		return va.VirtualAccountID == "va1" && va.Deposit.BankName == "Lead Bank"
	})).Return(nil)

	svc := newService(p, as, vs)
	va, err := svc.CreateVirtualAccount(context.Background(), "m1", &CreateVirtualAccountRequest{})

	require.NoError(t, err)
	assert.Equal(t, "101019644", va.Deposit.RoutingNumber)
	vs.AssertExpectations(t)
}
