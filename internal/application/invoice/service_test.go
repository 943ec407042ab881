package invoice

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/payorbit-api/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// --- mocks ---

type mockInvoiceStore struct{ mock.Mock }

func (m *mockInvoiceStore) Put(ctx context.Context, inv *domain.Invoice) error {
	return m.Called(ctx, inv).Error(0)
}
func (m *mockInvoiceStore) Get(ctx context.Context, invoiceID string) (*domain.Invoice, error) {
	args := m.Called(ctx, invoiceID)
	if i, _ := args.Get(0).(*domain.Invoice); i != nil {
		return i, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockInvoiceStore) ListByMerchant(ctx context.Context, merchantID string) ([]domain.Invoice, error) {
	args := m.Called(ctx, merchantID)
	if l, _ := args.Get(0).([]domain.Invoice); l != nil {
		return l, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockInvoiceStore) UpdateStatus(ctx context.Context, invoiceID, from, to string) error {
	return m.Called(ctx, invoiceID, from, to).Error(0)
}
func (m *mockInvoiceStore) Delete(ctx context.Context, invoiceID string) error {
	return m.Called(ctx, invoiceID).Error(0)
}

type mockAccountStore struct{ mock.Mock }

func (m *mockAccountStore) Get(ctx context.Context, accountID string) (*domain.Account, error) {
	args := m.Called(ctx, accountID)
	if a, _ := args.Get(0).(*domain.Account); a != nil {
		return a, args.Error(1)
	}
	return nil, args.Error(1)
}

type mockVirtualAccountStore struct{ mock.Mock }

func (m *mockVirtualAccountStore) GetByCustomer(ctx context.Context, customerID string) (*domain.VirtualAccount, error) {
	args := m.Called(ctx, customerID)
	if v, _ := args.Get(0).(*domain.VirtualAccount); v != nil {
		return v, args.Error(1)
	}
	return nil, args.Error(1)
}

type mockMailer struct{ mock.Mock }

func (m *mockMailer) SendEmail(to, subject, body string) error {
	return m.Called(to, subject, body).Error(0)
}

// --- builder ---

func newService(is *mockInvoiceStore, as *mockAccountStore, vs *mockVirtualAccountStore, ml *mockMailer) Service {
	deps := ServiceDeps{
		InvoiceRepo:        is,
		AccountRepo:        as,
		PaymentLinkBaseURL: "https://pay.example.com",
	}
	if vs != nil {
		deps.VirtualAccountRepo = vs
	}
	if ml != nil {
		deps.Mailer = ml
	}
	return NewService(deps)
}

func merchant() *domain.Account {
	return &domain.Account{
		AccountID:         "m1",
		Email:             "m@shop.com",
		DisplayName:       "Shop",
		ProviderAccountID: "grid-u1",
	}
}

// --- Create ---

func TestCreate_HappyPath(t *testing.T) {
	is := &mockInvoiceStore{}
	as := &mockAccountStore{}
	ml := &mockMailer{}

	as.On("Get", mock.Anything, "m1").Return(merchant(), nil)
	is.On("Put", mock.Anything, mock.MatchedBy(func(inv *domain.Invoice) bool {
		return inv.MerchantID == "m1" &&
			inv.Amount == "50.00" &&
			inv.Currency == "USD" &&
			inv.Status == domain.InvoicePending &&
			inv.PaymentLink == "https://pay.example.com/pay/"+inv.InvoiceID
	})).Return(nil)
	ml.On("SendEmail", "payer@x.com", mock.Anything, mock.Anything).Return(nil)

	svc := newService(is, as, nil, ml)
	inv, err := svc.Create(context.Background(), "m1", &domain.CreateInvoiceRequest{
		Amount:     "50.00",
		DueDate:    "2026-10-01",
		PayerEmail: "payer@x.com",
		PayerName:  "Payer",
	})

	require.NoError(t, err)
	assert.NotEmpty(t, inv.InvoiceID)
	assert.Equal(t, time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC), inv.DueDate)
	is.AssertExpectations(t)
	ml.AssertExpectations(t)
}

func TestCreate_NormalizesAmountToTwoDecimals(t *testing.T) {
	is := &mockInvoiceStore{}
	as := &mockAccountStore{}
	as.On("Get", mock.Anything, "m1").Return(merchant(), nil)
	is.On("Put", mock.Anything, mock.MatchedBy(func(inv *domain.Invoice) bool {
		return inv.Amount == "50.50"
	})).Return(nil)

	svc := newService(is, as, nil, nil)
	_, err := svc.Create(context.Background(), "m1", &domain.CreateInvoiceRequest{
		Amount:  "50.5",
		DueDate: "2026-10-01",
	})
	require.NoError(t, err)
	is.AssertExpectations(t)
}

func TestCreate_RejectsNonPositiveAmount(t *testing.T) {
	svc := newService(&mockInvoiceStore{}, &mockAccountStore{}, nil, nil)
	for _, amount := range []string{"0", "-5.00", "abc"} {
		_, err := svc.Create(context.Background(), "m1", &domain.CreateInvoiceRequest{
			Amount:  amount,
			DueDate: "2026-10-01",
		})
		require.Error(t, err, amount)
		assert.True(t, errors.Is(err, domain.ErrBadRequest), amount)
	}
}

func TestCreate_RejectsBadDueDate(t *testing.T) {
	svc := newService(&mockInvoiceStore{}, &mockAccountStore{}, nil, nil)
	_, err := svc.Create(context.Background(), "m1", &domain.CreateInvoiceRequest{
		Amount:  "50.00",
		DueDate: "01/10/2026",
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrBadRequest))
}

func TestCreate_AttachesBankDetailsFromVirtualAccount(t *testing.T) {
	is := &mockInvoiceStore{}
	as := &mockAccountStore{}
	vs := &mockVirtualAccountStore{}

	as.On("Get", mock.Anything, "m1").Return(merchant(), nil)
	vs.On("GetByCustomer", mock.Anything, "grid-u1").Return(&domain.VirtualAccount{
		VirtualAccountID: "va1",
		CustomerID:       "grid-u1",
		Deposit: domain.DepositInstructions{
			BankName:        "Lead Bank",
			RoutingNumber:   "101019644",
			AccountNumber:   "123456789",
			BeneficiaryName: "Shop LLC",
		},
	}, nil)
	is.On("Put", mock.Anything, mock.MatchedBy(func(inv *domain.Invoice) bool {
		return inv.BankDetails != nil && inv.BankDetails.BankName == "Lead Bank"
	})).Return(nil)

	svc := newService(is, as, vs, nil)
	inv, err := svc.Create(context.Background(), "m1", &domain.CreateInvoiceRequest{
		Amount:  "50.00",
		DueDate: "2026-10-01",
	})

	require.NoError(t, err)
	require.NotNil(t, inv.BankDetails)
	assert.Equal(t, "101019644", inv.BankDetails.RoutingNumber)
}

func TestCreate_NoVirtualAccount_InvoiceStillCreated(t *testing.T) {
	is := &mockInvoiceStore{}
	as := &mockAccountStore{}
	vs := &mockVirtualAccountStore{}

	as.On("Get", mock.Anything, "m1").Return(merchant(), nil)
	vs.On("GetByCustomer", mock.Anything, "grid-u1").Return(nil, domain.ErrNotFound)
	is.On("Put", mock.Anything, mock.AnythingOfType("*domain.Invoice")).Return(nil)

	svc := newService(is, as, vs, nil)
	inv, err := svc.Create(context.Background(), "m1", &domain.CreateInvoiceRequest{
		Amount:  "50.00",
		DueDate: "2026-10-01",
	})

	require.NoError(t, err)
	assert.Nil(t, inv.BankDetails)
}

// --- Get / List ---

func TestGet_WrongMerchant_NotFound(t *testing.T) {
	is := &mockInvoiceStore{}
	is.On("Get", mock.Anything, "inv1").Return(&domain.Invoice{
		InvoiceID:  "inv1",
		MerchantID: "someone-else",
	}, nil)

	svc := newService(is, &mockAccountStore{}, nil, nil)
	_, err := svc.Get(context.Background(), "m1", "inv1")

	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

// --- UpdateStatus ---

func TestUpdateStatus_PendingToCancelled(t *testing.T) {
	is := &mockInvoiceStore{}
	is.On("Get", mock.Anything, "inv1").Return(&domain.Invoice{
		InvoiceID:  "inv1",
		MerchantID: "m1",
		Status:     domain.InvoicePending,
	}, nil)
	is.On("UpdateStatus", mock.Anything, "inv1", domain.InvoicePending, domain.InvoiceCancelled).Return(nil)

	svc := newService(is, &mockAccountStore{}, nil, nil)
	inv, err := svc.UpdateStatus(context.Background(), "m1", "inv1", &domain.UpdateInvoiceStatusRequest{
		Status: domain.InvoiceCancelled,
	})

	require.NoError(t, err)
	assert.Equal(t, domain.InvoiceCancelled, inv.Status)
	is.AssertExpectations(t)
}

func TestUpdateStatus_PaidIsTerminal(t *testing.T) {
	is := &mockInvoiceStore{}
	is.On("Get", mock.Anything, "inv1").Return(&domain.Invoice{
		InvoiceID:  "inv1",
		MerchantID: "m1",
		Status:     domain.InvoicePaid,
	}, nil)

	svc := newService(is, &mockAccountStore{}, nil, nil)
	for _, to := range []string{domain.InvoicePending, domain.InvoiceOverdue, domain.InvoiceCancelled} {
		_, err := svc.UpdateStatus(context.Background(), "m1", "inv1", &domain.UpdateInvoiceStatusRequest{Status: to})
		require.Error(t, err, to)
		assert.True(t, errors.Is(err, domain.ErrConflict), to)
	}
	is.AssertNotCalled(t, "UpdateStatus", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestUpdateStatus_SameStatus_NoOp(t *testing.T) {
	is := &mockInvoiceStore{}
	is.On("Get", mock.Anything, "inv1").Return(&domain.Invoice{
		InvoiceID:  "inv1",
		MerchantID: "m1",
		Status:     domain.InvoiceOverdue,
	}, nil)

	svc := newService(is, &mockAccountStore{}, nil, nil)
	inv, err := svc.UpdateStatus(context.Background(), "m1", "inv1", &domain.UpdateInvoiceStatusRequest{
		Status: domain.InvoiceOverdue,
	})

	require.NoError(t, err)
	assert.Equal(t, domain.InvoiceOverdue, inv.Status)
	is.AssertNotCalled(t, "UpdateStatus", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestUpdateStatus_UnknownStatus_BadRequest(t *testing.T) {
	svc := newService(&mockInvoiceStore{}, &mockAccountStore{}, nil, nil)
	_, err := svc.UpdateStatus(context.Background(), "m1", "inv1", &domain.UpdateInvoiceStatusRequest{
		Status: "refunded",
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrBadRequest))
}

// --- Delete ---

func TestDelete_ChecksOwnership(t *testing.T) {
	is := &mockInvoiceStore{}
	is.On("Get", mock.Anything, "inv1").Return(&domain.Invoice{
		InvoiceID:  "inv1",
		MerchantID: "other",
	}, nil)

	svc := newService(is, &mockAccountStore{}, nil, nil)
	err := svc.Delete(context.Background(), "m1", "inv1")

	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrNotFound))
	is.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
}
