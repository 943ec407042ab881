package invoice

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/payorbit-api/internal/domain"
	"github.com/payorbit-api/internal/pkg/id"
	"github.com/payorbit-api/internal/pkg/money"
	"github.com/payorbit-api/internal/pkg/validate"
)

const defaultCurrency = "USD"

// Service manages the invoice lifecycle: creation with a shareable payment
// link, listing, manual status edits bounded by the monotonic transition
// rules, and deletion.
type Service interface {
	Create(ctx context.Context, merchantID string, req *domain.CreateInvoiceRequest) (*domain.Invoice, error)
	Get(ctx context.Context, merchantID, invoiceID string) (*domain.Invoice, error)
	ListByMerchant(ctx context.Context, merchantID string) ([]domain.Invoice, error)
	UpdateStatus(ctx context.Context, merchantID, invoiceID string, req *domain.UpdateInvoiceStatusRequest) (*domain.Invoice, error)
	Delete(ctx context.Context, merchantID, invoiceID string) error
}

type invoiceStore interface {
	Put(ctx context.Context, inv *domain.Invoice) error
	Get(ctx context.Context, invoiceID string) (*domain.Invoice, error)
	ListByMerchant(ctx context.Context, merchantID string) ([]domain.Invoice, error)
	UpdateStatus(ctx context.Context, invoiceID, from, to string) error
	Delete(ctx context.Context, invoiceID string) error
}

type accountStore interface {
	Get(ctx context.Context, accountID string) (*domain.Account, error)
}

type virtualAccountStore interface {
	GetByCustomer(ctx context.Context, customerID string) (*domain.VirtualAccount, error)
}

type mailer interface {
	SendEmail(to, subject, body string) error
}

// ServiceDeps wires the service's collaborators. VirtualAccountRepo and
// Mailer are optional; without them invoices simply carry no bank details
// and no payer notification goes out.
type ServiceDeps struct {
	InvoiceRepo        invoiceStore
	AccountRepo        accountStore
	VirtualAccountRepo virtualAccountStore
	Mailer             mailer
	PaymentLinkBaseURL string
}

type service struct {
	invoices        invoiceStore
	accounts        accountStore
	virtualAccounts virtualAccountStore
	mailer          mailer
	linkBaseURL     string
}

func NewService(deps ServiceDeps) Service {
	return &service{
		invoices:        deps.InvoiceRepo,
		accounts:        deps.AccountRepo,
		virtualAccounts: deps.VirtualAccountRepo,
		mailer:          deps.Mailer,
		linkBaseURL:     strings.TrimRight(deps.PaymentLinkBaseURL, "/"),
	}
}

func (s *service) Create(ctx context.Context, merchantID string, req *domain.CreateInvoiceRequest) (*domain.Invoice, error) {
	if err := validate.Struct(req); err != nil {
		return nil, fmt.Errorf("%v: %w", err, domain.ErrBadRequest)
	}
	amount, err := money.Parse(req.Amount)
	if err != nil {
		return nil, fmt.Errorf("%v: %w", err, domain.ErrBadRequest)
	}
	dueDate, err := time.Parse("2006-01-02", req.DueDate)
	if err != nil {
		return nil, fmt.Errorf("invalid due date %q: %w", req.DueDate, domain.ErrBadRequest)
	}

	merchant, err := s.accounts.Get(ctx, merchantID)
	if err != nil {
		return nil, fmt.Errorf("merchant account lookup failed: %w", err)
	}

	currency := strings.ToUpper(req.Currency)
	if currency == "" {
		currency = defaultCurrency
	}

	now := time.Now().UTC()
	inv := &domain.Invoice{
		InvoiceID:   id.New(),
		MerchantID:  merchant.AccountID,
		Amount:      amount.StringFixed(2),
		Currency:    currency,
		DueDate:     dueDate,
		Status:      domain.InvoicePending,
		PayerEmail:  req.PayerEmail,
		PayerName:   req.PayerName,
		Description: req.Description,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if s.linkBaseURL != "" {
		inv.PaymentLink = fmt.Sprintf("%s/pay/%s", s.linkBaseURL, inv.InvoiceID)
	}

	// Fiat deposit instructions come from the merchant's virtual account,
	// when one has been provisioned.
	if s.virtualAccounts != nil && merchant.ProviderAccountID != "" {
		va, err := s.virtualAccounts.GetByCustomer(ctx, merchant.ProviderAccountID)
		if err == nil {
			inv.BankDetails = &domain.BankDetails{
				BankName:        va.Deposit.BankName,
				BankAddress:     va.Deposit.BankAddress,
				RoutingNumber:   va.Deposit.RoutingNumber,
				AccountNumber:   va.Deposit.AccountNumber,
				BeneficiaryName: va.Deposit.BeneficiaryName,
			}
		} else {
			slog.Debug("no virtual account for merchant", "merchant_id", merchantID, "err", err)
		}
	}

	if err := s.invoices.Put(ctx, inv); err != nil {
		return nil, err
	}
	slog.Info("invoice created", "invoice_id", inv.InvoiceID, "merchant_id", merchantID, "amount", inv.Amount, "currency", inv.Currency)

	s.notifyPayer(merchant, inv)

	return inv, nil
}

func (s *service) Get(ctx context.Context, merchantID, invoiceID string) (*domain.Invoice, error) {
	inv, err := s.invoices.Get(ctx, invoiceID)
	if err != nil {
		return nil, err
	}
	if inv.MerchantID != merchantID {
		return nil, fmt.Errorf("invoice not found: %w", domain.ErrNotFound)
	}
	return inv, nil
}

func (s *service) ListByMerchant(ctx context.Context, merchantID string) ([]domain.Invoice, error) {
	return s.invoices.ListByMerchant(ctx, merchantID)
}

// UpdateStatus applies a manual status edit. Transitions are monotonic: a
// paid invoice never moves again, and a same-status edit is an accepted
// no-op.
func (s *service) UpdateStatus(ctx context.Context, merchantID, invoiceID string, req *domain.UpdateInvoiceStatusRequest) (*domain.Invoice, error) {
	if err := validate.Struct(req); err != nil {
		return nil, fmt.Errorf("%v: %w", err, domain.ErrBadRequest)
	}
	if !domain.ValidInvoiceStatus(req.Status) {
		return nil, fmt.Errorf("unknown invoice status %q: %w", req.Status, domain.ErrBadRequest)
	}

	inv, err := s.Get(ctx, merchantID, invoiceID)
	if err != nil {
		return nil, err
	}
	if inv.Status == req.Status {
		return inv, nil
	}
	if !domain.CanTransition(inv.Status, req.Status) {
		return nil, fmt.Errorf("invoice cannot move from %s to %s: %w", inv.Status, req.Status, domain.ErrConflict)
	}

	if err := s.invoices.UpdateStatus(ctx, invoiceID, inv.Status, req.Status); err != nil {
		return nil, err
	}
	slog.Info("invoice status updated", "invoice_id", invoiceID, "from", inv.Status, "to", req.Status)

	inv.Status = req.Status
	inv.UpdatedAt = time.Now().UTC()
	return inv, nil
}

func (s *service) Delete(ctx context.Context, merchantID, invoiceID string) error {
	if _, err := s.Get(ctx, merchantID, invoiceID); err != nil {
		return err
	}
	return s.invoices.Delete(ctx, invoiceID)
}

// notifyPayer emails the payment link to the payer, best effort.
func (s *service) notifyPayer(merchant *domain.Account, inv *domain.Invoice) {
	if s.mailer == nil || inv.PayerEmail == "" || inv.PaymentLink == "" {
		return
	}
	from := merchant.DisplayName
	if from == "" {
		from = merchant.Email
	}
	subject := fmt.Sprintf("Invoice from %s", from)
	body := fmt.Sprintf(
		"Hello %s,\r\n\r\nYou have received an invoice for %s %s, due %s.\r\n\r\nPay online: %s\r\n",
		inv.PayerName, inv.Amount, inv.Currency, inv.DueDate.Format("2006-01-02"), inv.PaymentLink,
	)
	if err := s.mailer.SendEmail(inv.PayerEmail, subject, body); err != nil {
		slog.Warn("failed to send invoice email", "invoice_id", inv.InvoiceID, "err", err)
	}
}
