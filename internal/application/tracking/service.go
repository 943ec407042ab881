package tracking

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/payorbit-api/internal/domain"
	"github.com/payorbit-api/internal/infrastructure/grid"
	"github.com/payorbit-api/internal/infrastructure/sns"
	"github.com/payorbit-api/internal/pkg/money"
)

// Provider-side status of a settled transfer.
const transferStatusProcessed = "payment_processed"

// DynamoDB attribute name used in partial update maps.
const fieldTrackingStartedAt = "tracking_started_at"

type TrackingParams struct {
	InvoiceID       string `json:"invoice_id"`
	MerchantAddress string `json:"merchant_address"`
	ExpectedAmount  string `json:"expected_amount"`
	Currency        string `json:"currency"`
}

type TrackingStatus struct {
	InvoiceID         string     `json:"invoice_id"`
	Status            string     `json:"status"`
	IsTracking        bool       `json:"is_tracking"`
	TrackingStartedAt *time.Time `json:"tracking_started_at,omitempty"`
	PaidAt            *time.Time `json:"paid_at,omitempty"`
	TransferID        *string    `json:"transfer_id,omitempty"`
}

// Service is the payment reconciliation engine. It owns the registry of live
// trackers (one background polling task per tracked invoice) and finalizes
// an invoice as paid when the provider reports a transfer matching its exact
// amount.
type Service interface {
	Start(ctx context.Context, invoiceID string) (*TrackingParams, error)
	Stop(ctx context.Context, invoiceID string) error
	Status(ctx context.Context, invoiceID string) (*TrackingStatus, error)
	StopAll()
}

type transferLister interface {
	ListTransfers(ctx context.Context, address string, q grid.TransferQuery) ([]grid.Transfer, error)
}

type invoiceStore interface {
	Get(ctx context.Context, invoiceID string) (*domain.Invoice, error)
	Update(ctx context.Context, invoiceID string, updates map[string]interface{}) error
	MarkPaid(ctx context.Context, invoiceID, transferID string, paidAt time.Time) error
}

type accountStore interface {
	Get(ctx context.Context, accountID string) (*domain.Account, error)
}

type receiptStore interface {
	PutReceipt(ctx context.Context, invoiceID string, receipt interface{}) (string, error)
}

// ServiceDeps wires the engine's collaborators. Publisher and Receipts are
// optional; when nil the corresponding best-effort side effect is skipped.
type ServiceDeps struct {
	Provider     transferLister
	InvoiceRepo  invoiceStore
	AccountRepo  accountStore
	Publisher    sns.EventPublisher
	Receipts     receiptStore
	PollInterval time.Duration
	ListLimit    int
}

// tracker is one live polling task. done is closed when the poll goroutine
// has fully exited, which makes cancellation observable to Start/Stop.
type tracker struct {
	cancel context.CancelFunc
	done   chan struct{}
}

type service struct {
	provider     transferLister
	invoices     invoiceStore
	accounts     accountStore
	publisher    sns.EventPublisher
	receipts     receiptStore
	pollInterval time.Duration
	listLimit    int

	mu       sync.Mutex
	trackers map[string]*tracker
}

func NewService(deps ServiceDeps) Service {
	interval := deps.PollInterval
	if interval <= 0 {
		interval = 15 * time.Second
	}
	limit := deps.ListLimit
	if limit <= 0 || limit > 10 {
		limit = 10
	}
	return &service{
		provider:     deps.Provider,
		invoices:     deps.InvoiceRepo,
		accounts:     deps.AccountRepo,
		publisher:    deps.Publisher,
		receipts:     deps.Receipts,
		pollInterval: interval,
		listLimit:    limit,
		trackers:     make(map[string]*tracker),
	}
}

// Start begins tracking an invoice. If a tracker is already running for this
// invoice it is cancelled first, so a second Start supersedes rather than
// duplicates: at most one live tracker per invoice at any instant.
func (s *service) Start(ctx context.Context, invoiceID string) (*TrackingParams, error) {
	inv, err := s.invoices.Get(ctx, invoiceID)
	if err != nil {
		return nil, err
	}
	if inv.Status == domain.InvoicePaid {
		return nil, fmt.Errorf("invoice already paid: %w", domain.ErrConflict)
	}
	if _, err := money.Parse(inv.Amount); err != nil {
		return nil, fmt.Errorf("%v: %w", err, domain.ErrBadRequest)
	}

	merchant, err := s.accounts.Get(ctx, inv.MerchantID)
	if err != nil {
		return nil, fmt.Errorf("merchant account lookup failed: %w", err)
	}
	if merchant.ReceivingAddress == "" {
		return nil, fmt.Errorf("merchant has no receiving address: %w", domain.ErrBadRequest)
	}

	if err := s.invoices.Update(ctx, invoiceID, map[string]interface{}{
		fieldTrackingStartedAt: time.Now().UTC().Format(time.RFC3339),
	}); err != nil {
		return nil, err
	}

	s.mu.Lock()
	for {
		old, ok := s.trackers[invoiceID]
		if !ok {
			break
		}
		delete(s.trackers, invoiceID)
		old.cancel()
		s.mu.Unlock()
		<-old.done
		s.mu.Lock()
	}
	pollCtx, cancel := context.WithCancel(context.Background())
	t := &tracker{cancel: cancel, done: make(chan struct{})}
	s.trackers[invoiceID] = t
	s.mu.Unlock()

	go s.poll(pollCtx, t, inv.InvoiceID, merchant.ReceivingAddress, inv.MerchantID, inv.Amount, inv.Currency)

	slog.Info("payment tracking started",
		"invoice_id", invoiceID,
		"merchant_address", merchant.ReceivingAddress,
		"expected_amount", inv.Amount,
		"currency", inv.Currency,
	)

	return &TrackingParams{
		InvoiceID:       invoiceID,
		MerchantAddress: merchant.ReceivingAddress,
		ExpectedAmount:  inv.Amount,
		Currency:        inv.Currency,
	}, nil
}

// Stop cancels the invoice's tracker and waits for its poll goroutine to
// exit. The invoice record itself is left untouched.
func (s *service) Stop(_ context.Context, invoiceID string) error {
	s.mu.Lock()
	t, ok := s.trackers[invoiceID]
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("no active tracker for invoice: %w", domain.ErrNotFound)
	}
	delete(s.trackers, invoiceID)
	s.mu.Unlock()

	t.cancel()
	<-t.done
	slog.Info("payment tracking stopped", "invoice_id", invoiceID)
	return nil
}

// Status reports the invoice's persisted state plus whether a tracker is live
// in this process. Registry membership is not persisted: after a restart all
// trackers are gone and must be resumed externally.
func (s *service) Status(ctx context.Context, invoiceID string) (*TrackingStatus, error) {
	inv, err := s.invoices.Get(ctx, invoiceID)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	_, isTracking := s.trackers[invoiceID]
	s.mu.Unlock()

	return &TrackingStatus{
		InvoiceID:         inv.InvoiceID,
		Status:            inv.Status,
		IsTracking:        isTracking,
		TrackingStartedAt: inv.TrackingStartedAt,
		PaidAt:            inv.PaidAt,
		TransferID:        inv.TransferID,
	}, nil
}

// StopAll cancels every live tracker and waits for them; called on shutdown.
func (s *service) StopAll() {
	s.mu.Lock()
	stopped := make([]*tracker, 0, len(s.trackers))
	for id, t := range s.trackers {
		delete(s.trackers, id)
		t.cancel()
		stopped = append(stopped, t)
	}
	s.mu.Unlock()

	for _, t := range stopped {
		<-t.done
	}
}

// poll runs until cancelled or a matching transfer finalizes the invoice.
// The first check happens only after the first interval elapses.
func (s *service) poll(ctx context.Context, t *tracker, invoiceID, address, merchantID, expectedAmount, currency string) {
	defer close(t.done)

	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		if s.checkOnce(ctx, invoiceID, address, merchantID, expectedAmount, currency) {
			s.deregister(invoiceID, t)
			return
		}
	}
}

// checkOnce performs one poll cycle. It returns true when tracking should
// stop (payment finalized, or the invoice left pending some other way).
// Provider failures and panics are logged and absorbed so the loop survives
// to the next interval.
func (s *service) checkOnce(ctx context.Context, invoiceID, address, merchantID, expectedAmount, currency string) (finished bool) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("panic in poll cycle", "invoice_id", invoiceID, "panic", r)
			finished = false
		}
	}()

	transfers, err := s.provider.ListTransfers(ctx, address, grid.TransferQuery{
		Status: transferStatusProcessed,
		Limit:  s.listLimit,
	})
	if err != nil {
		slog.Warn("transfer listing failed, will retry", "invoice_id", invoiceID, "err", err)
		return false
	}
	if len(transfers) == 0 {
		return false
	}

	for _, tr := range transfers {
		if !money.Equal(tr.Amount, expectedAmount) {
			continue
		}
		now := time.Now().UTC()
		if err := s.invoices.MarkPaid(ctx, invoiceID, tr.ID, now); err != nil {
			if errors.Is(err, domain.ErrConflict) {
				// Invoice left pending concurrently (manual edit). Nothing
				// further for this tracker to do.
				slog.Info("invoice no longer pending, stopping tracker", "invoice_id", invoiceID)
				return true
			}
			slog.Warn("failed to mark invoice paid, will retry", "invoice_id", invoiceID, "err", err)
			return false
		}
		slog.Info("payment matched", "invoice_id", invoiceID, "transfer_id", tr.ID, "amount", tr.Amount)
		s.afterPaid(ctx, invoiceID, merchantID, currency, tr, now)
		return true
	}
	return false
}

// afterPaid performs the best-effort side effects of a finalized payment:
// publishing the invoice.paid event and archiving a receipt.
func (s *service) afterPaid(ctx context.Context, invoiceID, merchantID, currency string, tr grid.Transfer, paidAt time.Time) {
	if s.publisher != nil {
		event := sns.InvoicePaidEvent{
			InvoiceID:  invoiceID,
			MerchantID: merchantID,
			Amount:     tr.Amount,
			Currency:   currency,
			TransferID: tr.ID,
			PaidAt:     paidAt.Format(time.RFC3339),
		}
		if err := s.publisher.PublishInvoicePaid(ctx, event); err != nil {
			slog.Warn("failed to publish invoice.paid event", "invoice_id", invoiceID, "err", err)
		}
	}
	if s.receipts != nil {
		receipt := map[string]string{
			"invoice_id":  invoiceID,
			"merchant_id": merchantID,
			"amount":      tr.Amount,
			"currency":    currency,
			"transfer_id": tr.ID,
			"paid_at":     paidAt.Format(time.RFC3339),
		}
		if _, err := s.receipts.PutReceipt(ctx, invoiceID, receipt); err != nil {
			slog.Warn("failed to archive payment receipt", "invoice_id", invoiceID, "err", err)
		}
	}
}

// deregister removes the tracker from the registry only if it still owns the
// slot; a superseding Start may already have replaced it.
func (s *service) deregister(invoiceID string, t *tracker) {
	s.mu.Lock()
	if cur, ok := s.trackers[invoiceID]; ok && cur == t {
		delete(s.trackers, invoiceID)
	}
	s.mu.Unlock()
}
