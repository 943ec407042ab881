package domain

import "time"

// Invoice statuses. Transitions are monotonic: pending may move to paid,
// overdue, or cancelled; paid is terminal and must never be reverted.
const (
	InvoicePending   = "pending"
	InvoicePaid      = "paid"
	InvoiceOverdue   = "overdue"
	InvoiceCancelled = "cancelled"
)

// Invoice is a merchant's request for payment. Amount is a decimal string
// ("50.00") so it round-trips without float loss; the reconciliation engine
// compares it as a decimal value against provider-reported transfers.
type Invoice struct {
	InvoiceID         string           `json:"id" dynamodbav:"invoice_id"`
	MerchantID        string           `json:"merchant_id" dynamodbav:"merchant_id"`
	Amount            string           `json:"amount" dynamodbav:"amount"`
	Currency          string           `json:"currency" dynamodbav:"currency"`
	DueDate           time.Time        `json:"due_date" dynamodbav:"due_date"`
	Status            string           `json:"status" dynamodbav:"status"`
	PayerEmail        string           `json:"payer_email,omitempty" dynamodbav:"payer_email"`
	PayerName         string           `json:"payer_name,omitempty" dynamodbav:"payer_name"`
	Description       string           `json:"description,omitempty" dynamodbav:"description"`
	PaymentLink       string           `json:"payment_link,omitempty" dynamodbav:"payment_link"`
	BankDetails       *BankDetails     `json:"bank_details,omitempty" dynamodbav:"bank_details"`
	TrackingStartedAt *time.Time       `json:"tracking_started_at,omitempty" dynamodbav:"tracking_started_at"`
	PaidAt            *time.Time       `json:"paid_at,omitempty" dynamodbav:"paid_at"`
	TransferID        *string          `json:"transfer_id,omitempty" dynamodbav:"transfer_id"`
	CreatedAt         time.Time        `json:"created" dynamodbav:"created_at"`
	UpdatedAt         time.Time        `json:"updated" dynamodbav:"updated_at"`
}

// BankDetails are the fiat deposit instructions shown to the payer, copied
// from the merchant's virtual account at invoice creation time.
type BankDetails struct {
	BankName        string `json:"bank_name" dynamodbav:"bank_name"`
	BankAddress     string `json:"bank_address,omitempty" dynamodbav:"bank_address"`
	RoutingNumber   string `json:"routing_number" dynamodbav:"routing_number"`
	AccountNumber   string `json:"account_number" dynamodbav:"account_number"`
	BeneficiaryName string `json:"beneficiary_name" dynamodbav:"beneficiary_name"`
}

// ValidInvoiceStatus reports whether s is one of the known invoice statuses.
func ValidInvoiceStatus(s string) bool {
	switch s {
	case InvoicePending, InvoicePaid, InvoiceOverdue, InvoiceCancelled:
		return true
	}
	return false
}

// CanTransition reports whether an invoice may move from one status to
// another. Same-status edits are allowed (idempotent no-op); paid never
// transitions away.
func CanTransition(from, to string) bool {
	if from == to {
		return true
	}
	switch from {
	case InvoicePending:
		return to == InvoicePaid || to == InvoiceOverdue || to == InvoiceCancelled
	case InvoiceOverdue:
		return to == InvoicePaid || to == InvoiceCancelled
	default:
		// paid and cancelled are terminal
		return false
	}
}

// CreateInvoiceRequest is the payload for creating an invoice.
type CreateInvoiceRequest struct {
	Amount      string `json:"amount" validate:"required"`
	Currency    string `json:"currency"`
	DueDate     string `json:"due_date" validate:"required"` // expected format: YYYY-MM-DD
	PayerEmail  string `json:"payer_email" validate:"omitempty,email"`
	PayerName   string `json:"payer_name"`
	Description string `json:"description"`
}

// UpdateInvoiceStatusRequest is the payload for a manual status edit.
type UpdateInvoiceStatusRequest struct {
	Status string `json:"status" validate:"required"`
}
