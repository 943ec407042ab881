package domain

import "time"

// VirtualAccount is a provider-issued fiat receiving account. Payers wire
// funds to the deposit instructions; the provider settles them onto the
// merchant's receiving address.
type VirtualAccount struct {
	VirtualAccountID string              `json:"id" dynamodbav:"virtual_account_id"`
	CustomerID       string              `json:"customer_id" dynamodbav:"customer_id"`
	Deposit          DepositInstructions `json:"deposit_instructions" dynamodbav:"deposit_instructions"`
	Destination      Destination         `json:"destination" dynamodbav:"destination"`
	Status           string              `json:"status" dynamodbav:"status"`
	DeveloperFeePct  string              `json:"developer_fee_percent" dynamodbav:"developer_fee_percent"`
	CreatedAt        time.Time           `json:"created" dynamodbav:"created_at"`
	UpdatedAt        time.Time           `json:"updated" dynamodbav:"updated_at"`
}

// DepositInstructions tell a payer where to send fiat funds.
type DepositInstructions struct {
	Currency        string   `json:"currency" dynamodbav:"currency"`
	BankName        string   `json:"bank_name" dynamodbav:"bank_name"`
	BankAddress     string   `json:"bank_address" dynamodbav:"bank_address"`
	RoutingNumber   string   `json:"bank_routing_number" dynamodbav:"bank_routing_number"`
	AccountNumber   string   `json:"bank_account_number" dynamodbav:"bank_account_number"`
	BeneficiaryName string   `json:"bank_beneficiary_name" dynamodbav:"bank_beneficiary_name"`
	PaymentRails    []string `json:"payment_rails" dynamodbav:"payment_rails"`
}

// Destination is where settled funds land at the provider.
type Destination struct {
	Currency    string `json:"currency" dynamodbav:"currency"`
	PaymentRail string `json:"payment_rail" dynamodbav:"payment_rail"`
	Address     string `json:"address" dynamodbav:"address"`
}
