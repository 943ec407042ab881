package domain

import "time"

// Account is a verified merchant identity. It is created exactly once per
// email, the first time an OTP verification succeeds against the payment
// provider. ReceivingAddress and ProviderAccountID are immutable afterwards;
// the KYC fields are mutated only by the KYC sub-flow.
type Account struct {
	AccountID         string    `json:"id" dynamodbav:"account_id"`
	Email             string    `json:"email" dynamodbav:"email"`
	DisplayName       string    `json:"display_name" dynamodbav:"display_name"`
	ReceivingAddress  string    `json:"receiving_address" dynamodbav:"receiving_address"`
	ProviderAccountID string    `json:"provider_account_id" dynamodbav:"provider_account_id"`
	KYCID             *string   `json:"kyc_id,omitempty" dynamodbav:"kyc_id"`
	KYCStatus         *string   `json:"kyc_status,omitempty" dynamodbav:"kyc_status"`
	CreatedAt         time.Time `json:"created" dynamodbav:"created_at"`
	UpdatedAt         time.Time `json:"updated" dynamodbav:"updated_at"`
}
