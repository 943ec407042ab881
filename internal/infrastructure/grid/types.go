package grid

import "encoding/json"

// envelope is the generic Grid response wrapper. Every endpoint returns
// {success, data, error}; data shapes vary per call.
type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
}

// AuthenticatedAccount is the result of a completed OTP verification.
type AuthenticatedAccount struct {
	Address   string            `json:"address"`
	AccountID string            `json:"grid_user_id"`
	Signers   []json.RawMessage `json:"signers"`
}

// Transfer is a provider-reported movement of funds to a receiving address.
// Amount is a decimal string as reported by the provider.
type Transfer struct {
	ID     string `json:"id"`
	Amount string `json:"amount"`
	Status string `json:"status"`
}

// TransferQuery filters a transfer listing.
type TransferQuery struct {
	Status string
	Limit  int
}

// CompleteAuthInput carries everything the provider needs to check an OTP.
// Signers must be nil for first-time (account-creating) verification and
// non-nil (possibly empty) for existing-account login.
type CompleteAuthInput struct {
	Email          string
	Code           string
	SessionSecrets json.RawMessage
	Signers        []json.RawMessage
}

// KYCRequest asks the provider for a hosted KYC link.
type KYCRequest struct {
	ProviderAccountID string `json:"grid_user_id"`
	Type              string `json:"type"`
	Email             string `json:"email"`
	FullName          string `json:"full_name"`
	RedirectURI       string `json:"redirect_uri"`
}

// KYCLink is the provider's hosted verification link.
type KYCLink struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

// VirtualAccountData is the provider's virtual-account payload.
type VirtualAccountData struct {
	ID                        string `json:"id"`
	CustomerID                string `json:"customer_id"`
	SourceDepositInstructions struct {
		Currency            string   `json:"currency"`
		BankName            string   `json:"bank_name"`
		BankAddress         string   `json:"bank_address"`
		BankRoutingNumber   string   `json:"bank_routing_number"`
		BankAccountNumber   string   `json:"bank_account_number"`
		BankBeneficiaryName string   `json:"bank_beneficiary_name"`
		PaymentRails        []string `json:"payment_rails"`
	} `json:"source_deposit_instructions"`
	Destination struct {
		Currency    string `json:"currency"`
		PaymentRail string `json:"payment_rail"`
		Address     string `json:"address"`
	} `json:"destination"`
	Status              string `json:"status"`
	DeveloperFeePercent string `json:"developer_fee_percent"`
}
