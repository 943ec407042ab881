package dynamo

// DynamoDB attribute names used in update expressions across all repos.
// Using constants prevents silent runtime bugs caused by key typos.
const (
	fieldStatus            = "status"
	fieldSigners           = "signers"
	fieldVerifiedAt        = "verified_at"
	fieldPaidAt            = "paid_at"
	fieldTransferID        = "transfer_id"
	fieldTrackingStartedAt = "tracking_started_at"
	fieldKYCID             = "kyc_id"
	fieldKYCStatus         = "kyc_status"
)
