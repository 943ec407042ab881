package http

import (
	"github.com/payorbit-api/internal/infrastructure/dynamo"
	"github.com/payorbit-api/internal/infrastructure/grid"
	jwtinfra "github.com/payorbit-api/internal/infrastructure/jwt"
	s3infra "github.com/payorbit-api/internal/infrastructure/s3"
	"github.com/payorbit-api/internal/infrastructure/smtp"
	"github.com/payorbit-api/internal/infrastructure/sns"
)

// Deps holds all infrastructure dependencies for the router. Publisher,
// Receipts, Mailer, and JWTProvider are optional; missing ones degrade the
// corresponding side features rather than failing startup.
type Deps struct {
	AccountRepo        *dynamo.AccountRepo
	AuthSessionRepo    *dynamo.AuthSessionRepo
	InvoiceRepo        *dynamo.InvoiceRepo
	VirtualAccountRepo *dynamo.VirtualAccountRepo
	GridClient         *grid.Client
	Publisher          sns.EventPublisher
	Receipts           *s3infra.ReceiptStore
	Mailer             smtp.Mailer
	JWTProvider        *jwtinfra.Provider
}
