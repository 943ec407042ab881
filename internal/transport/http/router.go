package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/payorbit-api/internal/application/auth"
	"github.com/payorbit-api/internal/application/invoice"
	"github.com/payorbit-api/internal/application/kyc"
	"github.com/payorbit-api/internal/application/tracking"
	"github.com/payorbit-api/internal/config"
	"github.com/payorbit-api/internal/transport/http/handler"
	appmiddleware "github.com/payorbit-api/internal/transport/http/middleware"
	"golang.org/x/time/rate"
)

// NewRouter builds the application router. The returned tracking service is
// the same instance wired into the routes; main holds it so shutdown can
// drain the tracker registry.
func NewRouter(cfg *config.Config, deps *Deps) (http.Handler, tracking.Service) {
	r := chi.NewRouter()
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	var authMw func(http.Handler) http.Handler
	if deps.JWTProvider != nil {
		authMw = appmiddleware.Auth(deps.JWTProvider)
	} else {
		authMw = func(next http.Handler) http.Handler { return next }
	}

	// 5 requests/second, burst of 10, applied to the public OTP endpoints.
	sensitiveRL := appmiddleware.NewRateLimiter(rate.Limit(5), 10)

	authDeps := auth.ServiceDeps{
		Provider:    deps.GridClient,
		SessionRepo: deps.AuthSessionRepo,
		AccountRepo: deps.AccountRepo,
		OTPExpiry:   cfg.OTPExpiry,
	}
	if deps.JWTProvider != nil {
		authDeps.Signer = deps.JWTProvider
	}
	authSvc := auth.NewService(authDeps)

	invoiceSvc := invoice.NewService(invoice.ServiceDeps{
		InvoiceRepo:        deps.InvoiceRepo,
		AccountRepo:        deps.AccountRepo,
		VirtualAccountRepo: deps.VirtualAccountRepo,
		Mailer:             deps.Mailer,
		PaymentLinkBaseURL: cfg.PaymentLinkBaseURL,
	})

	trackingDeps := tracking.ServiceDeps{
		Provider:     deps.GridClient,
		InvoiceRepo:  deps.InvoiceRepo,
		AccountRepo:  deps.AccountRepo,
		Publisher:    deps.Publisher,
		PollInterval: cfg.TrackPollInterval,
		ListLimit:    cfg.TrackListLimit,
	}
	if deps.Receipts != nil {
		trackingDeps.Receipts = deps.Receipts
	}
	trackingSvc := tracking.NewService(trackingDeps)

	kycSvc := kyc.NewService(kyc.ServiceDeps{
		Provider:           deps.GridClient,
		AccountRepo:        deps.AccountRepo,
		VirtualAccountRepo: deps.VirtualAccountRepo,
	})

	healthH := handler.NewHealthHandler()
	authH := handler.NewAuthHandler(authSvc)
	invoiceH := handler.NewInvoiceHandler(invoiceSvc)
	trackingH := handler.NewTrackingHandler(trackingSvc, invoiceSvc)
	kycH := handler.NewKYCHandler(kycSvc)

	r.Route("/v1", func(r chi.Router) {
		// ── Public routes (no auth) ──────────────────────────────────────────
		r.Get("/health-check/{action}", healthH.Ping)
		r.With(sensitiveRL.Limit).Post("/auth/begin", authH.Begin)
		r.With(sensitiveRL.Limit).Post("/auth/verify", authH.Verify)

		// ── Authenticated routes ─────────────────────────────────────────────
		r.Group(func(r chi.Router) {
			r.Use(authMw)

			r.Post("/invoices", invoiceH.Create)
			r.Get("/invoices", invoiceH.List)
			r.Get("/invoices/{id}", invoiceH.Get)
			r.Patch("/invoices/{id}/status", invoiceH.UpdateStatus)
			r.Delete("/invoices/{id}", invoiceH.Delete)

			r.Post("/invoices/{id}/track/start", trackingH.Start)
			r.Post("/invoices/{id}/track/stop", trackingH.Stop)
			r.Get("/invoices/{id}/track/status", trackingH.Status)

			r.Post("/kyc", kycH.Initiate)
			r.Get("/kyc/status", kycH.Status)
			r.Post("/virtual-accounts", kycH.CreateVirtualAccount)
			r.Get("/virtual-accounts", kycH.GetVirtualAccount)
		})
	})

	return r, trackingSvc
}
