package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/payorbit-api/internal/config"
	"github.com/payorbit-api/internal/infrastructure/dynamo"
	"github.com/payorbit-api/internal/infrastructure/grid"
	jwtinfra "github.com/payorbit-api/internal/infrastructure/jwt"
	s3infra "github.com/payorbit-api/internal/infrastructure/s3"
	"github.com/payorbit-api/internal/infrastructure/smtp"
	"github.com/payorbit-api/internal/infrastructure/sns"
	transporthttp "github.com/payorbit-api/internal/transport/http"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, reading from environment")
	}

	cfg := config.Load()

	// Bootstrap DynamoDB tables (creates them if they don't exist).
	dynamoClient := dynamo.NewClient(cfg)
	dynamo.Bootstrap(context.Background(), dynamoClient, cfg.DynamoTables)

	// JWT provider is optional; missing keys disable authenticated routes.
	var jwtProvider *jwtinfra.Provider
	if p, err := jwtinfra.NewProvider(cfg); err == nil {
		jwtProvider = p
	} else {
		log.Printf("WARN: JWT provider not available: %v", err)
	}

	// Receipt archive on S3 (optional).
	var receipts *s3infra.ReceiptStore
	if cfg.S3BucketName != "" {
		receipts = s3infra.NewReceiptStore(s3infra.NewClient(cfg), cfg.S3BucketName)
	} else {
		log.Println("WARN: no S3 bucket configured, paid-invoice receipts disabled")
	}

	// invoice.paid event publisher is optional.
	var publisher sns.EventPublisher
	if cfg.SNSTopicARN != "" {
		if p, err := sns.NewPublisher(cfg); err == nil {
			publisher = p
		} else {
			log.Printf("WARN: SNS publisher not available: %v", err)
		}
	}

	deps := &transporthttp.Deps{
		AccountRepo:        dynamo.NewAccountRepo(dynamoClient, cfg.DynamoTables.Accounts),
		AuthSessionRepo:    dynamo.NewAuthSessionRepo(dynamoClient, cfg.DynamoTables.AuthSessions),
		InvoiceRepo:        dynamo.NewInvoiceRepo(dynamoClient, cfg.DynamoTables.Invoices),
		VirtualAccountRepo: dynamo.NewVirtualAccountRepo(dynamoClient, cfg.DynamoTables.VirtualAccounts),
		GridClient:         grid.NewClient(cfg),
		Publisher:          publisher,
		Receipts:           receipts,
		Mailer:             smtp.NewMailer(cfg),
		JWTProvider:        jwtProvider,
	}

	router, trackingSvc := transporthttp.NewRouter(cfg, deps)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.AppPort),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("Server starting on :%s (env=%s)", cfg.AppPort, cfg.AppEnv)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("forced shutdown: %v", err)
	}
	trackingSvc.StopAll()
	log.Println("Server stopped")
}
