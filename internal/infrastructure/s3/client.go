package s3infra

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/payorbit-api/internal/config"
)

// NewClient creates an S3 client. When cfg.AWSEndpointURL is set (LocalStack),
// it overrides the endpoint so all traffic goes to the local instance.
func NewClient(cfg *config.Config) *s3.Client {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.AWSRegion),
	}

	if cfg.AWSAccessKeyID != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AWSAccessKeyID, cfg.AWSSecretKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(), opts...)
	if err != nil {
		panic("failed to load AWS config for S3: " + err.Error())
	}

	clientOpts := []func(*s3.Options){}
	if cfg.AWSEndpointURL != "" {
		clientOpts = append(clientOpts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(cfg.AWSEndpointURL)
			o.UsePathStyle = true
		})
	}

	return s3.NewFromConfig(awsCfg, clientOpts...)
}

// ReceiptStore archives payment receipts as JSON objects, one per paid
// invoice, under receipts/<invoice_id>.json.
type ReceiptStore struct {
	client *s3.Client
	bucket string
}

func NewReceiptStore(client *s3.Client, bucket string) *ReceiptStore {
	return &ReceiptStore{client: client, bucket: bucket}
}

// PutReceipt serializes the receipt and uploads it, returning the object URL.
func (s *ReceiptStore) PutReceipt(ctx context.Context, invoiceID string, receipt interface{}) (string, error) {
	payload, err := json.Marshal(receipt)
	if err != nil {
		return "", fmt.Errorf("marshal receipt: %w", err)
	}
	key := fmt.Sprintf("receipts/%s.json", invoiceID)
	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(payload),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return "", fmt.Errorf("s3 put receipt: %w", err)
	}
	return fmt.Sprintf("s3://%s/%s", s.bucket, key), nil
}
