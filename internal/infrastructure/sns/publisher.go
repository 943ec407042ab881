package sns

import (
	"context"
	"encoding/json"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/payorbit-api/internal/config"
)

// EventPublisher publishes payment lifecycle events to an SNS topic.
// Publishing is best-effort: the reconciliation engine logs failures and
// moves on.
type EventPublisher interface {
	PublishInvoicePaid(ctx context.Context, event InvoicePaidEvent) error
}

// InvoicePaidEvent is emitted once when the poller finalizes an invoice.
type InvoicePaidEvent struct {
	InvoiceID  string `json:"invoice_id"`
	MerchantID string `json:"merchant_id"`
	Amount     string `json:"amount"`
	Currency   string `json:"currency"`
	TransferID string `json:"transfer_id"`
	PaidAt     string `json:"paid_at"`
}

type publisher struct {
	client   *sns.Client
	topicARN string
}

func NewPublisher(cfg *config.Config) (EventPublisher, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(),
		awsconfig.WithRegion(cfg.SNSRegion),
	)
	if err != nil {
		return nil, err
	}
	return &publisher{client: sns.NewFromConfig(awsCfg), topicARN: cfg.SNSTopicARN}, nil
}

func (p *publisher) PublishInvoicePaid(ctx context.Context, event InvoicePaidEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}
	msg := string(payload)
	_, err = p.client.Publish(ctx, &sns.PublishInput{
		TopicArn: &p.topicARN,
		Message:  &msg,
	})
	return err
}
