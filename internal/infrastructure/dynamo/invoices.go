package dynamo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/payorbit-api/internal/domain"
)

// InvoiceRepo provides typed DynamoDB operations for the invoices table.
type InvoiceRepo struct {
	client    *dynamodb.Client
	tableName string
}

func NewInvoiceRepo(client *dynamodb.Client, tableName string) *InvoiceRepo {
	return &InvoiceRepo{client: client, tableName: tableName}
}

func (r *InvoiceRepo) Put(ctx context.Context, inv *domain.Invoice) error {
	item, err := attributevalue.MarshalMap(inv)
	if err != nil {
		return fmt.Errorf("marshal invoice: %w", err)
	}
	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.tableName),
		Item:      item,
	})
	return err
}

func (r *InvoiceRepo) Get(ctx context.Context, invoiceID string) (*domain.Invoice, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.tableName),
		Key:       strKey("invoice_id", invoiceID),
	})
	if err != nil {
		return nil, err
	}
	if out.Item == nil {
		return nil, fmt.Errorf("invoice not found: %w", domain.ErrNotFound)
	}
	var inv domain.Invoice
	if err := attributevalue.UnmarshalMap(out.Item, &inv); err != nil {
		return nil, err
	}
	return &inv, nil
}

// ListByMerchant returns a merchant's invoices, newest first, via the
// merchant_id-created_at GSI.
func (r *InvoiceRepo) ListByMerchant(ctx context.Context, merchantID string) ([]domain.Invoice, error) {
	out, err := r.client.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(r.tableName),
		IndexName:              aws.String("merchant_id-created_at-index"),
		KeyConditionExpression: aws.String("merchant_id = :mid"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":mid": &types.AttributeValueMemberS{Value: merchantID},
		},
		ScanIndexForward: aws.Bool(false),
	})
	if err != nil {
		return nil, err
	}
	var invoices []domain.Invoice
	if err := attributevalue.UnmarshalListOfMaps(out.Items, &invoices); err != nil {
		return nil, err
	}
	return invoices, nil
}

func (r *InvoiceRepo) Update(ctx context.Context, invoiceID string, updates map[string]interface{}) error {
	updates["updated_at"] = time.Now().UTC().Format(time.RFC3339)
	expr, names, values, err := buildUpdateExpr(updates)
	if err != nil {
		return err
	}
	_, err = r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(r.tableName),
		Key:                       strKey("invoice_id", invoiceID),
		UpdateExpression:          aws.String(expr),
		ExpressionAttributeNames:  names,
		ExpressionAttributeValues: values,
	})
	return err
}

// MarkPaid finalizes an invoice as a single conditional write: status, paid_at
// and transfer_id are set only when the invoice is still pending. When the
// condition fails (manual edit raced the poller) it returns ErrConflict so the
// caller can treat the write as a no-op.
func (r *InvoiceRepo) MarkPaid(ctx context.Context, invoiceID, transferID string, paidAt time.Time) error {
	_, err := r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:           aws.String(r.tableName),
		Key:                 strKey("invoice_id", invoiceID),
		UpdateExpression:    aws.String("SET #s = :paid, #p = :paid_at, #t = :tid, #u = :now"),
		ConditionExpression: aws.String("#s = :pending"),
		ExpressionAttributeNames: map[string]string{
			"#s": fieldStatus,
			"#p": fieldPaidAt,
			"#t": fieldTransferID,
			"#u": "updated_at",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":paid":    &types.AttributeValueMemberS{Value: domain.InvoicePaid},
			":pending": &types.AttributeValueMemberS{Value: domain.InvoicePending},
			":paid_at": &types.AttributeValueMemberS{Value: paidAt.UTC().Format(time.RFC3339)},
			":tid":     &types.AttributeValueMemberS{Value: transferID},
			":now":     &types.AttributeValueMemberS{Value: time.Now().UTC().Format(time.RFC3339)},
		},
	})
	if err != nil {
		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			return fmt.Errorf("invoice no longer pending: %w", domain.ErrConflict)
		}
		return err
	}
	return nil
}

// UpdateStatus performs a manual status edit as a conditional write: the
// update succeeds only while the invoice still holds the expected status, so
// it cannot race the poller's MarkPaid.
func (r *InvoiceRepo) UpdateStatus(ctx context.Context, invoiceID, from, to string) error {
	_, err := r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:           aws.String(r.tableName),
		Key:                 strKey("invoice_id", invoiceID),
		UpdateExpression:    aws.String("SET #s = :to, #u = :now"),
		ConditionExpression: aws.String("#s = :from"),
		ExpressionAttributeNames: map[string]string{
			"#s": fieldStatus,
			"#u": "updated_at",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":to":   &types.AttributeValueMemberS{Value: to},
			":from": &types.AttributeValueMemberS{Value: from},
			":now":  &types.AttributeValueMemberS{Value: time.Now().UTC().Format(time.RFC3339)},
		},
	})
	if err != nil {
		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			return fmt.Errorf("invoice status changed concurrently: %w", domain.ErrConflict)
		}
		return err
	}
	return nil
}

func (r *InvoiceRepo) Delete(ctx context.Context, invoiceID string) error {
	_, err := r.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(r.tableName),
		Key:       strKey("invoice_id", invoiceID),
	})
	return err
}
