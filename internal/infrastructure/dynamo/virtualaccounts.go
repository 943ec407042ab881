package dynamo

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/payorbit-api/internal/domain"
)

// VirtualAccountRepo provides typed DynamoDB operations for the
// virtual_accounts table.
type VirtualAccountRepo struct {
	client    *dynamodb.Client
	tableName string
}

func NewVirtualAccountRepo(client *dynamodb.Client, tableName string) *VirtualAccountRepo {
	return &VirtualAccountRepo{client: client, tableName: tableName}
}

func (r *VirtualAccountRepo) Put(ctx context.Context, va *domain.VirtualAccount) error {
	item, err := attributevalue.MarshalMap(va)
	if err != nil {
		return fmt.Errorf("marshal virtual account: %w", err)
	}
	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.tableName),
		Item:      item,
	})
	return err
}

func (r *VirtualAccountRepo) Get(ctx context.Context, virtualAccountID string) (*domain.VirtualAccount, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.tableName),
		Key:       strKey("virtual_account_id", virtualAccountID),
	})
	if err != nil {
		return nil, err
	}
	if out.Item == nil {
		return nil, fmt.Errorf("virtual account not found: %w", domain.ErrNotFound)
	}
	var va domain.VirtualAccount
	if err := attributevalue.UnmarshalMap(out.Item, &va); err != nil {
		return nil, err
	}
	return &va, nil
}

// GetByCustomer returns the first virtual account for a provider customer id
// via the customer_id GSI.
func (r *VirtualAccountRepo) GetByCustomer(ctx context.Context, customerID string) (*domain.VirtualAccount, error) {
	out, err := r.client.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(r.tableName),
		IndexName:              aws.String("customer_id-index"),
		KeyConditionExpression: aws.String("customer_id = :cid"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":cid": &types.AttributeValueMemberS{Value: customerID},
		},
		Limit: aws.Int32(1),
	})
	if err != nil {
		return nil, err
	}
	if len(out.Items) == 0 {
		return nil, fmt.Errorf("virtual account not found: %w", domain.ErrNotFound)
	}
	var va domain.VirtualAccount
	if err := attributevalue.UnmarshalMap(out.Items[0], &va); err != nil {
		return nil, err
	}
	return &va, nil
}
