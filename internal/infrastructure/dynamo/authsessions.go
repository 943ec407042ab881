package dynamo

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/payorbit-api/internal/domain"
)

// AuthSessionRepo manages pending OTP challenge state, keyed by email.
// The table has TTL enabled on expires_at, so stale sessions are removed by
// DynamoDB automatically; deletion is lazy, so Get may still return a record
// past its expiry, so callers must check ExpiresAt themselves.
type AuthSessionRepo struct {
	client    *dynamodb.Client
	tableName string
}

func NewAuthSessionRepo(client *dynamodb.Client, tableName string) *AuthSessionRepo {
	return &AuthSessionRepo{client: client, tableName: tableName}
}

// Put writes the session, overwriting any previous session for the same
// email. This is how a re-issued challenge supersedes a pending one.
func (r *AuthSessionRepo) Put(ctx context.Context, s *domain.AuthSession) error {
	item, err := attributevalue.MarshalMap(s)
	if err != nil {
		return fmt.Errorf("marshal auth session: %w", err)
	}
	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.tableName),
		Item:      item,
	})
	return err
}

func (r *AuthSessionRepo) Get(ctx context.Context, email string) (*domain.AuthSession, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.tableName),
		Key:       strKey("email", email),
	})
	if err != nil {
		return nil, err
	}
	if out.Item == nil {
		return nil, fmt.Errorf("auth session not found: %w", domain.ErrNotFound)
	}
	var s domain.AuthSession
	if err := attributevalue.UnmarshalMap(out.Item, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *AuthSessionRepo) Delete(ctx context.Context, email string) error {
	_, err := r.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(r.tableName),
		Key:       strKey("email", email),
	})
	return err
}

// MarkVerified records a successful code check: status, returned signers and
// the verification timestamp.
func (r *AuthSessionRepo) MarkVerified(ctx context.Context, email string, signers []json.RawMessage, verifiedAt int64) error {
	expr, names, values, err := buildUpdateExpr(map[string]interface{}{
		fieldStatus:     domain.AuthVerified,
		fieldSigners:    signers,
		fieldVerifiedAt: verifiedAt,
	})
	if err != nil {
		return err
	}
	_, err = r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(r.tableName),
		Key:                       strKey("email", email),
		UpdateExpression:          aws.String(expr),
		ExpressionAttributeNames:  names,
		ExpressionAttributeValues: values,
	})
	return err
}
