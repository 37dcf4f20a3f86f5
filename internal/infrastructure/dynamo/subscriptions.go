package dynamo

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/go-dating-api/internal/domain"
)

// SubscriptionRepo stores plan subscriptions and their PIX charges.
type SubscriptionRepo struct {
	client    *dynamodb.Client
	tableName string
}

func NewSubscriptionRepo(client *dynamodb.Client, tableName string) *SubscriptionRepo {
	return &SubscriptionRepo{client: client, tableName: tableName}
}

func (r *SubscriptionRepo) Put(ctx context.Context, s *domain.Subscription) error {
	return putItem(ctx, r.client, r.tableName, s, "")
}

func (r *SubscriptionRepo) Get(ctx context.Context, subscriptionID string) (*domain.Subscription, error) {
	return getItem[domain.Subscription](ctx, r.client, r.tableName, strKey("subscription_id", subscriptionID), "subscription")
}

// GetByTxID resolves the subscription a PIX charge belongs to.
func (r *SubscriptionRepo) GetByTxID(ctx context.Context, txid string) (*domain.Subscription, error) {
	out, err := r.client.Query(ctx, &dynamodb.QueryInput{
		TableName:                 aws.String(r.tableName),
		IndexName:                 aws.String(idxPIXTxID),
		KeyConditionExpression:    aws.String("pix_txid = :tx"),
		ExpressionAttributeValues: map[string]types.AttributeValue{":tx": str(txid)},
		Limit:                     aws.Int32(1),
	})
	if err != nil {
		return nil, err
	}
	if len(out.Items) == 0 {
		return nil, fmt.Errorf("subscription not found: %w", domain.ErrNotFound)
	}
	var s domain.Subscription
	if err := attributevalue.UnmarshalMap(out.Items[0], &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// ListByUser returns all subscriptions of userID, newest first.
func (r *SubscriptionRepo) ListByUser(ctx context.Context, userID string) ([]domain.Subscription, error) {
	return queryAll[domain.Subscription](ctx, r.client, &dynamodb.QueryInput{
		TableName:                 aws.String(r.tableName),
		IndexName:                 aws.String(idxUserCreated),
		KeyConditionExpression:    aws.String("user_id = :u"),
		ExpressionAttributeValues: map[string]types.AttributeValue{":u": str(userID)},
		ScanIndexForward:          aws.Bool(false),
	})
}

func (r *SubscriptionRepo) Update(ctx context.Context, subscriptionID string, updates map[string]any) error {
	updates[fieldUpdatedAt] = time.Now().UTC()
	return updateItem(ctx, r.client, r.tableName, strKey("subscription_id", subscriptionID), updates)
}

// ListAll returns every subscription; used by admin listings and analytics.
func (r *SubscriptionRepo) ListAll(ctx context.Context) ([]domain.Subscription, error) {
	return scanAll[domain.Subscription](ctx, r.client, &dynamodb.ScanInput{TableName: aws.String(r.tableName)})
}
