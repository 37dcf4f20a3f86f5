package dynamo

import (
	"context"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/go-dating-api/internal/domain"
)

// NotificationRepo provides typed DynamoDB operations for the notifications table.
type NotificationRepo struct {
	client    *dynamodb.Client
	tableName string
}

func NewNotificationRepo(client *dynamodb.Client, tableName string) *NotificationRepo {
	return &NotificationRepo{client: client, tableName: tableName}
}

func (r *NotificationRepo) Put(ctx context.Context, n *domain.Notification) error {
	return putItem(ctx, r.client, r.tableName, n, "")
}

func (r *NotificationRepo) Get(ctx context.Context, notificationID string) (*domain.Notification, error) {
	return getItem[domain.Notification](ctx, r.client, r.tableName, strKey("notification_id", notificationID), "notification")
}

// ListUnread queries the user_id-created_at GSI newest first and filters for read=0.
func (r *NotificationRepo) ListUnread(ctx context.Context, userID string) ([]domain.Notification, error) {
	return queryAll[domain.Notification](ctx, r.client, &dynamodb.QueryInput{
		TableName:                aws.String(r.tableName),
		IndexName:                aws.String(idxUserCreated),
		KeyConditionExpression:   aws.String("user_id = :uid"),
		FilterExpression:         aws.String("#rd = :zero"),
		ExpressionAttributeNames: map[string]string{"#rd": fieldRead},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":uid":  str(userID),
			":zero": &types.AttributeValueMemberN{Value: "0"},
		},
		ScanIndexForward: aws.Bool(false),
	})
}

func (r *NotificationRepo) MarkAsRead(ctx context.Context, notificationID string) error {
	return updateItem(ctx, r.client, r.tableName, strKey("notification_id", notificationID), map[string]any{
		fieldRead:      1,
		fieldUpdatedAt: time.Now().UTC(),
	})
}
