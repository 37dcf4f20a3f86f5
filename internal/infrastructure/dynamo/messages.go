package dynamo

import (
	"context"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/go-dating-api/internal/domain"
)

// MessageRepo stores chat messages. PK: match_id, SK: message_id (ULID), so
// a query on one match returns messages in send order.
type MessageRepo struct {
	client    *dynamodb.Client
	tableName string
}

func NewMessageRepo(client *dynamodb.Client, tableName string) *MessageRepo {
	return &MessageRepo{client: client, tableName: tableName}
}

func (r *MessageRepo) Put(ctx context.Context, m *domain.Message) error {
	return putItem(ctx, r.client, r.tableName, m, "")
}

// List returns up to limit messages of matchID newest first. A non-empty
// before restricts the page to messages older than that message id.
func (r *MessageRepo) List(ctx context.Context, matchID, before string, limit int32) ([]domain.Message, error) {
	cond := "match_id = :m"
	values := map[string]types.AttributeValue{":m": str(matchID)}
	if before != "" {
		cond += " AND message_id < :b"
		values[":b"] = str(before)
	}
	out, err := r.client.Query(ctx, &dynamodb.QueryInput{
		TableName:                 aws.String(r.tableName),
		KeyConditionExpression:    aws.String(cond),
		ExpressionAttributeValues: values,
		ScanIndexForward:          aws.Bool(false),
		Limit:                     aws.Int32(limit),
	})
	if err != nil {
		return nil, err
	}
	var msgs []domain.Message
	if err := attributevalue.UnmarshalListOfMaps(out.Items, &msgs); err != nil {
		return nil, err
	}
	return msgs, nil
}

// Latest returns the newest message of matchID, or nil when there is none.
func (r *MessageRepo) Latest(ctx context.Context, matchID string) (*domain.Message, error) {
	msgs, err := r.List(ctx, matchID, "", 1)
	if err != nil || len(msgs) == 0 {
		return nil, err
	}
	return &msgs[0], nil
}

// ListUnread returns the messages of matchID not yet read by readerID.
func (r *MessageRepo) ListUnread(ctx context.Context, matchID, readerID string) ([]domain.Message, error) {
	return queryAll[domain.Message](ctx, r.client, &dynamodb.QueryInput{
		TableName:                aws.String(r.tableName),
		KeyConditionExpression:   aws.String("match_id = :m"),
		FilterExpression:         aws.String("#rd = :f AND sender_id <> :r"),
		ExpressionAttributeNames: map[string]string{"#rd": fieldRead},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":m": str(matchID),
			":r": str(readerID),
			":f": &types.AttributeValueMemberBOOL{Value: false},
		},
	})
}

func (r *MessageRepo) MarkRead(ctx context.Context, matchID, messageID string, at time.Time) error {
	return updateItem(ctx, r.client, r.tableName, compositeKey("match_id", matchID, "message_id", messageID), map[string]any{
		fieldRead:   true,
		fieldReadAt: at.UTC(),
	})
}

func (r *MessageRepo) Count(ctx context.Context) (int64, error) {
	return countItems(ctx, r.client, &dynamodb.ScanInput{TableName: aws.String(r.tableName)})
}
