package dynamo

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/go-dating-api/internal/domain"
)

// SwipeRepo stores swipes. PK: actor_id, SK: target_id, so an actor can
// swipe a target at most once. The target_id-index GSI answers
// "who swiped me".
type SwipeRepo struct {
	client    *dynamodb.Client
	tableName string
}

func NewSwipeRepo(client *dynamodb.Client, tableName string) *SwipeRepo {
	return &SwipeRepo{client: client, tableName: tableName}
}

// Create writes s unless the actor already swiped the target (ErrConflict).
func (r *SwipeRepo) Create(ctx context.Context, s *domain.Swipe) error {
	err := putItem(ctx, r.client, r.tableName, s, "attribute_not_exists(actor_id)")
	if isConditionFailed(err) {
		return fmt.Errorf("already swiped: %w", domain.ErrConflict)
	}
	return err
}

// Get reads consistently: a mutual like must see the other side's swipe
// even when both were written at the same moment.
func (r *SwipeRepo) Get(ctx context.Context, actorID, targetID string) (*domain.Swipe, error) {
	return getItemConsistent[domain.Swipe](ctx, r.client, r.tableName, compositeKey("actor_id", actorID, "target_id", targetID), "swipe")
}

// ListByActor returns every swipe actorID made.
func (r *SwipeRepo) ListByActor(ctx context.Context, actorID string) ([]domain.Swipe, error) {
	return queryAll[domain.Swipe](ctx, r.client, &dynamodb.QueryInput{
		TableName:                 aws.String(r.tableName),
		KeyConditionExpression:    aws.String("actor_id = :a"),
		ExpressionAttributeValues: map[string]types.AttributeValue{":a": str(actorID)},
	})
}

// ListPositiveByTarget returns likes and superlikes received by targetID.
func (r *SwipeRepo) ListPositiveByTarget(ctx context.Context, targetID string) ([]domain.Swipe, error) {
	return queryAll[domain.Swipe](ctx, r.client, &dynamodb.QueryInput{
		TableName:                aws.String(r.tableName),
		IndexName:                aws.String(idxTarget),
		KeyConditionExpression:   aws.String("target_id = :t"),
		FilterExpression:         aws.String("#ac <> :dislike"),
		ExpressionAttributeNames: map[string]string{"#ac": "action"},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":t":       str(targetID),
			":dislike": str(string(domain.SwipeDislike)),
		},
	})
}
