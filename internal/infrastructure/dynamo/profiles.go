package dynamo

import (
	"context"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/go-dating-api/internal/domain"
)

// ProfileRepo stores one dating profile per user, keyed by user_id.
type ProfileRepo struct {
	client    *dynamodb.Client
	tableName string
}

func NewProfileRepo(client *dynamodb.Client, tableName string) *ProfileRepo {
	return &ProfileRepo{client: client, tableName: tableName}
}

func (r *ProfileRepo) Put(ctx context.Context, p *domain.Profile) error {
	return putItem(ctx, r.client, r.tableName, p, "")
}

func (r *ProfileRepo) Get(ctx context.Context, userID string) (*domain.Profile, error) {
	return getItem[domain.Profile](ctx, r.client, r.tableName, strKey("user_id", userID), "profile")
}

func (r *ProfileRepo) Update(ctx context.Context, userID string, updates map[string]any) error {
	updates[fieldUpdatedAt] = time.Now().UTC()
	return updateItem(ctx, r.client, r.tableName, strKey("user_id", userID), updates)
}

// ListEnabled returns every enabled profile. Discovery filters and ranks
// the result in memory.
func (r *ProfileRepo) ListEnabled(ctx context.Context) ([]domain.Profile, error) {
	return scanAll[domain.Profile](ctx, r.client, &dynamodb.ScanInput{
		TableName:                 aws.String(r.tableName),
		FilterExpression:          aws.String("#en = :t"),
		ExpressionAttributeNames:  map[string]string{"#en": fieldEnable},
		ExpressionAttributeValues: map[string]types.AttributeValue{":t": &types.AttributeValueMemberBOOL{Value: true}},
	})
}
