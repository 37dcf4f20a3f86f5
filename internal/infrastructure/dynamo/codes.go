package dynamo

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"

	"github.com/go-dating-api/internal/domain"
)

// CodeRepo manages one-time codes (password reset, email and phone confirmation).
// PK: user_id, SK: type. Items expire through the table TTL on expires_at.
type CodeRepo struct {
	client    *dynamodb.Client
	tableName string
}

func NewCodeRepo(client *dynamodb.Client, tableName string) *CodeRepo {
	return &CodeRepo{client: client, tableName: tableName}
}

func (r *CodeRepo) Put(ctx context.Context, c *domain.VerificationCode) error {
	return putItem(ctx, r.client, r.tableName, c, "")
}

func (r *CodeRepo) Get(ctx context.Context, userID, codeType string) (*domain.VerificationCode, error) {
	return getItem[domain.VerificationCode](ctx, r.client, r.tableName, compositeKey("user_id", userID, "type", codeType), "verification code")
}

func (r *CodeRepo) Delete(ctx context.Context, userID, codeType string) error {
	_, err := r.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(r.tableName),
		Key:       compositeKey("user_id", userID, "type", codeType),
	})
	return err
}
