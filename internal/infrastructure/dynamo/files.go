package dynamo

import (
	"context"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"

	"github.com/go-dating-api/internal/domain"
)

// FileRepo provides typed DynamoDB operations for the files table.
type FileRepo struct {
	client    *dynamodb.Client
	tableName string
}

func NewFileRepo(client *dynamodb.Client, tableName string) *FileRepo {
	return &FileRepo{client: client, tableName: tableName}
}

func (r *FileRepo) Put(ctx context.Context, f *domain.File) error {
	return putItem(ctx, r.client, r.tableName, f, "")
}

func (r *FileRepo) Get(ctx context.Context, fileID string) (*domain.File, error) {
	return getItem[domain.File](ctx, r.client, r.tableName, strKey("file_id", fileID), "file")
}

func (r *FileRepo) SoftDelete(ctx context.Context, fileID string) error {
	return updateItem(ctx, r.client, r.tableName, strKey("file_id", fileID), map[string]any{
		fieldEnable:    false,
		fieldUpdatedAt: time.Now().UTC(),
	})
}
