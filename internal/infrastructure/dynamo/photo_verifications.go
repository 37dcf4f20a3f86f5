package dynamo

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/go-dating-api/internal/domain"
)

// PhotoVerificationRepo stores verified-badge requests.
type PhotoVerificationRepo struct {
	client    *dynamodb.Client
	tableName string
}

func NewPhotoVerificationRepo(client *dynamodb.Client, tableName string) *PhotoVerificationRepo {
	return &PhotoVerificationRepo{client: client, tableName: tableName}
}

// pendingMarker is the key of the item that exists while userID has a
// request waiting for review. It carries no user_id or status, so it stays
// out of both GSIs and the status scans.
func pendingMarker(userID string) map[string]types.AttributeValue {
	return strKey("verification_id", "pending#"+userID)
}

// Create stores v together with its owner's pending marker. A second
// request while one is pending fails with ErrConflict.
func (r *PhotoVerificationRepo) Create(ctx context.Context, v *domain.PhotoVerification) error {
	item, err := attributevalue.MarshalMap(v)
	if err != nil {
		return fmt.Errorf("marshal verification: %w", err)
	}
	_, err = r.client.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{
		TransactItems: []types.TransactWriteItem{
			{Put: &types.Put{
				TableName:           aws.String(r.tableName),
				Item:                pendingMarker(v.UserID),
				ConditionExpression: aws.String("attribute_not_exists(verification_id)"),
			}},
			{Put: &types.Put{
				TableName:           aws.String(r.tableName),
				Item:                item,
				ConditionExpression: aws.String("attribute_not_exists(verification_id)"),
			}},
		},
	})
	if isTxnConditionFailed(err) {
		return fmt.Errorf("verification already pending: %w", domain.ErrConflict)
	}
	return err
}

func (r *PhotoVerificationRepo) Get(ctx context.Context, verificationID string) (*domain.PhotoVerification, error) {
	return getItem[domain.PhotoVerification](ctx, r.client, r.tableName, strKey("verification_id", verificationID), "verification")
}

// ListByUser returns userID's requests, newest first.
func (r *PhotoVerificationRepo) ListByUser(ctx context.Context, userID string) ([]domain.PhotoVerification, error) {
	return queryAll[domain.PhotoVerification](ctx, r.client, &dynamodb.QueryInput{
		TableName:                 aws.String(r.tableName),
		IndexName:                 aws.String(idxUserSubmitted),
		KeyConditionExpression:    aws.String("user_id = :u"),
		ExpressionAttributeValues: map[string]types.AttributeValue{":u": str(userID)},
		ScanIndexForward:          aws.Bool(false),
	})
}

// ListByStatus pages through requests in status, oldest first so the
// review queue is worked in submission order.
func (r *PhotoVerificationRepo) ListByStatus(ctx context.Context, status domain.VerificationStatus, limit int32, cursor string) ([]domain.PhotoVerification, string, error) {
	start, err := decodeCursor(cursor)
	if err != nil {
		return nil, "", err
	}
	out, err := r.client.Query(ctx, &dynamodb.QueryInput{
		TableName:                 aws.String(r.tableName),
		IndexName:                 aws.String(idxStatusSubmitted),
		KeyConditionExpression:    aws.String("#st = :s"),
		ExpressionAttributeNames:  map[string]string{"#st": fieldStatus},
		ExpressionAttributeValues: map[string]types.AttributeValue{":s": str(string(status))},
		Limit:                     aws.Int32(limit),
		ExclusiveStartKey:         start,
	})
	if err != nil {
		return nil, "", err
	}
	var items []domain.PhotoVerification
	if err := attributevalue.UnmarshalListOfMaps(out.Items, &items); err != nil {
		return nil, "", err
	}
	return items, encodeCursor(out.LastEvaluatedKey), nil
}

// Resolve applies a review to a pending request and clears its owner's
// marker. A request that is no longer pending fails with ErrConflict.
func (r *PhotoVerificationRepo) Resolve(ctx context.Context, v *domain.PhotoVerification, updates map[string]any) error {
	ue, err := buildUpdateExpr(updates)
	if err != nil {
		return err
	}
	ue.Names["#cur"] = fieldStatus
	ue.Values[":pending"] = str(string(domain.VerificationPending))
	_, err = r.client.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{
		TransactItems: []types.TransactWriteItem{
			{Update: &types.Update{
				TableName:                 aws.String(r.tableName),
				Key:                       strKey("verification_id", v.VerificationID),
				UpdateExpression:          aws.String(ue.Expr),
				ConditionExpression:       aws.String("#cur = :pending"),
				ExpressionAttributeNames:  ue.Names,
				ExpressionAttributeValues: ue.Values,
			}},
			{Delete: &types.Delete{
				TableName: aws.String(r.tableName),
				Key:       pendingMarker(v.UserID),
			}},
		},
	})
	if isTxnConditionFailed(err) {
		return fmt.Errorf("verification %s already reviewed: %w", v.VerificationID, domain.ErrConflict)
	}
	return err
}

func (r *PhotoVerificationRepo) CountByStatus(ctx context.Context, status domain.VerificationStatus) (int64, error) {
	return countItems(ctx, r.client, &dynamodb.ScanInput{
		TableName:                 aws.String(r.tableName),
		FilterExpression:          aws.String("#st = :s"),
		ExpressionAttributeNames:  map[string]string{"#st": fieldStatus},
		ExpressionAttributeValues: map[string]types.AttributeValue{":s": str(string(status))},
	})
}
