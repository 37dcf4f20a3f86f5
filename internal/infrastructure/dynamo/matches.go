package dynamo

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/go-dating-api/internal/domain"
)

// MatchRepo stores matches keyed by the pair id. Each participant is
// reachable through its own GSI (user_a_id-index, user_b_id-index).
type MatchRepo struct {
	client    *dynamodb.Client
	tableName string
}

func NewMatchRepo(client *dynamodb.Client, tableName string) *MatchRepo {
	return &MatchRepo{client: client, tableName: tableName}
}

// Create writes m unless a match for the same pair exists (ErrConflict).
func (r *MatchRepo) Create(ctx context.Context, m *domain.Match) error {
	err := putItem(ctx, r.client, r.tableName, m, "attribute_not_exists(match_id)")
	if isConditionFailed(err) {
		return fmt.Errorf("match %s exists: %w", m.MatchID, domain.ErrConflict)
	}
	return err
}

// Get reads consistently so a match that lost a creation race, or was just
// unmatched, is seen as stored.
func (r *MatchRepo) Get(ctx context.Context, matchID string) (*domain.Match, error) {
	return getItemConsistent[domain.Match](ctx, r.client, r.tableName, strKey("match_id", matchID), "match")
}

// ListByUser returns the matches userID takes part in, newest first.
func (r *MatchRepo) ListByUser(ctx context.Context, userID string, activeOnly bool) ([]domain.Match, error) {
	var all []domain.Match
	for _, idx := range []struct{ name, attr string }{
		{idxUserA, "user_a_id"},
		{idxUserB, "user_b_id"},
	} {
		in := &dynamodb.QueryInput{
			TableName:                 aws.String(r.tableName),
			IndexName:                 aws.String(idx.name),
			KeyConditionExpression:    aws.String("#u = :u"),
			ExpressionAttributeNames:  map[string]string{"#u": idx.attr},
			ExpressionAttributeValues: map[string]types.AttributeValue{":u": str(userID)},
		}
		if activeOnly {
			in.FilterExpression = aws.String("#act = :t")
			in.ExpressionAttributeNames["#act"] = fieldActive
			in.ExpressionAttributeValues[":t"] = &types.AttributeValueMemberBOOL{Value: true}
		}
		page, err := queryAll[domain.Match](ctx, r.client, in)
		if err != nil {
			return nil, err
		}
		all = append(all, page...)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.After(all[j].CreatedAt) })
	return all, nil
}

// Deactivate closes a match; by records which participant ended it.
func (r *MatchRepo) Deactivate(ctx context.Context, matchID, by string) error {
	return updateItem(ctx, r.client, r.tableName, strKey("match_id", matchID), map[string]any{
		fieldActive:      false,
		fieldUnmatchedBy: by,
		fieldUpdatedAt:   time.Now().UTC(),
	})
}

// ScanPage returns a page of matches for the admin console.
func (r *MatchRepo) ScanPage(ctx context.Context, limit int32, cursor string) ([]domain.Match, string, error) {
	start, err := decodeCursor(cursor)
	if err != nil {
		return nil, "", err
	}
	out, err := r.client.Scan(ctx, &dynamodb.ScanInput{
		TableName:         aws.String(r.tableName),
		Limit:             aws.Int32(limit),
		ExclusiveStartKey: start,
	})
	if err != nil {
		return nil, "", err
	}
	var matches []domain.Match
	if err := attributevalue.UnmarshalListOfMaps(out.Items, &matches); err != nil {
		return nil, "", err
	}
	return matches, encodeCursor(out.LastEvaluatedKey), nil
}

// CountCreatedSince counts matches created at or after since, active or not.
func (r *MatchRepo) CountCreatedSince(ctx context.Context, since time.Time) (int64, error) {
	av, err := attributevalue.Marshal(since.UTC())
	if err != nil {
		return 0, err
	}
	return countItems(ctx, r.client, &dynamodb.ScanInput{
		TableName:                 aws.String(r.tableName),
		FilterExpression:          aws.String("#c >= :since"),
		ExpressionAttributeNames:  map[string]string{"#c": fieldCreatedAt},
		ExpressionAttributeValues: map[string]types.AttributeValue{":since": av},
	})
}

// CountActive counts active matches, restricted to those created at or
// after since when since is non-zero.
func (r *MatchRepo) CountActive(ctx context.Context, since time.Time) (int64, error) {
	filter := "#act = :t"
	names := map[string]string{"#act": fieldActive}
	values := map[string]types.AttributeValue{":t": &types.AttributeValueMemberBOOL{Value: true}}
	if !since.IsZero() {
		filter += " AND #c >= :since"
		names["#c"] = fieldCreatedAt
		av, err := attributevalue.Marshal(since.UTC())
		if err != nil {
			return 0, err
		}
		values[":since"] = av
	}
	return countItems(ctx, r.client, &dynamodb.ScanInput{
		TableName:                 aws.String(r.tableName),
		FilterExpression:          aws.String(filter),
		ExpressionAttributeNames:  names,
		ExpressionAttributeValues: values,
	})
}
