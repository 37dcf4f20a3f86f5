package dynamo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"golang.org/x/sync/errgroup"

	"github.com/go-dating-api/internal/domain"
)

const disableConcurrency = 4

type SessionRepo struct {
	client    *dynamodb.Client
	tableName string
}

func NewSessionRepo(client *dynamodb.Client, tableName string) *SessionRepo {
	return &SessionRepo{client: client, tableName: tableName}
}

func (r *SessionRepo) Put(ctx context.Context, s *domain.Session) error {
	return putItem(ctx, r.client, r.tableName, s, "attribute_not_exists(session_id)")
}

func (r *SessionRepo) Get(ctx context.Context, sessionID string) (*domain.Session, error) {
	return getItem[domain.Session](ctx, r.client, r.tableName, strKey("session_id", sessionID), "session")
}

// ListByUser returns every session of userID, enabled or not.
func (r *SessionRepo) ListByUser(ctx context.Context, userID string) ([]domain.Session, error) {
	return queryAll[domain.Session](ctx, r.client, &dynamodb.QueryInput{
		TableName:                 aws.String(r.tableName),
		IndexName:                 aws.String(idxUserID),
		KeyConditionExpression:    aws.String("user_id = :uid"),
		ExpressionAttributeValues: map[string]types.AttributeValue{":uid": str(userID)},
	})
}

// DisableByUser turns off every enabled session of userID except keep and
// returns how many it disabled. All sessions are attempted; failures are
// joined.
func (r *SessionRepo) DisableByUser(ctx context.Context, userID, keep string) (int, error) {
	sessions, err := r.ListByUser(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("list sessions: %w", err)
	}
	var (
		g    errgroup.Group
		errs = make([]error, len(sessions))
		n    int
	)
	g.SetLimit(disableConcurrency)
	for i, s := range sessions {
		if !s.Enable || s.SessionID == keep {
			continue
		}
		n++
		g.Go(func() error {
			if err := r.Update(ctx, s.SessionID, map[string]any{fieldEnable: false}); err != nil {
				errs[i] = fmt.Errorf("disable session %s: %w", s.SessionID, err)
			}
			return nil
		})
	}
	_ = g.Wait()
	if err := errors.Join(errs...); err != nil {
		return 0, err
	}
	return n, nil
}

// SoftDeleteByUser disables all of userID's sessions.
func (r *SessionRepo) SoftDeleteByUser(ctx context.Context, userID string) error {
	_, err := r.DisableByUser(ctx, userID, "")
	return err
}

func (r *SessionRepo) Update(ctx context.Context, sessionID string, updates map[string]any) error {
	updates[fieldUpdatedAt] = time.Now().UTC()
	return updateItem(ctx, r.client, r.tableName, strKey("session_id", sessionID), updates)
}

// GetByRefreshToken resolves an opaque refresh token. A disabled session
// yields domain.ErrUnauthorized.
func (r *SessionRepo) GetByRefreshToken(ctx context.Context, token string) (*domain.Session, error) {
	out, err := r.client.Query(ctx, &dynamodb.QueryInput{
		TableName:                 aws.String(r.tableName),
		IndexName:                 aws.String(idxRefreshToken),
		KeyConditionExpression:    aws.String("refresh_token = :rt"),
		ExpressionAttributeValues: map[string]types.AttributeValue{":rt": str(token)},
		Limit:                     aws.Int32(1),
	})
	if err != nil {
		return nil, fmt.Errorf("query refresh token: %w", err)
	}
	if len(out.Items) == 0 {
		return nil, fmt.Errorf("session not found: %w", domain.ErrNotFound)
	}
	var s domain.Session
	if err := attributevalue.UnmarshalMap(out.Items[0], &s); err != nil {
		return nil, fmt.Errorf("unmarshal session: %w", err)
	}
	if !s.Enable {
		return nil, fmt.Errorf("session disabled: %w", domain.ErrUnauthorized)
	}
	return &s, nil
}

func (r *SessionRepo) RotateRefreshToken(ctx context.Context, sessionID, newToken string, newExpiry int64) error {
	return r.Update(ctx, sessionID, map[string]any{
		fieldRefreshToken:     newToken,
		fieldRefreshExpiresAt: newExpiry,
	})
}
