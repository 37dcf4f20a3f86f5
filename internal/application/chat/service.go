package chat

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/sirupsen/logrus"

	"github.com/go-dating-api/internal/application/event"
	"github.com/go-dating-api/internal/domain"
	"github.com/go-dating-api/internal/pkg/id"
	"github.com/go-dating-api/internal/pkg/logger"
)

const (
	DefaultPageSize = 50
	MaxPageSize     = 100
)

// Broadcaster fans a stored message out to the live connections of a match.
type Broadcaster interface {
	BroadcastMessage(msg *domain.Message, clientID string)
}

type Service interface {
	// Authorize returns the match when userID takes part in it.
	Authorize(ctx context.Context, userID, matchID string) (*domain.Match, error)
	// Join is Authorize for live chat: the match must still be active.
	Join(ctx context.Context, userID, matchID string) (*domain.Match, error)
	List(ctx context.Context, userID, matchID, before string, limit int) ([]domain.Message, error)
	Send(ctx context.Context, userID, matchID string, req domain.SendMessageRequest) (*domain.Message, error)
	// MarkRead marks every message the counterpart sent in matchID as read
	// and returns how many changed.
	MarkRead(ctx context.Context, userID, matchID string) (int, error)
}

type matchStore interface {
	Get(ctx context.Context, matchID string) (*domain.Match, error)
}

type messageStore interface {
	Put(ctx context.Context, m *domain.Message) error
	List(ctx context.Context, matchID, before string, limit int32) ([]domain.Message, error)
	ListUnread(ctx context.Context, matchID, readerID string) ([]domain.Message, error)
	MarkRead(ctx context.Context, matchID, messageID string, at time.Time) error
}

type service struct {
	matches     matchStore
	messages    messageStore
	broadcaster Broadcaster
	publisher   event.Publisher
	log         *logrus.Logger
}

type ServiceDeps struct {
	MatchRepo   matchStore
	MessageRepo messageStore
	Broadcaster Broadcaster
	Publisher   event.Publisher
	Log         *logrus.Logger
}

func NewService(deps ServiceDeps) Service {
	log := deps.Log
	if log == nil {
		log = logger.Discard()
	}
	return &service{
		matches:     deps.MatchRepo,
		messages:    deps.MessageRepo,
		broadcaster: deps.Broadcaster,
		publisher:   deps.Publisher,
		log:         log,
	}
}

func (s *service) Authorize(ctx context.Context, userID, matchID string) (*domain.Match, error) {
	m, err := s.matches.Get(ctx, matchID)
	if err != nil {
		return nil, err
	}
	if !m.Involves(userID) {
		return nil, fmt.Errorf("match %s: %w", matchID, domain.ErrNotFound)
	}
	return m, nil
}

func (s *service) Join(ctx context.Context, userID, matchID string) (*domain.Match, error) {
	m, err := s.Authorize(ctx, userID, matchID)
	if err != nil {
		return nil, err
	}
	if !m.Active {
		return nil, fmt.Errorf("match %s: %w", matchID, domain.ErrMatchClosed)
	}
	return m, nil
}

func (s *service) List(ctx context.Context, userID, matchID, before string, limit int) ([]domain.Message, error) {
	if _, err := s.Authorize(ctx, userID, matchID); err != nil {
		return nil, err
	}
	if limit < 1 {
		limit = DefaultPageSize
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}
	msgs, err := s.messages.List(ctx, matchID, before, int32(limit))
	if err != nil {
		return nil, err
	}
	if msgs == nil {
		msgs = []domain.Message{}
	}
	return msgs, nil
}

func (s *service) Send(ctx context.Context, userID, matchID string, req domain.SendMessageRequest) (*domain.Message, error) {
	content := strings.TrimSpace(req.Content)
	if content == "" {
		return nil, fmt.Errorf("message is empty: %w", domain.ErrBadRequest)
	}
	if utf8.RuneCountInString(content) > domain.MaxMessageRunes {
		return nil, fmt.Errorf("message exceeds %d characters: %w", domain.MaxMessageRunes, domain.ErrBadRequest)
	}
	m, err := s.Join(ctx, userID, matchID)
	if err != nil {
		return nil, err
	}
	msg := &domain.Message{
		MatchID:   matchID,
		MessageID: id.New(),
		SenderID:  userID,
		Content:   content,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.messages.Put(ctx, msg); err != nil {
		return nil, err
	}
	if s.broadcaster != nil {
		s.broadcaster.BroadcastMessage(msg, req.ClientID)
	}
	event.Emit(ctx, s.publisher, s.log, domain.EventMessageCreated, domain.MessageCreated{
		Message:     msg,
		RecipientID: m.Other(userID),
	})
	return msg, nil
}

func (s *service) MarkRead(ctx context.Context, userID, matchID string) (int, error) {
	if _, err := s.Authorize(ctx, userID, matchID); err != nil {
		return 0, err
	}
	unread, err := s.messages.ListUnread(ctx, matchID, userID)
	if err != nil {
		return 0, err
	}
	now := time.Now().UTC()
	for _, msg := range unread {
		if err := s.messages.MarkRead(ctx, matchID, msg.MessageID, now); err != nil {
			return 0, err
		}
	}
	return len(unread), nil
}
