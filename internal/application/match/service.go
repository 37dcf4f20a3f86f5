package match

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/go-dating-api/internal/domain"
	"github.com/go-dating-api/internal/pkg/logger"
)

const (
	defaultPageSize = 50
	maxPageSize     = 200

	// AdminActor is recorded as unmatched_by when an admin removes a match.
	AdminActor = "admin"
)

type Service interface {
	// List returns userID's active matches with the counterpart's profile,
	// the latest message and the unread count.
	List(ctx context.Context, userID string) ([]domain.MatchSummary, error)
	// Get returns the match when userID takes part in it.
	Get(ctx context.Context, userID, matchID string) (*domain.Match, error)
	Unmatch(ctx context.Context, userID, matchID string) error
	AdminList(ctx context.Context, userID string, limit int, cursor string) ([]domain.Match, string, error)
	AdminDelete(ctx context.Context, matchID string) error
}

type matchStore interface {
	Get(ctx context.Context, matchID string) (*domain.Match, error)
	ListByUser(ctx context.Context, userID string, activeOnly bool) ([]domain.Match, error)
	Deactivate(ctx context.Context, matchID, by string) error
	ScanPage(ctx context.Context, limit int32, cursor string) ([]domain.Match, string, error)
}

type profileStore interface {
	Get(ctx context.Context, userID string) (*domain.Profile, error)
}

type messageStore interface {
	Latest(ctx context.Context, matchID string) (*domain.Message, error)
	ListUnread(ctx context.Context, matchID, readerID string) ([]domain.Message, error)
}

// RoomCloser ends the live chat of a match.
type RoomCloser interface {
	CloseRoom(matchID string)
}

type service struct {
	matches  matchStore
	profiles profileStore
	messages messageStore
	rooms    RoomCloser
	log      *logrus.Logger
}

type ServiceDeps struct {
	MatchRepo   matchStore
	ProfileRepo profileStore
	MessageRepo messageStore
	Rooms       RoomCloser
	Log         *logrus.Logger
}

func NewService(deps ServiceDeps) Service {
	log := deps.Log
	if log == nil {
		log = logger.Discard()
	}
	return &service{matches: deps.MatchRepo, profiles: deps.ProfileRepo, messages: deps.MessageRepo, rooms: deps.Rooms, log: log}
}

func (s *service) List(ctx context.Context, userID string) ([]domain.MatchSummary, error) {
	matches, err := s.matches.ListByUser(ctx, userID, true)
	if err != nil {
		return nil, err
	}
	out := make([]domain.MatchSummary, 0, len(matches))
	for i := range matches {
		m := &matches[i]
		sum := domain.MatchSummary{Match: m}
		if p, err := s.profiles.Get(ctx, m.Other(userID)); err == nil {
			pub := p.Public()
			sum.Profile = &pub
		} else {
			s.log.WithError(err).WithField("match_id", m.MatchID).Debug("match counterpart profile")
		}
		last, err := s.messages.Latest(ctx, m.MatchID)
		if err != nil {
			return nil, err
		}
		sum.LastMessage = last
		unread, err := s.messages.ListUnread(ctx, m.MatchID, userID)
		if err != nil {
			return nil, err
		}
		sum.Unread = len(unread)
		out = append(out, sum)
	}
	return out, nil
}

func (s *service) Get(ctx context.Context, userID, matchID string) (*domain.Match, error) {
	m, err := s.matches.Get(ctx, matchID)
	if err != nil {
		return nil, err
	}
	if !m.Involves(userID) {
		return nil, fmt.Errorf("match %s: %w", matchID, domain.ErrNotFound)
	}
	return m, nil
}

// Unmatch closes the match and its live chat for both participants.
// Closing an already closed match is a no-op.
func (s *service) Unmatch(ctx context.Context, userID, matchID string) error {
	m, err := s.Get(ctx, userID, matchID)
	if err != nil {
		return err
	}
	if !m.Active {
		return nil
	}
	return s.close(ctx, matchID, userID)
}

func (s *service) close(ctx context.Context, matchID, by string) error {
	if err := s.matches.Deactivate(ctx, matchID, by); err != nil {
		return err
	}
	if s.rooms != nil {
		s.rooms.CloseRoom(matchID)
	}
	s.log.WithFields(logrus.Fields{"match_id": matchID, "by": by}).Info("match closed")
	return nil
}

func (s *service) AdminList(ctx context.Context, userID string, limit int, cursor string) ([]domain.Match, string, error) {
	if userID != "" {
		ms, err := s.matches.ListByUser(ctx, userID, false)
		return ms, "", err
	}
	if limit < 1 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	return s.matches.ScanPage(ctx, int32(limit), cursor)
}

func (s *service) AdminDelete(ctx context.Context, matchID string) error {
	if _, err := s.matches.Get(ctx, matchID); err != nil {
		return err
	}
	return s.close(ctx, matchID, AdminActor)
}
