package discovery

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"time"

	"github.com/go-dating-api/internal/domain"
	"github.com/go-dating-api/internal/pkg/geo"
)

const (
	DefaultLimit = 20
	MaxLimit     = 50
)

type Service interface {
	Candidates(ctx context.Context, viewerID string, limit int) ([]domain.PublicProfile, error)
	// LikesReceived lists who liked the viewer and is still waiting for an
	// answer. Only plans with SeeWhoLikedYou may call it.
	LikesReceived(ctx context.Context, viewerID string) ([]domain.PublicProfile, error)
}

type profileStore interface {
	Get(ctx context.Context, userID string) (*domain.Profile, error)
	ListEnabled(ctx context.Context) ([]domain.Profile, error)
}

type swipeStore interface {
	ListByActor(ctx context.Context, actorID string) ([]domain.Swipe, error)
	ListPositiveByTarget(ctx context.Context, targetID string) ([]domain.Swipe, error)
}

type matchStore interface {
	ListByUser(ctx context.Context, userID string, activeOnly bool) ([]domain.Match, error)
}

type boostReader interface {
	Boosted(ctx context.Context, userIDs []string) (map[string]bool, error)
}

type entitlementSource interface {
	Entitlements(ctx context.Context, userID string) (domain.Plan, error)
}

type service struct {
	profiles profileStore
	swipes   swipeStore
	matches  matchStore
	boosts   boostReader
	plans    entitlementSource
	now      func() time.Time
}

type ServiceDeps struct {
	ProfileRepo profileStore
	SwipeRepo   swipeStore
	MatchRepo   matchStore
	Boosts      boostReader
	Plans       entitlementSource
}

func NewService(deps ServiceDeps) Service {
	return &service{
		profiles: deps.ProfileRepo,
		swipes:   deps.SwipeRepo,
		matches:  deps.MatchRepo,
		boosts:   deps.Boosts,
		plans:    deps.Plans,
		now:      time.Now,
	}
}

type candidate struct {
	profile  *domain.Profile
	distance *float64
	boosted  bool
}

func (s *service) Candidates(ctx context.Context, viewerID string, limit int) ([]domain.PublicProfile, error) {
	if limit < 1 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}
	viewer, err := s.profiles.Get(ctx, viewerID)
	if err != nil {
		return nil, err
	}
	exclude, err := s.seen(ctx, viewerID)
	if err != nil {
		return nil, err
	}
	all, err := s.profiles.ListEnabled(ctx)
	if err != nil {
		return nil, err
	}

	now := s.now()
	prefs := viewer.Preferences
	var pool []candidate
	for i := range all {
		p := &all[i]
		if p.UserID == viewerID || exclude[p.UserID] || !p.Enable {
			continue
		}
		if len(prefs.InterestedIn) > 0 && !slices.Contains(prefs.InterestedIn, p.Gender) {
			continue
		}
		if age := domain.AgeAt(p.Birthdate, now); (prefs.AgeMin > 0 && age < prefs.AgeMin) || (prefs.AgeMax > 0 && age > prefs.AgeMax) {
			continue
		}
		c := candidate{profile: p}
		if viewer.Location != nil && p.Location != nil {
			d := geo.DistanceKM(viewer.Location.Lat, viewer.Location.Lng, p.Location.Lat, p.Location.Lng)
			if prefs.MaxDistanceKM > 0 && d > float64(prefs.MaxDistanceKM) {
				continue
			}
			c.distance = &d
		}
		pool = append(pool, c)
	}

	ids := make([]string, len(pool))
	for i, c := range pool {
		ids[i] = c.profile.UserID
	}
	boosted, err := s.boosts.Boosted(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range pool {
		pool[i].boosted = boosted[pool[i].profile.UserID]
	}

	sort.SliceStable(pool, func(i, j int) bool { return rankBefore(pool[i], pool[j]) })
	if len(pool) > limit {
		pool = pool[:limit]
	}
	out := make([]domain.PublicProfile, len(pool))
	for i, c := range pool {
		out[i] = c.profile.Public()
		out[i].Boosted = c.boosted
		if c.distance != nil {
			d := geo.Round1(*c.distance)
			out[i].DistanceKM = &d
		}
	}
	return out, nil
}

// rankBefore orders boosted, then verified, then located by ascending
// distance ahead of unlocated, then most recently updated.
func rankBefore(a, b candidate) bool {
	if a.boosted != b.boosted {
		return a.boosted
	}
	if a.profile.Verified != b.profile.Verified {
		return a.profile.Verified
	}
	if (a.distance == nil) != (b.distance == nil) {
		return a.distance != nil
	}
	if a.distance != nil && *a.distance != *b.distance {
		return *a.distance < *b.distance
	}
	return a.profile.UpdatedAt.After(b.profile.UpdatedAt)
}

// seen returns everyone viewerID already swiped or matched with.
func (s *service) seen(ctx context.Context, viewerID string) (map[string]bool, error) {
	swiped, err := s.swipes.ListByActor(ctx, viewerID)
	if err != nil {
		return nil, err
	}
	matched, err := s.matches.ListByUser(ctx, viewerID, false)
	if err != nil {
		return nil, err
	}
	out := make(map[string]bool, len(swiped)+len(matched))
	for _, sw := range swiped {
		out[sw.TargetID] = true
	}
	for i := range matched {
		out[matched[i].Other(viewerID)] = true
	}
	return out, nil
}

func (s *service) LikesReceived(ctx context.Context, viewerID string) ([]domain.PublicProfile, error) {
	plan, err := s.plans.Entitlements(ctx, viewerID)
	if err != nil {
		return nil, err
	}
	if !plan.Entitlements.SeeWhoLikedYou {
		return nil, fmt.Errorf("seeing who liked you needs the gold plan: %w", domain.ErrPaymentRequired)
	}
	likes, err := s.swipes.ListPositiveByTarget(ctx, viewerID)
	if err != nil {
		return nil, err
	}
	answered, err := s.seen(ctx, viewerID)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(likes, func(i, j int) bool { return likes[i].CreatedAt.After(likes[j].CreatedAt) })
	out := make([]domain.PublicProfile, 0, len(likes))
	for _, l := range likes {
		if answered[l.ActorID] {
			continue
		}
		p, err := s.profiles.Get(ctx, l.ActorID)
		if err != nil || !p.Enable {
			continue
		}
		out = append(out, p.Public())
	}
	return out, nil
}
