package profile

import (
	"context"
	"fmt"
	"io"
	"slices"
	"time"

	"github.com/go-dating-api/internal/application/media"
	"github.com/go-dating-api/internal/domain"
	"github.com/go-dating-api/internal/pkg/geo"
)

const (
	fieldName        = "name"
	fieldBirthdate   = "birthdate"
	fieldBio         = "bio"
	fieldGender      = "gender"
	fieldInterests   = "interests"
	fieldPreferences = "preferences"
	fieldLocation    = "location"
	fieldPhotos      = "photos"
)

type PhotoUpload struct {
	Reader   io.Reader
	Filename string
}

type Service interface {
	Get(ctx context.Context, userID string) (*domain.Profile, error)
	// Public returns what viewerID may see of userID's profile, with the
	// distance between them when both have a location.
	Public(ctx context.Context, viewerID, userID string) (*domain.PublicProfile, error)
	Update(ctx context.Context, userID string, req domain.UpdateProfileRequest) (*domain.Profile, error)
	UpdateLocation(ctx context.Context, userID string, req domain.UpdateLocationRequest) (*domain.Profile, error)
	AddPhoto(ctx context.Context, userID string, up PhotoUpload) (*domain.Profile, error)
	DeletePhoto(ctx context.Context, userID, fileID string) (*domain.Profile, error)
}

type profileStore interface {
	Get(ctx context.Context, userID string) (*domain.Profile, error)
	Update(ctx context.Context, userID string, updates map[string]any) error
}

type mediaService interface {
	Upload(ctx context.Context, in media.UploadInput) (*domain.File, error)
	Delete(ctx context.Context, fileID, requesterID string, isAdmin bool) error
}

type service struct {
	repo  profileStore
	media mediaService
}

func NewService(repo profileStore, mediaSvc mediaService) Service {
	return &service{repo: repo, media: mediaSvc}
}

func (s *service) Get(ctx context.Context, userID string) (*domain.Profile, error) {
	return s.repo.Get(ctx, userID)
}

func (s *service) Public(ctx context.Context, viewerID, userID string) (*domain.PublicProfile, error) {
	p, err := s.repo.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !p.Enable && viewerID != userID {
		return nil, fmt.Errorf("profile not found: %w", domain.ErrNotFound)
	}
	pub := p.Public()
	if viewerID == userID || p.Location == nil {
		return &pub, nil
	}
	viewer, err := s.repo.Get(ctx, viewerID)
	if err == nil && viewer.Location != nil {
		d := geo.Round1(geo.DistanceKM(viewer.Location.Lat, viewer.Location.Lng, p.Location.Lat, p.Location.Lng))
		pub.DistanceKM = &d
	}
	return &pub, nil
}

func (s *service) Update(ctx context.Context, userID string, req domain.UpdateProfileRequest) (*domain.Profile, error) {
	p, err := s.repo.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	updates := map[string]any{}
	if req.Name != nil {
		updates[fieldName] = *req.Name
	}
	if req.Birthdate != nil {
		t, err := time.Parse(time.DateOnly, *req.Birthdate)
		if err != nil {
			return nil, fmt.Errorf("birthdate must be in YYYY-MM-DD format: %w", domain.ErrBadRequest)
		}
		if domain.AgeAt(t, time.Now()) < domain.MinimumAge {
			return nil, fmt.Errorf("must be at least %d years old: %w", domain.MinimumAge, domain.ErrBadRequest)
		}
		updates[fieldBirthdate] = t
	}
	if req.Bio != nil {
		updates[fieldBio] = *req.Bio
	}
	if req.Gender != nil {
		updates[fieldGender] = *req.Gender
	}
	if req.Interests != nil {
		if len(*req.Interests) > domain.MaxInterests {
			return nil, fmt.Errorf("at most %d interests: %w", domain.MaxInterests, domain.ErrBadRequest)
		}
		updates[fieldInterests] = dedupe(*req.Interests)
	}

	prefs := p.Preferences
	prefsChanged := false
	if req.InterestedIn != nil {
		prefs.InterestedIn = dedupe(*req.InterestedIn)
		prefsChanged = true
	}
	if req.AgeMin != nil {
		prefs.AgeMin = *req.AgeMin
		prefsChanged = true
	}
	if req.AgeMax != nil {
		prefs.AgeMax = *req.AgeMax
		prefsChanged = true
	}
	if req.MaxDistanceKM != nil {
		prefs.MaxDistanceKM = *req.MaxDistanceKM
		prefsChanged = true
	}
	if prefsChanged {
		if prefs.AgeMin > prefs.AgeMax {
			return nil, fmt.Errorf("age_min must not exceed age_max: %w", domain.ErrBadRequest)
		}
		updates[fieldPreferences] = prefs
	}

	if len(updates) == 0 {
		return p, nil
	}
	if err := s.repo.Update(ctx, userID, updates); err != nil {
		return nil, err
	}
	return s.repo.Get(ctx, userID)
}

func (s *service) UpdateLocation(ctx context.Context, userID string, req domain.UpdateLocationRequest) (*domain.Profile, error) {
	if req.Lat == nil || req.Lng == nil {
		return nil, fmt.Errorf("lat and lng are required: %w", domain.ErrBadRequest)
	}
	if *req.Lat < -90 || *req.Lat > 90 || *req.Lng < -180 || *req.Lng > 180 {
		return nil, fmt.Errorf("coordinates out of range: %w", domain.ErrBadRequest)
	}
	loc := domain.Location{Lat: *req.Lat, Lng: *req.Lng, City: req.City, UpdatedAt: time.Now().UTC()}
	if err := s.repo.Update(ctx, userID, map[string]any{fieldLocation: loc}); err != nil {
		return nil, err
	}
	return s.repo.Get(ctx, userID)
}

func (s *service) AddPhoto(ctx context.Context, userID string, up PhotoUpload) (*domain.Profile, error) {
	p, err := s.repo.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(p.Photos) >= domain.MaxPhotos {
		return nil, fmt.Errorf("at most %d photos: %w", domain.MaxPhotos, domain.ErrBadRequest)
	}
	f, err := s.media.Upload(ctx, media.UploadInput{
		Reader:     up.Reader,
		Filename:   up.Filename,
		Purpose:    domain.FilePurposePhoto,
		UploaderID: userID,
	})
	if err != nil {
		return nil, err
	}
	photos := append(slices.Clone(p.Photos), domain.Photo{FileID: f.FileID, URL: f.URL, Position: len(p.Photos)})
	if err := s.repo.Update(ctx, userID, map[string]any{fieldPhotos: photos}); err != nil {
		return nil, err
	}
	p.Photos = photos
	return p, nil
}

func (s *service) DeletePhoto(ctx context.Context, userID, fileID string) (*domain.Profile, error) {
	p, err := s.repo.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	idx := slices.IndexFunc(p.Photos, func(ph domain.Photo) bool { return ph.FileID == fileID })
	if idx < 0 {
		return nil, fmt.Errorf("photo %s: %w", fileID, domain.ErrNotFound)
	}
	photos := slices.Delete(slices.Clone(p.Photos), idx, idx+1)
	for i := range photos {
		photos[i].Position = i
	}
	if err := s.repo.Update(ctx, userID, map[string]any{fieldPhotos: photos}); err != nil {
		return nil, err
	}
	if err := s.media.Delete(ctx, fileID, userID, false); err != nil {
		return nil, err
	}
	p.Photos = photos
	return p, nil
}

func dedupe(in []string) []string {
	out := make([]string, 0, len(in))
	for _, v := range in {
		if !slices.Contains(out, v) {
			out = append(out, v)
		}
	}
	return out
}
