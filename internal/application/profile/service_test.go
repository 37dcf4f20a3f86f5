package profile

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/go-dating-api/internal/application/media"
	"github.com/go-dating-api/internal/domain"
)

type mockProfileStore struct{ mock.Mock }

func (m *mockProfileStore) Get(ctx context.Context, userID string) (*domain.Profile, error) {
	args := m.Called(ctx, userID)
	if p, _ := args.Get(0).(*domain.Profile); p != nil {
		return p, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockProfileStore) Update(ctx context.Context, userID string, updates map[string]any) error {
	return m.Called(ctx, userID, updates).Error(0)
}

type mockMedia struct{ mock.Mock }

func (m *mockMedia) Upload(ctx context.Context, in media.UploadInput) (*domain.File, error) {
	args := m.Called(ctx, in)
	if f, _ := args.Get(0).(*domain.File); f != nil {
		return f, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockMedia) Delete(ctx context.Context, fileID, requesterID string, isAdmin bool) error {
	return m.Called(ctx, fileID, requesterID, isAdmin).Error(0)
}

func ptr[T any](v T) *T { return &v }

func baseProfile() *domain.Profile {
	return &domain.Profile{
		UserID:      "u1",
		Name:        "Ana",
		Birthdate:   time.Now().AddDate(-25, 0, 0),
		Preferences: domain.DefaultPreferences(),
		Enable:      true,
	}
}

func TestUpdate_AgeRangeInverted(t *testing.T) {
	ps := &mockProfileStore{}
	p := baseProfile()
	p.Preferences.AgeMax = 30
	ps.On("Get", mock.Anything, "u1").Return(p, nil)

	_, err := NewService(ps, nil).Update(context.Background(), "u1", domain.UpdateProfileRequest{AgeMin: ptr(35)})
	assert.True(t, errors.Is(err, domain.ErrBadRequest))
	ps.AssertNotCalled(t, "Update", mock.Anything, mock.Anything, mock.Anything)
}

func TestUpdate_MergesPreferences(t *testing.T) {
	ps := &mockProfileStore{}
	ps.On("Get", mock.Anything, "u1").Return(baseProfile(), nil)
	ps.On("Update", mock.Anything, "u1", mock.MatchedBy(func(u map[string]any) bool {
		prefs, ok := u[fieldPreferences].(domain.Preferences)
		return ok && prefs.AgeMin == 25 && prefs.AgeMax == 99 && prefs.MaxDistanceKM == 100 &&
			len(prefs.InterestedIn) == 1 && u[fieldBio] == "hi"
	})).Return(nil)

	_, err := NewService(ps, nil).Update(context.Background(), "u1", domain.UpdateProfileRequest{
		Bio:          ptr("hi"),
		AgeMin:       ptr(25),
		InterestedIn: ptr([]string{domain.GenderMan, domain.GenderMan}),
	})
	require.NoError(t, err)
	ps.AssertExpectations(t)
}

func TestUpdate_UnderageBirthdate(t *testing.T) {
	ps := &mockProfileStore{}
	ps.On("Get", mock.Anything, "u1").Return(baseProfile(), nil)

	_, err := NewService(ps, nil).Update(context.Background(), "u1", domain.UpdateProfileRequest{
		Birthdate: ptr(time.Now().AddDate(-16, 0, 0).Format(time.DateOnly)),
	})
	assert.True(t, errors.Is(err, domain.ErrBadRequest))
}

func TestUpdateLocation_OutOfRange(t *testing.T) {
	_, err := NewService(&mockProfileStore{}, nil).UpdateLocation(context.Background(), "u1", domain.UpdateLocationRequest{
		Lat: ptr(91.0), Lng: ptr(0.0),
	})
	assert.True(t, errors.Is(err, domain.ErrBadRequest))
}

func TestPublic_IncludesDistance(t *testing.T) {
	ps := &mockProfileStore{}
	target := baseProfile()
	target.UserID = "u2"
	target.Location = &domain.Location{Lat: -23.5505, Lng: -46.6333, City: "São Paulo"}
	viewer := baseProfile()
	viewer.Location = &domain.Location{Lat: -22.9068, Lng: -43.1729}
	ps.On("Get", mock.Anything, "u2").Return(target, nil)
	ps.On("Get", mock.Anything, "u1").Return(viewer, nil)

	pub, err := NewService(ps, nil).Public(context.Background(), "u1", "u2")
	require.NoError(t, err)
	require.NotNil(t, pub.DistanceKM)
	assert.InDelta(t, 360.7, *pub.DistanceKM, 0.2)
	assert.Equal(t, "São Paulo", pub.City)
}

func TestPublic_DisabledProfileHidden(t *testing.T) {
	ps := &mockProfileStore{}
	p := baseProfile()
	p.UserID = "u2"
	p.Enable = false
	ps.On("Get", mock.Anything, "u2").Return(p, nil)

	_, err := NewService(ps, nil).Public(context.Background(), "u1", "u2")
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestAddPhoto_LimitReached(t *testing.T) {
	ps := &mockProfileStore{}
	p := baseProfile()
	for i := 0; i < domain.MaxPhotos; i++ {
		p.Photos = append(p.Photos, domain.Photo{FileID: string(rune('a' + i)), Position: i})
	}
	ps.On("Get", mock.Anything, "u1").Return(p, nil)
	md := &mockMedia{}

	_, err := NewService(ps, md).AddPhoto(context.Background(), "u1", PhotoUpload{Reader: strings.NewReader("x")})
	assert.True(t, errors.Is(err, domain.ErrBadRequest))
	md.AssertNotCalled(t, "Upload", mock.Anything, mock.Anything)
}

func TestAddPhoto_AppendsInUploadOrder(t *testing.T) {
	ps := &mockProfileStore{}
	md := &mockMedia{}
	p := baseProfile()
	p.Photos = []domain.Photo{{FileID: "f0", Position: 0}}
	ps.On("Get", mock.Anything, "u1").Return(p, nil)
	md.On("Upload", mock.Anything, mock.MatchedBy(func(in media.UploadInput) bool {
		return in.Purpose == domain.FilePurposePhoto && !in.Private && in.UploaderID == "u1"
	})).Return(&domain.File{FileID: "f1", URL: "https://cdn/f1.jpg"}, nil)
	ps.On("Update", mock.Anything, "u1", mock.Anything).Return(nil)

	got, err := NewService(ps, md).AddPhoto(context.Background(), "u1", PhotoUpload{Reader: strings.NewReader("x")})
	require.NoError(t, err)
	require.Len(t, got.Photos, 2)
	assert.Equal(t, "f1", got.Photos[1].FileID)
	assert.Equal(t, 1, got.Photos[1].Position)
}

func TestDeletePhoto_RenumbersPositions(t *testing.T) {
	ps := &mockProfileStore{}
	md := &mockMedia{}
	p := baseProfile()
	p.Photos = []domain.Photo{{FileID: "f0", Position: 0}, {FileID: "f1", Position: 1}, {FileID: "f2", Position: 2}}
	ps.On("Get", mock.Anything, "u1").Return(p, nil)
	ps.On("Update", mock.Anything, "u1", mock.Anything).Return(nil)
	md.On("Delete", mock.Anything, "f1", "u1", false).Return(nil)

	got, err := NewService(ps, md).DeletePhoto(context.Background(), "u1", "f1")
	require.NoError(t, err)
	require.Len(t, got.Photos, 2)
	assert.Equal(t, "f2", got.Photos[1].FileID)
	assert.Equal(t, 1, got.Photos[1].Position)
}

func TestDeletePhoto_Unknown(t *testing.T) {
	ps := &mockProfileStore{}
	ps.On("Get", mock.Anything, "u1").Return(baseProfile(), nil)

	_, err := NewService(ps, &mockMedia{}).DeletePhoto(context.Background(), "u1", "nope")
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}
