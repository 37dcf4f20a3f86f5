package verification

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/go-dating-api/internal/application/event"
	"github.com/go-dating-api/internal/application/media"
	"github.com/go-dating-api/internal/domain"
	"github.com/go-dating-api/internal/pkg/id"
	"github.com/go-dating-api/internal/pkg/logger"
	"github.com/go-dating-api/internal/pkg/validate"
)

const (
	fieldStatus     = "status"
	fieldReviewerID = "reviewer_id"
	fieldReason     = "reason"
	fieldReviewedAt = "reviewed_at"
	fieldVerified   = "verified"
	fieldUpdatedAt  = "updated_at"

	defaultPageSize = 50
	maxPageSize     = 200
)

// Image is one uploaded part of a submission.
type Image struct {
	Reader   io.Reader
	Filename string
}

type SubmitInput struct {
	Selfie   *Image
	Document *Image
}

// Item is a request as shown to reviewers, with links to its images.
type Item struct {
	domain.PhotoVerification
	ImageURLs []string `json:"image_urls"`
}

type Service interface {
	Submit(ctx context.Context, userID string, in SubmitInput) (*domain.PhotoVerification, error)
	// Status returns the user's latest request.
	Status(ctx context.Context, userID string) (*domain.PhotoVerification, error)
	List(ctx context.Context, status domain.VerificationStatus, limit int, cursor string) ([]Item, string, error)
	Review(ctx context.Context, reviewerID, verificationID string, req domain.ReviewVerificationRequest) (*domain.PhotoVerification, error)
}

type verificationStore interface {
	// Create fails with ErrConflict while the user has a pending request.
	Create(ctx context.Context, v *domain.PhotoVerification) error
	Get(ctx context.Context, verificationID string) (*domain.PhotoVerification, error)
	ListByUser(ctx context.Context, userID string) ([]domain.PhotoVerification, error)
	ListByStatus(ctx context.Context, status domain.VerificationStatus, limit int32, cursor string) ([]domain.PhotoVerification, string, error)
	// Resolve fails with ErrConflict unless the request is still pending.
	Resolve(ctx context.Context, v *domain.PhotoVerification, updates map[string]any) error
}

type userStore interface {
	Get(ctx context.Context, userID string) (*domain.User, error)
	Update(ctx context.Context, userID string, updates map[string]any) error
}

type profileStore interface {
	Update(ctx context.Context, userID string, updates map[string]any) error
}

type mediaService interface {
	Upload(ctx context.Context, in media.UploadInput) (*domain.File, error)
	ViewURL(ctx context.Context, fileID string) (string, error)
}

type ServiceDeps struct {
	VerificationRepo verificationStore
	UserRepo         userStore
	ProfileRepo      profileStore
	Media            mediaService
	Publisher        event.Publisher
	Log              *logrus.Logger
}

type service struct {
	repo     verificationStore
	users    userStore
	profiles profileStore
	media    mediaService
	pub      event.Publisher
	log      *logrus.Logger
	now      func() time.Time
}

func NewService(deps ServiceDeps) Service {
	log := deps.Log
	if log == nil {
		log = logger.Discard()
	}
	return &service{
		repo:     deps.VerificationRepo,
		users:    deps.UserRepo,
		profiles: deps.ProfileRepo,
		media:    deps.Media,
		pub:      deps.Publisher,
		log:      log,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func (s *service) Submit(ctx context.Context, userID string, in SubmitInput) (*domain.PhotoVerification, error) {
	if in.Selfie == nil || in.Selfie.Reader == nil {
		return nil, validate.Required("selfie")
	}
	u, err := s.users.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	if u.Verified {
		return nil, fmt.Errorf("user already verified: %w", domain.ErrConflict)
	}
	history, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	for _, v := range history {
		if v.Status == domain.VerificationPending {
			return nil, fmt.Errorf("verification %s still pending: %w", v.VerificationID, domain.ErrConflict)
		}
	}

	selfie, err := s.upload(ctx, userID, in.Selfie)
	if err != nil {
		if errors.Is(err, media.ErrEmptyFile) {
			return nil, validate.Required("selfie")
		}
		return nil, err
	}
	v := &domain.PhotoVerification{
		VerificationID: id.New(),
		UserID:         userID,
		Method:         domain.MethodSelfie,
		Status:         domain.VerificationPending,
		ImageFileIDs:   []string{selfie.FileID},
		SubmittedAt:    s.now(),
	}
	if in.Document != nil && in.Document.Reader != nil {
		doc, err := s.upload(ctx, userID, in.Document)
		if err != nil {
			return nil, fmt.Errorf("document: %w", err)
		}
		v.Method = domain.MethodDocument
		v.ImageFileIDs = append(v.ImageFileIDs, doc.FileID)
	}
	if err := s.repo.Create(ctx, v); err != nil {
		return nil, err
	}
	s.log.WithFields(logrus.Fields{"user_id": userID, "verification_id": v.VerificationID, "method": v.Method}).Info("verification submitted")
	return v, nil
}

func (s *service) upload(ctx context.Context, userID string, img *Image) (*domain.File, error) {
	return s.media.Upload(ctx, media.UploadInput{
		Reader:     img.Reader,
		Filename:   img.Filename,
		Purpose:    domain.FilePurposeVerification,
		Private:    true,
		UploaderID: userID,
	})
}

func (s *service) Status(ctx context.Context, userID string) (*domain.PhotoVerification, error) {
	history, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(history) == 0 {
		return nil, fmt.Errorf("no verification request: %w", domain.ErrNotFound)
	}
	return &history[0], nil
}

func (s *service) List(ctx context.Context, status domain.VerificationStatus, limit int, cursor string) ([]Item, string, error) {
	if status == "" {
		status = domain.VerificationPending
	}
	switch status {
	case domain.VerificationPending, domain.VerificationApproved, domain.VerificationRejected:
	default:
		return nil, "", fmt.Errorf("unknown status %q: %w", status, domain.ErrBadRequest)
	}
	if limit <= 0 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	page, next, err := s.repo.ListByStatus(ctx, status, int32(limit), cursor)
	if err != nil {
		return nil, "", err
	}
	out := make([]Item, 0, len(page))
	for _, v := range page {
		item := Item{PhotoVerification: v, ImageURLs: make([]string, 0, len(v.ImageFileIDs))}
		for _, fid := range v.ImageFileIDs {
			u, err := s.media.ViewURL(ctx, fid)
			if err != nil {
				s.log.WithError(err).WithField("file_id", fid).Warn("verification image url")
				continue
			}
			item.ImageURLs = append(item.ImageURLs, u)
		}
		out = append(out, item)
	}
	return out, next, nil
}

func (s *service) Review(ctx context.Context, reviewerID, verificationID string, req domain.ReviewVerificationRequest) (*domain.PhotoVerification, error) {
	req.Reason = strings.TrimSpace(req.Reason)
	if !req.Approve && req.Reason == "" {
		return nil, validate.Required("reason")
	}
	v, err := s.repo.Get(ctx, verificationID)
	if err != nil {
		return nil, err
	}
	if v.Status != domain.VerificationPending {
		return nil, fmt.Errorf("verification already %s: %w", v.Status, domain.ErrConflict)
	}

	now := s.now()
	v.Status = domain.VerificationRejected
	if req.Approve {
		v.Status = domain.VerificationApproved
	}
	v.ReviewerID = reviewerID
	v.Reason = req.Reason
	v.ReviewedAt = &now
	updates := map[string]any{
		fieldStatus:     v.Status,
		fieldReviewerID: reviewerID,
		fieldReviewedAt: now,
	}
	if req.Reason != "" {
		updates[fieldReason] = req.Reason
	}
	if err := s.repo.Resolve(ctx, v, updates); err != nil {
		return nil, err
	}

	if req.Approve {
		badge := map[string]any{fieldVerified: true, fieldUpdatedAt: now}
		if err := s.users.Update(ctx, v.UserID, badge); err != nil {
			return nil, fmt.Errorf("mark user verified: %w", err)
		}
		if err := s.profiles.Update(ctx, v.UserID, badge); err != nil && !errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("mark profile verified: %w", err)
		}
	}
	s.log.WithFields(logrus.Fields{"verification_id": verificationID, "reviewer_id": reviewerID, "status": v.Status}).Info("verification reviewed")
	event.Emit(ctx, s.pub, s.log, domain.EventVerificationReviewed, domain.VerificationReviewed{Verification: v})
	return v, nil
}
