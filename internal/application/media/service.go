package media

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/go-dating-api/internal/domain"
	"github.com/go-dating-api/internal/pkg/id"
)

// MaxUploadBytes caps every image upload.
const MaxUploadBytes = 10 << 20

const presignTTL = 15 * time.Minute

// ErrEmptyFile is returned by Upload when the reader yields no bytes.
var ErrEmptyFile = fmt.Errorf("empty file: %w", domain.ErrBadRequest)

var imageExt = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
}

type UploadInput struct {
	Reader     io.Reader
	Filename   string
	Purpose    string
	Private    bool
	UploaderID string
}

type Service interface {
	// Upload stores an image after checking its size and sniffed content type.
	Upload(ctx context.Context, in UploadInput) (*domain.File, error)
	Get(ctx context.Context, fileID string) (*domain.File, error)
	// ViewURL returns a link to the file; private files get a short-lived presigned URL.
	ViewURL(ctx context.Context, fileID string) (string, error)
	Delete(ctx context.Context, fileID, requesterID string, isAdmin bool) error
}

type objectStore interface {
	Upload(ctx context.Context, key string, r io.Reader, contentType string, private bool) (string, error)
	PresignedURL(ctx context.Context, key string, ttl time.Duration) (string, error)
	Delete(ctx context.Context, key string) error
}

type fileStore interface {
	Put(ctx context.Context, f *domain.File) error
	Get(ctx context.Context, fileID string) (*domain.File, error)
	SoftDelete(ctx context.Context, fileID string) error
}

type service struct {
	objects objectStore
	files   fileStore
}

func NewService(objects objectStore, files fileStore) Service {
	return &service{objects: objects, files: files}
}

func (s *service) Upload(ctx context.Context, in UploadInput) (*domain.File, error) {
	data, err := io.ReadAll(io.LimitReader(in.Reader, MaxUploadBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	if len(data) == 0 {
		return nil, ErrEmptyFile
	}
	if len(data) > MaxUploadBytes {
		return nil, fmt.Errorf("file exceeds %d MiB: %w", MaxUploadBytes>>20, domain.ErrBadRequest)
	}
	contentType := http.DetectContentType(data)
	ext, ok := imageExt[contentType]
	if !ok {
		return nil, fmt.Errorf("unsupported content type %q: %w", contentType, domain.ErrBadRequest)
	}

	fileID := id.New()
	key := fmt.Sprintf("%ss/%s/%s%s", in.Purpose, in.UploaderID, fileID, ext)
	url, err := s.objects.Upload(ctx, key, bytes.NewReader(data), contentType, in.Private)
	if err != nil {
		return nil, err
	}
	sum := sha256.Sum256(data)
	now := time.Now().UTC()
	f := &domain.File{
		FileID:           fileID,
		Object:           key,
		Size:             int64(len(data)),
		Type:             contentType,
		Name:             sanitizeFilename(in.Filename),
		Hash:             hex.EncodeToString(sum[:]),
		Purpose:          in.Purpose,
		URL:              url,
		IsPrivate:        in.Private,
		UploadedByUserID: in.UploaderID,
		Enable:           true,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := s.files.Put(ctx, f); err != nil {
		return nil, err
	}
	return f, nil
}

func (s *service) Get(ctx context.Context, fileID string) (*domain.File, error) {
	f, err := s.files.Get(ctx, fileID)
	if err != nil {
		return nil, err
	}
	if !f.Enable {
		return nil, fmt.Errorf("file not found: %w", domain.ErrNotFound)
	}
	return f, nil
}

func (s *service) ViewURL(ctx context.Context, fileID string) (string, error) {
	f, err := s.Get(ctx, fileID)
	if err != nil {
		return "", err
	}
	if !f.IsPrivate && f.URL != "" {
		return f.URL, nil
	}
	return s.objects.PresignedURL(ctx, f.Object, presignTTL)
}

func (s *service) Delete(ctx context.Context, fileID, requesterID string, isAdmin bool) error {
	f, err := s.Get(ctx, fileID)
	if err != nil {
		return err
	}
	if f.UploadedByUserID != requesterID && !isAdmin {
		return fmt.Errorf("access denied: %w", domain.ErrForbidden)
	}
	if err := s.objects.Delete(ctx, f.Object); err != nil {
		return err
	}
	return s.files.SoftDelete(ctx, fileID)
}

// sanitizeFilename strips directory components and keeps only alphanumerics,
// dot, dash and underscore.
func sanitizeFilename(name string) string {
	name = path.Base(name)
	var b strings.Builder
	for _, r := range name {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') ||
			(r >= '0' && r <= '9') || r == '.' || r == '-' || r == '_' {
			b.WriteRune(r)
		} else {
			b.WriteRune('_')
		}
	}
	if result := b.String(); result != "" && result != "." {
		return result
	}
	return "_"
}
