// Package gcs stores report artifacts as objects in a Cloud Storage bucket.
package gcs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/angelmondragon/coinledger-backend/pkg/config"
	"github.com/angelmondragon/coinledger-backend/pkg/gcp"
	"github.com/angelmondragon/coinledger-backend/pkg/logger"
	"github.com/angelmondragon/coinledger-backend/pkg/storage"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	gcsapi "google.golang.org/api/storage/v1"
)

const (
	pdfContentType = "application/pdf"
	pingTimeout    = 5 * time.Second
	publicHost     = "https://storage.googleapis.com"
)

// Store implements storage.ArtifactStore. Object uploads are single requests,
// so an object is either fully present or absent.
type Store struct {
	objects *gcsapi.ObjectsService
	bucket  string
	prefix  string
}

var _ storage.ArtifactStore = (*Store)(nil)

// New builds a store and verifies the bucket is listable.
func New(ctx context.Context, cfg config.GCSConfig, gcpCfg config.GCPConfig, logg *logger.Logger, extra ...option.ClientOption) (*Store, error) {
	if strings.TrimSpace(cfg.BucketName) == "" {
		return nil, errors.New("gcs bucket name is required")
	}

	opts := append(gcp.ClientOptions(gcpCfg), extra...)
	svc, err := gcsapi.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating storage service: %w", err)
	}

	s := &Store{
		objects: gcsapi.NewObjectsService(svc),
		bucket:  strings.TrimSpace(cfg.BucketName),
		prefix:  strings.Trim(cfg.Prefix, "/"),
	}

	if err := s.Ping(ctx); err != nil {
		return nil, fmt.Errorf("gcs health check failed: %w", err)
	}
	if logg != nil {
		logg.Info(logg.WithField(ctx, "bucket", s.bucket), "gcs artifact store initialized")
	}
	return s, nil
}

func (s *Store) objectName(userID, fileName string) (string, error) {
	if err := storage.ValidateKey(userID, fileName); err != nil {
		return "", err
	}
	return path.Join(s.prefix, userID, fileName), nil
}

func (s *Store) Write(ctx context.Context, userID, fileName string, r io.Reader) error {
	name, err := s.objectName(userID, fileName)
	if err != nil {
		return err
	}
	obj := &gcsapi.Object{Name: name, ContentType: pdfContentType}
	if _, err := s.objects.Insert(s.bucket, obj).
		Media(r, googleapi.ContentType(pdfContentType)).
		Context(ctx).
		Do(); err != nil {
		return fmt.Errorf("upload %s: %w", name, err)
	}
	return nil
}

func (s *Store) Stat(ctx context.Context, userID, fileName string) (storage.Info, error) {
	name, err := s.objectName(userID, fileName)
	if err != nil {
		return storage.Info{}, err
	}
	obj, err := s.objects.Get(s.bucket, name).Context(ctx).Do()
	if err != nil {
		return storage.Info{}, translate(err)
	}
	info := storage.Info{Size: int64(obj.Size)}
	if updated, perr := time.Parse(time.RFC3339, obj.Updated); perr == nil {
		info.ModTime = updated
	}
	return info, nil
}

func (s *Store) Exists(ctx context.Context, userID, fileName string) (bool, error) {
	_, err := s.Stat(ctx, userID, fileName)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, storage.ErrNotExist):
		return false, nil
	default:
		return false, err
	}
}

func (s *Store) Delete(ctx context.Context, userID, fileName string) error {
	name, err := s.objectName(userID, fileName)
	if err != nil {
		return err
	}
	return translate(s.objects.Delete(s.bucket, name).Context(ctx).Do())
}

func (s *Store) URL(userID, fileName string) string {
	name, err := s.objectName(userID, fileName)
	if err != nil {
		return ""
	}
	escaped := make([]string, 0, 3)
	for _, part := range strings.Split(name, "/") {
		escaped = append(escaped, url.PathEscape(part))
	}
	return publicHost + "/" + s.bucket + "/" + strings.Join(escaped, "/")
}

func (s *Store) Ping(ctx context.Context) error {
	if s == nil || s.objects == nil {
		return errors.New("gcs store not initialized")
	}
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	_, err := s.objects.List(s.bucket).Prefix(s.prefix).MaxResults(1).Context(ctx).Do()
	return err
}

func translate(err error) error {
	if err == nil {
		return nil
	}
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) && apiErr.Code == http.StatusNotFound {
		return storage.ErrNotExist
	}
	return err
}
