package backend

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strings"

	"cloud.google.com/go/storage"
	"github.com/gosimple/slug"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

var (
	ErrObjectExists       = errors.New("storage upload: object already exists")
	ErrStorageUnavailable = errors.New("storage not configured")
)

// UploadOptions controls an object upload.
type UploadOptions struct {
	Upsert      bool // Overwrite an existing object
	ContentType string
}

// StorageConfig configures the object store client.
type StorageConfig struct {
	Endpoint      string // Emulator or private endpoint; unauthenticated when set
	PublicBaseURL string // Base of public object URLs
}

// Storage uploads files to Google Cloud Storage buckets.
type Storage struct {
	client  *storage.Client
	baseURL string
}

// NewStorage creates a storage client.
func NewStorage(ctx context.Context, cfg StorageConfig) (*Storage, error) {
	var opts []option.ClientOption
	if cfg.Endpoint != "" {
		opts = append(opts, option.WithEndpoint(cfg.Endpoint), option.WithoutAuthentication())
	}
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating storage client: %w", err)
	}

	base := strings.TrimSuffix(cfg.PublicBaseURL, "/")
	if base == "" {
		base = "https://storage.googleapis.com"
	}
	return &Storage{client: client, baseURL: base}, nil
}

// Upload writes r to bucket under a slugged form of name and returns the
// stored object name. Without Upsert an existing object is left untouched
// and ErrObjectExists is returned.
func (s *Storage) Upload(ctx context.Context, bucket, name string, r io.Reader, opts UploadOptions) (string, error) {
	if s == nil {
		return "", ErrStorageUnavailable
	}
	object := ObjectName(name)
	if object == "" {
		return "", fmt.Errorf("storage upload: empty object name")
	}

	obj := s.client.Bucket(bucket).Object(object)
	if !opts.Upsert {
		obj = obj.If(storage.Conditions{DoesNotExist: true})
	}

	w := obj.NewWriter(ctx)
	if opts.ContentType != "" {
		w.ContentType = opts.ContentType
	}

	if _, err := io.Copy(w, r); err != nil {
		_ = w.Close()
		return "", fmt.Errorf("storage upload: writing object: %w", err)
	}
	if err := w.Close(); err != nil {
		var gerr *googleapi.Error
		if errors.As(err, &gerr) && gerr.Code == http.StatusPreconditionFailed {
			return "", ErrObjectExists
		}
		return "", fmt.Errorf("storage upload: closing writer: %w", err)
	}
	return object, nil
}

// PublicURL returns the public URL of an object.
func (s *Storage) PublicURL(bucket, object string) string {
	base := "https://storage.googleapis.com"
	if s != nil {
		base = s.baseURL
	}
	return base + "/" + url.PathEscape(bucket) + "/" + escapePath(object)
}

// Close releases the client.
func (s *Storage) Close() error {
	if s == nil {
		return nil
	}
	return s.client.Close()
}

// ObjectName slugs every path segment of name while keeping the file
// extension: "Avatars/My Photo.PNG" becomes "avatars/my-photo.png".
func ObjectName(name string) string {
	segments := strings.Split(strings.Trim(name, "/"), "/")
	out := make([]string, 0, len(segments))
	for i, seg := range segments {
		if i == len(segments)-1 {
			ext := strings.ToLower(path.Ext(seg))
			base := slug.Make(strings.TrimSuffix(seg, path.Ext(seg)))
			if base == "" {
				continue
			}
			out = append(out, base+ext)
			continue
		}
		if s := slug.Make(seg); s != "" {
			out = append(out, s)
		}
	}
	return strings.Join(out, "/")
}

func escapePath(p string) string {
	parts := strings.Split(p, "/")
	for i, s := range parts {
		parts[i] = url.PathEscape(s)
	}
	return strings.Join(parts, "/")
}
