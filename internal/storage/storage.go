// Package storage keeps uploaded photos on local disk and serves them under
// a public object URL.
package storage

import (
	"context"
	"fmt"
	"io"
	"mime"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/abrezinsky/consensus/internal/errors"
)

// PublicPrefix is the URL prefix under which objects are served
const PublicPrefix = "/storage/v1/object/public/"

// DefaultMaxBytes is the default upload size limit
const DefaultMaxBytes int64 = 10 << 20

// Store saves objects and reports where they are publicly reachable
type Store interface {
	Put(ctx context.Context, objectPath, contentType string, r io.Reader) (string, error)
	Open(objectPath string) (*os.File, error)
	PublicURL(objectPath string) string
}

// LocalStore writes objects beneath Root/<bucket>
type LocalStore struct {
	root     string
	bucket   string
	baseURL  string
	maxBytes int64
}

// NewLocalStore creates a store rooted at dir. baseURL is the externally
// visible server origin, e.g. http://localhost:8080.
func NewLocalStore(dir, bucket, baseURL string, maxBytes int64) (*LocalStore, error) {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	if err := os.MkdirAll(filepath.Join(dir, bucket), 0o755); err != nil {
		return nil, fmt.Errorf("create storage dir: %w", err)
	}
	return &LocalStore{
		root:     dir,
		bucket:   bucket,
		baseURL:  strings.TrimRight(baseURL, "/"),
		maxBytes: maxBytes,
	}, nil
}

// Bucket returns the bucket name
func (s *LocalStore) Bucket() string {
	return s.bucket
}

// MaxBytes returns the upload size limit
func (s *LocalStore) MaxBytes() int64 {
	return s.maxBytes
}

// Put validates and writes an object, returning its public URL
func (s *LocalStore) Put(ctx context.Context, objectPath, contentType string, r io.Reader) (string, error) {
	if !IsImage(contentType) {
		return "", errors.Validationf("unsupported content type %q", contentType)
	}
	full, err := s.resolve(objectPath)
	if err != nil {
		return "", err
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return "", errors.Internal(err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(full), ".upload-*")
	if err != nil {
		return "", errors.Internal(err)
	}
	defer os.Remove(tmp.Name())

	// Read one byte past the limit to detect oversize uploads
	n, err := io.Copy(tmp, io.LimitReader(r, s.maxBytes+1))
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return "", errors.Internal(err)
	}
	if n > s.maxBytes {
		return "", errors.Validationf("photo exceeds %d bytes", s.maxBytes)
	}
	if n == 0 {
		return "", errors.Validation("photo is empty")
	}
	if err := os.Rename(tmp.Name(), full); err != nil {
		return "", errors.Internal(err)
	}
	return s.PublicURL(objectPath), nil
}

// Open opens a stored object for reading
func (s *LocalStore) Open(objectPath string) (*os.File, error) {
	full, err := s.resolve(objectPath)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(full)
	if os.IsNotExist(err) {
		return nil, errors.NotFound("object not found")
	}
	return f, err
}

// PublicURL returns the URL at which objectPath is served
func (s *LocalStore) PublicURL(objectPath string) string {
	return s.baseURL + PublicPrefix + s.bucket + "/" + strings.TrimLeft(objectPath, "/")
}

// resolve maps an object path to a file inside the bucket, rejecting traversal
func (s *LocalStore) resolve(objectPath string) (string, error) {
	clean := path.Clean("/" + objectPath)
	if clean == "/" || strings.Contains(objectPath, "..") {
		return "", errors.InvalidInput("invalid object path")
	}
	return filepath.Join(s.root, s.bucket, filepath.FromSlash(clean)), nil
}

// SubmissionPath builds submissions/<categoryID>/<userID>-<unixMillis>.<ext>
func SubmissionPath(categoryID, userID, contentType string, now time.Time) string {
	return fmt.Sprintf("submissions/%s/%s-%d.%s", categoryID, userID, now.UnixMilli(), Extension(contentType))
}

// IsImage reports whether contentType is an image/* media type
func IsImage(contentType string) bool {
	mediaType, _, err := mime.ParseMediaType(contentType)
	return err == nil && strings.HasPrefix(mediaType, "image/")
}

// Extension returns a file extension for an image content type
func Extension(contentType string) string {
	mediaType, _, _ := mime.ParseMediaType(contentType)
	switch mediaType {
	case "image/jpeg", "image/jpg":
		return "jpg"
	case "image/png":
		return "png"
	case "image/gif":
		return "gif"
	case "image/webp":
		return "webp"
	case "image/heic":
		return "heic"
	}
	if sub, ok := strings.CutPrefix(mediaType, "image/"); ok && sub != "" {
		return sub
	}
	return "bin"
}
