package upload

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"path"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// MaxImageSize is the largest accepted attachment, 2 MB.
const MaxImageSize int64 = 2 << 20

var (
	ErrNotImage = errors.New("upload: file must be an image")
	ErrTooLarge = errors.New("upload: file must be 2 MB or smaller")
	ErrEmpty    = errors.New("upload: file is empty")
)

// File is an attachment offered by the caller.
type File struct {
	Name        string
	ContentType string
	Body        io.Reader
}

// Object is what the service hands to Storage once the checks pass.
type Object struct {
	Path        string
	ContentType string
	Size        int64
	Body        io.Reader
}

// Stored describes an uploaded object.
type Stored struct {
	Path      string `json:"path"`
	PublicURL string `json:"publicUrl"`
}

// Storage is the file-storage collaborator.
type Storage interface {
	Put(ctx context.Context, obj Object) (Stored, error)
}

// Option configures a Service.
type Option func(*Service)

// WithMaxSize overrides the size limit. Non-positive values are ignored.
func WithMaxSize(n int64) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxSize = n
		}
	}
}

// WithPrefix sets the directory prepended to object paths.
func WithPrefix(prefix string) Option {
	return func(s *Service) {
		s.prefix = strings.Trim(strings.TrimSpace(prefix), "/")
	}
}

// WithNameGenerator overrides the uuid based object names.
func WithNameGenerator(fn func() string) Option {
	return func(s *Service) {
		if fn != nil {
			s.newName = fn
		}
	}
}

// WithLogger attaches a logger.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// Service enforces the pre-upload rules before calling Storage.
type Service struct {
	storage Storage
	maxSize int64
	prefix  string
	newName func() string
	logger  *zap.Logger
}

// NewService wraps storage with the image checks.
func NewService(storage Storage, opts ...Option) *Service {
	s := &Service{
		storage: storage,
		maxSize: MaxImageSize,
		prefix:  "icons",
		newName: uuid.NewString,
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(s)
	}
	return s
}

// Upload checks the file and stores it. The MIME type must be image/*, taken
// from the declared content type or sniffed from the content when blank. Files
// over the size limit are rejected before storage is called.
func (s *Service) Upload(ctx context.Context, file File) (Stored, error) {
	if s == nil || s.storage == nil {
		return Stored{}, errors.New("upload: storage is not configured")
	}
	if file.Body == nil {
		return Stored{}, ErrEmpty
	}

	data, err := io.ReadAll(io.LimitReader(file.Body, s.maxSize+1))
	if err != nil {
		return Stored{}, fmt.Errorf("upload: read file: %w", err)
	}
	if len(data) == 0 {
		return Stored{}, ErrEmpty
	}
	if int64(len(data)) > s.maxSize {
		return Stored{}, ErrTooLarge
	}

	contentType, err := imageType(file.ContentType, data)
	if err != nil {
		return Stored{}, err
	}

	obj := Object{
		Path:        s.objectPath(file.Name, contentType),
		ContentType: contentType,
		Size:        int64(len(data)),
		Body:        bytes.NewReader(data),
	}
	stored, err := s.storage.Put(ctx, obj)
	if err != nil {
		s.logger.Warn("upload failed", zap.String("path", obj.Path), zap.Error(err))
		return Stored{}, fmt.Errorf("upload: store %s: %w", obj.Path, err)
	}
	s.logger.Debug("uploaded file", zap.String("path", stored.Path), zap.Int64("size", obj.Size))
	return stored, nil
}

func imageType(declared string, data []byte) (string, error) {
	raw := strings.TrimSpace(declared)
	if raw == "" {
		raw = http.DetectContentType(data)
	}
	mediaType, _, err := mime.ParseMediaType(raw)
	if err != nil {
		return "", fmt.Errorf("%w: %q", ErrNotImage, raw)
	}
	if !strings.HasPrefix(mediaType, "image/") {
		return "", fmt.Errorf("%w: %q", ErrNotImage, mediaType)
	}
	return mediaType, nil
}

func (s *Service) objectPath(name, contentType string) string {
	ext := strings.ToLower(path.Ext(strings.TrimSpace(name)))
	if ext == "" {
		if exts, _ := mime.ExtensionsByType(contentType); len(exts) > 0 {
			ext = exts[0]
		}
	}
	object := s.newName() + ext
	if s.prefix == "" {
		return object
	}
	return s.prefix + "/" + object
}
