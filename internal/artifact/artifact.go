// Package artifact stores the binary files behind programs: the program file
// itself and its optional thumbnail image.
package artifact

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"programhub/internal/storage"
)

// Kind is the namespace an artifact is stored under.
type Kind string

const (
	KindProgram   Kind = "programs"
	KindThumbnail Kind = "thumbnails"
)

// Size limits enforced before anything reaches storage.
const (
	MaxProgramSize   int64 = 10 << 20
	MaxThumbnailSize int64 = 2 << 20
)

// MaxSize returns the upload limit for kind.
func (k Kind) MaxSize() int64 {
	if k == KindThumbnail {
		return MaxThumbnailSize
	}
	return MaxProgramSize
}

// Upload is a file received from a client.
type Upload struct {
	Filename    string
	ContentType string
	Size        int64
	Body        io.Reader
}

// Store puts, opens and deletes artifacts by reference.
// A reference is the storage key, e.g. "programs/<uuid>.zip".
type Store struct {
	backend storage.Storage
	orphans prometheus.Counter
}

// NewStore wraps a storage backend.
func NewStore(backend storage.Storage) *Store {
	return &Store{
		backend: backend,
		orphans: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "programhub",
			Name:      "artifact_orphans_total",
			Help:      "Artifacts that could not be released and were left in storage.",
		}),
	}
}

// Register exposes the store's metrics on reg.
func (s *Store) Register(reg prometheus.Registerer) error {
	return reg.Register(s.orphans)
}

// Put stores the upload under kind and returns its reference.
func (s *Store) Put(ctx context.Context, up Upload, kind Kind) (string, error) {
	if up.Body == nil {
		return "", fmt.Errorf("put %s: empty upload", kind)
	}
	ref := path.Join(string(kind), uuid.NewString()+cleanExt(up.Filename))

	ct := up.ContentType
	if ct == "" {
		ct = "application/octet-stream"
	}
	if _, err := s.backend.Put(ctx, ref, up.Body, storage.PutObjectOptions{
		Size:        up.Size,
		ContentType: ct,
		Metadata:    map[string]string{"original-filename": up.Filename},
	}); err != nil {
		return "", fmt.Errorf("put %s: %w", ref, err)
	}
	return ref, nil
}

// Open streams the artifact behind ref. The caller closes the reader.
func (s *Store) Open(ctx context.Context, ref string) (io.ReadCloser, storage.ObjectInfo, error) {
	rc, info, err := s.backend.Get(ctx, ref)
	if err != nil {
		return nil, storage.ObjectInfo{}, fmt.Errorf("open %s: %w", ref, err)
	}
	return rc, info, nil
}

// Exists reports whether ref still resolves to stored bytes.
func (s *Store) Exists(ctx context.Context, ref string) (bool, error) {
	_, err := s.backend.Stat(ctx, ref)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, storage.ErrNotFound):
		return false, nil
	default:
		return false, fmt.Errorf("stat %s: %w", ref, err)
	}
}

// Delete removes the artifact. An already-missing artifact is not an error.
func (s *Store) Delete(ctx context.Context, ref string) error {
	if ref == "" {
		return nil
	}
	if err := s.backend.Delete(ctx, ref); err != nil && !errors.Is(err, storage.ErrNotFound) {
		return fmt.Errorf("delete %s: %w", ref, err)
	}
	return nil
}

// Filename is the download name suggested for ref.
func Filename(ref string) string {
	return path.Base(ref)
}

func cleanExt(name string) string {
	ext := strings.ToLower(filepath.Ext(name))
	if len(ext) > 16 || strings.ContainsAny(ext, "/\\ ") {
		return ""
	}
	return ext
}
