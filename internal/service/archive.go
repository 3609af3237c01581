package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/timmy/hakconsole/internal/client"
	"github.com/timmy/hakconsole/internal/logger"
	"github.com/timmy/hakconsole/internal/storage"
)

const defaultMaxArchiveSize = 64 << 20

// ArchiveConfig holds configuration for the artifact archive.
type ArchiveConfig struct {
	Prefix  string // key prefix inside the bucket
	MaxSize int64  // largest artifact copied, in bytes
}

// ArchiveResult describes an archived artifact. Existing is set when the
// artifact was already in the bucket and nothing was copied.
type ArchiveResult struct {
	Key         string `json:"key"`
	URL         string `json:"url"`
	Filename    string `json:"filename"`
	Size        int64  `json:"size"`
	ContentType string `json:"contentType"`
	Existing    bool   `json:"existing"`
}

// ArchiveService copies job artifacts from the backend into object storage.
type ArchiveService struct {
	store   storage.ArtifactStore
	prefix  string
	maxSize int64
}

// NewArchiveService creates an archive service. A nil store yields a
// service whose Archive always returns ErrArchiveDisabled.
// Parameters:
//   - store: object store receiving artifacts; may be nil.
//   - cfg: key prefix and size limit; nil uses defaults.
//
// Returns:
//   - *ArchiveService: initialized service.
func NewArchiveService(store storage.ArtifactStore, cfg *ArchiveConfig) *ArchiveService {
	s := &ArchiveService{store: store, maxSize: defaultMaxArchiveSize}
	if cfg != nil {
		s.prefix = strings.Trim(cfg.Prefix, "/")
		if cfg.MaxSize > 0 {
			s.maxSize = cfg.MaxSize
		}
	}
	return s
}

// Enabled reports whether object storage is configured.
func (s *ArchiveService) Enabled() bool {
	return s != nil && s.store != nil
}

// Key returns the object key an artifact of jobUUID at suffix is stored
// under, e.g. jobs/<uuid>/payload-provider for /payload/provider.
func (s *ArchiveService) Key(jobUUID, suffix string) string {
	name := strings.ReplaceAll(strings.Trim(suffix, "/"), "/", "-")
	return path.Join(s.prefix, jobUUID, name)
}

// Archive selects jobUUID on console and copies the artifact at suffix into
// the bucket. Finished jobs do not change, so an artifact already archived
// is not fetched again. Only hakmaster sessions may archive.
func (s *ArchiveService) Archive(ctx context.Context, console *Console, jobUUID, suffix string) (*ArchiveResult, error) {
	if !s.Enabled() {
		return nil, ErrArchiveDisabled
	}
	if !console.IsHakmaster() {
		return nil, ErrForbidden
	}
	if err := client.ValidateSuffix(suffix); err != nil {
		return nil, err
	}
	if _, err := console.SelectJob(ctx, jobUUID); err != nil {
		return nil, err
	}

	key := s.Key(jobUUID, suffix)
	info, err := s.store.Stat(ctx, key)
	switch {
	case err == nil:
		return &ArchiveResult{
			Key:         key,
			URL:         s.store.URL(key),
			Filename:    info.Filename,
			Size:        info.Size,
			ContentType: info.ContentType,
			Existing:    true,
		}, nil
	case !errors.Is(err, storage.ErrObjectNotFound):
		return nil, err
	}

	start := time.Now()
	artifact, err := console.OpenArtifact(ctx, suffix)
	if err != nil {
		return nil, err
	}
	defer artifact.Body.Close()

	// PutObject needs a known length.
	var buf bytes.Buffer
	n, err := io.Copy(&buf, io.LimitReader(artifact.Body, s.maxSize+1))
	if err != nil {
		return nil, fmt.Errorf("read artifact: %w", err)
	}
	if n > s.maxSize {
		return nil, ErrArtifactTooLarge
	}

	err = s.store.Put(ctx, &storage.Object{
		Key:         key,
		Body:        bytes.NewReader(buf.Bytes()),
		Size:        n,
		ContentType: artifact.ContentType,
		Filename:    artifact.Filename,
		Metadata: map[string]string{
			"job-uuid":   jobUUID,
			"job-suffix": suffix,
			"session-id": console.ID(),
		},
	})
	if err != nil {
		return nil, err
	}

	logger.With(logger.Fields{
		logger.FieldJobUUID: jobUUID,
		logger.FieldSize:    n,
	}).WithDuration(start).Info(ctx, "Archived artifact to %s", key)

	return &ArchiveResult{
		Key:         key,
		URL:         s.store.URL(key),
		Filename:    artifact.Filename,
		Size:        n,
		ContentType: artifact.ContentType,
	}, nil
}
