package videogen

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"veostudio/internal/infra"
	"veostudio/internal/metrics"
)

// ArtifactStore persists artifact bytes under a key and can reclaim them.
// storage.FileStore satisfies it.
type ArtifactStore interface {
	Write(ctx context.Context, key string, data []byte) (string, error)
	Remove(ctx context.Context, key string) error
}

// Fetcher downloads the artifacts of a finished job one by one and
// materializes each as a GeneratedResource. Downloads are strictly
// sequential, which bounds peak bandwidth and memory.
type Fetcher struct {
	downloader Downloader
	store      ArtifactStore
	logger     *infra.Logger
}

// NewFetcher constructs a fetcher over the given downloader and store.
func NewFetcher(downloader Downloader, store ArtifactStore, logger *infra.Logger) *Fetcher {
	if logger == nil {
		discard := zerolog.New(io.Discard)
		l := infra.Logger(discard)
		logger = &l
	}
	return &Fetcher{downloader: downloader, store: store, logger: logger}
}

// Fetch retrieves every artifact in index order and returns the materialized
// resources in the same order. The policy is all-or-nothing: if any download
// or write fails, resources materialized so far are released and the whole
// batch fails with a DownloadError.
func (f *Fetcher) Fetch(ctx context.Context, runID string, artifacts []ArtifactRef) ([]*GeneratedResource, error) {
	resources := make([]*GeneratedResource, 0, len(artifacts))
	for _, artifact := range artifacts {
		res, err := f.fetchOne(ctx, runID, artifact)
		if err != nil {
			for _, done := range resources {
				if relErr := done.Release(); relErr != nil {
					f.logger.Warn().Err(relErr).Str("resource_id", done.ID).Msg("videogen: release partial batch failed")
				}
			}
			return nil, &DownloadError{URI: artifact.URI, Index: artifact.Index, Err: err}
		}
		resources = append(resources, res)
	}
	return resources, nil
}

func (f *Fetcher) fetchOne(ctx context.Context, runID string, artifact ArtifactRef) (*GeneratedResource, error) {
	data, mime, err := f.downloader.Download(ctx, artifact.URI)
	if err != nil {
		return nil, err
	}
	if mime == "" {
		mime = artifact.MIME
	}
	if mime == "" {
		mime = "video/mp4"
	}

	key := artifactKey(runID, artifact.Index, mime)
	savedKey, err := f.store.Write(ctx, key, data)
	if err != nil {
		return nil, err
	}

	metrics.AddDownloadedBytes(len(data))
	f.logger.Debug().
		Str("run_id", runID).
		Str("key", savedKey).
		Int("index", artifact.Index).
		Int("bytes", len(data)).
		Msg("videogen: materialized artifact")

	store := f.store
	return &GeneratedResource{
		ID:    uuid.NewString(),
		Index: artifact.Index,
		Key:   savedKey,
		MIME:  mime,
		Size:  int64(len(data)),
		release: func() error {
			return store.Remove(context.Background(), savedKey)
		},
	}, nil
}

func artifactKey(runID string, index int, mime string) string {
	ext := ".mp4"
	if idx := strings.Index(mime, "/"); idx > 0 && idx < len(mime)-1 {
		switch strings.ToLower(mime[idx+1:]) {
		case "webm":
			ext = ".webm"
		case "quicktime":
			ext = ".mov"
		}
	}
	return fmt.Sprintf("generated/videos/%s/video-%02d%s", runID, index+1, ext)
}
