package videogen

import (
	"io"
	"sync"

	"github.com/rs/zerolog"

	"veostudio/internal/infra"
)

// GeneratedResource is a locally materialized video artifact. It is owned by
// the current session until superseded or cleared, at which point Release
// reclaims the backing file.
type GeneratedResource struct {
	ID    string
	Index int
	Key   string
	MIME  string
	Size  int64

	mu       sync.Mutex
	released bool
	release  func() error
}

// Release reclaims the backing storage. It is idempotent: only the first call
// runs the cleanup, later calls are no-ops.
func (r *GeneratedResource) Release() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.released {
		return nil
	}
	r.released = true
	if r.release == nil {
		return nil
	}
	return r.release()
}

// Released reports whether the resource has been reclaimed.
func (r *GeneratedResource) Released() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.released
}

// ResourceManager owns the current batch of generated resources for the
// session. Replace and Clear are the only mutation paths; both release every
// superseded resource before readers can observe the new state.
type ResourceManager struct {
	mu      sync.Mutex
	current []*GeneratedResource
	logger  *infra.Logger
}

// NewResourceManager constructs an empty manager.
func NewResourceManager(logger *infra.Logger) *ResourceManager {
	if logger == nil {
		discard := zerolog.New(io.Discard)
		l := infra.Logger(discard)
		logger = &l
	}
	return &ResourceManager{logger: logger}
}

// Replace releases every resource of the existing batch, then installs batch
// as current.
func (m *ResourceManager) Replace(batch []*GeneratedResource) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.releaseLocked()
	m.current = append([]*GeneratedResource(nil), batch...)
}

// Clear releases all current resources and leaves the batch empty.
func (m *ResourceManager) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.releaseLocked()
	m.current = nil
}

// Current returns a copy of the current batch in artifact order.
func (m *ResourceManager) Current() []*GeneratedResource {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*GeneratedResource(nil), m.current...)
}

func (m *ResourceManager) releaseLocked() {
	for _, res := range m.current {
		if err := res.Release(); err != nil {
			m.logger.Warn().Err(err).Str("resource_id", res.ID).Msg("videogen: release resource failed")
		}
	}
}
