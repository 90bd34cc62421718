package videogen

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"veostudio/internal/infra"
	"veostudio/internal/metrics"
)

// Stage names the phase a run is currently in.
type Stage string

const (
	StageIdle        Stage = "idle"
	StageValidating  Stage = "validating"
	StageSubmitting  Stage = "submitting"
	StagePolling     Stage = "polling"
	StageDownloading Stage = "downloading"
	StageDone        Stage = "done"
	StageFailed      Stage = "failed"
)

// Progress describes the state of the current (or last) run. Attempt and Max
// are only meaningful while polling.
type Progress struct {
	Stage   Stage `json:"stage"`
	Attempt int   `json:"attempt,omitempty"`
	Max     int   `json:"max,omitempty"`
}

// ProgressSink receives progress updates as a run advances.
type ProgressSink func(Progress)

// ControllerOptions configures a Controller.
type ControllerOptions struct {
	Model      string
	Logger     *infra.Logger
	OnProgress ProgressSink
}

// Controller sequences one end-to-end generation run: build, submit, poll,
// fetch, install. At most one run is in flight per controller; a Submit while
// busy is rejected with ErrBusy before any network call. Every failure is
// classified exactly once before it reaches the caller.
type Controller struct {
	submitter Submitter
	poller    *Poller
	fetcher   *Fetcher
	resources *ResourceManager

	model      string
	logger     *infra.Logger
	onProgress ProgressSink

	mu   sync.Mutex
	busy bool
	last Progress
}

// NewController wires the orchestration stages together.
func NewController(submitter Submitter, poller *Poller, fetcher *Fetcher, resources *ResourceManager, opts ControllerOptions) *Controller {
	logger := opts.Logger
	if logger == nil {
		discard := zerolog.New(io.Discard)
		l := infra.Logger(discard)
		logger = &l
	}
	return &Controller{
		submitter:  submitter,
		poller:     poller,
		fetcher:    fetcher,
		resources:  resources,
		model:      opts.Model,
		logger:     logger,
		onProgress: opts.OnProgress,
		last:       Progress{Stage: StageIdle},
	}
}

// Submit runs one generation end to end and installs the produced batch as
// the session's current resources, superseding the previous batch. On any
// failure it returns a *ClassifiedError and leaves the previous batch
// untouched, except for download failures where nothing is installed either.
// Returns ErrBusy without side effects while another run is in flight.
func (c *Controller) Submit(ctx context.Context, prompt string, image *ReferenceImage, settings Settings) ([]*GeneratedResource, error) {
	c.mu.Lock()
	if c.busy {
		c.mu.Unlock()
		return nil, ErrBusy
	}
	c.busy = true
	c.mu.Unlock()
	c.report(Progress{Stage: StageValidating})

	defer func() {
		c.mu.Lock()
		c.busy = false
		c.mu.Unlock()
	}()

	started := time.Now()
	batch, err := c.run(ctx, prompt, image, settings)
	if err != nil {
		classified := Classify(c.model, err)
		c.report(Progress{Stage: StageFailed})
		metrics.ObserveRun(string(classified.Kind), time.Since(started))
		c.logger.Error().
			Err(classified.Cause).
			Str("model", c.model).
			Str("kind", string(classified.Kind)).
			Msg("videogen: generation failed")
		return nil, classified
	}

	c.report(Progress{Stage: StageDone})
	metrics.ObserveRun("success", time.Since(started))
	c.logger.Info().
		Str("model", c.model).
		Int("videos", len(batch)).
		Dur("elapsed", time.Since(started)).
		Msg("videogen: generation succeeded")
	return batch, nil
}

func (c *Controller) run(ctx context.Context, prompt string, image *ReferenceImage, settings Settings) ([]*GeneratedResource, error) {
	req, err := BuildRequest(prompt, image, settings)
	if err != nil {
		return nil, err
	}

	c.report(Progress{Stage: StageSubmitting})
	handle, err := c.submitter.SubmitVideo(ctx, req)
	if err != nil {
		return nil, err
	}
	c.logger.Info().Str("operation", handle.Name).Str("model", c.model).Msg("videogen: job submitted")

	status, err := c.poller.Wait(ctx, handle, func(attempt, max int) {
		metrics.IncPollAttempt()
		c.report(Progress{Stage: StagePolling, Attempt: attempt, Max: max})
	})
	if err != nil {
		return nil, err
	}

	c.report(Progress{Stage: StageDownloading})
	batch, err := c.fetcher.Fetch(ctx, uuid.NewString(), status.Artifacts)
	if err != nil {
		return nil, err
	}

	c.resources.Replace(batch)
	return batch, nil
}

// Clear releases every resource of the current batch and resets progress.
func (c *Controller) Clear() {
	c.resources.Clear()
	c.report(Progress{Stage: StageIdle})
}

// Current returns the session's current batch in artifact order.
func (c *Controller) Current() []*GeneratedResource {
	return c.resources.Current()
}

// Busy reports whether a run is in flight.
func (c *Controller) Busy() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.busy
}

// Progress returns the most recent progress snapshot.
func (c *Controller) Progress() Progress {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.last
}

func (c *Controller) report(p Progress) {
	c.mu.Lock()
	c.last = p
	c.mu.Unlock()
	if c.onProgress != nil {
		c.onProgress(p)
	}
}
