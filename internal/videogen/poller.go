package videogen

import (
	"context"
	"io"
	"time"

	"github.com/rs/zerolog"

	"veostudio/internal/infra"
)

const (
	defaultPollInterval    = 10 * time.Second
	defaultPollMaxAttempts = 60
)

// ProgressFunc receives the current attempt number and the attempt ceiling
// after each poll.
type ProgressFunc func(attempt, max int)

// PollerOptions configures the bounded polling loop.
type PollerOptions struct {
	Interval    time.Duration
	MaxAttempts int
	Logger      *infra.Logger
}

// Poller drives an operation to a terminal status with a fixed-interval,
// bounded loop. The worst-case wait is Interval times MaxAttempts, a
// deliberate ceiling against a stalled remote job.
type Poller struct {
	source      StatusPoller
	interval    time.Duration
	maxAttempts int
	logger      *infra.Logger
}

// NewPoller constructs a poller with sane defaults (10s interval, 60
// attempts) over the given status source.
func NewPoller(source StatusPoller, opts PollerOptions) *Poller {
	interval := opts.Interval
	if interval <= 0 {
		interval = defaultPollInterval
	}
	maxAttempts := opts.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = defaultPollMaxAttempts
	}
	logger := opts.Logger
	if logger == nil {
		discard := zerolog.New(io.Discard)
		l := infra.Logger(discard)
		logger = &l
	}
	return &Poller{
		source:      source,
		interval:    interval,
		maxAttempts: maxAttempts,
		logger:      logger,
	}
}

// Wait polls until the operation reports done, the attempt ceiling is hit
// (ErrPollTimeout) or the context is cancelled. Each turn waits the fixed
// interval, queries with the most recently returned handle and reports
// progress. A done status with an empty artifact list fails with
// ErrEmptyResult.
func (p *Poller) Wait(ctx context.Context, handle OperationHandle, progress ProgressFunc) (OperationStatus, error) {
	for attempt := 1; attempt <= p.maxAttempts; attempt++ {
		select {
		case <-ctx.Done():
			return OperationStatus{}, ctx.Err()
		case <-time.After(p.interval):
		}

		status, err := p.source.PollOperation(ctx, handle)
		if err != nil {
			return OperationStatus{}, err
		}
		handle = status.Handle

		if progress != nil {
			progress(attempt, p.maxAttempts)
		}
		p.logger.Debug().
			Str("operation", handle.Name).
			Int("attempt", attempt).
			Int("max_attempts", p.maxAttempts).
			Bool("done", status.Done).
			Msg("videogen: polled operation")

		if status.Done {
			if len(status.Artifacts) == 0 {
				return status, ErrEmptyResult
			}
			return status, nil
		}
	}
	return OperationStatus{}, ErrPollTimeout
}
