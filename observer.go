package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
)

// DefaultPollInterval is how long the observer sleeps between ticks
const DefaultPollInterval = time.Second

// SnapshotSink receives each tick's snapshots as one ordered batch
type SnapshotSink interface {
	Publish(ctx context.Context, batch []Snapshot) error
}

// SinkFunc adapts a function to SnapshotSink
type SinkFunc func(ctx context.Context, batch []Snapshot) error

func (f SinkFunc) Publish(ctx context.Context, batch []Snapshot) error {
	return f(ctx, batch)
}

// ObserverSettings are re-read before every tick so config reloads apply live
type ObserverSettings struct {
	Interval     time.Duration
	FetchTimeout time.Duration // 0 disables the per-session timeout
}

// Observer polls the session manager forever and publishes one batch per tick
type Observer struct {
	request  SessionManagerRequester
	builder  *SnapshotBuilder
	sink     SnapshotSink
	settings func() ObserverSettings
	clock    clockwork.Clock
	logger   *zap.SugaredLogger
}

// NewObserver creates an observer. A nil settings func uses DefaultPollInterval
// and no fetch timeout; a nil clock uses the real clock.
func NewObserver(request SessionManagerRequester, builder *SnapshotBuilder, sink SnapshotSink,
	settings func() ObserverSettings, clock clockwork.Clock, logger *zap.SugaredLogger) *Observer {
	if settings == nil {
		settings = func() ObserverSettings { return ObserverSettings{Interval: DefaultPollInterval} }
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Observer{
		request:  request,
		builder:  builder,
		sink:     sink,
		settings: settings,
		clock:    clock,
		logger:   logger.Named("observer"),
	}
}

// Run acquires the session manager and polls until ctx is cancelled.
// It only returns on cancellation, a provider failure or a sink failure.
func (o *Observer) Run(ctx context.Context) error {
	manager, err := o.acquire(ctx)
	if err != nil {
		return err
	}
	if closer, ok := manager.(io.Closer); ok {
		defer closer.Close()
	}

	o.logger.Debug("Session manager acquired, polling")

	for {
		settings := o.currentSettings()
		if err := o.tick(ctx, manager, settings); err != nil {
			return err
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-o.clock.After(settings.Interval):
		}
	}
}

// RunOnce acquires the session manager and performs a single tick
func (o *Observer) RunOnce(ctx context.Context) error {
	manager, err := o.acquire(ctx)
	if err != nil {
		return err
	}
	if closer, ok := manager.(io.Closer); ok {
		defer closer.Close()
	}
	return o.tick(ctx, manager, o.currentSettings())
}

func (o *Observer) acquire(ctx context.Context) (SessionManager, error) {
	manager, err := o.request(ctx)
	if err != nil {
		if errors.Is(err, ErrProviderUnavailable) || errors.Is(err, context.Canceled) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", ErrProviderUnavailable, err)
	}
	return manager, nil
}

func (o *Observer) currentSettings() ObserverSettings {
	settings := o.settings()
	if settings.Interval <= 0 {
		settings.Interval = DefaultPollInterval
	}
	return settings
}

func (o *Observer) tick(ctx context.Context, manager SessionManager, settings ObserverSettings) error {
	sessions, err := manager.Sessions(ctx)
	if err != nil {
		return fmt.Errorf("enumerate sessions: %w", err)
	}

	batch := make([]Snapshot, 0, len(sessions))
	for _, session := range sessions {
		if err := ctx.Err(); err != nil {
			return err
		}

		snapshot, err := o.build(ctx, session, settings.FetchTimeout)
		if err != nil {
			o.logger.Warnw("Skipping session this tick", "app", session.AppID(), "error", err)
			continue
		}
		batch = append(batch, *snapshot)
	}

	if err := ctx.Err(); err != nil {
		return err
	}
	return o.sink.Publish(ctx, batch)
}

func (o *Observer) build(ctx context.Context, session Session, timeout time.Duration) (*Snapshot, error) {
	if timeout <= 0 {
		return o.builder.Build(ctx, session)
	}
	buildCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	snapshot, err := o.builder.Build(buildCtx, session)
	if err != nil {
		return nil, err
	}
	// A deadline hit after the metadata arrived still skips the session
	if err := buildCtx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSessionFetch, err)
	}
	return snapshot, nil
}
