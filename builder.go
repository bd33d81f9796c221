package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
)

// ErrSessionFetch marks a session whose media properties could not be fetched.
// The session is left out of the current tick only.
var ErrSessionFetch = errors.New("failed to get media properties")

// SnapshotBuilder turns one session handle into a Snapshot
type SnapshotBuilder struct {
	thumbnails *ThumbnailExtractor // nil skips thumbnails entirely
	clock      clockwork.Clock
	logger     *zap.SugaredLogger
}

// NewSnapshotBuilder creates a builder. A nil clock means the real clock.
func NewSnapshotBuilder(thumbnails *ThumbnailExtractor, clock clockwork.Clock, logger *zap.SugaredLogger) *SnapshotBuilder {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &SnapshotBuilder{
		thumbnails: thumbnails,
		clock:      clock,
		logger:     logger.Named("builder"),
	}
}

// Build fetches everything the session exposes. Only a media properties failure
// is returned as an error; playback info, timeline and thumbnail failures leave
// their field at its zero value.
func (b *SnapshotBuilder) Build(ctx context.Context, session Session) (*Snapshot, error) {
	props, err := session.MediaProperties(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSessionFetch, err)
	}
	if props == nil {
		return nil, fmt.Errorf("%w: provider returned no properties", ErrSessionFetch)
	}

	snapshot := &Snapshot{
		AppID:           session.AppID(),
		Title:           props.Title,
		Subtitle:        props.Subtitle,
		Artist:          props.Artist,
		AlbumTitle:      props.AlbumTitle,
		AlbumArtist:     props.AlbumArtist,
		Genres:          append(make([]string, 0, len(props.Genres)), props.Genres...),
		TrackNumber:     props.TrackNumber,
		AlbumTrackCount: props.AlbumTrackCount,
		PlaybackType:    playbackTypeFromRaw(props.PlaybackType),
	}
	if snapshot.PlaybackType == TypeUnrecognized {
		b.logger.Debugw("Unrecognized playback type", "app", snapshot.AppID, "raw", props.PlaybackType)
	}

	snapshot.PlaybackStatus = b.playbackStatus(ctx, session)
	snapshot.Timeline = b.timeline(ctx, session, snapshot.PlaybackStatus)
	snapshot.Thumbnail = b.thumbnail(ctx, snapshot.AppID, props.Thumbnail)

	return snapshot, nil
}

func (b *SnapshotBuilder) playbackStatus(ctx context.Context, session Session) PlaybackStatus {
	info, err := session.PlaybackInfo(ctx)
	if err != nil {
		b.logger.Debugw("Playback info unavailable", "app", session.AppID(), "error", err)
		return StatusUnrecognized
	}

	status := playbackStatusFromRaw(info.Status)
	if status == StatusUnrecognized {
		b.logger.Debugw("Unrecognized playback status", "app", session.AppID(), "raw", info.Status)
	}
	return status
}

func (b *SnapshotBuilder) timeline(ctx context.Context, session Session, status PlaybackStatus) *Timeline {
	props, err := session.TimelineProperties(ctx)
	if err != nil {
		b.logger.Debugw("Timeline unavailable", "app", session.AppID(), "error", err)
		return nil
	}
	if props == nil {
		return nil
	}

	positionMs := toMillis(props.Position)
	lastUpdatedMs := epochMillis(props.LastUpdated)

	return &Timeline{
		PositionMs:     positionMs,
		LivePositionMs: livePositionMillis(status, positionMs, lastUpdatedMs, epochMillis(b.clock.Now())),
		StartMs:        toMillis(props.StartTime),
		EndMs:          toMillis(props.EndTime),
		MinSeekMs:      toMillis(props.MinSeekTime),
		MaxSeekMs:      toMillis(props.MaxSeekTime),
		LastUpdatedMs:  lastUpdatedMs,
	}
}

func (b *SnapshotBuilder) thumbnail(ctx context.Context, appID string, ref ThumbnailRef) *Image {
	if b.thumbnails == nil {
		return nil
	}

	img, err := b.thumbnails.Extract(ctx, ref)
	switch {
	case errors.Is(err, ErrThumbnailSizeMismatch):
		b.logger.Errorw("Thumbnail stream broke its declared size", "app", appID, "error", err)
	case err != nil:
		b.logger.Debugw("Thumbnail unavailable", "app", appID, "error", err)
	}
	return img
}
