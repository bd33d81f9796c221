package main

import (
	"context"
	"errors"
	"time"
)

// ErrProviderUnavailable means no session manager could be acquired on this host
var ErrProviderUnavailable = errors.New("media session provider unavailable")

// SessionManager enumerates the media sessions the host currently knows about.
// Managers that hold resources also implement io.Closer.
type SessionManager interface {
	Sessions(ctx context.Context) ([]Session, error)
}

// SessionManagerRequester performs the one-time handshake that yields a SessionManager
type SessionManagerRequester func(ctx context.Context) (SessionManager, error)

// Session is a provider-owned handle to one media session.
// It is only valid for the tick it was enumerated in.
type Session interface {
	AppID() string
	MediaProperties(ctx context.Context) (*MediaProperties, error)
	PlaybackInfo(ctx context.Context) (PlaybackInfo, error)
	// TimelineProperties returns nil, nil when the session has no timeline
	TimelineProperties(ctx context.Context) (*TimelineProperties, error)
}

// PlaybackStatusRaw is the provider's status code. Values follow the host media
// transport controls numbering; providers map their own states onto it.
type PlaybackStatusRaw int32

const (
	RawStatusClosed PlaybackStatusRaw = iota
	RawStatusOpened
	RawStatusChanging
	RawStatusStopped
	RawStatusPlaying
	RawStatusPaused
)

// PlaybackTypeRaw is the provider's media type code
type PlaybackTypeRaw int32

const (
	RawTypeUnknown PlaybackTypeRaw = iota
	RawTypeMusic
	RawTypeVideo
	RawTypeImage
)

// MediaProperties is the metadata a session exposes for its current item
type MediaProperties struct {
	Title           string
	Subtitle        string
	Artist          string
	AlbumTitle      string
	AlbumArtist     string
	Genres          []string
	TrackNumber     int
	AlbumTrackCount int
	PlaybackType    PlaybackTypeRaw
	Thumbnail       ThumbnailRef
}

type PlaybackInfo struct {
	Status PlaybackStatusRaw
}

// TimelineProperties is a timeline sample. Position was valid at LastUpdated;
// providers don't advance it while playing.
type TimelineProperties struct {
	Position    time.Duration
	StartTime   time.Duration
	EndTime     time.Duration
	MinSeekTime time.Duration
	MaxSeekTime time.Duration
	LastUpdated time.Time
}

// ThumbnailRef is a lazily opened image resource
type ThumbnailRef interface {
	OpenRead(ctx context.Context) (ThumbnailStream, error)
}

// ThumbnailStream is an opened thumbnail with a declared size and content type
type ThumbnailStream interface {
	Size() int64
	ContentType() string
	// Read returns at most length bytes starting at offset
	Read(ctx context.Context, offset, length int64) ([]byte, error)
	Close() error
}
