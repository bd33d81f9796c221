package main

import "encoding/json"

// PlaybackStatus is the closed set of transport states reported in a Snapshot
type PlaybackStatus int

const (
	StatusUnrecognized PlaybackStatus = iota
	StatusPlaying
	StatusPaused
	StatusOpened
	StatusStopped
	StatusChanging
	StatusClosed
)

// invalidMarker is shown for enum values the provider reported but we don't know
const invalidMarker = "<invalid>"

func (s PlaybackStatus) String() string {
	switch s {
	case StatusPlaying:
		return "playing"
	case StatusPaused:
		return "paused"
	case StatusOpened:
		return "opened"
	case StatusStopped:
		return "stopped"
	case StatusChanging:
		return "changing"
	case StatusClosed:
		return "closed"
	default:
		return invalidMarker
	}
}

func (s PlaybackStatus) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// PlaybackType describes what kind of media a session is playing
type PlaybackType int

const (
	TypeUnknown PlaybackType = iota
	TypeMusic
	TypeVideo
	TypeImage
	TypeUnrecognized
)

func (t PlaybackType) String() string {
	switch t {
	case TypeUnknown:
		return "unknown"
	case TypeMusic:
		return "music"
	case TypeVideo:
		return "video"
	case TypeImage:
		return "image"
	default:
		return invalidMarker
	}
}

func (t PlaybackType) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// playbackStatusFromRaw maps a provider status code onto PlaybackStatus.
// Codes outside the known set become StatusUnrecognized.
func playbackStatusFromRaw(raw PlaybackStatusRaw) PlaybackStatus {
	switch raw {
	case RawStatusClosed:
		return StatusClosed
	case RawStatusOpened:
		return StatusOpened
	case RawStatusChanging:
		return StatusChanging
	case RawStatusStopped:
		return StatusStopped
	case RawStatusPlaying:
		return StatusPlaying
	case RawStatusPaused:
		return StatusPaused
	default:
		return StatusUnrecognized
	}
}

// playbackTypeFromRaw maps a provider media type code onto PlaybackType
func playbackTypeFromRaw(raw PlaybackTypeRaw) PlaybackType {
	switch raw {
	case RawTypeUnknown:
		return TypeUnknown
	case RawTypeMusic:
		return TypeMusic
	case RawTypeVideo:
		return TypeVideo
	case RawTypeImage:
		return TypeImage
	default:
		return TypeUnrecognized
	}
}

// Timeline is a session's timeline in milliseconds. PositionMs is the provider
// sample taken at LastUpdatedMs (epoch ms); LivePositionMs is that sample
// extrapolated to the moment the snapshot was built.
type Timeline struct {
	PositionMs     int64 `json:"position_ms" yaml:"position_ms"`
	LivePositionMs int64 `json:"live_position_ms" yaml:"live_position_ms"`
	StartMs        int64 `json:"start_ms" yaml:"start_ms"`
	EndMs          int64 `json:"end_ms" yaml:"end_ms"`
	MinSeekMs      int64 `json:"min_seek_ms" yaml:"min_seek_ms"`
	MaxSeekMs      int64 `json:"max_seek_ms" yaml:"max_seek_ms"`
	LastUpdatedMs  int64 `json:"last_updated_ms" yaml:"last_updated_ms"`
}

// DurationMs is EndMs - StartMs as reported, without validation
func (t Timeline) DurationMs() int64 {
	return t.EndMs - t.StartMs
}

// SeekRangeMs is MaxSeekMs - MinSeekMs as reported, without validation
func (t Timeline) SeekRangeMs() int64 {
	return t.MaxSeekMs - t.MinSeekMs
}

// Image is a thumbnail read in full from the provider.
// Data is never empty and never larger than MaxThumbnailBytes.
type Image struct {
	Data        []byte
	ContentType string
}

// imageSummary is how an Image appears in serialized output; raw bytes stay in process.
type imageSummary struct {
	ContentType string `json:"content_type" yaml:"content_type"`
	Size        int    `json:"size" yaml:"size"`
}

func (img Image) summary() imageSummary {
	return imageSummary{ContentType: img.ContentType, Size: len(img.Data)}
}

func (img Image) MarshalJSON() ([]byte, error) {
	return json.Marshal(img.summary())
}

func (img Image) MarshalYAML() (interface{}, error) {
	return img.summary(), nil
}

// Snapshot is one session's state at one tick. Empty strings mean the provider
// had no value; Timeline and Thumbnail are nil when unavailable.
type Snapshot struct {
	AppID           string         `json:"app_id" yaml:"app_id"`
	Title           string         `json:"title" yaml:"title"`
	Subtitle        string         `json:"subtitle" yaml:"subtitle"`
	Artist          string         `json:"artist" yaml:"artist"`
	AlbumTitle      string         `json:"album_title" yaml:"album_title"`
	AlbumArtist     string         `json:"album_artist" yaml:"album_artist"`
	Genres          []string       `json:"genres" yaml:"genres"`
	TrackNumber     int            `json:"track_number" yaml:"track_number"`
	AlbumTrackCount int            `json:"album_track_count" yaml:"album_track_count"`
	PlaybackType    PlaybackType   `json:"playback_type" yaml:"playback_type"`
	PlaybackStatus  PlaybackStatus `json:"playback_status" yaml:"playback_status"`
	Timeline        *Timeline      `json:"timeline,omitempty" yaml:"timeline,omitempty"`
	Thumbnail       *Image         `json:"thumbnail,omitempty" yaml:"thumbnail,omitempty"`
}

// trackID identifies the track a snapshot is showing, for artwork and scroll resets
func (s Snapshot) trackID() string {
	return s.AppID + "|" + s.Title + "|" + s.Artist
}
