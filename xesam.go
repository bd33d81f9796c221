package main

import (
	"path"
	"strings"
)

// mprisStatusRaw maps an MPRIS PlaybackStatus string onto the provider status code.
// Unknown strings map to -1, which the builder reports as unrecognized.
func mprisStatusRaw(status string) PlaybackStatusRaw {
	switch strings.ToLower(strings.TrimSpace(status)) {
	case "playing":
		return RawStatusPlaying
	case "paused":
		return RawStatusPaused
	case "stopped":
		return RawStatusStopped
	default:
		return -1
	}
}

var (
	videoExtensions = map[string]bool{
		".mp4": true, ".mkv": true, ".webm": true, ".avi": true, ".mov": true, ".m4v": true, ".wmv": true,
	}
	imageExtensions = map[string]bool{
		".jpg": true, ".jpeg": true, ".png": true, ".gif": true, ".webp": true, ".bmp": true,
	}
)

// guessPlaybackType classifies the current item. MPRIS has no media type field,
// so the item URL's extension decides, then the presence of music metadata.
func guessPlaybackType(itemURL, artist, album string) PlaybackTypeRaw {
	ext := strings.ToLower(path.Ext(strings.SplitN(itemURL, "?", 2)[0]))
	switch {
	case videoExtensions[ext]:
		return RawTypeVideo
	case imageExtensions[ext]:
		return RawTypeImage
	case artist != "" || album != "":
		return RawTypeMusic
	default:
		return RawTypeUnknown
	}
}

// joinNames joins multi-valued xesam fields (artists, album artists) for display
func joinNames(names []string) string {
	kept := make([]string, 0, len(names))
	for _, n := range names {
		if n = strings.TrimSpace(n); n != "" {
			kept = append(kept, n)
		}
	}
	return strings.Join(kept, ", ")
}

// splitNames is the inverse of joinNames for tools that flatten lists into text
func splitNames(joined string) []string {
	var names []string
	for _, n := range strings.Split(joined, ",") {
		if n = strings.TrimSpace(n); n != "" {
			names = append(names, n)
		}
	}
	return names
}
