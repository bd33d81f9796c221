package main

import "time"

// toMillis converts a provider duration into whole milliseconds.
// Fractions are truncated, never rounded, so the ordering of inputs is kept.
func toMillis(d time.Duration) int64 {
	return d.Milliseconds()
}

// epochMillis converts an absolute instant into milliseconds since the Unix epoch.
func epochMillis(t time.Time) int64 {
	return t.UnixMilli()
}

// livePositionMillis extrapolates a sampled position to nowMs while the transport
// is advancing. The result is not clamped to the timeline's end.
func livePositionMillis(status PlaybackStatus, positionMs, lastUpdatedMs, nowMs int64) int64 {
	if status != StatusPlaying {
		return positionMs
	}
	return positionMs + (nowMs - lastUpdatedMs)
}
