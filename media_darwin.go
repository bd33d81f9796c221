//go:build darwin
// +build darwin

package main

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
)

// appleScriptPlayers are the applications we can query, in enumeration order
var appleScriptPlayers = []string{"Music", "Spotify"}

func requestSessionManager(ctx context.Context, cfg Config, logger *zap.SugaredLogger) (SessionManager, error) {
	if cfg.Observer.Provider == "playerctl" {
		return newPlayerctlManager(logger)
	}
	if _, err := exec.LookPath("osascript"); err != nil {
		return nil, fmt.Errorf("%w: osascript not found: %v", ErrProviderUnavailable, err)
	}
	return &AppleScriptManager{logger: logger.Named("applescript")}, nil
}

func runAppleScript(ctx context.Context, script string) (string, error) {
	cmd := exec.CommandContext(ctx, "osascript", "-e", script)
	var out bytes.Buffer
	cmd.Stdout = &out
	if err := cmd.Run(); err != nil {
		return "", err
	}
	return strings.TrimRight(out.String(), "\r\n"), nil
}

// AppleScriptManager reports Music and Spotify as sessions while they are running
type AppleScriptManager struct {
	logger *zap.SugaredLogger
}

func (a *AppleScriptManager) Sessions(ctx context.Context) ([]Session, error) {
	var sessions []Session
	for _, player := range appleScriptPlayers {
		// "is running" does not launch the application, unlike a tell block
		result, err := runAppleScript(ctx, fmt.Sprintf(`application "%s" is running`, player))
		if err != nil {
			a.logger.Debugw("Failed to check player", "player", player, "error", err)
			continue
		}
		if result == "true" {
			sessions = append(sessions, &appleScriptSession{player: player})
		}
	}
	return sessions, nil
}

type appleScriptSession struct {
	player string
}

func (s *appleScriptSession) AppID() string {
	return s.player
}

func (s *appleScriptSession) MediaProperties(ctx context.Context) (*MediaProperties, error) {
	// Spotify has no genre or track count, so those are left empty there
	extra := `"" & tab & ""`
	if s.player == "Music" {
		extra = `(genre of current track) & tab & (track count of current track)`
	}

	script := fmt.Sprintf(`tell application "%s"
		if player state is stopped then
			error "no song playing"
		end if
		set t to current track
		return (name of t) & tab & (artist of t) & tab & (album of t) & tab & (album artist of t) & tab & (track number of t) & tab & %s
	end tell`, s.player, extra)

	output, err := runAppleScript(ctx, script)
	if err != nil {
		return nil, fmt.Errorf("no song playing: %w", err)
	}

	parts := strings.Split(output, "\t")
	if len(parts) != 7 {
		return nil, fmt.Errorf("unexpected metadata format: got %d parts, expected 7", len(parts))
	}
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}

	trackNumber, _ := strconv.Atoi(parts[4])
	trackCount, _ := strconv.Atoi(parts[6])
	props := &MediaProperties{
		Title:           parts[0],
		Artist:          parts[1],
		AlbumTitle:      parts[2],
		AlbumArtist:     parts[3],
		TrackNumber:     trackNumber,
		AlbumTrackCount: trackCount,
		PlaybackType:    RawTypeMusic,
	}
	if parts[5] != "" {
		props.Genres = []string{parts[5]}
	}
	return props, nil
}

func (s *appleScriptSession) PlaybackInfo(ctx context.Context) (PlaybackInfo, error) {
	output, err := runAppleScript(ctx, fmt.Sprintf(`tell application "%s" to return player state as string`, s.player))
	if err != nil {
		return PlaybackInfo{}, fmt.Errorf("can't get player state: %w", err)
	}
	return PlaybackInfo{Status: mprisStatusRaw(output)}, nil
}

func (s *appleScriptSession) TimelineProperties(ctx context.Context) (*TimelineProperties, error) {
	output, err := runAppleScript(ctx, fmt.Sprintf(`tell application "%s"
		return (player position as string) & tab & (duration of current track as string)
	end tell`, s.player))
	if err != nil {
		return nil, fmt.Errorf("can't get position: %w", err)
	}
	sampledAt := time.Now()

	parts := strings.Split(output, "\t")
	if len(parts) != 2 {
		return nil, fmt.Errorf("unexpected timeline format: %q", output)
	}
	position, err := parseAppleScriptNumber(parts[0])
	if err != nil {
		return nil, fmt.Errorf("failed to parse position: %w", err)
	}
	duration, err := parseAppleScriptNumber(parts[1])
	if err != nil {
		return nil, fmt.Errorf("failed to parse duration: %w", err)
	}

	// Apple Music returns duration in seconds, Spotify in milliseconds
	length := time.Duration(duration * float64(time.Second))
	if s.player == "Spotify" {
		length = time.Duration(duration * float64(time.Millisecond))
	}

	return &TimelineProperties{
		Position:    time.Duration(position * float64(time.Second)),
		EndTime:     length,
		MaxSeekTime: length,
		LastUpdated: sampledAt,
	}, nil
}

// parseAppleScriptNumber handles locales that use a decimal comma
func parseAppleScriptNumber(s string) (float64, error) {
	return strconv.ParseFloat(strings.Replace(strings.TrimSpace(s), ",", ".", 1), 64)
}
