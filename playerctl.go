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

// playerctlFormat uses tab separators to avoid conflicts with | and , in metadata
// (e.g. album names like "Artist | Sessions")
const playerctlFormat = "{{xesam:title}}\t{{xesam:artist}}\t{{xesam:album}}\t{{xesam:albumArtist}}\t" +
	"{{xesam:genre}}\t{{xesam:trackNumber}}\t{{mpris:artUrl}}\t{{xesam:url}}"

const playerctlFields = 8

type commandRunner func(ctx context.Context, args ...string) (string, error)

func runPlayerctl(ctx context.Context, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, "playerctl", args...)
	var out bytes.Buffer
	cmd.Stdout = &out
	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("playerctl %s failed: %w", strings.Join(args, " "), err)
	}
	// Only line endings are trimmed; an empty first field leaves a leading tab
	return strings.TrimRight(out.String(), "\r\n"), nil
}

// PlayerctlManager enumerates players through the playerctl command line tool
type PlayerctlManager struct {
	run    commandRunner
	logger *zap.SugaredLogger
}

func newPlayerctlManager(logger *zap.SugaredLogger) (*PlayerctlManager, error) {
	if _, err := exec.LookPath("playerctl"); err != nil {
		return nil, fmt.Errorf("%w: playerctl not found: %v", ErrProviderUnavailable, err)
	}
	return &PlayerctlManager{run: runPlayerctl, logger: logger.Named("playerctl")}, nil
}

// Sessions lists players in playerctl's order. No players is not an error.
func (p *PlayerctlManager) Sessions(ctx context.Context) ([]Session, error) {
	out, err := p.run(ctx, "--list-all")
	if err != nil {
		// playerctl exits non-zero when no players are found
		p.logger.Debugw("No players listed", "error", err)
		return nil, nil
	}

	var sessions []Session
	for _, line := range strings.Split(out, "\n") {
		if name := strings.TrimSpace(line); name != "" {
			sessions = append(sessions, &playerctlSession{name: name, run: p.run})
		}
	}
	return sessions, nil
}

type playerctlSession struct {
	name string
	run  commandRunner
}

func (s *playerctlSession) AppID() string {
	return s.name
}

func (s *playerctlSession) MediaProperties(ctx context.Context) (*MediaProperties, error) {
	out, err := s.run(ctx, "--player", s.name, "metadata", "--format", playerctlFormat)
	if err != nil {
		return nil, err
	}

	parts := strings.Split(out, "\t")
	if len(parts) != playerctlFields {
		return nil, fmt.Errorf("unexpected metadata format: got %d parts, expected %d", len(parts), playerctlFields)
	}
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}

	trackNumber, _ := strconv.Atoi(parts[5])
	return &MediaProperties{
		Title:        parts[0],
		Artist:       parts[1],
		AlbumTitle:   parts[2],
		AlbumArtist:  parts[3],
		Genres:       splitNames(parts[4]),
		TrackNumber:  trackNumber,
		PlaybackType: guessPlaybackType(parts[7], parts[1], parts[2]),
		Thumbnail:    newArtworkRef(parts[6]),
	}, nil
}

func (s *playerctlSession) PlaybackInfo(ctx context.Context) (PlaybackInfo, error) {
	out, err := s.run(ctx, "--player", s.name, "status")
	if err != nil {
		return PlaybackInfo{}, err
	}
	return PlaybackInfo{Status: mprisStatusRaw(out)}, nil
}

func (s *playerctlSession) TimelineProperties(ctx context.Context) (*TimelineProperties, error) {
	out, err := s.run(ctx, "--player", s.name, "position")
	if err != nil {
		return nil, nil
	}
	sampledAt := time.Now()

	seconds, err := strconv.ParseFloat(strings.TrimSpace(out), 64)
	if err != nil {
		return nil, fmt.Errorf("failed to parse position: %w", err)
	}

	var length time.Duration
	if out, err := s.run(ctx, "--player", s.name, "metadata", "mpris:length"); err == nil && out != "" {
		micros, err := strconv.ParseInt(strings.TrimSpace(out), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("failed to parse duration: %w", err)
		}
		length = time.Duration(micros) * time.Microsecond
	}

	return &TimelineProperties{
		Position:    time.Duration(seconds * float64(time.Second)),
		EndTime:     length,
		MaxSeekTime: length,
		LastUpdated: sampledAt,
	}, nil
}
