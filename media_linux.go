//go:build linux
// +build linux

package main

import (
	"context"
	"fmt"
	"os/exec"
	"sort"
	"strings"
	"time"

	"github.com/godbus/dbus/v5"
	"github.com/shirou/gopsutil/v3/process"
	"go.uber.org/zap"
)

const (
	mprisBusPrefix   = "org.mpris.MediaPlayer2."
	playerctldBus    = "org.mpris.MediaPlayer2.playerctld"
	mprisObjectPath  = dbus.ObjectPath("/org/mpris/MediaPlayer2")
	mprisRootIface   = "org.mpris.MediaPlayer2"
	mprisPlayerIface = "org.mpris.MediaPlayer2.Player"
	dbusPropertyGet  = "org.freedesktop.DBus.Properties.Get"
)

// requestSessionManager connects to the provider selected by observer.provider.
// "auto" prefers MPRIS on the session bus and falls back to playerctl.
func requestSessionManager(ctx context.Context, cfg Config, logger *zap.SugaredLogger) (SessionManager, error) {
	switch cfg.Observer.Provider {
	case "playerctl":
		return newPlayerctlManager(logger)
	case "mpris":
		return newMprisManager(logger)
	default:
		manager, err := newMprisManager(logger)
		if err == nil {
			return manager, nil
		}
		logger.Warnw("MPRIS unavailable, falling back to playerctl", "error", err)
		if _, lookErr := exec.LookPath("playerctl"); lookErr != nil {
			return nil, err
		}
		return newPlayerctlManager(logger)
	}
}

// MprisManager enumerates MPRIS players on the D-Bus session bus
type MprisManager struct {
	conn   *dbus.Conn
	logger *zap.SugaredLogger
}

func newMprisManager(logger *zap.SugaredLogger) (*MprisManager, error) {
	conn, err := dbus.ConnectSessionBus()
	if err != nil {
		return nil, fmt.Errorf("%w: connect to session bus: %v", ErrProviderUnavailable, err)
	}

	m := &MprisManager{
		conn:   conn,
		logger: logger.Named("mpris"),
	}
	m.logger.Debug("Connected to D-Bus session bus")
	return m, nil
}

// Sessions lists MPRIS players sorted by bus name so tick order is stable
func (m *MprisManager) Sessions(ctx context.Context) ([]Session, error) {
	var names []string
	if err := m.conn.BusObject().CallWithContext(ctx, "org.freedesktop.DBus.ListNames", 0).Store(&names); err != nil {
		return nil, fmt.Errorf("list bus names: %w", err)
	}

	players := mprisPlayers(names)
	sessions := make([]Session, 0, len(players))
	for _, name := range players {
		s := &mprisSession{
			busName: name,
			obj:     m.conn.Object(name, mprisObjectPath),
		}
		s.appID = m.resolveAppID(ctx, s)
		sessions = append(sessions, s)
	}
	return sessions, nil
}

// mprisPlayers keeps the MPRIS bus names, sorted. playerctld only mirrors the
// active player, so it is left out.
func mprisPlayers(names []string) []string {
	var players []string
	for _, name := range names {
		if strings.HasPrefix(name, mprisBusPrefix) && name != playerctldBus {
			players = append(players, name)
		}
	}
	sort.Strings(players)
	return players
}

// resolveAppID prefers the player's desktop entry or identity, then the owning process name,
// then the bus name suffix (e.g. "spotify" or "firefox.instance_1_42").
func (m *MprisManager) resolveAppID(ctx context.Context, s *mprisSession) string {
	for _, prop := range []string{"DesktopEntry", "Identity"} {
		if v, err := getProperty(ctx, s.obj, mprisRootIface, prop); err == nil {
			if name, ok := v.Value().(string); ok && name != "" {
				return name
			}
		}
	}

	var pid uint32
	err := m.conn.BusObject().CallWithContext(ctx, "org.freedesktop.DBus.GetConnectionUnixProcessID", 0, s.busName).Store(&pid)
	if err == nil {
		if proc, err := process.NewProcessWithContext(ctx, int32(pid)); err == nil {
			if name, err := proc.NameWithContext(ctx); err == nil && name != "" {
				return name
			}
		}
	}

	return strings.TrimPrefix(s.busName, mprisBusPrefix)
}

func (m *MprisManager) Close() error {
	return m.conn.Close()
}

// mprisSession lives for a single tick
type mprisSession struct {
	busName string
	appID   string
	obj     dbus.BusObject

	length     time.Duration // mpris:length from the last Metadata read
	haveLength bool
}

func (s *mprisSession) AppID() string {
	return s.appID
}

func (s *mprisSession) metadata(ctx context.Context) (map[string]dbus.Variant, error) {
	v, err := getProperty(ctx, s.obj, mprisPlayerIface, "Metadata")
	if err != nil {
		return nil, err
	}
	md, ok := v.Value().(map[string]dbus.Variant)
	if !ok {
		return nil, fmt.Errorf("unexpected metadata type %s", v.Signature())
	}
	return md, nil
}

func (s *mprisSession) MediaProperties(ctx context.Context) (*MediaProperties, error) {
	md, err := s.metadata(ctx)
	if err != nil {
		return nil, err
	}
	s.length, s.haveLength = mprisLength(md), true
	return parseMprisMetadata(md), nil
}

func (s *mprisSession) PlaybackInfo(ctx context.Context) (PlaybackInfo, error) {
	v, err := getProperty(ctx, s.obj, mprisPlayerIface, "PlaybackStatus")
	if err != nil {
		return PlaybackInfo{}, err
	}
	status, _ := v.Value().(string)
	return PlaybackInfo{Status: mprisStatusRaw(status)}, nil
}

// TimelineProperties reads Position live, so LastUpdated is the read time
func (s *mprisSession) TimelineProperties(ctx context.Context) (*TimelineProperties, error) {
	if !s.haveLength {
		md, err := s.metadata(ctx)
		if err != nil {
			return nil, err
		}
		s.length, s.haveLength = mprisLength(md), true
	}
	length := s.length

	v, err := getProperty(ctx, s.obj, mprisPlayerIface, "Position")
	if err != nil {
		// Players without a position (live streams) have no timeline
		return nil, nil
	}
	sampledAt := time.Now()
	position := time.Duration(variantInt(v)) * time.Microsecond

	var maxSeek time.Duration
	if cs, err := getProperty(ctx, s.obj, mprisPlayerIface, "CanSeek"); err == nil {
		if canSeek, _ := cs.Value().(bool); canSeek {
			maxSeek = length
		}
	}

	return &TimelineProperties{
		Position:    position,
		EndTime:     length,
		MaxSeekTime: maxSeek,
		LastUpdated: sampledAt,
	}, nil
}

func getProperty(ctx context.Context, obj dbus.BusObject, iface, name string) (dbus.Variant, error) {
	var v dbus.Variant
	if err := obj.CallWithContext(ctx, dbusPropertyGet, 0, iface, name).Store(&v); err != nil {
		return dbus.Variant{}, fmt.Errorf("get %s.%s: %w", iface, name, err)
	}
	return v, nil
}

// parseMprisMetadata converts an xesam/mpris metadata map into MediaProperties
func parseMprisMetadata(md map[string]dbus.Variant) *MediaProperties {
	artist := joinNames(variantStrings(md["xesam:artist"]))
	album := variantString(md["xesam:album"])

	return &MediaProperties{
		Title:        variantString(md["xesam:title"]),
		Artist:       artist,
		AlbumTitle:   album,
		AlbumArtist:  joinNames(variantStrings(md["xesam:albumArtist"])),
		Genres:       variantStrings(md["xesam:genre"]),
		TrackNumber:  int(variantInt(md["xesam:trackNumber"])),
		PlaybackType: guessPlaybackType(variantString(md["xesam:url"]), artist, album),
		Thumbnail:    newArtworkRef(variantString(md["mpris:artUrl"])),
	}
}

func mprisLength(md map[string]dbus.Variant) time.Duration {
	return time.Duration(variantInt(md["mpris:length"])) * time.Microsecond
}

func variantString(v dbus.Variant) string {
	s, _ := v.Value().(string)
	return s
}

// variantStrings accepts both "as" and "s"; some players send a single artist as a string
func variantStrings(v dbus.Variant) []string {
	switch val := v.Value().(type) {
	case []string:
		return val
	case string:
		if val == "" {
			return nil
		}
		return []string{val}
	default:
		return nil
	}
}

// variantInt accepts any integer width; players disagree on mpris:length's type
func variantInt(v dbus.Variant) int64 {
	switch val := v.Value().(type) {
	case int64:
		return val
	case uint64:
		return int64(val)
	case int32:
		return int64(val)
	case uint32:
		return int64(val)
	case int16:
		return int64(val)
	case uint16:
		return int64(val)
	case byte:
		return int64(val)
	case float64:
		return int64(val)
	default:
		return 0
	}
}
