package main

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/bubbletea"
)

// model is the Bubble Tea model for the TUI sink. It shows one session at a
// time and interpolates the position between ticks.
type model struct {
	sessions    []Snapshot
	receivedAt  time.Time // when the current batch was published
	selected    int
	selectedKey string // keeps the selection stable when sessions come and go
	color       string
	width       int
	height      int

	// Album artwork support
	supportsKitty  bool
	artworkEncoded string // Kitty protocol-encoded artwork for display
	artworkTrackID string // track the encoded artwork belongs to
	pendingTrackID string // track whose artwork is being encoded

	// Text scrolling state
	trackID      string
	scrollOffset int // Current scroll position for text animation
	scrollPause  int // Pause counter at start/end of scroll
	scrollTick   int // Tick counter for slowing scroll speed

	showHelp bool
}

func newModel(cfg Config, supportsKitty bool) model {
	return model{
		color:         cfg.UI.Color,
		supportsKitty: supportsKitty,
	}
}

// UI refresh tick - fires every timing.ui_refresh_ms for smooth rendering
type tickMsg time.Time

// A batch published by the observer
type snapshotsMsg struct {
	batch []Snapshot
	at    time.Time
}

// Result of encoding artwork in the background
type artworkMsg struct {
	trackID string
	encoded string
	color   string
}

// TUISink forwards each batch to a running Bubble Tea program
type TUISink struct {
	program *tea.Program
}

func NewTUISink(program *tea.Program) *TUISink {
	return &TUISink{program: program}
}

// Publish blocks until the program accepts the batch or has exited
func (s *TUISink) Publish(ctx context.Context, batch []Snapshot) error {
	s.program.Send(snapshotsMsg{batch: batch, at: time.Now()})
	return nil
}

func tickCmd() tea.Cmd {
	cfg := config.Get()
	return tea.Tick(time.Duration(cfg.Timing.UIRefreshMs)*time.Millisecond, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// Encode artwork in background (doesn't block UI)
func artworkCmd(data []byte, trackID string) tea.Cmd {
	return func() (msg tea.Msg) {
		cfg := config.Get()

		// Malformed images must not take the UI down
		defer func() {
			if r := recover(); r != nil {
				msg = artworkMsg{trackID: trackID}
			}
		}()

		color, encoded, err := processArtwork(data, cfg.UI.ColorMode == "auto", cfg)
		if err != nil {
			return artworkMsg{trackID: trackID}
		}
		return artworkMsg{trackID: trackID, encoded: encoded, color: color}
	}
}

// current returns the selected session, or nil when nothing is playing
func (m model) current() *Snapshot {
	if len(m.sessions) == 0 {
		return nil
	}
	return &m.sessions[m.selected]
}

// currentPositionMs advances the snapshot's live position by the time since the
// batch arrived, while playing
func (m model) currentPositionMs() int64 {
	s := m.current()
	if s == nil || s.Timeline == nil {
		return 0
	}
	pos := s.Timeline.LivePositionMs
	if s.PlaybackStatus == StatusPlaying && !m.receivedAt.IsZero() {
		pos += time.Since(m.receivedAt).Milliseconds()
	}
	return pos
}

func (m model) artworkVisible() bool {
	return m.supportsKitty && config.Get().Artwork.Enabled
}

func (m model) Init() tea.Cmd {
	return tea.Batch(
		tickCmd(),
		watchConfigCmd(),
	)
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "tab", "right", "l":
			return m.selectSession(m.selected + 1)
		case "shift+tab", "left", "h":
			return m.selectSession(m.selected - 1)
		case "a":
			// Toggle artwork on/off
			cfg := config.Get()
			cfg.Artwork.Enabled = !cfg.Artwork.Enabled
			config.Set(cfg)
			m.artworkEncoded, m.artworkTrackID = "", ""
			cmd := m.refreshArtwork()
			return m, cmd
		case "?":
			m.showHelp = !m.showHelp
			return m, nil
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case configReloadMsg:
		cfg := config.Get()
		if cfg.UI.ColorMode == "manual" {
			m.color = cfg.UI.Color
		}
		if !cfg.Artwork.Enabled {
			m.artworkEncoded, m.artworkTrackID = "", ""
		}
		// Continue watching for more config changes
		cmd := m.refreshArtwork()
		return m, tea.Batch(watchConfigCmd(), cmd)

	case tickMsg:
		m.advanceScroll()
		return m, tickCmd()

	case snapshotsMsg:
		m.sessions = msg.batch
		m.receivedAt = msg.at
		m.selected = 0
		for i := range m.sessions {
			if sessionKey(m.sessions, i) == m.selectedKey {
				m.selected = i
				break
			}
		}
		return m.selectSession(m.selected)

	case artworkMsg:
		// Drop results for tracks we've moved away from
		if msg.trackID != m.pendingTrackID {
			return m, nil
		}
		m.pendingTrackID = ""
		m.artworkEncoded = msg.encoded
		m.artworkTrackID = msg.trackID
		if config.Get().UI.ColorMode == "auto" && msg.color != "" {
			m.color = msg.color
		}
		return m, nil
	}

	return m, nil
}

// selectSession moves the selection (wrapping around) and resets per-track state
func (m model) selectSession(i int) (tea.Model, tea.Cmd) {
	if len(m.sessions) == 0 {
		m.selected, m.trackID = 0, ""
		m.artworkEncoded, m.artworkTrackID = "", ""
		return m, nil
	}

	m.selected = (i%len(m.sessions) + len(m.sessions)) % len(m.sessions)
	current := m.sessions[m.selected]
	m.selectedKey = sessionKey(m.sessions, m.selected)

	if id := current.trackID(); id != m.trackID {
		m.trackID = id
		m.scrollOffset = 0
		m.scrollPause = 30 // Pause at start for 3 seconds
		m.scrollTick = 0
	}
	cmd := m.refreshArtwork()
	return m, cmd
}

// sessionKey identifies batch[i] by app id and its occurrence among sessions
// sharing that id, e.g. "firefox#1" for the second firefox player.
func sessionKey(batch []Snapshot, i int) string {
	n := 0
	for _, s := range batch[:i] {
		if s.AppID == batch[i].AppID {
			n++
		}
	}
	return fmt.Sprintf("%s#%d", batch[i].AppID, n)
}

// refreshArtwork starts encoding the current session's thumbnail if it changed
func (m *model) refreshArtwork() tea.Cmd {
	current := m.current()
	if current == nil || !m.artworkVisible() {
		return nil
	}
	if current.Thumbnail == nil {
		m.artworkEncoded, m.artworkTrackID = "", ""
		return nil
	}

	id := current.trackID()
	if id == m.artworkTrackID || id == m.pendingTrackID {
		return nil
	}
	m.pendingTrackID = id
	return artworkCmd(current.Thumbnail.Data, id)
}

// advanceScroll moves long text one rune every third tick, pausing at the loop point
func (m *model) advanceScroll() {
	m.scrollTick++
	if m.scrollPause > 0 {
		m.scrollPause--
		return
	}
	if m.scrollTick%3 != 0 {
		return
	}
	m.scrollOffset++

	current := m.current()
	if current == nil {
		return
	}

	longest := 0
	for _, s := range []string{current.Title, current.Artist, current.AlbumTitle} {
		if l := len([]rune(s)); l > longest {
			longest = l
		}
	}
	if longest > m.maxTextLength() && m.scrollOffset >= longest+len([]rune(scrollSeparator)) {
		m.scrollOffset = 0
		m.scrollPause = 30 // Pause for 3 seconds when looping back
	}
}

func (m model) maxTextLength() int {
	cfg := config.Get()
	if m.artworkVisible() && m.artworkEncoded != "" {
		return cfg.Text.MaxLengthWithArt
	}
	return cfg.Text.MaxLengthNoArt
}
