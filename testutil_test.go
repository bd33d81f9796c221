package main

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	zapobserver "go.uber.org/zap/zaptest/observer"
)

// generateTestImage creates a solid image with the given dimensions
func generateTestImage(width, height int, fillColor color.Color) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, fillColor)
		}
	}
	return img
}

// generateGradientImage creates a vertical gradient for color extraction tests
func generateGradientImage(width, height int, startColor, endColor color.RGBA) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))

	for y := 0; y < height; y++ {
		ratio := float64(y) / float64(height)
		r := uint8(float64(startColor.R)*(1-ratio) + float64(endColor.R)*ratio)
		g := uint8(float64(startColor.G)*(1-ratio) + float64(endColor.G)*ratio)
		b := uint8(float64(startColor.B)*(1-ratio) + float64(endColor.B)*ratio)

		for x := 0; x < width; x++ {
			img.Set(x, y, color.RGBA{r, g, b, 255})
		}
	}
	return img
}

// pngBytes encodes a small solid PNG
func pngBytes(t testing.TB, width, height int, fill color.Color) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, generateTestImage(width, height, fill)); err != nil {
		t.Fatalf("Failed to encode test image: %v", err)
	}
	return buf.Bytes()
}

// assertError is a test helper that checks if an error occurred and fails the test if not
func assertError(t *testing.T, err error, msg string) {
	t.Helper()
	if err == nil {
		t.Errorf("Expected error: %s, got nil", msg)
	}
}

// assertErrorIs fails unless err wraps target
func assertErrorIs(t *testing.T, err, target error) {
	t.Helper()
	if !errors.Is(err, target) {
		t.Errorf("Expected error wrapping %v, got %v", target, err)
	}
}

// assertNoError is a test helper that fails the test if an error occurred
func assertNoError(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
}

// assertEqual is a generic test helper for comparing values
func assertEqual(t *testing.T, got, want interface{}, msg string) {
	t.Helper()
	if got != want {
		t.Errorf("%s: got %v, want %v", msg, got, want)
	}
}

// isValidHexColor checks if a string is a valid hex color (e.g., "#RRGGBB")
func isValidHexColor(color string) bool {
	if len(color) != 7 || color[0] != '#' {
		return false
	}
	for i := 1; i < 7; i++ {
		c := color[i]
		if !((c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')) {
			return false
		}
	}
	return true
}

func testLogger() *zap.SugaredLogger {
	return zap.NewNop().Sugar()
}

// observedLogger records every entry at debug level and above
func observedLogger() (*zap.SugaredLogger, *zapobserver.ObservedLogs) {
	core, logs := zapobserver.New(zapcore.DebugLevel)
	return zap.New(core).Sugar(), logs
}

// fakeStream serves data from memory and counts reads
type fakeStream struct {
	data        []byte
	size        int64 // reported size; may disagree with data
	contentType string
	readErr     error
	reads       *int32
	closed      *int32
}

func (s *fakeStream) Size() int64         { return s.size }
func (s *fakeStream) ContentType() string { return s.contentType }

func (s *fakeStream) Read(ctx context.Context, offset, length int64) ([]byte, error) {
	atomic.AddInt32(s.reads, 1)
	if s.readErr != nil {
		return nil, s.readErr
	}
	if offset >= int64(len(s.data)) {
		return nil, nil
	}
	end := offset + length
	if end > int64(len(s.data)) {
		end = int64(len(s.data))
	}
	return append([]byte(nil), s.data[offset:end]...), nil
}

func (s *fakeStream) Close() error {
	atomic.AddInt32(s.closed, 1)
	return nil
}

// fakeThumbnail is a ThumbnailRef over in-memory bytes
type fakeThumbnail struct {
	data        []byte
	size        int64
	contentType string
	openErr     error
	readErr     error
	reads       int32
	closed      int32
}

func newFakeThumbnail(data []byte, contentType string) *fakeThumbnail {
	return &fakeThumbnail{data: data, size: int64(len(data)), contentType: contentType}
}

func (f *fakeThumbnail) OpenRead(ctx context.Context) (ThumbnailStream, error) {
	if f.openErr != nil {
		return nil, f.openErr
	}
	return &fakeStream{
		data:        f.data,
		size:        f.size,
		contentType: f.contentType,
		readErr:     f.readErr,
		reads:       &f.reads,
		closed:      &f.closed,
	}, nil
}

func (f *fakeThumbnail) readCount() int32 {
	return atomic.LoadInt32(&f.reads)
}

// fakeSession returns canned provider data; any *Err field makes that call fail
type fakeSession struct {
	appID        string
	props        *MediaProperties
	propsErr     error
	status       PlaybackStatusRaw
	statusErr    error
	timeline     *TimelineProperties
	timelineErr  error
	block        bool // MediaProperties waits for ctx
	hangTimeline bool // TimelineProperties waits for ctx
}

func (s *fakeSession) AppID() string { return s.appID }

func (s *fakeSession) MediaProperties(ctx context.Context) (*MediaProperties, error) {
	if s.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if s.propsErr != nil {
		return nil, s.propsErr
	}
	return s.props, nil
}

func (s *fakeSession) PlaybackInfo(ctx context.Context) (PlaybackInfo, error) {
	if s.statusErr != nil {
		return PlaybackInfo{}, s.statusErr
	}
	return PlaybackInfo{Status: s.status}, nil
}

func (s *fakeSession) TimelineProperties(ctx context.Context) (*TimelineProperties, error) {
	if s.hangTimeline {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if s.timelineErr != nil {
		return nil, s.timelineErr
	}
	return s.timeline, nil
}

func newFakeSession(appID, title string) *fakeSession {
	return &fakeSession{
		appID:  appID,
		props:  &MediaProperties{Title: title, Artist: "Artist " + title, PlaybackType: RawTypeMusic},
		status: RawStatusPlaying,
	}
}

// fakeManager returns a fixed session list
type fakeManager struct {
	sessions []Session
	err      error
	closed   int32
}

func (m *fakeManager) Sessions(ctx context.Context) ([]Session, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.sessions, nil
}

func (m *fakeManager) Close() error {
	atomic.AddInt32(&m.closed, 1)
	return nil
}

func requesterFor(m SessionManager) SessionManagerRequester {
	return func(ctx context.Context) (SessionManager, error) {
		return m, nil
	}
}

// chanSink hands each batch to the test
type chanSink struct {
	batches chan []Snapshot
	err     error
}

func newChanSink() *chanSink {
	return &chanSink{batches: make(chan []Snapshot, 16)}
}

func (s *chanSink) Publish(ctx context.Context, batch []Snapshot) error {
	if s.err != nil {
		return s.err
	}
	s.batches <- batch
	return nil
}

func (s *chanSink) next(t *testing.T) []Snapshot {
	t.Helper()
	select {
	case batch := <-s.batches:
		return batch
	case <-time.After(2 * time.Second):
		t.Fatal("Timed out waiting for a batch")
		return nil
	}
}

// recordingSink keeps every batch it receives
type recordingSink struct {
	mu      sync.Mutex
	batches [][]Snapshot
}

func (s *recordingSink) Publish(ctx context.Context, batch []Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.batches = append(s.batches, batch)
	return nil
}

func (s *recordingSink) all() [][]Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([][]Snapshot(nil), s.batches...)
}

func appIDs(batch []Snapshot) []string {
	ids := make([]string, 0, len(batch))
	for _, s := range batch {
		ids = append(ids, s.AppID)
	}
	return ids
}
