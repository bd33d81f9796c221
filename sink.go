package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"
)

// emptyMarker stands in for empty strings in text output
const emptyMarker = "<empty>"

// represent renders a possibly-empty value for humans
func represent(value string) string {
	if value == "" {
		return emptyMarker
	}
	return value
}

// TextSink prints each snapshot as a block of labelled lines
type TextSink struct {
	w io.Writer
}

func NewTextSink(w io.Writer) *TextSink {
	return &TextSink{w: w}
}

func (s *TextSink) Publish(ctx context.Context, batch []Snapshot) error {
	var b strings.Builder
	for _, snap := range batch {
		writeSnapshotText(&b, snap)
		b.WriteString("\n")
	}
	_, err := io.WriteString(s.w, b.String())
	return err
}

func writeSnapshotText(b *strings.Builder, snap Snapshot) {
	line := func(label, value string) {
		fmt.Fprintf(b, "%-8s%s\n", label+":", value)
	}

	line("player", represent(snap.AppID))
	line("title", represent(snap.Title))
	if snap.Subtitle != "" {
		line("subtitle", snap.Subtitle)
	}
	line("artist", represent(snap.Artist))
	line("album", represent(snap.AlbumTitle))
	if snap.AlbumArtist != "" && snap.AlbumArtist != snap.Artist {
		line("by", snap.AlbumArtist)
	}
	if len(snap.Genres) > 0 {
		line("genres", strings.Join(snap.Genres, ", "))
	}
	if snap.TrackNumber > 0 {
		track := fmt.Sprintf("%d", snap.TrackNumber)
		if snap.AlbumTrackCount > 0 {
			track += fmt.Sprintf("/%d", snap.AlbumTrackCount)
		}
		line("track", track)
	}
	line("type", snap.PlaybackType.String())
	line("status", snap.PlaybackStatus.String())
	if tl := snap.Timeline; tl != nil {
		line("time", fmt.Sprintf("%s / %s", formatTime(tl.LivePositionMs/1000), formatTime(tl.DurationMs()/1000)))
	}
	if img := snap.Thumbnail; img != nil {
		line("thumb", fmt.Sprintf("%s, %d bytes", represent(img.ContentType), len(img.Data)))
	}
}

// batchRecord is the serialized form of one tick
type batchRecord struct {
	Sessions []Snapshot `json:"sessions" yaml:"sessions"`
}

// JSONSink writes one JSON object per tick (newline-delimited JSON)
type JSONSink struct {
	enc *json.Encoder
}

func NewJSONSink(w io.Writer) *JSONSink {
	return &JSONSink{enc: json.NewEncoder(w)}
}

func (s *JSONSink) Publish(ctx context.Context, batch []Snapshot) error {
	return s.enc.Encode(batchRecord{Sessions: batch})
}

// YAMLSink writes one YAML document per tick
type YAMLSink struct {
	w io.Writer
}

func NewYAMLSink(w io.Writer) *YAMLSink {
	return &YAMLSink{w: w}
}

func (s *YAMLSink) Publish(ctx context.Context, batch []Snapshot) error {
	out, err := yaml.Marshal(batchRecord{Sessions: batch})
	if err != nil {
		return fmt.Errorf("marshal yaml: %w", err)
	}
	_, err = io.WriteString(s.w, "---\n"+string(out))
	return err
}
