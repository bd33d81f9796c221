package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
)

// newArtworkRef resolves an MPRIS art URL into a ThumbnailRef.
// Unsupported or empty URLs yield nil, meaning "no thumbnail".
func newArtworkRef(artURL string) ThumbnailRef {
	artURL = strings.TrimSpace(artURL)
	switch {
	case strings.HasPrefix(artURL, "file://"):
		u, err := url.Parse(artURL)
		if err != nil || u.Path == "" {
			return nil
		}
		return fileArtwork{path: u.Path}
	case strings.HasPrefix(artURL, "http://"), strings.HasPrefix(artURL, "https://"):
		return httpArtwork{url: artURL, client: http.DefaultClient}
	default:
		return nil
	}
}

// fileArtwork is artwork cached on disk by the player (file:// URLs)
type fileArtwork struct {
	path string
}

func (f fileArtwork) OpenRead(ctx context.Context) (ThumbnailStream, error) {
	file, err := os.Open(f.path)
	if err != nil {
		return nil, fmt.Errorf("failed to open artwork file: %w", err)
	}

	info, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("failed to stat artwork file: %w", err)
	}
	if !info.Mode().IsRegular() {
		file.Close()
		return nil, fmt.Errorf("artwork path is not a regular file: %s", f.path)
	}

	return &fileArtworkStream{
		file:        file,
		size:        info.Size(),
		contentType: fileContentType(file, f.path),
	}, nil
}

// fileContentType prefers the extension and falls back to sniffing the header
func fileContentType(file *os.File, path string) string {
	if ct := mime.TypeByExtension(strings.ToLower(filepath.Ext(path))); ct != "" {
		return ct
	}
	head := make([]byte, 512)
	n, _ := file.ReadAt(head, 0)
	return http.DetectContentType(head[:n])
}

type fileArtworkStream struct {
	file        *os.File
	size        int64
	contentType string
}

func (s *fileArtworkStream) Size() int64         { return s.size }
func (s *fileArtworkStream) ContentType() string { return s.contentType }
func (s *fileArtworkStream) Close() error        { return s.file.Close() }

func (s *fileArtworkStream) Read(ctx context.Context, offset, length int64) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	buf := make([]byte, length)
	n, err := s.file.ReadAt(buf, offset)
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to read artwork file: %w", err)
	}
	return buf[:n], nil
}

// httpArtwork is artwork served by a remote host (http:// and https:// URLs)
type httpArtwork struct {
	url    string
	client *http.Client
}

func (h httpArtwork) OpenRead(ctx context.Context) (ThumbnailStream, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, h.url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build artwork request: %w", err)
	}

	resp, err := h.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to download artwork: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("artwork download failed with status: %d", resp.StatusCode)
	}
	if resp.ContentLength < 0 {
		resp.Body.Close()
		return nil, errors.New("artwork response has no content length")
	}

	return &httpArtworkStream{
		body:        resp.Body,
		size:        resp.ContentLength,
		contentType: resp.Header.Get("Content-Type"),
	}, nil
}

// httpArtworkStream can only be read front to back
type httpArtworkStream struct {
	body        io.ReadCloser
	size        int64
	contentType string
	consumed    int64
}

func (s *httpArtworkStream) Size() int64         { return s.size }
func (s *httpArtworkStream) ContentType() string { return s.contentType }
func (s *httpArtworkStream) Close() error        { return s.body.Close() }

func (s *httpArtworkStream) Read(ctx context.Context, offset, length int64) ([]byte, error) {
	if offset != s.consumed {
		return nil, fmt.Errorf("non-sequential read at %d, stream is at %d", offset, s.consumed)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	buf := make([]byte, length)
	n, err := io.ReadFull(s.body, buf)
	s.consumed += int64(n)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to read artwork data: %w", err)
	}
	return buf[:n], nil
}
