package main

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// MaxThumbnailBytes is the hard ceiling on a thumbnail's declared size (512 MiB)
const MaxThumbnailBytes int64 = 512 << 20

var (
	// ErrThumbnailUnavailable covers thumbnails that could not be opened or read
	ErrThumbnailUnavailable = errors.New("thumbnail unavailable")
	// ErrThumbnailTooLarge is returned without reading when the declared size is over the limit
	ErrThumbnailTooLarge = fmt.Errorf("%w: declared size over limit", ErrThumbnailUnavailable)
	// ErrThumbnailSizeMismatch means the stream returned a different byte count than it declared
	ErrThumbnailSizeMismatch = errors.New("thumbnail size invariant violated")
)

// ThumbnailExtractor reads thumbnails into memory, bounded by a size limit
type ThumbnailExtractor struct {
	maxBytes int64
}

// NewThumbnailExtractor creates an extractor. Limits outside (0, MaxThumbnailBytes]
// fall back to MaxThumbnailBytes.
func NewThumbnailExtractor(maxBytes int64) *ThumbnailExtractor {
	if maxBytes <= 0 || maxBytes > MaxThumbnailBytes {
		maxBytes = MaxThumbnailBytes
	}
	return &ThumbnailExtractor{maxBytes: maxBytes}
}

// Extract opens ref and reads it in full. A nil ref yields nil, nil.
// Failures wrap ErrThumbnailUnavailable, except a short or long read which
// wraps ErrThumbnailSizeMismatch; in every error case the image is nil.
func (e *ThumbnailExtractor) Extract(ctx context.Context, ref ThumbnailRef) (*Image, error) {
	if ref == nil {
		return nil, nil
	}

	stream, err := ref.OpenRead(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: open: %v", ErrThumbnailUnavailable, err)
	}
	defer stream.Close()

	size := stream.Size()
	if size > e.maxBytes {
		return nil, fmt.Errorf("%w (%d > %d bytes)", ErrThumbnailTooLarge, size, e.maxBytes)
	}
	if size <= 0 {
		return nil, fmt.Errorf("%w: declared size %d", ErrThumbnailUnavailable, size)
	}

	contentType := canonicalContentType(stream.ContentType())

	data, err := stream.Read(ctx, 0, size)
	if err != nil {
		return nil, fmt.Errorf("%w: read: %v", ErrThumbnailUnavailable, err)
	}
	if int64(len(data)) != size {
		return nil, fmt.Errorf("%w: declared %d bytes, read %d", ErrThumbnailSizeMismatch, size, len(data))
	}

	return &Image{Data: data, ContentType: contentType}, nil
}

// canonicalContentType keeps the first of a comma-separated list of MIME types.
// Some containers report composite JPEG profiles as "image/jpeg,image/jpg".
func canonicalContentType(contentType string) string {
	first, _, _ := strings.Cut(contentType, ",")
	return strings.TrimSpace(first)
}
