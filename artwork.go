package main

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"
	"os"
	"sort"
	"strings"

	"github.com/EdlinOrg/prominentcolor"
	"github.com/nfnt/resize"
	_ "golang.org/x/image/webp"
)

// kittyImageID is reused so each render replaces the previous artwork
const kittyImageID = 42

// decodeArtwork decodes a thumbnail's bytes (JPEG, PNG, GIF or WebP)
func decodeArtwork(data []byte) (image.Image, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("empty image data")
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}
	return img, nil
}

type colorCandidate struct {
	rgb   uint32
	score float64
}

// hsl returns lightness and saturation for 8-bit RGB
func hsl(r, g, b uint8) (lightness, saturation float64) {
	rf, gf, bf := float64(r)/255, float64(g)/255, float64(b)/255
	hi := maxf(rf, maxf(gf, bf))
	lo := minf(rf, minf(gf, bf))

	lightness = (hi + lo) / 2
	if hi == lo {
		return lightness, 0
	}
	if lightness > 0.5 {
		return lightness, (hi - lo) / (2 - hi - lo)
	}
	return lightness, (hi - lo) / (hi + lo)
}

// extractDominantColor picks a vibrant, light color that reads well on dark
// backgrounds, falling back to k-means when sampling finds nothing usable
func extractDominantColor(img image.Image) (string, error) {
	if img == nil {
		return "", fmt.Errorf("nil image")
	}

	// Sample every 5th pixel, skipping mostly transparent ones
	const step = 5
	counts := make(map[uint32]int)
	bounds := img.Bounds()
	for y := bounds.Min.Y; y < bounds.Max.Y; y += step {
		for x := bounds.Min.X; x < bounds.Max.X; x += step {
			r, g, b, a := img.At(x, y).RGBA()
			if a < 0x8000 {
				continue
			}
			counts[(r>>8)<<16|(g>>8)<<8|b>>8]++
		}
	}

	var candidates []colorCandidate
	for rgb, count := range counts {
		lightness, saturation := hsl(uint8(rgb>>16), uint8(rgb>>8), uint8(rgb))
		if lightness < 0.3 || lightness > 0.85 || saturation < 0.25 {
			continue
		}
		// Lightness above 0.7 starts to look washed out
		if lightness > 0.7 {
			lightness = 1.4 - lightness
		}
		candidates = append(candidates, colorCandidate{
			rgb:   rgb,
			score: saturation*2.5 + lightness*1.5 + float64(count)/1000,
		})
	}

	if len(candidates) == 0 {
		colors, err := prominentcolor.Kmeans(img)
		if err != nil || len(colors) == 0 {
			return "", fmt.Errorf("no suitable colors found")
		}
		c := colors[0].Color
		return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B), nil
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].score != candidates[j].score {
			return candidates[i].score > candidates[j].score
		}
		return candidates[i].rgb < candidates[j].rgb
	})
	return fmt.Sprintf("#%06x", candidates[0].rgb), nil
}

func maxf(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}

func minf(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}

// Check if terminal supports Kitty graphics protocol
func supportsKittyGraphics() bool {
	term := os.Getenv("TERM")
	termProgram := os.Getenv("TERM_PROGRAM")

	if strings.Contains(term, "kitty") || strings.Contains(term, "konsole") {
		return true
	}
	return termProgram == "ghostty" || termProgram == "WezTerm"
}

// encodeArtworkForKitty resizes img and wraps it in Kitty graphics escapes.
// Payloads over 4096 bytes are chunked as the protocol requires.
func encodeArtworkForKitty(img image.Image, cfg Config) (string, error) {
	if img == nil {
		return "", fmt.Errorf("nil image")
	}

	resized := resize.Resize(uint(cfg.Artwork.WidthPixels), 0, img, resize.Lanczos3)

	var buf bytes.Buffer
	if err := png.Encode(&buf, resized); err != nil {
		return "", fmt.Errorf("failed to encode PNG: %w", err)
	}
	encoded := base64.StdEncoding.EncodeToString(buf.Bytes())

	const chunkSize = 4096
	var result strings.Builder

	// Delete any previous placement first
	fmt.Fprintf(&result, "\033_Ga=d,d=I,i=%d\033\\", kittyImageID)

	// Columns (c) instead of pixels keep the size zoom-independent
	if len(encoded) <= chunkSize {
		fmt.Fprintf(&result, "\033_Ga=T,f=100,t=d,i=%d,c=%d,C=1;%s\033\\", kittyImageID, cfg.Artwork.WidthColumns, encoded)
		return result.String(), nil
	}

	for i := 0; i < len(encoded); i += chunkSize {
		end := i + chunkSize
		if end > len(encoded) {
			end = len(encoded)
		}
		chunk := encoded[i:end]

		switch {
		case i == 0:
			fmt.Fprintf(&result, "\033_Ga=T,f=100,t=d,i=%d,c=%d,C=1,m=1;%s\033\\", kittyImageID, cfg.Artwork.WidthColumns, chunk)
		case end == len(encoded):
			fmt.Fprintf(&result, "\033_Gm=0;%s\033\\", chunk)
		default:
			fmt.Fprintf(&result, "\033_Gm=1;%s\033\\", chunk)
		}
	}
	return result.String(), nil
}

// processArtwork decodes once and returns both the extracted color and the
// Kitty-encoded artwork
func processArtwork(data []byte, extractColor bool, cfg Config) (color string, encoded string, err error) {
	img, err := decodeArtwork(data)
	if err != nil {
		return "", "", err
	}

	if extractColor {
		if c, err := extractDominantColor(img); err == nil {
			color = c
		}
	}

	encoded, err = encodeArtworkForKitty(img, cfg)
	if err != nil {
		return color, "", err
	}
	return color, encoded, nil
}
