package media

import (
	"bytes"
	"fmt"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
	"gramm/validation"
	"image"
	"image/jpeg"
	_ "image/png"
)

const (
	MaxUploadSize   = 10 * 1024 * 1024
	MaxPixels       = 50_000_000
	MaxDimension    = 1080
	ThumbnailSize   = 300
	JPEGQuality     = 85
	OutputMediaType = "image/jpeg"
)

var allowedTypes = map[string]string{
	"image/jpeg": "jpeg",
	"image/png":  "png",
	"image/webp": "webp",
}

// Preprocessor validates uploads and normalizes them to bounded JPEGs.
type Preprocessor struct {
	MaxSize      int
	MaxPixels    int
	MaxDimension int
	Quality      int
}

func NewPreprocessor() *Preprocessor {
	return &Preprocessor{
		MaxSize:      MaxUploadSize,
		MaxPixels:    MaxPixels,
		MaxDimension: MaxDimension,
		Quality:      JPEGQuality,
	}
}

// Process rejects oversized, unsupported or corrupt input and returns the
// image re-encoded as JPEG with its longer edge at most MaxDimension.
func (p *Preprocessor) Process(raw []byte, contentType string) ([]byte, error) {
	img, err := p.decode(raw, contentType)
	if err != nil {
		return nil, err
	}
	return p.encode(fit(img, p.MaxDimension, p.MaxDimension))
}

// Thumbnail scales the image to fit a ThumbnailSize square.
func (p *Preprocessor) Thumbnail(raw []byte, contentType string) ([]byte, error) {
	img, err := p.decode(raw, contentType)
	if err != nil {
		return nil, err
	}
	return p.encode(fit(img, ThumbnailSize, ThumbnailSize))
}

func (p *Preprocessor) decode(raw []byte, contentType string) (image.Image, error) {
	if len(raw) > p.MaxSize {
		return nil, validation.Errorf("image too large, maximum size is %dMB", p.MaxSize/(1024*1024))
	}
	expected, ok := allowedTypes[contentType]
	if !ok {
		return nil, validation.Errorf("invalid image type, allowed types: JPEG, PNG, WEBP")
	}
	// The header is checked before decoding so that a small, highly
	// compressed file cannot force a huge pixel buffer.
	cfg, format, err := image.DecodeConfig(bytes.NewReader(raw))
	if err != nil || format != expected {
		return nil, validation.Errorf("invalid or corrupted image file")
	}
	if cfg.Width <= 0 || cfg.Height <= 0 || cfg.Width > p.MaxPixels/cfg.Height {
		return nil, validation.Errorf("image dimensions too large, maximum is %d pixels", p.MaxPixels)
	}
	img, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, validation.Errorf("invalid or corrupted image file")
	}
	return img, nil
}

func (p *Preprocessor) encode(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: p.Quality}); err != nil {
		return nil, fmt.Errorf("encode jpeg: %w", err)
	}
	return buf.Bytes(), nil
}

// fit downsizes img to fit a maxW x maxH box keeping its aspect ratio. Smaller
// images are returned unchanged. Transparent pixels are flattened on white.
func fit(img image.Image, maxW, maxH int) image.Image {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w > maxW || h > maxH {
		if w*maxH > h*maxW {
			w, h = maxW, max(1, h*maxW/w)
		} else {
			w, h = max(1, w*maxH/h), maxH
		}
	}
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(dst, dst.Bounds(), image.White, image.Point{}, draw.Src)
	if w == bounds.Dx() && h == bounds.Dy() {
		draw.Draw(dst, dst.Bounds(), img, bounds.Min, draw.Over)
		return dst
	}
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, draw.Over, nil)
	return dst
}
