package media

import (
	"bytes"
	"encoding/binary"
	"gramm/validation"
	"hash/crc32"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"strings"
	"testing"
)

func encodePNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		img.Set(x, h/2, color.NRGBA{R: 255, A: 255})
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

var processTests = []struct {
	name          string
	width, height int
	wantW, wantH  int
}{
	{"landscape", 2000, 1000, 1080, 540},
	{"portrait", 500, 1620, 333, 1080},
	{"small", 640, 480, 640, 480},
}

func TestProcessResizes(t *testing.T) {
	p := NewPreprocessor()
	for _, tt := range processTests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := p.Process(encodePNG(t, tt.width, tt.height), "image/png")
			if err != nil {
				t.Fatalf("unexpected error %v", err)
			}
			cfg, err := jpeg.DecodeConfig(bytes.NewReader(out))
			if err != nil {
				t.Fatalf("output is not a jpeg: %v", err)
			}
			if cfg.Width != tt.wantW || cfg.Height != tt.wantH {
				t.Errorf("got %dx%d, want %dx%d", cfg.Width, cfg.Height, tt.wantW, tt.wantH)
			}
		})
	}
}

func TestThumbnail(t *testing.T) {
	out, err := NewPreprocessor().Thumbnail(encodePNG(t, 1200, 600), "image/png")
	if err != nil {
		t.Fatal(err)
	}
	cfg, err := jpeg.DecodeConfig(bytes.NewReader(out))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Width != 300 || cfg.Height != 150 {
		t.Errorf("got %dx%d, want 300x150", cfg.Width, cfg.Height)
	}
}

func TestProcessChecksDimensionsBeforeDecoding(t *testing.T) {
	// A 16000x16000 header followed by a truncated body: only the header
	// may be read.
	raw := encodePNG(t, 1, 1)
	cfg, err := png.DecodeConfig(bytes.NewReader(raw))
	if err != nil || cfg.Width != 1 {
		t.Fatalf("unexpected header %v %v", cfg, err)
	}
	header := append([]byte(nil), raw[:33]...)
	header[16], header[17], header[18], header[19] = 0, 0, 0x3e, 0x80
	header[20], header[21], header[22], header[23] = 0, 0, 0x3e, 0x80
	binary.BigEndian.PutUint32(header[29:], crc32.ChecksumIEEE(header[12:29]))

	_, err = NewPreprocessor().Process(header, "image/png")
	if !validation.IsValidationError(err) {
		t.Fatalf("got %v, want validation error", err)
	}
	if !strings.Contains(err.Error(), "dimensions") {
		t.Errorf("got %q, want a dimensions error", err)
	}
}

func TestProcessRejects(t *testing.T) {
	p := NewPreprocessor()
	p.MaxSize = 1024
	p.MaxPixels = 100 * 100

	cases := map[string]struct {
		raw         []byte
		contentType string
	}{
		"unsupported type": {encodePNG(t, 10, 10), "image/gif"},
		"corrupt":          {[]byte("not an image"), "image/jpeg"},
		"mismatched type":  {encodePNG(t, 10, 10), "image/jpeg"},
		"too large":        {make([]byte, 2048), "image/png"},
		"too many pixels":  {encodePNG(t, 400, 30), "image/png"},
	}
	for name, c := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := p.Process(c.raw, c.contentType)
			if !validation.IsValidationError(err) {
				t.Errorf("got %v, want validation error", err)
			}
		})
	}
}
