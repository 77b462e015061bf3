package imaging

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"testing"

	"ipmint/go-registrar/pkg/models"
)

func encodePNG(t *testing.T, w, h int) []byte {
	t.Helper()
	canvas := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			canvas.Set(x, y, color.RGBA{R: uint8(x % 256), G: uint8(y % 256), B: 40, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, canvas); err != nil {
		t.Fatalf("encode fixture: %v", err)
	}
	return buf.Bytes()
}

func TestCompressBoundsLargeImage(t *testing.T) {
	c := NewCompressor(64, 80)
	out, err := c.Compress(context.Background(), models.MediaFile{
		Name:     "big.png",
		MimeType: "image/png",
		Data:     encodePNG(t, 200, 100),
	})
	if err != nil {
		t.Fatalf("compress failed: %v", err)
	}
	cfg, err := png.Decode(bytes.NewReader(out.Data))
	if err != nil {
		t.Fatalf("decode output: %v", err)
	}
	b := cfg.Bounds()
	if b.Dx() > 64 || b.Dy() > 64 {
		t.Fatalf("output not bounded: %dx%d", b.Dx(), b.Dy())
	}
	if out.MimeType != "image/png" {
		t.Fatalf("png should stay png, got %s", out.MimeType)
	}
}

func TestCompressDoesNotUpscale(t *testing.T) {
	c := NewCompressor(512, 80)
	out, err := c.Compress(context.Background(), models.MediaFile{
		Name:     "small.png",
		MimeType: "image/png",
		Data:     encodePNG(t, 32, 16),
	})
	if err != nil {
		t.Fatalf("compress failed: %v", err)
	}
	cfg, err := png.Decode(bytes.NewReader(out.Data))
	if err != nil {
		t.Fatalf("decode output: %v", err)
	}
	if cfg.Bounds().Dx() != 32 || cfg.Bounds().Dy() != 16 {
		t.Fatalf("image was resized: %v", cfg.Bounds())
	}
}

func TestCompressReencodesToJPEG(t *testing.T) {
	c := NewCompressor(64, 70)
	out, err := c.Compress(context.Background(), models.MediaFile{
		Name:     "photo.heic",
		MimeType: "image/heic",
		Data:     encodePNG(t, 100, 100),
	})
	if err != nil {
		t.Fatalf("compress failed: %v", err)
	}
	if out.MimeType != "image/jpeg" || out.Name != "photo.jpg" {
		t.Fatalf("expected jpeg output, got %s %s", out.MimeType, out.Name)
	}
	if _, err := jpeg.Decode(bytes.NewReader(out.Data)); err != nil {
		t.Fatalf("output is not valid jpeg: %v", err)
	}
}

func TestCompressRejectsGarbage(t *testing.T) {
	c := NewCompressor(64, 80)
	if _, err := c.Compress(context.Background(), models.MediaFile{Name: "x", Data: []byte("not an image")}); err == nil {
		t.Fatal("expected decode error")
	}
	if _, err := c.Compress(context.Background(), models.MediaFile{Name: "x"}); err == nil {
		t.Fatal("expected empty payload error")
	}
}
