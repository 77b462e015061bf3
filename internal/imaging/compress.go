// Package imaging re-encodes media payloads before upload: oversized images
// are bounded to a maximum dimension and recompressed so registrations do not
// push full camera originals through the pinning node.
package imaging

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"strings"

	img "github.com/disintegration/imaging"

	"ipmint/go-registrar/pkg/models"
)

const (
	DefaultMaxDimension = 2048
	DefaultJPEGQuality  = 82
)

type Compressor struct {
	MaxDimension int
	JPEGQuality  int
}

func NewCompressor(maxDimension, jpegQuality int) *Compressor {
	if maxDimension <= 0 {
		maxDimension = DefaultMaxDimension
	}
	if jpegQuality <= 0 || jpegQuality > 100 {
		jpegQuality = DefaultJPEGQuality
	}
	return &Compressor{MaxDimension: maxDimension, JPEGQuality: jpegQuality}
}

// Compress decodes, bounds, and re-encodes the file. PNG stays PNG so alpha
// survives; everything else comes back as JPEG. Images already inside the
// bound are not upscaled.
func (c *Compressor) Compress(ctx context.Context, file models.MediaFile) (models.MediaFile, error) {
	if err := ctx.Err(); err != nil {
		return models.MediaFile{}, err
	}
	if len(file.Data) == 0 {
		return models.MediaFile{}, fmt.Errorf("imaging: empty media payload")
	}

	decoded, err := img.Decode(bytes.NewReader(file.Data), img.AutoOrientation(true))
	if err != nil {
		return models.MediaFile{}, fmt.Errorf("imaging: decode %s: %w", file.Name, err)
	}

	bounds := decoded.Bounds()
	if bounds.Dx() > c.MaxDimension || bounds.Dy() > c.MaxDimension {
		decoded = img.Fit(decoded, c.MaxDimension, c.MaxDimension, img.Lanczos)
	}

	keepPNG := strings.Contains(strings.ToLower(file.MimeType), "png")
	var buf bytes.Buffer
	if keepPNG {
		err = img.Encode(&buf, decoded, img.PNG)
	} else {
		err = img.Encode(&buf, decoded, img.JPEG, img.JPEGQuality(c.JPEGQuality))
	}
	if err != nil {
		return models.MediaFile{}, fmt.Errorf("imaging: encode %s: %w", file.Name, err)
	}

	out := models.MediaFile{Data: buf.Bytes()}
	if keepPNG {
		out.Name = withExt(file.Name, ".png")
		out.MimeType = "image/png"
	} else {
		out.Name = withExt(file.Name, ".jpg")
		out.MimeType = "image/jpeg"
	}
	return out, nil
}

func withExt(name, ext string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return "media" + ext
	}
	return strings.TrimSuffix(name, path.Ext(name)) + ext
}
