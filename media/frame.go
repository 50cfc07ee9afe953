// Package media turns captured device output into outbound MediaChunks:
// camera and screen frames become down-scaled JPEG stills, microphone
// samples become gain-adjusted PCM16 at the session input rate.
package media

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/jpeg"

	"golang.org/x/image/draw"

	_ "image/png" // Register PNG decoder

	_ "golang.org/x/image/webp" // Register WebP decoder

	"github.com/JECH20102004/dayugame/types"
)

// MIMETypeJPEG is the MIME type of every encoded frame.
const MIMETypeJPEG = "image/jpeg"

// Frame encoding defaults.
const (
	DefaultScale   = 4
	DefaultQuality = 50
	MinQuality     = 10
	QualityDecay   = 0.9
)

// ErrEmptyFrame is returned for a nil or zero-area frame.
var ErrEmptyFrame = errors.New("empty frame")

// FrameEncoder down-scales frames by Scale in each dimension and encodes
// them as JPEG at Quality.
type FrameEncoder struct {
	Scale   int
	Quality int

	// MaxBytes caps the encoded size by lowering quality (0 = no limit).
	MaxBytes int
}

// NewFrameEncoder returns an encoder with the given scale and quality,
// substituting defaults for non-positive values.
func NewFrameEncoder(scale, quality int) *FrameEncoder {
	if scale <= 0 {
		scale = DefaultScale
	}
	if quality <= 0 || quality > 100 {
		quality = DefaultQuality
	}
	return &FrameEncoder{Scale: scale, Quality: quality}
}

// Encode down-scales and compresses img into a frame chunk.
func (e *FrameEncoder) Encode(img image.Image) (types.MediaChunk, error) {
	if img == nil || img.Bounds().Empty() {
		return types.MediaChunk{}, ErrEmptyFrame
	}
	w, h := e.targetSize(img.Bounds())
	scaled := scaleImage(img, w, h)

	data, err := e.encode(scaled)
	if err != nil {
		return types.MediaChunk{}, fmt.Errorf("encode frame: %w", err)
	}
	return types.NewFrameChunk(data, MIMETypeJPEG), nil
}

// EncodeBytes decodes an encoded image (JPEG, PNG or WebP) and re-encodes
// it as a frame chunk.
func (e *FrameEncoder) EncodeBytes(data []byte) (types.MediaChunk, error) {
	if len(data) == 0 {
		return types.MediaChunk{}, ErrEmptyFrame
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return types.MediaChunk{}, fmt.Errorf("decode frame: %w", err)
	}
	return e.Encode(img)
}

func (e *FrameEncoder) targetSize(b image.Rectangle) (w, h int) {
	scale := e.Scale
	if scale <= 0 {
		scale = DefaultScale
	}
	w, h = b.Dx()/scale, b.Dy()/scale
	return max(w, 1), max(h, 1)
}

func (e *FrameEncoder) encode(img image.Image) ([]byte, error) {
	quality := e.Quality
	if quality <= 0 {
		quality = DefaultQuality
	}
	if e.MaxBytes <= 0 {
		return encodeJPEG(img, quality)
	}
	for quality >= MinQuality {
		data, err := encodeJPEG(img, quality)
		if err != nil {
			return nil, err
		}
		if len(data) <= e.MaxBytes {
			return data, nil
		}
		quality = int(float64(quality) * QualityDecay)
	}
	return encodeJPEG(img, MinQuality)
}

// scaleImage resizes src to width x height with bilinear filtering.
func scaleImage(src image.Image, width, height int) image.Image {
	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.ApproxBiLinear.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Src, nil)
	return dst
}

func encodeJPEG(img image.Image, quality int) ([]byte, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
