/*
PURPOSE:
  Serializes a decoded image into a size-bounded base64 JPEG payload.
  Shrinks geometrically until the payload fits under the ceiling.

REQUIREMENTS:
  User-specified:
  - Ceiling of 20 MiB per image.
  - Up to 5 attempts, each shrinking both dimensions by a fixed ratio (0.9).
  - Fail with an error when no attempt fits.

  Implementation-discovered:
  - The ceiling is checked against the base64 length, which is what providers receive.
  - Re-encodes must start from source pixels, not from the lossy JPEG.

ARCHITECTURE INTEGRATION:
  - Called by: internal/imaging/image.go, internal/engine (via Image.Shrink)
  - Dependencies: golang.org/x/image/draw

ERROR HANDLING:
  - Returns *TooLargeError (wrapping ErrTooLarge) after the last attempt.

IMPLEMENTATION RULES:
  - Attempt k encodes at scale * ratio^k.
  - Dimensions never drop below 1px.

USAGE:
  enc := imaging.NewEncoder(20*config.MiB, 5)
  out, err := enc.Encode(img, 1.0, 0.9)

SELF-HEALING INSTRUCTIONS:
  - If providers start rejecting payloads below the ceiling, lower MaxBytes in config.

RELATED FILES:
  - internal/imaging/image.go

MAINTENANCE:
  - None.
*/

package imaging

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"math"

	"golang.org/x/image/draw"
)

// ErrTooLarge is returned when no encode attempt fits under the ceiling.
var ErrTooLarge = errors.New("unable to reduce image size")

// TooLargeError reports the final attempt of a failed Encode.
type TooLargeError struct {
	Attempts int
	LastSize int
	Limit    int
}

func (e *TooLargeError) Error() string {
	return fmt.Sprintf("%v within %d attempts: last payload %d bytes, limit %d", ErrTooLarge, e.Attempts, e.LastSize, e.Limit)
}

func (e *TooLargeError) Unwrap() error { return ErrTooLarge }

// Encoded is one base64 JPEG payload.
type Encoded struct {
	Data     string
	Width    int
	Height   int
	Scale    float64 // relative to the source image
	Attempts int
}

// Size returns the payload length in bytes.
func (e Encoded) Size() int { return len(e.Data) }

// Encoder turns images into base64 JPEG payloads under MaxBytes.
type Encoder struct {
	MaxBytes int
	Attempts int
	Quality  int
}

// NewEncoder creates an Encoder with JPEG quality 75.
func NewEncoder(maxBytes, attempts int) *Encoder {
	return &Encoder{
		MaxBytes: maxBytes,
		Attempts: attempts,
		Quality:  jpeg.DefaultQuality,
	}
}

// Encode tries src at scale, scale*ratio, scale*ratio^2, ... until the
// payload fits or Attempts is exhausted.
func (e *Encoder) Encode(src image.Image, scale, ratio float64) (Encoded, error) {
	src = opaque(src)
	b := src.Bounds()

	lastSize := 0
	for attempt := 0; attempt < e.Attempts; attempt++ {
		s := scale * math.Pow(ratio, float64(attempt))
		w := max(1, int(float64(b.Dx())*s))
		h := max(1, int(float64(b.Dy())*s))

		var buf bytes.Buffer
		if err := jpeg.Encode(&buf, resize(src, w, h), &jpeg.Options{Quality: e.Quality}); err != nil {
			return Encoded{}, fmt.Errorf("failed to encode jpeg: %w", err)
		}

		lastSize = base64.StdEncoding.EncodedLen(buf.Len())
		if lastSize <= e.MaxBytes {
			return Encoded{
				Data:     base64.StdEncoding.EncodeToString(buf.Bytes()),
				Width:    w,
				Height:   h,
				Scale:    s,
				Attempts: attempt + 1,
			}, nil
		}
	}
	return Encoded{}, &TooLargeError{Attempts: e.Attempts, LastSize: lastSize, Limit: e.MaxBytes}
}

func resize(src image.Image, w, h int) image.Image {
	b := src.Bounds()
	if b.Dx() == w && b.Dy() == h {
		return src
	}
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, b, draw.Src, nil)
	return dst
}
