/*
PURPOSE:
  Loads case images from disk and keeps each one ready to send.
  Holds the decoded source pixels next to the current JPEG payload.

REQUIREMENTS:
  User-specified:
  - Images with a side of 150px or less are never sent.
  - A shrink re-encodes the image smaller before the next attempt.

  Implementation-discovered:
  - Phone JPEGs carry EXIF orientation; pixels are rotated before encoding.
  - Shrinking from the lossy JPEG compounds artefacts, so source pixels are kept.

ARCHITECTURE INTEGRATION:
  - Called by: internal/engine (runner and request loop)
  - Dependencies: github.com/rwcarlsen/goexif, internal/imaging/encode.go

ERROR HANDLING:
  - Read and decode failures are returned; filtered images are not errors.
  - A failed Shrink keeps the previous payload.

IMPLEMENTATION RULES:
  - LoadAll preserves input order.

USAGE:
  imgs, err := imaging.LoadAll(paths, 150, enc, 0.9)

SELF-HEALING INSTRUCTIONS:
  - If rotated images look wrong, check orient() against the EXIF table.

RELATED FILES:
  - internal/imaging/encode.go

MAINTENANCE:
  - Register extra decoders with blank imports.
*/

package imaging

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"

	"github.com/rwcarlsen/goexif/exif"
)

// Image is a decoded source image plus its current encoded payload.
// Source pixels are kept so every shrink re-encodes from the original.
type Image struct {
	Path    string
	src     image.Image
	enc     *Encoder
	ratio   float64
	current Encoded
}

// Load decodes path, corrects EXIF orientation and encodes it at full scale.
// Images whose width or height is <= minSide are excluded: Load returns
// (nil, false, nil) for them and never encodes them.
func Load(path string, minSide int, enc *Encoder, ratio float64) (*Image, bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, false, err
	}
	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, false, fmt.Errorf("failed to decode image %s: %w", path, err)
	}
	src = orient(src, orientation(data))

	b := src.Bounds()
	if b.Dx() <= minSide || b.Dy() <= minSide {
		return nil, false, nil
	}

	img, err := New(path, src, enc, ratio)
	if err != nil {
		return nil, false, err
	}
	return img, true, nil
}

// LoadAll loads every path, silently dropping images below the resolution floor.
func LoadAll(paths []string, minSide int, enc *Encoder, ratio float64) ([]*Image, error) {
	var out []*Image
	for _, p := range paths {
		img, ok, err := Load(p, minSide, enc, ratio)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, img)
		}
	}
	return out, nil
}

// New wraps an already decoded image and encodes it at full scale.
func New(path string, src image.Image, enc *Encoder, ratio float64) (*Image, error) {
	img := &Image{Path: path, src: src, enc: enc, ratio: ratio}
	cur, err := enc.Encode(src, 1, ratio)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	img.current = cur
	return img, nil
}

// Base64 returns the current JPEG payload.
func (i *Image) Base64() string { return i.current.Data }

// Current returns the current payload and its geometry.
func (i *Image) Current() Encoded { return i.current }

// Shrink re-encodes the image at the current scale times ratio.
// On failure the previous payload is kept.
func (i *Image) Shrink(ratio float64) error {
	next, err := i.enc.Encode(i.src, i.current.Scale*ratio, i.ratio)
	if err != nil {
		return err
	}
	i.current = next
	return nil
}

// Payloads returns the base64 payloads of imgs in order.
func Payloads(imgs []*Image) []string {
	out := make([]string, len(imgs))
	for n, img := range imgs {
		out[n] = img.Base64()
	}
	return out
}

// opaque drops the alpha channel, keeping colour values as they are.
func opaque(img image.Image) image.Image {
	if o, ok := img.(interface{ Opaque() bool }); ok && o.Opaque() {
		return img
	}
	b := img.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			c := color.NRGBAModel.Convert(img.At(x, y)).(color.NRGBA)
			dst.SetRGBA(x-b.Min.X, y-b.Min.Y, color.RGBA{R: c.R, G: c.G, B: c.B, A: 0xff})
		}
	}
	return dst
}

// orientation extracts the EXIF orientation tag, 1 if absent.
func orientation(data []byte) int {
	x, err := exif.Decode(bytes.NewReader(data))
	if err != nil {
		return 1
	}
	tag, err := x.Get(exif.Orientation)
	if err != nil {
		return 1
	}
	v, err := tag.Int(0)
	if err != nil {
		return 1
	}
	return v
}

// orient applies an EXIF orientation (2..8) to img.
func orient(img image.Image, o int) image.Image {
	if o < 2 || o > 8 {
		return img
	}
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()

	dw, dh := w, h
	if o >= 5 {
		dw, dh = h, w
	}
	dst := image.NewRGBA(image.Rect(0, 0, dw, dh))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			var dx, dy int
			switch o {
			case 2: // flip horizontal
				dx, dy = w-1-x, y
			case 3: // rotate 180
				dx, dy = w-1-x, h-1-y
			case 4: // flip vertical
				dx, dy = x, h-1-y
			case 5: // transpose
				dx, dy = y, x
			case 6: // rotate 90 clockwise
				dx, dy = h-1-y, x
			case 7: // transverse
				dx, dy = h-1-y, w-1-x
			case 8: // rotate 90 counter-clockwise
				dx, dy = y, w-1-x
			}
			dst.Set(dx, dy, img.At(b.Min.X+x, b.Min.Y+y))
		}
	}
	return dst
}
