package imaging

import (
	"bytes"
	"encoding/base64"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"math/rand"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// noisyImage creates an image that compresses poorly, so its JPEG size tracks its area.
func noisyImage(width, height int) *image.RGBA {
	rng := rand.New(rand.NewSource(42))
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, color.RGBA{
				R: uint8(rng.Intn(256)),
				G: uint8(rng.Intn(256)),
				B: uint8(rng.Intn(256)),
				A: 255,
			})
		}
	}
	return img
}

func writePNG(t *testing.T, dir, name string, img image.Image) string {
	t.Helper()
	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, png.Encode(f, img))
	return path
}

func decode(t *testing.T, payload string) image.Image {
	t.Helper()
	raw, err := base64.StdEncoding.DecodeString(payload)
	require.NoError(t, err)
	img, format, err := image.Decode(bytes.NewReader(raw))
	require.NoError(t, err)
	require.Equal(t, "jpeg", format)
	return img
}

func TestEncodeFitsOnFirstAttempt(t *testing.T) {
	enc := NewEncoder(20*1024*1024, 5)

	out, err := enc.Encode(noisyImage(200, 160), 1, 0.9)
	require.NoError(t, err)

	assert.Equal(t, 1, out.Attempts)
	assert.Equal(t, 200, out.Width)
	assert.Equal(t, 160, out.Height)
	assert.LessOrEqual(t, out.Size(), enc.MaxBytes)

	img := decode(t, out.Data)
	assert.Equal(t, image.Rect(0, 0, 200, 160), img.Bounds())
}

func TestEncodeShrinksUntilUnderCeiling(t *testing.T) {
	src := noisyImage(300, 300)

	full, err := NewEncoder(1<<30, 5).Encode(src, 1, 0.9)
	require.NoError(t, err)

	enc := NewEncoder(full.Size()-1, 5)
	out, err := enc.Encode(src, 1, 0.9)
	require.NoError(t, err)

	assert.GreaterOrEqual(t, out.Attempts, 2)
	assert.LessOrEqual(t, out.Size(), enc.MaxBytes)
	assert.Less(t, out.Width, 300)
	assert.Less(t, out.Height, 300)
}

func TestEncodeFailsAfterAllAttempts(t *testing.T) {
	enc := NewEncoder(10, 5)

	_, err := enc.Encode(noisyImage(64, 64), 1, 0.9)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTooLarge)

	var tooLarge *TooLargeError
	require.ErrorAs(t, err, &tooLarge)
	assert.Equal(t, 5, tooLarge.Attempts)
	assert.Equal(t, 10, tooLarge.Limit)
	assert.Greater(t, tooLarge.LastSize, 10)
}

func TestEncodeDropsAlpha(t *testing.T) {
	src := image.NewNRGBA(image.Rect(0, 0, 40, 40))
	for y := 0; y < 40; y++ {
		for x := 0; x < 40; x++ {
			src.Set(x, y, color.NRGBA{R: 200, G: 30, B: 30, A: 60})
		}
	}

	out, err := NewEncoder(1<<20, 5).Encode(src, 1, 0.9)
	require.NoError(t, err)

	r, g, b, _ := decode(t, out.Data).At(20, 20).RGBA()
	// colour channels survive (not premultiplied towards black)
	assert.InDelta(t, 200, r>>8, 12)
	assert.InDelta(t, 30, g>>8, 12)
	assert.InDelta(t, 30, b>>8, 12)
}

func TestLoadFiltersSmallImages(t *testing.T) {
	dir := t.TempDir()
	enc := NewEncoder(1<<20, 5)

	tests := []struct {
		name          string
		width, height int
		keep          bool
	}{
		{"both sides at floor", 150, 150, false},
		{"narrow", 150, 400, false},
		{"short", 400, 150, false},
		{"just above floor", 151, 151, true},
		{"large", 400, 300, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writePNG(t, dir, tt.name+".png", noisyImage(tt.width, tt.height))

			img, ok, err := Load(path, 150, enc, 0.9)
			require.NoError(t, err)
			assert.Equal(t, tt.keep, ok)
			if tt.keep {
				require.NotNil(t, img)
				assert.NotEmpty(t, img.Base64())
			} else {
				assert.Nil(t, img)
			}
		})
	}
}

func TestLoadAllDropsFilteredImages(t *testing.T) {
	dir := t.TempDir()
	small := writePNG(t, dir, "small.png", noisyImage(100, 100))
	big := writePNG(t, dir, "big.png", noisyImage(200, 200))

	imgs, err := LoadAll([]string{small, big}, 150, NewEncoder(1<<20, 5), 0.9)
	require.NoError(t, err)
	require.Len(t, imgs, 1)
	assert.Equal(t, big, imgs[0].Path)
	assert.Len(t, Payloads(imgs), 1)
}

func TestLoadMissingFile(t *testing.T) {
	_, _, err := Load(filepath.Join(t.TempDir(), "nope.png"), 150, NewEncoder(1<<20, 5), 0.9)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestShrinkReducesScale(t *testing.T) {
	img, err := New("mem", noisyImage(200, 100), NewEncoder(1<<20, 5), 0.9)
	require.NoError(t, err)
	before := img.Current()

	require.NoError(t, img.Shrink(0.7))
	after := img.Current()

	assert.InDelta(t, before.Scale*0.7, after.Scale, 1e-9)
	assert.Equal(t, 140, after.Width)
	assert.Equal(t, 70, after.Height)
	assert.Less(t, after.Size(), before.Size())
}

func TestShrinkKeepsPayloadOnFailure(t *testing.T) {
	enc := NewEncoder(1<<20, 5)
	img, err := New("mem", noisyImage(80, 80), enc, 0.9)
	require.NoError(t, err)
	before := img.Base64()

	enc.MaxBytes = 1
	assert.ErrorIs(t, img.Shrink(0.9), ErrTooLarge)
	assert.Equal(t, before, img.Base64())
}

func TestOrient(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 3, 2))
	marker := color.RGBA{R: 255, A: 255}
	src.Set(0, 0, marker)

	rot := orient(src, 6)
	assert.Equal(t, image.Rect(0, 0, 2, 3), rot.Bounds())
	assert.Equal(t, marker, rot.At(1, 0))

	assert.Same(t, image.Image(src), orient(src, 1))
}

func TestOrientationDefaultsForPNG(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, noisyImage(4, 4)))
	assert.Equal(t, 1, orientation(buf.Bytes()))

	buf.Reset()
	require.NoError(t, jpeg.Encode(&buf, noisyImage(4, 4), nil))
	assert.Equal(t, 1, orientation(buf.Bytes()))
}
