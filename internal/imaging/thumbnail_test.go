package imaging

import (
	"bytes"
	"encoding/binary"
	"hash/crc32"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/EgorLis/event-gallery/internal/domain"
)

func encodeJPEG(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, image.NewRGBA(image.Rect(0, 0, w, h)), nil))
	return buf.Bytes()
}

func decode(t *testing.T, b []byte) (image.Image, string) {
	t.Helper()
	img, format, err := image.Decode(bytes.NewReader(b))
	require.NoError(t, err)
	return img, format
}

func TestThumbnailBoundsLargeImage(t *testing.T) {
	out, err := Thumbnail(encodeJPEG(t, 4000, 3000), DefaultOptions())
	require.NoError(t, err)

	img, format := decode(t, out)
	assert.Equal(t, "jpeg", format)
	b := img.Bounds()
	assert.Equal(t, 800, b.Dx())
	assert.InDelta(t, 600, b.Dy(), 1)
}

func TestThumbnailPortrait(t *testing.T) {
	out, err := Thumbnail(encodeJPEG(t, 300, 1200), Options{MaxWidth: 100, MaxHeight: 100})
	require.NoError(t, err)

	img, _ := decode(t, out)
	assert.Equal(t, 100, img.Bounds().Dy())
	assert.InDelta(t, 25, img.Bounds().Dx(), 1)
}

func TestThumbnailDoesNotUpscale(t *testing.T) {
	out, err := Thumbnail(encodeJPEG(t, 120, 80), DefaultOptions())
	require.NoError(t, err)

	img, _ := decode(t, out)
	assert.Equal(t, 120, img.Bounds().Dx())
	assert.Equal(t, 80, img.Bounds().Dy())
}

func TestThumbnailFlattensAlpha(t *testing.T) {
	src := image.NewNRGBA(image.Rect(0, 0, 16, 16)) // fully transparent
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, src))

	out, err := Thumbnail(buf.Bytes(), DefaultOptions())
	require.NoError(t, err)

	img, format := decode(t, out)
	assert.Equal(t, "jpeg", format)
	r, g, bl, a := img.At(8, 8).RGBA()
	assert.Equal(t, uint32(0xffff), a)
	assert.Greater(t, r, uint32(0xf000))
	assert.Greater(t, g, uint32(0xf000))
	assert.Greater(t, bl, uint32(0xf000))
}

func TestThumbnailRejectsGarbage(t *testing.T) {
	_, err := Thumbnail([]byte("definitely not an image"), DefaultOptions())
	require.ErrorIs(t, err, domain.ErrDecode)

	truncated := encodeJPEG(t, 64, 64)[:20]
	_, err = Thumbnail(truncated, DefaultOptions())
	require.ErrorIs(t, err, domain.ErrDecode)
}

// withHeaderSize rewrites the IHDR dimensions of a PNG and fixes its CRC.
func withHeaderSize(t *testing.T, src []byte, w, h uint32) []byte {
	t.Helper()
	require.Equal(t, "IHDR", string(src[12:16]))
	out := append([]byte{}, src...)
	binary.BigEndian.PutUint32(out[16:20], w)
	binary.BigEndian.PutUint32(out[20:24], h)
	binary.BigEndian.PutUint32(out[29:33], crc32.ChecksumIEEE(out[12:29]))
	return out
}

func TestThumbnailRejectsOversizedHeader(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewNRGBA(image.Rect(0, 0, 2, 2))))
	huge := withHeaderSize(t, buf.Bytes(), 30000, 30000)

	_, err := Thumbnail(huge, DefaultOptions())
	require.ErrorIs(t, err, domain.ErrDecode)
	assert.Contains(t, err.Error(), "30000x30000")

	// the cap is configurable
	_, err = Thumbnail(encodeJPEG(t, 100, 100), Options{MaxPixels: 5000})
	require.ErrorIs(t, err, domain.ErrDecode)
	_, err = Thumbnail(encodeJPEG(t, 50, 100), Options{MaxPixels: 5000})
	require.NoError(t, err)
}

// withOrientation splices a minimal big-endian Exif APP1 segment after SOI.
func withOrientation(jpg []byte, o byte) []byte {
	tiff := []byte{
		'M', 'M', 0x00, 0x2A, 0x00, 0x00, 0x00, 0x08,
		0x00, 0x01, // one entry
		0x01, 0x12, 0x00, 0x03, 0x00, 0x00, 0x00, 0x01, 0x00, o, 0x00, 0x00,
		0x00, 0x00, 0x00, 0x00,
	}
	payload := append([]byte("Exif\x00\x00"), tiff...)
	segLen := len(payload) + 2
	app1 := append([]byte{0xFF, 0xE1, byte(segLen >> 8), byte(segLen)}, payload...)

	out := append([]byte{}, jpg[:2]...)
	out = append(out, app1...)
	return append(out, jpg[2:]...)
}

func TestThumbnailAppliesExifOrientation(t *testing.T) {
	src := withOrientation(encodeJPEG(t, 40, 20), 6)

	o, ok := exifOrientation(src)
	require.True(t, ok)
	assert.Equal(t, 6, o)

	out, err := Thumbnail(src, DefaultOptions())
	require.NoError(t, err)
	img, _ := decode(t, out)
	assert.Equal(t, 20, img.Bounds().Dx())
	assert.Equal(t, 40, img.Bounds().Dy())
}

func TestTransformMappings(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 3, 2))
	marker := color.RGBA{R: 255, A: 255}
	src.Set(0, 0, marker) // top-left

	cases := []struct {
		orient int
		x, y   int
	}{
		{2, 2, 0}, {3, 2, 1}, {4, 0, 1},
		{5, 0, 0}, {6, 1, 0}, {7, 1, 2}, {8, 0, 2},
	}
	for _, c := range cases {
		jpg := withOrientation(encodeJPEG(t, 1, 1), byte(c.orient))
		out := applyOrientation(jpg, src)
		assert.Equal(t, marker, out.At(c.x, c.y), "orientation %d", c.orient)
	}
}
