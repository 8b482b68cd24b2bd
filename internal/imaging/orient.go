package imaging

import (
	"encoding/binary"
	"image"
)

// applyOrientation rotates/flips a decoded JPEG according to its EXIF
// Orientation tag. Images without the tag are returned as is.
func applyOrientation(jpegBytes []byte, img image.Image) image.Image {
	o, ok := exifOrientation(jpegBytes)
	if !ok {
		return img
	}
	switch o {
	case 2:
		return transform(img, false, flipH)
	case 3:
		return transform(img, false, rot180)
	case 4:
		return transform(img, false, flipV)
	case 5:
		return transform(img, true, transpose)
	case 6:
		return transform(img, true, rot90)
	case 7:
		return transform(img, true, transverse)
	case 8:
		return transform(img, true, rot270)
	}
	return img
}

// mapping returns the destination pixel for source (x, y) in a w×h image.
type mapping func(x, y, w, h int) (int, int)

func flipH(x, y, w, _ int) (int, int)      { return w - 1 - x, y }
func flipV(x, y, _, h int) (int, int)      { return x, h - 1 - y }
func rot180(x, y, w, h int) (int, int)     { return w - 1 - x, h - 1 - y }
func rot90(x, y, _, h int) (int, int)      { return h - 1 - y, x }
func rot270(x, y, w, _ int) (int, int)     { return y, w - 1 - x }
func transpose(x, y, _, _ int) (int, int)  { return y, x }
func transverse(x, y, w, h int) (int, int) { return h - 1 - y, w - 1 - x }

func transform(src image.Image, swap bool, m mapping) image.Image {
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	dw, dh := w, h
	if swap {
		dw, dh = h, w
	}
	dst := image.NewRGBA(image.Rect(0, 0, dw, dh))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			dx, dy := m(x, y, w, h)
			dst.Set(dx, dy, src.At(b.Min.X+x, b.Min.Y+y))
		}
	}
	return dst
}

// exifOrientation walks the JPEG markers up to SOS looking for an APP1 Exif
// segment and reads tag 0x0112 from IFD0.
func exifOrientation(b []byte) (int, bool) {
	if len(b) < 4 || b[0] != 0xFF || b[1] != 0xD8 {
		return 0, false
	}
	i := 2
	for i+4 <= len(b) {
		if b[i] != 0xFF {
			return 0, false
		}
		marker := b[i+1]
		if marker == 0xD9 || marker == 0xDA {
			return 0, false
		}
		segLen := int(b[i+2])<<8 | int(b[i+3])
		start := i + 4
		end := i + 2 + segLen
		if segLen < 2 || end > len(b) {
			return 0, false
		}
		if marker == 0xE1 {
			seg := b[start:end]
			if len(seg) >= 6 && string(seg[:6]) == "Exif\x00\x00" {
				return tiffOrientation(seg[6:])
			}
		}
		i = end
	}
	return 0, false
}

func tiffOrientation(tiff []byte) (int, bool) {
	if len(tiff) < 8 {
		return 0, false
	}
	var order binary.ByteOrder
	switch string(tiff[:2]) {
	case "II":
		order = binary.LittleEndian
	case "MM":
		order = binary.BigEndian
	default:
		return 0, false
	}
	if order.Uint16(tiff[2:4]) != 42 {
		return 0, false
	}
	ifd := int(order.Uint32(tiff[4:8]))
	if ifd < 8 || ifd+2 > len(tiff) {
		return 0, false
	}
	count := int(order.Uint16(tiff[ifd : ifd+2]))
	off := ifd + 2
	for n := 0; n < count && off+12 <= len(tiff); n++ {
		if order.Uint16(tiff[off:off+2]) == 0x0112 {
			if order.Uint16(tiff[off+2:off+4]) != 3 { // SHORT
				return 0, false
			}
			v := int(order.Uint16(tiff[off+8 : off+10]))
			if v < 1 || v > 8 {
				return 0, false
			}
			return v, true
		}
		off += 12
	}
	return 0, false
}
