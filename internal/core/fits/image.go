package fits

import (
	"encoding/binary"
	"math"

	perr "ffiassembler/internal/platform/errors"
)

// Image is a row-major single precision pixel grid
type Image struct {
	Width  int
	Height int
	Pix    []float32
}

// NewImage allocates a zeroed w by h image
func NewImage(w, h int) Image {
	return Image{Width: w, Height: h, Pix: make([]float32, w*h)}
}

// At returns the pixel at row r, column c
func (im Image) At(r, c int) float32 { return im.Pix[r*im.Width+c] }

// Set stores the pixel at row r, column c
func (im Image) Set(r, c int, v float32) { im.Pix[r*im.Width+c] = v }

// Valid reports whether the pixel slice matches the geometry
func (im Image) Valid() bool {
	return im.Width > 0 && im.Height > 0 && len(im.Pix) == im.Width*im.Height
}

// DataLen returns the unpadded size in bytes of a bitpix image
func DataLen(bitpix, w, h int) int {
	n := bitpix
	if n < 0 {
		n = -n
	}
	return n / 8 * w * h
}

// EncodeFloat32 writes im as big-endian IEEE floats (BITPIX -32) padded with zeros
func EncodeFloat32(im Image) []byte {
	b := make([]byte, PaddedLen(4*len(im.Pix)))
	for i, v := range im.Pix {
		binary.BigEndian.PutUint32(b[4*i:], math.Float32bits(v))
	}
	return b
}

// DecodeImage reads a w by h data unit of the given BITPIX into single precision
// Integer data has BSCALE and BZERO applied
func DecodeImage(data []byte, bitpix, w, h int, bscale, bzero float64) (Image, error) {
	need := DataLen(bitpix, w, h)
	if w <= 0 || h <= 0 {
		return Image{}, perr.Malformedf("image geometry %dx%d", w, h)
	}
	if len(data) < need {
		return Image{}, perr.Malformedf("image data %d bytes, want %d", len(data), need)
	}
	im := NewImage(w, h)
	scaled := func(x float64) float32 { return float32(x*bscale + bzero) }
	switch bitpix {
	case -32:
		for i := range im.Pix {
			im.Pix[i] = math.Float32frombits(binary.BigEndian.Uint32(data[4*i:]))
		}
	case -64:
		for i := range im.Pix {
			im.Pix[i] = float32(math.Float64frombits(binary.BigEndian.Uint64(data[8*i:])))
		}
	case 32:
		for i := range im.Pix {
			im.Pix[i] = scaled(float64(int32(binary.BigEndian.Uint32(data[4*i:]))))
		}
	case 16:
		for i := range im.Pix {
			im.Pix[i] = scaled(float64(int16(binary.BigEndian.Uint16(data[2*i:]))))
		}
	default:
		return Image{}, perr.WithField(perr.Malformedf("unsupported BITPIX %d", bitpix), "BITPIX")
	}
	return im, nil
}
