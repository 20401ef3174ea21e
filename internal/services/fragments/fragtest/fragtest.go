// Package fragtest writes synthetic raw channel inputs for tests
package fragtest

import (
	"bytes"
	"context"
	"testing"

	"ffiassembler/internal/adapters/blobstore"
	"ffiassembler/internal/core/fits"
	"ffiassembler/internal/core/focalplane"
	"ffiassembler/internal/core/product"
	"ffiassembler/internal/services/calibration/calibtest"
)

// Timestamp is the dataset timestamp inputs are written under
const Timestamp = "2009114174833"

// Input describes one raw channel input
type Input struct {
	Channel       focalplane.Channel
	Width, Height int
	StartMJD      float64
	EndMJD        float64
	LongCadence   int32
	// Declared overrides MODULE/OUTPUT in the image header when set
	Declared focalplane.Channel
	// LegacyStart writes the start time only as STARTIME in the primary header
	LegacyStart bool
}

// Default is a small input for ch inside the calibration fixture window
func Default(ch focalplane.Channel) Input {
	return Input{
		Channel:     ch,
		Width:       6,
		Height:      4,
		StartMJD:    calibtest.Window.StartMJD,
		EndMJD:      calibtest.Window.EndMJD,
		LongCadence: 1105,
	}
}

// Pixel is the raw count written at index i for ch
func Pixel(ch focalplane.Channel, i int) float32 { return float32(ch.Number()*1000 + i%97) }

// Encode renders the two-unit raw input stream
func Encode(in Input) ([]byte, error) {
	var prim fits.Header
	prim.Add("SIMPLE", fits.Bool(true), "conforms to FITS standard")
	prim.Add("BITPIX", fits.Int(8), "array data type")
	prim.Add("NAXIS", fits.Int(0), "number of array dimensions")
	prim.Add("EXTEND", fits.Bool(true), "file contains extensions")
	prim.Add("RA_PNT", fits.Float(290.6667), "[deg] pointing right ascension")
	prim.Add("DEC_PNT", fits.Float(44.5), "[deg] pointing declination")
	prim.Add("ROLL_PNT", fits.Float(110.0), "[deg] pointing roll")
	prim.Add("FINEPNT", fits.Bool(true), "fine point")
	prim.Add("CONFIGID", fits.Float(54.9), "spacecraft configuration id")
	if in.LegacyStart {
		prim.Add("STARTIME", fits.Float(in.StartMJD), "[MJD] start of observation")
	}

	decl := in.Declared
	if decl == (focalplane.Channel{}) {
		decl = in.Channel
	}
	var img fits.Header
	img.Add("XTENSION", fits.String("IMAGE"), "image extension")
	img.Add("BITPIX", fits.Int(-32), "array data type")
	img.Add("NAXIS", fits.Int(2), "number of array dimensions")
	img.Add("NAXIS1", fits.Int(int64(in.Width)), "")
	img.Add("NAXIS2", fits.Int(int64(in.Height)), "")
	img.Add("PCOUNT", fits.Int(0), "")
	img.Add("GCOUNT", fits.Int(1), "")
	img.Add("MODULE", fits.Int(int64(decl.Module)), "CCD module")
	img.Add("OUTPUT", fits.Int(int64(decl.Output)), "CCD output")
	if !in.LegacyStart {
		img.Add("MJDSTART", fits.Float(in.StartMJD), "[MJD] start of observation")
	}
	img.Add("MJDEND", fits.Float(in.EndMJD), "[MJD] end of observation")
	img.Add("LC_COUNT", fits.Int(int64(in.LongCadence)), "long cadence number")
	img.Add("MMNTMDMP", fits.Bool(false), "momentum dump")

	pix := fits.NewImage(in.Width, in.Height)
	for i := range pix.Pix {
		pix.Pix[i] = Pixel(in.Channel, i)
	}

	var buf bytes.Buffer
	for _, h := range []fits.Header{prim, img} {
		b, err := h.Encode()
		if err != nil {
			return nil, err
		}
		buf.Write(b)
	}
	buf.Write(fits.EncodeFloat32(pix))
	return buf.Bytes(), nil
}

// Put writes one raw input blob
func Put(ctx context.Context, fs *blobstore.FS, ts string, v product.Variant, in Input) error {
	b, err := Encode(in)
	if err != nil {
		return err
	}
	_, err = fs.Put(ctx, blobstore.Key{Timestamp: ts, Type: v.InputType(), Module: in.Channel.Module, Output: in.Channel.Output}, bytes.NewReader(b))
	return err
}

// PutAll writes default inputs for every channel except skip
func PutAll(t testing.TB, fs *blobstore.FS, v product.Variant, skip ...focalplane.Channel) {
	t.Helper()
	skipped := map[focalplane.Channel]bool{}
	for _, ch := range skip {
		skipped[ch] = true
	}
	for _, ch := range focalplane.All() {
		if skipped[ch] {
			continue
		}
		if err := Put(context.Background(), fs, Timestamp, v, Default(ch)); err != nil {
			t.Fatalf("put input %s: %v", ch, err)
		}
	}
}
