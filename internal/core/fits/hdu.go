package fits

import (
	"strconv"

	perr "ffiassembler/internal/platform/errors"
)

// HDU is one header and data unit sliced out of a serialized file
type HDU struct {
	Header Header
	// Data is the padded data unit
	Data []byte
	// Raw is the whole padded unit, header included
	Raw []byte
}

// intKey reads a required integer keyword
func intKey(h Header, key string) (int64, error) {
	r, ok := h.Lookup(key)
	if !ok {
		return 0, perr.WithField(perr.Malformedf("missing %s", key), key)
	}
	v, ok := r.Value.AsInt()
	if !ok {
		return 0, perr.WithField(perr.Malformedf("%s is %s, want int", key, r.Value.Kind()), key)
	}
	return v, nil
}

// dataSize computes the unpadded data length declared by a header
func dataSize(h Header) (int, error) {
	bitpix, err := intKey(h, "BITPIX")
	if err != nil {
		return 0, err
	}
	naxis, err := intKey(h, "NAXIS")
	if err != nil {
		return 0, err
	}
	if naxis == 0 {
		return 0, nil
	}
	n := int64(1)
	for i := int64(1); i <= naxis; i++ {
		ax, err := intKey(h, "NAXIS"+strconv.FormatInt(i, 10))
		if err != nil {
			return 0, err
		}
		n *= ax
	}
	pcount, gcount := int64(0), int64(1)
	if _, ok := h.Lookup("XTENSION"); ok {
		if v, ok := h.Value("PCOUNT").AsInt(); ok {
			pcount = v
		}
		if v, ok := h.Value("GCOUNT").AsInt(); ok {
			gcount = v
		}
	}
	if bitpix < 0 {
		bitpix = -bitpix
	}
	return int(bitpix / 8 * gcount * (pcount + n)), nil
}

// ReadHDUs splits a serialized file into its units
func ReadHDUs(b []byte) ([]HDU, error) {
	if !Aligned(len(b)) {
		return nil, perr.Malformedf("file length %d is not block aligned", len(b))
	}
	var out []HDU
	for off := 0; off < len(b); {
		h, hn, err := DecodeHeader(b[off:])
		if err != nil {
			return nil, perr.Annotate(err, "hdu %d", len(out))
		}
		size, err := dataSize(h)
		if err != nil {
			return nil, perr.Annotate(err, "hdu %d", len(out))
		}
		dn := PaddedLen(size)
		if off+hn+dn > len(b) {
			return nil, perr.Malformedf("hdu %d data truncated", len(out))
		}
		out = append(out, HDU{
			Header: h,
			Data:   b[off+hn : off+hn+dn],
			Raw:    b[off : off+hn+dn],
		})
		off += hn + dn
	}
	return out, nil
}

// Image decodes the data unit of an image HDU
func (u HDU) Image() (Image, error) {
	bitpix, err := intKey(u.Header, "BITPIX")
	if err != nil {
		return Image{}, err
	}
	w, err := intKey(u.Header, "NAXIS1")
	if err != nil {
		return Image{}, err
	}
	h, err := intKey(u.Header, "NAXIS2")
	if err != nil {
		return Image{}, err
	}
	bscale, bzero := 1.0, 0.0
	if v, ok := u.Header.Value("BSCALE").AsFloat(); ok {
		bscale = v
	}
	if v, ok := u.Header.Value("BZERO").AsFloat(); ok {
		bzero = v
	}
	return DecodeImage(u.Data, int(bitpix), int(w), int(h), bscale, bzero)
}

// Verify checks the unit's CHECKSUM and DATASUM cards
// Units without a CHECKSUM card are reported as not checksummed
func (u HDU) Verify() error {
	if _, ok := u.Header.Lookup("CHECKSUM"); !ok {
		return perr.WithField(perr.Integrityf("unit carries no CHECKSUM"), "CHECKSUM")
	}
	if r, ok := u.Header.Lookup("DATASUM"); ok {
		want, _ := r.Value.AsString()
		got, err := DataSum(u.Data)
		if err != nil {
			return err
		}
		if got != want {
			return perr.WithField(perr.Integrityf("DATASUM %s, computed %s", want, got), "DATASUM")
		}
	}
	sum, err := Sum32(u.Raw)
	if err != nil {
		return err
	}
	if sum != NegativeZero {
		return perr.WithField(perr.Integrityf("unit sums to %08x, want %08x", sum, NegativeZero), "CHECKSUM")
	}
	return nil
}
