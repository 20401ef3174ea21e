// Package checksum seals a header and data unit in two passes: the header is
// rendered once with a placeholder CHECKSUM, summed with the data, and
// rendered again carrying the encoded complement
package checksum

import (
	"io"
	"strconv"
	"time"

	"ffiassembler/internal/core/fits"
	"ffiassembler/internal/core/headers"

	perr "ffiassembler/internal/platform/errors"
)

// Render produces the header for a stamp
// It must be pure: two calls differing only in Stamp.Checksum yield headers
// differing only in the CHECKSUM record
type Render func(headers.Stamp) (fits.Header, error)

// Unit is a sealed header and data unit
type Unit struct {
	Header fits.Header
	// HeaderBytes is the encoded, padded header
	HeaderBytes []byte
	// Data is the padded data unit, empty for header-only units
	Data  []byte
	Stamp headers.Stamp
}

// Len is the serialized size of the unit
func (u Unit) Len() int { return len(u.HeaderBytes) + len(u.Data) }

// WriteTo streams the header then the data
func (u Unit) WriteTo(w io.Writer) (int64, error) {
	n, err := w.Write(u.HeaderBytes)
	if err != nil {
		return int64(n), perr.Wrap(err, perr.ErrorCodeUnavailable, "write header")
	}
	m, err := w.Write(u.Data)
	if err != nil {
		return int64(n + m), perr.Wrap(err, perr.ErrorCodeUnavailable, "write data")
	}
	return int64(n + m), nil
}

// Draft is a unit after the first pass
type Draft struct {
	render  Render
	data    []byte
	dataSum uint32
	headSum uint32
	stamp   headers.Stamp
	header  fits.Header
	size    int
}

// Checksum is the encoded value the final pass substitutes
func (d Draft) Checksum() string { return fits.EncodeSum(^fits.AddSums(d.headSum, d.dataSum)) }

// Begin runs the first pass over render for the padded data
// generated is fixed here so both passes carry the same CHECKSUM comment
func Begin(render Render, data []byte, generated time.Time) (Draft, error) {
	if generated.IsZero() {
		return Draft{}, perr.Contractf("generation time not fixed")
	}
	dataSum, err := fits.Sum32(data)
	if err != nil {
		return Draft{}, perr.Annotate(err, "data unit")
	}
	st := headers.Placeholder(strconv.FormatUint(uint64(dataSum), 10), generated)
	h, b, err := pass(render, st)
	if err != nil {
		return Draft{}, perr.Annotate(err, "draft pass")
	}
	headSum, err := fits.Sum32(b)
	if err != nil {
		return Draft{}, err
	}
	return Draft{render: render, data: data, dataSum: dataSum, headSum: headSum, stamp: st, header: h, size: len(b)}, nil
}

// Finalize runs the second pass and checks the sealed unit
func (d Draft) Finalize() (Unit, error) {
	if d.render == nil {
		return Unit{}, perr.Contractf("finalize without a draft pass")
	}
	final := d.stamp.WithChecksum(d.Checksum())
	h, b, err := pass(d.render, final)
	if err != nil {
		return Unit{}, perr.Annotate(err, "final pass")
	}
	if err := sameButChecksum(d.header, h); err != nil {
		return Unit{}, err
	}
	if len(b) != d.size {
		return Unit{}, perr.Contractf("final header is %d bytes, draft was %d", len(b), d.size)
	}
	sealed, err := fits.Sum32(b)
	if err != nil {
		return Unit{}, err
	}
	if total := fits.AddSums(sealed, d.dataSum); total != fits.NegativeZero {
		return Unit{}, perr.Integrityf("sealed unit sums to %08x", total)
	}
	return Unit{Header: h, HeaderBytes: b, Data: d.data, Stamp: final}, nil
}

// Seal runs both passes
func Seal(render Render, data []byte, generated time.Time) (Unit, error) {
	d, err := Begin(render, data, generated)
	if err != nil {
		return Unit{}, err
	}
	return d.Finalize()
}

func pass(render Render, st headers.Stamp) (fits.Header, []byte, error) {
	h, err := render(st)
	if err != nil {
		return fits.Header{}, nil, err
	}
	b, err := h.Encode()
	if err != nil {
		return fits.Header{}, nil, err
	}
	return h, b, nil
}

// sameButChecksum enforces that the two passes agree on every other record
func sameButChecksum(a, b fits.Header) error {
	ra, rb := a.Records(), b.Records()
	if len(ra) != len(rb) {
		return perr.Contractf("passes emitted %d and %d records", len(ra), len(rb))
	}
	for i := range ra {
		if ra[i].Key != rb[i].Key {
			return perr.WithField(perr.Contractf("record %d is %s then %s", i, ra[i].Key, rb[i].Key), ra[i].Key)
		}
		if ra[i].Key == "CHECKSUM" {
			if ra[i].Comment != rb[i].Comment {
				return perr.WithField(perr.Contractf("CHECKSUM comment changed between passes"), "CHECKSUM")
			}
			continue
		}
		if !ra[i].Equal(rb[i]) {
			return perr.WithField(perr.Contractf("%s changed between passes", ra[i].Key), ra[i].Key)
		}
	}
	return nil
}
