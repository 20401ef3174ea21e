package headers

import (
	"ffiassembler/internal/core/fits"
	"ffiassembler/internal/core/opt"

	perr "ffiassembler/internal/platform/errors"
)

// builder appends records using the declared schema
// The first error sticks and later calls are ignored
type builder struct {
	h   fits.Header
	err error
}

func (b *builder) put(key string, v fits.Value) {
	if b.err != nil {
		return
	}
	fd, ok := lookup(key)
	if !ok {
		b.err = perr.WithField(perr.Contractf("keyword %s has no declared format", key), key)
		return
	}
	b.h.Append(fits.Record{Key: key, Value: v, Comment: fd.comment, Format: fd.format})
}

func (b *builder) str(key, s string)           { b.put(key, fits.String(s)) }
func (b *builder) integer(key string, i int64) { b.put(key, fits.Int(i)) }
func (b *builder) num(key string, x float64)   { b.put(key, fits.Float(x)) }
func (b *builder) flag(key string, v bool)     { b.put(key, fits.Bool(v)) }
func (b *builder) null(key string)             { b.put(key, fits.Null()) }

func (b *builder) optNum(key string, v opt.Value[float64]) {
	if x, ok := v.Get(); ok {
		b.num(key, x)
		return
	}
	b.null(key)
}

func (b *builder) optFlag(key string, v opt.Value[bool]) {
	if x, ok := v.Get(); ok {
		b.flag(key, x)
		return
	}
	b.null(key)
}

func (b *builder) optInt(key string, v opt.Value[int32]) {
	if x, ok := v.Get(); ok {
		b.integer(key, int64(x))
		return
	}
	b.null(key)
}

// finish appends the caller-supplied integrity records, always last
func (b *builder) finish(st Stamp) (fits.Header, error) {
	if err := st.validate(); err != nil {
		return fits.Header{}, err
	}
	b.str("DATASUM", st.DataSum)
	if b.err != nil {
		return fits.Header{}, b.err
	}
	b.h.Append(fits.Record{Key: "CHECKSUM", Value: fits.String(st.Checksum), Comment: st.comment()})
	return b.h, nil
}
