package fits

import (
	"bytes"

	perr "ffiassembler/internal/platform/errors"
)

var endCard = fixWidth("END")

// Header is an ordered sequence of records
// Lookup is last-write-wins; serialization keeps insertion order
type Header struct {
	recs []Record
}

// NewHeader builds a header from records in order
func NewHeader(recs ...Record) Header {
	return Header{recs: append([]Record(nil), recs...)}
}

// Append adds a record at the end
func (h *Header) Append(r Record) { h.recs = append(h.recs, r) }

// Add appends a keyword with the default format
func (h *Header) Add(key string, v Value, comment string) {
	h.Append(Record{Key: key, Value: v, Comment: comment})
}

// Len returns the number of records
func (h Header) Len() int { return len(h.recs) }

// Records returns a copy of the records in order
func (h Header) Records() []Record { return append([]Record(nil), h.recs...) }

// Lookup returns the last value card with key
func (h Header) Lookup(key string) (Record, bool) {
	for i := len(h.recs) - 1; i >= 0; i-- {
		r := h.recs[i]
		if r.Key == key && !r.IsCommentary() {
			return r, true
		}
	}
	return Record{}, false
}

// Value returns the value of key or null when absent
func (h Header) Value(key string) Value {
	r, _ := h.Lookup(key)
	return r.Value
}

// Equal compares headers record by record, ignoring Format
func (h Header) Equal(o Header) bool {
	if len(h.recs) != len(o.recs) {
		return false
	}
	for i := range h.recs {
		if !h.recs[i].Equal(o.recs[i]) {
			return false
		}
	}
	return true
}

// Encode renders the header cards, the END card and blank padding to a block boundary
func (h Header) Encode() ([]byte, error) {
	var buf bytes.Buffer
	buf.Grow(PaddedLen((len(h.recs) + 1) * CardSize))
	for _, r := range h.recs {
		card, err := EncodeCard(r)
		if err != nil {
			return nil, err
		}
		buf.Write(card)
	}
	buf.Write(endCard)
	return PadBlock(buf.Bytes(), ' '), nil
}

// DecodeHeader reads cards up to END and returns the header and the number of
// bytes it occupied including padding
func DecodeHeader(b []byte) (Header, int, error) {
	var h Header
	for off := 0; off+CardSize <= len(b); off += CardSize {
		r, err := DecodeCard(b[off : off+CardSize])
		if err != nil {
			return Header{}, 0, perr.Annotate(err, "card %d", off/CardSize+1)
		}
		if r.Key == "END" && r.Value.IsNull() && r.Comment == "" {
			n := PaddedLen(off + CardSize)
			if n > len(b) {
				return Header{}, 0, perr.Malformedf("header padding truncated at %d bytes", len(b))
			}
			return h, n, nil
		}
		h.recs = append(h.recs, r)
	}
	return Header{}, 0, perr.Malformedf("no END card in %d bytes", len(b))
}
