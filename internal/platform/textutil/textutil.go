// Package textutil folds arbitrary text into the printable ASCII subset
// header cards are allowed to carry
// Pipeline order
// 1 UTF-8 repair drop invalid bytes
// 2 NFKD decomposition so accents split from their base letters
// 3 Remove combining marks and format characters
// 4 Width fold fullwidth forms to ASCII
// 5 Replace anything still outside 0x20-0x7E with '?'
package textutil

import (
	"strings"
	"sync"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
	"golang.org/x/text/width"
)

var chainPool = sync.Pool{
	New: func() any {
		return transform.Chain(
			norm.NFKD,
			runes.Remove(runes.In(unicode.Mn)),
			runes.Remove(runes.In(unicode.Cf)),
			width.Fold,
			norm.NFC,
		)
	},
}

// IsPrintableASCII reports whether every byte of s is in 0x20-0x7E
func IsPrintableASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < 0x20 || s[i] > 0x7e {
			return false
		}
	}
	return true
}

// ASCII returns s folded to printable ASCII
func ASCII(s string) string {
	if IsPrintableASCII(s) {
		return s
	}
	s = strings.ToValidUTF8(s, "")

	tr := chainPool.Get().(transform.Transformer)
	folded, _, err := transform.String(tr, s)
	tr.Reset()
	chainPool.Put(tr)
	if err != nil {
		folded = s
	}

	var b strings.Builder
	b.Grow(len(folded))
	for _, r := range folded {
		switch {
		case r == '\t' || r == '\n' || r == '\r':
			b.WriteByte(' ')
		case r >= 0x20 && r <= 0x7e:
			b.WriteRune(r)
		default:
			b.WriteByte('?')
		}
	}
	return b.String()
}
