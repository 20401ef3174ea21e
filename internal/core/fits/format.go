package fits

import (
	"fmt"
	"strconv"
	"strings"
)

// valueWidth is the fixed-format width of a non-string value (columns 11-30)
const valueWidth = 20

// Format is the declared output format of a floating point keyword
// The zero value is the shortest representation that round-trips
type Format struct {
	verb byte
	prec int
}

// Default formats floats with the shortest round-tripping representation
var Default = Format{}

// Fixed formats with prec digits after the decimal point (FITS Fw.d)
func Fixed(prec int) Format { return Format{verb: 'F', prec: prec} }

// Exp formats in exponent notation with prec mantissa digits (FITS Ew.d)
func Exp(prec int) Format { return Format{verb: 'E', prec: prec} }

// IsDefault reports whether f is the shortest representation
func (f Format) IsDefault() bool { return f.verb == 0 }

func (f Format) String() string {
	if f.verb == 0 {
		return "G"
	}
	return fmt.Sprintf("%c20.%d", f.verb, f.prec)
}

// FormatFloat renders x under f, always marking the result as real
// Results wider than the value field fall back to exponent notation
func (f Format) FormatFloat(x float64) string {
	var s string
	switch f.verb {
	case 'F':
		s = strconv.FormatFloat(x, 'f', f.prec, 64)
	case 'E':
		s = strconv.FormatFloat(x, 'E', f.prec, 64)
	default:
		s = strconv.FormatFloat(x, 'G', -1, 64)
	}
	if len(s) > valueWidth {
		s = strconv.FormatFloat(x, 'E', 12, 64)
	}
	if !strings.ContainsAny(s, ".E") {
		s += ".0"
	}
	return s
}
