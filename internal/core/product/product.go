// Package product names the FFI data products: missions, image variants,
// timestamps and the blob types they are stored under
package product

import (
	"regexp"
	"strings"
	"time"

	perr "ffiassembler/internal/platform/errors"
)

// Mission selects header naming conventions
type Mission string

const (
	Kepler Mission = "kepler"
	K2     Mission = "k2"
)

// ParseMission accepts kepler or k2 in any case
func ParseMission(s string) (Mission, error) {
	switch m := Mission(strings.ToLower(strings.TrimSpace(s))); m {
	case Kepler, K2:
		return m, nil
	}
	return "", perr.WithField(perr.InvalidArgf("unknown mission %q", s), "mission")
}

// DatasetPrefix is the leading part of dataset and file names
func (m Mission) DatasetPrefix() string {
	if m == K2 {
		return "ktwo"
	}
	return "kplr"
}

// Object is the OBJECT value of an FFI
func (m Mission) Object() string {
	if m == K2 {
		return "K2 FFI"
	}
	return "Kepler FFI"
}

// Variant is one image product derived from the same exposure
type Variant string

const (
	// Calibrated is the flux image
	Calibrated Variant = "cal"
	// Uncertainty is the per-pixel flux uncertainty image
	Uncertainty Variant = "uncert"
)

// Variants lists every known variant in output order
var Variants = []Variant{Calibrated, Uncertainty}

// ParseVariant accepts a known variant name
func ParseVariant(s string) (Variant, error) {
	switch v := Variant(strings.ToLower(strings.TrimSpace(s))); v {
	case Calibrated, Uncertainty:
		return v, nil
	}
	return "", perr.WithField(perr.InvalidArgf("unknown image variant %q", s), "variant")
}

// ParseVariants parses a comma separated list; empty means all
func ParseVariants(s string) ([]Variant, error) {
	if strings.TrimSpace(s) == "" {
		return append([]Variant(nil), Variants...), nil
	}
	var out []Variant
	seen := map[Variant]bool{}
	for _, part := range strings.Split(s, ",") {
		v, err := ParseVariant(part)
		if err != nil {
			return nil, err
		}
		if !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	return out, nil
}

// InputType is the blob type of a channel's calibrated input image
func (v Variant) InputType() string { return string(v) }

// FragmentType is the blob type of a finalized channel fragment
func (v Variant) FragmentType() string { return "ffi-fragment-" + string(v) }

// FileType is the blob type of the assembled file
func (v Variant) FileType() string { return "ffi-" + string(v) }

// timestampPattern is yyyydddhhmmss
var timestampPattern = regexp.MustCompile(`^[0-9]{13}$`)

// ValidateTimestamp checks an FFI timestamp of the form yyyydddhhmmss
func ValidateTimestamp(ts string) error {
	if !timestampPattern.MatchString(ts) {
		return perr.WithField(perr.InvalidArgf("timestamp %q is not yyyydddhhmmss", ts), "timestamp")
	}
	if _, err := time.Parse("2006002150405", ts); err != nil {
		return perr.WithField(perr.InvalidArgf("timestamp %q: %v", ts, err), "timestamp")
	}
	return nil
}

// DatasetName is the DATSETNM of an FFI
func DatasetName(m Mission, ts string) string { return m.DatasetPrefix() + ts }

// FileName is the archive file name of an assembled FFI
func FileName(m Mission, ts string, v Variant) string {
	return DatasetName(m, ts) + "_ffi-" + string(v) + ".fits"
}
