// Package input decodes the raw per-channel input stream: a header-only
// primary unit followed by the image unit
package input

import (
	"ffiassembler/internal/core/fits"
	"ffiassembler/internal/core/reconcile"

	perr "ffiassembler/internal/platform/errors"
)

// Raw is a decoded channel input
type Raw struct {
	Sources reconcile.Sources
	Image   fits.Image
}

// Decode reads the primary and image units of b
// Units past the second are ignored
func Decode(b []byte) (Raw, error) {
	units, err := fits.ReadHDUs(b)
	if err != nil {
		return Raw{}, perr.Annotate(err, "raw input")
	}
	if len(units) < 2 {
		return Raw{}, perr.Malformedf("raw input has %d units, need a primary and an image", len(units))
	}
	img, err := units[1].Image()
	if err != nil {
		return Raw{}, perr.Annotate(err, "raw image")
	}
	return Raw{
		Sources: reconcile.Sources{Image: units[1].Header, Primary: units[0].Header},
		Image:   img,
	}, nil
}

// Headers decodes only the header sources of b
func Headers(b []byte) (reconcile.Sources, error) {
	units, err := fits.ReadHDUs(b)
	if err != nil {
		return reconcile.Sources{}, perr.Annotate(err, "raw input")
	}
	if len(units) < 2 {
		return reconcile.Sources{}, perr.Malformedf("raw input has %d units, need a primary and an image", len(units))
	}
	return reconcile.Sources{Image: units[1].Header, Primary: units[0].Header}, nil
}
