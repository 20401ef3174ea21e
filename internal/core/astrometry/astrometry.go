// Package astrometry holds the world coordinate and barycentric timing models
// attached to a channel image
package astrometry

import (
	"fmt"
	"sort"
)

// BJDRefInt and BJDRefFrac define the BKJD epoch (BJD - 2454833.0)
const (
	BJDRefInt  = 2454833
	BJDRefFrac = 0.0

	// mjdToJD converts a modified Julian date to a Julian date
	mjdToJD = 2400000.5
)

// Barycentric is the barycentric time correction at a reference pixel
type Barycentric struct {
	ReferenceRow    float64 `json:"reference_row" yaml:"reference_row"`
	ReferenceColumn float64 `json:"reference_column" yaml:"reference_column"`
	CorrectionDays  float32 `json:"correction_days" yaml:"correction_days"`
}

// BKJD shifts a spacecraft MJD to barycentric Kepler JD using the correction
func (b Barycentric) BKJD(mjd float64) float64 {
	return mjd + mjdToJD - BJDRefInt - BJDRefFrac + float64(b.CorrectionDays)
}

// Term is one SIP polynomial coefficient on x^P * y^Q
type Term struct {
	P     int     `json:"p" yaml:"p"`
	Q     int     `json:"q" yaml:"q"`
	Value float64 `json:"value" yaml:"value"`
}

// Polynomial is one SIP distortion polynomial
type Polynomial struct {
	Order int    `json:"order" yaml:"order"`
	Terms []Term `json:"terms" yaml:"terms"`
}

// Sorted returns the terms within Order ordered by P then Q
func (p Polynomial) Sorted() []Term {
	out := make([]Term, 0, len(p.Terms))
	for _, t := range p.Terms {
		if t.P >= 0 && t.Q >= 0 && t.P+t.Q <= p.Order {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].P != out[j].P {
			return out[i].P < out[j].P
		}
		return out[i].Q < out[j].Q
	})
	return out
}

// Key renders the FITS keyword of a term under prefix (A, B, AP, BP)
func (t Term) Key(prefix string) string { return fmt.Sprintf("%s_%d_%d", prefix, t.P, t.Q) }

// WCS is a tangent-plane projection with SIP distortion
// Only a WCS that reports itself valid is written to headers
type WCS struct {
	Valid  bool          `json:"valid" yaml:"valid"`
	CRPix1 float64       `json:"crpix1" yaml:"crpix1"`
	CRPix2 float64       `json:"crpix2" yaml:"crpix2"`
	CRVal1 float64       `json:"crval1" yaml:"crval1"`
	CRVal2 float64       `json:"crval2" yaml:"crval2"`
	CD     [2][2]float64 `json:"cd" yaml:"cd"`
	A      Polynomial    `json:"a" yaml:"a"`
	B      Polynomial    `json:"b" yaml:"b"`
	AP     Polynomial    `json:"ap" yaml:"ap"`
	BP     Polynomial    `json:"bp" yaml:"bp"`
}

// Invalid is the WCS used when no model covers an image
var Invalid = WCS{}
