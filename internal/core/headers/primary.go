// Package headers synthesizes the primary and per-channel image headers of an
// assembled FFI from resolved facts, exposure quantities and timing models
package headers

import (
	"ffiassembler/internal/core/fits"
	"ffiassembler/internal/core/product"
	"ffiassembler/internal/core/reconcile"
	"ffiassembler/internal/core/rolltime"

	perr "ffiassembler/internal/platform/errors"
)

// Software identifies the producing program
type Software struct {
	Creator     string
	ProcVer     string
	FileVersion string
}

// PrimaryParams is everything the primary header is built from
type PrimaryParams struct {
	Mission     product.Mission
	Timestamp   string
	DataRelease int
	Extensions  int
	Software    Software
	Period      rolltime.Period
	Pointing    reconcile.Pointing
	Facts       reconcile.CommonFacts
}

// Primary builds the header-only primary unit of an assembled file
func Primary(p PrimaryParams, st Stamp) (fits.Header, error) {
	if p.Extensions < 0 {
		return fits.Header{}, perr.Contractf("negative extension count %d", p.Extensions)
	}
	if p.Mission != product.Kepler && p.Mission != product.K2 {
		return fits.Header{}, perr.WithField(perr.InvalidArgf("unknown mission %q", p.Mission), "mission")
	}

	var b builder
	b.flag("SIMPLE", true)
	b.integer("BITPIX", 8)
	b.integer("NAXIS", 0)
	b.flag("EXTEND", true)
	b.integer("NEXTEND", int64(p.Extensions))
	b.str("EXTNAME", "PRIMARY")
	b.integer("EXTVER", 1)
	b.str("ORIGIN", "NASA/Ames")
	b.str("CREATOR", p.Software.Creator)
	b.str("PROCVER", p.Software.ProcVer)
	b.str("FILEVER", p.Software.FileVersion)
	b.str("TIMVERSN", "OGIP/93-003")
	b.str("TELESCOP", "Kepler")
	b.str("INSTRUME", "Kepler Photometer")
	b.str("OBJECT", p.Mission.Object())
	b.integer("DATA_REL", int64(p.DataRelease))
	b.str("DATSETNM", product.DatasetName(p.Mission, p.Timestamp))
	b.str("DCT_TYPE", "FFI")

	switch p.Mission {
	case product.K2:
		b.str("MISSION", "K2")
		b.integer("CAMPAIGN", int64(p.Period.Campaign))
	default:
		b.integer("QUARTER", int64(p.Period.ReportedQuarter()))
		b.integer("SEASON", int64(p.Period.Season))
	}

	b.str("RADESYS", "ICRS")
	b.num("EQUINOX", 2000.0)
	b.optNum("RA_NOM", p.Pointing.RA)
	b.optNum("DEC_NOM", p.Pointing.Dec)
	b.optNum("ROLL_NOM", p.Pointing.Roll)
	b.optFlag("FINE_PNT", p.Facts.FinePoint)
	b.optFlag("MMNTMDMP", p.Facts.MomentumDump)
	b.optInt("SCCONFIG", p.Facts.SCConfigID)
	return b.finish(st)
}
