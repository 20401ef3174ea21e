package headers

import (
	"ffiassembler/internal/core/astrometry"
	"ffiassembler/internal/core/exposure"
	"ffiassembler/internal/core/fits"
	"ffiassembler/internal/core/focalplane"
	"ffiassembler/internal/core/opt"
	"ffiassembler/internal/core/reconcile"

	perr "ffiassembler/internal/platform/errors"
	ptime "ffiassembler/internal/platform/time"
)

// relativeTimeError is the clock's relative error in days
const relativeTimeError = 5.78e-7

// Instrument are the per-channel calibration constants in the header
type Instrument struct {
	Gain      float64
	ReadNoise float64
	MeanBlack int32
}

// ImageParams is everything one channel's image header is built from
type ImageParams struct {
	Channel     focalplane.Channel
	Width       int
	Height      int
	Facts       reconcile.CommonFacts
	Interval    reconcile.Interval
	Parameters  exposure.Parameters
	Exposure    exposure.Derived
	Instrument  Instrument
	Barycentric opt.Value[astrometry.Barycentric]
	WCS         astrometry.WCS
	Unit        string
}

// Image builds the extension header for one channel's float image
func Image(p ImageParams, st Stamp) (fits.Header, error) {
	if !p.Channel.Valid() {
		return fits.Header{}, perr.Contractf("invalid channel %s", p.Channel)
	}
	if p.Width <= 0 || p.Height <= 0 {
		return fits.Header{}, perr.Contractf("image geometry %dx%d", p.Width, p.Height)
	}

	var b builder
	b.str("XTENSION", "IMAGE")
	b.integer("BITPIX", -32)
	b.integer("NAXIS", 2)
	b.integer("NAXIS1", int64(p.Width))
	b.integer("NAXIS2", int64(p.Height))
	b.integer("PCOUNT", 0)
	b.integer("GCOUNT", 1)
	b.flag("INHERIT", true)
	b.str("EXTNAME", p.Channel.ExtName())
	b.integer("EXTVER", int64(p.Channel.Number()))
	b.str("TELESCOP", "Kepler")
	b.str("INSTRUME", "Kepler Photometer")
	b.integer("CHANNEL", int64(p.Channel.Number()))
	b.integer("MODULE", int64(p.Channel.Module))
	b.integer("OUTPUT", int64(p.Channel.Output))

	timing(&b, p)

	b.num("GAIN", p.Instrument.Gain)
	b.num("READNOIS", p.Instrument.ReadNoise)
	b.integer("MEANBLCK", int64(p.Instrument.MeanBlack))
	b.str("BUNIT", p.Unit)

	if bc, ok := p.Barycentric.Get(); ok {
		b.num("BARYCORR", float64(bc.CorrectionDays))
		b.num("BCREFROW", bc.ReferenceRow)
		b.num("BCREFCOL", bc.ReferenceColumn)
	} else {
		b.null("BARYCORR")
		b.null("BCREFROW")
		b.null("BCREFCOL")
	}

	physicalWCS(&b)
	if p.WCS.Valid {
		skyWCS(&b, p.WCS)
	}
	return b.finish(st)
}

func timing(b *builder, p ImageParams) {
	iv, d := p.Interval, p.Exposure
	b.str("TIMEREF", "SOLARSYSTEM")
	b.str("TASSIGN", "SPACECRAFT")
	b.str("TIMESYS", "TDB")
	b.integer("BJDREFI", astrometry.BJDRefInt)
	b.num("BJDREFF", astrometry.BJDRefFrac)
	b.str("TIMEUNIT", "d")
	b.num("TELAPSE", d.ElapsedDays)
	b.num("LIVETIME", d.LiveTimeDays)
	if bc, ok := p.Barycentric.Get(); ok {
		b.num("TSTART", bc.BKJD(iv.StartMJD))
		b.num("TSTOP", bc.BKJD(iv.EndMJD))
	} else {
		b.null("TSTART")
		b.null("TSTOP")
	}
	b.str("DATE-OBS", ptime.ISO(ptime.FromMJD(iv.StartMJD)))
	b.str("DATE-END", ptime.ISO(ptime.FromMJD(iv.EndMJD)))
	b.num("MJDSTART", iv.StartMJD)
	b.num("MJDEND", iv.EndMJD)
	b.num("DEADC", d.DeadC)
	b.num("TIMEPIXR", 0.5)
	b.num("TIERRELA", relativeTimeError)
	b.num("INT_TIME", d.IntegrationTimeSec)
	b.num("READTIME", d.ReadTimeSec)
	b.num("FRAMETIM", d.FrameTimeSec)
	b.integer("NUM_FRM", int64(p.Parameters.IntegrationsPerImage))
	b.num("FGSFRPER", p.Parameters.FGSFrameTimeMs)
	b.integer("NUMFGSFP", int64(p.Parameters.FramesPerIntegration))
	b.integer("LC_COUNT", int64(iv.LongCadence))
	b.optFlag("FINE_PNT", p.Facts.FinePoint)
	b.optFlag("MMNTMDMP", p.Facts.MomentumDump)
}

func physicalWCS(b *builder) {
	b.str("WCSNAMEP", "PHYSICAL")
	b.integer("WCSAXESP", 2)
	b.str("CTYPE1P", "RAWX")
	b.str("CUNIT1P", "PIXEL")
	b.integer("CRPIX1P", 1)
	b.integer("CRVAL1P", 0)
	b.num("CDELT1P", 1.0)
	b.str("CTYPE2P", "RAWY")
	b.str("CUNIT2P", "PIXEL")
	b.integer("CRPIX2P", 1)
	b.integer("CRVAL2P", 0)
	b.num("CDELT2P", 1.0)
}

func skyWCS(b *builder, w astrometry.WCS) {
	b.integer("WCSAXES", 2)
	b.str("CTYPE1", "RA---TAN-SIP")
	b.str("CTYPE2", "DEC--TAN-SIP")
	b.num("CRPIX1", w.CRPix1)
	b.num("CRPIX2", w.CRPix2)
	b.num("CRVAL1", w.CRVal1)
	b.num("CRVAL2", w.CRVal2)
	b.str("CUNIT1", "deg")
	b.str("CUNIT2", "deg")
	b.num("CD1_1", w.CD[0][0])
	b.num("CD1_2", w.CD[0][1])
	b.num("CD2_1", w.CD[1][0])
	b.num("CD2_2", w.CD[1][1])
	sip(b, "A", w.A)
	sip(b, "B", w.B)
	sip(b, "AP", w.AP)
	sip(b, "BP", w.BP)
}

func sip(b *builder, prefix string, p astrometry.Polynomial) {
	b.integer(prefix+"_ORDER", int64(p.Order))
	for _, t := range p.Sorted() {
		b.num(t.Key(prefix), t.Value)
	}
}
