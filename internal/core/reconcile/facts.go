package reconcile

import (
	"ffiassembler/internal/core/fits"
	"ffiassembler/internal/core/focalplane"
	"ffiassembler/internal/core/opt"

	perr "ffiassembler/internal/platform/errors"
)

// Keyword pairs a current keyword with its documented legacy spelling
type Keyword struct {
	Modern string
	Legacy string
}

// Keywords the reconciler knows about
var (
	FinePoint    = Keyword{Modern: "FINE_PNT", Legacy: "FINEPNT"}
	MomentumDump = Keyword{Modern: "MMNTMDMP", Legacy: "MOMDUMP"}
	StartMJD     = Keyword{Modern: "MJDSTART", Legacy: "STARTIME"}
	EndMJD       = Keyword{Modern: "MJDEND", Legacy: "END_TIME"}
	LongCadence  = Keyword{Modern: "LC_COUNT", Legacy: "LC_INTER"}
	SCConfigID   = Keyword{Modern: "SCCONFIG", Legacy: "CONFIGID"}
	RANominal    = Keyword{Modern: "RA_NOM", Legacy: "RA_PNT"}
	DecNominal   = Keyword{Modern: "DEC_NOM", Legacy: "DEC_PNT"}
	RollNominal  = Keyword{Modern: "ROLL_NOM", Legacy: "ROLL_PNT"}
	Module       = Keyword{Modern: "MODULE"}
	Output       = Keyword{Modern: "OUTPUT"}
	ChannelNum   = Keyword{Modern: "CHANNEL"}
)

// Sources are the two raw headers that describe one channel image
// Image is preferred over Primary
type Sources struct {
	Image   fits.Header
	Primary fits.Header
}

type named struct {
	name string
	h    fits.Header
}

func (s Sources) ordered() [2]named {
	return [2]named{{"image", s.Image}, {"primary", s.Primary}}
}

// Resolve tries the modern keyword then the legacy one in each source in order
// The first Found wins; a Malformed card stops the search with an error
func Resolve[T any](src Sources, kw Keyword, extract func(fits.Header, string) Lookup[T]) (opt.Value[T], error) {
	for _, s := range src.ordered() {
		for _, key := range []string{kw.Modern, kw.Legacy} {
			if key == "" {
				continue
			}
			l := extract(s.h, key)
			switch l.State {
			case Found:
				return opt.Of(l.Value), nil
			case Malformed:
				return opt.None[T](), l.err(s.name)
			}
		}
	}
	return opt.None[T](), nil
}

// CommonFacts are the per-image facts every output header needs
// Each field resolves independently and may be absent
type CommonFacts struct {
	FinePoint    opt.Value[bool]
	MomentumDump opt.Value[bool]
	StartMJD     opt.Value[float64]
	EndMJD       opt.Value[float64]
	LongCadence  opt.Value[int32]
	SCConfigID   opt.Value[int32]
}

// ResolveFacts extracts CommonFacts from both sources
func ResolveFacts(src Sources) (CommonFacts, error) {
	var (
		f   CommonFacts
		err error
	)
	if f.FinePoint, err = Resolve(src, FinePoint, Bool); err != nil {
		return CommonFacts{}, err
	}
	if f.MomentumDump, err = Resolve(src, MomentumDump, Bool); err != nil {
		return CommonFacts{}, err
	}
	if f.StartMJD, err = Resolve(src, StartMJD, Float); err != nil {
		return CommonFacts{}, err
	}
	if f.EndMJD, err = Resolve(src, EndMJD, Float); err != nil {
		return CommonFacts{}, err
	}
	if f.LongCadence, err = Resolve(src, LongCadence, Int32); err != nil {
		return CommonFacts{}, err
	}
	if f.SCConfigID, err = Resolve(src, SCConfigID, Int32); err != nil {
		return CommonFacts{}, err
	}
	return f, nil
}

// Interval is the resolved observation window of one image
type Interval struct {
	StartMJD    float64
	EndMJD      float64
	LongCadence int32
}

// MidMJD is the interval midpoint
func (iv Interval) MidMJD() float64 { return (iv.StartMJD + iv.EndMJD) / 2 }

// Interval enforces the facts every run needs: a nonzero long cadence and an
// ordered start/end pair
func (f CommonFacts) Interval() (Interval, error) {
	lc, ok := f.LongCadence.Get()
	if !ok {
		return Interval{}, perr.WithField(perr.Malformedf("no long cadence in either header"), LongCadence.Modern)
	}
	if lc == 0 {
		return Interval{}, perr.WithField(perr.Malformedf("long cadence is zero"), LongCadence.Modern)
	}
	start, ok := f.StartMJD.Get()
	if !ok {
		return Interval{}, perr.WithField(perr.Malformedf("no start time in either header"), StartMJD.Modern)
	}
	end, ok := f.EndMJD.Get()
	if !ok {
		return Interval{}, perr.WithField(perr.Malformedf("no end time in either header"), EndMJD.Modern)
	}
	if start > end {
		return Interval{}, perr.WithField(perr.Mismatchf("start %.8f after end %.8f", start, end), StartMJD.Modern)
	}
	return Interval{StartMJD: start, EndMJD: end, LongCadence: lc}, nil
}

// Pointing is the nominal boresight of the spacecraft
type Pointing struct {
	RA   opt.Value[float64]
	Dec  opt.Value[float64]
	Roll opt.Value[float64]
}

// ResolvePointing extracts the nominal pointing
func ResolvePointing(src Sources) (Pointing, error) {
	var (
		p   Pointing
		err error
	)
	if p.RA, err = Resolve(src, RANominal, Float); err != nil {
		return Pointing{}, err
	}
	if p.Dec, err = Resolve(src, DecNominal, Float); err != nil {
		return Pointing{}, err
	}
	if p.Roll, err = Resolve(src, RollNominal, Float); err != nil {
		return Pointing{}, err
	}
	return p, nil
}

// ResolveChannel derives the channel a pair of raw headers describes
// MODULE/OUTPUT are preferred; CHANNEL is the fallback
func ResolveChannel(src Sources) (focalplane.Channel, error) {
	mod, err := Resolve(src, Module, Int32)
	if err != nil {
		return focalplane.Channel{}, err
	}
	out, err := Resolve(src, Output, Int32)
	if err != nil {
		return focalplane.Channel{}, err
	}
	m, mok := mod.Get()
	o, ook := out.Get()
	if mok && ook {
		c := focalplane.Channel{Module: int(m), Output: int(o)}
		if !c.Valid() {
			return focalplane.Channel{}, perr.WithField(perr.Malformedf("header declares invalid channel %s", c), Module.Modern)
		}
		return c, nil
	}
	num, err := Resolve(src, ChannelNum, Int32)
	if err != nil {
		return focalplane.Channel{}, err
	}
	n, ok := num.Get()
	if !ok {
		return focalplane.Channel{}, perr.WithField(perr.Malformedf("headers declare no channel"), Module.Modern)
	}
	c, err := focalplane.FromNumber(int(n))
	if err != nil {
		return focalplane.Channel{}, perr.WithField(perr.Wrap(err, perr.ErrorCodeMalformed, "header channel number"), ChannelNum.Modern)
	}
	return c, nil
}

// VerifyChannel fails when the headers describe a different channel than want
func VerifyChannel(src Sources, want focalplane.Channel) error {
	got, err := ResolveChannel(src)
	if err != nil {
		return err
	}
	if got != want {
		return perr.WithField(perr.Mismatchf("headers describe channel %s, task declared %s", got, want), Module.Modern)
	}
	return nil
}
