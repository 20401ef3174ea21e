package reconcile

import (
	"testing"

	"ffiassembler/internal/core/fits"
	"ffiassembler/internal/core/focalplane"

	perr "ffiassembler/internal/platform/errors"
)

func hdr(kv ...any) fits.Header {
	var h fits.Header
	for i := 0; i < len(kv); i += 2 {
		h.Add(kv[i].(string), kv[i+1].(fits.Value), "")
	}
	return h
}

func TestImageSourceWinsOverPrimary(t *testing.T) {
	t.Parallel()
	src := Sources{
		Image:   hdr("MJDSTART", fits.Float(55002.1)),
		Primary: hdr("MJDSTART", fits.Float(55002.9)),
	}
	f, err := ResolveFacts(src)
	if err != nil {
		t.Fatalf("ResolveFacts: %v", err)
	}
	if got := f.StartMJD.Or(0); got != 55002.1 {
		t.Fatalf("StartMJD = %v, want image value", got)
	}
}

func TestLegacyPrimaryFallback(t *testing.T) {
	t.Parallel()
	src := Sources{
		Image:   hdr("LC_COUNT", fits.Int(1105)),
		Primary: hdr("STARTIME", fits.Float(54953.0380)),
	}
	f, err := ResolveFacts(src)
	if err != nil {
		t.Fatalf("ResolveFacts: %v", err)
	}
	if got, ok := f.StartMJD.Get(); !ok || got != 54953.0380 {
		t.Fatalf("StartMJD = %v %v, want legacy primary value", got, ok)
	}
	if f.EndMJD.Present() {
		t.Fatalf("EndMJD should stay absent")
	}
}

func TestPreferenceOrder(t *testing.T) {
	t.Parallel()
	cases := []struct {
		name string
		src  Sources
		want bool
	}{
		{"image modern", Sources{Image: hdr("FINE_PNT", fits.Bool(true), "FINEPNT", fits.Bool(false)), Primary: hdr("FINE_PNT", fits.Bool(false))}, true},
		{"image legacy before primary modern", Sources{Image: hdr("FINEPNT", fits.Bool(true)), Primary: hdr("FINE_PNT", fits.Bool(false))}, true},
		{"primary modern before primary legacy", Sources{Primary: hdr("FINEPNT", fits.Bool(false), "FINE_PNT", fits.Bool(true))}, true},
		{"null image card falls back", Sources{Image: hdr("FINE_PNT", fits.Null()), Primary: hdr("FINE_PNT", fits.Bool(true))}, true},
	}
	for _, c := range cases {
		f, err := ResolveFacts(c.src)
		if err != nil {
			t.Fatalf("%s: %v", c.name, err)
		}
		if got, ok := f.FinePoint.Get(); !ok || got != c.want {
			t.Fatalf("%s: FinePoint = %v %v", c.name, got, ok)
		}
	}
}

func TestLegacyDoubleTruncatesTowardZero(t *testing.T) {
	t.Parallel()
	src := Sources{Primary: hdr("LC_INTER", fits.Float(12935.97), "CONFIGID", fits.Float(-41.9))}
	f, err := ResolveFacts(src)
	if err != nil {
		t.Fatalf("ResolveFacts: %v", err)
	}
	if got := f.LongCadence.Or(0); got != 12935 {
		t.Fatalf("LongCadence = %d", got)
	}
	if got := f.SCConfigID.Or(0); got != -41 {
		t.Fatalf("SCConfigID = %d", got)
	}
}

func TestMalformedStopsResolution(t *testing.T) {
	t.Parallel()
	src := Sources{
		Image:   hdr("MJDEND", fits.String("yesterday")),
		Primary: hdr("MJDEND", fits.Float(55003)),
	}
	_, err := ResolveFacts(src)
	if !perr.IsCode(err, perr.ErrorCodeMalformed) {
		t.Fatalf("err = %v, want malformed", err)
	}
	if e, _ := perr.As(err); e.Field() != "MJDEND" {
		t.Fatalf("field = %q", e.Field())
	}
	big := Sources{Image: hdr("LC_COUNT", fits.Float(1e12))}
	if _, err := ResolveFacts(big); !perr.IsCode(err, perr.ErrorCodeMalformed) {
		t.Fatalf("overflowing cadence err = %v", err)
	}
}

func TestIntervalRequirements(t *testing.T) {
	t.Parallel()
	cases := []struct {
		name  string
		src   Sources
		code  perr.ErrorCode
		field string
	}{
		{"no cadence", Sources{Image: hdr("MJDSTART", fits.Float(1), "MJDEND", fits.Float(2))}, perr.ErrorCodeMalformed, "LC_COUNT"},
		{"zero cadence", Sources{Image: hdr("LC_COUNT", fits.Int(0), "MJDSTART", fits.Float(1), "MJDEND", fits.Float(2))}, perr.ErrorCodeMalformed, "LC_COUNT"},
		{"no start", Sources{Image: hdr("LC_COUNT", fits.Int(3), "MJDEND", fits.Float(2))}, perr.ErrorCodeMalformed, "MJDSTART"},
		{"no end", Sources{Image: hdr("LC_COUNT", fits.Int(3), "MJDSTART", fits.Float(2))}, perr.ErrorCodeMalformed, "MJDEND"},
		{"reversed", Sources{Image: hdr("LC_COUNT", fits.Int(3), "MJDSTART", fits.Float(3), "MJDEND", fits.Float(2))}, perr.ErrorCodeMismatch, "MJDSTART"},
	}
	for _, c := range cases {
		f, err := ResolveFacts(c.src)
		if err != nil {
			t.Fatalf("%s: ResolveFacts: %v", c.name, err)
		}
		_, err = f.Interval()
		if !perr.IsCode(err, c.code) {
			t.Fatalf("%s: err = %v", c.name, err)
		}
		if e, _ := perr.As(err); e.Field() != c.field {
			t.Fatalf("%s: field = %q", c.name, e.Field())
		}
	}

	f, _ := ResolveFacts(Sources{Primary: hdr("LC_COUNT", fits.Int(7), "MJDSTART", fits.Float(10), "MJDEND", fits.Float(10.5))})
	iv, err := f.Interval()
	if err != nil {
		t.Fatalf("Interval: %v", err)
	}
	if iv.LongCadence != 7 || iv.MidMJD() != 10.25 {
		t.Fatalf("interval = %+v", iv)
	}
}

func TestResolvePointing(t *testing.T) {
	t.Parallel()
	p, err := ResolvePointing(Sources{
		Image:   hdr("RA_PNT", fits.Float(290.1)),
		Primary: hdr("RA_NOM", fits.Float(290.6688), "DEC_NOM", fits.Float(44.4952)),
	})
	if err != nil {
		t.Fatalf("ResolvePointing: %v", err)
	}
	if p.RA.Or(0) != 290.1 || p.Dec.Or(0) != 44.4952 || p.Roll.Present() {
		t.Fatalf("pointing = %+v", p)
	}
}

func TestResolveChannel(t *testing.T) {
	t.Parallel()
	c, err := ResolveChannel(Sources{Image: hdr("MODULE", fits.Int(13), "OUTPUT", fits.Int(2))})
	if err != nil || c != (focalplane.Channel{Module: 13, Output: 2}) {
		t.Fatalf("module/output = %v %v", c, err)
	}
	c, err = ResolveChannel(Sources{Primary: hdr("CHANNEL", fits.Int(44))})
	if err != nil || c != (focalplane.Channel{Module: 13, Output: 4}) {
		t.Fatalf("channel number = %v %v", c, err)
	}
	if _, err := ResolveChannel(Sources{}); !perr.IsCode(err, perr.ErrorCodeMalformed) {
		t.Fatalf("no channel err = %v", err)
	}
	if _, err := ResolveChannel(Sources{Image: hdr("MODULE", fits.Int(1), "OUTPUT", fits.Int(1))}); err == nil {
		t.Fatalf("corner module should be rejected")
	}
	if _, err := ResolveChannel(Sources{Image: hdr("CHANNEL", fits.Int(99))}); !perr.IsCode(err, perr.ErrorCodeMalformed) {
		t.Fatalf("bad channel number err = %v", err)
	}
}

func TestVerifyChannel(t *testing.T) {
	t.Parallel()
	src := Sources{Image: hdr("MODULE", fits.Int(2), "OUTPUT", fits.Int(1))}
	if err := VerifyChannel(src, focalplane.Channel{Module: 2, Output: 1}); err != nil {
		t.Fatalf("VerifyChannel: %v", err)
	}
	err := VerifyChannel(src, focalplane.Channel{Module: 2, Output: 2})
	if !perr.IsCode(err, perr.ErrorCodeMismatch) {
		t.Fatalf("err = %v, want mismatch", err)
	}
}

func TestStringLookup(t *testing.T) {
	t.Parallel()
	h := hdr("DATSETNM", fits.String("kplr2009114174833"), "NAXIS", fits.Int(2))
	if l := String(h, "DATSETNM"); l.State != Found || l.Value != "kplr2009114174833" {
		t.Fatalf("String = %+v", l)
	}
	if l := String(h, "NAXIS"); l.State != Malformed {
		t.Fatalf("int as string should be malformed, got %s", l.State)
	}
	if l := String(h, "NOPE"); l.State != Absent {
		t.Fatalf("missing should be absent, got %s", l.State)
	}
}
