package checksum

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"ffiassembler/internal/core/fits"
	"ffiassembler/internal/core/headers"

	perr "ffiassembler/internal/platform/errors"
)

var generated = time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)

func render(st headers.Stamp) (fits.Header, error) {
	var h fits.Header
	h.Add("XTENSION", fits.String("IMAGE"), "")
	h.Add("BITPIX", fits.Int(-32), "")
	h.Add("NAXIS", fits.Int(2), "")
	h.Add("NAXIS1", fits.Int(3), "")
	h.Add("NAXIS2", fits.Int(2), "")
	h.Add("PCOUNT", fits.Int(0), "")
	h.Add("GCOUNT", fits.Int(1), "")
	h.Add("DATASUM", fits.String(st.DataSum), "data unit checksum")
	h.Add("CHECKSUM", fits.String(st.Checksum), "HDU checksum updated "+st.Generated.UTC().Format("2006-01-02T15:04:05"))
	return h, nil
}

func data() []byte {
	return fits.EncodeFloat32(fits.Image{Width: 3, Height: 2, Pix: []float32{1, -2, 3.5, 0, 1e9, 42}})
}

func TestSealProducesVerifiableUnit(t *testing.T) {
	t.Parallel()
	u, err := Seal(render, data(), generated)
	if err != nil {
		t.Fatalf("Seal: %v", err)
	}
	var buf bytes.Buffer
	n, err := u.WriteTo(&buf)
	if err != nil || int(n) != u.Len() {
		t.Fatalf("WriteTo = %d, %v", n, err)
	}
	units, err := fits.ReadHDUs(buf.Bytes())
	if err != nil {
		t.Fatalf("ReadHDUs: %v", err)
	}
	if err := units[0].Verify(); err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if u.Stamp.Checksum == fits.ChecksumPlaceholder {
		t.Fatalf("final stamp still carries the placeholder")
	}
}

func TestPassesDifferOnlyInChecksumCard(t *testing.T) {
	t.Parallel()
	u, err := Seal(render, data(), generated)
	if err != nil {
		t.Fatalf("Seal: %v", err)
	}
	draft, _ := render(headers.Placeholder(u.Stamp.DataSum, generated))
	db, _ := draft.Encode()
	if len(db) != len(u.HeaderBytes) {
		t.Fatalf("draft and final sizes differ")
	}
	var diff []int
	for i := 0; i < len(db); i += fits.CardSize {
		if !bytes.Equal(db[i:i+fits.CardSize], u.HeaderBytes[i:i+fits.CardSize]) {
			diff = append(diff, i/fits.CardSize)
		}
	}
	if len(diff) != 1 || diff[0] != draft.Len()-1 {
		t.Fatalf("differing cards %v, want only the CHECKSUM card", diff)
	}
}

func TestSealIsDeterministic(t *testing.T) {
	t.Parallel()
	a, _ := Seal(render, data(), generated)
	b, _ := Seal(render, data(), generated)
	if !bytes.Equal(a.HeaderBytes, b.HeaderBytes) {
		t.Fatalf("same inputs sealed differently")
	}
}

func TestHeaderOnlyUnit(t *testing.T) {
	t.Parallel()
	primary := func(st headers.Stamp) (fits.Header, error) {
		var h fits.Header
		h.Add("SIMPLE", fits.Bool(true), "")
		h.Add("BITPIX", fits.Int(8), "")
		h.Add("NAXIS", fits.Int(0), "")
		h.Add("DATASUM", fits.String(st.DataSum), "")
		h.Add("CHECKSUM", fits.String(st.Checksum), "")
		return h, nil
	}
	u, err := Seal(primary, nil, generated)
	if err != nil {
		t.Fatalf("Seal: %v", err)
	}
	if u.Stamp.DataSum != "0" || len(u.Data) != 0 {
		t.Fatalf("header-only unit stamp %+v", u.Stamp)
	}
	units, _ := fits.ReadHDUs(u.HeaderBytes)
	if err := units[0].Verify(); err != nil {
		t.Fatalf("Verify: %v", err)
	}
}

func TestSealRejects(t *testing.T) {
	t.Parallel()
	if _, err := Seal(render, data(), time.Time{}); !perr.IsCode(err, perr.ErrorCodeContract) {
		t.Fatalf("zero time err = %v", err)
	}
	if _, err := Seal(render, make([]byte, 10), generated); !perr.IsCode(err, perr.ErrorCodeContract) {
		t.Fatalf("unaligned data err = %v", err)
	}

	calls := 0
	unstable := func(st headers.Stamp) (fits.Header, error) {
		calls++
		h, _ := render(st)
		if calls > 1 {
			h.Add("HISTORY", fits.Null(), "late")
		}
		return h, nil
	}
	if _, err := Seal(unstable, data(), generated); !perr.IsCode(err, perr.ErrorCodeContract) {
		t.Fatalf("impure render err = %v", err)
	}

	boom := errors.New("boom")
	failing := func(headers.Stamp) (fits.Header, error) { return fits.Header{}, boom }
	if _, err := Seal(failing, data(), generated); !errors.Is(err, boom) {
		t.Fatalf("render error not propagated: %v", err)
	}
}

func TestSealWithSynthesizedHeader(t *testing.T) {
	t.Parallel()
	p := headers.PrimaryParams{Mission: "kepler", Timestamp: "2009114174833", Extensions: 1}
	u, err := Seal(func(st headers.Stamp) (fits.Header, error) { return headers.Primary(p, st) }, nil, generated)
	if err != nil {
		t.Fatalf("Seal: %v", err)
	}
	r, _ := u.Header.Lookup("CHECKSUM")
	if r.Comment != "HDU checksum updated 2026-10-19T12:00:00" {
		t.Fatalf("CHECKSUM comment %q", r.Comment)
	}
}

func TestBeginThenFinalize(t *testing.T) {
	t.Parallel()
	d, err := Begin(render, data(), generated)
	if err != nil {
		t.Fatalf("Begin: %v", err)
	}
	if len(d.Checksum()) != 16 {
		t.Fatalf("draft checksum %q", d.Checksum())
	}
	u, err := d.Finalize()
	if err != nil {
		t.Fatalf("Finalize: %v", err)
	}
	if u.Stamp.Checksum != d.Checksum() {
		t.Fatalf("final stamp %q, draft computed %q", u.Stamp.Checksum, d.Checksum())
	}
	if _, err := (Draft{}).Finalize(); !perr.IsCode(err, perr.ErrorCodeContract) {
		t.Fatalf("finalize without draft err = %v", err)
	}
}
