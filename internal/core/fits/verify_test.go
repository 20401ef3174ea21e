package fits

import (
	"testing"

	perr "ffiassembler/internal/platform/errors"
)

func sealedUnit(t *testing.T, extname string, data []byte) []byte {
	t.Helper()
	datasum, err := DataSum(data)
	if err != nil {
		t.Fatalf("DataSum: %v", err)
	}
	build := func(checksum string) []byte {
		h := sampleHeader()
		h.Add("EXTNAME", String(extname), "")
		h.Add("DATASUM", String(datasum), "data unit checksum")
		h.Add("CHECKSUM", String(checksum), "HDU checksum updated 2026-10-19T12:00:00")
		hb, err := h.Encode()
		if err != nil {
			t.Fatalf("Encode: %v", err)
		}
		return append(hb, data...)
	}
	sum, err := Checksum(build(ChecksumPlaceholder))
	if err != nil {
		t.Fatalf("Checksum: %v", err)
	}
	return build(sum)
}

func TestVerifyReportsPerUnit(t *testing.T) {
	t.Parallel()
	a := sealedUnit(t, "MOD.OUT 2.1", EncodeFloat32(Image{Width: 3, Height: 2, Pix: []float32{1, 2, 3, 4, 5, 6}}))
	b := sealedUnit(t, "MOD.OUT 2.2", EncodeFloat32(Image{Width: 3, Height: 2, Pix: []float32{6, 5, 4, 3, 2, 1}}))
	file := append(append([]byte(nil), a...), b...)

	rs, err := Verify(file)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if len(rs) != 2 || len(Failed(rs)) != 0 || rs[1].ExtName != "MOD.OUT 2.2" || len(rs[0].Checksum) != 16 {
		t.Fatalf("reports = %+v", rs)
	}

	file[len(a)+len(b)-1] ^= 0x01
	rs, err = Verify(file)
	if err != nil {
		t.Fatalf("Verify corrupt: %v", err)
	}
	failed := Failed(rs)
	if len(failed) != 1 || failed[0].Index != 1 || !perr.IsCode(failed[0].Err, perr.ErrorCodeIntegrity) {
		t.Fatalf("failed = %+v", failed)
	}

	if _, err := Verify(file[:100]); !perr.IsCode(err, perr.ErrorCodeMalformed) {
		t.Fatalf("unaligned file err = %v", err)
	}
}
