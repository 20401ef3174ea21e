package fits

import (
	"math/rand"
	"strconv"
	"testing"

	perr "ffiassembler/internal/platform/errors"
)

func randomBlocks(seed int64, n int) []byte {
	r := rand.New(rand.NewSource(seed))
	b := make([]byte, n*BlockSize)
	r.Read(b)
	return b
}

func TestSum32RejectsUnaligned(t *testing.T) {
	t.Parallel()
	for _, n := range []int{1, 2879, 2881, 4} {
		if _, err := Sum32(make([]byte, n)); !perr.IsCode(err, perr.ErrorCodeContract) {
			t.Fatalf("Sum32(%d bytes) err = %v, want contract", n, err)
		}
		if _, err := Checksum(make([]byte, n)); err == nil {
			t.Fatalf("Checksum(%d bytes) should fail", n)
		}
	}
	if s, err := Sum32(nil); err != nil || s != 0 {
		t.Fatalf("empty input sums to zero, got %d %v", s, err)
	}
}

func TestChecksumStable(t *testing.T) {
	t.Parallel()
	b := randomBlocks(1, 3)
	a1, err := Checksum(b)
	if err != nil {
		t.Fatalf("Checksum: %v", err)
	}
	a2, _ := Checksum(b)
	if a1 != a2 {
		t.Fatalf("checksum not stable: %s vs %s", a1, a2)
	}
	if len(a1) != 16 {
		t.Fatalf("checksum length %d", len(a1))
	}
	for _, c := range a1 {
		if !(c >= '0' && c <= '9' || c >= 'A' && c <= 'Z' || c >= 'a' && c <= 'z') {
			t.Fatalf("checksum %q has non alphanumeric %q", a1, c)
		}
	}
}

func TestChecksumDetectsSingleByteFlip(t *testing.T) {
	t.Parallel()
	b := randomBlocks(2, 2)
	base, _ := Checksum(b)
	r := rand.New(rand.NewSource(3))
	for i := 0; i < 200; i++ {
		pos := r.Intn(len(b))
		orig := b[pos]
		b[pos] = orig ^ byte(1+r.Intn(255))
		got, _ := Checksum(b)
		if got == base {
			t.Fatalf("flip at %d not detected", pos)
		}
		b[pos] = orig
	}
}

func TestAddSumsEndAroundCarry(t *testing.T) {
	t.Parallel()
	if got := AddSums(0xFFFFFFFF, 1); got != 1 {
		t.Fatalf("AddSums carry = %08x", got)
	}
	if got := AddSums(0x80000000, 0x80000000); got != 1 {
		t.Fatalf("AddSums overflow = %08x", got)
	}
	whole, _ := Sum32(randomBlocks(4, 4))
	b := randomBlocks(4, 4)
	left, _ := Sum32(b[:2*BlockSize])
	right, _ := Sum32(b[2*BlockSize:])
	if AddSums(left, right) != whole {
		t.Fatalf("partial sums do not combine")
	}
}

func TestChecksumCardMakesUnitSumToNegativeZero(t *testing.T) {
	t.Parallel()
	data := EncodeFloat32(Image{Width: 3, Height: 2, Pix: []float32{1, 2.5, -3, 4e10, 0, 7}})
	datasum, err := DataSum(data)
	if err != nil {
		t.Fatalf("DataSum: %v", err)
	}

	build := func(checksum string) []byte {
		h := sampleHeader()
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
	final := build(sum)
	total, _ := Sum32(final)
	if total != NegativeZero {
		t.Fatalf("unit sums to %08x", total)
	}

	units, err := ReadHDUs(final)
	if err != nil {
		t.Fatalf("ReadHDUs: %v", err)
	}
	if len(units) != 1 {
		t.Fatalf("units = %d", len(units))
	}
	if err := units[0].Verify(); err != nil {
		t.Fatalf("Verify: %v", err)
	}

	final[len(final)-1] ^= 0xFF
	units, _ = ReadHDUs(final)
	if err := units[0].Verify(); !perr.IsCode(err, perr.ErrorCodeIntegrity) {
		t.Fatalf("corrupt unit should fail verification, got %v", err)
	}
}

func TestDataSumDecimal(t *testing.T) {
	t.Parallel()
	block := make([]byte, BlockSize)
	block[0], block[1], block[2], block[3] = 0, 0, 1, 2
	got, err := DataSum(block)
	if err != nil {
		t.Fatalf("DataSum: %v", err)
	}
	if got != strconv.Itoa(0x0102) {
		t.Fatalf("DataSum = %s", got)
	}
}
