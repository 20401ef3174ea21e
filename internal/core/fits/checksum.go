package fits

import (
	"strconv"

	perr "ffiassembler/internal/platform/errors"
)

// ChecksumPlaceholder is the CHECKSUM value used while the real one is computed
const ChecksumPlaceholder = "0000000000000000"

// NegativeZero is the 1's-complement sum of a correctly checksummed HDU
const NegativeZero uint32 = 0xFFFFFFFF

// Sum32 returns the 32-bit 1's-complement sum of b taken as big-endian words
// b must be a whole number of blocks
func Sum32(b []byte) (uint32, error) {
	if !Aligned(len(b)) {
		return 0, perr.Contractf("checksum over %d bytes is not block aligned", len(b))
	}
	var sum uint32
	for off := 0; off < len(b); off += BlockSize {
		sum = AddSums(sum, blockSum(b[off:off+BlockSize]))
	}
	return sum, nil
}

// blockSum folds one block; 720 words cannot overflow the 32-bit halves
func blockSum(b []byte) uint32 {
	var hi, lo uint32
	for i := 0; i < len(b); i += 4 {
		hi += uint32(b[i])<<8 | uint32(b[i+1])
		lo += uint32(b[i+2])<<8 | uint32(b[i+3])
	}
	return fold(hi, lo)
}

func fold(hi, lo uint32) uint32 {
	hicarry, locarry := hi>>16, lo>>16
	for hicarry != 0 || locarry != 0 {
		hi = (hi & 0xFFFF) + locarry
		lo = (lo & 0xFFFF) + hicarry
		hicarry, locarry = hi>>16, lo>>16
	}
	return hi<<16 | lo
}

// AddSums combines two partial sums with end-around carry
func AddSums(a, b uint32) uint32 {
	s := uint64(a) + uint64(b)
	for s>>32 != 0 {
		s = (s & 0xFFFFFFFF) + s>>32
	}
	return uint32(s)
}

var excluded = [...]byte{0x3a, 0x3b, 0x3c, 0x3d, 0x3e, 0x3f, 0x40, 0x5b, 0x5c, 0x5d, 0x5e, 0x5f, 0x60}

// EncodeSum renders sum as 16 alphanumeric characters, rotated one byte so that
// the text lines up with word boundaries when written at column 12 of a card
func EncodeSum(sum uint32) string {
	var asc [16]byte
	for i := 0; i < 4; i++ {
		byt := int(sum>>(uint(3-i)*8)) & 0xFF
		quotient := byt/4 + 0x30
		remainder := byt % 4
		var ch [4]int
		for j := range ch {
			ch[j] = quotient
		}
		ch[0] += remainder

		for check := true; check; {
			check = false
			for _, e := range excluded {
				for j := 0; j < 4; j += 2 {
					if ch[j] == int(e) || ch[j+1] == int(e) {
						ch[j]++
						ch[j+1]--
						check = true
					}
				}
			}
		}
		for j := 0; j < 4; j++ {
			asc[4*j+i] = byte(ch[j])
		}
	}
	var out [16]byte
	for i := range out {
		out[i] = asc[(i+15)%16]
	}
	return string(out[:])
}

// Checksum returns the CHECKSUM string for a serialized HDU whose CHECKSUM card
// holds ChecksumPlaceholder
func Checksum(hdu []byte) (string, error) {
	sum, err := Sum32(hdu)
	if err != nil {
		return "", err
	}
	return EncodeSum(^sum), nil
}

// DataSum returns the DATASUM string for a padded data unit
func DataSum(data []byte) (string, error) {
	sum, err := Sum32(data)
	if err != nil {
		return "", err
	}
	return strconv.FormatUint(uint64(sum), 10), nil
}
