package fits

// BlockSize is the FITS logical record length
const BlockSize = 2880

// PaddedLen rounds n up to the next block boundary
func PaddedLen(n int) int {
	if r := n % BlockSize; r != 0 {
		return n + BlockSize - r
	}
	return n
}

// Aligned reports whether n is a whole number of blocks
func Aligned(n int) bool { return n%BlockSize == 0 }

// PadBlock extends b with fill up to the next block boundary
// Headers pad with blanks, data units with zero bytes
func PadBlock(b []byte, fill byte) []byte {
	n := PaddedLen(len(b))
	for len(b) < n {
		b = append(b, fill)
	}
	return b
}
