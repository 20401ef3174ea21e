package headers

import (
	"strconv"
	"time"

	"ffiassembler/internal/core/fits"

	perr "ffiassembler/internal/platform/errors"
	ptime "ffiassembler/internal/platform/time"
)

// Stamp carries the integrity records a header ends with
// Every field is fixed by the caller before the first checksum pass
type Stamp struct {
	Checksum  string
	DataSum   string
	Generated time.Time
}

// Placeholder is the pass-one stamp for a data unit with the given DATASUM
func Placeholder(dataSum string, generated time.Time) Stamp {
	return Stamp{Checksum: fits.ChecksumPlaceholder, DataSum: dataSum, Generated: generated}
}

// WithChecksum returns the pass-two stamp
func (s Stamp) WithChecksum(checksum string) Stamp {
	s.Checksum = checksum
	return s
}

func (s Stamp) comment() string { return "HDU checksum updated " + ptime.Stamp(s.Generated) }

func (s Stamp) validate() error {
	if len(s.Checksum) != 16 {
		return perr.WithField(perr.Contractf("checksum %q is not 16 characters", s.Checksum), "CHECKSUM")
	}
	if _, err := strconv.ParseUint(s.DataSum, 10, 32); err != nil {
		return perr.WithField(perr.Contractf("datasum %q is not an unsigned 32-bit decimal", s.DataSum), "DATASUM")
	}
	if s.Generated.IsZero() {
		return perr.WithField(perr.Contractf("generation time not fixed"), "CHECKSUM")
	}
	return nil
}
