// Package focalplane enumerates the photometer's module/output channels
package focalplane

import (
	"fmt"
	"strconv"
	"strings"

	perr "ffiassembler/internal/platform/errors"
)

// Count is the number of channels on the focal plane
const Count = 84

// OutputsPerModule is the number of readout outputs on each CCD module
const OutputsPerModule = 4

// modules lists the populated CCD modules; the four corners hold guide sensors
var modules = []int{2, 3, 4, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15, 16, 17, 18, 19, 20, 22, 23, 24}

// Channel is one module/output pair
type Channel struct {
	Module int
	Output int
}

// Reference is the default representative channel
var Reference = Channel{Module: 2, Output: 1}

func moduleIndex(m int) int {
	for i, v := range modules {
		if v == m {
			return i
		}
	}
	return -1
}

// Valid reports whether c is a populated module with an output in 1-4
func (c Channel) Valid() bool {
	return moduleIndex(c.Module) >= 0 && c.Output >= 1 && c.Output <= OutputsPerModule
}

// Number returns the 1-based channel number or 0 when c is not valid
func (c Channel) Number() int {
	if !c.Valid() {
		return 0
	}
	return moduleIndex(c.Module)*OutputsPerModule + c.Output
}

func (c Channel) String() string { return fmt.Sprintf("%d.%d", c.Module, c.Output) }

// ExtName is the image extension name for c
func (c Channel) ExtName() string { return fmt.Sprintf("MOD.OUT %d.%d", c.Module, c.Output) }

// FromNumber maps a 1-based channel number back to its module/output
func FromNumber(n int) (Channel, error) {
	if n < 1 || n > Count {
		return Channel{}, perr.InvalidArgf("channel number %d outside 1-%d", n, Count)
	}
	return Channel{Module: modules[(n-1)/OutputsPerModule], Output: (n-1)%OutputsPerModule + 1}, nil
}

// All returns every channel in the fixed iteration order, module then output ascending
func All() []Channel {
	out := make([]Channel, 0, Count)
	for _, m := range modules {
		for o := 1; o <= OutputsPerModule; o++ {
			out = append(out, Channel{Module: m, Output: o})
		}
	}
	return out
}

// Parse accepts "module.output", "module/output" or a bare channel number
func Parse(s string) (Channel, error) {
	s = strings.TrimSpace(s)
	if i := strings.IndexAny(s, "./"); i > 0 {
		m, err1 := strconv.Atoi(s[:i])
		o, err2 := strconv.Atoi(s[i+1:])
		c := Channel{Module: m, Output: o}
		if err1 != nil || err2 != nil || !c.Valid() {
			return Channel{}, perr.InvalidArgf("invalid channel %q", s)
		}
		return c, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return Channel{}, perr.InvalidArgf("invalid channel %q", s)
	}
	return FromNumber(n)
}

// ParseList parses a comma separated list; an empty list means every channel
func ParseList(s string) ([]Channel, error) {
	if strings.TrimSpace(s) == "" {
		return All(), nil
	}
	var out []Channel
	seen := map[Channel]bool{}
	for _, part := range strings.Split(s, ",") {
		c, err := Parse(part)
		if err != nil {
			return nil, err
		}
		if !seen[c] {
			seen[c] = true
			out = append(out, c)
		}
	}
	return Sort(out), nil
}

// Sort orders channels by the fixed iteration order
func Sort(cs []Channel) []Channel {
	out := append([]Channel(nil), cs...)
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j].Number() < out[j-1].Number(); j-- {
			out[j], out[j-1] = out[j-1], out[j]
		}
	}
	return out
}
