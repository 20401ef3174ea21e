// Package testkit holds assertions and seam helpers shared by package tests
package testkit

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	perr "ffiassembler/internal/platform/errors"
)

// recordSize is the FITS logical record every header and data unit is padded to
const recordSize = 2880

// MustPanic fails t unless fn panics
func MustPanic(t *testing.T, fn func()) {
	t.Helper()
	defer func() {
		if recover() == nil {
			t.Fatalf("fn returned without panicking")
		}
	}()
	fn()
}

// MustNotPanic fails t with the recovered value when fn panics
func MustNotPanic(t *testing.T, fn func()) {
	t.Helper()
	defer func() {
		if r := recover(); r != nil {
			t.Fatalf("fn panicked: %v", r)
		}
	}()
	fn()
}

// MustContain fails t unless out contains want
// Long outputs such as rendered tables or log streams are saved to a temp file and named in the failure
func MustContain(t *testing.T, out, want string) {
	t.Helper()
	if strings.Contains(out, want) {
		return
	}
	if len(out) < 512 {
		t.Fatalf("%q not found in %q", want, out)
	}
	dump := filepath.Join(t.TempDir(), "output.txt")
	_ = os.WriteFile(dump, []byte(out), 0o600)
	t.Fatalf("%q not found; output saved to %s", want, dump)
}

// MustCode fails t unless err carries code
func MustCode(t *testing.T, err error, code perr.ErrorCode) {
	t.Helper()
	if !perr.IsCode(err, code) {
		t.Fatalf("error = %v (code %s), want code %s", err, perr.CodeOf(err), code)
	}
}

// MustAligned fails t unless b fills whole 2880-byte records
func MustAligned(t *testing.T, b []byte) {
	t.Helper()
	if len(b) == 0 || len(b)%recordSize != 0 {
		t.Fatalf("%d bytes is not a whole number of %d-byte records", len(b), recordSize)
	}
}
