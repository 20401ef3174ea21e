package service

import (
	"bytes"
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"ffiassembler/internal/adapters/blobstore"
	"ffiassembler/internal/core/fits"
	"ffiassembler/internal/core/focalplane"
	"ffiassembler/internal/core/headers"
	"ffiassembler/internal/core/product"
	perr "ffiassembler/internal/platform/errors"
	"ffiassembler/internal/platform/logger"
	"ffiassembler/internal/platform/testkit"
	"ffiassembler/internal/services/assembly/domain"
	"ffiassembler/internal/services/calibration/calibtest"
	calibdom "ffiassembler/internal/services/calibration/domain"
	calibrepo "ffiassembler/internal/services/calibration/repo"
	calibsvc "ffiassembler/internal/services/calibration/service"
	fragdom "ffiassembler/internal/services/fragments/domain"
	"ffiassembler/internal/services/fragments/fragtest"
	fragsvc "ffiassembler/internal/services/fragments/service"
)

var generated = time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)

func source() calibdom.Source { return calibsvc.New(nil, calibrepo.NewMemory(calibtest.Snapshot())) }

// fixture writes inputs for every channel but skip and generates their fragments at stamp
func fixture(t *testing.T, stamp time.Time, skip ...focalplane.Channel) *blobstore.FS {
	t.Helper()
	fs, err := blobstore.Open(t.TempDir())
	if err != nil {
		t.Fatalf("blobstore: %v", err)
	}
	fragtest.PutAll(t, fs, product.Calibrated, skip...)
	gen := fragsvc.New(fs, source(), fragsvc.Config{Workers: 8})
	_, err = gen.Generate(context.Background(), fragdom.Job{
		RunID: "run-1", Timestamp: fragtest.Timestamp, Variant: product.Calibrated,
		AllowMissing: true, Generated: stamp,
	})
	if err != nil {
		t.Fatalf("generate fragments: %v", err)
	}
	return fs
}

func job(allowMissing bool, stamp time.Time) domain.Job {
	return domain.Job{
		RunID:        "run-1",
		Timestamp:    fragtest.Timestamp,
		Mission:      product.Kepler,
		Variant:      product.Calibrated,
		DataRelease:  25,
		AllowMissing: allowMissing,
		Generated:    stamp,
		Software:     headers.Software{Creator: "ffi-assembler test", ProcVer: "spoc-test", FileVersion: "2.0"},
	}
}

func readFile(t *testing.T, fs *blobstore.FS, k blobstore.Key) []byte {
	t.Helper()
	b, err := fs.ReadAll(context.Background(), k)
	if err != nil {
		t.Fatalf("read %s: %v", k, err)
	}
	return b
}

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestTolerantAssemblySkipsMissingChannel(t *testing.T) {
	testkit.Serial(t)
	logs := &syncBuffer{}
	testkit.Swap(t, &logFor, func(context.Context) *logger.Logger {
		l := zerolog.New(logs)
		return &l
	})

	missing := focalplane.Channel{Module: 17, Output: 2}
	fs := fixture(t, generated, missing)
	res, err := New(fs, source(), Config{}).Assemble(context.Background(), job(true, generated))
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	if len(res.Channels) != focalplane.Count-1 || len(res.Skipped) != 1 || res.Skipped[0] != missing || res.Reused {
		t.Fatalf("result = %+v", res)
	}
	testkit.MustContain(t, logs.String(), `"channel":"17.2"`)
	testkit.MustContain(t, logs.String(), `"reason":"fragment missing"`)

	b := readFile(t, fs, res.Key)
	if int64(len(b)) != res.Bytes || !fits.Aligned(len(b)) {
		t.Fatalf("file is %d bytes, result says %d", len(b), res.Bytes)
	}
	reports, err := fits.Verify(b)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if len(reports) != focalplane.Count || len(fits.Failed(reports)) != 0 {
		t.Fatalf("reports = %d failed %+v", len(reports), fits.Failed(reports))
	}
	for _, r := range reports[1:] {
		if r.ExtName == missing.ExtName() {
			t.Fatalf("missing channel present in output")
		}
	}

	units, _ := fits.ReadHDUs(b)
	prim := units[0].Header
	if n, _ := prim.Value("NEXTEND").AsInt(); n != focalplane.Count-1 {
		t.Fatalf("NEXTEND = %d", n)
	}
	if q, _ := prim.Value("QUARTER").AsInt(); q != 1 {
		t.Fatalf("QUARTER = %d", q)
	}
	if ra, _ := prim.Value("RA_NOM").AsFloat(); ra != 290.6667 {
		t.Fatalf("RA_NOM = %v", ra)
	}
	if sc, _ := prim.Value("SCCONFIG").AsInt(); sc != 54 {
		t.Fatalf("SCCONFIG = %d", sc)
	}
	if name, _ := units[1].Header.Value("EXTNAME").AsString(); name != "MOD.OUT 2.1" {
		t.Fatalf("first extension = %q", name)
	}

	_, frag := fragsvc.Keys(fragtest.Timestamp, product.Calibrated, focalplane.Reference)
	if !bytes.Equal(units[1].Raw, readFile(t, fs, frag)) {
		t.Fatalf("fragment bytes were not copied verbatim")
	}
}

func TestStrictAssemblyFailsWithoutOutput(t *testing.T) {
	t.Parallel()
	missing := focalplane.Channel{Module: 11, Output: 4}
	fs := fixture(t, generated, missing)

	_, err := New(fs, source(), Config{}).Assemble(context.Background(), job(false, generated))
	if !perr.IsCode(err, perr.ErrorCodeNotFound) {
		t.Fatalf("err = %v", err)
	}
	testkit.MustContain(t, err.Error(), "11-4")
	if ok, _ := fs.Exists(context.Background(), domain.OutputKey(fragtest.Timestamp, product.Calibrated)); ok {
		t.Fatalf("strict failure left an output file")
	}
}

func TestRepresentativeChannel(t *testing.T) {
	t.Parallel()
	fs := fixture(t, generated, focalplane.Reference)

	res, err := New(fs, source(), Config{}).Assemble(context.Background(), job(true, generated))
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	if res.Representative != (focalplane.Channel{Module: 2, Output: 2}) {
		t.Fatalf("tolerant representative = %s", res.Representative)
	}

	full := fixture(t, generated)
	ref := focalplane.Channel{Module: 13, Output: 3}
	res, err = New(full, source(), Config{Reference: ref}).Assemble(context.Background(), job(false, generated))
	if err != nil {
		t.Fatalf("strict Assemble: %v", err)
	}
	if res.Representative != ref || len(res.Channels) != focalplane.Count {
		t.Fatalf("strict result = %+v", res)
	}
}

// faultyBlobs fails sidecar reads and raw reads of chosen keys
type faultyBlobs struct {
	*blobstore.FS
	stat map[blobstore.Key]bool
	read map[blobstore.Key]bool
}

func (f faultyBlobs) Stat(ctx context.Context, k blobstore.Key) (blobstore.Meta, error) {
	if f.stat[k] {
		return blobstore.Meta{}, perr.Unavailablef("disk I/O error")
	}
	return f.FS.Stat(ctx, k)
}

func (f faultyBlobs) ReadAll(ctx context.Context, k blobstore.Key) ([]byte, error) {
	if f.read[k] {
		return nil, perr.Unavailablef("disk I/O error")
	}
	return f.FS.ReadAll(ctx, k)
}

func TestUnreadableFragmentIsSkippedWhenTolerant(t *testing.T) {
	t.Parallel()
	bad := focalplane.Channel{Module: 7, Output: 3}
	_, frag := fragsvc.Keys(fragtest.Timestamp, product.Calibrated, bad)
	fs := fixture(t, generated)
	blobs := faultyBlobs{FS: fs, stat: map[blobstore.Key]bool{frag: true}}

	if _, err := New(blobs, source(), Config{}).Assemble(context.Background(), job(false, generated)); !perr.IsCode(err, perr.ErrorCodeUnavailable) {
		t.Fatalf("strict err = %v", err)
	}

	res, err := New(blobs, source(), Config{}).Assemble(context.Background(), job(true, generated))
	if err != nil {
		t.Fatalf("tolerant Assemble: %v", err)
	}
	if len(res.Channels) != focalplane.Count-1 || len(res.Skipped) != 1 || res.Skipped[0] != bad {
		t.Fatalf("result = %+v", res)
	}
	reports, err := fits.Verify(readFile(t, fs, res.Key))
	if err != nil || len(reports) != focalplane.Count || len(fits.Failed(reports)) != 0 {
		t.Fatalf("reports = %d, %v", len(reports), err)
	}
}

func TestRepresentativeFallsThroughUnreadableInput(t *testing.T) {
	t.Parallel()
	in, _ := fragsvc.Keys(fragtest.Timestamp, product.Calibrated, focalplane.Reference)
	fs := fixture(t, generated)
	blobs := faultyBlobs{FS: fs, read: map[blobstore.Key]bool{in: true}}

	res, err := New(blobs, source(), Config{}).Assemble(context.Background(), job(true, generated))
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	if res.Representative != (focalplane.Channel{Module: 2, Output: 2}) || len(res.Channels) != focalplane.Count {
		t.Fatalf("result = %+v", res)
	}

	strict := faultyBlobs{FS: fixture(t, generated), read: map[blobstore.Key]bool{in: true}}
	if _, err := New(strict, source(), Config{}).Assemble(context.Background(), job(false, generated)); !perr.IsCode(err, perr.ErrorCodeUnavailable) {
		t.Fatalf("strict err = %v", err)
	}
}

func TestOutputsDifferOnlyInChecksumCards(t *testing.T) {
	t.Parallel()
	later := generated.Add(26 * time.Hour)
	a, b := fixture(t, generated), fixture(t, later)

	ra, err := New(a, source(), Config{}).Assemble(context.Background(), job(false, generated))
	if err != nil {
		t.Fatalf("first: %v", err)
	}
	rb, err := New(b, source(), Config{}).Assemble(context.Background(), job(false, later))
	if err != nil {
		t.Fatalf("second: %v", err)
	}
	fa, fb := readFile(t, a, ra.Key), readFile(t, b, rb.Key)
	if len(fa) != len(fb) {
		t.Fatalf("sizes %d vs %d", len(fa), len(fb))
	}

	differing := 0
	for off := 0; off < len(fa); off += fits.CardSize {
		ca, cb := fa[off:off+fits.CardSize], fb[off:off+fits.CardSize]
		if bytes.Equal(ca, cb) {
			continue
		}
		if !bytes.HasPrefix(ca, []byte("CHECKSUM")) || !bytes.HasPrefix(cb, []byte("CHECKSUM")) {
			t.Fatalf("bytes differ outside a CHECKSUM card at %d:\n%q\n%q", off, ca, cb)
		}
		differing++
	}
	if differing != focalplane.Count+1 {
		t.Fatalf("differing CHECKSUM cards = %d", differing)
	}
}

func TestExistingOutputIsReused(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	fs := fixture(t, generated)
	svc := New(fs, source(), Config{})
	first, err := svc.Assemble(ctx, job(false, generated))
	if err != nil {
		t.Fatalf("first: %v", err)
	}
	again, err := svc.Assemble(ctx, job(false, generated.Add(time.Hour)))
	if err != nil {
		t.Fatalf("again: %v", err)
	}
	if !again.Reused || again.Bytes != first.Bytes || again.Key != first.Key {
		t.Fatalf("again = %+v", again)
	}
}

func TestAssembleRejects(t *testing.T) {
	t.Parallel()
	fs, err := blobstore.Open(t.TempDir())
	if err != nil {
		t.Fatalf("blobstore: %v", err)
	}
	svc := New(fs, source(), Config{})
	cases := []struct {
		name   string
		mutate func(*domain.Job)
		code   perr.ErrorCode
	}{
		{"mission", func(j *domain.Job) { j.Mission = "tess" }, perr.ErrorCodeInvalidArgument},
		{"release", func(j *domain.Job) { j.DataRelease = -1 }, perr.ErrorCodeInvalidArgument},
		{"stamp", func(j *domain.Job) { j.Generated = time.Time{} }, perr.ErrorCodeContract},
		{"nothing to assemble", func(j *domain.Job) {}, perr.ErrorCodeNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			j := job(true, generated)
			tc.mutate(&j)
			if _, err := svc.Assemble(context.Background(), j); !perr.IsCode(err, tc.code) {
				t.Fatalf("err = %v", err)
			}
		})
	}
	testkit.MustPanic(t, func() { New(fs, source(), Config{Reference: focalplane.Channel{Module: 1, Output: 1}}) })
}
