package blobstore

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"ffiassembler/internal/platform/config"
	perr "ffiassembler/internal/platform/errors"
)

var fixed = time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)

func payload(n int) []byte {
	b := make([]byte, n)
	for i := range b {
		b[i] = byte(i % 251)
	}
	return b
}

func key(m, o int) Key {
	return Key{Timestamp: "2009114174833", Type: "ffi-fragment-cal", Module: m, Output: o}
}

func TestPutOpenRoundTrip(t *testing.T) {
	t.Parallel()
	for _, c := range []Compression{CompressionNone, CompressionLZ4, CompressionZstd} {
		c := c
		t.Run(string(c), func(t *testing.T) {
			t.Parallel()
			s, err := Open(t.TempDir(), WithCompression(c), WithClock(func() time.Time { return fixed }))
			if err != nil {
				t.Fatalf("Open: %v", err)
			}
			ctx := context.Background()
			want := payload(3 * 2880)
			m, err := s.Put(ctx, key(13, 2), bytes.NewReader(want))
			if err != nil {
				t.Fatalf("Put: %v", err)
			}
			if m.Size != int64(len(want)) || m.Compression != c || len(m.Digest) != 64 || !m.CreatedAt.Equal(fixed) {
				t.Fatalf("meta = %+v", m)
			}
			if c != CompressionNone && m.StoredSize >= m.Size {
				t.Fatalf("%s stored %d of %d bytes", c, m.StoredSize, m.Size)
			}
			got, err := s.ReadAll(ctx, key(13, 2))
			if err != nil {
				t.Fatalf("ReadAll: %v", err)
			}
			if !bytes.Equal(got, want) {
				t.Fatalf("round trip mismatch")
			}
			st, err := s.Stat(ctx, key(13, 2))
			if err != nil || st.Digest != m.Digest || st.Key != key(13, 2) {
				t.Fatalf("Stat = %+v, %v", st, err)
			}
		})
	}
}

func TestPutIsWriteOnce(t *testing.T) {
	t.Parallel()
	s, _ := Open(t.TempDir())
	ctx := context.Background()
	if _, err := s.Put(ctx, key(2, 1), bytes.NewReader([]byte("first"))); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if _, err := s.Put(ctx, key(2, 1), bytes.NewReader([]byte("second"))); !perr.IsCode(err, perr.ErrorCodeConflict) {
		t.Fatalf("second Put err = %v", err)
	}
	got, _ := s.ReadAll(ctx, key(2, 1))
	if string(got) != "first" {
		t.Fatalf("first write clobbered: %q", got)
	}
}

func TestConcurrentPutsOneWinner(t *testing.T) {
	t.Parallel()
	s, _ := Open(t.TempDir())
	ctx := context.Background()
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		wins      int
		conflicts int
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := s.Put(ctx, key(6, 3), bytes.NewReader(payload(100+i)))
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				wins++
			case perr.IsCode(err, perr.ErrorCodeConflict):
				conflicts++
			default:
				t.Errorf("Put: %v", err)
			}
		}(i)
	}
	wg.Wait()
	if wins != 1 || conflicts != 7 {
		t.Fatalf("wins=%d conflicts=%d", wins, conflicts)
	}
	if _, err := s.ReadAll(ctx, key(6, 3)); err != nil {
		t.Fatalf("winner unreadable: %v", err)
	}
}

func TestMissingBlob(t *testing.T) {
	t.Parallel()
	s, _ := Open(t.TempDir())
	ctx := context.Background()
	ok, err := s.Exists(ctx, key(24, 4))
	if err != nil || ok {
		t.Fatalf("Exists = %v, %v", ok, err)
	}
	if _, err := s.Open(ctx, key(24, 4)); !errors.Is(err, perr.ErrNotFound) {
		t.Fatalf("Open missing err = %v", err)
	}
}

func TestVerifyDetectsTampering(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	s, _ := Open(root)
	ctx := context.Background()
	if _, err := s.Put(ctx, key(3, 1), bytes.NewReader(payload(2880))); err != nil {
		t.Fatalf("Put: %v", err)
	}
	blob, _ := s.paths(key(3, 1))
	b, _ := os.ReadFile(blob)
	b[100] ^= 0xFF
	if err := os.WriteFile(blob, b, 0o644); err != nil {
		t.Fatalf("tamper: %v", err)
	}
	if _, err := s.ReadAll(ctx, key(3, 1)); !perr.IsCode(err, perr.ErrorCodeIntegrity) {
		t.Fatalf("tampered read err = %v", err)
	}

	lax, _ := Open(root, WithVerify(false))
	if _, err := lax.ReadAll(ctx, key(3, 1)); err != nil {
		t.Fatalf("unverified read: %v", err)
	}
}

func TestHalfWrittenKeyIsAbsentAndWritable(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	cases := map[string]func(blob, meta string) string{
		"blob without sidecar": func(_, meta string) string { return meta },
		"sidecar without blob": func(blob, _ string) string { return blob },
	}
	for name, lose := range cases {
		s, _ := Open(t.TempDir())
		k := key(4, 2)
		if _, err := s.Put(ctx, k, bytes.NewReader([]byte("first"))); err != nil {
			t.Fatalf("%s: Put: %v", name, err)
		}
		_ = os.Remove(lose(s.paths(k)))

		if ok, err := s.Exists(ctx, k); ok || err != nil {
			t.Fatalf("%s: Exists = %v, %v", name, ok, err)
		}
		if _, err := s.Stat(ctx, k); !perr.IsCode(err, perr.ErrorCodeNotFound) {
			t.Fatalf("%s: Stat err = %v", name, err)
		}
		if _, err := s.Open(ctx, k); !perr.IsCode(err, perr.ErrorCodeNotFound) {
			t.Fatalf("%s: Open err = %v", name, err)
		}
		if keys, _ := s.List(ctx, k.Timestamp, k.Type); len(keys) != 0 {
			t.Fatalf("%s: List = %v", name, keys)
		}

		if _, err := s.Put(ctx, k, bytes.NewReader([]byte("second"))); err != nil {
			t.Fatalf("%s: rewrite: %v", name, err)
		}
		b, err := s.ReadAll(ctx, k)
		if err != nil || string(b) != "second" {
			t.Fatalf("%s: ReadAll = %q, %v", name, b, err)
		}
	}
}

func TestKeyValidation(t *testing.T) {
	t.Parallel()
	s, _ := Open(t.TempDir())
	ctx := context.Background()
	bad := []Key{
		{Timestamp: "../etc", Type: "cal", Module: 2, Output: 1},
		{Timestamp: "2009114174833", Type: "a/b", Module: 2, Output: 1},
		{Timestamp: "", Type: "cal"},
		{Timestamp: "2009114174833", Type: "cal", Module: -1},
	}
	for _, k := range bad {
		if _, err := s.Put(ctx, k, bytes.NewReader(nil)); !perr.IsCode(err, perr.ErrorCodeInvalidArgument) {
			t.Fatalf("Put(%+v) err = %v", k, err)
		}
	}
}

func TestListOrdersByChannel(t *testing.T) {
	t.Parallel()
	s, _ := Open(t.TempDir())
	ctx := context.Background()
	for _, k := range []Key{key(13, 2), key(2, 4), key(2, 1), key(10, 3)} {
		if _, err := s.Put(ctx, k, bytes.NewReader([]byte("x"))); err != nil {
			t.Fatalf("Put: %v", err)
		}
	}
	got, err := s.List(ctx, "2009114174833", "ffi-fragment-cal")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	want := []Key{key(2, 1), key(2, 4), key(10, 3), key(13, 2)}
	if len(got) != len(want) {
		t.Fatalf("List = %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("List[%d] = %v, want %v", i, got[i], want[i])
		}
	}
	none, err := s.List(ctx, "2009114174833", "uncert")
	if err != nil || len(none) != 0 {
		t.Fatalf("List empty = %v, %v", none, err)
	}
}

func TestPutHonorsCancel(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	s, _ := Open(root)
	ctx, cancel := context.WithCancel(context.Background())
	r := io.MultiReader(bytes.NewReader(payload(10)), readerFunc(func([]byte) (int, error) {
		cancel()
		return 0, nil
	}), bytes.NewReader(payload(10)))
	if _, err := s.Put(ctx, key(7, 1), r); !errors.Is(err, context.Canceled) {
		t.Fatalf("cancelled Put err = %v", err)
	}
	if ok, _ := s.Exists(context.Background(), key(7, 1)); ok {
		t.Fatalf("cancelled Put left a blob")
	}
	entries, _ := os.ReadDir(filepath.Join(root, "2009114174833", "ffi-fragment-cal"))
	if len(entries) != 0 {
		t.Fatalf("temp files left: %v", entries)
	}
}

type readerFunc func([]byte) (int, error)

func (f readerFunc) Read(p []byte) (int, error) { return f(p) }

func TestFromConfig(t *testing.T) {
	t.Parallel()
	c, err := FromConfig(config.FromMap(map[string]string{
		"FFI_BLOB_ROOT":        "/data/ffi",
		"FFI_BLOB_COMPRESSION": "zstd",
		"FFI_BLOB_VERIFY":      "false",
	}))
	if err != nil {
		t.Fatalf("FromConfig: %v", err)
	}
	if c.Root != "/data/ffi" || c.Compression != CompressionZstd || c.Verify {
		t.Fatalf("config = %+v", c)
	}
	if _, err := FromConfig(config.FromMap(map[string]string{"FFI_BLOB_COMPRESSION": "gzip"})); err == nil {
		t.Fatalf("unknown codec should fail")
	}
}
