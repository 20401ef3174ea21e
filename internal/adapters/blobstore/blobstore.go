// Package blobstore keeps write-once blobs on the local filesystem keyed by
// (timestamp, type, module, output)
//
// Layout: <root>/<timestamp>/<type>/<module>-<output>.blob with a CBOR
// sidecar <module>-<output>.meta carrying the blake3 digest of the
// uncompressed bytes. A key is stored only when both files are present; the
// sidecar is published first, so a crash leaves at most an orphan sidecar
// that the next Put replaces
package blobstore

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"hash"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/zeebo/blake3"

	"ffiassembler/internal/platform/config"
	perr "ffiassembler/internal/platform/errors"
)

// Key addresses one blob
type Key struct {
	Timestamp string `cbor:"timestamp" json:"timestamp"`
	Type      string `cbor:"type" json:"type"`
	Module    int    `cbor:"module" json:"module"`
	Output    int    `cbor:"output" json:"output"`
}

func (k Key) String() string {
	return fmt.Sprintf("%s/%s/%d-%d", k.Timestamp, k.Type, k.Module, k.Output)
}

var segment = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_.-]*$`)

func (k Key) validate() error {
	if !segment.MatchString(k.Timestamp) {
		return perr.WithField(perr.InvalidArgf("bad blob timestamp %q", k.Timestamp), "timestamp")
	}
	if !segment.MatchString(k.Type) {
		return perr.WithField(perr.InvalidArgf("bad blob type %q", k.Type), "type")
	}
	if k.Module < 0 || k.Output < 0 {
		return perr.WithField(perr.InvalidArgf("bad blob channel %d.%d", k.Module, k.Output), "module")
	}
	return nil
}

// Options configures a store
type Options struct {
	Compression Compression
	// Verify checks digest and size while blobs are read
	Verify bool
	Now    func() time.Time
}

// Option mutates Options
type Option func(*Options)

// WithCompression sets the codec for new blobs
func WithCompression(c Compression) Option { return func(o *Options) { o.Compression = c } }

// WithVerify toggles digest verification on read
func WithVerify(v bool) Option { return func(o *Options) { o.Verify = v } }

// WithClock overrides the sidecar timestamp source
func WithClock(now func() time.Time) Option { return func(o *Options) { o.Now = now } }

// Config is the FFI_BLOB_* view
type Config struct {
	Root        string
	Compression Compression
	Verify      bool
}

// FromConfig reads FFI_BLOB_ROOT, FFI_BLOB_COMPRESSION and FFI_BLOB_VERIFY
func FromConfig(cfg config.Conf) (Config, error) {
	c := cfg.Prefix("FFI_BLOB_")
	comp, err := ParseCompression(c.MayString("COMPRESSION", string(CompressionNone)))
	if err != nil {
		return Config{}, err
	}
	return Config{
		Root:        c.MayString("ROOT", "blobs"),
		Compression: comp,
		Verify:      c.MayBool("VERIFY", true),
	}, nil
}

// FS is a filesystem blob store, safe for concurrent use
// Writers of one key are serialized in process; across processes the
// dataset lease keeps a single writer per key
type FS struct {
	root  string
	opt   Options
	locks sync.Map // Key -> *sync.Mutex
}

// Open creates root if needed
func Open(root string, opts ...Option) (*FS, error) {
	if root == "" {
		return nil, perr.WithField(perr.InvalidArgf("empty blob root"), "root")
	}
	o := Options{Compression: CompressionNone, Verify: true, Now: time.Now}
	for _, fn := range opts {
		fn(&o)
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, perr.Wrap(err, perr.ErrorCodeUnavailable, "create blob root")
	}
	return &FS{root: root, opt: o}, nil
}

// OpenConfig opens the store a Config describes
func OpenConfig(c Config, opts ...Option) (*FS, error) {
	return Open(c.Root, append([]Option{WithCompression(c.Compression), WithVerify(c.Verify)}, opts...)...)
}

// Root is the directory blobs live under
func (s *FS) Root() string { return s.root }

func (s *FS) paths(k Key) (blob, meta string) {
	base := filepath.Join(s.root, k.Timestamp, k.Type, strconv.Itoa(k.Module)+"-"+strconv.Itoa(k.Output))
	return base + ".blob", base + ".meta"
}

func (s *FS) lock(k Key) func() {
	v, _ := s.locks.LoadOrStore(k, &sync.Mutex{})
	mu := v.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

func present(path string) (bool, error) {
	_, err := os.Stat(path)
	switch {
	case err == nil:
		return true, nil
	case os.IsNotExist(err):
		return false, nil
	default:
		return false, perr.Wrap(err, perr.ErrorCodeUnavailable, "stat blob")
	}
}

// Exists reports whether a blob and its sidecar were stored under k
func (s *FS) Exists(ctx context.Context, k Key) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	if err := k.validate(); err != nil {
		return false, err
	}
	blob, meta := s.paths(k)
	for _, p := range []string{blob, meta} {
		if ok, err := present(p); err != nil || !ok {
			return false, err
		}
	}
	return true, nil
}

// Stat returns the sidecar of k
func (s *FS) Stat(ctx context.Context, k Key) (Meta, error) {
	if ok, err := s.Exists(ctx, k); err != nil {
		return Meta{}, err
	} else if !ok {
		return Meta{}, perr.Annotate(perr.ErrNotFound, "blob %s", k)
	}
	_, meta := s.paths(k)
	m, err := readMeta(meta)
	if err != nil {
		return Meta{}, perr.Annotate(err, "blob %s", k)
	}
	return m, nil
}

// Put streams r into a new blob under k
// A second write to the same key is a conflict and leaves the first intact
func (s *FS) Put(ctx context.Context, k Key, r io.Reader) (Meta, error) {
	if err := k.validate(); err != nil {
		return Meta{}, err
	}
	defer s.lock(k)()
	if ok, err := s.Exists(ctx, k); err != nil {
		return Meta{}, err
	} else if ok {
		return Meta{}, perr.Conflictf("blob %s already exists", k)
	}
	blob, meta := s.paths(k)
	dir := filepath.Dir(blob)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return Meta{}, perr.Wrap(err, perr.ErrorCodeUnavailable, "create blob dir")
	}

	tmp, err := os.CreateTemp(dir, ".put-*")
	if err != nil {
		return Meta{}, perr.Wrap(err, perr.ErrorCodeUnavailable, "create temp blob")
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	h := blake3.New()
	stored := &countingWriter{w: tmp}
	comp, err := compressor(stored, s.opt.Compression)
	if err != nil {
		_ = tmp.Close()
		return Meta{}, err
	}
	n, err := io.Copy(io.MultiWriter(h, comp), ctxReader{ctx: ctx, r: r})
	if err != nil {
		_ = comp.Close()
		_ = tmp.Close()
		if ctx.Err() != nil {
			return Meta{}, ctx.Err()
		}
		return Meta{}, perr.Wrap(err, perr.ErrorCodeUnavailable, "write blob "+k.String())
	}
	if err := comp.Close(); err != nil {
		_ = tmp.Close()
		return Meta{}, perr.Wrap(err, perr.ErrorCodeUnavailable, "flush blob")
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return Meta{}, perr.Wrap(err, perr.ErrorCodeUnavailable, "sync blob")
	}
	if err := tmp.Close(); err != nil {
		return Meta{}, perr.Wrap(err, perr.ErrorCodeUnavailable, "close blob")
	}

	m := Meta{
		Key:         k,
		Size:        n,
		Digest:      hex.EncodeToString(h.Sum(nil)),
		Compression: s.opt.Compression,
		StoredSize:  stored.n,
		CreatedAt:   s.opt.Now().UTC(),
	}
	metaTmp := tmpName + ".meta"
	defer func() { _ = os.Remove(metaTmp) }()
	if err := writeMeta(metaTmp, m); err != nil {
		return Meta{}, err
	}

	if err := os.Rename(metaTmp, meta); err != nil {
		return Meta{}, perr.Wrap(err, perr.ErrorCodeUnavailable, "publish sidecar")
	}
	// a blob left without its sidecar is not stored; replace it
	if err := os.Remove(blob); err != nil && !os.IsNotExist(err) {
		return Meta{}, perr.Wrap(err, perr.ErrorCodeUnavailable, "remove orphan blob")
	}
	if err := os.Link(tmpName, blob); err != nil {
		if errors.Is(err, os.ErrExist) {
			return Meta{}, perr.Conflictf("blob %s already exists", k)
		}
		return Meta{}, perr.Wrap(err, perr.ErrorCodeUnavailable, "publish blob")
	}
	return m, nil
}

// Open streams the uncompressed bytes of k
// With verification on, the final Read reports an integrity error instead of
// io.EOF when the digest or size disagree with the sidecar
func (s *FS) Open(ctx context.Context, k Key) (io.ReadCloser, error) {
	m, err := s.Stat(ctx, k)
	if err != nil {
		return nil, err
	}
	blob, _ := s.paths(k)
	f, err := os.Open(blob)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, perr.Annotate(perr.ErrNotFound, "blob %s", k)
		}
		return nil, perr.Wrap(err, perr.ErrorCodeUnavailable, "open blob")
	}
	dec, err := decompressor(f, m.Compression)
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	rc := &blobReader{r: dec, dec: dec, f: f}
	if s.opt.Verify {
		rc.h = blake3.New()
		rc.want = m
	}
	return rc, nil
}

// ReadAll loads the whole blob
func (s *FS) ReadAll(ctx context.Context, k Key) ([]byte, error) {
	rc, err := s.Open(ctx, k)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rc.Close() }()
	b, err := io.ReadAll(rc)
	if err != nil {
		return nil, perr.Annotate(err, "read blob %s", k)
	}
	return b, nil
}

// List returns the keys stored under timestamp and type in module, output order
func (s *FS) List(ctx context.Context, timestamp, typ string) ([]Key, error) {
	probe := Key{Timestamp: timestamp, Type: typ}
	if err := probe.validate(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(filepath.Join(s.root, timestamp, typ))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, perr.Wrap(err, perr.ErrorCodeUnavailable, "list blobs")
	}
	var out []Key
	for _, e := range entries {
		name, ok := strings.CutSuffix(e.Name(), ".blob")
		if !ok || e.IsDir() {
			continue
		}
		if ok, err := present(filepath.Join(s.root, timestamp, typ, name+".meta")); err != nil {
			return nil, err
		} else if !ok {
			continue
		}
		mod, outp, ok := strings.Cut(name, "-")
		if !ok {
			continue
		}
		m, err1 := strconv.Atoi(mod)
		o, err2 := strconv.Atoi(outp)
		if err1 != nil || err2 != nil {
			continue
		}
		out = append(out, Key{Timestamp: timestamp, Type: typ, Module: m, Output: o})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Module != out[j].Module {
			return out[i].Module < out[j].Module
		}
		return out[i].Output < out[j].Output
	})
	return out, nil
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}

type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (c ctxReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}

type blobReader struct {
	r    io.Reader
	dec  io.Closer
	f    *os.File
	h    hash.Hash
	n    int64
	want Meta
}

func (b *blobReader) Read(p []byte) (int, error) {
	n, err := b.r.Read(p)
	b.n += int64(n)
	if b.h != nil && n > 0 {
		_, _ = b.h.Write(p[:n])
	}
	if err == io.EOF && b.h != nil {
		if b.n != b.want.Size {
			return n, perr.Integrityf("blob %s is %d bytes, sidecar says %d", b.want.Key, b.n, b.want.Size)
		}
		if got := hex.EncodeToString(b.h.Sum(nil)); got != b.want.Digest {
			return n, perr.Integrityf("blob %s digest %s, sidecar says %s", b.want.Key, got, b.want.Digest)
		}
	}
	return n, err
}

func (b *blobReader) Close() error {
	_ = b.dec.Close()
	return b.f.Close()
}
