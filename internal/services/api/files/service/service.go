// Package service reads assembled files and describes their headers
package service

import (
	"context"
	"io"

	"ffiassembler/internal/adapters/blobstore"
	"ffiassembler/internal/core/fits"
	"ffiassembler/internal/core/product"
	perr "ffiassembler/internal/platform/errors"
	asmdom "ffiassembler/internal/services/assembly/domain"
)

// Blobs is the read side of the blob store
type Blobs interface {
	Stat(ctx context.Context, k blobstore.Key) (blobstore.Meta, error)
	Open(ctx context.Context, k blobstore.Key) (io.ReadCloser, error)
	ReadAll(ctx context.Context, k blobstore.Key) ([]byte, error)
}

// Card is one header record as JSON
type Card struct {
	Key     string `json:"key"`
	Value   any    `json:"value"`
	Comment string `json:"comment,omitempty"`
}

// Unit is one header and its verification outcome
type Unit struct {
	Index    int    `json:"index"`
	ExtName  string `json:"extname,omitempty"`
	Checksum string `json:"checksum"`
	DataSum  string `json:"datasum"`
	DataLen  int    `json:"data_bytes"`
	OK       bool   `json:"ok"`
	Error    string `json:"error,omitempty"`
	Cards    []Card `json:"cards"`
}

// Dump describes a whole file
type Dump struct {
	Key      string `json:"key"`
	Bytes    int64  `json:"bytes"`
	Verified bool   `json:"verified"`
	Units    []Unit `json:"units"`
}

// Service serves assembled files
type Service struct {
	Blobs Blobs
}

// New constructs the file service
func New(blobs Blobs) *Service {
	if blobs == nil {
		panic("files.Service requires a blob store")
	}
	return &Service{Blobs: blobs}
}

// Key resolves the blob key of an assembled file
func Key(timestamp, variant string) (blobstore.Key, error) {
	if err := product.ValidateTimestamp(timestamp); err != nil {
		return blobstore.Key{}, err
	}
	v, err := product.ParseVariant(variant)
	if err != nil {
		return blobstore.Key{}, err
	}
	return asmdom.OutputKey(timestamp, v), nil
}

// Open returns the metadata and a reader over the file; the caller closes it
func (s *Service) Open(ctx context.Context, timestamp, variant string) (blobstore.Meta, io.ReadCloser, error) {
	k, err := Key(timestamp, variant)
	if err != nil {
		return blobstore.Meta{}, nil, err
	}
	m, err := s.Blobs.Stat(ctx, k)
	if err != nil {
		return blobstore.Meta{}, nil, perr.Annotate(err, "file %s", k)
	}
	rc, err := s.Blobs.Open(ctx, k)
	if err != nil {
		return blobstore.Meta{}, nil, perr.Annotate(err, "file %s", k)
	}
	return m, rc, nil
}

// Headers reads the file and describes every unit
func (s *Service) Headers(ctx context.Context, timestamp, variant string) (Dump, error) {
	k, err := Key(timestamp, variant)
	if err != nil {
		return Dump{}, err
	}
	b, err := s.Blobs.ReadAll(ctx, k)
	if err != nil {
		return Dump{}, perr.Annotate(err, "file %s", k)
	}
	d, err := Describe(b)
	d.Key = k.String()
	return d, err
}

// Describe splits b into units and verifies each one
func Describe(b []byte) (Dump, error) {
	units, err := fits.ReadHDUs(b)
	if err != nil {
		return Dump{}, err
	}
	d := Dump{Bytes: int64(len(b)), Verified: true, Units: make([]Unit, len(units))}
	for i, u := range units {
		out := Unit{Index: i, DataLen: len(u.Data), OK: true}
		out.ExtName, _ = u.Header.Value("EXTNAME").AsString()
		out.Checksum, _ = u.Header.Value("CHECKSUM").AsString()
		out.DataSum, _ = u.Header.Value("DATASUM").AsString()
		if err := u.Verify(); err != nil {
			out.OK, out.Error, d.Verified = false, err.Error(), false
		}
		for _, r := range u.Header.Records() {
			out.Cards = append(out.Cards, Card{Key: r.Key, Value: r.Value.Any(), Comment: r.Comment})
		}
		d.Units[i] = out
	}
	return d, nil
}
