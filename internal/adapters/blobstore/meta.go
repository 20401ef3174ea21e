package blobstore

import (
	"os"
	"time"

	"github.com/fxamacker/cbor/v2"

	perr "ffiassembler/internal/platform/errors"
)

// Meta is the sidecar stored next to every blob
type Meta struct {
	Key         Key         `cbor:"key" json:"key"`
	Size        int64       `cbor:"size" json:"size"`
	Digest      string      `cbor:"digest" json:"digest"`
	Compression Compression `cbor:"compression" json:"compression"`
	StoredSize  int64       `cbor:"stored_size" json:"stored_size"`
	CreatedAt   time.Time   `cbor:"created_at" json:"created_at"`
}

var (
	encMode cbor.EncMode
	decMode cbor.DecMode
)

func init() {
	opts := cbor.CoreDetEncOptions()
	opts.Time = cbor.TimeRFC3339Nano
	var err error
	if encMode, err = opts.EncMode(); err != nil {
		panic("blobstore: cbor encode mode: " + err.Error())
	}
	if decMode, err = (cbor.DecOptions{DupMapKey: cbor.DupMapKeyEnforcedAPF}).DecMode(); err != nil {
		panic("blobstore: cbor decode mode: " + err.Error())
	}
}

// writeMeta writes the sidecar to path
func writeMeta(path string, m Meta) error {
	b, err := encMode.Marshal(m)
	if err != nil {
		return perr.Wrap(err, perr.ErrorCodeContract, "encode sidecar")
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return perr.Wrap(err, perr.ErrorCodeUnavailable, "write sidecar")
	}
	return nil
}

// readMeta loads a sidecar; without one the blob is not stored
func readMeta(path string) (Meta, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Meta{}, perr.Annotate(perr.ErrNotFound, "sidecar")
		}
		return Meta{}, perr.Wrap(err, perr.ErrorCodeUnavailable, "read sidecar")
	}
	var m Meta
	if err := decMode.Unmarshal(b, &m); err != nil {
		return Meta{}, perr.Wrap(err, perr.ErrorCodeIntegrity, "decode sidecar")
	}
	return m, nil
}
