package repo

import (
	"context"
	"io"
	"os"
	"sync"

	"gopkg.in/yaml.v3"

	"ffiassembler/internal/core/astrometry"
	"ffiassembler/internal/core/rolltime"
	"ffiassembler/internal/modkit/repokit"
	perr "ffiassembler/internal/platform/errors"
	"ffiassembler/internal/platform/validate"
	"ffiassembler/internal/services/calibration/domain"
)

// DecodeSnapshot reads a YAML snapshot; unknown keys are rejected
func DecodeSnapshot(r io.Reader) (domain.Snapshot, error) {
	var s domain.Snapshot
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&s); err != nil {
		if err == io.EOF {
			return domain.Snapshot{}, perr.InvalidArgf("empty calibration snapshot")
		}
		return domain.Snapshot{}, perr.Wrap(err, perr.ErrorCodeMalformed, "decode calibration snapshot")
	}
	if err := validate.Struct(s); err != nil {
		return domain.Snapshot{}, perr.Annotate(err, "calibration snapshot")
	}
	if err := s.CheckChannels(); err != nil {
		return domain.Snapshot{}, err
	}
	return s, nil
}

// LoadSnapshot reads a YAML snapshot file
func LoadSnapshot(path string) (domain.Snapshot, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return domain.Snapshot{}, perr.NotFoundf("calibration snapshot %s", path)
		}
		return domain.Snapshot{}, perr.Wrapf(err, perr.ErrorCodeUnavailable, "open %s", path)
	}
	defer f.Close()
	return DecodeSnapshot(f)
}

// Memory keeps a snapshot in process and binds it regardless of the queryer
type Memory struct {
	mu sync.RWMutex
	s  domain.Snapshot
}

// NewMemory returns an in-process binder over s
func NewMemory(s domain.Snapshot) *Memory { return &Memory{s: s} }

// Bind implements repokit.Binder; q is unused
func (m *Memory) Bind(repokit.Queryer) domain.StorageRepo { return m }

func (m *Memory) ConfigMaps(_ context.Context, rg domain.Range) ([]domain.ConfigMap, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []domain.ConfigMap
	for _, cm := range m.s.ConfigMaps {
		if cm.Covers(rg.StartMJD, rg.EndMJD) {
			out = append(out, cm)
		}
	}
	return out, nil
}

func (m *Memory) Gains(_ context.Context, rg domain.Range) ([]float64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return domain.Covering(m.s.Gains, rg), nil
}

func (m *Memory) ReadNoise(_ context.Context, rg domain.Range) ([]float64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return domain.Covering(m.s.ReadNoise, rg), nil
}

func (m *Memory) MeanBlack(_ context.Context, rg domain.Range) ([]int32, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return domain.Covering(m.s.MeanBlack, rg), nil
}

func (m *Memory) RollTimes(context.Context) ([]rolltime.Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]rolltime.Entry(nil), m.s.RollTimes...), nil
}

func (m *Memory) WCS(_ context.Context, rg domain.Range) ([]astrometry.WCS, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return domain.Covering(m.s.WCS, rg), nil
}

func (m *Memory) Barycentric(_ context.Context, rg domain.Range) ([]astrometry.Barycentric, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return domain.Covering(m.s.Barycentric, rg), nil
}

// Import appends s to the in-process snapshot
func (m *Memory) Import(_ context.Context, s domain.Snapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.s.ConfigMaps = append(m.s.ConfigMaps, s.ConfigMaps...)
	m.s.Gains = append(m.s.Gains, s.Gains...)
	m.s.ReadNoise = append(m.s.ReadNoise, s.ReadNoise...)
	m.s.MeanBlack = append(m.s.MeanBlack, s.MeanBlack...)
	m.s.RollTimes = append(m.s.RollTimes, s.RollTimes...)
	m.s.WCS = append(m.s.WCS, s.WCS...)
	m.s.Barycentric = append(m.s.Barycentric, s.Barycentric...)
	return nil
}
