// Package domain holds the calibration records and the exactly-one lookup
// contract shared by every calibration source
package domain

import (
	"ffiassembler/internal/core/astrometry"
	"ffiassembler/internal/core/exposure"
	"ffiassembler/internal/core/focalplane"
	"ffiassembler/internal/core/rolltime"

	perr "ffiassembler/internal/platform/errors"
)

// Span is the MJD range a record is valid for, inclusive on both ends
type Span struct {
	StartMJD float64 `json:"start_mjd" yaml:"start_mjd" validate:"gt=0"`
	EndMJD   float64 `json:"end_mjd" yaml:"end_mjd" validate:"gtefield=StartMJD"`
}

// Covers reports whether the record is valid over all of [start, end]
func (s Span) Covers(start, end float64) bool { return s.StartMJD <= start && s.EndMJD >= end }

// ConfigMap is one spacecraft configuration map with its timing constants
type ConfigMap struct {
	SCConfigID          int32 `json:"sc_config_id" yaml:"sc_config_id"`
	Span                `yaml:",inline"`
	exposure.Parameters `yaml:",inline"`
}

// ChannelValue is a per-channel calibration constant valid over a span
type ChannelValue[T any] struct {
	Module int `json:"module" yaml:"module" validate:"min=2,max=24"`
	Output int `json:"output" yaml:"output" validate:"min=1,max=4"`
	Span   `yaml:",inline"`
	Value  T `json:"value" yaml:"value"`
}

// Channel returns the channel the value belongs to
func (v ChannelValue[T]) Channel() focalplane.Channel {
	return focalplane.Channel{Module: v.Module, Output: v.Output}
}

// Snapshot is a complete set of calibration records, the YAML import format
type Snapshot struct {
	ConfigMaps  []ConfigMap                             `json:"config_maps" yaml:"config_maps" validate:"dive"`
	Gains       []ChannelValue[float64]                 `json:"gains" yaml:"gains" validate:"dive"`
	ReadNoise   []ChannelValue[float64]                 `json:"read_noise" yaml:"read_noise" validate:"dive"`
	MeanBlack   []ChannelValue[int32]                   `json:"mean_black" yaml:"mean_black" validate:"dive"`
	RollTimes   []rolltime.Entry                        `json:"roll_times" yaml:"roll_times"`
	WCS         []ChannelValue[astrometry.WCS]          `json:"wcs" yaml:"wcs" validate:"dive"`
	Barycentric []ChannelValue[astrometry.Barycentric] `json:"barycentric" yaml:"barycentric" validate:"dive"`
}

// CheckChannels rejects per-channel records for channels that do not exist
func (s Snapshot) CheckChannels() error {
	check := func(table string, ch focalplane.Channel) error {
		if ch.Valid() {
			return nil
		}
		return perr.WithField(perr.Newf(perr.ErrorCodeValidation, "%s record for unknown channel %s", table, ch), table)
	}
	for _, v := range s.Gains {
		if err := check("gains", v.Channel()); err != nil {
			return err
		}
	}
	for _, v := range s.ReadNoise {
		if err := check("read_noise", v.Channel()); err != nil {
			return err
		}
	}
	for _, v := range s.MeanBlack {
		if err := check("mean_black", v.Channel()); err != nil {
			return err
		}
	}
	for _, v := range s.WCS {
		if err := check("wcs", v.Channel()); err != nil {
			return err
		}
	}
	for _, v := range s.Barycentric {
		if err := check("barycentric", v.Channel()); err != nil {
			return err
		}
	}
	return nil
}

// Counts summarizes a snapshot per table
type Counts struct {
	ConfigMaps  int `json:"config_maps"`
	Gains       int `json:"gains"`
	ReadNoise   int `json:"read_noise"`
	MeanBlack   int `json:"mean_black"`
	RollTimes   int `json:"roll_times"`
	WCS         int `json:"wcs"`
	Barycentric int `json:"barycentric"`
}

// Counts returns the number of records per table
func (s Snapshot) Counts() Counts {
	return Counts{
		ConfigMaps:  len(s.ConfigMaps),
		Gains:       len(s.Gains),
		ReadNoise:   len(s.ReadNoise),
		MeanBlack:   len(s.MeanBlack),
		RollTimes:   len(s.RollTimes),
		WCS:         len(s.WCS),
		Barycentric: len(s.Barycentric),
	}
}

// Range is a lookup window; Channel is ignored for file-wide records
type Range struct {
	Channel  focalplane.Channel
	StartMJD float64
	EndMJD   float64
}

// ExactlyOne enforces the lookup contract over candidate matches
// zero is not found and more than one is a conflict
func ExactlyOne[T any](what string, rg Range, matches []T) (T, error) {
	var zero T
	switch len(matches) {
	case 1:
		return matches[0], nil
	case 0:
		return zero, perr.NotFoundf("no %s covers [%.8f, %.8f]%s", what, rg.StartMJD, rg.EndMJD, rg.suffix())
	default:
		return zero, perr.Conflictf("%d %s records cover [%.8f, %.8f]%s", len(matches), what, rg.StartMJD, rg.EndMJD, rg.suffix())
	}
}

func (rg Range) suffix() string {
	if rg.Channel == (focalplane.Channel{}) {
		return ""
	}
	return " for channel " + rg.Channel.String()
}

// Covering filters per-channel values to those valid for rg
func Covering[T any](vals []ChannelValue[T], rg Range) []T {
	var out []T
	for _, v := range vals {
		if v.Channel() == rg.Channel && v.Covers(rg.StartMJD, rg.EndMJD) {
			out = append(out, v.Value)
		}
	}
	return out
}
