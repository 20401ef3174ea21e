// Package calibtest builds calibration snapshots for tests
package calibtest

import (
	"ffiassembler/internal/core/astrometry"
	"ffiassembler/internal/core/exposure"
	"ffiassembler/internal/core/focalplane"
	"ffiassembler/internal/core/rolltime"
	"ffiassembler/internal/services/calibration/domain"
)

// Window is an observation interval every fixture record covers
var Window = domain.Span{StartMJD: 55000.0, EndMJD: 55000.0204}

// Validity is the span fixture records are valid for
var Validity = domain.Span{StartMJD: 54900, EndMJD: 55100}

// Parameters are long-cadence FFI timing constants
var Parameters = exposure.Parameters{
	FGSFrameTimeMs:       6.02,
	ReadoutTimeMs:        518.95,
	FramesPerIntegration: 9,
	IntegrationsPerImage: 270,
}

// WCSChannel is the only channel the fixture has a sky projection for
var WCSChannel = focalplane.Channel{Module: 2, Output: 1}

// NoBarycentric is the only channel the fixture has no barycentric model for
var NoBarycentric = focalplane.Channel{Module: 2, Output: 2}

// Snapshot returns a snapshot covering Window for all 84 channels
func Snapshot() domain.Snapshot {
	s := domain.Snapshot{
		ConfigMaps: []domain.ConfigMap{{SCConfigID: 54, Span: Validity, Parameters: Parameters}},
		RollTimes: []rolltime.Entry{
			{MJD: 54800, Season: 1, Quarter: 0, Campaign: rolltime.Unknown},
			{MJD: 54950, Season: 2, Quarter: 1, Campaign: rolltime.Unknown},
			{MJD: 55100, Season: 3, Quarter: 2, Campaign: rolltime.Unknown},
		},
	}
	for _, ch := range focalplane.All() {
		n := float64(ch.Number())
		s.Gains = append(s.Gains, value(ch, 100+n/10))
		s.ReadNoise = append(s.ReadNoise, value(ch, 80+n/100))
		s.MeanBlack = append(s.MeanBlack, value(ch, int32(700+ch.Number())))
		if ch != NoBarycentric {
			s.Barycentric = append(s.Barycentric, value(ch, astrometry.Barycentric{
				ReferenceRow:    512,
				ReferenceColumn: 550,
				CorrectionDays:  float32(0.0025 + n/1e6),
			}))
		}
	}
	s.WCS = append(s.WCS, value(WCSChannel, WCS()))
	return s
}

// WCS is a valid projection with a second order distortion
func WCS() astrometry.WCS {
	return astrometry.WCS{
		Valid:  true,
		CRPix1: 550, CRPix2: 512,
		CRVal1: 290.6667, CRVal2: 44.5,
		CD: [2][2]float64{{-0.0011, 0.0001}, {0.0001, 0.0011}},
		A:  astrometry.Polynomial{Order: 2, Terms: []astrometry.Term{{P: 2, Q: 0, Value: 1.2e-6}, {P: 0, Q: 2, Value: -3.4e-7}}},
		B:  astrometry.Polynomial{Order: 2, Terms: []astrometry.Term{{P: 1, Q: 1, Value: 5.6e-7}}},
		AP: astrometry.Polynomial{Order: 2},
		BP: astrometry.Polynomial{Order: 2},
	}
}

func value[T any](ch focalplane.Channel, v T) domain.ChannelValue[T] {
	return domain.ChannelValue[T]{Module: ch.Module, Output: ch.Output, Span: Validity, Value: v}
}
