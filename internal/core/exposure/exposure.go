// Package exposure converts instrument timing constants into exposure, dead time
// and flux conversion quantities
package exposure

import (
	"ffiassembler/internal/core/fits"
	"ffiassembler/internal/platform/validate"
)

// Parameters are the timing constants from the spacecraft configuration map
type Parameters struct {
	FGSFrameTimeMs       float64 `json:"fgs_frame_time_ms" yaml:"fgs_frame_time_ms" validate:"gt=0"`
	ReadoutTimeMs        float64 `json:"readout_time_ms" yaml:"readout_time_ms" validate:"gt=0"`
	FramesPerIntegration int32   `json:"frames_per_integration" yaml:"frames_per_integration" validate:"gt=0"`
	IntegrationsPerImage int32   `json:"integrations_per_image" yaml:"integrations_per_image" validate:"gt=0"`
}

// Derived are the exposure quantities for one image
type Derived struct {
	DeadC                   float64
	ElapsedDays             float64
	LiveTimeDays            float64
	IntegrationTimeSec      float64
	ReadTimeSec             float64
	FrameTimeSec            float64
	FluxPerSecondConversion float64
}

// Model is built once per file from a configuration snapshot
type Model struct {
	p Parameters
}

// New returns a model over p; every constant must be positive
func New(p Parameters) (Model, error) {
	if err := validate.Struct(p); err != nil {
		return Model{}, err
	}
	return Model{p: p}, nil
}

// Parameters returns the constants the model was built from
func (m Model) Parameters() Parameters { return m.p }

// integrationMs is the exposed time of one integration
func (m Model) integrationMs() float64 {
	return float64(m.p.FramesPerIntegration) * m.p.FGSFrameTimeMs
}

// DeadC is the fraction of each integration cycle spent collecting signal
func (m Model) DeadC() float64 {
	exposed := m.integrationMs()
	return exposed / (exposed + m.p.ReadoutTimeMs)
}

// FluxPerSecondConversion scales summed counts to counts per second
func (m Model) FluxPerSecondConversion() float64 {
	return 1000 / (m.p.FGSFrameTimeMs * float64(m.p.FramesPerIntegration) * float64(m.p.IntegrationsPerImage))
}

// Derive computes the exposure quantities for the interval [startMJD, endMJD]
func (m Model) Derive(startMJD, endMJD float64) Derived {
	deadC := m.DeadC()
	elapsed := endMJD - startMJD
	return Derived{
		DeadC:                   deadC,
		ElapsedDays:             elapsed,
		LiveTimeDays:            elapsed * deadC,
		IntegrationTimeSec:      m.integrationMs() / 1000,
		ReadTimeSec:             m.p.ReadoutTimeMs / 1000,
		FrameTimeSec:            (m.integrationMs() + m.p.ReadoutTimeMs) / 1000,
		FluxPerSecondConversion: m.FluxPerSecondConversion(),
	}
}

// Convert maps a summed count image to flux per second
// Products are taken in double precision and stored as single precision
func (m Model) Convert(in fits.Image) fits.Image {
	k := m.FluxPerSecondConversion()
	out := fits.NewImage(in.Width, in.Height)
	for i, v := range in.Pix {
		out.Pix[i] = float32(float64(v) * k)
	}
	return out
}
