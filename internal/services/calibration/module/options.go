package module

import (
	"ffiassembler/internal/platform/config"
)

// Sources a calibration module can read from
const (
	SourceSQL  = "sql"
	SourceYAML = "yaml"
)

// Options selects where calibration records come from
type Options struct {
	Source   string
	Snapshot string
}

// FromConfig reads options using the FFI_CALIBRATION_ prefix
func FromConfig(cfg config.Conf) Options {
	c := cfg.Prefix("FFI_CALIBRATION_")
	return Options{
		Source:   c.MayEnum("SOURCE", SourceSQL, SourceSQL, SourceYAML),
		Snapshot: c.MayString("SNAPSHOT", ""),
	}
}
