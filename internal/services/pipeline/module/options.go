package module

import (
	"ffiassembler/internal/platform/config"
	"ffiassembler/internal/services/pipeline/domain"
)

// Options holds the run defaults read with the FFI_PIPELINE_ prefix
type Options struct {
	Variants     []string
	Mission      string
	DataRelease  int
	AllowMissing bool
	Channels     string
	FileVersion  string
}

// FromConfig reads the pipeline options
func FromConfig(cfg config.Conf) Options {
	c := cfg.Prefix("FFI_PIPELINE_")
	return Options{
		Variants:     c.MayCSV("VARIANTS", []string{"cal", "uncert"}),
		Mission:      c.MayEnum("MISSION", "kepler", "kepler", "k2"),
		DataRelease:  c.MayInt("DATA_RELEASE", 0),
		AllowMissing: c.MayBool("ALLOW_MISSING", false),
		Channels:     c.MayString("CHANNELS", ""),
		FileVersion:  c.MayString("FILE_VERSION", "1.0"),
	}
}

// Request builds a run request for timestamp from the defaults
func (o Options) Request(timestamp string) domain.Request {
	return domain.Request{
		Timestamp:    timestamp,
		Mission:      o.Mission,
		Variants:     append([]string(nil), o.Variants...),
		DataRelease:  o.DataRelease,
		AllowMissing: o.AllowMissing,
		Channels:     o.Channels,
	}
}
