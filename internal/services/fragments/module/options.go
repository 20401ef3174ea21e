package module

import (
	"time"

	"ffiassembler/internal/core/focalplane"
	"ffiassembler/internal/platform/config"
	perr "ffiassembler/internal/platform/errors"
)

// Options holds configuration options for fragment generation
type Options struct {
	Workers          int
	MaxRetries       int
	RetryBase        time.Duration
	ChannelTimeout   time.Duration
	ReadTimeout      time.Duration
	WriteTimeout     time.Duration
	DBTimeout        time.Duration
	ReferenceChannel focalplane.Channel
	Stats            bool
}

// FromConfig reads the fragment options with the FFI_FRAGMENTS_ prefix
func FromConfig(cfg config.Conf) (Options, error) {
	c := cfg.Prefix("FFI_FRAGMENTS_")
	ref, err := focalplane.Parse(c.MayString("REFERENCE_CHANNEL", focalplane.Reference.String()))
	if err != nil {
		return Options{}, perr.WithField(perr.Annotate(err, "reference channel"), "FFI_FRAGMENTS_REFERENCE_CHANNEL")
	}
	return Options{
		Workers:          c.MayInt("WORKERS", 8),
		MaxRetries:       c.MayInt("RETRIES", 3),
		RetryBase:        c.MayDuration("RETRY_BASE", 250*time.Millisecond),
		ChannelTimeout:   c.MayDuration("CHANNEL_TIMEOUT", 5*time.Minute),
		ReadTimeout:      c.MayDuration("READ_TIMEOUT", time.Minute),
		WriteTimeout:     c.MayDuration("WRITE_TIMEOUT", time.Minute),
		DBTimeout:        c.MayDuration("DB_TIMEOUT", 10*time.Second),
		ReferenceChannel: ref,
		Stats:            c.MayBool("STATS", true),
	}, nil
}
