package validate

import (
	"testing"

	perr "ffiassembler/internal/platform/errors"
	"ffiassembler/internal/platform/testkit"
)

type runBody struct {
	Timestamp string   `json:"timestamp" validate:"required,ffi_timestamp"`
	Mission   string   `json:"mission" validate:"omitempty,ffi_mission"`
	Variants  []string `json:"variants" validate:"omitempty,dive,ffi_variant"`
	Channels  string   `json:"channels" validate:"ffi_channels"`
	Release   int      `json:"data_release" validate:"min=1,max=99"`
}

func TestStructTags(t *testing.T) {
	t.Parallel()
	good := runBody{Timestamp: "2009114174833", Mission: "kepler", Variants: []string{"cal", "uncert"}, Channels: "2.1,24.4", Release: 25}
	if err := Struct(good); err != nil {
		t.Fatalf("valid body: %v", err)
	}

	cases := []struct {
		name  string
		mut   func(*runBody)
		field string
		msg   string
	}{
		{"missing timestamp", func(b *runBody) { b.Timestamp = "" }, "timestamp", "required"},
		{"bad timestamp", func(b *runBody) { b.Timestamp = "2009-114" }, "timestamp", "yyyydddhhmmss"},
		{"day 400", func(b *runBody) { b.Timestamp = "2009400174833" }, "timestamp", "yyyydddhhmmss"},
		{"bad mission", func(b *runBody) { b.Mission = "tess" }, "mission", "kepler or k2"},
		{"bad variant", func(b *runBody) { b.Variants = []string{"cal", "raw"} }, "variants[1]", "cal or uncert"},
		{"bad channel", func(b *runBody) { b.Channels = "1.1" }, "channels", "module.output"},
		{"release low", func(b *runBody) { b.Release = 0 }, "data_release", "at least 1"},
		{"release high", func(b *runBody) { b.Release = 100 }, "data_release", "at most 99"},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			b := good
			tc.mut(&b)
			err := Struct(b)
			if !perr.IsCode(err, perr.ErrorCodeValidation) {
				t.Fatalf("err = %v, want validation", err)
			}
			e, _ := perr.As(err)
			if e.Field() != tc.field {
				t.Fatalf("field = %q, want %q", e.Field(), tc.field)
			}
			testkit.MustContain(t, err.Error(), tc.msg)
		})
	}
}

type timing struct {
	FrameMs   float64 `yaml:"frame_time_ms" validate:"gt=0"`
	ReadoutMs float64 `yaml:"readout_time_ms" validate:"gt=0"`
}

func TestFieldNamesFallBackToYAML(t *testing.T) {
	t.Parallel()
	err := Struct(timing{FrameMs: 6.02})
	e, ok := perr.As(err)
	if !ok || e.Field() != "readout_time_ms" {
		t.Fatalf("err = %v", err)
	}
}

func TestStructMisuse(t *testing.T) {
	t.Parallel()
	if err := Struct(42); perr.IsCode(err, perr.ErrorCodeValidation) || err == nil {
		t.Fatalf("non struct err = %v", err)
	}
	if f, m := FieldAndMessage(nil); f != "" || m != "" {
		t.Fatalf("nil = %q %q", f, m)
	}
}
