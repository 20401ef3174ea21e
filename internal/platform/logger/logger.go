// Package logger owns the process root zerolog logger and the context
// fields that pipeline and request log lines carry
package logger

import (
	"os"
	"runtime/debug"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/pkgerrors"
)

// Logger is the project-wide logging type
type Logger = zerolog.Logger

var (
	initOnce sync.Once
	rootLog  *Logger
)

// Init builds the root logger from opt; only the first call has effect
func Init(opt Options) {
	initOnce.Do(func() { setRoot(opt) })
}

// Get returns the root logger, initializing it from the environment when needed
func Get() *Logger {
	initOnce.Do(func() { setRoot(FromEnv()) })
	return rootLog
}

func setRoot(opt Options) {
	zerolog.ErrorStackMarshaler = pkgerrors.MarshalStack
	zerolog.TimeFieldFormat = time.RFC3339Nano
	l := build(opt)
	rootLog = &l
}

// Nop returns a logger that drops everything
func Nop() Logger { return zerolog.Nop() }

// Named returns a child of the root logger tagged with component
func Named(component string) *Logger {
	if component == "" {
		return Get()
	}
	l := Get().With().Str("component", component).Logger()
	return &l
}

func build(opt Options) Logger {
	out := opt.Writer
	if out == nil {
		out = os.Stderr
	}
	if opt.Format == "console" {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	}

	with := zerolog.New(out).Level(level(opt.Level)).With().Timestamp()
	if bi, ok := debug.ReadBuildInfo(); ok {
		with = with.Str("go_version", bi.GoVersion)
	}
	for k, v := range map[string]string{"service": opt.Service, "component": opt.Component} {
		if v != "" {
			with = with.Str(k, v)
		}
	}
	for k, v := range opt.Static {
		with = with.Str(k, v)
	}
	if opt.WithCaller {
		with = with.Caller()
	}

	l := with.Logger()
	if opt.SampleEvery > 1 {
		l = l.Sample(&zerolog.BasicSampler{N: uint32(opt.SampleEvery)})
	}
	return l
}

// level parses s, treating "warning" as warn and anything unknown as info
func level(s string) zerolog.Level {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "warning" {
		s = "warn"
	}
	lv, err := zerolog.ParseLevel(s)
	if err != nil || s == "" {
		return zerolog.InfoLevel
	}
	return lv
}
