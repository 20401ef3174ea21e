package pg

import (
	"context"
	"strings"

	"github.com/rs/zerolog"

	"ffiassembler/internal/platform/logger"
)

// QueryEvent is one finished statement
type QueryEvent struct {
	SQL       string
	Args      any
	ElapsedUS int64
	Err       error
	Slow      bool
}

// QueryTracer is told about every statement the adapter runs
type QueryTracer interface {
	OnQuery(ctx context.Context, ev QueryEvent)
}

// Tracer logs statements on a debug-enabled child of root
// Failed statements log at error, slow ones at warn and the rest at debug
func Tracer(root logger.Logger) QueryTracer {
	return logTracer{log: root.Level(zerolog.DebugLevel).With().Str("component", "pg").Logger()}
}

type logTracer struct{ log logger.Logger }

func (l logTracer) OnQuery(_ context.Context, ev QueryEvent) {
	level := zerolog.DebugLevel
	switch {
	case ev.Err != nil:
		level = zerolog.ErrorLevel
	case ev.Slow:
		level = zerolog.WarnLevel
	}
	l.log.WithLevel(level).
		Str("sql", oneLine(ev.SQL)).
		Interface("args", ev.Args).
		Float64("elapsed_ms", float64(ev.ElapsedUS)/1e3).
		Bool("slow", ev.Slow).
		Err(ev.Err).
		Msg("pg query")
}

// oneLine collapses runs of whitespace so multi-line statements log on one line
func oneLine(s string) string { return strings.Join(strings.Fields(s), " ") }
