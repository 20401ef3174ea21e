package logger

import "context"

// fields are the values C copies from a context onto each line
type fields struct {
	RequestID string
	RunID     string
	Timestamp string
}

type fieldsKey struct{}

func from(ctx context.Context) fields {
	f, _ := ctx.Value(fieldsKey{}).(fields)
	return f
}

func with(ctx context.Context, edit func(*fields)) context.Context {
	f := from(ctx)
	before := f
	edit(&f)
	if f == before {
		return ctx
	}
	return context.WithValue(ctx, fieldsKey{}, f)
}

// WithRequest records an HTTP request id on ctx
func WithRequest(ctx context.Context, reqID string) context.Context {
	return with(ctx, func(f *fields) {
		if reqID != "" {
			f.RequestID = reqID
		}
	})
}

// WithRun records a pipeline run id and the FFI timestamp it assembles
func WithRun(ctx context.Context, runID, timestamp string) context.Context {
	return with(ctx, func(f *fields) {
		if runID != "" {
			f.RunID = runID
		}
		if timestamp != "" {
			f.Timestamp = timestamp
		}
	})
}

// RunID returns the run id recorded on ctx
func RunID(ctx context.Context) string { return from(ctx).RunID }

// C returns a child of the root logger carrying the fields recorded on ctx
func C(ctx context.Context) *Logger {
	f := from(ctx)
	b := Get().With()
	for _, kv := range [][2]string{{"request_id", f.RequestID}, {"run_id", f.RunID}, {"ts", f.Timestamp}} {
		if kv[1] != "" {
			b = b.Str(kv[0], kv[1])
		}
	}
	l := b.Logger()
	return &l
}
