package logger

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

// AnnotateError attaches slog key-value pairs to err. When the error is
// logged through a logger configured by this package, the pairs are emitted
// as top-level attributes. Returns nil if err is nil.
func AnnotateError(err error, args ...any) error {
	if err == nil {
		return nil
	}

	r := slog.NewRecord(time.Now(), slog.LevelDebug, "", 0)
	r.Add(args...)

	attrs := make([]slog.Attr, 0, r.NumAttrs())

	r.Attrs(func(attr slog.Attr) bool {
		attrs = append(attrs, attr)

		return true
	})

	return &slogError{err: err, attrs: attrs}
}

type slogError struct {
	err   error
	attrs []slog.Attr
}

func (s *slogError) Error() string { return s.err.Error() }
func (s *slogError) Unwrap() error { return s.err }

// ErrorAttrHandler decorates h so errors built with AnnotateError contribute
// their pairs to the record. A handler already decorated is returned as is.
func ErrorAttrHandler(h slog.Handler) slog.Handler { //nolint:ireturn
	if _, ok := h.(*slogErrorLogger); ok {
		return h
	}

	return &slogErrorLogger{inner: h}
}

type slogErrorLogger struct {
	inner slog.Handler
}

var _ slog.Handler = (*slogErrorLogger)(nil)

func (s *slogErrorLogger) Enabled(ctx context.Context, level slog.Level) bool {
	return s.inner.Enabled(ctx, level)
}

func (s *slogErrorLogger) Handle(ctx context.Context, record slog.Record) error {
	var (
		baseAttrs []slog.Attr
		errAttrs  []slog.Attr
	)

	record.Attrs(func(attr slog.Attr) bool {
		var se *slogError

		if err, ok := attr.Value.Any().(error); ok && errors.As(err, &se) {
			baseAttrs = append(baseAttrs, slog.Any(attr.Key, err))
			errAttrs = append(errAttrs, se.attrs...)
		} else {
			baseAttrs = append(baseAttrs, attr)
		}

		return true
	})

	if len(errAttrs) == 0 {
		return s.inner.Handle(ctx, record)
	}

	r := slog.NewRecord(record.Time, record.Level, record.Message, record.PC)
	r.AddAttrs(baseAttrs...)
	r.AddAttrs(errAttrs...)

	return s.inner.Handle(ctx, r)
}

func (s *slogErrorLogger) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &slogErrorLogger{inner: s.inner.WithAttrs(attrs)}
}

func (s *slogErrorLogger) WithGroup(name string) slog.Handler {
	return &slogErrorLogger{inner: s.inner.WithGroup(name)}
}
