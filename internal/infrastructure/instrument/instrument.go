// Package instrument provides stackable wrappers that time, log and measure
// an operation without changing its result or error.
//
// Wrappers compose by nested application; the wrapper applied last runs
// first on the way in and last on the way out:
//
//	op := instrument.Timed(sink, name, instrument.Logged(sink, tag, name, fn))
package instrument

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// Func is an operation that may be wrapped
type Func[T any] func(ctx context.Context, args ...any) (T, error)

// Named marks an argument as a named option rather than a positional one
type Named struct {
	Key   string
	Value any
}

// Kw creates a named argument
func Kw(key string, value any) Named {
	return Named{Key: key, Value: value}
}

// Arg returns the positional argument at index i (named arguments are
// skipped) converted to T.
func Arg[T any](args []any, i int) (T, bool) {
	var zero T
	n := 0
	for _, a := range args {
		if _, ok := a.(Named); ok {
			continue
		}
		if n == i {
			v, ok := a.(T)
			return v, ok
		}
		n++
	}
	return zero, false
}

// Option returns the named argument key converted to T
func Option[T any](args []any, key string) (T, bool) {
	var zero T
	for _, a := range args {
		if kw, ok := a.(Named); ok && kw.Key == key {
			v, ok := kw.Value.(T)
			return v, ok
		}
	}
	return zero, false
}

// Timed reports the wall-clock duration of fn.
// The line is written on success and, marked as failed, on error.
func Timed[T any](sink *zap.Logger, name string, fn Func[T]) Func[T] {
	return func(ctx context.Context, args ...any) (T, error) {
		out := resolve(sink)
		start := time.Now()
		res, err := fn(ctx, args...)
		elapsed := time.Since(start).Seconds()
		if err != nil {
			out.Info(fmt.Sprintf("[TIMED] %s took %.3f s (failed)", name, elapsed))
			return res, err
		}
		out.Info(fmt.Sprintf("[TIMED] %s took %.3f s", name, elapsed))
		return res, nil
	}
}

// Logged writes a line before calling fn and another after fn succeeds.
// An empty tag falls back to name.
func Logged[T any](sink *zap.Logger, tag, name string, fn Func[T]) Func[T] {
	if tag == "" {
		tag = name
	}
	return func(ctx context.Context, args ...any) (T, error) {
		out := resolve(sink)
		positional, named := splitArgs(args)
		out.Info(fmt.Sprintf("[LOG] (%s) Calling %s with args=%s kwargs=%s", tag, name, positional, named))
		res, err := fn(ctx, args...)
		if err != nil {
			return res, err
		}
		out.Info(fmt.Sprintf("[LOG] (%s) %s finished", tag, name))
		return res, nil
	}
}

// Measured observes the duration of fn into hist, labelled by operation and
// outcome ("success" or "error"). A nil hist leaves fn unwrapped.
func Measured[T any](hist *prometheus.HistogramVec, name string, fn Func[T]) Func[T] {
	if hist == nil {
		return fn
	}
	return func(ctx context.Context, args ...any) (T, error) {
		start := time.Now()
		res, err := fn(ctx, args...)
		outcome := "success"
		if err != nil {
			outcome = "error"
		}
		hist.WithLabelValues(name, outcome).Observe(time.Since(start).Seconds())
		return res, err
	}
}

func splitArgs(args []any) (string, string) {
	var positional []string
	named := make(map[string]string)
	for _, a := range args {
		if kw, ok := a.(Named); ok {
			named[kw.Key] = summarize(kw.Value)
			continue
		}
		positional = append(positional, summarize(a))
	}

	keys := make([]string, 0, len(named))
	for k := range named {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	pairs := make([]string, len(keys))
	for i, k := range keys {
		pairs[i] = fmt.Sprintf("%q: %s", k, named[k])
	}

	return "[" + strings.Join(positional, ", ") + "]", "{" + strings.Join(pairs, ", ") + "}"
}

// summarize renders an argument for a log line; raw bytes are reduced to
// their length.
func summarize(v any) string {
	switch x := v.(type) {
	case string:
		return fmt.Sprintf("%q", x)
	case []byte:
		return fmt.Sprintf("<%d bytes>", len(x))
	case fmt.Stringer:
		return x.String()
	default:
		return fmt.Sprintf("%v", x)
	}
}
