package instrument

import (
	"io"
	"os"
	"sync/atomic"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var defaultSink atomic.Pointer[zap.Logger]

func init() {
	defaultSink.Store(NewSink(os.Stdout))
}

// NewSink creates a logger that writes bare message lines to w, so the
// instrumentation line format is preserved verbatim.
func NewSink(w io.Writer) *zap.Logger {
	encoderConfig := zapcore.EncoderConfig{
		MessageKey: "message",
		LineEnding: zapcore.DefaultLineEnding,
	}
	core := zapcore.NewCore(
		zapcore.NewConsoleEncoder(encoderConfig),
		zapcore.AddSync(w),
		zapcore.InfoLevel,
	)
	return zap.New(core)
}

// Default returns the process-wide sink (stdout unless replaced)
func Default() *zap.Logger {
	return defaultSink.Load()
}

// SetDefault replaces the process-wide sink. Call it once at startup.
func SetDefault(sink *zap.Logger) {
	if sink == nil {
		sink = zap.NewNop()
	}
	defaultSink.Store(sink)
}

// Output maps a configured output name to its stream
func Output(name string) io.Writer {
	if name == "stderr" {
		return os.Stderr
	}
	return os.Stdout
}

func resolve(sink *zap.Logger) *zap.Logger {
	if sink == nil {
		return Default()
	}
	return sink
}
