package eventproc

import (
	"log/slog"

	"go.uber.org/zap"

	"github.com/hubflow/eventproc/internal/logging"
	"github.com/hubflow/eventproc/types"
)

// NewZapLogger adapts a zap SugaredLogger to the Logger interface, mapping
// each level to the corresponding *w method so key-value pairs come out as
// structured fields.
//
// Parameters:
//   - sugar: Sugared zap logger
//
// Returns:
//   - Logger: Adapter usable with WithLogger
//
// Example:
//
//	zlog, _ := zap.NewProduction()
//	client, err := eventproc.NewConsumerClient(cfg, hub, store,
//	    eventproc.WithLogger(eventproc.NewZapLogger(zlog.Sugar())))
func NewZapLogger(sugar *zap.SugaredLogger) Logger {
	return &zapLogger{sugar: sugar}
}

// NewSlogLogger adapts a standard library slog.Logger to the Logger
// interface.
func NewSlogLogger(logger *slog.Logger) Logger {
	return logging.NewSlog(logger)
}

type zapLogger struct {
	sugar *zap.SugaredLogger
}

var _ types.Logger = (*zapLogger)(nil)

func (l *zapLogger) Debug(msg string, keysAndValues ...any) {
	l.sugar.Debugw(msg, keysAndValues...)
}

func (l *zapLogger) Info(msg string, keysAndValues ...any) {
	l.sugar.Infow(msg, keysAndValues...)
}

func (l *zapLogger) Warn(msg string, keysAndValues ...any) {
	l.sugar.Warnw(msg, keysAndValues...)
}

func (l *zapLogger) Error(msg string, keysAndValues ...any) {
	l.sugar.Errorw(msg, keysAndValues...)
}
