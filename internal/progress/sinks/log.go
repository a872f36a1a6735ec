package sinks

import (
	"context"

	"go.uber.org/zap"

	"github.com/JakeFAU/gallery-grabber/internal/progress"
)

// LogSink writes every event as a debug log line.
type LogSink struct {
	logger *zap.Logger
}

// NewLogSink wires a zap logger to the sink interface.
func NewLogSink(logger *zap.Logger) *LogSink {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogSink{logger: logger}
}

// Consume logs each event with structured fields.
func (s *LogSink) Consume(_ context.Context, batch []progress.Event) error {
	for _, evt := range batch {
		fields := []zap.Field{
			zap.String("run_id", evt.RunUUID().String()),
			zap.String("stage", string(evt.Stage)),
			zap.Duration("dur", evt.Dur),
		}
		if evt.IsFile() {
			fields = append(fields,
				zap.Int("worker", evt.Worker),
				zap.String("file", evt.File),
				zap.String("url", evt.URL),
				zap.Int64("bytes", evt.Bytes),
			)
		} else {
			fields = append(fields,
				zap.String("mode", evt.Mode),
				zap.String("target", evt.Target),
				zap.Int("saved", evt.Saved),
				zap.Int("skipped", evt.Skipped),
				zap.Int("failed", evt.Failed),
			)
		}
		if evt.Note != "" {
			fields = append(fields, zap.String("note", evt.Note))
		}
		s.logger.Debug("progress event", fields...)
	}
	return nil
}

// Close implements progress.Sink.
func (s *LogSink) Close(context.Context) error {
	return nil
}
