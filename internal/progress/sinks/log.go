package sinks

import (
	"context"

	"go.uber.org/zap"

	"github.com/JakeFAU/embed-provider-sync/internal/logging"
	"github.com/JakeFAU/embed-provider-sync/internal/progress"
)

// LogSink reports run milestones at Info and provider completions at Debug,
// with an Info line every Every completions so long runs show movement.
type LogSink struct {
	logger *zap.Logger
	every  int
}

// NewLogSink builds a LogSink. every <= 0 disables the periodic Info line.
func NewLogSink(logger *zap.Logger, every int) *LogSink {
	logger = logging.OrNop(logger)
	return &LogSink{logger: logger, every: every}
}

// Consume logs each event in the batch.
func (s *LogSink) Consume(_ context.Context, batch []progress.Event) error {
	for _, evt := range batch {
		s.log(evt)
	}
	return nil
}

func (s *LogSink) log(evt progress.Event) {
	run := zap.Stringer("run_id", evt.RunUUID())
	switch evt.Stage {
	case progress.StageRunStart:
		s.logger.Info("sync run started", run, zap.String("url", evt.URL))
	case progress.StageListingDone:
		s.logger.Info("provider listing parsed", run, zap.Int("providers", evt.Total), zap.Duration("dur", evt.Dur))
	case progress.StageProviderDone, progress.StageProviderFail:
		fields := []zap.Field{
			run,
			zap.String("provider", evt.ProviderID),
			zap.String("url", evt.URL),
			zap.Int("done", evt.Done),
			zap.Int("total", evt.Total),
			zap.Int64("bytes", evt.Bytes),
			zap.Duration("dur", evt.Dur),
		}
		if evt.Stage == progress.StageProviderFail {
			fields = append(fields, zap.String("note", evt.Note))
		}
		s.logger.Debug("provider processed", append(fields, zap.String("stage", string(evt.Stage)))...)
		if (s.every > 0 && evt.Done%s.every == 0) || evt.Done == evt.Total {
			s.logger.Info("detail fetch progress", run, zap.Int("done", evt.Done), zap.Int("total", evt.Total))
		}
	case progress.StageRunDone:
		s.logger.Info("sync run finished", run, zap.Duration("dur", evt.Dur), zap.String("note", evt.Note))
	case progress.StageRunError:
		s.logger.Error("sync run failed", run, zap.Duration("dur", evt.Dur), zap.String("note", evt.Note))
	}
}

// Close implements progress.Sink.
func (s *LogSink) Close(context.Context) error {
	return nil
}
