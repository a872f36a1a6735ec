package sinks

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/gallery-grabber/internal/grabber"
	"github.com/JakeFAU/gallery-grabber/internal/progress"
)

// Notification is the message published for each saved file and each
// finished run.
type Notification struct {
	RunID    string    `json:"run_id"`
	Stage    string    `json:"stage"`
	TS       time.Time `json:"ts"`
	File     string    `json:"file,omitempty"`
	URL      string    `json:"url,omitempty"`
	Path     string    `json:"path,omitempty"`
	Bytes    int64     `json:"bytes,omitempty"`
	Checksum string    `json:"checksum,omitempty"`
	Saved    int       `json:"saved,omitempty"`
	Skipped  int       `json:"skipped,omitempty"`
	Failed   int       `json:"failed,omitempty"`
	Note     string    `json:"note,omitempty"`
}

// PublishSink forwards saved files and run completions to a grabber.Publisher.
// Skips and failures stay local.
type PublishSink struct {
	publisher grabber.Publisher
	topic     string
	logger    *zap.Logger
}

// NewPublishSink constructs a PublishSink for topic.
func NewPublishSink(publisher grabber.Publisher, topic string, logger *zap.Logger) *PublishSink {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PublishSink{publisher: publisher, topic: topic, logger: logger}
}

// Consume publishes the relevant events. A failed publish is logged and the
// rest of the batch continues.
func (s *PublishSink) Consume(ctx context.Context, batch []progress.Event) error {
	if s == nil || s.publisher == nil {
		return nil
	}
	for _, evt := range batch {
		switch evt.Stage {
		case progress.StageFileSaved, progress.StageRunDone, progress.StageRunError:
		default:
			continue
		}
		msg := notificationFromEvent(evt)
		if _, err := s.publisher.Publish(ctx, s.topic, msg); err != nil {
			s.logger.Warn("Publish failed", zap.String("stage", msg.Stage), zap.String("file", msg.File), zap.Error(err))
			if ctx.Err() != nil {
				return ctx.Err()
			}
		}
	}
	return nil
}

func notificationFromEvent(evt progress.Event) Notification {
	return Notification{
		RunID:    evt.RunUUID().String(),
		Stage:    string(evt.Stage),
		TS:       evt.TS,
		File:     evt.File,
		URL:      evt.URL,
		Path:     evt.Path,
		Bytes:    evt.Bytes,
		Checksum: evt.Checksum,
		Saved:    evt.Saved,
		Skipped:  evt.Skipped,
		Failed:   evt.Failed,
		Note:     evt.Note,
	}
}

// Close implements progress.Sink.
func (s *PublishSink) Close(context.Context) error {
	return nil
}
