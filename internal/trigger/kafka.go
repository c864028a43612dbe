// Package trigger turns external change notifications into presenter refreshes.
package trigger

import (
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"github.com/bassista/atlas/internal/logger"
	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"
)

// KafkaReader is the subset of *kafka.Reader used by KafkaTrigger.
// This allows for easy mocking in unit tests.
type KafkaReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Refresher receives refresh requests. Refresh must not block.
type Refresher interface {
	Refresh()
}

// KafkaTrigger requests a refresh for every message on the feed topic.
// Message content is ignored: any message means "the remote snapshot changed".
type KafkaTrigger struct {
	reader  KafkaReader
	target  Refresher
	backoff time.Duration
	log     *logrus.Entry

	closeOnce sync.Once
	closeErr  error
}

// NewKafkaTrigger creates a consumer group reader for topic. Offsets are
// committed manually after the refresh has been requested.
func NewKafkaTrigger(brokers []string, topic, groupID string, target Refresher) *KafkaTrigger {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        brokers,
		Topic:          topic,
		GroupID:        groupID,
		CommitInterval: 0,
		MinBytes:       1,
		MaxBytes:       1e6,
	})
	return NewKafkaTriggerWithReader(reader, target)
}

func NewKafkaTriggerWithReader(reader KafkaReader, target Refresher) *KafkaTrigger {
	return &KafkaTrigger{
		reader:  reader,
		target:  target,
		backoff: time.Second,
		log:     logger.WithComponent("trigger").WithField("source", "kafka"),
	}
}

// Close closes the reader. The consumer group starts with the reader, so a
// trigger that never ran must still be closed. Safe to call more than once.
func (t *KafkaTrigger) Close() error {
	t.closeOnce.Do(func() {
		t.closeErr = t.reader.Close()
	})
	return t.closeErr
}

// Run consumes until ctx is done or the reader is closed, then closes the
// reader. It only returns an error when closing the reader fails.
func (t *KafkaTrigger) Run(ctx context.Context) error {
	t.log.Info("Starting Kafka refresh trigger")
	defer t.log.Info("Kafka refresh trigger stopped")

	for {
		msg, err := t.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, io.EOF) {
				return t.Close()
			}
			t.log.WithError(err).Warn("Error fetching message")
			select {
			case <-ctx.Done():
				return t.Close()
			case <-time.After(t.backoff):
			}
			continue
		}

		t.log.WithFields(logrus.Fields{
			"topic":     msg.Topic,
			"partition": msg.Partition,
			"offset":    msg.Offset,
		}).Debug("Feed change notification received")
		t.target.Refresh()

		if err := t.reader.CommitMessages(ctx, msg); err != nil && ctx.Err() == nil {
			t.log.WithError(err).Warn("Failed to commit offset")
		}
	}
}
