// Package notifier delivers alert messages over email or Telegram.
package notifier

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// Message is a plain-text notification.
type Message struct {
	To      string
	Subject string
	Body    string
}

// Sender delivers a message.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// baseBackoff is the delay before the first retry. It doubles on every attempt.
var baseBackoff = time.Second

// SendWithRetry sends msg with exponential backoff retry.
func SendWithRetry(ctx context.Context, s Sender, msg Message, maxRetries int, log *zap.Logger) error {
	if log == nil {
		log = zap.NewNop()
	}
	var lastErr error
	for i := 0; i <= maxRetries; i++ {
		err := s.Send(ctx, msg)
		if err == nil {
			return nil
		}
		lastErr = err
		if i == maxRetries {
			break
		}
		backoff := baseBackoff << uint(i)
		log.Warn("notification send failed",
			zap.Int("attempt", i+1),
			zap.Int("attempts", maxRetries+1),
			zap.Duration("retry_in", backoff),
			zap.Error(err))
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
	}
	return fmt.Errorf("all %d attempts exhausted: %w", maxRetries+1, lastErr)
}

// LogSender writes messages to the log instead of delivering them.
type LogSender struct {
	Log *zap.Logger
}

func (l *LogSender) Send(_ context.Context, msg Message) error {
	l.Log.Info("dry run, message not sent",
		zap.String("to", msg.To),
		zap.String("subject", msg.Subject),
		zap.String("body", msg.Body))
	return nil
}

// Multi sends every message through all senders and fails if any of them fails.
type Multi []Sender

func (m Multi) Send(ctx context.Context, msg Message) error {
	for _, s := range m {
		if err := s.Send(ctx, msg); err != nil {
			return err
		}
	}
	return nil
}
