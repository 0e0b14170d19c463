package notification

import (
	"context"

	"go.uber.org/zap"
)

// Message is a templated notification addressed to a single recipient
type Message struct {
	Template string
	To       string
	Locals   map[string]string
}

// Notifier delivers notification messages. Implementations must be safe
// for concurrent use; the queue workers call Send from multiple
// goroutines.
type Notifier interface {
	Send(ctx context.Context, msg Message) error
}

// LogNotifier writes notifications to the log instead of an external
// channel. It stands in for a mail transport in development and tests.
type LogNotifier struct {
	logger *zap.Logger
}

// NewLogNotifier creates a new LogNotifier
func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

// Send logs the message instead of delivering it
func (n *LogNotifier) Send(_ context.Context, msg Message) error {
	fields := []zap.Field{
		zap.String("template", msg.Template),
		zap.String("to", msg.To),
	}
	for k, v := range msg.Locals {
		fields = append(fields, zap.String(k, v))
	}
	n.logger.Info("notification sent", fields...)
	return nil
}

// Ensure LogNotifier implements Notifier
var _ Notifier = (*LogNotifier)(nil)
