// Package notify is the user-facing notification channel. Stores and the
// transport push messages here; the gateway drains them into responses.
package notify

import (
	"sync"

	"storefront/internal/pkg/logger"

	"go.uber.org/zap"
)

// Level of a notification.
type Level string

const (
	LevelError   Level = "error"
	LevelSuccess Level = "success"
)

// Notification is one message shown to the shopper.
type Notification struct {
	Level   Level  `json:"level"`
	Message string `json:"message"`
}

// Notifier accepts user-facing messages.
type Notifier interface {
	Error(message string)
	Success(message string)
}

// Queue is a Notifier that buffers messages until drained.
type Queue struct {
	mu    sync.Mutex
	items []Notification
	log   *logger.Logger
}

var _ Notifier = (*Queue)(nil)

// NewQueue creates an empty Queue.
func NewQueue(l *logger.Logger) *Queue {
	return &Queue{log: l}
}

func (q *Queue) push(level Level, message string) {
	if message == "" {
		return
	}
	q.mu.Lock()
	q.items = append(q.items, Notification{Level: level, Message: message})
	q.mu.Unlock()
	q.log.Debug("notification", zap.String("level", string(level)), zap.String("message", message))
}

// Error queues an error message.
func (q *Queue) Error(message string) { q.push(LevelError, message) }

// Success queues a success message.
func (q *Queue) Success(message string) { q.push(LevelSuccess, message) }

// Drain returns the queued messages in order and empties the queue.
func (q *Queue) Drain() []Notification {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := q.items
	q.items = nil
	if out == nil {
		return []Notification{}
	}
	return out
}
