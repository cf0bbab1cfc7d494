// Package queue holds review submissions that could not reach the review
// service. Retrying them later is safe because a review submission is an
// idempotent upsert per (client, driver). Bookings are never queued: a
// failed booking is reported once and left to the caller.
package queue

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

type PendingReview struct {
	ID       string
	Client   string
	Driver   string
	Message  string
	Rating   int
	RetryAt  time.Time
	Attempts int
}

// MaxAttempts bounds how often a pending review is retried before it is
// dropped for good.
const MaxAttempts = 5

type Queue struct {
	items []*PendingReview
	mu    sync.Mutex
}

func New() *Queue {
	return &Queue{
		items: make([]*PendingReview, 0),
	}
}

// Add queues a fresh submission for its first retry after delay.
func (q *Queue) Add(client, driver, message string, rating int, delay time.Duration) *PendingReview {
	item := &PendingReview{
		ID:      uuid.New().String(),
		Client:  client,
		Driver:  driver,
		Message: message,
		Rating:  rating,
		RetryAt: time.Now().Add(delay),
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	q.items = append(q.items, item)
	return item
}

// Due pops the first submission whose retry time has passed, or nil.
func (q *Queue) Due() *PendingReview {
	q.mu.Lock()
	defer q.mu.Unlock()

	now := time.Now()
	for i, item := range q.items {
		if !item.RetryAt.After(now) {
			q.items = append(q.items[:i], q.items[i+1:]...)
			return item
		}
	}
	return nil
}

// Requeue puts a failed submission back with its attempt counter bumped
// and the delay doubled per attempt. Returns false once the submission
// has exhausted its attempts and was dropped instead.
func (q *Queue) Requeue(item *PendingReview, baseDelay time.Duration) bool {
	item.Attempts++
	if item.Attempts >= MaxAttempts {
		return false
	}
	item.RetryAt = time.Now().Add(baseDelay << uint(item.Attempts))
	q.mu.Lock()
	defer q.mu.Unlock()
	q.items = append(q.items, item)
	return true
}

func (q *Queue) Size() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}
