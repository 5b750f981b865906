package models

import (
	"time"

	"github.com/google/uuid"
)

// QuizState is derived from the session flags; it is never stored directly.
type QuizState string

const (
	QuizStateNoBatch   QuizState = "no_batch"
	QuizStateActive    QuizState = "active"
	QuizStateExhausted QuizState = "exhausted"
)

// UserSession is the per-user record kept by the session store.
// An empty DocumentText means the user has not uploaded anything yet.
type UserSession struct {
	UserID            int64        `json:"user_id"`
	DocumentText      string       `json:"document_text"`
	LastTask          string       `json:"last_task,omitempty"`
	QuizQueue         []QuizItem   `json:"quiz_queue"`
	QuizSessionActive bool         `json:"quiz_session_active"`
	QuizExhausted     bool         `json:"quiz_exhausted"`
	LastBatch         *BatchReport `json:"last_batch,omitempty"`
	UpdatedAt         time.Time    `json:"updated_at"`
}

func (s *UserSession) State() QuizState {
	switch {
	case s.QuizSessionActive && len(s.QuizQueue) > 0:
		return QuizStateActive
	case s.QuizExhausted:
		return QuizStateExhausted
	default:
		return QuizStateNoBatch
	}
}

// ResetQuiz drops any queued quiz items and returns the session to NoBatch.
func (s *UserSession) ResetQuiz() {
	s.QuizQueue = nil
	s.QuizSessionActive = false
	s.QuizExhausted = false
}

// Clone returns a deep copy safe to hand out of the store's lock.
func (s *UserSession) Clone() *UserSession {
	c := *s
	if s.QuizQueue != nil {
		c.QuizQueue = make([]QuizItem, len(s.QuizQueue))
		for i, item := range s.QuizQueue {
			c.QuizQueue[i] = item.Clone()
		}
	}
	if s.LastBatch != nil {
		b := *s.LastBatch
		c.LastBatch = &b
	}
	return &c
}

// BatchReport describes one quiz batch generation cycle.
type BatchReport struct {
	ID          uuid.UUID `json:"id"`
	Requested   int       `json:"requested"`
	Produced    int       `json:"produced"`
	Dropped     int       `json:"dropped"`
	GeneratedAt time.Time `json:"generated_at"`
}

// Degraded reports whether any generated item had to be dropped.
func (b BatchReport) Degraded() bool {
	return b.Dropped > 0
}
