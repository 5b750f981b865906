package repository

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"studymate-bot/internal/models"
)

func TestSessionRepo_LazyCreate(t *testing.T) {
	r := NewSessionRepo()

	_, found := r.Peek(42)
	assert.False(t, found)

	s := r.Get(42)
	assert.Equal(t, int64(42), s.UserID)
	assert.Empty(t, s.DocumentText)
	assert.Equal(t, models.QuizStateNoBatch, s.State())
	assert.Equal(t, 1, r.Count())

	_, found = r.Peek(42)
	assert.True(t, found)
}

func TestSessionRepo_WithSessionMutatesInPlace(t *testing.T) {
	r := NewSessionRepo()

	err := r.WithSession(7, func(s *models.UserSession) error {
		s.DocumentText = "material"
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, "material", r.Get(7).DocumentText)

	boom := errors.New("boom")
	err = r.WithSession(7, func(s *models.UserSession) error { return boom })
	assert.ErrorIs(t, err, boom)
}

func TestSessionRepo_SnapshotIsIsolated(t *testing.T) {
	r := NewSessionRepo()
	require.NoError(t, r.WithSession(1, func(s *models.UserSession) error {
		s.QuizQueue = []models.QuizItem{{Question: "q", Options: []string{"a"}}}
		return nil
	}))

	snap := r.Get(1)
	snap.QuizQueue = nil

	assert.Len(t, r.Get(1).QuizQueue, 1)
}

func TestSessionRepo_SameUserUpdatesAreSerialized(t *testing.T) {
	r := NewSessionRepo()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = r.WithSession(9, func(s *models.UserSession) error {
				// read-modify-write that would lose updates without the lock
				n := len(s.QuizQueue)
				s.QuizQueue = append(s.QuizQueue[:n:n], models.QuizItem{})
				return nil
			})
		}()
	}
	wg.Wait()

	assert.Len(t, r.Get(9).QuizQueue, 50)
	assert.Equal(t, 1, r.Count())
}

func TestSessionRepo_UsersAreIndependent(t *testing.T) {
	r := NewSessionRepo()
	require.NoError(t, r.WithSession(1, func(s *models.UserSession) error {
		s.DocumentText = "one"
		return nil
	}))

	assert.Empty(t, r.Get(2).DocumentText)
	assert.Equal(t, 2, r.Count())
}
