package repository

import (
	"strconv"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"

	"studymate-bot/internal/models"
)

type sessionEntry struct {
	mu      sync.Mutex
	session *models.UserSession
}

// SessionRepo keeps one UserSession per user for the life of the process.
// Entries are created lazily and never evicted; each entry has its own lock
// so compound updates for one user never block other users.
type SessionRepo struct {
	cache *cache.Cache
}

func NewSessionRepo() *SessionRepo {
	return &SessionRepo{
		// no expiration, no janitor
		cache: cache.New(cache.NoExpiration, 0),
	}
}

func (r *SessionRepo) entry(userID int64) *sessionEntry {
	key := strconv.FormatInt(userID, 10)
	if x, found := r.cache.Get(key); found {
		return x.(*sessionEntry)
	}

	e := &sessionEntry{session: &models.UserSession{UserID: userID, UpdatedAt: time.Now()}}
	if err := r.cache.Add(key, e, cache.NoExpiration); err != nil {
		// lost the race, another goroutine created it first
		x, _ := r.cache.Get(key)
		return x.(*sessionEntry)
	}
	return e
}

// WithSession runs fn with exclusive access to the user's session, creating
// the session on first use. fn must not retain the pointer.
func (r *SessionRepo) WithSession(userID int64, fn func(s *models.UserSession) error) error {
	e := r.entry(userID)
	e.mu.Lock()
	defer e.mu.Unlock()

	err := fn(e.session)
	e.session.UpdatedAt = time.Now()
	return err
}

// Get returns a snapshot of the user's session.
func (r *SessionRepo) Get(userID int64) *models.UserSession {
	e := r.entry(userID)
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.session.Clone()
}

// Peek returns a snapshot only if the session already exists.
func (r *SessionRepo) Peek(userID int64) (*models.UserSession, bool) {
	x, found := r.cache.Get(strconv.FormatInt(userID, 10))
	if !found {
		return nil, false
	}
	e := x.(*sessionEntry)
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.session.Clone(), true
}

func (r *SessionRepo) Count() int {
	return r.cache.ItemCount()
}
