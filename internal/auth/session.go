package auth

import (
	"time"

	"github.com/google/uuid"

	"expensetracker/internal/cache"
)

// Session ties a random token to a user.
type Session struct {
	Token     string
	UserID    int64
	CreatedAt time.Time
}

// SessionStore keeps sessions in memory; a restart logs everyone out.
type SessionStore struct {
	cache *cache.LRUCache[Session]
	ttl   time.Duration
}

func NewSessionStore(capacity int, ttl time.Duration, opts ...cache.LRUOption) *SessionStore {
	return &SessionStore{
		cache: cache.NewLRUCache[Session](capacity, ttl, opts...),
		ttl:   ttl,
	}
}

// Create starts a new session for userID.
func (s *SessionStore) Create(userID int64) Session {
	sess := Session{
		Token:     uuid.NewString(),
		UserID:    userID,
		CreatedAt: time.Now().UTC(),
	}
	s.cache.Set(sess.Token, sess)
	return sess
}

// Lookup returns the live session for token.
func (s *SessionStore) Lookup(token string) (Session, bool) {
	if _, err := uuid.Parse(token); err != nil {
		return Session{}, false
	}
	return s.cache.Get(token)
}

func (s *SessionStore) Destroy(token string) {
	s.cache.Delete(token)
}

func (s *SessionStore) TTL() time.Duration { return s.ttl }

// Cleaner exposes the backing cache for periodic sweeping.
func (s *SessionStore) Cleaner() cache.Cleaner { return s.cache }
