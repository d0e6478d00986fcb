package session

import (
	"time"

	"github.com/google/uuid"
	gocache "github.com/patrickmn/go-cache"
)

// Store keeps sessions in memory with TTL eviction. State does not survive a
// process restart and is never shared across sessions.
type Store struct {
	ttl time.Duration
	c   *gocache.Cache
}

func NewStore(ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &Store{ttl: ttl, c: gocache.New(ttl, ttl/2)}
}

func (st *Store) Create() *Session {
	s := newSession(uuid.NewString())
	st.c.Set(s.ID, s, gocache.DefaultExpiration)
	return s
}

// Get looks up a session and, when found, refreshes its TTL so active
// conversations are not evicted mid-exchange.
func (st *Store) Get(id string) (*Session, bool) {
	v, ok := st.c.Get(id)
	if !ok {
		return nil, false
	}
	s, ok := v.(*Session)
	if !ok {
		return nil, false
	}
	st.c.Set(id, s, gocache.DefaultExpiration)
	return s, true
}

func (st *Store) Count() int {
	return st.c.ItemCount()
}
