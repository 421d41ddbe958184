package auth

import (
	"time"

	"github.com/johnrirwin/devicedeck/internal/cache"
)

const revokedSessionPrefix = "session:revoked:"

// Session is the signed-in shopper for one request. Handlers that need a
// user receive it as an argument.
type Session struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	Email     string    `json:"email"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// sessionRegistry remembers logged-out sessions until their access tokens
// would have expired anyway
type sessionRegistry struct {
	cache cache.Cache
}

func (r *sessionRegistry) revoke(s *Session, now time.Time) {
	if r.cache == nil || s == nil || s.ID == "" {
		return
	}
	ttl := s.ExpiresAt.Sub(now)
	if ttl <= 0 {
		return
	}
	r.cache.SetWithTTL(revokedSessionPrefix+s.ID, true, ttl)
}

func (r *sessionRegistry) revoked(id string) bool {
	if r.cache == nil || id == "" {
		return false
	}
	_, ok := r.cache.Get(revokedSessionPrefix + id)
	return ok
}
