// Package identity holds the session's user identity: the key-value fields
// the comment controller stamps onto locally-created comments. Entries live
// for the session token's lifetime; there is no durable storage behind them.
package identity

import (
	"strconv"
	"time"

	"video-comments/internal/cache"
	"video-comments/internal/thread"
)

const (
	keyUserID    = "user_id"
	keyUserName  = "user_name"
	keyAvatarURL = "avatar_url"
)

// Session is a cache-backed identity store. It implements
// thread.IdentitySource.
type Session struct {
	kv  *cache.SimpleCache[string, string]
	ttl time.Duration
}

// NewSession creates a session store. ttl bounds how long a stored identity
// is considered valid; zero means it never expires.
func NewSession(ttl time.Duration) *Session {
	return &Session{kv: cache.NewSimpleCache[string, string](), ttl: ttl}
}

// Store records the identity returned by a successful login.
func (s *Session) Store(id thread.Identity) {
	s.kv.Set(keyUserID, strconv.FormatInt(id.UserID, 10), s.ttl)
	s.kv.Set(keyUserName, id.UserName, s.ttl)
	s.kv.Set(keyAvatarURL, id.AvatarURL, s.ttl)
}

// Current returns the stored identity, or false when none is stored or the
// session expired.
func (s *Session) Current() (thread.Identity, bool) {
	rawID, ok := s.kv.Get(keyUserID)
	if !ok {
		return thread.Identity{}, false
	}
	userID, err := strconv.ParseInt(rawID, 10, 64)
	if err != nil {
		return thread.Identity{}, false
	}
	name, _ := s.kv.Get(keyUserName)
	avatar, _ := s.kv.Get(keyAvatarURL)
	return thread.Identity{UserID: userID, UserName: name, AvatarURL: avatar}, true
}

// Clear forgets the stored identity.
func (s *Session) Clear() {
	s.kv.Clear()
}
