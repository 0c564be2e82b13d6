package main

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/leepro/portfolio/internal/profileimage"
)

const sessionCookie = "portfolio_session"

type session struct {
	resolver *profileimage.Resolver
	lastSeen time.Time
	returned bool
}

// sessionLimits bound how much state anonymous traffic can hold.
// Sessions whose cookie never comes back expire after FirstVisit;
// the rest after TTL. At most Max sessions are kept.
type sessionLimits struct {
	TTL        time.Duration
	FirstVisit time.Duration
	Max        int
}

// sessionRegistry gives every browser session its own resolver, so an
// upload only ever shows up for the visitor who made it.
type sessionRegistry struct {
	newResolver func() *profileimage.Resolver
	limits      sessionLimits
	secure      bool

	mu       sync.Mutex
	sessions map[string]*session

	stop     chan struct{}
	stopOnce sync.Once
}

func newSessionRegistry(limits sessionLimits, secure bool, newResolver func() *profileimage.Resolver) *sessionRegistry {
	if limits.FirstVisit <= 0 || limits.FirstVisit > limits.TTL {
		limits.FirstVisit = limits.TTL
	}
	return &sessionRegistry{
		newResolver: newResolver,
		limits:      limits,
		secure:      secure,
		sessions:    make(map[string]*session),
		stop:        make(chan struct{}),
	}
}

// get returns the resolver of the request's session, starting a new
// session when the cookie is missing or has expired. Only the page
// route calls it; everything else uses lookup.
func (r *sessionRegistry) get(c *gin.Context) *profileimage.Resolver {
	now := time.Now()
	id, err := c.Cookie(sessionCookie)

	r.mu.Lock()
	if err == nil {
		if s, ok := r.sessions[id]; ok {
			s.lastSeen = now
			s.returned = true
			r.mu.Unlock()
			return s.resolver
		}
	}
	if r.limits.Max > 0 && len(r.sessions) >= r.limits.Max {
		r.evictOldestLocked()
	}
	id = uuid.NewString()
	s := &session{resolver: r.newResolver(), lastSeen: now}
	r.sessions[id] = s
	r.mu.Unlock()

	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(sessionCookie, id, int(r.limits.TTL.Seconds()), "/", "", r.secure, true)
	return s.resolver
}

func (r *sessionRegistry) evictOldestLocked() {
	var oldestID string
	var oldest *session
	for id, s := range r.sessions {
		if oldest == nil || s.lastSeen.Before(oldest.lastSeen) {
			oldestID, oldest = id, s
		}
	}
	if oldest != nil {
		oldest.resolver.Close()
		delete(r.sessions, oldestID)
	}
}

// lookup returns the resolver of an existing session without creating one.
func (r *sessionRegistry) lookup(c *gin.Context) (*profileimage.Resolver, bool) {
	id, err := c.Cookie(sessionCookie)
	if err != nil {
		return nil, false
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	if !ok {
		return nil, false
	}
	s.lastSeen = time.Now()
	s.returned = true
	return s.resolver, true
}

func (r *sessionRegistry) len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// sweep closes and forgets idle sessions.
func (r *sessionRegistry) sweep(now time.Time) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	removed := 0
	for id, s := range r.sessions {
		ttl := r.limits.TTL
		if !s.returned {
			ttl = r.limits.FirstVisit
		}
		if now.Sub(s.lastSeen) > ttl {
			s.resolver.Close()
			delete(r.sessions, id)
			removed++
		}
	}
	return removed
}

func (r *sessionRegistry) runJanitor(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-r.stop:
			return
		case now := <-ticker.C:
			if n := r.sweep(now); n > 0 {
				log.Debug().Int("removed", n).Msg("Expired profile sessions")
			}
		}
	}
}

func (r *sessionRegistry) close() {
	r.stopOnce.Do(func() { close(r.stop) })
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, s := range r.sessions {
		s.resolver.Close()
		delete(r.sessions, id)
	}
}
