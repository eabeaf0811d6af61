package api

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

const SessionCookieName = "vidtutor_session"

type sessionKey struct{}

// sessionMiddleware attaches a session ID to every request, minting a new
// cookie when the client has none or sends a malformed one.
func sessionMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var id string
		if c, err := r.Cookie(SessionCookieName); err == nil {
			if _, perr := uuid.Parse(c.Value); perr == nil {
				id = c.Value
			}
		}
		if id == "" {
			id = uuid.NewString()
			http.SetCookie(w, &http.Cookie{
				Name:     SessionCookieName,
				Value:    id,
				Path:     "/",
				HttpOnly: true,
				SameSite: http.SameSiteLaxMode,
			})
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), sessionKey{}, id)))
	})
}

// SessionID returns the session attached by the middleware.
func SessionID(r *http.Request) string {
	id, _ := r.Context().Value(sessionKey{}).(string)
	return id
}

const (
	limiterIdleTTL       = 10 * time.Minute
	limiterSweepInterval = time.Minute
)

type sessionLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// sessionLimiters holds one token bucket per session. Buckets idle longer
// than limiterIdleTTL are dropped; a new bucket starts full, as an idle one
// would be.
type sessionLimiters struct {
	perMinute int
	limiters  map[string]*sessionLimiter
	lastSweep time.Time
	now       func() time.Time
	mutex     sync.Mutex
}

func newSessionLimiters(perMinute int) *sessionLimiters {
	return &sessionLimiters{
		perMinute: perMinute,
		limiters:  make(map[string]*sessionLimiter),
		now:       time.Now,
	}
}

func (l *sessionLimiters) allow(sessionID string) bool {
	if l == nil || l.perMinute <= 0 {
		return true
	}

	l.mutex.Lock()
	now := l.now()
	if now.Sub(l.lastSweep) >= limiterSweepInterval {
		l.sweep(now)
	}
	entry, ok := l.limiters[sessionID]
	if !ok {
		entry = &sessionLimiter{
			limiter: rate.NewLimiter(rate.Every(time.Minute/time.Duration(l.perMinute)), l.perMinute),
		}
		l.limiters[sessionID] = entry
	}
	entry.lastSeen = now
	l.mutex.Unlock()

	return entry.limiter.AllowN(now, 1)
}

// sweep must be called with the mutex held.
func (l *sessionLimiters) sweep(now time.Time) {
	for id, entry := range l.limiters {
		if now.Sub(entry.lastSeen) > limiterIdleTTL {
			delete(l.limiters, id)
		}
	}
	l.lastSweep = now
}

func (l *sessionLimiters) size() int {
	l.mutex.Lock()
	defer l.mutex.Unlock()
	return len(l.limiters)
}
