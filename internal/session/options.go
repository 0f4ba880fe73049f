package session

import (
	"io"
	"time"

	"github.com/hammamikhairi/mise/internal/domain"
	"github.com/hammamikhairi/mise/internal/logger"
)

// Option configures a session.
type Option func(*Session)

// WithID sets the session id. Without it the recipe id is used.
func WithID(id string) Option {
	return func(s *Session) {
		s.id = id
	}
}

// WithLogger sets the session logger.
func WithLogger(log *logger.Logger) Option {
	return func(s *Session) {
		if log != nil {
			s.log = log
		}
	}
}

// WithExpiryHandler sets the handler told about each timer expiry.
func WithExpiryHandler(h domain.ExpiryHandler) Option {
	return func(s *Session) {
		s.expiry = h
	}
}

// WithTickInterval sets the countdown period. One second by default; each
// tick removes one second from every running timer regardless of the period.
func WithTickInterval(d time.Duration) Option {
	return func(s *Session) {
		if d > 0 {
			s.tickInterval = d
		}
	}
}

// WithResource registers something the session releases on Close, such as
// an audio context. Resources are closed in reverse registration order.
func WithResource(c io.Closer) Option {
	return func(s *Session) {
		if c != nil {
			s.resources = append(s.resources, c)
		}
	}
}

// WithClock overrides time.Now for StartedAt/UpdatedAt bookkeeping.
func WithClock(now func() time.Time) Option {
	return func(s *Session) {
		if now != nil {
			s.now = now
		}
	}
}
