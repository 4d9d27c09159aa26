package services

import (
	"sync"
	"time"

	"github.com/lumina-chat/lumina-backend/internal/models"
)

// Sign-in lockout: three consecutive failures start a 30s cooldown, and
// every further lockout doubles it up to 15 minutes. A successful sign-in
// clears the account's record. While the cooldown is active the password
// is not even checked.

const (
	lockoutThreshold    = 3
	lockoutBaseCooldown = 30 * time.Second
	lockoutMaxCooldown  = 15 * time.Minute
	lockoutCleanupTick  = 5 * time.Minute
	lockoutEntryTTL     = 30 * time.Minute
)

type lockoutEntry struct {
	failures int
	lockouts int
	until    time.Time
	lastUse  time.Time
}

// SigninLimiter tracks failed sign-in attempts per account key.
type SigninLimiter struct {
	mu      sync.Mutex
	entries map[string]*lockoutEntry
	cleanup bool

	base time.Duration
	max  time.Duration
	now  func() time.Time
}

func NewSigninLimiter() *SigninLimiter {
	return &SigninLimiter{
		entries: make(map[string]*lockoutEntry),
		base:    lockoutBaseCooldown,
		max:     lockoutMaxCooldown,
		now:     time.Now,
	}
}

// Signin is the process-wide limiter used by the auth handlers.
var Signin = NewSigninLimiter()

// Check returns ErrRateLimited with the remaining cooldown when the key is
// locked out, and nil otherwise. Call it before verifying credentials.
func (l *SigninLimiter) Check(key string) (time.Duration, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.startCleanupOnce()

	e, ok := l.entries[key]
	if !ok {
		return 0, nil
	}
	e.lastUse = l.now()
	if remaining := e.until.Sub(l.now()); remaining > 0 {
		return remaining, models.ErrRateLimited
	}
	return 0, nil
}

// Failure records one failed attempt and returns the cooldown that just
// started, or zero when the threshold has not been reached yet.
func (l *SigninLimiter) Failure(key string) time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.startCleanupOnce()

	e, ok := l.entries[key]
	if !ok {
		e = &lockoutEntry{}
		l.entries[key] = e
	}
	e.lastUse = l.now()
	e.failures++
	if e.failures < lockoutThreshold {
		return 0
	}

	cooldown := l.base << e.lockouts
	if cooldown > l.max || cooldown <= 0 {
		cooldown = l.max
	}
	e.lockouts++
	e.failures = 0
	e.until = l.now().Add(cooldown)
	return cooldown
}

// Success clears the key's failure history.
func (l *SigninLimiter) Success(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.entries, key)
}

func (l *SigninLimiter) startCleanupOnce() {
	if l.cleanup {
		return
	}
	l.cleanup = true
	go func() {
		ticker := time.NewTicker(lockoutCleanupTick)
		defer ticker.Stop()
		for range ticker.C {
			l.mu.Lock()
			now := l.now()
			for k, e := range l.entries {
				if now.Sub(e.lastUse) > lockoutEntryTTL && !e.until.After(now) {
					delete(l.entries, k)
				}
			}
			l.mu.Unlock()
		}
	}()
}
