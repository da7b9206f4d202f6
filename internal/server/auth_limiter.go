package server

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"time"
)

const (
	authFailureLimit  = 5
	authFailureWindow = time.Minute
	authBlockDuration = 5 * time.Minute
)

// authFailureLimiter blocks a key after too many failed Basic credential
// checks inside a sliding window. Keys combine client IP and username.
type authFailureLimiter struct {
	mu          sync.Mutex
	entries     map[string]authFailureEntry
	maxFailures int
	window      time.Duration
	blockFor    time.Duration
	staleAfter  time.Duration
	ops         int
	sweepEvery  int
}

type authFailureEntry struct {
	failures     int
	windowStart  time.Time
	blockedUntil time.Time
	lastSeen     time.Time
}

func newAuthFailureLimiter(maxFailures int, window, blockFor time.Duration) *authFailureLimiter {
	if maxFailures <= 0 || window <= 0 || blockFor <= 0 {
		return nil
	}
	staleAfter := 2 * max(window, blockFor)
	if staleAfter < 10*time.Minute {
		staleAfter = 10 * time.Minute
	}
	return &authFailureLimiter{
		entries:     make(map[string]authFailureEntry),
		maxFailures: maxFailures,
		window:      window,
		blockFor:    blockFor,
		staleAfter:  staleAfter,
		sweepEvery:  64,
	}
}

// Allow reports whether key may attempt authentication at now.
func (l *authFailureLimiter) Allow(key string, now time.Time) bool {
	if l == nil || key == "" {
		return true
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	entry := l.entries[key]
	entry.lastSeen = now
	allowed := entry.blockedUntil.IsZero() || !now.Before(entry.blockedUntil)
	if allowed {
		entry.blockedUntil = time.Time{}
		if !entry.windowStart.IsZero() && now.Sub(entry.windowStart) > l.window {
			entry.failures = 0
			entry.windowStart = time.Time{}
		}
	}
	l.entries[key] = entry
	l.sweepLocked(now)
	return allowed
}

// Fail records one failed attempt and blocks the key once the limit is hit.
func (l *authFailureLimiter) Fail(key string, now time.Time) {
	if l == nil || key == "" {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	entry := l.entries[key]
	if entry.windowStart.IsZero() || now.Sub(entry.windowStart) > l.window {
		entry.failures = 0
		entry.windowStart = now
	}
	entry.failures++
	if entry.failures >= l.maxFailures {
		entry.blockedUntil = now.Add(l.blockFor)
		entry.failures = 0
		entry.windowStart = time.Time{}
	}
	entry.lastSeen = now
	l.entries[key] = entry
	l.sweepLocked(now)
}

// Reset forgets key after a successful authentication.
func (l *authFailureLimiter) Reset(key string) {
	if l == nil || key == "" {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.entries, key)
}

func (l *authFailureLimiter) sweepLocked(now time.Time) {
	l.ops++
	if l.sweepEvery <= 0 || l.ops%l.sweepEvery != 0 {
		return
	}
	for key, entry := range l.entries {
		if entry.lastSeen.IsZero() || now.Sub(entry.lastSeen) > l.staleAfter {
			delete(l.entries, key)
		}
	}
}

func authAttemptKey(username string, r *http.Request) string {
	user := strings.ToLower(strings.TrimSpace(username))
	if user == "" {
		user = "<empty>"
	}
	ip := requestClientIP(r)
	if ip == "" {
		ip = "<unknown>"
	}
	return ip + "|" + user
}

func requestClientIP(r *http.Request) string {
	if r == nil {
		return ""
	}
	remote := strings.TrimSpace(r.RemoteAddr)
	if remote == "" {
		return ""
	}
	host, _, err := net.SplitHostPort(remote)
	if err == nil {
		return strings.TrimSpace(host)
	}
	return remote
}
