package main

import (
	"sync"
	"time"
)

// SpamGuard throttles node creation per client: after a post the client is
// blocked for the configured duration.
type SpamGuard struct {
	duration time.Duration
	posts    map[string]time.Time
	mutex    *sync.Mutex
	now      func() time.Time
}

func NewSpamGuard(duration time.Duration) *SpamGuard {
	return &SpamGuard{
		duration: duration,
		posts:    make(map[string]time.Time),
		mutex:    &sync.Mutex{},
		now:      time.Now,
	}
}

func (sg *SpamGuard) CanPost(id string) bool {
	if sg.duration <= 0 {
		return true
	}
	result := true
	now := sg.now()
	sg.mutex.Lock()
	defer sg.mutex.Unlock()
	expires, found := sg.posts[id]
	if found && expires.After(now) {
		// Blocked
		result = false
	} else {
		sg.posts[id] = now.Add(sg.duration)
	}
	sg.clean(now)
	return result
}

// RetryAfter is how long id stays blocked.
func (sg *SpamGuard) RetryAfter(id string) time.Duration {
	sg.mutex.Lock()
	defer sg.mutex.Unlock()
	expires, found := sg.posts[id]
	if !found {
		return 0
	}
	if d := expires.Sub(sg.now()); d > 0 {
		return d
	}
	return 0
}

// Forget lifts the block on id, for a post that was not accepted.
func (sg *SpamGuard) Forget(id string) {
	sg.mutex.Lock()
	defer sg.mutex.Unlock()
	delete(sg.posts, id)
}

func (sg *SpamGuard) clean(now time.Time) {
	for key, expires := range sg.posts {
		if !expires.After(now) {
			delete(sg.posts, key)
		}
	}
}
