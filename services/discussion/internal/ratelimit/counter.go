package ratelimit

import (
	"context"
	"strconv"
	"sync"
	"time"
)

// Bound is one limit resolved against the current instant: at most Max
// actions recorded at or after Since.
type Bound struct {
	Since time.Time
	Max   int
}

// Counter stores recorded actions per (action, user).
type Counter interface {
	// Reserve records one action at `at` unless a bound is already reached.
	// Counting and recording happen as one atomic step. It returns the index
	// of the first bound reached, or -1 and a token naming the new record.
	Reserve(ctx context.Context, action Action, userID string, at time.Time, bounds []Bound) (token string, hit int, err error)
	// Release removes a record previously returned by Reserve.
	Release(ctx context.Context, action Action, userID, token string) error
}

type counterKey struct {
	action Action
	userID string
}

type event struct {
	at    time.Time
	token string
}

// MemoryCounter keeps timestamps in process (development and tests only).
type MemoryCounter struct {
	mu     sync.Mutex
	seq    uint64
	events map[counterKey][]event
}

func NewMemoryCounter() *MemoryCounter {
	return &MemoryCounter{events: make(map[counterKey][]event)}
}

func (c *MemoryCounter) Reserve(_ context.Context, action Action, userID string, at time.Time, bounds []Bound) (string, int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	key := counterKey{action, userID}
	for i, b := range bounds {
		n := 0
		for _, e := range c.events[key] {
			if !e.at.Before(b.Since) {
				n++
			}
		}
		if n >= b.Max {
			return "", i, nil
		}
	}

	cutoff := at.Add(-retention)
	kept := c.events[key][:0]
	for _, e := range c.events[key] {
		if e.at.After(cutoff) {
			kept = append(kept, e)
		}
	}
	c.seq++
	token := strconv.FormatUint(c.seq, 10)
	c.events[key] = append(kept, event{at: at, token: token})
	return token, -1, nil
}

func (c *MemoryCounter) Release(_ context.Context, action Action, userID, token string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	key := counterKey{action, userID}
	evs := c.events[key]
	for i, e := range evs {
		if e.token == token {
			c.events[key] = append(evs[:i], evs[i+1:]...)
			break
		}
	}
	return nil
}
