// Package search holds the query gate and the per-session debounce used by
// the autocomplete endpoint.
package search

import (
	"context"
	"strings"
	"sync"
	"time"
	"unicode/utf8"
)

// MinQueryLength is the shortest query, in characters, sent to the backend.
const MinQueryLength = 2

// DefaultWait is the autocomplete debounce window.
const DefaultWait = 300 * time.Millisecond

func Normalize(q string) string {
	return strings.TrimSpace(q)
}

// Ready reports whether the normalized query is long enough to search.
func Ready(q string) bool {
	return utf8.RuneCountInString(Normalize(q)) >= MinQueryLength
}

// Debouncer lets only the latest call per key through. Each Wait stamps the
// key with a fresh generation; a call whose generation is no longer current
// when the wait ends has been superseded.
type Debouncer struct {
	wait time.Duration

	mu   sync.Mutex
	seq  uint64
	gens map[string]uint64
}

func NewDebouncer(wait time.Duration) *Debouncer {
	if wait <= 0 {
		wait = DefaultWait
	}
	return &Debouncer{wait: wait, gens: make(map[string]uint64)}
}

// Wait blocks for the debounce window and reports whether this call is still
// the newest for key. It returns ctx.Err() when ctx ends first.
func (d *Debouncer) Wait(ctx context.Context, key string) (bool, error) {
	d.mu.Lock()
	d.seq++
	gen := d.seq
	d.gens[key] = gen
	d.mu.Unlock()

	timer := time.NewTimer(d.wait)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		d.release(key, gen)
		return false, ctx.Err()
	case <-timer.C:
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.gens[key] != gen {
		return false, nil
	}
	delete(d.gens, key)
	return true, nil
}

// release forgets key if gen is still its newest call, so idle sessions do
// not accumulate.
func (d *Debouncer) release(key string, gen uint64) {
	d.mu.Lock()
	if d.gens[key] == gen {
		delete(d.gens, key)
	}
	d.mu.Unlock()
}
