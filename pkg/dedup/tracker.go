// Package dedup suppresses repeated post texts within one scrape invocation.
package dedup

import (
	"strings"
	"sync"
	"unicode/utf8"
)

// DefaultMinLength is the shortest text treated as genuine post content
const DefaultMinLength = 20

// Tracker is the set of normalized texts seen during one run.
// Texts shorter than the minimum length never enter the set.
type Tracker struct {
	mu        sync.Mutex
	minLength int
	seen      map[string]struct{}
}

// NewTracker creates a tracker; minLength <= 0 uses DefaultMinLength
func NewTracker(minLength int) *Tracker {
	if minLength <= 0 {
		minLength = DefaultMinLength
	}
	return &Tracker{minLength: minLength, seen: make(map[string]struct{})}
}

// Normalize collapses whitespace to form the dedup key. Case is kept, so the
// key agrees with the post identifier.
func Normalize(text string) string {
	return strings.Join(strings.Fields(text), " ")
}

// Eligible reports whether text is long enough to count as post content
func (t *Tracker) Eligible(text string) bool {
	return utf8.RuneCountInString(strings.Join(strings.Fields(text), " ")) >= t.minLength
}

// Seen reports whether an equivalent text was already recorded
func (t *Tracker) Seen(text string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.seen[Normalize(text)]
	return ok
}

// Record adds text to the set; ineligible text is ignored
func (t *Tracker) Record(text string) {
	if !t.Eligible(text) {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.seen[Normalize(text)] = struct{}{}
}

// Accept records text and reports true only the first time an eligible text is offered
func (t *Tracker) Accept(text string) bool {
	if !t.Eligible(text) {
		return false
	}
	key := Normalize(text)

	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.seen[key]; ok {
		return false
	}
	t.seen[key] = struct{}{}
	return true
}

// Len returns the number of distinct texts recorded
func (t *Tracker) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.seen)
}
