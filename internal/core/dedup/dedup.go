// Package dedup tracks accepted codes and scanned source items for the
// lifetime of the process. All state is memory-only by design; the only
// cross-restart guarantee this system makes is at-most-once per process
package dedup

import "sync"

// DefaultSeenBound is the seen-items size that triggers a full clear
const DefaultSeenBound = 500

// Ledger holds two independent sets behind one mutex:
// accepted codes (never re-notify) and seen item ids (never rescan).
// TryReserve/Release implement the reserve-before-notify protocol
type Ledger struct {
	mu        sync.Mutex
	accepted  map[string]struct{}
	seen      map[string]struct{}
	seenBound int
}

// New constructs an empty Ledger; bound <= 0 uses DefaultSeenBound
func New(bound int) *Ledger {
	if bound <= 0 {
		bound = DefaultSeenBound
	}
	return &Ledger{
		accepted:  make(map[string]struct{}),
		seen:      make(map[string]struct{}),
		seenBound: bound,
	}
}

// TryReserve atomically checks and inserts code into the accepted set.
// Returns true when the caller now owns the only reservation for code.
// Reservation happens before notification is attempted so two sources
// racing on the same code cannot both deliver
func (l *Ledger) TryReserve(code string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.accepted[code]; ok {
		return false
	}
	l.accepted[code] = struct{}{}
	return true
}

// Release removes code from the accepted set. Called only when a reserved
// code fails delivery, so a later occurrence can retry. Commit is implicit:
// a delivered code simply stays reserved forever
func (l *Ledger) Release(code string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.accepted, code)
}

// Accepted reports whether code is currently reserved or committed
func (l *Ledger) Accepted(code string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.accepted[code]
	return ok
}

// AcceptedCount returns the number of codes accepted so far
func (l *Ledger) AcceptedCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.accepted)
}

// HasSeenItem reports whether the source item id was already scanned
func (l *Ledger) HasSeenItem(id string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.seen[id]
	return ok
}

// MarkSeenItem records the source item id; idempotent
func (l *Ledger) MarkSeenItem(id string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.seen[id] = struct{}{}
}

// SeenCount returns the current size of the seen-items set
func (l *Ledger) SeenCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.seen)
}

// Compact clears the seen set entirely once it exceeds the bound: a full
// reset, not an LRU trim. Old items may be rescanned afterwards, which is
// harmless because the accepted set still prevents re-notification.
// Returns true when a clear happened
func (l *Ledger) Compact() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.seen) <= l.seenBound {
		return false
	}
	l.seen = make(map[string]struct{})
	return true
}
