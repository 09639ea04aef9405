// Package activity polls AniList for new media-list activity on every linked
// account and announces genuinely new entries, deduplicating with a
// process-lifetime ledger.
package activity

import "sync"

// Ledger remembers the last announced activity id per AniList display name.
// It lives only for the lifetime of the process: after a restart at most one
// already-announced activity per account may be announced again.
type Ledger struct {
	mu   sync.Mutex
	last map[string]int
}

func NewLedger() *Ledger {
	return &Ledger{last: make(map[string]int)}
}

// Observe reports whether id is newer than the last recorded activity for
// remoteName, and records it if so. Ids are per-user monotonically increasing
// on AniList; a stored value >= id means already seen (the numeric ordering,
// not equality, tolerates out-of-order delivery).
func (l *Ledger) Observe(remoteName string, id int) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if last, ok := l.last[remoteName]; ok && last >= id {
		return false
	}
	l.last[remoteName] = id
	return true
}

// Peek returns the recorded id for remoteName, if any.
func (l *Ledger) Peek(remoteName string) (int, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	id, ok := l.last[remoteName]
	return id, ok
}

// Drop forgets remoteName, typically on unlink.
func (l *Ledger) Drop(remoteName string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.last, remoteName)
}

// Len returns the number of tracked accounts.
func (l *Ledger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.last)
}
