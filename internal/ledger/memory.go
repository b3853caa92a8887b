package ledger

import (
	"context"
	"fmt"
	"sync"
	"time"
)

type memoryEntry struct {
	value     []byte
	expiresAt time.Time
}

// MemoryLedger is the in-process ledger used when no Redis is configured.
// Claims do not survive a restart.
type MemoryLedger struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	now     func() time.Time
}

func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{entries: make(map[string]memoryEntry), now: time.Now}
}

func (l *MemoryLedger) key(documentID, gestureID string) string {
	return documentID + ":" + gestureID
}

// live returns the unexpired entry for key. Callers hold l.mu.
func (l *MemoryLedger) live(key string) (memoryEntry, bool) {
	entry, ok := l.entries[key]
	if !ok {
		return memoryEntry{}, false
	}
	if !entry.expiresAt.IsZero() && !l.now().Before(entry.expiresAt) {
		delete(l.entries, key)
		return memoryEntry{}, false
	}
	return entry, true
}

func (l *MemoryLedger) expiry(ttl time.Duration) time.Time {
	if ttl <= 0 {
		return time.Time{}
	}
	return l.now().Add(ttl)
}

func (l *MemoryLedger) Claim(_ context.Context, documentID, gestureID string, ttl time.Duration) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	key := l.key(documentID, gestureID)
	if _, ok := l.live(key); ok {
		return false, nil
	}
	l.entries[key] = memoryEntry{value: []byte(pendingValue), expiresAt: l.expiry(ttl)}
	return true, nil
}

func (l *MemoryLedger) Complete(_ context.Context, documentID, gestureID string, payload []byte, ttl time.Duration) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	key := l.key(documentID, gestureID)
	if _, ok := l.live(key); !ok {
		return fmt.Errorf("%w: %s", ErrNotClaimed, gestureID)
	}
	l.entries[key] = memoryEntry{value: append([]byte(nil), payload...), expiresAt: l.expiry(ttl)}
	return nil
}

func (l *MemoryLedger) Lookup(_ context.Context, documentID, gestureID string) (Entry, bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	entry, ok := l.live(l.key(documentID, gestureID))
	if !ok {
		return Entry{}, false, nil
	}
	if string(entry.value) == pendingValue {
		return Entry{Pending: true}, true, nil
	}
	return Entry{Payload: append([]byte(nil), entry.value...)}, true, nil
}

func (l *MemoryLedger) Release(_ context.Context, documentID, gestureID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.entries, l.key(documentID, gestureID))
	return nil
}

func (l *MemoryLedger) Ping(context.Context) error { return nil }

func (l *MemoryLedger) Close() error { return nil }
