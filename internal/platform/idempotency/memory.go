package idempotency

import (
	"context"
	"sync"
	"time"
)

// MemoryStore keeps idempotency records in process memory. Records vanish on
// restart, which is acceptable for a single-instance deployment.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]Record
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]Record)}
}

// Reserve claims the key, replays a completed record, or reports an in-flight
// request holding the same key.
func (s *MemoryStore) Reserve(_ context.Context, key, fingerprint string, now time.Time, ttl time.Duration) (Reservation, error) {
	now = now.UTC()
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.pruneLocked(now)

	id := recordID(key)
	entry, ok := s.entries[id]
	if !ok {
		entry = Record{
			Key:         key,
			Fingerprint: fingerprint,
			Status:      StatusPending,
			CreatedAt:   now,
			UpdatedAt:   now,
			ExpiresAt:   now.Add(ttl),
		}
		s.entries[id] = entry
		return Reservation{State: ReservationNew, Record: entry}, nil
	}

	if entry.Fingerprint != fingerprint {
		return Reservation{}, ErrFingerprintMismatch
	}
	if entry.Status == StatusCompleted {
		return Reservation{State: ReservationReplay, Record: entry}, nil
	}
	return Reservation{State: ReservationInFlight, Record: entry}, nil
}

// SaveResponse records the handler's response against the key.
func (s *MemoryStore) SaveResponse(_ context.Context, key, fingerprint string, resp Response, now time.Time, ttl time.Duration) error {
	now = now.UTC()
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	id := recordID(key)
	entry, ok := s.entries[id]
	if ok && entry.Fingerprint != fingerprint {
		return ErrFingerprintMismatch
	}
	if !ok {
		entry = Record{Key: key, Fingerprint: fingerprint, CreatedAt: now}
	}

	entry.Status = StatusCompleted
	entry.ResponseStatus = resp.Status
	entry.ResponseHeaders = storableHeaders(resp.Headers)
	entry.ResponseBody = nil
	if len(resp.Body) > 0 {
		entry.ResponseBody = append([]byte(nil), resp.Body...)
	}
	entry.UpdatedAt = now
	entry.ExpiresAt = now.Add(ttl)
	s.entries[id] = entry
	return nil
}

// Release frees the key so the client can retry after a failure.
func (s *MemoryStore) Release(_ context.Context, key, _ string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.entries, recordID(key))
	return nil
}

func (s *MemoryStore) pruneLocked(now time.Time) {
	for id, entry := range s.entries {
		if !entry.ExpiresAt.IsZero() && !now.Before(entry.ExpiresAt) {
			delete(s.entries, id)
		}
	}
}
