// Package idempotency protects mutating endpoints against accidental
// replays. Clients send an Idempotency-Key header; the first request with a
// given key runs normally and its response is recorded, later requests with
// the same key and payload get the recorded response back.
package idempotency

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"net/http"
	"strings"
	"time"
)

// DefaultTTL is how long a recorded response stays replayable.
const DefaultTTL = 24 * time.Hour

// Status tracks the lifecycle of a stored record.
type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
)

// ReservationState is the outcome of claiming a key.
type ReservationState int

const (
	// ReservationNew means the key was unused and the request should proceed.
	ReservationNew ReservationState = iota
	// ReservationReplay means a recorded response exists and should be returned.
	ReservationReplay
	// ReservationInFlight means another request holds the key right now.
	ReservationInFlight
)

// Reservation is the result of Reserve, carrying the stored record on replay.
type Reservation struct {
	State  ReservationState
	Record Record
}

// Record is the persisted response for one idempotency key.
type Record struct {
	Key             string
	Fingerprint     string
	Status          Status
	ResponseStatus  int
	ResponseHeaders map[string][]string
	ResponseBody    []byte
	CreatedAt       time.Time
	UpdatedAt       time.Time
	ExpiresAt       time.Time
}

// Response is the captured handler output to store for replay.
type Response struct {
	Status  int
	Headers http.Header
	Body    []byte
}

// Store persists reservations and recorded responses.
type Store interface {
	Reserve(ctx context.Context, key, fingerprint string, now time.Time, ttl time.Duration) (Reservation, error)
	SaveResponse(ctx context.Context, key, fingerprint string, resp Response, now time.Time, ttl time.Duration) error
	Release(ctx context.Context, key, fingerprint string) error
}

// ErrFingerprintMismatch is returned when a key is reused with a different payload.
var ErrFingerprintMismatch = errors.New("idempotency: key reused with a different request")

func recordID(key string) string {
	return sha256Hex([]byte(strings.TrimSpace(key)))
}

func sha256Hex(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// hop-by-hop and volatile headers are not worth replaying
func storableHeaders(header http.Header) map[string][]string {
	if len(header) == 0 {
		return nil
	}
	kept := make(map[string][]string, len(header))
	for name, values := range header {
		canonical := http.CanonicalHeaderKey(name)
		switch canonical {
		case "Content-Length", "Date", "Connection", "Keep-Alive", "Transfer-Encoding", "Upgrade":
			continue
		}
		copied := make([]string, len(values))
		copy(copied, values)
		kept[canonical] = copied
	}
	if len(kept) == 0 {
		return nil
	}
	return kept
}
