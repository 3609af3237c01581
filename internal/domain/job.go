package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// StateKind is the lifecycle state of a Hakbot job.
type StateKind string

const (
	StateCreated     StateKind = "CREATED"
	StateInQueue     StateKind = "IN_QUEUE"
	StateInProgress  StateKind = "IN_PROGRESS"
	StateCompleted   StateKind = "COMPLETED"
	StatePublished   StateKind = "PUBLISHED"
	StateCanceled    StateKind = "CANCELED"
	StateUnavailable StateKind = "UNAVAILABLE"
	StateFailed      StateKind = "FAILED"
)

// States lists every known state in lifecycle order.
var States = []StateKind{
	StateCreated,
	StateInQueue,
	StateInProgress,
	StateCompleted,
	StatePublished,
	StateCanceled,
	StateUnavailable,
	StateFailed,
}

// Timestamp is a Unix instant as sent by the backend. The backend mixes
// seconds and milliseconds, so the raw value is kept and interpreted at
// display time. Zero means absent.
type Timestamp int64

// IsZero reports whether the timestamp is absent.
func (t Timestamp) IsZero() bool {
	return t == 0
}

// Digits returns the number of characters in the decimal rendering of t,
// including a leading minus sign.
func (t Timestamp) Digits() int {
	return len(strconv.FormatInt(int64(t), 10))
}

// Millis returns the instant in milliseconds. Values with at most ten
// digits are treated as seconds.
func (t Timestamp) Millis() int64 {
	if t.Digits() <= 10 {
		return int64(t) * 1000
	}
	return int64(t)
}

// UnmarshalJSON accepts numbers, numeric strings, "" and null.
func (t *Timestamp) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*t = 0
		return nil
	}

	raw := string(data)
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return fmt.Errorf("timestamp: %w", err)
		}
		raw = strings.TrimSpace(s)
		if raw == "" {
			*t = 0
			return nil
		}
	}

	if v, err := strconv.ParseInt(raw, 10, 64); err == nil {
		*t = Timestamp(v)
		return nil
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return fmt.Errorf("timestamp: invalid value %q", raw)
	}
	*t = Timestamp(int64(f))
	return nil
}

// MarshalJSON writes absent timestamps as null.
func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t == 0 {
		return []byte("null"), nil
	}
	return []byte(strconv.FormatInt(int64(t), 10)), nil
}

// JobRecord is a job as returned by the backend job listing.
type JobRecord struct {
	UUID      string    `json:"uuid"`
	Name      string    `json:"name"`
	Provider  *string   `json:"provider"`
	Publisher *string   `json:"publisher"`
	State     StateKind `json:"state"`
	Created   Timestamp `json:"created"`
	Started   Timestamp `json:"started"`
	Completed Timestamp `json:"completed"`
}

// ProviderClass returns the provider class key or "" when unset.
func (j JobRecord) ProviderClass() string {
	if j.Provider == nil {
		return ""
	}
	return *j.Provider
}
