package repository

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// ErrCorruptRecord marks a persisted record whose fields could not be
// reconstructed. The collection is left untouched so nothing is lost.
var ErrCorruptRecord = errors.New("corrupt persisted record")

// timestamps are stored as UTC RFC3339 with nanoseconds.
func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func formatOptionalTime(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := formatTime(*t)
	return &s
}

func parseTime(field, raw string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %s=%q: %v", ErrCorruptRecord, field, raw, err)
	}
	return t, nil
}

func parseOptionalTime(field string, raw *string) (*time.Time, error) {
	if raw == nil || *raw == "" {
		return nil, nil
	}
	t, err := parseTime(field, *raw)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// decodeDocument unmarshals a persisted collection. ok is false when
// the payload is absent or is not a JSON array of records; callers
// treat that as an empty collection.
func decodeDocument[T any](payload []byte) (records []T, ok bool) {
	if len(payload) == 0 {
		return nil, true
	}
	if err := json.Unmarshal(payload, &records); err != nil {
		return nil, false
	}
	return records, true
}
