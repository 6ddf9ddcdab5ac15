package sqlite

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

// Timestamps persist as Unix milliseconds in INTEGER columns. The
// engine works at millisecond precision everywhere, so nothing is lost,
// and integer comparisons keep the due/watermark queries trivial.

func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

func fromMillis(value int64) time.Time {
	return time.UnixMilli(value).UTC()
}

// toNullMillis maps the zero time to NULL so "never happened" survives
// a round trip instead of becoming 1970.
func toNullMillis(value time.Time) sql.NullInt64 {
	if value.IsZero() {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: toMillis(value), Valid: true}
}

func fromNullMillis(value sql.NullInt64) time.Time {
	if !value.Valid {
		return time.Time{}
	}
	return fromMillis(value.Int64)
}

// marshalJSON serializes slice-valued columns (lookups, contexts,
// deck words).
func marshalJSON(v any) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("marshal column: %w", err)
	}
	return string(data), nil
}

// marshalStringSlice serializes a string slice column. A nil slice
// persists as an empty JSON array rather than null.
func marshalStringSlice(values []string) (string, error) {
	if values == nil {
		values = []string{}
	}
	return marshalJSON(values)
}

func unmarshalMillisSlice(raw string) ([]time.Time, error) {
	if raw == "" {
		return nil, nil
	}
	var millis []int64
	if err := json.Unmarshal([]byte(raw), &millis); err != nil {
		return nil, fmt.Errorf("unmarshal timestamps: %w", err)
	}
	if len(millis) == 0 {
		return nil, nil
	}
	out := make([]time.Time, len(millis))
	for i, m := range millis {
		out[i] = fromMillis(m)
	}
	return out, nil
}

func marshalMillisSlice(values []time.Time) (string, error) {
	millis := make([]int64, len(values))
	for i, v := range values {
		millis[i] = toMillis(v)
	}
	return marshalJSON(millis)
}

func unmarshalStringSlice(raw string) ([]string, error) {
	if raw == "" {
		return nil, nil
	}
	var out []string
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return nil, fmt.Errorf("unmarshal strings: %w", err)
	}
	if len(out) == 0 {
		return nil, nil
	}
	return out, nil
}
