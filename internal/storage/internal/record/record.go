// Package record defines the stored form of a session and the expiry rule
// shared by every backend.
package record

import (
	"encoding/json"
	"errors"
	"time"
)

// Record is what a backend persists for one identifier.
// Time is seconds since the epoch with microsecond precision.
type Record struct {
	Data string  `json:"data"`
	Time float64 `json:"time"`
}

// ErrMalformed is returned by Decode when the payload is not a record.
var ErrMalformed = errors.New("record: malformed")

// New stamps data with t.
func New(data string, t time.Time) Record {
	return Record{Data: data, Time: Seconds(t)}
}

// Seconds converts t to float seconds, truncated to the microsecond.
func Seconds(t time.Time) float64 {
	return float64(t.UnixMicro()) / 1e6
}

// Cutoff returns the newest record time that is expired at now for maxAge.
func Cutoff(now time.Time, maxAge time.Duration) float64 {
	return Seconds(now.Add(-maxAge))
}

// Expired reports whether r was saved at or before cutoff.
func (r Record) Expired(cutoff float64) bool {
	return r.Time <= cutoff
}

// Timestamp returns the save time.
func (r Record) Timestamp() time.Time {
	return time.UnixMicro(int64(r.Time*1e6 + 0.5))
}

// Encode serializes r as JSON.
func Encode(r Record) ([]byte, error) {
	return json.Marshal(r)
}

// Decode parses a JSON record. Both fields must be present.
func Decode(b []byte) (Record, error) {
	var raw struct {
		Data *string  `json:"data"`
		Time *float64 `json:"time"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return Record{}, errors.Join(ErrMalformed, err)
	}
	if raw.Data == nil || raw.Time == nil {
		return Record{}, ErrMalformed
	}
	return Record{Data: *raw.Data, Time: *raw.Time}, nil
}
