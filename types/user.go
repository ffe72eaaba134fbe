package types

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"
)

// TimestampLayout is the ISO-8601 UTC layout used for every persisted timestamp.
const TimestampLayout = "2006-01-02T15:04:05.000Z"

// Well-known profile and bookkeeping field names.
const (
	FieldUsername    = "username"
	FieldEmail       = "email"
	FieldRawPassword = "rawPassword"
	FieldID          = "id"
	FieldSubmittedAt = "submittedAt"
	FieldTimestamp   = "timestamp"
)

// reservedFields are owned by the registry and never taken from an applicant.
var reservedFields = []string{FieldID, FieldSubmittedAt, FieldTimestamp}

// Profile is the applicant-supplied attribute set. Values are kept as raw JSON
// so that every field round-trips verbatim.
type Profile map[string]json.RawMessage

// String returns the value of field when it holds a JSON string.
func (p Profile) String(field string) (string, bool) {
	raw, ok := p[field]
	if !ok {
		return "", false
	}
	var value string
	if err := json.Unmarshal(raw, &value); err != nil {
		return "", false
	}
	return value, true
}

// Username returns the username field, or "" when absent.
func (p Profile) Username() string {
	value, _ := p.String(FieldUsername)
	return value
}

// Email returns the email field, or "" when absent.
func (p Profile) Email() string {
	value, _ := p.String(FieldEmail)
	return value
}

// Set stores value under field, encoding it as JSON.
func (p Profile) Set(field string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	p[field] = raw
	return nil
}

// Clone returns a copy of the profile without the given fields.
func (p Profile) Clone(without ...string) Profile {
	out := make(Profile, len(p))
	for key, value := range p {
		out[key] = value
	}
	for _, key := range without {
		delete(out, key)
	}
	return out
}

// identity returns a comparable form of field. Strings compare by their
// decoded value, anything else by its compacted JSON. Absent and null fields
// never identify a record.
func (p Profile) identity(field string) (string, bool) {
	raw, ok := p[field]
	if !ok {
		return "", false
	}
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return "", false
	}
	if value, ok := p.String(field); ok {
		return "s:" + value, true
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, trimmed); err != nil {
		return "j:" + string(trimmed), true
	}
	return "j:" + buf.String(), true
}

// PendingUser is a submitted registration awaiting moderation.
//
// A decoded record whose id or submittedAt cannot be parsed keeps the raw
// value in Profile under its own key. Such a record has a zero ID, is never
// matched by id, and is written back unchanged.
type PendingUser struct {
	ID          int64
	SubmittedAt time.Time
	Profile     Profile
}

// ActiveUser is an approved, publicly listed registrant. An unparseable
// timestamp is kept in Profile the same way.
type ActiveUser struct {
	Timestamp time.Time
	Profile   Profile
}

// HasRawID reports whether the record carries an id that could not be parsed.
func (u PendingUser) HasRawID() bool {
	_, ok := u.Profile[FieldID]
	return ok
}

// MarshalJSON flattens the profile next to the bookkeeping fields.
func (u PendingUser) MarshalJSON() ([]byte, error) {
	fields := make(map[string]any, len(u.Profile)+2)
	for key, value := range u.Profile {
		fields[key] = value
	}
	if _, raw := u.Profile[FieldID]; !raw {
		fields[FieldID] = u.ID
	}
	if _, raw := u.Profile[FieldSubmittedAt]; !raw && !u.SubmittedAt.IsZero() {
		fields[FieldSubmittedAt] = FormatTimestamp(u.SubmittedAt)
	}
	return json.Marshal(fields)
}

// UnmarshalJSON splits a flattened record into bookkeeping and profile fields.
// Only a record that is not a JSON object is an error.
func (u *PendingUser) UnmarshalJSON(data []byte) error {
	var fields Profile
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}
	*u = PendingUser{}
	if raw, ok := fields[FieldID]; ok {
		if id, err := parseID(raw); err == nil {
			u.ID = id
			delete(fields, FieldID)
		}
	}
	if raw, ok := fields[FieldSubmittedAt]; ok {
		if at, err := parseTimestamp(raw); err == nil {
			u.SubmittedAt = at
			delete(fields, FieldSubmittedAt)
		}
	}
	u.Profile = fields
	return nil
}

// MarshalJSON flattens the profile next to the approval timestamp.
func (u ActiveUser) MarshalJSON() ([]byte, error) {
	fields := make(map[string]any, len(u.Profile)+1)
	for key, value := range u.Profile {
		fields[key] = value
	}
	if _, raw := u.Profile[FieldTimestamp]; !raw && !u.Timestamp.IsZero() {
		fields[FieldTimestamp] = FormatTimestamp(u.Timestamp)
	}
	return json.Marshal(fields)
}

// UnmarshalJSON splits a flattened record into timestamp and profile fields.
func (u *ActiveUser) UnmarshalJSON(data []byte) error {
	var fields Profile
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}
	*u = ActiveUser{}
	if raw, ok := fields[FieldTimestamp]; ok {
		if at, err := parseTimestamp(raw); err == nil {
			u.Timestamp = at
			delete(fields, FieldTimestamp)
		}
	}
	u.Profile = fields
	return nil
}

// FormatTimestamp renders t in TimestampLayout.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}

func parseTimestamp(raw json.RawMessage) (time.Time, error) {
	var value string
	if err := json.Unmarshal(raw, &value); err != nil {
		return time.Time{}, err
	}
	return time.Parse(time.RFC3339Nano, strings.TrimSpace(value))
}

func parseID(raw json.RawMessage) (int64, error) {
	var number json.Number
	if err := json.Unmarshal(raw, &number); err != nil {
		return 0, err
	}
	return WholeNumber(number)
}

// WholeNumber converts a JSON number such as 42, "42" or 4.2e1 to an int64.
// Fractional and out-of-range values are rejected.
func WholeNumber(number json.Number) (int64, error) {
	if id, err := number.Int64(); err == nil {
		return id, nil
	}
	value, err := number.Float64()
	if err != nil {
		return 0, err
	}
	if value != math.Trunc(value) || math.Abs(value) > maxExactFloat {
		return 0, fmt.Errorf("%s is not a whole number", number)
	}
	return int64(value), nil
}

// maxExactFloat is the largest magnitude at which float64 still holds every integer.
const maxExactFloat = 1 << 53
