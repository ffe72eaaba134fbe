package types

import "time"

// Document is the single persisted aggregate holding both user collections.
type Document struct {
	// Active holds approved users in approval order.
	Active []ActiveUser `json:"activeUsers"`

	// Pending holds submitted users in submission order.
	Pending []PendingUser `json:"pendingUsers"`

	// LastID is the highest id ever assigned to a pending user.
	LastID int64 `json:"lastId,omitempty"`
}

// NewDocument returns a document with both collections empty.
func NewDocument() Document {
	return Document{
		Active:  []ActiveUser{},
		Pending: []PendingUser{},
	}
}

// Normalize replaces nil collections with empty ones so they encode as [].
func (d *Document) Normalize() {
	if d.Active == nil {
		d.Active = []ActiveUser{}
	}
	if d.Pending == nil {
		d.Pending = []PendingUser{}
	}
}

// HasDuplicate reports whether any active or pending record shares the
// profile's username or email.
func (d *Document) HasDuplicate(profile Profile) bool {
	username, hasUsername := profile.identity(FieldUsername)
	email, hasEmail := profile.identity(FieldEmail)
	matches := func(existing Profile) bool {
		if value, ok := existing.identity(FieldUsername); ok && hasUsername && value == username {
			return true
		}
		if value, ok := existing.identity(FieldEmail); ok && hasEmail && value == email {
			return true
		}
		return false
	}

	for _, user := range d.Active {
		if matches(user.Profile) {
			return true
		}
	}
	for _, user := range d.Pending {
		if matches(user.Profile) {
			return true
		}
	}
	return false
}

// HighestID returns the largest id assigned so far, whether or not the
// record carrying it is still pending.
func (d *Document) HighestID() int64 {
	highest := d.LastID
	for _, user := range d.Pending {
		if user.ID > highest {
			highest = user.ID
		}
	}
	return highest
}

// AddPending appends a new pending record built from profile.
func (d *Document) AddPending(profile Profile, id int64, submittedAt time.Time) PendingUser {
	user := PendingUser{
		ID:          id,
		SubmittedAt: submittedAt.UTC(),
		Profile:     profile.Clone(reservedFields...),
	}
	d.Pending = append(d.Pending, user)
	if id > d.LastID {
		d.LastID = id
	}
	return user
}

// PendingIndex returns the position of the pending record with id, or -1.
// Records whose stored id could not be parsed never match.
func (d *Document) PendingIndex(id int64) int {
	for i, user := range d.Pending {
		if user.ID == id && !user.HasRawID() {
			return i
		}
	}
	return -1
}

// Promote moves the pending record at index to the end of the active list,
// stripping the schema's sensitive fields.
func (d *Document) Promote(index int, schema Schema, approvedAt time.Time) ActiveUser {
	pending := d.Pending[index]
	active := ActiveUser{
		Timestamp: approvedAt.UTC(),
		Profile:   schema.Public(pending.Profile),
	}
	d.Active = append(d.Active, active)

	remaining := make([]PendingUser, 0, len(d.Pending)-1)
	remaining = append(remaining, d.Pending[:index]...)
	remaining = append(remaining, d.Pending[index+1:]...)
	d.Pending = remaining
	return active
}
