package types

// Moderation event types.
const (
	EventUserSubmitted = "user.submitted"
	EventUserApproved  = "user.approved"
)

// Event is published after a moderation change has been persisted.
type Event struct {
	ID         string `json:"id"`
	Type       string `json:"type"`
	UserID     int64  `json:"userId"`
	Username   string `json:"username"`
	OccurredAt string `json:"occurredAt"`
}
