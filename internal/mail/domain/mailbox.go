package domain

// System label IDs used across the sync, board and snooze engines.
const (
	LabelInbox   = "INBOX"
	LabelUnread  = "UNREAD"
	LabelStarred = "STARRED"
	LabelTrash   = "TRASH"
)

// Logical workflow labels auto-created at the provider on first use.
const (
	LogicalTodo    = "TODO"
	LogicalDone    = "DONE"
	LogicalSnoozed = "SNOOZED"
)

// Mailbox is a provider label as seen by the label directory.
type Mailbox struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Type        string `json:"type"` // "system" or "user"
	UnreadCount int    `json:"unread_count"`
}

// OutgoingMessage carries the fields needed to send mail through the provider.
type OutgoingMessage struct {
	FromName string
	From     string
	To       string
	Cc       string
	Bcc      string
	Subject  string
	Body     string
	HTML     bool
}
