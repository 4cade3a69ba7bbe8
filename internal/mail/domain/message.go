package domain

import (
	"database/sql/driver"
	"encoding/json"
	"time"
)

// StringArray stores a JSON-encoded string slice in a text column
type StringArray []string

// Value implements driver.Valuer
func (a StringArray) Value() (driver.Value, error) {
	if len(a) == 0 {
		return "[]", nil
	}
	return json.Marshal(a)
}

// Scan implements sql.Scanner
func (a *StringArray) Scan(value interface{}) error {
	if value == nil {
		*a = []string{}
		return nil
	}
	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return nil
	}
	if len(bytes) == 0 {
		*a = []string{}
		return nil
	}
	return json.Unmarshal(bytes, a)
}

// Vector stores a JSON-encoded float32 slice in a text column.
// Used for the lazily populated message embedding; excluded from
// default repository projections to keep list payloads small.
type Vector []float32

// Value implements driver.Valuer
func (v Vector) Value() (driver.Value, error) {
	if len(v) == 0 {
		return "[]", nil
	}
	return json.Marshal(v)
}

// Scan implements sql.Scanner
func (v *Vector) Scan(value interface{}) error {
	if value == nil {
		*v = nil
		return nil
	}
	var bytes []byte
	switch val := value.(type) {
	case []byte:
		bytes = val
	case string:
		bytes = []byte(val)
	default:
		return nil
	}
	if len(bytes) == 0 {
		*v = nil
		return nil
	}
	return json.Unmarshal(bytes, v)
}

// Message is the locally mirrored copy of a provider message.
// LabelIDs caches provider truth and may be briefly stale after a
// user-initiated change until the next reconciliation pass.
type Message struct {
	ID        string      `json:"id" gorm:"primaryKey"`
	UserID    string      `json:"user_id" gorm:"index:idx_user_date;not null"`
	MessageID string      `json:"message_id" gorm:"uniqueIndex;not null"`
	ThreadID  string      `json:"thread_id"`
	Subject   string      `json:"subject"`
	Snippet   string      `json:"snippet"`
	Body      string      `json:"body,omitempty" gorm:"type:text"`
	From      string      `json:"from"`
	FromName  string      `json:"from_name"`
	Date      time.Time   `json:"date" gorm:"index:idx_user_date,sort:desc"`
	LabelIDs  StringArray `json:"label_ids" gorm:"type:text"`
	Embedding Vector      `json:"-" gorm:"type:text"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`
}

// IsRead is derived from label state, never stored independently.
func (m *Message) IsRead() bool {
	return !m.HasLabel(LabelUnread)
}

// IsStarred is derived from label state, never stored independently.
func (m *Message) IsStarred() bool {
	return m.HasLabel(LabelStarred)
}

// HasLabel reports whether the cached label set contains labelID.
func (m *Message) HasLabel(labelID string) bool {
	for _, id := range m.LabelIDs {
		if id == labelID {
			return true
		}
	}
	return false
}

// AddLabel adds labelID to the cached set if absent.
func (m *Message) AddLabel(labelID string) {
	if !m.HasLabel(labelID) {
		m.LabelIDs = append(m.LabelIDs, labelID)
	}
}

// RemoveLabel removes labelID from the cached set if present.
func (m *Message) RemoveLabel(labelID string) {
	out := m.LabelIDs[:0]
	for _, id := range m.LabelIDs {
		if id != labelID {
			out = append(out, id)
		}
	}
	m.LabelIDs = out
}
