package domain

import "time"

// SnoozeStatus is the lifecycle state of a snooze record.
// ACTIVE -> PROCESSED is the only transition; PROCESSED is terminal.
type SnoozeStatus string

const (
	SnoozeActive    SnoozeStatus = "ACTIVE"
	SnoozeProcessed SnoozeStatus = "PROCESSED"
)

// SnoozeRecord schedules the re-surfacing of a message at WakeUpTime.
// Records are never deleted; processed ones remain as an audit trail.
type SnoozeRecord struct {
	ID          string       `json:"id" gorm:"primaryKey"`
	UserID      string       `json:"user_id" gorm:"index;not null"`
	MessageID   string       `json:"message_id" gorm:"index;not null"`
	WakeUpTime  time.Time    `json:"wake_up_time" gorm:"index:idx_status_wake"`
	Status      SnoozeStatus `json:"status" gorm:"index:idx_status_wake;not null;default:'ACTIVE'"`
	ProcessedAt *time.Time   `json:"processed_at,omitempty"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
}
