package domain

import "time"

// KanbanColumn is a user-defined board column bound to one target label.
// ColumnID is the stable token used by clients; ID is the storage key.
type KanbanColumn struct {
	ID          string    `json:"-" gorm:"primaryKey"`
	UserID      string    `json:"user_id" gorm:"index:idx_user_column;not null"`
	ColumnID    string    `json:"id" gorm:"index:idx_user_column;not null"`
	Title       string    `json:"title" gorm:"not null"`
	TargetLabel string    `json:"target_label"` // provider label id or "INBOX"/"SNOOZED"
	Color       string    `json:"color"`
	Order       int       `json:"order" gorm:"column:display_order;not null;default:0"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// ColumnPatch is a sparse update: only non-nil fields are applied.
// The patchable field set is enumerated here on purpose; nothing is
// built from dynamic key paths.
type ColumnPatch struct {
	Title       *string `json:"title"`
	TargetLabel *string `json:"target_label"`
	Color       *string `json:"color"`
	Order       *int    `json:"order"`
}

// Empty reports whether the patch would touch no fields.
func (p ColumnPatch) Empty() bool {
	return p.Title == nil && p.TargetLabel == nil && p.Color == nil && p.Order == nil
}
