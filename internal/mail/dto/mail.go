package dto

import (
	"time"

	maildomain "mailboard-backend/internal/mail/domain"
)

type SendMessageRequest struct {
	To      string `json:"to" binding:"required"`
	Cc      string `json:"cc"`
	Bcc     string `json:"bcc"`
	Subject string `json:"subject"`
	Body    string `json:"body" binding:"required"`
	HTML    bool   `json:"html"`
}

type ColumnRequest struct {
	ID          string `json:"id"`
	Title       string `json:"title" binding:"required"`
	TargetLabel string `json:"target_label" binding:"required"`
	Color       string `json:"color"`
	Order       *int   `json:"order"`
}

type CreateColumnsRequest struct {
	Columns []ColumnRequest `json:"columns" binding:"required,min=1"`
}

type UpdateColumnRequest struct {
	Title       *string `json:"title"`
	TargetLabel *string `json:"target_label"`
	Color       *string `json:"color"`
	Order       *int    `json:"order"`
}

func (r *UpdateColumnRequest) ToPatch() maildomain.ColumnPatch {
	return maildomain.ColumnPatch{
		Title:       r.Title,
		TargetLabel: r.TargetLabel,
		Color:       r.Color,
		Order:       r.Order,
	}
}

type ReorderRequest struct {
	Orders map[string]int `json:"orders" binding:"required"`
}

type MoveCardRequest struct {
	MessageID    string `json:"message_id" binding:"required"`
	SourceColumn string `json:"source_column"`
	DestColumn   string `json:"dest_column" binding:"required"`
}

type SnoozeRequest struct {
	MessageID  string    `json:"message_id" binding:"required"`
	WakeUpTime time.Time `json:"wake_up_time" binding:"required"`
}

type MessageListResponse struct {
	Messages []*maildomain.Message `json:"messages"`
	Total    int                   `json:"total"`
	Limit    int                   `json:"limit"`
	Offset   int                   `json:"offset"`
}

type SnoozeListResponse struct {
	Snoozes []*maildomain.SnoozeRecord `json:"snoozes"`
	Total   int                        `json:"total"`
	Page    int                        `json:"page"`
	Limit   int                        `json:"limit"`
}
