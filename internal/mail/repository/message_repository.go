package repository

import (
	"errors"
	"time"

	maildomain "mailboard-backend/internal/mail/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// messageColumns is the default projection; the embedding vector is
// excluded to keep list payloads small and is loaded on demand only.
var messageColumns = []string{
	"id", "user_id", "message_id", "thread_id", "subject", "snippet",
	"body", "\"from\"", "from_name", "date", "label_ids", "created_at", "updated_at",
}

// MessageRepository defines the interface for the mail mirror store
type MessageRepository interface {
	// BulkUpsert applies one batched write keyed by message_id; syncing
	// the same message twice leaves exactly one row, last writer wins.
	BulkUpsert(messages []*maildomain.Message) error
	// LatestMessageDate returns the high-water mark for a user; ok is
	// false on a first-time sync with no mirrored messages.
	LatestMessageDate(userID string) (t time.Time, ok bool, err error)
	GetByMessageID(userID, messageID string) (*maildomain.Message, error)
	GetByMessageIDs(userID string, messageIDs []string) ([]*maildomain.Message, error)
	Recent(userID string, limit int) ([]*maildomain.Message, error)
	ListByLabel(userID, labelID string, limit, offset int) ([]*maildomain.Message, int, error)
	// PatchLabels applies an additive/subtractive patch to the cached
	// label set of one message; a missing row is a successful no-op.
	PatchLabels(userID, messageID string, add, remove []string) error
}

type messageRepository struct {
	db *gorm.DB
}

// NewMessageRepository creates a new instance of messageRepository
func NewMessageRepository(db *gorm.DB) MessageRepository {
	return &messageRepository{db: db}
}

func (r *messageRepository) BulkUpsert(messages []*maildomain.Message) error {
	if len(messages) == 0 {
		return nil
	}
	now := time.Now()
	for _, m := range messages {
		if m.ID == "" {
			m.ID = uuid.New().String()
		}
		if m.CreatedAt.IsZero() {
			m.CreatedAt = now
		}
		m.UpdatedAt = now
	}
	// INSERT ... ON CONFLICT (message_id) DO UPDATE: full-document
	// replace of the canonical remote fields, including the label set.
	return r.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "message_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"thread_id", "subject", "snippet", "body", "from", "from_name",
			"date", "label_ids", "embedding", "updated_at",
		}),
	}).Create(&messages).Error
}

func (r *messageRepository) LatestMessageDate(userID string) (time.Time, bool, error) {
	var msg maildomain.Message
	err := r.db.Select("date").
		Where("user_id = ?", userID).
		Order("date DESC").
		First(&msg).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return time.Time{}, false, nil
		}
		return time.Time{}, false, err
	}
	return msg.Date, true, nil
}

func (r *messageRepository) GetByMessageID(userID, messageID string) (*maildomain.Message, error) {
	var msg maildomain.Message
	err := r.db.Select(messageColumns).
		Where("user_id = ? AND message_id = ?", userID, messageID).
		First(&msg).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &msg, nil
}

func (r *messageRepository) GetByMessageIDs(userID string, messageIDs []string) ([]*maildomain.Message, error) {
	if len(messageIDs) == 0 {
		return nil, nil
	}
	var msgs []*maildomain.Message
	err := r.db.Select(messageColumns).
		Where("user_id = ? AND message_id IN ?", userID, messageIDs).
		Find(&msgs).Error
	if err != nil {
		return nil, err
	}
	return msgs, nil
}

func (r *messageRepository) Recent(userID string, limit int) ([]*maildomain.Message, error) {
	if limit <= 0 {
		limit = 100
	}
	var msgs []*maildomain.Message
	err := r.db.Select(messageColumns).
		Where("user_id = ?", userID).
		Order("date DESC").
		Limit(limit).
		Find(&msgs).Error
	if err != nil {
		return nil, err
	}
	return msgs, nil
}

func (r *messageRepository) ListByLabel(userID, labelID string, limit, offset int) ([]*maildomain.Message, int, error) {
	if limit <= 0 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	base := r.db.Model(&maildomain.Message{}).
		Where("user_id = ? AND label_ids LIKE ?", userID, `%"`+labelID+`"%`)

	var total int64
	if err := base.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var msgs []*maildomain.Message
	err := base.Select(messageColumns).
		Order("date DESC").
		Limit(limit).
		Offset(offset).
		Find(&msgs).Error
	if err != nil {
		return nil, 0, err
	}
	return msgs, int(total), nil
}

func (r *messageRepository) PatchLabels(userID, messageID string, add, remove []string) error {
	var msg maildomain.Message
	err := r.db.Where("user_id = ? AND message_id = ?", userID, messageID).First(&msg).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// Not mirrored yet; the next sync pass picks up the change.
			return nil
		}
		return err
	}

	for _, id := range remove {
		msg.RemoveLabel(id)
	}
	for _, id := range add {
		msg.AddLabel(id)
	}
	msg.UpdatedAt = time.Now()

	return r.db.Model(&maildomain.Message{}).
		Where("id = ?", msg.ID).
		Updates(map[string]interface{}{
			"label_ids":  msg.LabelIDs,
			"updated_at": msg.UpdatedAt,
		}).Error
}
