package repository

import (
	"time"

	maildomain "mailboard-backend/internal/mail/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// SnoozeRepository defines the interface for snooze records
type SnoozeRepository interface {
	// Create inserts a new ACTIVE record, superseding any prior ACTIVE
	// record for the same (user, message) by marking it PROCESSED in
	// the same transaction. Records are never deleted.
	Create(record *maildomain.SnoozeRecord) error
	// FindDue returns ACTIVE records with wake_up_time <= now.
	FindDue(now time.Time) ([]*maildomain.SnoozeRecord, error)
	// MarkProcessed is the single ACTIVE -> PROCESSED transition.
	MarkProcessed(id string, at time.Time) error
	// ListActive pages a user's ACTIVE records, soonest wake first.
	ListActive(userID string, page, limit int) ([]*maildomain.SnoozeRecord, int, error)
}

type snoozeRepository struct {
	db *gorm.DB
}

// NewSnoozeRepository creates a new instance of snoozeRepository
func NewSnoozeRepository(db *gorm.DB) SnoozeRepository {
	return &snoozeRepository{db: db}
}

func (r *snoozeRepository) Create(record *maildomain.SnoozeRecord) error {
	if record.ID == "" {
		record.ID = uuid.New().String()
	}
	record.Status = maildomain.SnoozeActive
	record.CreatedAt = time.Now()
	record.UpdatedAt = record.CreatedAt

	return r.db.Transaction(func(tx *gorm.DB) error {
		// Supersede: at most one ACTIVE record per (user, message).
		now := time.Now()
		err := tx.Model(&maildomain.SnoozeRecord{}).
			Where("user_id = ? AND message_id = ? AND status = ?",
				record.UserID, record.MessageID, maildomain.SnoozeActive).
			Updates(map[string]interface{}{
				"status":       maildomain.SnoozeProcessed,
				"processed_at": now,
				"updated_at":   now,
			}).Error
		if err != nil {
			return err
		}
		return tx.Create(record).Error
	})
}

func (r *snoozeRepository) FindDue(now time.Time) ([]*maildomain.SnoozeRecord, error) {
	var records []*maildomain.SnoozeRecord
	err := r.db.Where("status = ? AND wake_up_time <= ?", maildomain.SnoozeActive, now).
		Order("wake_up_time ASC").
		Find(&records).Error
	if err != nil {
		return nil, err
	}
	return records, nil
}

func (r *snoozeRepository) MarkProcessed(id string, at time.Time) error {
	return r.db.Model(&maildomain.SnoozeRecord{}).
		Where("id = ? AND status = ?", id, maildomain.SnoozeActive).
		Updates(map[string]interface{}{
			"status":       maildomain.SnoozeProcessed,
			"processed_at": at,
			"updated_at":   at,
		}).Error
}

func (r *snoozeRepository) ListActive(userID string, page, limit int) ([]*maildomain.SnoozeRecord, int, error) {
	if page < 1 {
		page = 1
	}
	if limit <= 0 {
		limit = 20
	}

	base := r.db.Model(&maildomain.SnoozeRecord{}).
		Where("user_id = ? AND status = ?", userID, maildomain.SnoozeActive)

	var total int64
	if err := base.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var records []*maildomain.SnoozeRecord
	err := base.Order("wake_up_time ASC").
		Limit(limit).
		Offset((page - 1) * limit).
		Find(&records).Error
	if err != nil {
		return nil, 0, err
	}
	return records, int(total), nil
}
