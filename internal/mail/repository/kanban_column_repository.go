package repository

import (
	"errors"
	"time"

	maildomain "mailboard-backend/internal/mail/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// KanbanColumnRepository defines the interface for board column configs
type KanbanColumnRepository interface {
	// GetColumnsByUserID returns a user's columns sorted by display order
	GetColumnsByUserID(userID string) ([]*maildomain.KanbanColumn, error)
	// GetColumnByID returns (nil, nil) when the column does not exist
	GetColumnByID(userID, columnID string) (*maildomain.KanbanColumn, error)
	CreateColumn(column *maildomain.KanbanColumn) error
	// UpdateColumn applies a sparse patch to exactly one column;
	// returns ErrColumnNotFound if no column matches.
	UpdateColumn(userID, columnID string, patch maildomain.ColumnPatch) (*maildomain.KanbanColumn, error)
	// DeleteColumn is idempotent: deleting an absent column succeeds.
	DeleteColumn(userID, columnID string) error
	UpdateColumnOrders(userID string, orders map[string]int) error
}

type kanbanColumnRepository struct {
	db *gorm.DB
}

// NewKanbanColumnRepository creates a new instance of kanbanColumnRepository
func NewKanbanColumnRepository(db *gorm.DB) KanbanColumnRepository {
	return &kanbanColumnRepository{db: db}
}

func (r *kanbanColumnRepository) GetColumnsByUserID(userID string) ([]*maildomain.KanbanColumn, error) {
	var columns []*maildomain.KanbanColumn
	err := r.db.Where("user_id = ?", userID).Order("display_order ASC").Find(&columns).Error
	if err != nil {
		return nil, err
	}
	return columns, nil
}

func (r *kanbanColumnRepository) GetColumnByID(userID, columnID string) (*maildomain.KanbanColumn, error) {
	var column maildomain.KanbanColumn
	err := r.db.Where("user_id = ? AND column_id = ?", userID, columnID).First(&column).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &column, nil
}

func (r *kanbanColumnRepository) CreateColumn(column *maildomain.KanbanColumn) error {
	if column.ID == "" {
		column.ID = uuid.New().String()
	}
	if column.ColumnID == "" {
		column.ColumnID = uuid.New().String()
	}
	column.CreatedAt = time.Now()
	column.UpdatedAt = time.Now()
	return r.db.Create(column).Error
}

func (r *kanbanColumnRepository) UpdateColumn(userID, columnID string, patch maildomain.ColumnPatch) (*maildomain.KanbanColumn, error) {
	existing, err := r.GetColumnByID(userID, columnID)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return nil, maildomain.ErrColumnNotFound
	}

	// Enumerated patchable fields only; absent fields stay untouched.
	updates := map[string]interface{}{}
	if patch.Title != nil {
		existing.Title = *patch.Title
		updates["title"] = *patch.Title
	}
	if patch.TargetLabel != nil {
		existing.TargetLabel = *patch.TargetLabel
		updates["target_label"] = *patch.TargetLabel
	}
	if patch.Color != nil {
		existing.Color = *patch.Color
		updates["color"] = *patch.Color
	}
	if patch.Order != nil {
		existing.Order = *patch.Order
		updates["display_order"] = *patch.Order
	}
	if len(updates) == 0 {
		return existing, nil
	}

	existing.UpdatedAt = time.Now()
	updates["updated_at"] = existing.UpdatedAt

	err = r.db.Model(&maildomain.KanbanColumn{}).
		Where("user_id = ? AND column_id = ?", userID, columnID).
		Updates(updates).Error
	if err != nil {
		return nil, err
	}
	return existing, nil
}

func (r *kanbanColumnRepository) DeleteColumn(userID, columnID string) error {
	return r.db.Where("user_id = ? AND column_id = ?", userID, columnID).
		Delete(&maildomain.KanbanColumn{}).Error
}

func (r *kanbanColumnRepository) UpdateColumnOrders(userID string, orders map[string]int) error {
	for columnID, orderVal := range orders {
		err := r.db.Model(&maildomain.KanbanColumn{}).
			Where("user_id = ? AND column_id = ?", userID, columnID).
			Update("display_order", orderVal).Error
		if err != nil {
			return err
		}
	}
	return nil
}
