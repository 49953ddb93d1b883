package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/ikraamdaanis/discourse/internal/domain"
)

// GormMessageRepository implements MessageRepository using GORM.
type GormMessageRepository struct {
	db *gorm.DB
}

// NewGormMessageRepository creates a new GORM-backed message repository.
func NewGormMessageRepository(db *gorm.DB) *GormMessageRepository {
	return &GormMessageRepository{db: db}
}

// ListPage pages through a scope's history newest-first using a keyset
// cursor. The cursor is the id of the previous page's oldest message;
// querying limit+1 rows determines whether older history remains.
func (r *GormMessageRepository) ListPage(ctx context.Context, scopeID, cursor string, limit int) ([]domain.Message, string, bool, error) {
	q := r.db.WithContext(ctx).
		Model(&domain.MessageModel{}).
		Where("scope_id = ?", scopeID)

	if cursor != "" {
		var pivot domain.MessageModel
		err := r.db.WithContext(ctx).
			Where("id = ? AND scope_id = ?", cursor, scopeID).
			First(&pivot).Error
		if err != nil {
			if isNotFound(err) {
				return nil, "", false, ErrInvalidCursor
			}
			return nil, "", false, err
		}
		q = q.Where(
			"created_at < ? OR (created_at = ? AND id < ?)",
			pivot.CreatedAt, pivot.CreatedAt, pivot.ID,
		)
	}

	var rows []domain.MessageModel
	err := q.Order("created_at DESC, id DESC").
		Limit(limit + 1).
		Find(&rows).Error
	if err != nil {
		return nil, "", false, err
	}

	hasMore := len(rows) > limit
	if hasMore {
		rows = rows[:limit]
	}

	messages := make([]domain.Message, 0, len(rows))
	for i := range rows {
		messages = append(messages, rows[i].Message())
	}

	var nextCursor string
	if hasMore && len(messages) > 0 {
		nextCursor = messages[len(messages)-1].ID
	}

	return messages, nextCursor, hasMore, nil
}

func (r *GormMessageRepository) GetByID(ctx context.Context, id string) (*domain.Message, error) {
	var row domain.MessageModel
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&row).Error
	if err != nil {
		if isNotFound(err) {
			return nil, ErrMessageNotFound
		}
		return nil, err
	}
	msg := row.Message()
	return &msg, nil
}

// Create persists a new message. Both timestamps are set to the same
// instant so last-modified equals creation time until the first edit.
func (r *GormMessageRepository) Create(ctx context.Context, msg *domain.Message) error {
	now := time.Now().UTC()
	model := domain.MessageModel{
		ID:        msg.ID,
		ScopeID:   msg.ScopeID,
		MemberID:  msg.MemberID,
		Content:   msg.Content,
		FileURL:   msg.FileURL,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := r.db.WithContext(ctx).Create(&model).Error; err != nil {
		return err
	}
	msg.CreatedAt = now
	msg.UpdatedAt = now
	msg.Deleted = false
	return nil
}

func (r *GormMessageRepository) UpdateContent(ctx context.Context, id, content string) (*domain.Message, error) {
	return r.modify(ctx, id, map[string]interface{}{
		"content":    content,
		"updated_at": time.Now().UTC(),
	})
}

func (r *GormMessageRepository) SoftDelete(ctx context.Context, id string) (*domain.Message, error) {
	return r.modify(ctx, id, map[string]interface{}{
		"content":    "",
		"file_url":   "",
		"deleted":    true,
		"updated_at": time.Now().UTC(),
	})
}

func (r *GormMessageRepository) modify(ctx context.Context, id string, updates map[string]interface{}) (*domain.Message, error) {
	result := r.db.WithContext(ctx).
		Model(&domain.MessageModel{}).
		Where("id = ?", id).
		Updates(updates)
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, ErrMessageNotFound
	}
	return r.GetByID(ctx, id)
}

// Ensure interface is satisfied at compile time.
var _ MessageRepository = (*GormMessageRepository)(nil)

// isNotFound checks if the error is a "record not found" error.
func isNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}
