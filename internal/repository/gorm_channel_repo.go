package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/ikraamdaanis/discourse/internal/domain"
)

// GormChannelRepository implements ChannelRepository using GORM.
type GormChannelRepository struct {
	db *gorm.DB
}

// NewGormChannelRepository creates a new GORM-backed channel repository.
func NewGormChannelRepository(db *gorm.DB) *GormChannelRepository {
	return &GormChannelRepository{db: db}
}

func (r *GormChannelRepository) Exists(ctx context.Context, id string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&domain.ChannelModel{}).
		Where("id = ?", id).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *GormChannelRepository) Create(ctx context.Context, id, name string) error {
	return r.db.WithContext(ctx).Create(&domain.ChannelModel{ID: id, Name: name}).Error
}

// Ensure interface is satisfied at compile time.
var _ ChannelRepository = (*GormChannelRepository)(nil)
