package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/ikraamdaanis/discourse/internal/domain"
)

// isUniqueViolation reports whether err is a unique-constraint violation.
// GORM v1.25+ wraps these as gorm.ErrDuplicatedKey.
func isUniqueViolation(err error) bool {
	return errors.Is(err, gorm.ErrDuplicatedKey)
}

// PairKey returns the canonical key for an unordered member pair. The
// unique index on this column is what collapses racing creates from
// both participants onto a single row.
func PairKey(memberA, memberB string) string {
	if memberB < memberA {
		memberA, memberB = memberB, memberA
	}
	return memberA + ":" + memberB
}

// GormConversationRepository implements ConversationRepository using GORM.
type GormConversationRepository struct {
	db *gorm.DB
}

// NewGormConversationRepository creates a new GORM-backed conversation
// repository.
func NewGormConversationRepository(db *gorm.DB) *GormConversationRepository {
	return &GormConversationRepository{db: db}
}

func (r *GormConversationRepository) GetByID(ctx context.Context, id string) (*domain.Conversation, error) {
	var row domain.ConversationModel
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&row).Error
	if err != nil {
		if isNotFound(err) {
			return nil, ErrConversationNotFound
		}
		return nil, err
	}
	conv := row.Conversation()
	return &conv, nil
}

func (r *GormConversationRepository) FindByMembers(ctx context.Context, memberOneID, memberTwoID string) (*domain.Conversation, error) {
	var row domain.ConversationModel
	err := r.db.WithContext(ctx).
		Where("member_one_id = ? AND member_two_id = ?", memberOneID, memberTwoID).
		First(&row).Error
	if err != nil {
		if isNotFound(err) {
			return nil, ErrConversationNotFound
		}
		return nil, err
	}
	conv := row.Conversation()
	return &conv, nil
}

// Create inserts a conversation row with the members in the order they
// were passed. The pair-key unique index rejects a second row for the
// same unordered pair, surfaced as ErrConversationExists.
func (r *GormConversationRepository) Create(ctx context.Context, memberOneID, memberTwoID string) (*domain.Conversation, error) {
	model := domain.ConversationModel{
		ID:          uuid.New().String(),
		MemberOneID: memberOneID,
		MemberTwoID: memberTwoID,
		PairKey:     PairKey(memberOneID, memberTwoID),
	}
	if err := r.db.WithContext(ctx).Create(&model).Error; err != nil {
		if isUniqueViolation(err) {
			return nil, ErrConversationExists
		}
		return nil, err
	}
	conv := model.Conversation()
	return &conv, nil
}

// Ensure interface is satisfied at compile time.
var _ ConversationRepository = (*GormConversationRepository)(nil)
