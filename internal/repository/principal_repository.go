package repository

import (
	"github.com/openquiz/quizgate/internal/model"
	"gorm.io/gorm"
)

// PrincipalRepository resolves a user's group memberships and capabilities,
// the two facts rule evaluation needs about who is asking.
type PrincipalRepository interface {
	GroupIDs(userID uint) ([]uint, error)
	HasCapability(userID, quizID uint, name string) (bool, error)
	AddGroupMember(member *model.GroupMember) error
	GrantCapability(cap *model.Capability) error
}

type principalRepository struct {
	db *gorm.DB
}

func NewPrincipalRepository(db *gorm.DB) PrincipalRepository {
	return &principalRepository{db: db}
}

func (r *principalRepository) GroupIDs(userID uint) ([]uint, error) {
	var ids []uint
	err := r.db.Model(&model.GroupMember{}).
		Where("user_id = ?", userID).
		Order("group_id ASC").
		Pluck("group_id", &ids).Error
	return ids, err
}

func (r *principalRepository) HasCapability(userID, quizID uint, name string) (bool, error) {
	var count int64
	err := r.db.Model(&model.Capability{}).
		Where("user_id = ? AND name = ? AND (quiz_id IS NULL OR quiz_id = ?)", userID, name, quizID).
		Count(&count).Error
	return count > 0, err
}

func (r *principalRepository) AddGroupMember(member *model.GroupMember) error {
	return r.db.Create(member).Error
}

func (r *principalRepository) GrantCapability(cap *model.Capability) error {
	return r.db.Create(cap).Error
}
