package repository

import (
	"errors"

	"github.com/openquiz/quizgate/internal/model"
	"gorm.io/gorm"
)

type OverrideRepository interface {
	Create(override *model.Override) error
	Update(override *model.Override) error
	Delete(id uint) error
	FindByID(id uint) (*model.Override, error)
	FindByQuizID(quizID uint) ([]model.Override, error)
	// FindUserOverride returns the user-specific override for one quiz, or
	// nil when none exists.
	FindUserOverride(quizID, userID uint) (*model.Override, error)
	// FindGroupOverrides returns the overrides for any of the given groups.
	FindGroupOverrides(quizID uint, groupIDs []uint) ([]model.Override, error)
}

type overrideRepository struct {
	db *gorm.DB
}

func NewOverrideRepository(db *gorm.DB) OverrideRepository {
	return &overrideRepository{db: db}
}

func (r *overrideRepository) Create(override *model.Override) error {
	return r.db.Create(override).Error
}

func (r *overrideRepository) Update(override *model.Override) error {
	return r.db.Save(override).Error
}

func (r *overrideRepository) Delete(id uint) error {
	return r.db.Delete(&model.Override{}, id).Error
}

func (r *overrideRepository) FindByID(id uint) (*model.Override, error) {
	var override model.Override
	if err := r.db.First(&override, id).Error; err != nil {
		return nil, err
	}
	return &override, nil
}

func (r *overrideRepository) FindByQuizID(quizID uint) ([]model.Override, error) {
	var overrides []model.Override
	err := r.db.Where("quiz_id = ?", quizID).Order("id ASC").Find(&overrides).Error
	return overrides, err
}

func (r *overrideRepository) FindUserOverride(quizID, userID uint) (*model.Override, error) {
	var override model.Override
	err := r.db.Where("quiz_id = ? AND user_id = ?", quizID, userID).First(&override).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &override, nil
}

func (r *overrideRepository) FindGroupOverrides(quizID uint, groupIDs []uint) ([]model.Override, error) {
	if len(groupIDs) == 0 {
		return nil, nil
	}
	var overrides []model.Override
	err := r.db.
		Where("quiz_id = ? AND group_id IN ?", quizID, groupIDs).
		Order("id ASC").
		Find(&overrides).Error
	return overrides, err
}
