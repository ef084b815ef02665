package repository

import (
	"github.com/openquiz/quizgate/internal/model"
	"gorm.io/gorm"
)

type QuizRepository interface {
	Create(quiz *model.Quiz) error
	Update(quiz *model.Quiz) error
	Delete(id uint) error
	FindByID(id uint) (*model.Quiz, error)
	FindByIDWithSlots(id uint) (*model.Quiz, error)
	FindAll() ([]model.Quiz, error)
	SlotsByQuizID(quizID uint) ([]model.Slot, error)
}

type quizRepository struct {
	db *gorm.DB
}

func NewQuizRepository(db *gorm.DB) QuizRepository {
	return &quizRepository{db: db}
}

func (r *quizRepository) Create(quiz *model.Quiz) error {
	// Creates associated slots when quiz.Slots is populated.
	return r.db.Create(quiz).Error
}

func (r *quizRepository) Update(quiz *model.Quiz) error {
	return r.db.Save(quiz).Error
}

func (r *quizRepository) Delete(id uint) error {
	return r.db.Delete(&model.Quiz{}, id).Error
}

func (r *quizRepository) FindByID(id uint) (*model.Quiz, error) {
	var quiz model.Quiz
	if err := r.db.First(&quiz, id).Error; err != nil {
		return nil, err
	}
	return &quiz, nil
}

func (r *quizRepository) FindByIDWithSlots(id uint) (*model.Quiz, error) {
	var quiz model.Quiz
	err := r.db.Preload("Slots", func(db *gorm.DB) *gorm.DB {
		return db.Order("slots.slot_number ASC")
	}).First(&quiz, id).Error
	if err != nil {
		return nil, err
	}
	return &quiz, nil
}

func (r *quizRepository) FindAll() ([]model.Quiz, error) {
	var quizzes []model.Quiz
	if err := r.db.Order("created_at DESC").Find(&quizzes).Error; err != nil {
		return nil, err
	}
	return quizzes, nil
}

func (r *quizRepository) SlotsByQuizID(quizID uint) ([]model.Slot, error) {
	var slots []model.Slot
	err := r.db.Where("quiz_id = ?", quizID).Order("slot_number ASC").Find(&slots).Error
	return slots, err
}
