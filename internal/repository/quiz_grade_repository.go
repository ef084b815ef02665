package repository

import (
	"errors"
	"time"

	"github.com/openquiz/quizgate/internal/model"
	"gorm.io/gorm"
)

type QuizGradeRepository interface {
	Upsert(tx *gorm.DB, quizID, userID uint, grade float64, now time.Time) error
	Find(quizID, userID uint) (*model.QuizGrade, error)
}

type quizGradeRepository struct {
	db *gorm.DB
}

func NewQuizGradeRepository(db *gorm.DB) QuizGradeRepository {
	return &quizGradeRepository{db: db}
}

func (r *quizGradeRepository) Upsert(tx *gorm.DB, quizID, userID uint, grade float64, now time.Time) error {
	db := tx
	if db == nil {
		db = r.db
	}
	var existing model.QuizGrade
	err := db.Where("quiz_id = ? AND user_id = ?", quizID, userID).First(&existing).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return db.Create(&model.QuizGrade{
			QuizID:       quizID,
			UserID:       userID,
			Grade:        grade,
			TimeModified: now,
		}).Error
	}
	if err != nil {
		return err
	}
	existing.Grade = grade
	existing.TimeModified = now
	return db.Save(&existing).Error
}

func (r *quizGradeRepository) Find(quizID, userID uint) (*model.QuizGrade, error) {
	var grade model.QuizGrade
	if err := r.db.Where("quiz_id = ? AND user_id = ?", quizID, userID).First(&grade).Error; err != nil {
		return nil, err
	}
	return &grade, nil
}
