package repository

import (
	"time"

	"github.com/openquiz/quizgate/internal/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type AttemptRepository interface {
	Create(tx *gorm.DB, attempt *model.Attempt) error
	Save(tx *gorm.DB, attempt *model.Attempt) error
	FindByID(id uint) (*model.Attempt, error)
	// FindByIDForUpdate loads the attempt under a row lock inside tx, so
	// concurrent operations on the same attempt serialize at the store.
	FindByIDForUpdate(tx *gorm.DB, id uint) (*model.Attempt, error)
	CountNonPreview(tx *gorm.DB, quizID, userID uint) (int, error)
	LastNonPreview(quizID, userID uint) (*model.Attempt, error)
	FindUnfinished(quizID, userID uint) (*model.Attempt, error)
	FindAllByQuizAndUser(quizID, userID uint) ([]model.Attempt, error)
	// FindFinishedNonPreview reads inside tx when non-nil, so a grade
	// recompute sees the attempt its own transaction just finished.
	FindFinishedNonPreview(tx *gorm.DB, quizID, userID uint) ([]model.Attempt, error)
	DeletePreviews(tx *gorm.DB, quizID, userID uint) error
	// FindDueForCheck returns attempts whose timeCheckState has passed and
	// which are still in a non-terminal state.
	FindDueForCheck(now time.Time, limit int) ([]model.Attempt, error)
}

type attemptRepository struct {
	db *gorm.DB
}

func NewAttemptRepository(db *gorm.DB) AttemptRepository {
	return &attemptRepository{db: db}
}

func (r *attemptRepository) orDB(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return r.db
}

func (r *attemptRepository) Create(tx *gorm.DB, attempt *model.Attempt) error {
	return r.orDB(tx).Create(attempt).Error
}

func (r *attemptRepository) Save(tx *gorm.DB, attempt *model.Attempt) error {
	return r.orDB(tx).Save(attempt).Error
}

func (r *attemptRepository) FindByID(id uint) (*model.Attempt, error) {
	var attempt model.Attempt
	if err := r.db.First(&attempt, id).Error; err != nil {
		return nil, err
	}
	return &attempt, nil
}

func (r *attemptRepository) FindByIDForUpdate(tx *gorm.DB, id uint) (*model.Attempt, error) {
	db := r.orDB(tx)
	// SQLite has no FOR UPDATE; its write transactions already serialize.
	if db.Dialector.Name() != "sqlite" {
		db = db.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var attempt model.Attempt
	if err := db.First(&attempt, id).Error; err != nil {
		return nil, err
	}
	return &attempt, nil
}

func (r *attemptRepository) CountNonPreview(tx *gorm.DB, quizID, userID uint) (int, error) {
	var count int64
	err := r.orDB(tx).Model(&model.Attempt{}).
		Where("quiz_id = ? AND user_id = ? AND preview = ?", quizID, userID, false).
		Count(&count).Error
	return int(count), err
}

func (r *attemptRepository) LastNonPreview(quizID, userID uint) (*model.Attempt, error) {
	var attempt model.Attempt
	err := r.db.
		Where("quiz_id = ? AND user_id = ? AND preview = ?", quizID, userID, false).
		Order("attempt_number DESC").
		First(&attempt).Error
	if err != nil {
		return nil, err
	}
	return &attempt, nil
}

func (r *attemptRepository) FindUnfinished(quizID, userID uint) (*model.Attempt, error) {
	var attempt model.Attempt
	err := r.db.
		Where("quiz_id = ? AND user_id = ? AND state IN ?", quizID, userID,
			[]model.AttemptState{model.AttemptInProgress, model.AttemptOverdue}).
		Order("attempt_number DESC").
		First(&attempt).Error
	if err != nil {
		return nil, err
	}
	return &attempt, nil
}

func (r *attemptRepository) FindAllByQuizAndUser(quizID, userID uint) ([]model.Attempt, error) {
	var attempts []model.Attempt
	err := r.db.
		Where("quiz_id = ? AND user_id = ?", quizID, userID).
		Order("attempt_number ASC").
		Find(&attempts).Error
	return attempts, err
}

func (r *attemptRepository) FindFinishedNonPreview(tx *gorm.DB, quizID, userID uint) ([]model.Attempt, error) {
	var attempts []model.Attempt
	err := r.orDB(tx).
		Where("quiz_id = ? AND user_id = ? AND preview = ? AND state = ?",
			quizID, userID, false, model.AttemptFinished).
		Order("attempt_number ASC").
		Find(&attempts).Error
	return attempts, err
}

func (r *attemptRepository) DeletePreviews(tx *gorm.DB, quizID, userID uint) error {
	return r.orDB(tx).
		Where("quiz_id = ? AND user_id = ? AND preview = ?", quizID, userID, true).
		Delete(&model.Attempt{}).Error
}

func (r *attemptRepository) FindDueForCheck(now time.Time, limit int) ([]model.Attempt, error) {
	var attempts []model.Attempt
	q := r.db.
		Where("time_check_state IS NOT NULL AND time_check_state <= ?", now).
		Where("state IN ?", []model.AttemptState{model.AttemptInProgress, model.AttemptOverdue}).
		Order("time_check_state ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	err := q.Find(&attempts).Error
	return attempts, err
}
