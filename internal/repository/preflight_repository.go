package repository

import (
	"github.com/openquiz/quizgate/internal/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// PreflightRepository is the durable access.PreflightStore: it remembers
// which preflight checks each attempt has already passed.
type PreflightRepository interface {
	Passed(attemptID uint, ruleName string) bool
	MarkPassed(attemptID uint, ruleName string) error
}

type preflightRepository struct {
	db *gorm.DB
}

func NewPreflightRepository(db *gorm.DB) PreflightRepository {
	return &preflightRepository{db: db}
}

func (r *preflightRepository) Passed(attemptID uint, ruleName string) bool {
	var count int64
	err := r.db.Model(&model.PreflightPass{}).
		Where("attempt_id = ? AND rule_name = ?", attemptID, ruleName).
		Count(&count).Error
	return err == nil && count > 0
}

func (r *preflightRepository) MarkPassed(attemptID uint, ruleName string) error {
	pass := model.PreflightPass{AttemptID: attemptID, RuleName: ruleName}
	return r.db.Clauses(clause.OnConflict{DoNothing: true}).Create(&pass).Error
}
