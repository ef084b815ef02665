package questionusage

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/openquiz/quizgate/internal/model"
	"gorm.io/gorm"
)

var (
	ErrUsageNotFound  = errors.New("question usage not found")
	ErrUsageFinalized = errors.New("question usage already finalized")
)

// Usage is the durable head record of one question usage.
type Usage struct {
	Ref       string `gorm:"primarykey;size:36"`
	QuizID    uint   `gorm:"not null;index"`
	Finalized bool   `gorm:"not null;default:false"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// SlotResponse is the latest response recorded for one slot of a usage,
// together with the mark awarded by the marker.
type SlotResponse struct {
	ID         uint   `gorm:"primarykey"`
	UsageRef   string `gorm:"size:36;not null;index:idx_usage_slot,unique"`
	SlotNumber int    `gorm:"not null;index:idx_usage_slot,unique"`
	Page       int    `gorm:"not null"`
	Data       string `gorm:"type:text"`
	Mark       *float64
	UpdatedAt  time.Time
}

// Marker grades one slot's response data; nil means not yet gradeable.
type Marker func(slot model.Slot, data string) *float64

// GormEngine persists usages through gorm. Marks are produced by the
// injected Marker when responses are recorded; without one, marks stay
// unset until graded elsewhere.
type GormEngine struct {
	db     *gorm.DB
	marker Marker
}

func NewGormEngine(db *gorm.DB, marker Marker) *GormEngine {
	return &GormEngine{db: db, marker: marker}
}

// Models lists the gorm models the engine needs migrated.
func Models() []interface{} {
	return []interface{}{&Usage{}, &SlotResponse{}}
}

func (e *GormEngine) CreateUsage(quizID uint, slots []model.Slot) (string, error) {
	ref := uuid.NewString()
	err := e.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&Usage{Ref: ref, QuizID: quizID}).Error; err != nil {
			return err
		}
		for _, s := range slots {
			resp := SlotResponse{UsageRef: ref, SlotNumber: s.SlotNumber, Page: s.Page}
			if err := tx.Create(&resp).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	return ref, nil
}

func (e *GormEngine) RecordResponses(usageRef string, page int, responses map[int]string, now time.Time) error {
	return e.db.Transaction(func(tx *gorm.DB) error {
		usage, err := e.loadUsage(tx, usageRef)
		if err != nil {
			return err
		}
		if usage.Finalized {
			return ErrUsageFinalized
		}
		var quizSlots []model.Slot
		if err := tx.Where("quiz_id = ?", usage.QuizID).Find(&quizSlots).Error; err != nil {
			return err
		}
		slotsByNumber := make(map[int]model.Slot, len(quizSlots))
		for _, s := range quizSlots {
			slotsByNumber[s.SlotNumber] = s
		}

		for slotNumber, data := range responses {
			slot, known := slotsByNumber[slotNumber]
			if !known {
				continue
			}
			if page != PageAll && slot.Page != page {
				continue
			}
			updates := map[string]interface{}{"data": data, "updated_at": now}
			if e.marker != nil && slot.Real {
				updates["mark"] = e.marker(slot, data)
			}
			err := tx.Model(&SlotResponse{}).
				Where("usage_ref = ? AND slot_number = ?", usageRef, slotNumber).
				Updates(updates).Error
			if err != nil {
				return err
			}
		}
		return nil
	})
}

func (e *GormEngine) Finalize(usageRef string, now time.Time) error {
	return e.db.Transaction(func(tx *gorm.DB) error {
		usage, err := e.loadUsage(tx, usageRef)
		if err != nil {
			return err
		}
		if usage.Finalized {
			return nil
		}
		return tx.Model(&Usage{}).Where("ref = ?", usageRef).
			Updates(map[string]interface{}{"finalized": true, "updated_at": now}).Error
	})
}

func (e *GormEngine) SumMarks(usageRef string) (float64, error) {
	var sum *float64
	err := e.db.Model(&SlotResponse{}).
		Where("usage_ref = ? AND mark IS NOT NULL", usageRef).
		Select("SUM(mark)").Scan(&sum).Error
	if err != nil {
		return 0, err
	}
	if sum == nil {
		return 0, nil
	}
	return *sum, nil
}

func (e *GormEngine) HasAnyGradedResponse(usageRef string) (bool, error) {
	var count int64
	err := e.db.Model(&SlotResponse{}).
		Where("usage_ref = ? AND mark IS NOT NULL", usageRef).
		Count(&count).Error
	return count > 0, err
}

func (e *GormEngine) loadUsage(tx *gorm.DB, ref string) (*Usage, error) {
	var usage Usage
	if err := tx.Where("ref = ?", ref).First(&usage).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUsageNotFound
		}
		return nil, err
	}
	return &usage, nil
}
