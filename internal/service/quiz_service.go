package service

import (
	"errors"

	"github.com/jinzhu/copier"
	"github.com/openquiz/quizgate/internal/apperr"
	"github.com/openquiz/quizgate/internal/dto"
	"github.com/openquiz/quizgate/internal/model"
	"github.com/openquiz/quizgate/internal/repository"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// QuizService is the admin surface: quiz and override CRUD.
type QuizService interface {
	CreateQuiz(req dto.QuizCreateDTO) (*dto.QuizResponse, error)
	UpdateQuiz(id uint, req dto.QuizCreateDTO) (*dto.QuizResponse, error)
	DeleteQuiz(id uint) error
	GetQuiz(id uint) (*dto.QuizResponse, error)
	GetAllQuizzes() ([]dto.QuizResponse, error)

	CreateOverride(quizID uint, req dto.OverrideCreateDTO) (*dto.OverrideResponse, error)
	UpdateOverride(quizID, overrideID uint, req dto.OverrideCreateDTO) (*dto.OverrideResponse, error)
	DeleteOverride(quizID, overrideID uint) error
	GetOverrides(quizID uint) ([]dto.OverrideResponse, error)
}

type quizService struct {
	quizRepo     repository.QuizRepository
	overrideRepo repository.OverrideRepository
}

func NewQuizService(quizRepo repository.QuizRepository, overrideRepo repository.OverrideRepository) QuizService {
	return &quizService{quizRepo: quizRepo, overrideRepo: overrideRepo}
}

func (s *quizService) CreateQuiz(req dto.QuizCreateDTO) (*dto.QuizResponse, error) {
	quiz, err := quizFromDTO(req)
	if err != nil {
		return nil, err
	}
	if err := s.quizRepo.Create(quiz); err != nil {
		log.Error().Err(err).Str("title", req.Title).Msg("Failed to create quiz")
		return nil, err
	}
	log.Info().Uint("quizID", quiz.ID).Str("title", quiz.Title).Msg("Quiz created")
	return quizToDTO(quiz), nil
}

func (s *quizService) UpdateQuiz(id uint, req dto.QuizCreateDTO) (*dto.QuizResponse, error) {
	existing, err := s.quizRepo.FindByIDWithSlots(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("quiznotfound", "quiz %d not found", id)
		}
		return nil, err
	}
	updated, err := quizFromDTO(req)
	if err != nil {
		return nil, err
	}
	updated.ID = existing.ID
	updated.CreatedAt = existing.CreatedAt
	if len(updated.Slots) == 0 {
		// Settings-only update keeps the existing structure and its grade sum.
		updated.Slots = nil
		updated.SumGrades = existing.SumGrades
	}
	if err := s.quizRepo.Update(updated); err != nil {
		return nil, err
	}
	return quizToDTO(updated), nil
}

func (s *quizService) DeleteQuiz(id uint) error {
	if _, err := s.quizRepo.FindByID(id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.NotFound("quiznotfound", "quiz %d not found", id)
		}
		return err
	}
	return s.quizRepo.Delete(id)
}

func (s *quizService) GetQuiz(id uint) (*dto.QuizResponse, error) {
	quiz, err := s.quizRepo.FindByIDWithSlots(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("quiznotfound", "quiz %d not found", id)
		}
		return nil, err
	}
	return quizToDTO(quiz), nil
}

func (s *quizService) GetAllQuizzes() ([]dto.QuizResponse, error) {
	quizzes, err := s.quizRepo.FindAll()
	if err != nil {
		return nil, err
	}
	out := make([]dto.QuizResponse, 0, len(quizzes))
	for i := range quizzes {
		out = append(out, *quizToDTO(&quizzes[i]))
	}
	return out, nil
}

func (s *quizService) CreateOverride(quizID uint, req dto.OverrideCreateDTO) (*dto.OverrideResponse, error) {
	if _, err := s.quizRepo.FindByID(quizID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("quiznotfound", "quiz %d not found", quizID)
		}
		return nil, err
	}
	override, err := overrideFromDTO(quizID, req)
	if err != nil {
		return nil, err
	}
	if err := s.overrideRepo.Create(override); err != nil {
		return nil, err
	}
	log.Info().Uint("quizID", quizID).Uint("overrideID", override.ID).Msg("Override created")
	return overrideToDTO(override), nil
}

func (s *quizService) UpdateOverride(quizID, overrideID uint, req dto.OverrideCreateDTO) (*dto.OverrideResponse, error) {
	existing, err := s.overrideRepo.FindByID(overrideID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("overridenotfound", "override %d not found", overrideID)
		}
		return nil, err
	}
	if existing.QuizID != quizID {
		return nil, apperr.NotFound("overridenotfound", "override %d not found for quiz %d", overrideID, quizID)
	}
	updated, err := overrideFromDTO(quizID, req)
	if err != nil {
		return nil, err
	}
	updated.ID = existing.ID
	if err := s.overrideRepo.Update(updated); err != nil {
		return nil, err
	}
	return overrideToDTO(updated), nil
}

func (s *quizService) DeleteOverride(quizID, overrideID uint) error {
	existing, err := s.overrideRepo.FindByID(overrideID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.NotFound("overridenotfound", "override %d not found", overrideID)
		}
		return err
	}
	if existing.QuizID != quizID {
		return apperr.NotFound("overridenotfound", "override %d not found for quiz %d", overrideID, quizID)
	}
	return s.overrideRepo.Delete(overrideID)
}

func (s *quizService) GetOverrides(quizID uint) ([]dto.OverrideResponse, error) {
	overrides, err := s.overrideRepo.FindByQuizID(quizID)
	if err != nil {
		return nil, err
	}
	out := make([]dto.OverrideResponse, 0, len(overrides))
	for i := range overrides {
		out = append(out, *overrideToDTO(&overrides[i]))
	}
	return out, nil
}

func quizFromDTO(req dto.QuizCreateDTO) (*model.Quiz, error) {
	var quiz model.Quiz
	if err := copier.Copy(&quiz, &req); err != nil {
		return nil, err
	}
	if quiz.OverdueHandling == "" {
		quiz.OverdueHandling = model.OverdueAutoSubmit
	}
	if quiz.GradeMethod == "" {
		quiz.GradeMethod = model.GradeHighest
	}
	if quiz.NavMethod == "" {
		quiz.NavMethod = model.NavFree
	}
	if quiz.BrowserSecurity == "" {
		quiz.BrowserSecurity = model.BrowserSecurityNone
	}

	quiz.Slots = quiz.Slots[:0]
	pages := map[int]bool{}
	sum := 0.0
	for _, s := range req.Slots {
		real := true
		if s.Real != nil {
			real = *s.Real
		}
		quiz.Slots = append(quiz.Slots, model.Slot{
			SlotNumber: s.SlotNumber,
			Page:       s.Page,
			QuestionID: s.QuestionID,
			MaxMark:    s.MaxMark,
			Real:       real,
		})
		pages[s.Page] = true
		if real {
			sum += s.MaxMark
		}
	}
	// SumGrades is derived from the structure, never set directly.
	quiz.SumGrades = sum
	return &quiz, nil
}

func quizToDTO(quiz *model.Quiz) *dto.QuizResponse {
	var resp dto.QuizResponse
	copier.Copy(&resp, quiz)
	return &resp
}

func overrideFromDTO(quizID uint, req dto.OverrideCreateDTO) (*model.Override, error) {
	if (req.UserID == nil) == (req.GroupID == nil) {
		return nil, apperr.Validation("invalidoverride",
			"exactly one of user_id or group_id must be set")
	}
	if req.TimeLimitSec != nil && *req.TimeLimitSec < 0 {
		return nil, apperr.Validation("invalidoverride", "time_limit_sec must not be negative")
	}
	return &model.Override{
		QuizID:       quizID,
		UserID:       req.UserID,
		GroupID:      req.GroupID,
		TimeOpen:     req.TimeOpen,
		TimeClose:    req.TimeClose,
		TimeLimitSec: req.TimeLimitSec,
		Password:     req.Password,
	}, nil
}

func overrideToDTO(override *model.Override) *dto.OverrideResponse {
	var resp dto.OverrideResponse
	copier.Copy(&resp, override)
	return &resp
}
