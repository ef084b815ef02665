package service

import (
	"math"
	"time"

	"github.com/openquiz/quizgate/internal/model"
	"github.com/openquiz/quizgate/internal/repository"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// GradeService rescales raw sums of marks to the quiz's grade scale, merges
// review options across attempts, and maintains the final quiz grade per
// user.
type GradeService interface {
	// Rescale converts a raw sum of marks to the quiz scale. The caller must
	// guarantee quizSumGrades > 0. When displayPrecision is non-nil the
	// result is rounded to that many decimal places; otherwise the exact
	// value is returned for further arithmetic.
	Rescale(rawMark, quizGrade, quizSumGrades float64, displayPrecision *int) float64
	// CombineReviewOptions merges option sets across a user's attempts:
	// "some" is the per-field OR, "all" the per-field AND.
	CombineReviewOptions(sets []model.ReviewOptions) (some, all model.ReviewOptions)
	// RecomputeQuizGrade recalculates one user's final grade for a quiz from
	// their finished non-preview attempts, per the quiz's grading method,
	// and upserts the stored grade. Runs inside tx when non-nil.
	RecomputeQuizGrade(tx *gorm.DB, quiz model.Quiz, userID uint, now time.Time) error
}

type gradeService struct {
	attemptRepo repository.AttemptRepository
	gradeRepo   repository.QuizGradeRepository
}

func NewGradeService(attemptRepo repository.AttemptRepository, gradeRepo repository.QuizGradeRepository) GradeService {
	return &gradeService{attemptRepo: attemptRepo, gradeRepo: gradeRepo}
}

func (s *gradeService) Rescale(rawMark, quizGrade, quizSumGrades float64, displayPrecision *int) float64 {
	grade := rawMark * quizGrade / quizSumGrades
	if displayPrecision == nil {
		return grade
	}
	shift := math.Pow10(*displayPrecision)
	return math.Round(grade*shift) / shift
}

func (s *gradeService) CombineReviewOptions(sets []model.ReviewOptions) (model.ReviewOptions, model.ReviewOptions) {
	var some model.ReviewOptions
	all := model.ReviewOptions{
		Attempt:          true,
		Correctness:      true,
		Marks:            true,
		SpecificFeedback: true,
		GeneralFeedback:  true,
		RightAnswer:      true,
		OverallFeedback:  true,
	}
	if len(sets) == 0 {
		return some, model.ReviewOptions{}
	}
	for _, o := range sets {
		some.Attempt = some.Attempt || o.Attempt
		some.Correctness = some.Correctness || o.Correctness
		some.Marks = some.Marks || o.Marks
		some.SpecificFeedback = some.SpecificFeedback || o.SpecificFeedback
		some.GeneralFeedback = some.GeneralFeedback || o.GeneralFeedback
		some.RightAnswer = some.RightAnswer || o.RightAnswer
		some.OverallFeedback = some.OverallFeedback || o.OverallFeedback

		all.Attempt = all.Attempt && o.Attempt
		all.Correctness = all.Correctness && o.Correctness
		all.Marks = all.Marks && o.Marks
		all.SpecificFeedback = all.SpecificFeedback && o.SpecificFeedback
		all.GeneralFeedback = all.GeneralFeedback && o.GeneralFeedback
		all.RightAnswer = all.RightAnswer && o.RightAnswer
		all.OverallFeedback = all.OverallFeedback && o.OverallFeedback
	}
	return some, all
}

func (s *gradeService) RecomputeQuizGrade(tx *gorm.DB, quiz model.Quiz, userID uint, now time.Time) error {
	if quiz.SumGrades <= 0 {
		// Nothing gradeable on this quiz; leave any stored grade alone.
		return nil
	}
	attempts, err := s.attemptRepo.FindFinishedNonPreview(tx, quiz.ID, userID)
	if err != nil {
		return err
	}
	var sums []float64
	for _, a := range attempts {
		if a.SumGrades != nil {
			sums = append(sums, *a.SumGrades)
		}
	}
	if len(sums) == 0 {
		return nil
	}

	var raw float64
	switch quiz.GradeMethod {
	case model.GradeFirst:
		raw = sums[0]
	case model.GradeLast:
		raw = sums[len(sums)-1]
	case model.GradeAverage:
		total := 0.0
		for _, v := range sums {
			total += v
		}
		raw = total / float64(len(sums))
	default: // highest
		raw = sums[0]
		for _, v := range sums[1:] {
			if v > raw {
				raw = v
			}
		}
	}

	final := s.Rescale(raw, quiz.Grade, quiz.SumGrades, nil)
	log.Debug().Uint("quizID", quiz.ID).Uint("userID", userID).
		Float64("raw", raw).Float64("final", final).Msg("recomputed quiz grade")
	return s.gradeRepo.Upsert(tx, quiz.ID, userID, final, now)
}
