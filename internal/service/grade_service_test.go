package service

import (
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/openquiz/quizgate/internal/model"
	"github.com/openquiz/quizgate/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newGradeEnv(t *testing.T) (*gorm.DB, GradeService, repository.QuizGradeRepository) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&model.Quiz{}, &model.Slot{}, &model.Attempt{}, &model.QuizGrade{}))

	attemptRepo := repository.NewAttemptRepository(db)
	gradeRepo := repository.NewQuizGradeRepository(db)
	return db, NewGradeService(attemptRepo, gradeRepo), gradeRepo
}

func seedAttempt(t *testing.T, db *gorm.DB, quizID uint, number int, state model.AttemptState, sum float64, preview bool) {
	t.Helper()
	now := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	finish := now.Add(time.Duration(number) * time.Hour)
	a := model.Attempt{
		QuizID:        quizID,
		UserID:        1,
		AttemptNumber: number,
		UsageRef:      t.Name() + "-" + string(rune('0'+number)),
		State:         state,
		Preview:       preview,
		TimeStart:     now,
		TimeFinish:    &finish,
		TimeModified:  finish,
		SumGrades:     &sum,
	}
	require.NoError(t, db.Create(&a).Error)
}

func TestRescale(t *testing.T) {
	svc := NewGradeService(nil, nil)

	// Exact value without display precision.
	assert.InDelta(t, 7.5, svc.Rescale(7.5, 10, 10, nil), 1e-12)
	assert.InDelta(t, 50, svc.Rescale(7.5, 100, 15, nil), 1e-12)

	// Rounded for display only.
	two := 2
	assert.Equal(t, 3.33, svc.Rescale(1, 10, 3, &two))
	zero := 0
	assert.Equal(t, 3.0, svc.Rescale(1, 10, 3, &zero))
}

func TestCombineReviewOptions(t *testing.T) {
	svc := NewGradeService(nil, nil)

	some, all := svc.CombineReviewOptions(nil)
	assert.Equal(t, model.ReviewOptions{}, some)
	assert.Equal(t, model.ReviewOptions{}, all)

	sets := []model.ReviewOptions{
		{Attempt: true, Marks: true},
		{Attempt: true, RightAnswer: true},
	}
	some, all = svc.CombineReviewOptions(sets)
	assert.True(t, some.Attempt)
	assert.True(t, some.Marks)
	assert.True(t, some.RightAnswer)
	assert.False(t, some.Correctness)

	assert.True(t, all.Attempt)
	assert.False(t, all.Marks)
	assert.False(t, all.RightAnswer)
}

func TestRecomputeQuizGrade_Methods(t *testing.T) {
	cases := []struct {
		method string
		want   float64
	}{
		{model.GradeHighest, 8},
		{model.GradeAverage, 5},
		{model.GradeFirst, 4},
		{model.GradeLast, 3},
	}
	for _, tc := range cases {
		t.Run(tc.method, func(t *testing.T) {
			db, svc, grades := newGradeEnv(t)
			quiz := model.Quiz{Title: t.Name(), Grade: 10, SumGrades: 10, GradeMethod: tc.method}
			require.NoError(t, db.Create(&quiz).Error)

			seedAttempt(t, db, quiz.ID, 1, model.AttemptFinished, 4, false)
			seedAttempt(t, db, quiz.ID, 2, model.AttemptFinished, 8, false)
			seedAttempt(t, db, quiz.ID, 3, model.AttemptFinished, 3, false)
			// Abandoned and preview attempts never count.
			seedAttempt(t, db, quiz.ID, 4, model.AttemptAbandoned, 10, false)
			seedAttempt(t, db, quiz.ID, 5, model.AttemptFinished, 10, true)

			require.NoError(t, svc.RecomputeQuizGrade(nil, quiz, 1, time.Now()))

			g, err := grades.Find(quiz.ID, 1)
			require.NoError(t, err)
			assert.InDelta(t, tc.want, g.Grade, 1e-9)
		})
	}
}

func TestRecomputeQuizGrade_SkipsUngradeableQuiz(t *testing.T) {
	db, svc, grades := newGradeEnv(t)
	quiz := model.Quiz{Title: t.Name(), Grade: 10, SumGrades: 0}
	require.NoError(t, db.Create(&quiz).Error)
	seedAttempt(t, db, quiz.ID, 1, model.AttemptFinished, 4, false)

	require.NoError(t, svc.RecomputeQuizGrade(nil, quiz, 1, time.Now()))

	_, err := grades.Find(quiz.ID, 1)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}
