package service

import (
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/openquiz/quizgate/internal/apperr"
	"github.com/openquiz/quizgate/internal/dto"
	"github.com/openquiz/quizgate/internal/model"
	"github.com/openquiz/quizgate/internal/questionusage"
	"github.com/openquiz/quizgate/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time          { return c.now }
func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

type lifecycleEnv struct {
	db      *gorm.DB
	clock   *fakeClock
	svc     AttemptService
	quizzes repository.QuizRepository
	atts    repository.AttemptRepository
	grades  repository.QuizGradeRepository
}

func newLifecycleEnv(t *testing.T) *lifecycleEnv {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&model.Quiz{},
		&model.Slot{},
		&model.Attempt{},
		&model.Override{},
		&model.GroupMember{},
		&model.Capability{},
		&model.QuizGrade{},
		&model.PreflightPass{},
	))

	clock := &fakeClock{now: time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)}
	quizRepo := repository.NewQuizRepository(db)
	attemptRepo := repository.NewAttemptRepository(db)
	gradeRepo := repository.NewQuizGradeRepository(db)
	accessSvc := NewAccessService(
		quizRepo,
		repository.NewOverrideRepository(db),
		repository.NewPrincipalRepository(db),
		attemptRepo,
		repository.NewPreflightRepository(db),
	)
	gradeSvc := NewGradeService(attemptRepo, gradeRepo)
	// Marker awards full marks for "correct", zero for anything else.
	usage := questionusage.NewMemoryEngine(func(slot model.Slot, data string) *float64 {
		mark := 0.0
		if data == "correct" {
			mark = slot.MaxMark
		}
		return &mark
	})
	svc := NewAttemptService(db, quizRepo, attemptRepo, accessSvc, gradeSvc, usage, clock.Now)

	return &lifecycleEnv{db: db, clock: clock, svc: svc, quizzes: quizRepo, atts: attemptRepo, grades: gradeRepo}
}

func (e *lifecycleEnv) createQuiz(t *testing.T, mutate func(q *model.Quiz)) *model.Quiz {
	t.Helper()
	q := &model.Quiz{
		Title:           t.Name(),
		OverdueHandling: model.OverdueAutoSubmit,
		GradeMethod:     model.GradeHighest,
		NavMethod:       model.NavFree,
		BrowserSecurity: model.BrowserSecurityNone,
		Grade:           10,
		SumGrades:       10,
		Slots: []model.Slot{
			{SlotNumber: 1, Page: 0, QuestionID: 101, MaxMark: 5, Real: true},
			{SlotNumber: 2, Page: 1, QuestionID: 102, MaxMark: 5, Real: true},
		},
	}
	if mutate != nil {
		mutate(q)
	}
	require.NoError(t, e.quizzes.Create(q))
	return q
}

func (e *lifecycleEnv) mustStart(t *testing.T, quizID, userID uint) *dto.AttemptResponse {
	t.Helper()
	resp, err := e.svc.StartAttempt(quizID, "10.0.0.1", dto.StartAttemptRequest{UserID: userID})
	require.NoError(t, err)
	return resp
}

func (e *lifecycleEnv) attempt(t *testing.T, id uint) *model.Attempt {
	t.Helper()
	a, err := e.atts.FindByID(id)
	require.NoError(t, err)
	return a
}

func TestStartAttempt_CreatesInProgressWithDeadline(t *testing.T) {
	e := newLifecycleEnv(t)
	quiz := e.createQuiz(t, func(q *model.Quiz) { q.TimeLimitSec = 600 })

	resp := e.mustStart(t, quiz.ID, 1)

	assert.Equal(t, string(model.AttemptInProgress), resp.State)
	assert.Equal(t, 1, resp.AttemptNumber)
	assert.NotEmpty(t, resp.UsageRef)
	require.NotNil(t, resp.TimeCheckState)
	assert.Equal(t, e.clock.Now().Add(10*time.Minute), resp.TimeCheckState.UTC())
}

func TestStartAttempt_UnfinishedAttemptBlocksUnlessForced(t *testing.T) {
	e := newLifecycleEnv(t)
	quiz := e.createQuiz(t, nil)

	first := e.mustStart(t, quiz.ID, 1)

	_, err := e.svc.StartAttempt(quiz.ID, "10.0.0.1", dto.StartAttemptRequest{UserID: 1})
	require.Error(t, err)
	assert.Equal(t, apperr.KindState, apperr.KindOf(err))
	assert.Equal(t, "attemptstillinprogress", apperr.CodeOf(err))

	// ForceNew abandons the stuck attempt and starts the next one.
	second, err := e.svc.StartAttempt(quiz.ID, "10.0.0.1", dto.StartAttemptRequest{UserID: 1, ForceNew: true})
	require.NoError(t, err)
	assert.Equal(t, 2, second.AttemptNumber)

	old := e.attempt(t, first.ID)
	assert.Equal(t, model.AttemptAbandoned, old.State)
	require.NotNil(t, old.TimeFinish)
}

func TestStartAttempt_PreviewsDoNotShiftNumbering(t *testing.T) {
	e := newLifecycleEnv(t)
	quiz := e.createQuiz(t, nil)

	// Previewing takes the capability; user 2 never got it.
	_, err := e.svc.StartAttempt(quiz.ID, "10.0.0.1", dto.StartAttemptRequest{UserID: 2, Preview: true})
	require.Error(t, err)
	assert.Equal(t, apperr.KindAccessDenied, apperr.KindOf(err))

	require.NoError(t, e.db.Create(&model.Capability{UserID: 1, QuizID: &quiz.ID, Name: model.CapPreview}).Error)

	preview, err := e.svc.StartAttempt(quiz.ID, "10.0.0.1", dto.StartAttemptRequest{UserID: 1, Preview: true})
	require.NoError(t, err)
	assert.True(t, preview.Preview)

	// A real attempt is still number 1: previews are outside the sequence
	// and an unfinished preview does not block.
	real := e.mustStart(t, quiz.ID, 1)
	assert.Equal(t, 1, real.AttemptNumber)
	assert.False(t, real.Preview)
}

func TestStartAttempt_AttemptLimitDenied(t *testing.T) {
	e := newLifecycleEnv(t)
	quiz := e.createQuiz(t, func(q *model.Quiz) { q.AttemptsAllowed = 1 })

	first := e.mustStart(t, quiz.ID, 1)
	_, err := e.svc.FinishAttempt(first.ID, "10.0.0.1", dto.FinishAttemptRequest{UserID: 1})
	require.NoError(t, err)

	_, err = e.svc.StartAttempt(quiz.ID, "10.0.0.1", dto.StartAttemptRequest{UserID: 1})
	require.Error(t, err)
	assert.Equal(t, apperr.KindAccessDenied, apperr.KindOf(err))
}

func TestStartAttempt_PasswordPreflight(t *testing.T) {
	e := newLifecycleEnv(t)
	quiz := e.createQuiz(t, func(q *model.Quiz) { q.Password = "secret" })

	_, err := e.svc.StartAttempt(quiz.ID, "10.0.0.1", dto.StartAttemptRequest{UserID: 1})
	require.Error(t, err)
	assert.Equal(t, apperr.KindPreflightRequired, apperr.KindOf(err))

	_, err = e.svc.StartAttempt(quiz.ID, "10.0.0.1", dto.StartAttemptRequest{
		UserID: 1, Preflight: dto.PreflightData{Password: "nope"},
	})
	require.Error(t, err)
	assert.Equal(t, "passwordwrong", apperr.CodeOf(err))

	resp, err := e.svc.StartAttempt(quiz.ID, "10.0.0.1", dto.StartAttemptRequest{
		UserID: 1, Preflight: dto.PreflightData{Password: "secret"},
	})
	require.NoError(t, err)

	// The pass was recorded for this attempt: continuing never re-prompts.
	_, err = e.svc.ContinueAttempt(resp.ID, 1, "10.0.0.1", 0, dto.PreflightData{})
	assert.NoError(t, err)
}

func TestAutoSubmit_FinishesAtDeadlineNotAtDiscovery(t *testing.T) {
	e := newLifecycleEnv(t)
	quiz := e.createQuiz(t, func(q *model.Quiz) {
		q.TimeLimitSec = 60
		q.OverdueHandling = model.OverdueAutoSubmit
	})

	start := e.clock.Now()
	resp := e.mustStart(t, quiz.ID, 1)

	e.clock.Advance(30 * time.Second)
	_, err := e.svc.RecordResponses(resp.ID, "10.0.0.1", dto.RecordResponsesRequest{
		UserID: 1, Responses: map[int]string{1: "correct"},
	})
	require.NoError(t, err)

	// Noticed a minute late; the attempt still ends exactly at the deadline.
	e.clock.Advance(90 * time.Second)
	_, err = e.svc.ContinueAttempt(resp.ID, 1, "10.0.0.1", 0, dto.PreflightData{})
	require.Error(t, err)
	assert.Equal(t, "attemptalreadyclosed", apperr.CodeOf(err))

	a := e.attempt(t, resp.ID)
	assert.Equal(t, model.AttemptFinished, a.State)
	require.NotNil(t, a.TimeFinish)
	assert.Equal(t, start.Add(60*time.Second), a.TimeFinish.UTC())
	assert.Nil(t, a.TimeCheckState)
	require.NotNil(t, a.SumGrades)
	assert.Equal(t, 5.0, *a.SumGrades)

	grade, err := e.grades.Find(quiz.ID, 1)
	require.NoError(t, err)
	assert.InDelta(t, 5.0, grade.Grade, 1e-9)
}

func TestGracePeriod_OverdueThenExplicitFinish(t *testing.T) {
	e := newLifecycleEnv(t)
	quiz := e.createQuiz(t, func(q *model.Quiz) {
		q.TimeLimitSec = 60
		q.OverdueHandling = model.OverdueGracePeriod
		q.GracePeriodSec = 300
	})

	start := e.clock.Now()
	resp := e.mustStart(t, quiz.ID, 1)

	// Past the deadline but inside the grace period: responses are refused
	// and the transition to overdue persists despite the rejection.
	e.clock.Advance(90 * time.Second)
	_, err := e.svc.RecordResponses(resp.ID, "10.0.0.1", dto.RecordResponsesRequest{
		UserID: 1, Responses: map[int]string{1: "correct"},
	})
	require.Error(t, err)
	assert.Equal(t, apperr.KindState, apperr.KindOf(err))

	a := e.attempt(t, resp.ID)
	assert.Equal(t, model.AttemptOverdue, a.State)
	require.NotNil(t, a.TimeCheckState)
	assert.Equal(t, start.Add(360*time.Second), a.TimeCheckState.UTC())

	// The only thing an overdue attempt may do is finish.
	e.clock.Advance(30 * time.Second)
	fin, err := e.svc.FinishAttempt(resp.ID, "10.0.0.1", dto.FinishAttemptRequest{UserID: 1})
	require.NoError(t, err)
	assert.Equal(t, string(model.AttemptFinished), fin.State)
	require.NotNil(t, fin.TimeFinish)
	assert.Equal(t, e.clock.Now(), fin.TimeFinish.UTC())
}

func TestGracePeriod_AbandonedOnceGraceElapses(t *testing.T) {
	e := newLifecycleEnv(t)
	quiz := e.createQuiz(t, func(q *model.Quiz) {
		q.TimeLimitSec = 60
		q.OverdueHandling = model.OverdueGracePeriod
		q.GracePeriodSec = 300
	})

	resp := e.mustStart(t, quiz.ID, 1)

	e.clock.Advance(400 * time.Second)
	_, err := e.svc.FinishAttempt(resp.ID, "10.0.0.1", dto.FinishAttemptRequest{UserID: 1})
	require.Error(t, err)
	assert.Equal(t, "attemptalreadyclosed", apperr.CodeOf(err))

	a := e.attempt(t, resp.ID)
	assert.Equal(t, model.AttemptAbandoned, a.State)
	require.NotNil(t, a.TimeFinish)

	// Abandoned attempts never feed the quiz grade.
	_, err = e.grades.Find(quiz.ID, 1)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestAutoAbandon_ClosesDirectly(t *testing.T) {
	e := newLifecycleEnv(t)
	quiz := e.createQuiz(t, func(q *model.Quiz) {
		q.TimeLimitSec = 60
		q.OverdueHandling = model.OverdueAutoAbandon
	})

	resp := e.mustStart(t, quiz.ID, 1)

	e.clock.Advance(2 * time.Minute)
	_, err := e.svc.ContinueAttempt(resp.ID, 1, "10.0.0.1", 0, dto.PreflightData{})
	require.Error(t, err)

	a := e.attempt(t, resp.ID)
	assert.Equal(t, model.AttemptAbandoned, a.State)
}

func TestFinishAttempt_RecordsFinalResponsesAndGrades(t *testing.T) {
	e := newLifecycleEnv(t)
	quiz := e.createQuiz(t, nil)

	resp := e.mustStart(t, quiz.ID, 1)
	e.clock.Advance(time.Minute)

	fin, err := e.svc.FinishAttempt(resp.ID, "10.0.0.1", dto.FinishAttemptRequest{
		UserID:    1,
		Responses: map[int]string{1: "correct", 2: "wrong"},
	})
	require.NoError(t, err)

	require.NotNil(t, fin.SumGrades)
	assert.Equal(t, 5.0, *fin.SumGrades)

	grade, err := e.grades.Find(quiz.ID, 1)
	require.NoError(t, err)
	assert.InDelta(t, 5.0, grade.Grade, 1e-9)
}

func TestFinishAttempt_SecondFinishRejected(t *testing.T) {
	e := newLifecycleEnv(t)
	quiz := e.createQuiz(t, nil)

	resp := e.mustStart(t, quiz.ID, 1)
	_, err := e.svc.FinishAttempt(resp.ID, "10.0.0.1", dto.FinishAttemptRequest{
		UserID: 1, Responses: map[int]string{1: "correct"},
	})
	require.NoError(t, err)
	before := e.attempt(t, resp.ID)

	e.clock.Advance(time.Minute)
	_, err = e.svc.FinishAttempt(resp.ID, "10.0.0.1", dto.FinishAttemptRequest{UserID: 1})
	require.Error(t, err)
	assert.Equal(t, apperr.KindState, apperr.KindOf(err))
	assert.Equal(t, "attemptalreadyclosed", apperr.CodeOf(err))

	// The rejected finish left the attempt exactly as the first one did.
	after := e.attempt(t, resp.ID)
	require.NotNil(t, after.TimeFinish)
	assert.True(t, before.TimeFinish.Equal(*after.TimeFinish))
	require.NotNil(t, after.SumGrades)
	assert.Equal(t, *before.SumGrades, *after.SumGrades)
}

func TestAttemptNumbering_DuplicateNumberRejectedByStore(t *testing.T) {
	e := newLifecycleEnv(t)
	quiz := e.createQuiz(t, nil)
	e.mustStart(t, quiz.ID, 1)

	dup := model.Attempt{
		QuizID:        quiz.ID,
		UserID:        1,
		AttemptNumber: 1,
		UsageRef:      "duplicate-number-usage",
		State:         model.AttemptInProgress,
		TimeStart:     e.clock.Now(),
		TimeModified:  e.clock.Now(),
	}
	require.Error(t, e.db.Create(&dup).Error)

	// Previews sit outside the unique sequence.
	prev := model.Attempt{
		QuizID:        quiz.ID,
		UserID:        1,
		AttemptNumber: 1,
		Preview:       true,
		UsageRef:      "preview-number-usage",
		State:         model.AttemptInProgress,
		TimeStart:     e.clock.Now(),
		TimeModified:  e.clock.Now(),
	}
	require.NoError(t, e.db.Create(&prev).Error)
}

func TestRecordResponses_OfflineStampsOfflineTime(t *testing.T) {
	e := newLifecycleEnv(t)
	quiz := e.createQuiz(t, nil)

	resp := e.mustStart(t, quiz.ID, 1)
	e.clock.Advance(15 * time.Second)

	updated, err := e.svc.RecordResponses(resp.ID, "10.0.0.1", dto.RecordResponsesRequest{
		UserID: 1, Responses: map[int]string{1: "correct"}, Offline: true,
	})
	require.NoError(t, err)
	require.NotNil(t, updated.TimeModifiedOffline)
	assert.Equal(t, e.clock.Now(), updated.TimeModified.UTC())
}

func TestContinueAttempt_SequentialNavigationCannotGoBack(t *testing.T) {
	e := newLifecycleEnv(t)
	quiz := e.createQuiz(t, func(q *model.Quiz) { q.NavMethod = model.NavSequential })

	resp := e.mustStart(t, quiz.ID, 1)

	page, err := e.svc.ContinueAttempt(resp.ID, 1, "10.0.0.1", 1, dto.PreflightData{})
	require.NoError(t, err)
	assert.Equal(t, 1, page.Attempt.CurrentPage)

	_, err = e.svc.ContinueAttempt(resp.ID, 1, "10.0.0.1", 0, dto.PreflightData{})
	require.Error(t, err)
	assert.Equal(t, "pageoutofsequence", apperr.CodeOf(err))
}

func TestContinueAttempt_RejectsInvalidPageAndForeignUser(t *testing.T) {
	e := newLifecycleEnv(t)
	quiz := e.createQuiz(t, nil)

	resp := e.mustStart(t, quiz.ID, 1)

	_, err := e.svc.ContinueAttempt(resp.ID, 1, "10.0.0.1", 7, dto.PreflightData{})
	require.Error(t, err)
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))

	_, err = e.svc.ContinueAttempt(resp.ID, 2, "10.0.0.1", 0, dto.PreflightData{})
	require.Error(t, err)
	assert.Equal(t, apperr.KindAccessDenied, apperr.KindOf(err))
}

func TestReconcileDue_SweepsWithoutUserRequests(t *testing.T) {
	e := newLifecycleEnv(t)
	quiz := e.createQuiz(t, func(q *model.Quiz) {
		q.TimeLimitSec = 60
		q.OverdueHandling = model.OverdueAutoSubmit
	})

	start := e.clock.Now()
	resp := e.mustStart(t, quiz.ID, 1)

	e.clock.Advance(5 * time.Minute)
	n, err := e.svc.ReconcileDue(10)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	a := e.attempt(t, resp.ID)
	assert.Equal(t, model.AttemptFinished, a.State)
	require.NotNil(t, a.TimeFinish)
	assert.Equal(t, start.Add(time.Minute), a.TimeFinish.UTC())

	// Nothing left to do on the next pass.
	n, err = e.svc.ReconcileDue(10)
	require.NoError(t, err)
	assert.Zero(t, n)
}
