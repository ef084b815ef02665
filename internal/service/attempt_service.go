package service

import (
	"errors"
	"fmt"
	"time"

	"github.com/jinzhu/copier"
	"github.com/openquiz/quizgate/internal/access"
	"github.com/openquiz/quizgate/internal/apperr"
	"github.com/openquiz/quizgate/internal/dto"
	"github.com/openquiz/quizgate/internal/model"
	"github.com/openquiz/quizgate/internal/questionusage"
	"github.com/openquiz/quizgate/internal/repository"
	"github.com/openquiz/quizgate/internal/structure"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// Clock supplies the current instant; injectable so lifecycle tests can
// control time.
type Clock func() time.Time

// AttemptService is the attempt lifecycle state machine. Every mutating
// operation runs inside one transaction with the attempt row locked, and
// starts with a time-reconciliation pass: if the clock implies a transition
// the stored state has not caught up with, the transition is applied first
// and the caller's request is then re-validated against the new state.
type AttemptService interface {
	StartAttempt(quizID uint, clientIP string, req dto.StartAttemptRequest) (*dto.AttemptResponse, error)
	ContinueAttempt(attemptID, userID uint, clientIP string, page int, preflight dto.PreflightData) (*dto.AttemptPageResponse, error)
	RecordResponses(attemptID uint, clientIP string, req dto.RecordResponsesRequest) (*dto.AttemptResponse, error)
	FinishAttempt(attemptID uint, clientIP string, req dto.FinishAttemptRequest) (*dto.FinishAttemptResponse, error)
	// ReconcileDue is the maintenance sweep: it reconciles every attempt
	// whose timeCheckState has passed, independent of any user request, and
	// reports how many attempts changed state.
	ReconcileDue(limit int) (int, error)
}

type attemptService struct {
	db          *gorm.DB
	quizRepo    repository.QuizRepository
	attemptRepo repository.AttemptRepository
	accessSvc   AccessService
	gradeSvc    GradeService
	usage       questionusage.Engine
	clock       Clock
}

func NewAttemptService(
	db *gorm.DB,
	quizRepo repository.QuizRepository,
	attemptRepo repository.AttemptRepository,
	accessSvc AccessService,
	gradeSvc GradeService,
	usage questionusage.Engine,
	clock Clock,
) AttemptService {
	if clock == nil {
		clock = time.Now
	}
	return &attemptService{
		db:          db,
		quizRepo:    quizRepo,
		attemptRepo: attemptRepo,
		accessSvc:   accessSvc,
		gradeSvc:    gradeSvc,
		usage:       usage,
		clock:       clock,
	}
}

func (s *attemptService) StartAttempt(quizID uint, clientIP string, req dto.StartAttemptRequest) (*dto.AttemptResponse, error) {
	now := s.clock()
	quiz, err := s.loadQuiz(quizID)
	if err != nil {
		return nil, err
	}
	principal, err := s.accessSvc.BuildPrincipal(quizID, req.UserID, clientIP, req.Preview)
	if err != nil {
		return nil, err
	}
	mgr, err := s.accessSvc.ManagerFor(*quiz, principal, now)
	if err != nil {
		return nil, err
	}

	// Preview attempts bypass gating but need the preview capability;
	// everyone else must pass every rule.
	if req.Preview {
		allowed, err := s.accessSvc.CanPreview(quizID, req.UserID)
		if err != nil {
			return nil, err
		}
		if !allowed {
			return nil, apperr.AccessDenied([]string{"You are not allowed to preview this quiz"})
		}
	} else {
		if reasons := mgr.PreventAccess(); len(reasons) > 0 {
			return nil, apperr.AccessDenied(reasons)
		}
	}

	// An unfinished attempt blocks a new one unless the caller forces it.
	// Reconcile it first: the clock may already have closed it.
	unfinished, err := s.attemptRepo.FindUnfinished(quizID, req.UserID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	if unfinished != nil && !unfinished.Preview {
		still, err := s.reconcileByID(*quiz, mgr, unfinished.ID, now)
		if err != nil {
			return nil, err
		}
		if !still.State.Terminal() {
			if !req.ForceNew {
				return nil, apperr.State("attemptstillinprogress",
					"attempt %d is still in progress", still.ID)
			}
			if err := s.abandonByID(*quiz, still.ID, now); err != nil {
				return nil, err
			}
		}
	}

	count, err := s.attemptRepo.CountNonPreview(nil, quizID, req.UserID)
	if err != nil {
		return nil, err
	}
	last, err := s.attemptRepo.LastNonPreview(quizID, req.UserID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	if !req.Preview {
		if reasons := mgr.PreventNewAttempt(count, last); len(reasons) > 0 {
			return nil, apperr.AccessDenied(reasons)
		}
	}

	if mgr.IsPreflightRequired(nil) {
		if errs := mgr.ValidatePreflight(access.PreflightData(req.Preflight), nil); len(errs) > 0 {
			return nil, preflightError(errs)
		}
	}

	slots, err := s.quizRepo.SlotsByQuizID(quizID)
	if err != nil {
		return nil, err
	}
	usageRef, err := s.usage.CreateUsage(quizID, slots)
	if err != nil {
		return nil, fmt.Errorf("creating question usage: %w", err)
	}

	attempt := model.Attempt{
		QuizID:       quizID,
		UserID:       req.UserID,
		UsageRef:     usageRef,
		State:        model.AttemptInProgress,
		Preview:      req.Preview,
		TimeStart:    now,
		TimeModified: now,
	}
	if end, ok := mgr.EndTime(attempt); ok {
		attempt.TimeCheckState = &end
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if req.Preview {
			// Old previews are throwaway; discard them so they never pollute
			// counts or reporting.
			if err := s.attemptRepo.DeletePreviews(tx, quizID, req.UserID); err != nil {
				return err
			}
		}
		// Number from a count taken inside the transaction; the unique index
		// on (quiz, user, number) rejects whichever of two racing starts
		// commits second.
		n, err := s.attemptRepo.CountNonPreview(tx, quizID, req.UserID)
		if err != nil {
			return err
		}
		attempt.AttemptNumber = n + 1
		if err := s.attemptRepo.Create(tx, &attempt); err != nil {
			return err
		}
		return mgr.NotifyPreflightPassed(attempt.ID)
	})
	if err != nil {
		return nil, err
	}

	log.Info().Uint("quizID", quizID).Uint("userID", req.UserID).
		Int("attemptNumber", attempt.AttemptNumber).Bool("preview", req.Preview).
		Msg("Attempt started")
	return attemptToDTO(&attempt), nil
}

func (s *attemptService) ContinueAttempt(attemptID, userID uint, clientIP string, page int, preflight dto.PreflightData) (*dto.AttemptPageResponse, error) {
	now := s.clock()
	attempt, quiz, mgr, err := s.loadContext(attemptID, userID, clientIP, now)
	if err != nil {
		return nil, err
	}
	// The reconciliation pass commits on its own, so a transition sticks even
	// when the request below is rejected against the new state.
	if attempt, err = s.reconcileByID(*quiz, mgr, attemptID, now); err != nil {
		return nil, err
	}

	if !attempt.Preview {
		if reasons := mgr.PreventAccess(); len(reasons) > 0 {
			return nil, apperr.AccessDenied(reasons)
		}
	}
	if err := s.checkPreflight(mgr, attemptID, preflight); err != nil {
		return nil, err
	}

	layout := structure.NewLayout(quiz.Slots)
	if !layout.ValidPage(page) {
		return nil, apperr.Validation("invalidpage",
			"page %d is out of range (quiz has %d pages)", page, layout.PageCount())
	}

	var result *model.Attempt
	err = s.db.Transaction(func(tx *gorm.DB) error {
		locked, err := s.attemptRepo.FindByIDForUpdate(tx, attemptID)
		if err != nil {
			return err
		}
		if _, err := s.reconcile(tx, *quiz, mgr, locked, now); err != nil {
			return err
		}
		if locked.State.Terminal() {
			return apperr.State("attemptalreadyclosed", "attempt %d is closed", attemptID)
		}
		if quiz.NavMethod == model.NavSequential && page < locked.CurrentPage {
			return apperr.State("pageoutofsequence",
				"sequential navigation does not allow returning to page %d", page)
		}
		if page != locked.CurrentPage {
			locked.CurrentPage = page
			if err := s.attemptRepo.Save(tx, locked); err != nil {
				return err
			}
		}
		result = locked
		return nil
	})
	if err != nil {
		return nil, err
	}

	resp := &dto.AttemptPageResponse{Attempt: *attemptToDTO(result), Page: page}
	for _, slot := range layout.SlotsOnPage(page) {
		var sr dto.SlotResponse
		copier.Copy(&sr, &slot)
		resp.Slots = append(resp.Slots, sr)
	}
	return resp, nil
}

func (s *attemptService) RecordResponses(attemptID uint, clientIP string, req dto.RecordResponsesRequest) (*dto.AttemptResponse, error) {
	now := s.clock()
	_, quiz, mgr, err := s.loadContext(attemptID, req.UserID, clientIP, now)
	if err != nil {
		return nil, err
	}
	if _, err := s.reconcileByID(*quiz, mgr, attemptID, now); err != nil {
		return nil, err
	}
	if err := s.checkPreflight(mgr, attemptID, req.Preflight); err != nil {
		return nil, err
	}

	page := questionusage.PageAll
	if req.Page != nil {
		layout := structure.NewLayout(quiz.Slots)
		if !layout.ValidPage(*req.Page) {
			return nil, apperr.Validation("invalidpage", "page %d is out of range", *req.Page)
		}
		page = *req.Page
	}

	var result *model.Attempt
	err = s.db.Transaction(func(tx *gorm.DB) error {
		locked, err := s.attemptRepo.FindByIDForUpdate(tx, attemptID)
		if err != nil {
			return err
		}
		if _, err := s.reconcile(tx, *quiz, mgr, locked, now); err != nil {
			return err
		}
		// Responses are only accepted while in progress; an overdue attempt
		// may only be finished.
		if locked.State != model.AttemptInProgress {
			return apperr.State("attemptalreadyclosed",
				"attempt %d no longer accepts responses", attemptID)
		}
		if err := s.usage.RecordResponses(locked.UsageRef, page, req.Responses, now); err != nil {
			return fmt.Errorf("recording responses: %w", err)
		}
		locked.TimeModified = now
		if req.Offline {
			locked.TimeModifiedOffline = &now
		}
		if err := s.attemptRepo.Save(tx, locked); err != nil {
			return err
		}
		result = locked
		return nil
	})
	if err != nil {
		return nil, err
	}
	return attemptToDTO(result), nil
}

func (s *attemptService) FinishAttempt(attemptID uint, clientIP string, req dto.FinishAttemptRequest) (*dto.FinishAttemptResponse, error) {
	now := s.clock()
	_, quiz, mgr, err := s.loadContext(attemptID, req.UserID, clientIP, now)
	if err != nil {
		return nil, err
	}
	if _, err := s.reconcileByID(*quiz, mgr, attemptID, now); err != nil {
		return nil, err
	}
	if err := s.checkPreflight(mgr, attemptID, req.Preflight); err != nil {
		return nil, err
	}

	var result *model.Attempt
	err = s.db.Transaction(func(tx *gorm.DB) error {
		locked, err := s.attemptRepo.FindByIDForUpdate(tx, attemptID)
		if err != nil {
			return err
		}
		if _, err := s.reconcile(tx, *quiz, mgr, locked, now); err != nil {
			return err
		}
		// Reconciliation may just have closed the attempt; the finish request
		// is then stale.
		if locked.State.Terminal() {
			return apperr.State("attemptalreadyclosed",
				"attempt %d is already closed", attemptID)
		}
		if len(req.Responses) > 0 && locked.State == model.AttemptInProgress {
			if err := s.usage.RecordResponses(locked.UsageRef, questionusage.PageAll, req.Responses, now); err != nil {
				return fmt.Errorf("recording final responses: %w", err)
			}
		}
		if err := s.close(tx, *quiz, locked, model.AttemptFinished, now, now); err != nil {
			return err
		}
		result = locked
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Info().Uint("attemptID", attemptID).Bool("timeUp", req.TimeUp).Msg("Attempt finished")
	return &dto.FinishAttemptResponse{
		State:      string(result.State),
		TimeFinish: result.TimeFinish,
		SumGrades:  result.SumGrades,
	}, nil
}

func (s *attemptService) ReconcileDue(limit int) (int, error) {
	now := s.clock()
	due, err := s.attemptRepo.FindDueForCheck(now, limit)
	if err != nil {
		return 0, err
	}
	transitioned := 0
	for _, a := range due {
		quiz, err := s.loadQuiz(a.QuizID)
		if err != nil {
			log.Error().Err(err).Uint("attemptID", a.ID).Msg("Sweep: loading quiz failed")
			continue
		}
		principal, err := s.accessSvc.BuildPrincipal(a.QuizID, a.UserID, "", a.Preview)
		if err != nil {
			log.Error().Err(err).Uint("attemptID", a.ID).Msg("Sweep: building principal failed")
			continue
		}
		mgr, err := s.accessSvc.ManagerFor(*quiz, principal, now)
		if err != nil {
			log.Error().Err(err).Uint("attemptID", a.ID).Msg("Sweep: building rule manager failed")
			continue
		}
		changed := false
		err = s.db.Transaction(func(tx *gorm.DB) error {
			locked, err := s.attemptRepo.FindByIDForUpdate(tx, a.ID)
			if err != nil {
				return err
			}
			changed, err = s.reconcile(tx, *quiz, mgr, locked, now)
			return err
		})
		if err != nil {
			log.Error().Err(err).Uint("attemptID", a.ID).Msg("Sweep: reconcile failed")
			continue
		}
		if changed {
			transitioned++
		}
	}
	return transitioned, nil
}

// reconcile applies, in place, whatever transition the clock implies and
// reports whether the attempt changed state. Running it twice at the same
// instant is a no-op the second time.
func (s *attemptService) reconcile(tx *gorm.DB, quiz model.Quiz, mgr *access.Manager, attempt *model.Attempt, now time.Time) (bool, error) {
	if attempt.State.Terminal() {
		return false, nil
	}
	end, ok := mgr.EndTime(*attempt)
	if !ok {
		if attempt.TimeCheckState != nil {
			attempt.TimeCheckState = nil
			return false, s.attemptRepo.Save(tx, attempt)
		}
		return false, nil
	}
	grace := quiz.GracePeriod()

	switch attempt.State {
	case model.AttemptInProgress:
		if !now.After(end) {
			// Not due yet; make sure the sweep will look again at the deadline.
			if attempt.TimeCheckState == nil || !attempt.TimeCheckState.Equal(end) {
				attempt.TimeCheckState = &end
				return false, s.attemptRepo.Save(tx, attempt)
			}
			return false, nil
		}
		switch quiz.OverdueHandling {
		case model.OverdueAutoSubmit:
			// Submit what was last saved. The attempt officially ended at the
			// deadline, not at whatever later instant we noticed.
			return true, s.close(tx, quiz, attempt, model.AttemptFinished, end, now)
		case model.OverdueGracePeriod:
			deadline := end.Add(grace)
			if !now.After(deadline) {
				attempt.State = model.AttemptOverdue
				attempt.TimeCheckState = &deadline
				attempt.TimeModified = now
				return true, s.attemptRepo.Save(tx, attempt)
			}
			return true, s.close(tx, quiz, attempt, model.AttemptAbandoned, now, now)
		default: // autoabandon
			return true, s.close(tx, quiz, attempt, model.AttemptAbandoned, now, now)
		}
	case model.AttemptOverdue:
		if now.After(end.Add(grace)) {
			return true, s.close(tx, quiz, attempt, model.AttemptAbandoned, now, now)
		}
	}
	return false, nil
}

// close moves an attempt to a terminal state: finalize the question usage,
// settle sumGrades from the last-saved responses, stamp timeFinish and stop
// further time checks. Finished non-preview attempts feed the quiz grade
// recompute.
func (s *attemptService) close(tx *gorm.DB, quiz model.Quiz, attempt *model.Attempt, state model.AttemptState, finishAt, now time.Time) error {
	if err := s.usage.Finalize(attempt.UsageRef, now); err != nil {
		return fmt.Errorf("finalizing question usage: %w", err)
	}
	// An abandoned attempt only keeps a sum when something was actually
	// graded; otherwise the column stays empty.
	settle := state == model.AttemptFinished
	if !settle {
		graded, err := s.usage.HasAnyGradedResponse(attempt.UsageRef)
		if err != nil {
			return fmt.Errorf("checking graded responses: %w", err)
		}
		settle = graded
	}
	attempt.State = state
	attempt.TimeFinish = &finishAt
	attempt.TimeModified = now
	attempt.TimeCheckState = nil
	if settle {
		sum, err := s.usage.SumMarks(attempt.UsageRef)
		if err != nil {
			return fmt.Errorf("summing marks: %w", err)
		}
		attempt.SumGrades = &sum
	}
	if err := s.attemptRepo.Save(tx, attempt); err != nil {
		return err
	}
	if state == model.AttemptFinished && !attempt.Preview {
		if err := s.gradeSvc.RecomputeQuizGrade(tx, quiz, attempt.UserID, now); err != nil {
			return fmt.Errorf("recomputing quiz grade: %w", err)
		}
	}
	return nil
}

func (s *attemptService) reconcileByID(quiz model.Quiz, mgr *access.Manager, attemptID uint, now time.Time) (*model.Attempt, error) {
	var result *model.Attempt
	err := s.db.Transaction(func(tx *gorm.DB) error {
		locked, err := s.attemptRepo.FindByIDForUpdate(tx, attemptID)
		if err != nil {
			return err
		}
		if _, err := s.reconcile(tx, quiz, mgr, locked, now); err != nil {
			return err
		}
		result = locked
		return nil
	})
	return result, err
}

func (s *attemptService) abandonByID(quiz model.Quiz, attemptID uint, now time.Time) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		locked, err := s.attemptRepo.FindByIDForUpdate(tx, attemptID)
		if err != nil {
			return err
		}
		if locked.State.Terminal() {
			return nil
		}
		return s.close(tx, quiz, locked, model.AttemptAbandoned, now, now)
	})
}

func (s *attemptService) checkPreflight(mgr *access.Manager, attemptID uint, preflight dto.PreflightData) error {
	if !mgr.IsPreflightRequired(&attemptID) {
		return nil
	}
	if errs := mgr.ValidatePreflight(access.PreflightData(preflight), &attemptID); len(errs) > 0 {
		return preflightError(errs)
	}
	return mgr.NotifyPreflightPassed(attemptID)
}

func (s *attemptService) loadContext(attemptID, userID uint, clientIP string, now time.Time) (*model.Attempt, *model.Quiz, *access.Manager, error) {
	attempt, err := s.attemptRepo.FindByID(attemptID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, nil, apperr.NotFound("attemptnotfound", "attempt %d not found", attemptID)
		}
		return nil, nil, nil, err
	}
	if attempt.UserID != userID {
		return nil, nil, nil, apperr.AccessDenied([]string{"This is not your attempt"})
	}
	quiz, err := s.quizRepo.FindByIDWithSlots(attempt.QuizID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, nil, apperr.NotFound("quiznotfound", "quiz %d not found", attempt.QuizID)
		}
		return nil, nil, nil, err
	}
	principal, err := s.accessSvc.BuildPrincipal(quiz.ID, userID, clientIP, attempt.Preview)
	if err != nil {
		return nil, nil, nil, err
	}
	mgr, err := s.accessSvc.ManagerFor(*quiz, principal, now)
	if err != nil {
		return nil, nil, nil, err
	}
	return attempt, quiz, mgr, nil
}

func (s *attemptService) loadQuiz(quizID uint) (*model.Quiz, error) {
	quiz, err := s.quizRepo.FindByIDWithSlots(quizID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("quiznotfound", "quiz %d not found", quizID)
		}
		return nil, err
	}
	return quiz, nil
}

func preflightError(errs []access.CheckError) error {
	reasons := make([]string, len(errs))
	for i, e := range errs {
		reasons[i] = e.Message
	}
	return apperr.PreflightRequired(errs[0].Code, reasons)
}

func attemptToDTO(a *model.Attempt) *dto.AttemptResponse {
	var resp dto.AttemptResponse
	copier.Copy(&resp, a)
	resp.State = string(a.State)
	return &resp
}
