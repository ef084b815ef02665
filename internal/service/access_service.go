package service

import (
	"errors"
	"fmt"
	"time"

	"github.com/openquiz/quizgate/internal/access"
	"github.com/openquiz/quizgate/internal/apperr"
	"github.com/openquiz/quizgate/internal/dto"
	"github.com/openquiz/quizgate/internal/model"
	"github.com/openquiz/quizgate/internal/repository"
	"gorm.io/gorm"
)

// AccessService constructs the per-request access context: the principal,
// the effective deadline settings and the composed rule manager. Everything
// is built fresh per evaluation; nothing is cached across requests.
type AccessService interface {
	BuildPrincipal(quizID, userID uint, clientIP string, preview bool) (access.Principal, error)
	// CanPreview reports whether the user holds the preview capability for
	// this quiz. Checked only when a new preview attempt is requested.
	CanPreview(quizID, userID uint) (bool, error)
	ManagerFor(quiz model.Quiz, principal access.Principal, now time.Time) (*access.Manager, error)
	EffectiveFor(quiz model.Quiz, principal access.Principal) (access.EffectiveSettings, error)
	QuizAccessInfo(quizID, userID uint, clientIP string, now time.Time) (*dto.QuizAccessInfoResponse, error)
	AttemptAccessInfo(quizID, userID uint, clientIP string, attemptID *uint, now time.Time) (*dto.AttemptAccessInfoResponse, error)
}

type accessService struct {
	quizRepo      repository.QuizRepository
	overrideRepo  repository.OverrideRepository
	principalRepo repository.PrincipalRepository
	attemptRepo   repository.AttemptRepository
	preflightRepo repository.PreflightRepository
}

func NewAccessService(
	quizRepo repository.QuizRepository,
	overrideRepo repository.OverrideRepository,
	principalRepo repository.PrincipalRepository,
	attemptRepo repository.AttemptRepository,
	preflightRepo repository.PreflightRepository,
) AccessService {
	return &accessService{
		quizRepo:      quizRepo,
		overrideRepo:  overrideRepo,
		principalRepo: principalRepo,
		attemptRepo:   attemptRepo,
		preflightRepo: preflightRepo,
	}
}

func (s *accessService) BuildPrincipal(quizID, userID uint, clientIP string, preview bool) (access.Principal, error) {
	groups, err := s.principalRepo.GroupIDs(userID)
	if err != nil {
		return access.Principal{}, fmt.Errorf("loading group memberships: %w", err)
	}
	ignore, err := s.principalRepo.HasCapability(userID, quizID, model.CapIgnoreTimeLimits)
	if err != nil {
		return access.Principal{}, fmt.Errorf("checking capabilities: %w", err)
	}
	return access.Principal{
		UserID:           userID,
		GroupIDs:         groups,
		ClientIP:         clientIP,
		IgnoreTimeLimits: ignore,
		Preview:          preview,
	}, nil
}

func (s *accessService) CanPreview(quizID, userID uint) (bool, error) {
	return s.principalRepo.HasCapability(userID, quizID, model.CapPreview)
}

func (s *accessService) EffectiveFor(quiz model.Quiz, principal access.Principal) (access.EffectiveSettings, error) {
	userOv, err := s.overrideRepo.FindUserOverride(quiz.ID, principal.UserID)
	if err != nil {
		return access.EffectiveSettings{}, fmt.Errorf("loading user override: %w", err)
	}
	var groupOvs []model.Override
	if userOv == nil {
		groupOvs, err = s.overrideRepo.FindGroupOverrides(quiz.ID, principal.GroupIDs)
		if err != nil {
			return access.EffectiveSettings{}, fmt.Errorf("loading group overrides: %w", err)
		}
	}
	return access.ResolveEffective(quiz, userOv, groupOvs), nil
}

func (s *accessService) ManagerFor(quiz model.Quiz, principal access.Principal, now time.Time) (*access.Manager, error) {
	eff, err := s.EffectiveFor(quiz, principal)
	if err != nil {
		return nil, err
	}
	return access.NewManager(access.Env{
		Quiz:      quiz,
		Effective: eff,
		Principal: principal,
		Now:       now,
		Preflight: s.preflightRepo,
	}), nil
}

func (s *accessService) QuizAccessInfo(quizID, userID uint, clientIP string, now time.Time) (*dto.QuizAccessInfoResponse, error) {
	_, mgr, err := s.quizAndManager(quizID, userID, clientIP, now)
	if err != nil {
		return nil, err
	}
	reasons := mgr.PreventAccess()
	return &dto.QuizAccessInfoResponse{
		CanAttempt:           len(reasons) == 0,
		RuleDescriptions:     mgr.Descriptions(),
		ActiveRuleNames:      mgr.ActiveRuleNames(),
		PreventAccessReasons: reasons,
		SecureWindowRequired: mgr.RequiresSecureWindow(),
	}, nil
}

func (s *accessService) AttemptAccessInfo(quizID, userID uint, clientIP string, attemptID *uint, now time.Time) (*dto.AttemptAccessInfoResponse, error) {
	_, mgr, err := s.quizAndManager(quizID, userID, clientIP, now)
	if err != nil {
		return nil, err
	}

	count, err := s.attemptRepo.CountNonPreview(nil, quizID, userID)
	if err != nil {
		return nil, err
	}
	last, err := s.attemptRepo.LastNonPreview(quizID, userID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	info := &dto.AttemptAccessInfoResponse{
		IsFinished:               mgr.IsFinished(count, last),
		PreflightRequired:        mgr.IsPreflightRequired(attemptID),
		PreventNewAttemptReasons: mgr.PreventNewAttempt(count, last),
	}
	if attemptID != nil {
		attempt, err := s.attemptRepo.FindByID(*attemptID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, apperr.NotFound("attemptnotfound", "attempt %d not found", *attemptID)
			}
			return nil, err
		}
		if end, ok := mgr.EndTime(*attempt); ok {
			info.EndTime = &end
		}
	}
	return info, nil
}

func (s *accessService) quizAndManager(quizID, userID uint, clientIP string, now time.Time) (*model.Quiz, *access.Manager, error) {
	quiz, err := s.quizRepo.FindByID(quizID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, apperr.NotFound("quiznotfound", "quiz %d not found", quizID)
		}
		return nil, nil, err
	}
	principal, err := s.BuildPrincipal(quizID, userID, clientIP, false)
	if err != nil {
		return nil, nil, err
	}
	mgr, err := s.ManagerFor(*quiz, principal, now)
	if err != nil {
		return nil, nil, err
	}
	return quiz, mgr, nil
}
