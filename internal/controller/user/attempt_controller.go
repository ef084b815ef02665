package user

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/openquiz/quizgate/internal/controller"
	"github.com/openquiz/quizgate/internal/dto"
	"github.com/openquiz/quizgate/internal/service"
	"github.com/rs/zerolog/log"
)

// AttemptController exposes the quiz-taking surface: starting, continuing
// and finishing attempts, plus the access-info queries a client needs to
// render the entry page.
type AttemptController struct {
	attemptSvc service.AttemptService
	accessSvc  service.AccessService
	clock      service.Clock
}

func NewAttemptController(attemptSvc service.AttemptService, accessSvc service.AccessService, clock service.Clock) *AttemptController {
	if clock == nil {
		clock = time.Now
	}
	return &AttemptController{attemptSvc: attemptSvc, accessSvc: accessSvc, clock: clock}
}

func (c *AttemptController) RegisterRoutes(apiV1 *gin.RouterGroup) {
	quizzes := apiV1.Group("/quizzes")
	quizzes.POST("/:quiz_id/attempts", c.StartAttempt)
	quizzes.GET("/:quiz_id/access-info", c.QuizAccessInfo)
	quizzes.GET("/:quiz_id/attempt-access-info", c.AttemptAccessInfo)

	attempts := apiV1.Group("/attempts")
	attempts.GET("/:attempt_id", c.ContinueAttempt)
	attempts.POST("/:attempt_id/responses", c.RecordResponses)
	attempts.POST("/:attempt_id/finish", c.FinishAttempt)
}

// StartAttempt godoc
// @Summary Start a new attempt at a quiz
// @Description Runs every access rule, validates any required preflight data and creates the attempt
// @Tags attempts
// @Accept json
// @Produce json
// @Param quiz_id path int true "Quiz ID"
// @Param request body dto.StartAttemptRequest true "Attempt start data"
// @Success 201 {object} dto.AttemptResponse
// @Failure 400 {object} dto.ErrorResponse "Invalid request"
// @Failure 403 {object} dto.ErrorResponse "Access denied or preflight check failed"
// @Failure 409 {object} dto.ErrorResponse "An unfinished attempt already exists"
// @Router /quizzes/{quiz_id}/attempts [post]
func (c *AttemptController) StartAttempt(ctx *gin.Context) {
	quizID, ok := pathID(ctx, "quiz_id")
	if !ok {
		return
	}
	var req dto.StartAttemptRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		log.Warn().Err(err).Msg("Failed to bind StartAttemptRequest")
		ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Code: "invalidrequest", Message: err.Error()})
		return
	}

	resp, err := c.attemptSvc.StartAttempt(quizID, ctx.ClientIP(), req)
	if err != nil {
		controller.RespondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusCreated, resp)
}

// ContinueAttempt godoc
// @Summary Continue an in-progress attempt on a given page
// @Description Reconciles the attempt against the clock, then returns the attempt and the slots on the requested page
// @Tags attempts
// @Produce json
// @Param attempt_id path int true "Attempt ID"
// @Param user_id query int true "User ID"
// @Param page query int false "Page number (default 0)"
// @Param password query string false "Quiz password, when a preflight check is required"
// @Success 200 {object} dto.AttemptPageResponse
// @Failure 403 {object} dto.ErrorResponse "Access denied or preflight check failed"
// @Failure 404 {object} dto.ErrorResponse "Attempt not found"
// @Failure 409 {object} dto.ErrorResponse "Attempt already closed or page out of sequence"
// @Router /attempts/{attempt_id} [get]
func (c *AttemptController) ContinueAttempt(ctx *gin.Context) {
	attemptID, ok := pathID(ctx, "attempt_id")
	if !ok {
		return
	}
	userID, ok := queryID(ctx, "user_id")
	if !ok {
		return
	}
	page := 0
	if pageStr := ctx.Query("page"); pageStr != "" {
		val, err := strconv.Atoi(pageStr)
		if err != nil {
			ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Code: "invalidrequest", Message: "Invalid page format"})
			return
		}
		page = val
	}
	preflight := dto.PreflightData{Password: ctx.Query("password")}

	resp, err := c.attemptSvc.ContinueAttempt(attemptID, userID, ctx.ClientIP(), page, preflight)
	if err != nil {
		controller.RespondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, resp)
}

// RecordResponses godoc
// @Summary Record responses for an in-progress attempt
// @Tags attempts
// @Accept json
// @Produce json
// @Param attempt_id path int true "Attempt ID"
// @Param request body dto.RecordResponsesRequest true "Responses keyed by slot number"
// @Success 200 {object} dto.AttemptResponse
// @Failure 403 {object} dto.ErrorResponse "Access denied or preflight check failed"
// @Failure 404 {object} dto.ErrorResponse "Attempt not found"
// @Failure 409 {object} dto.ErrorResponse "Attempt no longer accepts responses"
// @Router /attempts/{attempt_id}/responses [post]
func (c *AttemptController) RecordResponses(ctx *gin.Context) {
	attemptID, ok := pathID(ctx, "attempt_id")
	if !ok {
		return
	}
	var req dto.RecordResponsesRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		log.Warn().Err(err).Msg("Failed to bind RecordResponsesRequest")
		ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Code: "invalidrequest", Message: err.Error()})
		return
	}

	resp, err := c.attemptSvc.RecordResponses(attemptID, ctx.ClientIP(), req)
	if err != nil {
		controller.RespondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, resp)
}

// FinishAttempt godoc
// @Summary Finish an attempt
// @Description Records any final responses, finalizes the question usage and settles the grade
// @Tags attempts
// @Accept json
// @Produce json
// @Param attempt_id path int true "Attempt ID"
// @Param request body dto.FinishAttemptRequest true "Finish data"
// @Success 200 {object} dto.FinishAttemptResponse
// @Failure 403 {object} dto.ErrorResponse "Access denied or preflight check failed"
// @Failure 404 {object} dto.ErrorResponse "Attempt not found"
// @Failure 409 {object} dto.ErrorResponse "Attempt already closed"
// @Router /attempts/{attempt_id}/finish [post]
func (c *AttemptController) FinishAttempt(ctx *gin.Context) {
	attemptID, ok := pathID(ctx, "attempt_id")
	if !ok {
		return
	}
	var req dto.FinishAttemptRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		log.Warn().Err(err).Msg("Failed to bind FinishAttemptRequest")
		ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Code: "invalidrequest", Message: err.Error()})
		return
	}

	resp, err := c.attemptSvc.FinishAttempt(attemptID, ctx.ClientIP(), req)
	if err != nil {
		controller.RespondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, resp)
}

// QuizAccessInfo godoc
// @Summary Describe whether the user may attempt the quiz right now
// @Tags access
// @Produce json
// @Param quiz_id path int true "Quiz ID"
// @Param user_id query int true "User ID"
// @Success 200 {object} dto.QuizAccessInfoResponse
// @Failure 404 {object} dto.ErrorResponse "Quiz not found"
// @Router /quizzes/{quiz_id}/access-info [get]
func (c *AttemptController) QuizAccessInfo(ctx *gin.Context) {
	quizID, ok := pathID(ctx, "quiz_id")
	if !ok {
		return
	}
	userID, ok := queryID(ctx, "user_id")
	if !ok {
		return
	}

	resp, err := c.accessSvc.QuizAccessInfo(quizID, userID, ctx.ClientIP(), c.clock())
	if err != nil {
		controller.RespondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, resp)
}

// AttemptAccessInfo godoc
// @Summary Describe attempt-scoped access state
// @Description End time, whether a preflight check is pending, and whether the user is finished with this quiz for good
// @Tags access
// @Produce json
// @Param quiz_id path int true "Quiz ID"
// @Param user_id query int true "User ID"
// @Param attempt_id query int false "Attempt ID, to include its end time and per-attempt preflight state"
// @Success 200 {object} dto.AttemptAccessInfoResponse
// @Failure 404 {object} dto.ErrorResponse "Quiz or attempt not found"
// @Router /quizzes/{quiz_id}/attempt-access-info [get]
func (c *AttemptController) AttemptAccessInfo(ctx *gin.Context) {
	quizID, ok := pathID(ctx, "quiz_id")
	if !ok {
		return
	}
	userID, ok := queryID(ctx, "user_id")
	if !ok {
		return
	}
	var attemptID *uint
	if s := ctx.Query("attempt_id"); s != "" {
		val, err := strconv.ParseUint(s, 10, 32)
		if err != nil {
			ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Code: "invalidrequest", Message: "Invalid attempt_id format"})
			return
		}
		id := uint(val)
		attemptID = &id
	}

	resp, err := c.accessSvc.AttemptAccessInfo(quizID, userID, ctx.ClientIP(), attemptID, c.clock())
	if err != nil {
		controller.RespondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, resp)
}

func pathID(ctx *gin.Context, name string) (uint, bool) {
	val, err := strconv.ParseUint(ctx.Param(name), 10, 32)
	if err != nil {
		ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Code: "invalidrequest", Message: "Invalid " + name + " format"})
		return 0, false
	}
	return uint(val), true
}

func queryID(ctx *gin.Context, name string) (uint, bool) {
	val, err := strconv.ParseUint(ctx.Query(name), 10, 32)
	if err != nil {
		ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Code: "invalidrequest", Message: "Invalid or missing " + name})
		return 0, false
	}
	return uint(val), true
}
