package admin

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/openquiz/quizgate/internal/controller"
	"github.com/openquiz/quizgate/internal/dto"
	"github.com/openquiz/quizgate/internal/service"
	"github.com/rs/zerolog/log"
)

// AdminQuizController exposes quiz and override management.
type AdminQuizController struct {
	quizSvc service.QuizService
}

func NewAdminQuizController(quizSvc service.QuizService) *AdminQuizController {
	return &AdminQuizController{quizSvc: quizSvc}
}

func (c *AdminQuizController) RegisterRoutes(adminV1 *gin.RouterGroup) {
	quizzes := adminV1.Group("/quizzes")
	quizzes.POST("", c.CreateQuiz)
	quizzes.GET("", c.GetAllQuizzes)
	quizzes.GET("/:quiz_id", c.GetQuiz)
	quizzes.PUT("/:quiz_id", c.UpdateQuiz)
	quizzes.DELETE("/:quiz_id", c.DeleteQuiz)

	quizzes.POST("/:quiz_id/overrides", c.CreateOverride)
	quizzes.GET("/:quiz_id/overrides", c.GetOverrides)
	quizzes.PUT("/:quiz_id/overrides/:override_id", c.UpdateOverride)
	quizzes.DELETE("/:quiz_id/overrides/:override_id", c.DeleteOverride)
}

// CreateQuiz godoc
// @Summary (Admin) Create a quiz
// @Description Creates a quiz with its timing, attempt-limit, access and grading settings, plus its question slots
// @Tags Admin - Quizzes
// @Accept json
// @Produce json
// @Param quiz body dto.QuizCreateDTO true "Quiz settings and slots"
// @Success 201 {object} dto.QuizResponse
// @Failure 400 {object} dto.ErrorResponse "Invalid input data"
// @Router /admin/quizzes [post]
func (c *AdminQuizController) CreateQuiz(ctx *gin.Context) {
	var req dto.QuizCreateDTO
	if err := ctx.ShouldBindJSON(&req); err != nil {
		log.Warn().Err(err).Msg("Admin CreateQuiz: Failed to bind JSON")
		ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Code: "invalidrequest", Message: err.Error()})
		return
	}

	resp, err := c.quizSvc.CreateQuiz(req)
	if err != nil {
		controller.RespondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusCreated, resp)
}

// GetAllQuizzes godoc
// @Summary (Admin) List all quizzes
// @Tags Admin - Quizzes
// @Produce json
// @Success 200 {array} dto.QuizResponse
// @Router /admin/quizzes [get]
func (c *AdminQuizController) GetAllQuizzes(ctx *gin.Context) {
	resp, err := c.quizSvc.GetAllQuizzes()
	if err != nil {
		controller.RespondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, resp)
}

// GetQuiz godoc
// @Summary (Admin) Get a quiz with its slots
// @Tags Admin - Quizzes
// @Produce json
// @Param quiz_id path int true "Quiz ID"
// @Success 200 {object} dto.QuizResponse
// @Failure 404 {object} dto.ErrorResponse "Quiz not found"
// @Router /admin/quizzes/{quiz_id} [get]
func (c *AdminQuizController) GetQuiz(ctx *gin.Context) {
	id, ok := pathID(ctx, "quiz_id")
	if !ok {
		return
	}
	resp, err := c.quizSvc.GetQuiz(id)
	if err != nil {
		controller.RespondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, resp)
}

// UpdateQuiz godoc
// @Summary (Admin) Update a quiz
// @Description Replaces the quiz settings; when slots are included the structure and grade sum are recomputed
// @Tags Admin - Quizzes
// @Accept json
// @Produce json
// @Param quiz_id path int true "Quiz ID"
// @Param quiz body dto.QuizCreateDTO true "Updated quiz settings"
// @Success 200 {object} dto.QuizResponse
// @Failure 404 {object} dto.ErrorResponse "Quiz not found"
// @Router /admin/quizzes/{quiz_id} [put]
func (c *AdminQuizController) UpdateQuiz(ctx *gin.Context) {
	id, ok := pathID(ctx, "quiz_id")
	if !ok {
		return
	}
	var req dto.QuizCreateDTO
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Code: "invalidrequest", Message: err.Error()})
		return
	}
	resp, err := c.quizSvc.UpdateQuiz(id, req)
	if err != nil {
		controller.RespondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, resp)
}

// DeleteQuiz godoc
// @Summary (Admin) Delete a quiz
// @Tags Admin - Quizzes
// @Param quiz_id path int true "Quiz ID"
// @Success 204 "No Content"
// @Failure 404 {object} dto.ErrorResponse "Quiz not found"
// @Router /admin/quizzes/{quiz_id} [delete]
func (c *AdminQuizController) DeleteQuiz(ctx *gin.Context) {
	id, ok := pathID(ctx, "quiz_id")
	if !ok {
		return
	}
	if err := c.quizSvc.DeleteQuiz(id); err != nil {
		controller.RespondError(ctx, err)
		return
	}
	ctx.Status(http.StatusNoContent)
}

// CreateOverride godoc
// @Summary (Admin) Create a per-user or per-group override
// @Description Overrides a quiz's open/close times, time limit or password for one user or one group
// @Tags Admin - Overrides
// @Accept json
// @Produce json
// @Param quiz_id path int true "Quiz ID"
// @Param override body dto.OverrideCreateDTO true "Override data; exactly one of user_id/group_id"
// @Success 201 {object} dto.OverrideResponse
// @Failure 400 {object} dto.ErrorResponse "Invalid override"
// @Failure 404 {object} dto.ErrorResponse "Quiz not found"
// @Router /admin/quizzes/{quiz_id}/overrides [post]
func (c *AdminQuizController) CreateOverride(ctx *gin.Context) {
	quizID, ok := pathID(ctx, "quiz_id")
	if !ok {
		return
	}
	var req dto.OverrideCreateDTO
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Code: "invalidrequest", Message: err.Error()})
		return
	}
	resp, err := c.quizSvc.CreateOverride(quizID, req)
	if err != nil {
		controller.RespondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusCreated, resp)
}

// GetOverrides godoc
// @Summary (Admin) List a quiz's overrides
// @Tags Admin - Overrides
// @Produce json
// @Param quiz_id path int true "Quiz ID"
// @Success 200 {array} dto.OverrideResponse
// @Router /admin/quizzes/{quiz_id}/overrides [get]
func (c *AdminQuizController) GetOverrides(ctx *gin.Context) {
	quizID, ok := pathID(ctx, "quiz_id")
	if !ok {
		return
	}
	resp, err := c.quizSvc.GetOverrides(quizID)
	if err != nil {
		controller.RespondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, resp)
}

// UpdateOverride godoc
// @Summary (Admin) Update an override
// @Tags Admin - Overrides
// @Accept json
// @Produce json
// @Param quiz_id path int true "Quiz ID"
// @Param override_id path int true "Override ID"
// @Param override body dto.OverrideCreateDTO true "Updated override data"
// @Success 200 {object} dto.OverrideResponse
// @Failure 404 {object} dto.ErrorResponse "Override not found"
// @Router /admin/quizzes/{quiz_id}/overrides/{override_id} [put]
func (c *AdminQuizController) UpdateOverride(ctx *gin.Context) {
	quizID, ok := pathID(ctx, "quiz_id")
	if !ok {
		return
	}
	overrideID, ok := pathID(ctx, "override_id")
	if !ok {
		return
	}
	var req dto.OverrideCreateDTO
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Code: "invalidrequest", Message: err.Error()})
		return
	}
	resp, err := c.quizSvc.UpdateOverride(quizID, overrideID, req)
	if err != nil {
		controller.RespondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, resp)
}

// DeleteOverride godoc
// @Summary (Admin) Delete an override
// @Tags Admin - Overrides
// @Param quiz_id path int true "Quiz ID"
// @Param override_id path int true "Override ID"
// @Success 204 "No Content"
// @Failure 404 {object} dto.ErrorResponse "Override not found"
// @Router /admin/quizzes/{quiz_id}/overrides/{override_id} [delete]
func (c *AdminQuizController) DeleteOverride(ctx *gin.Context) {
	quizID, ok := pathID(ctx, "quiz_id")
	if !ok {
		return
	}
	overrideID, ok := pathID(ctx, "override_id")
	if !ok {
		return
	}
	if err := c.quizSvc.DeleteOverride(quizID, overrideID); err != nil {
		controller.RespondError(ctx, err)
		return
	}
	ctx.Status(http.StatusNoContent)
}

func pathID(ctx *gin.Context, name string) (uint, bool) {
	val, err := strconv.ParseUint(ctx.Param(name), 10, 32)
	if err != nil {
		ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Code: "invalidrequest", Message: "Invalid " + name + " format"})
		return 0, false
	}
	return uint(val), true
}
