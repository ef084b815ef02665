package controller

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/openquiz/quizgate/internal/apperr"
	"github.com/openquiz/quizgate/internal/dto"
	"github.com/rs/zerolog/log"
)

// RespondError translates a service error into the HTTP response. Known
// error kinds map to stable status codes; anything else is a 500 with the
// detail kept out of the body.
func RespondError(ctx *gin.Context, err error) {
	var e *apperr.Error
	if !errors.As(err, &e) {
		log.Error().Err(err).Str("path", ctx.FullPath()).Msg("Unhandled service error")
		ctx.JSON(http.StatusInternalServerError, dto.ErrorResponse{Message: "internal server error"})
		return
	}
	body := dto.ErrorResponse{Code: e.Code, Message: e.Message, Reasons: e.Reasons}
	switch e.Kind {
	case apperr.KindValidation:
		ctx.JSON(http.StatusBadRequest, body)
	case apperr.KindNotFound:
		ctx.JSON(http.StatusNotFound, body)
	case apperr.KindAccessDenied, apperr.KindPreflightRequired:
		ctx.JSON(http.StatusForbidden, body)
	case apperr.KindState:
		ctx.JSON(http.StatusConflict, body)
	default:
		log.Error().Err(err).Str("path", ctx.FullPath()).Msg("Unhandled service error")
		ctx.JSON(http.StatusInternalServerError, dto.ErrorResponse{Message: "internal server error"})
	}
}
