package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/learnhub/learnhub-backend/internal/middleware"
	"github.com/learnhub/learnhub-backend/internal/model"
	"github.com/learnhub/learnhub-backend/internal/response"
	"github.com/learnhub/learnhub-backend/internal/service"
)

// pageQuery is embedded by every listing query.
type pageQuery struct {
	Page    int `form:"page" binding:"omitempty,min=1"`
	PerPage int `form:"per_page" binding:"omitempty,min=1,max=100"`
}

// classify maps a service error onto an HTTP status and API error code.
func classify(err error) (int, response.ErrCode) {
	switch {
	case errors.Is(err, service.ErrNotFound):
		return http.StatusNotFound, response.ErrNotFound
	case errors.Is(err, service.ErrForbidden):
		return http.StatusForbidden, response.ErrForbidden
	case errors.Is(err, service.ErrNotAvailable):
		return http.StatusBadRequest, response.ErrExamNotAvailable
	case errors.Is(err, service.ErrAlreadySubmitted):
		return http.StatusBadRequest, response.ErrAlreadySubmitted
	case errors.Is(err, service.ErrAttemptExpired):
		return http.StatusBadRequest, response.ErrAttemptExpired
	case errors.Is(err, service.ErrEmptyExam):
		return http.StatusBadRequest, response.ErrEmptyExam
	case errors.Is(err, service.ErrInvalidAnswerKey):
		return http.StatusBadRequest, response.ErrInvalidAnswerKey
	case errors.Is(err, service.ErrUnknownQuestions):
		return http.StatusBadRequest, response.ErrUnknownQuestions
	case errors.Is(err, service.ErrEmailTaken):
		return http.StatusConflict, response.ErrEmailTaken
	case errors.Is(err, service.ErrInvalidCredentials):
		return http.StatusUnauthorized, response.ErrInvalidCredentials
	case errors.Is(err, service.ErrSessionRevoked):
		return http.StatusUnauthorized, response.ErrSessionRevoked
	case errors.Is(err, service.ErrInvalidToken):
		return http.StatusUnauthorized, response.ErrTokenInvalid
	default:
		return http.StatusInternalServerError, response.ErrInternal
	}
}

// fail writes the error envelope for err. Unexpected errors are logged with
// the request id; domain errors are not.
func fail(c *gin.Context, log zerolog.Logger, err error) {
	status, code := classify(err)
	if status == http.StatusInternalServerError {
		log.Error().Err(err).
			Str("request_id", response.RequestID(c)).
			Str("route", c.FullPath()).
			Msg("Request failed")
	}
	response.Fail(c, status, code)
}

func principal(c *gin.Context) (model.Principal, bool) {
	p, ok := middleware.GetPrincipal(c)
	if !ok {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
	}
	return p, ok
}

func paramUUID(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return uuid.Nil, false
	}
	return id, true
}

// optionalUUID parses an optional id query parameter.
func optionalUUID(c *gin.Context, name string) (*uuid.UUID, bool) {
	raw := c.Query(name)
	if raw == "" {
		return nil, true
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, map[string]string{name: "must be a valid UUID"})
		return nil, false
	}
	return &id, true
}
