package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/campusconnect/event-service/internal/i18n"
	"github.com/campusconnect/event-service/internal/services"
	"github.com/campusconnect/event-service/internal/utils"
)

// ErrorResponse is the body of every failed request
type ErrorResponse struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

type SuccessResponse struct {
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

// BaseHandler carries what every handler needs to log and to render errors
type BaseHandler struct {
	logger     utils.Logger
	translator *i18n.Translator
}

func NewBaseHandler(logger utils.Logger, translator *i18n.Translator) BaseHandler {
	return BaseHandler{logger: logger, translator: translator}
}

func (h *BaseHandler) LogRequest(c *gin.Context, msg string, args ...any) {
	utils.GetLogger(c, h.logger).Info(msg, args...)
}

func (h *BaseHandler) LogError(c *gin.Context, err error, msg string, args ...any) {
	utils.GetLogger(c, h.logger).Error(msg, append(args, "error", err)...)
}

// t renders key in the caller's Accept-Language
func (h *BaseHandler) t(c *gin.Context, key string, data map[string]interface{}) string {
	return h.translator.T(c.GetHeader("Accept-Language"), key, data)
}

func (h *BaseHandler) respondError(c *gin.Context, status int, code string, data map[string]interface{}, details interface{}) {
	c.AbortWithStatusJSON(status, ErrorResponse{
		Code:    code,
		Message: h.t(c, code, data),
		Details: details,
	})
}

// bindJSON binds the body into req and answers 400 when it cannot be decoded.
func (h *BaseHandler) bindJSON(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		h.respondError(c, http.StatusBadRequest, "invalid_request", nil, err.Error())
		return false
	}
	return true
}

func (h *BaseHandler) bindQuery(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindQuery(req); err != nil {
		h.respondError(c, http.StatusBadRequest, "invalid_request", nil, err.Error())
		return false
	}
	return true
}

// pathID returns the :id path parameter. Every stored id is a UUID, so
// anything else is answered with 400 before it reaches the database.
func (h *BaseHandler) pathID(c *gin.Context) (string, bool) {
	id := c.Param("id")
	if err := uuid.Validate(id); err != nil {
		h.respondError(c, http.StatusBadRequest, "validation_failed", nil, services.ValidationErrors{{
			Field:   "id",
			Message: "must be a UUID",
			Value:   id,
			Rule:    "uuid",
		}})
		return "", false
	}
	return id, true
}

// sentinelCodes maps plain service errors to translation keys and statuses
var sentinelCodes = []struct {
	err    error
	status int
	code   string
}{
	{services.ErrEventNotFound, http.StatusNotFound, "event_not_found"},
	{services.ErrRegistrationNotFound, http.StatusNotFound, "registration_not_found"},
	{services.ErrMediaNotFound, http.StatusNotFound, "media_not_found"},
	{services.ErrProfileNotFound, http.StatusNotFound, "profile_not_found"},
	{services.ErrAccountExists, http.StatusConflict, "not_eligible.account_exists"},
	{services.ErrSignInFailed, http.StatusUnauthorized, "sign_in_failed"},
	{services.ErrInvalidSession, http.StatusUnauthorized, "unauthenticated"},
}

// handleServiceError maps a service error onto a status code and a translated message
func (h *BaseHandler) handleServiceError(c *gin.Context, err error) {
	var validationErrors services.ValidationErrors
	if errors.As(err, &validationErrors) {
		h.respondError(c, http.StatusBadRequest, "validation_failed", nil, validationErrors)
		return
	}

	for _, s := range sentinelCodes {
		if errors.Is(err, s.err) {
			h.respondError(c, s.status, s.code, nil, nil)
			return
		}
	}

	var coded services.CodedError
	if !errors.As(err, &coded) {
		h.LogError(c, err, "Unexpected service error")
		h.respondError(c, http.StatusInternalServerError, "store_error", nil, nil)
		return
	}

	status := statusFor(coded)
	if status >= http.StatusInternalServerError {
		h.LogError(c, err, "Service error")
	}
	h.respondError(c, status, coded.Code(), coded.TemplateData(), nil)
}

func statusFor(err services.CodedError) int {
	switch e := err.(type) {
	case *services.AuthorizationError:
		if e.Unauthenticated() {
			return http.StatusUnauthorized
		}
		return http.StatusForbidden
	case *services.InvalidTransitionError, *services.StaleStateError:
		return http.StatusConflict
	case *services.NotEligibleError, *services.CapacityExceededError, *services.DeadlinePassedError,
		*services.ProfileIncompleteError, *services.AdminDomainError, *services.DomainRejectedError:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

