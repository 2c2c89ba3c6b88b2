package handlers

import (
	"bytes"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/campusconnect/event-service/internal/models"
	"github.com/campusconnect/event-service/internal/services"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type RegistrationHandler struct {
	BaseHandler
	registrations services.RegistrationService
}

func NewRegistrationHandler(base BaseHandler, registrations services.RegistrationService) *RegistrationHandler {
	return &RegistrationHandler{BaseHandler: base, registrations: registrations}
}

// Register signs the calling student up for an event
// @Summary Register for event
// @Tags registrations
// @Produce json
// @Param id path string true "Event ID"
// @Success 201 {object} models.Registration
// @Failure 422 {object} ErrorResponse
// @Router /events/{id}/registrations [post]
func (h *RegistrationHandler) Register(c *gin.Context) {
	eventID, ok := h.pathID(c)
	if !ok {
		return
	}
	caller := principalFrom(c)
	h.LogRequest(c, "Registering for event", "event_id", eventID, "user_id", caller.ID)

	registration, err := h.registrations.Register(c.Request.Context(), caller, eventID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, registration)
}

// ListEventRegistrations lists an event's registrations with per-status counts
// @Summary List event registrations
// @Tags registrations
// @Produce json
// @Param id path string true "Event ID"
// @Param status query string false "pending, approved, rejected or waitlisted"
// @Param search query string false "Name, email or roll number"
// @Success 200 {object} services.RegistrationListResponse
// @Router /events/{id}/registrations [get]
func (h *RegistrationHandler) ListEventRegistrations(c *gin.Context) {
	var filters services.RegistrationListFilters
	if !h.bindQuery(c, &filters) {
		return
	}

	id, ok := h.pathID(c)
	if !ok {
		return
	}
	resp, err := h.registrations.ListByEvent(c.Request.Context(), principalFrom(c), id, filters)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// ExportEventRegistrations downloads the roster as an Excel workbook
// @Summary Export registrations
// @Tags registrations
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Param id path string true "Event ID"
// @Param status query string false "Only this status"
// @Success 200 {file} file
// @Router /events/{id}/registrations/export [get]
func (h *RegistrationHandler) ExportEventRegistrations(c *gin.Context) {
	eventID, ok := h.pathID(c)
	if !ok {
		return
	}

	var status *models.RegistrationStatus
	if raw := c.Query("status"); raw != "" {
		s := models.RegistrationStatus(raw)
		status = &s
	}

	// buffered so a failure halfway still produces a JSON error instead of a truncated file
	var buf bytes.Buffer
	if err := h.registrations.ExportRoster(c.Request.Context(), principalFrom(c), eventID, status, &buf); err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="registrations-%s.xlsx"`, eventID))
	c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
}

// GetMyRegistrationStatus tells the caller whether they registered for an event
// @Summary Own registration status
// @Tags registrations
// @Produce json
// @Param id path string true "Event ID"
// @Success 200 {object} services.RegistrationCheckResponse
// @Router /events/{id}/registrations/me [get]
func (h *RegistrationHandler) GetMyRegistrationStatus(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}
	resp, err := h.registrations.IsRegistered(c.Request.Context(), principalFrom(c), id)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// ListMyRegistrations lists the caller's registrations with their events
// @Summary Own registrations
// @Tags registrations
// @Produce json
// @Success 200 {array} models.Registration
// @Router /me/registrations [get]
func (h *RegistrationHandler) ListMyRegistrations(c *gin.Context) {
	registrations, err := h.registrations.ListMine(c.Request.Context(), principalFrom(c))
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, SuccessResponse{Data: registrations})
}

// UpdateRegistrationStatus decides a pending registration
// @Summary Decide registration
// @Tags registrations
// @Accept json
// @Produce json
// @Param id path string true "Registration ID"
// @Param body body services.UpdateRegistrationStatusRequest true "Decision"
// @Success 200 {object} models.Registration
// @Failure 409 {object} ErrorResponse
// @Failure 422 {object} ErrorResponse
// @Router /registrations/{id}/status [put]
func (h *RegistrationHandler) UpdateRegistrationStatus(c *gin.Context) {
	var req services.UpdateRegistrationStatusRequest
	if !h.bindJSON(c, &req) {
		return
	}

	id, ok := h.pathID(c)
	if !ok {
		return
	}
	caller := principalFrom(c)
	h.LogRequest(c, "Deciding registration", "registration_id", id, "status", req.Status, "caller_id", caller.ID)

	registration, err := h.registrations.UpdateStatus(c.Request.Context(), caller, id, req.Status)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, registration)
}
