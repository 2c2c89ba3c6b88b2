package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/campusconnect/event-service/internal/models"
	"github.com/campusconnect/event-service/internal/services"
)

type EventHandler struct {
	BaseHandler
	events services.EventService
}

func NewEventHandler(base BaseHandler, events services.EventService) *EventHandler {
	return &EventHandler{BaseHandler: base, events: events}
}

// CreateEvent submits a new event for review
// @Summary Create event
// @Tags events
// @Accept json
// @Produce json
// @Param event body services.CreateEventRequest true "Event data"
// @Success 201 {object} services.EventResponse
// @Failure 400 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Router /events [post]
func (h *EventHandler) CreateEvent(c *gin.Context) {
	var req services.CreateEventRequest
	if !h.bindJSON(c, &req) {
		return
	}

	h.LogRequest(c, "Creating event", "title", req.Title)

	event, err := h.events.Create(c.Request.Context(), principalFrom(c), &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, event)
}

// GetEvent returns one event with the caller's permissions on it
// @Summary Get event
// @Tags events
// @Produce json
// @Param id path string true "Event ID"
// @Success 200 {object} services.EventResponse
// @Failure 404 {object} ErrorResponse
// @Router /events/{id} [get]
func (h *EventHandler) GetEvent(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}
	event, err := h.events.GetByID(c.Request.Context(), principalFrom(c), id)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, event)
}

// UpdateEvent edits the event's details
// @Summary Update event
// @Tags events
// @Accept json
// @Produce json
// @Param id path string true "Event ID"
// @Param event body services.UpdateEventRequest true "Changed fields"
// @Success 200 {object} services.EventResponse
// @Failure 400 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Router /events/{id} [put]
func (h *EventHandler) UpdateEvent(c *gin.Context) {
	var req services.UpdateEventRequest
	if !h.bindJSON(c, &req) {
		return
	}

	id, ok := h.pathID(c)
	if !ok {
		return
	}
	h.LogRequest(c, "Updating event", "event_id", id)

	event, err := h.events.Update(c.Request.Context(), principalFrom(c), id, &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, event)
}

// DeleteEvent removes an event with its registrations and media
// @Summary Delete event
// @Tags events
// @Param id path string true "Event ID"
// @Success 204
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /events/{id} [delete]
func (h *EventHandler) DeleteEvent(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}
	h.LogRequest(c, "Deleting event", "event_id", id)

	if err := h.events.Delete(c.Request.Context(), principalFrom(c), id); err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// ListEvents lists approved events
// @Summary List events
// @Tags events
// @Produce json
// @Param category query string false "Category"
// @Param search query string false "Search in title, description and venue"
// @Param date_from query string false "YYYY-MM-DD"
// @Param date_to query string false "YYYY-MM-DD"
// @Param page query int false "Page"
// @Param size query int false "Page size"
// @Success 200 {object} services.EventListResponse
// @Router /events [get]
func (h *EventHandler) ListEvents(c *gin.Context) {
	h.list(c, func(ctx context.Context, p models.Principal, f services.EventListFilters) (*services.EventListResponse, error) {
		return h.events.List(ctx, p, f)
	})
}

// ListPendingEvents lists events waiting for review
// @Summary List pending events
// @Tags events
// @Produce json
// @Success 200 {object} services.EventListResponse
// @Router /events/pending [get]
func (h *EventHandler) ListPendingEvents(c *gin.Context) {
	h.list(c, func(ctx context.Context, p models.Principal, f services.EventListFilters) (*services.EventListResponse, error) {
		return h.events.ListPending(ctx, p, f)
	})
}

// ListOrganizerEvents lists every event of one organizer, whatever its status
// @Summary List organizer events
// @Tags events
// @Produce json
// @Param organizer_id query string false "Organizer, defaults to the caller"
// @Success 200 {object} services.EventListResponse
// @Router /events/mine [get]
func (h *EventHandler) ListOrganizerEvents(c *gin.Context) {
	organizerID := c.Query("organizer_id")
	h.list(c, func(ctx context.Context, p models.Principal, f services.EventListFilters) (*services.EventListResponse, error) {
		return h.events.ListByOrganizer(ctx, p, organizerID, f)
	})
}

func (h *EventHandler) list(c *gin.Context, fetch func(context.Context, models.Principal, services.EventListFilters) (*services.EventListResponse, error)) {
	var filters services.EventListFilters
	if !h.bindQuery(c, &filters) {
		return
	}

	resp, err := fetch(c.Request.Context(), principalFrom(c), filters)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// ApproveEvent publishes a pending event
// @Summary Approve event
// @Tags events
// @Param id path string true "Event ID"
// @Success 200 {object} services.EventResponse
// @Failure 409 {object} ErrorResponse
// @Router /events/{id}/approve [post]
func (h *EventHandler) ApproveEvent(c *gin.Context) {
	h.transition(c, "Approving event", h.events.Approve)
}

// RejectEvent declines a pending event with a reason
// @Summary Reject event
// @Tags events
// @Accept json
// @Param id path string true "Event ID"
// @Param body body services.RejectEventRequest true "Reason"
// @Success 200 {object} services.EventResponse
// @Failure 400 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /events/{id}/reject [post]
func (h *EventHandler) RejectEvent(c *gin.Context) {
	var req services.RejectEventRequest
	if !h.bindJSON(c, &req) {
		return
	}

	h.transition(c, "Rejecting event", func(ctx context.Context, p models.Principal, id string) (*services.EventResponse, error) {
		return h.events.Reject(ctx, p, id, req.Reason)
	})
}

// CancelEvent
// @Summary Cancel event
// @Tags events
// @Param id path string true "Event ID"
// @Success 200 {object} services.EventResponse
// @Router /events/{id}/cancel [post]
func (h *EventHandler) CancelEvent(c *gin.Context) {
	h.transition(c, "Cancelling event", h.events.Cancel)
}

// CompleteEvent marks an event that has taken place as completed
// @Summary Complete event
// @Tags events
// @Param id path string true "Event ID"
// @Success 200 {object} services.EventResponse
// @Failure 422 {object} ErrorResponse
// @Router /events/{id}/complete [post]
func (h *EventHandler) CompleteEvent(c *gin.Context) {
	h.transition(c, "Completing event", h.events.Complete)
}

// ReconcileParticipants recounts approved registrations
// @Summary Reconcile participant count
// @Tags events
// @Param id path string true "Event ID"
// @Success 200 {object} services.EventResponse
// @Router /events/{id}/reconcile [post]
func (h *EventHandler) ReconcileParticipants(c *gin.Context) {
	h.transition(c, "Reconciling participants", h.events.ReconcileParticipants)
}

func (h *EventHandler) transition(c *gin.Context, msg string, apply func(context.Context, models.Principal, string) (*services.EventResponse, error)) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}
	caller := principalFrom(c)
	h.LogRequest(c, msg, "event_id", id, "caller_id", caller.ID)

	event, err := apply(c.Request.Context(), caller, id)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, event)
}

// GetEventHistory returns the event's status changes, oldest first
// @Summary Event status history
// @Tags events
// @Param id path string true "Event ID"
// @Success 200 {array} models.EventStatusChange
// @Router /events/{id}/history [get]
func (h *EventHandler) GetEventHistory(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}
	history, err := h.events.History(c.Request.Context(), principalFrom(c), id)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, SuccessResponse{Data: history})
}
