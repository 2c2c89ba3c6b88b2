package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/campusconnect/event-service/internal/services"
)

type MediaHandler struct {
	BaseHandler
	media services.MediaService
}

func NewMediaHandler(base BaseHandler, media services.MediaService) *MediaHandler {
	return &MediaHandler{BaseHandler: base, media: media}
}

// UploadMedia records a file stored elsewhere against a completed event
// @Summary Add event media
// @Tags media
// @Accept json
// @Produce json
// @Param id path string true "Event ID"
// @Param body body services.UploadMediaRequest true "File metadata"
// @Success 201 {object} models.EventMedia
// @Failure 422 {object} ErrorResponse
// @Router /events/{id}/media [post]
func (h *MediaHandler) UploadMedia(c *gin.Context) {
	var req services.UploadMediaRequest
	if !h.bindJSON(c, &req) {
		return
	}

	id, ok := h.pathID(c)
	if !ok {
		return
	}
	media, err := h.media.Upload(c.Request.Context(), principalFrom(c), id, &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, media)
}

// @Summary List event media
// @Tags media
// @Produce json
// @Param id path string true "Event ID"
// @Success 200 {array} models.EventMedia
// @Router /events/{id}/media [get]
func (h *MediaHandler) ListMedia(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}
	media, err := h.media.List(c.Request.Context(), principalFrom(c), id)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, SuccessResponse{Data: media})
}

// @Summary Delete event media
// @Tags media
// @Param id path string true "Media ID"
// @Success 204
// @Router /media/{id} [delete]
func (h *MediaHandler) DeleteMedia(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}
	if err := h.media.Delete(c.Request.Context(), principalFrom(c), id); err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
