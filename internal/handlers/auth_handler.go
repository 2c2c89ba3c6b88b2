package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/campusconnect/event-service/internal/services"
)

type AuthHandler struct {
	BaseHandler
	identity services.IdentityService
}

func NewAuthHandler(base BaseHandler, identity services.IdentityService) *AuthHandler {
	return &AuthHandler{BaseHandler: base, identity: identity}
}

// SignUp creates a self-service account
// @Summary Sign up
// @Tags auth
// @Accept json
// @Produce json
// @Param body body services.SignUpRequest true "Account data"
// @Success 201 {object} services.SignUpResponse
// @Failure 400 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Failure 422 {object} ErrorResponse
// @Router /auth/signup [post]
func (h *AuthHandler) SignUp(c *gin.Context) {
	var req services.SignUpRequest
	if !h.bindJSON(c, &req) {
		return
	}

	resp, err := h.identity.SignUp(c.Request.Context(), &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, resp)
}

// SignIn exchanges an identity-provider authorization code for a session
// @Summary Sign in
// @Tags auth
// @Accept json
// @Produce json
// @Param body body services.SignInRequest true "Authorization code"
// @Success 200 {object} services.SignInResponse
// @Failure 401 {object} ErrorResponse
// @Router /auth/signin [post]
func (h *AuthHandler) SignIn(c *gin.Context) {
	var req services.SignInRequest
	if !h.bindJSON(c, &req) {
		return
	}

	resp, err := h.identity.SignIn(c.Request.Context(), services.NewSession(), &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	h.LogRequest(c, "Session opened", "user_id", resp.User.ID)
	c.JSON(http.StatusOK, resp)
}

// SignOut revokes the bearer token of the request
// @Summary Sign out
// @Tags auth
// @Success 204
// @Router /auth/signout [post]
func (h *AuthHandler) SignOut(c *gin.Context) {
	// the token's own expiry is looked up by the identity service
	session := services.NewAuthenticatedSession(principalFrom(c), time.Time{})
	if err := h.identity.SignOut(c.Request.Context(), session, c.GetString(accessTokenKey)); err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Session returns the caller's principal with a freshly resolved role
// @Summary Current session
// @Tags auth
// @Produce json
// @Success 200 {object} models.Principal
// @Failure 401 {object} ErrorResponse
// @Router /auth/session [get]
func (h *AuthHandler) Session(c *gin.Context) {
	c.JSON(http.StatusOK, principalFrom(c))
}

// CreateAdminAccount provisions an organizer account on an institutional domain
// @Summary Create admin account
// @Tags auth
// @Accept json
// @Produce json
// @Param body body services.CreateAdminRequest true "Admin data"
// @Success 201 {object} services.CreateAdminResponse
// @Failure 403 {object} ErrorResponse
// @Failure 422 {object} ErrorResponse
// @Router /admin/accounts [post]
func (h *AuthHandler) CreateAdminAccount(c *gin.Context) {
	var req services.CreateAdminRequest
	if !h.bindJSON(c, &req) {
		return
	}

	resp, err := h.identity.CreateAdminAccount(c.Request.Context(), principalFrom(c), &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, resp)
}

// GetProfile returns the caller's profile
// @Summary Get own profile
// @Tags profile
// @Produce json
// @Success 200 {object} models.Profile
// @Router /me/profile [get]
func (h *AuthHandler) GetProfile(c *gin.Context) {
	profile, err := h.identity.GetProfile(c.Request.Context(), principalFrom(c))
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, profile)
}

// UpdateProfile edits the caller's contact details
// @Summary Update own profile
// @Tags profile
// @Accept json
// @Produce json
// @Param body body services.UpdateProfileRequest true "Profile fields"
// @Success 200 {object} models.Profile
// @Failure 400 {object} ErrorResponse
// @Router /me/profile [put]
func (h *AuthHandler) UpdateProfile(c *gin.Context) {
	var req services.UpdateProfileRequest
	if !h.bindJSON(c, &req) {
		return
	}

	profile, err := h.identity.UpdateProfile(c.Request.Context(), principalFrom(c), &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, profile)
}
