package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/campusconnect/event-service/internal/i18n"
	"github.com/campusconnect/event-service/internal/models"
	"github.com/campusconnect/event-service/internal/services"
	"github.com/campusconnect/event-service/internal/utils"
)

type HandlerManager struct {
	authHandler         *AuthHandler
	eventHandler        *EventHandler
	registrationHandler *RegistrationHandler
	mediaHandler        *MediaHandler
	authMiddleware      *AuthMiddleware

	health func(ctx context.Context) error
}

func NewHandlerManager(serviceManager services.ServiceManager, translator *i18n.Translator, logger utils.Logger) *HandlerManager {
	base := NewBaseHandler(logger, translator)

	return &HandlerManager{
		authHandler:         NewAuthHandler(base, serviceManager.Identity()),
		eventHandler:        NewEventHandler(base, serviceManager.Event()),
		registrationHandler: NewRegistrationHandler(base, serviceManager.Registration()),
		mediaHandler:        NewMediaHandler(base, serviceManager.Media()),
		authMiddleware:      NewAuthMiddleware(base, serviceManager.Identity()),
		health:              serviceManager.HealthCheck,
	}
}

// SetupRoutes sets up all API routes
func (hm *HandlerManager) SetupRoutes(router *gin.Engine) {
	v1 := router.Group("/api/v1")

	auth := v1.Group("/auth")
	{
		auth.POST("/signup", hm.authHandler.SignUp)
		auth.POST("/signin", hm.authHandler.SignIn)
		auth.POST("/signout", hm.authMiddleware.Authenticate(), hm.authHandler.SignOut)
		auth.GET("/session", hm.authMiddleware.Authenticate(), hm.authHandler.Session)
	}

	// Browsing approved events does not require an account
	public := v1.Group("")
	public.Use(hm.authMiddleware.OptionalAuth())
	{
		public.GET("/events", hm.eventHandler.ListEvents)
		public.GET("/events/:id", hm.eventHandler.GetEvent)
		public.GET("/events/:id/media", hm.mediaHandler.ListMedia)
	}

	protected := v1.Group("")
	protected.Use(hm.authMiddleware.Authenticate())
	{
		organizers := hm.authMiddleware.RequireRole(models.RoleAdmin)
		executives := hm.authMiddleware.RequireRole(models.RoleExecutive)

		events := protected.Group("/events")
		{
			events.POST("", organizers, hm.eventHandler.CreateEvent)
			events.GET("/pending", executives, hm.eventHandler.ListPendingEvents)
			events.GET("/mine", organizers, hm.eventHandler.ListOrganizerEvents)
			events.PUT("/:id", organizers, hm.eventHandler.UpdateEvent)
			events.DELETE("/:id", organizers, hm.eventHandler.DeleteEvent)

			// Lifecycle
			events.POST("/:id/approve", executives, hm.eventHandler.ApproveEvent)
			events.POST("/:id/reject", executives, hm.eventHandler.RejectEvent)
			events.POST("/:id/cancel", organizers, hm.eventHandler.CancelEvent)
			events.POST("/:id/complete", organizers, hm.eventHandler.CompleteEvent)
			events.POST("/:id/reconcile", organizers, hm.eventHandler.ReconcileParticipants)
			events.GET("/:id/history", organizers, hm.eventHandler.GetEventHistory)

			// Registrations
			events.POST("/:id/registrations", hm.authMiddleware.RequireRole(models.RoleStudent), hm.registrationHandler.Register)
			events.GET("/:id/registrations", organizers, hm.registrationHandler.ListEventRegistrations)
			events.GET("/:id/registrations/export", organizers, hm.registrationHandler.ExportEventRegistrations)
			events.GET("/:id/registrations/me", hm.registrationHandler.GetMyRegistrationStatus)

			// Media
			events.POST("/:id/media", organizers, hm.mediaHandler.UploadMedia)
		}

		protected.PUT("/registrations/:id/status", organizers, hm.registrationHandler.UpdateRegistrationStatus)
		protected.DELETE("/media/:id", organizers, hm.mediaHandler.DeleteMedia)

		me := protected.Group("/me")
		{
			me.GET("/profile", hm.authHandler.GetProfile)
			me.PUT("/profile", hm.authHandler.UpdateProfile)
			me.GET("/registrations", hm.registrationHandler.ListMyRegistrations)
		}

		protected.POST("/admin/accounts", executives, hm.authHandler.CreateAdminAccount)
	}

	router.GET("/health", hm.Health)
}

// Health reports whether the database is reachable
func (hm *HandlerManager) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
	defer cancel()

	if err := hm.health(ctx); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":  "unhealthy",
			"service": "campusconnect",
			"error":   err.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "campusconnect",
	})
}
