package router

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/straye-as/enquiry-api/internal/auth"
	"github.com/straye-as/enquiry-api/internal/config"
	"github.com/straye-as/enquiry-api/internal/database"
	"github.com/straye-as/enquiry-api/internal/http/handler"
	"github.com/straye-as/enquiry-api/internal/http/middleware"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Handlers groups every HTTP handler the router mounts
type Handlers struct {
	Auth         *handler.AuthHandler
	Enquiry      *handler.EnquiryHandler
	Assignment   *handler.AssignmentHandler
	FollowUp     *handler.FollowUpHandler
	Notification *handler.NotificationHandler
	Reference    *handler.ReferenceHandler
	User         *handler.UserHandler
}

type Router struct {
	cfg            *config.Config
	logger         *zap.Logger
	db             *gorm.DB
	authMiddleware *auth.Middleware
	rateLimiter    *middleware.RateLimiter
	h              Handlers
}

func NewRouter(
	cfg *config.Config,
	logger *zap.Logger,
	db *gorm.DB,
	authMiddleware *auth.Middleware,
	rateLimiter *middleware.RateLimiter,
	handlers Handlers,
) *Router {
	return &Router{
		cfg:            cfg,
		logger:         logger,
		db:             db,
		authMiddleware: authMiddleware,
		rateLimiter:    rateLimiter,
		h:              handlers,
	}
}

func (rt *Router) Setup() http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.Logging(rt.logger))
	r.Use(middleware.Recovery(rt.logger))
	r.Use(middleware.SecurityHeaders(&rt.cfg.Security))
	r.Use(middleware.CORS(&rt.cfg.CORS, rt.cfg.App.Environment, rt.logger))
	r.Use(rt.rateLimiter.LimitByIP)

	// Liveness probe
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	// Readiness probe with pool stats
	r.Get("/health/db", rt.databaseHealth)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(rt.authMiddleware.Authenticate)
		r.Use(rt.rateLimiter.Limit)

		r.Get("/auth/me", rt.h.Auth.Me)

		r.Route("/enquiries", func(r chi.Router) {
			r.Get("/", rt.h.Enquiry.List)
			r.Post("/", rt.h.Enquiry.Create)
			r.Get("/board", rt.h.Enquiry.Board)
			r.Get("/{id}", rt.h.Enquiry.GetByID)
			r.Delete("/{id}", rt.h.Enquiry.Delete)
			r.Get("/{id}/history", rt.h.Enquiry.History)

			// Lifecycle endpoints
			r.Post("/{id}/stage", rt.h.Enquiry.UpdateStage)
			r.Post("/{id}/status", rt.h.Enquiry.UpdateStatus)
			r.Post("/{id}/reason", rt.h.Enquiry.UpdateReason)

			r.Post("/{id}/assignment", rt.h.Assignment.Update)
			r.Post("/{id}/assignment/accept", rt.h.Assignment.Accept)
			r.Post("/{id}/assignment/reject", rt.h.Assignment.Reject)

			r.Get("/{id}/follow-ups", rt.h.FollowUp.ListByEnquiry)
			r.Post("/{id}/follow-ups", rt.h.FollowUp.Create)
		})

		r.Route("/follow-ups", func(r chi.Router) {
			r.Get("/", rt.h.FollowUp.List)
			r.Put("/{id}", rt.h.FollowUp.Update)
			r.Post("/{id}/status", rt.h.FollowUp.UpdateStatus)
			r.Post("/{id}/complete", rt.h.FollowUp.Complete)
			r.Delete("/{id}", rt.h.FollowUp.Delete)
		})

		r.Route("/notifications", func(r chi.Router) {
			r.Get("/", rt.h.Notification.List)
			r.Get("/unread", rt.h.Notification.Unread)
			r.Get("/count", rt.h.Notification.GetUnreadCount)
			r.Post("/read-all", rt.h.Notification.MarkAllAsRead)
			r.Get("/preferences", rt.h.Notification.GetPreferences)
			r.Put("/preferences", rt.h.Notification.UpdatePreferences)
			r.Post("/{id}/read", rt.h.Notification.MarkAsRead)
			r.Delete("/{id}", rt.h.Notification.Delete)
		})

		r.Get("/notification-types", rt.h.Notification.ListTypes)
		r.With(rt.authMiddleware.RequireAdmin).
			Put("/notification-types/{name}/template", rt.h.Notification.UploadTemplate)

		// Reference data; writes are checked for admin in the service
		r.Route("/reasons", func(r chi.Router) {
			r.Get("/", rt.h.Reference.ListReasons)
			r.Post("/", rt.h.Reference.CreateReason)
			r.Put("/{id}", rt.h.Reference.UpdateReason)
			r.Delete("/{id}", rt.h.Reference.DeleteReason)
		})
		r.Route("/lead-sources", func(r chi.Router) {
			r.Get("/", rt.h.Reference.ListLeadSources)
			r.Post("/", rt.h.Reference.CreateLeadSource)
			r.Put("/{id}", rt.h.Reference.UpdateLeadSource)
			r.Delete("/{id}", rt.h.Reference.DeleteLeadSource)
		})
		r.Get("/categories", rt.h.Reference.ListCategories)
		r.Get("/categories/{id}/subcategories", rt.h.Reference.ListSubcategories)

		r.Get("/roles", rt.h.User.ListRoles)
		r.Route("/users", func(r chi.Router) {
			r.Get("/{id}", rt.h.User.GetByID)

			r.Group(func(r chi.Router) {
				r.Use(rt.authMiddleware.RequireAdmin)
				r.Get("/", rt.h.User.List)
				r.Post("/", rt.h.User.Create)
				r.Put("/{id}/role", rt.h.User.ChangeRole)
				r.Put("/{id}/active", rt.h.User.SetActive)
				r.Get("/{id}/permissions", rt.h.User.Permissions)
				r.Put("/{id}/permissions/{module}", rt.h.User.SetPermission)
				r.Delete("/{id}/permissions/{module}", rt.h.User.ClearPermission)
			})
		})
	})

	return r
}

func (rt *Router) databaseHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	stats, err := database.HealthCheckWithStats(rt.db)
	if err != nil {
		rt.logger.Error("database health check failed", zap.Error(err))
		w.WriteHeader(http.StatusServiceUnavailable)
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"status":  "unhealthy",
			"service": "database",
		})
		return
	}

	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"status":  "healthy",
		"service": "database",
		"stats": map[string]interface{}{
			"max_open_connections": stats.MaxOpenConnections,
			"open_connections":     stats.OpenConnections,
			"in_use":               stats.InUse,
			"idle":                 stats.Idle,
			"wait_count":           stats.WaitCount,
			"wait_duration_ms":     stats.WaitDuration.Milliseconds(),
		},
	})
}
