// Package httpapi exposes the task manager over HTTP for both the SPA
// (cookie session + anti-forgery token) and API clients (opaque bearer
// token).
package httpapi

import (
	"time"

	"github.com/akarpov/taskdeck/internal/logging"
	"github.com/akarpov/taskdeck/internal/server/config"
	"github.com/akarpov/taskdeck/internal/server/services"
	"github.com/gin-gonic/gin"
)

const (
	sessionCookieName = "taskdeck_session"
	csrfCookieName    = "XSRF-TOKEN"
	csrfHeaderName    = "X-XSRF-TOKEN"
)

type Server struct {
	config      *config.Config
	logger      logging.Logger
	auth        *services.AuthService
	tasks       *services.TaskService
	attachments *services.AttachmentService
	router      *gin.Engine
}

func NewServer(cfg *config.Config, logger logging.Logger,
	auth *services.AuthService, tasks *services.TaskService,
	attachments *services.AttachmentService) *Server {

	s := &Server{
		config:      cfg,
		logger:      logger,
		auth:        auth,
		tasks:       tasks,
		attachments: attachments,
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery(), s.requestLog())

	router.GET("/csrf-cookie", s.handleCSRFCookie)
	router.POST("/register", s.handleRegister)
	router.POST("/login", s.handleLogin)

	authed := router.Group("", s.requireAuth())
	{
		authed.POST("/logout", s.handleLogout)
		authed.GET("/me", s.handleMe)

		authed.GET("/tasks", s.handleListTasks)
		authed.GET("/tasks/:id", s.handleGetTask)
		authed.GET("/attachments/:id/url", s.handleAttachmentURL)

		mutating := authed.Group("", s.requireCSRF())
		{
			mutating.POST("/tasks", s.handleCreateTask)
			mutating.PATCH("/tasks/:id", s.handleReconcileTask)
			mutating.DELETE("/tasks/:id", s.handleDeleteTask)
			mutating.PATCH("/tasks-status/:id", s.handleSetStatus)
			mutating.PATCH("/todos/:id", s.handleSetTodoDone)
			mutating.POST("/tasks/:id/attachments", s.handleCreateAttachment)
		}
	}

	s.router = router
	return s
}

// Router returns the configured handler; the caller owns the http.Server.
func (s *Server) Router() *gin.Engine {
	return s.router
}

func (s *Server) requestLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.Info(c.Request.Context(), "request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration", time.Since(start).String(),
		)
	}
}
