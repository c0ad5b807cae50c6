package httpapi

import (
	"net/http"
	"strconv"
	"time"

	"github.com/akarpov/taskdeck/internal/server/models"
	"github.com/akarpov/taskdeck/internal/server/services"
	"github.com/gin-gonic/gin"
)

func (s *Server) setSessionCookies(c *gin.Context, session *models.Session) {
	maxAge := int(time.Until(session.ExpiresAt).Seconds())
	// the session id stays out of script reach; the anti-forgery token is
	// deliberately readable so the SPA can echo it back in a header
	c.SetCookie(sessionCookieName, session.ID, maxAge, "/", "", s.config.CookieSecure, true)
	c.SetCookie(csrfCookieName, session.CSRFToken, maxAge, "/", "", s.config.CookieSecure, false)
}

func (s *Server) clearSessionCookies(c *gin.Context) {
	c.SetCookie(sessionCookieName, "", -1, "/", "", s.config.CookieSecure, true)
	c.SetCookie(csrfCookieName, "", -1, "/", "", s.config.CookieSecure, false)
}

// handleCSRFCookie is the handshake a cookie-based client runs before its
// first state-changing request, and again after any 419.
func (s *Server) handleCSRFCookie(c *gin.Context) {
	session, err := s.auth.EnsureSession(c.Request.Context(), sessionID(c))
	if err != nil {
		s.abortWithError(c, err)
		return
	}
	s.setSessionCookies(c, session)
	c.Status(http.StatusNoContent)
}

type registerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (s *Server) handleRegister(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Malformed request body."})
		return
	}

	if err := s.auth.Register(c.Request.Context(), req.Name, req.Email, req.Password, sessionID(c)); err != nil {
		s.abortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"message": "Registered."})
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (s *Server) handleLogin(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Malformed request body."})
		return
	}

	token, session, err := s.auth.Login(c.Request.Context(), req.Email, req.Password, sessionID(c))
	if err != nil {
		s.abortWithError(c, err)
		return
	}

	s.setSessionCookies(c, session)
	c.JSON(http.StatusOK, gin.H{"token": token})
}

func (s *Server) handleLogout(c *gin.Context) {
	identity := currentIdentity(c)

	if err := s.auth.Logout(c.Request.Context(), identity); err != nil {
		s.abortWithError(c, err)
		return
	}
	if identity.Via == services.ViaSession {
		s.clearSessionCookies(c)
	}

	c.JSON(http.StatusOK, gin.H{"message": "Logged out."})
}

func (s *Server) handleMe(c *gin.Context) {
	c.JSON(http.StatusOK, currentIdentity(c).User)
}

func (s *Server) handleListTasks(c *gin.Context) {
	identity := currentIdentity(c)

	limit, _ := strconv.Atoi(c.Query("limit"))
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))

	var statuses []models.Status
	for _, raw := range c.QueryArray("status") {
		statuses = append(statuses, models.Status(raw))
	}

	result, err := s.tasks.List(c.Request.Context(), identity.User.ID, services.ListQuery{
		Term:     c.Query("query"),
		Statuses: statuses,
		Limit:    limit,
		Page:     page,
	})
	if err != nil {
		s.abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data": result.Items,
		"meta": gin.H{
			"current_page": result.CurrentPage,
			"last_page":    result.LastPage,
			"total":        result.Total,
		},
	})
}

type createTaskRequest struct {
	Title       string             `json:"title"`
	Description string             `json:"description"`
	Deadline    *time.Time         `json:"deadline"`
	Todos       []models.TodoInput `json:"todos"`
}

func (s *Server) handleCreateTask(c *gin.Context) {
	var req createTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Malformed request body."})
		return
	}

	task, err := s.tasks.Create(c.Request.Context(), currentIdentity(c).User.ID, services.CreateTaskInput{
		Title:       req.Title,
		Description: req.Description,
		Deadline:    req.Deadline,
		Todos:       req.Todos,
	})
	if err != nil {
		s.abortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, task)
}

func (s *Server) handleGetTask(c *gin.Context) {
	task, err := s.tasks.Get(c.Request.Context(), currentIdentity(c).User.ID, c.Param("id"))
	if err != nil {
		s.abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, task)
}

func (s *Server) handleReconcileTask(c *gin.Context) {
	var patch models.TaskPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Malformed request body."})
		return
	}

	task, err := s.tasks.Reconcile(c.Request.Context(), currentIdentity(c).User.ID, c.Param("id"), patch)
	if err != nil {
		s.abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, task)
}

func (s *Server) handleDeleteTask(c *gin.Context) {
	if err := s.tasks.Delete(c.Request.Context(), currentIdentity(c).User.ID, c.Param("id")); err != nil {
		s.abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Deleted."})
}

type statusRequest struct {
	Status string `json:"status"`
}

func (s *Server) handleSetStatus(c *gin.Context) {
	var req statusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Malformed request body."})
		return
	}

	task, err := s.tasks.SetStatus(c.Request.Context(), c.Param("id"), models.Status(req.Status))
	if err != nil {
		s.abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, task)
}

type todoDoneRequest struct {
	Done bool `json:"done"`
}

func (s *Server) handleSetTodoDone(c *gin.Context) {
	var req todoDoneRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Malformed request body."})
		return
	}

	todo, err := s.tasks.SetTodoDone(c.Request.Context(), currentIdentity(c).User.ID, c.Param("id"), req.Done)
	if err != nil {
		s.abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, todo)
}

type createAttachmentRequest struct {
	FileName string `json:"file_name"`
}

func (s *Server) handleCreateAttachment(c *gin.Context) {
	var req createAttachmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Malformed request body."})
		return
	}

	att, uploadURL, err := s.attachments.CreateUpload(c.Request.Context(), currentIdentity(c).User.ID, c.Param("id"), req.FileName)
	if err != nil {
		s.abortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"attachment": att, "upload_url": uploadURL})
}

func (s *Server) handleAttachmentURL(c *gin.Context) {
	url, err := s.attachments.GetDownloadURL(c.Request.Context(), currentIdentity(c).User.ID, c.Param("id"))
	if err != nil {
		s.abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"url": url})
}
