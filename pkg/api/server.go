// Package api is the dashboard boundary: a JSON API over the sync core plus
// a WebSocket channel relaying every core event to connected clients. The
// browser UI renders from these responses; rendering itself lives elsewhere.
package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/CarlosLisboa01/Novo-Task-sub000/pkg/app"
	"github.com/CarlosLisboa01/Novo-Task-sub000/pkg/auth"
	"github.com/CarlosLisboa01/Novo-Task-sub000/pkg/model"
)

type Server struct {
	app     *app.App
	session *auth.Session
	hub     *Hub

	// requireAuth is false in local-only mode, where there is no remote
	// account to gate on.
	requireAuth bool
}

func NewServer(a *app.App, session *auth.Session, requireAuth bool) *Server {
	s := &Server{
		app:         a,
		session:     session,
		hub:         NewHub(),
		requireAuth: requireAuth,
	}
	a.Bus.Subscribe(s.hub.Broadcast)
	return s
}

func (s *Server) Router() *gin.Engine {
	router := gin.Default()
	router.Use(cors.Default())

	router.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "TaskPRO api is running!"})
	})

	router.POST("/api/auth/login", s.login)
	router.POST("/api/auth/register", s.register)
	router.POST("/api/auth/logout", s.logout)

	api := router.Group("/api", s.authRequired)
	{
		api.GET("/profile", s.profile)
		api.PUT("/profile", s.updateProfile)

		api.GET("/tasks", s.listTasks)
		api.POST("/tasks", s.createTask)
		api.PUT("/tasks/:id", s.updateTask)
		api.DELETE("/tasks/:id", s.deleteTask)
		api.POST("/tasks/:id/status", s.setStatus)

		api.GET("/kpis", s.kpis)
		api.GET("/series", s.series)
		api.GET("/calendar", s.calendar)

		api.POST("/sync", s.forceSync)
		api.POST("/visibility", s.visibility)
		api.POST("/online", s.online)
	}

	router.GET("/ws", s.hub.Handle)
	return router
}

func (s *Server) authRequired(c *gin.Context) {
	if s.requireAuth && !s.session.IsAuthenticated() {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "not authenticated"})
		return
	}
	c.Next()
}

type credentialsRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
	Name     string `json:"name"`
}

func (s *Server) login(c *gin.Context) {
	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := s.session.Login(c.Request.Context(), req.Email, req.Password); err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}
	// A fresh session means a stale local view; pull immediately. The sync
	// outlives this request, so it must not run on the request context.
	go s.app.Syncer.SyncNow(context.Background(), true)
	c.JSON(http.StatusOK, gin.H{"userId": s.session.UserID()})
}

func (s *Server) register(c *gin.Context) {
	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := s.session.Register(c.Request.Context(), req.Email, req.Password, req.Name); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"userId": s.session.UserID()})
}

func (s *Server) logout(c *gin.Context) {
	if err := s.session.Logout(c.Request.Context()); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "logged out"})
}

func (s *Server) profile(c *gin.Context) {
	p, err := s.session.Profile(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, p)
}

func (s *Server) updateProfile(c *gin.Context) {
	var metadata map[string]any
	if err := c.ShouldBindJSON(&metadata); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := s.session.UpdateProfile(c.Request.Context(), metadata); err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "profile updated"})
}

type taskRequest struct {
	Text      string    `json:"text" binding:"required"`
	Category  string    `json:"category" binding:"required"`
	StartDate time.Time `json:"startDate" binding:"required"`
	EndDate   time.Time `json:"endDate" binding:"required"`
	Pinned    bool      `json:"pinned"`
}

func (r taskRequest) input() app.TaskInput {
	return app.TaskInput{
		Text:      r.Text,
		Category:  model.Category(r.Category),
		StartDate: r.StartDate,
		EndDate:   r.EndDate,
		Pinned:    r.Pinned,
	}
}

func (s *Server) listTasks(c *gin.Context) {
	collection := s.app.Store.ByCategory()
	for _, cat := range model.Categories {
		model.SortForDisplay(collection[cat])
	}
	c.JSON(http.StatusOK, collection)
}

func (s *Server) createTask(c *gin.Context) {
	var req taskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	task, err := s.app.AddTask(c.Request.Context(), req.input())
	if err != nil {
		writeAppError(c, err)
		return
	}
	c.JSON(http.StatusCreated, task)
}

func (s *Server) updateTask(c *gin.Context) {
	var req taskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	task, err := s.app.UpdateTask(c.Request.Context(), c.Param("id"), req.input())
	if err != nil {
		writeAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, task)
}

func (s *Server) deleteTask(c *gin.Context) {
	if err := s.app.DeleteTask(c.Request.Context(), c.Param("id")); err != nil {
		writeAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "task deleted"})
}

type statusRequest struct {
	Status string `json:"status" binding:"required"`
}

func (s *Server) setStatus(c *gin.Context) {
	var req statusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	task, err := s.app.SetStatus(c.Request.Context(), c.Param("id"), model.Status(req.Status))
	if err != nil {
		writeAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, task)
}

func (s *Server) kpis(c *gin.Context) {
	force := c.Query("force") == "true"
	c.JSON(http.StatusOK, s.app.KPIs(force))
}

func (s *Server) series(c *gin.Context) {
	c.JSON(http.StatusOK, s.app.DailySeries())
}

func (s *Server) calendar(c *gin.Context) {
	idx, err := s.app.Adapter.ReadDayIndex()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if day := c.Query("date"); day != "" {
		c.JSON(http.StatusOK, gin.H{"date": day, "tasks": idx[day]})
		return
	}
	c.JSON(http.StatusOK, idx)
}

func (s *Server) forceSync(c *gin.Context) {
	if err := s.app.Syncer.SyncNow(c.Request.Context(), true); err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "sync completed"})
}

type visibilityRequest struct {
	Visible *bool `json:"visible" binding:"required"`
}

func (s *Server) visibility(c *gin.Context) {
	var req visibilityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	s.app.Syncer.SetActive(*req.Visible)
	c.JSON(http.StatusOK, gin.H{"visible": *req.Visible})
}

func (s *Server) online(c *gin.Context) {
	// The sync runs after this handler returns; the request context would be
	// canceled under it.
	s.app.Syncer.NotifyOnline(context.Background())
	c.JSON(http.StatusOK, gin.H{"message": "sync scheduled"})
}

func writeAppError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, model.ErrInvalidTask):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, app.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}
