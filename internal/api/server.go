// Package api provides a self-contained CareerHelper gateway server for
// local development and integration tests.
//
// It exposes the same REST surface the hosted deployment does. Storage is
// in-memory maps keyed like the hosted tables; durable server-side
// persistence is intentionally out of scope here.
package api

import (
	"net/http"
	"sort"
	"sync"

	"github.com/gin-gonic/gin"

	"github.com/jackyxhb/CareerHelper/internal/logging"
	"github.com/jackyxhb/CareerHelper/internal/models"
	"github.com/jackyxhb/CareerHelper/internal/uuid"
)

// Server implements the CareerHelper REST API over in-memory tables.
type Server struct {
	mu           sync.RWMutex
	jobs         map[string]*models.Job
	experiences  map[string]map[string]*models.Experience  // userId -> experienceId
	applications map[string]map[string]*models.Application // userId -> applicationId

	log    *logging.Logger
	engine *gin.Engine
}

// NewServer creates a gateway server with empty tables.
func NewServer() *Server {
	s := &Server{
		jobs:         make(map[string]*models.Job),
		experiences:  make(map[string]map[string]*models.Experience),
		applications: make(map[string]map[string]*models.Application),
		log:          logging.Get().Named("api"),
	}

	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())

	engine.GET("/health", s.handleHealth)
	engine.GET("/jobs", s.handleListJobs)
	engine.POST("/jobs", s.handleCreateJob)
	engine.GET("/experiences/:userId", s.handleListExperiences)
	engine.POST("/experiences", s.handleCreateExperience)
	engine.GET("/applications/:userId", s.handleListApplications)
	engine.POST("/applications", s.handleCreateApplication)

	s.engine = engine
	return s
}

// Handler returns the HTTP handler, for mounting under httptest or a custom
// server.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run starts the server on addr and blocks.
func (s *Server) Run(addr string) error {
	s.log.Info("gateway server listening", map[string]interface{}{"addr": addr})
	return s.engine.Run(addr)
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) handleListJobs(c *gin.Context) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	jobs := make([]*models.Job, 0, len(s.jobs))
	for _, job := range s.jobs {
		jobs = append(jobs, job)
	}
	sort.Slice(jobs, func(i, j int) bool {
		if jobs[i].PostedAt != jobs[j].PostedAt {
			return jobs[i].PostedAt > jobs[j].PostedAt
		}
		return jobs[i].JobID < jobs[j].JobID
	})
	c.JSON(http.StatusOK, jobs)
}

type createJobRequest struct {
	JobID       string `json:"jobId"`
	Title       string `json:"title"`
	Company     string `json:"company"`
	Location    string `json:"location"`
	Description string `json:"description"`
	Salary      *int   `json:"salary"`
	PostedAt    string `json:"postedAt"`
}

func (s *Server) handleCreateJob(c *gin.Context) {
	var req createJobRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid JSON body"})
		return
	}
	if req.Title == "" || req.Company == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "title and company are required"})
		return
	}

	id := req.JobID
	if id == "" {
		id = uuid.New()
	}

	s.mu.Lock()
	s.jobs[id] = &models.Job{
		JobID:       models.UUID(id),
		Title:       req.Title,
		Company:     req.Company,
		Location:    req.Location,
		Description: req.Description,
		Salary:      req.Salary,
		PostedAt:    req.PostedAt,
	}
	s.mu.Unlock()

	s.log.Info("job created", map[string]interface{}{"jobId": id})
	c.JSON(http.StatusCreated, gin.H{"jobId": id, "message": "Job created successfully"})
}

// DeleteJob removes a job from the catalog. Test and tooling hook for
// simulating upstream delisting.
func (s *Server) DeleteJob(jobID string) {
	s.mu.Lock()
	delete(s.jobs, jobID)
	s.mu.Unlock()
}

func (s *Server) handleListExperiences(c *gin.Context) {
	userID := c.Param("userId")

	s.mu.RLock()
	defer s.mu.RUnlock()

	experiences := make([]*models.Experience, 0, len(s.experiences[userID]))
	for _, exp := range s.experiences[userID] {
		experiences = append(experiences, exp)
	}
	sort.Slice(experiences, func(i, j int) bool {
		return experiences[i].ExperienceID < experiences[j].ExperienceID
	})
	c.JSON(http.StatusOK, experiences)
}

type createExperienceRequest struct {
	ExperienceID string `json:"experienceId"`
	UserID       string `json:"userId"`
	Title        string `json:"title"`
	Company      string `json:"company"`
	StartDate    string `json:"startDate"`
	EndDate      string `json:"endDate"`
	Description  string `json:"description"`
}

func (s *Server) handleCreateExperience(c *gin.Context) {
	var req createExperienceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid JSON body"})
		return
	}
	if req.UserID == "" || req.Title == "" || req.Company == "" || req.StartDate == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "userId, title, company and startDate are required"})
		return
	}

	// The client-assigned key is authoritative; a repeated create for the
	// same key overwrites in place and is reported as satisfied.
	id := req.ExperienceID
	if id == "" {
		id = uuid.New()
	}

	s.mu.Lock()
	if s.experiences[req.UserID] == nil {
		s.experiences[req.UserID] = make(map[string]*models.Experience)
	}
	s.experiences[req.UserID][id] = &models.Experience{
		ExperienceID: models.UUID(id),
		UserID:       req.UserID,
		Title:        req.Title,
		Company:      req.Company,
		StartDate:    req.StartDate,
		EndDate:      req.EndDate,
		Description:  req.Description,
	}
	s.mu.Unlock()

	s.log.Info("experience created", map[string]interface{}{
		"experienceId": id,
		"userId":       req.UserID,
	})
	c.JSON(http.StatusCreated, gin.H{"experienceId": id, "message": "Experience created successfully"})
}

func (s *Server) handleListApplications(c *gin.Context) {
	userID := c.Param("userId")

	s.mu.RLock()
	defer s.mu.RUnlock()

	applications := make([]*models.Application, 0, len(s.applications[userID]))
	for _, app := range s.applications[userID] {
		applications = append(applications, app)
	}
	sort.Slice(applications, func(i, j int) bool {
		return applications[i].ApplicationID < applications[j].ApplicationID
	})
	c.JSON(http.StatusOK, applications)
}

type createApplicationRequest struct {
	ApplicationID string `json:"applicationId"`
	UserID        string `json:"userId"`
	JobID         string `json:"jobId"`
	Status        string `json:"status"`
	AppliedAt     string `json:"appliedAt"`
	Notes         string `json:"notes"`
	JobTitle      string `json:"jobTitle"`
	JobCompany    string `json:"jobCompany"`
	JobLocation   string `json:"jobLocation"`
	JobSource     string `json:"jobSource"`
}

func (s *Server) handleCreateApplication(c *gin.Context) {
	var req createApplicationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid JSON body"})
		return
	}
	if req.UserID == "" || req.JobID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "userId and jobId are required"})
		return
	}
	status, err := models.ParseApplicationStatus(req.Status)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	id := req.ApplicationID
	if id == "" {
		id = uuid.New()
	}

	s.mu.Lock()
	if s.applications[req.UserID] == nil {
		s.applications[req.UserID] = make(map[string]*models.Application)
	}
	s.applications[req.UserID][id] = &models.Application{
		ApplicationID: models.UUID(id),
		UserID:        req.UserID,
		JobID:         req.JobID,
		Status:        status,
		AppliedAt:     req.AppliedAt,
		Notes:         req.Notes,
		JobTitle:      req.JobTitle,
		JobCompany:    req.JobCompany,
		JobLocation:   req.JobLocation,
		JobSource:     req.JobSource,
	}
	s.mu.Unlock()

	s.log.Info("application created", map[string]interface{}{
		"applicationId": id,
		"userId":        req.UserID,
	})
	c.JSON(http.StatusCreated, gin.H{"applicationId": id, "message": "Application created successfully"})
}
