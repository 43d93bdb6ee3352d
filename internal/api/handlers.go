package api

import (
	"net/http"
	"strconv"

	"claimsim/app"
	"claimsim/domain/core"
	"claimsim/internal/errors"
	"claimsim/internal/logger"

	"github.com/gin-gonic/gin"
)

// CreateRunRequest overrides the server's default run settings. Zero
// values keep the defaults.
type CreateRunRequest struct {
	Trials         int     `json:"trials" binding:"omitempty,min=1,max=1000000"`
	Seed           *uint64 `json:"seed"`
	Workers        int     `json:"workers" binding:"omitempty,min=0,max=1024"`
	DevelopmentAge int     `json:"development_age" binding:"omitempty,min=1"`
	PredictionDate string  `json:"prediction_date"`
}

func (r CreateRunRequest) apply(base app.RunRequest) (app.RunRequest, error) {
	out := base
	if r.Trials > 0 {
		out.Simulation.Trials = r.Trials
	}
	if r.Seed != nil {
		out.Simulation.Seed = *r.Seed
	}
	if r.Workers > 0 {
		out.Simulation.Workers = r.Workers
	}
	if r.DevelopmentAge > 0 {
		out.Window.DevelopmentAge = r.DevelopmentAge
	}
	if r.PredictionDate != "" {
		d, err := core.ParseEvalDate(r.PredictionDate)
		if err != nil {
			return out, errors.InvalidInput(err.Error())
		}
		out.Window.PredictionDate = d
	}
	return out, nil
}

func respondError(c *gin.Context, err error) {
	status := errors.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		logger.FromContext(c.Request.Context()).Errorw("[API] request failed", "path", c.FullPath(), "error", err)
	}
	c.JSON(status, gin.H{"error": err.Error(), "code": errors.Classify(err)})
}

// Health reports liveness
func (s *Server) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// CreateRun runs the pipeline synchronously and returns the run
func (s *Server) CreateRun(c *gin.Context) {
	var body CreateRunRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&body); err != nil {
			respondError(c, errors.InvalidInput(err.Error()))
			return
		}
	}
	req, err := body.apply(s.defaults)
	if err != nil {
		respondError(c, err)
		return
	}

	run, err := s.runner.Run(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	if s.OnRun != nil {
		s.OnRun(run)
	}
	c.JSON(http.StatusCreated, run)
}

// ListRuns returns saved run summaries, newest first
func (s *Server) ListRuns(c *gin.Context) {
	limit := 20
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			respondError(c, errors.InvalidInput("limit must be a non-negative integer"))
			return
		}
		limit = n
	}
	runs, err := s.runs.ListRuns(c.Request.Context(), limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"runs": runs})
}

// GetRun returns one run summary
func (s *Server) GetRun(c *gin.Context) {
	id, err := core.ParseRunID(c.Param("id"))
	if err != nil {
		respondError(c, errors.InvalidInput(err.Error()))
		return
	}
	sum, err := s.runs.GetRun(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, sum)
}

// GetClaim returns one claim's summary within a run
func (s *Server) GetClaim(c *gin.Context) {
	id, err := core.ParseRunID(c.Param("id"))
	if err != nil {
		respondError(c, errors.InvalidInput(err.Error()))
		return
	}
	sum, err := s.runs.GetRun(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	claimID := core.ClaimID(c.Param("claim"))
	cs, ok := sum.Claim(claimID)
	if !ok {
		respondError(c, core.NewNotFoundError("claim", claimID.String()))
		return
	}
	c.JSON(http.StatusOK, cs)
}
