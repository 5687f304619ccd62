package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	jobdomain "github.com/orbitalworks/foundry/internal/job/domain"
)

type submitJobRequest struct {
	FacilityID string `json:"facility"`
	Action     string `json:"action"`
	Target     string `json:"target"`
	Quantity   int64  `json:"quantity"`
}

func (s *Server) SubmitJob(c *gin.Context) {
	var req submitJobRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	job, err := s.jobSvc.Submit(c.Request.Context(), jobdomain.SubmitRequest{
		FacilityID: strings.TrimSpace(req.FacilityID),
		Action:     strings.TrimSpace(req.Action),
		Target:     strings.TrimSpace(req.Target),
		Quantity:   req.Quantity,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": job.ToResponse()})
}

func (s *Server) ListJobs(c *gin.Context) {
	all := c.Query("all") == "true"

	jobs, err := s.jobSvc.List(c.Request.Context(), all)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	out := make([]jobdomain.Response, 0, len(jobs))
	for i := range jobs {
		out = append(out, jobs[i].ToResponse())
	}
	c.JSON(http.StatusOK, gin.H{"data": out})
}

func (s *Server) GetJob(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))
	if id == "" {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	job, err := s.jobSvc.Get(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": job.ToResponse()})
}

// CancelJob always fails; queued resources are never refunded, so the route
// behaves as if it did not exist.
func (s *Server) CancelJob(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))
	if id == "" {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	AbortWithError(c, s.jobSvc.Cancel(c.Request.Context(), id))
}
