package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/orbitalworks/foundry/internal/accountctx"
	"github.com/orbitalworks/foundry/internal/authgw"
	facilitydomain "github.com/orbitalworks/foundry/internal/facility/domain"
)

type buildFacilityRequest struct {
	BlueprintID string `json:"blueprint"`
	AccountID   string `json:"account"`
}

func (s *Server) BuildFacility(c *gin.Context) {
	identity, ok := accountctx.FromContext(c.Request.Context())
	if !ok {
		AbortWithError(c, authgw.ErrUnauthorized)
		return
	}

	id := strings.TrimSpace(c.Param("id"))
	if id == "" {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	var req buildFacilityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	// Only privileged callers may build facilities for other accounts.
	accountID := strings.TrimSpace(req.AccountID)
	if accountID == "" {
		accountID = identity.AccountID
	}
	if accountID != identity.AccountID && !identity.Privileged {
		AbortWithError(c, facilitydomain.ErrNotOwner)
		return
	}

	facility, err := s.facilitySvc.Build(c.Request.Context(), facilitydomain.BuildRequest{
		ID:          id,
		BlueprintID: strings.TrimSpace(req.BlueprintID),
		AccountID:   accountID,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": facility.ToResponse()})
}

func (s *Server) DestroyFacility(c *gin.Context) {
	identity, ok := accountctx.FromContext(c.Request.Context())
	if !ok {
		AbortWithError(c, authgw.ErrUnauthorized)
		return
	}

	id := strings.TrimSpace(c.Param("id"))
	if id == "" {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	facility, err := s.facilitySvc.Get(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if facility.AccountID != identity.AccountID && !identity.Privileged {
		AbortWithError(c, facilitydomain.ErrNotOwner)
		return
	}

	if err := s.facilitySvc.Destroy(c.Request.Context(), id); err != nil {
		AbortWithError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (s *Server) ListFacilities(c *gin.Context) {
	identity, ok := accountctx.FromContext(c.Request.Context())
	if !ok {
		AbortWithError(c, authgw.ErrUnauthorized)
		return
	}

	facilities, err := s.facilitySvc.List(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	all := c.Query("all") == "true" && identity.Privileged
	out := make([]facilitydomain.Response, 0, len(facilities))
	for i := range facilities {
		if !all && facilities[i].AccountID != identity.AccountID {
			continue
		}
		out = append(out, facilities[i].ToResponse())
	}
	c.JSON(http.StatusOK, gin.H{"data": out})
}
