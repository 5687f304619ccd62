package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// ListStructures returns the placement registry snapshot.
func (s *Server) ListStructures(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"data": s.registry.Snapshot()})
}
