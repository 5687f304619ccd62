package server

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/orbitalworks/foundry/internal/accountctx"
)

const (
	headerRequestID = "X-Request-ID"

	contextAccountIDKey = "account_id"
)

func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := strings.TrimSpace(c.GetHeader(headerRequestID))
		if id == "" {
			id = uuid.NewString()
		}
		c.Header(headerRequestID, id)
		c.Next()
	}
}

// AuthRequired resolves the bearer credential through the auth gateway and
// attaches the account identity to the request context.
func (s *Server) AuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		credential := bearerToken(c.GetHeader("Authorization"))
		identity, err := s.authSvc.Authorize(c.Request.Context(), credential)
		if err != nil {
			AbortWithError(c, err)
			return
		}

		c.Set(contextAccountIDKey, identity.AccountID)
		ctx := accountctx.WithIdentity(c.Request.Context(), identity)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

func bearerToken(header string) string {
	header = strings.TrimSpace(header)
	if rest, ok := strings.CutPrefix(header, "Bearer "); ok {
		return strings.TrimSpace(rest)
	}
	return header
}
