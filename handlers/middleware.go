package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// Identity headers set by the upstream gateway
const (
	HeaderUserID   = "X-User-ID"
	HeaderUserRole = "X-User-Role"

	RoleAdmin = "admin"

	ctxVoterID = "voter_id"
	ctxRole    = "role"
)

// Identity copies the gateway identity headers into the request context
func Identity() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(ctxVoterID, strings.TrimSpace(c.GetHeader(HeaderUserID)))
		c.Set(ctxRole, strings.ToLower(strings.TrimSpace(c.GetHeader(HeaderUserRole))))
		c.Next()
	}
}

// RequireVoter rejects requests without a caller id
func RequireVoter() gin.HandlerFunc {
	return func(c *gin.Context) {
		if voterID(c) == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing " + HeaderUserID + " header"})
			return
		}
		c.Next()
	}
}

// RequireAdmin rejects callers whose role is not admin
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		if voterID(c) == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing " + HeaderUserID + " header"})
			return
		}
		if c.GetString(ctxRole) != RoleAdmin {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "admin role required"})
			return
		}
		c.Next()
	}
}

func voterID(c *gin.Context) string {
	if id := c.GetString(ctxVoterID); id != "" {
		return id
	}
	return strings.TrimSpace(c.GetHeader(HeaderUserID))
}
