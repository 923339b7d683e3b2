package api

import (
	"net/http"
	"strconv"
	"time"

	"marketplace-service/internal/identity"
	"marketplace-service/internal/models"
	"marketplace-service/internal/util"

	"github.com/gin-gonic/gin"
)

const identityContextKey = "actingIdentity"

// identityMiddleware resolves the pre-verified identity headers into an
// ActingIdentity. X-User-ID names the effective user; X-Acting-Admin-ID,
// when present, names the admin behind an impersonating session. Both are
// loaded fresh from the store so bans and role changes apply immediately.
func (h *Handler) identityMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, err := strconv.ParseInt(c.GetHeader("X-User-ID"), 10, 64)
		if err != nil || userID <= 0 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": CodeInvalidInput})
			return
		}

		user, err := h.store.GetUserByID(c.Request.Context(), userID)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": CodeNotFound})
			return
		}

		ident := identity.ActingIdentity{User: user}

		if adminHeader := c.GetHeader("X-Acting-Admin-ID"); adminHeader != "" {
			adminID, err := strconv.ParseInt(adminHeader, 10, 64)
			if err != nil || adminID <= 0 {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": CodeInvalidInput})
				return
			}
			admin, err := h.store.GetUserByID(c.Request.Context(), adminID)
			if err != nil || admin.Role != models.RoleAdmin {
				c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": CodeAdminRequired})
				return
			}
			ident.ActualAdminID = admin.ID
			ident.IsImpersonating = admin.ID != user.ID
		} else if user.Role == models.RoleAdmin {
			ident.ActualAdminID = user.ID
		}

		c.Set(identityContextKey, ident)
		c.Next()
	}
}

func getIdentity(c *gin.Context) identity.ActingIdentity {
	ident, _ := c.Get(identityContextKey)
	acting, _ := ident.(identity.ActingIdentity)
	return acting
}

// prometheusMiddleware collects HTTP metrics
func prometheusMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Writer.Status())

		util.HTTPRequestDuration.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Observe(duration)

		util.HTTPRequestsTotal.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Inc()
	}
}
