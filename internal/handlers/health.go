package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// HealthCheck reports that the process is up. Liveness only; readiness
// is what /status is for.
func HealthCheck(service, version string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"service": service,
			"version": version,
		})
	}
}
