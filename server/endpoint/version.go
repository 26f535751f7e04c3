package endpoint

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/kbukum/audiolens/version"
)

var startTime = time.Now()

// Root greets API clients with the service name and uptime.
func Root(serviceName string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message": serviceName + " API is running",
			"version": version.Get().Short(),
			"uptime":  time.Since(startTime).Round(time.Second).String(),
		})
	}
}

// Version reports the build identity.
func Version() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, version.Get())
	}
}
