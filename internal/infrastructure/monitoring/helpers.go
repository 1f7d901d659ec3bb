package monitoring

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// GinHandler serves the Prometheus exposition format from a Gin route.
func (m *Metrics) GinHandler() gin.HandlerFunc {
	return gin.WrapH(m.Handler())
}

// StatusHandler serves the running totals as JSON.
func (m *Metrics) StatusHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, m.Snapshot())
	}
}
