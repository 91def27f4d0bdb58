package endpoint

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/kbukum/relaygate/version"
)

var startTime = time.Now()

// Info reports the service banner: name, build version, uptime and the
// endpoint list supplied by the caller.
func Info(serviceName, description string, endpoints func() []string) gin.HandlerFunc {
	return func(c *gin.Context) {
		v := version.GetVersionInfo()
		body := gin.H{
			"service":     serviceName,
			"status":      "UP",
			"description": description,
			"version":     v.Version,
			"git_commit":  v.GitCommit,
			"uptime":      time.Since(startTime).Round(time.Second).String(),
		}
		if endpoints != nil {
			body["endpoints"] = endpoints()
		}
		c.JSON(http.StatusOK, body)
	}
}
