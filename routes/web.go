package routes

import (
	"net/http"

	"github.com/address-validator/app/controllers"
	"github.com/gin-gonic/gin"
)

// SetupWebRoutes thiết lập web routes
func SetupWebRoutes(router *gin.Engine) {
	web := router.Group("/")
	{
		web.GET("/", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{
				"message": "Swiss Address Validator",
				"version": controllers.Version,
				"docs":    "/docs",
			})
		})

		web.GET("/docs", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{
				"api": "Swiss Address Validator API v1",
				"endpoints": map[string]string{
					"validate":    "POST /v1/addresses/validate",
					"batch":       "POST /v1/addresses/batch",
					"jobs":        "POST /v1/addresses/jobs",
					"job_status":  "GET /v1/addresses/jobs/:jobID/status",
					"job_results": "GET /v1/addresses/jobs/:jobID/results?format=ndjson&gzip=1",
					"health":      "GET /health",
					"metrics":     "GET /metrics",
				},
			})
		})
	}
}
