package router

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/cuongbtq/mission-control/internal/control/handler"
)

// SetupRouter configures and returns the Gin router with all routes
func SetupRouter(deps *handler.Dependencies, allowOrigin string) *gin.Engine {
	r := gin.New()

	r.Use(gin.Recovery())
	r.Use(LoggerMiddleware(deps.Logger))
	r.Use(CORSMiddleware(allowOrigin))

	r.GET("/health", func(c *gin.Context) {
		body := gin.H{
			"status":  "healthy",
			"service": deps.ServiceName,
		}
		if deps.Health != nil {
			if err := deps.Health.HealthCheck(c.Request.Context()); err != nil {
				deps.Logger.Error("Health check failed", slog.String("error", err.Error()))
				body["status"] = "unhealthy"
				body["database"] = "unhealthy"
				c.JSON(http.StatusServiceUnavailable, body)
				return
			}
			body["database"] = "healthy"
		}
		c.JSON(http.StatusOK, body)
	})

	missionHandler := handler.NewMissionHandler(deps)

	v1 := r.Group("/api/v1")
	{
		missions := v1.Group("/missions")
		{
			// POST /api/v1/missions - Upload a source file and start a mission
			missions.POST("", missionHandler.SubmitMission)

			// GET /api/v1/missions - List archived missions
			missions.GET("", missionHandler.ListMissions)

			// GET /api/v1/missions/current - Snapshot of the active mission
			missions.GET("/current", missionHandler.CurrentMission)

			// GET /api/v1/missions/current/events - Server-Sent Events stream
			missions.GET("/current/events", missionHandler.StreamMission)

			// DELETE /api/v1/missions/current - Stop polling the active mission
			missions.DELETE("/current", missionHandler.TeardownMission)

			// GET /api/v1/missions/:job_id - Archived mission details
			missions.GET("/:job_id", missionHandler.GetMission)
		}
	}

	return r
}
