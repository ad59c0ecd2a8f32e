package controllers

import (
	"context"
	"time"

	"tutortrack_go/database"

	"github.com/gofiber/fiber/v2"
)

type HealthController struct{}

func NewHealthController() *HealthController {
	return &HealthController{}
}

// HealthCheck reports process liveness plus the state of the database and
// Redis connections.
func (hc *HealthController) HealthCheck(c *fiber.Ctx) error {
	status := "healthy"
	checks := fiber.Map{}

	sqlDB, err := database.DB.DB()
	if err != nil || sqlDB.Ping() != nil {
		status = "degraded"
		checks["database"] = "down"
	} else {
		checks["database"] = "up"
	}

	rc := database.GetRedisClient()
	if rc == nil {
		checks["redis"] = "disabled"
	} else {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := rc.Ping(ctx).Err(); err != nil {
			status = "degraded"
			checks["redis"] = "down"
		} else {
			checks["redis"] = "up"
		}
	}

	code := fiber.StatusOK
	if status != "healthy" {
		code = fiber.StatusServiceUnavailable
	}

	return c.Status(code).JSON(fiber.Map{
		"status":    status,
		"checks":    checks,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}
