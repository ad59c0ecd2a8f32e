package controllers

import (
	"tutortrack_go/services"

	"github.com/gofiber/fiber/v2"
)

// serviceError maps a typed service error onto an HTTP response. Overlap and
// stale-balance conflicts are 409 so a caller knows to re-fetch and retry.
func serviceError(c *fiber.Ctx, err error) error {
	status := fiber.StatusInternalServerError
	switch services.KindOf(err) {
	case services.KindInvalidRange, services.KindInsufficientHours:
		status = fiber.StatusBadRequest
	case services.KindOverlap, services.KindConflict:
		status = fiber.StatusConflict
	case services.KindNotFound:
		status = fiber.StatusNotFound
	case services.KindUnauthenticated:
		status = fiber.StatusUnauthorized
	case services.KindForbidden:
		status = fiber.StatusForbidden
	}
	return c.Status(status).JSON(fiber.Map{"error": err.Error()})
}
