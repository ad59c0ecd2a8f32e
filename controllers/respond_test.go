package controllers

import (
	"testing"

	"tutortrack_go/services"

	"github.com/gofiber/fiber/v2"
	"github.com/valyala/fasthttp"
)

func TestServiceErrorStatusMapping(t *testing.T) {
	app := fiber.New()

	tests := []struct {
		name   string
		kind   services.Kind
		status int
	}{
		{name: "invalid range", kind: services.KindInvalidRange, status: fiber.StatusBadRequest},
		{name: "insufficient hours", kind: services.KindInsufficientHours, status: fiber.StatusBadRequest},
		{name: "overlap", kind: services.KindOverlap, status: fiber.StatusConflict},
		{name: "conflict", kind: services.KindConflict, status: fiber.StatusConflict},
		{name: "not found", kind: services.KindNotFound, status: fiber.StatusNotFound},
		{name: "unauthenticated", kind: services.KindUnauthenticated, status: fiber.StatusUnauthorized},
		{name: "another teacher's lesson is forbidden", kind: services.KindForbidden, status: fiber.StatusForbidden},
		{name: "unexpected", kind: services.KindUnexpected, status: fiber.StatusInternalServerError},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			ctx := app.AcquireCtx(&fasthttp.RequestCtx{})
			defer app.ReleaseCtx(ctx)

			if err := serviceError(ctx, services.E(tc.kind, "boom")); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got := ctx.Response().StatusCode(); got != tc.status {
				t.Fatalf("expected status %d, got %d", tc.status, got)
			}
		})
	}
}
