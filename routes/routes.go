package routes

import (
	"tutortrack_go/controllers"
	"tutortrack_go/middleware"
	"tutortrack_go/services"
	"tutortrack_go/services/feed"
	"tutortrack_go/services/websocket"

	"github.com/gofiber/fiber/v2"
	fiberws "github.com/gofiber/websocket/v2"
)

// Deps carries the long-lived services the controllers are wired with.
type Deps struct {
	Sessions *services.SessionManager
	Transfer *services.BalanceTransfer
	Feed     feed.Publisher
	Hub      *websocket.Hub
}

func SetupRoutes(app *fiber.App, deps Deps) {
	authController := controllers.NewAuthController(deps.Sessions)
	assignmentController := controllers.NewAssignmentController(deps.Sessions, deps.Feed)
	lessonController := controllers.NewLessonController(deps.Sessions, deps.Transfer)
	reportController := controllers.NewReportController(deps.Sessions, lessonController)
	notificationController := controllers.NewNotificationController()
	wsController := controllers.NewWebSocketController(deps.Hub, deps.Sessions)
	healthController := controllers.NewHealthController()

	app.Get("/health", healthController.HealthCheck)

	api := app.Group("/api")

	// Public routes
	auth := api.Group("/auth")
	auth.Post("/register", authController.Register)
	auth.Post("/login", authController.Login)

	// WebSocket upgrade, token is validated inside the handler
	app.Use("/ws", func(c *fiber.Ctx) error {
		if fiberws.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws", wsController.WebSocketHandler())

	// Protected routes
	protected := api.Group("", middleware.JWTMiddleware(), middleware.LogActivityMiddleware())

	protected.Post("/auth/logout", authController.Logout)
	protected.Get("/auth/profile", authController.GetProfile)
	protected.Post("/auth/avatar", authController.UploadAvatar)

	assignments := protected.Group("/assignments")
	assignments.Get("/", assignmentController.GetAssignments)
	assignments.Post("/", middleware.RequireTeacher(), assignmentController.CreateAssignment)

	lessons := protected.Group("/lessons")
	lessons.Get("/", lessonController.GetLessons)
	lessons.Get("/week", lessonController.GetWeek)
	lessons.Post("/", middleware.RequireTeacher(), lessonController.CreateLesson)
	lessons.Delete("/:id", middleware.RequireTeacher(), lessonController.DeleteLesson)
	lessons.Patch("/:id/check", middleware.RequireTeacher(), lessonController.CheckLesson)

	reports := protected.Group("/reports")
	reports.Get("/", reportController.GetReport)
	reports.Get("/export", reportController.ExportReport)

	notifications := protected.Group("/notifications")
	notifications.Get("/", notificationController.GetNotifications)
	notifications.Patch("/:id/read", notificationController.MarkRead)
	notifications.Patch("/read-all", notificationController.MarkAllRead)

	protected.Get("/ws/stats", wsController.GetWebSocketStats)
}
