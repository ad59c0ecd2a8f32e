package main

import (
	"log"
	"os"
	"tutortrack_go/config"
	"tutortrack_go/database"
	"tutortrack_go/middleware"
	"tutortrack_go/routes"
	"tutortrack_go/services"
	"tutortrack_go/services/feed"
	"tutortrack_go/services/notifications"
	"tutortrack_go/services/websocket"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/sirupsen/logrus"
)

func init() {
	setupLogging()
	config.LoadConfig()
	database.Connect()
}

func main() {
	// Create WebSocket hub first
	wsHub := websocket.NewHub()
	go wsHub.Run()

	app := fiber.New(fiber.Config{
		ErrorHandler: customErrorHandler,
		BodyLimit:    int(config.AppConfig.MaxFileSize),
	})

	// Global middleware
	app.Use(recover.New())
	app.Use(helmet.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     "*",
		AllowMethods:     "GET,POST,HEAD,PUT,DELETE,PATCH,OPTIONS",
		AllowHeaders:     "Origin,Content-Type,Accept,Authorization",
		AllowCredentials: true,
	}))
	app.Use(middleware.LoggerMiddleware())

	// Wire notifications to the WebSocket hub globally so any new Service
	// uses it (incl. schedulers)
	notifications.SetDefaultWSHub(wsHub)
	notifService := notifications.NewService()
	notifService.SetWebSocketHub(wsHub)
	if config.AppConfig.UseRedisNotifications {
		stopNotif := make(chan struct{})
		notifService.StartWorker(stopNotif)
	}

	// Change feed: Redis Streams when available, in-process fallback otherwise.
	// The fallback only reaches sessions in this process, which is fine for a
	// single-instance deployment and for local development.
	var adapter feed.Adapter
	var publisher feed.Publisher
	if config.AppConfig.UseRedisFeed && database.GetRedisClient() != nil {
		rf := feed.NewRedisFeed(database.DB, database.GetRedisClient())
		adapter, publisher = rf, rf
	} else {
		logrus.Warn("redis feed unavailable, using in-process feed")
		mf := feed.NewMemoryFeed()
		adapter, publisher = mf, mf
	}

	sessions := services.NewSessionManager(database.DB, adapter, notifService)
	defer sessions.StopAll()

	store := services.NewGormLedgerStore(database.DB)
	transfer := services.NewBalanceTransfer(store, publisher)

	reportScheduler := services.NewReportScheduler(database.DB, notifService)
	if err := reportScheduler.Start(config.AppConfig.ReportReminderSpec); err != nil {
		logrus.WithError(err).Error("failed to start report scheduler")
	}

	routes.SetupRoutes(app, routes.Deps{
		Sessions: sessions,
		Transfer: transfer,
		Feed:     publisher,
		Hub:      wsHub,
	})

	// 404 handler
	app.Use(func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error":  "Route not found",
			"path":   c.Path(),
			"method": c.Method(),
		})
	})

	addr := ":" + config.AppConfig.Port
	logrus.WithFields(logrus.Fields{
		"port": config.AppConfig.Port,
		"env":  config.AppConfig.AppEnv,
	}).Info("server starting")

	if err := app.Listen(addr); err != nil {
		log.Fatal("Failed to start server:", err)
	}
}

// setupLogging configures the logging system
func setupLogging() {
	if err := os.MkdirAll("logs", 0755); err != nil {
		log.Printf("Warning: Could not create logs directory: %v", err)
	}

	logrus.SetFormatter(&logrus.JSONFormatter{})

	level, err := logrus.ParseLevel("info")
	if err == nil {
		logrus.SetLevel(level)
	}

	if os.Getenv("APP_ENV") == "development" {
		logrus.SetOutput(os.Stdout)
	} else {
		file, err := os.OpenFile("logs/app.log", os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
		if err == nil {
			logrus.SetOutput(file)
		}
	}
}

// customErrorHandler handles application errors
func customErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal Server Error"

	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
		message = e.Message
	}

	logrus.WithFields(logrus.Fields{
		"error":  err.Error(),
		"path":   c.Path(),
		"method": c.Method(),
		"ip":     c.IP(),
		"status": code,
	}).Error("Request error")

	return c.Status(code).JSON(fiber.Map{
		"error":  message,
		"code":   code,
		"path":   c.Path(),
		"method": c.Method(),
	})
}
