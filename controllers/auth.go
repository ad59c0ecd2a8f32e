package controllers

import (
	"context"
	"strings"
	"time"
	"tutortrack_go/database"
	"tutortrack_go/middleware"
	"tutortrack_go/models"
	"tutortrack_go/services"
	"tutortrack_go/storage"
	"tutortrack_go/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

type AuthController struct {
	sessions *services.SessionManager
}

func NewAuthController(sessions *services.SessionManager) *AuthController {
	return &AuthController{sessions: sessions}
}

// LoginRequest represents the login request body
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// RegisterRequest represents the signup request body
type RegisterRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Phone    string `json:"phone"`
	Study    string `json:"study"`
	Role     string `json:"role"`
}

// Register creates a new teacher or student account
func (ac *AuthController) Register(c *fiber.Ctx) error {
	var req RegisterRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	req.Username = utils.SanitizeString(req.Username)
	if req.Username == "" || len(req.Password) < 6 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Username required and password must be at least 6 characters",
		})
	}
	if !utils.IsValidRole(req.Role) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Role must be teacher or student",
		})
	}

	hashed, err := utils.HashPassword(req.Password)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to hash password",
		})
	}

	user := models.User{
		Username: req.Username,
		Password: hashed,
		Phone:    req.Phone,
		Study:    req.Study,
		Role:     req.Role,
		Status:   "active",
	}
	if err := database.DB.Create(&user).Error; err != nil {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"error": "Username already taken",
		})
	}

	token, err := middleware.GenerateToken(&user)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to generate token",
		})
	}

	middleware.LogActivity(c, "REGISTER", "auth", user.ID, fiber.Map{
		"username": user.Username,
		"role":     user.Role,
	})

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "Account created",
		"token":   token,
		"user":    utils.ToUserShort(user),
	})
}

// Login authenticates a user, returns a JWT token and starts the user's
// change-feed session.
func (ac *AuthController) Login(c *fiber.Ctx) error {
	var req LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	// Find user by username
	var user models.User
	if err := database.DB.Where("username = ? AND status = ?", req.Username, "active").First(&user).Error; err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Invalid credentials",
		})
	}

	// Check password
	if err := utils.CheckPassword(req.Password, user.Password); err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Invalid credentials",
		})
	}

	// Generate JWT token
	token, err := middleware.GenerateToken(&user)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to generate token",
		})
	}

	ac.sessions.Start(user)

	// Log the login activity
	middleware.LogActivity(c, "LOGIN", "auth", user.ID, fiber.Map{
		"username": user.Username,
		"role":     user.Role,
	})

	return c.JSON(fiber.Map{
		"message": "Login successful",
		"token":   token,
		"user":    utils.ToUserShort(user),
	})
}

// Logout invalidates the current JWT and tears down the user's feed
// subscriptions; no background work may touch session state afterwards.
func (ac *AuthController) Logout(c *fiber.Ctx) error {
	authHeader := c.Get("Authorization")
	if authHeader == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Missing authorization header"})
	}

	tokenString := strings.TrimPrefix(authHeader, "Bearer ")
	if tokenString == authHeader {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid authorization header format"})
	}

	// Store token in Redis blacklist with 24 hour TTL if Redis is available
	rc := database.GetRedisClient()
	if rc != nil {
		key := "blacklist:jwt:" + tokenString
		if err := rc.Set(context.Background(), key, "1", 24*time.Hour).Err(); err != nil {
			middleware.LogActivity(c, "LOGOUT", "auth", 0, fiber.Map{"error": err.Error()})
		}
	}

	if user, err := middleware.GetCurrentUser(c); err == nil {
		ac.sessions.Stop(user.ID)
		middleware.LogActivity(c, "LOGOUT", "auth", user.ID, fiber.Map{"username": user.Username})
	}

	return c.JSON(fiber.Map{"message": "Logged out successfully"})
}

// GetProfile returns the authenticated user's record
func (ac *AuthController) GetProfile(c *fiber.Ctx) error {
	user, err := middleware.GetCurrentUser(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "User not found",
		})
	}
	return c.JSON(fiber.Map{"user": utils.ToUserShort(*user)})
}

// UploadAvatar stores a new profile image. The S3 upload runs as an
// independent task so it never blocks request handling or feed processing;
// the avatar URL is merged into the user record when the upload completes.
func (ac *AuthController) UploadAvatar(c *fiber.Ctx) error {
	user, err := middleware.GetCurrentUser(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "User not found",
		})
	}

	file, err := c.FormFile("avatar")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Missing avatar file",
		})
	}

	allowed := []string{".jpg", ".jpeg", ".png", ".webp"}
	if !utils.IsValidFileExtension(file.Filename, allowed) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "File type not allowed",
		})
	}

	svc, err := storage.NewStorageService()
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Storage unavailable",
		})
	}

	userID := user.ID
	go func() {
		url, err := svc.UploadAvatar(file, userID)
		if err != nil {
			logrus.WithError(err).WithField("user_id", userID).Error("avatar upload failed")
			return
		}
		if err := database.DB.Model(&models.User{}).Where("id = ?", userID).Update("avatar", url).Error; err != nil {
			logrus.WithError(err).WithField("user_id", userID).Error("avatar update failed")
		}
	}()

	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
		"message": "Avatar upload started",
	})
}
