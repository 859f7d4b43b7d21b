package handler

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"furniture-service/internal/middleware"
	"furniture-service/internal/model"
	"furniture-service/pkg/config"
	"furniture-service/pkg/jwtutil"
	"furniture-service/pkg/logger"
	"furniture-service/prometheus"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// AuthHandler serves /api/auth
type AuthHandler struct {
	db         *gorm.DB
	jwt        *jwtutil.JWTUtil
	production bool
}

// NewAuthHandler creates the auth handler
func NewAuthHandler(db *gorm.DB, jwt *jwtutil.JWTUtil, server config.ServerConfig) *AuthHandler {
	return &AuthHandler{db: db, jwt: jwt, production: server.IsProduction()}
}

type registerRequest struct {
	Name         string `json:"name"`
	Email        string `json:"email"`
	MobileNumber string `json:"mobileNumber"`
	Password     string `json:"password"`
	Role         string `json:"role"`
}

// Register creates a user or designer account and returns a token
func (h *AuthHandler) Register(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordAuthOperation("register")

	var req registerRequest
	if err := c.Bind(&req); err != nil {
		log.Error("Failed to parse registration request", zap.Error(err))
		prometheus.RecordAuthError("invalid_request")
		return fail(c, http.StatusBadRequest, "Invalid request", err)
	}

	req.Name = strings.TrimSpace(req.Name)
	req.Email = model.NormalizeEmail(req.Email)
	if req.Name == "" || req.Email == "" || req.Password == "" {
		prometheus.RecordAuthError("incomplete_registration")
		return fail(c, http.StatusBadRequest, "Name, email and password are required", nil)
	}
	if len(req.Password) < model.MinPasswordLength {
		return fail(c, http.StatusBadRequest, fmt.Sprintf("Password must be at least %d characters", model.MinPasswordLength), nil)
	}

	role := req.Role
	if role == "" {
		role = model.RoleUser
	}
	if !model.ValidRole(role) || role == model.RoleAdmin {
		log.Warn("Rejected registration role", zap.String("role", req.Role))
		return fail(c, http.StatusBadRequest, "Invalid role", nil)
	}

	user, err := h.createUser(c, req.Name, req.Email, req.MobileNumber, req.Password, role)
	if err != nil {
		return h.createFailure(c, err, "Registration failed")
	}

	token, err := h.jwt.GenerateToken(user.ID, user.Email, user.Role)
	if err != nil {
		log.Error("Failed to generate token", zap.Error(err))
		prometheus.RecordAuthError("token_generation_failed")
		return fail(c, http.StatusInternalServerError, "Registration failed", err)
	}

	log.Info("User registered", zap.Uint("user_id", user.ID), zap.String("role", user.Role))
	return respond(c, http.StatusCreated, echo.Map{"token": token, "user": user})
}

// CreateAdmin creates an admin account outside production
func (h *AuthHandler) CreateAdmin(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordAuthOperation("create_admin")

	if h.production {
		return fail(c, http.StatusForbidden, "This endpoint is disabled in production mode", nil)
	}

	var req registerRequest
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "Invalid request", err)
	}
	req.Name = strings.TrimSpace(req.Name)
	req.Email = model.NormalizeEmail(req.Email)
	if req.Name == "" || req.Email == "" || req.Password == "" {
		return fail(c, http.StatusBadRequest, "Name, email and password are required", nil)
	}
	if len(req.Password) < model.MinPasswordLength {
		return fail(c, http.StatusBadRequest, fmt.Sprintf("Password must be at least %d characters", model.MinPasswordLength), nil)
	}

	user, err := h.createUser(c, req.Name, req.Email, "", req.Password, model.RoleAdmin)
	if err != nil {
		return h.createFailure(c, err, "Failed to create admin user")
	}

	log.Info("Admin user created", zap.Uint("user_id", user.ID))
	return respond(c, http.StatusCreated, echo.Map{
		"message": "Admin user created successfully",
		"email":   user.Email,
	})
}

var errEmailTaken = errors.New("email already in use")

func (h *AuthHandler) createUser(c echo.Context, name, email, mobile, password, role string) (*model.User, error) {
	db := h.db.WithContext(c.Request().Context())

	done := prometheus.TrackDBOperation("query")
	var count int64
	err := db.Model(&model.User{}).Where("email = ?", email).Count(&count).Error
	done(time.Now())
	if err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, errEmailTaken
	}

	user := &model.User{Name: name, Email: email, MobileNumber: mobile, Role: role}
	if err := user.SetPassword(password); err != nil {
		return nil, err
	}

	done = prometheus.TrackDBOperation("insert")
	err = db.Create(user).Error
	done(time.Now())
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return nil, errEmailTaken
	}
	return user, err
}

func (h *AuthHandler) createFailure(c echo.Context, err error, message string) error {
	if errors.Is(err, errEmailTaken) {
		prometheus.RecordAuthError("email_already_exists")
		return fail(c, http.StatusBadRequest, "Email already in use", nil)
	}
	logger.FromContext(c).Error("Failed to create user", zap.Error(err))
	prometheus.RecordAuthError("user_creation_failed")
	return fail(c, http.StatusInternalServerError, message, err)
}

// Login exchanges email and password for a token
func (h *AuthHandler) Login(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordAuthOperation("login")

	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.Bind(&req); err != nil {
		log.Error("Failed to parse login request", zap.Error(err))
		prometheus.RecordAuthError("invalid_request")
		return fail(c, http.StatusBadRequest, "Invalid request", err)
	}
	email := model.NormalizeEmail(req.Email)
	if email == "" || req.Password == "" {
		return fail(c, http.StatusBadRequest, "Email and password are required", nil)
	}

	done := prometheus.TrackDBOperation("query")
	var user model.User
	err := h.db.WithContext(c.Request().Context()).Where("email = ?", email).First(&user).Error
	done(time.Now())
	if errors.Is(err, gorm.ErrRecordNotFound) {
		log.Warn("Login for unknown email", zap.String("email", email))
		prometheus.RecordAuthError("user_not_found")
		return fail(c, http.StatusUnauthorized, "Invalid credentials", nil)
	}
	if err != nil {
		log.Error("Failed to load user", zap.Error(err))
		return fail(c, http.StatusInternalServerError, "An error occurred during login", err)
	}

	if !user.CheckPassword(req.Password) {
		log.Warn("Invalid password", zap.String("email", email))
		prometheus.RecordAuthError("invalid_password")
		return fail(c, http.StatusUnauthorized, "Invalid credentials", nil)
	}

	token, err := h.jwt.GenerateToken(user.ID, user.Email, user.Role)
	if err != nil {
		log.Error("Failed to generate token", zap.Error(err))
		prometheus.RecordAuthError("token_generation_failed")
		return fail(c, http.StatusInternalServerError, "An error occurred during login", err)
	}

	log.Info("User logged in", zap.Uint("user_id", user.ID), zap.String("role", user.Role))
	return respond(c, http.StatusOK, echo.Map{"token": token, "user": user})
}

// GetProfile returns the authenticated user
func (h *AuthHandler) GetProfile(c echo.Context) error {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		return fail(c, http.StatusNotFound, "User not found", nil)
	}
	return respond(c, http.StatusOK, echo.Map{"user": user})
}

// UpdateProfile changes the name and mobile number; empty fields are kept
func (h *AuthHandler) UpdateProfile(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordAuthOperation("profile_update")

	user, ok := middleware.CurrentUser(c)
	if !ok {
		return fail(c, http.StatusNotFound, "User not found", nil)
	}

	var req struct {
		Name         string `json:"name"`
		MobileNumber string `json:"mobileNumber"`
	}
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "Invalid request", err)
	}
	if name := strings.TrimSpace(req.Name); name != "" {
		user.Name = name
	}
	if mobile := strings.TrimSpace(req.MobileNumber); mobile != "" {
		user.MobileNumber = mobile
	}

	done := prometheus.TrackDBOperation("update")
	err := h.db.WithContext(c.Request().Context()).
		Model(user).
		Updates(map[string]interface{}{"name": user.Name, "mobile_number": user.MobileNumber}).Error
	done(time.Now())
	if err != nil {
		log.Error("Failed to update profile", zap.Error(err))
		return fail(c, http.StatusInternalServerError, "Failed to update profile", err)
	}

	log.Info("Profile updated", zap.Uint("user_id", user.ID))
	return respond(c, http.StatusOK, echo.Map{"user": echo.Map{
		"id":           user.ID,
		"name":         user.Name,
		"email":        user.Email,
		"mobileNumber": user.MobileNumber,
	}})
}

// SeedAdmin creates the configured admin account when it does not exist yet.
// An existing account with that email is left untouched.
func SeedAdmin(db *gorm.DB, admin config.AdminConfig, log *zap.Logger) error {
	if !admin.Enabled() {
		log.Info("Admin seeding skipped, ADMIN_EMAIL or ADMIN_PASSWORD not set")
		return nil
	}

	email := model.NormalizeEmail(admin.Email)
	var existing model.User
	err := db.Where("email = ?", email).First(&existing).Error
	switch {
	case err == nil && existing.IsAdmin():
		log.Info("Admin user already exists", zap.String("email", email))
		return nil
	case err == nil:
		log.Warn("Admin email belongs to a non-admin account, not seeding",
			zap.String("email", email), zap.String("role", existing.Role))
		return nil
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return fmt.Errorf("check admin: %w", err)
	}

	user := &model.User{Name: admin.Name, Email: email, Role: model.RoleAdmin}
	if err := user.SetPassword(admin.Password); err != nil {
		return fmt.Errorf("hash admin password: %w", err)
	}
	if err := db.Create(user).Error; err != nil {
		return fmt.Errorf("create admin: %w", err)
	}
	log.Info("Admin user created", zap.String("email", email))
	return nil
}
