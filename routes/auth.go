// routes/auth.go
package routes

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sidhant-sriv/homie-api/auth"
	"github.com/sidhant-sriv/homie-api/middleware"
	"github.com/sidhant-sriv/homie-api/models"
	"gorm.io/gorm"
)

// AuthRoutes sets up the authentication routes /api/auth/register, /api/auth/login, etc.
func (h *Handler) AuthRoutes(group *gin.RouterGroup, authed gin.HandlerFunc) {
	group.POST("/register", h.Register())
	group.POST("/login", h.Login())
	group.POST("/refresh", h.RefreshToken())
	group.GET("/profile", authed, middleware.WithPrincipal(h.GetProfile))
}

type registerRequest struct {
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6"`
	Role     string `json:"role" binding:"omitempty,oneof=tenant landlord"`
}

type loginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// authResponse is returned by register, login and refresh.
func authResponse(message, access, refresh string, user *models.User) gin.H {
	body := gin.H{
		"message":      message,
		"token":        access,
		"refreshToken": refresh,
	}
	if user != nil {
		body["user"] = gin.H{
			"id":    user.ID,
			"name":  user.Name,
			"email": user.Email,
			"role":  user.Role,
		}
	}
	return body
}

// Register handles new user registration.
func (h *Handler) Register() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req registerRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			fail(c, bindError(err))
			return
		}

		role := models.RoleTenant
		if req.Role != "" {
			role = models.Role(req.Role)
		}
		email := strings.ToLower(strings.TrimSpace(req.Email))
		ctx := c.Request.Context()

		var existing int64
		if err := h.DB.WithContext(ctx).Model(&models.User{}).Where("email = ?", email).Count(&existing).Error; err != nil {
			fail(c, fmt.Errorf("check email: %w", err))
			return
		}
		if existing > 0 {
			fail(c, models.Conflict("User already exists"))
			return
		}

		hashed, err := auth.HashPassword(req.Password, h.BcryptCost)
		if err != nil {
			fail(c, err)
			return
		}

		user := models.User{Name: strings.TrimSpace(req.Name), Email: email, Password: hashed, Role: role}
		if err := h.DB.WithContext(ctx).Create(&user).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				fail(c, models.Conflict("User already exists"))
				return
			}
			fail(c, fmt.Errorf("create user: %w", err))
			return
		}

		access, refresh, err := h.Tokens.Issue(user.ID, user.Role)
		if err != nil {
			fail(c, err)
			return
		}

		middleware.Logger(c).Info("user registered", "user_id", user.ID, "role", user.Role)
		c.JSON(http.StatusCreated, authResponse("User created successfully", access, refresh, &user))
	}
}

// Login handles user login requests.
func (h *Handler) Login() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req loginRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			fail(c, bindError(err))
			return
		}

		var user models.User
		err := h.DB.WithContext(c.Request.Context()).
			Where("email = ?", strings.ToLower(strings.TrimSpace(req.Email))).
			First(&user).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				fail(c, models.Unauthorized("Invalid credentials"))
				return
			}
			fail(c, fmt.Errorf("find user: %w", err))
			return
		}

		if !auth.CheckPassword(user.Password, req.Password) {
			fail(c, models.Unauthorized("Invalid credentials"))
			return
		}

		access, refresh, err := h.Tokens.Issue(user.ID, user.Role)
		if err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusOK, authResponse("Login successful", access, refresh, &user))
	}
}

// RefreshToken exchanges a valid refresh token for a new token pair.
func (h *Handler) RefreshToken() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			RefreshToken string `json:"refreshToken" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			fail(c, bindError(err))
			return
		}

		claims, err := h.Tokens.Parse(req.RefreshToken, auth.RefreshToken)
		if err != nil {
			middleware.Logger(c).Debug("refresh token rejected", "error", err)
			fail(c, models.Unauthorized("Invalid or expired refresh token"))
			return
		}

		// The role is re-read so a changed role is reflected in the new pair.
		var user models.User
		if err := h.DB.WithContext(c.Request.Context()).First(&user, claims.UserID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				fail(c, models.Unauthorized("User associated with token not found"))
				return
			}
			fail(c, fmt.Errorf("find user: %w", err))
			return
		}

		access, refresh, err := h.Tokens.Issue(user.ID, user.Role)
		if err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusOK, authResponse("Tokens refreshed successfully", access, refresh, nil))
	}
}

// GetProfile returns the caller without the credential field.
func (h *Handler) GetProfile(c *gin.Context, p middleware.Principal) {
	var user models.User
	if err := h.DB.WithContext(c.Request.Context()).First(&user, p.UserID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			fail(c, models.NotFound("User not found"))
			return
		}
		fail(c, fmt.Errorf("find user: %w", err))
		return
	}
	c.JSON(http.StatusOK, user)
}
