// routes/router.go
package routes

import (
	"context"
	"log/slog"
	"net/http"
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/sidhant-sriv/homie-api/auth"
	"github.com/sidhant-sriv/homie-api/events"
	"github.com/sidhant-sriv/homie-api/media"
	"github.com/sidhant-sriv/homie-api/middleware"
	"github.com/sidhant-sriv/homie-api/models"
	"gorm.io/gorm"
)

// maxUploadMemory bounds the multipart form kept in memory; larger parts
// spill to temporary files.
const maxUploadMemory = 32 << 20

// Handler carries the dependencies shared by every route.
type Handler struct {
	DB         *gorm.DB
	Tokens     *auth.TokenIssuer
	Media      media.Store
	Events     events.Publisher
	Log        *slog.Logger
	BcryptCost int
	Now        func() time.Time
}

func (h *Handler) now() time.Time {
	if h.Now != nil {
		return h.Now()
	}
	return time.Now()
}

// publish sends a domain event. Delivery failures are logged only; the state
// change they describe is already committed.
func (h *Handler) publish(c *gin.Context, key string, payload any) {
	if h.Events == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(c.Request.Context()), 5*time.Second)
	defer cancel()
	if err := h.Events.Publish(ctx, key, payload); err != nil {
		middleware.Logger(c).Warn("publish event", "routing_key", key, "error", err)
	}
}

var bindingOnce sync.Once

// SetupRouter builds the gin engine with every API route registered.
func SetupRouter(h *Handler) *gin.Engine {
	bindingOnce.Do(func() {
		if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
			v.RegisterTagNameFunc(fieldName)
		}
	})
	if h.Log == nil {
		h.Log = slog.Default()
	}

	router := gin.New()
	router.MaxMultipartMemory = maxUploadMemory
	router.Use(middleware.RequestLogger(h.Log), gin.Recovery())

	// Health check endpoint
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := router.Group("/api")
	authed := middleware.AuthMiddleware(h.Tokens, h.DB)
	tenant := []gin.HandlerFunc{authed, middleware.RequireRole(models.RoleTenant)}
	landlord := []gin.HandlerFunc{authed, middleware.RequireRole(models.RoleLandlord)}
	admin := []gin.HandlerFunc{authed, middleware.RequireRole(models.RoleAdmin)}

	h.AuthRoutes(api.Group("/auth"), authed)
	h.PropertyRoutes(api.Group("/properties"), tenant, landlord)
	h.ApplicationRoutes(api.Group("/applications"), tenant, landlord)
	h.MaintenanceRoutes(api.Group("/maintenance"), tenant, landlord)
	h.DashboardRoutes(api.Group("/dashboard"), tenant, landlord, admin)
	h.NotificationRoutes(api.Group("/notifications"), authed)
	h.MediaRoutes(api.Group("/media"))

	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"message": "Route not found"})
	})
	return router
}

// with appends handler to a middleware chain without aliasing it.
func with(chain []gin.HandlerFunc, handler gin.HandlerFunc) []gin.HandlerFunc {
	out := make([]gin.HandlerFunc, 0, len(chain)+1)
	out = append(out, chain...)
	return append(out, handler)
}

// fieldName names struct fields in validation errors the way clients send
// them: the json key, else the form key, else the Go name.
func fieldName(fld reflect.StructField) string {
	for _, tag := range []string{"json", "form"} {
		name, _, _ := strings.Cut(fld.Tag.Get(tag), ",")
		if name == "-" {
			return ""
		}
		if name != "" {
			return name
		}
	}
	return fld.Name
}

// fieldPath drops the root struct name from a validator namespace.
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if _, rest, ok := strings.Cut(ns, "."); ok {
		return rest
	}
	return fe.Field()
}
