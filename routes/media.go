package routes

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sidhant-sriv/homie-api/middleware"
)

// MediaRoutes serves stored property images publicly.
func (h *Handler) MediaRoutes(group *gin.RouterGroup) {
	group.GET("/:id", h.ServeMedia())
}

// ServeMedia streams an image by its public id.
func (h *Handler) ServeMedia() gin.HandlerFunc {
	return func(c *gin.Context) {
		rc, contentType, err := h.Media.Open(c.Request.Context(), c.Param("id"))
		if err != nil {
			fail(c, err)
			return
		}
		defer rc.Close()

		c.Header("Cache-Control", "public, max-age=86400")
		c.Header("Content-Type", contentType)
		c.Status(http.StatusOK)
		if _, err := io.Copy(c.Writer, rc); err != nil {
			middleware.Logger(c).Warn("stream image", "public_id", c.Param("id"), "error", err)
		}
	}
}
