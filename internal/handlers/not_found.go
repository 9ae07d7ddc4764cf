package handlers

import (
	"net/http"

	"github.com/alimgiray/perfguide/internal/middleware"
	"github.com/gin-gonic/gin"
)

type NotFoundHandler struct{}

func NewNotFoundHandler() *NotFoundHandler {
	return &NotFoundHandler{}
}

// NotFound handles 404 errors for non-existent routes
func (h *NotFoundHandler) NotFound(c *gin.Context) {
	data := gin.H{
		"Title":         "404 - Page Not Found",
		"User":          middleware.CurrentUser(c),
		"RequestedPath": c.Request.URL.Path,
	}

	c.HTML(http.StatusNotFound, "not_found", data)
}

func renderError(c *gin.Context, status int, message string) {
	c.HTML(status, "error", gin.H{
		"Title": "Error",
		"User":  middleware.CurrentUser(c),
		"Error": message,
	})
	c.Abort()
}
