package handlers

import (
	"net/http"
	"time"

	"github.com/alimgiray/perfguide/internal/middleware"
	"github.com/gin-gonic/gin"
)

type DashboardHandler struct {
	now func() time.Time
}

func NewDashboardHandler() *DashboardHandler {
	return &DashboardHandler{now: time.Now}
}

// Greeting picks the salutation for the hour of day
func Greeting(hour int) string {
	switch {
	case hour < 12:
		return "Good morning"
	case hour < 18:
		return "Good afternoon"
	default:
		return "Good evening"
	}
}

// Dashboard handles the dashboard page
func (h *DashboardHandler) Dashboard(c *gin.Context) {
	user := middleware.CurrentUser(c)
	if user == nil {
		c.Redirect(http.StatusFound, "/")
		return
	}

	data := gin.H{
		"Title":       "Dashboard",
		"User":        user,
		"Greeting":    Greeting(h.now().Hour()),
		"DisplayName": user.DisplayName(),
		"Initials":    user.Initials(),
		"AvatarURL":   user.Metadata.AvatarURL,
		"Email":       user.Email,
	}

	c.HTML(http.StatusOK, "dashboard", data)
}
