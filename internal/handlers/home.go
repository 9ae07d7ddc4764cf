package handlers

import (
	"net/http"

	"github.com/alimgiray/perfguide/internal/middleware"
	"github.com/gin-gonic/gin"
)

// GuideSection is one entry of the guide index
type GuideSection struct {
	ID      string
	Title   string
	Summary string
}

var guideSections = []GuideSection{
	{ID: "analysis", Title: "Performance Analysis Report", Summary: "Where the time goes today and what to fix first."},
	{ID: "fundamentals", Title: "Performance Fundamentals", Summary: "Latency, throughput and the budgets that tie them together."},
	{ID: "database", Title: "Database Optimization", Summary: "Indexes, query plans and connection pooling."},
	{ID: "backend", Title: "Backend Performance", Summary: "Caching, batching and doing less work per request."},
	{ID: "frontend", Title: "Frontend Optimization", Summary: "Bundle size, code splitting and asset delivery."},
	{ID: "infrastructure", Title: "Infrastructure & Scaling", Summary: "Horizontal scaling, CDNs and load balancing."},
	{ID: "schema", Title: "Database Schema", Summary: "Table layouts that keep hot paths cheap."},
	{ID: "error", Title: "Error Analysis", Summary: "Reading failures as performance signals."},
}

type HomeHandler struct{}

func NewHomeHandler() *HomeHandler {
	return &HomeHandler{}
}

// Index handles the guide index
func (h *HomeHandler) Index(c *gin.Context) {
	data := gin.H{
		"Title":    "Home",
		"User":     middleware.CurrentUser(c),
		"Sections": guideSections,
	}

	c.HTML(http.StatusOK, "index", data)
}
