// Package web holds the HTML templates rendered by the handlers.
package web

import (
	"embed"
	"html/template"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"
)

//go:embed templates/*.html
var templatesFS embed.FS

var ugcPolicy = bluemonday.UGCPolicy()

// Sanitize strips anything unsafe from user-generated HTML such as issue descriptions
func Sanitize(html string) template.HTML {
	return template.HTML(ugcPolicy.Sanitize(html))
}

// FuncMap is available to every template
func FuncMap() template.FuncMap {
	return template.FuncMap{
		"sanitize": Sanitize,
		"formatTime": func(t *time.Time) string {
			if t == nil {
				return ""
			}
			return t.Format("Jan 2, 2006 15:04")
		},
		"join": strings.Join,
		"add":  func(a, b int) int { return a + b },
		"sub":  func(a, b int) int { return a - b },
	}
}

// Templates parses every embedded template
func Templates() (*template.Template, error) {
	return template.New("").Funcs(FuncMap()).ParseFS(templatesFS, "templates/*.html")
}
