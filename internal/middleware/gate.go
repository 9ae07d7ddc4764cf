package middleware

import (
	"net/http"
	"time"

	"github.com/alimgiray/perfguide/internal/session"
	"github.com/gin-gonic/gin"
)

type GateAction int

const (
	GateRender GateAction = iota
	GateLoading
	GateRedirect
)

func (a GateAction) String() string {
	switch a {
	case GateLoading:
		return "loading"
	case GateRedirect:
		return "redirect"
	default:
		return "render"
	}
}

type GateOptions struct {
	// RequireAuth false turns the gate into a public-only gate that sends
	// signed-in users away.
	RequireAuth bool
	RedirectTo  string
	// RedirectDelay only applies to anonymous visitors of protected pages.
	RedirectDelay time.Duration
}

type Decision struct {
	Action   GateAction
	Location string
	Delay    time.Duration
}

// Decide maps a session state onto what the route should do
func Decide(state session.State, opts GateOptions) Decision {
	location := opts.RedirectTo
	if location == "" {
		location = "/"
	}

	switch {
	case state.IsLoading:
		return Decision{Action: GateLoading}
	case opts.RequireAuth && !state.IsAuthenticated:
		return Decision{Action: GateRedirect, Location: location, Delay: opts.RedirectDelay}
	case !opts.RequireAuth && state.IsAuthenticated:
		return Decision{Action: GateRedirect, Location: location}
	default:
		return Decision{Action: GateRender}
	}
}

// RouteGate renders the placeholder, redirects, or lets the chain continue
func RouteGate(opts GateOptions) gin.HandlerFunc {
	return func(c *gin.Context) {
		decision := Decide(GetSessionState(c), opts)

		switch decision.Action {
		case GateLoading:
			c.HTML(http.StatusOK, "loading", gin.H{
				"Title":          "Loading",
				"RefreshSeconds": 1,
			})
			c.Abort()
		case GateRedirect:
			if decision.Delay > 0 {
				c.HTML(http.StatusOK, "redirect", gin.H{
					"Title":        "Redirecting",
					"Location":     decision.Location,
					"DelaySeconds": int(decision.Delay.Round(time.Second) / time.Second),
				})
			} else {
				c.Redirect(http.StatusFound, decision.Location)
			}
			c.Abort()
		default:
			c.Next()
		}
	}
}
