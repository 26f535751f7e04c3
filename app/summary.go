package app

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/kbukum/audiolens/component"
	"github.com/kbukum/audiolens/logger"
	"github.com/kbukum/audiolens/server"
)

// Summary prints what a process started: components, routes and their
// health. It goes to stdout unless Out is set.
type Summary struct {
	Out io.Writer

	serviceName     string
	version         string
	environment     string
	startupDuration time.Duration
}

func NewSummary(serviceName, version, environment string) *Summary {
	return &Summary{serviceName: serviceName, version: version, environment: environment}
}

func (s *Summary) SetStartupDuration(d time.Duration) {
	s.startupDuration = d
}

// Display writes the summary. srv may be nil for processes without HTTP.
func (s *Summary) Display(registry *component.Registry, srv *server.Server, log *logger.Logger) {
	out := s.Out
	if out == nil {
		out = os.Stdout
	}
	var b strings.Builder
	fmt.Fprintf(&b, "\n🚀 %s %s (%s) started in %.2fs\n", s.serviceName, s.version, s.environment, s.startupDuration.Seconds())

	descs := registry.Describe()
	if len(descs) > 0 {
		b.WriteString("\n📊 Infrastructure\n")
		for i, d := range descs {
			fmt.Fprintf(&b, "   %s %s [%s] %s\n", branch(i, len(descs)), d.Name, d.Type, d.Details)
		}
	}

	if srv != nil {
		routes := srv.Engine().Routes()
		if len(routes) > 0 {
			fmt.Fprintf(&b, "\n🌐 Routes (%d)\n", len(routes))
			for i, r := range routes {
				fmt.Fprintf(&b, "   %s %-6s %s\n", branch(i, len(routes)), r.Method, r.Path)
			}
		}
	}

	health := registry.HealthAll(context.Background())
	if len(health) > 0 {
		b.WriteString("\n🏥 Health Check\n")
		healthy := 0
		for i, h := range health {
			msg := ""
			if h.Message != "" {
				msg = " - " + h.Message
			}
			if h.Status == component.StatusHealthy {
				healthy++
			}
			fmt.Fprintf(&b, "   %s %s %s: %s%s\n", branch(i, len(health)), healthIcon(h.Status), h.Name, h.Status, msg)
		}
		if healthy == len(health) {
			fmt.Fprintf(&b, "\n✅ All components healthy (%d/%d)\n", healthy, len(health))
		} else {
			fmt.Fprintf(&b, "\n⚠️  Some components have issues (%d/%d healthy)\n", healthy, len(health))
		}
	} else {
		b.WriteString("   └── No components registered\n")
	}
	b.WriteString("\n")

	if _, err := io.WriteString(out, b.String()); err != nil {
		log.Warn("startup summary not written", logger.Fields(logger.FieldError, err.Error()))
	}
}

func branch(i, n int) string {
	if i == n-1 {
		return "└──"
	}
	return "├──"
}

func healthIcon(status component.HealthStatus) string {
	switch status {
	case component.StatusHealthy:
		return "✅"
	case component.StatusDegraded:
		return "⚠️"
	case component.StatusUnhealthy:
		return "❌"
	default:
		return "❓"
	}
}
