// Package health runs readiness checks against the process dependencies.
// The liveness endpoint stays a plain static response; this package backs
// the readiness endpoint that orchestrators use before routing traffic.
package health

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"speech-coach-demo/backend/pkg/logger"
)

// Status represents the health status of a component.
type Status string

const (
	// StatusUp indicates a component is working correctly.
	StatusUp Status = "up"
	// StatusDown indicates a component is not working.
	StatusDown Status = "down"
)

// Component is the reported state of one checked dependency.
type Component struct {
	Name        string    `json:"name"`
	Status      Status    `json:"status"`
	Critical    bool      `json:"-"`
	Error       string    `json:"error,omitempty"`
	LastChecked time.Time `json:"last_checked"`
}

// Check probes one dependency. A non-nil error marks the component down.
type Check func(ctx context.Context) error

type registeredCheck struct {
	check    Check
	critical bool
}

// Checker runs registered checks on demand and reports the results.
type Checker struct {
	mutex   sync.Mutex
	checks  map[string]registeredCheck
	timeout time.Duration
	log     *logger.Logger
}

// NewChecker creates a checker. Each check gets at most timeout to answer.
func NewChecker(log *logger.Logger, timeout time.Duration) *Checker {
	return &Checker{
		checks:  make(map[string]registeredCheck),
		timeout: timeout,
		log:     log,
	}
}

// Register adds a check. Critical checks gate the overall readiness verdict;
// non-critical ones are reported but do not fail the endpoint.
func (c *Checker) Register(name string, critical bool, check Check) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.checks[name] = registeredCheck{check: check, critical: critical}
}

// Run executes every registered check and returns the component states plus
// the overall readiness verdict.
func (c *Checker) Run(ctx context.Context) (map[string]Component, bool) {
	c.mutex.Lock()
	checks := make(map[string]registeredCheck, len(c.checks))
	for name, rc := range c.checks {
		checks[name] = rc
	}
	c.mutex.Unlock()

	components := make(map[string]Component, len(checks))
	ready := true

	for name, rc := range checks {
		checkCtx, cancel := context.WithTimeout(ctx, c.timeout)
		err := rc.check(checkCtx)
		cancel()

		component := Component{
			Name:        name,
			Status:      StatusUp,
			Critical:    rc.critical,
			LastChecked: time.Now(),
		}
		if err != nil {
			component.Status = StatusDown
			component.Error = err.Error()
			c.log.Warn("readiness check failed", "component", name, "error", err.Error())
			if rc.critical {
				ready = false
			}
		}
		components[name] = component
	}

	return components, ready
}

// Handler returns a gin handler serving the readiness verdict. It answers
// 503 when any critical component is down.
func (c *Checker) Handler() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		components, ready := c.Run(ctx.Request.Context())

		status := http.StatusOK
		verdict := "ready"
		if !ready {
			status = http.StatusServiceUnavailable
			verdict = "not ready"
		}

		ctx.JSON(status, gin.H{
			"status":     verdict,
			"components": components,
		})
	}
}
