// Package health backs the /healthz and /readyz probes. Liveness only
// says the process is up; readiness flips off during shutdown so the
// load balancer drains traffic before the listener closes.
package health

import (
	"net/http"
	"sync/atomic"

	"github.com/gin-gonic/gin"
)

// State is the process readiness flag. It starts not-ready and is
// flipped on once migrations, workers and the producer are wired.
type State struct {
	ready atomic.Bool
}

func NewState() *State {
	return &State{}
}

func (s *State) SetReady(ready bool) {
	s.ready.Store(ready)
}

func (s *State) Ready() bool {
	return s.ready.Load()
}

func Liveness(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func Readiness(s *State) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !s.Ready() {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not_ready"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	}
}
