package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	apperrors "github.com/kbukum/demandflow/errors"
	"github.com/kbukum/demandflow/component"
	"github.com/kbukum/demandflow/observability"
	"github.com/kbukum/demandflow/version"
)

// HealthChecker returns health status for registered components.
type HealthChecker func(ctx context.Context) []component.Health

// Latest is the most recent value observed at the end of a pipeline.
type Latest struct {
	Value   any       `json:"value"`
	Emitted int64     `json:"emitted"`
	At      time.Time `json:"at"`
}

// StatusSource reports the latest pipeline value. ok is false until the
// first value has arrived.
type StatusSource interface {
	Latest() (latest Latest, ok bool)
}

func (s *Server) handleHealth(c *gin.Context) {
	v := version.GetVersionInfo()
	health := observability.NewServiceHealth(s.serviceName, v.Version)
	if checker := s.healthChecker(); checker != nil {
		for _, h := range checker(c.Request.Context()) {
			health.AddComponent(h)
		}
	}

	status := http.StatusOK
	if !health.Healthy() {
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, health)
}

func (s *Server) handleLatest(c *gin.Context) {
	src := s.statusSource()
	if src == nil {
		RespondWithError(c, apperrors.NotReady("status source"))
		return
	}
	latest, ok := src.Latest()
	if !ok {
		RespondWithError(c, apperrors.NotReady("pipeline value"))
		return
	}
	RespondOK(c, latest)
}

func (s *Server) handleInfo(c *gin.Context) {
	v := version.GetVersionInfo()
	c.JSON(http.StatusOK, gin.H{
		"service":    s.serviceName,
		"version":    v.Version,
		"git_commit": v.GitCommit,
		"build_time": v.BuildTime,
		"go_version": v.GoVersion,
		"uptime":     time.Since(s.created).Round(time.Second).String(),
	})
}
