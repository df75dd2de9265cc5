package api

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/dtrovato997/speech-analysis-go/internal/inference"
)

// ModelStatus describes one family's readiness in the models endpoint.
type ModelStatus struct {
	Family string `json:"family"`
	Status string `json:"status"`
}

// HealthCheck reports service liveness, model readiness, and basic host
// stats. The endpoint answers 200 as long as the process serves traffic,
// readiness is per model family.
func (c *Controller) HealthCheck(ctx echo.Context) error {
	response := map[string]any{
		"status":         "healthy",
		"version":        c.Settings.Version,
		"build_date":     c.Settings.BuildDate,
		"timestamp":      time.Now().Format(time.RFC3339),
		"uptime_seconds": int64(c.Uptime().Seconds()),
	}

	statuses := c.Registry.Statuses()
	loaded := make(map[string]bool, len(statuses))
	allReady := len(statuses) > 0
	for family, status := range statuses {
		ready := status == inference.StatusReady
		loaded[string(family)] = ready
		if !ready {
			allReady = false
		}
	}
	response["models_loaded"] = loaded
	if !allReady {
		response["status"] = "degraded"
	}

	response["system"] = c.systemInfo()

	return ctx.JSON(http.StatusOK, response)
}

// systemInfo collects best-effort host statistics. Collection failures are
// reported inline rather than failing the health check.
func (c *Controller) systemInfo() map[string]any {
	info := make(map[string]any, 3)

	if vm, err := mem.VirtualMemory(); err == nil {
		info["memory_used_percent"] = vm.UsedPercent
	} else {
		info["memory_error"] = err.Error()
	}

	if percents, err := cpu.Percent(0, false); err == nil && len(percents) > 0 {
		info["cpu_used_percent"] = percents[0]
	} else if err != nil {
		info["cpu_error"] = err.Error()
	}

	if uptime, err := host.Uptime(); err == nil {
		info["host_uptime_seconds"] = uptime
	}

	return info
}

// ModelStatuses lists every registered model family and its lifecycle
// state.
func (c *Controller) ModelStatuses(ctx echo.Context) error {
	families := c.Registry.Families()
	statuses := c.Registry.Statuses()

	models := make([]ModelStatus, 0, len(families))
	for _, family := range families {
		models = append(models, ModelStatus{
			Family: string(family),
			Status: statuses[family].String(),
		})
	}

	return ctx.JSON(http.StatusOK, map[string]any{"models": models})
}
