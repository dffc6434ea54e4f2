package handlers

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/mem"

	"github.com/yungbote/llm-gateway/internal/logger"
	"github.com/yungbote/llm-gateway/internal/observability"
)

type StatusHandler struct {
	log       *logger.Logger
	metrics   *observability.Metrics
	startTime time.Time
}

func NewStatusHandler(log *logger.Logger, metrics *observability.Metrics) *StatusHandler {
	return &StatusHandler{
		log:       log.With("handler", "StatusHandler"),
		metrics:   metrics,
		startTime: time.Now(),
	}
}

// GET /api/v1/status
// Extended process status: uptime, memory, CPU load.
func (h *StatusHandler) Get(c *gin.Context) {
	now := time.Now()
	resp := gin.H{
		"status":    "OK",
		"uptime":    humanReadableTime(now.Sub(h.startTime)),
		"timestamp": now.Unix(),
	}

	if vm, err := mem.VirtualMemory(); err == nil {
		h.metrics.SetMemoryUsage(float64(vm.Used))
		resp["memory"] = gin.H{
			"total":        humanReadableBytes(float64(vm.Total)),
			"used":         humanReadableBytes(float64(vm.Used)),
			"percent_used": fmt.Sprintf("%.1f%%", vm.UsedPercent),
		}
	} else {
		h.log.Warn("Could not read memory stats", "error", err)
	}

	if percents, err := cpu.Percent(0, false); err == nil && len(percents) > 0 {
		resp["cpu_usage"] = fmt.Sprintf("%.1f%%", percents[0])
	} else if err != nil {
		h.log.Warn("Could not read CPU stats", "error", err)
	}

	c.JSON(http.StatusOK, resp)
}

func humanReadableTime(d time.Duration) string {
	seconds := int64(d.Seconds())
	days := seconds / 86400
	seconds %= 86400
	hours := seconds / 3600
	seconds %= 3600
	minutes := seconds / 60
	seconds %= 60

	var parts []string
	if days > 0 {
		parts = append(parts, fmt.Sprintf("%dd", days))
	}
	if hours > 0 {
		parts = append(parts, fmt.Sprintf("%dh", hours))
	}
	if minutes > 0 {
		parts = append(parts, fmt.Sprintf("%dm", minutes))
	}
	if seconds > 0 {
		parts = append(parts, fmt.Sprintf("%ds", seconds))
	}
	if len(parts) == 0 {
		return "0s"
	}
	return strings.Join(parts, " ")
}

func humanReadableBytes(n float64) string {
	for _, unit := range []string{"B", "KB", "MB", "GB"} {
		if n < 1024 {
			return fmt.Sprintf("%.2f %s", n, unit)
		}
		n /= 1024
	}
	return fmt.Sprintf("%.2f TB", n)
}
