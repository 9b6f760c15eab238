package handlers

import (
	"context"
	"net/http"
	"runtime"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// SystemInfo contains basic system metrics and information
type SystemInfo struct {
	Status       string           `json:"status"`
	Version      string           `json:"version"`
	Uptime       string           `json:"uptime"`
	StartTime    time.Time        `json:"start_time"`
	CurrentTime  time.Time        `json:"current_time"`
	GoVersion    string           `json:"go_version"`
	NumGoroutine int              `json:"num_goroutine"`
	NumCPU       int              `json:"num_cpu"`
	DBStatus     string           `json:"db_status"`
	Queue        map[string]int64 `json:"queue,omitempty"`
}

// QueueStatter reports event queue lengths
type QueueStatter interface {
	QueueStats(ctx context.Context) map[string]int64
}

var version = "0.1.0" // injected with -ldflags at build time

// HealthHandler reports liveness and database reachability
type HealthHandler struct {
	db        *gorm.DB
	queue     QueueStatter
	startTime time.Time
}

// NewHealthHandler builds the handler. queue may be nil.
func NewHealthHandler(db *gorm.DB, queue QueueStatter) *HealthHandler {
	return &HealthHandler{db: db, queue: queue, startTime: time.Now()}
}

// HealthCheck pings the database. An unreachable database answers 503.
func (h *HealthHandler) HealthCheck(c *gin.Context) {
	if !h.dbReachable(c.Request.Context()) {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "error",
			"db":     "unreachable",
			"time":   time.Now().Format(time.RFC3339),
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"time":   time.Now().Format(time.RFC3339),
	})
}

// SystemStatus returns runtime details for operators
func (h *HealthHandler) SystemStatus(c *gin.Context) {
	dbStatus := "ok"
	if !h.dbReachable(c.Request.Context()) {
		dbStatus = "error"
	}

	info := SystemInfo{
		Status:       "ok",
		Version:      version,
		Uptime:       time.Since(h.startTime).String(),
		StartTime:    h.startTime,
		CurrentTime:  time.Now(),
		GoVersion:    runtime.Version(),
		NumGoroutine: runtime.NumGoroutine(),
		NumCPU:       runtime.NumCPU(),
		DBStatus:     dbStatus,
	}
	if h.queue != nil {
		info.Queue = h.queue.QueueStats(c.Request.Context())
	}

	c.JSON(http.StatusOK, info)
}

func (h *HealthHandler) dbReachable(ctx context.Context) bool {
	sqlDB, err := h.db.DB()
	if err != nil {
		return false
	}
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return sqlDB.PingContext(ctx) == nil
}
