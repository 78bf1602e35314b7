package app

import (
	"context"
	"fmt"
	"time"

	"pathref/internal/shared/util"
)

type HealthStatus struct {
	Status     string            `json:"status"`
	Timestamp  time.Time         `json:"timestamp"`
	Components map[string]string `json:"components"`
}

type HealthService struct {
	app *App
}

func NewHealthService(app *App) *HealthService {
	return &HealthService{app: app}
}

func (s *HealthService) Check(ctx context.Context) HealthStatus {
	status := HealthStatus{
		Status:     "up",
		Timestamp:  time.Now().UTC(),
		Components: make(map[string]string),
	}
	if err := ctx.Err(); err != nil {
		status.Status = "down"
		status.Components["context"] = err.Error()
		return status
	}

	st := s.app.engine()
	ws := st.workspace
	if ws == nil {
		status.Status = "degraded"
		status.Components["workspace"] = "missing"
	} else {
		status.Components["workspace"] = fmt.Sprintf("ok (%d modules)", ws.Len())
	}

	snap := s.app.snapshot()
	if n := len(snap.Result.StaleRoots); n > 0 {
		status.Status = "degraded"
		status.Components["roots"] = fmt.Sprintf("%d stale", n)
	} else {
		status.Components["roots"] = "ok"
	}

	if s.app.history != nil {
		status.Components["history"] = "ok"
	} else if st.cfg.DB.Enabled {
		status.Status = "degraded"
		status.Components["history"] = "missing but enabled in config"
	}

	status.Components["languages"] = fmt.Sprintf("ok (%d)", len(st.extractor.SupportedExtensions()))
	status.Components["memory"] = fmt.Sprintf("%d MB heap", util.HeapAllocMB())
	return status
}
