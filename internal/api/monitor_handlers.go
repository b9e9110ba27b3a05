package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
)

func (s *Server) registerMonitorRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "getMonitorStatus",
		Method:      http.MethodGet,
		Path:        "/api/v1/monitor/status",
		Summary:     "Get monitor status",
		Description: "Returns whether the directory monitor is running and its counters",
		Tags:        []string{"Monitor"},
	}, s.handleMonitorStatus)

	huma.Register(s.api, huma.Operation{
		OperationID: "startMonitor",
		Method:      http.MethodPost,
		Path:        "/api/v1/monitor/start",
		Summary:     "Start monitor",
		Description: "Starts watching the data directory. No-op if already running",
		Tags:        []string{"Monitor"},
	}, s.handleMonitorStart)

	huma.Register(s.api, huma.Operation{
		OperationID: "stopMonitor",
		Method:      http.MethodPost,
		Path:        "/api/v1/monitor/stop",
		Summary:     "Stop monitor",
		Description: "Stops watching the data directory. In-flight files finish processing",
		Tags:        []string{"Monitor"},
	}, s.handleMonitorStop)
}

// === DTOs ===

type MonitorStatusResponse struct {
	Running    bool   `json:"running" doc:"Whether the monitor is watching"`
	Pending    int    `json:"pending" doc:"Files in the debounce window"`
	Processing int    `json:"processing" doc:"Files being processed"`
	Dropped    uint64 `json:"dropped" doc:"Files dropped at capacity since start"`
}

type MonitorStatusOutput struct {
	Body MonitorStatusResponse
}

// === Handlers ===

func (s *Server) handleMonitorStatus(_ context.Context, _ *struct{}) (*MonitorStatusOutput, error) {
	return s.monitorStatus(), nil
}

func (s *Server) handleMonitorStart(_ context.Context, _ *struct{}) (*MonitorStatusOutput, error) {
	if err := s.monitor.Start(); err != nil {
		return nil, err
	}

	return s.monitorStatus(), nil
}

func (s *Server) handleMonitorStop(_ context.Context, _ *struct{}) (*MonitorStatusOutput, error) {
	s.monitor.Stop()

	return s.monitorStatus(), nil
}

func (s *Server) monitorStatus() *MonitorStatusOutput {
	snap := s.monitor.Stats()
	return &MonitorStatusOutput{Body: MonitorStatusResponse{
		Running:    s.monitor.IsRunning(),
		Pending:    snap.Pending,
		Processing: snap.Processing,
		Dropped:    snap.Dropped,
	}}
}
