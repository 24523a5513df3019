// internal/server/server.go
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"time"

	"github.com/ThinkInAIXYZ/go-mcp/protocol"
	"go.uber.org/zap"

	"mcp-prenatal-log/internal/tracker"
)

type Config struct {
	Host string
	Port int
}

var serverInfo = protocol.Implementation{
	Name:    "prenatal-log",
	Version: "1.0.0",
}

type PrenatalLogServer struct {
	httpServer *http.Server
	handler    *toolHandler
	config     *Config
	logger     *zap.Logger
}

func NewPrenatalLogServer(cfg *Config, svc *tracker.Service, logger *zap.Logger) *PrenatalLogServer {
	s := &PrenatalLogServer{
		handler: newToolHandler(svc, logger),
		config:  cfg,
		logger:  logger,
	}

	mux := http.NewServeMux()
	mux.Handle("/", s.handler)
	mux.HandleFunc("/healthz", s.handler.health)

	s.httpServer = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

func (s *PrenatalLogServer) Start(ctx context.Context) error {
	s.logger.Info("Starting prenatal log server", zap.String("addr", s.httpServer.Addr))
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Stop waits for in-flight requests until ctx is done.
func (s *PrenatalLogServer) Stop(ctx context.Context) error {
	if s.httpServer != nil {
		return s.httpServer.Shutdown(ctx)
	}
	return nil
}

// toolHandler decodes an MCP tool call posted over HTTP and dispatches it by
// tool name.
type toolHandler struct {
	svc    *tracker.Service
	logger *zap.Logger
	tools  map[string]toolFunc
}

type toolFunc func(ctx context.Context, req *protocol.CallToolRequest) (*protocol.CallToolResult, error)

type healthBody struct {
	Server protocol.Implementation `json:"server"`
	Tools  []string                `json:"tools"`
}

// health reports the server identity and the registered tool names.
func (h *toolHandler) health(w http.ResponseWriter, r *http.Request) {
	body := healthBody{Server: serverInfo, Tools: make([]string, 0, len(h.tools))}
	for name := range h.tools {
		body.Tools = append(body.Tools, name)
	}
	sort.Strings(body.Tools)

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(body); err != nil {
		h.logger.Warn("Failed to encode health response", zap.Error(err))
	}
}

func (h *toolHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

	if r.Method == http.MethodOptions {
		return
	}
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "Method not allowed", "")
		return
	}

	var request protocol.CallToolRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", fmt.Sprintf("Invalid JSON: %v", err), "")
		return
	}

	tool, ok := h.tools[request.Name]
	if !ok {
		writeError(w, http.StatusNotFound, "unknown_tool", fmt.Sprintf("Unknown tool: %s", request.Name), "")
		return
	}

	start := time.Now()
	result, err := tool(r.Context(), &request)
	if err != nil {
		status, code, suggestion := classify(err)
		fields := []zap.Field{
			zap.String("tool", request.Name),
			zap.Int("status", status),
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(err),
		}
		if status >= http.StatusInternalServerError {
			h.logger.Error("Tool call failed", fields...)
		} else {
			h.logger.Info("Tool call rejected", fields...)
		}
		if status == http.StatusServiceUnavailable {
			w.Header().Set("Retry-After", "30")
		}
		writeError(w, status, code, err.Error(), suggestion)
		return
	}

	h.logger.Debug("Tool call served",
		zap.String("tool", request.Name),
		zap.Duration("elapsed", time.Since(start)),
	)
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(result); err != nil {
		h.logger.Warn("Failed to encode response", zap.Error(err))
	}
}

func createJSONResponse(data interface{}) (*protocol.CallToolResult, error) {
	jsonBytes, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal response: %w", err)
	}

	return &protocol.CallToolResult{
		Content: []protocol.Content{
			protocol.TextContent{
				Type: "text",
				Text: string(jsonBytes),
			},
		},
	}, nil
}
