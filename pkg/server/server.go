// Package server provides the MCP server for CO2 trip comparisons.
package server

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"sync"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/NERVsystems/co2mcp/pkg/emissions"
	"github.com/NERVsystems/co2mcp/pkg/estimator"
	"github.com/NERVsystems/co2mcp/pkg/tools"
	"github.com/NERVsystems/co2mcp/pkg/version"
)

const (
	// ServerName is the name of the MCP server
	ServerName = "co2-mcp-server"

	// PromptName names the trip assistant prompt.
	PromptName = "co2_trip_assistant"
)

// Config holds the services the tools use.
type Config struct {
	Model    *estimator.Model
	Searcher tools.Searcher
}

// Server encapsulates the MCP server with the CO2 tools.
type Server struct {
	srv       *mcpserver.MCPServer
	registry  *tools.Registry
	logger    *slog.Logger
	stopCh    chan struct{}
	doneCh    chan struct{}
	running   bool
	mu        sync.Mutex
	once      sync.Once
	ctxCancel context.CancelFunc
	ctxOnce   sync.Once
}

// NewServer creates a new MCP server with all tools registered.
func NewServer(cfg Config) (*Server, error) {
	logger := slog.Default()
	logger.Info("initializing CO2 MCP server",
		"name", ServerName,
		"version", version.BuildVersion,
		"model_loaded", cfg.Model != nil,
		"geocoder", cfg.Searcher != nil)

	srv := mcpserver.NewMCPServer(
		ServerName,
		version.BuildVersion,
		mcpserver.WithToolCapabilities(false),
		mcpserver.WithRecovery(),
	)

	registry := tools.NewRegistry(logger, cfg.Model, cfg.Searcher)
	registry.RegisterTools(srv)

	prompt := mcp.NewPrompt(PromptName,
		mcp.WithPromptDescription("Instructions for answering travel CO2 questions with these tools"),
	)
	srv.AddPrompt(prompt, func(ctx context.Context, req mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
		return mcp.NewGetPromptResult(
			"CO2 Trip Assistant Instructions",
			[]mcp.PromptMessage{
				mcp.NewPromptMessage(mcp.RoleAssistant, mcp.NewTextContent(AssistantPrompt())),
			},
		), nil
	})

	return &Server{
		srv:      srv,
		registry: registry,
		logger:   logger,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}, nil
}

// AssistantPrompt returns the system prompt served as PromptName.
func AssistantPrompt() string {
	var b strings.Builder
	b.WriteString("You help travelers compare the CO2 footprint of a journey.\n\n")
	b.WriteString("1. Use compare_trip_emissions with the start and destination as given by the user. ")
	b.WriteString("Place names, addresses and coordinates are all accepted.\n")
	b.WriteString("2. Supported modes: ")
	b.WriteString(strings.Join(emissions.ModeNames(), ", "))
	b.WriteString(". Omit modes to compare all of them.\n")
	b.WriteString("3. If the user describes their car, pass vehicle_type, vehicle_age, season and traffic_level ")
	b.WriteString("to add a model estimate, and explain the listed influences.\n")
	b.WriteString("4. Use baseline_emissions when only a distance is known.\n")
	b.WriteString("5. If a place is not found, ask for a more specific name or coordinates instead of guessing.\n")
	b.WriteString("Report per-person values and mention the savings of the cleanest mode.")
	return b.String()
}

// Run starts the MCP server using stdin/stdout for communication.
// It blocks until the server is stopped or the input is closed.
func (s *Server) Run() error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = true
	s.mu.Unlock()

	go func() {
		defer close(s.doneCh)
		err := mcpserver.ServeStdio(s.srv)
		if err != nil && err != io.EOF {
			s.logger.Error("server error", "error", err)
		}
		s.Shutdown()
	}()

	<-s.stopCh

	s.mu.Lock()
	s.running = false
	s.mu.Unlock()

	<-s.doneCh
	return nil
}

// RunWithContext starts the MCP server and shuts it down when ctx is
// canceled.
func (s *Server) RunWithContext(ctx context.Context) error {
	s.ctxOnce.Do(func() {
		derived, cancel := context.WithCancel(ctx)
		s.ctxCancel = cancel

		go func() {
			select {
			case <-derived.Done():
				s.Shutdown()
			case <-s.stopCh:
			}
		}()
	})

	return s.Run()
}

// Shutdown initiates a graceful shutdown of the server. It does not block.
func (s *Server) Shutdown() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return
	}
	s.once.Do(func() {
		close(s.stopCh)
	})
	if s.ctxCancel != nil {
		s.ctxCancel()
	}
}

// ToolNames lists the registered tools.
func (s *Server) ToolNames() []string {
	return s.registry.GetToolNames()
}
