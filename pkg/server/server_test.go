package server

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/NERVsystems/co2mcp/pkg/emissions"
)

func TestNewServer(t *testing.T) {
	s, err := NewServer(Config{})
	if err != nil {
		t.Fatalf("NewServer() error = %v", err)
	}
	if s.srv == nil {
		t.Fatal("NewServer() returned no MCP server")
	}
	if got := len(s.ToolNames()); got != 7 {
		t.Errorf("registered %d tools, want 7", got)
	}
}

func TestShutdownBeforeRun(t *testing.T) {
	s, err := NewServer(Config{})
	if err != nil {
		t.Fatal(err)
	}
	// Not running yet, so this must be a no-op rather than a panic.
	s.Shutdown()
	s.Shutdown()
}

func TestAssistantPrompt(t *testing.T) {
	p := AssistantPrompt()
	for _, name := range emissions.ModeNames() {
		if !strings.Contains(p, name) {
			t.Errorf("prompt does not mention mode %q", name)
		}
	}
	for _, tool := range []string{"compare_trip_emissions", "baseline_emissions"} {
		if !strings.Contains(p, tool) {
			t.Errorf("prompt does not mention tool %q", tool)
		}
	}
}

func TestToolsListOverJSONRPC(t *testing.T) {
	s, err := NewServer(Config{})
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	srv := s.srv

	initMsg := `{"jsonrpc":"2.0","id":1,"method":"initialize","params":{"protocolVersion":"2024-11-05","capabilities":{},"clientInfo":{"name":"test","version":"1.0"}}}`
	if resp := srv.HandleMessage(ctx, json.RawMessage(initMsg)); resp == nil {
		t.Fatal("no response to initialize")
	}

	resp := srv.HandleMessage(ctx, json.RawMessage(`{"jsonrpc":"2.0","id":2,"method":"tools/list"}`))
	data, err := json.Marshal(resp)
	if err != nil {
		t.Fatal(err)
	}
	for _, name := range s.ToolNames() {
		if !strings.Contains(string(data), `"`+name+`"`) {
			t.Errorf("tools/list response is missing %q", name)
		}
	}
}

func TestCallToolOverJSONRPC(t *testing.T) {
	s, err := NewServer(Config{})
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	srv := s.srv
	srv.HandleMessage(ctx, json.RawMessage(`{"jsonrpc":"2.0","id":1,"method":"initialize","params":{"protocolVersion":"2024-11-05","capabilities":{},"clientInfo":{"name":"test","version":"1.0"}}}`))

	call := `{"jsonrpc":"2.0","id":3,"method":"tools/call","params":{"name":"baseline_emissions","arguments":{"distance_km":100,"modes":["train"]}}}`
	data, err := json.Marshal(srv.HandleMessage(ctx, json.RawMessage(call)))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), `co2_per_person_kg`) {
		t.Errorf("unexpected tools/call response: %s", data)
	}
	if strings.Contains(string(data), `"isError":true`) {
		t.Errorf("tools/call returned an error: %s", data)
	}
}
