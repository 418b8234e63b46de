package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/wricardo/gridsnake/game/service"
	"github.com/wricardo/gridsnake/game/session"
)

func TestConstants(t *testing.T) {
	if Version == "" {
		t.Error("Version should not be empty")
	}
	if AppName != "Grid Snake Server" {
		t.Errorf("Unexpected app name %s", AppName)
	}
}

func TestNewCommand(t *testing.T) {
	cmd := newCommand()

	names := map[string]bool{}
	for _, f := range cmd.Flags {
		for _, name := range f.Names() {
			names[name] = true
		}
	}
	for _, want := range []string{"host", "port", "config-dir", "catalog", "results-dir", "tick", "debug", "ngrok", "ngrok-auth", "ngrok-domain"} {
		if !names[want] {
			t.Errorf("Expected flag --%s", want)
		}
	}

	for _, mode := range []string{"server", "http", "stdio-mcp", "mcp-stdio", "mcp"} {
		if cmd.Command(mode) == nil {
			t.Errorf("Expected mode %s", mode)
		}
	}
}

func newTestApp(t *testing.T, opts appOptions) *app {
	t.Helper()
	a, err := newApp(opts)
	if err != nil {
		t.Fatalf("Failed to initialize services: %v", err)
	}
	go a.hub.Run()
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		a.shutdown(ctx)
	})
	return a
}

func TestNewApp(t *testing.T) {
	resultsDir := filepath.Join(t.TempDir(), "results")
	a := newTestApp(t, appOptions{ResultsDir: resultsDir, TickInterval: time.Hour})

	if _, err := os.Stat(resultsDir); err != nil {
		t.Errorf("Expected results directory to be created: %v", err)
	}
	if a.service.Help(context.Background()) == "" {
		t.Error("Expected built-in help text")
	}

	info, err := a.service.StartRound(context.Background(), service.StartRequest{
		Location:  "general",
		Mode:      "solo",
		Requester: 1,
	})
	if err != nil {
		t.Fatalf("Failed to start a round: %v", err)
	}
	if a.sessions.Count() != 1 || info.Location != "general" {
		t.Errorf("Expected one running round at general, got %d", a.sessions.Count())
	}
}

func TestNewApp_CatalogDir(t *testing.T) {
	dir := t.TempDir()
	catalog := `{"congrats": "Well played!", "help": "custom help"}`
	if err := os.WriteFile(filepath.Join(dir, "default.json"), []byte(catalog), 0644); err != nil {
		t.Fatal(err)
	}

	a := newTestApp(t, appOptions{ConfigDir: dir, ResultsDir: t.TempDir()})
	if got := a.service.Catalog().Congrats; got != "Well played!" {
		t.Errorf("Expected catalog from directory, got %q", got)
	}
}

func TestNewApp_InvalidConfigDir(t *testing.T) {
	_, err := newApp(appOptions{ConfigDir: "/non/existent/path", ResultsDir: t.TempDir()})
	if err == nil {
		t.Error("Expected error for non-existent config directory")
	}
}

func TestAppHandler(t *testing.T) {
	a := newTestApp(t, appOptions{ResultsDir: t.TempDir(), TickInterval: time.Hour})
	handler := a.handler("http://localhost:8080")

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest("GET", "/healthz", nil))
	if w.Code != http.StatusOK {
		t.Errorf("Expected /healthz to answer 200, got %d", w.Code)
	}

	body := `{"jsonrpc":"2.0","id":1,"method":"tools/list"}`
	w = httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest("POST", "/mcp", strings.NewReader(body)))
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "start_round") {
		t.Errorf("Expected /mcp to list tools, got %d %s", w.Code, w.Body.String())
	}
}

func TestPruneResults(t *testing.T) {
	archive, err := session.NewFileArchive(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}

	now := time.Now()
	archive.Save(&service.Summary{ID: "old", EndedAt: now.Add(-8 * 24 * time.Hour)})
	archive.Save(&service.Summary{ID: "new", EndedAt: now})

	pruneResults(archive, resultRetention)

	if archive.Exists("old") {
		t.Error("Expected old result to be pruned")
	}
	if !archive.Exists("new") {
		t.Error("Expected recent result to be kept")
	}
}

func TestExternalServerAvailable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/healthz" {
			t.Errorf("Expected /healthz probe, got %s", r.URL.Path)
		}
		w.WriteHeader(http.StatusOK)
	}))

	if !externalServerAvailable(server.URL) {
		t.Error("Expected running server to be available")
	}

	server.Close()
	if externalServerAvailable(server.URL) {
		t.Error("Expected closed server to be unavailable")
	}
}
