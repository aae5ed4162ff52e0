package main

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/urfave/cli/v2"

	"github.com/hpungsan/chartd/internal/chart"
	"github.com/hpungsan/chartd/internal/config"
	"github.com/hpungsan/chartd/internal/db"
	"github.com/hpungsan/chartd/internal/ops"
)

// setupTestDB creates a temporary database for testing.
func setupTestDB(t *testing.T) (*sql.DB, func()) {
	t.Helper()
	tmpDir := t.TempDir()
	database, err := db.Init(tmpDir)
	if err != nil {
		t.Fatalf("failed to init test db: %v", err)
	}
	cleanup := func() {
		database.Close()
	}
	return database, cleanup
}

// testConfig returns a default config for testing.
func testConfig() *config.Config {
	cfg := config.DefaultConfig()
	cfg.BaseOrigin = "https://charts.example.com"
	return cfg
}

// runCLI runs the app with args, feeding stdin when non-empty, and returns
// what the command wrote to stdout.
func runCLI(t *testing.T, app *cli.App, stdin string, args ...string) (string, error) {
	t.Helper()

	// Capture stdout
	oldStdout := os.Stdout
	r, w, _ := os.Pipe()
	os.Stdout = w

	oldStdin := os.Stdin
	if stdin != "" {
		stdinR, stdinW, _ := os.Pipe()
		os.Stdin = stdinR
		go func() {
			_, _ = stdinW.WriteString(stdin)
			stdinW.Close()
		}()
	}

	err := app.Run(append([]string{"chartd"}, args...))

	os.Stdin = oldStdin
	w.Close()
	var buf bytes.Buffer
	_, _ = buf.ReadFrom(r)
	os.Stdout = oldStdout

	return buf.String(), err
}

func signUp(t *testing.T, app *cli.App, email string) {
	t.Helper()
	if _, err := runCLI(t, app, "", "signup", "--email", email, "--password", "correct-horse"); err != nil {
		t.Fatalf("signup failed: %v", err)
	}
}

func TestCLIURL(t *testing.T) {
	app := newCLIApp(nil, testConfig(), nil, nil)

	out, err := runCLI(t, app, "", "url", "--config", `{"type":"bar","data":{}}`, "--width", "400")
	if err != nil {
		t.Fatalf("url command failed: %v", err)
	}

	var output urlOutput
	if err := json.Unmarshal([]byte(out), &output); err != nil {
		t.Fatalf("failed to parse output: %v\nOutput: %s", err, out)
	}

	u, err := url.Parse(output.URL)
	if err != nil {
		t.Fatalf("url.Parse: %v", err)
	}
	if u.Host != "charts.example.com" || u.Path != "/api/chart" {
		t.Errorf("url = %s, want configured origin and path", output.URL)
	}
	q := u.Query()
	if q.Get("c") != `{"type":"bar","data":{}}` || q.Get("w") != "400" || q.Get("h") != "600" {
		t.Errorf("query = %v", q)
	}
	if len(output.Examples) != 0 {
		t.Error("examples returned without --examples")
	}
}

func TestCLIURL_Stdin(t *testing.T) {
	app := newCLIApp(nil, testConfig(), nil, nil)

	out, err := runCLI(t, app, "{\"type\":\"line\"}\n", "url", "--origin", "http://localhost:9000", "--examples")
	if err != nil {
		t.Fatalf("url command failed: %v", err)
	}

	var output urlOutput
	if err := json.Unmarshal([]byte(out), &output); err != nil {
		t.Fatalf("failed to parse output: %v\nOutput: %s", err, out)
	}
	if output.Specification.ConfigText != `{"type":"line"}` {
		t.Errorf("config = %q, want stdin text", output.Specification.ConfigText)
	}
	if !strings.HasPrefix(output.URL, "http://localhost:9000/api/chart?") {
		t.Errorf("url = %s, want --origin", output.URL)
	}
	if len(output.Examples) == 0 {
		t.Error("expected examples with --examples")
	}
}

func TestCLIURL_Preset(t *testing.T) {
	extra := chart.Presets{{Key: "spark", Name: "Sparkline", Config: `{"type":"line","data":{"datasets":[]}}`}}
	app := newCLIApp(nil, testConfig(), extra, nil)

	out, err := runCLI(t, app, "", "url", "--preset", "spark")
	if err != nil {
		t.Fatalf("url command failed: %v", err)
	}
	var output urlOutput
	if err := json.Unmarshal([]byte(out), &output); err != nil {
		t.Fatalf("failed to parse output: %v\nOutput: %s", err, out)
	}
	if output.Specification.ConfigText != extra[0].Config {
		t.Errorf("config = %q, want preset config", output.Specification.ConfigText)
	}

	_, err = runCLI(t, app, "", "url", "--preset", "radar")
	if err == nil || !strings.Contains(err.Error(), "[NOT_FOUND]") {
		t.Errorf("unknown preset error = %v, want [NOT_FOUND]", err)
	}

	_, err = runCLI(t, app, "", "url", "--preset", "bar", "--config", "{}")
	if err == nil || !strings.Contains(err.Error(), "[VALIDATION]") {
		t.Errorf("preset+config error = %v, want [VALIDATION]", err)
	}
}

func TestCLIPresets(t *testing.T) {
	extra := chart.Presets{{Key: "spark", Name: "Sparkline", Config: `{"type":"line"}`}}
	app := newCLIApp(nil, testConfig(), extra, nil)

	out, err := runCLI(t, app, "", "presets")
	if err != nil {
		t.Fatalf("presets command failed: %v", err)
	}

	var output struct {
		Presets chart.Presets `json:"presets"`
	}
	if err := json.Unmarshal([]byte(out), &output); err != nil {
		t.Fatalf("failed to parse output: %v\nOutput: %s", err, out)
	}
	for _, key := range []string{"bar", "line", "pie", "doughnut", "spark"} {
		if _, ok := output.Presets.Lookup(key); !ok {
			t.Errorf("preset %q missing", key)
		}
	}
}

func TestCLIRender(t *testing.T) {
	app := newCLIApp(nil, testConfig(), nil, nil)
	path := filepath.Join(t.TempDir(), "out.png")

	_, err := runCLI(t, app, "", "render", "--preset", "bar", "--width", "300", "--height", "200", "--out", path)
	if err != nil {
		t.Fatalf("render command failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if !bytes.HasPrefix(data, []byte("\x89PNG")) {
		t.Errorf("output is not a PNG (first bytes %q)", data[:min(8, len(data))])
	}

	_, err = runCLI(t, app, "", "render", "--preset", "bar", "--format", "gif", "--out", path)
	if err == nil || !strings.Contains(err.Error(), "[VALIDATION]") {
		t.Errorf("bad format error = %v, want [VALIDATION]", err)
	}

	_, err = runCLI(t, app, "", "render", "--config", "{not json", "--out", path)
	if err == nil || !strings.Contains(err.Error(), "[VALIDATION]") {
		t.Errorf("bad config error = %v, want [VALIDATION]", err)
	}
}

func TestCLISavedChartsFlow(t *testing.T) {
	database, cleanup := setupTestDB(t)
	defer cleanup()
	cfg := testConfig()
	app := newCLIApp(database, cfg, nil, nil)

	signUp(t, app, "ada@example.com")
	creds := []string{"--email", "ada@example.com", "--password", "correct-horse"}

	// Save A then B
	var saved chartOutput
	for _, title := range []string{"A", "B"} {
		args := append([]string{"save", "--title", title, "--config", `{"type":"pie"}`, "--width", "640"}, creds...)
		out, err := runCLI(t, app, "", args...)
		if err != nil {
			t.Fatalf("save %s failed: %v", title, err)
		}
		if title == "A" {
			if err := json.Unmarshal([]byte(out), &saved); err != nil {
				t.Fatalf("failed to parse output: %v\nOutput: %s", err, out)
			}
		}
	}
	if saved.Chart.ChartType != "pie" {
		t.Errorf("chart_type = %q, want pie", saved.Chart.ChartType)
	}

	// List newest first
	out, err := runCLI(t, app, "", append([]string{"list"}, creds...)...)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	var listed ops.ListOutput
	if err := json.Unmarshal([]byte(out), &listed); err != nil {
		t.Fatalf("failed to parse output: %v\nOutput: %s", err, out)
	}
	if len(listed.Items) != 2 || listed.Items[0].Title != "B" || listed.Items[1].Title != "A" {
		t.Fatalf("list = %+v, want [B A]", listed.Items)
	}

	// Load reproduces the saved URL
	out, err = runCLI(t, app, "", append([]string{"load", "--id", saved.Chart.ID}, creds...)...)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	var loaded chartOutput
	if err := json.Unmarshal([]byte(out), &loaded); err != nil {
		t.Fatalf("failed to parse output: %v\nOutput: %s", err, out)
	}
	if loaded.URL != saved.URL {
		t.Errorf("load url = %s, want %s", loaded.URL, saved.URL)
	}
	if loaded.Specification.Height != "600" {
		t.Errorf("height = %q, want default 600", loaded.Specification.Height)
	}

	// Delete
	out, err = runCLI(t, app, "", append([]string{"delete", "--id", saved.Chart.ID}, creds...)...)
	if err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	var removed ops.RemoveOutput
	if err := json.Unmarshal([]byte(out), &removed); err != nil {
		t.Fatalf("failed to parse output: %v\nOutput: %s", err, out)
	}
	if !removed.Removed {
		t.Error("expected removed=true")
	}

	n, err := db.CountChartsByOwner(t.Context(), database, listed.Items[0].OwnerID)
	if err != nil {
		t.Fatalf("CountChartsByOwner: %v", err)
	}
	if n != 1 {
		t.Errorf("count = %d, want 1", n)
	}

	// Password sign-ins do not leave sessions behind
	var sessions int
	if err := database.QueryRow(`SELECT COUNT(*) FROM sessions`).Scan(&sessions); err != nil {
		t.Fatalf("count sessions: %v", err)
	}
	if sessions != 0 {
		t.Errorf("sessions = %d, want 0", sessions)
	}
}

func TestCLISigninToken(t *testing.T) {
	database, cleanup := setupTestDB(t)
	defer cleanup()
	app := newCLIApp(database, testConfig(), nil, nil)

	signUp(t, app, "ada@example.com")

	out, err := runCLI(t, app, "", "signin", "--email", "ada@example.com", "--password", "correct-horse")
	if err != nil {
		t.Fatalf("signin failed: %v", err)
	}
	var signin struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal([]byte(out), &signin); err != nil {
		t.Fatalf("failed to parse output: %v\nOutput: %s", err, out)
	}
	if signin.Token == "" {
		t.Fatal("expected a token")
	}

	_, err = runCLI(t, app, `{"type":"line"}`, "save", "--title", "via token", "--token", signin.Token)
	if err != nil {
		t.Fatalf("save with token failed: %v", err)
	}

	out, err = runCLI(t, app, "", "list", "--token", signin.Token)
	if err != nil {
		t.Fatalf("list with token failed: %v", err)
	}
	var listed ops.ListOutput
	if err := json.Unmarshal([]byte(out), &listed); err != nil {
		t.Fatalf("failed to parse output: %v\nOutput: %s", err, out)
	}
	if len(listed.Items) != 1 || listed.Items[0].Title != "via token" || listed.Items[0].ChartType != "line" {
		t.Errorf("list = %+v", listed.Items)
	}

	_, err = runCLI(t, app, "", "list", "--token", "not-a-token")
	if err == nil || !strings.Contains(err.Error(), "[UNAUTHENTICATED]") {
		t.Errorf("bad token error = %v, want [UNAUTHENTICATED]", err)
	}
}

// TestCLIErrorHandling tests error handling in CLI commands.
func TestCLIErrorHandling(t *testing.T) {
	database, cleanup := setupTestDB(t)
	defer cleanup()
	app := newCLIApp(database, testConfig(), nil, nil)

	signUp(t, app, "ada@example.com")
	creds := []string{"--email", "ada@example.com", "--password", "correct-horse"}

	tests := []struct {
		name string
		args []string
		code string
	}{
		{"duplicate signup", []string{"signup", "--email", "ADA@example.com", "--password", "correct-horse"}, "[CONFLICT]"},
		{"short password", []string{"signup", "--email", "bob@example.com", "--password", "short"}, "[VALIDATION]"},
		{"wrong password", []string{"list", "--email", "ada@example.com", "--password", "wrong-horse"}, "[UNAUTHENTICATED]"},
		{"no credentials", []string{"list"}, "[UNAUTHENTICATED]"},
		{"empty title", append([]string{"save", "--title", "  ", "--config", "{}"}, creds...), "[VALIDATION]"},
		{"malformed config", append([]string{"save", "--title", "x", "--config", "{not json"}, creds...), "[VALIDATION]"},
		{"missing delete id", append([]string{"delete"}, creds...), "[VALIDATION]"},
		{"load unknown id", append([]string{"load", "--id", "01ARZ3NDEKTSV4RRFFQ69G5FAV"}, creds...), "[NOT_FOUND]"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// cli.Exit writes to stderr, so just verify the error is returned
			_, err := runCLI(t, app, "", tt.args...)
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if !strings.Contains(err.Error(), tt.code) {
				t.Errorf("error = %q, want %s", err.Error(), tt.code)
			}
		})
	}

	var n int
	if err := database.QueryRow(`SELECT COUNT(*) FROM saved_charts`).Scan(&n); err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 0 {
		t.Errorf("saved_charts = %d, want 0 after failed saves", n)
	}
}

func TestCLIDelete_MissingIDIsSilent(t *testing.T) {
	database, cleanup := setupTestDB(t)
	defer cleanup()
	app := newCLIApp(database, testConfig(), nil, nil)

	signUp(t, app, "ada@example.com")
	out, err := runCLI(t, app, "", "delete", "--id", "01ARZ3NDEKTSV4RRFFQ69G5FAV",
		"--email", "ada@example.com", "--password", "correct-horse")
	if err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	var removed ops.RemoveOutput
	if err := json.Unmarshal([]byte(out), &removed); err != nil {
		t.Fatalf("failed to parse output: %v\nOutput: %s", err, out)
	}
	if removed.Removed {
		t.Error("expected removed=false for a missing id")
	}
}

// TestIsCLIMode tests the isCLIMode function.
func TestIsCLIMode(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		expected bool
	}{
		{name: "no args", args: []string{"chartd"}, expected: false},
		{name: "serve command", args: []string{"chartd", "serve"}, expected: true},
		{name: "url command", args: []string{"chartd", "url"}, expected: true},
		{name: "mcp command", args: []string{"chartd", "mcp"}, expected: true},
		{name: "help flag", args: []string{"chartd", "--help"}, expected: true},
		{name: "version flag", args: []string{"chartd", "--version"}, expected: true},
		{name: "short help flag", args: []string{"chartd", "-h"}, expected: true},
		{name: "short version flag", args: []string{"chartd", "-v"}, expected: true},
		{name: "unknown arg defaults to MCP", args: []string{"chartd", "--unknown"}, expected: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Save and restore os.Args
			oldArgs := os.Args
			defer func() { os.Args = oldArgs }()

			os.Args = tt.args
			result := isCLIMode()

			if result != tt.expected {
				t.Errorf("expected %v, got %v", tt.expected, result)
			}
		})
	}
}

// TestIsHelpOrVersion tests the isHelpOrVersion function.
func TestIsHelpOrVersion(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		expected bool
	}{
		{name: "no args", args: []string{"chartd"}, expected: false},
		{name: "help flag", args: []string{"chartd", "--help"}, expected: true},
		{name: "short help flag", args: []string{"chartd", "-h"}, expected: true},
		{name: "version flag", args: []string{"chartd", "--version"}, expected: true},
		{name: "short version flag", args: []string{"chartd", "-v"}, expected: true},
		{name: "help subcommand", args: []string{"chartd", "help"}, expected: true},
		{name: "save command is not help", args: []string{"chartd", "save"}, expected: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			oldArgs := os.Args
			defer func() { os.Args = oldArgs }()

			os.Args = tt.args
			result := isHelpOrVersion()

			if result != tt.expected {
				t.Errorf("expected %v, got %v", tt.expected, result)
			}
		})
	}
}

// TestReadStdinWithLimit tests that readStdin rejects oversized input.
func TestReadStdinWithLimit(t *testing.T) {
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("os.Pipe: %v", err)
	}
	oldStdin := os.Stdin
	os.Stdin = r
	defer func() { os.Stdin = oldStdin }()

	go func() {
		_, _ = w.Write(bytes.Repeat([]byte("x"), maxStdinBytes+10))
		w.Close()
	}()

	if _, err := readStdin(); err == nil || !strings.Contains(err.Error(), "VALIDATION") {
		t.Errorf("readStdin error = %v, want VALIDATION", err)
	}
}
