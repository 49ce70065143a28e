package cmd

import (
	"bytes"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ghsearch/internal/config"
	"ghsearch/internal/domain"
	"ghsearch/internal/eventbus"
)

// writeTestConfig puts a config in a temp dir with the log file next to it
func writeTestConfig(t *testing.T, extra string) (configPath, logPath string) {
	t.Helper()
	dir := t.TempDir()
	configPath = filepath.Join(dir, "config.toml")
	logPath = filepath.Join(dir, "ghsearch.log")
	content := fmt.Sprintf("[log]\nfile = %q\nlevel = \"debug\"\n%s", logPath, extra)
	require.NoError(t, os.WriteFile(configPath, []byte(content), 0o600))
	return configPath, logPath
}

func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCmd()
	out := new(bytes.Buffer)
	cmd.SetOut(out)
	cmd.SetErr(out)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestRootCmd_WriteConfigAppliesFlags(t *testing.T) {
	// Given: an empty config location
	t.Setenv(config.TokenEnv, "")
	path := filepath.Join(t.TempDir(), "sub", "config.toml")

	// When: writing the config with overrides
	out, err := execute(t, "",
		"--config", path,
		"--write-config",
		"--debounce", "250ms",
		"--alert", "2s",
		"--endpoint", "http://localhost:9999/search/users",
	)

	// Then: the file holds the overridden values
	require.NoError(t, err)
	assert.Contains(t, out, "Wrote "+path)

	cfg, err := config.NewConfigService(path).Load()
	require.NoError(t, err)
	assert.Equal(t, 250*time.Millisecond, cfg.DebounceDelay())
	assert.Equal(t, 2*time.Second, cfg.AlertWindow())
	assert.Equal(t, "http://localhost:9999/search/users", cfg.Search.Endpoint)
}

func TestRootCmd_InvalidFlagValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")

	_, err := execute(t, "", "--config", path, "--write-config", "--alert", "0s")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "alert_ms must be positive")

	_, err = execute(t, "", "--config", path, "--write-config", "--debounce", "0s")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "debounce_ms must be positive")

	_, err = execute(t, "", "--config", path, "--write-config", "--endpoint", "not-a-url")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "absolute URL")
}

func TestRootCmd_RejectsExtraArgs(t *testing.T) {
	_, err := execute(t, "", "one", "two")

	assert.Error(t, err)
}

func TestRootCmd_PlainModeSearches(t *testing.T) {
	// Given: a search server and a config pointing at it
	var mu sync.Mutex
	var gotQuery, gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		defer mu.Unlock()
		gotQuery = r.URL.Query().Get("q")
		gotAuth = r.Header.Get("Authorization")
		_, _ = w.Write([]byte(`{"total_count":1,"items":[{"id":1,"login":"abby","avatar_url":"u"}]}`))
	}))
	defer srv.Close()

	t.Setenv(config.TokenEnv, "env-token")
	configPath, logPath := writeTestConfig(t, "")

	// When: running in plain mode with a query argument
	out, err := execute(t, "",
		"--plain",
		"--config", configPath,
		"--endpoint", srv.URL+"/search/users",
		"--debounce", "20ms",
		"ab",
	)

	// Then: the result is printed and the request carried the token
	require.NoError(t, err)
	assert.Contains(t, out, `"ab": users found: 1`)
	assert.Contains(t, out, "abby")
	mu.Lock()
	assert.Equal(t, "ab", gotQuery)
	assert.Equal(t, "Bearer env-token", gotAuth)
	mu.Unlock()

	// And: activity was logged to the configured file
	logData, err := os.ReadFile(logPath)
	require.NoError(t, err)
	assert.Contains(t, string(logData), "search completed")
	assert.Contains(t, string(logData), `"type":"ConfigLoaded"`)
}

func TestRootCmd_PlainModeReportsServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"message":"rate limited"}`))
	}))
	defer srv.Close()

	configPath, _ := writeTestConfig(t, fmt.Sprintf("[search]\nendpoint = %q\n[timing]\ndebounce_ms = 20\n", srv.URL))

	out, err := execute(t, "octo\n", "--plain", "--config", configPath)

	require.NoError(t, err)
	assert.Contains(t, out, "error: rate limited")
}

func TestRootCmd_BadConfigFile(t *testing.T) {
	configPath, _ := writeTestConfig(t, "[timing\n")

	_, err := execute(t, "", "--plain", "--config", configPath)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse config")
}

func TestIsTerminal_NonFileWriter(t *testing.T) {
	assert.False(t, isTerminal(new(bytes.Buffer)))
}

type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestEventLog_HoldsEventsUntilStarted(t *testing.T) {
	// Given: an event log subscribed to a bus
	bus := eventbus.New(nil)
	defer bus.Close()
	events := newEventLog()
	events.subscribe(bus)

	// When: events are published before and after start
	bus.Publish(domain.ConfigLoadedEvent{Path: "/tmp/config.toml"})
	buf := &lockedBuffer{}
	time.Sleep(20 * time.Millisecond)
	assert.Empty(t, buf.String())

	events.start(slog.New(slog.NewTextHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug})))
	bus.Publish(domain.SearchFailedEvent{Generation: 2, Query: "ab", Message: "boom"})

	// Then: both are logged in order
	require.Eventually(t, func() bool {
		return strings.Contains(buf.String(), "type=SearchFailed")
	}, time.Second, 5*time.Millisecond)
	out := buf.String()
	assert.Less(t, strings.Index(out, "type=ConfigLoaded"), strings.Index(out, "type=SearchFailed"))

	// And: a second start is ignored
	events.start(slog.Default())
}
