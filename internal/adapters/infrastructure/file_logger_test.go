package infrastructure

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"homeweather.app/internal/ports"
)

func readLines(t *testing.T, path string) []map[string]interface{} {
	t.Helper()
	content, err := os.ReadFile(path)
	require.NoError(t, err)

	var entries []map[string]interface{}
	for _, line := range strings.Split(strings.TrimSpace(string(content)), "\n") {
		if line == "" {
			continue
		}
		var entry map[string]interface{}
		require.NoError(t, json.Unmarshal([]byte(line), &entry), "line should be valid JSON: %s", line)
		entries = append(entries, entry)
	}
	return entries
}

func TestFileLoggerAdapter_NewFileLoggerAdapter(t *testing.T) {
	tests := []struct {
		name        string
		logPath     func(dir string) string
		expectError bool
		errorMsg    string
	}{
		{
			name:    "valid_path",
			logPath: func(dir string) string { return filepath.Join(dir, "weather.log") },
		},
		{
			name:    "nested_path",
			logPath: func(dir string) string { return filepath.Join(dir, "nested", "deep", "weather.log") },
		},
		{
			name:        "empty_path",
			logPath:     func(string) string { return "" },
			expectError: true,
			errorMsg:    "log file path cannot be empty",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := tt.logPath(t.TempDir())
			logger, err := NewFileLoggerAdapter(path)

			if tt.expectError {
				assert.Error(t, err)
				assert.Nil(t, logger)
				assert.Contains(t, err.Error(), tt.errorMsg)
				return
			}

			require.NoError(t, err)
			defer logger.Close()
			assert.DirExists(t, filepath.Dir(path))
		})
	}
}

func TestFileLoggerAdapter_LogLevels(t *testing.T) {
	path := filepath.Join(t.TempDir(), "levels.log")
	logger, err := NewFileLoggerAdapter(path)
	require.NoError(t, err)
	logger.now = func() time.Time { return time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC) }

	logger.Debug("Debug message", ports.F("key", "value"))
	logger.Info("Weather API request completed",
		ports.F("provider", "weatherapi"),
		ports.F("location", "London"),
		ports.F("duration_ms", 1250),
		ports.F("temperature", 15.5))
	logger.Warn("Provider failed, trying next", ports.F("error", fmt.Errorf("timeout")))
	logger.Error("All weather providers failed")
	require.NoError(t, logger.Close())

	entries := readLines(t, path)
	require.Len(t, entries, 4)

	assert.Equal(t, "DEBUG", entries[0]["level"])
	assert.Equal(t, "value", entries[0]["key"])

	assert.Equal(t, "INFO", entries[1]["level"])
	assert.Equal(t, "Weather API request completed", entries[1]["message"])
	assert.Equal(t, "London", entries[1]["location"])
	assert.Equal(t, float64(1250), entries[1]["duration_ms"])
	assert.Equal(t, 15.5, entries[1]["temperature"])
	assert.Equal(t, "2024-06-01T10:00:00Z", entries[1]["timestamp"])

	assert.Equal(t, "WARN", entries[2]["level"])
	assert.Equal(t, "timeout", entries[2]["error"])

	assert.Equal(t, "ERROR", entries[3]["level"])
}

func TestFileLoggerAdapter_ReservedKeysWin(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reserved.log")
	logger, err := NewFileLoggerAdapter(path)
	require.NoError(t, err)

	logger.Info("real message", ports.F("message", "shadow"), ports.F("level", "DEBUG"))
	require.NoError(t, logger.Close())

	entries := readLines(t, path)
	require.Len(t, entries, 1)
	assert.Equal(t, "real message", entries[0]["message"])
	assert.Equal(t, "INFO", entries[0]["level"])
}

func TestFileLoggerAdapter_ConcurrentLogging(t *testing.T) {
	path := filepath.Join(t.TempDir(), "concurrent.log")
	logger, err := NewFileLoggerAdapter(path)
	require.NoError(t, err)

	const goroutines, perGoroutine = 10, 5
	var wg sync.WaitGroup
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			for j := 0; j < perGoroutine; j++ {
				logger.Info(fmt.Sprintf("Message from goroutine %d", id),
					ports.F("goroutine_id", id),
					ports.F("message_id", j))
			}
		}(i)
	}
	wg.Wait()
	require.NoError(t, logger.Close())

	entries := readLines(t, path)
	assert.Len(t, entries, goroutines*perGoroutine)
	for _, entry := range entries {
		assert.Contains(t, entry, "goroutine_id")
		assert.Contains(t, entry, "message_id")
	}
}

func TestFileLoggerAdapter_AppendsAcrossInstances(t *testing.T) {
	path := filepath.Join(t.TempDir(), "append.log")

	first, err := NewFileLoggerAdapter(path)
	require.NoError(t, err)
	first.Info("First message")
	require.NoError(t, first.Close())

	second, err := NewFileLoggerAdapter(path)
	require.NoError(t, err)
	second.Info("Second message")
	require.NoError(t, second.Close())

	entries := readLines(t, path)
	require.Len(t, entries, 2)
	assert.Equal(t, "First message", entries[0]["message"])
	assert.Equal(t, "Second message", entries[1]["message"])

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0644), info.Mode().Perm())
}

func TestFileLoggerAdapter_UnmarshalableField(t *testing.T) {
	path := filepath.Join(t.TempDir(), "invalid.log")
	logger, err := NewFileLoggerAdapter(path)
	require.NoError(t, err)

	logger.Info("Test message", ports.F("channel", make(chan int)))
	require.NoError(t, logger.Close())

	entries := readLines(t, path)
	require.Len(t, entries, 1)
	assert.Contains(t, entries[0]["message"], "failed to marshal log entry")
}

func TestFileLoggerAdapter_WriteAfterClose(t *testing.T) {
	path := filepath.Join(t.TempDir(), "closed.log")
	logger, err := NewFileLoggerAdapter(path)
	require.NoError(t, err)
	require.NoError(t, logger.Close())

	assert.NotPanics(t, func() { logger.Info("dropped") })
	assert.NoError(t, logger.Close())
}

func BenchmarkFileLoggerAdapter_Info(b *testing.B) {
	logger, err := NewFileLoggerAdapter(filepath.Join(b.TempDir(), "benchmark.log"))
	require.NoError(b, err)
	defer logger.Close()

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			logger.Info("Benchmark message",
				ports.F("provider", "weatherapi"),
				ports.F("location", "London"),
				ports.F("temperature", 15.5))
		}
	})
}
