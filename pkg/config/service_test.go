package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// clearWorkerEnv blanks every variable the loader reads so the surrounding
// environment cannot leak into a test.
func clearWorkerEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"SERIAL_PORT", "SERIAL_TCP", "BAUDRATE", "CSV_PATH", "CSV_SCHEMA",
		"SYNC_EVERY_WRITE", "DATA_PREFIX", "DEFAULT_LAT", "DEFAULT_LON",
		"PRINT_EVERY_WRITE", "SLEEP_SEC", "MAX_WRITE_FAILURES",
		"LISTEN_ADDRESS", "LISTEN_PORT",
	} {
		t.Setenv(key, "")
	}
}

func TestLoadWorkerConfigDefaults(t *testing.T) {
	clearWorkerEnv(t)
	configPath := filepath.Join(t.TempDir(), "flood_worker.toml")
	t.Setenv("CONFIG_PATH", configPath)

	require.NoError(t, LoadWorkerConfig())
	cfg := ActiveWorkerConfig

	assert.Equal(t, "AUTO", cfg.SerialPort)
	assert.Equal(t, "", cfg.SerialTCP)
	assert.Equal(t, uint(115200), cfg.Baudrate)
	assert.Equal(t, "/var/lib/flood_station/readings.csv", cfg.CSVPath)
	assert.Equal(t, DefaultCSVSchema, cfg.CSVSchema)
	assert.True(t, cfg.SyncEveryWrite)
	assert.Equal(t, "DATA,", cfg.DataPrefix)
	assert.Equal(t, 27.7742, cfg.DefaultLat)
	assert.Equal(t, -97.5128, cfg.DefaultLon)
	assert.False(t, cfg.PrintEveryWrite)
	assert.Equal(t, 2, cfg.SleepSec)
	assert.Equal(t, 0, cfg.MaxWriteFailures)
	assert.Equal(t, "0.0.0.0", cfg.ListenAddress)
	assert.Equal(t, 9039, cfg.ListenPort)

	// A default config file is written on first run
	_, err := os.Stat(configPath)
	assert.NoError(t, err)
}

func TestLoadWorkerConfigEnvOverrides(t *testing.T) {
	clearWorkerEnv(t)
	t.Setenv("CONFIG_PATH", filepath.Join(t.TempDir(), "flood_worker.toml"))
	t.Setenv("SERIAL_TCP", "bridge.local:2000")
	t.Setenv("SERIAL_PORT", "/dev/ttyACM1")
	t.Setenv("BAUDRATE", "9600")
	t.Setenv("CSV_PATH", "/tmp/flood.csv")
	t.Setenv("DEFAULT_LAT", "29.3013")
	t.Setenv("DEFAULT_LON", "-94.7977")
	t.Setenv("PRINT_EVERY_WRITE", "1")
	t.Setenv("SYNC_EVERY_WRITE", "false")
	t.Setenv("SLEEP_SEC", "5")
	t.Setenv("MAX_WRITE_FAILURES", "10")

	require.NoError(t, LoadWorkerConfig())
	cfg := ActiveWorkerConfig

	assert.Equal(t, "bridge.local:2000", cfg.SerialTCP)
	assert.Equal(t, "/dev/ttyACM1", cfg.SerialPort)
	assert.Equal(t, uint(9600), cfg.Baudrate)
	assert.Equal(t, "/tmp/flood.csv", cfg.CSVPath)
	assert.Equal(t, 29.3013, cfg.DefaultLat)
	assert.Equal(t, -94.7977, cfg.DefaultLon)
	assert.True(t, cfg.PrintEveryWrite)
	assert.False(t, cfg.SyncEveryWrite)
	assert.Equal(t, 5, cfg.SleepSec)
	assert.Equal(t, 10, cfg.MaxWriteFailures)
}

func TestLoadWorkerConfigFileAndPrecedence(t *testing.T) {
	clearWorkerEnv(t)
	configPath := filepath.Join(t.TempDir(), "flood_worker.toml")
	fileContents := `serial_port = "/dev/ttyUSB3"
baudrate = 57600
csv_path = "/srv/flood/log.csv"
sleep_sec = 7
`
	require.NoError(t, os.WriteFile(configPath, []byte(fileContents), 0644))
	t.Setenv("CONFIG_PATH", configPath)
	// Environment beats the file
	t.Setenv("CSV_PATH", "/tmp/override.csv")

	require.NoError(t, LoadWorkerConfig())
	cfg := ActiveWorkerConfig

	assert.Equal(t, "/dev/ttyUSB3", cfg.SerialPort)
	assert.Equal(t, uint(57600), cfg.Baudrate)
	assert.Equal(t, "/tmp/override.csv", cfg.CSVPath)
	assert.Equal(t, 7, cfg.SleepSec)
	// Options absent from file and env keep their defaults
	assert.Equal(t, "DATA,", cfg.DataPrefix)
	assert.Equal(t, DefaultCSVSchema, cfg.CSVSchema)
}

func TestEnvBoolValues(t *testing.T) {
	tests := []struct {
		value string
		want  bool
	}{
		{"1", true},
		{"true", true},
		{"YES", true},
		{"on", true},
		{"0", false},
		{"false", false},
		{"no", false},
		{"OFF", false},
	}

	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			t.Setenv("PRINT_EVERY_WRITE", tt.value)
			target := !tt.want
			envBool("PRINT_EVERY_WRITE", &target)
			assert.Equal(t, tt.want, target)
		})
	}

	t.Run("garbage leaves the default", func(t *testing.T) {
		t.Setenv("PRINT_EVERY_WRITE", "maybe")
		target := true
		envBool("PRINT_EVERY_WRITE", &target)
		assert.True(t, target)
	})
}
