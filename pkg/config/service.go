package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/gulfcoastlabs/flood_station/pkg/pathing"
)

// DefaultCSVSchema is the column order written to the log file header.
const DefaultCSVSchema = "EntryTimeUTC,Latitude,Longitude,Temperature,Humidity,Light,Precipitation,WaterLevel"

var ActiveWorkerConfig *WorkerConfig

// LoadWorkerConfig resolves the worker configuration once at startup.
// Precedence per option: environment variable > TOML config file > default.
func LoadWorkerConfig() error {
	cfg := defaultWorkerConfig()

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = filepath.Join(pathing.GetConfigDir(), "flood_worker.toml")
	}

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		// Create default if the config dir is available
		if _, dirErr := os.Stat(filepath.Dir(configPath)); dirErr == nil {
			cfgFile, err := os.Create(configPath)
			if err != nil {
				return err
			}
			defer cfgFile.Close()
			toml.NewEncoder(cfgFile).Encode(cfg)
		}
	} else {
		if _, err := toml.DecodeFile(configPath, cfg); err != nil {
			return err
		}
	}

	applyEnv(cfg)
	ActiveWorkerConfig = cfg
	return nil
}

func defaultWorkerConfig() *WorkerConfig {
	return &WorkerConfig{
		SerialPort:       "AUTO",
		SerialTCP:        "",
		Baudrate:         115200,
		CSVPath:          pathing.GetDefaultCSVPath(),
		CSVSchema:        DefaultCSVSchema,
		SyncEveryWrite:   true,
		DataPrefix:       "DATA,",
		DefaultLat:       27.7742,
		DefaultLon:       -97.5128,
		PrintEveryWrite:  false,
		SleepSec:         2,
		MaxWriteFailures: 0,
		ListenAddress:    "0.0.0.0",
		ListenPort:       9039,
	}
}

// Empty environment values are treated as unset.
func applyEnv(cfg *WorkerConfig) {
	envString("SERIAL_PORT", &cfg.SerialPort)
	envString("SERIAL_TCP", &cfg.SerialTCP)
	envUint("BAUDRATE", &cfg.Baudrate)
	envString("CSV_PATH", &cfg.CSVPath)
	envString("CSV_SCHEMA", &cfg.CSVSchema)
	envBool("SYNC_EVERY_WRITE", &cfg.SyncEveryWrite)
	envString("DATA_PREFIX", &cfg.DataPrefix)
	envFloat("DEFAULT_LAT", &cfg.DefaultLat)
	envFloat("DEFAULT_LON", &cfg.DefaultLon)
	envBool("PRINT_EVERY_WRITE", &cfg.PrintEveryWrite)
	envInt("SLEEP_SEC", &cfg.SleepSec)
	envInt("MAX_WRITE_FAILURES", &cfg.MaxWriteFailures)
	envString("LISTEN_ADDRESS", &cfg.ListenAddress)
	envInt("LISTEN_PORT", &cfg.ListenPort)
}

func envString(key string, target *string) {
	if v := os.Getenv(key); v != "" {
		*target = v
	}
}

func envUint(key string, target *uint) {
	if v := os.Getenv(key); v != "" {
		if parsed, err := strconv.ParseUint(v, 10, 32); err == nil {
			*target = uint(parsed)
		}
	}
}

func envInt(key string, target *int) {
	if v := os.Getenv(key); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			*target = parsed
		}
	}
}

func envFloat(key string, target *float64) {
	if v := os.Getenv(key); v != "" {
		if parsed, err := strconv.ParseFloat(v, 64); err == nil {
			*target = parsed
		}
	}
}

func envBool(key string, target *bool) {
	switch strings.ToLower(os.Getenv(key)) {
	case "1", "true", "yes", "on":
		*target = true
	case "0", "false", "no", "off":
		*target = false
	}
}
