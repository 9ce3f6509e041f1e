package pathing

import (
	"os"
	"path/filepath"
)

// EnsureDataDir creates the data directory if it does not exist.
// Must be called manually on startup by the binaries that write data.
func EnsureDataDir() error {
	if _, err := os.Stat(GetDataDir()); os.IsNotExist(err) {
		return os.MkdirAll(GetDataDir(), 0755)
	}
	return nil
}

func GetDefaultCSVPath() string {
	// Join path
	return filepath.Join(GetDataDir(), "readings.csv")
}

func GetDataDir() string {
	return "/var/lib/flood_station"
}

func GetConfigDir() string {
	return "/etc/flood_station"
}
