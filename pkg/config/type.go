package config

type WorkerConfig struct {
	// Transport selection. SerialTCP takes priority over SerialPort when set.
	// SerialPort may be a device path or "AUTO" for automatic discovery.
	SerialPort string `toml:"serial_port"`
	SerialTCP  string `toml:"serial_tcp"`
	Baudrate   uint   `toml:"baudrate"`

	// Output log
	CSVPath        string `toml:"csv_path"`
	CSVSchema      string `toml:"csv_schema"`
	SyncEveryWrite bool   `toml:"sync_every_write"`

	// Frame handling
	DataPrefix string  `toml:"data_prefix"`
	DefaultLat float64 `toml:"default_lat"`
	DefaultLon float64 `toml:"default_lon"`

	// Worker behavior
	PrintEveryWrite  bool `toml:"print_every_write"`
	SleepSec         int  `toml:"sleep_sec"`
	MaxWriteFailures int  `toml:"max_write_failures"`

	// Status API
	ListenAddress string `toml:"listen_address"`
	ListenPort    int    `toml:"listen_port"`
}
