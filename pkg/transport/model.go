package transport

type Mode string

const (
	ModeTCPBridge    Mode = "tcp_bridge"
	ModeSerialDevice Mode = "serial_device"
	ModeAutoScan     Mode = "auto_scan"
)

// Descriptor identifies a transport without opening it.
type Descriptor struct {
	Mode     Mode
	Endpoint string // host:port for a bridge, device path otherwise
}

// Status is a point-in-time snapshot of the connection state, safe to hand
// out to readers in other goroutines.
type Status struct {
	Mode                     string `json:"mode"`
	Endpoint                 string `json:"endpoint"`
	Connected                bool   `json:"connected"`
	LastError                string `json:"last_error,omitempty"`
	AttemptsSinceLastSuccess int    `json:"attempts_since_last_success"`
}
