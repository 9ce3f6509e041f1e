// Package transport resolves and drives the byte stream frames arrive on,
// either a serial device or a raw TCP serial bridge (ser2net style).
package transport

import (
	"errors"
	"os"
	"path/filepath"
	"strings"

	"github.com/gulfcoastlabs/flood_station/pkg/config"
)

// ErrNoDevice means an AUTO scan found no candidate serial device. The
// caller should retry after a delay; a sensor may get plugged in later.
var ErrNoDevice = errors.New("no serial device found")

// DefaultScanPatterns are the device path patterns probed during AUTO scan,
// in priority order. Covers the usual Linux USB/ACM/UART names plus macOS
// USB-serial adapters.
var DefaultScanPatterns = []string{
	"/dev/ttyUSB*",
	"/dev/ttyACM*",
	"/dev/ttyAMA*",
	"/dev/tty.usbserial*",
	"/dev/tty.usbmodem*",
}

type Resolver struct {
	SerialTCP    string
	SerialPort   string
	ScanPatterns []string
}

func NewResolver(cfg *config.WorkerConfig) *Resolver {
	return &Resolver{
		SerialTCP:    cfg.SerialTCP,
		SerialPort:   cfg.SerialPort,
		ScanPatterns: DefaultScanPatterns,
	}
}

// Resolve decides which transport to use without opening it. A configured
// TCP bridge wins over an explicit device path, which wins over AUTO scan.
// Returns ErrNoDevice when scanning comes up empty.
func (r *Resolver) Resolve() (Descriptor, error) {
	if r.SerialTCP != "" {
		return Descriptor{Mode: ModeTCPBridge, Endpoint: r.SerialTCP}, nil
	}
	if r.SerialPort != "" && !strings.EqualFold(r.SerialPort, "AUTO") {
		return Descriptor{Mode: ModeSerialDevice, Endpoint: r.SerialPort}, nil
	}
	if path, ok := r.scan(); ok {
		return Descriptor{Mode: ModeAutoScan, Endpoint: path}, nil
	}
	return Descriptor{Mode: ModeAutoScan}, ErrNoDevice
}

func (r *Resolver) scan() (string, bool) {
	patterns := r.ScanPatterns
	if len(patterns) == 0 {
		patterns = DefaultScanPatterns
	}
	for _, pattern := range patterns {
		matches, err := filepath.Glob(pattern)
		if err != nil {
			continue
		}
		for _, match := range matches {
			if _, err := os.Stat(match); err == nil {
				return match, true
			}
		}
	}
	return "", false
}
