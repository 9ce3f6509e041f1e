package transport

import (
	"io"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gulfcoastlabs/flood_station/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolvePrecedence(t *testing.T) {
	// A fake device path the scan patterns can find
	scanDir := t.TempDir()
	devicePath := filepath.Join(scanDir, "ttyUSB0")
	require.NoError(t, os.WriteFile(devicePath, nil, 0644))

	tests := []struct {
		name     string
		resolver *Resolver
		want     Descriptor
		wantErr  error
	}{
		{
			name: "tcp bridge wins over explicit device",
			resolver: &Resolver{
				SerialTCP:  "192.168.1.50:2000",
				SerialPort: devicePath,
			},
			want: Descriptor{Mode: ModeTCPBridge, Endpoint: "192.168.1.50:2000"},
		},
		{
			name: "explicit device wins over scan",
			resolver: &Resolver{
				SerialPort:   "/dev/ttyS9",
				ScanPatterns: []string{filepath.Join(scanDir, "ttyUSB*")},
			},
			want: Descriptor{Mode: ModeSerialDevice, Endpoint: "/dev/ttyS9"},
		},
		{
			name: "auto falls back to scan",
			resolver: &Resolver{
				SerialPort:   "AUTO",
				ScanPatterns: []string{filepath.Join(scanDir, "ttyUSB*")},
			},
			want: Descriptor{Mode: ModeAutoScan, Endpoint: devicePath},
		},
		{
			name: "auto is case insensitive",
			resolver: &Resolver{
				SerialPort:   "auto",
				ScanPatterns: []string{filepath.Join(scanDir, "ttyUSB*")},
			},
			want: Descriptor{Mode: ModeAutoScan, Endpoint: devicePath},
		},
		{
			name: "empty port scans too",
			resolver: &Resolver{
				ScanPatterns: []string{filepath.Join(scanDir, "ttyUSB*")},
			},
			want: Descriptor{Mode: ModeAutoScan, Endpoint: devicePath},
		},
		{
			name: "scan with no device is a soft failure",
			resolver: &Resolver{
				SerialPort:   "AUTO",
				ScanPatterns: []string{filepath.Join(scanDir, "nothing*")},
			},
			want:    Descriptor{Mode: ModeAutoScan},
			wantErr: ErrNoDevice,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.resolver.Resolve()
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNewResolverFromConfig(t *testing.T) {
	cfg := &config.WorkerConfig{SerialTCP: "bridge:2000", SerialPort: "AUTO"}
	resolver := NewResolver(cfg)
	assert.Equal(t, "bridge:2000", resolver.SerialTCP)
	assert.Equal(t, "AUTO", resolver.SerialPort)
	assert.Equal(t, DefaultScanPatterns, resolver.ScanPatterns)
}

// startBridge serves the given lines to the first client. When hold is set
// the connection stays open afterwards until the client hangs up; otherwise
// it closes right after the last line.
func startBridge(t *testing.T, lines []string, hold bool) string {
	t.Helper()
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { listener.Close() })

	go func() {
		conn, err := listener.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		for _, line := range lines {
			if _, err := conn.Write([]byte(line + "\n")); err != nil {
				return
			}
		}
		if hold {
			io.Copy(io.Discard, conn)
		}
	}()

	return listener.Addr().String()
}

func TestLineSourceTCPBridge(t *testing.T) {
	addr := startBridge(t, []string{
		"DATA,24.7,51.2,22340,0,Nominal",
		"DATA,25.1,50.8,21000,,High",
	}, false)

	source := NewLineSource(&Resolver{SerialTCP: addr}, 115200)
	require.NoError(t, source.Open())

	status := source.Status()
	assert.True(t, status.Connected)
	assert.Equal(t, string(ModeTCPBridge), status.Mode)
	assert.Equal(t, addr, status.Endpoint)
	assert.Equal(t, 0, status.AttemptsSinceLastSuccess)

	line, err := source.ReadLine()
	require.NoError(t, err)
	assert.Equal(t, "DATA,24.7,51.2,22340,0,Nominal\n", line)

	line, err = source.ReadLine()
	require.NoError(t, err)
	assert.Equal(t, "DATA,25.1,50.8,21000,,High\n", line)

	// The bridge closes after the last line; the read error must be
	// recorded, not fatal
	_, err = source.ReadLine()
	require.Error(t, err)
	status = source.Status()
	assert.False(t, status.Connected)
	assert.NotEmpty(t, status.LastError)

	source.Close()
}

func TestLineSourceConnectFailureCountsAttempts(t *testing.T) {
	// Grab a port nothing listens on
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := listener.Addr().String()
	require.NoError(t, listener.Close())

	source := NewLineSource(&Resolver{SerialTCP: addr}, 115200)
	for i := 1; i <= 3; i++ {
		require.Error(t, source.Open())
		status := source.Status()
		assert.False(t, status.Connected)
		assert.Equal(t, i, status.AttemptsSinceLastSuccess)
		assert.NotEmpty(t, status.LastError)
	}
}

func TestLineSourceAttemptsResetOnSuccess(t *testing.T) {
	scanDir := t.TempDir()
	source := NewLineSource(&Resolver{
		SerialPort:   "AUTO",
		ScanPatterns: []string{filepath.Join(scanDir, "ttyUSB*")},
	}, 115200)

	require.ErrorIs(t, source.Open(), ErrNoDevice)
	require.ErrorIs(t, source.Open(), ErrNoDevice)
	assert.Equal(t, 2, source.Status().AttemptsSinceLastSuccess)

	// Point the same source at a live bridge; success resets the counter
	addr := startBridge(t, []string{"DATA,24.7,51.2,22340,0,Nominal"}, false)
	source.resolver.SerialTCP = addr
	require.NoError(t, source.Open())
	assert.Equal(t, 0, source.Status().AttemptsSinceLastSuccess)
	source.Close()
}

func TestLineSourceReadBeforeOpen(t *testing.T) {
	source := NewLineSource(&Resolver{SerialTCP: "127.0.0.1:1"}, 115200)
	_, err := source.ReadLine()
	assert.Error(t, err)
}

func TestLineSourceCloseUnblocksRead(t *testing.T) {
	addr := startBridge(t, nil, true)
	source := NewLineSource(&Resolver{SerialTCP: addr}, 115200)
	require.NoError(t, source.Open())

	readErr := make(chan error, 1)
	go func() {
		_, err := source.ReadLine()
		readErr <- err
	}()

	time.Sleep(50 * time.Millisecond)
	source.Close()

	select {
	case err := <-readErr:
		assert.Error(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("ReadLine did not unblock after Close")
	}
}
