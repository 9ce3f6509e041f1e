package transport

import (
	"bufio"
	"fmt"
	"io"
	"log"
	"net"
	"sync"
	"time"

	"github.com/jacobsa/go-serial/serial"
)

const dialTimeout = 10 * time.Second

// LineSource wraps a resolved transport and reads newline-terminated frames
// from it. Open/read failures are recorded in the connection state and are
// never fatal; the worker decides when to retry. In AUTO scan mode every
// Open re-resolves, so a device replugged at a different path is found again.
type LineSource struct {
	resolver *Resolver
	baudrate uint

	mu     sync.Mutex
	desc   Descriptor
	conn   io.ReadWriteCloser
	reader *bufio.Reader
	status Status
}

func NewLineSource(resolver *Resolver, baudrate uint) *LineSource {
	return &LineSource{
		resolver: resolver,
		baudrate: baudrate,
	}
}

// Open resolves the transport and opens it. A TCP bridge gets a bounded
// connect timeout; a serial device is configured at the given baud rate,
// 8 data bits, no parity, one stop bit.
func (s *LineSource) Open() error {
	desc, err := s.resolver.Resolve()
	if err != nil {
		s.recordFailure(desc, err)
		return err
	}

	var conn io.ReadWriteCloser
	switch desc.Mode {
	case ModeTCPBridge:
		c, err := net.DialTimeout("tcp", desc.Endpoint, dialTimeout)
		if err != nil {
			err = fmt.Errorf("failed to connect to serial bridge %s: %w", desc.Endpoint, err)
			s.recordFailure(desc, err)
			return err
		}
		conn = c
	default:
		options := serial.OpenOptions{
			PortName:        desc.Endpoint,
			BaudRate:        s.baudrate,
			DataBits:        8,
			StopBits:        1,
			MinimumReadSize: 1,
		}
		port, err := serial.Open(options)
		if err != nil {
			err = fmt.Errorf("failed to open serial port %s: %w", desc.Endpoint, err)
			s.recordFailure(desc, err)
			return err
		}
		conn = port
	}

	s.mu.Lock()
	s.desc = desc
	s.conn = conn
	s.reader = bufio.NewReader(conn)
	s.status = Status{
		Mode:      string(desc.Mode),
		Endpoint:  desc.Endpoint,
		Connected: true,
	}
	s.mu.Unlock()

	log.Printf("Connected to %s (%s)", desc.Endpoint, desc.Mode)
	return nil
}

// ReadLine blocks until a newline-terminated frame arrives or the transport
// errors. A partial frame cut off by a transport error is dropped.
func (s *LineSource) ReadLine() (string, error) {
	s.mu.Lock()
	reader := s.reader
	s.mu.Unlock()

	if reader == nil {
		return "", fmt.Errorf("transport not open")
	}

	line, err := reader.ReadString('\n')
	if err != nil {
		s.recordReadFailure(err)
		return "", err
	}
	return line, nil
}

// Close releases the transport handle. Safe to call concurrently with a
// blocked ReadLine; closing the handle unblocks it.
func (s *LineSource) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn != nil {
		s.conn.Close()
		s.conn = nil
		s.reader = nil
		log.Printf("Disconnected from %s", s.desc.Endpoint)
	}
	s.status.Connected = false
}

// Status returns a copy of the current connection state.
func (s *LineSource) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

func (s *LineSource) recordFailure(desc Descriptor, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status.Mode = string(desc.Mode)
	s.status.Endpoint = desc.Endpoint
	s.status.Connected = false
	s.status.LastError = err.Error()
	s.status.AttemptsSinceLastSuccess++
}

func (s *LineSource) recordReadFailure(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status.Connected = false
	s.status.LastError = err.Error()
}
