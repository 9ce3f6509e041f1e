package worker

import (
	"context"
	"sync"
	"time"

	"github.com/gulfcoastlabs/flood_station/pkg/config"
	"github.com/gulfcoastlabs/flood_station/pkg/datalog"
	"github.com/gulfcoastlabs/flood_station/pkg/frame"
	"github.com/gulfcoastlabs/flood_station/pkg/transport"
)

type State string

const (
	StateStarting     State = "starting"
	StateConnecting   State = "connecting"
	StateStreaming    State = "streaming"
	StateReconnecting State = "reconnecting"
	StateStopped      State = "stopped"
)

// Worker owns the ingest loop: read a frame, parse it, stamp it, append it
// to the log, publish it as the latest reading.
type Worker struct {
	cfg       *config.WorkerConfig
	source    *transport.LineSource
	appender  *datalog.Appender
	onReading func(*frame.Reading)

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}

	mu            sync.RWMutex
	started       bool
	state         State
	latestReading *frame.Reading
	lastEntryTime time.Time

	// Touched only by the run goroutine
	writeFailures int
}

// StatusReport is the snapshot external consumers poll.
type StatusReport struct {
	State     string           `json:"state"`
	Transport transport.Status `json:"transport"`
}
