package worker

import (
	"context"
	"log"
	"strconv"
	"sync"
	"time"

	"github.com/gulfcoastlabs/flood_station/pkg/config"
	"github.com/gulfcoastlabs/flood_station/pkg/datalog"
	"github.com/gulfcoastlabs/flood_station/pkg/frame"
	"github.com/gulfcoastlabs/flood_station/pkg/transport"
)

var (
	instance   *Worker
	instanceMu sync.Mutex
)

// StartWorker starts the process-wide ingest worker. A second call is a
// no-op that returns the worker already running; UI frameworks re-executing
// their startup path must not spawn a duplicate.
func StartWorker(cfg *config.WorkerConfig, onReading func(*frame.Reading)) *Worker {
	instanceMu.Lock()
	defer instanceMu.Unlock()
	if instance != nil {
		return instance
	}
	instance = New(cfg, onReading)
	instance.Start()
	return instance
}

// New builds a worker without starting it. onReading, when non-nil, is
// invoked from the stream loop for every accepted reading after it has been
// durably appended; calls never overlap.
func New(cfg *config.WorkerConfig, onReading func(*frame.Reading)) *Worker {
	ctx, cancel := context.WithCancel(context.Background())
	return &Worker{
		cfg:       cfg,
		source:    transport.NewLineSource(transport.NewResolver(cfg), cfg.Baudrate),
		appender:  datalog.NewAppender(cfg.CSVPath, datalog.ParseSchema(cfg.CSVSchema), cfg.SyncEveryWrite),
		onReading: onReading,
		ctx:       ctx,
		cancel:    cancel,
		done:      make(chan struct{}),
		state:     StateStarting,
	}
}

// Start launches the ingest loop on its own goroutine. A second call is a
// no-op.
func (w *Worker) Start() {
	w.mu.Lock()
	if w.started {
		w.mu.Unlock()
		return
	}
	w.started = true
	w.mu.Unlock()
	go w.run()
}

// Stop shuts the worker down: aborts any in-progress read or backoff sleep,
// closes the transport, and waits for the loop to reach Stopped. A reading
// already appended stays persisted regardless of shutdown timing. Safe to
// call on a worker that was never started.
func (w *Worker) Stop() {
	w.cancel()
	// Unblock a read in progress
	w.source.Close()

	w.mu.Lock()
	started := w.started
	w.mu.Unlock()
	if !started {
		w.setState(StateStopped)
		return
	}
	<-w.done
}

// LatestReading returns a copy of the most recently accepted reading, or nil
// before the first one.
func (w *Worker) LatestReading() *frame.Reading {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.latestReading == nil {
		return nil
	}
	reading := *w.latestReading
	return &reading
}

// Status reports the worker state plus the transport connection state.
func (w *Worker) Status() StatusReport {
	w.mu.RLock()
	state := w.state
	w.mu.RUnlock()
	return StatusReport{
		State:     string(state),
		Transport: w.source.Status(),
	}
}

func (w *Worker) run() {
	defer close(w.done)

	backoff := time.Duration(w.cfg.SleepSec) * time.Second
	if backoff <= 0 {
		backoff = 2 * time.Second
	}

	for w.ctx.Err() == nil {
		w.setState(StateConnecting)
		if err := w.source.Open(); err != nil {
			if w.ctx.Err() == nil {
				log.Printf("Connect failed: %v", err)
			}
			if !w.waitReconnect(backoff) {
				break
			}
			continue
		}

		w.stream()
		w.source.Close()

		if w.ctx.Err() != nil {
			break
		}
		if !w.waitReconnect(backoff) {
			break
		}
	}

	w.source.Close()
	w.appender.Close()
	w.setState(StateStopped)
}

// stream reads frames until the transport errors or shutdown is requested.
func (w *Worker) stream() {
	w.setState(StateStreaming)
	for w.ctx.Err() == nil {
		line, err := w.source.ReadLine()
		if err != nil {
			if w.ctx.Err() == nil {
				log.Printf("Read error: %v", err)
			}
			return
		}

		reading := frame.ParseLine(line, w.cfg.DataPrefix)
		if reading == nil {
			// Malformed frame; the next line is independent
			continue
		}
		w.stamp(reading)

		if err := w.appender.Append(reading); err != nil {
			w.writeFailures++
			log.Printf("Warning: failed to append reading (%d consecutive): %v", w.writeFailures, err)
			if w.cfg.MaxWriteFailures > 0 && w.writeFailures >= w.cfg.MaxWriteFailures {
				log.Printf("Too many consecutive write failures (%d), stopping worker", w.writeFailures)
				w.cancel()
				return
			}
			continue
		}
		w.writeFailures = 0

		w.publish(reading)
		if w.cfg.PrintEveryWrite {
			log.Printf("Appended reading: temp=%sC humidity=%s%% light=%d precip=%s level=%s",
				trimFloat(reading.TemperatureC), trimFloat(reading.HumidityPct),
				reading.Light, trimFloat(reading.Precipitation), reading.WaterLevel)
		}
	}
}

// stamp assigns the acceptance timestamp and the configured coordinates.
// Timestamps never go backwards within one process lifetime, even across a
// clock step.
func (w *Worker) stamp(r *frame.Reading) {
	now := time.Now().UTC()
	w.mu.Lock()
	if now.Before(w.lastEntryTime) {
		now = w.lastEntryTime
	}
	w.lastEntryTime = now
	w.mu.Unlock()

	r.EntryTimeUTC = now.Format(time.RFC3339)
	r.Latitude = w.cfg.DefaultLat
	r.Longitude = w.cfg.DefaultLon
}

// publish runs on the stream loop, so onReading calls never overlap and
// consumers see readings in acceptance order.
func (w *Worker) publish(r *frame.Reading) {
	reading := *r
	w.mu.Lock()
	w.latestReading = &reading
	w.mu.Unlock()

	if w.onReading != nil {
		w.onReading(&reading)
	}
}

// waitReconnect sleeps the backoff interval. Returns false when shutdown was
// requested during the wait.
func (w *Worker) waitReconnect(backoff time.Duration) bool {
	w.setState(StateReconnecting)
	select {
	case <-time.After(backoff):
		return true
	case <-w.ctx.Done():
		return false
	}
}

func (w *Worker) setState(state State) {
	w.mu.Lock()
	w.state = state
	w.mu.Unlock()
}

func trimFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
