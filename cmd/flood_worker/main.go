// Flood worker ingests sensor frames from the station's serial link (or a
// TCP serial bridge), appends them to the CSV log, and serves the latest
// reading and connection status to the dashboard.
package main

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/gorilla/websocket"
	"github.com/gulfcoastlabs/flood_station/pkg/config"
	"github.com/gulfcoastlabs/flood_station/pkg/frame"
	"github.com/gulfcoastlabs/flood_station/pkg/pathing"
	"github.com/gulfcoastlabs/flood_station/pkg/worker"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Dashboard may be served from another host
	},
}

// ws clients for broadcasting live readings. Each client carries its own
// write lock; gorilla/websocket allows at most one concurrent writer per
// connection.
var (
	wsClients                   = make(map[*websocket.Conn]*sync.Mutex)
	wsClientsMutex sync.RWMutex = sync.RWMutex{}
)

func main() {
	if err := pathing.EnsureDataDir(); err != nil {
		log.Printf("Warning: could not create data dir: %v", err)
	}

	// Load config
	if err := config.LoadWorkerConfig(); err != nil {
		log.Fatalf("Failed to load worker config: %v", err)
	}
	cfg := config.ActiveWorkerConfig

	// Start the ingest worker and broadcast every accepted reading
	w := worker.StartWorker(cfg, func(reading *frame.Reading) {
		BroadcastToWebSockets(reading)
	})

	// Setup HTTP handlers
	http.HandleFunc("/", func(rw http.ResponseWriter, r *http.Request) {
		response := map[string]string{
			"message": "Flood Station Telemetry Worker",
			"status":  "running",
		}
		rw.Header().Set("Content-Type", "application/json")
		json.NewEncoder(rw).Encode(response)
	})

	http.HandleFunc("/latest", func(rw http.ResponseWriter, r *http.Request) {
		reading := w.LatestReading()
		rw.Header().Set("Content-Type", "application/json")
		if reading == nil {
			rw.WriteHeader(http.StatusNotFound)
			json.NewEncoder(rw).Encode(map[string]string{
				"error": "No readings available yet",
			})
			return
		}

		json.NewEncoder(rw).Encode(reading)
	})

	http.HandleFunc("/status", func(rw http.ResponseWriter, r *http.Request) {
		rw.Header().Set("Content-Type", "application/json")
		json.NewEncoder(rw).Encode(w.Status())
	})

	http.HandleFunc("/ws", func(rw http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(rw, r, nil)
		if err != nil {
			log.Printf("WebSocket upgrade error: %v", err)
			return
		}

		AddWebSocketClient(conn)

		// Send current reading immediately if available
		if reading := w.LatestReading(); reading != nil {
			SendToWebSocketClient(conn, reading.ToJsonBytes())
		}

		// Keep connection alive
		for {
			_, _, err := conn.ReadMessage()
			if err != nil {
				RemoveWebSocketClient(conn)
				break
			}
		}
	})

	listener := fmt.Sprintf("%s:%d", cfg.ListenAddress, cfg.ListenPort)
	log.Printf("Starting Flood Station Telemetry Worker on %s", listener)

	httpErr := make(chan error, 1)
	go func() {
		httpErr <- http.ListenAndServe(listener, nil)
	}()

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-httpErr:
		w.Stop()
		log.Fatalf("HTTP server stopped: %v", err)
	case <-interrupt:
		log.Println("Interrupt received, shutting down...")
		w.Stop()
	}
}

func BroadcastToWebSockets(reading *frame.Reading) {
	wsClientsMutex.RLock()
	clients := make(map[*websocket.Conn]*sync.Mutex, len(wsClients))
	for client, writeLock := range wsClients {
		clients[client] = writeLock
	}
	wsClientsMutex.RUnlock()

	data := reading.ToJsonBytes()
	for client, writeLock := range clients {
		writeLock.Lock()
		err := client.WriteMessage(websocket.TextMessage, data)
		writeLock.Unlock()
		if err != nil {
			RemoveWebSocketClient(client)
		}
	}
}

// SendToWebSocketClient writes one message to a registered client under its
// write lock. Unregistered connections are ignored.
func SendToWebSocketClient(conn *websocket.Conn, data []byte) {
	wsClientsMutex.RLock()
	writeLock := wsClients[conn]
	wsClientsMutex.RUnlock()
	if writeLock == nil {
		return
	}

	writeLock.Lock()
	err := conn.WriteMessage(websocket.TextMessage, data)
	writeLock.Unlock()
	if err != nil {
		RemoveWebSocketClient(conn)
	}
}

func AddWebSocketClient(conn *websocket.Conn) {
	wsClientsMutex.Lock()
	wsClients[conn] = &sync.Mutex{}
	wsClientsMutex.Unlock()
}

func RemoveWebSocketClient(conn *websocket.Conn) {
	wsClientsMutex.Lock()
	delete(wsClients, conn)
	wsClientsMutex.Unlock()
	conn.Close()
}
