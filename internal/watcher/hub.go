package watcher

import (
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// connectedMessage greets a new subscriber. No backlog follows it.
type connectedMessage struct {
	Type      string    `json:"type"` // always "connected"
	Count     int       `json:"count"`
	LastCheck time.Time `json:"lastCheck"`
}

// changesMessage carries one poll's worth of classified changes.
type changesMessage struct {
	Type      string    `json:"type"` // always "annotations"
	Changes   []Change  `json:"changes"`
	Timestamp time.Time `json:"timestamp"`
}

const writeTimeout = 2 * time.Second

// hub owns the Unix socket and the connected client set. Delivery is
// fire-and-forget: a client that errors on write is dropped.
type hub struct {
	socketPath string
	log        zerolog.Logger
	greeting   func() connectedMessage

	mu       sync.Mutex
	listener net.Listener
	clients  map[net.Conn]struct{}
	closed   bool
}

func newHub(socketPath string, log zerolog.Logger, greeting func() connectedMessage) *hub {
	return &hub{
		socketPath: socketPath,
		log:        log,
		greeting:   greeting,
		clients:    make(map[net.Conn]struct{}),
	}
}

// listen creates the socket (removing a stale one), restricts it to the
// owner, and starts accepting connections.
func (h *hub) listen() error {
	if err := os.MkdirAll(filepath.Dir(h.socketPath), 0700); err != nil {
		return fmt.Errorf("creating socket directory: %w", err)
	}
	if err := os.Remove(h.socketPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing stale socket: %w", err)
	}

	listener, err := net.Listen("unix", h.socketPath)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", h.socketPath, err)
	}
	if err := os.Chmod(h.socketPath, 0600); err != nil {
		listener.Close()
		return fmt.Errorf("restricting socket permissions: %w", err)
	}

	h.mu.Lock()
	h.listener = listener
	h.mu.Unlock()

	go h.acceptLoop(listener)
	return nil
}

func (h *hub) acceptLoop(listener net.Listener) {
	for {
		conn, err := listener.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return
			}
			h.log.Debug().Err(err).Msg("accept failed")
			continue
		}
		h.addClient(conn)
	}
}

func (h *hub) addClient(conn net.Conn) {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		conn.Close()
		return
	}
	h.clients[conn] = struct{}{}
	n := len(h.clients)
	h.mu.Unlock()

	h.log.Debug().Int("clients", n).Msg("client connected")
	if !h.send(conn, h.greeting()) {
		h.dropClient(conn)
	}
}

// broadcast writes one NDJSON line to every client, dropping any that
// fail. No buffering, no redelivery.
func (h *hub) broadcast(msg changesMessage) {
	h.mu.Lock()
	conns := make([]net.Conn, 0, len(h.clients))
	for c := range h.clients {
		conns = append(conns, c)
	}
	h.mu.Unlock()

	for _, conn := range conns {
		if !h.send(conn, msg) {
			h.dropClient(conn)
		}
	}
}

func (h *hub) send(conn net.Conn, msg interface{}) bool {
	payload, err := json.Marshal(msg)
	if err != nil {
		h.log.Error().Err(err).Msg("encoding message")
		return true
	}
	conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	if _, err := conn.Write(append(payload, '\n')); err != nil {
		return false
	}
	return true
}

func (h *hub) dropClient(conn net.Conn) {
	h.mu.Lock()
	delete(h.clients, conn)
	n := len(h.clients)
	h.mu.Unlock()
	conn.Close()
	h.log.Debug().Int("clients", n).Msg("client dropped")
}

func (h *hub) close() {
	h.mu.Lock()
	h.closed = true
	listener := h.listener
	conns := make([]net.Conn, 0, len(h.clients))
	for c := range h.clients {
		conns = append(conns, c)
	}
	h.clients = make(map[net.Conn]struct{})
	h.mu.Unlock()

	if listener != nil {
		listener.Close()
	}
	for _, c := range conns {
		c.Close()
	}
	os.Remove(h.socketPath)
}
