// Package peerlink maintains one outbound persistent connection per declared
// neighbor, with exponential backoff reconnection, and exposes a best-effort
// send operation per peer. Grounded on the same goroutine-per-connection,
// mutex-guarded-map idiom the teacher's TCP peer code uses, generalized here
// to a managed per-neighbor state machine instead of a flat connection list.
package peerlink

import (
	"bufio"
	"context"
	"net"
	"sync"
	"time"

	logger "github.com/nabbar/proxyherd/logger"

	"github.com/nabbar/proxyherd/internal/metrics"
)

// State is the per-neighbor connection state machine:
//
//	DISCONNECTED → (dial) → CONNECTING → (ok) → CONNECTED
//	CONNECTING/CONNECTED → (error|EOF) → WAITING → (after delay) → DISCONNECTED → …
type State int

const (
	Disconnected State = iota
	Connecting
	Connected
	Waiting
)

func (s State) String() string {
	switch s {
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	case Waiting:
		return "waiting"
	default:
		return "disconnected"
	}
}

const (
	initialBackoff = 1 * time.Second
	backoffFactor  = 2
	maxBackoff     = 60 * time.Second
	dialTimeout    = 5 * time.Second
)

// Inbound is delivered to the Gossip Engine for every line read from a
// connected peer, tagged with the neighbor it arrived from.
type Inbound struct {
	Neighbor string
	Line     string
}

// Manager owns one connection attempt per neighbor address.
type Manager struct {
	log       logger.Logger
	neighbors map[string]string // neighbor id -> "host:port"
	inbound   chan Inbound

	mu    sync.RWMutex
	state map[string]State
	conn  map[string]net.Conn
	wmu   map[string]*sync.Mutex // one write lock per neighbor socket
}

// New builds a Manager for the given neighbor-id -> address table. inboundCap
// bounds the fan-in queue to the Gossip Engine: the reader goroutine owns
// backpressure by blocking on a full channel; the engine is never asked to
// block a socket read.
func New(log logger.Logger, neighbors map[string]string, inboundCap int) *Manager {
	wmu := make(map[string]*sync.Mutex, len(neighbors))
	for id := range neighbors {
		wmu[id] = &sync.Mutex{}
	}

	return &Manager{
		log:       log,
		neighbors: neighbors,
		inbound:   make(chan Inbound, inboundCap),
		state:     make(map[string]State, len(neighbors)),
		conn:      make(map[string]net.Conn, len(neighbors)),
		wmu:       wmu,
	}
}

// Inbound returns the channel of lines received from connected peers.
func (m *Manager) Inbound() <-chan Inbound {
	return m.inbound
}

// Run starts one dial loop per neighbor; it returns once ctx is cancelled and
// every loop has exited.
func (m *Manager) Run(ctx context.Context) {
	var wg sync.WaitGroup

	for id, addr := range m.neighbors {
		wg.Add(1)
		go func(id, addr string) {
			defer wg.Done()
			m.dialLoop(ctx, id, addr)
		}(id, addr)
	}

	wg.Wait()
}

func (m *Manager) setState(id string, s State) {
	m.mu.Lock()
	m.state[id] = s
	m.mu.Unlock()
	metrics.PeerLinkState.WithLabelValues(id).Set(float64(s))
}

// State reports the current connection state for a neighbor.
func (m *Manager) State(id string) State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state[id]
}

func (m *Manager) dialLoop(ctx context.Context, id, addr string) {
	backoff := initialBackoff

	for {
		if ctx.Err() != nil {
			return
		}

		m.setState(id, Connecting)

		d := net.Dialer{Timeout: dialTimeout}
		conn, err := d.DialContext(ctx, "tcp", addr)
		if err != nil {
			m.log.Warning("peer dial to %s failed: %s", nil, id, err.Error())
			m.setState(id, Waiting)
			if !m.wait(ctx, &backoff) {
				return
			}
			continue
		}

		m.log.Info("peer %s connected", nil, id)
		m.setConn(id, conn)
		m.setState(id, Connected)
		backoff = initialBackoff

		m.readLoop(ctx, id, conn)

		m.setConn(id, nil)
		m.setState(id, Waiting)

		if !m.wait(ctx, &backoff) {
			return
		}
	}
}

func (m *Manager) wait(ctx context.Context, backoff *time.Duration) bool {
	select {
	case <-ctx.Done():
		return false
	case <-time.After(*backoff):
	}

	*backoff *= backoffFactor
	if *backoff > maxBackoff {
		*backoff = maxBackoff
	}

	return true
}

func (m *Manager) setConn(id string, c net.Conn) {
	m.mu.Lock()
	if c == nil {
		delete(m.conn, id)
	} else {
		m.conn[id] = c
	}
	m.mu.Unlock()
}

func (m *Manager) readLoop(ctx context.Context, id string, conn net.Conn) {
	defer conn.Close()

	done := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()
	defer close(done)

	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		line := scanner.Text()
		select {
		case m.inbound <- Inbound{Neighbor: id, Line: line}:
		case <-ctx.Done():
			return
		}
	}
}

// Send is best-effort: it returns true iff the neighbor is currently
// CONNECTED and the write completes without error. It never queues.
//
// Writes to a given neighbor's socket are serialized through a per-neighbor
// mutex so concurrent gossip flood goroutines never interleave two writes on
// the same connection.
func (m *Manager) Send(id, line string) bool {
	m.mu.RLock()
	conn := m.conn[id]
	st := m.state[id]
	wmu := m.wmu[id]
	m.mu.RUnlock()

	if st != Connected || conn == nil {
		return false
	}

	if wmu != nil {
		wmu.Lock()
		defer wmu.Unlock()
	}

	if _, err := conn.Write([]byte(line + "\n")); err != nil {
		m.log.Warning("peer send to %s failed: %s", nil, id, err.Error())
		return false
	}

	return true
}

// Neighbors returns the configured neighbor identifiers.
func (m *Manager) Neighbors() []string {
	ids := make([]string, 0, len(m.neighbors))
	for id := range m.neighbors {
		ids = append(ids, id)
	}
	return ids
}
