// Package gossip implements the flood/dedup engine that decides, for each
// candidate AT record, whether to accept it into the Location Store and
// re-flood it to neighbors other than the one it arrived from.
package gossip

import (
	"sync"

	logger "github.com/nabbar/proxyherd/logger"
	"github.com/nabbar/proxyherd/internal/metrics"
	"github.com/nabbar/proxyherd/internal/store"
)

// Sender is the subset of the Peer Link Manager the engine needs: a
// best-effort per-neighbor send, and the set of configured neighbor ids.
type Sender interface {
	Send(neighbor, line string) bool
	Neighbors() []string
}

// Engine owns the seen-message set and mediates every store mutation that
// must also be flooded.
type Engine struct {
	log   logger.Logger
	store *store.Store
	seen  *seenSet
	peers Sender

	// wg tracks in-flight flood sends so tests can wait for quiescence.
	wg sync.WaitGroup
}

// New builds a gossip Engine. capacity bounds the seen-message set (~1000
// per the configured default); peers may be nil for single-node operation
// (e.g. tests), in which case Submit never floods.
func New(log logger.Logger, st *store.Store, peers Sender, capacity int) *Engine {
	return &Engine{
		log:   log,
		store: st,
		seen:  newSeenSet(capacity),
		peers: peers,
	}
}

// Submit runs the gossip algorithm for one AT record. source is the
// neighbor id the record arrived from, or "" if it was produced locally by
// this server (e.g. in response to an IAMAT). It never blocks the caller
// beyond issuing the flood sends, which run in parallel across neighbors.
func (e *Engine) Submit(rec store.Record, source string) {
	f := Fingerprint{
		OriginServer: rec.OriginServer,
		ClientID:     rec.ClientID,
		ClientTime:   rec.ClientTime,
	}

	if e.seen.insert(f) {
		metrics.GossipDropped.WithLabelValues("duplicate").Inc()
		return
	}

	if !e.store.Upsert(rec) {
		metrics.GossipDropped.WithLabelValues("stale").Inc()
		return
	}

	metrics.GossipAccepted.WithLabelValues(rec.OriginServer).Inc()
	e.log.Info("location accepted for %s from origin %s", nil, rec.ClientID, rec.OriginServer)

	if e.peers == nil {
		return
	}

	for _, n := range e.peers.Neighbors() {
		if n == source {
			continue
		}

		n := n
		e.wg.Add(1)
		go func() {
			defer e.wg.Done()
			if e.peers.Send(n, rec.CanonicalLine) {
				metrics.GossipFlooded.WithLabelValues(n, "sent").Inc()
			} else {
				metrics.GossipFlooded.WithLabelValues(n, "skipped").Inc()
				e.log.Debug("flood to %s skipped: not connected", nil, n)
			}
		}()
	}
}

// Wait blocks until all in-flight flood sends triggered by Submit have
// returned. Used by tests to observe quiescence; production callers need
// not call it since Send never blocks indefinitely.
func (e *Engine) Wait() {
	e.wg.Wait()
}
