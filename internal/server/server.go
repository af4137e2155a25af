// Package server assembles the five core components plus their external
// collaborators into one running proxy-herd node: it owns the listening
// socket, the Peer Link Manager's dial loops, and the goroutine that fans
// peer-originated AT lines into the Gossip Engine.
package server

import (
	"context"
	"fmt"
	"net"

	liberr "github.com/nabbar/proxyherd/errors"
	logger "github.com/nabbar/proxyherd/logger"

	"github.com/nabbar/proxyherd/internal/errs"
	"github.com/nabbar/proxyherd/internal/gossip"
	"github.com/nabbar/proxyherd/internal/peerlink"
	"github.com/nabbar/proxyherd/internal/places"
	"github.com/nabbar/proxyherd/internal/protocol"
	"github.com/nabbar/proxyherd/internal/session"
	"github.com/nabbar/proxyherd/internal/store"
	"github.com/nabbar/proxyherd/internal/topology"
)

// Server is one location-proxy node: a listener, a store, a gossip engine,
// and a peer link manager, wired together for the lifetime of the process.
type Server struct {
	id   string
	log  logger.Logger
	topo topology.Topology

	store  *store.Store
	links  *peerlink.Manager
	engine *gossip.Engine
	places places.Lookup
}

// New builds a Server for id using topo, log, and an already-constructed
// places client. It returns a configuration error if id is not part of topo.
func New(id string, topo topology.Topology, log logger.Logger, lookup places.Lookup) (*Server, liberr.Error) {
	if !topo.Has(id) {
		return nil, liberr.New(errs.CodeUnknownServerID.Uint16(), fmt.Sprintf("unknown server id %q", id))
	}

	st := store.New()
	links := peerlink.New(log, topo.NeighborAddresses(id), topo.MaxSeenMessages)
	engine := gossip.New(log, st, links, topo.MaxSeenMessages)

	return &Server{
		id:     id,
		log:    log,
		topo:   topo,
		store:  st,
		links:  links,
		engine: engine,
		places: lookup,
	}, nil
}

// Run starts the peer link manager, the inbound-fan-in loop, and the TCP
// listener; it blocks until ctx is cancelled.
func (s *Server) Run(ctx context.Context) liberr.Error {
	addr := fmt.Sprintf("%s:%d", s.topo.Host, s.topo.Ports[s.id])

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return liberr.New(errs.CodeListenFailed.Uint16(), fmt.Sprintf("listen on %s: %s", addr, err.Error()))
	}
	defer ln.Close()

	s.log.Info("server %s listening on %s", nil, s.id, addr)

	go s.links.Run(ctx)
	go s.fanInPeerLines(ctx)

	go func() {
		<-ctx.Done()
		_ = ln.Close()
	}()

	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			s.log.Warning("accept failed: %s", nil, err.Error())
			continue
		}

		h := &session.Handler{
			ServerID: s.id,
			Store:    s.store,
			Gossip:   s.engine,
			Places:   s.places,
			Log:      s.log,
		}

		go h.Serve(ctx, conn)
	}
}

// fanInPeerLines reads every line the Peer Link Manager receives from
// connected neighbors and submits well-formed AT records to the Gossip
// Engine tagged with their originating neighbor, so the flood never sends a
// record back the way it came. Non-AT lines are logged and ignored.
func (s *Server) fanInPeerLines(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case in, ok := <-s.links.Inbound():
			if !ok {
				return
			}

			msg := protocol.Decode(in.Line)
			if msg.Kind != protocol.KindAT {
				s.log.Info("ignoring non-AT line from peer %s: %s", nil, in.Neighbor, in.Line)
				continue
			}

			skew, _ := parseSkew(msg.AT.SignedSkew)

			s.engine.Submit(recordFromAT(msg.AT, skew), in.Neighbor)
		}
	}
}
