// Package session implements the per-connection protocol state machine: one
// handler per accepted inbound socket, dispatching decoded commands to the
// Location Store, the Gossip Engine, and the Places Client. The core does
// not distinguish client sockets from peer sockets at accept time — any
// socket may carry any command (see the protocol's connection-disambiguation
// note); only AT records received here are tagged with an empty source,
// since an accepted inbound connection is never a neighbor this server
// dialed itself.
package session

import (
	"bufio"
	"context"
	"net"
	"time"

	logger "github.com/nabbar/proxyherd/logger"

	"github.com/nabbar/proxyherd/internal/gossip"
	"github.com/nabbar/proxyherd/internal/places"
	"github.com/nabbar/proxyherd/internal/protocol"
	"github.com/nabbar/proxyherd/internal/store"
)

// Handler drives the protocol over one accepted connection.
type Handler struct {
	ServerID string
	Store    *store.Store
	Gossip   *gossip.Engine
	Places   places.Lookup
	Log      logger.Logger
	Now      func() time.Time
}

// Serve reads lines from conn until EOF or a write failure, dispatching each
// to the appropriate command handler. It closes conn before returning.
func (h *Handler) Serve(ctx context.Context, conn net.Conn) {
	defer conn.Close()

	addr := conn.RemoteAddr().String()
	h.Log.Info("connection accepted from %s", nil, addr)
	defer h.Log.Info("connection closed from %s", nil, addr)

	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		if ctx.Err() != nil {
			return
		}

		line := scanner.Text()
		h.Log.Debug("command received from %s: %s", nil, addr, line)

		reply, ok := h.dispatch(ctx, line)
		if !ok {
			continue
		}

		if _, err := conn.Write([]byte(reply)); err != nil {
			h.Log.Warning("write to %s failed: %s", nil, addr, err.Error())
			return
		}

		h.Log.Debug("command processed from %s", nil, addr)
	}
}

// dispatch decodes one line and returns the reply to write, if any. AT
// messages from peers never reply (ok == false): the peer connection is a
// one-way stream of records, not a request/response exchange.
func (h *Handler) dispatch(ctx context.Context, line string) (reply string, ok bool) {
	msg := protocol.Decode(line)

	switch msg.Kind {
	case protocol.KindIAMAT:
		return h.handleIAMAT(msg.IAMAT) + "\n", true
	case protocol.KindWHATSAT:
		return h.handleWHATSAT(ctx, msg.WHATSAT, line), true
	case protocol.KindAT:
		h.handleAT(msg.AT)
		return "", false
	default:
		return protocol.Unknown(line) + "\n", true
	}
}

func (h *Handler) handleIAMAT(m protocol.IAMAT) string {
	clientTime, _ := parseSeconds(m.ClientTime)
	skew := secondsSince(clientTime, h.now())

	canonical := protocol.FormatAT(h.ServerID, m.ClientID, m.Location, m.ClientTime, skew)

	rec := store.Record{
		ClientID:      m.ClientID,
		Location:      m.Location,
		ClientTime:    m.ClientTime,
		OriginServer:  h.ServerID,
		TimeSkew:      skew,
		CanonicalLine: canonical,
	}

	h.Gossip.Submit(rec, "")

	return canonical
}

func (h *Handler) handleWHATSAT(ctx context.Context, m protocol.WHATSAT, original string) string {
	rec, found := h.Store.Get(m.ClientID)
	if !found {
		return protocol.Unknown(original) + "\n"
	}

	lat, lon, err := parseLocation(rec.Location)
	if err != nil {
		return protocol.Unknown(original) + "\n"
	}

	body := h.Places.Lookup(ctx, lat, lon, m.RadiusKM, m.MaxResults)

	return rec.CanonicalLine + "\n" + body + "\n\n"
}

func (h *Handler) handleAT(m protocol.AT) {
	skew, _ := parseSeconds(m.SignedSkew)

	rec := store.Record{
		ClientID:      m.ClientID,
		Location:      m.Location,
		ClientTime:    m.ClientTime,
		OriginServer:  m.OriginServer,
		TimeSkew:      skew,
		CanonicalLine: "AT " + m.OriginServer + " " + m.SignedSkew + " " + m.ClientID + " " + m.Location + " " + m.ClientTime,
	}

	// An AT arriving on an accepted inbound socket with no declared peer
	// identity is treated identically to any peer message: dedup, LWW,
	// forward. The Gossip Engine only uses source to skip re-flooding back
	// to where a record came from.
	h.Gossip.Submit(rec, "")
}

func (h *Handler) now() time.Time {
	if h.Now != nil {
		return h.Now()
	}
	return time.Now()
}
