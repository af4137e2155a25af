// Package metrics declares the Prometheus collectors shared by the gossip
// engine, the peer link manager, and the places client, and the Registry
// they are kept in, from which a node's /metrics endpoint is served.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var Registry = prometheus.NewRegistry()

var (
	GossipAccepted = promauto.With(Registry).NewCounterVec(prometheus.CounterOpts{
		Name: "proxyherd_gossip_records_accepted_total",
		Help: "AT records accepted into the location store, by origin server.",
	}, []string{"origin"})

	GossipDropped = promauto.With(Registry).NewCounterVec(prometheus.CounterOpts{
		Name: "proxyherd_gossip_records_dropped_total",
		Help: "AT records dropped by the gossip engine, by reason.",
	}, []string{"reason"})

	GossipFlooded = promauto.With(Registry).NewCounterVec(prometheus.CounterOpts{
		Name: "proxyherd_gossip_flood_sends_total",
		Help: "AT records forwarded to a neighbor, by neighbor and outcome.",
	}, []string{"neighbor", "outcome"})

	PeerLinkState = promauto.With(Registry).NewGaugeVec(prometheus.GaugeOpts{
		Name: "proxyherd_peer_link_state",
		Help: "Current peer link state per neighbor (0=disconnected,1=connecting,2=connected,3=waiting).",
	}, []string{"neighbor"})

	PlacesLookupSeconds = promauto.With(Registry).NewHistogram(prometheus.HistogramOpts{
		Name:    "proxyherd_places_lookup_seconds",
		Help:    "Latency of outbound places-lookup HTTP calls.",
		Buckets: prometheus.DefBuckets,
	})
)
