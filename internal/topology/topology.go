// Package topology supplies the static server/port/neighbor table consumed
// by the core. The compiled-in default mirrors the five-node topology this
// system was designed against; an operator may override it via a
// viper-backed file for local experimentation, but the module always has a
// working default with no configuration present.
package topology

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"

	liberr "github.com/nabbar/proxyherd/errors"
	"github.com/nabbar/proxyherd/internal/errs"
)

// Retry holds the exponential-backoff schedule for peer reconnection.
type Retry struct {
	InitialSeconds int
	Factor         int
	CapSeconds     int
}

// Topology is the fully resolved static configuration: server identifiers,
// their listening ports, and the undirected neighbor graph between them.
type Topology struct {
	Host            string
	Ports           map[string]int
	Neighbors       map[string][]string
	MaxRadiusKM     int
	MaxResults      int
	MaxSeenMessages int
	Retry           Retry
}

// Default returns the compiled-in five-node topology: Bailey, Bona,
// Campbell, Clark, Jaquez, with the neighbor graph and port table this
// system was designed against.
func Default() Topology {
	return Topology{
		Host: "127.0.0.1",
		Ports: map[string]int{
			"Bailey":   12027,
			"Bona":     12058,
			"Campbell": 12089,
			"Clark":    12120,
			"Jaquez":   12151,
		},
		Neighbors: map[string][]string{
			"Clark":    {"Jaquez", "Bona"},
			"Campbell": {"Bailey", "Bona", "Jaquez"},
			"Bona":     {"Bailey", "Clark", "Campbell"},
			"Bailey":   {"Bona", "Campbell"},
			"Jaquez":   {"Clark", "Campbell"},
		},
		MaxRadiusKM:     50,
		MaxResults:      20,
		MaxSeenMessages: 1000,
		Retry: Retry{
			InitialSeconds: 1,
			Factor:         2,
			CapSeconds:     60,
		},
	}
}

// LoadOverride reads an optional topology file (any format viper supports:
// yaml, json, toml) at path and applies the fields it sets on top of base.
// A field viper does not find in the file is left untouched, so a partial
// override file (e.g. just a different host) is legal. Returns base
// unchanged if path is empty.
func LoadOverride(base Topology, path string) (Topology, liberr.Error) {
	if path == "" {
		return base, nil
	}

	v := viper.New()
	v.SetConfigFile(path)

	if err := v.ReadInConfig(); err != nil {
		return base, liberr.New(errs.CodeInvalidTopology.Uint16(), fmt.Sprintf("reading topology override %q: %s", path, err.Error()))
	}

	out := base

	if v.IsSet("host") {
		out.Host = v.GetString("host")
	}
	if v.IsSet("ports") {
		ports := make(map[string]int, len(base.Ports))
		if err := v.UnmarshalKey("ports", &ports); err != nil {
			return base, liberr.New(errs.CodeInvalidTopology.Uint16(), fmt.Sprintf("decoding topology override ports: %s", err.Error()))
		}
		out.Ports = ports
	}
	if v.IsSet("neighbors") {
		neighbors := make(map[string][]string, len(base.Neighbors))
		if err := v.UnmarshalKey("neighbors", &neighbors); err != nil {
			return base, liberr.New(errs.CodeInvalidTopology.Uint16(), fmt.Sprintf("decoding topology override neighbors: %s", err.Error()))
		}
		out.Neighbors = neighbors
	}
	if v.IsSet("maxRadiusKM") {
		out.MaxRadiusKM = v.GetInt("maxRadiusKM")
	}
	if v.IsSet("maxResults") {
		out.MaxResults = v.GetInt("maxResults")
	}
	if v.IsSet("maxSeenMessages") {
		out.MaxSeenMessages = v.GetInt("maxSeenMessages")
	}

	return out, nil
}

// ServerIDs returns the configured server identifiers.
func (t Topology) ServerIDs() []string {
	ids := make([]string, 0, len(t.Ports))
	for id := range t.Ports {
		ids = append(ids, id)
	}
	return ids
}

// Has reports whether id is among the configured server identifiers.
func (t Topology) Has(id string) bool {
	_, ok := t.Ports[id]
	return ok
}

// NeighborAddresses returns the "host:port" address for every neighbor of id.
func (t Topology) NeighborAddresses(id string) map[string]string {
	out := make(map[string]string)
	for _, n := range t.Neighbors[id] {
		if port, ok := t.Ports[n]; ok {
			out[n] = fmt.Sprintf("%s:%d", t.Host, port)
		}
	}
	return out
}

// Validate checks internal consistency: every neighbor reference must name
// a configured server, and the graph must be symmetric (undirected).
func (t Topology) Validate() liberr.Error {
	for id, ns := range t.Neighbors {
		if !t.Has(id) {
			return liberr.New(errs.CodeInvalidTopology.Uint16(), fmt.Sprintf("neighbor list references unconfigured server %q", id))
		}

		for _, n := range ns {
			if !t.Has(n) {
				return liberr.New(errs.CodeInvalidTopology.Uint16(), fmt.Sprintf("server %q lists unconfigured neighbor %q", id, n))
			}

			if !contains(t.Neighbors[n], id) {
				return liberr.New(errs.CodeInvalidTopology.Uint16(), fmt.Sprintf("neighbor graph not symmetric: %q -> %q but not reverse", id, n))
			}
		}
	}

	return nil
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if strings.EqualFold(s, v) {
			return true
		}
	}
	return false
}
