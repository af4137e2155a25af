// Command proxyherd starts one node of the location-proxy federation.
//
// Usage: proxyherd <SERVER_ID>
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	logger "github.com/nabbar/proxyherd/logger"
	logcfg "github.com/nabbar/proxyherd/logger/config"
	loglvl "github.com/nabbar/proxyherd/logger/level"

	"github.com/nabbar/proxyherd/internal/metrics"
	"github.com/nabbar/proxyherd/internal/places"
	"github.com/nabbar/proxyherd/internal/server"
	"github.com/nabbar/proxyherd/internal/topology"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	var metricsAddr string
	var topologyFile string
	var logFile string

	cmd := &cobra.Command{
		Use:   "proxyherd SERVER_ID",
		Short: "Run one node of the location-proxy gossip federation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), args[0], metricsAddr, topologyFile, logFile)
		},
	}

	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "address to serve Prometheus /metrics on (disabled if empty)")
	cmd.Flags().StringVar(&topologyFile, "topology", "", "optional topology override file (yaml/json/toml)")
	cmd.Flags().StringVar(&logFile, "log-file", "", "also write logs to this file, creating it and its parent directory as needed (disabled if empty)")
	cmd.SilenceUsage = false

	return cmd
}

func run(ctx context.Context, serverID, metricsAddr, topologyFile, logFile string) error {
	topo, e := topology.LoadOverride(topology.Default(), topologyFile)
	if e != nil {
		return e
	}

	if !topo.Has(serverID) {
		return fmt.Errorf("unknown server id %q; valid ids: %s", serverID, strings.Join(topo.ServerIDs(), ", "))
	}

	if e := topo.Validate(); e != nil {
		return e
	}

	log := logger.New(ctx)
	log.SetLevel(loglvl.InfoLevel)
	log.SetFields(log.GetFields().Add("server_id", serverID))

	if logFile != "" {
		if e := log.SetOptions(&logcfg.Options{
			LogFile: []logcfg.OptionsFile{
				{
					Filepath:   logFile,
					Create:     true,
					CreatePath: true,
				},
			},
		}); e != nil {
			return fmt.Errorf("configuring log file %q: %w", logFile, e)
		}
	}

	var lookup places.Lookup

	placesClient, e := places.New(os.Getenv("PLACES_API_KEY"))
	if e != nil {
		log.Warning("places client unavailable: %s; WHATSAT will report errors", nil, e.Error())
		lookup = errorOnlyLookup{}
	} else {
		lookup = placesClient
	}

	srv, e := server.New(serverID, topo, log, lookup)
	if e != nil {
		return e
	}

	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if metricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))
		metricsSrv := &http.Server{Addr: metricsAddr, Handler: mux}

		go func() {
			<-ctx.Done()
			_ = metricsSrv.Close()
		}()

		go func() {
			if e := metricsSrv.ListenAndServe(); e != nil && e != http.ErrServerClosed {
				log.Warning("metrics server stopped: %s", nil, e.Error())
			}
		}()
	}

	return srv.Run(ctx)
}

// errorOnlyLookup is used when the places client cannot be constructed (no
// API key configured): every WHATSAT still gets a well-formed error body
// instead of the process failing to start.
type errorOnlyLookup struct{}

func (errorOnlyLookup) Lookup(_ context.Context, _, _ float64, _, _ int) string {
	return `{"error":"places client not configured"}`
}
