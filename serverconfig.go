package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/maxpert/serverconfig/admin"
	"github.com/maxpert/serverconfig/cfg"
	"github.com/maxpert/serverconfig/coordinator"
	"github.com/maxpert/serverconfig/hlc"
	"github.com/maxpert/serverconfig/id"
	"github.com/maxpert/serverconfig/metadata"
	"github.com/maxpert/serverconfig/nameclient"
	"github.com/maxpert/serverconfig/notify"
	"github.com/maxpert/serverconfig/telemetry"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// homeLoopBuffer is the number of queue operations that may wait for the
// home loop before submitters block
const homeLoopBuffer = 256

func main() {
	flag.Parse()

	// Load configuration
	err := cfg.Load(*cfg.ConfigPathFlag)
	if err != nil {
		panic(err)
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		panic(fmt.Sprintf("Invalid configuration: %v", err))
	}

	// Setup logging
	var writer io.Writer = zerolog.NewConsoleWriter()
	if cfg.Config.Logging.Format == "json" {
		writer = os.Stdout
	}
	gLog := zerolog.New(writer).
		With().
		Timestamp().
		Uint64("node_id", cfg.Config.NodeID).
		Logger()

	if cfg.Config.Logging.Verbose {
		log.Logger = gLog.Level(zerolog.DebugLevel)
	} else {
		log.Logger = gLog.Level(zerolog.InfoLevel)
	}

	log.Info().Msg("Marmot server_config - cluster server metadata table")
	log.Debug().Msg("Initializing telemetry")
	telemetry.InitializeTelemetry()
	telemetry.InitMetrics()

	log.Info().Str("store", string(cfg.Config.Metadata.Store)).Msg("Opening server metadata")
	view, err := openView()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open server metadata")
	}

	clock := hlc.NewClock(cfg.Config.NodeID)
	serverID := localServerID()
	self := metadata.NewServerRecord(serverID, cfg.Config.Server.Name, metadata.NewTagSet(cfg.Config.Server.Tags...), clock.Now())
	if metadata.EnsureServer(view, self) {
		log.Info().
			Str("server_id", serverID.String()).
			Str("name", cfg.Config.Server.Name).
			Strs("tags", cfg.Config.Server.Tags).
			Msg("Registered local server")
	} else {
		log.Info().Str("server_id", serverID.String()).Msg("Local server already registered")
	}

	changes, unsubscribe := view.Subscribe()
	go logChanges(changes)

	loop := coordinator.NewHomeLoop(homeLoopBuffer)
	backend := coordinator.NewServerConfigBackend(view, nameclient.NewLocalClient(view, clock), loop)

	collector := telemetry.NewMetricsCollector(view, time.Duration(cfg.Config.Metadata.StatsIntervalSec)*time.Second)
	collector.Start()

	var server *http.Server
	if cfg.Config.Admin.Enabled {
		server, err = startAdminServer(backend, view)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to start admin server")
		}
	}

	log.Info().
		Uint64("node_id", cfg.Config.NodeID).
		Str("server_id", serverID.String()).
		Str("data_dir", cfg.Config.DataDir).
		Msg("Node is operational")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	log.Info().Str("signal", sig.String()).Msg("Shutting down")

	if server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		if err := server.Shutdown(ctx); err != nil {
			log.Warn().Err(err).Msg("Admin server shutdown failed")
		}
		cancel()
	}
	collector.Stop()
	loop.Stop()
	unsubscribe()
	if err := view.Close(); err != nil {
		log.Warn().Err(err).Msg("Failed to close metadata store")
	}
}

func openView() (*metadata.SharedView, error) {
	if cfg.Config.Metadata.Store == cfg.MetadataMemory {
		return metadata.NewSharedView(nil, nil), nil
	}

	store, err := metadata.OpenPebbleStore(cfg.GetMetadataPath(), metadata.PebbleStoreOptions{
		CacheSizeMB: cfg.Config.Metadata.PebbleCacheMB,
	})
	if err != nil {
		return nil, err
	}

	view, err := metadata.OpenSharedView(store)
	if err != nil {
		store.Close()
		return nil, err
	}
	return view, nil
}

// localServerID prefers the machine-derived ID; hosts without a readable
// machine ID fall back to one derived from the node ID
func localServerID() uuid.UUID {
	serverID, err := id.MachineServerID(cfg.AppID)
	if err == nil {
		return serverID
	}
	log.Warn().Err(err).Msg("Machine ID unavailable, deriving server ID from node ID")
	return id.FromSeed(strconv.FormatUint(cfg.Config.NodeID, 10))
}

func startAdminServer(backend *coordinator.ServerConfigBackend, view *metadata.SharedView) (*http.Server, error) {
	timeout := time.Duration(cfg.Config.NameClient.TimeoutMS) * time.Millisecond

	mux := http.NewServeMux()
	admin.RegisterRoutes(mux, admin.NewAdminHandlers(backend, view, timeout))
	if handler := telemetry.GetMetricsHandler(); handler != nil {
		mux.Handle("/metrics", handler)
	}

	addr := net.JoinHostPort(cfg.Config.Admin.BindAddress, strconv.Itoa(cfg.Config.Admin.Port))
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}

	server := &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("Admin server stopped")
		}
	}()

	log.Info().Str("address", addr).Msg("Admin server listening")
	return server, nil
}

func logChanges(changes <-chan notify.Signal) {
	for change := range changes {
		for _, serverID := range change.IDs {
			log.Debug().
				Str("collection", change.Collection).
				Str("server_id", serverID.String()).
				Msg("Server metadata changed")
		}
	}
}
