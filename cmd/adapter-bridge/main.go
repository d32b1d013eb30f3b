package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/bluetooth-registry/bt-registry-server/internal/bluez"
	"github.com/bluetooth-registry/bt-registry-server/internal/config"
)

func main() {
	// Command line flags
	var configFile string
	var adapter string
	flag.StringVar(&configFile, "config", "config/adapter-bridge.yml", "Configuration file path")
	flag.StringVar(&adapter, "adapter", "", "Bluetooth adapter to bridge (overrides config)")
	flag.Parse()

	// Setup logging
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	// Load configuration
	cfg, err := config.Load(configFile)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	if adapter != "" {
		cfg.Bluez.Adapter = adapter
	}

	// Set log level
	level, err := zerolog.ParseLevel(cfg.Log.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	// Connect to NATS
	nc, err := nats.Connect(cfg.NATS.URL,
		nats.Name("bt-adapter-bridge-"+cfg.Bluez.Adapter),
		nats.UserInfo(cfg.NATS.Username, cfg.NATS.Password),
		nats.ReconnectWait(cfg.NATS.ReconnectInterval),
		nats.MaxReconnects(cfg.NATS.MaxReconnects),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			log.Warn().Err(err).Msg("Disconnected from NATS")
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info().Msg("Reconnected to NATS")
		}),
	)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to NATS")
	}
	defer nc.Close()

	log.Info().Str("url", cfg.NATS.URL).Msg("Connected to NATS")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigChan
		log.Info().Str("signal", sig.String()).Msg("Shutting down...")
		cancel()
	}()

	bridge := bluez.NewBridge(nc, &cfg.Bluez)
	if err := bridge.Run(ctx); err != nil && err != context.Canceled {
		log.Fatal().Err(err).Msg("Adapter bridge failed")
	}

	log.Info().Msg("Adapter bridge stopped")
}
