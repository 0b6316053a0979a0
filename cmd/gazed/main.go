// gazed: hosts the gaze engine for browser landmark providers.
// Providers stream face-mesh landmarks over WebSocket or a WebRTC DataChannel and
// get render descriptors back; viewers can watch any session.
package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/teslashibe/go-gaze/internal/config"
	"github.com/teslashibe/go-gaze/internal/log"
	"github.com/teslashibe/go-gaze/pkg/engine"
	"github.com/teslashibe/go-gaze/pkg/web"
)

var (
	version    = "0.1.0"
	port       = flag.String("port", "", "HTTP server port (env GAZE_PORT, default 8080)")
	configPath = flag.String("config", "", "YAML or JSON config file (env GAZE_CONFIG)")
	logLevel   = flag.String("log-level", "", "debug, info, warn or error (env GAZE_LOG_LEVEL)")
	preset     = flag.String("preset", "", "engine preset: calm, default or lively")
	static     = flag.String("static", "", "directory with a browser client to serve at /")
	loopback   = flag.Bool("loopback", false, "gather loopback ICE candidates (same-host peers)")
	quiet      = flag.Bool("quiet", false, "disable access logs")
)

func main() {
	flag.Parse()

	file, err := loadFile()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	log.Init(pick(*logLevel, os.Getenv("GAZE_LOG_LEVEL"), file.Server.LogLevel, config.DefaultLogLevel))
	logger := log.L()

	cfg := file.Engine
	if *preset != "" {
		p, ok := engine.Preset(*preset)
		if !ok {
			logger.Error("unknown preset", "preset", *preset, "choices", engine.PresetNames())
			os.Exit(1)
		}
		cfg = p
	}
	manager, err := engine.NewManager(cfg)
	if err != nil {
		logger.Error("invalid engine config", "error", err)
		os.Exit(1)
	}

	ice := config.ICEServers()
	if len(ice) == 0 {
		ice = file.Server.ICEServers
	}
	opts := web.Options{
		Addr:       ":" + pick(*port, os.Getenv("GAZE_PORT"), file.Server.Port, config.DefaultPort),
		Manager:    manager,
		Logger:     logger,
		StaticDir:  pick(*static, config.StaticDir(), file.Server.StaticDir),
		ICEServers: ice,
		Loopback:   *loopback,
	}
	if *quiet {
		opts.AccessLog = io.Discard
	}
	server := web.NewServer(opts)

	logger.Info("gazed starting", "version", version, "addr", opts.Addr, "mode", cfg.Mode)

	errc := make(chan error, 1)
	go func() { errc <- server.Start() }()

	// Wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-quit:
		logger.Info("shutting down", "signal", sig.String())
	case err := <-errc:
		logger.Error("server error", "error", err)
	}

	if err := server.Shutdown(); err != nil {
		logger.Warn("shutdown error", "error", err)
	}
}

// loadFile reads the config file named by -config or GAZE_CONFIG, or returns the
// defaults when neither is set.
func loadFile() (config.File, error) {
	path := pick(*configPath, config.ConfigPath())
	if path == "" {
		return config.File{Engine: engine.DefaultConfig()}, nil
	}
	return config.LoadFile(path)
}

// pick returns the first non-empty value.
func pick(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
