// Command pbap-server runs a standalone PBAP PSE over TCP, standing in for
// an RFCOMM channel accepted over Bluetooth (§1).
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/bmwcarit/gopbap/pbapserver"
	"github.com/bmwcarit/gopbap/vfolder"
	"github.com/charmbracelet/log"
	"github.com/spf13/pflag"
)

func main() {
	var (
		listen      = pflag.StringP("listen", "l", "", "listen address (overrides config)")
		rootDir     = pflag.StringP("rootdir", "r", "", "virtual-folder root directory (overrides config)")
		backend     = pflag.StringP("backend", "b", "", "storage backend: fs|mem (overrides config)")
		configPath  = pflag.StringP("config", "c", "", "optional YAML config file")
		fragmentCap = pflag.Int("fragment-cap", 0, "per-fragment byte cap for Pull Phonebook (overrides config)")
		logLevel    = pflag.String("log-level", "", "log level: debug|info|warn|error (overrides config)")
	)
	pflag.Parse()

	cfg, err := pbapserver.LoadConfig(*configPath)
	if err != nil {
		log.Fatal("pbap-server: failed to load config", "error", err)
	}
	if *listen != "" {
		cfg.Listen = *listen
	}
	if *rootDir != "" {
		cfg.RootDir = *rootDir
	}
	if *backend != "" {
		cfg.Backend = *backend
	}
	if *fragmentCap > 0 {
		cfg.FragmentCap = *fragmentCap
	}
	if *logLevel != "" {
		cfg.LogLevel = *logLevel
	}
	cfg.ApplyLogLevel()

	var store vfolder.Store
	switch cfg.Backend {
	case "mem":
		store = vfolder.NewMemStore()
	case "fs", "":
		store = vfolder.NewFSStore(cfg.RootDir)
	default:
		log.Fatal("pbap-server: unknown backend", "backend", cfg.Backend)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	err = pbapserver.ListenAndServe(ctx, cfg.Listen, store, "/",
		pbapserver.WithSessionOptions(pbapserver.WithFragmentCap(cfg.FragmentCap)))
	if err != nil && ctx.Err() == nil {
		log.Fatal("pbap-server: serve failed", "error", err)
	}
}
