// Command panemuxd is the long-lived daemon process: it owns every PTY
// child, serves the wire protocol to attached clients, and persists state
// across restarts.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"panemux/internal/config"
	"panemux/internal/daemon"
)

func main() {
	var (
		foreground = flag.Bool("foreground", true, "run in the foreground (daemonizing is left to the caller, e.g. nohup/systemd)")
		cfgPath    = flag.String("config", config.DefaultPath(), "path to the YAML config file")
		sockPath   = flag.String("socket", "", "override the daemon's listen socket path")
	)
	flag.Parse()
	_ = foreground

	logger := log.New(os.Stderr, "[panemuxd] ", log.LstdFlags|log.Lmsgprefix)

	cfg, err := config.EnsureFile(*cfgPath)
	if err != nil {
		logger.Printf("config load failed, continuing with defaults: %v", err)
	}

	socketPath := cfg.SocketPath
	if *sockPath != "" {
		socketPath = *sockPath
	}
	if socketPath == "" {
		socketPath = config.DefaultSocketPath()
	}
	statePath := filepath.Join(config.DefaultDataDir(), "state.json")

	d, err := daemon.New(cfg, *cfgPath, socketPath, statePath)
	if err != nil {
		if err == daemon.ErrAlreadyRunning {
			logger.Fatalf("another panemuxd instance is already listening on %s", socketPath)
		}
		logger.Fatalf("failed to start: %v", err)
	}

	cwd, err := os.Getwd()
	if err != nil {
		cwd = "."
	}
	if saved, ok, err := daemon.LoadSavedState(statePath); err != nil {
		logger.Printf("failed to load saved state, starting fresh: %v", err)
		d.Bootstrap(cwd, 80, 24, nil)
	} else if ok {
		d.Restore(saved, 80, 24)
		d.Bootstrap(cwd, 80, 24, nil) // no-op if Restore seeded a workspace
	} else {
		d.Bootstrap(cwd, 80, 24, nil)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM, syscall.SIGHUP)
	go func() {
		for s := range sig {
			switch s {
			case syscall.SIGHUP:
				d.ReloadNow()
			default:
				logger.Printf("received %s, shutting down", s)
				d.Quit()
				return
			}
		}
	}()

	logger.Printf("listening on %s", socketPath)
	if err := d.Run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "panemuxd: %v\n", err)
		os.Exit(1)
	}
}
