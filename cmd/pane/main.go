// Command pane is the terminal client: attached interactively it renders
// the daemon's workspace state to the controlling terminal and forwards
// keystrokes, and invoked as `pane tmux <command> [args...]` it sends one
// command synchronously and prints the result, for scripting and for
// editors/tools that want to drive panemuxd without an interactive session.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"panemux/internal/client"
	"panemux/internal/config"
	"panemux/internal/protocol"
)

func main() {
	if len(os.Args) > 1 && os.Args[1] == "tmux" {
		if err := runTmuxShim(os.Args[2:]); err != nil {
			fmt.Fprintf(os.Stderr, "pane: %v\n", err)
			os.Exit(1)
		}
		return
	}
	if err := runAttach(); err != nil {
		fmt.Fprintf(os.Stderr, "pane: %v\n", err)
		os.Exit(1)
	}
}

func socketPath() string {
	if sp := strings.TrimSpace(os.Getenv("PANE_SOCKET")); sp != "" {
		return sp
	}
	cfg, err := config.Load(config.DefaultPath())
	if err == nil && cfg.SocketPath != "" {
		return cfg.SocketPath
	}
	return config.DefaultSocketPath()
}

// runAttach drives one interactive session against an already-running
// daemon: dial, raw-mode the terminal, attach, and pump events until the
// session ends or the connection drops.
func runAttach() error {
	conn, err := client.Dial(socketPath())
	if err != nil {
		return fmt.Errorf("connect to daemon (is panemuxd running?): %w", err)
	}
	defer conn.Close()

	cfg, err := config.Load(config.DefaultPath())
	if err != nil {
		cfg = config.DefaultConfig()
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	stdinFd := int(os.Stdin.Fd())
	width, height := client.TerminalSize(stdinFd)

	c := client.New(conn, cfg, os.Stdin, os.Stdout, logger)
	c.EnterRawMode(stdinFd)
	defer c.Restore()

	if err := c.Attach(); err != nil {
		return fmt.Errorf("attach: %w", err)
	}
	c.Resize(width, height)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	winch := make(chan os.Signal, 1)
	signal.Notify(winch, syscall.SIGWINCH)
	defer signal.Stop(winch)
	go func() {
		for range winch {
			w, h := client.TerminalSize(stdinFd)
			c.Resize(w, h)
		}
	}()

	return c.Run(ctx)
}

// runTmuxShim sends one command synchronously over a fresh connection and
// prints the daemon's reply, mirroring tmux's own "one-shot subcommand"
// invocation style so scripts can call `pane tmux split-window -h` the same
// way they'd call `tmux split-window -h`.
func runTmuxShim(args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: pane tmux <command> [args...]")
	}
	conn, err := client.Dial(socketPath())
	if err != nil {
		return fmt.Errorf("connect to daemon (is panemuxd running?): %w", err)
	}
	defer conn.Close()

	line := strings.Join(args, " ")
	if err := protocol.WriteMessage(conn, protocol.ClientMessage{
		Kind: protocol.ClientCommandSync, Command: line,
	}); err != nil {
		return fmt.Errorf("send command: %w", err)
	}

	var reply protocol.ServerMessage
	if err := protocol.ReadMessage(conn, &reply); err != nil {
		return fmt.Errorf("read reply: %w", err)
	}
	switch reply.Kind {
	case protocol.ServerError:
		return fmt.Errorf("%s", reply.Message)
	case protocol.ServerCommandOutput:
		if reply.Output != "" {
			fmt.Fprint(os.Stdout, reply.Output)
			if !strings.HasSuffix(reply.Output, "\n") {
				fmt.Fprintln(os.Stdout)
			}
		}
		return nil
	default:
		return nil
	}
}
