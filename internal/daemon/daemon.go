// Package daemon implements the long-lived process that owns PTY children
// and serves the wire protocol in internal/protocol to attached clients:
// the listener loop, per-client connection handling, the PTY/event loop,
// broadcast fan-out, persistence, and graceful shutdown.
package daemon

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"panemux/internal/command"
	"panemux/internal/config"
	"panemux/internal/layout"
	"panemux/internal/mux"
	"panemux/internal/protocol"
	"panemux/internal/sessionlog"
	"panemux/internal/workerutil"
)

// defaultAttachWidth/Height seed a client's reported size before its first
// Resize message arrives.
const (
	defaultAttachWidth  = 80
	defaultAttachHeight = 24
)

const statsInterval = 2 * time.Second

// Daemon ties together the mux state, the broadcast hub, and the listener
// loop. Exactly one Daemon exists per process (enforced by Listen's
// single-instance probe).
type Daemon struct {
	cfg     atomic.Pointer[config.Config]
	cfgPath string

	State      *mux.ServerState
	Hub        *Hub
	events     *eventQueue
	listener   net.Listener
	socketPath string
	statePath  string

	logger *slog.Logger

	wg           sync.WaitGroup
	shutdownOnce sync.Once
	quit         chan struct{}

	cpuPrev cpuSample
}

// New constructs a Daemon bound to socketPath. cfgPath and statePath may be
// empty to disable config hot-reload / persistence respectively (useful in
// tests). The caller is responsible for calling Bootstrap before Run if no
// saved state is restored.
func New(cfg config.Config, cfgPath, socketPath, statePath string) (*Daemon, error) {
	ln, err := Listen(socketPath)
	if err != nil {
		return nil, err
	}
	d := &Daemon{
		cfgPath:    cfgPath,
		State:      mux.NewServerState(),
		events:     newEventQueue(),
		listener:   ln,
		socketPath: socketPath,
		statePath:  statePath,
		quit:       make(chan struct{}),
	}
	d.cfg.Store(&cfg)
	d.Hub = NewHub(cfg.BroadcastCapacity)
	d.State.OnTabOutput = func(id mux.TabID, data []byte) {
		cp := append([]byte(nil), data...)
		d.events.Push(AppEvent{Kind: EventPtyOutput, TabID: id, Data: cp})
	}
	d.logger = slog.New(sessionlog.NewTeeHandler(
		slog.NewTextHandler(os.Stderr, nil),
		slog.LevelWarn,
		d.forwardLogEntry,
	))
	return d, nil
}

// Config returns the currently active configuration. Safe to call
// concurrently with Reload.
func (d *Daemon) Config() config.Config { return *d.cfg.Load() }

// Reload atomically swaps the active configuration. In-flight command
// handlers observe either the old or new config in full, never a partial
// mix.
func (d *Daemon) Reload(cfg config.Config) { d.cfg.Store(&cfg) }

func (d *Daemon) forwardLogEntry(_ time.Time, level slog.Level, msg, _ string) {
	if d.Hub == nil {
		return
	}
	d.Hub.Broadcast(protocol.ServerMessage{Kind: protocol.ServerLogEntry, Level: level.String(), Message: msg})
}

// Bootstrap seeds one workspace when no saved state was restored. Must be
// called before Run; a no-op if a workspace already exists.
func (d *Daemon) Bootstrap(cwd string, cols, rows int, env []string) {
	d.State.Lock()
	defer d.State.Unlock()
	if len(d.State.Workspaces) > 0 {
		return
	}
	d.State.NewWorkspace(cwd, cols, rows, env)
}

// Restore rehydrates workspaces from a previously saved state document.
// The first tab of each window is spawned fresh with its kind's default
// command (only the workspace's first window reuses the saved cwd); the
// remaining tabs respawn their saved command, args and env. Tabs whose
// respawn fails enter the normal spawn-error state (banner, Exited).
// Restoration is best-effort:
// each saved window becomes one split, recreated left-to-right rather than
// replaying the exact saved ratios/directions.
func (d *Daemon) Restore(saved *SavedState, cols, rows int) {
	d.State.Lock()
	defer d.State.Unlock()
	if saved == nil || len(saved.Workspaces) == 0 {
		return
	}
	for _, ws := range saved.Workspaces {
		firstWindow := true
		for _, win := range ws.Windows {
			if len(win.Tabs) == 0 {
				continue
			}
			head := win.Tabs[0]
			if firstWindow {
				d.State.NewWorkspace(head.Cwd, cols, rows, nil)
				d.State.RenameWorkspace(d.State.ActiveWorkspace, ws.Name)
				firstWindow = false
			} else {
				d.State.SplitActiveWindow(ws.Name, layout.Horizontal, mux.ParseTabKind(head.Kind), cols, rows, nil)
			}
			for _, tab := range win.Tabs[1:] {
				d.State.AddTabToActiveWindow(ws.Name, mux.ParseTabKind(tab.Kind), tab.Command, tab.Args, cols, rows, tab.Env)
			}
		}
	}
	if saved.ActiveWorkspace != "" {
		if _, ok := d.State.Workspace(saved.ActiveWorkspace); ok {
			d.State.ActiveWorkspace = saved.ActiveWorkspace
		}
	}
}

// Run accepts connections until ctx is cancelled or a command/signal
// triggers shutdown, then performs graceful teardown. It blocks until
// shutdown completes.
func (d *Daemon) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	recovery := workerutil.RecoveryOptions{
		OnPanic: func(worker string, attempt int) {
			d.logger.Warn("worker panicked, restarting", "worker", worker, "attempt", attempt)
		},
		OnFatal: func(worker string, maxRetries int) {
			d.logger.Error("worker exceeded max retries, giving up", "worker", worker, "maxRetries", maxRetries)
		},
		IsShutdown: func() bool {
			select {
			case <-d.quit:
				return true
			default:
				return false
			}
		},
	}

	workerutil.RunWithPanicRecovery(ctx, "accept-loop", &d.wg, func(ctx context.Context) {
		d.acceptLoop(ctx)
	}, recovery)
	workerutil.RunWithPanicRecovery(ctx, "event-loop", &d.wg, func(ctx context.Context) {
		d.eventLoop(ctx)
	}, recovery)
	workerutil.RunWithPanicRecovery(ctx, "stats-poller", &d.wg, func(ctx context.Context) {
		d.statsPoller(ctx)
	}, recovery)
	if d.cfgPath != "" {
		workerutil.RunWithPanicRecovery(ctx, "config-watch", &d.wg, func(ctx context.Context) {
			d.watchConfig(ctx)
		}, recovery)
	}

	var suspendWg sync.WaitGroup
	if secs := d.Config().AutoSuspendSecs; secs > 0 {
		suspendWg.Add(1)
		go func() {
			defer suspendWg.Done()
			d.autoSuspendLoop(ctx, secs)
		}()
	}

	select {
	case <-ctx.Done():
	case <-d.quit:
		cancel()
	}

	d.listener.Close()
	d.Hub.CloseAll()
	d.events.Close()
	d.wg.Wait()
	suspendWg.Wait()

	return d.shutdown()
}

// Quit requests graceful shutdown, e.g. in response to kill-server or
// SIGTERM/SIGINT.
func (d *Daemon) Quit() {
	d.shutdownOnce.Do(func() { close(d.quit) })
}

func (d *Daemon) shutdown() error {
	d.State.Lock()
	saved := BuildSavedState(d.State)
	d.State.Unlock()

	if d.statePath != "" {
		if err := SaveState(d.statePath, saved); err != nil {
			d.logger.Error("failed to save state on shutdown", "error", err)
		}
	}
	if err := RemoveSocket(d.socketPath); err != nil {
		return fmt.Errorf("daemon: remove socket: %w", err)
	}
	return nil
}

func (d *Daemon) acceptLoop(ctx context.Context) {
	for {
		conn, err := d.listener.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				return
			default:
			}
			if errors.Is(err, net.ErrClosed) {
				return
			}
			d.logger.Warn("accept failed", "error", err)
			continue
		}
		d.wg.Add(1)
		go func() {
			defer d.wg.Done()
			d.handleConn(ctx, conn)
		}()
	}
}

// handleConn services one client connection end to end. The first message
// determines the connection's mode: Attach enters the long-lived streaming
// loop; CommandSync runs one command and closes.
func (d *Daemon) handleConn(ctx context.Context, conn net.Conn) {
	defer conn.Close()

	var first protocol.ClientMessage
	if err := protocol.ReadMessage(conn, &first); err != nil {
		return
	}

	switch first.Kind {
	case protocol.ClientCommandSync:
		d.handleCommandSync(conn, first)
	case protocol.ClientAttach:
		d.handleAttach(ctx, conn)
	default:
		protocol.WriteMessage(conn, protocol.ServerMessage{Kind: protocol.ServerError, Message: "first message must be Attach or CommandSync"})
	}
}

func (d *Daemon) handleCommandSync(conn net.Conn, msg protocol.ClientMessage) {
	cfg := d.Config()
	wsName := d.primaryWorkspaceName()
	out := d.runCommand(msg.Command, wsName, cfg)
	protocol.WriteMessage(conn, out)
}

func (d *Daemon) handleAttach(ctx context.Context, conn net.Conn) {
	width, height := defaultAttachWidth, defaultAttachHeight
	d.State.Lock()
	wsName := d.State.ActiveWorkspace
	clientID := d.State.Clients.Attach(width, height, wsName)
	d.State.Unlock()

	c := d.Hub.Register(clientID, conn)
	defer d.Hub.Unregister(clientID)
	defer func() {
		d.State.Lock()
		d.State.Clients.Detach(clientID)
		d.recomputeEffectiveSizeLocked()
		d.State.Unlock()
	}()

	if !c.send(protocol.ServerMessage{Kind: protocol.ServerAttached, ClientID: uint64(clientID)}) {
		return
	}
	d.State.Lock()
	render := protocol.BuildRenderState(d.State)
	d.State.Unlock()
	c.send(protocol.ServerMessage{Kind: protocol.ServerLayoutChanged, RenderState: render})

	for {
		var msg protocol.ClientMessage
		if err := protocol.ReadMessage(conn, &msg); err != nil {
			return
		}
		if d.dispatchClientMessage(clientID, msg) == outcomeDetach {
			return
		}
	}
}

type dispatchOutcome int

const (
	dispatchContinue dispatchOutcome = iota
	outcomeDetach
)

func (d *Daemon) dispatchClientMessage(clientID mux.ClientID, msg protocol.ClientMessage) dispatchOutcome {
	switch msg.Kind {
	case protocol.ClientDetach:
		return outcomeDetach

	case protocol.ClientResize:
		d.State.Lock()
		d.State.Clients.SetSize(clientID, int(msg.Width), int(msg.Height))
		d.recomputeEffectiveSizeLocked()
		d.State.Unlock()

	case protocol.ClientKey:
		d.writeKeyToActiveTab(clientID, msg)

	case protocol.ClientMouseDown, protocol.ClientMouseDrag, protocol.ClientMouseMove, protocol.ClientMouseUp, protocol.ClientMouseScroll:
		// Mouse routing is client-overlay territory (copy-mode selection,
		// drag-resize); the daemon has no mouse-aware command surface yet.

	case protocol.ClientCommand:
		cfg := d.Config()
		info, _ := d.State.Clients.Get(clientID)
		out := d.runCommand(msg.Command, info.ActiveWorkspace, cfg)
		if out.Kind == protocol.ServerError {
			d.Hub.Send(clientID, out)
		}

	case protocol.ClientKickClient:
		d.Hub.Unregister(mux.ClientID(msg.ClientID))

	case protocol.ClientSetActiveWorkspace:
		d.State.Lock()
		ws, ok := d.State.WorkspaceByIndex(msg.Index)
		if ok {
			d.State.Clients.SetActiveWorkspace(clientID, ws.Name)
		}
		d.State.Unlock()
	}
	return dispatchContinue
}

func (d *Daemon) writeKeyToActiveTab(clientID mux.ClientID, msg protocol.ClientMessage) {
	data := translateKeyCode(msg.Code, msg.Modifiers)
	if len(data) == 0 {
		return
	}
	d.State.Lock()
	info, ok := d.State.Clients.Get(clientID)
	if !ok {
		d.State.Unlock()
		return
	}
	ws, ok := d.State.Workspace(info.ActiveWorkspace)
	if !ok {
		d.State.Unlock()
		return
	}
	win := ws.ActiveWindow()
	var tab *mux.Tab
	if win != nil {
		tab = win.Active()
	}
	d.State.Unlock()
	if tab != nil {
		tab.WriteInput(data)
	}
}

// runCommand parses and executes a command line, translating the result
// into the matching Server→Client message. On a geometry/focus-affecting result it also broadcasts the
// updated RenderState to every attached client.
func (d *Daemon) runCommand(line string, wsName string, cfg config.Config) protocol.ServerMessage {
	cmd, err := command.Parse(line)
	if err != nil {
		return protocol.ServerMessage{Kind: protocol.ServerError, Message: err.Error()}
	}
	w, h := d.effectiveSize(cfg)
	res, err := command.Execute(cmd, d.State, wsName, w, h)
	if err != nil {
		return protocol.ServerMessage{Kind: protocol.ServerError, Message: err.Error()}
	}

	switch res.Kind {
	case command.ResultLayoutChanged:
		d.State.Lock()
		render := protocol.BuildRenderState(d.State)
		d.State.Unlock()
		d.Hub.Broadcast(protocol.ServerMessage{Kind: protocol.ServerLayoutChanged, RenderState: render})
	case command.ResultSessionEnded:
		d.Hub.Broadcast(protocol.ServerMessage{Kind: protocol.ServerSessionEnded})
		d.Quit()
	}

	out := protocol.ServerMessage{Kind: protocol.ServerCommandOutput, Output: res.Output, Success: true}
	out.PaneNum = res.PaneID
	out.WindowID = res.WindowID
	return out
}

// recomputeEffectiveSizeLocked resizes every tab to the new minimum client
// size and broadcasts the resulting layout. Must be called with the state
// lock held; it releases and reacquires it around the broadcast build.
func (d *Daemon) recomputeEffectiveSizeLocked() {
	if _, _, ok := d.State.Clients.EffectiveSize(); !ok {
		return
	}
	d.State.ResizeAllWorkspaces()
	render := protocol.BuildRenderState(d.State)
	d.State.Unlock()
	d.Hub.Broadcast(protocol.ServerMessage{Kind: protocol.ServerLayoutChanged, RenderState: render})
	d.State.Lock()
}

func (d *Daemon) effectiveSize(cfg config.Config) (int, int) {
	if w, h, ok := d.State.Clients.EffectiveSize(); ok {
		return w, h
	}
	return defaultAttachWidth, defaultAttachHeight
}

func (d *Daemon) primaryWorkspaceName() string {
	d.State.Lock()
	defer d.State.Unlock()
	return d.State.ActiveWorkspace
}

// eventLoop drains PTY/stats events and translates them into broadcasts.
func (d *Daemon) eventLoop(ctx context.Context) {
	for {
		events := d.events.Drain()
		if events == nil {
			return
		}
		for _, ev := range events {
			if ctx.Err() != nil {
				return
			}
			d.handleEvent(ev)
		}
	}
}

func (d *Daemon) handleEvent(ev AppEvent) {
	switch ev.Kind {
	case EventPtyOutput:
		n, ok := d.tabNumber(ev.TabID)
		if !ok {
			return
		}
		d.Hub.Broadcast(protocol.ServerMessage{Kind: protocol.ServerPaneOutput, PaneID: formatTabID(n), Data: ev.Data})

	case EventPtyExited:
		n, _ := d.tabNumber(ev.TabID)
		d.Hub.Broadcast(protocol.ServerMessage{Kind: protocol.ServerPaneExited, PaneID: formatTabID(n)})

		d.State.Lock()
		shouldQuit := d.State.HandlePtyExited(ev.TabID)
		var render *protocol.RenderState
		if !shouldQuit {
			render = protocol.BuildRenderState(d.State)
		}
		d.State.Unlock()

		if shouldQuit {
			d.Hub.Broadcast(protocol.ServerMessage{Kind: protocol.ServerSessionEnded})
			d.Quit()
			return
		}
		d.Hub.Broadcast(protocol.ServerMessage{Kind: protocol.ServerLayoutChanged, RenderState: render})

	case EventSystemStats:
		d.Hub.Broadcast(protocol.ServerMessage{
			Kind:    protocol.ServerStatsUpdate,
			CPUPct:  ev.Stats.CPUPct,
			MemPct:  ev.Stats.MemPct,
			Load1:   ev.Stats.Load1,
			DiskPct: ev.Stats.DiskPct,
		})
	}
}

func (d *Daemon) tabNumber(id mux.TabID) (uint32, bool) {
	d.State.Lock()
	defer d.State.Unlock()
	return d.State.IDs.TabNumber(id)
}

func (d *Daemon) statsPoller(ctx context.Context) {
	ticker := time.NewTicker(statsInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			var stats SystemStats
			stats, d.cpuPrev = sampleSystemStats(d.cpuPrev)
			d.events.Push(AppEvent{Kind: EventSystemStats, Stats: stats})
		}
	}
}

// autoSuspendLoop saves and requests shutdown once no clients have been
// attached continuously for secs seconds, sampled once a minute.
func (d *Daemon) autoSuspendLoop(ctx context.Context, secs int) {
	const sampleInterval = time.Minute
	ticker := time.NewTicker(sampleInterval)
	defer ticker.Stop()
	var idleSince time.Time
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			if d.Hub.Count() > 0 {
				idleSince = time.Time{}
				continue
			}
			if idleSince.IsZero() {
				idleSince = now
				continue
			}
			if now.Sub(idleSince) >= time.Duration(secs)*time.Second {
				d.Quit()
				return
			}
		}
	}
}

var _ io.Closer = (*Daemon)(nil)

// Close closes the listener without performing the full save-and-exit
// sequence; used by tests that want to force the accept loop to unblock.
func (d *Daemon) Close() error {
	return d.listener.Close()
}
