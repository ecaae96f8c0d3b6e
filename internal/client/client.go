package client

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"
	"time"

	"golang.org/x/term"

	"panemux/internal/config"
	"panemux/internal/protocol"
)

// Dial connects to the daemon's listen socket. A connection refused or a
// missing socket both surface as a plain error; cmd/pane decides whether
// that means "start the daemon" or "give up".
func Dial(socketPath string) (net.Conn, error) {
	conn, err := net.Dial("unix", socketPath)
	if err != nil {
		return nil, fmt.Errorf("client: dial %s: %w", socketPath, err)
	}
	return conn, nil
}

// Client owns one attached session end to end: the socket, the raw
// terminal, the mode/overlay state machine, and one screen.Grid per known
// tab.
type Client struct {
	conn   net.Conn
	cfg    config.Config
	logger *slog.Logger

	in  io.Reader
	out io.Writer

	mode         *Mode
	leaderTree   *LeaderNode
	globalKeymap Keymap
	normalKeymap Keymap
	leader       *LeaderState
	copy         *CopyMode

	decoder  Decoder
	grids    *GridSet
	renderer *FrameRenderer
	render   *protocol.RenderState

	clientID      uint64
	width, height int
	lastYank      string

	termState *term.State
	termFd    int
}

// New wires a Client around an already-established daemon connection. in
// and out are the raw terminal streams (os.Stdin/os.Stdout in production,
// swappable in tests). The client starts at 80x24 until its first Resize.
func New(conn net.Conn, cfg config.Config, in io.Reader, out io.Writer, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Client{
		conn:         conn,
		cfg:          cfg,
		logger:       logger,
		in:           in,
		out:          out,
		mode:         NewMode(),
		leaderTree:   BuildLeaderTree(cfg.Keys, cfg.Prefix),
		globalKeymap: DefaultGlobalKeymap(),
		normalKeymap: DefaultNormalKeymap(),
		grids:        NewGridSet(2000, nil),
		renderer:     NewFrameRenderer(out),
		width:        80,
		height:       24,
	}
}

// EnterRawMode puts the controlling terminal (by file descriptor) into raw
// mode so every keystroke reaches the client uninterpreted, saving the
// prior state for Restore. Safe to call with a non-terminal fd (tests);
// term.MakeRaw returns an error in that case and raw mode is simply
// skipped.
func (c *Client) EnterRawMode(fd int) {
	c.termFd = fd
	if state, err := term.MakeRaw(fd); err == nil {
		c.termState = state
	}
}

// Restore undoes EnterRawMode. Deferred from cmd/pane's main so a panic
// still leaves the user's shell usable.
func (c *Client) Restore() {
	if c.termState != nil {
		term.Restore(c.termFd, c.termState)
	}
}

// Attach performs the connect handshake: send Attach, read Attached, read
// the first LayoutChanged, and seed the per-tab grids from it.
func (c *Client) Attach() error {
	if err := protocol.WriteMessage(c.conn, protocol.ClientMessage{
		Kind: protocol.ClientAttach,
	}); err != nil {
		return fmt.Errorf("client: send attach: %w", err)
	}
	var attached protocol.ServerMessage
	if err := protocol.ReadMessage(c.conn, &attached); err != nil {
		return fmt.Errorf("client: read attached: %w", err)
	}
	if attached.Kind != protocol.ServerAttached {
		return fmt.Errorf("client: expected Attached, got kind %d", attached.Kind)
	}
	c.clientID = attached.ClientID

	var first protocol.ServerMessage
	if err := protocol.ReadMessage(c.conn, &first); err != nil {
		return fmt.Errorf("client: read initial layout: %w", err)
	}
	if first.Kind != protocol.ServerLayoutChanged || first.RenderState == nil {
		return fmt.Errorf("client: expected initial LayoutChanged, got kind %d", first.Kind)
	}
	c.applyRenderState(first.RenderState)

	if err := protocol.WriteMessage(c.conn, protocol.ClientMessage{
		Kind: protocol.ClientResize, Width: uint16(c.width), Height: uint16(c.height),
	}); err != nil {
		return fmt.Errorf("client: send initial resize: %w", err)
	}
	return nil
}

func (c *Client) applyRenderState(rs *protocol.RenderState) {
	c.render = rs
	ws := c.activeWorkspace()
	if ws == nil {
		return
	}
	ids := AllTabIDs(ws)
	c.grids.Reconcile(ids, c.width, c.height)
}

func (c *Client) activeWorkspace() *protocol.WorkspaceSnapshot {
	if c.render == nil {
		return nil
	}
	for i := range c.render.Workspaces {
		if c.render.Workspaces[i].Name == c.render.ActiveWorkspace {
			return &c.render.Workspaces[i]
		}
	}
	if len(c.render.Workspaces) > 0 {
		return &c.render.Workspaces[0]
	}
	return nil
}

// Run drives the attached session: it multiplexes server messages, stdin
// bytes, and the leader-popup timer until ctx is cancelled or the
// connection drops. Run redraws once at entry and after every event that
// changes what should be on screen.
func (c *Client) Run(ctx context.Context) error {
	serverMsgs := make(chan protocol.ServerMessage, 64)
	serverErrs := make(chan error, 1)
	go c.readServerLoop(serverMsgs, serverErrs)

	stdinBytes := make(chan []byte, 64)
	stdinErrs := make(chan error, 1)
	go c.readStdinLoop(stdinBytes, stdinErrs)

	popupTicker := time.NewTicker(50 * time.Millisecond)
	defer popupTicker.Stop()

	c.redraw()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case msg, ok := <-serverMsgs:
			if !ok {
				continue
			}
			if c.handleServerMessage(msg) {
				return nil
			}

		case err := <-serverErrs:
			return fmt.Errorf("client: server connection: %w", err)

		case data, ok := <-stdinBytes:
			if !ok {
				continue
			}
			if c.handleStdin(data) {
				return nil
			}

		case err := <-stdinErrs:
			return fmt.Errorf("client: stdin: %w", err)

		case now := <-popupTicker.C:
			if c.mode.Overlay() == OverlayLeader && c.leader != nil {
				c.leader.Tick(now)
			}
		}
	}
}

func (c *Client) readServerLoop(out chan<- protocol.ServerMessage, errs chan<- error) {
	for {
		var msg protocol.ServerMessage
		if err := protocol.ReadMessage(c.conn, &msg); err != nil {
			errs <- err
			close(out)
			return
		}
		out <- msg
	}
}

func (c *Client) readStdinLoop(out chan<- []byte, errs chan<- error) {
	buf := make([]byte, 4096)
	for {
		n, err := c.in.Read(buf)
		if n > 0 {
			cp := append([]byte(nil), buf[:n]...)
			out <- cp
		}
		if err != nil {
			errs <- err
			close(out)
			return
		}
	}
}

// handleServerMessage applies one Server→Client message and reports
// whether the session should end (detach or the daemon shutting down).
func (c *Client) handleServerMessage(msg protocol.ServerMessage) (done bool) {
	switch msg.Kind {
	case protocol.ServerLayoutChanged:
		if msg.RenderState != nil {
			c.applyRenderState(msg.RenderState)
			c.redraw()
		}
	case protocol.ServerPaneOutput:
		ws := c.activeWorkspace()
		if ws != nil {
			c.grids.Feed(msg.PaneID, c.width, c.height, msg.Data)
		}
		c.redraw()
	case protocol.ServerPaneExited:
		c.redraw()
	case protocol.ServerSessionEnded:
		return true
	case protocol.ServerCommandOutput, protocol.ServerError:
		// Command results and errors are not displayed by the client;
		// they are dropped here.
	case protocol.ServerLogEntry:
		c.logger.Warn("daemon log", "level", msg.Level, "message", msg.Message)
	}
	return false
}

// handleStdin decodes raw bytes into keys and dispatches each through the
// mode state machine. Reports whether the session should end (quit).
func (c *Client) handleStdin(data []byte) (done bool) {
	for _, key := range c.decoder.Feed(data) {
		if c.dispatchKey(key) {
			return true
		}
	}
	c.redraw()
	return false
}

// dispatchKey dispatches one decoded key exactly once: the topmost overlay
// gets first refusal, then the base mode.
func (c *Client) dispatchKey(key DecodedKey) (quit bool) {
	chord := NormalizeChord(key.Code, key.Modifiers)

	switch c.mode.Overlay() {
	case OverlayLeader:
		c.dispatchLeaderKey(chord)
		return false
	case OverlayCopy:
		c.dispatchCopyKey(chord)
		return false
	case OverlayScroll, OverlayCommandPalette, OverlayTabPicker, OverlayConfirm:
		// Other overlays are UI-only state not modeled at this layer; Esc
		// universally closes whatever is open.
		if chord == "esc" {
			c.mode.PopOverlay()
		}
		return false
	}

	switch c.mode.Base {
	case Interact:
		return c.dispatchInteract(key, chord)
	default:
		return c.dispatchNormal(key, chord)
	}
}

func (c *Client) dispatchInteract(key DecodedKey, chord string) (quit bool) {
	if chord == "esc" {
		c.mode.SetBase(Normal)
		return false
	}
	if action, ok := c.globalKeymap[chord]; ok {
		return c.runAction(action)
	}
	c.sendKey(key)
	return false
}

func (c *Client) dispatchNormal(key DecodedKey, chord string) (quit bool) {
	if action, ok := c.globalKeymap[chord]; ok {
		return c.runAction(action)
	}
	if action, ok := c.normalKeymap[chord]; ok {
		return c.runAction(action)
	}
	if chord == LeaderChord(c.cfg.Prefix) {
		c.leader = NewLeaderState(c.leaderTree, time.Duration(c.cfg.LeaderPopupDelayMs)*time.Millisecond, time.Now())
		c.mode.PushOverlay(OverlayLeader)
	}
	return false
}

func (c *Client) dispatchLeaderKey(chord string) {
	if chord == "esc" {
		c.mode.PopOverlay()
		c.leader = nil
		return
	}
	res, payload := c.leader.Advance(chord)
	switch res {
	case LeaderContinue:
		c.leader.Restart(time.Now())
	case LeaderFire:
		c.mode.PopOverlay()
		c.leader = nil
		c.sendCommand(payload)
	case LeaderPassThrough:
		c.mode.PopOverlay()
		c.leader = nil
		code, mods := ParseChordSpec(c.cfg.Prefix)
		c.sendKey(DecodedKey{Code: code, Modifiers: mods})
	case LeaderCancel:
		c.mode.PopOverlay()
		c.leader = nil
	}
}

func (c *Client) dispatchCopyKey(chord string) {
	ws := c.activeWorkspace()
	if ws == nil || c.copy == nil {
		c.mode.PopOverlay()
		return
	}
	tabID, ok := ActiveTabID(ws, ws.ActiveWindow)
	if !ok {
		c.mode.PopOverlay()
		return
	}
	g, ok := c.grids.Get(tabID)
	if !ok {
		c.mode.PopOverlay()
		return
	}
	lines := g.Lines(0)
	if c.copy.SearchActive && chord == "enter" {
		c.copy.HandleKey(chord, lines)
		c.copy.PerformSearch(lines)
		return
	}
	action, yanked := c.copy.HandleKey(chord, lines)
	switch action {
	case CopyExit:
		c.mode.PopOverlay()
		c.copy = nil
	case CopyYank:
		c.lastYank = yanked
		c.mode.PopOverlay()
		c.copy = nil
	}
}

// runAction executes a client-local Action. Most actions are purely
// client-side (mode/overlay transitions); quit is the only one that ends
// the session.
func (c *Client) runAction(action Action) (quit bool) {
	switch action {
	case ActionQuit:
		return true
	case ActionEnterInteract:
		c.mode.SetBase(Interact)
	case ActionEnterNormal:
		c.mode.SetBase(Normal)
	case ActionScrollMode:
		c.mode.PushOverlay(OverlayScroll)
	case ActionCopyMode:
		ws := c.activeWorkspace()
		if ws != nil {
			if tabID, ok := ActiveTabID(ws, ws.ActiveWindow); ok {
				if g, ok := c.grids.Get(tabID); ok {
					col, row := g.Cursor()
					c.copy = NewCopyMode(row, col)
					c.mode.PushOverlay(OverlayCopy)
				}
			}
		}
	case ActionCommandPalette:
		c.mode.PushOverlay(OverlayCommandPalette)
	case ActionTabPicker:
		c.mode.PushOverlay(OverlayTabPicker)
	default:
		// Anything else is a leader-bound action name: it IS a command
		// string (e.g. "split-window -h"), so just send it.
		c.sendCommand(string(action))
	}
	return false
}

func (c *Client) sendKey(key DecodedKey) {
	protocol.WriteMessage(c.conn, protocol.ClientMessage{
		Kind: protocol.ClientKey, Code: key.Code, Modifiers: key.Modifiers,
	})
}

func (c *Client) sendCommand(line string) {
	protocol.WriteMessage(c.conn, protocol.ClientMessage{
		Kind: protocol.ClientCommand, Command: line,
	})
}

// Resize notifies the daemon of a new terminal size (driven by SIGWINCH in
// cmd/pane) and resizes every locally tracked grid to match.
func (c *Client) Resize(width, height int) {
	c.width, c.height = width, height
	protocol.WriteMessage(c.conn, protocol.ClientMessage{
		Kind: protocol.ClientResize, Width: uint16(width), Height: uint16(height),
	})
	ws := c.activeWorkspace()
	if ws == nil {
		return
	}
	for _, id := range AllTabIDs(ws) {
		c.grids.Resize(id, width, height)
	}
}

func (c *Client) redraw() {
	ws := c.activeWorkspace()
	if ws == nil {
		return
	}
	c.renderer.Render(ws, c.grids, Rect{0, 0, c.width, c.height})
}

// TerminalSize reads the current size of fd via golang.org/x/term,
// falling back to 80x24 when term.GetSize fails (e.g. fd isn't a real
// terminal, as with piped stdin in tests).
func TerminalSize(fd int) (width, height int) {
	w, h, err := term.GetSize(fd)
	if err != nil {
		return 80, 24
	}
	return w, h
}
