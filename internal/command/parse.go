package command

import (
	"fmt"
	"strconv"
	"strings"

	"panemux/internal/layout"
	"panemux/internal/mux"
)

// Parse tokenizes and parses a full command line into a Command.
func Parse(input string) (Command, error) {
	tokens, err := Tokenize(input)
	if err != nil {
		return Command{}, err
	}
	name, args := tokens[0], tokens[1:]

	switch name {
	case "kill-server":
		return Command{Kind: KillServer}, nil
	case "list-sessions", "ls":
		target, rest := extractFlag(args, "-F")
		_ = rest
		return Command{Kind: ListSessions, Format: target}, nil
	case "rename-session":
		if len(args) == 0 {
			return Command{}, fmt.Errorf("rename-session requires a name")
		}
		return Command{Kind: RenameSession, Name: args[0]}, nil
	case "has-session":
		_, rest := extractTarget(args)
		if len(rest) == 0 {
			return Command{}, fmt.Errorf("has-session requires a name")
		}
		return Command{Kind: HasSession, Name: rest[0]}, nil
	case "new-session":
		return parseNewSession(args)

	case "new-window", "neww":
		name, rest := extractFlag(args, "-n")
		_ = rest
		return Command{Kind: NewWindow, WindowName: name}, nil
	case "kill-window", "killw":
		target, err := parseOptionalWindowTarget(args)
		if err != nil {
			return Command{}, err
		}
		return Command{Kind: KillWindow, WindowTarget: target}, nil
	case "select-window", "selectw":
		targetStr, _ := extractTarget(args)
		if targetStr == "" {
			return Command{}, fmt.Errorf("select-window requires -t TARGET")
		}
		target, err := parseWindowTarget(targetStr)
		if err != nil {
			return Command{}, err
		}
		return Command{Kind: SelectWindow, WindowTarget: target}, nil
	case "rename-window", "renamew":
		targetStr, rest := extractTarget(args)
		target, err := parseOptionalWindowTargetFromStr(targetStr)
		if err != nil {
			return Command{}, err
		}
		if len(rest) == 0 {
			return Command{}, fmt.Errorf("rename-window requires a name")
		}
		return Command{Kind: RenameWindow, WindowTarget: target, Name: rest[0]}, nil
	case "list-windows", "lsw":
		format, _ := extractFlag(args, "-F")
		return Command{Kind: ListWindows, Format: format}, nil

	case "split-window", "splitw":
		targetStr, rest := extractTarget(args)
		target, err := parseOptionalPaneTargetFromStr(targetStr)
		if err != nil {
			return Command{}, err
		}
		horizontal := containsFlag(rest, "-h")
		return Command{Kind: SplitWindow, Horizontal: horizontal, PaneTarget: target}, nil
	case "kill-pane", "killp":
		target, err := parseOptionalPaneTarget(args)
		if err != nil {
			return Command{}, err
		}
		return Command{Kind: KillPane, PaneTarget: target}, nil
	case "select-pane", "selectp":
		return parseSelectPane(args)
	case "list-panes", "lsp":
		format, _ := extractFlag(args, "-F")
		return Command{Kind: ListPanes, Format: format}, nil
	case "send-keys", "send":
		targetStr, rest := extractTarget(args)
		target, err := parseOptionalPaneTargetFromStr(targetStr)
		if err != nil {
			return Command{}, err
		}
		if len(rest) == 0 {
			return Command{}, fmt.Errorf("send-keys requires at least one key")
		}
		return Command{Kind: SendKeys, PaneTarget: target, Keys: rest}, nil

	case "select-layout":
		if len(args) == 0 {
			return Command{}, fmt.Errorf("select-layout requires a layout name")
		}
		return Command{Kind: SelectLayout, LayoutName: args[0]}, nil
	case "resize-pane", "resizep":
		return parseResizePane(args)

	case "close-workspace":
		return Command{Kind: CloseWorkspace}, nil
	case "select-workspace-by-index":
		if len(args) == 0 {
			return Command{}, fmt.Errorf("select-workspace-by-index requires an index")
		}
		idx, err := strconv.Atoi(args[0])
		if err != nil {
			return Command{}, fmt.Errorf("invalid workspace index: %s", args[0])
		}
		return Command{Kind: SelectWorkspaceByIndex, WorkspaceIndex: idx}, nil

	case "next-window":
		return Command{Kind: NextWindow}, nil
	case "previous-window":
		return Command{Kind: PreviousWindow}, nil
	case "restart-pane":
		return Command{Kind: RestartPane}, nil
	case "move-tab":
		return parseMoveTab(args)
	case "equalize-layout":
		return Command{Kind: EqualizeLayout}, nil
	case "toggle-sync":
		return Command{Kind: ToggleSync}, nil
	case "paste-buffer":
		return Command{Kind: PasteBuffer, PasteText: strings.Join(args, " ")}, nil
	case "detach-client", "detach":
		return Command{Kind: DetachClient}, nil
	case "display-message", "display":
		toStdout := containsFlag(args, "-p")
		rest := removeFlag(args, "-p")
		return Command{Kind: DisplayMessage, Format: strings.Join(rest, " "), ToStdout: toStdout}, nil

	default:
		return Command{}, fmt.Errorf("unknown command: %s", name)
	}
}

func parseNewSession(args []string) (Command, error) {
	name, rest := extractFlag(args, "-s")
	winName, rest := extractFlagFrom(rest, "-n")
	detached := containsFlag(rest, "-d")
	return Command{Kind: NewSession, Name: name, WindowName: winName, Detached: detached}, nil
}

func parseMoveTab(args []string) (Command, error) {
	dir, side, err := parseDirectionFlags(args)
	if err != nil {
		return Command{}, err
	}
	return Command{Kind: MoveTab, Direction: dir, Side: side}, nil
}

func parseResizePane(args []string) (Command, error) {
	targetStr, rest := extractTarget(args)
	target, err := parseOptionalPaneTargetFromStr(targetStr)
	if err != nil {
		return Command{}, err
	}
	dir := ResizeRight
	amount := 1
	for _, a := range rest {
		switch a {
		case "-L":
			dir = ResizeLeft
		case "-R":
			dir = ResizeRight
		case "-U":
			dir = ResizeUp
		case "-D":
			dir = ResizeDown
		default:
			if n, err := strconv.Atoi(a); err == nil {
				amount = n
			}
		}
	}
	return Command{Kind: ResizePane, PaneTarget: target, ResizeDir: dir, ResizeAmount: amount}, nil
}

func parseSelectPane(args []string) (Command, error) {
	targetStr, rest := extractTarget(args)
	for _, a := range rest {
		switch a {
		case "-L":
			return Command{Kind: SelectPane, PaneTarget: mux.PaneTarget{Kind: mux.PaneTargetDirection, Dir: layout.Horizontal, Side: layout.First}}, nil
		case "-R":
			return Command{Kind: SelectPane, PaneTarget: mux.PaneTarget{Kind: mux.PaneTargetDirection, Dir: layout.Horizontal, Side: layout.Second}}, nil
		case "-U":
			return Command{Kind: SelectPane, PaneTarget: mux.PaneTarget{Kind: mux.PaneTargetDirection, Dir: layout.Vertical, Side: layout.First}}, nil
		case "-D":
			return Command{Kind: SelectPane, PaneTarget: mux.PaneTarget{Kind: mux.PaneTargetDirection, Dir: layout.Vertical, Side: layout.Second}}, nil
		}
	}
	title, rest2 := extractFlag(rest, "-T")
	_ = rest2
	if targetStr == "" {
		return Command{}, fmt.Errorf("select-pane requires -t TARGET or a direction flag")
	}
	target, err := parsePaneTarget(targetStr)
	if err != nil {
		return Command{}, err
	}
	cmd := Command{Kind: SelectPane, PaneTarget: target}
	if title != "" {
		cmd.PaneTitle = &title
	}
	return cmd, nil
}

func parseDirectionFlags(args []string) (layout.Direction, layout.Side, error) {
	for _, a := range args {
		switch a {
		case "-L":
			return layout.Horizontal, layout.First, nil
		case "-R":
			return layout.Horizontal, layout.Second, nil
		case "-U":
			return layout.Vertical, layout.First, nil
		case "-D":
			return layout.Vertical, layout.Second, nil
		}
	}
	return layout.Horizontal, layout.Second, nil
}

// extractTarget pulls "-t VALUE" out of args in any position, returning the
// value (empty if absent) and the remaining args in order.
func extractTarget(args []string) (string, []string) {
	return extractFlag(args, "-t")
}

// extractFlag pulls "flag VALUE" out of args in any position.
func extractFlag(args []string, flag string) (string, []string) {
	var value string
	rest := make([]string, 0, len(args))
	for i := 0; i < len(args); i++ {
		if args[i] == flag && i+1 < len(args) {
			value = args[i+1]
			i++
			continue
		}
		rest = append(rest, args[i])
	}
	return value, rest
}

func extractFlagFrom(args []string, flag string) (string, []string) {
	return extractFlag(args, flag)
}

func containsFlag(args []string, flag string) bool {
	for _, a := range args {
		if a == flag {
			return true
		}
	}
	return false
}

func removeFlag(args []string, flag string) []string {
	rest := make([]string, 0, len(args))
	for _, a := range args {
		if a != flag {
			rest = append(rest, a)
		}
	}
	return rest
}

func parseWindowTarget(s string) (mux.WindowTarget, error) {
	if strings.HasPrefix(s, "@") {
		n, err := strconv.ParseUint(s[1:], 10, 32)
		if err != nil {
			return mux.WindowTarget{}, fmt.Errorf("invalid window id: %s", s)
		}
		return mux.WindowTarget{Kind: mux.WindowTargetID, ID: uint32(n)}, nil
	}
	idx, err := strconv.Atoi(s)
	if err != nil {
		return mux.WindowTarget{}, fmt.Errorf("invalid window target: %s", s)
	}
	return mux.WindowTarget{Kind: mux.WindowTargetIndex, Index: idx}, nil
}

func parseOptionalWindowTargetFromStr(s string) (mux.WindowTarget, error) {
	if s == "" {
		return mux.WindowTarget{}, nil
	}
	return parseWindowTarget(s)
}

func parseOptionalWindowTarget(args []string) (mux.WindowTarget, error) {
	s, _ := extractTarget(args)
	return parseOptionalWindowTargetFromStr(s)
}

func parsePaneTarget(s string) (mux.PaneTarget, error) {
	if strings.HasPrefix(s, "%") {
		n, err := strconv.ParseUint(s[1:], 10, 32)
		if err != nil {
			return mux.PaneTarget{}, fmt.Errorf("invalid pane id: %s", s)
		}
		return mux.PaneTarget{Kind: mux.PaneTargetID, ID: uint32(n)}, nil
	}
	switch s {
	case "{left}", "-L":
		return mux.PaneTarget{Kind: mux.PaneTargetDirection, Dir: layout.Horizontal, Side: layout.First}, nil
	case "{right}", "-R":
		return mux.PaneTarget{Kind: mux.PaneTargetDirection, Dir: layout.Horizontal, Side: layout.Second}, nil
	case "{up}", "-U":
		return mux.PaneTarget{Kind: mux.PaneTargetDirection, Dir: layout.Vertical, Side: layout.First}, nil
	case "{down}", "-D":
		return mux.PaneTarget{Kind: mux.PaneTargetDirection, Dir: layout.Vertical, Side: layout.Second}, nil
	default:
		return mux.PaneTarget{}, fmt.Errorf("invalid pane target: %s", s)
	}
}

func parseOptionalPaneTargetFromStr(s string) (mux.PaneTarget, error) {
	if s == "" {
		return mux.PaneTarget{}, nil
	}
	return parsePaneTarget(s)
}

func parseOptionalPaneTarget(args []string) (mux.PaneTarget, error) {
	s, _ := extractTarget(args)
	return parseOptionalPaneTargetFromStr(s)
}
