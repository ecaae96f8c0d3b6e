package command

import (
	"fmt"
	"regexp"
	"strconv"
)

var formatVarPattern = regexp.MustCompile(`#\{([^}]+)\}`)

// FormatContext carries the values #{...} placeholders may reference.
// Zero-valued fields render as their type's empty representation ("" or
// "0"); unknown placeholder names pass through unchanged.
type FormatContext struct {
	PaneID      string
	WindowID    string
	WindowIndex int
	PaneIndex   int
	WindowName  string
	PaneTitle   string
	PaneCommand string
	SessionName string
	PaneActive  bool
	WindowActive bool
	PaneWidth   int
	PaneHeight  int
}

// ExpandFormat replaces every #{var} placeholder in format with the
// corresponding FormatContext field.
func ExpandFormat(format string, ctx FormatContext) string {
	return formatVarPattern.ReplaceAllStringFunc(format, func(match string) string {
		name := formatVarPattern.FindStringSubmatch(match)[1]
		return lookupFormatVariable(name, ctx)
	})
}

func lookupFormatVariable(name string, ctx FormatContext) string {
	switch name {
	case "pane_id":
		return ctx.PaneID
	case "window_id":
		return ctx.WindowID
	case "window_index":
		return strconv.Itoa(ctx.WindowIndex)
	case "pane_index":
		return strconv.Itoa(ctx.PaneIndex)
	case "window_name":
		return ctx.WindowName
	case "pane_title":
		return ctx.PaneTitle
	case "pane_current_command":
		return ctx.PaneCommand
	case "session_name":
		return ctx.SessionName
	case "pane_active":
		return boolFlag(ctx.PaneActive)
	case "window_active":
		return boolFlag(ctx.WindowActive)
	case "pane_width":
		return strconv.Itoa(ctx.PaneWidth)
	case "pane_height":
		return strconv.Itoa(ctx.PaneHeight)
	default:
		return fmt.Sprintf("#{%s}", name)
	}
}

func boolFlag(b bool) string {
	if b {
		return "1"
	}
	return "0"
}
