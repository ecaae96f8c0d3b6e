package command

import "testing"

func TestExpandFormatAllPlaceholders(t *testing.T) {
	ctx := FormatContext{
		PaneID:       "%3",
		WindowID:     "@2",
		WindowIndex:  1,
		PaneIndex:    0,
		WindowName:   "editor",
		PaneTitle:    "vim",
		PaneCommand:  "vim",
		SessionName:  "work",
		PaneActive:   true,
		WindowActive: false,
		PaneWidth:    80,
		PaneHeight:   24,
	}
	got := ExpandFormat("#{session_name}:#{window_index}.#{pane_index} [#{pane_id}/#{window_id}] #{window_name}/#{pane_title}/#{pane_current_command} active=#{pane_active}/#{window_active} #{pane_width}x#{pane_height}", ctx)
	want := "work:1.0 [%3/@2] editor/vim/vim active=1/0 80x24"
	if got != want {
		t.Fatalf("got %q want %q", got, want)
	}
}

func TestExpandFormatUnknownPassesThrough(t *testing.T) {
	got := ExpandFormat("#{not_a_real_var}", FormatContext{})
	if got != "#{not_a_real_var}" {
		t.Fatalf("got %q", got)
	}
}

func TestExpandFormatNoPlaceholders(t *testing.T) {
	got := ExpandFormat("plain text", FormatContext{})
	if got != "plain text" {
		t.Fatalf("got %q", got)
	}
}
