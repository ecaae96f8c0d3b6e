// Package config loads and saves daemon/client configuration: the shell to
// spawn, the leader key and keymap overrides, pane environment overlays, and
// the daemon's socket/data-dir/auto-suspend knobs. Config is YAML on disk,
// validated and defaulted the same way on Load and Save.
package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"os"
	"path/filepath"
	"reflect"
	"runtime"
	"sort"
	"strings"
	"sync"
	"time"

	"go.yaml.in/yaml/v3"
)

const (
	maxConfigFileBytes int64 = 1 << 20 // 1MB
	maxRenameRetry           = 10
	// Windows file lock releases (antivirus/indexing) typically settle quickly.
	// Use a short linear backoff: baseDelay * (1..maxRenameRetry).
	renameRetryBaseDelay = 10 * time.Millisecond
	// maxCustomEnvValueBytes is the value-length limit the config layer
	// warns about when sanitizing environment maps.
	maxCustomEnvValueBytes = 8192
	// defaultAutoSuspendSecs is how long the daemon waits with zero attached
	// clients before saving state and exiting. 0 disables auto-suspend.
	defaultAutoSuspendSecs = 0
	// defaultBroadcastCapacity is the per-client broadcast channel size,
	// floored at 256.
	defaultBroadcastCapacity = 256
	minBroadcastCapacity     = 256
	// defaultLeaderPopupDelayMs is how long the leader overlay waits before
	// showing its which-key popup.
	defaultLeaderPopupDelayMs = 500
)

// allowedShells is the allowlist of base executable names accepted by
// validateShell, keyed lower-case.
var allowedShells = map[string]struct{}{
	"sh":         {},
	"bash":       {},
	"zsh":        {},
	"fish":       {},
	"dash":       {},
	"ksh":        {},
	"tcsh":       {},
	"csh":        {},
	"powershell.exe": {},
	"pwsh":       {},
	"pwsh.exe":   {},
	"cmd.exe":    {},
}

// defaultConfigDirFn is a test seam; tests override it to simulate
// directory-resolution failures in validateConfigPath.
var defaultConfigDirFn = defaultConfigDir
var userHomeDirFn = os.UserHomeDir
var yamlUnmarshalConfigMetadataFn = func(raw []byte, out *map[string]any) error {
	return yaml.Unmarshal(raw, out)
}
var defaultPathWarningState struct {
	mu       sync.Mutex
	messages []string
}

func recordDefaultPathWarning(message string) {
	trimmed := strings.TrimSpace(message)
	if trimmed == "" {
		return
	}
	defaultPathWarningState.mu.Lock()
	defaultPathWarningState.messages = append(defaultPathWarningState.messages, trimmed)
	defaultPathWarningState.mu.Unlock()
}

// ConsumeDefaultPathWarnings returns and clears path-resolution warnings
// accumulated during DefaultPath() calls.
func ConsumeDefaultPathWarnings() []string {
	defaultPathWarningState.mu.Lock()
	defer defaultPathWarningState.mu.Unlock()
	if len(defaultPathWarningState.messages) == 0 {
		return nil
	}
	out := make([]string, len(defaultPathWarningState.messages))
	copy(out, defaultPathWarningState.messages)
	defaultPathWarningState.messages = nil
	return out
}

// Config is daemon and client runtime configuration.
type Config struct {
	// Shell is the default command used for Shell-kind tabs when none is
	// given explicitly.
	Shell string `yaml:"shell" json:"shell"`
	// Prefix is the leader key that opens the Leader overlay in the client.
	Prefix string `yaml:"prefix" json:"prefix"`
	// Keys maps action names to key chords; the client builds its Leader
	// overlay trie from it.
	Keys map[string]string `yaml:"keys" json:"keys"`
	// PaneEnv holds extra environment variables for panes. It is loaded and
	// sanitized here; the daemon does not pass it to spawned tabs.
	PaneEnv               map[string]string `yaml:"pane_env,omitempty" json:"pane_env,omitempty"`
	PaneEnvDefaultEnabled bool              `yaml:"pane_env_default_enabled" json:"pane_env_default_enabled"`
	// DefaultWorkspaceDir seeds new-workspace cwd when set; empty means "use
	// the daemon's launch directory".
	DefaultWorkspaceDir string `yaml:"default_workspace_dir,omitempty" json:"default_workspace_dir,omitempty"`
	// DefaultLayout names the layout preset new workspaces start from
	// (even-horizontal, even-vertical, main-horizontal, main-vertical, tiled).
	DefaultLayout string `yaml:"default_layout" json:"default_layout"`
	// SocketPath overrides the per-user daemon socket path computed by
	// DefaultSocketPath.
	SocketPath string `yaml:"socket_path,omitempty" json:"socket_path,omitempty"`
	// AutoSuspendSecs is how long the daemon waits with zero attached
	// clients before saving and exiting; 0 disables auto-suspend.
	AutoSuspendSecs int `yaml:"auto_suspend_secs" json:"auto_suspend_secs"`
	// BroadcastCapacity bounds each client's fan-out channel; slow clients
	// exceeding it are disconnected. Floored at 256.
	BroadcastCapacity int `yaml:"broadcast_capacity" json:"broadcast_capacity"`
	// LeaderPopupDelayMs is how long the Leader overlay waits with no
	// matching action before showing the which-key popup.
	LeaderPopupDelayMs int `yaml:"leader_popup_delay_ms" json:"leader_popup_delay_ms"`
}

// DefaultConfig returns the built-in default configuration.
func DefaultConfig() Config {
	return Config{
		Shell:  defaultShellName(),
		Prefix: "Ctrl+b",
		Keys: map[string]string{
			"split-vertical":   "%",
			"split-horizontal": "\"",
			"toggle-zoom":      "z",
			"toggle-fold":      "f",
			"kill-pane":        "x",
			"detach-session":   "d",
		},
		DefaultLayout:      "even-horizontal",
		AutoSuspendSecs:    defaultAutoSuspendSecs,
		BroadcastCapacity:  defaultBroadcastCapacity,
		LeaderPopupDelayMs: defaultLeaderPopupDelayMs,
	}
}

func defaultShellName() string {
	if runtime.GOOS == "windows" {
		return "powershell.exe"
	}
	if sh := strings.TrimSpace(os.Getenv("SHELL")); sh != "" {
		return sh
	}
	return "/bin/sh"
}

// DefaultPath resolves the config file path, preferring XDG_CONFIG_HOME,
// then ~/.config, then os.TempDir() if the home directory cannot be
// resolved. The temp-dir fallback is not a stable persistence location and
// may vary between sessions depending on environment configuration.
func DefaultPath() string {
	base := strings.TrimSpace(os.Getenv("XDG_CONFIG_HOME"))
	if base == "" {
		home, err := userHomeDirFn()
		if err != nil {
			slog.Warn("[WARN-CONFIG] using temp dir as config path fallback", "error", err)
			recordDefaultPathWarning(
				"Config path fallback: failed to resolve XDG_CONFIG_HOME/home directory. Using temp directory; settings persistence may be limited.",
			)
			base = os.TempDir()
		} else {
			base = filepath.Join(home, ".config")
		}
	}
	return filepath.Join(base, "panemux", "config.yaml")
}

// DefaultSocketPath resolves the daemon's listen socket path: a per-user
// directory under TMPDIR (or /tmp if unset) named pane-<uid>, containing
// pane.sock. The per-user subdirectory keeps the socket out of the shared
// tmp namespace and away from other users on multi-user hosts.
func DefaultSocketPath() string {
	base := strings.TrimSpace(os.Getenv("TMPDIR"))
	if base == "" {
		base = os.TempDir()
	}
	return filepath.Join(base, fmt.Sprintf("pane-%d", os.Getuid()), "pane.sock")
}

// DefaultDataDir resolves the directory persisted daemon state lives in,
// preferring XDG_DATA_HOME, then ~/.local/share, then os.TempDir() if the
// home directory cannot be resolved.
func DefaultDataDir() string {
	base := strings.TrimSpace(os.Getenv("XDG_DATA_HOME"))
	if base == "" {
		home, err := userHomeDirFn()
		if err != nil {
			base = os.TempDir()
		} else {
			base = filepath.Join(home, ".local", "share")
		}
	}
	return filepath.Join(base, "panemux")
}

// Load reads config file. If file does not exist, defaults are returned.
// The configured shell is validated against an allowlist; an error is
// returned if validation fails.
func Load(path string) (Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, errors.New("config path required")
	}

	raw, err := readLimitedFile(path, maxConfigFileBytes)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return cfg, err
	}
	if len(raw) == 0 {
		return cfg, nil
	}
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		slog.Warn("[WARN-CONFIG] failed to parse config, using defaults", "path", path, "error", err)
		return DefaultConfig(), err
	}

	rawMap, metadataErr := parseRawConfigMetadata(raw)
	if metadataErr != nil {
		slog.Warn("[WARN-CONFIG] failed to parse config metadata", "error", metadataErr)
	} else {
		warnDeprecatedFields(rawMap)
	}
	if err := applyDefaultsAndValidate(&cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// EnsureFile writes default config if missing and returns loaded config.
func EnsureFile(path string) (Config, error) {
	cfg, err := Load(path)
	if err != nil {
		return cfg, err
	}
	if _, statErr := os.Stat(path); errors.Is(statErr, os.ErrNotExist) {
		if _, err := Save(path, cfg); err != nil {
			return cfg, err
		}
	}
	return cfg, nil
}

// AllowedShellList returns the permitted shell executable names for UI
// display, sorted alphabetically for consistent ordering.
func AllowedShellList() []string {
	shells := make([]string, 0, len(allowedShells))
	for s := range allowedShells {
		shells = append(shells, s)
	}
	sort.Strings(shells)
	return shells
}

// Clone returns a deep copy of cfg. Use this when sharing config snapshots
// across goroutines or package boundaries.
func Clone(src Config) Config {
	dst := src
	if src.Keys != nil {
		dst.Keys = make(map[string]string, len(src.Keys))
		maps.Copy(dst.Keys, src.Keys)
	}
	if src.PaneEnv != nil {
		dst.PaneEnv = make(map[string]string, len(src.PaneEnv))
		maps.Copy(dst.PaneEnv, src.PaneEnv)
	}
	return dst
}

// Save validates cfg, fills defaults, and atomically writes to path.
// Returns the normalized config that was actually written to disk.
func Save(path string, cfg Config) (Config, error) {
	normalizedPath, err := validateConfigPath(path)
	if err != nil {
		return cfg, err
	}
	if err := applyDefaultsAndValidate(&cfg); err != nil {
		return cfg, fmt.Errorf("save config: %w", err)
	}

	raw, err := yaml.Marshal(cfg)
	if err != nil {
		return cfg, fmt.Errorf("save config: marshal: %w", err)
	}
	if err := atomicWrite(normalizedPath, raw); err != nil {
		return cfg, err
	}
	slog.Debug("[DEBUG-CONFIG] config saved", "path", path)
	return cfg, nil
}

// atomicWrite writes config data using temp-file + rename to avoid partial
// writes and retries rename on Windows to tolerate transient file locks.
func atomicWrite(path string, data []byte) (err error) {
	dir := filepath.Dir(path)
	if err = os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("save config: mkdir: %w", err)
	}

	tmpFile, err := os.CreateTemp(dir, ".config.yaml.tmp.*")
	if err != nil {
		return fmt.Errorf("save config: create temp: %w", err)
	}
	tmpPath := tmpFile.Name()

	defer func() {
		if tmpFile != nil {
			if closeErr := tmpFile.Close(); closeErr != nil && !errors.Is(closeErr, os.ErrClosed) {
				slog.Warn("[WARN-CONFIG] failed to close temp file", "path", tmpPath, "error", closeErr)
			}
		}
		if err != nil {
			if removeErr := os.Remove(tmpPath); removeErr != nil && !errors.Is(removeErr, os.ErrNotExist) {
				slog.Warn("[WARN-CONFIG] failed to remove temp file", "path", tmpPath, "error", removeErr)
			}
		}
	}()

	if err = tmpFile.Chmod(0o600); err != nil {
		return fmt.Errorf("save config: chmod temp: %w", err)
	}
	if _, err = tmpFile.Write(data); err != nil {
		return fmt.Errorf("save config: write: %w", err)
	}
	if err = tmpFile.Sync(); err != nil {
		return fmt.Errorf("save config: sync: %w", err)
	}
	err = tmpFile.Close()
	tmpFile = nil
	if err != nil {
		return fmt.Errorf("save config: close: %w", err)
	}

	if err = renameFileWithRetry(tmpPath, path); err != nil {
		return fmt.Errorf("save config: rename: %w", err)
	}
	return nil
}

// validateConfigPath normalizes path and enforces that config writes stay
// inside the default config directory when that directory is resolvable.
func validateConfigPath(path string) (string, error) {
	trimmedPath := strings.TrimSpace(path)
	if trimmedPath == "" {
		return "", errors.New("config path required")
	}
	absolutePath, err := filepath.Abs(trimmedPath)
	if err != nil {
		return "", fmt.Errorf("save config: resolve path: %w", err)
	}

	expectedDir, err := defaultConfigDirFn()
	if err != nil {
		return "", fmt.Errorf("save config: resolve config dir: %w", err)
	}
	absoluteExpectedDir, err := filepath.Abs(expectedDir)
	if err != nil {
		return "", fmt.Errorf("save config: resolve config dir: %w", err)
	}
	if !pathWithinDir(absolutePath, absoluteExpectedDir) {
		return "", fmt.Errorf("save config: path outside config directory: %q", absolutePath)
	}

	return absolutePath, nil
}

func defaultConfigDir() (string, error) {
	return filepath.Dir(DefaultPath()), nil
}

// pathWithinDir blocks directory traversal by ensuring path is under dir.
func pathWithinDir(path string, dir string) bool {
	relativePath, err := filepath.Rel(filepath.Clean(dir), filepath.Clean(path))
	if err != nil {
		return false
	}
	if relativePath == "." {
		return true
	}
	if relativePath == ".." || strings.HasPrefix(relativePath, ".."+string(os.PathSeparator)) {
		return false
	}
	return !filepath.IsAbs(relativePath)
}

// applyDefaultsAndValidate fills missing defaults and validates cfg in-place.
// MUTATES: cfg is directly modified. Used by both Load and Save to ensure
// consistent normalization.
func applyDefaultsAndValidate(cfg *Config) error {
	defaults := DefaultConfig()
	if isZeroConfig(*cfg) {
		*cfg = defaults
		sanitizePaneEnv(cfg)
		return nil
	}

	if cfg.Shell == "" {
		cfg.Shell = defaults.Shell
	}
	if err := validateShell(cfg.Shell); err != nil {
		return err
	}
	if cfg.Prefix == "" {
		cfg.Prefix = defaults.Prefix
	}
	if cfg.Keys == nil {
		cfg.Keys = defaults.Keys
	}
	if cfg.DefaultLayout == "" {
		cfg.DefaultLayout = defaults.DefaultLayout
	}
	if cfg.BroadcastCapacity < minBroadcastCapacity {
		cfg.BroadcastCapacity = defaults.BroadcastCapacity
	}
	if cfg.LeaderPopupDelayMs <= 0 {
		cfg.LeaderPopupDelayMs = defaults.LeaderPopupDelayMs
	}
	if cfg.AutoSuspendSecs < 0 {
		cfg.AutoSuspendSecs = 0
	}
	validateDefaultWorkspaceDir(cfg)
	sanitizePaneEnv(cfg)
	return nil
}

// validateDefaultWorkspaceDir normalizes DefaultWorkspaceDir in place:
// expands a leading ~, cleans the path, and clears non-absolute paths with
// a warning (non-fatal).
func validateDefaultWorkspaceDir(cfg *Config) {
	dir := strings.TrimSpace(cfg.DefaultWorkspaceDir)
	if dir == "" {
		cfg.DefaultWorkspaceDir = ""
		return
	}
	if strings.HasPrefix(dir, "~") {
		home, err := userHomeDirFn()
		if err != nil {
			slog.Warn("[WARN-CONFIG] default_workspace_dir: failed to expand ~, ignoring",
				"path", dir, "error", err)
			cfg.DefaultWorkspaceDir = ""
			return
		}
		dir = filepath.Join(home, dir[1:])
	}
	dir = filepath.Clean(dir)
	if !filepath.IsAbs(dir) {
		slog.Warn("[WARN-CONFIG] default_workspace_dir is not an absolute path, ignoring", "path", dir)
		cfg.DefaultWorkspaceDir = ""
		return
	}
	cfg.DefaultWorkspaceDir = dir
}

// warnOnlyBlockedKeys lists system environment keys that should not be
// overridden. The config layer only warns about them; nothing else in the
// module consults this list.
var warnOnlyBlockedKeys = map[string]struct{}{
	"PATH":    {},
	"HOME":    {},
	"SHELL":   {},
	"TMPDIR":  {},
	"USER":    {},
	"TMUX":    {},
	"TMUX_PANE": {},
}

// BlockedKeyNames returns the set of environment variable names that the
// config layer warns about, as a copy.
func BlockedKeyNames() map[string]struct{} {
	cp := make(map[string]struct{}, len(warnOnlyBlockedKeys))
	maps.Copy(cp, warnOnlyBlockedKeys)
	return cp
}

// sanitizePaneEnv removes invalid entries from PaneEnv using sanitizeEnvMap.
// Blocked keys are not removed here.
func sanitizePaneEnv(cfg *Config) {
	cfg.PaneEnv = sanitizeEnvMap(cfg.PaneEnv, "pane_env")
}

// sanitizeEnvMap validates and cleans environment variable entries. It
// removes entries with empty keys, null bytes in keys, '=' in keys, and
// strips null bytes from values. Duplicate key detection is
// case-insensitive, keeping the first occurrence's original case (entries
// sorted alphabetically for determinism). Returns nil when the input is
// empty or all entries are removed.
func sanitizeEnvMap(entries map[string]string, logPrefix string) map[string]string {
	if len(entries) == 0 {
		return nil
	}
	cleaned := make(map[string]string, len(entries))
	seen := make(map[string]string, len(entries)) // uppercase -> original key
	sortedKeys := make([]string, 0, len(entries))
	for k := range entries {
		sortedKeys = append(sortedKeys, k)
	}
	sort.Strings(sortedKeys)
	for _, k := range sortedKeys {
		v := entries[k]
		k = strings.TrimSpace(k)
		if k == "" {
			slog.Debug("[DEBUG-CONFIG] " + logPrefix + ": dropped entry with empty key")
			continue
		}
		if strings.ContainsRune(k, '\x00') {
			slog.Warn("[WARN-CONFIG] "+logPrefix+": dropped entry with null byte in key", "key", k)
			continue
		}
		if strings.ContainsRune(k, '=') {
			slog.Warn("[WARN-CONFIG] "+logPrefix+": dropped entry with '=' in key", "key", k)
			continue
		}
		if _, blocked := warnOnlyBlockedKeys[strings.ToUpper(k)]; blocked {
			slog.Warn("[WARN-CONFIG] "+logPrefix+": blocked system key will be rejected at process creation", "key", k)
		}
		origLen := len(v)
		v = strings.ReplaceAll(v, "\x00", "")
		if len(v) != origLen {
			slog.Warn("[WARN-CONFIG] "+logPrefix+": stripped null bytes from value", "key", k)
		}
		v = strings.TrimSpace(v)
		upperK := strings.ToUpper(k)
		if firstKey, exists := seen[upperK]; exists {
			slog.Warn("[WARN-CONFIG] "+logPrefix+": duplicate key (case-insensitive), keeping first", "key", k, "kept", firstKey)
			continue
		}
		if len(v) > maxCustomEnvValueBytes {
			slog.Warn("[WARN-CONFIG] "+logPrefix+": value exceeds recommended limit", "key", k, "bytes", len(v), "limit", maxCustomEnvValueBytes)
		}
		seen[upperK] = k
		cleaned[k] = v
	}
	if len(cleaned) == 0 {
		return nil
	}
	return cleaned
}

// validateShell ensures the configured shell is safe for process creation.
// It rejects null bytes, verifies the base name against allowedShells,
// confirms absolute paths exist on disk, and rejects relative paths that
// could resolve to unintended executables.
func validateShell(shell string) error {
	shell = strings.TrimSpace(shell)
	if shell == "" {
		return errors.New("shell is required")
	}
	if strings.ContainsRune(shell, '\x00') {
		return errors.New("shell contains invalid null byte")
	}

	baseName := strings.ToLower(filepath.Base(shell))
	if _, ok := allowedShells[baseName]; !ok {
		return fmt.Errorf("shell %q is not in the allowlist", shell)
	}

	if filepath.IsAbs(shell) {
		info, err := os.Stat(shell)
		if err != nil {
			return fmt.Errorf("shell path does not exist: %w", err)
		}
		if info.IsDir() {
			return errors.New("shell path cannot be a directory")
		}
		return nil
	}

	if strings.Contains(shell, `\`) || strings.Contains(shell, "/") {
		return errors.New("shell must be executable name or absolute path")
	}
	return nil
}

// parseRawConfigMetadata unmarshals raw YAML into a generic map used only
// for metadata checks (deprecated field detection).
func parseRawConfigMetadata(raw []byte) (map[string]any, error) {
	var rawMap map[string]any
	if err := yamlUnmarshalConfigMetadataFn(raw, &rawMap); err != nil {
		return nil, err
	}
	return rawMap, nil
}

func warnDeprecatedFields(rawMap map[string]any) {
	if _, has := rawMap["websocket_port"]; has {
		slog.Warn("[WARN-CONFIG] deprecated field ignored: websocket_port is no longer used")
	}
	if _, has := rawMap["quake_mode"]; has {
		slog.Warn("[WARN-CONFIG] deprecated field ignored: quake_mode is no longer used")
	}
}

func readLimitedFile(path string, maxBytes int64) ([]byte, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	limited := io.LimitReader(file, maxBytes+1)
	raw, err := io.ReadAll(limited)
	if err != nil {
		return nil, err
	}
	if int64(len(raw)) > maxBytes {
		return nil, fmt.Errorf("config file exceeds %d bytes", maxBytes)
	}
	return raw, nil
}

func isZeroConfig(cfg Config) bool {
	return reflect.DeepEqual(cfg, Config{})
}

func renameFileWithRetry(sourcePath string, targetPath string) error {
	var lastErr error
	for attempt := range maxRenameRetry {
		err := os.Rename(sourcePath, targetPath)
		if err == nil {
			return nil
		}
		lastErr = err
		if runtime.GOOS != "windows" {
			return err
		}
		time.Sleep(time.Duration(attempt+1) * renameRetryBaseDelay)
	}
	return lastErr
}
