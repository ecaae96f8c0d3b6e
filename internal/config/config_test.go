package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestPathWithinDir(t *testing.T) {
	tests := []struct {
		name string
		path string
		dir  string
		want bool
	}{
		{"same dir", "/a/b", "/a/b", true},
		{"nested", "/a/b/c.yaml", "/a/b", true},
		{"outside", "/a/c.yaml", "/a/b", false},
		{"traversal", "/a/b/../c.yaml", "/a/b", false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := pathWithinDir(tc.path, tc.dir); got != tc.want {
				t.Fatalf("pathWithinDir(%q, %q) = %v, want %v", tc.path, tc.dir, got, tc.want)
			}
		})
	}
}

func TestIsZeroConfig(t *testing.T) {
	if !isZeroConfig(Config{}) {
		t.Fatal("zero Config should be zero")
	}
	if isZeroConfig(DefaultConfig()) {
		t.Fatal("DefaultConfig should not be zero")
	}
}

func TestDefaultSocketPathIsPerUser(t *testing.T) {
	t.Setenv("TMPDIR", t.TempDir())
	got := DefaultSocketPath()
	if filepath.Base(got) != "pane.sock" {
		t.Fatalf("got %q, want basename pane.sock", got)
	}
	want := fmt.Sprintf("pane-%d", os.Getuid())
	if !strings.Contains(got, want) {
		t.Fatalf("got %q, want it to contain %q", got, want)
	}
}

func TestDefaultDataDirPrefersXDG(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_DATA_HOME", dir)
	got := DefaultDataDir()
	want := filepath.Join(dir, "panemux")
	if got != want {
		t.Fatalf("got %q want %q", got, want)
	}
}

func TestLoadRejectsShellOutsideAllowlist(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("shell: /bin/totally-not-a-shell\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected error for disallowed shell")
	}
}

func TestLoadAcceptsAllowlistedShellName(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("shell: bash\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Shell != "bash" {
		t.Fatalf("Shell = %q, want bash", cfg.Shell)
	}
}

func TestLoadRejectsShellWithNullByte(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("shell: \"bash\\u0000\"\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected error for null byte in shell")
	}
}

func TestLoadRejectsRelativePathShell(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("shell: ./bash\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected error for relative path shell")
	}
}

func TestLoadAcceptsCaseInsensitiveShellName(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("shell: BASH\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
}

func TestLoadRejectsAbsolutePathThatDoesNotExist(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("shell: /no/such/bash\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected error for missing absolute shell path")
	}
}

func TestLoadRejectsAbsolutePathThatIsDirectory(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := "shell: " + dir + "/bash\n"
	if err := os.Mkdir(filepath.Join(dir, "bash"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected error when shell path is a directory")
	}
}

func TestLoadIgnoresUnknownFields(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("shell: bash\nnonexistent_field: true\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Shell != "bash" {
		t.Fatalf("Shell = %q, want bash", cfg.Shell)
	}
}

func TestLoadReturnsDefaultsOnParseError(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("shell: [unterminated\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err == nil {
		t.Fatal("expected parse error")
	}
	if cfg.Shell != DefaultConfig().Shell {
		t.Fatalf("expected defaults on parse error, got Shell=%q", cfg.Shell)
	}
}

func TestDefaultConfigDefaults(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.Prefix == "" {
		t.Fatal("Prefix should default to a non-empty leader key")
	}
	if cfg.BroadcastCapacity < minBroadcastCapacity {
		t.Fatalf("BroadcastCapacity = %d, want >= %d", cfg.BroadcastCapacity, minBroadcastCapacity)
	}
	if cfg.DefaultLayout == "" {
		t.Fatal("DefaultLayout should have a default")
	}
	if cfg.AutoSuspendSecs != 0 {
		t.Fatalf("AutoSuspendSecs default = %d, want 0 (disabled)", cfg.AutoSuspendSecs)
	}
}

func TestApplyDefaultsFloorsBroadcastCapacity(t *testing.T) {
	cfg := Config{Shell: "bash", BroadcastCapacity: 4}
	if err := applyDefaultsAndValidate(&cfg); err != nil {
		t.Fatalf("applyDefaultsAndValidate() error = %v", err)
	}
	if cfg.BroadcastCapacity < minBroadcastCapacity {
		t.Fatalf("BroadcastCapacity = %d, want floored to >= %d", cfg.BroadcastCapacity, minBroadcastCapacity)
	}
}

func TestValidateConfigPathReturnsErrorWhenDefaultConfigDirResolutionFails(t *testing.T) {
	orig := defaultConfigDirFn
	defer func() { defaultConfigDirFn = orig }()
	defaultConfigDirFn = func() (string, error) {
		return "", errors.New("boom")
	}
	if _, err := validateConfigPath("/tmp/x.yaml"); err == nil {
		t.Fatal("expected error when config dir resolution fails")
	}
}

func TestAllowedShellList(t *testing.T) {
	shells := AllowedShellList()
	if len(shells) != len(allowedShells) {
		t.Fatalf("AllowedShellList() length = %d, want %d", len(shells), len(allowedShells))
	}
	for _, s := range shells {
		if _, ok := allowedShells[s]; !ok {
			t.Fatalf("AllowedShellList() returned unexpected shell %q", s)
		}
	}
}

func TestAllowedShellListIsSorted(t *testing.T) {
	shells := AllowedShellList()
	for i := 1; i < len(shells); i++ {
		if shells[i-1] > shells[i] {
			t.Fatalf("AllowedShellList() not sorted: %v", shells)
		}
	}
}

func TestCloneDeepCopyIndependence(t *testing.T) {
	src := DefaultConfig()
	src.Keys["extra"] = "x"
	src.PaneEnv = map[string]string{"FOO": "bar"}
	dst := Clone(src)

	dst.Keys["extra"] = "mutated"
	dst.PaneEnv["FOO"] = "mutated"

	if src.Keys["extra"] != "x" {
		t.Fatal("Clone() did not deep-copy Keys")
	}
	if src.PaneEnv["FOO"] != "bar" {
		t.Fatal("Clone() did not deep-copy PaneEnv")
	}
}

func TestClonePreservesNilCollections(t *testing.T) {
	src := Config{Shell: "bash"}
	dst := Clone(src)
	if dst.Keys != nil {
		t.Fatal("Clone() should preserve nil Keys")
	}
	if dst.PaneEnv != nil {
		t.Fatal("Clone() should preserve nil PaneEnv")
	}
}

func TestLoadPaneEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := "shell: bash\npane_env:\n  FOO: bar\n  BAZ: qux\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.PaneEnv["FOO"] != "bar" || cfg.PaneEnv["BAZ"] != "qux" {
		t.Fatalf("PaneEnv = %v", cfg.PaneEnv)
	}
}

func TestSanitizePaneEnv(t *testing.T) {
	cfg := Config{PaneEnv: map[string]string{
		"":        "dropped",
		"OK":      "value",
		"BAD=KEY": "dropped",
	}}
	sanitizePaneEnv(&cfg)
	if _, ok := cfg.PaneEnv[""]; ok {
		t.Fatal("empty key should be dropped")
	}
	if _, ok := cfg.PaneEnv["BAD=KEY"]; ok {
		t.Fatal("key containing '=' should be dropped")
	}
	if cfg.PaneEnv["OK"] != "value" {
		t.Fatal("valid entry should survive sanitization")
	}
}

func TestSanitizePaneEnvCaseInsensitiveDuplicate(t *testing.T) {
	cfg := Config{PaneEnv: map[string]string{"Foo": "first", "FOO": "second"}}
	sanitizePaneEnv(&cfg)
	if len(cfg.PaneEnv) != 1 {
		t.Fatalf("expected one surviving key, got %v", cfg.PaneEnv)
	}
}

func TestSanitizeEnvMap(t *testing.T) {
	out := sanitizeEnvMap(map[string]string{
		"A": "value\x00withnull",
	}, "test")
	if strings.Contains(out["A"], "\x00") {
		t.Fatal("null bytes should be stripped from values")
	}
}

func TestSanitizePaneEnvAllRemovedNormalizesToNil(t *testing.T) {
	cfg := Config{PaneEnv: map[string]string{"": "x"}}
	sanitizePaneEnv(&cfg)
	if cfg.PaneEnv != nil {
		t.Fatalf("expected nil PaneEnv after removing all entries, got %v", cfg.PaneEnv)
	}
}

func TestEnsureFileCreatesConfigFile(t *testing.T) {
	orig := defaultConfigDirFn
	dir := t.TempDir()
	defaultConfigDirFn = func() (string, error) { return dir, nil }
	defer func() { defaultConfigDirFn = orig }()

	path := filepath.Join(dir, "config.yaml")
	if _, err := EnsureFile(path); err != nil {
		t.Fatalf("EnsureFile() error = %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("expected config file to be created: %v", err)
	}
}

func TestEnsureFileUsesExistingConfigFile(t *testing.T) {
	orig := defaultConfigDirFn
	dir := t.TempDir()
	defaultConfigDirFn = func() (string, error) { return dir, nil }
	defer func() { defaultConfigDirFn = orig }()

	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("shell: zsh\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	cfg, err := EnsureFile(path)
	if err != nil {
		t.Fatalf("EnsureFile() error = %v", err)
	}
	if cfg.Shell != "zsh" {
		t.Fatalf("Shell = %q, want zsh (existing file should not be overwritten)", cfg.Shell)
	}
}

func TestSave(t *testing.T) {
	orig := defaultConfigDirFn
	dir := t.TempDir()
	defaultConfigDirFn = func() (string, error) { return dir, nil }
	defer func() { defaultConfigDirFn = orig }()

	path := filepath.Join(dir, "config.yaml")
	cfg := DefaultConfig()
	cfg.Shell = "zsh"
	saved, err := Save(path, cfg)
	if err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if saved.Shell != "zsh" {
		t.Fatalf("saved.Shell = %q, want zsh", saved.Shell)
	}

	reloaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load() after Save() error = %v", err)
	}
	if reloaded.Shell != "zsh" {
		t.Fatalf("reloaded.Shell = %q, want zsh", reloaded.Shell)
	}
}

func TestSaveRejectsPathOutsideConfigDir(t *testing.T) {
	orig := defaultConfigDirFn
	dir := t.TempDir()
	defaultConfigDirFn = func() (string, error) { return filepath.Join(dir, "allowed"), nil }
	defer func() { defaultConfigDirFn = orig }()

	_, err := Save(filepath.Join(dir, "elsewhere", "config.yaml"), DefaultConfig())
	if err == nil {
		t.Fatal("expected error saving outside the config directory")
	}
}

func TestReadLimitedFileRejectsTooLargeFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "big.yaml")
	data := make([]byte, 128)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := readLimitedFile(path, 16); err == nil {
		t.Fatal("expected error for file exceeding max bytes")
	}
}

func TestReadLimitedFileAllowsFileAtExactMaxBytes(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "exact.yaml")
	data := make([]byte, 16)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := readLimitedFile(path, 16); err != nil {
		t.Fatalf("readLimitedFile() error = %v, want nil at exact boundary", err)
	}
}

func TestDefaultWorkspaceDirExpandsTilde(t *testing.T) {
	home := t.TempDir()
	origHome := userHomeDirFn
	userHomeDirFn = func() (string, error) { return home, nil }
	defer func() { userHomeDirFn = origHome }()

	cfg := Config{Shell: "bash", DefaultWorkspaceDir: "~/work"}
	if err := applyDefaultsAndValidate(&cfg); err != nil {
		t.Fatalf("applyDefaultsAndValidate() error = %v", err)
	}
	want := filepath.Join(home, "work")
	if cfg.DefaultWorkspaceDir != want {
		t.Fatalf("DefaultWorkspaceDir = %q, want %q", cfg.DefaultWorkspaceDir, want)
	}
}

func TestDefaultWorkspaceDirRejectsRelative(t *testing.T) {
	cfg := Config{Shell: "bash", DefaultWorkspaceDir: "relative/path"}
	if err := applyDefaultsAndValidate(&cfg); err != nil {
		t.Fatalf("applyDefaultsAndValidate() error = %v", err)
	}
	if cfg.DefaultWorkspaceDir != "" {
		t.Fatalf("DefaultWorkspaceDir = %q, want cleared for relative input", cfg.DefaultWorkspaceDir)
	}
}
