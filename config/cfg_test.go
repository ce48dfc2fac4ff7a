package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	yaml "gopkg.in/yaml.v3"

	"kfcss/css"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}
	return path
}

func TestLoadConfiguration_NoFile(t *testing.T) {
	cfg, err := LoadConfiguration("")
	if err != nil {
		t.Fatalf("LoadConfiguration() with empty path error = %v", err)
	}
	if cfg.Version != 1 {
		t.Errorf("Default config version = %d, want 1", cfg.Version)
	}

	bps := cfg.BreakpointList()
	want := css.DefaultBreakpoints()
	if len(bps) != len(want) {
		t.Fatalf("Default breakpoints = %v, want %v", bps, want)
	}
	for i := range want {
		if bps[i] != want[i] {
			t.Errorf("Breakpoint %d = %v, want %v", i, bps[i], want[i])
		}
	}

	if cfg.Mirror.Input != "dist/kf.css" || cfg.Mirror.Output != "dist/kf-responsive.css" {
		t.Errorf("Unexpected mirror defaults: %+v", cfg.Mirror)
	}
	if cfg.Project.Entry != "src/main.scss" || cfg.Project.OutDir != "dist" {
		t.Errorf("Unexpected project defaults: %+v", cfg.Project)
	}
	if cfg.Watch.Debounce != 100*time.Millisecond {
		t.Errorf("Debounce = %v, want 100ms", cfg.Watch.Debounce)
	}
	if cfg.Compiler.Timeout != 30*time.Second {
		t.Errorf("Compiler timeout = %v, want 30s", cfg.Compiler.Timeout)
	}
	if len(cfg.Compiler.Args) != 2 || cfg.Compiler.Args[1] != "[[ .Entry ]]" {
		t.Errorf("Compiler arguments must not be expanded, got %q", cfg.Compiler.Args)
	}
}

func TestLoadConfiguration_WithFile(t *testing.T) {
	path := writeConfig(t, `version: 1
breakpoints:
  - prefix: sm
    min_width: 640px
  - prefix: lg
    min_width: 1024px
mirror:
  input: in.css
  output: out.css
compiler:
  command: sass
watch:
  debounce: 250ms
logging:
  console:
    level: debug
`)

	cfg, err := LoadConfiguration(path)
	if err != nil {
		t.Fatalf("LoadConfiguration() error = %v", err)
	}

	bps := cfg.BreakpointList()
	if len(bps) != 2 || bps[0].Prefix != "sm" || bps[1].MinWidth != "1024px" {
		t.Errorf("Breakpoints were not replaced: %v", bps)
	}
	if cfg.Mirror.Input != "in.css" {
		t.Errorf("Mirror input = %q, want in.css", cfg.Mirror.Input)
	}
	if cfg.Compiler.Command != "sass" {
		t.Errorf("Compiler command = %q, want sass", cfg.Compiler.Command)
	}
	if cfg.Watch.Debounce != 250*time.Millisecond {
		t.Errorf("Debounce = %v, want 250ms", cfg.Watch.Debounce)
	}
	// untouched values keep defaults
	if cfg.Server.Listen != "127.0.0.1:35729" {
		t.Errorf("Server listen = %q, want default", cfg.Server.Listen)
	}
	if cfg.Logging.ConsoleLogger.Level != "debug" {
		t.Errorf("Console level = %q, want debug", cfg.Logging.ConsoleLogger.Level)
	}
}

func TestLoadConfiguration_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{"unknown field", "version: 1\nbogus: true\n", "decode"},
		{"wrong version", "version: 2\n", ""},
		{"invalid yaml", "version: [1\n", "decode"},
		{"duplicate prefix", "version: 1\nbreakpoints:\n  - prefix: m\n    min_width: 1px\n  - prefix: m\n    min_width: 2px\n", "already used"},
		{"empty breakpoints", "version: 1\nbreakpoints: []\n", ""},
		{"bad prefix", "version: 1\nbreakpoints:\n  - prefix: 'a b'\n    min_width: 1px\n", "not allowed"},
		{"same output names", "version: 1\nproject:\n  base_name: x.css\n  responsive_name: x.css\n", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadConfiguration(writeConfig(t, tt.content))
			if err == nil {
				t.Fatal("Expected error, got nil")
			}
			if tt.wantErr != "" && !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestLoadConfiguration_NonExistentFile(t *testing.T) {
	if _, err := LoadConfiguration("/nonexistent/config.yaml"); err == nil {
		t.Error("Expected error for nonexistent file")
	}
}

func TestPrepare(t *testing.T) {
	data, err := Prepare()
	if err != nil {
		t.Fatalf("Prepare() error = %v", err)
	}
	if !strings.Contains(string(data), "breakpoints:") {
		t.Error("Prepared configuration misses breakpoints section")
	}
}

func TestDump_RoundTrip(t *testing.T) {
	cfg, err := LoadConfiguration("")
	if err != nil {
		t.Fatalf("LoadConfiguration() error = %v", err)
	}
	data, err := Dump(cfg)
	if err != nil {
		t.Fatalf("Dump() error = %v", err)
	}

	var back Config
	if err := yaml.Unmarshal(data, &back); err != nil {
		t.Fatalf("Dumped configuration is not valid yaml: %v", err)
	}
	if back.Watch.Debounce != cfg.Watch.Debounce {
		t.Errorf("Debounce = %v after dump, want %v", back.Watch.Debounce, cfg.Watch.Debounce)
	}
	if len(back.Breakpoints) != len(cfg.Breakpoints) {
		t.Errorf("Breakpoints lost in dump: %v", back.Breakpoints)
	}
}
