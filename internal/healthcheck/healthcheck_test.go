package healthcheck

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/l3aro/go-scfg/internal/config"
	"github.com/l3aro/go-scfg/pkg/bytecode"
)

func TestCheckWithNilConfig(t *testing.T) {
	_, err := Check(nil, "", "")
	if err == nil {
		t.Error("Expected error for nil config, got nil")
	}
}

func TestCheckDefaults(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.CacheDir = filepath.Join(t.TempDir(), "cache")

	result, err := Check(cfg, "", "")
	if err != nil {
		t.Fatalf("Check() failed: %v", err)
	}

	if result.Table.Status != StatusReady {
		t.Errorf("Table.Status = %q, want %q (%s)", result.Table.Status, StatusReady, result.Table.Error)
	}
	if !strings.Contains(result.Table.Detail, "cpython") || !strings.Contains(result.Table.Detail, "built-in") {
		t.Errorf("Table.Detail = %q, want the built-in cpython table", result.Table.Detail)
	}
	if result.Cache.Status != StatusReady {
		t.Errorf("Cache.Status = %q, want %q (%s)", result.Cache.Status, StatusReady, result.Cache.Error)
	}
	if _, err := os.Stat(cfg.CacheDir); err != nil {
		t.Errorf("cache directory was not created: %v", err)
	}
	if result.SelfTest.Status != StatusReady {
		t.Errorf("SelfTest.Status = %q, want %q (%s)", result.SelfTest.Status, StatusReady, result.SelfTest.Error)
	}
	if result.HasError() {
		t.Error("HasError() = true, want false")
	}
}

func TestCheckCacheDisabled(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.CacheEnabled = false

	result, err := Check(cfg, "", "")
	if err != nil {
		t.Fatalf("Check() failed: %v", err)
	}
	if result.Cache.Status != StatusDisabled {
		t.Errorf("Cache.Status = %q, want %q", result.Cache.Status, StatusDisabled)
	}
	if result.HasError() {
		t.Error("a disabled cache should not count as an error")
	}
}

func TestCheckCacheDirIsFile(t *testing.T) {
	file := filepath.Join(t.TempDir(), "not-a-dir")
	if err := os.WriteFile(file, []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}
	cfg := config.DefaultConfig()
	cfg.CacheDir = file

	result, err := Check(cfg, "", "")
	if err != nil {
		t.Fatalf("Check() failed: %v", err)
	}
	if result.Cache.Status != StatusError {
		t.Errorf("Cache.Status = %q, want %q", result.Cache.Status, StatusError)
	}
	if !result.HasError() {
		t.Error("HasError() = false, want true")
	}
}

func TestCheckMissingTable(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.CacheEnabled = false
	cfg.OpcodeTable = filepath.Join(t.TempDir(), "missing.yaml")

	result, err := Check(cfg, "", "")
	if err != nil {
		t.Fatalf("Check() failed: %v", err)
	}
	if result.Table.Status != StatusError {
		t.Errorf("Table.Status = %q, want %q", result.Table.Status, StatusError)
	}
	if result.SelfTest.Status != StatusError {
		t.Errorf("SelfTest.Status = %q, want %q", result.SelfTest.Status, StatusError)
	}
}

func TestSelfTestCustomTable(t *testing.T) {
	tests := []struct {
		name   string
		table  *bytecode.Table
		status string
	}{
		{
			name:   "toy table width 1",
			table:  mustTable(t, "toy", 1, []string{"BR"}, []string{"JMP"}, []string{"RET"}),
			status: StatusReady,
		},
		{
			name:   "wide table",
			table:  mustTable(t, "wide", 4, []string{"BEQ", "BNE"}, []string{"B"}, []string{"HALT"}),
			status: StatusReady,
		},
		{
			name:   "no terminator",
			table:  mustTable(t, "partial", 2, []string{"BR"}, []string{"JMP"}, nil),
			status: StatusError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := checkSelfTest(tt.table)
			if got.Status != tt.status {
				t.Errorf("checkSelfTest() = %q (%s), want %q", got.Status, got.Error, tt.status)
			}
		})
	}
}

func mustTable(t *testing.T, name string, width int, cond, uncond, term []string) *bytecode.Table {
	t.Helper()
	table, err := bytecode.NewTable(name, width, cond, uncond, term)
	if err != nil {
		t.Fatalf("NewTable() failed: %v", err)
	}
	return table
}

func TestScopeFromPath(t *testing.T) {
	home, _ := os.UserHomeDir()
	globalPath := "/nonexistent-home/.scfg/config.yaml"
	globalScope := "project"
	if home != "" {
		globalPath = filepath.Join(home, ".scfg", "config.yaml")
		globalScope = "global"
	}

	tests := []struct {
		name     string
		path     string
		expected string
	}{
		{"empty path", "", ""},
		{"global path", globalPath, globalScope},
		{"project path", "/project/.scfg/config.yaml", "project"},
		{"relative project path", ".scfg/config.yaml", "project"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := scopeFromPath(tt.path)
			if result != tt.expected {
				t.Errorf("scopeFromPath(%q) = %q, want %q", tt.path, result, tt.expected)
			}
		})
	}
}
