package healthcheck

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/l3aro/go-scfg/internal/config"
	"github.com/l3aro/go-scfg/pkg/bytecode"
	"github.com/l3aro/go-scfg/pkg/scfg"
)

// Component statuses.
const (
	StatusReady    = "ready"
	StatusDisabled = "disabled"
	StatusError    = "error"
)

// ComponentStatus represents the health of one part of the setup.
type ComponentStatus struct {
	Detail string
	Status string // "ready", "disabled" or "error"
	Error  string
}

// HealthCheckResult contains the full health check output for display.
type HealthCheckResult struct {
	SavedPath      string
	SavedScope     string // "global" or "project"
	EffectivePath  string
	EffectiveScope string // "global" or "project"
	Table          ComponentStatus
	Cache          ComponentStatus
	SelfTest       ComponentStatus
}

// HasError reports whether any component failed.
func (r *HealthCheckResult) HasError() bool {
	return r.Table.Status == StatusError || r.Cache.Status == StatusError || r.SelfTest.Status == StatusError
}

// Check performs a health check against the given config.
// savedPath is where the user saved config (may be empty outside init).
// effectivePath is the config file actually in use (considering priority).
func Check(cfg *config.Config, savedPath string, effectivePath string) (*HealthCheckResult, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is nil")
	}

	result := &HealthCheckResult{
		SavedPath:      savedPath,
		SavedScope:     scopeFromPath(savedPath),
		EffectivePath:  effectivePath,
		EffectiveScope: scopeFromPath(effectivePath),
	}

	table, status := checkTable(cfg)
	result.Table = status
	result.Cache = checkCache(cfg)
	if table != nil {
		result.SelfTest = checkSelfTest(table)
	} else {
		result.SelfTest = ComponentStatus{Status: StatusError, Error: "skipped: no usable opcode table"}
	}
	return result, nil
}

// scopeFromPath determines "global" or "project" scope from a config file path.
// Returns empty string if path is empty.
func scopeFromPath(path string) string {
	if path == "" {
		return ""
	}

	home, err := os.UserHomeDir()
	if err == nil {
		globalDir := filepath.Join(home, ".scfg")
		if strings.HasPrefix(path, globalDir) {
			return "global"
		}
	}
	return "project"
}

func checkTable(cfg *config.Config) (*bytecode.Table, ComponentStatus) {
	table, err := cfg.Table()
	if err != nil {
		return nil, ComponentStatus{Detail: cfg.OpcodeTable, Status: StatusError, Error: err.Error()}
	}
	source := cfg.OpcodeTable
	if source == "" {
		source = "built-in"
	}
	return table, ComponentStatus{
		Detail: fmt.Sprintf("%s (%s, width %d, %d opnames)", table.Name, source, table.Width, len(table.Opnames())),
		Status: StatusReady,
	}
}

// checkCache verifies that the cache directory exists or can be created,
// and that it is writable.
func checkCache(cfg *config.Config) ComponentStatus {
	if !cfg.CacheEnabled {
		return ComponentStatus{Detail: cfg.CacheDir, Status: StatusDisabled}
	}
	status := ComponentStatus{Detail: cfg.CacheDir}

	if err := os.MkdirAll(cfg.CacheDir, 0755); err != nil {
		status.Status = StatusError
		status.Error = fmt.Sprintf("cannot create cache directory: %v", err)
		return status
	}
	f, err := os.CreateTemp(cfg.CacheDir, ".doctor-*")
	if err != nil {
		status.Status = StatusError
		status.Error = fmt.Sprintf("cache directory is not writable: %v", err)
		return status
	}
	name := f.Name()
	f.Close()
	os.Remove(name)

	status.Status = StatusReady
	return status
}

// checkSelfTest restructures a small if/else with a self loop, spelled with
// the table's own opnames, and verifies the result.
func checkSelfTest(table *bytecode.Table) ComponentStatus {
	status := ComponentStatus{Detail: "if/else with a self loop"}

	cond, jump, ret := firstOf(table.Conditional), firstOf(table.Unconditional), firstOf(table.Terminating)
	if cond == "" || jump == "" || ret == "" {
		status.Status = StatusError
		status.Error = "table needs at least one conditional, unconditional and terminating opname"
		return status
	}

	w := table.Width
	at := func(i int) int { return i * w }
	instrs := []bytecode.Instruction{
		{Offset: at(0), Opname: "NOP"},
		{Offset: at(1), Opname: cond, Target: at(5)},
		{Offset: at(2), Opname: "NOP"},
		{Offset: at(3), Opname: cond, Target: at(2)},
		{Offset: at(4), Opname: jump, Target: at(6)},
		{Offset: at(5), Opname: "NOP"},
		{Offset: at(6), Opname: ret},
	}
	bytecode.MarkJumpTargets(instrs, table)

	flow := scfg.FromInstructions(instrs, table)
	out, err := flow.Restructure(scfg.NewRestructurer())
	if err != nil {
		status.Status = StatusError
		status.Error = err.Error()
		return status
	}
	if err := scfg.Verify(out.Map, flow.Map.Labels()); err != nil {
		status.Status = StatusError
		status.Error = err.Error()
		return status
	}
	status.Status = StatusReady
	return status
}

func firstOf(ops []string) string {
	if len(ops) == 0 {
		return ""
	}
	return ops[0]
}
