package scripting

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"
)

// GlobalKey is the reserved key for shared scripts loaded via LoadGlobal.
// Calls fall back to this VM when no VM is registered under their key.
const GlobalKey = "__global__"

// ArgBuilder constructs hook arguments inside the VM that will run the hook.
// Tables must be created through L so they belong to that VM.
type ArgBuilder func(L *lua.LState) []lua.LValue

// vm is one sandboxed LState. An LState is single-threaded, so every call
// holds mu for its duration.
type vm struct {
	mu sync.Mutex
	L  *lua.LState
}

// Manager owns one sandboxed LState per catalog key and dispatches hook calls.
//
// Manager is safe for concurrent use. Calls against the same key are
// serialized; calls against different keys run in parallel.
type Manager struct {
	mu        sync.RWMutex
	vms       map[string]*vm
	instLimit int
	logger    *zap.Logger
}

// NewManager creates a Manager.
//
// Precondition: logger must be non-nil; instLimit >= 0 (0 = DefaultInstructionLimit).
// Postcondition: Returns a non-nil Manager with no VMs.
func NewManager(logger *zap.Logger, instLimit int) *Manager {
	if logger == nil {
		panic("scripting.NewManager: logger must not be nil")
	}
	return &Manager{
		vms:       make(map[string]*vm),
		instLimit: instLimit,
		logger:    logger,
	}
}

// Load creates a sandboxed VM for key, registers the craft.* module, then
// executes every *.lua file in scriptDir in lexicographic order. A VM already
// registered under key is replaced and closed.
//
// Precondition: key must be non-empty; scriptDir must be a readable directory.
// Postcondition: VM is registered; returns error on Lua load failure.
func (m *Manager) Load(key, scriptDir string) error {
	entries, err := os.ReadDir(scriptDir)
	if err != nil {
		return fmt.Errorf("scripting: reading script dir %q for %q: %w", scriptDir, key, err)
	}
	var luaFiles []string
	for _, e := range entries {
		if !e.IsDir() && filepath.Ext(e.Name()) == ".lua" {
			luaFiles = append(luaFiles, filepath.Join(scriptDir, e.Name()))
		}
	}
	sort.Strings(luaFiles)

	return m.loadInto(key, func(L *lua.LState) error {
		for _, path := range luaFiles {
			if err := L.DoFile(path); err != nil {
				return fmt.Errorf("scripting: loading %q for %q: %w", path, key, err)
			}
		}
		return nil
	})
}

// LoadGlobal loads scriptDir into the fallback VM shared by every key.
func (m *Manager) LoadGlobal(scriptDir string) error {
	return m.Load(GlobalKey, scriptDir)
}

// LoadString registers a VM for key that runs src.
func (m *Manager) LoadString(key, src string) error {
	return m.loadInto(key, func(L *lua.LState) error {
		if err := L.DoString(src); err != nil {
			return fmt.Errorf("scripting: loading source for %q: %w", key, err)
		}
		return nil
	})
}

func (m *Manager) loadInto(key string, run func(L *lua.LState) error) error {
	if key == "" {
		return errors.New("scripting: key must not be empty")
	}
	L := NewSandboxedState()
	m.RegisterModules(L)

	// Loading runs once per VM; it gets the default budget rather than the
	// per-call hook limit.
	release := limitInstructions(L, DefaultInstructionLimit)
	err := run(L)
	release()
	if err != nil {
		L.Close()
		return err
	}

	m.mu.Lock()
	old := m.vms[key]
	m.vms[key] = &vm{L: L}
	m.mu.Unlock()

	if old != nil {
		old.mu.Lock()
		old.L.Close()
		old.mu.Unlock()
	}
	return nil
}

// LoadTree loads a script tree: *.lua files directly in root go to the global
// VM, and every sub-directory is loaded under its own name as key. Returns the
// keys loaded, excluding GlobalKey.
//
// Precondition: root must be a readable directory.
func (m *Manager) LoadTree(root string) ([]string, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, fmt.Errorf("scripting: reading script tree %q: %w", root, err)
	}
	var keys []string
	hasGlobal := false
	for _, e := range entries {
		switch {
		case e.IsDir():
			keys = append(keys, e.Name())
		case filepath.Ext(e.Name()) == ".lua":
			hasGlobal = true
		}
	}
	if hasGlobal {
		if err := m.LoadGlobal(root); err != nil {
			return nil, err
		}
	}
	sort.Strings(keys)
	for _, k := range keys {
		if err := m.Load(k, filepath.Join(root, k)); err != nil {
			return nil, err
		}
	}
	m.logger.Info("scripts loaded",
		zap.String("dir", root),
		zap.Bool("global", hasGlobal),
		zap.Strings("keys", keys),
	)
	return keys, nil
}

// Has reports whether a VM (or the global fallback) would serve key.
func (m *Manager) Has(key string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.vms[key]
	if !ok {
		_, ok = m.vms[GlobalKey]
	}
	return ok
}

// Call invokes the named Lua global function in key's VM with the arguments
// produced by build. If key has no VM the global VM is tried. Returns
// (LNil, nil) if the hook is not defined or no VM exists. Lua runtime errors,
// including an exhausted instruction budget, are logged at Warn level and
// never propagated.
//
// Postcondition: Returns the first return value of the hook, or LNil.
func (m *Manager) Call(key, hook string, build ArgBuilder) (lua.LValue, error) {
	m.mu.RLock()
	v, ok := m.vms[key]
	if !ok {
		v = m.vms[GlobalKey]
	}
	m.mu.RUnlock()

	if v == nil {
		m.logger.Debug("scripting: no VM for key",
			zap.String("key", key),
			zap.String("hook", hook),
		)
		return lua.LNil, nil
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	L := v.L
	fn := L.GetGlobal(hook)
	if fn == lua.LNil {
		return lua.LNil, nil
	}

	var args []lua.LValue
	if build != nil {
		args = build(L)
	}

	release := limitInstructions(L, m.instLimit)
	err := L.CallByParam(lua.P{
		Fn:      fn,
		NRet:    1,
		Protect: true,
	}, args...)
	release()
	if err != nil {
		m.logger.Warn("scripting: Lua runtime error",
			zap.String("key", key),
			zap.String("hook", hook),
			zap.Error(err),
		)
		return lua.LNil, nil
	}

	ret := L.Get(-1)
	L.Pop(1)
	return ret, nil
}

// CallHook is Call with arguments that need no VM-owned values.
func (m *Manager) CallHook(key, hook string, args ...lua.LValue) (lua.LValue, error) {
	return m.Call(key, hook, func(*lua.LState) []lua.LValue { return args })
}

// Close closes every VM.
//
// Postcondition: the Manager holds no VMs.
func (m *Manager) Close() {
	m.mu.Lock()
	vms := m.vms
	m.vms = make(map[string]*vm)
	m.mu.Unlock()

	for _, v := range vms {
		v.mu.Lock()
		v.L.Close()
		v.mu.Unlock()
	}
}
