package scripting

import (
	"fmt"
	"os"
	"path/filepath"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"

	"github.com/coralforge/engine/internal/core/ecs"
	"github.com/coralforge/engine/internal/core/schedule"
)

// Engine wraps a single gopher-lua VM providing run conditions for the
// scheduler. Single-goroutine access only: conditions are evaluated on
// the coordinating thread before a system is spawned, never from workers.
type Engine struct {
	vm  *lua.LState
	log *zap.Logger
}

// NewEngine creates a Lua engine and loads all scripts from the given
// directory. A condition is any global Lua function taking a world table
// and returning a boolean.
func NewEngine(scriptsDir string, log *zap.Logger) (*Engine, error) {
	vm := lua.NewState(lua.Options{
		SkipOpenLibs: false,
	})

	// Set API version global
	vm.SetGlobal("API_VERSION", lua.LNumber(1))

	e := &Engine{vm: vm, log: log}
	if err := e.loadDir(scriptsDir); err != nil {
		vm.Close()
		return nil, err
	}
	return e, nil
}

func (e *Engine) Close() {
	e.vm.Close()
}

// loadDir loads all .lua files in a directory.
func (e *Engine) loadDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil // skip missing dirs
		}
		return err
	}
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".lua" {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		if err := e.vm.DoFile(path); err != nil {
			return fmt.Errorf("load %s: %w", path, err)
		}
		e.log.Debug("loaded lua script", zap.String("file", path))
	}
	return nil
}

// LoadString evaluates inline Lua source. Used by tests and tooling.
func (e *Engine) LoadString(src string) error {
	return e.vm.DoString(src)
}

// Condition resolves a named global Lua function into a schedule
// condition. The function receives a table with tick and entity_count
// fields; conditions must not read component data. The world structure
// they see is frozen for the duration of a run, component values are not.
func (e *Engine) Condition(name string) (schedule.Condition, bool) {
	if e.vm.GetGlobal(name) == lua.LNil {
		return nil, false
	}
	return func(w *ecs.World) bool {
		fn := e.vm.GetGlobal(name)
		if fn == lua.LNil {
			e.log.Error("lua condition vanished", zap.String("condition", name))
			return false
		}

		t := e.vm.NewTable()
		t.RawSetString("tick", lua.LNumber(w.Tick()))
		t.RawSetString("entity_count", lua.LNumber(w.Allocator().Len()))

		if err := e.vm.CallByParam(lua.P{
			Fn:      fn,
			NRet:    1,
			Protect: true,
		}, t); err != nil {
			e.log.Error("lua condition failed", zap.String("condition", name), zap.Error(err))
			return false
		}
		ret := e.vm.Get(-1)
		e.vm.Pop(1)
		return lua.LVAsBool(ret)
	}, true
}
