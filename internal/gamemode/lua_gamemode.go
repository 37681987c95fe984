package gamemode

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/siohaza/sundown/internal/gamestate"
	"github.com/siohaza/sundown/internal/registry"
	"github.com/siohaza/sundown/pkg/lua"
)

// LuaGameMode forwards hooks to the global Lua functions of the same name.
// Missing functions are skipped; script errors are logged and never reach
// the simulation.
type LuaGameMode struct {
	vm     *lua.VM
	api    *lua.GameAPI
	name   string
	logger *slog.Logger
}

func NewLuaGameMode(scriptPath string, api *lua.GameAPI, logger *slog.Logger) (*LuaGameMode, error) {
	return newLuaGameMode(func(vm *lua.VM) error {
		if err := vm.LoadFile(scriptPath); err != nil {
			return fmt.Errorf("failed to load gamemode script: %w", err)
		}
		return nil
	}, api, logger)
}

// NewLuaGameModeFromString loads the script from source instead of a file.
func NewLuaGameModeFromString(code string, api *lua.GameAPI, logger *slog.Logger) (*LuaGameMode, error) {
	return newLuaGameMode(func(vm *lua.VM) error {
		return vm.LoadString(code)
	}, api, logger)
}

func newLuaGameMode(load func(*lua.VM) error, api *lua.GameAPI, logger *slog.Logger) (*LuaGameMode, error) {
	if logger == nil {
		logger = slog.Default()
	}

	vm := lua.NewVM()
	if api != nil {
		api.RegisterFunctions(vm)
	}

	if err := load(vm); err != nil {
		vm.Close()
		return nil, err
	}

	name, err := vm.GetGlobalString("name")
	if err != nil {
		name = "lua_gamemode"
	}

	gm := &LuaGameMode{
		vm:     vm,
		api:    api,
		name:   name,
		logger: logger,
	}

	if vm.HasFunction("on_init") {
		if err := vm.CallFunction("on_init"); err != nil {
			vm.Close()
			return nil, fmt.Errorf("failed to call on_init: %w", err)
		}
	}

	return gm, nil
}

func (gm *LuaGameMode) Name() string {
	return gm.name
}

func (gm *LuaGameMode) Update(now time.Duration) error {
	return gm.vm.UpdateTimers(now)
}

func (gm *LuaGameMode) Close() {
	if gm.vm != nil {
		gm.vm.Close()
	}
}

func (gm *LuaGameMode) call(fn string, args ...interface{}) {
	if !gm.vm.HasFunction(fn) {
		return
	}
	if err := gm.vm.CallFunction(fn, args...); err != nil {
		gm.logger.Error("lua gamemode hook error", "hook", fn, "error", err)
	}
}

func (gm *LuaGameMode) callWithEntity(fn string, e *gamestate.Entity, args ...interface{}) {
	if !gm.vm.HasFunction(fn) {
		return
	}

	if err := gm.vm.CallWithEntity(fn, e, args...); err != nil {
		gm.logger.Error("lua gamemode hook error", "hook", fn, "error", err)
	}
}

func (gm *LuaGameMode) OnConnect(id registry.ClientID, name string) {
	gm.call("on_connect", int(id), name)
}

func (gm *LuaGameMode) OnDisconnect(id registry.ClientID) {
	gm.call("on_disconnect", int(id))
}

func (gm *LuaGameMode) OnSpawn(e *gamestate.Entity) {
	gm.callWithEntity("on_spawn", e)
}

func (gm *LuaGameMode) OnDamage(target *gamestate.Entity, damage uint32) {
	gm.callWithEntity("on_damage", target, int(damage))
}

func (gm *LuaGameMode) OnEliminated(target *gamestate.Entity, at time.Duration) {
	gm.callWithEntity("on_eliminated", target, at.Seconds())
}

func (gm *LuaGameMode) OnWeaponFire(shooter *gamestate.Entity, weapon string, pellets int) {
	gm.callWithEntity("on_weapon_fire", shooter, weapon, pellets)
}

func (gm *LuaGameMode) OnWeaponSwitch(owner *gamestate.Entity, weapon string) {
	gm.callWithEntity("on_weapon_switch", owner, weapon)
}
