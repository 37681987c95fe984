package lua

import (
	"log/slog"
	"time"

	"github.com/siohaza/sundown/internal/gamestate"
	"github.com/siohaza/sundown/internal/registry"

	"github.com/Shopify/go-lua"
)

// ServerInterface is the part of the server scripts may drive.
type ServerInterface interface {
	KickClient(id registry.ClientID, reason uint32) bool
	BanClient(id registry.ClientID, reason string, duration time.Duration) error
}

// Clients resolves client ids for scripts.
type Clients interface {
	Find(id registry.ClientID) (registry.Handle, bool)
	Count() int
}

// GameAPI exposes read access to the world and a few server actions as Lua
// globals.
type GameAPI struct {
	world   *gamestate.World
	clients Clients
	server  ServerInterface
	logger  *slog.Logger
	vm      *VM
}

func NewGameAPI(world *gamestate.World, clients Clients, logger *slog.Logger) *GameAPI {
	if logger == nil {
		logger = slog.Default()
	}
	return &GameAPI{
		world:   world,
		clients: clients,
		logger:  logger,
	}
}

func (api *GameAPI) SetServer(srv ServerInterface) {
	api.server = srv
}

func (api *GameAPI) RegisterFunctions(vm *VM) {
	api.vm = vm

	vm.RegisterFunction("get_entity", api.getEntity)
	vm.RegisterFunction("get_player_count", api.getPlayerCount)
	vm.RegisterFunction("get_client_name", api.getClientName)
	vm.RegisterFunction("kick_client", api.kickClient)
	vm.RegisterFunction("ban_client", api.banClient)
	vm.RegisterFunction("add_timer", api.addTimer)
	vm.RegisterFunction("cancel_timer", api.cancelTimer)
	vm.RegisterFunction("log", api.log)
}

func (api *GameAPI) getEntity(state *lua.State) int {
	id, _ := state.ToInteger(1)
	e, ok := api.world.Get(gamestate.EntityID(id))
	if !ok {
		state.PushNil()
		return 1
	}
	PushEntity(state, e)
	return 1
}

func (api *GameAPI) getPlayerCount(state *lua.State) int {
	state.PushInteger(api.clients.Count())
	return 1
}

func (api *GameAPI) getClientName(state *lua.State) int {
	id, _ := state.ToInteger(1)
	h, ok := api.clients.Find(registry.ClientID(id))
	if !ok {
		state.PushNil()
		return 1
	}
	state.PushString(h.Name)
	return 1
}

func (api *GameAPI) kickClient(state *lua.State) int {
	id, _ := state.ToInteger(1)
	reason, _ := state.ToInteger(2)
	if api.server == nil {
		state.PushBoolean(false)
		return 1
	}
	state.PushBoolean(api.server.KickClient(registry.ClientID(id), uint32(reason)))
	return 1
}

// ban_client(id, reason, seconds) bans permanently when seconds is 0.
func (api *GameAPI) banClient(state *lua.State) int {
	id, _ := state.ToInteger(1)
	reason, _ := state.ToString(2)
	seconds, _ := state.ToNumber(3)
	if api.server == nil {
		state.PushBoolean(false)
		return 1
	}

	err := api.server.BanClient(registry.ClientID(id), reason, time.Duration(seconds*float64(time.Second)))
	if err != nil {
		api.logger.Warn("script ban failed", "client", id, "error", err)
		state.PushBoolean(false)
		return 1
	}
	state.PushBoolean(true)
	return 1
}

// add_timer(callback_name, seconds, repeat) returns the timer id.
func (api *GameAPI) addTimer(state *lua.State) int {
	callback, ok := state.ToString(1)
	if !ok || api.vm == nil {
		state.PushInteger(0)
		return 1
	}
	seconds, _ := state.ToNumber(2)
	repeat := state.ToBoolean(3)

	id := api.vm.RegisterTimer(callback, time.Duration(seconds*float64(time.Second)), repeat)
	state.PushInteger(id)
	return 1
}

func (api *GameAPI) cancelTimer(state *lua.State) int {
	id, _ := state.ToInteger(1)
	if api.vm != nil {
		api.vm.CancelTimer(id)
	}
	return 0
}

func (api *GameAPI) log(state *lua.State) int {
	msg, _ := state.ToString(1)
	api.logger.Info("script", "message", msg)
	return 0
}

// PushEntity pushes a table snapshot of e. Fields for absent components are
// left out.
func PushEntity(state *lua.State, e *gamestate.Entity) {
	if e == nil {
		state.PushNil()
		return
	}

	state.NewTable()
	state.PushInteger(int(e.ID))
	state.SetField(-2, "id")

	if client, ok := e.ClientID(); ok {
		state.PushInteger(int(client))
		state.SetField(-2, "client")
	}

	if e.Has(gamestate.CapHealth) {
		state.PushInteger(int(e.Health.Value))
		state.SetField(-2, "health")
		state.PushInteger(int(e.Health.Max))
		state.SetField(-2, "max_health")
	}
	state.PushBoolean(!e.Has(gamestate.CapEliminated))
	state.SetField(-2, "alive")

	if e.Has(gamestate.CapTransform) {
		state.NewTable()
		state.PushNumber(float64(e.Transform.Position.X))
		state.RawSetInt(-2, 1)
		state.PushNumber(float64(e.Transform.Position.Y))
		state.RawSetInt(-2, 2)
		state.SetField(-2, "position")
		state.PushNumber(float64(e.Transform.Rotation))
		state.SetField(-2, "rotation")
	}
}
