package lua

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/siohaza/sundown/internal/gamestate"

	"github.com/Shopify/go-lua"
)

// VM is a sandboxed Lua state. Timers run on simulation time: they advance
// only when UpdateTimers is called with the current tick time.
type VM struct {
	state     *lua.State
	timers    map[int]*Timer
	timerID   int
	timerLock sync.Mutex
	now       time.Duration
}

type Timer struct {
	ID       int
	Callback string
	Interval time.Duration
	Repeat   bool
	NextRun  time.Duration
	Args     []interface{}
}

func NewVM() *VM {
	state := lua.NewState()
	openSafeLibraries(state)
	return &VM{
		state:  state,
		timers: make(map[int]*Timer),
	}
}

func openSafeLibraries(state *lua.State) {
	lua.OpenLibraries(state)

	for _, name := range []string{"io", "os", "debug", "dofile", "loadfile"} {
		state.PushNil()
		state.SetGlobal(name)
	}
}

func (vm *VM) LoadFile(path string) error {
	if err := lua.DoFile(vm.state, path); err != nil {
		return fmt.Errorf("failed to load lua file %s: %w", path, err)
	}
	return nil
}

func (vm *VM) LoadString(code string) error {
	if err := lua.DoString(vm.state, code); err != nil {
		return fmt.Errorf("failed to load lua string: %w", err)
	}
	return nil
}

func (vm *VM) Close() {
	vm.timerLock.Lock()
	vm.timers = make(map[int]*Timer)
	vm.timerLock.Unlock()
}

// RegisterTimer schedules callback interval after the last UpdateTimers time.
func (vm *VM) RegisterTimer(callback string, interval time.Duration, repeat bool, args ...interface{}) int {
	vm.timerLock.Lock()
	defer vm.timerLock.Unlock()

	vm.timerID++
	timer := &Timer{
		ID:       vm.timerID,
		Callback: callback,
		Interval: interval,
		Repeat:   repeat,
		NextRun:  vm.now + interval,
		Args:     args,
	}

	vm.timers[timer.ID] = timer
	return timer.ID
}

func (vm *VM) CancelTimer(id int) {
	vm.timerLock.Lock()
	defer vm.timerLock.Unlock()

	delete(vm.timers, id)
}

func (vm *VM) TimerCount() int {
	vm.timerLock.Lock()
	defer vm.timerLock.Unlock()
	return len(vm.timers)
}

// UpdateTimers runs every timer due at now, oldest registration first. A
// failing callback does not stop the rest; all failures are returned joined.
func (vm *VM) UpdateTimers(now time.Duration) error {
	vm.timerLock.Lock()
	vm.now = now
	var toExecute []*Timer

	for id, timer := range vm.timers {
		if now < timer.NextRun {
			continue
		}
		toExecute = append(toExecute, timer)
		if timer.Repeat && timer.Interval > 0 {
			timer.NextRun = now + timer.Interval
		} else {
			delete(vm.timers, id)
		}
	}
	vm.timerLock.Unlock()

	sort.Slice(toExecute, func(i, j int) bool { return toExecute[i].ID < toExecute[j].ID })

	var errs []error
	for _, timer := range toExecute {
		if err := vm.CallFunction(timer.Callback, timer.Args...); err != nil {
			errs = append(errs, fmt.Errorf("timer callback %s failed: %w", timer.Callback, err))
		}
	}

	return errors.Join(errs...)
}

func (vm *VM) GetGlobalString(name string) (string, error) {
	vm.state.Global(name)
	if !vm.state.IsString(-1) {
		vm.state.Pop(1)
		return "", fmt.Errorf("global %s is not a string", name)
	}
	value, _ := vm.state.ToString(-1)
	vm.state.Pop(1)
	return value, nil
}

func (vm *VM) GetGlobalNumber(name string) (float64, error) {
	vm.state.Global(name)
	if !vm.state.IsNumber(-1) {
		vm.state.Pop(1)
		return 0, fmt.Errorf("global %s is not a number", name)
	}
	value, _ := vm.state.ToNumber(-1)
	vm.state.Pop(1)
	return value, nil
}

func (vm *VM) pushArgs(args []interface{}) error {
	for _, arg := range args {
		switch v := arg.(type) {
		case string:
			vm.state.PushString(v)
		case int:
			vm.state.PushInteger(v)
		case uint32:
			vm.state.PushInteger(int(v))
		case float64:
			vm.state.PushNumber(v)
		case bool:
			vm.state.PushBoolean(v)
		default:
			return fmt.Errorf("unsupported argument type: %T", arg)
		}
	}
	return nil
}

func (vm *VM) CallFunction(name string, args ...interface{}) error {
	_, err := vm.CallFunctionWithReturn(name, 0, args...)
	return err
}

func (vm *VM) CallFunctionWithReturn(name string, numReturns int, args ...interface{}) ([]interface{}, error) {
	top := vm.state.Top()
	vm.state.Global(name)
	if !vm.state.IsFunction(-1) {
		vm.state.Pop(1)
		return nil, fmt.Errorf("global %s is not a function", name)
	}

	if err := vm.pushArgs(args); err != nil {
		vm.state.SetTop(top)
		return nil, err
	}

	if err := vm.state.ProtectedCall(len(args), numReturns, 0); err != nil {
		vm.state.SetTop(top)
		return nil, fmt.Errorf("[Lua Error] function %s: %w", name, err)
	}

	results := make([]interface{}, numReturns)
	for i := 0; i < numReturns; i++ {
		index := top + 1 + i
		switch {
		case vm.state.IsNumber(index):
			value, _ := vm.state.ToNumber(index)
			results[i] = value
		case vm.state.IsString(index):
			value, _ := vm.state.ToString(index)
			results[i] = value
		case vm.state.IsBoolean(index):
			results[i] = vm.state.ToBoolean(index)
		}
	}
	vm.state.SetTop(top)

	return results, nil
}

// CallWithEntity calls a global function with e pushed as a table ahead of
// args. The stack is restored on any failure.
func (vm *VM) CallWithEntity(name string, e *gamestate.Entity, args ...interface{}) error {
	top := vm.state.Top()
	vm.state.Global(name)
	if !vm.state.IsFunction(-1) {
		vm.state.SetTop(top)
		return fmt.Errorf("global %s is not a function", name)
	}

	PushEntity(vm.state, e)
	if err := vm.pushArgs(args); err != nil {
		vm.state.SetTop(top)
		return err
	}

	if err := vm.state.ProtectedCall(1+len(args), 0, 0); err != nil {
		vm.state.SetTop(top)
		return fmt.Errorf("[Lua Error] function %s: %w", name, err)
	}
	return nil
}

func (vm *VM) HasFunction(name string) bool {
	vm.state.Global(name)
	isFunc := vm.state.IsFunction(-1)
	vm.state.Pop(1)
	return isFunc
}

func (vm *VM) RegisterFunction(name string, fn lua.Function) {
	vm.state.Register(name, fn)
}

func (vm *VM) State() *lua.State {
	return vm.state
}

func FileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
