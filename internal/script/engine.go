package script

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"

	lua "github.com/yuin/gopher-lua"

	"github.com/dshills/keyframe/internal/dispatcher"
	"github.com/dshills/keyframe/internal/event"
	"github.com/dshills/keyframe/internal/handler"
	"github.com/dshills/keyframe/internal/logging"
	"github.com/dshills/keyframe/internal/middleware"
	"github.com/dshills/keyframe/internal/store"
)

// Engine runs a Lua script that registers handlers on a dispatcher.
//
// Lua states are not goroutine-safe. Every access to them happens inside
// a handler or inside the dispatcher's exclusive section, so at most one
// goroutine touches a state at a time.
type Engine struct {
	d    *dispatcher.Dispatcher
	path string
	log  *logging.Logger
	spec middleware.Spec

	// Guarded by the dispatcher's handler lock.
	states []*lua.LState
	ctx    context.Context
	closed bool

	loads atomic.Uint64
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger used for print and load messages.
func WithLogger(l *logging.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.log = l
		}
	}
}

// WithMiddleware wraps every handler the script registers with spec,
// outside any middleware the script asks for.
func WithMiddleware(spec middleware.Spec) Option {
	return func(e *Engine) {
		e.spec = spec
	}
}

// New creates an engine for the script at path. The dispatcher's store
// must be a JSON document.
func New(d *dispatcher.Dispatcher, path string, opts ...Option) (*Engine, error) {
	if _, ok := d.Store().(store.Document); !ok {
		return nil, fmt.Errorf("script: dispatcher store %T: %w", d.Store(), store.ErrNotDocument)
	}

	e := &Engine{
		d:    d,
		path: path,
		log:  logging.Default().WithComponent("script"),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Path returns the script path.
func (e *Engine) Path() string {
	return e.path
}

// Loads returns how many times the script loaded successfully.
func (e *Engine) Loads() uint64 {
	return e.loads.Load()
}

// Load runs the script, registering its handlers.
func (e *Engine) Load(ctx context.Context) error {
	return e.load(ctx, false)
}

// Reload clears every registered handler and runs the script again.
func (e *Engine) Reload(ctx context.Context) error {
	return e.load(ctx, true)
}

// Close releases the Lua states. Handlers registered by the script must
// not run afterwards; call ClearHandlers on the dispatcher first.
func (e *Engine) Close(ctx context.Context) error {
	return e.d.Exclusive(ctx, func(context.Context) error {
		if e.closed {
			return nil
		}
		e.closed = true
		e.closeStates()
		return nil
	})
}

func (e *Engine) load(ctx context.Context, clear bool) error {
	return e.d.Exclusive(ctx, func(ctx context.Context) error {
		if e.closed {
			return ErrEngineClosed
		}
		if clear {
			e.d.ClearHandlers()
			e.closeStates()
		}

		L := e.newState()
		e.states = append(e.states, L)

		e.ctx = ctx
		err := doWithRecovery(func() error { return L.DoFile(e.path) })
		e.ctx = nil
		if err != nil {
			return &LoadError{Path: e.path, Err: err}
		}

		e.loads.Add(1)
		e.log.Info("loaded %s, %d handlers registered", e.path, len(e.d.Handlers()))
		return nil
	})
}

func (e *Engine) closeStates() {
	for _, L := range e.states {
		L.Close()
	}
	e.states = nil
}

// newState creates a Lua state with the safe libraries and engine globals.
func (e *Engine) newState() *lua.LState {
	L := lua.NewState(lua.Options{SkipOpenLibs: true})
	openSafeLibraries(L)
	registerDBType(L)

	L.SetGlobal("reg_event", L.NewFunction(e.regEvent))
	L.SetGlobal("dispatch", L.NewFunction(e.dispatch))
	L.SetGlobal("dispatch_sync", L.NewFunction(e.dispatchSync))
	L.SetGlobal("print", L.NewFunction(e.print))
	return L
}

// openSafeLibraries opens only safe Lua standard libraries.
func openSafeLibraries(L *lua.LState) {
	lua.OpenBase(L)
	lua.OpenTable(L)
	lua.OpenString(L)
	lua.OpenMath(L)

	// Base opens loaders that reach the file system.
	for _, name := range []string{"dofile", "loadfile", "require"} {
		L.SetGlobal(name, lua.LNil)
	}
}

func doWithRecovery(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("lua panic: %v", r)
		}
	}()
	return fn()
}

// reg_event(id, fn [, opts])
func (e *Engine) regEvent(L *lua.LState) int {
	id := event.ID(L.CheckString(1))
	if id == "" {
		L.ArgError(1, ErrBadHandler.Error()+": empty event id")
		return 0
	}
	fn := L.CheckFunction(2)

	spec := middleware.List{e.spec}
	if opts := L.OptTable(3, nil); opts != nil {
		if lua.LVAsBool(opts.RawGetString("debug")) {
			spec = append(spec, middleware.Debug())
		}
		if p, ok := opts.RawGetString("path").(lua.LString); ok && p != "" {
			spec = append(spec, middleware.Path(string(p)))
		}
	}

	e.d.RegisterFunc(id, spec, e.luaHandler(L, id, fn))
	return 0
}

func (e *Engine) luaHandler(L *lua.LState, id event.ID, fn *lua.LFunction) handler.Func {
	return func(ctx context.Context, s store.Store, ev event.Event) error {
		doc, ok := s.(store.Document)
		if !ok {
			return fmt.Errorf("script: handler %s: %w", id, store.ErrNotDocument)
		}

		prev := e.ctx
		e.ctx = ctx
		defer func() { e.ctx = prev }()

		err := L.CallByParam(lua.P{Fn: fn, NRet: 0, Protect: true}, newDB(L, doc), eventToLua(L, ev))
		if err != nil {
			return fmt.Errorf("script: handler %s: %w", id, err)
		}
		return nil
	}
}

// dispatch(id, ...)
func (e *Engine) dispatch(L *lua.LState) int {
	e.d.Dispatch(eventFromArgs(L))
	return 0
}

// dispatch_sync(id, ...)
func (e *Engine) dispatchSync(L *lua.LState) int {
	ev := eventFromArgs(L)
	ctx := e.ctx
	if ctx == nil {
		ctx = context.Background()
	}
	if err := e.d.DispatchSync(ctx, ev); err != nil {
		L.RaiseError("%v", err)
	}
	return 0
}

// print(...)
func (e *Engine) print(L *lua.LState) int {
	top := L.GetTop()
	parts := make([]string, 0, top)
	for i := 1; i <= top; i++ {
		parts = append(parts, L.ToStringMeta(L.Get(i)).String())
	}
	e.log.Info("%s", strings.Join(parts, "\t"))
	return 0
}
