// Package script registers event handlers written in Lua.
//
// A script runs once at load time and registers handlers with reg_event.
// The globals available to scripts are:
//
//	reg_event(id, fn [, opts])   register fn(db, ev) for id
//	dispatch(id, ...)            queue an event
//	dispatch_sync(id, ...)       handle an event now (rejected inside handlers)
//	print(...)                   log through the engine logger
//
// fn receives the store as db and the event as an array {id, args...}.
// db supports db:get(path), db:set(path, value), db:delete(path) and
// db:json(). opts may set debug = true and path = "a.b" to wrap the
// handler with the Debug and Path middleware.
//
// Only the base, table, string and math libraries are opened.
package script
