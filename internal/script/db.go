package script

import (
	"github.com/tidwall/gjson"
	lua "github.com/yuin/gopher-lua"

	"github.com/dshills/keyframe/internal/store"
)

const dbTypeName = "keyframe.db"

func registerDBType(L *lua.LState) {
	mt := L.NewTypeMetatable(dbTypeName)
	L.SetField(mt, "__index", L.SetFuncs(L.NewTable(), map[string]lua.LGFunction{
		"get":    dbGet,
		"set":    dbSet,
		"delete": dbDelete,
		"json":   dbJSON,
	}))
}

func newDB(L *lua.LState, doc store.Document) *lua.LUserData {
	ud := L.NewUserData()
	ud.Value = doc
	L.SetMetatable(ud, L.GetTypeMetatable(dbTypeName))
	return ud
}

func checkDB(L *lua.LState) store.Document {
	ud := L.CheckUserData(1)
	if doc, ok := ud.Value.(store.Document); ok {
		return doc
	}
	L.ArgError(1, "db expected")
	return nil
}

// rawJSON returns the whole document, or the whole view for a Sub.
func rawJSON(doc store.Document) string {
	if d, ok := doc.(*store.Doc); ok {
		return d.String()
	}
	return doc.Get("").Raw
}

// db:get([path]) returns the decoded value at path, or the whole document.
func dbGet(L *lua.LState) int {
	doc := checkDB(L)
	path := L.OptString(2, "")

	var res gjson.Result
	if path == "" {
		res = gjson.Parse(rawJSON(doc))
	} else {
		res = doc.Get(path)
	}
	L.Push(toLua(L, res.Value()))
	return 1
}

// db:set(path, value)
func dbSet(L *lua.LState) int {
	doc := checkDB(L)
	path := L.CheckString(2)
	if err := doc.Set(path, toGo(L.Get(3))); err != nil {
		L.RaiseError("db:set %s: %v", path, err)
	}
	return 0
}

// db:delete(path)
func dbDelete(L *lua.LState) int {
	doc := checkDB(L)
	path := L.CheckString(2)
	if err := doc.Delete(path); err != nil {
		L.RaiseError("db:delete %s: %v", path, err)
	}
	return 0
}

// db:json() returns the raw JSON text.
func dbJSON(L *lua.LState) int {
	L.Push(lua.LString(rawJSON(checkDB(L))))
	return 1
}
