//go:build js && wasm

// Command wasm exposes the gifbox client to browser JavaScript as the global
// object gifbox. Every method returns a Promise resolving to the decoded
// result, or rejecting with {kind, category, message, reason, retryable}.
//
//	gifbox.register(handle, secret)
//	gifbox.login(handle, secret, scope?)       // scope: e.g. ["read"]; omitted means all
//	gifbox.searchGifs(query, page?)
//	gifbox.saveGif({providerItemId, title, url}) // a search result as-is
//	gifbox.listSaved()
//	gifbox.setCategory(providerItemId, category)
//	gifbox.setToken(token), gifbox.token()
package main

import (
	"context"
	"encoding/json"
	"errors"
	"syscall/js"

	"github.com/dom/gifbox/internal/client"
	"github.com/dom/gifbox/internal/rpc"
)

func main() {
	origin := js.Global().Get("location").Get("origin").String()
	c := client.New(origin)

	api := map[string]interface{}{
		"register": promised(func(args []js.Value) (interface{}, error) {
			return c.Register(context.Background(), arg(args, 0), arg(args, 1))
		}),
		"login": promised(func(args []js.Value) (interface{}, error) {
			return c.Login(context.Background(), arg(args, 0), arg(args, 1), scopesArg(args, 2)...)
		}),
		"searchGifs": promised(func(args []js.Value) (interface{}, error) {
			page := 0
			if len(args) > 1 && args[1].Type() == js.TypeNumber {
				page = args[1].Int()
			}
			return c.SearchGifs(context.Background(), arg(args, 0), page)
		}),
		"saveGif": promised(func(args []js.Value) (interface{}, error) {
			gif, err := gifArg(args, 0)
			if err != nil {
				return nil, err
			}
			return c.SaveGif(context.Background(), gif)
		}),
		"listSaved": promised(func(args []js.Value) (interface{}, error) {
			return c.ListSaved(context.Background())
		}),
		"setCategory": promised(func(args []js.Value) (interface{}, error) {
			return c.SetCategory(context.Background(), arg(args, 0), arg(args, 1))
		}),
		"setToken": js.FuncOf(func(this js.Value, args []js.Value) interface{} {
			c.SetToken(arg(args, 0))
			return nil
		}),
		"token": js.FuncOf(func(this js.Value, args []js.Value) interface{} {
			return c.Token()
		}),
	}
	js.Global().Set("gifbox", js.ValueOf(api))

	select {}
}

func arg(args []js.Value, i int) string {
	if i >= len(args) || args[i].Type() != js.TypeString {
		return ""
	}
	return args[i].String()
}

func scopesArg(args []js.Value, i int) []rpc.Scope {
	if i >= len(args) || args[i].IsUndefined() || args[i].IsNull() {
		return nil
	}
	v := args[i]
	if v.Type() == js.TypeString {
		return parseScopes([]string{v.String()})
	}
	names := make([]string, 0, v.Length())
	for j := 0; j < v.Length(); j++ {
		names = append(names, v.Index(j).String())
	}
	return parseScopes(names)
}

func gifArg(args []js.Value, i int) (rpc.GifResult, error) {
	if i >= len(args) || args[i].Type() != js.TypeObject {
		return rpc.GifResult{}, errGifArg
	}
	return decodeGif(js.Global().Get("JSON").Call("stringify", args[i]).String())
}

// promised runs fn off the event loop, since net/http blocks on fetch, and
// settles a Promise with its JSON-converted outcome.
func promised(fn func(args []js.Value) (interface{}, error)) js.Func {
	return js.FuncOf(func(this js.Value, args []js.Value) interface{} {
		executor := js.FuncOf(func(_ js.Value, settle []js.Value) interface{} {
			resolve, reject := settle[0], settle[1]
			go func() {
				result, err := fn(args)
				if err != nil {
					reject.Invoke(toJS(errorPayload(err)))
					return
				}
				resolve.Invoke(toJS(result))
			}()
			return nil
		})
		defer executor.Release()
		return js.Global().Get("Promise").New(executor)
	})
}

func errorPayload(err error) interface{} {
	var rerr *rpc.Error
	if errors.As(err, &rerr) {
		return rerr
	}
	return map[string]interface{}{
		"kind":      "transport",
		"message":   err.Error(),
		"retryable": errors.Is(err, client.ErrTransport),
	}
}

func toJS(v interface{}) js.Value {
	data, err := json.Marshal(v)
	if err != nil {
		return js.ValueOf(err.Error())
	}
	return js.Global().Get("JSON").Call("parse", string(data))
}
