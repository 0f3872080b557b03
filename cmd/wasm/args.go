package main

import (
	"encoding/json"

	"github.com/dom/gifbox/internal/rpc"
)

var errGifArg = rpc.Malformed("saveGif expects a {providerItemId, title, url} object")

// decodeGif reads the JSON form of a search result passed back from the page.
func decodeGif(raw string) (rpc.GifResult, error) {
	var gif rpc.GifResult
	if err := json.Unmarshal([]byte(raw), &gif); err != nil {
		return rpc.GifResult{}, errGifArg
	}
	if gif.ProviderItemID == "" && gif.URL == "" {
		return rpc.GifResult{}, errGifArg
	}
	return gif, nil
}

// parseScopes keeps unknown names so the server rejects them as malformed
// instead of silently widening the token.
func parseScopes(names []string) []rpc.Scope {
	if len(names) == 0 {
		return nil
	}
	out := make([]rpc.Scope, 0, len(names))
	for _, n := range names {
		out = append(out, rpc.Scope(n))
	}
	return out
}
