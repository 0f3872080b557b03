package main

import (
	"testing"

	"github.com/dom/gifbox/internal/rpc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeGif(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    rpc.GifResult
		wantErr bool
	}{
		{
			name: "search result object",
			raw:  `{"providerItemId":"abc","title":"Cat","url":"https://m/abc.gif"}`,
			want: rpc.GifResult{ProviderItemID: "abc", Title: "Cat", URL: "https://m/abc.gif"},
		},
		{
			name: "field order does not matter",
			raw:  `{"url":"https://m/abc.gif","providerItemId":"abc"}`,
			want: rpc.GifResult{ProviderItemID: "abc", URL: "https://m/abc.gif"},
		},
		{name: "positional array", raw: `["abc","https://m/abc.gif","Cat"]`, wantErr: true},
		{name: "empty object", raw: `{}`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := decodeGif(tt.raw)
			if tt.wantErr {
				assert.Equal(t, rpc.KindMalformedRequest, rpc.KindOf(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseScopes(t *testing.T) {
	assert.Nil(t, parseScopes(nil))
	assert.Equal(t, []rpc.Scope{rpc.ScopeRead}, parseScopes([]string{"read"}))
	assert.Equal(t, []rpc.Scope{rpc.ScopeRead, rpc.Scope("admin")}, parseScopes([]string{"read", "admin"}))
}
