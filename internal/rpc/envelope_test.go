package rpc_test

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/dom/gifbox/internal/rpc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecode_RoundTrip(t *testing.T) {
	tests := []struct {
		name string
		req  rpc.Request
	}{
		{name: "register", req: rpc.Register{Handle: "alice", Secret: "secret1"}},
		{name: "login", req: rpc.Login{Handle: "alice", Secret: "secret1"}},
		{name: "login with narrowed scope", req: rpc.Login{Handle: "alice", Secret: "secret1", Scope: []rpc.Scope{rpc.ScopeRead}}},
		{name: "search first page", req: rpc.SearchGifs{Query: "cats", Page: 0}},
		{name: "search later page", req: rpc.SearchGifs{Query: "dancing dogs", Page: 7}},
		{name: "save gif", req: rpc.SaveGif{ProviderItemID: "xyz", Title: "Cat", URL: "https://media.giphy.com/xyz.gif"}},
		{name: "save gif without title", req: rpc.SaveGif{ProviderItemID: "xyz", URL: "https://media.giphy.com/xyz.gif"}},
		{name: "list saved", req: rpc.ListSaved{}},
		{name: "set category", req: rpc.SetCategory{ProviderItemID: "xyz", Category: "reactions"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := rpc.Encode(tt.req)
			require.NoError(t, err)

			got, err := rpc.Decode(data)
			require.NoError(t, err)
			assert.Equal(t, tt.req, got)
			assert.Equal(t, tt.req.Method(), rpc.PeekMethod(data))
		})
	}
}

func TestDecode_IgnoresUnknownFields(t *testing.T) {
	body := `{"v":1,"method":"search_gifs","trace":"abc","params":{"query":"cats","page":2,"lang":"en"}}`

	got, err := rpc.Decode([]byte(body))
	require.NoError(t, err)
	assert.Equal(t, rpc.SearchGifs{Query: "cats", Page: 2}, got)
}

func TestDecode_DefaultsOptionalFields(t *testing.T) {
	got, err := rpc.Decode([]byte(`{"v":1,"method":"search_gifs","params":{"query":"cats"}}`))
	require.NoError(t, err)
	assert.Equal(t, rpc.SearchGifs{Query: "cats"}, got)

	got, err = rpc.Decode([]byte(`{"v":1,"method":"list_saved"}`))
	require.NoError(t, err)
	assert.Equal(t, rpc.ListSaved{}, got)
}

func TestDecode_Malformed(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "empty body", body: ``},
		{name: "not json", body: `hello`},
		{name: "json array", body: `[1,2,3]`},
		{name: "missing version", body: `{"method":"list_saved"}`},
		{name: "future version", body: `{"v":2,"method":"list_saved"}`},
		{name: "missing method", body: `{"v":1,"params":{}}`},
		{name: "unknown method", body: `{"v":1,"method":"delete_everything"}`},
		{name: "params not object", body: `{"v":1,"method":"search_gifs","params":"cats"}`},
		{name: "missing query", body: `{"v":1,"method":"search_gifs","params":{"page":1}}`},
		{name: "blank query", body: `{"v":1,"method":"search_gifs","params":{"query":"   "}}`},
		{name: "negative page", body: `{"v":1,"method":"search_gifs","params":{"query":"cats","page":-1}}`},
		{name: "page wrong type", body: `{"v":1,"method":"search_gifs","params":{"query":"cats","page":"one"}}`},
		{name: "missing provider item id", body: `{"v":1,"method":"save_gif","params":{"url":"https://x/y.gif"}}`},
		{name: "missing url", body: `{"v":1,"method":"save_gif","params":{"providerItemId":"xyz"}}`},
		{name: "non http url", body: `{"v":1,"method":"save_gif","params":{"providerItemId":"xyz","url":"javascript:alert(1)"}}`},
		{name: "missing secret", body: `{"v":1,"method":"login","params":{"handle":"alice"}}`},
		{name: "unknown scope", body: `{"v":1,"method":"login","params":{"handle":"alice","secret":"secret1","scope":["admin"]}}`},
		{name: "short handle", body: `{"v":1,"method":"register","params":{"handle":"al","secret":"secret1"}}`},
		{name: "short secret", body: `{"v":1,"method":"register","params":{"handle":"alice","secret":"abc"}}`},
		{name: "missing category", body: `{"v":1,"method":"set_category","params":{"providerItemId":"xyz"}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := rpc.Decode([]byte(tt.body))
			require.Error(t, err)
			assert.Nil(t, got)
			assert.Equal(t, rpc.KindMalformedRequest, rpc.KindOf(err))
		})
	}
}

func TestDecode_Limits(t *testing.T) {
	longID := strings.Repeat("a", rpc.MaxProviderItemIDLength+1)

	tests := []struct {
		name    string
		body    string
		wantErr bool
	}{
		{name: "last page", body: fmt.Sprintf(`{"v":1,"method":"search_gifs","params":{"query":"cats","page":%d}}`, rpc.MaxSearchPage)},
		{name: "page past provider offset limit", body: fmt.Sprintf(`{"v":1,"method":"search_gifs","params":{"query":"cats","page":%d}}`, rpc.MaxSearchPage+1), wantErr: true},
		{name: "page that would overflow offset", body: `{"v":1,"method":"search_gifs","params":{"query":"cats","page":368934881474191033}}`, wantErr: true},
		{name: "longest provider item id", body: fmt.Sprintf(`{"v":1,"method":"save_gif","params":{"providerItemId":%q,"url":"https://x/y.gif"}}`, longID[1:])},
		{name: "provider item id too long to save", body: fmt.Sprintf(`{"v":1,"method":"save_gif","params":{"providerItemId":%q,"url":"https://x/y.gif"}}`, longID), wantErr: true},
		{name: "provider item id too long to categorize", body: fmt.Sprintf(`{"v":1,"method":"set_category","params":{"providerItemId":%q,"category":"fun"}}`, longID), wantErr: true},
		{name: "padded handle at limit", body: fmt.Sprintf(`{"v":1,"method":"register","params":{"handle":"  %s  ","secret":"secret1"}}`, strings.Repeat("H", rpc.MaxHandleLength))},
		{name: "handle over limit", body: fmt.Sprintf(`{"v":1,"method":"register","params":{"handle":%q,"secret":"secret1"}}`, strings.Repeat("h", rpc.MaxHandleLength+1)), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := rpc.Decode([]byte(tt.body))
			if tt.wantErr {
				assert.Equal(t, rpc.KindMalformedRequest, rpc.KindOf(err))
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestNormalizeHandle_KeepsCharacterCount(t *testing.T) {
	for _, in := range []string{"Alice", "  BOB  ", "İstanbul", "ΣΊΣΥΦΟΣ"} {
		trimmed := strings.TrimSpace(in)
		assert.Equal(t, len([]rune(trimmed)), len([]rune(rpc.NormalizeHandle(in))), "input %q", in)
	}
}

func TestEncode_RejectsInvalidRequest(t *testing.T) {
	_, err := rpc.Encode(rpc.SearchGifs{Query: ""})
	assert.Equal(t, rpc.KindMalformedRequest, rpc.KindOf(err))

	_, err = rpc.Encode(nil)
	assert.Equal(t, rpc.KindMalformedRequest, rpc.KindOf(err))
}

func TestResponse_RoundTrip(t *testing.T) {
	savedAt := time.Date(2024, 3, 9, 12, 30, 0, 0, time.UTC)
	category := "reactions"

	tests := []struct {
		name string
		resp *rpc.Response
	}{
		{
			name: "session",
			resp: rpc.Success(rpc.MethodLogin, &rpc.Session{
				Token:     "a.b.c",
				ExpiresAt: savedAt.Add(24 * time.Hour),
				Scope:     rpc.AllScopes(),
				User:      rpc.Account{ID: "0f8fad5b-d9cb-469f-a165-70867728950e", Handle: "alice"},
			}),
		},
		{
			name: "search results",
			resp: rpc.Success(rpc.MethodSearchGifs, &rpc.SearchResults{
				Query: "cats",
				Page:  1,
				Gifs:  []rpc.GifResult{{ProviderItemID: "xyz", Title: "Cat", URL: "https://media.giphy.com/xyz.gif"}},
			}),
		},
		{
			name: "empty saved list",
			resp: rpc.Success(rpc.MethodListSaved, &rpc.SavedList{Gifs: []rpc.SavedGif{}}),
		},
		{
			name: "saved gif with category",
			resp: rpc.Success(rpc.MethodSetCategory, &rpc.SavedGifResult{Gif: rpc.SavedGif{
				ProviderItemID: "xyz",
				Title:          "Cat",
				URL:            "https://media.giphy.com/xyz.gif",
				Category:       &category,
				SavedAt:        savedAt,
			}}),
		},
		{
			name: "domain error",
			resp: rpc.Failure(rpc.MethodRegister, rpc.NewError(rpc.KindDuplicateHandle, "handle already taken")),
		},
		{
			name: "transport error without method",
			resp: rpc.Failure("", rpc.Malformed("request body is empty")),
		},
		{
			name: "unauthenticated with reason",
			resp: rpc.Failure(rpc.MethodSaveGif, rpc.NewError(rpc.KindUnauthenticated, "token expired").WithReason(rpc.ReasonExpiredToken)),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := rpc.EncodeResponse(tt.resp)
			require.NoError(t, err)

			got, err := rpc.DecodeResponse(data)
			require.NoError(t, err)
			assert.Equal(t, tt.resp, got)
		})
	}
}

func TestDecodeResponse_Malformed(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "not json", body: `<html>`},
		{name: "neither result nor error", body: `{"v":1,"method":"list_saved"}`},
		{name: "both result and error", body: `{"v":1,"method":"list_saved","result":{"gifs":[]},"error":{"kind":"not_found"}}`},
		{name: "result for unknown method", body: `{"v":1,"method":"nope","result":{}}`},
		{name: "wrong version", body: `{"v":3,"method":"list_saved","result":{"gifs":[]}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := rpc.DecodeResponse([]byte(tt.body))
			assert.Equal(t, rpc.KindMalformedRequest, rpc.KindOf(err))
		})
	}
}

func TestResultFor_CoversEveryMethod(t *testing.T) {
	for _, m := range rpc.Methods() {
		assert.NotNil(t, rpc.ResultFor(m), "method %s has no result shape", m)
	}
	assert.Nil(t, rpc.ResultFor("unknown"))
}

func TestMethod_RequiredScope(t *testing.T) {
	assert.True(t, rpc.MethodLogin.Public())
	assert.True(t, rpc.MethodRegister.Public())
	assert.Equal(t, rpc.ScopeWrite, rpc.MethodSaveGif.RequiredScope())
	assert.Equal(t, rpc.ScopeWrite, rpc.MethodSetCategory.RequiredScope())
	assert.Equal(t, rpc.ScopeRead, rpc.MethodSearchGifs.RequiredScope())
	assert.Equal(t, rpc.ScopeRead, rpc.MethodListSaved.RequiredScope())

	for _, m := range rpc.Methods() {
		if !m.Public() {
			assert.NotEmpty(t, m.RequiredScope(), "method %s needs a scope", m)
		}
	}
}

func TestErrorKind_Category(t *testing.T) {
	assert.Equal(t, rpc.CategoryTransport, rpc.KindUnauthenticated.Category())
	assert.Equal(t, rpc.CategoryDomain, rpc.KindInvalidCredentials.Category())
	assert.Equal(t, rpc.CategoryProvider, rpc.KindProviderRateLimited.Category())
	assert.True(t, rpc.KindPersistUnavailable.Retryable())
	assert.False(t, rpc.KindDuplicateHandle.Retryable())

	err := rpc.NewError(rpc.KindNotFound, "gif not saved")
	assert.ErrorIs(t, err, rpc.NewError(rpc.KindNotFound, ""))
	assert.NotErrorIs(t, err, rpc.NewError(rpc.KindDuplicateHandle, ""))
}
