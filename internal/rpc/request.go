// Package rpc defines the request and response envelopes exchanged between
// the gifbox server and its clients. Server and clients import this package
// unchanged; it is the only definition of the wire format.
package rpc

import (
	"strings"
	"unicode/utf8"
)

// Version is written into every envelope. Decoders reject other versions.
const Version = 1

type Method string

const (
	MethodRegister    Method = "register"
	MethodLogin       Method = "login"
	MethodSearchGifs  Method = "search_gifs"
	MethodSaveGif     Method = "save_gif"
	MethodListSaved   Method = "list_saved"
	MethodSetCategory Method = "set_category"
)

// Methods lists every method in the closed request set.
func Methods() []Method {
	return []Method{
		MethodRegister,
		MethodLogin,
		MethodSearchGifs,
		MethodSaveGif,
		MethodListSaved,
		MethodSetCategory,
	}
}

// Public reports whether a method may be called without a bearer token.
func (m Method) Public() bool {
	return m == MethodRegister || m == MethodLogin
}

// RequiredScope is the capability a token must carry to call m. Public
// methods return "".
func (m Method) RequiredScope() Scope {
	switch m {
	case MethodSearchGifs, MethodListSaved:
		return ScopeRead
	case MethodSaveGif, MethodSetCategory:
		return ScopeWrite
	}
	return ""
}

type Scope string

const (
	ScopeRead  Scope = "read"
	ScopeWrite Scope = "write"
)

// AllScopes is the full capability set granted on login unless narrowed.
func AllScopes() []Scope {
	return []Scope{ScopeRead, ScopeWrite}
}

func (s Scope) Valid() bool {
	return s == ScopeRead || s == ScopeWrite
}

const (
	MinHandleLength = 3
	MaxHandleLength = 64
	MinSecretLength = 6
	// bcrypt ignores everything past 72 bytes.
	MaxSecretLength = 72
	MaxQueryLength  = 50
	MaxCategoryLen  = 64

	MaxProviderItemIDLength = 128
	// Giphy refuses offsets past 4999; at the default 25 per page the last
	// reachable page is 199.
	MaxSearchOffset = 4999
	MaxSearchPage   = 199
)

// Request is implemented by every request variant and nothing else.
type Request interface {
	Method() Method
	validate() error
}

type Register struct {
	Handle string `json:"handle"`
	Secret string `json:"secret"`
}

type Login struct {
	Handle string `json:"handle"`
	Secret string `json:"secret"`
	// Scope narrows the issued token. Empty means every scope.
	Scope []Scope `json:"scope,omitempty"`
}

type SearchGifs struct {
	Query string `json:"query"`
	Page  int    `json:"page"`
}

type SaveGif struct {
	ProviderItemID string `json:"providerItemId"`
	Title          string `json:"title"`
	URL            string `json:"url"`
}

type ListSaved struct{}

type SetCategory struct {
	ProviderItemID string `json:"providerItemId"`
	Category       string `json:"category"`
}

func (Register) Method() Method    { return MethodRegister }
func (Login) Method() Method       { return MethodLogin }
func (SearchGifs) Method() Method  { return MethodSearchGifs }
func (SaveGif) Method() Method     { return MethodSaveGif }
func (ListSaved) Method() Method   { return MethodListSaved }
func (SetCategory) Method() Method { return MethodSetCategory }

func (r Register) validate() error {
	if err := validateHandle(r.Handle); err != nil {
		return err
	}
	return validateSecret(r.Secret)
}

func (r Login) validate() error {
	if strings.TrimSpace(r.Handle) == "" {
		return Malformed("handle is required")
	}
	if r.Secret == "" {
		return Malformed("secret is required")
	}
	for _, s := range r.Scope {
		if !s.Valid() {
			return Malformed("unknown scope %q", s)
		}
	}
	return nil
}

func (r SearchGifs) validate() error {
	q := strings.TrimSpace(r.Query)
	if q == "" {
		return Malformed("query is required")
	}
	if utf8.RuneCountInString(q) > MaxQueryLength {
		return Malformed("query must be at most %d characters", MaxQueryLength)
	}
	if r.Page < 0 {
		return Malformed("page must not be negative")
	}
	if r.Page > MaxSearchPage {
		return Malformed("page must be at most %d", MaxSearchPage)
	}
	return nil
}

func (r SaveGif) validate() error {
	if err := validateProviderItemID(r.ProviderItemID); err != nil {
		return err
	}
	if strings.TrimSpace(r.URL) == "" {
		return Malformed("url is required")
	}
	if !strings.HasPrefix(r.URL, "https://") && !strings.HasPrefix(r.URL, "http://") {
		return Malformed("url must be an http(s) URL")
	}
	return nil
}

func (ListSaved) validate() error { return nil }

func (r SetCategory) validate() error {
	if err := validateProviderItemID(r.ProviderItemID); err != nil {
		return err
	}
	c := strings.TrimSpace(r.Category)
	if c == "" {
		return Malformed("category is required")
	}
	if utf8.RuneCountInString(c) > MaxCategoryLen {
		return Malformed("category must be at most %d characters", MaxCategoryLen)
	}
	return nil
}

// NormalizeHandle is the stored form of a handle. Length limits apply to it,
// since lower-casing can grow a string.
func NormalizeHandle(handle string) string {
	return strings.ToLower(strings.TrimSpace(handle))
}

func validateProviderItemID(id string) error {
	if strings.TrimSpace(id) == "" {
		return Malformed("providerItemId is required")
	}
	if utf8.RuneCountInString(id) > MaxProviderItemIDLength {
		return Malformed("providerItemId must be at most %d characters", MaxProviderItemIDLength)
	}
	return nil
}

func validateHandle(handle string) error {
	n := utf8.RuneCountInString(NormalizeHandle(handle))
	if n == 0 {
		return Malformed("handle is required")
	}
	if n < MinHandleLength || n > MaxHandleLength {
		return Malformed("handle must be between %d and %d characters", MinHandleLength, MaxHandleLength)
	}
	return nil
}

func validateSecret(secret string) error {
	if secret == "" {
		return Malformed("secret is required")
	}
	if len(secret) < MinSecretLength || len(secret) > MaxSecretLength {
		return Malformed("secret must be between %d and %d bytes", MinSecretLength, MaxSecretLength)
	}
	return nil
}
