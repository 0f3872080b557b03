// Package dispatch routes decoded RPC requests to the persistence and GIF
// provider gateways. It is the only place where gateway errors become wire
// errors and where HTTP status codes are chosen.
package dispatch

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/dom/gifbox/internal/auth"
	"github.com/dom/gifbox/internal/domain"
	"github.com/dom/gifbox/internal/metrics"
	"github.com/dom/gifbox/internal/provider"
	"github.com/dom/gifbox/internal/rpc"
	"github.com/dom/gifbox/internal/service"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Accounts is the user half of the persistence gateway.
type Accounts interface {
	CreateUser(ctx context.Context, handle, secret string) (*domain.User, error)
	Authenticate(ctx context.Context, handle, secret string) (*domain.User, error)
}

// Library is the saved-gif half of the persistence gateway.
type Library interface {
	SaveGif(ctx context.Context, userID uuid.UUID, input service.SaveGifInput) (*domain.SavedGif, error)
	ListSaved(ctx context.Context, userID uuid.UUID) ([]*domain.SavedGif, error)
	SetCategory(ctx context.Context, userID uuid.UUID, providerItemID, category string) (*domain.SavedGif, error)
}

type Dispatcher struct {
	accounts Accounts
	library  Library
	search   provider.Searcher
	tokens   *auth.Authority
	log      *zap.Logger
}

func New(accounts Accounts, library Library, search provider.Searcher, tokens *auth.Authority, log *zap.Logger) *Dispatcher {
	return &Dispatcher{
		accounts: accounts,
		library:  library,
		search:   search,
		tokens:   tokens,
		log:      log.Named("dispatch"),
	}
}

// Outcome is an encoded-ready response plus the HTTP status that carries it.
type Outcome struct {
	Response *rpc.Response
	Status   int
}

// Dispatch runs one call: decode, authenticate, authorize, execute. It never
// returns a nil response.
func (d *Dispatcher) Dispatch(ctx context.Context, body []byte, authorization string) Outcome {
	start := time.Now()
	resp := d.dispatch(ctx, body, authorization)
	elapsed := time.Since(start)

	outcome := "ok"
	if resp.Error != nil {
		outcome = string(resp.Error.Kind)
	}
	metrics.RecordRPC(string(resp.Method), outcome, elapsed)

	fields := []zap.Field{
		zap.String("method", string(resp.Method)),
		zap.String("outcome", outcome),
		zap.Duration("duration", elapsed),
	}
	switch {
	case resp.Error == nil:
		d.log.Debug("rpc call", fields...)
	case resp.Error.Kind == rpc.KindPersistUnavailable:
		d.log.Error("rpc call failed", append(fields, zap.String("error", resp.Error.Message))...)
	case resp.Error.Category == rpc.CategoryProvider:
		d.log.Warn("rpc call failed", append(fields, zap.String("error", resp.Error.Message))...)
	default:
		d.log.Info("rpc call rejected", append(fields, zap.String("error", resp.Error.Message))...)
	}

	return Outcome{Response: resp, Status: StatusFor(resp)}
}

func (d *Dispatcher) dispatch(ctx context.Context, body []byte, authorization string) *rpc.Response {
	req, err := rpc.Decode(body)
	if err != nil {
		return rpc.Failure(knownMethod(rpc.PeekMethod(body)), toRPCError(err, rpc.KindMalformedRequest))
	}
	method := req.Method()

	var claims *auth.Claims
	if !method.Public() {
		var rerr *rpc.Error
		if claims, rerr = d.authenticate(authorization); rerr != nil {
			return rpc.Failure(method, rerr)
		}
		if err := d.tokens.Authorize(claims, method.RequiredScope()); err != nil {
			return rpc.Failure(method, rpc.NewError(rpc.KindUnauthorized,
				"this token does not allow "+string(method)).WithReason(rpc.ReasonInsufficientScope))
		}
	}

	result, err := d.execute(ctx, req, claims)
	if err != nil {
		fallback := rpc.KindPersistUnavailable
		if method == rpc.MethodSearchGifs {
			fallback = rpc.KindProviderUnavailable
		}
		return rpc.Failure(method, toRPCError(err, fallback))
	}
	return rpc.Success(method, result)
}

// execute performs exactly one gateway operation. Every rpc.Request variant
// must have a case here.
func (d *Dispatcher) execute(ctx context.Context, req rpc.Request, claims *auth.Claims) (rpc.Result, error) {
	switch r := req.(type) {
	case rpc.Register:
		user, err := d.accounts.CreateUser(ctx, r.Handle, r.Secret)
		if err != nil {
			return nil, err
		}
		return d.session(user, rpc.AllScopes())

	case rpc.Login:
		user, err := d.accounts.Authenticate(ctx, r.Handle, r.Secret)
		if err != nil {
			return nil, err
		}
		scope := r.Scope
		if len(scope) == 0 {
			scope = rpc.AllScopes()
		}
		return d.session(user, scope)

	case rpc.SearchGifs:
		gifs, err := d.search.Search(ctx, r.Query, r.Page)
		if err != nil {
			return nil, err
		}
		if gifs == nil {
			gifs = []rpc.GifResult{}
		}
		return &rpc.SearchResults{Query: r.Query, Page: r.Page, Gifs: gifs}, nil

	case rpc.SaveGif:
		gif, err := d.library.SaveGif(ctx, claims.UserID(), service.SaveGifInput{
			ProviderItemID: r.ProviderItemID,
			Title:          r.Title,
			URL:            r.URL,
		})
		if err != nil {
			return nil, err
		}
		return &rpc.SavedGifResult{Gif: toSavedGif(gif)}, nil

	case rpc.ListSaved:
		gifs, err := d.library.ListSaved(ctx, claims.UserID())
		if err != nil {
			return nil, err
		}
		out := make([]rpc.SavedGif, 0, len(gifs))
		for _, g := range gifs {
			out = append(out, toSavedGif(g))
		}
		return &rpc.SavedList{Gifs: out}, nil

	case rpc.SetCategory:
		gif, err := d.library.SetCategory(ctx, claims.UserID(), r.ProviderItemID, r.Category)
		if err != nil {
			return nil, err
		}
		return &rpc.SavedGifResult{Gif: toSavedGif(gif)}, nil
	}

	return nil, rpc.Malformed("method %s is not supported", req.Method())
}

func (d *Dispatcher) authenticate(authorization string) (*auth.Claims, *rpc.Error) {
	if authorization == "" {
		return nil, rpc.NewError(rpc.KindUnauthenticated, "a bearer token is required").
			WithReason(rpc.ReasonMissingToken)
	}
	token, ok := auth.BearerToken(authorization)
	if !ok {
		return nil, rpc.NewError(rpc.KindUnauthenticated, "authorization header must be Bearer <token>").
			WithReason(rpc.ReasonMalformedToken)
	}

	claims, err := d.tokens.Validate(token)
	switch {
	case err == nil:
		return claims, nil
	case errors.Is(err, auth.ErrExpiredToken):
		return nil, rpc.NewError(rpc.KindUnauthenticated, "session has expired, log in again").
			WithReason(rpc.ReasonExpiredToken)
	case errors.Is(err, auth.ErrInvalidSignature):
		return nil, rpc.NewError(rpc.KindUnauthenticated, "token signature is invalid").
			WithReason(rpc.ReasonInvalidSignature)
	default:
		return nil, rpc.NewError(rpc.KindUnauthenticated, "token is malformed").
			WithReason(rpc.ReasonMalformedToken)
	}
}

func (d *Dispatcher) session(user *domain.User, scope []rpc.Scope) (rpc.Result, error) {
	token, err := d.tokens.Issue(user.ID, user.Handle, scope)
	if err != nil {
		return nil, err
	}
	return &rpc.Session{
		Token:     token.Value,
		ExpiresAt: token.ExpiresAt.UTC(),
		Scope:     token.Scope,
		User:      rpc.Account{ID: user.ID.String(), Handle: user.Handle},
	}, nil
}

// toRPCError maps gateway errors onto wire errors. fallback is used for
// errors that carry no known sentinel.
func toRPCError(err error, fallback rpc.ErrorKind) *rpc.Error {
	var rerr *rpc.Error
	switch {
	case errors.As(err, &rerr):
		return rerr
	case errors.Is(err, domain.ErrDuplicateHandle):
		return rpc.NewError(rpc.KindDuplicateHandle, "that handle is already taken")
	case errors.Is(err, domain.ErrInvalidCredentials):
		return rpc.NewError(rpc.KindInvalidCredentials, "wrong handle or secret")
	case errors.Is(err, domain.ErrGifNotFound):
		return rpc.NewError(rpc.KindNotFound, "that gif is not in your library")
	case errors.Is(err, domain.ErrPersistUnavailable):
		return rpc.NewError(rpc.KindPersistUnavailable, "storage is temporarily unavailable")
	case errors.Is(err, provider.ErrProviderRateLimited):
		return rpc.NewError(rpc.KindProviderRateLimited, "the gif search service is busy, try again shortly")
	case errors.Is(err, provider.ErrProviderMalformedResponse):
		return rpc.NewError(rpc.KindProviderMalformedResponse, "the gif search service returned an unreadable response")
	case errors.Is(err, provider.ErrProviderUnavailable):
		return rpc.NewError(rpc.KindProviderUnavailable, "the gif search service is temporarily down")
	}

	if fallback == rpc.KindProviderUnavailable {
		return rpc.NewError(rpc.KindProviderUnavailable, "the gif search service is temporarily down")
	}
	return rpc.NewError(fallback, "storage is temporarily unavailable")
}

// StatusFor picks the HTTP status for a response. Transport failures and
// storage outages get their own status; every other typed error travels in
// the body of a 200.
func StatusFor(resp *rpc.Response) int {
	if resp == nil || resp.Error == nil {
		return http.StatusOK
	}
	switch resp.Error.Kind {
	case rpc.KindMalformedRequest:
		return http.StatusBadRequest
	case rpc.KindUnauthenticated:
		return http.StatusUnauthorized
	case rpc.KindUnauthorized:
		return http.StatusForbidden
	case rpc.KindPersistUnavailable:
		return http.StatusServiceUnavailable
	}
	return http.StatusOK
}

func toSavedGif(g *domain.SavedGif) rpc.SavedGif {
	return rpc.SavedGif{
		ProviderItemID: g.ProviderItemID,
		Title:          g.Title,
		URL:            g.URL,
		Category:       g.Category,
		SavedAt:        g.SavedAt.UTC(),
	}
}

func knownMethod(m rpc.Method) rpc.Method {
	for _, known := range rpc.Methods() {
		if m == known {
			return m
		}
	}
	return ""
}
