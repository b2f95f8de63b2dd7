// Package auth owns the credential lifecycle for the remote feature service.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"golang.org/x/oauth2"

	"github.com/mohammed-shakir/wbd-map/internal/catalog"
	"github.com/mohammed-shakir/wbd-map/internal/core/observability"
)

var (
	ErrNoCredentials       = errors.New("no cached credentials")
	ErrCredentialsExpired  = errors.New("cached credentials expired")
	ErrCredentialsRejected = errors.New("credentials rejected by service")
)

// IsCredentialError reports whether err is recoverable by re-authenticating.
func IsCredentialError(err error) bool {
	return errors.Is(err, ErrNoCredentials) ||
		errors.Is(err, ErrCredentialsExpired) ||
		errors.Is(err, ErrCredentialsRejected)
}

// Verifier checks an authorised client against the service.
type Verifier interface {
	Verify(ctx context.Context, hc *http.Client) error
}

type Session struct {
	conf     *oauth2.Config
	store    TokenStore
	verifier Verifier
	flow     Authenticator
	base     *http.Client
	logger   *slog.Logger
}

type Options struct {
	Config   *oauth2.Config
	Store    TokenStore
	Verifier Verifier
	Flow     Authenticator
	// Base carries the transport and timeout for authorised requests.
	Base   *http.Client
	Logger *slog.Logger
}

func NewSession(o Options) (*Session, error) {
	if o.Config == nil || o.Store == nil || o.Verifier == nil || o.Flow == nil {
		return nil, errors.New("auth: config, store, verifier and flow are required")
	}
	if o.Base == nil {
		o.Base = http.DefaultClient
	}
	if o.Logger == nil {
		o.Logger = slog.New(slog.DiscardHandler)
	}
	return &Session{
		conf:     o.Config,
		store:    o.Store,
		verifier: o.Verifier,
		flow:     o.Flow,
		base:     o.Base,
		logger:   o.Logger,
	}, nil
}

// Init initialises the session, running the interactive flow exactly once
// when the cached credentials are missing, expired or rejected.
func (s *Session) Init(ctx context.Context) (*http.Client, error) {
	hc, err := s.Initialize(ctx)
	if err == nil {
		return hc, nil
	}
	if !IsCredentialError(err) {
		return nil, err
	}
	s.logger.WarnContext(ctx, "credentials unavailable; starting interactive authentication", "err", err)

	if err := s.Authenticate(ctx); err != nil {
		return nil, err
	}
	hc, err = s.Initialize(ctx)
	if err != nil {
		return nil, fmt.Errorf("initialize after authentication: %w", err)
	}
	return hc, nil
}

// Initialize builds an authorised client from cached credentials and checks
// it against the service.
func (s *Session) Initialize(ctx context.Context) (hc *http.Client, err error) {
	defer func() { observability.IncAuthAttempt("initialize", err) }()

	tok, err := s.store.Load()
	if err != nil {
		return nil, err
	}
	if !tok.Valid() && tok.RefreshToken == "" {
		return nil, fmt.Errorf("%w: expired at %s", ErrCredentialsExpired, tok.Expiry)
	}

	src := s.conf.TokenSource(context.WithValue(ctx, oauth2.HTTPClient, s.base), tok)
	fresh, err := src.Token()
	if err != nil {
		return nil, fmt.Errorf("%w: refresh: %w", ErrCredentialsExpired, err)
	}
	if fresh.AccessToken != tok.AccessToken {
		if err := s.store.Save(fresh); err != nil {
			s.logger.WarnContext(ctx, "could not persist refreshed token", "err", err)
		}
	}

	hc = &http.Client{
		Transport: &oauth2.Transport{Source: oauth2.ReuseTokenSource(fresh, src), Base: s.base.Transport},
		Timeout:   s.base.Timeout,
	}
	if err := s.verifier.Verify(ctx, hc); err != nil {
		if errors.Is(err, catalog.ErrUnauthorized) {
			return nil, fmt.Errorf("%w: %w", ErrCredentialsRejected, err)
		}
		return nil, fmt.Errorf("initialize session: %w", err)
	}
	s.logger.DebugContext(ctx, "session initialised")
	return hc, nil
}

// Authenticate runs the interactive flow and persists the result.
func (s *Session) Authenticate(ctx context.Context) (err error) {
	defer func() { observability.IncAuthAttempt("authenticate", err) }()

	tok, err := s.flow.Authenticate(ctx)
	if err != nil {
		return fmt.Errorf("authenticate: %w", err)
	}
	if err := s.store.Save(tok); err != nil {
		return fmt.Errorf("authenticate: %w", err)
	}
	s.logger.InfoContext(ctx, "credentials stored")
	return nil
}
