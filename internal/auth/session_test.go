package auth

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"golang.org/x/oauth2"

	"github.com/mohammed-shakir/wbd-map/internal/catalog"
)

type memStore struct {
	tok   *oauth2.Token
	saves int
}

func (m *memStore) Load() (*oauth2.Token, error) {
	if m.tok == nil {
		return nil, ErrNoCredentials
	}
	cp := *m.tok
	return &cp, nil
}

func (m *memStore) Save(tok *oauth2.Token) error {
	cp := *tok
	m.tok = &cp
	m.saves++
	return nil
}

// accepts requests whose bearer token is in good
type tokenVerifier struct {
	good  map[string]bool
	err   error
	calls int
}

func (v *tokenVerifier) Verify(_ context.Context, hc *http.Client) error {
	v.calls++
	if v.err != nil {
		return v.err
	}
	tr, ok := hc.Transport.(*oauth2.Transport)
	if !ok {
		return fmt.Errorf("transport is %T", hc.Transport)
	}
	tok, err := tr.Source.Token()
	if err != nil {
		return err
	}
	if !v.good[tok.AccessToken] {
		return fmt.Errorf("%w: status 401", catalog.ErrUnauthorized)
	}
	return nil
}

type countingFlow struct {
	tok   *oauth2.Token
	err   error
	calls int
}

func (f *countingFlow) Authenticate(context.Context) (*oauth2.Token, error) {
	f.calls++
	return f.tok, f.err
}

func newSession(t *testing.T, store TokenStore, v Verifier, flow Authenticator, tokenURL string) *Session {
	t.Helper()
	s, err := NewSession(Options{
		Config:   &oauth2.Config{ClientID: "cid", Endpoint: oauth2.Endpoint{TokenURL: tokenURL}},
		Store:    store,
		Verifier: v,
		Flow:     flow,
	})
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}
	return s
}

func TestInit_CachedCredentialsSkipFlow(t *testing.T) {
	store := &memStore{tok: &oauth2.Token{AccessToken: "good"}}
	flow := &countingFlow{}
	s := newSession(t, store, &tokenVerifier{good: map[string]bool{"good": true}}, flow, "")

	hc, err := s.Init(context.Background())
	if err != nil || hc == nil {
		t.Fatalf("Init: hc=%v err=%v", hc, err)
	}
	if flow.calls != 0 {
		t.Fatalf("flow calls=%d want 0", flow.calls)
	}
}

func TestInit_MissingCredentialsAuthenticatesOnce(t *testing.T) {
	store := &memStore{}
	flow := &countingFlow{tok: &oauth2.Token{AccessToken: "good"}}
	s := newSession(t, store, &tokenVerifier{good: map[string]bool{"good": true}}, flow, "")

	if _, err := s.Init(context.Background()); err != nil {
		t.Fatalf("Init: %v", err)
	}
	if flow.calls != 1 {
		t.Fatalf("flow calls=%d want 1", flow.calls)
	}
	if store.saves != 1 || store.tok.AccessToken != "good" {
		t.Fatalf("token not persisted: %+v saves=%d", store.tok, store.saves)
	}
}

func TestInit_RejectedCredentialsAuthenticateOnce(t *testing.T) {
	store := &memStore{tok: &oauth2.Token{AccessToken: "revoked"}}
	flow := &countingFlow{tok: &oauth2.Token{AccessToken: "good"}}
	v := &tokenVerifier{good: map[string]bool{"good": true}}
	s := newSession(t, store, v, flow, "")

	if _, err := s.Init(context.Background()); err != nil {
		t.Fatalf("Init: %v", err)
	}
	if flow.calls != 1 || v.calls != 2 {
		t.Fatalf("flow calls=%d verify calls=%d want 1 and 2", flow.calls, v.calls)
	}
}

func TestInit_NoUnboundedRetry(t *testing.T) {
	store := &memStore{}
	flow := &countingFlow{tok: &oauth2.Token{AccessToken: "still-bad"}}
	s := newSession(t, store, &tokenVerifier{good: map[string]bool{}}, flow, "")

	_, err := s.Init(context.Background())
	if !errors.Is(err, ErrCredentialsRejected) {
		t.Fatalf("err=%v want ErrCredentialsRejected", err)
	}
	if flow.calls != 1 {
		t.Fatalf("flow calls=%d want exactly 1", flow.calls)
	}
}

func TestInit_FlowFailurePropagates(t *testing.T) {
	flow := &countingFlow{err: errors.New("user closed the prompt")}
	s := newSession(t, &memStore{}, &tokenVerifier{}, flow, "")

	if _, err := s.Init(context.Background()); err == nil {
		t.Fatal("expected error")
	}
	if flow.calls != 1 {
		t.Fatalf("flow calls=%d", flow.calls)
	}
}

func TestInit_ServiceDownIsNotACredentialError(t *testing.T) {
	store := &memStore{tok: &oauth2.Token{AccessToken: "good"}}
	flow := &countingFlow{}
	v := &tokenVerifier{err: fmt.Errorf("%w: dial tcp: refused", catalog.ErrServiceUnavailable)}
	s := newSession(t, store, v, flow, "")

	_, err := s.Init(context.Background())
	if !errors.Is(err, catalog.ErrServiceUnavailable) {
		t.Fatalf("err=%v", err)
	}
	if flow.calls != 0 {
		t.Fatal("service outage must not trigger re-authentication")
	}
}

func TestInit_ExpiredWithoutRefreshAuthenticates(t *testing.T) {
	store := &memStore{tok: &oauth2.Token{AccessToken: "old", Expiry: time.Now().Add(-time.Hour)}}
	flow := &countingFlow{tok: &oauth2.Token{AccessToken: "good"}}
	s := newSession(t, store, &tokenVerifier{good: map[string]bool{"good": true}}, flow, "")

	if _, err := s.Init(context.Background()); err != nil {
		t.Fatalf("Init: %v", err)
	}
	if flow.calls != 1 {
		t.Fatalf("flow calls=%d", flow.calls)
	}
}

func TestInitialize_RefreshesAndPersists(t *testing.T) {
	tokenSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil || r.Form.Get("grant_type") != "refresh_token" {
			http.Error(w, "bad grant", http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"access_token":"fresh","token_type":"Bearer","expires_in":3600}`)
	}))
	defer tokenSrv.Close()

	store := &memStore{tok: &oauth2.Token{AccessToken: "old", RefreshToken: "r1", Expiry: time.Now().Add(-time.Minute)}}
	flow := &countingFlow{}
	s := newSession(t, store, &tokenVerifier{good: map[string]bool{"fresh": true}}, flow, tokenSrv.URL)

	if _, err := s.Init(context.Background()); err != nil {
		t.Fatalf("Init: %v", err)
	}
	if flow.calls != 0 {
		t.Fatal("refreshable token must not trigger the interactive flow")
	}
	if store.tok.AccessToken != "fresh" || store.tok.RefreshToken != "r1" {
		t.Fatalf("refreshed token not persisted: %+v", store.tok)
	}
}

func TestNewSession_RequiresDependencies(t *testing.T) {
	if _, err := NewSession(Options{}); err == nil {
		t.Fatal("expected error")
	}
}
