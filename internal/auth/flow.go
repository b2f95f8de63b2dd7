package auth

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"golang.org/x/oauth2"

	"github.com/mohammed-shakir/wbd-map/internal/core/config"
)

// Authenticator obtains a fresh token from the user.
type Authenticator interface {
	Authenticate(ctx context.Context) (*oauth2.Token, error)
}

// PromptFlow is the copy/paste authorization-code flow: the user opens the
// printed URL in a browser, signs in and pastes the code back.
type PromptFlow struct {
	conf *oauth2.Config
	in   *bufio.Reader
	out  io.Writer
	hc   *http.Client
}

func OAuthConfig(c config.OAuthCfg) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     c.ClientID,
		ClientSecret: c.ClientSecret,
		RedirectURL:  c.RedirectURL,
		Scopes:       c.Scopes,
		Endpoint: oauth2.Endpoint{
			AuthURL:  c.AuthURL,
			TokenURL: c.TokenURL,
		},
	}
}

func NewPromptFlow(conf *oauth2.Config, in io.Reader, out io.Writer, hc *http.Client) *PromptFlow {
	return &PromptFlow{conf: conf, in: bufio.NewReader(in), out: out, hc: hc}
}

func (f *PromptFlow) Authenticate(ctx context.Context) (*oauth2.Token, error) {
	if f.conf.ClientID == "" {
		return nil, errors.New("oauth client id is not configured (OAUTH_CLIENT_ID)")
	}
	verifier := oauth2.GenerateVerifier()
	url := f.conf.AuthCodeURL("wbdmap", oauth2.AccessTypeOffline, oauth2.S256ChallengeOption(verifier))

	_, _ = fmt.Fprintf(f.out, "To authorize access to the feature service, open this URL in a browser:\n\n    %s\n\n", url)
	_, _ = fmt.Fprint(f.out, "Enter verification code: ")

	line, err := f.in.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("read verification code: %w", err)
	}
	code := strings.TrimSpace(line)
	if code == "" {
		return nil, errors.New("no verification code entered")
	}

	if f.hc != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, f.hc)
	}
	tok, err := f.conf.Exchange(ctx, code, oauth2.VerifierOption(verifier))
	if err != nil {
		return nil, fmt.Errorf("exchange verification code: %w", err)
	}
	_, _ = fmt.Fprintln(f.out, "Successfully saved authorization token.")
	return tok, nil
}
