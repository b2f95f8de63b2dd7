// Package backend chooses how a finished map is presented: written out as a
// self-contained page, or served over HTTP where the page can talk back.
package backend

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"sort"
	"strings"

	"github.com/mohammed-shakir/wbd-map/internal/assets"
	"github.com/mohammed-shakir/wbd-map/internal/core/config"
	"github.com/mohammed-shakir/wbd-map/internal/mapview"
)

const (
	Interactive = "interactive"
	Static      = "static"
)

// Renderer presents a finished map. Every backend implements it.
type Renderer interface {
	Name() string
	Render(ctx context.Context, m *mapview.Map) error
}

// Server is the extra capability of backends that stay up after rendering
// and accept input from the page (clicks, layer fetches). Hosted notebook
// environments get a backend without it.
type Server interface {
	Renderer
	Serve(ctx context.Context) error
}

type Deps struct {
	Config  config.Config
	Logger  *slog.Logger
	Assets  *assets.Installer
	Metrics http.Handler
}

type Factory func(d Deps) (Renderer, error)

var reg = map[string]Factory{}

func Register(name string, f Factory) {
	reg[name] = f
}

func Names() []string {
	out := make([]string, 0, len(reg))
	for k := range reg {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// New builds the named backend. Unknown names fall back to the static one,
// which works in every environment.
func New(name string, d Deps) (Renderer, error) {
	if d.Logger == nil {
		d.Logger = slog.New(slog.DiscardHandler)
	}
	if f, ok := reg[name]; ok {
		return f(d)
	}
	if f, ok := reg[Static]; ok {
		d.Logger.Warn("unknown backend; falling back to static", "backend", name)
		return f(d)
	}
	return nil, fmt.Errorf("no factory for backend %q and no static backend registered", name)
}

// Select returns the backend name for this process. An explicit choice in
// cfg.Backend wins; otherwise a set hosted-environment marker means static.
func Select(cfg config.Config, lookup func(string) (string, bool)) string {
	if b := strings.TrimSpace(cfg.Backend); b != "" {
		return b
	}
	if lookup == nil {
		lookup = os.LookupEnv
	}
	if cfg.HostedEnvMarker != "" {
		if _, ok := lookup(cfg.HostedEnvMarker); ok {
			return Static
		}
	}
	return Interactive
}
