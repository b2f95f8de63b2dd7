package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"

	"github.com/mohammed-shakir/wbd-map/internal/app/runner"
	"github.com/mohammed-shakir/wbd-map/internal/assets"
	"github.com/mohammed-shakir/wbd-map/internal/auth"
	"github.com/mohammed-shakir/wbd-map/internal/backend"
	_ "github.com/mohammed-shakir/wbd-map/internal/backend/interactive"
	_ "github.com/mohammed-shakir/wbd-map/internal/backend/static"
	"github.com/mohammed-shakir/wbd-map/internal/cache/collectionstore"
	"github.com/mohammed-shakir/wbd-map/internal/cache/redisstore"
	"github.com/mohammed-shakir/wbd-map/internal/catalog"
	"github.com/mohammed-shakir/wbd-map/internal/core/config"
	"github.com/mohammed-shakir/wbd-map/internal/core/httpclient"
	"github.com/mohammed-shakir/wbd-map/internal/core/observability"
	"github.com/mohammed-shakir/wbd-map/internal/core/ogc"
	"github.com/mohammed-shakir/wbd-map/internal/logger"
	"github.com/mohammed-shakir/wbd-map/internal/mapevents"
	"github.com/mohammed-shakir/wbd-map/internal/metrics"
	"github.com/mohammed-shakir/wbd-map/internal/plan"
)

// app holds the process-wide dependencies shared by the commands.
type app struct {
	cfg     config.Config
	log     *slog.Logger
	metrics *metrics.Provider
	catalog *catalog.Client
	session *auth.Session
	assets  *assets.Installer
	events  mapevents.Sink
	redis   *redisstore.Client
}

func newApp(cfg config.Config, stdin io.Reader, stdout io.Writer) (*app, error) {
	zl := logger.Build(logger.Config{
		Level:     cfg.LogLevel,
		Console:   cfg.LogConsole,
		SampleN:   cfg.LogSampleN,
		Component: "wbdmap",
	}, os.Stderr)
	log := logger.NewSlog(&zl)

	p := metrics.Init(metrics.Config{
		Addr:  cfg.Metrics.Addr,
		Path:  cfg.Metrics.Path,
		Build: metrics.BuildInfo{Version: Version, Revision: Revision, BuildDate: BuildDate},
	})
	if err := observability.Init(p.Registerer()); err != nil {
		return nil, fmt.Errorf("register metrics: %w", err)
	}

	hc := httpclient.NewOutbound(
		httpclient.WithTimeout(cfg.HTTPTimeout),
		httpclient.WithUserAgent("wbdmap/"+Version),
	)
	cat, err := catalog.New(log, hc, ogc.OWSEndpoint(cfg.GeoServerURL))
	if err != nil {
		return nil, err
	}

	oauthConf := auth.OAuthConfig(cfg.OAuth)
	sess, err := auth.NewSession(auth.Options{
		Config:   oauthConf,
		Store:    auth.NewFileStore(cfg.CredentialsPath),
		Verifier: cat,
		Flow:     auth.NewPromptFlow(oauthConf, stdin, stdout, hc),
		Base:     hc,
		Logger:   log,
	})
	if err != nil {
		return nil, err
	}

	return &app{
		cfg:     cfg,
		log:     log,
		metrics: p,
		catalog: cat,
		session: sess,
		assets:  assets.New(cfg.AssetsDir, cfg.LeafletCDN, hc, log),
		events:  mapevents.Nop{},
	}, nil
}

// enableOptional connects the Redis cache and the Kafka publisher when they
// are switched on.
func (a *app) enableOptional(ctx context.Context) error {
	if a.cfg.Cache.Enabled {
		rs, err := redisstore.New(ctx, a.cfg.Cache.RedisAddr)
		if err != nil {
			return fmt.Errorf("collection cache: %w", err)
		}
		a.redis = rs
	}
	if a.cfg.Events.Enabled {
		pub, err := mapevents.NewPublisher(a.cfg.Events.Brokers, a.cfg.Events.Topic, a.cfg.Events.Queue, a.log)
		if err != nil {
			return err
		}
		a.events = pub
	}
	return nil
}

func (a *app) fetcher(authed *http.Client) (catalog.Fetcher, error) {
	c := a.catalog.WithHTTPClient(authed)
	if a.redis == nil {
		return c, nil
	}
	store := collectionstore.NewRedisStore(a.redis, a.cfg.Cache.TTL)
	return catalog.NewCached(c, store, c.Endpoint(), a.cfg.Cache.TTL, a.cfg.Cache.OpTimeout, a.log), nil
}

func (a *app) close() {
	if err := a.events.Close(); err != nil {
		a.log.Warn("close event publisher", "err", err)
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.log.Warn("close redis", "err", err)
		}
	}
}

func runMap(ctx context.Context, cfg config.Config, stdin io.Reader, stdout io.Writer) error {
	a, err := newApp(cfg, stdin, stdout)
	if err != nil {
		return err
	}
	defer a.close()

	if cfg.Metrics.Enabled {
		go func() {
			if err := a.metrics.Serve(ctx, a.log); err != nil {
				a.log.Error("metrics server exited", "err", err)
			}
		}()
	}
	if err := a.enableOptional(ctx); err != nil {
		return err
	}

	p := plan.Default()
	if cfg.PlanPath != "" {
		if p, err = plan.Load(cfg.PlanPath); err != nil {
			return err
		}
	}

	name := backend.Select(cfg, os.LookupEnv)
	r, err := backend.New(name, backend.Deps{
		Config:  cfg,
		Logger:  a.log,
		Assets:  a.assets,
		Metrics: a.metrics.Handler(),
	})
	if err != nil {
		return err
	}

	run, err := runner.New(runner.Options{
		Plan:     p,
		Assets:   a.assets,
		Session:  a.session,
		Catalog:  a.fetcher,
		Renderer: r,
		Events:   a.events,
		Logger:   a.log,
	})
	if err != nil {
		return err
	}
	a.log.Info("starting wbdmap",
		"version", Version,
		"run_id", run.RunID(),
		"backend", r.Name(),
		"geoserver", cfg.GeoServerURL,
		"layers", len(p.Layers))

	if _, err := run.Run(ctx); err != nil {
		return err
	}

	srv, ok := r.(backend.Server)
	if !ok {
		if out, ok := r.(interface{ Output() string }); ok {
			_, _ = fmt.Fprintf(stdout, "map written to %s\n", out.Output())
		}
		return nil
	}
	_, _ = fmt.Fprintf(stdout, "serving map on http://%s/\n", displayAddr(cfg.Addr))
	if err := srv.Serve(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func displayAddr(addr string) string {
	if len(addr) > 0 && addr[0] == ':' {
		return "localhost" + addr
	}
	return addr
}
