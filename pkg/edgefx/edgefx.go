// Package edgefx composes a runnable steeze-edge: logging, manifest,
// engine, bundled plugins, and the admin endpoint, wired with fx.
package edgefx

import (
	"context"
	"net/http"
	"time"

	"github.com/joeydtaylor/steeze-edge/pkg/config"
	"github.com/joeydtaylor/steeze-edge/pkg/engine"
	"github.com/joeydtaylor/steeze-edge/pkg/eventrelay"
	"github.com/joeydtaylor/steeze-edge/pkg/logging"
	"github.com/joeydtaylor/steeze-edge/pkg/plugins/authguard"
	"github.com/joeydtaylor/steeze-edge/pkg/plugins/metrics"
	"github.com/joeydtaylor/steeze-edge/pkg/plugins/txnrelay"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// ---------- Options ----------

type Options struct {
	Service         string // for logs only
	ManifestEnv     string // e.g. EDGE_MANIFEST
	DefaultManifest string // e.g. "manifest.toml"
}

type Option func(*Options)

func WithService(s string) Option            { return func(o *Options) { o.Service = s } }
func WithManifestEnv(k string) Option        { return func(o *Options) { o.ManifestEnv = k } }
func WithDefaultManifest(path string) Option { return func(o *Options) { o.DefaultManifest = path } }

func defaultOptions() Options {
	return Options{
		Service:         "steeze-edge",
		ManifestEnv:     "EDGE_MANIFEST",
		DefaultManifest: "manifest.toml",
	}
}

// Module returns the complete fx option set for a standalone edge.
func Module(opts ...Option) fx.Option {
	o := defaultOptions()
	for _, fn := range opts {
		fn(&o)
	}
	return fx.Options(
		fx.Provide(func() Options { return o }),
		fx.Provide(logging.ProvideLogger),
		fx.Provide(provideConfig),
		fx.Provide(eventrelay.NewFromEnv),
		fx.Provide(provideEngine),
		metrics.Module,
		fx.Invoke(registerHooks),
	)
}

func provideConfig(o Options, log *zap.Logger) config.Config {
	path := config.EnvOr(o.ManifestEnv, o.DefaultManifest)
	cfg, err := config.Load(path)
	if err != nil {
		log.Fatal("manifest load failed", zap.Error(err), zap.String("path", path))
	}
	return cfg
}

func provideEngine(cfg config.Config, pub eventrelay.Publisher, log *zap.Logger) (*engine.Engine, error) {
	// Factory registrations must land before the engine resolves the
	// manifest.
	authguard.Register(log)

	e, err := engine.New(cfg, log)
	if err != nil {
		return nil, err
	}

	obs := metrics.NewObserver()
	e.RegisterGlobal(obs, obs.Hooks())

	rep := txnrelay.NewReporter(pub, log)
	e.RegisterGlobal(rep, rep.Hooks())

	return e, nil
}

type serverDeps struct {
	fx.In

	Opts    Options
	Cfg     config.Config
	Engine  *engine.Engine
	Metrics http.Handler
	Logger  *zap.Logger
}

func registerHooks(lc fx.Lifecycle, d serverDeps) {
	srv := &http.Server{
		Addr:         d.Cfg.Proxy.Listen,
		Handler:      d.Engine,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	var admin *http.Server
	if d.Cfg.Admin.Listen != "" {
		admin = &http.Server{
			Addr:        d.Cfg.Admin.Listen,
			Handler:     engine.NewAdminRouter(d.Metrics, d.Logger),
			ReadTimeout: 15 * time.Second,
			IdleTimeout: 60 * time.Second,
		}
	}

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			d.Logger.Info("edge starting",
				zap.String("service", d.Opts.Service),
				zap.String("listen", d.Cfg.Proxy.Listen),
				zap.String("upstream", d.Cfg.Proxy.Upstream))
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					d.Logger.Fatal("edge server failed", zap.Error(err))
				}
			}()
			if admin != nil {
				d.Logger.Info("admin starting", zap.String("listen", d.Cfg.Admin.Listen))
				go func() {
					if err := admin.ListenAndServe(); err != nil && err != http.ErrServerClosed {
						d.Logger.Fatal("admin server failed", zap.Error(err))
					}
				}()
			}
			return nil
		},
		OnStop: func(ctx context.Context) error {
			if admin != nil {
				_ = admin.Shutdown(ctx)
			}
			return srv.Shutdown(ctx)
		},
	})
}
