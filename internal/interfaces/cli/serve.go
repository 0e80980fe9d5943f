package cli

import (
	"context"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/focosview/focosview/internal/config"
	"github.com/focosview/focosview/internal/dashboard/orchestrator"
	"github.com/focosview/focosview/internal/dashboard/session"
	"github.com/focosview/focosview/internal/infrastructure/archive"
	"github.com/focosview/focosview/internal/infrastructure/cache/redis"
	"github.com/focosview/focosview/internal/infrastructure/monitoring/logging"
	"github.com/focosview/focosview/internal/infrastructure/monitoring/prometheus"
	httpapi "github.com/focosview/focosview/internal/interfaces/http"
	"github.com/focosview/focosview/internal/interfaces/http/handlers"
	"github.com/focosview/focosview/internal/interfaces/http/middleware"
	"github.com/focosview/focosview/pkg/client"
)

// NewServeCmd runs a dashboard session behind the HTTP surface until
// interrupted.
func NewServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run a dashboard session and serve its view over HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			rt, err := buildRuntime(ctx, cliCtx)
			if err != nil {
				return err
			}
			defer rt.Close()
			return rt.Run(ctx)
		},
	}
}

// runtime holds everything serve wires together.
type runtime struct {
	cfg        *config.Config
	configPath string
	logger     logging.Logger
	session    *session.Session
	server     *httpapi.Server
	router     http.Handler
	archive    *archive.Archive
	redis      *redis.Client
}

// buildRuntime wires metrics, the optional Redis cache and archive, the
// session and the HTTP server.
func buildRuntime(ctx context.Context, cliCtx *CLIContext) (*runtime, error) {
	cfg := cliCtx.Config
	logger := cliCtx.Logger
	rt := &runtime{cfg: cfg, configPath: cliCtx.ConfigPath, logger: logger}

	var (
		metrics  *prometheus.DashboardMetrics
		scrape   http.Handler
		recorder middleware.RequestRecorder
	)
	if cfg.Metrics.Enabled {
		collector, err := prometheus.NewMetricsCollector(prometheus.CollectorConfig{
			Namespace:            cfg.Metrics.Namespace,
			EnableProcessMetrics: true,
			EnableGoMetrics:      true,
		}, logger.Named("metrics"))
		if err != nil {
			return nil, err
		}
		metrics = prometheus.NewDashboardMetrics(collector)
		scrape = collector.Handler()
		recorder = metrics
	}

	var checkers []handlers.HealthChecker
	clientOpts := []client.Option{}
	if metrics != nil {
		clientOpts = append(clientOpts, client.WithObserver(metrics))
	}

	if rc := cfg.Cache.Redis; rc.Enabled {
		rdb, err := redis.NewClient(ctx, redis.RedisConfig{
			Addr:     rc.Addr,
			Username: rc.Username,
			Password: rc.Password,
			DB:       rc.DB,
			PoolSize: rc.PoolSize,
		}, logger.Named("redis"))
		if err != nil {
			// The cache only saves lookups; run without it.
			logger.Warn("redis cache unavailable, continuing without it", logging.Err(err))
		} else {
			rt.redis = rdb
			cacheOpts := []redis.CacheOption{redis.WithPrefix(rc.Prefix), redis.WithTTL(rc.TTL)}
			if metrics != nil {
				cacheOpts = append(cacheOpts, redis.WithMetrics(metrics))
			}
			cache := redis.NewCache(rdb, logger.Named("cache"), cacheOpts...)
			clientOpts = append(clientOpts, client.WithCache(cache))
			checkers = append(checkers, handlers.NamedChecker{Component: "redis", Ping: cache.Ping})
		}
	}

	var (
		sink    orchestrator.Archive
		history handlers.History
	)
	if cfg.Archive.Enabled {
		arch, err := archive.Open(ctx, archive.Config{
			Path:    cfg.Archive.Path,
			Source:  "serve",
			Logger:  logger.Named("archive"),
			Metrics: archiveMetrics(metrics),
		})
		if err != nil {
			rt.Close()
			return nil, err
		}
		rt.archive = arch
		sink, history = arch, arch
		checkers = append(checkers, handlers.NamedChecker{Component: "archive", Ping: arch.Ping})
	}

	api, err := newAPIClient(cliCtx, clientOpts...)
	if err != nil {
		rt.Close()
		return nil, err
	}

	var sessMetrics session.Metrics
	if metrics != nil {
		sessMetrics = metrics
	}
	sess, err := session.New(ctx, session.Config{
		Client:            api,
		Logger:            logger,
		Metrics:           sessMetrics,
		Archive:           sink,
		MainDebounce:      cfg.Dashboard.MainDebounce,
		PointsDebounce:    cfg.Dashboard.PointsDebounce,
		SearchDebounce:    cfg.Dashboard.SearchDebounce,
		TopLimit:          cfg.Dashboard.TopLimit,
		MunTopLimitWithUF: cfg.Dashboard.MunTopLimitWithUF,
		PointsLimit:       cfg.API.PointsLimit,
		SearchLimit:       cfg.Dashboard.SearchLimit,
	})
	if err != nil {
		rt.Close()
		return nil, err
	}
	rt.session = sess

	var cors *middleware.CORSConfig
	if len(cfg.Server.AllowedOrigins) > 0 {
		cc := middleware.DefaultCORSConfig()
		cc.AllowedOrigins = cfg.Server.AllowedOrigins
		cc.AllowWildcard = true
		cors = &cc
	}
	rt.router = httpapi.NewRouter(httpapi.RouterConfig{
		DashboardHandler: handlers.NewDashboardHandler(sess, history, logger.Named("http")),
		HealthHandler:    handlers.NewHealthHandler(Version, sess.Ready, checkers...),
		CORS:             cors,
		Recorder:         recorder,
		Logger:           logger.Named("http"),
		MetricsHandler:   scrape,
	})
	rt.server = httpapi.NewServer(cfg.Server, rt.router, logger.Named("http"))
	return rt, nil
}

// archiveMetrics avoids handing the archive a typed nil.
func archiveMetrics(m *prometheus.DashboardMetrics) archive.Metrics {
	if m == nil {
		return nil
	}
	return m
}

// Run starts the session and the server and blocks until ctx ends.
func (rt *runtime) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		outcome := rt.session.Start(gctx)
		rt.logger.Info("first refresh finished", logging.String("outcome", string(outcome)))
		return nil
	})
	g.Go(rt.server.Start)
	g.Go(func() error {
		<-gctx.Done()
		return rt.server.Stop(context.WithoutCancel(gctx))
	})

	rt.watchConfig()
	return g.Wait()
}

// watchConfig applies the hot-reloadable subset of the config: log level
// and debounce windows.
func (rt *runtime) watchConfig() {
	if rt.configPath == "" {
		return
	}
	err := config.Watch(rt.configPath, func(next *config.Config) {
		if ls, ok := rt.logger.(logging.LevelSetter); ok {
			ls.SetLevel(next.Log.Level)
		}
		rt.session.SetDebounce(next.Dashboard.MainDebounce, next.Dashboard.PointsDebounce)
		rt.logger.Info("config reloaded",
			logging.String("log_level", next.Log.Level),
			logging.Duration("main_debounce", next.Dashboard.MainDebounce),
			logging.Duration("points_debounce", next.Dashboard.PointsDebounce))
	}, func(err error) {
		rt.logger.Warn("config reload rejected", logging.Err(err))
	})
	if err != nil {
		rt.logger.Warn("config watch unavailable", logging.Err(err))
	}
}

// Close releases the session and the optional stores.
func (rt *runtime) Close() {
	if rt.session != nil {
		rt.session.Close()
	}
	if rt.archive != nil {
		if err := rt.archive.Close(); err != nil {
			rt.logger.Warn("archive close failed", logging.Err(err))
		}
	}
	if rt.redis != nil {
		if err := rt.redis.Close(); err != nil {
			rt.logger.Warn("redis close failed", logging.Err(err))
		}
	}
}
