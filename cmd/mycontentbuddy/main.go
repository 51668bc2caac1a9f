package main

import (
	"context"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"
	"go.uber.org/zap"

	rediscache "github.com/eharris128/mycontentbuddy/internal/adapter/cache"
	oauthadapter "github.com/eharris128/mycontentbuddy/internal/adapter/oauth"
	twitteradapter "github.com/eharris128/mycontentbuddy/internal/adapter/twitter"
	"github.com/eharris128/mycontentbuddy/internal/apicache"
	"github.com/eharris128/mycontentbuddy/internal/config"
	"github.com/eharris128/mycontentbuddy/internal/gateway"
	internalhttp "github.com/eharris128/mycontentbuddy/internal/http"
	"github.com/eharris128/mycontentbuddy/internal/http/handler"
	"github.com/eharris128/mycontentbuddy/internal/middleware"
	"github.com/eharris128/mycontentbuddy/internal/ratelimit"
	"github.com/eharris128/mycontentbuddy/internal/server"
	authsvc "github.com/eharris128/mycontentbuddy/internal/service/auth"
	"github.com/eharris128/mycontentbuddy/internal/service/tweets"
	"github.com/eharris128/mycontentbuddy/internal/session"
	"github.com/eharris128/mycontentbuddy/internal/store"
	"github.com/eharris128/mycontentbuddy/internal/telemetry"
)

func main() {
	app := fx.New(
		fx.Provide(
			newConfig,
			newLogger,
			newTelemetry,
			newStore,
			newProviderClient,
			newTwitterClient,
			newTracker,
			newGateway,
			newResponseCache,
			newSessionManager,
			newOAuthService,
			newTweetService,
			handler.NewAuthHandler,
			handler.NewTweetHandler,
			newRateLimiter,
			internalhttp.NewRouter,
			server.NewHTTPServer,
		),
		fx.Invoke(
			useTelemetry,
			startHTTPServer,
		),
	)

	app.Run()
}

func newConfig() (config.Config, error) {
	return config.Load()
}

func newLogger(cfg config.Config) (*zap.Logger, error) {
	var (
		logger *zap.Logger
		err    error
	)
	if cfg.Environment == "production" {
		logger, err = zap.NewProduction()
	} else {
		logger, err = zap.NewDevelopment()
	}
	if err != nil {
		return nil, err
	}
	zap.ReplaceGlobals(logger)
	return logger, nil
}

func newTelemetry(lc fx.Lifecycle, cfg config.Config, logger *zap.Logger) (*telemetry.Provider, error) {
	provider, err := telemetry.New(context.Background(), cfg, logger)
	if err != nil {
		return nil, err
	}
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return provider.Shutdown(ctx)
		},
	})
	return provider, nil
}

// newStore picks Redis when REDIS_ADDR is set and reachable, otherwise the
// in-memory store. A playground instance must come up even without Redis.
func newStore(lc fx.Lifecycle, cfg config.Config, logger *zap.Logger) store.Store {
	if cfg.RedisAddr == "" {
		logger.Info("using in-memory store")
		return store.NewMemory()
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warn("redis unreachable, falling back to in-memory store",
			zap.String("addr", cfg.RedisAddr),
			zap.Error(err),
		)
		_ = client.Close()
		return store.NewMemory()
	}

	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			return client.Close()
		},
	})

	logger.Info("using redis store", zap.String("addr", cfg.RedisAddr))
	return rediscache.NewRedis(client)
}

func newProviderClient(cfg config.Config) oauthadapter.ProviderClient {
	return oauthadapter.NewHTTPProviderClient(oauthadapter.ExchangeConfig{
		TokenURL:     cfg.TwitterTokenURL,
		ClientID:     cfg.TwitterClientID,
		ClientSecret: cfg.TwitterClientSecret,
		RedirectURI:  cfg.TwitterRedirectURI,
	}, &http.Client{Timeout: 15 * time.Second})
}

func newTwitterClient(cfg config.Config) twitteradapter.Client {
	return twitteradapter.NewHTTPClient(cfg.TwitterAPIBaseURL, &http.Client{Timeout: 15 * time.Second})
}

func newTracker(st store.Store, logger *zap.Logger) *ratelimit.Tracker {
	return ratelimit.NewTracker(st, logger)
}

func newGateway(tracker *ratelimit.Tracker, logger *zap.Logger) *gateway.Gateway {
	return gateway.New(tracker, logger)
}

func newResponseCache(cfg config.Config, st store.Store, logger *zap.Logger) *apicache.Cache {
	windows := apicache.Windows{
		tweets.EndpointProfile:         cfg.ProfileCacheWindow,
		tweets.EndpointTimeline:        cfg.TimelineCacheWindow,
		tweets.EndpointOwnedLists:      cfg.ListsCacheWindow,
		tweets.EndpointListMemberships: cfg.ListsCacheWindow,
		tweets.EndpointListTweets:      cfg.ListsCacheWindow,
		tweets.EndpointListMembers:     cfg.ListsCacheWindow,
	}
	return apicache.New(st, windows, cfg.ListsCacheWindow, logger)
}

func newSessionManager(cfg config.Config, st store.Store) *session.Manager {
	return session.NewManager(st, cfg.SessionSecret, cfg.SessionTTL)
}

func newOAuthService(cfg config.Config, st store.Store, provider oauthadapter.ProviderClient, logger *zap.Logger) authsvc.OAuthService {
	return authsvc.NewOAuthService(cfg, st, provider, logger)
}

func newTweetService(client twitteradapter.Client, gw *gateway.Gateway, cache *apicache.Cache, sessions *session.Manager, logger *zap.Logger) *tweets.Service {
	return tweets.NewService(client, gw, cache, sessions, logger)
}

func newRateLimiter(cfg config.Config) *middleware.RateLimiter {
	return middleware.NewRateLimiter(cfg.RateLimitRPM)
}

// useTelemetry forces the provider into the graph so tracing is configured
// before the first request.
func useTelemetry(*telemetry.Provider) {}

func startHTTPServer(lc fx.Lifecycle, shutdowner fx.Shutdowner, cfg config.Config, srv *server.HTTPServer, logger *zap.Logger) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			addr := ":" + cfg.HTTPPort
			logger.Info("starting http server",
				zap.String("addr", addr),
				zap.String("environment", cfg.Environment),
			)
			go func() {
				defer close(done)
				if err := srv.Run(ctx, addr); err != nil {
					logger.Error("http server exited", zap.Error(err))
					_ = shutdowner.Shutdown()
				}
			}()
			return nil
		},
		OnStop: func(stopCtx context.Context) error {
			cancel()
			select {
			case <-done:
				return nil
			case <-stopCtx.Done():
				return stopCtx.Err()
			}
		},
	})
}
