package commands

import (
	"context"
	"fmt"

	"github.com/wonny/stocklens/internal/contracts"
	"github.com/wonny/stocklens/internal/crawler"
	"github.com/wonny/stocklens/internal/external/aktools"
	"github.com/wonny/stocklens/internal/external/sina"
	"github.com/wonny/stocklens/internal/stockdata"
	"github.com/wonny/stocklens/internal/store/postgres"
	"github.com/wonny/stocklens/internal/store/sqlite"
	"github.com/wonny/stocklens/internal/supplychain"
	"github.com/wonny/stocklens/pkg/config"
	"github.com/wonny/stocklens/pkg/database"
	"github.com/wonny/stocklens/pkg/httputil"
	"github.com/wonny/stocklens/pkg/logger"
	"github.com/wonny/stocklens/pkg/redis"
)

// store is a persistent store that can bootstrap its schema and report health
type store interface {
	contracts.Store
	Migrate(ctx context.Context) error
}

// backend is the connection behind the store
type backend interface {
	Ping(ctx context.Context) error
	HealthCheck(ctx context.Context) *database.HealthStatus
}

// app holds the process-wide dependencies, built once per command
type app struct {
	cfg    *config.Config
	log    *logger.Logger
	store  store
	health backend
	redis  *redis.Client
	source *aktools.Source

	closers []func()
}

// newApp loads config and connects the store, Redis and the market data source
func newApp() (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if verbose {
		cfg.LogLevel = "debug"
	}

	a := &app{cfg: cfg, log: logger.New(cfg)}

	if err := a.openStore(); err != nil {
		a.Close()
		return nil, err
	}

	rc, err := redis.New(cfg)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	a.redis = rc
	a.closers = append(a.closers, func() { rc.Close() })

	a.source = a.newSource()
	return a, nil
}

func (a *app) openStore() error {
	switch a.cfg.StoreDriver {
	case config.StoreDriverSQLite:
		db, err := database.NewSQLite(a.cfg)
		if err != nil {
			return fmt.Errorf("open sqlite store: %w", err)
		}
		a.closers = append(a.closers, func() { db.Close() })
		a.store = sqlite.New(db.Conn())
		a.health = db

	default:
		db, err := database.New(a.cfg)
		if err != nil {
			return fmt.Errorf("connect to database: %w", err)
		}
		a.closers = append(a.closers, db.Close)
		a.store = postgres.New(db.Pool)
		a.health = db
	}

	a.log.WithField("driver", a.cfg.StoreDriver).Info("Connected to store")
	return nil
}

// newSource builds the AKTools gateway client with the Sina profile scraper.
// Each client has the per-process limit from SOURCE_RATE_LIMIT; Redis adds a
// cross-process window per upstream host.
func (a *app) newSource() *aktools.Source {
	limiter := redis.NewRateLimiter(a.redis, "stocklens")

	gatewayHTTP := httputil.New(a.cfg, a.log).WithRateLimiter(limiter, redis.AKToolsRateLimit)
	profileHTTP := httputil.New(a.cfg, a.log).WithRateLimiter(limiter, redis.SinaRateLimit)

	profiles := sina.NewClient(profileHTTP, a.cfg.Source.ProfileBaseURL, a.log)
	return aktools.NewSource(gatewayHTTP, a.cfg.Source.AKToolsBaseURL, a.log).WithProfiles(profiles)
}

func (a *app) newService() *stockdata.Service {
	svc := stockdata.NewService(a.store, a.source, stockdata.Config{
		SourceTimeout: a.cfg.Source.Timeout,
		QuoteCacheTTL: a.cfg.Source.QuoteCacheTTL,
	}, a.log)

	if a.redis.Enabled() {
		svc.WithCache(redis.NewCache(a.redis, "stocklens"))
	}
	return svc
}

func (a *app) newCrawler() (*crawler.Crawler, error) {
	loc, err := a.cfg.Scheduler.Location()
	if err != nil {
		return nil, err
	}

	return crawler.New(a.store, a.source, crawler.Config{
		SourceTimeout: a.cfg.Source.Timeout,
		Location:      loc,
	}, a.log), nil
}

// newMatcher builds the scenario matcher. Keyword extraction falls back to
// domain patterns and aliases when the segmenter dictionary cannot be loaded.
func (a *app) newMatcher(enricher supplychain.Enricher) (*supplychain.Matcher, error) {
	graph, err := supplychain.DefaultGraph()
	if err != nil {
		return nil, fmt.Errorf("load supply chain graph: %w", err)
	}

	var extractor supplychain.KeywordExtractor
	if gse, err := supplychain.NewGseExtractor(); err != nil {
		a.log.WithError(err).Warn("Keyword extractor unavailable, using domain patterns only")
	} else {
		extractor = gse
	}

	m := supplychain.NewMatcher(graph, extractor, a.log)
	if enricher != nil {
		m.WithEnricher(enricher)
	}
	return m, nil
}

// Close releases connections in reverse order
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
