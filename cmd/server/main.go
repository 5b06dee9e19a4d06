package main

import (
	"context"
	"database/sql"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"

	"pitchfund/internal/authz"
	identityservice "pitchfund/internal/identity/service"
	identitystore "pitchfund/internal/identity/store"
	"pitchfund/internal/identity/token"
	"pitchfund/internal/insights"
	"pitchfund/internal/platform/config"
	"pitchfund/internal/platform/httpserver"
	"pitchfund/internal/platform/logger"
	"pitchfund/internal/platform/metrics"
	platformredis "pitchfund/internal/platform/redis"
	portfoliostore "pitchfund/internal/portfolio/store"
	"pitchfund/internal/taxonomy"
	"pitchfund/internal/taxonomy/cache"
	taxonomystore "pitchfund/internal/taxonomy/store"
	httptransport "pitchfund/internal/transport/http"
	id "pitchfund/pkg/domain"
)

const (
	tokenIssuer   = "pitchfund"
	tokenAudience = "pitchfund-api"
)

// main wires dependencies and owns the server lifecycle. Business logic
// lives in the internal service packages.
func main() {
	cfg := config.FromEnv()
	log := logger.New()
	m := metrics.New()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Storage: postgres when a DSN is configured, in-memory otherwise.
	var (
		identities identitystore.IdentityStore
		portfolio  interface {
			authz.EntityStore
			insights.PortfolioReader
			taxonomy.Attachments
		}
		vocabulary taxonomy.VocabularyStore
		storeTx    taxonomy.StoreTx
	)
	if cfg.PostgresDSN != "" {
		db, err := sql.Open("postgres", cfg.PostgresDSN)
		if err != nil {
			log.Error("failed to open postgres", "error", err.Error())
			os.Exit(1)
		}
		defer db.Close()
		if err := db.PingContext(ctx); err != nil {
			log.Error("postgres ping failed", "error", err.Error())
			os.Exit(1)
		}
		identities = identitystore.NewPostgres(db)
		portfolio = portfoliostore.NewPostgres(db)
		vocabulary = taxonomystore.NewPostgres(db)
		storeTx = taxonomystore.NewPostgresTx(db)
		log.Info("storage configured", "backend", "postgres")
	} else {
		identities = identitystore.NewInMemory()
		portfolio = portfoliostore.NewInMemory()
		vocabulary = taxonomystore.NewInMemory()
		log.Info("storage configured", "backend", "memory")
	}

	// Optional redis vocabulary cache.
	redisClient, err := platformredis.New(cfg.Redis)
	if err != nil {
		log.Error("failed to connect to redis", "error", err.Error())
		os.Exit(1)
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	// Taxonomy engine.
	engineOpts := []taxonomy.Option{
		taxonomy.WithLogger(log),
		taxonomy.WithMetrics(m),
	}
	if storeTx != nil {
		engineOpts = append(engineOpts, taxonomy.WithTx(storeTx))
	}
	var lister httptransport.VocabularyLister
	var cached *cache.CachedLister
	engine, err := taxonomy.NewEngine(vocabulary, portfolio,
		taxonomy.DefaultConfigs(
			cfg.TagLimits.Industry,
			cfg.TagLimits.BusinessModel,
			cfg.TagLimits.Keywords,
			cfg.TagLimits.CoInvestors,
		),
		append(engineOpts, taxonomy.WithChangeListener(func(ctx context.Context, field id.TagField) {
			if cached != nil {
				cached.Invalidate(ctx, field)
			}
		}))...,
	)
	if err != nil {
		log.Error("failed to build taxonomy engine", "error", err.Error())
		os.Exit(1)
	}
	if err := engine.LoadSnapshot(ctx); err != nil {
		log.Error("failed to load vocabulary snapshot", "error", err.Error())
		os.Exit(1)
	}
	lister = engine
	if redisClient != nil {
		cached = cache.New(redisClient.Client, engine, log)
		lister = cached
	}

	// Identity resolver and lifecycle.
	tokens := token.NewService(cfg.JWTSigningKey, tokenIssuer, tokenAudience)
	identitySvc := identityservice.New(identities, tokens,
		identityservice.WithLogger(log),
		identityservice.WithMinter(tokens),
	)

	// Authorization gateway and aggregations.
	gateway, err := authz.NewGateway(portfolio, identities, engine,
		authz.WithLogger(log),
		authz.WithMetrics(m),
	)
	if err != nil {
		log.Error("failed to build authorization gateway", "error", err.Error())
		os.Exit(1)
	}
	insightSvc, err := insights.NewService(portfolio,
		insights.WithLogger(log),
		insights.WithMetrics(m),
		insights.WithRowCap(cfg.AggregationRowCap),
	)
	if err != nil {
		log.Error("failed to build insights service", "error", err.Error())
		os.Exit(1)
	}

	router := httptransport.NewRouter(httptransport.Deps{
		Entities: httptransport.NewEntityHandler(gateway, log),
		Taxonomy: httptransport.NewTaxonomyHandler(engine, lister, log),
		Identity: httptransport.NewIdentityHandler(identitySvc, log),
		Insights: httptransport.NewInsightsHandler(insightSvc, log),
		Resolver: identitySvc,
		Logger:   log,
		Metrics:  m,
	})

	srv := httpserver.New(cfg.Addr, router)

	go func() {
		log.Info("server starting", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server failed", "error", err.Error())
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", "error", err.Error())
	}
}
