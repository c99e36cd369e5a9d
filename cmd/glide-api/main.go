// Entry point; loads config, resolves production models, wires services,
// starts the HTTP server and the two refresh schedulers.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"glide/internal/config"
	httptransport "glide/internal/http"
	"glide/internal/infra"
	"glide/internal/metrics"
	"glide/internal/modules/prediction"
	"glide/internal/modules/pricing"
	"glide/internal/modules/risk"
	"glide/internal/modules/surge"
)

func main() {
	_ = godotenv.Load()
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.With().Str("service", "glide-api").Logger()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("loading config")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dbPool, err := infra.NewDB(ctx, cfg.DB.DSN)
	if err != nil {
		log.Fatal().Err(err).Msg("connecting to postgres")
	}
	defer dbPool.Close()

	redisClient := infra.NewRedis(cfg.Redis.Addr)
	defer redisClient.Close()

	riskModel, err := prediction.LoadProductionModel(ctx, cfg.Model, cfg.Model.RiskModel, prediction.KindRisk)
	if err != nil {
		log.Fatal().Err(err).Msg("resolving risk model")
	}
	demandModel, err := prediction.LoadProductionModel(ctx, cfg.Model, cfg.Model.DemandModel, prediction.KindDemand)
	if err != nil {
		log.Fatal().Err(err).Msg("resolving demand model")
	}

	registry := prometheus.NewRegistry()
	m := metrics.New(registry)

	riskStore := risk.NewStore(redisClient)
	riskSvc := risk.NewService(riskStore, riskModel, cfg.Risk, m)
	riskJob := risk.NewRefreshJob(
		riskStore,
		risk.NewPopulationStore(dbPool),
		riskModel,
		infra.NewJobLock(redisClient, "risk_refresh", cfg.Risk.RefreshInterval/2),
		cfg.Risk,
		m,
	)

	surgeStore := surge.NewStore()
	generations := surge.NewGenerationStore(dbPool)
	if snap, err := generations.LoadCurrent(ctx); err != nil {
		log.Warn().Err(err).Msg("loading persisted surge grid")
	} else if snap != nil {
		surgeStore.Swap(snap)
		log.Info().Int64("generation", snap.Generation).Int("cells", snap.Len()).Msg("restored surge grid")
	}
	surgeSvc := surge.NewService(surgeStore, m)
	surgeJob := surge.NewRefreshJob(
		surgeStore,
		surge.NewCoverageStore(dbPool),
		demandModel,
		generations,
		infra.NewJobLock(redisClient, "surge_refresh", cfg.Surge.RefreshInterval),
		cfg.Surge,
		m,
	)

	pricingSvc := pricing.NewService(pricing.NewStore(dbPool), riskSvc, surgeSvc, cfg.Pricing, m)

	handler := httptransport.NewServer(httptransport.ServerDeps{
		Pricing:  pricingSvc,
		Risk:     riskSvc,
		Surge:    surgeSvc,
		Registry: registry,
	})
	server := &http.Server{Addr: cfg.HTTP.Addr, Handler: handler.Routes()}

	go riskJob.RunScheduler(ctx)
	go surgeJob.RunScheduler(ctx)

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	log.Info().Str("addr", cfg.HTTP.Addr).Msg("serving")
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal().Err(err).Msg("http server")
	}
}
