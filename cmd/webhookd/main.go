// webhookd is the HTTP service: it receives Paystack webhook deliveries,
// applies the idempotent payment transition, publishes confirmed events for
// the dispatch worker, and exposes the submission endpoints that create the
// records those webhooks settle.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/NzeStan/Material-Wear-sub002/internal/campaign"
	"github.com/NzeStan/Material-Wear-sub002/internal/config"
	"github.com/NzeStan/Material-Wear-sub002/internal/kafka"
	"github.com/NzeStan/Material-Wear-sub002/internal/order"
	"github.com/NzeStan/Material-Wear-sub002/internal/paystack"
	"github.com/NzeStan/Material-Wear-sub002/internal/reconcile"
	"github.com/NzeStan/Material-Wear-sub002/internal/roster"
	"github.com/NzeStan/Material-Wear-sub002/internal/server"
	"github.com/NzeStan/Material-Wear-sub002/internal/store/postgres"
)

func main() {
	log := zerolog.New(os.Stdout).With().Timestamp().Str("service", "webhookd").Logger()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("load config failed")
	}

	db, err := postgres.Open(cfg.GetDBURL())
	if err != nil {
		log.Fatal().Err(err).Msg("connect postgres failed")
	}
	defer db.Close()

	entries := postgres.NewEntryStore(db)
	bulkOrders := postgres.NewBulkOrderStore(db)
	campaigns := postgres.NewCampaignStore(db)
	coupons := postgres.NewCouponStore(db)

	producer := kafka.NewKafkaProducer(cfg.GetKafkaBroker(), cfg.GetKafkaTopic())
	defer producer.Close()

	payClient := paystack.NewClient(cfg.PaystackBaseURL, cfg.PaystackSecretKey, log)

	engine := reconcile.NewEngine(cfg.PaystackSecretKey, entries, campaigns, producer, log)
	orderSvc := order.NewService(bulkOrders, entries, coupons, payClient, cfg.CallbackURL, log)
	campaignSvc := campaign.NewService(campaigns, roster.NewHTTPFetcher(), payClient, cfg.CallbackURL, log)

	gin.SetMode(gin.ReleaseMode)
	srv := server.NewServer(engine, orderSvc, campaignSvc, log)

	httpServer := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: srv.Handler(),
	}

	go func() {
		log.Info().Str("addr", cfg.HTTPAddr).Msg("webhook server listening")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("http server failed")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	sig := <-stop
	log.Info().Str("signal", sig.String()).Msg("shutting down")

	// Give in-flight webhook deliveries time to commit before the listener
	// closes; the provider retries anything that gets cut off.
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("http shutdown failed")
	}
}
