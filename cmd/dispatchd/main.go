// dispatchd is the worker binary. It consumes confirmed-payment events from
// Kafka and turns them into side effects (roster materialization, receipt
// and summary email jobs), delivers queued emails from RabbitMQ, and runs
// the periodic reconciliation sweep against the provider.
package main

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/rs/zerolog"

	"github.com/NzeStan/Material-Wear-sub002/internal/config"
	"github.com/NzeStan/Material-Wear-sub002/internal/dispatch"
	"github.com/NzeStan/Material-Wear-sub002/internal/kafka"
	"github.com/NzeStan/Material-Wear-sub002/internal/notify"
	"github.com/NzeStan/Material-Wear-sub002/internal/paystack"
	"github.com/NzeStan/Material-Wear-sub002/internal/rabbitmq"
	"github.com/NzeStan/Material-Wear-sub002/internal/reconcile"
	"github.com/NzeStan/Material-Wear-sub002/internal/roster"
	"github.com/NzeStan/Material-Wear-sub002/internal/store/postgres"
	"github.com/NzeStan/Material-Wear-sub002/internal/worker"
)

const consumerGroup = "dispatchd"

func main() {
	log := zerolog.New(os.Stdout).With().Timestamp().Str("service", "dispatchd").Logger()

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
	participants := postgres.NewParticipantStore(db)
	coupons := postgres.NewCouponStore(db)

	rabbitClient, err := rabbitmq.NewClient(cfg.GetRabbitMQURL())
	if err != nil {
		log.Fatal().Err(err).Msg("connect rabbitmq failed")
	}

	for _, q := range []string{notify.EmailQueue, notify.ReceiptQueue} {
		if err := rabbitClient.CreateQueue(q); err != nil {
			log.Fatal().Err(err).Str("queue", q).Msg("declare queue failed")
		}
	}

	producer := kafka.NewKafkaProducer(cfg.GetKafkaBroker(), cfg.GetKafkaTopic())
	consumer := kafka.NewConsumer([]string{cfg.GetKafkaBroker()}, cfg.GetKafkaTopic(), consumerGroup, log)

	payClient := paystack.NewClient(cfg.PaystackBaseURL, cfg.PaystackSecretKey, log)
	engine := reconcile.NewEngine(cfg.PaystackSecretKey, entries, campaigns, producer, log)

	dispatcher := dispatch.NewDispatcher(
		entries,
		bulkOrders,
		campaigns,
		participants,
		coupons,
		roster.NewHTTPFetcher(),
		rabbitClient,
		log,
	)

	var mailer notify.Mailer
	if cfg.SMTPAddr != "" {
		mailer = notify.NewSMTPMailer(cfg.SMTPAddr, cfg.SMTPFrom)
	} else {
		log.Warn().Msg("SMTP_ADDR not set, emails will be logged instead of sent")
		mailer = notify.NewLogMailer(log)
	}
	mailWorker := notify.NewWorker(rabbitClient, mailer, log)

	sweeper := worker.NewReconciler(entries, campaigns, payClient, engine, log)

	ctx, cancel := context.WithCancel(context.Background())
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		consumer.Start(ctx, dispatcher.Handle)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := mailWorker.Run(ctx); err != nil {
			log.Error().Err(err).Msg("mail worker stopped")
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		sweeper.Start(ctx)
	}()

	log.Info().Msg("dispatch worker running")

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	sig := <-stop
	log.Info().Str("signal", sig.String()).Msg("shutting down")

	cancel()
	wg.Wait()

	if err := consumer.Close(); err != nil {
		log.Error().Err(err).Msg("close kafka consumer failed")
	}
	if err := producer.Close(); err != nil {
		log.Error().Err(err).Msg("close kafka producer failed")
	}
	if err := rabbitClient.Close(); err != nil {
		log.Error().Err(err).Msg("close rabbitmq failed")
	}
}
