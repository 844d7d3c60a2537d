package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"
)

// Source provides deliveries from a named queue. *rabbitmq.Client satisfies it.
type Source interface {
	Consume(queueName string) (<-chan amqp.Delivery, error)
}

// Worker consumes the email queue and delivers each job through the Mailer.
type Worker struct {
	source Source
	mailer Mailer
	log    zerolog.Logger
}

func NewWorker(source Source, mailer Mailer, log zerolog.Logger) *Worker {
	return &Worker{
		source: source,
		mailer: mailer,
		log:    log.With().Str("component", "email_worker").Logger(),
	}
}

// Run consumes EmailQueue until ctx is cancelled or the channel closes.
func (w *Worker) Run(ctx context.Context) error {
	msgs, err := w.source.Consume(EmailQueue)
	if err != nil {
		return fmt.Errorf("consume %s: %w", EmailQueue, err)
	}

	w.log.Info().Str("queue", EmailQueue).Msg("email worker started")

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("email worker stopping")
			return nil
		case d, ok := <-msgs:
			if !ok {
				return nil
			}
			w.handle(ctx, d)
		}
	}
}

func (w *Worker) handle(ctx context.Context, d amqp.Delivery) {
	var job EmailJob
	if err := json.Unmarshal(d.Body, &job); err != nil {
		// Unreadable jobs never become readable; drop without requeue.
		w.log.Error().Err(err).Msg("email job unreadable, dropping")
		_ = d.Nack(false, false)
		return
	}

	msg := RenderEmail(job)
	if err := w.mailer.Send(ctx, msg); err != nil {
		w.log.Error().Err(err).
			Str("type", job.Type).
			Str("to", msg.To).
			Msg("email delivery failed, requeueing")
		_ = d.Nack(false, true)
		time.Sleep(time.Second)
		return
	}

	_ = d.Ack(false)
	w.log.Info().Str("type", job.Type).Str("to", msg.To).Msg("email delivered")
}
