package notify

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"
)

type fakeAcker struct {
	mu     sync.Mutex
	acked  []uint64
	nacked []uint64
}

func (f *fakeAcker) Ack(tag uint64, _ bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.acked = append(f.acked, tag)
	return nil
}

func (f *fakeAcker) Nack(tag uint64, _ bool, _ bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nacked = append(f.nacked, tag)
	return nil
}

func (f *fakeAcker) Reject(tag uint64, _ bool) error { return f.Nack(tag, false, false) }

type fakeSource struct {
	ch chan amqp.Delivery
}

func (f *fakeSource) Consume(_ string) (<-chan amqp.Delivery, error) { return f.ch, nil }

type recordingMailer struct {
	mu   sync.Mutex
	sent []Message
	err  error
}

func (m *recordingMailer) Send(_ context.Context, msg Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, msg)
	return nil
}

func TestWorkerDeliversAndAcks(t *testing.T) {
	acker := &fakeAcker{}
	src := &fakeSource{ch: make(chan amqp.Delivery, 1)}
	mailer := &recordingMailer{}
	w := NewWorker(src, mailer, zerolog.Nop())

	job := EmailJob{
		Type:    JobOrderReceipt,
		To:      "ada@example.com",
		Subject: "Payment received",
		Fields: map[string]string{
			"name": "Ada", "amount": "NGN 7,500.00", "item": "Hoodie",
			"size": "M", "reference": "ORDER-x",
		},
	}
	body, _ := json.Marshal(job)
	src.ch <- amqp.Delivery{Acknowledger: acker, DeliveryTag: 7, Body: body}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = w.Run(ctx)
		close(done)
	}()

	waitFor(t, func() bool {
		mailer.mu.Lock()
		defer mailer.mu.Unlock()
		return len(mailer.sent) == 1
	})
	cancel()
	<-done

	if mailer.sent[0].To != "ada@example.com" {
		t.Errorf("sent to %q", mailer.sent[0].To)
	}
	if !strings.Contains(mailer.sent[0].Body, "Hoodie") {
		t.Errorf("body missing item: %q", mailer.sent[0].Body)
	}

	acker.mu.Lock()
	defer acker.mu.Unlock()
	if len(acker.acked) != 1 || acker.acked[0] != 7 {
		t.Errorf("acked = %v, want [7]", acker.acked)
	}
}

func TestWorkerRequeuesOnSendFailure(t *testing.T) {
	acker := &fakeAcker{}
	src := &fakeSource{ch: make(chan amqp.Delivery, 1)}
	mailer := &recordingMailer{err: errors.New("relay down")}
	w := NewWorker(src, mailer, zerolog.Nop())

	body, _ := json.Marshal(EmailJob{Type: JobOrderReceipt, To: "x@y.z"})
	src.ch <- amqp.Delivery{Acknowledger: acker, DeliveryTag: 3, Body: body}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = w.Run(ctx)
		close(done)
	}()

	waitFor(t, func() bool {
		acker.mu.Lock()
		defer acker.mu.Unlock()
		return len(acker.nacked) == 1
	})
	cancel()
	<-done

	acker.mu.Lock()
	defer acker.mu.Unlock()
	if len(acker.acked) != 0 {
		t.Errorf("nothing may be acked on failure, got %v", acker.acked)
	}
}

func TestWorkerDropsUnreadableJob(t *testing.T) {
	acker := &fakeAcker{}
	src := &fakeSource{ch: make(chan amqp.Delivery, 1)}
	mailer := &recordingMailer{}
	w := NewWorker(src, mailer, zerolog.Nop())

	src.ch <- amqp.Delivery{Acknowledger: acker, DeliveryTag: 9, Body: []byte("{not json")}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = w.Run(ctx)
		close(done)
	}()

	waitFor(t, func() bool {
		acker.mu.Lock()
		defer acker.mu.Unlock()
		return len(acker.nacked) == 1
	})
	cancel()
	<-done

	mailer.mu.Lock()
	defer mailer.mu.Unlock()
	if len(mailer.sent) != 0 {
		t.Error("unreadable job must not reach the mailer")
	}
}

func TestRenderEmailBodies(t *testing.T) {
	receipt := RenderEmail(EmailJob{
		Type:    JobOrderReceipt,
		To:      "ada@example.com",
		Subject: "Payment received",
		Fields: map[string]string{
			"name": "Ada", "amount": "NGN 5,000.00", "item": "Tee",
			"size": "M", "reference": "ORDER-abc",
		},
	})
	if !strings.Contains(receipt.Body, "ORDER-abc") || !strings.Contains(receipt.Body, "Ada") {
		t.Errorf("receipt body = %q", receipt.Body)
	}

	summary := RenderEmail(EmailJob{
		Type:    JobCampaignSummary,
		To:      "coord@example.com",
		Subject: "Campaign confirmed",
		Fields: map[string]string{
			"name": "Bisi", "amount": "NGN 1500.00", "title": "ENG Hoodies",
			"participants": "3", "reference": "EXL-ABCDEF123456",
		},
	})
	if !strings.Contains(summary.Body, "3 participants") {
		t.Errorf("summary body = %q", summary.Body)
	}
}

func TestFormatAmount(t *testing.T) {
	if got := FormatAmount(150000); got != "NGN 1500.00" {
		t.Errorf("FormatAmount(150000) = %q", got)
	}
	if got := FormatAmount(5000); got != "NGN 50.00" {
		t.Errorf("FormatAmount(5000) = %q", got)
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("condition not reached in time")
}
