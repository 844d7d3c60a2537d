package dispatch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/xuri/excelize/v2"

	"github.com/NzeStan/Material-Wear-sub002/internal/campaign"
	"github.com/NzeStan/Material-Wear-sub002/internal/events"
	"github.com/NzeStan/Material-Wear-sub002/internal/notify"
	"github.com/NzeStan/Material-Wear-sub002/internal/order"
)

type fakeEntryStore struct {
	entry *order.OrderEntry
}

func (s *fakeEntryStore) CreateEntry(context.Context, *order.OrderEntry) error { return nil }

func (s *fakeEntryStore) GetEntry(_ context.Context, bulkOrderID, entryID uuid.UUID) (*order.OrderEntry, error) {
	if s.entry == nil || s.entry.ID != entryID || s.entry.BulkOrderID != bulkOrderID {
		return nil, order.ErrEntryNotFound
	}
	cp := *s.entry
	return &cp, nil
}

func (s *fakeEntryStore) ConfirmPayment(context.Context, uuid.UUID, uuid.UUID, string) (order.ConfirmResult, error) {
	return order.ConfirmReplay, nil
}

func (s *fakeEntryStore) ListUnpaidBefore(context.Context, time.Time, int) ([]*order.OrderEntry, error) {
	return nil, nil
}

type fakeBulkOrderStore struct {
	bo *order.BulkOrder
}

func (s *fakeBulkOrderStore) CreateBulkOrder(context.Context, *order.BulkOrder) error { return nil }

func (s *fakeBulkOrderStore) GetBulkOrder(_ context.Context, id uuid.UUID) (*order.BulkOrder, error) {
	if s.bo == nil || s.bo.ID != id {
		return nil, order.ErrBulkOrderNotFound
	}
	cp := *s.bo
	return &cp, nil
}

type fakeCampaignStore struct {
	c *campaign.Campaign
}

func (s *fakeCampaignStore) Create(context.Context, *campaign.Campaign) error { return nil }

func (s *fakeCampaignStore) GetByCode(_ context.Context, code string) (*campaign.Campaign, error) {
	if s.c == nil || s.c.ReferenceCode != code {
		return nil, campaign.ErrCampaignNotFound
	}
	cp := *s.c
	return &cp, nil
}

func (s *fakeCampaignStore) AttachSheet(context.Context, string, string) error { return nil }

func (s *fakeCampaignStore) MarkValidated(context.Context, string, int, int64) error { return nil }

func (s *fakeCampaignStore) MarkProcessing(context.Context, string) error { return nil }

func (s *fakeCampaignStore) ConfirmPayment(context.Context, string, string) (campaign.ConfirmResult, error) {
	return campaign.ConfirmReplay, nil
}

func (s *fakeCampaignStore) ListUnpaidBefore(context.Context, time.Time, int) ([]*campaign.Campaign, error) {
	return nil, nil
}

func (s *fakeCampaignStore) ListPaidWithoutParticipants(context.Context, time.Time, int) ([]*campaign.Campaign, error) {
	return nil, nil
}

type fakeParticipantStore struct {
	mu   sync.Mutex
	rows map[string]campaign.Participant
	err  error
}

func newFakeParticipantStore() *fakeParticipantStore {
	return &fakeParticipantStore{rows: make(map[string]campaign.Participant)}
}

func (s *fakeParticipantStore) CreateParticipant(_ context.Context, p *campaign.Participant) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return false, s.err
	}
	key := fmt.Sprintf("%s/%d", p.CampaignID, p.RowNo)
	if _, ok := s.rows[key]; ok {
		return false, nil
	}
	s.rows[key] = *p
	return true, nil
}

func (s *fakeParticipantStore) CountByCampaign(context.Context, uuid.UUID) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.rows), nil
}

func (s *fakeParticipantStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.rows)
}

type fakeCouponStore struct {
	pool    uuid.UUID
	codes   map[string]bool
	redeems int
}

func (s *fakeCouponStore) Seed(context.Context, uuid.UUID, []string) error { return nil }

func (s *fakeCouponStore) Redeem(_ context.Context, poolID uuid.UUID, code, _ string) (bool, error) {
	s.redeems++
	if poolID != s.pool {
		return false, nil
	}
	used, ok := s.codes[code]
	if !ok || used {
		return false, nil
	}
	s.codes[code] = true
	return true, nil
}

type fakeFetcher struct {
	data []byte
	err  error
}

func (f *fakeFetcher) Fetch(context.Context, string) ([]byte, error) {
	return f.data, f.err
}

type fakeQueue struct {
	mu   sync.Mutex
	jobs map[string][][]byte
	err  error
}

func newFakeQueue() *fakeQueue {
	return &fakeQueue{jobs: make(map[string][][]byte)}
}

func (q *fakeQueue) Publish(_ context.Context, queueName string, body []byte) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.err != nil {
		return q.err
	}
	q.jobs[queueName] = append(q.jobs[queueName], body)
	return nil
}

func (q *fakeQueue) queued(queueName string) [][]byte {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.jobs[queueName]
}

func buildSheet(t *testing.T, rows [][]string) []byte {
	t.Helper()

	f := excelize.NewFile()
	defer f.Close()

	sheet := f.GetSheetName(0)
	for r, cells := range rows {
		for c, val := range cells {
			axis, err := excelize.CoordinatesToCellName(c+1, r+1)
			if err != nil {
				t.Fatalf("cell name: %v", err)
			}
			if err := f.SetCellValue(sheet, axis, val); err != nil {
				t.Fatalf("set cell: %v", err)
			}
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		t.Fatalf("write workbook: %v", err)
	}
	return buf.Bytes()
}

func eventBytes(t *testing.T, evt events.PaymentConfirmed) []byte {
	t.Helper()
	b, err := json.Marshal(evt)
	if err != nil {
		t.Fatalf("marshal event: %v", err)
	}
	return b
}

func TestHandleDirectOrderEnqueuesReceipts(t *testing.T) {
	boID := uuid.New()
	entryID := uuid.New()
	ref := "ORDER-" + boID.String() + "-" + entryID.String()

	entries := &fakeEntryStore{entry: &order.OrderEntry{
		ID:          entryID,
		BulkOrderID: boID,
		FullName:    "Ada Obi",
		Email:       "ada@example.com",
		Size:        "M",
		AmountKobo:  5000,
		Paid:        true,
	}}
	bulkOrders := &fakeBulkOrderStore{bo: &order.BulkOrder{ID: boID, Title: "Finalists Hoodie"}}
	queue := newFakeQueue()

	d := NewDispatcher(entries, bulkOrders, &fakeCampaignStore{}, newFakeParticipantStore(), &fakeCouponStore{}, &fakeFetcher{}, queue, zerolog.Nop())

	value := eventBytes(t, events.PaymentConfirmed{
		Event:       events.TypePaymentConfirmed,
		Kind:        events.KindDirectOrder,
		Reference:   ref,
		BulkOrderID: boID,
		EntryID:     entryID,
		ProviderRef: "42",
		AmountKobo:  5000,
	})

	if err := d.Handle(context.Background(), []byte(ref), value); err != nil {
		t.Fatalf("Handle: %v", err)
	}

	emails := queue.queued(notify.EmailQueue)
	if len(emails) != 1 {
		t.Fatalf("email jobs = %d, want 1", len(emails))
	}
	var job notify.EmailJob
	if err := json.Unmarshal(emails[0], &job); err != nil {
		t.Fatalf("unmarshal email job: %v", err)
	}
	if job.Type != notify.JobOrderReceipt {
		t.Errorf("job type = %q, want %q", job.Type, notify.JobOrderReceipt)
	}
	if job.To != "ada@example.com" {
		t.Errorf("job to = %q", job.To)
	}
	if job.Fields["reference"] != ref {
		t.Errorf("job reference = %q, want %q", job.Fields["reference"], ref)
	}
	if job.Fields["amount"] != notify.FormatAmount(5000) {
		t.Errorf("job amount = %q", job.Fields["amount"])
	}

	receipts := queue.queued(notify.ReceiptQueue)
	if len(receipts) != 1 {
		t.Fatalf("receipt jobs = %d, want 1", len(receipts))
	}
	var receipt notify.ReceiptJob
	if err := json.Unmarshal(receipts[0], &receipt); err != nil {
		t.Fatalf("unmarshal receipt job: %v", err)
	}
	if receipt.EntryID != entryID || receipt.BulkOrderID != boID || receipt.AmountKobo != 5000 {
		t.Errorf("receipt job = %+v", receipt)
	}
}

func TestHandleCampaignMaterializesRoster(t *testing.T) {
	campaignID := uuid.New()
	c := &campaign.Campaign{
		ID:               campaignID,
		ReferenceCode:    "EXL-ABCDEF123456",
		Title:            "ENG Finalists Hoodies",
		CoordinatorName:  "Bisi Ade",
		CoordinatorEmail: "bisi@example.com",
		UnitAmountKobo:   50000,
		AmountKobo:       150000,
		Status:           campaign.StatusCompleted,
		SheetURL:         "https://sheets.example/roster.xlsx",
		RowCount:         3,
		Paid:             true,
	}

	sheet := buildSheet(t, [][]string{
		{"Name", "Size", "Coupon"},
		{"Ada Obi", "M", ""},
		{"Chidi Eze", "L", "EARLYBIRD"},
		{"Ngozi Uba", "S", ""},
	})

	participants := newFakeParticipantStore()
	coupons := &fakeCouponStore{pool: campaignID, codes: map[string]bool{"EARLYBIRD": false}}
	queue := newFakeQueue()

	d := NewDispatcher(&fakeEntryStore{}, &fakeBulkOrderStore{}, &fakeCampaignStore{c: c}, participants, coupons, &fakeFetcher{data: sheet}, queue, zerolog.Nop())

	value := eventBytes(t, events.PaymentConfirmed{
		Event:        events.TypePaymentConfirmed,
		Kind:         events.KindCampaign,
		Reference:    c.ReferenceCode,
		CampaignCode: c.ReferenceCode,
		ProviderRef:  "77",
		AmountKobo:   150000,
	})

	if err := d.Handle(context.Background(), []byte(c.ReferenceCode), value); err != nil {
		t.Fatalf("Handle: %v", err)
	}

	if participants.count() != 3 {
		t.Errorf("participants = %d, want 3", participants.count())
	}
	if !coupons.codes["EARLYBIRD"] {
		t.Error("roster coupon must be consumed")
	}

	emails := queue.queued(notify.EmailQueue)
	if len(emails) != 1 {
		t.Fatalf("email jobs = %d, want 1", len(emails))
	}
	var job notify.EmailJob
	if err := json.Unmarshal(emails[0], &job); err != nil {
		t.Fatalf("unmarshal email job: %v", err)
	}
	if job.Type != notify.JobCampaignSummary || job.To != "bisi@example.com" {
		t.Errorf("job = %+v", job)
	}
	if job.Fields["participants"] != "3" {
		t.Errorf("participants field = %q, want 3", job.Fields["participants"])
	}

	// Redelivered event: rows already exist, nothing double-creates and the
	// consumed coupon is not touched again.
	redeemsBefore := coupons.redeems
	if err := d.Handle(context.Background(), []byte(c.ReferenceCode), value); err != nil {
		t.Fatalf("redelivered Handle: %v", err)
	}
	if participants.count() != 3 {
		t.Errorf("participants after redelivery = %d, want 3", participants.count())
	}
	if coupons.redeems != redeemsBefore {
		t.Error("redelivery must not re-redeem coupons for existing rows")
	}
}

func TestHandleCampaignStaleCouponContinues(t *testing.T) {
	campaignID := uuid.New()
	c := &campaign.Campaign{
		ID:               campaignID,
		ReferenceCode:    "EXL-AAAABBBB1234",
		Title:            "Alumni Tees",
		CoordinatorEmail: "coord@example.com",
		SheetURL:         "https://sheets.example/roster.xlsx",
		Paid:             true,
	}
	sheet := buildSheet(t, [][]string{
		{"Ada Obi", "M", "NOSUCHCODE"},
		{"Chidi Eze", "L", ""},
	})

	participants := newFakeParticipantStore()
	coupons := &fakeCouponStore{pool: campaignID, codes: map[string]bool{}}
	queue := newFakeQueue()

	d := NewDispatcher(&fakeEntryStore{}, &fakeBulkOrderStore{}, &fakeCampaignStore{c: c}, participants, coupons, &fakeFetcher{data: sheet}, queue, zerolog.Nop())

	value := eventBytes(t, events.PaymentConfirmed{
		Event:        events.TypePaymentConfirmed,
		Kind:         events.KindCampaign,
		Reference:    c.ReferenceCode,
		CampaignCode: c.ReferenceCode,
	})

	if err := d.Handle(context.Background(), []byte(c.ReferenceCode), value); err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if participants.count() != 2 {
		t.Errorf("participants = %d, want 2", participants.count())
	}
	if len(queue.queued(notify.EmailQueue)) != 1 {
		t.Error("summary email must still be enqueued")
	}
}

func TestHandleDropsUndeliverableEvents(t *testing.T) {
	queue := newFakeQueue()
	d := NewDispatcher(&fakeEntryStore{}, &fakeBulkOrderStore{}, &fakeCampaignStore{}, newFakeParticipantStore(), &fakeCouponStore{}, &fakeFetcher{}, queue, zerolog.Nop())

	tests := []struct {
		name string
		evt  events.PaymentConfirmed
	}{
		{"wrong event type", events.PaymentConfirmed{Event: "shipment.created", Kind: events.KindDirectOrder}},
		{"unknown kind", events.PaymentConfirmed{Event: events.TypePaymentConfirmed, Kind: "voucher"}},
		{"entry missing", events.PaymentConfirmed{Event: events.TypePaymentConfirmed, Kind: events.KindDirectOrder, Reference: "ORDER-x", BulkOrderID: uuid.New(), EntryID: uuid.New()}},
		{"campaign missing", events.PaymentConfirmed{Event: events.TypePaymentConfirmed, Kind: events.KindCampaign, CampaignCode: "EXL-ZZZZZZZZZZZZ"}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if err := d.Handle(context.Background(), nil, eventBytes(t, tc.evt)); err != nil {
				t.Fatalf("Handle: %v", err)
			}
		})
	}

	if len(queue.queued(notify.EmailQueue))+len(queue.queued(notify.ReceiptQueue)) != 0 {
		t.Error("undeliverable events must not enqueue jobs")
	}

	if err := d.Handle(context.Background(), nil, []byte("not json")); err == nil {
		t.Error("unparseable message must surface an error for redelivery")
	}
}

func TestHandleCampaignEnqueueFailureSurfaces(t *testing.T) {
	campaignID := uuid.New()
	c := &campaign.Campaign{
		ID:               campaignID,
		ReferenceCode:    "EXL-CCCCDDDD5678",
		Title:            "Class Jackets",
		CoordinatorEmail: "coord@example.com",
		SheetURL:         "https://sheets.example/roster.xlsx",
		Paid:             true,
	}
	sheet := buildSheet(t, [][]string{{"Ada Obi", "M", ""}})

	participants := newFakeParticipantStore()
	queue := newFakeQueue()
	queue.err = errors.New("broker unreachable")

	d := NewDispatcher(&fakeEntryStore{}, &fakeBulkOrderStore{}, &fakeCampaignStore{c: c}, participants, &fakeCouponStore{}, &fakeFetcher{data: sheet}, queue, zerolog.Nop())

	value := eventBytes(t, events.PaymentConfirmed{
		Event:        events.TypePaymentConfirmed,
		Kind:         events.KindCampaign,
		Reference:    c.ReferenceCode,
		CampaignCode: c.ReferenceCode,
	})

	if err := d.Handle(context.Background(), []byte(c.ReferenceCode), value); err == nil {
		t.Fatal("enqueue failure must surface so the event is redelivered")
	}

	// The roster rows written before the failure stay; the retry skips them.
	if participants.count() != 1 {
		t.Errorf("participants = %d, want 1", participants.count())
	}
	queue.err = nil
	if err := d.Handle(context.Background(), []byte(c.ReferenceCode), value); err != nil {
		t.Fatalf("retry Handle: %v", err)
	}
	if participants.count() != 1 {
		t.Errorf("participants after retry = %d, want 1", participants.count())
	}
	if len(queue.queued(notify.EmailQueue)) != 1 {
		t.Errorf("summary emails = %d, want 1", len(queue.queued(notify.EmailQueue)))
	}
}
