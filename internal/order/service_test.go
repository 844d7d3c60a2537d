package order

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/NzeStan/Material-Wear-sub002/internal/coupon"
	"github.com/NzeStan/Material-Wear-sub002/internal/paystack"
)

type fakeBulkOrderStore struct {
	orders map[uuid.UUID]*BulkOrder
}

func (f *fakeBulkOrderStore) CreateBulkOrder(_ context.Context, bo *BulkOrder) error {
	f.orders[bo.ID] = bo
	return nil
}

func (f *fakeBulkOrderStore) GetBulkOrder(_ context.Context, id uuid.UUID) (*BulkOrder, error) {
	bo, ok := f.orders[id]
	if !ok {
		return nil, ErrBulkOrderNotFound
	}
	return bo, nil
}

type fakeEntryStore struct {
	entries   map[uuid.UUID]*OrderEntry
	createErr error
}

func (f *fakeEntryStore) CreateEntry(_ context.Context, e *OrderEntry) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.entries[e.ID] = e
	return nil
}

func (f *fakeEntryStore) GetEntry(_ context.Context, _, entryID uuid.UUID) (*OrderEntry, error) {
	e, ok := f.entries[entryID]
	if !ok {
		return nil, ErrEntryNotFound
	}
	return e, nil
}

func (f *fakeEntryStore) ConfirmPayment(_ context.Context, _, _ uuid.UUID, _ string) (ConfirmResult, error) {
	return ConfirmNotFound, nil
}

func (f *fakeEntryStore) ListUnpaidBefore(_ context.Context, _ time.Time, _ int) ([]*OrderEntry, error) {
	return nil, nil
}

type fakeCouponStore struct {
	valid    map[string]uuid.UUID // code -> pool it belongs to
	redeemed []string
}

func (f *fakeCouponStore) Seed(_ context.Context, poolID uuid.UUID, codes []string) error {
	for _, c := range codes {
		f.valid[c] = poolID
	}
	return nil
}

func (f *fakeCouponStore) Redeem(_ context.Context, poolID uuid.UUID, code, _ string) (bool, error) {
	owner, ok := f.valid[code]
	if !ok || owner != poolID {
		return false, nil
	}
	delete(f.valid, code)
	f.redeemed = append(f.redeemed, code)
	return true, nil
}

type fakePayments struct {
	calls []paystack.InitializeRequest
	err   error
}

func (f *fakePayments) InitializeTransaction(_ context.Context, req paystack.InitializeRequest) (*paystack.InitializeResult, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.calls = append(f.calls, req)
	return &paystack.InitializeResult{
		AuthorizationURL: "https://checkout.paystack.com/" + req.Reference,
		AccessCode:       "ac_" + req.Reference,
		Reference:        req.Reference,
	}, nil
}

func newTestService() (*Service, *fakeBulkOrderStore, *fakeEntryStore, *fakeCouponStore, *fakePayments) {
	bulkOrders := &fakeBulkOrderStore{orders: make(map[uuid.UUID]*BulkOrder)}
	entries := &fakeEntryStore{entries: make(map[uuid.UUID]*OrderEntry)}
	coupons := &fakeCouponStore{valid: make(map[string]uuid.UUID)}
	payments := &fakePayments{}
	svc := NewService(bulkOrders, entries, coupons, payments, "https://materialwear.example/payments/thank-you", zerolog.Nop())
	return svc, bulkOrders, entries, coupons, payments
}

func TestSubmitEntryInitializesPayment(t *testing.T) {
	svc, _, entries, _, payments := newTestService()

	bo, err := svc.CreateBulkOrder(context.Background(), "Dept Hoodie Drive", 750000)
	if err != nil {
		t.Fatalf("CreateBulkOrder: %v", err)
	}

	res, err := svc.SubmitEntry(context.Background(), bo.ID, SubmitEntryInput{
		FullName: "Ada Obi",
		Email:    "ada@example.com",
		Size:     "M",
	})
	if err != nil {
		t.Fatalf("SubmitEntry: %v", err)
	}

	if res.Entry.Paid {
		t.Error("entry must start unpaid when no coupon is given")
	}
	if res.Entry.AmountKobo != 750000 {
		t.Errorf("amount = %d, want unit price 750000", res.Entry.AmountKobo)
	}
	if len(payments.calls) != 1 {
		t.Fatalf("expected one provider initialization, got %d", len(payments.calls))
	}

	wantPrefix := "ORDER-" + bo.ID.String() + "-"
	if !strings.HasPrefix(res.Reference, wantPrefix) {
		t.Errorf("reference %q does not start with %q", res.Reference, wantPrefix)
	}
	if payments.calls[0].Reference != res.Reference {
		t.Errorf("provider got reference %q, result says %q", payments.calls[0].Reference, res.Reference)
	}
	if res.PaymentURL == "" {
		t.Error("expected a checkout URL")
	}
	if _, ok := entries.entries[res.Entry.ID]; !ok {
		t.Error("entry was not persisted")
	}
}

func TestSubmitEntrySettledByCoupon(t *testing.T) {
	svc, _, _, coupons, payments := newTestService()

	bo, _ := svc.CreateBulkOrder(context.Background(), "Class of 2026 Tees", 500000)
	if err := svc.SeedCoupons(context.Background(), bo.ID, []string{"FREE-TEE-01"}); err != nil {
		t.Fatalf("SeedCoupons: %v", err)
	}

	res, err := svc.SubmitEntry(context.Background(), bo.ID, SubmitEntryInput{
		FullName:   "Bisi Ade",
		Email:      "bisi@example.com",
		Size:       "L",
		CouponCode: "FREE-TEE-01",
	})
	if err != nil {
		t.Fatalf("SubmitEntry: %v", err)
	}

	if !res.Entry.Paid {
		t.Error("coupon submission must settle the entry")
	}
	if res.Entry.PaidAt == nil {
		t.Error("settled entry must carry a paid timestamp")
	}
	if res.PaymentURL != "" || res.Reference != "" {
		t.Error("no checkout link should be issued for a settled entry")
	}
	if len(payments.calls) != 0 {
		t.Errorf("provider must not be called, got %d calls", len(payments.calls))
	}
	if len(coupons.redeemed) != 1 || coupons.redeemed[0] != "FREE-TEE-01" {
		t.Errorf("coupon not redeemed: %v", coupons.redeemed)
	}
}

func TestSubmitEntryRejectsBadCoupon(t *testing.T) {
	svc, _, entries, _, _ := newTestService()

	bo, _ := svc.CreateBulkOrder(context.Background(), "Faculty Polos", 400000)

	_, err := svc.SubmitEntry(context.Background(), bo.ID, SubmitEntryInput{
		FullName:   "Chidi Eze",
		Email:      "chidi@example.com",
		Size:       "XL",
		CouponCode: "NOT-A-CODE",
	})
	if !errors.Is(err, coupon.ErrCouponRejected) {
		t.Fatalf("err = %v, want ErrCouponRejected", err)
	}
	if len(entries.entries) != 0 {
		t.Error("no entry may be created when the coupon is rejected")
	}
}

func TestSubmitEntryUnknownBulkOrder(t *testing.T) {
	svc, _, _, _, _ := newTestService()

	_, err := svc.SubmitEntry(context.Background(), uuid.New(), SubmitEntryInput{
		FullName: "Ngozi Okoro",
		Email:    "ngozi@example.com",
		Size:     "S",
	})
	if !errors.Is(err, ErrBulkOrderNotFound) {
		t.Fatalf("err = %v, want ErrBulkOrderNotFound", err)
	}
}

func TestSubmitEntryValidation(t *testing.T) {
	svc, _, _, _, _ := newTestService()
	bo, _ := svc.CreateBulkOrder(context.Background(), "Hoodies", 100000)

	tests := []struct {
		name string
		in   SubmitEntryInput
	}{
		{"missing name", SubmitEntryInput{Email: "a@b.c", Size: "M"}},
		{"missing email", SubmitEntryInput{FullName: "A", Size: "M"}},
		{"missing size", SubmitEntryInput{FullName: "A", Email: "a@b.c"}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := svc.SubmitEntry(context.Background(), bo.ID, tc.in); !errors.Is(err, ErrInvalidSubmission) {
				t.Errorf("err = %v, want ErrInvalidSubmission", err)
			}
		})
	}
}

func TestCreateBulkOrderValidation(t *testing.T) {
	svc, _, _, _, _ := newTestService()

	if _, err := svc.CreateBulkOrder(context.Background(), "  ", 1000); !errors.Is(err, ErrInvalidSubmission) {
		t.Errorf("blank title: err = %v, want ErrInvalidSubmission", err)
	}
	if _, err := svc.CreateBulkOrder(context.Background(), "Tees", 0); !errors.Is(err, ErrInvalidSubmission) {
		t.Errorf("zero amount: err = %v, want ErrInvalidSubmission", err)
	}
}
