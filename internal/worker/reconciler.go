// Package worker holds the reconciliation sweep. Webhooks get lost: the
// provider retries for a while and gives up, deploys drop in-flight
// deliveries, and a Kafka outage can leave a payment committed with its
// confirmed event unpublished. The sweep walks the records that look stuck
// and repairs them from the provider's answer.
package worker

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/NzeStan/Material-Wear-sub002/internal/campaign"
	"github.com/NzeStan/Material-Wear-sub002/internal/order"
	"github.com/NzeStan/Material-Wear-sub002/internal/paystack"
	"github.com/NzeStan/Material-Wear-sub002/internal/reconcile"
	"github.com/NzeStan/Material-Wear-sub002/internal/reference"
)

// Verifier asks the provider what really happened to a transaction.
// *paystack.Client satisfies it.
type Verifier interface {
	VerifyTransaction(ctx context.Context, ref string) (*paystack.ChargeData, error)
}

// Confirmer applies verified charges through the same idempotent transition
// the webhook uses. *reconcile.Engine satisfies it.
type Confirmer interface {
	ConfirmVerified(ctx context.Context, rawRef string, charge paystack.ChargeData) (*reconcile.Result, error)
	RepublishCampaign(ctx context.Context, c *campaign.Campaign) error
}

// Reconciler periodically finds records stuck between "checkout opened" and
// "payment confirmed" and syncs them with the provider. It also re-emits the
// confirmed event for paid campaigns whose roster never materialized, the
// gap a failed Kafka publish leaves behind.
type Reconciler struct {
	entries   order.EntryStore
	campaigns campaign.Store
	verifier  Verifier
	confirmer Confirmer
	log       zerolog.Logger

	interval    time.Duration
	minAge      time.Duration // leave young records alone, the webhook may still arrive
	batchSize   int
	workerCount int
}

func NewReconciler(
	entries order.EntryStore,
	campaigns campaign.Store,
	verifier Verifier,
	confirmer Confirmer,
	log zerolog.Logger,
) *Reconciler {
	return &Reconciler{
		entries:     entries,
		campaigns:   campaigns,
		verifier:    verifier,
		confirmer:   confirmer,
		log:         log.With().Str("component", "reconciler").Logger(),
		interval:    5 * time.Minute,
		minAge:      10 * time.Minute,
		batchSize:   50,
		workerCount: 5,
	}
}

// Start runs the sweep loop until ctx is cancelled. Blocking call.
func (r *Reconciler) Start(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	r.log.Info().Dur("interval", r.interval).Msg("reconciler started")

	for {
		select {
		case <-ctx.Done():
			r.log.Info().Msg("reconciler stopping")
			return
		case <-ticker.C:
			r.runCycle(ctx)
		}
	}
}

func (r *Reconciler) runCycle(ctx context.Context) {
	cutoff := time.Now().UTC().Add(-r.minAge)
	refs := r.collectStaleReferences(ctx, cutoff)
	if len(refs) > 0 {
		r.log.Info().Int("count", len(refs)).Msg("verifying stale unpaid references")
		r.verifyAll(ctx, refs)
	}
	r.repairUndispatched(ctx, cutoff)
}

func (r *Reconciler) collectStaleReferences(ctx context.Context, cutoff time.Time) []string {
	var refs []string

	entries, err := r.entries.ListUnpaidBefore(ctx, cutoff, r.batchSize)
	if err != nil {
		r.log.Error().Err(err).Msg("list unpaid entries failed")
	} else {
		for _, e := range entries {
			refs = append(refs, reference.FormatDirectOrder(e.BulkOrderID, e.ID))
		}
	}

	campaigns, err := r.campaigns.ListUnpaidBefore(ctx, cutoff, r.batchSize)
	if err != nil {
		r.log.Error().Err(err).Msg("list unpaid campaigns failed")
	} else {
		for _, c := range campaigns {
			refs = append(refs, c.ReferenceCode)
		}
	}

	return refs
}

// verifyAll fans the references out over a bounded worker pool.
func (r *Reconciler) verifyAll(ctx context.Context, refs []string) {
	jobs := make(chan string, len(refs))
	var wg sync.WaitGroup

	for w := 0; w < r.workerCount; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for ref := range jobs {
				if err := r.syncReference(ctx, ref); err != nil {
					r.log.Error().Err(err).Str("reference", ref).Msg("reconciliation failed")
				}
			}
		}()
	}

	for _, ref := range refs {
		jobs <- ref
	}
	close(jobs)
	wg.Wait()
}

// syncReference asks the provider about one reference and applies the answer.
func (r *Reconciler) syncReference(ctx context.Context, ref string) error {
	charge, err := r.verifier.VerifyTransaction(ctx, ref)
	if err != nil {
		if errors.Is(err, paystack.ErrTransactionNotFound) {
			// Checkout was never completed on the provider side. Nothing to
			// reconcile; the record stays unpaid.
			return nil
		}
		return err
	}

	if charge.Status != paystack.StatusSuccess {
		// Abandoned or still pending on the provider side. Leave it.
		return nil
	}

	res, err := r.confirmer.ConfirmVerified(ctx, ref, *charge)
	if err != nil {
		return err
	}
	if res.Outcome == reconcile.OutcomeConfirmed {
		r.log.Info().Str("reference", ref).Msg("recovered payment the webhook never delivered")
	}
	return nil
}

// repairUndispatched re-publishes the confirmed event for paid campaigns
// with no participants. The dispatcher is idempotent, so over-delivery here
// costs nothing beyond a duplicate summary email.
func (r *Reconciler) repairUndispatched(ctx context.Context, cutoff time.Time) {
	stuck, err := r.campaigns.ListPaidWithoutParticipants(ctx, cutoff, r.batchSize)
	if err != nil {
		r.log.Error().Err(err).Msg("list undispatched campaigns failed")
		return
	}

	for _, c := range stuck {
		if err := r.confirmer.RepublishCampaign(ctx, c); err != nil {
			r.log.Error().Err(err).Str("reference", c.ReferenceCode).Msg("republish failed")
			continue
		}
		r.log.Info().Str("reference", c.ReferenceCode).Msg("re-emitted confirmed event for undispatched campaign")
	}
}
