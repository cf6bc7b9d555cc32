package settlement

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/gocql/gocql"

	"beautiz_back_end/internal/models"
)

// fakeStore rejoue la sémantique conditionnelle du magasin : le verrou de
// remboursement ne s'applique que si la ligne payment est encore 'paid'.
type fakeStore struct {
	mu       sync.Mutex
	offer    *models.Offer
	payments []models.Payment
	gaps     []models.ReconciliationGap
}

func (f *fakeStore) GetOffer(_ context.Context, id gocql.UUID) (*models.Offer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.offer == nil || f.offer.ID != id {
		return nil, gocql.ErrNotFound
	}
	cp := *f.offer
	return &cp, nil
}

func (f *fakeStore) UpdateOfferStatus(_ context.Context, offerID gocql.UUID, from, to string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.offer == nil || f.offer.ID != offerID || f.offer.Status != from {
		return false, nil
	}
	f.offer.Status = to
	return true, nil
}

func (f *fakeStore) PaymentsByOffer(_ context.Context, offerID gocql.UUID) ([]models.Payment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Payment
	for _, p := range f.payments {
		if p.OfferID == offerID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakeStore) ClaimPaymentRefund(_ context.Context, p *models.Payment, newStatus string, at time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.payments {
		if f.payments[i].ID == p.ID && f.payments[i].Status == models.PaymentPaid {
			f.payments[i].Status = newStatus
			f.payments[i].RefundedAt = &at
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeStore) RevertPaymentClaim(_ context.Context, p *models.Payment, claimedStatus string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.payments {
		if f.payments[i].ID == p.ID && f.payments[i].Status == claimedStatus {
			f.payments[i].Status = models.PaymentPaid
			f.payments[i].RefundedAt = nil
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeStore) SetPaymentRefundRef(_ context.Context, p *models.Payment, refundID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.payments {
		if f.payments[i].ID == p.ID {
			f.payments[i].StripeRefundID = refundID
		}
	}
	return nil
}

func (f *fakeStore) InsertReconciliationGap(_ context.Context, g *models.ReconciliationGap) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gaps = append(f.gaps, *g)
	return nil
}

func (f *fakeStore) paymentStatus() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.payments[0].Status
}

// fakeProcessor compte les appels et rejoue l'issue configurée
type fakeProcessor struct {
	mu    sync.Mutex
	calls []refundCall
	err   error
}

type refundCall struct {
	paymentIntentID      string
	amountCents          int64
	reverseTransfer      bool
	refundApplicationFee bool
}

func (p *fakeProcessor) CreateRefund(_ context.Context, paymentIntentID string, amountCents int64, reverseTransfer, refundApplicationFee bool) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls = append(p.calls, refundCall{paymentIntentID, amountCents, reverseTransfer, refundApplicationFee})
	if p.err != nil {
		return "", p.err
	}
	return "re_test_123", nil
}

func (p *fakeProcessor) callCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.calls)
}

// Mission à 40,00€ de prestation + 5,00€ de déplacement : 45,00€ brut,
// 4,50€ de commission, 40,50€ net.
func seedConfirmedMission(offerStatus string) *fakeStore {
	offerID := gocql.TimeUUID()
	return &fakeStore{
		offer: &models.Offer{
			ID:             offerID,
			ClientID:       "client-1",
			ProfessionalID: "pro-1",
			Service:        "coiffure",
			ServicePrice:   40.00,
			TravelFee:      5.00,
			Status:         offerStatus,
		},
		payments: []models.Payment{{
			ID:                gocql.TimeUUID(),
			OfferID:           offerID,
			ClientID:          "client-1",
			ProfessionalID:    "pro-1",
			AmountCents:       4500,
			ServicePriceCents: 4000,
			TravelFeeCents:    500,
			ApplicationFee:    450,
			NetAmountCents:    4050,
			PaymentIntentID:   "pi_test_1",
			Status:            models.PaymentPaid,
			CreatedAt:         time.Now(),
		}},
	}
}

func TestSettleCancellation(t *testing.T) {
	ctx := context.Background()

	t.Run("Given une mission payée When la pro annule Then remboursement intégral et commission rendue", func(t *testing.T) {
		store := seedConfirmedMission(models.OfferConfirmed)
		proc := &fakeProcessor{}
		e := NewEngine(store, proc, nil)

		result, err := e.SettleCancellation(ctx, store.offer.ID, ModeProfessionalCancel)
		if err != nil {
			t.Fatalf("SettleCancellation: %v", err)
		}
		if result.AmountCents != 4500 {
			t.Errorf("montant remboursé = %d, attendu 4500 (brut)", result.AmountCents)
		}
		if result.RefundID != "re_test_123" {
			t.Errorf("refund_id = %q", result.RefundID)
		}

		call := proc.calls[0]
		if !call.reverseTransfer || !call.refundApplicationFee {
			t.Errorf("annulation pro: transfert inversé ET commission rendue attendus, reçu %+v", call)
		}
		if store.paymentStatus() != models.PaymentRefunded {
			t.Errorf("paiement = %s, attendu refunded", store.paymentStatus())
		}
		if store.offer.Status != models.OfferCancelled {
			t.Errorf("mission = %s, attendu cancelled", store.offer.Status)
		}
	})

	t.Run("Given une annulation cliente approuvée When on règle Then seul le net est remboursé et la commission reste acquise", func(t *testing.T) {
		store := seedConfirmedMission(models.OfferCancelRequested)
		proc := &fakeProcessor{}
		e := NewEngine(store, proc, nil)

		result, err := e.SettleCancellation(ctx, store.offer.ID, ModeClientCancelApproved)
		if err != nil {
			t.Fatalf("SettleCancellation: %v", err)
		}
		if result.AmountCents != 4050 {
			t.Errorf("montant remboursé = %d, attendu 4050 (net)", result.AmountCents)
		}

		call := proc.calls[0]
		if !call.reverseTransfer {
			t.Error("le transfert vers la pro doit être inversé")
		}
		if call.refundApplicationFee {
			t.Error("la commission plateforme ne doit PAS être rendue")
		}
		if store.paymentStatus() != models.PaymentPartiallyRefunded {
			t.Errorf("paiement = %s, attendu partially_refunded", store.paymentStatus())
		}
	})

	t.Run("Given une mission déjà réglée When on règle à nouveau Then no-op sans second appel Stripe", func(t *testing.T) {
		store := seedConfirmedMission(models.OfferConfirmed)
		proc := &fakeProcessor{}
		e := NewEngine(store, proc, nil)

		if _, err := e.SettleCancellation(ctx, store.offer.ID, ModeProfessionalCancel); err != nil {
			t.Fatalf("premier règlement: %v", err)
		}
		result, err := e.SettleCancellation(ctx, store.offer.ID, ModeProfessionalCancel)
		if err != nil {
			t.Fatalf("second règlement: %v", err)
		}
		if !result.AlreadySettled {
			t.Error("le second règlement doit retourner already_settled")
		}
		if proc.callCount() != 1 {
			t.Fatalf("%d appels Stripe, attendu exactement 1", proc.callCount())
		}
	})

	t.Run("Given une mission proposed jamais payée When on règle Then ErrNotCancellable", func(t *testing.T) {
		store := seedConfirmedMission(models.OfferProposed)
		proc := &fakeProcessor{}
		e := NewEngine(store, proc, nil)

		_, err := e.SettleCancellation(ctx, store.offer.ID, ModeProfessionalCancel)
		if !errors.Is(err, ErrNotCancellable) {
			t.Fatalf("attendu ErrNotCancellable, reçu %v", err)
		}
		if proc.callCount() != 0 {
			t.Error("aucun appel Stripe attendu")
		}
	})

	t.Run("Given aucun paiement encaissé When on règle Then ErrNoPaidPayment", func(t *testing.T) {
		store := seedConfirmedMission(models.OfferConfirmed)
		store.payments = nil
		proc := &fakeProcessor{}
		e := NewEngine(store, proc, nil)

		_, err := e.SettleCancellation(ctx, store.offer.ID, ModeProfessionalCancel)
		if !errors.Is(err, ErrNoPaidPayment) {
			t.Fatalf("attendu ErrNoPaidPayment, reçu %v", err)
		}
	})

	t.Run("Given deux paiements paid sur la même mission When on règle Then ErrDataIntegrity et rien ne bouge", func(t *testing.T) {
		store := seedConfirmedMission(models.OfferConfirmed)
		dup := store.payments[0]
		dup.ID = gocql.TimeUUID()
		store.payments = append(store.payments, dup)
		proc := &fakeProcessor{}
		e := NewEngine(store, proc, nil)

		_, err := e.SettleCancellation(ctx, store.offer.ID, ModeProfessionalCancel)
		if !errors.Is(err, ErrDataIntegrity) {
			t.Fatalf("attendu ErrDataIntegrity, reçu %v", err)
		}
		if proc.callCount() != 0 {
			t.Error("aucun appel Stripe attendu sur une intégrité violée")
		}
		if store.offer.Status != models.OfferConfirmed {
			t.Errorf("la mission ne doit pas bouger, reçu %s", store.offer.Status)
		}
	})

	t.Run("Given un refus ferme de Stripe When on règle Then le paiement revient en paid", func(t *testing.T) {
		store := seedConfirmedMission(models.OfferConfirmed)
		proc := &fakeProcessor{err: &ProcessorError{Kind: KindDeclined, Err: errors.New("charge non remboursable")}}
		e := NewEngine(store, proc, nil)

		_, err := e.SettleCancellation(ctx, store.offer.ID, ModeProfessionalCancel)
		var procErr *ProcessorError
		if !errors.As(err, &procErr) || procErr.Kind != KindDeclined {
			t.Fatalf("attendu ProcessorError declined, reçu %v", err)
		}
		if store.paymentStatus() != models.PaymentPaid {
			t.Errorf("paiement = %s, attendu paid après relâche du verrou", store.paymentStatus())
		}
		if len(store.gaps) != 0 {
			t.Errorf("aucun écart attendu sur un refus ferme, reçu %d", len(store.gaps))
		}
	})

	t.Run("Given un timeout Stripe When on règle Then écart tracé, verrou gardé, jamais rejoué", func(t *testing.T) {
		store := seedConfirmedMission(models.OfferConfirmed)
		proc := &fakeProcessor{err: &ProcessorError{Kind: KindTimeout, Err: context.DeadlineExceeded}}
		alerted := make(chan models.ReconciliationGap, 1)
		e := NewEngine(store, proc, func(g models.ReconciliationGap) { alerted <- g })

		_, err := e.SettleCancellation(ctx, store.offer.ID, ModeProfessionalCancel)
		var procErr *ProcessorError
		if !errors.As(err, &procErr) || !procErr.MaybeSucceeded() {
			t.Fatalf("attendu ProcessorError à issue incertaine, reçu %v", err)
		}

		// L'argent a peut-être bougé : le verrou reste posé
		if store.paymentStatus() != models.PaymentRefunded {
			t.Errorf("paiement = %s, le verrou ne doit pas être relâché après timeout", store.paymentStatus())
		}
		if len(store.gaps) != 1 {
			t.Fatalf("%d écarts tracés, attendu 1", len(store.gaps))
		}
		select {
		case g := <-alerted:
			if g.Mode != ModeProfessionalCancel {
				t.Errorf("mode de l'alerte = %s", g.Mode)
			}
		case <-time.After(2 * time.Second):
			t.Fatal("le support doit être alerté de l'écart")
		}
		if proc.callCount() != 1 {
			t.Fatalf("%d appels Stripe, le moteur ne doit jamais rejouer", proc.callCount())
		}
	})

	t.Run("Given un remboursement déjà fait côté Stripe When on règle Then alignement local et already_settled", func(t *testing.T) {
		store := seedConfirmedMission(models.OfferConfirmed)
		proc := &fakeProcessor{err: &ProcessorError{Kind: KindAlreadyRefunded, Err: errors.New("charge_already_refunded")}}
		e := NewEngine(store, proc, nil)

		result, err := e.SettleCancellation(ctx, store.offer.ID, ModeProfessionalCancel)
		if err != nil {
			t.Fatalf("SettleCancellation: %v", err)
		}
		if !result.AlreadySettled {
			t.Error("attendu already_settled")
		}
		if store.offer.Status != models.OfferCancelled {
			t.Errorf("mission = %s, attendu cancelled (alignée sur Stripe)", store.offer.Status)
		}
	})

	t.Run("Given un mode inconnu When on règle Then erreur sans effet", func(t *testing.T) {
		store := seedConfirmedMission(models.OfferConfirmed)
		proc := &fakeProcessor{}
		e := NewEngine(store, proc, nil)

		if _, err := e.SettleCancellation(ctx, store.offer.ID, "autre"); err == nil {
			t.Fatal("attendu une erreur pour un mode inconnu")
		}
		if proc.callCount() != 0 {
			t.Error("aucun appel Stripe attendu")
		}
	})
}
