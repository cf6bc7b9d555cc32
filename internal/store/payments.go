package store

import (
	"context"
	"log"
	"time"

	"github.com/gocql/gocql"

	"beautiz_back_end/internal/feed"
	"beautiz_back_end/internal/models"
)

// InsertPaymentOnce enregistre un paiement de façon idempotente : la table
// de correspondance payments_by_intent n'accepte qu'une ligne par référence
// Stripe (INSERT ... IF NOT EXISTS). Une confirmation dupliquée retourne
// created=false sans créer de seconde ligne.
func (s *Store) InsertPaymentOnce(ctx context.Context, p *models.Payment) (bool, error) {
	applied, err := s.session.Query(`
		INSERT INTO payments_by_intent (payment_intent_id, payment_id, offer_id)
		VALUES (?, ?, ?) IF NOT EXISTS
	`, p.PaymentIntentID, p.ID, p.OfferID).
		WithContext(ctx).MapScanCAS(map[string]interface{}{})
	if err != nil || !applied {
		return false, err
	}

	err = s.session.Query(`
		INSERT INTO payments (offer_id, created_at, payment_id, client_id, professional_id,
			amount_cents, service_price_cents, travel_fee_cents, application_fee_cents,
			net_amount_cents, payment_intent_id, status)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, p.OfferID, p.CreatedAt, p.ID, p.ClientID, p.ProfessionalID,
		p.AmountCents, p.ServicePriceCents, p.TravelFeeCents, p.ApplicationFee,
		p.NetAmountCents, p.PaymentIntentID, p.Status).
		WithContext(ctx).Exec()
	if err != nil {
		// Compensation : on relâche la ligne de dédup, sinon les
		// relivraisons du webhook seraient ignorées à jamais alors que le
		// paiement n'a jamais été enregistré
		if delErr := s.session.Query(`
			DELETE FROM payments_by_intent WHERE payment_intent_id = ?
		`, p.PaymentIntentID).WithContext(ctx).Exec(); delErr != nil {
			log.Printf("🚨 Dédup orpheline pour %s, relivraisons bloquées: %v", p.PaymentIntentID, delErr)
		}
		return false, err
	}

	s.pub.Publish(ctx, feed.Event{Table: feed.TablePayments, Kind: feed.KindInsert, Payment: p})
	return true, nil
}

// PaymentsByOffer liste les paiements d'une mission, les plus récents
// d'abord (clustering created_at DESC).
func (s *Store) PaymentsByOffer(ctx context.Context, offerID gocql.UUID) ([]models.Payment, error) {
	iter := s.session.Query(`
		SELECT created_at, payment_id, client_id, professional_id, amount_cents,
			service_price_cents, travel_fee_cents, application_fee_cents,
			net_amount_cents, payment_intent_id, stripe_refund_id, status, refunded_at
		FROM payments WHERE offer_id = ?
	`, offerID).WithContext(ctx).Iter()

	var payments []models.Payment
	var p models.Payment
	for iter.Scan(&p.CreatedAt, &p.ID, &p.ClientID, &p.ProfessionalID, &p.AmountCents,
		&p.ServicePriceCents, &p.TravelFeeCents, &p.ApplicationFee,
		&p.NetAmountCents, &p.PaymentIntentID, &p.StripeRefundID, &p.Status, &p.RefundedAt) {
		p.OfferID = offerID
		payments = append(payments, p)
		p = models.Payment{}
	}
	if err := iter.Close(); err != nil {
		return nil, err
	}
	return payments, nil
}

// ClaimPaymentRefund est le point de sérialisation des remboursements :
// seule l'écriture qui trouve encore la ligne en 'paid' gagne. Un retour
// false signifie que quelqu'un d'autre a déjà réglé cette mission.
func (s *Store) ClaimPaymentRefund(ctx context.Context, p *models.Payment, newStatus string, at time.Time) (bool, error) {
	applied, err := s.session.Query(`
		UPDATE payments SET status = ?, refunded_at = ?
		WHERE offer_id = ? AND created_at = ? AND payment_id = ? IF status = ?
	`, newStatus, at, p.OfferID, p.CreatedAt, p.ID, models.PaymentPaid).
		WithContext(ctx).MapScanCAS(map[string]interface{}{})
	if err != nil || !applied {
		return applied, err
	}

	snapshot := *p
	snapshot.Status = newStatus
	snapshot.RefundedAt = &at
	s.pub.Publish(ctx, feed.Event{Table: feed.TablePayments, Kind: feed.KindUpdate, Payment: &snapshot})
	return true, nil
}

// RevertPaymentClaim relâche un verrou de remboursement après un refus
// ferme de Stripe (pas après un timeout : l'issue est alors incertaine).
func (s *Store) RevertPaymentClaim(ctx context.Context, p *models.Payment, claimedStatus string) (bool, error) {
	applied, err := s.session.Query(`
		UPDATE payments SET status = ?, refunded_at = null
		WHERE offer_id = ? AND created_at = ? AND payment_id = ? IF status = ?
	`, models.PaymentPaid, p.OfferID, p.CreatedAt, p.ID, claimedStatus).
		WithContext(ctx).MapScanCAS(map[string]interface{}{})
	return applied, err
}

// SetPaymentRefundRef mémorise la référence de remboursement Stripe
func (s *Store) SetPaymentRefundRef(ctx context.Context, p *models.Payment, refundID string) error {
	return s.session.Query(`
		UPDATE payments SET stripe_refund_id = ?
		WHERE offer_id = ? AND created_at = ? AND payment_id = ?
	`, refundID, p.OfferID, p.CreatedAt, p.ID).WithContext(ctx).Exec()
}
