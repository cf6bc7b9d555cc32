package settlement

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/gocql/gocql"

	"beautiz_back_end/internal/models"
)

// Modes d'annulation
const (
	// ModeProfessionalCancel : la pro annule. Remboursement intégral du
	// brut, transfert inversé, commission plateforme récupérée.
	ModeProfessionalCancel = "professional_cancel"

	// ModeClientCancelApproved : annulation cliente approuvée par la pro.
	// Seul le net est remboursé, la plateforme garde sa commission
	// (politique no-show / annulation tardive).
	ModeClientCancelApproved = "client_cancel_approved"
)

// Store est la surface du magasin utilisée par le moteur de règlement
type Store interface {
	GetOffer(ctx context.Context, id gocql.UUID) (*models.Offer, error)
	UpdateOfferStatus(ctx context.Context, offerID gocql.UUID, from, to string) (bool, error)
	PaymentsByOffer(ctx context.Context, offerID gocql.UUID) ([]models.Payment, error)
	ClaimPaymentRefund(ctx context.Context, p *models.Payment, newStatus string, at time.Time) (bool, error)
	RevertPaymentClaim(ctx context.Context, p *models.Payment, claimedStatus string) (bool, error)
	SetPaymentRefundRef(ctx context.Context, p *models.Payment, refundID string) error
	InsertReconciliationGap(ctx context.Context, g *models.ReconciliationGap) error
}

// AlertFunc prévient l'équipe support d'un écart de réconciliation
type AlertFunc func(g models.ReconciliationGap)

// Engine exécute les remboursements et maintient l'accord entre Stripe,
// la ligne payment et la ligne offer. Les trois systèmes ne doivent jamais
// rester en désaccord plus d'un cycle de réconciliation.
type Engine struct {
	store Store
	proc  Processor
	alert AlertFunc
}

func NewEngine(store Store, proc Processor, alert AlertFunc) *Engine {
	return &Engine{store: store, proc: proc, alert: alert}
}

// Result est l'issue d'un règlement
type Result struct {
	AlreadySettled bool            `json:"already_settled"`
	RefundID       string          `json:"refund_id,omitempty"`
	AmountCents    int64           `json:"amount_cents"`
	Payment        *models.Payment `json:"payment,omitempty"`
}

// SettleCancellation rembourse la mission selon le mode demandé.
//
// Le point de sérialisation est la ligne payment : l'écriture conditionnelle
// restreinte à status='paid' fait office de verrou, et un zéro-ligne-affectée
// signifie "quelqu'un d'autre a déjà réglé", pas une erreur. L'appel Stripe
// est tenté au plus une fois par invocation ; un second appel sur une mission
// déjà réglée est un no-op "déjà réglé".
func (e *Engine) SettleCancellation(ctx context.Context, offerID gocql.UUID, mode string) (*Result, error) {
	var newStatus string
	switch mode {
	case ModeProfessionalCancel:
		newStatus = models.PaymentRefunded
	case ModeClientCancelApproved:
		newStatus = models.PaymentPartiallyRefunded
	default:
		return nil, fmt.Errorf("mode d'annulation inconnu: %q", mode)
	}

	offer, err := e.store.GetOffer(ctx, offerID)
	if err != nil {
		return nil, fmt.Errorf("lecture mission: %w", err)
	}

	// Idempotence : une mission déjà annulée est déjà réglée
	if offer.Status == models.OfferCancelled {
		return &Result{AlreadySettled: true}, nil
	}
	if offer.Status != models.OfferConfirmed && offer.Status != models.OfferCancelRequested {
		return nil, fmt.Errorf("%w: statut %s", ErrNotCancellable, offer.Status)
	}

	payment, err := e.findPaidPayment(ctx, offerID)
	if err != nil {
		if errors.Is(err, errAlreadyRefunded) {
			return &Result{AlreadySettled: true}, nil
		}
		return nil, err
	}

	amount := payment.AmountCents
	reclaimFee := true
	if mode == ModeClientCancelApproved {
		amount = payment.NetAmountCents
		reclaimFee = false
	}

	// Acquisition du verrou AVANT l'appel Stripe : deux règlements
	// concurrents ne peuvent pas passer tous les deux
	now := time.Now()
	applied, err := e.store.ClaimPaymentRefund(ctx, payment, newStatus, now)
	if err != nil {
		return nil, fmt.Errorf("verrouillage paiement: %w", err)
	}
	if !applied {
		return &Result{AlreadySettled: true}, nil
	}

	refundID, err := e.proc.CreateRefund(ctx, payment.PaymentIntentID, amount, true, reclaimFee)
	if err != nil {
		if ferr := e.handleRefundFailure(ctx, offer, payment, mode, newStatus, err); ferr != nil {
			return nil, ferr
		}
		// Déjà remboursé côté Stripe : rien à refaire
		return &Result{AlreadySettled: true}, nil
	}

	if err := e.store.SetPaymentRefundRef(ctx, payment, refundID); err != nil {
		log.Printf("⚠️ Référence remboursement %s non enregistrée pour paiement %s: %v", refundID, payment.ID, err)
	}

	// Paiement puis mission, dans cet ordre. Si la mission ne suit pas, on
	// trace un écart au lieu de rejouer : rejouer pourrait doubler le
	// remboursement.
	if applied, err := e.store.UpdateOfferStatus(ctx, offerID, offer.Status, models.OfferCancelled); err != nil || !applied {
		e.recordGap(ctx, offer.ID, payment.ID, mode,
			fmt.Sprintf("remboursement %s abouti mais mission non passée en cancelled (appliqué=%v, err=%v)", refundID, applied, err))
	}

	payment.Status = newStatus
	payment.RefundedAt = &now
	payment.StripeRefundID = refundID

	log.Printf("✅ Règlement %s: mission %s, remboursement %s (%d centimes)", mode, offerID, refundID, amount)
	return &Result{RefundID: refundID, AmountCents: amount, Payment: payment}, nil
}

var errAlreadyRefunded = errors.New("paiement déjà remboursé")

// findPaidPayment applique la précondition : exactement un paiement paid,
// recherche du plus récent au plus ancien.
func (e *Engine) findPaidPayment(ctx context.Context, offerID gocql.UUID) (*models.Payment, error) {
	payments, err := e.store.PaymentsByOffer(ctx, offerID)
	if err != nil {
		return nil, fmt.Errorf("lecture paiements: %w", err)
	}

	var paid []models.Payment
	refunded := false
	for _, p := range payments {
		switch p.Status {
		case models.PaymentPaid:
			paid = append(paid, p)
		case models.PaymentRefunded, models.PaymentPartiallyRefunded:
			refunded = true
		}
	}

	if len(paid) > 1 {
		// Règle métier violée : jamais deux encaissements actifs sur la
		// même mission. On s'arrête net, résolution manuelle.
		log.Printf("🚨 Intégrité violée: %d paiements 'paid' pour la mission %s", len(paid), offerID)
		return nil, fmt.Errorf("%w: %d paiements paid pour la mission %s", ErrDataIntegrity, len(paid), offerID)
	}
	if len(paid) == 0 {
		if refunded {
			return nil, errAlreadyRefunded
		}
		return nil, fmt.Errorf("%w: mission %s", ErrNoPaidPayment, offerID)
	}

	return &paid[0], nil
}

// handleRefundFailure décide quoi faire du verrou posé sur le paiement.
// Refus ferme de Stripe → le verrou est relâché, rien n'a bougé côté argent.
// Timeout/réseau → l'argent a peut-être bougé : le verrou reste posé et un
// écart de réconciliation est tracé pour résolution manuelle.
func (e *Engine) handleRefundFailure(ctx context.Context, offer *models.Offer, payment *models.Payment, mode, claimedStatus string, refundErr error) error {
	var procErr *ProcessorError
	if !errors.As(refundErr, &procErr) {
		procErr = &ProcessorError{Kind: KindNetwork, Err: refundErr}
	}

	if procErr.Kind == KindAlreadyRefunded {
		// Stripe a déjà remboursé (dashboard, passage manuel) : on garde
		// le verrou et on aligne la mission
		log.Printf("ℹ️ Paiement %s déjà remboursé côté Stripe, alignement local", payment.ID)
		if applied, err := e.store.UpdateOfferStatus(ctx, offer.ID, offer.Status, models.OfferCancelled); err != nil || !applied {
			e.recordGap(ctx, offer.ID, payment.ID, mode,
				fmt.Sprintf("déjà remboursé côté Stripe, mission non alignée (appliqué=%v, err=%v)", applied, err))
		}
		return nil
	}

	if procErr.MaybeSucceeded() {
		e.recordGap(ctx, offer.ID, payment.ID, mode,
			fmt.Sprintf("issue du remboursement incertaine (%s): %v", procErr.Kind, procErr.Err))
		return procErr
	}

	// Refus ferme : on rend le paiement à 'paid'
	if applied, err := e.store.RevertPaymentClaim(ctx, payment, claimedStatus); err != nil || !applied {
		e.recordGap(ctx, offer.ID, payment.ID, mode,
			fmt.Sprintf("refus Stripe mais verrou non relâché (appliqué=%v, err=%v)", applied, err))
	}
	return procErr
}

// recordGap trace l'écart en base, le logue et prévient le support.
// Jamais de retry automatique.
func (e *Engine) recordGap(ctx context.Context, offerID, paymentID gocql.UUID, mode, detail string) {
	gap := models.ReconciliationGap{
		ID:        gocql.TimeUUID(),
		OfferID:   offerID,
		PaymentID: paymentID,
		Mode:      mode,
		Detail:    detail,
		CreatedAt: time.Now(),
	}

	log.Printf("🚨 Écart de réconciliation: mission=%s paiement=%s mode=%s — %s",
		offerID, paymentID, mode, detail)

	if err := e.store.InsertReconciliationGap(ctx, &gap); err != nil {
		log.Printf("❌ Écart de réconciliation non persisté: %v", err)
	}
	if e.alert != nil {
		go e.alert(gap)
	}
}
