package settlement

import (
	"context"
	"errors"
	"log"
	"net"
	"time"

	"github.com/stripe/stripe-go/v83"
	"github.com/stripe/stripe-go/v83/refund"
)

// Timeout d'un aller-retour remboursement vers Stripe
const refundTimeout = 15 * time.Second

// Processor est l'adaptateur du processeur de paiement marketplace.
// reverseTransfer rapatrie les fonds déjà transférés au compte de la pro ;
// refundApplicationFee récupère en plus la commission plateforme.
type Processor interface {
	CreateRefund(ctx context.Context, paymentIntentID string, amountCents int64, reverseTransfer, refundApplicationFee bool) (string, error)
}

// StripeProcessor appelle l'API Stripe Refunds
type StripeProcessor struct{}

func NewStripeProcessor() *StripeProcessor {
	return &StripeProcessor{}
}

// CreateRefund crée le remboursement Stripe. Un seul appel par invocation :
// l'idempotence est garantie en amont par la vérification du statut du
// paiement, pas ici.
func (sp *StripeProcessor) CreateRefund(ctx context.Context, paymentIntentID string, amountCents int64, reverseTransfer, refundApplicationFee bool) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, refundTimeout)
	defer cancel()

	params := &stripe.RefundParams{
		PaymentIntent:        stripe.String(paymentIntentID),
		Amount:               stripe.Int64(amountCents),
		ReverseTransfer:      stripe.Bool(reverseTransfer),
		RefundApplicationFee: stripe.Bool(refundApplicationFee),
		Reason:               stripe.String("requested_by_customer"),
	}
	params.Context = ctx

	r, err := refund.New(params)
	if err != nil {
		return "", classifyStripeError(err)
	}

	log.Printf("💰 Remboursement Stripe créé: %s (%d centimes, reverse=%v, fee=%v)",
		r.ID, amountCents, reverseTransfer, refundApplicationFee)
	return r.ID, nil
}

// classifyStripeError range l'erreur Stripe dans une des sous-catégories.
// Les cas réseau/timeout sont marqués "issue incertaine".
func classifyStripeError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return &ProcessorError{Kind: KindTimeout, Err: err}
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return &ProcessorError{Kind: KindTimeout, Err: err}
	}

	var stripeErr *stripe.Error
	if errors.As(err, &stripeErr) {
		if stripeErr.Code == stripe.ErrorCodeChargeAlreadyRefunded {
			return &ProcessorError{Kind: KindAlreadyRefunded, Err: err}
		}
		return &ProcessorError{Kind: KindDeclined, Err: err}
	}

	return &ProcessorError{Kind: KindNetwork, Err: err}
}
