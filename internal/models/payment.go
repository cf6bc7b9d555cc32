package models

import (
	"time"

	"github.com/gocql/gocql"
)

// Statuts d'un paiement
const (
	PaymentPaid              = "paid"
	PaymentRefunded          = "refunded"
	PaymentPartiallyRefunded = "partially_refunded"
)

// Payment est l'enregistrement d'un encaissement réussi sur une mission.
// Tous les montants sont en centimes. Un paiement n'est jamais supprimé :
// seul le moteur de règlement le fait passer à refunded/partially_refunded.
type Payment struct {
	ID                gocql.UUID `json:"id" db:"payment_id"`
	OfferID           gocql.UUID `json:"offer_id" db:"offer_id"`
	ClientID          string     `json:"client_id" db:"client_id"`
	ProfessionalID    string     `json:"professional_id" db:"professional_id"`
	AmountCents       int64      `json:"amount_cents" db:"amount_cents"`
	ServicePriceCents int64      `json:"service_price_cents" db:"service_price_cents"`
	TravelFeeCents    int64      `json:"travel_fee_cents" db:"travel_fee_cents"`
	ApplicationFee    int64      `json:"application_fee_cents" db:"application_fee_cents"`
	NetAmountCents    int64      `json:"net_amount_cents" db:"net_amount_cents"`
	PaymentIntentID   string     `json:"payment_intent_id" db:"payment_intent_id"`
	StripeRefundID    string     `json:"stripe_refund_id,omitempty" db:"stripe_refund_id"`
	Status            string     `json:"status" db:"status"`
	CreatedAt         time.Time  `json:"created_at" db:"created_at"`
	RefundedAt        *time.Time `json:"refunded_at,omitempty" db:"refunded_at"`
}
