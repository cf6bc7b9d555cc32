package models

import (
	"time"

	"github.com/gocql/gocql"
)

// ReconciliationGap trace un remboursement dont l'issue côté Stripe est
// incertaine (timeout) ou dont la mise à jour locale a échoué après un
// remboursement réussi. Jamais rejoué automatiquement : un double
// remboursement coûte plus cher qu'un passage manuel.
type ReconciliationGap struct {
	ID        gocql.UUID `json:"id" db:"gap_id"`
	OfferID   gocql.UUID `json:"offer_id" db:"offer_id"`
	PaymentID gocql.UUID `json:"payment_id" db:"payment_id"`
	Mode      string     `json:"mode" db:"mode"`
	Detail    string     `json:"detail" db:"detail"`
	Resolved  bool       `json:"resolved" db:"resolved"`
	CreatedAt time.Time  `json:"created_at" db:"created_at"`
}
