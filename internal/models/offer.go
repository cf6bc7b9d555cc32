package models

import (
	"time"

	"github.com/gocql/gocql"
)

// Statuts d'une mission
const (
	OfferProposed        = "proposed"
	OfferConfirmed       = "confirmed"
	OfferCompleted       = "completed"
	OfferCancelled       = "cancelled"
	OfferCancelRequested = "cancel_requested"
)

// PlatformTakeRate est la commission Beautiz retenue sur chaque mission
const PlatformTakeRate = 0.10

// Offer est la proposition ferme d'une pro sur une demande ("mission").
// Une fois confirmée elle devient l'enregistrement canonique de la prestation.
type Offer struct {
	ID             gocql.UUID `json:"id" db:"offer_id"`
	RequestID      gocql.UUID `json:"request_id" db:"request_id"`
	ClientID       string     `json:"client_id" db:"client_id"`
	ProfessionalID string     `json:"professional_id" db:"professional_id"`
	Service        string     `json:"service" db:"service"`
	Date           string     `json:"date" db:"date"`
	TimeSlot       string     `json:"time_slot" db:"time_slot"`
	ServicePrice   float64    `json:"service_price" db:"service_price"`
	TravelFee      float64    `json:"travel_fee" db:"travel_fee"`
	Status         string     `json:"status" db:"status"`
	CreatedAt      time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt      *time.Time `json:"updated_at,omitempty" db:"updated_at"`
}

// Price est le prix total proposé (prestation + déplacement)
func (o Offer) Price() float64 {
	return o.ServicePrice + o.TravelFee
}

// NetAmount est le montant net reversé à la pro, commission déduite
func (o Offer) NetAmount() float64 {
	return o.Price() * (1 - PlatformTakeRate)
}
