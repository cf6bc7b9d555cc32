package models

import (
	"time"

	"github.com/gocql/gocql"
)

// Statuts d'une demande de prestation
const (
	RequestPending   = "pending"
	RequestProposed  = "proposed"
	RequestConfirmed = "confirmed"
	RequestCompleted = "completed"
	RequestCancelled = "cancelled"
)

// Request est une demande de prestation soumise par une cliente.
// Une seule pro peut détenir une mission active sur une demande donnée.
type Request struct {
	ID             gocql.UUID `json:"id" db:"request_id"`
	ClientID       string     `json:"client_id" db:"client_id"`
	Service        string     `json:"service" db:"service"`
	Date           string     `json:"date" db:"date"`
	TimeSlot       string     `json:"time_slot" db:"time_slot"`
	Address        string     `json:"address" db:"address"`
	Latitude       float64    `json:"latitude" db:"latitude"`
	Longitude      float64    `json:"longitude" db:"longitude"`
	Notes          string     `json:"notes,omitempty" db:"notes"`
	Status         string     `json:"status" db:"status"`
	ProfessionalID string     `json:"professional_id,omitempty" db:"professional_id"`
	CreatedAt      time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt      *time.Time `json:"updated_at,omitempty" db:"updated_at"`
}
