package models

import (
	"time"

	"github.com/gocql/gocql"
)

// RequestAlert informe une pro qu'une nouvelle demande vient d'être créée
// près de chez elle. C'est la ligne relayée par le flux de changements
// pour alimenter le compteur "nouvelles demandes".
type RequestAlert struct {
	ID             gocql.UUID `json:"id" db:"alert_id"`
	RequestID      gocql.UUID `json:"request_id" db:"request_id"`
	ProfessionalID string     `json:"professional_id" db:"professional_id"`
	DistanceKm     float64    `json:"distance_km" db:"distance_km"`
	CreatedAt      time.Time  `json:"created_at" db:"created_at"`
}
