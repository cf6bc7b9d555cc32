package feed

import (
	"encoding/json"
	"fmt"

	"beautiz_back_end/internal/models"
)

// Tables observées par le flux de changements
const (
	TableOffers        = "offers"
	TablePayments      = "payments"
	TableRequestAlerts = "request_alerts"
)

// Types d'événement ligne
const (
	KindInsert = "insert"
	KindUpdate = "update"
)

// Event est un changement de ligne typé : une table, un type d'événement,
// et l'instantané de la nouvelle ligne. Un seul des trois pointeurs est
// renseigné, selon la table.
type Event struct {
	Table string `json:"table"`
	Kind  string `json:"kind"`

	Offer        *models.Offer        `json:"offer,omitempty"`
	Payment      *models.Payment      `json:"payment,omitempty"`
	RequestAlert *models.RequestAlert `json:"request_alert,omitempty"`
}

// Channel retourne le canal Redis pub/sub d'une table
func Channel(table string) string {
	return "feed:" + table
}

// Marshal sérialise l'événement pour publication sur Redis
func (e Event) Marshal() ([]byte, error) {
	if e.Table == "" || e.Kind == "" {
		return nil, fmt.Errorf("événement incomplet: table=%q kind=%q", e.Table, e.Kind)
	}
	return json.Marshal(e)
}

// Unmarshal reconstruit un événement depuis un payload Redis
func Unmarshal(payload []byte) (Event, error) {
	var e Event
	if err := json.Unmarshal(payload, &e); err != nil {
		return Event{}, err
	}
	return e, nil
}
