package store

import (
	"github.com/gocql/gocql"

	"beautiz_back_end/internal/feed"
)

// Store est l'accès aux tables réservations (requests, offers, payments).
// Chaque écriture aboutie publie l'instantané de la ligne sur le flux de
// changements ; les mutations de statut passent par des écritures
// conditionnelles (IF status = ?) pour que deux acteurs concurrents ne
// puissent jamais gagner tous les deux.
type Store struct {
	session *gocql.Session
	pub     feed.Publisher
}

func New(session *gocql.Session, pub feed.Publisher) *Store {
	return &Store{session: session, pub: pub}
}
