package settlement

import (
	"errors"
	"fmt"
)

var (
	// ErrNotCancellable : la mission n'est ni confirmed ni cancel_requested
	ErrNotCancellable = errors.New("mission non annulable dans cet état")

	// ErrNoPaidPayment : aucun paiement en statut paid pour cette mission
	ErrNoPaidPayment = errors.New("aucun paiement encaissé pour cette mission")

	// ErrDataIntegrity : plus d'un paiement paid pour la même mission.
	// Fatal pour l'opération, résolution manuelle obligatoire.
	ErrDataIntegrity = errors.New("intégrité des données violée")
)

// Sous-catégories d'erreur processeur
const (
	KindDeclined        = "declined"
	KindAlreadyRefunded = "already_refunded"
	KindTimeout         = "timeout"
	KindNetwork         = "network"
)

// ProcessorError est une erreur remontée par Stripe lors d'un remboursement.
// Le cas timeout est le dangereux : le remboursement a pu aboutir côté
// Stripe sans que l'accusé ne nous parvienne. Jamais rejoué en silence.
type ProcessorError struct {
	Kind string
	Err  error
}

func (e *ProcessorError) Error() string {
	return fmt.Sprintf("erreur processeur (%s): %v", e.Kind, e.Err)
}

func (e *ProcessorError) Unwrap() error {
	return e.Err
}

// MaybeSucceeded : vrai quand l'issue côté Stripe est incertaine
func (e *ProcessorError) MaybeSucceeded() bool {
	return e.Kind == KindTimeout || e.Kind == KindNetwork
}
