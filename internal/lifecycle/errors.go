package lifecycle

import "errors"

var (
	// ErrInvalidTransition : changement d'état non permis depuis l'état
	// courant. Récupérable, remonté à l'appelant, jamais rejoué.
	ErrInvalidTransition = errors.New("transition invalide")

	// ErrRequestNoLongerAvailable : la demande n'est plus pending, une
	// autre pro a déjà déposé sa mission. L'appelante doit rafraîchir
	// sa liste et s'arrêter là.
	ErrRequestNoLongerAvailable = errors.New("demande plus disponible")
)
