package lifecycle

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/gocql/gocql"

	"beautiz_back_end/internal/models"
)

// Store est la surface du magasin dont la machine à états a besoin. Toutes
// les mutations de statut sont conditionnelles : le booléen retourné vaut
// false quand la ligne n'était plus dans l'état attendu.
type Store interface {
	GetRequest(ctx context.Context, id gocql.UUID) (*models.Request, error)
	AssignRequest(ctx context.Context, requestID gocql.UUID, professionalID string) (bool, error)
	ReleaseRequest(ctx context.Context, requestID gocql.UUID, professionalID string) (bool, error)
	UpdateRequestStatus(ctx context.Context, requestID gocql.UUID, from, to string) (bool, error)

	GetOffer(ctx context.Context, id gocql.UUID) (*models.Offer, error)
	InsertOffer(ctx context.Context, o *models.Offer) error
	UpdateOfferStatus(ctx context.Context, offerID gocql.UUID, from, to string) (bool, error)
}

// Machine possède les transitions valides des demandes et des missions
// et leurs effets de bord (verrouillage de la demande, création de la
// mission). Elle n'appelle jamais Stripe : la confirmation de paiement
// arrive de l'extérieur via ConfirmOffer.
type Machine struct {
	store Store
}

func NewMachine(store Store) *Machine {
	return &Machine{store: store}
}

// Transitions permises par entité. Tout couple absent de la table échoue
// en ErrInvalidTransition plutôt que de passer silencieusement.
var offerTransitions = map[string][]string{
	models.OfferProposed:        {models.OfferConfirmed, models.OfferCancelled},
	models.OfferConfirmed:       {models.OfferCancelRequested, models.OfferCancelled, models.OfferCompleted},
	models.OfferCancelRequested: {models.OfferCancelled, models.OfferConfirmed},
}

var requestTransitions = map[string][]string{
	models.RequestPending: {models.RequestProposed, models.RequestCancelled},
}

// ValidateOfferTransition est le hook de validation pur : aucun accès
// base, aucune mutation.
func ValidateOfferTransition(from, to string) error {
	for _, allowed := range offerTransitions[from] {
		if allowed == to {
			return nil
		}
	}
	return fmt.Errorf("%w: mission %s → %s", ErrInvalidTransition, from, to)
}

// ValidateRequestTransition valide une transition de demande
func ValidateRequestTransition(from, to string) error {
	for _, allowed := range requestTransitions[from] {
		if allowed == to {
			return nil
		}
	}
	return fmt.Errorf("%w: demande %s → %s", ErrInvalidTransition, from, to)
}

// OfferInput est la proposition d'une pro sur une demande pending
type OfferInput struct {
	RequestID      gocql.UUID
	ProfessionalID string
	ServicePrice   float64
	TravelFee      float64
	Date           string
	TimeSlot       string
}

// CreateOffer crée la mission d'une pro sur une demande pending et verrouille
// la demande (status=proposed, professional_id posé) dans la même opération
// logique. Sur deux dépôts simultanés, exactement une pro gagne l'écriture
// conditionnelle ; la perdante reçoit ErrRequestNoLongerAvailable et aucune
// mission orpheline n'est créée.
func (m *Machine) CreateOffer(ctx context.Context, in OfferInput) (*models.Offer, error) {
	// Relecture fraîche juste avant mutation, jamais une copie en cache
	req, err := m.store.GetRequest(ctx, in.RequestID)
	if err != nil {
		return nil, fmt.Errorf("lecture demande: %w", err)
	}
	if req.Status != models.RequestPending {
		return nil, fmt.Errorf("%w: demande %s en statut %s", ErrRequestNoLongerAvailable, req.ID, req.Status)
	}

	// Le verrou : seule la première écriture conditionnelle passe
	applied, err := m.store.AssignRequest(ctx, in.RequestID, in.ProfessionalID)
	if err != nil {
		return nil, fmt.Errorf("verrouillage demande: %w", err)
	}
	if !applied {
		return nil, fmt.Errorf("%w: demande %s", ErrRequestNoLongerAvailable, in.RequestID)
	}

	offer := &models.Offer{
		ID:             gocql.TimeUUID(),
		RequestID:      in.RequestID,
		ClientID:       req.ClientID,
		ProfessionalID: in.ProfessionalID,
		Service:        req.Service,
		Date:           in.Date,
		TimeSlot:       in.TimeSlot,
		ServicePrice:   in.ServicePrice,
		TravelFee:      in.TravelFee,
		Status:         models.OfferProposed,
		CreatedAt:      time.Now(),
	}

	if err := m.store.InsertOffer(ctx, offer); err != nil {
		// Compensation : on relâche le verrou pour ne pas laisser la
		// demande bloquée en proposed sans mission derrière
		if released, relErr := m.store.ReleaseRequest(ctx, in.RequestID, in.ProfessionalID); relErr != nil || !released {
			log.Printf("⚠️ Demande %s verrouillée sans mission (release: %v, appliqué: %v)", in.RequestID, relErr, released)
		}
		return nil, fmt.Errorf("création mission: %w", err)
	}

	log.Printf("📝 Mission %s créée par %s sur demande %s", offer.ID, in.ProfessionalID, in.RequestID)
	return offer, nil
}

// WithdrawRequest retire une demande encore pending (aucune mission déposée)
func (m *Machine) WithdrawRequest(ctx context.Context, requestID gocql.UUID) (*models.Request, error) {
	req, err := m.store.GetRequest(ctx, requestID)
	if err != nil {
		return nil, fmt.Errorf("lecture demande: %w", err)
	}
	if err := ValidateRequestTransition(req.Status, models.RequestCancelled); err != nil {
		return nil, err
	}

	applied, err := m.store.UpdateRequestStatus(ctx, requestID, models.RequestPending, models.RequestCancelled)
	if err != nil {
		return nil, err
	}
	if !applied {
		return nil, fmt.Errorf("%w: demande %s n'est plus pending", ErrInvalidTransition, requestID)
	}

	req.Status = models.RequestCancelled
	return req, nil
}

// ConfirmOffer passe la mission proposed → confirmed. Appelé uniquement à
// la réception de la confirmation de paiement externe.
func (m *Machine) ConfirmOffer(ctx context.Context, offerID gocql.UUID) (*models.Offer, error) {
	return m.transitionOffer(ctx, offerID, models.OfferProposed, models.OfferConfirmed)
}

// AbandonOffer supprime une mission jamais payée : proposed → cancelled,
// aucun remboursement à faire.
func (m *Machine) AbandonOffer(ctx context.Context, offerID gocql.UUID) (*models.Offer, error) {
	return m.transitionOffer(ctx, offerID, models.OfferProposed, models.OfferCancelled)
}

// RequestCancellation enregistre la demande d'annulation de la cliente :
// confirmed → cancel_requested. L'argent ne bouge pas encore.
func (m *Machine) RequestCancellation(ctx context.Context, offerID gocql.UUID) (*models.Offer, error) {
	return m.transitionOffer(ctx, offerID, models.OfferConfirmed, models.OfferCancelRequested)
}

// DeclineCancellation : la pro refuse l'annulation, la mission revient en
// confirmed. Aucun mouvement d'argent.
func (m *Machine) DeclineCancellation(ctx context.Context, offerID gocql.UUID) (*models.Offer, error) {
	return m.transitionOffer(ctx, offerID, models.OfferCancelRequested, models.OfferConfirmed)
}

// CompleteOffer passe la mission en completed (terminal). Le déclencheur
// vient de l'extérieur, ce cœur ne fait que l'appliquer.
func (m *Machine) CompleteOffer(ctx context.Context, offerID gocql.UUID) (*models.Offer, error) {
	return m.transitionOffer(ctx, offerID, models.OfferConfirmed, models.OfferCompleted)
}

func (m *Machine) transitionOffer(ctx context.Context, offerID gocql.UUID, from, to string) (*models.Offer, error) {
	offer, err := m.store.GetOffer(ctx, offerID)
	if err != nil {
		return nil, fmt.Errorf("lecture mission: %w", err)
	}
	if offer.Status != from {
		return nil, fmt.Errorf("%w: mission %s en statut %s, attendu %s", ErrInvalidTransition, offerID, offer.Status, from)
	}
	if err := ValidateOfferTransition(from, to); err != nil {
		return nil, err
	}

	applied, err := m.store.UpdateOfferStatus(ctx, offerID, from, to)
	if err != nil {
		return nil, err
	}
	if !applied {
		// La ligne a bougé entre la relecture et l'écriture
		return nil, fmt.Errorf("%w: mission %s n'est plus en %s", ErrInvalidTransition, offerID, from)
	}

	offer.Status = to
	return offer, nil
}
