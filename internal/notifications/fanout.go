package notifications

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/gocql/gocql"

	"beautiz_back_end/internal/feed"
	"beautiz_back_end/internal/models"
)

// ErrSubscriptionLeak : les abonnements d'une session précédente n'ont pas
// été démontés avant d'en créer de nouveaux. Assertion défensive, ne doit
// jamais se produire.
var ErrSubscriptionLeak = errors.New("fuite d'abonnements au flux de changements")

// Toast est un message éphémère poussé vers l'interface de la session
type Toast struct {
	Category string `json:"category"`
	Message  string `json:"message"`
}

// ServiceNameResolver retrouve le nom du service d'une demande pour le
// texte d'un toast (implémenté par le cache Redis → Scylla).
type ServiceNameResolver func(ctx context.Context, requestID gocql.UUID) (string, error)

// Session est la ressource d'abonnement d'une session authentifiée :
// acquise à la connexion, relâchée de façon déterministe à la déconnexion.
// Exactement un jeu d'abonnements actif par session.
type Session struct {
	ID     string
	UserID string

	counters *Counters
	sub      feed.Subscription
	bus      *feed.Bus
	resolve  ServiceNameResolver
	toasts   chan Toast
	done     chan struct{}
}

// Manager tient les sessions actives et garantit le démontage de l'ancienne
// souscription avant toute nouvelle acquisition pour un même id de session.
type Manager struct {
	source  feed.Source
	bus     *feed.Bus
	resolve ServiceNameResolver

	mu       sync.Mutex
	sessions map[string]*Session
	counters map[string]*Counters // survivent aux ré-acquisitions
}

func NewManager(source feed.Source, bus *feed.Bus, resolve ServiceNameResolver) *Manager {
	return &Manager{
		source:   source,
		bus:      bus,
		resolve:  resolve,
		sessions: make(map[string]*Session),
		counters: make(map[string]*Counters),
	}
}

// Acquire ouvre le jeu d'abonnements d'une session. Si la même session en
// détenait déjà un (re-render rapide, reconnexion), l'ancien est démonté
// d'abord : jamais deux abonnements vivants pour la même session, donc
// jamais de double comptage pour un même événement.
func (m *Manager) Acquire(ctx context.Context, sessionID, userID string) (*Session, error) {
	m.mu.Lock()
	prev := m.sessions[sessionID]
	delete(m.sessions, sessionID)
	m.mu.Unlock()

	if prev != nil {
		if err := prev.close(); err != nil {
			log.Printf("🚨 Session %s: %v", sessionID, err)
			return nil, fmt.Errorf("%w: session %s", ErrSubscriptionLeak, sessionID)
		}
	}

	sub, err := m.source.Subscribe(ctx,
		feed.TableOffers, feed.TablePayments, feed.TableRequestAlerts)
	if err != nil {
		return nil, fmt.Errorf("abonnement flux: %w", err)
	}

	m.mu.Lock()
	counters := m.counters[sessionID]
	if counters == nil {
		counters = NewCounters()
		m.counters[sessionID] = counters
	}

	s := &Session{
		ID:       sessionID,
		UserID:   userID,
		counters: counters,
		sub:      sub,
		bus:      m.bus,
		resolve:  m.resolve,
		toasts:   make(chan Toast, 32),
		done:     make(chan struct{}),
	}
	m.sessions[sessionID] = s
	m.mu.Unlock()

	go s.loop()
	log.Printf("🔔 Abonnements fan-out acquis pour la session %s", sessionID)
	return s, nil
}

// Release démonte les abonnements d'une session. Idempotent, et comparé
// par identité : le Release tardif d'une connexion précédente ne doit
// jamais démonter l'abonnement qu'une connexion plus récente vient
// d'acquérir pour la même session.
func (m *Manager) Release(s *Session) {
	if s == nil {
		return
	}

	m.mu.Lock()
	if m.sessions[s.ID] != s {
		m.mu.Unlock()
		return
	}
	delete(m.sessions, s.ID)
	m.mu.Unlock()

	if err := s.close(); err != nil {
		log.Printf("🚨 Session %s: %v", s.ID, err)
		return
	}
	log.Printf("🔕 Abonnements fan-out relâchés pour la session %s", s.ID)
}

// Counters retourne les compteurs d'une session (objet `notifications`)
func (m *Manager) Counters(sessionID string) *Counters {
	m.mu.Lock()
	defer m.mu.Unlock()

	c := m.counters[sessionID]
	if c == nil {
		c = NewCounters()
		m.counters[sessionID] = c
	}
	return c
}

// ResetNotification remet à zéro une seule catégorie de la session
func (m *Manager) ResetNotification(sessionID, category string) {
	m.Counters(sessionID).Reset(category)
}

// Toasts est le canal des messages à pousser vers l'interface
func (s *Session) Toasts() <-chan Toast {
	return s.toasts
}

// Counters expose les compteurs de la session
func (s *Session) Counters() *Counters {
	return s.counters
}

func (s *Session) close() error {
	if err := s.sub.Close(); err != nil {
		return fmt.Errorf("fermeture abonnement: %w", err)
	}
	select {
	case <-s.done:
		return nil
	case <-time.After(5 * time.Second):
		// La boucle aurait dû se terminer à la fermeture du canal
		return ErrSubscriptionLeak
	}
}

// loop est l'unique boucle d'abonnement de la session. Elle ne bloque
// jamais sur de l'I/O : la résolution du texte d'un toast part en
// fire-and-forget, le compteur est déjà incrémenté.
func (s *Session) loop() {
	defer close(s.done)
	for e := range s.sub.Events() {
		s.handle(e)
	}
}

// handle classifie un événement brut en effets visibles pour la session.
// Livraison at-least-once et ordre par ligne seulement : aucune hypothèse
// d'ordre entre tables ici.
func (s *Session) handle(e feed.Event) {
	switch e.Table {
	case feed.TableOffers:
		s.handleOffer(e)
	case feed.TablePayments:
		s.handlePayment(e)
	case feed.TableRequestAlerts:
		s.handleRequestAlert(e)
	}
}

func (s *Session) handleOffer(e feed.Event) {
	o := e.Offer
	if o == nil {
		return
	}

	switch {
	case e.Kind == feed.KindInsert && o.Status == models.OfferProposed && o.ClientID == s.UserID:
		// Vue cliente : nouvelle proposition reçue
		s.counters.Increment(CategoryNewOffers)
		s.pushToast(Toast{Category: CategoryNewOffers,
			Message: fmt.Sprintf("Nouvelle proposition pour votre demande %s (%.2f€)", o.Service, o.Price())})
	case e.Kind == feed.KindUpdate && o.Status == models.OfferConfirmed && o.ClientID == s.UserID:
		// Confirmation vue cliente : toast seul, pas de compteur
		s.pushToast(Toast{Category: CategoryNewOffers,
			Message: fmt.Sprintf("Votre réservation %s est confirmée", o.Service)})
	case e.Kind == feed.KindUpdate && o.Status == models.OfferConfirmed && o.ProfessionalID == s.UserID:
		s.pushToast(Toast{Category: CategoryNewOffers,
			Message: fmt.Sprintf("Mission %s confirmée et payée", o.Service)})
	default:
		return
	}

	s.bus.Publish(e)
}

func (s *Session) handlePayment(e feed.Event) {
	p := e.Payment
	if p == nil || e.Kind != feed.KindInsert {
		return
	}

	switch s.UserID {
	case p.ClientID:
		s.counters.Increment(CategoryPayments)
		s.pushToast(Toast{Category: CategoryPayments,
			Message: fmt.Sprintf("Paiement de %.2f€ enregistré", float64(p.AmountCents)/100)})
	case p.ProfessionalID:
		// Côté pro : toast seul
		s.pushToast(Toast{Category: CategoryPayments,
			Message: fmt.Sprintf("Mission payée, %.2f€ net à venir", float64(p.NetAmountCents)/100)})
	default:
		return
	}

	s.bus.Publish(e)
}

func (s *Session) handleRequestAlert(e feed.Event) {
	a := e.RequestAlert
	if a == nil || e.Kind != feed.KindInsert || a.ProfessionalID != s.UserID {
		return
	}

	// Le compteur et la rediffusion partent tout de suite : un échec de
	// résolution du nom du service ne doit jamais faire perdre la
	// notification, seulement dégrader le texte.
	s.counters.Increment(CategoryNewRequests)
	s.bus.Publish(e)

	alert := *a
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()

		message := "Nouvelle demande près de chez vous"
		if s.resolve != nil {
			if service, err := s.resolve(ctx, alert.RequestID); err == nil && service != "" {
				message = fmt.Sprintf("Nouvelle demande %s à %.1f km", service, alert.DistanceKm)
			} else if err != nil {
				log.Printf("⚠️ Nom du service introuvable pour la demande %s: %v", alert.RequestID, err)
			}
		}
		s.pushToast(Toast{Category: CategoryNewRequests, Message: message})
	}()
}

// pushToast n'attend jamais : une interface saturée perd le toast, pas la
// boucle d'abonnement.
func (s *Session) pushToast(t Toast) {
	select {
	case s.toasts <- t:
	default:
	}
}
