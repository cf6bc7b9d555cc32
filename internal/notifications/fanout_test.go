package notifications

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gocql/gocql"

	"beautiz_back_end/internal/feed"
	"beautiz_back_end/internal/models"
)

// fakeSource rejoue le flux de changements en mémoire : les tests poussent
// les événements directement dans le dernier abonnement ouvert.
type fakeSubscription struct {
	events chan feed.Event
	mu     sync.Mutex
	closed bool
}

func (s *fakeSubscription) Events() <-chan feed.Event { return s.events }

func (s *fakeSubscription) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.closed = true
		close(s.events)
	}
	return nil
}

func (s *fakeSubscription) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

type fakeSource struct {
	mu   sync.Mutex
	subs []*fakeSubscription
}

func (f *fakeSource) Subscribe(_ context.Context, _ ...string) (feed.Subscription, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	sub := &fakeSubscription{events: make(chan feed.Event, 16)}
	f.subs = append(f.subs, sub)
	return sub, nil
}

func (f *fakeSource) emit(e feed.Event) {
	f.mu.Lock()
	sub := f.subs[len(f.subs)-1]
	f.mu.Unlock()
	sub.events <- e
}

func waitToast(t *testing.T, s *Session) Toast {
	t.Helper()
	select {
	case toast := <-s.Toasts():
		return toast
	case <-time.After(2 * time.Second):
		t.Fatal("aucun toast reçu")
		return Toast{}
	}
}

func expectNoToast(t *testing.T, s *Session) {
	t.Helper()
	select {
	case toast := <-s.Toasts():
		t.Fatalf("toast inattendu: %+v", toast)
	case <-time.After(100 * time.Millisecond):
	}
}

func offerEvent(kind, status, clientID, proID string) feed.Event {
	return feed.Event{
		Table: feed.TableOffers,
		Kind:  kind,
		Offer: &models.Offer{
			ID:             gocql.TimeUUID(),
			ClientID:       clientID,
			ProfessionalID: proID,
			Service:        "coiffure",
			ServicePrice:   40.00,
			TravelFee:      5.00,
			Status:         status,
		},
	}
}

func paymentEvent(clientID, proID string) feed.Event {
	return feed.Event{
		Table: feed.TablePayments,
		Kind:  feed.KindInsert,
		Payment: &models.Payment{
			ID:             gocql.TimeUUID(),
			ClientID:       clientID,
			ProfessionalID: proID,
			AmountCents:    4500,
			NetAmountCents: 4050,
			Status:         models.PaymentPaid,
		},
	}
}

func alertEvent(proID string, requestID gocql.UUID) feed.Event {
	return feed.Event{
		Table: feed.TableRequestAlerts,
		Kind:  feed.KindInsert,
		RequestAlert: &models.RequestAlert{
			ID:             gocql.TimeUUID(),
			RequestID:      requestID,
			ProfessionalID: proID,
			DistanceKm:     3.2,
			CreatedAt:      time.Now(),
		},
	}
}

func TestFanoutClassification(t *testing.T) {
	ctx := context.Background()

	t.Run("Given une session cliente When une proposition arrive Then compteur new_offers et toast", func(t *testing.T) {
		source := &fakeSource{}
		m := NewManager(source, feed.NewBus(), nil)
		s, err := m.Acquire(ctx, "sess-1", "client-1")
		if err != nil {
			t.Fatalf("Acquire: %v", err)
		}
		defer m.Release(s)

		source.emit(offerEvent(feed.KindInsert, models.OfferProposed, "client-1", "pro-1"))

		toast := waitToast(t, s)
		if toast.Category != CategoryNewOffers {
			t.Errorf("catégorie = %s, attendu new_offers", toast.Category)
		}
		if s.Counters().Get(CategoryNewOffers) != 1 {
			t.Errorf("new_offers = %d, attendu 1", s.Counters().Get(CategoryNewOffers))
		}
	})

	t.Run("Given une session d'une autre cliente When une proposition arrive Then rien", func(t *testing.T) {
		source := &fakeSource{}
		m := NewManager(source, feed.NewBus(), nil)
		s, err := m.Acquire(ctx, "sess-1", "client-2")
		if err != nil {
			t.Fatalf("Acquire: %v", err)
		}
		defer m.Release(s)

		source.emit(offerEvent(feed.KindInsert, models.OfferProposed, "client-1", "pro-1"))

		expectNoToast(t, s)
		if s.Counters().Get(CategoryNewOffers) != 0 {
			t.Error("le compteur d'une autre cliente ne doit pas bouger")
		}
	})

	t.Run("Given une mission confirmée When l'événement arrive Then toast sans compteur", func(t *testing.T) {
		source := &fakeSource{}
		m := NewManager(source, feed.NewBus(), nil)
		s, err := m.Acquire(ctx, "sess-1", "client-1")
		if err != nil {
			t.Fatalf("Acquire: %v", err)
		}
		defer m.Release(s)

		source.emit(offerEvent(feed.KindUpdate, models.OfferConfirmed, "client-1", "pro-1"))

		toast := waitToast(t, s)
		if !strings.Contains(toast.Message, "confirmée") {
			t.Errorf("message = %q", toast.Message)
		}
		if s.Counters().Get(CategoryNewOffers) != 0 {
			t.Error("une confirmation ne produit pas de non-lu")
		}
	})

	t.Run("Given une session cliente When son paiement est enregistré Then compteur payments et toast", func(t *testing.T) {
		source := &fakeSource{}
		m := NewManager(source, feed.NewBus(), nil)
		s, err := m.Acquire(ctx, "sess-1", "client-1")
		if err != nil {
			t.Fatalf("Acquire: %v", err)
		}
		defer m.Release(s)

		source.emit(paymentEvent("client-1", "pro-1"))

		toast := waitToast(t, s)
		if toast.Category != CategoryPayments {
			t.Errorf("catégorie = %s", toast.Category)
		}
		if s.Counters().Get(CategoryPayments) != 1 {
			t.Errorf("payments = %d, attendu 1", s.Counters().Get(CategoryPayments))
		}
	})

	t.Run("Given une session pro When le paiement de sa mission arrive Then toast seul, pas de compteur", func(t *testing.T) {
		source := &fakeSource{}
		m := NewManager(source, feed.NewBus(), nil)
		s, err := m.Acquire(ctx, "sess-1", "pro-1")
		if err != nil {
			t.Fatalf("Acquire: %v", err)
		}
		defer m.Release(s)

		source.emit(paymentEvent("client-1", "pro-1"))

		waitToast(t, s)
		if s.Counters().Get(CategoryPayments) != 0 {
			t.Error("côté pro le paiement ne produit pas de non-lu")
		}
	})
}

func TestFanoutRequestAlerts(t *testing.T) {
	ctx := context.Background()
	requestID := gocql.TimeUUID()

	t.Run("Given une alerte de proximité When le nom du service se résout Then toast complet", func(t *testing.T) {
		source := &fakeSource{}
		resolve := func(_ context.Context, id gocql.UUID) (string, error) {
			if id != requestID {
				return "", errors.New("demande inconnue")
			}
			return "coiffure", nil
		}
		m := NewManager(source, feed.NewBus(), resolve)
		s, err := m.Acquire(ctx, "sess-1", "pro-1")
		if err != nil {
			t.Fatalf("Acquire: %v", err)
		}
		defer m.Release(s)

		source.emit(alertEvent("pro-1", requestID))

		toast := waitToast(t, s)
		if !strings.Contains(toast.Message, "coiffure") {
			t.Errorf("message = %q, le nom du service doit apparaître", toast.Message)
		}
		if s.Counters().Get(CategoryNewRequests) != 1 {
			t.Errorf("new_requests = %d, attendu 1", s.Counters().Get(CategoryNewRequests))
		}
	})

	t.Run("Given un résolveur en échec When l'alerte arrive Then texte dégradé mais notification jamais perdue", func(t *testing.T) {
		source := &fakeSource{}
		resolve := func(_ context.Context, _ gocql.UUID) (string, error) {
			return "", errors.New("cache indisponible")
		}
		m := NewManager(source, feed.NewBus(), resolve)
		s, err := m.Acquire(ctx, "sess-1", "pro-1")
		if err != nil {
			t.Fatalf("Acquire: %v", err)
		}
		defer m.Release(s)

		source.emit(alertEvent("pro-1", requestID))

		toast := waitToast(t, s)
		if toast.Message != "Nouvelle demande près de chez vous" {
			t.Errorf("message = %q, attendu le texte générique", toast.Message)
		}
		if s.Counters().Get(CategoryNewRequests) != 1 {
			t.Error("le compteur doit être incrémenté malgré l'échec du résolveur")
		}
	})
}

func TestFanoutSessions(t *testing.T) {
	ctx := context.Background()

	t.Run("Given une ré-acquisition rapide When la même session se réabonne Then l'ancien abonnement est démonté et rien n'est compté deux fois", func(t *testing.T) {
		source := &fakeSource{}
		m := NewManager(source, feed.NewBus(), nil)

		if _, err := m.Acquire(ctx, "sess-1", "client-1"); err != nil {
			t.Fatalf("première acquisition: %v", err)
		}
		s2, err := m.Acquire(ctx, "sess-1", "client-1")
		if err != nil {
			t.Fatalf("seconde acquisition: %v", err)
		}
		defer m.Release(s2)

		if !source.subs[0].isClosed() {
			t.Fatal("le premier abonnement doit être fermé avant le second")
		}

		source.emit(offerEvent(feed.KindInsert, models.OfferProposed, "client-1", "pro-1"))
		waitToast(t, s2)

		if got := s2.Counters().Get(CategoryNewOffers); got != 1 {
			t.Fatalf("new_offers = %d, attendu 1 (pas de double comptage)", got)
		}
	})

	t.Run("Given une reconnexion rapide When le Release tardif de l'ancienne connexion arrive Then le nouvel abonnement reste vivant", func(t *testing.T) {
		source := &fakeSource{}
		m := NewManager(source, feed.NewBus(), nil)

		s1, err := m.Acquire(ctx, "sess-1", "client-1")
		if err != nil {
			t.Fatalf("première acquisition: %v", err)
		}
		s2, err := m.Acquire(ctx, "sess-1", "client-1")
		if err != nil {
			t.Fatalf("seconde acquisition: %v", err)
		}
		defer m.Release(s2)

		// Le defer de la première connexion part APRÈS la seconde acquisition
		m.Release(s1)

		if source.subs[1].isClosed() {
			t.Fatal("le Release périmé ne doit pas fermer l'abonnement de la nouvelle connexion")
		}

		source.emit(offerEvent(feed.KindInsert, models.OfferProposed, "client-1", "pro-1"))
		waitToast(t, s2)

		if got := s2.Counters().Get(CategoryNewOffers); got != 1 {
			t.Fatalf("new_offers = %d, attendu 1", got)
		}
	})

	t.Run("Given des compteurs accumulés When la session se réabonne Then les compteurs survivent", func(t *testing.T) {
		source := &fakeSource{}
		m := NewManager(source, feed.NewBus(), nil)

		s1, err := m.Acquire(ctx, "sess-1", "client-1")
		if err != nil {
			t.Fatalf("Acquire: %v", err)
		}
		source.emit(offerEvent(feed.KindInsert, models.OfferProposed, "client-1", "pro-1"))
		waitToast(t, s1)
		m.Release(s1)

		s2, err := m.Acquire(ctx, "sess-1", "client-1")
		if err != nil {
			t.Fatalf("ré-acquisition: %v", err)
		}
		defer m.Release(s2)

		if got := s2.Counters().Get(CategoryNewOffers); got != 1 {
			t.Fatalf("new_offers = %d après reconnexion, attendu 1", got)
		}
	})

	t.Run("Given plusieurs catégories non-lues When on en remet une à zéro Then les autres ne bougent pas", func(t *testing.T) {
		source := &fakeSource{}
		m := NewManager(source, feed.NewBus(), nil)

		s, err := m.Acquire(ctx, "sess-1", "client-1")
		if err != nil {
			t.Fatalf("Acquire: %v", err)
		}
		defer m.Release(s)

		source.emit(offerEvent(feed.KindInsert, models.OfferProposed, "client-1", "pro-1"))
		waitToast(t, s)
		source.emit(paymentEvent("client-1", "pro-1"))
		waitToast(t, s)

		m.ResetNotification("sess-1", CategoryNewOffers)

		snap := m.Counters("sess-1").Snapshot()
		if snap[CategoryNewOffers] != 0 {
			t.Errorf("new_offers = %d, attendu 0 après reset", snap[CategoryNewOffers])
		}
		if snap[CategoryPayments] != 1 {
			t.Errorf("payments = %d, le reset est limité à une catégorie", snap[CategoryPayments])
		}
	})

	t.Run("Given un listener de vue sur le bus When un événement est classifié Then il est rediffusé", func(t *testing.T) {
		source := &fakeSource{}
		bus := feed.NewBus()
		m := NewManager(source, bus, nil)

		s, err := m.Acquire(ctx, "sess-1", "client-1")
		if err != nil {
			t.Fatalf("Acquire: %v", err)
		}
		defer m.Release(s)

		viewRefresh := bus.Listen(feed.TableOffers)
		source.emit(offerEvent(feed.KindInsert, models.OfferProposed, "client-1", "pro-1"))
		waitToast(t, s)

		select {
		case e := <-viewRefresh:
			if e.Table != feed.TableOffers || e.Kind != feed.KindInsert {
				t.Errorf("événement rediffusé inattendu: %s/%s", e.Table, e.Kind)
			}
		case <-time.After(2 * time.Second):
			t.Fatal("l'événement doit être rediffusé sur le bus local")
		}
	})
}
