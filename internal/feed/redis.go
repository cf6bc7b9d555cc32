package feed

import (
	"context"
	"log"

	"github.com/redis/go-redis/v9"
)

// Publisher publie les changements de lignes sur le flux
type Publisher interface {
	Publish(ctx context.Context, e Event)
}

// Subscription est un abonnement actif au flux de changements.
// Close doit être appelé de façon déterministe à la fin de la session.
type Subscription interface {
	Events() <-chan Event
	Close() error
}

// Source ouvre des abonnements au flux, une table ou plus à la fois
type Source interface {
	Subscribe(ctx context.Context, tables ...string) (Subscription, error)
}

// RedisFeed implémente Publisher et Source au-dessus de Redis pub/sub.
// Garantie portée : ordre par ligne au sein d'une table, livraison
// at-least-once. Aucun ordre global entre tables.
type RedisFeed struct {
	client *redis.Client
}

func NewRedisFeed(client *redis.Client) *RedisFeed {
	return &RedisFeed{client: client}
}

// Publish pousse l'événement sur le canal de sa table. Une erreur de
// publication est loguée mais ne fait pas échouer l'écriture qui l'a
// produite : la ligne est déjà en base.
func (f *RedisFeed) Publish(ctx context.Context, e Event) {
	payload, err := e.Marshal()
	if err != nil {
		log.Printf("❌ Événement feed invalide (%s/%s): %v", e.Table, e.Kind, err)
		return
	}
	if err := f.client.Publish(ctx, Channel(e.Table), payload).Err(); err != nil {
		log.Printf("❌ Erreur publication feed %s: %v", e.Table, err)
	}
}

// Subscribe ouvre un abonnement Redis sur les canaux des tables demandées
// et décode les payloads en événements typés.
func (f *RedisFeed) Subscribe(ctx context.Context, tables ...string) (Subscription, error) {
	channels := make([]string, 0, len(tables))
	for _, t := range tables {
		channels = append(channels, Channel(t))
	}

	pubsub := f.client.Subscribe(ctx, channels...)
	// Force l'établissement de la connexion avant de rendre la main
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		return nil, err
	}

	sub := &redisSubscription{
		pubsub: pubsub,
		events: make(chan Event, 64),
	}
	go sub.loop()
	return sub, nil
}

type redisSubscription struct {
	pubsub *redis.PubSub
	events chan Event
}

func (s *redisSubscription) loop() {
	defer close(s.events)
	for msg := range s.pubsub.Channel() {
		e, err := Unmarshal([]byte(msg.Payload))
		if err != nil {
			log.Printf("⚠️ Payload feed illisible sur %s: %v", msg.Channel, err)
			continue
		}
		s.events <- e
	}
}

func (s *redisSubscription) Events() <-chan Event {
	return s.events
}

func (s *redisSubscription) Close() error {
	return s.pubsub.Close()
}
