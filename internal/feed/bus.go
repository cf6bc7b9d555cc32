package feed

import "sync"

// Bus est un pub/sub local au processus sur lequel le fan-out rediffuse
// chaque événement classifié. Les vues montées s'y abonnent par table pour
// décider elles-mêmes de rafraîchir leurs listes : se rafraîchir deux fois
// est un no-op inoffensif, un listener n'a jamais besoin d'inspecter
// l'identité d'un événement.
type Bus struct {
	mu        sync.RWMutex
	listeners map[string][]chan Event
}

func NewBus() *Bus {
	return &Bus{listeners: make(map[string][]chan Event)}
}

// Listen abonne un listener aux événements d'une table. Le canal retourné
// est tamponné ; un listener trop lent perd des événements plutôt que de
// bloquer la boucle de fan-out.
func (b *Bus) Listen(table string) <-chan Event {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch := make(chan Event, 16)
	b.listeners[table] = append(b.listeners[table], ch)
	return ch
}

// Publish rediffuse l'événement à tous les listeners de sa table,
// sans jamais bloquer.
func (b *Bus) Publish(e Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, ch := range b.listeners[e.Table] {
		select {
		case ch <- e:
		default:
			// listener saturé, l'événement suivant le resynchronisera
		}
	}
}
