package notifications

import "sync"

// Catégories de notification exposées à l'interface
const (
	CategoryNewOffers   = "new_offers"
	CategoryPayments    = "payments"
	CategoryNewRequests = "new_requests"
)

// Counters tient les compteurs non-lus d'une session. La remise à zéro est
// volontairement grossière : consulter la liste des propositions vide la
// catégorie entière, quel que soit l'événement qui a produit le compte.
type Counters struct {
	mu     sync.Mutex
	counts map[string]int
}

func NewCounters() *Counters {
	return &Counters{counts: make(map[string]int)}
}

// Increment ajoute un non-lu à la catégorie
func (c *Counters) Increment(category string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.counts[category]++
}

// Reset remet à zéro UNE catégorie, les autres ne bougent pas
func (c *Counters) Reset(category string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.counts[category] = 0
}

// Get retourne le compteur d'une catégorie
func (c *Counters) Get(category string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.counts[category]
}

// Snapshot retourne une copie de tous les compteurs
func (c *Counters) Snapshot() map[string]int {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := map[string]int{
		CategoryNewOffers:   c.counts[CategoryNewOffers],
		CategoryPayments:    c.counts[CategoryPayments],
		CategoryNewRequests: c.counts[CategoryNewRequests],
	}
	return out
}
