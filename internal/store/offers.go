package store

import (
	"context"
	"time"

	"github.com/gocql/gocql"

	"beautiz_back_end/internal/feed"
	"beautiz_back_end/internal/models"
)

// InsertOffer enregistre une mission (statut proposed) et publie
// l'événement d'insertion sur le flux.
func (s *Store) InsertOffer(ctx context.Context, o *models.Offer) error {
	err := s.session.Query(`
		INSERT INTO offers (offer_id, request_id, client_id, professional_id, service,
			date, time_slot, service_price, travel_fee, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, o.ID, o.RequestID, o.ClientID, o.ProfessionalID, o.Service,
		o.Date, o.TimeSlot, o.ServicePrice, o.TravelFee, o.Status, o.CreatedAt).
		WithContext(ctx).Exec()
	if err != nil {
		return err
	}

	s.pub.Publish(ctx, feed.Event{Table: feed.TableOffers, Kind: feed.KindInsert, Offer: o})
	return nil
}

// GetOffer relit une mission par id
func (s *Store) GetOffer(ctx context.Context, id gocql.UUID) (*models.Offer, error) {
	var o models.Offer
	o.ID = id
	err := s.session.Query(`
		SELECT request_id, client_id, professional_id, service, date, time_slot,
			service_price, travel_fee, status, created_at, updated_at
		FROM offers WHERE offer_id = ?
	`, id).WithContext(ctx).Scan(&o.RequestID, &o.ClientID, &o.ProfessionalID,
		&o.Service, &o.Date, &o.TimeSlot, &o.ServicePrice, &o.TravelFee,
		&o.Status, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &o, nil
}

// UpdateOfferStatus effectue une transition conditionnelle from → to puis
// publie la ligne fraîchement relue sur le flux. Retourne false sans publier
// si la ligne n'était plus dans l'état attendu.
func (s *Store) UpdateOfferStatus(ctx context.Context, offerID gocql.UUID, from, to string) (bool, error) {
	applied, err := s.session.Query(`
		UPDATE offers SET status = ?, updated_at = ? WHERE offer_id = ? IF status = ?
	`, to, time.Now(), offerID, from).
		WithContext(ctx).MapScanCAS(map[string]interface{}{})
	if err != nil || !applied {
		return applied, err
	}

	if o, err := s.GetOffer(ctx, offerID); err == nil {
		s.pub.Publish(ctx, feed.Event{Table: feed.TableOffers, Kind: feed.KindUpdate, Offer: o})
	}
	return true, nil
}
