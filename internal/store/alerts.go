package store

import (
	"context"

	"beautiz_back_end/internal/feed"
	"beautiz_back_end/internal/models"
)

// InsertRequestAlert enregistre l'alerte "nouvelle demande à proximité"
// destinée à une pro et la publie sur le flux.
func (s *Store) InsertRequestAlert(ctx context.Context, a *models.RequestAlert) error {
	err := s.session.Query(`
		INSERT INTO request_alerts (alert_id, request_id, professional_id, distance_km, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, a.ID, a.RequestID, a.ProfessionalID, a.DistanceKm, a.CreatedAt).
		WithContext(ctx).Exec()
	if err != nil {
		return err
	}

	s.pub.Publish(ctx, feed.Event{Table: feed.TableRequestAlerts, Kind: feed.KindInsert, RequestAlert: a})
	return nil
}
