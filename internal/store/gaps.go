package store

import (
	"context"

	"beautiz_back_end/internal/models"
)

// InsertReconciliationGap trace un écart de réconciliation à résoudre à la main
func (s *Store) InsertReconciliationGap(ctx context.Context, g *models.ReconciliationGap) error {
	return s.session.Query(`
		INSERT INTO reconciliation_gaps (gap_id, offer_id, payment_id, mode, detail, resolved, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, g.ID, g.OfferID, g.PaymentID, g.Mode, g.Detail, g.Resolved, g.CreatedAt).
		WithContext(ctx).Exec()
}

// ListUnresolvedGaps liste les écarts encore ouverts pour le passage planifié
func (s *Store) ListUnresolvedGaps(ctx context.Context) ([]models.ReconciliationGap, error) {
	iter := s.session.Query(`
		SELECT gap_id, offer_id, payment_id, mode, detail, resolved, created_at
		FROM reconciliation_gaps WHERE resolved = false ALLOW FILTERING
	`).WithContext(ctx).Iter()

	var gaps []models.ReconciliationGap
	var g models.ReconciliationGap
	for iter.Scan(&g.ID, &g.OfferID, &g.PaymentID, &g.Mode, &g.Detail, &g.Resolved, &g.CreatedAt) {
		gaps = append(gaps, g)
	}
	if err := iter.Close(); err != nil {
		return nil, err
	}
	return gaps, nil
}
