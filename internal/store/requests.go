package store

import (
	"context"
	"time"

	"github.com/gocql/gocql"

	"beautiz_back_end/internal/models"
)

// InsertRequest enregistre une nouvelle demande (statut pending)
func (s *Store) InsertRequest(ctx context.Context, r *models.Request) error {
	return s.session.Query(`
		INSERT INTO requests (request_id, client_id, service, date, time_slot, address,
			latitude, longitude, notes, status, professional_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, r.ID, r.ClientID, r.Service, r.Date, r.TimeSlot, r.Address,
		r.Latitude, r.Longitude, r.Notes, r.Status, r.ProfessionalID, r.CreatedAt).
		WithContext(ctx).Exec()
}

// GetRequest relit une demande par id
func (s *Store) GetRequest(ctx context.Context, id gocql.UUID) (*models.Request, error) {
	var r models.Request
	r.ID = id
	err := s.session.Query(`
		SELECT client_id, service, date, time_slot, address, latitude, longitude,
			notes, status, professional_id, created_at, updated_at
		FROM requests WHERE request_id = ?
	`, id).WithContext(ctx).Scan(&r.ClientID, &r.Service, &r.Date, &r.TimeSlot,
		&r.Address, &r.Latitude, &r.Longitude, &r.Notes, &r.Status,
		&r.ProfessionalID, &r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// AssignRequest verrouille la demande sur une pro : pending → proposed et
// professional_id posé dans la même écriture conditionnelle. Retourne false
// si la demande n'était plus pending (une autre pro a gagné la course).
func (s *Store) AssignRequest(ctx context.Context, requestID gocql.UUID, professionalID string) (bool, error) {
	applied, err := s.session.Query(`
		UPDATE requests SET status = ?, professional_id = ?, updated_at = ?
		WHERE request_id = ? IF status = ?
	`, models.RequestProposed, professionalID, time.Now(), requestID, models.RequestPending).
		WithContext(ctx).MapScanCAS(map[string]interface{}{})
	return applied, err
}

// ReleaseRequest annule un verrouillage après un échec d'insertion de la
// mission : proposed → pending, seulement si c'est encore notre verrou.
func (s *Store) ReleaseRequest(ctx context.Context, requestID gocql.UUID, professionalID string) (bool, error) {
	applied, err := s.session.Query(`
		UPDATE requests SET status = ?, professional_id = ?, updated_at = ?
		WHERE request_id = ? IF status = ? AND professional_id = ?
	`, models.RequestPending, "", time.Now(), requestID,
		models.RequestProposed, professionalID).
		WithContext(ctx).MapScanCAS(map[string]interface{}{})
	return applied, err
}

// UpdateRequestStatus effectue une transition conditionnelle from → to
func (s *Store) UpdateRequestStatus(ctx context.Context, requestID gocql.UUID, from, to string) (bool, error) {
	applied, err := s.session.Query(`
		UPDATE requests SET status = ?, updated_at = ? WHERE request_id = ? IF status = ?
	`, to, time.Now(), requestID, from).
		WithContext(ctx).MapScanCAS(map[string]interface{}{})
	return applied, err
}
