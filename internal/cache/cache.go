package cache

import (
	"context"
	"time"

	"github.com/gocql/gocql"

	"beautiz_back_end/internal/database"
)

const (
	ServiceNameCacheTTL = 10 * time.Minute
)

// GetRequestServiceName récupère le nom du service d'une demande depuis
// Redis, avec repli sur ScyllaDB. Utilisé pour le texte des toasts.
func GetRequestServiceName(ctx context.Context, requestID gocql.UUID) (string, error) {
	key := "request_service:" + requestID.String()

	// 1. Essayer le cache Redis
	if name, err := database.Redis.Get(ctx, key).Result(); err == nil && name != "" {
		return name, nil
	}

	// 2. Récupérer de ScyllaDB
	session, err := database.GetBookingsSession()
	if err != nil {
		return "", err
	}

	var service string
	err = session.Query("SELECT service FROM requests WHERE request_id = ?", requestID).
		WithContext(ctx).Scan(&service)
	if err != nil {
		return "", err
	}

	// 3. Mettre en cache
	database.Redis.Set(ctx, key, service, ServiceNameCacheTTL)

	return service, nil
}

// InvalidateRequestCache invalide le cache d'une demande
func InvalidateRequestCache(ctx context.Context, requestID gocql.UUID) {
	database.Redis.Del(ctx, "request_service:"+requestID.String())
}
