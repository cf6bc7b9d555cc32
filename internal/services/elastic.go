package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"math"

	"github.com/elastic/go-elasticsearch/v8/esapi"

	"beautiz_back_end/internal/database"
	"beautiz_back_end/internal/models"
)

const professionalsIndex = "professionals"

//
// --- INDEXATION DANS ELASTICSEARCH ---
//

// IndexProfessional indexe le profil minimal d'une pro (services + position)
func IndexProfessional(p models.Professional) {
	if database.Elastic == nil {
		log.Println("⚠️ Elastic non initialisé, impossible d'indexer:", p.ID)
		return
	}

	data, _ := json.Marshal(p)
	req := esapi.IndexRequest{
		Index:      professionalsIndex,
		DocumentID: p.ID,
		Body:       bytes.NewReader(data),
		Refresh:    "true",
	}

	res, err := req.Do(context.Background(), database.Elastic)
	if err != nil {
		log.Println("❌ Erreur envoi Elastic:", err)
		return
	}
	defer res.Body.Close()

	if res.IsError() {
		log.Printf("⚠️ Elastic a renvoyé une erreur pour %s: %s", p.ID, res.String())
	} else {
		log.Printf("✅ Pro indexée dans Elasticsearch: %s", p.ID)
	}
}

//
// --- RECHERCHE DE PROXIMITÉ ---
//

// NearbyProfessional est une pro trouvée autour d'une demande
type NearbyProfessional struct {
	ID         string
	DistanceKm float64
}

// FindNearbyProfessionals cherche les pros proposant le service demandé
// dans un rayon donné autour de la demande (geo_distance).
func FindNearbyProfessionals(ctx context.Context, lat, lon, radiusKm float64, service string) ([]NearbyProfessional, error) {
	if database.Elastic == nil {
		return nil, errors.New("client Elasticsearch non initialisé")
	}

	var buf bytes.Buffer
	q := map[string]interface{}{
		"size": 50,
		"query": map[string]interface{}{
			"bool": map[string]interface{}{
				"must": map[string]interface{}{
					"term": map[string]interface{}{"services": service},
				},
				"filter": map[string]interface{}{
					"geo_distance": map[string]interface{}{
						"distance": fmt.Sprintf("%.1fkm", radiusKm),
						"location": map[string]float64{"lat": lat, "lon": lon},
					},
				},
			},
		},
	}

	if err := json.NewEncoder(&buf).Encode(q); err != nil {
		return nil, fmt.Errorf("erreur encodage requête: %v", err)
	}

	req := esapi.SearchRequest{
		Index: []string{professionalsIndex},
		Body:  &buf,
	}
	res, err := req.Do(ctx, database.Elastic)
	if err != nil {
		return nil, fmt.Errorf("erreur requête Elastic: %v", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		var e map[string]interface{}
		json.NewDecoder(res.Body).Decode(&e)
		log.Printf("❌ Elasticsearch erreur: %+v", e)
		return nil, errors.New("index non trouvé ou vide")
	}

	var r struct {
		Hits struct {
			Hits []struct {
				ID     string              `json:"_id"`
				Source models.Professional `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&r); err != nil {
		return nil, fmt.Errorf("erreur décodage réponse: %v", err)
	}

	var nearby []NearbyProfessional
	for _, hit := range r.Hits.Hits {
		nearby = append(nearby, NearbyProfessional{
			ID:         hit.ID,
			DistanceKm: haversineKm(lat, lon, hit.Source.Location.Lat, hit.Source.Location.Lon),
		})
	}
	return nearby, nil
}

// haversineKm calcule la distance entre deux points en kilomètres
func haversineKm(lat1, lon1, lat2, lon2 float64) float64 {
	const earthRadiusKm = 6371.0

	dLat := (lat2 - lat1) * math.Pi / 180
	dLon := (lon2 - lon1) * math.Pi / 180

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1*math.Pi/180)*math.Cos(lat2*math.Pi/180)*
			math.Sin(dLon/2)*math.Sin(dLon/2)

	return 2 * earthRadiusKm * math.Asin(math.Sqrt(a))
}
