package models

// Professional est le profil minimal d'une pro tel qu'indexé dans
// Elasticsearch pour la recherche de proximité. Le reste du profil
// (photos, bio, vérification) vit dans le service utilisateurs.
type Professional struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	Services []string `json:"services"`
	Location GeoPoint `json:"location"`
}

// GeoPoint au format attendu par Elasticsearch (geo_point)
type GeoPoint struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}
