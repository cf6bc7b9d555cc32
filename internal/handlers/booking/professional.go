package booking

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"beautiz_back_end/internal/models"
	"beautiz_back_end/internal/services"
)

// RegisterProfessionalProfile indexe le profil de proximité d'une pro
// (services proposés + position). C'est cet index qui alimente les alertes
// "nouvelle demande près de chez vous".
func RegisterProfessionalProfile(c *gin.Context) {
	proID := c.GetString("user_id")

	var req struct {
		Name      string   `json:"name" binding:"required"`
		Services  []string `json:"services" binding:"required,min=1"`
		Latitude  float64  `json:"latitude" binding:"required"`
		Longitude float64  `json:"longitude" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Données invalides", "details": err.Error()})
		return
	}

	pro := models.Professional{
		ID:       proID,
		Name:     req.Name,
		Services: req.Services,
		Location: models.GeoPoint{Lat: req.Latitude, Lon: req.Longitude},
	}

	// Indexation en tâche de fond, la réponse n'attend pas Elasticsearch
	go services.IndexProfessional(pro)

	c.JSON(http.StatusAccepted, gin.H{"professional": pro})
}
