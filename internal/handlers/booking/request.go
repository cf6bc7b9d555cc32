package booking

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gocql/gocql"
	"github.com/google/uuid"

	"beautiz_back_end/internal/cache"
	"beautiz_back_end/internal/lifecycle"
	"beautiz_back_end/internal/models"
	"beautiz_back_end/internal/services"
	"beautiz_back_end/internal/store"
)

var (
	bookings *store.Store
	machine  *lifecycle.Machine
)

// Setup branche les handlers réservation sur le magasin et la machine à états
func Setup(s *store.Store, m *lifecycle.Machine) {
	bookings = s
	machine = m
}

// Rayon de notification des pros autour d'une nouvelle demande
const alertRadiusKm = 20.0

// CreateRequest enregistre la demande d'une cliente (statut pending) puis
// alerte les pros à proximité en tâche de fond.
func CreateRequest(c *gin.Context) {
	userID := c.GetString("user_id")

	var req struct {
		Service   string  `json:"service" binding:"required"`
		Date      string  `json:"date" binding:"required"`
		TimeSlot  string  `json:"time_slot" binding:"required"`
		Address   string  `json:"address" binding:"required"`
		Latitude  float64 `json:"latitude" binding:"required"`
		Longitude float64 `json:"longitude" binding:"required"`
		Notes     string  `json:"notes"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Données invalides", "details": err.Error()})
		return
	}

	request := &models.Request{
		ID:        gocql.TimeUUID(),
		ClientID:  userID,
		Service:   req.Service,
		Date:      req.Date,
		TimeSlot:  req.TimeSlot,
		Address:   req.Address,
		Latitude:  req.Latitude,
		Longitude: req.Longitude,
		Notes:     req.Notes,
		Status:    models.RequestPending,
		CreatedAt: time.Now(),
	}

	if err := bookings.InsertRequest(c.Request.Context(), request); err != nil {
		log.Printf("❌ Erreur création demande: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur création demande"})
		return
	}

	log.Printf("📋 Demande %s créée par %s (%s)", request.ID, userID, request.Service)

	// Fan-out des alertes pros en fire-and-forget : la réponse HTTP
	// n'attend pas Elasticsearch
	go fanRequestAlerts(*request)

	c.JSON(http.StatusCreated, gin.H{"request": request})
}

// fanRequestAlerts cherche les pros proposant le service dans le rayon
// configuré et insère une alerte par pro. Chaque insertion part sur le flux
// de changements et alimente le compteur "nouvelles demandes" de la pro.
func fanRequestAlerts(request models.Request) {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	nearby, err := services.FindNearbyProfessionals(ctx, request.Latitude, request.Longitude, alertRadiusKm, request.Service)
	if err != nil {
		log.Printf("⚠️ Recherche de pros impossible pour la demande %s: %v", request.ID, err)
		return
	}

	for _, pro := range nearby {
		alert := &models.RequestAlert{
			ID:             gocql.TimeUUID(),
			RequestID:      request.ID,
			ProfessionalID: pro.ID,
			DistanceKm:     pro.DistanceKm,
			CreatedAt:      time.Now(),
		}
		if err := bookings.InsertRequestAlert(ctx, alert); err != nil {
			log.Printf("⚠️ Alerte non créée pour la pro %s: %v", pro.ID, err)
		}
	}

	log.Printf("🔔 %d pro(s) alertée(s) pour la demande %s", len(nearby), request.ID)
}

// GetRequest retourne une demande par id
func GetRequest(c *gin.Context) {
	requestID, err := parseUUID(c.Param("requestId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "ID demande invalide"})
		return
	}

	request, err := bookings.GetRequest(c.Request.Context(), requestID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Demande introuvable"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"request": request})
}

// WithdrawRequest retire une demande encore pending. Impossible dès qu'une
// mission a été déposée.
func WithdrawRequest(c *gin.Context) {
	userID := c.GetString("user_id")

	requestID, err := parseUUID(c.Param("requestId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "ID demande invalide"})
		return
	}

	request, err := bookings.GetRequest(c.Request.Context(), requestID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Demande introuvable"})
		return
	}
	if request.ClientID != userID {
		c.JSON(http.StatusForbidden, gin.H{"error": "Cette demande ne vous appartient pas"})
		return
	}

	updated, err := machine.WithdrawRequest(c.Request.Context(), requestID)
	if err != nil {
		if errors.Is(err, lifecycle.ErrInvalidTransition) {
			c.JSON(http.StatusConflict, gin.H{"error": "Cette demande ne peut plus être retirée"})
			return
		}
		log.Printf("❌ Erreur retrait demande %s: %v", requestID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur retrait demande"})
		return
	}

	cache.InvalidateRequestCache(c.Request.Context(), requestID)

	log.Printf("🗑️ Demande %s retirée par %s", requestID, userID)
	c.JSON(http.StatusOK, gin.H{"request": updated})
}

func parseUUID(s string) (gocql.UUID, error) {
	u, err := uuid.Parse(s)
	if err != nil {
		return gocql.UUID{}, err
	}
	return gocql.UUID(u), nil
}
