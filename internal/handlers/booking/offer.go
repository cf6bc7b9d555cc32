package booking

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"beautiz_back_end/internal/lifecycle"
)

// CreateOffer dépose la mission d'une pro sur une demande pending. Si deux
// pros déposent en même temps, une seule gagne ; l'autre reçoit un 409 et
// doit rafraîchir sa liste.
func CreateOffer(c *gin.Context) {
	proID := c.GetString("user_id")

	var req struct {
		RequestID    string  `json:"request_id" binding:"required"`
		ServicePrice float64 `json:"service_price" binding:"required,gt=0"`
		TravelFee    float64 `json:"travel_fee" binding:"gte=0"`
		Date         string  `json:"date" binding:"required"`
		TimeSlot     string  `json:"time_slot" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Données invalides", "details": err.Error()})
		return
	}

	requestID, err := parseUUID(req.RequestID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "ID demande invalide"})
		return
	}

	offer, err := machine.CreateOffer(c.Request.Context(), lifecycle.OfferInput{
		RequestID:      requestID,
		ProfessionalID: proID,
		ServicePrice:   req.ServicePrice,
		TravelFee:      req.TravelFee,
		Date:           req.Date,
		TimeSlot:       req.TimeSlot,
	})
	if err != nil {
		if errors.Is(err, lifecycle.ErrRequestNoLongerAvailable) {
			c.JSON(http.StatusConflict, gin.H{"error": "Cette demande n'est plus disponible"})
			return
		}
		log.Printf("❌ Erreur création mission sur demande %s: %v", requestID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur création mission"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"offer": offer})
}

// GetOffer retourne une mission par id
func GetOffer(c *gin.Context) {
	offerID, err := parseUUID(c.Param("offerId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "ID mission invalide"})
		return
	}

	offer, err := bookings.GetOffer(c.Request.Context(), offerID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Mission introuvable"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"offer": offer})
}

// AbandonOffer supprime une mission jamais payée (proposed → cancelled).
// Aucun argent n'a bougé, rien à rembourser.
func AbandonOffer(c *gin.Context) {
	proID := c.GetString("user_id")

	offerID, err := parseUUID(c.Param("offerId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "ID mission invalide"})
		return
	}

	offer, err := bookings.GetOffer(c.Request.Context(), offerID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Mission introuvable"})
		return
	}
	if offer.ProfessionalID != proID {
		c.JSON(http.StatusForbidden, gin.H{"error": "Cette mission ne vous appartient pas"})
		return
	}

	updated, err := machine.AbandonOffer(c.Request.Context(), offerID)
	if err != nil {
		if errors.Is(err, lifecycle.ErrInvalidTransition) {
			c.JSON(http.StatusConflict, gin.H{"error": "Cette mission ne peut plus être abandonnée"})
			return
		}
		log.Printf("❌ Erreur abandon mission %s: %v", offerID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur abandon mission"})
		return
	}

	log.Printf("🗑️ Mission %s abandonnée par %s", offerID, proID)
	c.JSON(http.StatusOK, gin.H{"offer": updated})
}

// RequestCancellation enregistre la demande d'annulation d'une cliente sur
// une mission confirmée. L'argent ne bouge pas tant que la pro n'a pas
// tranché.
func RequestCancellation(c *gin.Context) {
	userID := c.GetString("user_id")

	offerID, err := parseUUID(c.Param("offerId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "ID mission invalide"})
		return
	}

	offer, err := bookings.GetOffer(c.Request.Context(), offerID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Mission introuvable"})
		return
	}
	if offer.ClientID != userID {
		c.JSON(http.StatusForbidden, gin.H{"error": "Cette mission ne vous appartient pas"})
		return
	}

	updated, err := machine.RequestCancellation(c.Request.Context(), offerID)
	if err != nil {
		if errors.Is(err, lifecycle.ErrInvalidTransition) {
			c.JSON(http.StatusConflict, gin.H{"error": "Cette mission ne peut pas être annulée dans cet état"})
			return
		}
		log.Printf("❌ Erreur demande d'annulation mission %s: %v", offerID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur demande d'annulation"})
		return
	}

	log.Printf("✋ Annulation demandée par la cliente sur la mission %s", offerID)
	c.JSON(http.StatusOK, gin.H{"offer": updated})
}

// DeclineCancellation : la pro refuse l'annulation, la mission revient en
// confirmed. Aucun mouvement d'argent, aucun autre changement.
func DeclineCancellation(c *gin.Context) {
	proID := c.GetString("user_id")

	offerID, err := parseUUID(c.Param("offerId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "ID mission invalide"})
		return
	}

	offer, err := bookings.GetOffer(c.Request.Context(), offerID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Mission introuvable"})
		return
	}
	if offer.ProfessionalID != proID {
		c.JSON(http.StatusForbidden, gin.H{"error": "Cette mission ne vous appartient pas"})
		return
	}

	updated, err := machine.DeclineCancellation(c.Request.Context(), offerID)
	if err != nil {
		if errors.Is(err, lifecycle.ErrInvalidTransition) {
			c.JSON(http.StatusConflict, gin.H{"error": "Aucune annulation en attente sur cette mission"})
			return
		}
		log.Printf("❌ Erreur refus annulation mission %s: %v", offerID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur refus annulation"})
		return
	}

	log.Printf("🙅 Annulation refusée par la pro sur la mission %s", offerID)
	c.JSON(http.StatusOK, gin.H{"offer": updated})
}

// CompleteOffer passe la mission en completed. Le déclencheur (validation
// de fin de prestation) vient d'un service externe.
func CompleteOffer(c *gin.Context) {
	offerID, err := parseUUID(c.Param("offerId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "ID mission invalide"})
		return
	}

	updated, err := machine.CompleteOffer(c.Request.Context(), offerID)
	if err != nil {
		if errors.Is(err, lifecycle.ErrInvalidTransition) {
			c.JSON(http.StatusConflict, gin.H{"error": "Cette mission ne peut pas être clôturée dans cet état"})
			return
		}
		log.Printf("❌ Erreur clôture mission %s: %v", offerID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur clôture mission"})
		return
	}

	log.Printf("🎉 Mission %s terminée", offerID)
	c.JSON(http.StatusOK, gin.H{"offer": updated})
}
