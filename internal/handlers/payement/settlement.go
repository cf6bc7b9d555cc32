package payement

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"beautiz_back_end/internal/models"
	"beautiz_back_end/internal/settlement"
	"beautiz_back_end/internal/utils"
)

// CancelByProfessional : la pro annule une mission confirmée. Remboursement
// intégral de la cliente, transfert inversé, commission plateforme rendue.
func CancelByProfessional(c *gin.Context) {
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

	settle(c, offer, settlement.ModeProfessionalCancel)
}

// ApproveCancellation : la pro approuve l'annulation demandée par la
// cliente. Remboursement du net uniquement : la plateforme garde sa
// commission (politique d'annulation tardive).
func ApproveCancellation(c *gin.Context) {
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
	if offer.Status != models.OfferCancelRequested {
		c.JSON(http.StatusConflict, gin.H{"error": "Aucune annulation en attente sur cette mission"})
		return
	}

	settle(c, offer, settlement.ModeClientCancelApproved)
}

// settle exécute le règlement et traduit l'issue pour l'interface. Une
// erreur processeur ne doit JAMAIS laisser croire que l'annulation a
// réussi : on le dit, et le support reprend la main.
func settle(c *gin.Context, offer *models.Offer, mode string) {
	result, err := engine.SettleCancellation(c.Request.Context(), offer.ID, mode)
	if err != nil {
		var procErr *settlement.ProcessorError
		switch {
		case errors.As(err, &procErr):
			log.Printf("❌ Règlement %s échoué pour la mission %s: %v", mode, offer.ID, err)
			go notifyCancellationFailed(c.GetString("email"), offer)
			c.JSON(http.StatusBadGateway, gin.H{
				"error": "L'annulation n'a pas pu aboutir. Votre réservation reste en l'état, notre support va vous recontacter pour finaliser.",
			})
		case errors.Is(err, settlement.ErrDataIntegrity):
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "Incohérence détectée sur les paiements de cette mission, le support a été prévenu.",
			})
		case errors.Is(err, settlement.ErrNotCancellable):
			c.JSON(http.StatusConflict, gin.H{"error": "Cette mission ne peut pas être annulée dans cet état"})
		case errors.Is(err, settlement.ErrNoPaidPayment):
			c.JSON(http.StatusConflict, gin.H{"error": "Aucun paiement encaissé sur cette mission"})
		default:
			log.Printf("❌ Erreur règlement mission %s: %v", offer.ID, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur lors de l'annulation"})
		}
		return
	}

	if result.AlreadySettled {
		c.JSON(http.StatusOK, gin.H{"message": "Mission déjà réglée", "already_settled": true})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":       "Annulation effectuée, remboursement en cours",
		"refund_id":     result.RefundID,
		"amount_cents":  result.AmountCents,
		"refund_status": result.Payment.Status,
	})
}

func notifyCancellationFailed(email string, offer *models.Offer) {
	if email == "" {
		return
	}
	if err := utils.SendCancellationFailedEmail(email, offer.ID.String()); err != nil {
		log.Printf("❌ Erreur envoi e-mail annulation échouée: %v", err)
	}
}
