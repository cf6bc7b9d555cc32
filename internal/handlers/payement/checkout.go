package payement

import (
	"fmt"
	"log"
	"math"
	"net/http"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/stripe/stripe-go/v83"
	chsession "github.com/stripe/stripe-go/v83/checkout/session"

	"beautiz_back_end/internal/database"
	"beautiz_back_end/internal/models"
)

// Checkout crée la session de paiement Stripe d'une mission proposée.
// La commission plateforme est prélevée à la source (application fee) et
// le reste part vers le compte connecté de la pro (destination charge).
func Checkout(c *gin.Context) {
	userID := c.GetString("user_id")
	email := c.GetString("email")

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
	if offer.Status != models.OfferProposed {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Cette mission n'est pas en attente de paiement"})
		return
	}

	// Compte Stripe connecté de la pro
	usersSession, err := database.GetUsersSession()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur connexion base de données"})
		return
	}
	var stripeAccountID string
	err = usersSession.Query("SELECT stripe_account_id FROM professionals WHERE user_id = ?",
		offer.ProfessionalID).Scan(&stripeAccountID)
	if err != nil || stripeAccountID == "" {
		log.Printf("❌ Compte Stripe introuvable pour la pro %s: %v", offer.ProfessionalID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Compte de la professionnelle indisponible"})
		return
	}

	servicePriceCents := toCents(offer.ServicePrice)
	travelFeeCents := toCents(offer.TravelFee)
	grossCents := servicePriceCents + travelFeeCents
	applicationFeeCents := toCents(offer.Price() * models.PlatformTakeRate)

	baseURL := os.Getenv("BASE_URL")
	if baseURL == "" {
		baseURL = "http://localhost:8080"
	}

	metadata := map[string]string{
		"offer_id":              offer.ID.String(),
		"client_id":             offer.ClientID,
		"professional_id":       offer.ProfessionalID,
		"email":                 email,
		"service_price_cents":   fmt.Sprintf("%d", servicePriceCents),
		"travel_fee_cents":      fmt.Sprintf("%d", travelFeeCents),
		"application_fee_cents": fmt.Sprintf("%d", applicationFeeCents),
	}

	params := &stripe.CheckoutSessionParams{
		Mode: stripe.String(string(stripe.CheckoutSessionModePayment)),
		LineItems: []*stripe.CheckoutSessionLineItemParams{{
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency:   stripe.String("eur"),
				UnitAmount: stripe.Int64(grossCents),
				ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
					Name: stripe.String(fmt.Sprintf("Prestation %s — %s %s", offer.Service, offer.Date, offer.TimeSlot)),
				},
			},
			Quantity: stripe.Int64(1),
		}},
		PaymentIntentData: &stripe.CheckoutSessionPaymentIntentDataParams{
			ApplicationFeeAmount: stripe.Int64(applicationFeeCents),
			TransferData: &stripe.CheckoutSessionPaymentIntentDataTransferDataParams{
				Destination: stripe.String(stripeAccountID),
			},
			Metadata: metadata,
		},
		Metadata:   metadata,
		SuccessURL: stripe.String(baseURL + "/payment/success"),
		CancelURL:  stripe.String(baseURL + "/payment/cancel"),
	}

	sess, err := chsession.New(params)
	if err != nil {
		log.Printf("❌ Erreur Stripe checkout: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur création paiement", "details": err.Error()})
		return
	}

	log.Printf("💳 Checkout créé: %s (%.2f€ dont %.2f€ de commission) pour %s",
		sess.ID, float64(grossCents)/100, float64(applicationFeeCents)/100, email)

	c.JSON(http.StatusOK, gin.H{
		"checkout_url":          sess.URL,
		"session_id":            sess.ID,
		"amount_cents":          grossCents,
		"application_fee_cents": applicationFeeCents,
		"currency":              "eur",
	})
}

// toCents convertit un montant en euros vers des centimes entiers
func toCents(amount float64) int64 {
	return int64(math.Round(amount * 100))
}
