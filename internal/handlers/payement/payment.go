package payement

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gocql/gocql"
	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v83"
	"github.com/stripe/stripe-go/v83/webhook"

	"beautiz_back_end/internal/lifecycle"
	"beautiz_back_end/internal/models"
	"beautiz_back_end/internal/settlement"
)

// Store est la surface du magasin utilisée par les handlers paiement
type Store interface {
	GetOffer(ctx context.Context, id gocql.UUID) (*models.Offer, error)
	PaymentsByOffer(ctx context.Context, offerID gocql.UUID) ([]models.Payment, error)
	InsertPaymentOnce(ctx context.Context, p *models.Payment) (bool, error)
}

// OfferConfirmer applique la transition proposed → confirmed d'une mission
type OfferConfirmer interface {
	ConfirmOffer(ctx context.Context, offerID gocql.UUID) (*models.Offer, error)
}

var (
	bookings Store
	machine  OfferConfirmer
	engine   *settlement.Engine
)

// Setup branche les handlers paiement sur le magasin, la machine à états
// et le moteur de règlement
func Setup(s Store, m OfferConfirmer, e *settlement.Engine) {
	bookings = s
	machine = m
	engine = e
}

// StripeWebhook reçoit les événements Stripe signés
func StripeWebhook(c *gin.Context) {
	const MaxBodyBytes = int64(65536)
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, MaxBodyBytes)

	payload, err := c.GetRawData()
	if err != nil {
		log.Println("❌ Lecture payload échouée:", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "Échec lecture body"})
		return
	}

	secret := os.Getenv("STRIPE_WEBHOOK_SECRET")
	var event stripe.Event

	if secret == "" {
		log.Println("⚠️ Pas de STRIPE_WEBHOOK_SECRET — mode test")
		if err := json.Unmarshal(payload, &event); err != nil {
			log.Println("❌ JSON invalide:", err)
			c.JSON(http.StatusBadRequest, gin.H{"error": "JSON invalide"})
			return
		}
	} else {
		event, err = webhook.ConstructEvent(payload, c.GetHeader("Stripe-Signature"), secret)
		if err != nil {
			log.Println("❌ Signature Stripe invalide:", err)
			c.JSON(http.StatusBadRequest, gin.H{"error": "Signature invalide"})
			return
		}
	}

	log.Printf("📥 Événement Stripe reçu : %s", event.Type)
	handleStripeEvent(event)

	c.Status(http.StatusOK)
}

// handleStripeEvent traite la confirmation de paiement : création
// idempotente du paiement (dédupliqué par payment_intent_id) puis passage
// de la mission en confirmed.
func handleStripeEvent(event stripe.Event) {
	if event.Type != "checkout.session.completed" {
		log.Printf("ℹ️ Événement ignoré : %s", event.Type)
		return
	}

	var cs stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &cs); err != nil {
		log.Println("❌ Erreur décodage CheckoutSession:", err)
		return
	}
	if cs.PaymentIntent == nil {
		log.Println("⚠️ CheckoutSession sans PaymentIntent")
		return
	}

	offerIDRaw := cs.Metadata["offer_id"]
	clientID := cs.Metadata["client_id"]
	professionalID := cs.Metadata["professional_id"]
	if offerIDRaw == "" || clientID == "" || professionalID == "" {
		log.Println("⚠️ Métadonnées incomplètes")
		return
	}

	offerUUID, err := uuid.Parse(offerIDRaw)
	if err != nil {
		log.Println("❌ offer_id invalide dans les métadonnées:", offerIDRaw)
		return
	}
	offerID := gocql.UUID(offerUUID)

	servicePriceCents := parseCents(cs.Metadata["service_price_cents"])
	travelFeeCents := parseCents(cs.Metadata["travel_fee_cents"])
	applicationFeeCents := parseCents(cs.Metadata["application_fee_cents"])
	grossCents := servicePriceCents + travelFeeCents

	payment := &models.Payment{
		ID:                gocql.TimeUUID(),
		OfferID:           offerID,
		ClientID:          clientID,
		ProfessionalID:    professionalID,
		AmountCents:       grossCents,
		ServicePriceCents: servicePriceCents,
		TravelFeeCents:    travelFeeCents,
		ApplicationFee:    applicationFeeCents,
		NetAmountCents:    grossCents - applicationFeeCents,
		PaymentIntentID:   cs.PaymentIntent.ID,
		Status:            models.PaymentPaid,
		CreatedAt:         time.Now(),
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	created, err := bookings.InsertPaymentOnce(ctx, payment)
	if err != nil {
		log.Printf("❌ Erreur enregistrement paiement %s: %v", cs.PaymentIntent.ID, err)
		return
	}
	if !created {
		// Confirmation dupliquée : la ligne existe déjà. On retente quand
		// même la transition, au cas où la première livraison aurait
		// enregistré le paiement sans réussir à confirmer la mission.
		log.Printf("🔁 Paiement déjà enregistré pour %s, on ignore l'insertion.", cs.PaymentIntent.ID)
		confirmPaidOffer(ctx, offerID)
		return
	}

	log.Printf("✅ Paiement %s enregistré (%d centimes, commission %d) pour la mission %s",
		payment.ID, grossCents, applicationFeeCents, offerID)

	// La confirmation de paiement est le seul déclencheur proposed → confirmed
	confirmPaidOffer(ctx, offerID)
}

// confirmPaidOffer applique proposed → confirmed après un encaissement.
// Une mission déjà confirmée par une livraison précédente n'est pas une
// erreur : la transition est idempotente via l'écriture conditionnelle.
func confirmPaidOffer(ctx context.Context, offerID gocql.UUID) {
	if _, err := machine.ConfirmOffer(ctx, offerID); err != nil && !errors.Is(err, lifecycle.ErrInvalidTransition) {
		log.Printf("⚠️ Mission %s non confirmée après paiement: %v", offerID, err)
	}
}

func parseCents(s string) int64 {
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0
	}
	return v
}

// GetOfferPayments liste les paiements d'une mission
func GetOfferPayments(c *gin.Context) {
	offerID, err := parseUUID(c.Param("offerId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "ID mission invalide"})
		return
	}

	payments, err := bookings.PaymentsByOffer(c.Request.Context(), offerID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur lecture paiements"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"payments": payments, "count": len(payments)})
}

func parseUUID(s string) (gocql.UUID, error) {
	u, err := uuid.Parse(s)
	if err != nil {
		return gocql.UUID{}, err
	}
	return gocql.UUID(u), nil
}
