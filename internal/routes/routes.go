package routes

import (
	"github.com/gin-gonic/gin"

	"beautiz_back_end/internal/handlers/booking"
	"beautiz_back_end/internal/handlers/notification"
	"beautiz_back_end/internal/handlers/payement"
	"beautiz_back_end/internal/middleware"
)

func RegisterRoutes(r *gin.Engine) {
	// Webhook Stripe : signé par Stripe, pas de JWT
	r.POST("/api/webhooks/stripe", payement.StripeWebhook)

	api := r.Group("/api", middleware.AuthRequired())

	// Demandes
	api.POST("/requests", booking.CreateRequest)
	api.GET("/requests/:requestId", booking.GetRequest)
	api.DELETE("/requests/:requestId", booking.WithdrawRequest)

	// Profil de proximité des pros (alimente les alertes de nouvelles demandes)
	api.POST("/professionals/profile", middleware.ProfessionalOnly(), booking.RegisterProfessionalProfile)

	// Missions
	api.POST("/offers", middleware.ProfessionalOnly(), booking.CreateOffer)
	api.GET("/offers/:offerId", booking.GetOffer)
	api.DELETE("/offers/:offerId", middleware.ProfessionalOnly(), booking.AbandonOffer)
	api.POST("/offers/:offerId/cancel-request", booking.RequestCancellation)
	api.POST("/offers/:offerId/cancel-decline", middleware.ProfessionalOnly(), booking.DeclineCancellation)
	api.POST("/offers/:offerId/complete", booking.CompleteOffer)

	// Paiements et règlements
	api.POST("/offers/:offerId/checkout", payement.Checkout)
	api.GET("/offers/:offerId/payments", payement.GetOfferPayments)
	api.POST("/offers/:offerId/cancel", middleware.ProfessionalOnly(), payement.CancelByProfessional)
	api.POST("/offers/:offerId/cancel-approve", middleware.ProfessionalOnly(), payement.ApproveCancellation)

	// Notifications
	api.GET("/notifications", notification.GetNotifications)
	api.POST("/notifications/:category/reset", notification.ResetNotification)
	api.GET("/notifications/ws", notification.NotificationsWebSocket)
}
