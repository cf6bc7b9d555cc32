package main

import (
	"log"
	"os"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/stripe/stripe-go/v83"

	"beautiz_back_end/internal/cache"
	"beautiz_back_end/internal/config"
	"beautiz_back_end/internal/database"
	"beautiz_back_end/internal/feed"
	"beautiz_back_end/internal/handlers/booking"
	"beautiz_back_end/internal/handlers/notification"
	"beautiz_back_end/internal/handlers/payement"
	"beautiz_back_end/internal/lifecycle"
	"beautiz_back_end/internal/notifications"
	"beautiz_back_end/internal/routes"
	"beautiz_back_end/internal/settlement"
	"beautiz_back_end/internal/store"
	"beautiz_back_end/internal/utils"
)

func main() {
	config.Load()

	secret := os.Getenv("STRIPE_SECRET_KEY")
	stripe.Key = secret
	if stripe.Key == "" {
		log.Fatal("❌ Impossible d'initialiser Stripe : clé manquante")
	}
	log.Println("✅ Stripe initialisé")

	database.ConnectDatabases()

	// Flux de changements et bus local
	changeFeed := feed.NewRedisFeed(database.Redis)
	bus := feed.NewBus()

	session, err := database.GetBookingsSession()
	if err != nil {
		log.Fatalf("❌ Session réservations indisponible: %v", err)
	}

	bookings := store.New(session, changeFeed)
	machine := lifecycle.NewMachine(bookings)
	engine := settlement.NewEngine(bookings, settlement.NewStripeProcessor(), utils.SendReconciliationGapAlert)
	fanout := notifications.NewManager(changeFeed, bus, cache.GetRequestServiceName)

	booking.Setup(bookings, machine)
	payement.Setup(bookings, machine, engine)
	notification.Setup(fanout)

	// Passage planifié sur les écarts de réconciliation (constate, n'agit pas)
	sweeper, err := settlement.StartReconciliationSweep(bookings, utils.SendReconciliationGapAlert)
	if err != nil {
		log.Fatalf("❌ Échec démarrage réconciliation: %v", err)
	}
	defer sweeper.Shutdown()

	r := gin.Default()
	r.Use(cors.Default())
	routes.RegisterRoutes(r)

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	log.Println("🚀 Serveur Beautiz lancé sur le port", port)
	r.Run(":" + port)
}
