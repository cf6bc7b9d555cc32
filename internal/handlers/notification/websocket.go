package notification

import (
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"beautiz_back_end/internal/notifications"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		// Autoriser toutes les origines (à ajuster en production)
		return true
	},
}

var manager *notifications.Manager

// Setup branche les handlers sur le gestionnaire de fan-out
func Setup(m *notifications.Manager) {
	manager = m
}

// NotificationsWebSocket pousse en temps réel les toasts et compteurs de la
// session. La connexion acquiert le jeu d'abonnements de la session ; le
// quitter (logout, changement de rôle, fermeture d'onglet) le relâche de
// façon déterministe avant toute nouvelle acquisition.
func NotificationsWebSocket(c *gin.Context) {
	userID := c.GetString("user_id")
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Non authentifié"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("❌ Erreur upgrade WebSocket: %v", err)
		return
	}
	defer conn.Close()

	session, err := manager.Acquire(c.Request.Context(), userID, userID)
	if err != nil {
		log.Printf("❌ Acquisition fan-out impossible pour %s: %v", userID, err)
		conn.WriteJSON(map[string]interface{}{"type": "error", "message": "Notifications indisponibles"})
		return
	}
	defer manager.Release(session)

	// Détection de fermeture côté client
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	// État initial : les compteurs courants
	conn.WriteJSON(map[string]interface{}{
		"type":          "connected",
		"notifications": session.Counters().Snapshot(),
	})

	for {
		select {
		case toast, ok := <-session.Toasts():
			if !ok {
				return
			}
			if err := conn.WriteJSON(map[string]interface{}{
				"type":          "toast",
				"category":      toast.Category,
				"message":       toast.Message,
				"notifications": session.Counters().Snapshot(),
			}); err != nil {
				log.Printf("❌ Erreur envoi WebSocket: %v", err)
				return
			}
		case <-closed:
			return
		case <-time.After(30 * time.Second):
			// Ping pour garder la connexion active
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// GetNotifications retourne les compteurs non-lus de la session
func GetNotifications(c *gin.Context) {
	userID := c.GetString("user_id")
	c.JSON(http.StatusOK, gin.H{"notifications": manager.Counters(userID).Snapshot()})
}

// ResetNotification remet à zéro UNE catégorie (ouvrir la liste des
// propositions vide new_offers, rien d'autre)
func ResetNotification(c *gin.Context) {
	userID := c.GetString("user_id")
	category := c.Param("category")

	switch category {
	case notifications.CategoryNewOffers, notifications.CategoryPayments, notifications.CategoryNewRequests:
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "Catégorie inconnue"})
		return
	}

	manager.ResetNotification(userID, category)
	c.JSON(http.StatusOK, gin.H{"notifications": manager.Counters(userID).Snapshot()})
}
