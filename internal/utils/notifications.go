package utils

import (
	"fmt"
	"log"
	"os"

	"beautiz_back_end/internal/models"
)

// SendReconciliationGapAlert prévient le support qu'un remboursement est
// dans un état incertain. Le mail donne tout ce qu'il faut pour résoudre
// l'écart à la main, paiement par paiement.
func SendReconciliationGapAlert(gap models.ReconciliationGap) {
	to := os.Getenv("SUPPORT_EMAIL")
	if to == "" {
		log.Println("⚠️ SUPPORT_EMAIL non configuré, alerte de réconciliation non envoyée")
		return
	}

	subject := "🚨 Écart de réconciliation Beautiz"
	html := fmt.Sprintf(`
<!DOCTYPE html>
<html lang="fr">
<body style="font-family: Arial, sans-serif; color: #333;">
	<h2>Écart de réconciliation à résoudre</h2>
	<p>Un remboursement est dans un état incertain. <strong>Ne pas rejouer automatiquement.</strong></p>
	<ul>
		<li><strong>Mission:</strong> %s</li>
		<li><strong>Paiement:</strong> %s</li>
		<li><strong>Mode:</strong> %s</li>
		<li><strong>Horodatage:</strong> %s</li>
	</ul>
	<p>%s</p>
	<p>Vérifier l'état du remboursement dans le dashboard Stripe avant toute action.</p>
</body>
</html>
`, gap.OfferID, gap.PaymentID, gap.Mode, gap.CreatedAt.Format("02/01/2006 15:04:05"), gap.Detail)

	if err := SendEmail(to, subject, html); err != nil {
		log.Printf("❌ Erreur envoi alerte réconciliation: %v", err)
	}
}

// SendCancellationFailedEmail informe la cliente que son annulation n'a PAS
// abouti et que le support va reprendre la main. On ne laisse jamais croire
// que l'annulation a réussi.
func SendCancellationFailedEmail(userEmail string, offerID string) error {
	subject := "⚠️ Votre annulation n'a pas pu aboutir - Beautiz"

	html := fmt.Sprintf(`
<!DOCTYPE html>
<html lang="fr">
<body style="font-family: Arial, sans-serif; color: #333;">
	<div style="max-width: 600px; margin: auto; background-color: white; padding: 20px; border-radius: 10px;">
		<h2>Annulation non aboutie</h2>
		<p>Bonjour,</p>
		<p>Nous n'avons pas pu finaliser l'annulation de votre réservation <strong>#%s</strong>.</p>
		<p>Votre réservation reste en l'état pour le moment. Notre équipe support a été
		prévenue et reviendra vers vous sous 24h pour terminer l'annulation et, le cas
		échéant, votre remboursement.</p>
		<p>Vous n'avez rien à faire de votre côté.</p>
		<p>L'équipe Beautiz</p>
	</div>
</body>
</html>
`, offerID[:8])

	return SendEmail(userEmail, subject, html)
}
