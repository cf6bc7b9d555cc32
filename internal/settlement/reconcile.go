package settlement

import (
	"context"
	"log"
	"time"

	"github.com/go-co-op/gocron/v2"

	"beautiz_back_end/internal/models"
)

// GapLister liste les écarts de réconciliation encore ouverts
type GapLister interface {
	ListUnresolvedGaps(ctx context.Context) ([]models.ReconciliationGap, error)
}

// StartReconciliationSweep lance le passage planifié sur les écarts de
// réconciliation. Le passage constate et alerte, il ne rejoue JAMAIS un
// remboursement : chaque écart se résout à la main, paiement par paiement.
func StartReconciliationSweep(store GapLister, alert AlertFunc) (gocron.Scheduler, error) {
	s, err := gocron.NewScheduler()
	if err != nil {
		return nil, err
	}

	_, err = s.NewJob(
		gocron.DurationJob(30*time.Minute),
		gocron.NewTask(func() {
			sweepGaps(store, alert)
		}),
		gocron.WithName("reconciliation-sweep"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return nil, err
	}

	s.Start()
	log.Println("✅ Passage de réconciliation planifié (30 min)")
	return s, nil
}

func sweepGaps(store GapLister, alert AlertFunc) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	gaps, err := store.ListUnresolvedGaps(ctx)
	if err != nil {
		log.Printf("❌ Lecture des écarts de réconciliation impossible: %v", err)
		return
	}
	if len(gaps) == 0 {
		return
	}

	log.Printf("🚨 %d écart(s) de réconciliation en attente de résolution manuelle", len(gaps))
	for _, g := range gaps {
		log.Printf("   ↳ mission=%s paiement=%s mode=%s depuis=%s — %s",
			g.OfferID, g.PaymentID, g.Mode, g.CreatedAt.Format(time.RFC3339), g.Detail)
		if alert != nil {
			alert(g)
		}
	}
}
