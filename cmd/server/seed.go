package main

import (
	"context"
	"time"

	"carebridge/internal/verification/models"
	id "carebridge/pkg/domain"
)

type seeder interface {
	Create(ctx context.Context, r *models.Record) error
}

// seedDemo loads one record per workflow position so the console has
// something to show: fresh, in background check, rejected, active, and
// waiting for final activation.
func seedDemo(ctx context.Context, store seeder, now time.Time) error {
	at := func(days int) time.Time { return now.Add(-time.Duration(days) * 24 * time.Hour).UTC() }

	fresh := models.NewRecord(id.NewTherapistID(), "Avery", "Nguyen", "avery.nguyen@example.com", "PSY-10231", "CA", at(1))

	inCheck := models.NewRecord(id.NewTherapistID(), "Blake", "Okafor", "blake.okafor@example.com", "LMFT-55120", "NY", at(4))
	inCheck.LicenseVerified = true
	inCheck.BackgroundCheckStatus = models.BackgroundInProgress

	rejected := models.NewRecord(id.NewTherapistID(), "Casey", "Moreau", "casey.moreau@example.com", "LCSW-88012", "TX", at(9))
	rejected.LicenseVerified = true
	rejected.BackgroundCheckStatus = models.BackgroundFailed
	rejected.AccountStatus = models.AccountRejected

	active := models.NewRecord(id.NewTherapistID(), "Devon", "Patel", "devon.patel@example.com", "PSY-20417", "WA", at(30))
	active.LicenseVerified = true
	active.BackgroundCheckStatus = models.BackgroundCompleted
	active.AccountStatus = models.AccountActive

	awaitingFinal := models.NewRecord(id.NewTherapistID(), "Emery", "Silva", "emery.silva@example.com", "LPC-33908", "FL", at(6))
	awaitingFinal.LicenseVerified = true
	awaitingFinal.BackgroundCheckStatus = models.BackgroundCompleted

	for _, r := range []*models.Record{fresh, inCheck, rejected, active, awaitingFinal} {
		if err := store.Create(ctx, r); err != nil {
			return err
		}
	}
	return nil
}
