// Package store persists Canonical Records for the verification service.
//
// Both implementations run Execute's validate and mutate callbacks while
// holding the record exclusively (a mutex in memory, SELECT ... FOR UPDATE in
// Postgres) and refuse to persist a mutation that breaks a record invariant.
package store

import (
	"cmp"
	"slices"

	"carebridge/internal/verification/models"
)

// ValidateFunc inspects the current record and refuses the mutation by returning an error.
type ValidateFunc func(r *models.Record) error

// MutateFunc changes the record in place.
type MutateFunc func(r *models.Record) error

// sortNewestFirst orders by creation time descending, then by id for a stable order.
func sortNewestFirst(records []*models.Record) {
	slices.SortFunc(records, func(a, b *models.Record) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ID.String(), b.ID.String())
	})
}

func statusSet(statuses []models.AccountStatus) map[models.AccountStatus]bool {
	if len(statuses) == 0 {
		return nil
	}
	set := make(map[models.AccountStatus]bool, len(statuses))
	for _, s := range statuses {
		set[s] = true
	}
	return set
}
