package repository

import (
	"fmt"

	"github.com/moamenmohamedx/telegram-bot-forex-perlson/sdk/domain"
)

const (
	defaultListLimit = 50
	maxListLimit     = 500
)

// validateOutcome rechaza resultados que no cierran el ciclo de un registro reclamado.
func validateOutcome(outcome *domain.EntryOutcome) error {
	if outcome == nil {
		return domain.NewError(domain.ErrMissingRequiredField, "outcome is required")
	}
	if !outcome.Status.Valid() || !outcome.Status.IsTerminal() {
		return domain.NewError(domain.ErrStateConflict,
			fmt.Sprintf("outcome status %q is not terminal", outcome.Status))
	}
	return nil
}

func errNotInProgress(id string) error {
	return domain.NewError(domain.ErrStateConflict,
		fmt.Sprintf("signal %s is not IN_PROGRESS", id))
}

func normalizeLimit(limit int) int {
	if limit <= 0 {
		return defaultListLimit
	}
	return min(limit, maxListLimit)
}
