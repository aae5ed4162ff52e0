// Package ops implements the owner-scoped saved chart operations. Each
// operation takes a context, the database handle and an input struct, and
// returns an output struct or a *errors.ChartError.
package ops

import (
	"strings"

	"github.com/hpungsan/chartd/internal/errors"
)

// MaxTitleChars bounds a saved chart's title.
const MaxTitleChars = 200

// requireOwner rejects calls made without an identity.
func requireOwner(ownerID string) (string, error) {
	ownerID = strings.TrimSpace(ownerID)
	if ownerID == "" {
		return "", errors.NewUnauthenticated("sign in to manage saved charts")
	}
	return ownerID, nil
}

// ValidateTitle trims title and checks it is non-empty and within bounds.
func ValidateTitle(title string) (string, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return "", errors.NewValidation("title", "title must not be empty")
	}
	if len([]rune(title)) > MaxTitleChars {
		return "", errors.NewValidation("title", "title is too long")
	}
	return title, nil
}
