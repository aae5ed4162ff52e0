package ops

import (
	"context"
	"database/sql"
	"strings"

	"github.com/hpungsan/chartd/internal/db"
)

// RemoveInput contains parameters for the Remove operation.
type RemoveInput struct {
	ID      string
	OwnerID string // required
}

// RemoveOutput contains the result of the Remove operation.
type RemoveOutput struct {
	Removed bool   `json:"removed"`
	ID      string `json:"id"`
}

// Remove deletes one of the owner's saved charts. A missing id, or one owned
// by someone else, is not an error: Removed is false and nothing changes.
func Remove(ctx context.Context, database *sql.DB, input RemoveInput) (*RemoveOutput, error) {
	owner, err := requireOwner(input.OwnerID)
	if err != nil {
		return nil, err
	}

	id := strings.TrimSpace(input.ID)
	if id == "" {
		return &RemoveOutput{Removed: false, ID: id}, nil
	}

	removed, err := db.DeleteChart(ctx, database, owner, id)
	if err != nil {
		return nil, err
	}

	return &RemoveOutput{Removed: removed, ID: id}, nil
}
