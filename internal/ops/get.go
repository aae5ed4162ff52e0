package ops

import (
	"context"
	"database/sql"
	"strings"

	"github.com/hpungsan/chartd/internal/chart"
	"github.com/hpungsan/chartd/internal/db"
	"github.com/hpungsan/chartd/internal/errors"
)

// GetInput contains parameters for the Get operation.
type GetInput struct {
	ID      string // required
	OwnerID string // required
}

// GetOutput contains the result of the Get operation.
type GetOutput struct {
	Chart chart.SavedChart `json:"chart"`
}

// Get retrieves a single saved chart owned by the caller.
func Get(ctx context.Context, database *sql.DB, input GetInput) (*GetOutput, error) {
	owner, err := requireOwner(input.OwnerID)
	if err != nil {
		return nil, err
	}

	id := strings.TrimSpace(input.ID)
	if id == "" {
		return nil, errors.NewValidation("id", "id is required")
	}

	c, err := db.GetChart(ctx, database, owner, id)
	if err != nil {
		return nil, err
	}

	return &GetOutput{Chart: *c}, nil
}
