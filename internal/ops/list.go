package ops

import (
	"context"
	"database/sql"

	"github.com/hpungsan/chartd/internal/chart"
	"github.com/hpungsan/chartd/internal/db"
)

// ListInput contains parameters for the List operation.
type ListInput struct {
	OwnerID string // required
}

// ListOutput contains the result of the List operation.
type ListOutput struct {
	Items []chart.SavedChart `json:"items"`
	Sort  string             `json:"sort"`
}

// List retrieves the owner's saved charts, newest first.
func List(ctx context.Context, database *sql.DB, input ListInput) (*ListOutput, error) {
	owner, err := requireOwner(input.OwnerID)
	if err != nil {
		return nil, err
	}

	items, err := db.ListChartsByOwner(ctx, database, owner)
	if err != nil {
		return nil, err
	}

	// Ensure we return an empty array rather than nil
	if items == nil {
		items = []chart.SavedChart{}
	}

	return &ListOutput{
		Items: items,
		Sort:  "created_at_desc",
	}, nil
}
