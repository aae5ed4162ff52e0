package ops

import (
	"context"
	"database/sql"

	"github.com/hpungsan/chartd/internal/chart"
	"github.com/hpungsan/chartd/internal/db"
)

// CreateInput contains parameters for the Create operation. Width and
// Height are the editor's text fields.
type CreateInput struct {
	OwnerID    string // required
	Title      string // required, trimmed
	ConfigText string // required, must be a JSON object
	Width      string
	Height     string
}

// CreateOutput contains the result of the Create operation.
type CreateOutput struct {
	Chart chart.SavedChart `json:"chart"`
}

// Create validates the draft and stores it as a new saved chart.
// Validation failures are reported before the store is touched.
func Create(ctx context.Context, database *sql.DB, input CreateInput) (*CreateOutput, error) {
	owner, err := requireOwner(input.OwnerID)
	if err != nil {
		return nil, err
	}

	title, err := ValidateTitle(input.Title)
	if err != nil {
		return nil, err
	}

	config, err := chart.ValidateConfig(input.ConfigText)
	if err != nil {
		return nil, err
	}

	c := &chart.SavedChart{
		OwnerID:   owner,
		Title:     title,
		ChartType: chart.TypeOf(input.ConfigText),
		Config:    config,
		Width:     chart.ParseDimension(input.Width),
		Height:    chart.ParseDimension(input.Height),
	}

	if err := db.InsertChart(ctx, database, c); err != nil {
		return nil, err
	}

	return &CreateOutput{Chart: *c}, nil
}
