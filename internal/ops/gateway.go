package ops

import (
	"context"
	"database/sql"
)

// Gateway binds the saved chart operations to a database handle so they can
// be injected into callers that should not see *sql.DB.
type Gateway struct {
	DB *sql.DB
}

// NewGateway returns a Gateway over database.
func NewGateway(database *sql.DB) *Gateway {
	return &Gateway{DB: database}
}

// List calls List with the gateway's database.
func (g *Gateway) List(ctx context.Context, input ListInput) (*ListOutput, error) {
	return List(ctx, g.DB, input)
}

// Create calls Create with the gateway's database.
func (g *Gateway) Create(ctx context.Context, input CreateInput) (*CreateOutput, error) {
	return Create(ctx, g.DB, input)
}

// Remove calls Remove with the gateway's database.
func (g *Gateway) Remove(ctx context.Context, input RemoveInput) (*RemoveOutput, error) {
	return Remove(ctx, g.DB, input)
}

// Get calls Get with the gateway's database.
func (g *Gateway) Get(ctx context.Context, input GetInput) (*GetOutput, error) {
	return Get(ctx, g.DB, input)
}
