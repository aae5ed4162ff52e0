package mcp

import (
	"context"
	"database/sql"
	"encoding/json"
	stderrors "errors"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/hpungsan/chartd/internal/chart"
	"github.com/hpungsan/chartd/internal/config"
	"github.com/hpungsan/chartd/internal/errors"
	"github.com/hpungsan/chartd/internal/identity"
	"github.com/hpungsan/chartd/internal/ops"
	"github.com/hpungsan/chartd/internal/render"
)

// Handlers holds dependencies for MCP tool handlers.
type Handlers struct {
	db      *sql.DB
	cfg     *config.Config
	presets chart.Presets
	builder render.Builder
	owner   *identity.Identity
}

// NewHandlers creates a new Handlers instance. A nil presets list means the
// built-in presets.
func NewHandlers(db *sql.DB, cfg *config.Config, presets chart.Presets, owner *identity.Identity) *Handlers {
	if presets == nil {
		presets = chart.BuiltinPresets()
	}
	return &Handlers{
		db:      db,
		cfg:     cfg,
		presets: presets,
		builder: render.Builder{Origin: cfg.BaseOrigin, Path: cfg.RenderPath},
		owner:   owner,
	}
}

// Request types for each tool

// RenderURLRequest represents the arguments for chart_render_url.
type RenderURLRequest struct {
	Config          string `json:"config,omitempty"`
	Preset          string `json:"preset,omitempty"`
	Width           string `json:"width,omitempty"`
	Height          string `json:"height,omitempty"`
	IncludeExamples bool   `json:"include_examples,omitempty"`
}

// SaveRequest represents the arguments for chart_save.
type SaveRequest struct {
	Title  string `json:"title"`
	Config string `json:"config"`
	Width  string `json:"width,omitempty"`
	Height string `json:"height,omitempty"`
}

// IDRequest represents the arguments for chart_load and chart_delete.
type IDRequest struct {
	ID string `json:"id"`
}

// Response types

// RenderURLResponse is returned by chart_render_url.
type RenderURLResponse struct {
	URL           string              `json:"url"`
	Specification chart.Specification `json:"specification"`
	Examples      []chart.Example     `json:"examples,omitempty"`
}

// PresetsResponse is returned by chart_presets.
type PresetsResponse struct {
	Presets chart.Presets `json:"presets"`
}

// ChartResponse is returned by chart_save and chart_load.
type ChartResponse struct {
	Chart chart.SavedChart `json:"chart"`
	URL   string           `json:"url"`
}

// HandleRenderURL handles the chart_render_url tool call.
func (h *Handlers) HandleRenderURL(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[RenderURLRequest](req)
	if err != nil {
		return errorResult(errors.NewValidation("arguments", err.Error())), nil
	}

	spec := chart.NewSpecification(h.cfg.DefaultWidth, h.cfg.DefaultHeight)
	switch {
	case input.Preset != "" && input.Config != "":
		return errorResult(errors.NewValidation("preset", "pass either config or preset, not both")), nil
	case input.Preset != "":
		p, ok := h.presets.Lookup(input.Preset)
		if !ok {
			return errorResult(errors.NewNotFound("preset", input.Preset)), nil
		}
		spec.ConfigText = p.Config
	default:
		spec.ConfigText = input.Config
	}
	if input.Width != "" {
		spec.Width = input.Width
	}
	if input.Height != "" {
		spec.Height = input.Height
	}

	resp := RenderURLResponse{
		URL:           h.builder.URL(spec),
		Specification: spec,
	}
	if input.IncludeExamples {
		resp.Examples = chart.UsageExamples(resp.URL)
	}
	return successResult(resp)
}

// HandlePresets handles the chart_presets tool call.
func (h *Handlers) HandlePresets(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return successResult(PresetsResponse{Presets: h.presets})
}

// HandleList handles the chart_list tool call.
func (h *Handlers) HandleList(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	result, err := ops.List(ctx, h.db, ops.ListInput{OwnerID: h.ownerID()})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleSave handles the chart_save tool call.
func (h *Handlers) HandleSave(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[SaveRequest](req)
	if err != nil {
		return errorResult(errors.NewValidation("arguments", err.Error())), nil
	}

	spec := chart.NewSpecification(h.cfg.DefaultWidth, h.cfg.DefaultHeight)
	spec.ConfigText = input.Config
	if input.Width != "" {
		spec.Width = input.Width
	}
	if input.Height != "" {
		spec.Height = input.Height
	}

	result, err := ops.Create(ctx, h.db, ops.CreateInput{
		OwnerID:    h.ownerID(),
		Title:      input.Title,
		ConfigText: spec.ConfigText,
		Width:      spec.Width,
		Height:     spec.Height,
	})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(h.chartResponse(result.Chart))
}

// HandleLoad handles the chart_load tool call.
func (h *Handlers) HandleLoad(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[IDRequest](req)
	if err != nil {
		return errorResult(errors.NewValidation("arguments", err.Error())), nil
	}

	result, err := ops.Get(ctx, h.db, ops.GetInput{ID: input.ID, OwnerID: h.ownerID()})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(h.chartResponse(result.Chart))
}

// HandleDelete handles the chart_delete tool call.
func (h *Handlers) HandleDelete(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[IDRequest](req)
	if err != nil {
		return errorResult(errors.NewValidation("arguments", err.Error())), nil
	}
	if strings.TrimSpace(input.ID) == "" {
		return errorResult(errors.NewValidation("id", "id is required")), nil
	}

	result, err := ops.Remove(ctx, h.db, ops.RemoveInput{ID: input.ID, OwnerID: h.ownerID()})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

func (h *Handlers) ownerID() string {
	if h.owner == nil {
		return ""
	}
	return h.owner.ID
}

func (h *Handlers) chartResponse(c chart.SavedChart) ChartResponse {
	spec := c.Specification(h.cfg.DefaultWidth, h.cfg.DefaultHeight)
	return ChartResponse{Chart: c, URL: h.builder.URL(spec)}
}

// Result helpers

// errorResult creates an MCP error result from any error.
// Uses IsError: true so MCP clients recognize failures properly.
// Note: Internal error details are not exposed to prevent leaking sensitive info.
func errorResult(err error) *mcp.CallToolResult {
	var payload map[string]any

	var chartErr *errors.ChartError
	if stderrors.As(err, &chartErr) {
		message := chartErr.Message
		if err != error(chartErr) {
			// Keep the caller's wrapping context.
			message = err.Error()
		}
		errorObj := map[string]any{
			"code":    chartErr.Code,
			"message": message,
			"status":  chartErr.Status,
		}
		// Only include details for non-internal errors to avoid leaking
		// sensitive info like file paths or SQL errors
		if chartErr.Code != errors.ErrInternal && chartErr.Details != nil {
			errorObj["details"] = chartErr.Details
		}
		payload = map[string]any{"error": errorObj}
	} else {
		payload = map[string]any{
			"error": map[string]any{
				"code":    "INTERNAL",
				"message": "an internal error occurred",
				"status":  500,
			},
		}
	}

	content, _ := json.Marshal(payload)
	return &mcp.CallToolResult{
		Content: []mcp.Content{mcp.TextContent{Type: "text", Text: string(content)}},
		IsError: true,
	}
}

// successResult creates an MCP success result from any data.
func successResult(data any) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultJSON(data)
}
