package mcp

import "github.com/mark3labs/mcp-go/mcp"

var renderURLToolDef = mcp.NewTool("chart_render_url",
	mcp.WithDescription("Build the render URL for a chart configuration. Pass either config or a preset key. The config is not validated; an invalid one renders as a placeholder."),
	mcp.WithString("config", mcp.Description("Chart.js-style configuration JSON text")),
	mcp.WithString("preset", mcp.Description("Preset key to use instead of config (see chart_presets)")),
	mcp.WithString("width", mcp.Description("Image width in pixels (default from server config)")),
	mcp.WithString("height", mcp.Description("Image height in pixels (default from server config)")),
	mcp.WithBoolean("include_examples", mcp.Description("Also return code snippets that fetch the URL")),
)

var presetsToolDef = mcp.NewTool("chart_presets",
	mcp.WithDescription("List the available chart presets with their configuration text."),
)

var listToolDef = mcp.NewTool("chart_list",
	mcp.WithDescription("List the signed-in identity's saved charts, newest first."),
)

var saveToolDef = mcp.NewTool("chart_save",
	mcp.WithDescription("Save a chart under a title. The config must be a JSON object; chart_type is taken from its \"type\" field."),
	mcp.WithString("title", mcp.Required(), mcp.Description("Non-empty chart title")),
	mcp.WithString("config", mcp.Required(), mcp.Description("Chart configuration JSON object text")),
	mcp.WithString("width", mcp.Description("Image width in pixels")),
	mcp.WithString("height", mcp.Description("Image height in pixels")),
)

var loadToolDef = mcp.NewTool("chart_load",
	mcp.WithDescription("Load a saved chart by id and return it with its render URL."),
	mcp.WithString("id", mcp.Required(), mcp.Description("Saved chart id")),
)

var deleteToolDef = mcp.NewTool("chart_delete",
	mcp.WithDescription("Delete a saved chart by id. Deleting a missing id is not an error."),
	mcp.WithString("id", mcp.Required(), mcp.Description("Saved chart id")),
)
