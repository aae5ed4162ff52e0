package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/urfave/cli/v2"
	"golang.org/x/term"

	"github.com/hpungsan/chartd/internal/chart"
	"github.com/hpungsan/chartd/internal/config"
	"github.com/hpungsan/chartd/internal/errors"
	"github.com/hpungsan/chartd/internal/identity"
	"github.com/hpungsan/chartd/internal/mcp"
	"github.com/hpungsan/chartd/internal/ops"
	"github.com/hpungsan/chartd/internal/render"
	"github.com/hpungsan/chartd/internal/renderer"
	"github.com/hpungsan/chartd/internal/web"
)

// Environment variables read by the identity flags.
const (
	tokenEnv    = "CHARTD_TOKEN"
	emailEnv    = "CHARTD_EMAIL"
	passwordEnv = "CHARTD_PASSWORD"
)

// maxStdinBytes bounds config text read from stdin.
const maxStdinBytes = 1 << 20

// newCLIApp creates the CLI application with all commands. extra holds
// presets loaded from the presets file.
func newCLIApp(db *sql.DB, cfg *config.Config, extra chart.Presets, logger *slog.Logger) *cli.App {
	if logger == nil {
		logger = slog.Default()
	}
	presets := chart.MergePresets(chart.BuiltinPresets(), extra)

	app := &cli.App{
		Name:    "chartd",
		Usage:   "Chart config editor and render URL builder",
		Version: Version,
		Commands: []*cli.Command{
			serveCmd(db, cfg, extra, logger),
			mcpCmd(db, cfg, extra),
			urlCmd(cfg, presets),
			presetsCmd(presets),
			renderCmd(cfg, presets),
			signupCmd(db, cfg),
			signinCmd(db, cfg),
			listCmd(db, cfg),
			saveCmd(db, cfg, presets),
			loadCmd(db, cfg),
			deleteCmd(db, cfg),
		},
	}
	// Disable default exit error handler to allow proper error return in tests
	app.ExitErrHandler = func(_ *cli.Context, _ error) {}
	return app
}

// serveCmd creates the serve command.
func serveCmd(db *sql.DB, cfg *config.Config, extra chart.Presets, logger *slog.Logger) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the web chart editor and the render endpoint",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "bind", Usage: "Listen address (default from config)"},
			&cli.IntFlag{Name: "port", Aliases: []string{"p"}, Usage: "Listen port (default from config)"},
		},
		Action: func(c *cli.Context) error {
			serveCfg := *cfg
			if bind := c.String("bind"); bind != "" {
				serveCfg.Bind = bind
			}
			if port := c.Int("port"); port > 0 {
				serveCfg.Port = port
			}

			n, err := newProvider(db, cfg).PurgeExpired(c.Context)
			if err != nil {
				logger.Warn("purge expired sessions failed", "error", err)
			} else if n > 0 {
				logger.Info("purged expired sessions", "count", n)
			}

			srv, err := web.NewServer(db, &serveCfg, extra, Version, logger)
			if err != nil {
				return outputError(errors.NewInternal(err))
			}
			return web.Run(srv, logger)
		},
	}
}

// mcpCmd creates the mcp command.
func mcpCmd(db *sql.DB, cfg *config.Config, extra chart.Presets) *cli.Command {
	return &cli.Command{
		Name:  "mcp",
		Usage: "Run the MCP server on stdio",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "token", EnvVars: []string{tokenEnv}, Usage: "Session token from chartd signin for the saved-chart tools"},
		},
		Action: func(c *cli.Context) error {
			if err := runMCP(db, cfg, extra, c.String("token")); err != nil {
				return outputError(err)
			}
			return nil
		},
	}
}

// runMCP resolves the acting identity and serves MCP on stdio. An empty
// token runs without an identity; an unknown one is an error.
func runMCP(db *sql.DB, cfg *config.Config, extra chart.Presets, token string) error {
	var owner *identity.Identity
	if token != "" {
		var err error
		owner, err = lookupToken(context.Background(), newProvider(db, cfg), token)
		if err != nil {
			return err
		}
	}
	presets := chart.MergePresets(chart.BuiltinPresets(), extra)
	return mcp.Run(db, cfg, presets, owner, Version)
}

// urlCmd creates the url command.
func urlCmd(cfg *config.Config, presets chart.Presets) *cli.Command {
	return &cli.Command{
		Name:  "url",
		Usage: "Print the render URL for a config (reads config from --config, --preset, or stdin)",
		Flags: append(specFlags(),
			&cli.StringFlag{Name: "origin", Usage: "Base origin (default from config)"},
			&cli.BoolFlag{Name: "examples", Usage: "Include code snippets that fetch the URL"},
		),
		Action: func(c *cli.Context) error {
			spec, err := readSpec(c, cfg, presets, false)
			if err != nil {
				return outputError(err)
			}

			builder := render.Builder{Origin: cfg.BaseOrigin, Path: cfg.RenderPath}
			if origin := c.String("origin"); origin != "" {
				builder.Origin = origin
			}

			out := urlOutput{URL: builder.URL(spec), Specification: spec}
			if c.Bool("examples") {
				out.Examples = chart.UsageExamples(out.URL)
			}
			return outputJSON(out)
		},
	}
}

// presetsCmd creates the presets command.
func presetsCmd(presets chart.Presets) *cli.Command {
	return &cli.Command{
		Name:  "presets",
		Usage: "List chart presets",
		Action: func(c *cli.Context) error {
			return outputJSON(map[string]any{"presets": presets})
		},
	}
}

// renderCmd creates the render command.
func renderCmd(cfg *config.Config, presets chart.Presets) *cli.Command {
	return &cli.Command{
		Name:  "render",
		Usage: "Render a config to an image file with the built-in renderer",
		Flags: append(specFlags(),
			&cli.StringFlag{Name: "out", Aliases: []string{"o"}, Value: "chart.png", Usage: "Output file path"},
			&cli.StringFlag{Name: "format", Aliases: []string{"f"}, Value: "png", Usage: "Image format: png|svg"},
		),
		Action: func(c *cli.Context) error {
			spec, err := readSpec(c, cfg, presets, true)
			if err != nil {
				return outputError(err)
			}

			format := renderer.Format(strings.ToLower(c.String("format")))
			if format != renderer.FormatPNG && format != renderer.FormatSVG {
				return outputError(errors.NewValidation("format", "format must be png or svg"))
			}

			img, err := renderer.Render(spec, format)
			if err != nil {
				return outputError(err)
			}

			path := c.String("out")
			if err := os.WriteFile(path, img, 0o644); err != nil {
				return outputError(errors.NewInternal(err))
			}
			return outputJSON(map[string]any{"path": path, "format": format, "bytes": len(img)})
		},
	}
}

// signupCmd creates the signup command.
func signupCmd(db *sql.DB, cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:  "signup",
		Usage: "Create an account",
		Flags: credentialFlags(),
		Action: func(c *cli.Context) error {
			password, err := readPassword(c)
			if err != nil {
				return outputError(err)
			}
			id, err := newProvider(db, cfg).SignUp(c.Context, c.String("email"), password)
			if err != nil {
				return outputError(err)
			}
			return outputJSON(id)
		},
	}
}

// signinCmd creates the signin command.
func signinCmd(db *sql.DB, cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:  "signin",
		Usage: "Open a session and print its token (use with --token or " + tokenEnv + ")",
		Flags: credentialFlags(),
		Action: func(c *cli.Context) error {
			password, err := readPassword(c)
			if err != nil {
				return outputError(err)
			}
			token, id, err := newProvider(db, cfg).SignIn(c.Context, c.String("email"), password)
			if err != nil {
				return outputError(err)
			}
			return outputJSON(map[string]any{"token": token, "identity": id})
		},
	}
}

// listCmd creates the list command.
func listCmd(db *sql.DB, cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:  "list",
		Usage: "List your saved charts, newest first",
		Flags: identityFlags(),
		Action: func(c *cli.Context) error {
			owner, done, err := authenticate(c, newProvider(db, cfg))
			if err != nil {
				return outputError(err)
			}
			defer done()

			output, err := ops.List(c.Context, db, ops.ListInput{OwnerID: owner.ID})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// saveCmd creates the save command.
func saveCmd(db *sql.DB, cfg *config.Config, presets chart.Presets) *cli.Command {
	flags := append(identityFlags(), specFlags()...)
	flags = append(flags, &cli.StringFlag{Name: "title", Aliases: []string{"t"}, Usage: "Chart title (required)"})

	return &cli.Command{
		Name:  "save",
		Usage: "Save a chart (reads config from --config, --preset, or stdin)",
		Flags: flags,
		Action: func(c *cli.Context) error {
			spec, err := readSpec(c, cfg, presets, true)
			if err != nil {
				return outputError(err)
			}
			title, err := ops.ValidateTitle(c.String("title"))
			if err != nil {
				return outputError(err)
			}

			owner, done, err := authenticate(c, newProvider(db, cfg))
			if err != nil {
				return outputError(err)
			}
			defer done()

			output, err := ops.Create(c.Context, db, ops.CreateInput{
				OwnerID:    owner.ID,
				Title:      title,
				ConfigText: spec.ConfigText,
				Width:      spec.Width,
				Height:     spec.Height,
			})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(newChartOutput(cfg, output.Chart))
		},
	}
}

// loadCmd creates the load command.
func loadCmd(db *sql.DB, cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:  "load",
		Usage: "Print a saved chart with its specification and render URL",
		Flags: append(identityFlags(),
			&cli.StringFlag{Name: "id", Usage: "Saved chart id (required)"},
		),
		Action: func(c *cli.Context) error {
			owner, done, err := authenticate(c, newProvider(db, cfg))
			if err != nil {
				return outputError(err)
			}
			defer done()

			output, err := ops.Get(c.Context, db, ops.GetInput{ID: c.String("id"), OwnerID: owner.ID})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(newChartOutput(cfg, output.Chart))
		},
	}
}

// deleteCmd creates the delete command.
func deleteCmd(db *sql.DB, cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:  "delete",
		Usage: "Delete a saved chart (a missing id is not an error)",
		Flags: append(identityFlags(),
			&cli.StringFlag{Name: "id", Usage: "Saved chart id (required)"},
		),
		Action: func(c *cli.Context) error {
			id := strings.TrimSpace(c.String("id"))
			if id == "" {
				return outputError(errors.NewValidation("id", "id is required"))
			}

			owner, done, err := authenticate(c, newProvider(db, cfg))
			if err != nil {
				return outputError(err)
			}
			defer done()

			output, err := ops.Remove(c.Context, db, ops.RemoveInput{ID: id, OwnerID: owner.ID})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// Output types

type urlOutput struct {
	URL           string              `json:"url"`
	Specification chart.Specification `json:"specification"`
	Examples      []chart.Example     `json:"examples,omitempty"`
}

type chartOutput struct {
	Chart         chart.SavedChart    `json:"chart"`
	Specification chart.Specification `json:"specification"`
	URL           string              `json:"url"`
}

func newChartOutput(cfg *config.Config, c chart.SavedChart) chartOutput {
	spec := c.Specification(cfg.DefaultWidth, cfg.DefaultHeight)
	builder := render.Builder{Origin: cfg.BaseOrigin, Path: cfg.RenderPath}
	return chartOutput{Chart: c, Specification: spec, URL: builder.URL(spec)}
}

// Flag sets

func specFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "config", Aliases: []string{"c"}, Usage: "Chart configuration JSON text"},
		&cli.StringFlag{Name: "preset", Usage: "Preset key to use as the config"},
		&cli.StringFlag{Name: "width", Usage: "Image width (default from config)"},
		&cli.StringFlag{Name: "height", Usage: "Image height (default from config)"},
	}
}

func credentialFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "email", Aliases: []string{"e"}, EnvVars: []string{emailEnv}, Usage: "Account email"},
		&cli.StringFlag{Name: "password", EnvVars: []string{passwordEnv}, Usage: "Account password (prompted when stdin is a terminal)"},
	}
}

func identityFlags() []cli.Flag {
	return append(credentialFlags(),
		&cli.StringFlag{Name: "token", EnvVars: []string{tokenEnv}, Usage: "Session token from chartd signin"},
	)
}

// Helper functions

func newProvider(db *sql.DB, cfg *config.Config) *identity.Provider {
	return identity.NewProvider(db, time.Duration(cfg.SessionTTLHours)*time.Hour)
}

// authenticate resolves the acting identity from --token, or else from
// --email/--password. A password sign-in opens a session only for the
// duration of the command; call done to close it.
func authenticate(c *cli.Context, provider *identity.Provider) (*identity.Identity, func(), error) {
	if token := c.String("token"); token != "" {
		id, err := lookupToken(c.Context, provider, token)
		if err != nil {
			return nil, nil, err
		}
		return id, func() {}, nil
	}

	if c.String("email") == "" {
		return nil, nil, errors.NewUnauthenticated("sign in with --token or --email/--password")
	}
	password, err := readPassword(c)
	if err != nil {
		return nil, nil, err
	}
	token, id, err := provider.SignIn(c.Context, c.String("email"), password)
	if err != nil {
		return nil, nil, err
	}
	done := func() { _ = provider.SignOut(context.Background(), token) }
	return id, done, nil
}

func lookupToken(ctx context.Context, provider *identity.Provider, token string) (*identity.Identity, error) {
	id, err := provider.Lookup(ctx, token)
	if err != nil {
		return nil, err
	}
	if id == nil {
		return nil, errors.NewUnauthenticated("session token is unknown or expired; run `chartd signin`")
	}
	return id, nil
}

// readPassword returns --password, prompting for it when stdin is a
// terminal.
func readPassword(c *cli.Context) (string, error) {
	if pw := c.String("password"); pw != "" {
		return pw, nil
	}
	if !isTerminal() {
		return "", errors.NewValidation("password", "password is required (--password or "+passwordEnv+")")
	}
	fmt.Fprint(os.Stderr, "Password: ")
	b, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", errors.NewInternal(err)
	}
	return string(b), nil
}

// readSpec assembles a specification from the command flags. The config
// comes from --config, else --preset, else piped stdin. With requireConfig,
// a missing config is a validation error.
func readSpec(c *cli.Context, cfg *config.Config, presets chart.Presets, requireConfig bool) (chart.Specification, error) {
	spec := chart.NewSpecification(cfg.DefaultWidth, cfg.DefaultHeight)
	if w := c.String("width"); w != "" {
		spec.Width = w
	}
	if h := c.String("height"); h != "" {
		spec.Height = h
	}

	switch {
	case c.String("config") != "" && c.String("preset") != "":
		return spec, errors.NewValidation("preset", "pass either --config or --preset, not both")
	case c.String("config") != "":
		spec.ConfigText = c.String("config")
	case c.String("preset") != "":
		p, ok := presets.Lookup(c.String("preset"))
		if !ok {
			return spec, errors.NewNotFound("preset", c.String("preset"))
		}
		spec.ConfigText = p.Config
	case stdinHasData():
		text, err := readStdin()
		if err != nil {
			return spec, err
		}
		spec.ConfigText = text
	}

	if requireConfig && strings.TrimSpace(spec.ConfigText) == "" {
		return spec, errors.NewValidation("config", "config is required (--config, --preset, or stdin)")
	}
	return spec, nil
}

// outputJSON marshals result to stdout as JSON.
func outputJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// outputError formats error for CLI.
func outputError(err error) error {
	if chartErr := errors.As(err); chartErr.Code != errors.ErrInternal {
		return cli.Exit(fmt.Sprintf("[%s] %s", chartErr.Code, chartErr.Message), 1)
	}
	return cli.Exit(err.Error(), 1)
}

// stdinHasData returns true if stdin has piped data (not a terminal).
func stdinHasData() bool {
	stat, err := os.Stdin.Stat()
	if err != nil {
		return false
	}
	return (stat.Mode() & os.ModeCharDevice) == 0
}

// readStdin reads config text from stdin, up to maxStdinBytes.
func readStdin() (string, error) {
	data, err := io.ReadAll(io.LimitReader(os.Stdin, maxStdinBytes+1))
	if err != nil {
		return "", errors.NewInternal(err)
	}
	if len(data) > maxStdinBytes {
		return "", errors.NewValidation("config", "config from stdin exceeds 1 MiB")
	}
	return strings.TrimSpace(string(data)), nil
}
