package command

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/ssess-go/internal/cli/output"
	"github.com/yndnr/ssess-go/internal/core/crypt"
	"github.com/yndnr/ssess-go/internal/infra/buildinfo"
	"github.com/yndnr/ssess-go/internal/server/config"
	"github.com/yndnr/ssess-go/internal/storage"
	"github.com/yndnr/ssess-go/internal/telemetry/logger"
)

// App creates the CLI application.
func App() *cli.App {
	return &cli.App{
		Name:                 "ssess-cli",
		Usage:                "Inspect and maintain encrypted session storage",
		Version:              buildinfo.String(),
		Flags:                globalFlags(),
		EnableBashCompletion: true,
		Commands: []*cli.Command{
			KeygenCommand(),
			IdentifierCommand(),
			InspectCommand(),
			ExistsCommand(),
			DestroyCommand(),
			GCCommand(),
			ConfigCommand(),
		},
		Before: func(c *cli.Context) error {
			_, err := output.ParseFormat(c.String("output"))
			return err
		},
	}
}

// globalFlags returns the global CLI flags.
func globalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "config",
			Aliases: []string{"c"},
			Usage:   "Server configuration file (YAML)",
			EnvVars: []string{"SSESS_CONFIG"},
		},
		&cli.StringFlag{
			Name:    "output",
			Aliases: []string{"o"},
			Usage:   "Output format: table, json, yaml",
			Value:   string(output.FormatTable),
		},
		&cli.BoolFlag{
			Name:    "verbose",
			Aliases: []string{"V"},
			Usage:   "Log debug output to stderr",
		},
	}
}

// GlobalFlags defines flags available to all commands.
type GlobalFlags struct {
	Config  string
	Output  output.Format
	Verbose bool
}

// ParseGlobalFlags extracts global flags from context.
func ParseGlobalFlags(c *cli.Context) *GlobalFlags {
	format, _ := output.ParseFormat(c.String("output"))
	return &GlobalFlags{
		Config:  c.String("config"),
		Output:  format,
		Verbose: c.Bool("verbose"),
	}
}

// printResult writes data to the app writer in the selected format.
func printResult(c *cli.Context, data any) error {
	flags := ParseGlobalFlags(c)
	return output.NewFormatter(flags.Output).Format(c.App.Writer, data)
}

// cliLogger logs to the app's error writer: debug level with --verbose,
// warnings otherwise.
func cliLogger(c *cli.Context) logger.Logger {
	level := "warn"
	if c.Bool("verbose") {
		level = "debug"
	}
	var w io.Writer = c.App.ErrWriter
	if w == nil {
		w = os.Stderr
	}
	l, err := logger.New(logger.Config{Level: level, Format: "text", Output: w})
	if err != nil {
		return logger.NewNop()
	}
	return l
}

// loadConfig reads and verifies the server configuration named by --config.
func loadConfig(c *cli.Context) (*config.ServerConfig, error) {
	cfg, _, err := config.Load(c.String("config"), nil)
	if err != nil {
		return nil, err
	}
	if err := config.Verify(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// backend is the storage and crypt provider a command works on.
type backend struct {
	cfg   *config.ServerConfig
	crypt *crypt.Provider
	store storage.Storage
	log   logger.Logger
}

func openBackend(c *cli.Context) (*backend, error) {
	cfg, err := loadConfig(c)
	if err != nil {
		return nil, err
	}
	p, err := cfg.Crypto.NewProvider()
	if err != nil {
		return nil, err
	}

	log := cliLogger(c)
	store, err := storage.Open(context.Background(), cfg.Storage.StorageConfig(nil), logger.Slog(log))
	if err != nil {
		return nil, err
	}
	log.Debug("opened storage", "backend", cfg.Storage.Backend)
	return &backend{cfg: cfg, crypt: p, store: store, log: log}, nil
}

func (b *backend) Close() error {
	return b.store.Close()
}

// requireSessionID returns the first positional argument.
func requireSessionID(c *cli.Context) (string, error) {
	id := c.Args().First()
	if id == "" {
		return "", cli.Exit(fmt.Sprintf("%s: SESSION_ID required", c.Command.Name), 2)
	}
	return id, nil
}
