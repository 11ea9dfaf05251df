package command

import (
	"errors"
	"fmt"
	"strings"

	"github.com/knadh/koanf/maps"
	"github.com/urfave/cli/v2"
	"gopkg.in/yaml.v3"

	"github.com/yndnr/ssess-go/internal/cli/output"
	"github.com/yndnr/ssess-go/internal/server/config"
)

// ConfigCommand returns the config subcommand group.
func ConfigCommand() *cli.Command {
	return &cli.Command{
		Name:  "config",
		Usage: "Server configuration",
		Subcommands: []*cli.Command{
			{
				Name:   "show",
				Usage:  "Print the effective configuration with secrets masked",
				Action: configShow,
			},
			{
				Name:   "validate",
				Usage:  "Check the configuration and report every problem",
				Action: configValidate,
			},
		},
	}
}

func configShow(c *cli.Context) error {
	cfg, _, err := config.Load(c.String("config"), nil)
	if err != nil {
		return err
	}

	tree, err := configTree(config.Sanitize(cfg))
	if err != nil {
		return err
	}
	if ParseGlobalFlags(c).Output == output.FormatTable {
		flat, _ := maps.Flatten(tree, nil, ".")
		return printResult(c, flat)
	}
	return printResult(c, tree)
}

// configTree converts cfg to a generic map through its YAML form, so
// durations print as "1m0s" rather than nanoseconds.
func configTree(cfg *config.ServerConfig) (map[string]any, error) {
	raw, err := yaml.Marshal(cfg)
	if err != nil {
		return nil, err
	}
	tree := map[string]any{}
	if err := yaml.Unmarshal(raw, &tree); err != nil {
		return nil, err
	}
	return tree, nil
}

func configValidate(c *cli.Context) error {
	cfg, _, err := config.Load(c.String("config"), nil)
	if err != nil {
		return err
	}

	if err := config.Verify(cfg); err != nil {
		var lines []string
		var joined interface{ Unwrap() []error }
		if errors.As(err, &joined) {
			for _, e := range joined.Unwrap() {
				lines = append(lines, "  - "+e.Error())
			}
		} else {
			lines = append(lines, "  - "+err.Error())
		}
		return cli.Exit(fmt.Sprintf("configuration is invalid:\n%s", strings.Join(lines, "\n")), 1)
	}

	_, err = fmt.Fprintln(c.App.Writer, "OK")
	return err
}
