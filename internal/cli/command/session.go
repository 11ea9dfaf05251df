package command

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/ssess-go/internal/core/domain"
	"github.com/yndnr/ssess-go/internal/core/session"
	"github.com/yndnr/ssess-go/internal/storage"
	"github.com/yndnr/ssess-go/internal/telemetry/logger"
)

type identifierResult struct {
	Identifier string `json:"identifier" yaml:"identifier"`
}

type inspectResult struct {
	Identifier string `json:"identifier" yaml:"identifier"`
	Exists     bool   `json:"exists" yaml:"exists"`
	Data       string `json:"data,omitempty" yaml:"data,omitempty"`
	Error      string `json:"error,omitempty" yaml:"error,omitempty"`
}

type existsResult struct {
	Exists bool `json:"exists" yaml:"exists"`
}

type destroyResult struct {
	Identifier string `json:"identifier" yaml:"identifier"`
	Destroyed  bool   `json:"destroyed" yaml:"destroyed"`
}

type gcResult struct {
	MaxLife float64 `json:"max_life_seconds" yaml:"max_life_seconds"`
	Removed int     `json:"removed" yaml:"removed"`
}

// IdentifierCommand prints the storage identifier of a session id.
func IdentifierCommand() *cli.Command {
	return &cli.Command{
		Name:      "identifier",
		Aliases:   []string{"id"},
		Usage:     "Print the storage identifier derived from a session id",
		ArgsUsage: "SESSION_ID",
		Action:    identifier,
	}
}

// InspectCommand decrypts and prints a stored session.
func InspectCommand() *cli.Command {
	return &cli.Command{
		Name:      "inspect",
		Usage:     "Show whether a session exists and its decrypted data",
		ArgsUsage: "SESSION_ID",
		Action:    inspect,
	}
}

// ExistsCommand exits 1 when the session is absent.
func ExistsCommand() *cli.Command {
	return &cli.Command{
		Name:      "exists",
		Usage:     "Report whether a session exists (exit status 1 when absent)",
		ArgsUsage: "SESSION_ID",
		Action:    exists,
	}
}

// DestroyCommand removes a stored session.
func DestroyCommand() *cli.Command {
	return &cli.Command{
		Name:      "destroy",
		Usage:     "Delete a stored session",
		ArgsUsage: "SESSION_ID",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:    "force",
				Aliases: []string{"f"},
				Usage:   "Skip confirmation",
			},
		},
		Action: destroy,
	}
}

// GCCommand removes expired sessions.
func GCCommand() *cli.Command {
	return &cli.Command{
		Name:  "gc",
		Usage: "Remove sessions older than --max-life seconds",
		Flags: []cli.Flag{
			&cli.Float64Flag{
				Name:  "max-life",
				Usage: "Session lifetime in seconds (default: session.max_life)",
			},
		},
		Action: gc,
	}
}

func identifier(c *cli.Context) error {
	id, err := requireSessionID(c)
	if err != nil {
		return err
	}
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	p, err := cfg.Crypto.NewProvider()
	if err != nil {
		return err
	}
	return printResult(c, identifierResult{Identifier: p.MakeIdentifier(id)})
}

func inspect(c *cli.Context) error {
	id, err := requireSessionID(c)
	if err != nil {
		return err
	}
	b, err := openBackend(c)
	if err != nil {
		return err
	}
	defer b.Close()

	ctx := context.Background()
	res := inspectResult{Identifier: b.crypt.MakeIdentifier(id)}
	res.Exists = b.store.SessionExists(ctx, res.Identifier)
	if res.Exists {
		envelope, err := b.store.Get(ctx, res.Identifier)
		if err == nil {
			res.Data, err = b.crypt.Decrypt(id, envelope)
		}
		if err != nil {
			res.Error = err.Error()
			b.log.Debug("inspect failed", "identifier", res.Identifier, "code", domain.GetErrorCode(err))
		}
	}
	return printResult(c, res)
}

func exists(c *cli.Context) error {
	id, err := requireSessionID(c)
	if err != nil {
		return err
	}
	b, err := openBackend(c)
	if err != nil {
		return err
	}
	defer b.Close()

	found := b.store.SessionExists(context.Background(), b.crypt.MakeIdentifier(id))
	if err := printResult(c, existsResult{Exists: found}); err != nil {
		return err
	}
	if !found {
		return cli.Exit("", 1)
	}
	return nil
}

func destroy(c *cli.Context) error {
	id, err := requireSessionID(c)
	if err != nil {
		return err
	}

	if !c.Bool("force") {
		ok, err := confirm(c, fmt.Sprintf("Destroy session %s? [y/N]: ", logger.RedactString(id)))
		if err != nil {
			return err
		}
		if !ok {
			return cli.Exit("aborted", 1)
		}
	}

	b, err := openBackend(c)
	if err != nil {
		return err
	}
	defer b.Close()

	res := destroyResult{Identifier: b.crypt.MakeIdentifier(id)}
	err = b.store.Destroy(context.Background(), res.Identifier)
	switch {
	case err == nil:
		res.Destroyed = true
	case errors.Is(err, domain.ErrSessionNotFound):
		if perr := printResult(c, res); perr != nil {
			return perr
		}
		return cli.Exit("", 1)
	default:
		return err
	}
	return printResult(c, res)
}

func gc(c *cli.Context) error {
	b, err := openBackend(c)
	if err != nil {
		return err
	}
	defer b.Close()

	maxLife := b.cfg.Session.MaxLife
	if c.IsSet("max-life") {
		maxLife = c.Float64("max-life")
	}
	if maxLife < 0 {
		return cli.Exit("gc: --max-life must not be negative", 2)
	}

	res := gcResult{MaxLife: maxLife}
	maxAge := session.MaxLifeDuration(maxLife)
	ctx := context.Background()
	if sc, ok := b.store.(storage.SweepCounter); ok {
		res.Removed, err = sc.ClearOldCount(ctx, maxAge)
	} else {
		res.Removed = -1
		err = b.store.ClearOld(ctx, maxAge)
	}
	if err != nil {
		return err
	}
	b.log.Debug("gc finished", "removed", res.Removed, "max_age", maxAge)
	return printResult(c, res)
}

// confirm asks a yes/no question on the app's reader.
func confirm(c *cli.Context, prompt string) (bool, error) {
	if _, err := fmt.Fprint(c.App.ErrWriter, prompt); err != nil {
		return false, err
	}
	line, err := bufio.NewReader(c.App.Reader).ReadString('\n')
	if err != nil && line == "" {
		return false, nil
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true, nil
	default:
		return false, nil
	}
}
