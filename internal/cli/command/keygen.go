package command

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/ssess-go/internal/cli/output"
	"github.com/yndnr/ssess-go/pkg/token"
)

type keygenResult struct {
	Secret string `json:"secret" yaml:"secret"`
	Bytes  int    `json:"bytes" yaml:"bytes"`
}

// KeygenCommand prints a random application secret.
func KeygenCommand() *cli.Command {
	return &cli.Command{
		Name:  "keygen",
		Usage: "Generate a random application secret (base64url)",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "length",
				Aliases: []string{"l"},
				Usage:   "Secret length in bytes",
				Value:   token.DefaultLength,
			},
		},
		Action: keygen,
	}
}

func keygen(c *cli.Context) error {
	n := c.Int("length")
	if n < 16 {
		return cli.Exit("keygen: --length must be at least 16", 2)
	}
	secret, err := token.GenerateWithLength(n)
	if err != nil {
		return err
	}

	if ParseGlobalFlags(c).Output == output.FormatTable {
		_, err := fmt.Fprintln(c.App.Writer, secret)
		return err
	}
	return printResult(c, keygenResult{Secret: secret, Bytes: n})
}
