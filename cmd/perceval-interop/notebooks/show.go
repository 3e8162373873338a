// Copyright (c) 2025 Quandela
// SPDX-License-Identifier: MIT

package notebooks

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/pflag"
	"golang.org/x/term"

	"github.com/Quandela/Perceval-Interop/cmd/perceval-interop/cli"
	"github.com/Quandela/Perceval-Interop/lib/fuzzy"
	"github.com/Quandela/Perceval-Interop/lib/nbrender"
	"github.com/Quandela/Perceval-Interop/lib/notebook"
)

type showParams struct {
	Dir   string `flag:"dir" desc:"Notebook directory (default: configured notebooks dir)"`
	Width int    `flag:"width" desc:"Render width in columns (default: terminal width)"`
}

// ShowCommand returns the "notebooks show" command.
func ShowCommand() *cli.Command {
	var params showParams
	return &cli.Command{
		Name:    "show",
		Summary: "Render a notebook in the terminal",
		Description: `Render a documentation notebook as styled terminal output.

The argument is matched against notebook names, exact name first and
fuzzy match as a fallback, so 'show walkthrough' finds
'circuit_walkthrough.ipynb' without the full name.`,
		Usage: "perceval-interop notebooks show <name> [--dir <path>] [--width <columns>]",
		Examples: []cli.Example{
			{
				Description: "Render a notebook by fuzzy name",
				Command:     "perceval-interop notebooks show walkthrough",
			},
		},
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("show", &params)
		},
		Run: func(ctx context.Context, args []string, logger *slog.Logger) error {
			if len(args) != 1 {
				return fmt.Errorf("notebooks show: exactly one notebook name required\n\nUsage: perceval-interop notebooks show <name>")
			}
			dir, err := resolveDir(params.Dir)
			if err != nil {
				return err
			}
			names, err := notebook.Scan(dir)
			if err != nil {
				return err
			}
			name, err := resolveNotebook(names, args[0])
			if err != nil {
				return err
			}
			doc, err := notebook.Load(filepath.Join(dir, name))
			if err != nil {
				return err
			}

			width := params.Width
			if width <= 0 {
				width = renderWidth()
			}
			fmt.Println(nbrender.Render(doc, nbrender.DefaultTheme, width))
			return nil
		},
	}
}

// resolveNotebook picks the notebook the query refers to: an exact
// name match wins, otherwise the best fuzzy match.
func resolveNotebook(names []string, query string) (string, error) {
	for _, name := range names {
		if name == query {
			return name, nil
		}
	}
	ranked := fuzzy.Rank(names, query)
	if len(ranked) == 0 {
		return "", fmt.Errorf("notebooks show: no notebook matches %q", query)
	}
	return ranked[0].Text, nil
}

// renderWidth probes the terminal for its column count, falling back
// to 80 when stdout is not a terminal.
func renderWidth() int {
	width, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || width <= 0 {
		return 80
	}
	return width
}
