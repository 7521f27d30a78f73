package cmd

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/sakif/js-playground/internal/executor/extract"
)

func newExtractCmd(fs afero.Fs, opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "extract <file>",
		Short: "List the top-level functions found in a file",
		Long: `List every top-level function declaration in source order.

Examples:
  snippetctl extract lib.js            # one "name(params)" per line
  snippetctl extract lib.js -f json    # names, parameters, bodies and offsets`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			src, err := readSource(cmd, fs, opts.runner(cmd), args[0])
			if err != nil {
				return err
			}

			units := extract.Extract(src)
			out := cmd.OutOrStdout()

			if opts.format == formatJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				if units == nil {
					units = []extract.Unit{}
				}
				return enc.Encode(units)
			}

			for _, u := range units {
				fmt.Fprintf(out, "%s(%s)\n", u.Name, strings.Join(u.Params, ", "))
			}
			return nil
		},
	}
}
