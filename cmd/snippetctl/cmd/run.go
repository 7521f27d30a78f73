package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/sakif/js-playground/internal/executor"
)

func newRunCmd(fs afero.Fs, opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "run <file>",
		Short: "Define and call every function in a file",
		Long: `Define every top-level function in one fresh scope, then call each with
no arguments and print one line per function: its name and what it
returned, or why it failed.

Examples:
  snippetctl run lib.js
  cat lib.js | snippetctl run - -f json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return execute(cmd, fs, opts, args[0], executor.ModeUnits)
		},
	}
}

func newScriptCmd(fs afero.Fs, opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "script <file>",
		Short: "Run a file as one script with report() available",
		Long: `Evaluate the whole file once. Every report(...) call is printed as a
JSON array of its arguments. A thrown error is printed to stderr and the
command exits non-zero.

Examples:
  snippetctl script demo.js
  snippetctl script demo.js --timeout 1s`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return execute(cmd, fs, opts, args[0], executor.ModeScript)
		},
	}
}

// errScriptFailed is returned after a failed script has been reported, so
// main exits non-zero without printing the cause twice.
var errScriptFailed = errors.New("script failed")

func execute(cmd *cobra.Command, fs afero.Fs, opts *options, name string, mode executor.Mode) error {
	rs := opts.runner(cmd)

	src, err := readSource(cmd, fs, rs, name)
	if err != nil {
		return err
	}

	res, err := rs.Execute(cmd.Context(), src, string(mode))
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if opts.format == formatJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(res); err != nil {
			return err
		}
	} else if err := printText(out, cmd.ErrOrStderr(), res); err != nil {
		return err
	}

	if res.Mode == executor.ModeScript && len(res.Results) > 0 {
		cmd.SilenceErrors = true
		return errScriptFailed
	}
	return nil
}

func printText(out, errOut io.Writer, res *executor.ExecutionResult) error {
	if res.Mode == executor.ModeUnits {
		for _, r := range res.Results {
			if _, err := fmt.Fprintf(out, "%s: %s\n", r.Name, r.Output); err != nil {
				return err
			}
		}
		return nil
	}

	for _, call := range res.Reports {
		line, err := json.Marshal(call)
		if err != nil {
			return err
		}
		if _, err := fmt.Fprintln(out, string(line)); err != nil {
			return err
		}
	}
	if res.Stdout != "" {
		fmt.Fprint(out, res.Stdout)
	}
	for _, r := range res.Results {
		fmt.Fprintln(errOut, r.Output)
	}
	return nil
}
