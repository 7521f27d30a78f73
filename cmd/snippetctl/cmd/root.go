// Package cmd holds the snippetctl commands.
package cmd

import (
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/sakif/js-playground/internal/executor/jsengine"
	"github.com/sakif/js-playground/internal/service"
)

// Output formats accepted by --format.
const (
	formatText = "text"
	formatJSON = "json"
)

// options are the persistent flags shared by every subcommand.
type options struct {
	format   string
	timeout  time.Duration
	maxStack int
	maxBytes int64
	verbose  bool
}

// NewRootCmd builds the command tree. Files are read through fs so tests
// can use an in-memory filesystem.
func NewRootCmd(fs afero.Fs) *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:   "snippetctl",
		Short: "Discover and run JavaScript snippets",
		Long: `snippetctl runs JavaScript the same way the playground server does.

Available commands:
  extract    List the top-level functions found in a file
  run        Define and call every function in a file (units mode)
  script     Run a file as one script with report() available (script mode)

Pass "-" as the file name to read from standard input.`,
		SilenceUsage: true,
	}

	flags := root.PersistentFlags()
	flags.StringVarP(&opts.format, "format", "f", formatText, "Output format (text, json)")
	flags.DurationVar(&opts.timeout, "timeout", 0, "Maximum time for one run (0 means no limit)")
	flags.IntVar(&opts.maxStack, "max-call-stack", 10000, "Maximum JavaScript call depth")
	flags.Int64Var(&opts.maxBytes, "max-bytes", service.DefaultMaxUploadBytes, "Largest file accepted")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "Log engine activity to stderr")

	root.PersistentPreRunE = func(cmd *cobra.Command, _ []string) error {
		switch opts.format {
		case formatText, formatJSON:
			return nil
		default:
			return fmt.Errorf("unknown format %q (want %s or %s)", opts.format, formatText, formatJSON)
		}
	}

	root.AddCommand(
		newExtractCmd(fs, opts),
		newRunCmd(fs, opts),
		newScriptCmd(fs, opts),
	)
	return root
}

// logger writes to stderr only with --verbose.
func (o *options) logger(cmd *cobra.Command) *slog.Logger {
	if !o.verbose {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: slog.LevelDebug}))
}

// runner builds the same RunService the server uses, backed by the
// in-process engine and with no snippet storage.
func (o *options) runner(cmd *cobra.Command) *service.RunService {
	logger := o.logger(cmd)
	engine := jsengine.New(jsengine.Config{
		Timeout:          o.timeout,
		MaxCallStackSize: o.maxStack,
	}, logger)
	return service.NewRunService(engine, engine, nil, o.maxBytes, logger)
}

// readSource loads a .js file (or stdin for "-") and applies the same
// checks as an upload: extension, size, UTF-8 and BOM removal.
func readSource(cmd *cobra.Command, fs afero.Fs, rs *service.RunService, name string) (string, error) {
	var (
		data []byte
		err  error
	)
	if name == "-" {
		data, err = io.ReadAll(io.LimitReader(cmd.InOrStdin(), rs.MaxUploadBytes()+1))
		name = "stdin.js"
	} else {
		data, err = afero.ReadFile(fs, name)
	}
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", name, err)
	}
	return rs.Upload(name, data)
}
