// Command snippetctl extracts and runs JavaScript snippets from local files.
package main

import (
	"os"

	"github.com/spf13/afero"

	"github.com/sakif/js-playground/cmd/snippetctl/cmd"
)

func main() {
	if err := cmd.NewRootCmd(afero.NewOsFs()).Execute(); err != nil {
		os.Exit(1)
	}
}
