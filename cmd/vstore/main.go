package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/vango-dev/vstore/internal/errors"
)

func main() {
	root := &cobra.Command{
		Use:   "vstore",
		Short: "Selector-driven state stores for Go",
		Long: `vstore runs and inspects selector-driven state stores.

A store holds one state value. Subscribers register a selector and an
equality function and are told only when their selection changes.

  serve    run a demo store with the devtools server
  state    print the state of a running devtools server
  init     write a default vstore.json`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(
		serveCmd(),
		stateCmd(),
		initCmd(),
		versionCmd(),
	)

	os.Exit(run(root))
}

func run(cmd *cobra.Command) int {
	if err := cmd.Execute(); err != nil {
		errors.PrintError(err)
		return 1
	}
	return 0
}

func success(format string, args ...any) {
	fmt.Println("\033[32mok\033[0m", fmt.Sprintf(format, args...))
}

func info(format string, args ...any) {
	fmt.Println("  " + fmt.Sprintf(format, args...))
}
