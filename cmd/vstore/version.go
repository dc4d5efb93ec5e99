package main

import (
	"fmt"
	"io"
	"runtime"
	"runtime/debug"

	"github.com/spf13/cobra"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func versionCmd() *cobra.Command {
	var short bool

	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print the vstore version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			writeVersion(cmd.OutOrStdout(), short)
			return nil
		},
	}
	cmd.Flags().BoolVarP(&short, "short", "s", false, "print the version number only")
	return cmd
}

// writeVersion falls back to the module build info when no version was
// stamped with -ldflags, e.g. after go install.
func writeVersion(w io.Writer, short bool) {
	v, rev := version, commit
	if bi, ok := debug.ReadBuildInfo(); ok {
		if v == "dev" && bi.Main.Version != "" && bi.Main.Version != "(devel)" {
			v = bi.Main.Version
		}
		for _, s := range bi.Settings {
			if s.Key == "vcs.revision" && rev == "none" {
				rev = s.Value
			}
		}
	}

	if short {
		fmt.Fprintln(w, v)
		return
	}
	rows := [][2]string{
		{"version", v},
		{"commit", rev},
		{"built", date},
		{"go", runtime.Version()},
		{"platform", runtime.GOOS + "/" + runtime.GOARCH},
	}
	for _, r := range rows {
		fmt.Fprintf(w, "%-9s %s\n", r[0]+":", r[1])
	}
}
