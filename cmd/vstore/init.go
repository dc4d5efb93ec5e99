package main

import (
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/vango-dev/vstore/internal/config"
	"github.com/vango-dev/vstore/internal/errors"
)

func initCmd() *cobra.Command {
	var (
		name   string
		format string
		force  bool
	)

	cmd := &cobra.Command{
		Use:   "init [dir]",
		Short: "Write a default configuration file",
		Long: `Write vstore.json (or vstore.yaml with --format=yaml) with default settings.

Examples:
  vstore init
  vstore init ./demo --name=cart --format=yaml`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) == 1 {
				dir = args[0]
			}
			return runInit(dir, name, format, force)
		},
	}

	cmd.Flags().StringVarP(&name, "name", "n", "store", "Store name")
	cmd.Flags().StringVarP(&format, "format", "f", "json", "File format: json or yaml")
	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing configuration")

	return cmd
}

func runInit(dir, name, format string, force bool) error {
	file := config.ConfigFileName
	switch format {
	case "json":
	case "yaml", "yml":
		file = config.YAMLConfigFileName
	default:
		return errors.New("E031").
			WithDetailf("format %q is not supported", format).
			WithSuggestion("Use json or yaml")
	}

	if existing := config.Find(dir); existing != "" && !force {
		return errors.New("E030").
			WithDetail(existing + " already exists").
			WithSuggestion("Pass --force to overwrite it")
	}

	cfg := config.New()
	cfg.Name = name
	path := filepath.Join(dir, file)
	if err := cfg.SaveTo(path); err != nil {
		return err
	}

	success("Wrote %s", path)
	return nil
}
