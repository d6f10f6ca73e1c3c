package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/fastertools/wasm-pkg/pkg/deps"
)

func newDepsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "deps",
		Short: "Manage dependencies for a project",
		Long:  `Manage the WIT package dependencies declared in a wit.toml manifest.`,
	}

	cmd.AddCommand(
		newDepsUpdateCmd(),
		newDepsListCmd(),
	)

	return cmd
}

func newDepsUpdateCmd() *cobra.Command {
	var opts deps.UpdateOptions

	cmd := &cobra.Command{
		Use:   "update",
		Short: "Update the dependencies of a project",
		Long: `Update the dependencies of a project.

Dependency updates are not implemented yet: the command accepts its flags
and exits successfully without reading or writing anything.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDepsUpdate(cmd.Context(), opts)
		},
	}

	cmd.Flags().StringVarP(&opts.ConfigPath, "config", "c", "", "config file to use for pulling dependencies")
	cmd.Flags().StringVarP(&opts.CacheDir, "cache-dir", "d", "", "cache directory for dependencies")

	return cmd
}

func runDepsUpdate(ctx context.Context, opts deps.UpdateOptions) error {
	Debug("deps update (config %q, cache dir %q)", opts.ConfigPath, opts.CacheDir)
	return deps.NewDefaultClient().Update(ctx, opts)
}

func newDepsListCmd() *cobra.Command {
	var configPath, manifestPath, format string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the dependencies of a project and where they resolve",
		Long: `List every dependency of a wit.toml manifest with the registry
reference it resolves to. Nothing is downloaded.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDepsList(configPath, manifestPath, format)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "config file (default is $XDG_CONFIG_HOME/wasm-pkg/config.toml)")
	cmd.Flags().StringVarP(&manifestPath, "manifest", "m", deps.DefaultManifestFileName, "dependency manifest")
	cmd.Flags().StringVarP(&format, "output", "o", "table", "output format (table, json, yaml)")

	return cmd
}

func runDepsList(configPath, manifestPath, format string) error {
	of, err := ParseOutputFormat(format)
	if err != nil {
		return err
	}

	cfg, err := loadRoutingConfig(configPath)
	if err != nil {
		return err
	}

	manifest, err := deps.LoadManifest(manifestPath)
	if err != nil {
		return err
	}

	plan, err := deps.NewClient(cfg).Plan(manifest)
	if err != nil {
		return err
	}

	if len(plan) == 0 && of == OutputFormatTable {
		Info("No dependencies in %s", manifestPath)
		return nil
	}

	tb := NewTableBuilder("PACKAGE", "VERSION", "REFERENCE")
	for _, dep := range plan {
		tb.AddRow(dep.Package.String(), dep.Version, dep.Reference())
	}
	return tb.Write(NewDataWriter(colorOutput, of))
}
