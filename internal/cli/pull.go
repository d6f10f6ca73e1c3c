package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/go-containerregistry/pkg/name"
	"github.com/spf13/cobra"
)

type pullOptions struct {
	reference string
	output    string
	registry  registryFlags
}

func newPullCmd() *cobra.Command {
	var opts pullOptions

	cmd := &cobra.Command{
		Use:   "pull <reference>",
		Short: "Pull a wasm component from a registry",
		Long: `Pull a wasm component from an OCI registry and write it to disk.

The first layer of the artifact is written to --output. By default the file
is named after the repository with slashes replaced by underscores.

Examples:
  wasm-pkg pull ghcr.io/my-org/hello:0.1.0            # writes my-org_hello.wasm
  wasm-pkg pull ghcr.io/my-org/hello:0.1.0 -o hello.wasm`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.reference = args[0]
			return runPull(cmd.Context(), opts)
		},
	}

	opts.registry.register(cmd)
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "path to write the component to")

	return cmd
}

func runPull(ctx context.Context, opts pullOptions) error {
	username, password, err := opts.registry.credentials()
	if err != nil {
		return err
	}

	client := opts.registry.client()
	ref, err := client.ParseReference(opts.reference)
	if err != nil {
		return err
	}

	registry := ref.Context().RegistryStr()
	authenticator := opts.registry.authenticator(registry, username, password)

	sp := newSpinner(fmt.Sprintf(" Pulling %s...", ref))
	sp.Start()
	artifact, err := client.Pull(ctx, ref, authenticator)
	sp.Stop()
	if err != nil {
		return err
	}
	Debug("Pulled manifest %s with %d layer(s)", artifact.Digest, len(artifact.Layers))

	data, err := artifact.FirstLayer()
	if err != nil {
		return err
	}

	output := opts.output
	if output == "" {
		output = defaultOutputPath(ref)
	}
	output = filepath.Clean(output)

	if err := os.WriteFile(output, data, 0600); err != nil {
		return fmt.Errorf("failed to write %s: %w", output, err)
	}

	Success("Successfully wrote %s to %s", ref, output)
	return nil
}

// defaultOutputPath names the file after the repository, e.g. my-org/hello -> my-org_hello.wasm
func defaultOutputPath(ref name.Reference) string {
	return strings.ReplaceAll(ref.Context().RepositoryStr(), "/", "_") + ".wasm"
}
