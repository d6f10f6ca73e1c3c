package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/fastertools/wasm-pkg/pkg/oci"
)

type pushOptions struct {
	reference string
	file      string
	author    string
	registry  registryFlags
}

func newPushCmd() *cobra.Command {
	var opts pushOptions

	cmd := &cobra.Command{
		Use:   "push <reference> <file>",
		Short: "Push a wasm component to a registry",
		Long: `Push a wasm component to an OCI registry.

The file must be a WebAssembly component. It is uploaded as a single
application/wasm layer with a wasm config blob.

Examples:
  wasm-pkg push ghcr.io/my-org/hello:0.1.0 hello.wasm
  wasm-pkg push --insecure localhost:5000 localhost:5000/hello:0.1.0 hello.wasm -a "Jane Doe"`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.reference = args[0]
			opts.file = args[1]
			return runPush(cmd.Context(), opts)
		},
	}

	opts.registry.register(cmd)
	cmd.Flags().StringVarP(&opts.author, "author", "a", "", "author to record for the pushed component")

	return cmd
}

func runPush(ctx context.Context, opts pushOptions) error {
	username, password, err := opts.registry.credentials()
	if err != nil {
		return err
	}

	client := opts.registry.client()
	ref, err := client.ParseReference(opts.reference)
	if err != nil {
		return err
	}

	img, component, err := oci.LoadComponent(opts.file, oci.ImageOptions{
		Author:  opts.author,
		Created: time.Now(),
	})
	if err != nil {
		return err
	}
	Debug("Loaded component %s (%d bytes, %d sections)", opts.file, component.Size, component.Sections)

	registry := ref.Context().RegistryStr()
	authenticator := opts.registry.authenticator(registry, username, password)

	sp := newSpinner(fmt.Sprintf(" Pushing %s...", ref))
	sp.Start()
	digest, err := client.Push(ctx, ref, authenticator, img)
	sp.Stop()
	if err != nil {
		return err
	}

	Debug("Manifest digest %s", digest)
	Success("Pushed %s", ref)
	return nil
}
