package cli

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/AlecAivazis/survey/v2"
	"github.com/spf13/cobra"

	"github.com/fastertools/wasm-pkg/internal/auth"
)

// Allow overriding for tests
var (
	askOne                  = survey.AskOne
	stdin         io.Reader = os.Stdin
	isInteractive           = stdinIsTerminal
)

type loginOptions struct {
	registry      string
	username      string
	password      string
	passwordStdin bool
}

func newLoginCmd() *cobra.Command {
	var opts loginOptions

	cmd := &cobra.Command{
		Use:   "login <registry>",
		Short: "Store credentials for a registry",
		Long: `Store a username and password for a registry in the OS keyring.

Stored credentials are used by push and pull when no credentials are given
on the command line or in the environment.

Examples:
  wasm-pkg login ghcr.io -u my-user
  echo "$TOKEN" | wasm-pkg login ghcr.io -u my-user --password-stdin`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.registry = args[0]
			return runLogin(opts)
		},
	}

	cmd.Flags().StringVarP(&opts.username, "username", "u", "", "registry username")
	cmd.Flags().StringVarP(&opts.password, "password", "p", "", "registry password")
	cmd.Flags().BoolVar(&opts.passwordStdin, "password-stdin", false, "read the password from stdin")

	return cmd
}

func runLogin(opts loginOptions) error {
	if opts.passwordStdin {
		if opts.password != "" {
			return fmt.Errorf("--password and --password-stdin are mutually exclusive")
		}
		data, err := io.ReadAll(stdin)
		if err != nil {
			return fmt.Errorf("failed to read password from stdin: %w", err)
		}
		opts.password = strings.TrimRight(string(data), "\r\n")
	}

	if opts.username == "" {
		if !isInteractive() {
			return fmt.Errorf("username is required in non-interactive mode (use --username)")
		}
		if err := askOne(&survey.Input{Message: "Username:"}, &opts.username, survey.WithValidator(survey.Required)); err != nil {
			return fmt.Errorf("failed to read username: %w", err)
		}
	}

	if opts.password == "" {
		if !isInteractive() || opts.passwordStdin {
			return fmt.Errorf("password is required in non-interactive mode (use --password or --password-stdin)")
		}
		if err := askOne(&survey.Password{Message: "Password:"}, &opts.password, survey.WithValidator(survey.Required)); err != nil {
			return fmt.Errorf("failed to read password: %w", err)
		}
	}

	creds := &auth.Credentials{Username: opts.username, Password: opts.password}
	if err := newCredentialStore().Save(opts.registry, creds); err != nil {
		return err
	}

	Success("Logged in to %s as %s", opts.registry, opts.username)
	return nil
}

func newLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout <registry>",
		Short: "Remove stored credentials for a registry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLogout(args[0])
		},
	}
}

func runLogout(registry string) error {
	store := newCredentialStore()
	if !store.Exists(registry) {
		Info("Not logged in to %s", registry)
		return nil
	}

	if err := store.Delete(registry); err != nil {
		return err
	}

	Success("Logged out of %s", registry)
	return nil
}

// stdinIsTerminal checks if we're running in an interactive terminal
func stdinIsTerminal() bool {
	fileInfo, err := os.Stdin.Stat()
	if err != nil {
		return false
	}
	// Check if stdin is a terminal (not a pipe or file)
	return fileInfo.Mode()&os.ModeCharDevice != 0
}
