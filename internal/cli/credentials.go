package cli

import (
	"errors"
	"strings"

	"github.com/google/go-containerregistry/pkg/authn"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/fastertools/wasm-pkg/internal/auth"
	"github.com/fastertools/wasm-pkg/pkg/oci"
)

// errPartialCredentials is returned when only one of username and password is set
var errPartialCredentials = errors.New("must provide both a username and password")

// Allow overriding for tests
var newCredentialStore = func() auth.CredentialStore {
	return auth.NewKeyringStore()
}

// registryFlags are the credential and transport flags shared by push and pull
type registryFlags struct {
	username string
	password string
	insecure []string
}

func (f *registryFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.username, "username", "u", "", "username for the registry (env "+EnvPrefix+"_USERNAME)")
	cmd.Flags().StringVarP(&f.password, "password", "p", "", "password for the registry, required with --username (env "+EnvPrefix+"_PASSWORD)")
	cmd.Flags().StringSliceVar(&f.insecure, "insecure", nil, "comma separated registries to reach over http instead of https (env "+EnvPrefix+"_INSECURE)")
}

// credentials merges flags with the environment. Both values or neither must be set.
func (f *registryFlags) credentials() (string, string, error) {
	username := f.username
	if username == "" {
		username = viper.GetString("username")
	}
	password := f.password
	if password == "" {
		password = viper.GetString("password")
	}
	if (username == "") != (password == "") {
		return "", "", errPartialCredentials
	}
	return username, password, nil
}

// insecureHosts returns the --insecure hosts, or the comma separated env value when the flag is unset
func (f *registryFlags) insecureHosts() []string {
	hosts := f.insecure
	if len(hosts) == 0 {
		hosts = strings.Split(viper.GetString("insecure"), ",")
	}

	out := make([]string, 0, len(hosts))
	for _, h := range hosts {
		if h = strings.TrimSpace(h); h != "" {
			out = append(out, h)
		}
	}
	return out
}

func (f *registryFlags) client() *oci.Client {
	return oci.NewClient(oci.ClientConfig{
		InsecureHosts: f.insecureHosts(),
		UserAgent:     "wasm-pkg/" + version,
	})
}

// authenticator picks explicit credentials, then a stored login for the
// registry, then anonymous access
func (f *registryFlags) authenticator(registry, username, password string) authn.Authenticator {
	if username != "" {
		Debug("Using provided credentials for %s", registry)
		return oci.BasicAuth(username, password)
	}

	creds, err := newCredentialStore().Load(registry)
	if err != nil {
		if !errors.Is(err, auth.ErrNotFound) {
			Debug("Credential store unavailable: %v", err)
		}
		Debug("Using anonymous access for %s", registry)
		return authn.Anonymous
	}

	Debug("Using stored credentials for %s", registry)
	return oci.BasicAuth(creds.Username, creds.Password)
}
