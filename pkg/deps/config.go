package deps

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
	"github.com/google/go-containerregistry/pkg/authn"

	"github.com/fastertools/wasm-pkg/pkg/oci"
)

const (
	// DefaultConfigFileName is the default config file name
	DefaultConfigFileName = "config.toml"
	// DefaultRegistry is the registry dependencies are pulled from when nothing else is configured
	DefaultRegistry = "ghcr.io"
	// DefaultRegistrySubpath is the subpath used with DefaultRegistry
	DefaultRegistrySubpath = "WebAssembly"
	// WASIPackageNamespace is the WASI package namespace
	WASIPackageNamespace = "wasi"
)

// Config tells the dependency manager where to pull packages from, keyed by
// package namespace (the `wasi` in `wasi:http`). Each route names a registry,
// an optional subpath placed before the artifact name and optional credentials.
//
// Packages are expected in the registry under the kebab case form of the
// package name (`wasi-http` for `wasi:http`) and tagged with a semver version
// without a `v` prefix.
type Config struct {
	// DefaultNamespace is the package namespace used when none is given
	DefaultNamespace string `toml:"defaultNamespace"`
	// DefaultConfig is used for every namespace without its own entry
	DefaultConfig RegistryConfig `toml:"defaultConfig"`
	// Namespaces maps package namespaces to their registry
	Namespaces map[string]RegistryConfig `toml:"namespaces"`
}

// RegistryConfig describes how to reach one registry
type RegistryConfig struct {
	// Registry is the registry host, e.g. ghcr.io
	Registry string `toml:"registry"`
	// Protocol is "https" (default) or "http". Any other value means https.
	Protocol string `toml:"protocol,omitempty"`
	// RegistrySubpath is the path between the host and the artifact name
	// (`my/subpath` in ghcr.io/my/subpath/component:0.1.0), without leading or
	// trailing slashes. Empty means the root of the registry.
	RegistrySubpath string `toml:"registrySubpath,omitempty"`
	// Auth holds optional basic credentials; nil means anonymous
	Auth *Auth `toml:"auth,omitempty"`
}

// Auth is a username/password pair
type Auth struct {
	Username string `toml:"username"`
	Password string `toml:"password"`
}

// DefaultConfig returns the configuration used when no config file exists
func DefaultConfig() *Config {
	return &Config{
		DefaultNamespace: WASIPackageNamespace,
		DefaultConfig:    DefaultRegistryConfig(),
		Namespaces:       make(map[string]RegistryConfig),
	}
}

// DefaultRegistryConfig returns the ghcr.io/WebAssembly route
func DefaultRegistryConfig() RegistryConfig {
	return RegistryConfig{
		Registry:        DefaultRegistry,
		RegistrySubpath: DefaultRegistrySubpath,
	}
}

// Resolve returns the registry route for a namespace, falling back to the default
func (c *Config) Resolve(namespace string) RegistryConfig {
	if rc, ok := c.Namespaces[namespace]; ok {
		return rc
	}
	return c.DefaultConfig
}

// Validate checks that every route names a registry and that credentials carry a username
func (c *Config) Validate() error {
	var errs []error
	if err := c.DefaultConfig.validate(); err != nil {
		errs = append(errs, fmt.Errorf("defaultConfig: %w", err))
	}
	for _, ns := range sortedKeys(c.Namespaces) {
		if err := c.Namespaces[ns].validate(); err != nil {
			errs = append(errs, fmt.Errorf("namespaces.%s: %w", ns, err))
		}
	}
	return errors.Join(errs...)
}

// UnknownProtocols lists routes whose protocol is neither http nor https.
// Those routes silently use https.
func (c *Config) UnknownProtocols() []string {
	var out []string
	if !oci.IsKnownProtocol(c.DefaultConfig.Protocol) {
		out = append(out, fmt.Sprintf("defaultConfig: %q", c.DefaultConfig.Protocol))
	}
	for _, ns := range sortedKeys(c.Namespaces) {
		if p := c.Namespaces[ns].Protocol; !oci.IsKnownProtocol(p) {
			out = append(out, fmt.Sprintf("namespaces.%s: %q", ns, p))
		}
	}
	return out
}

func (r RegistryConfig) validate() error {
	if r.Registry == "" {
		return errors.New("registry is required")
	}
	if r.Auth != nil && r.Auth.Username == "" {
		return errors.New("auth.username is required")
	}
	return nil
}

// ProtocolValue parses Protocol, falling back to https on unknown values
func (r RegistryConfig) ProtocolValue() oci.Protocol {
	return oci.ParseProtocol(r.Protocol)
}

// Authenticator returns basic auth when credentials are configured, anonymous otherwise
func (r RegistryConfig) Authenticator() authn.Authenticator {
	if r.Auth == nil {
		return authn.Anonymous
	}
	return oci.BasicAuth(r.Auth.Username, r.Auth.Password)
}

// Client returns a registry client and authenticator for this route
func (r RegistryConfig) Client() (*oci.Client, authn.Authenticator) {
	client := oci.NewClient(oci.ClientConfig{
		Protocol: r.ProtocolValue(),
	})
	return client, r.Authenticator()
}

// ParseConfig decodes a TOML config. Missing top-level keys take their defaults.
func ParseConfig(data []byte) (*Config, error) {
	var cfg Config
	md, err := toml.Decode(string(data), &cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if !md.IsDefined("defaultNamespace") {
		cfg.DefaultNamespace = WASIPackageNamespace
	}
	if !md.IsDefined("defaultConfig") {
		cfg.DefaultConfig = DefaultRegistryConfig()
	}
	if cfg.Namespaces == nil {
		cfg.Namespaces = make(map[string]RegistryConfig)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

// DefaultConfigPath returns $XDG_CONFIG_HOME/wasm-pkg/config.toml, falling
// back to the platform config directory
func DefaultConfigPath() (string, error) {
	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		var err error
		configDir, err = os.UserConfigDir()
		if err != nil {
			return "", fmt.Errorf("failed to get config directory: %w", err)
		}
	}
	return filepath.Join(configDir, "wasm-pkg", DefaultConfigFileName), nil
}

// LoadConfig reads a config file. A missing file yields DefaultConfig.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultConfig(), nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	return ParseConfig(data)
}

// Encode returns the TOML form of the config
func (c *Config) Encode() ([]byte, error) {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(c); err != nil {
		return nil, fmt.Errorf("failed to marshal config: %w", err)
	}
	return buf.Bytes(), nil
}

// Save writes the config to path, creating parent directories
func (c *Config) Save(path string) error {
	data, err := c.Encode()
	if err != nil {
		return err
	}

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return fmt.Errorf("failed to create config directory: %w", err)
		}
	}

	// credentials may be stored in the file
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}
