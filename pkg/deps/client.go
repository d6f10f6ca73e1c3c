package deps

import (
	"context"
	"errors"

	"github.com/google/go-containerregistry/pkg/authn"

	"github.com/fastertools/wasm-pkg/pkg/oci"
)

// Client pulls dependencies listed in a manifest
type Client struct {
	config        *Config
	defaultClient *oci.Client
	defaultAuth   authn.Authenticator
}

// NewClient creates a client from config. The connection for the default
// route is built up front.
func NewClient(config *Config) *Client {
	if config == nil {
		config = DefaultConfig()
	}
	defaultClient, defaultAuth := config.DefaultConfig.Client()
	return &Client{
		config:        config,
		defaultClient: defaultClient,
		defaultAuth:   defaultAuth,
	}
}

// NewDefaultClient creates a client using DefaultConfig
func NewDefaultClient() *Client {
	return NewClient(DefaultConfig())
}

// Config returns the routing configuration of the client
func (c *Client) Config() *Config {
	return c.config
}

// ClientFor returns the registry connection for a package namespace
func (c *Client) ClientFor(namespace string) (*oci.Client, authn.Authenticator) {
	rc, ok := c.config.Namespaces[namespace]
	if !ok {
		return c.defaultClient, c.defaultAuth
	}
	return rc.Client()
}

// Plan resolves every manifest entry to its registry reference, sorted by
// package name. It does not touch the network.
func (c *Client) Plan(manifest WitManifest) ([]Dependency, error) {
	out := make([]Dependency, 0, len(manifest))
	var errs []error
	for _, pkg := range manifest.Packages() {
		dep, err := c.config.ResolveDependency(pkg, manifest[pkg])
		if err != nil {
			errs = append(errs, err)
			continue
		}
		out = append(out, dep)
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return out, nil
}

// UpdateOptions are the inputs of an update run
type UpdateOptions struct {
	// ConfigPath is the registry config file; empty means the default location
	ConfigPath string
	// CacheDir receives pulled dependencies
	CacheDir string
}

// Update is accepted but does no work: it neither reads the manifest nor
// touches the network or the cache directory.
//
// TODO: pull each Plan entry through ClientFor(namespace) into CacheDir and write wit.lock.
func (c *Client) Update(ctx context.Context, opts UpdateOptions) error {
	return nil
}
