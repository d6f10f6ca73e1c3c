package oci

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/google/go-containerregistry/pkg/authn"
	"github.com/google/go-containerregistry/pkg/name"
	v1 "github.com/google/go-containerregistry/pkg/v1"
	"github.com/google/go-containerregistry/pkg/v1/remote"
	"github.com/google/go-containerregistry/pkg/v1/types"
)

// ErrNoLayers is returned when a pulled artifact carries no layers
var ErrNoLayers = errors.New("no layers found")

// ClientConfig configures how a Client reaches registries
type ClientConfig struct {
	// Protocol applies to every registry. ProtocolHTTP makes all hosts plaintext.
	Protocol Protocol
	// InsecureHosts are registries reached over plain HTTP even when Protocol is HTTPS
	InsecureHosts []string
	// Transport overrides remote.DefaultTransport
	Transport http.RoundTripper
	// UserAgent is appended to the go-containerregistry user agent
	UserAgent string
}

// Client pushes and pulls wasm artifacts
type Client struct {
	protocol  Protocol
	insecure  map[string]struct{}
	transport http.RoundTripper
	userAgent string
}

// NewClient creates a registry client
func NewClient(cfg ClientConfig) *Client {
	insecure := make(map[string]struct{}, len(cfg.InsecureHosts))
	for _, h := range cfg.InsecureHosts {
		if h = normalizeHost(h); h != "" {
			insecure[h] = struct{}{}
		}
	}
	return &Client{
		protocol:  cfg.Protocol,
		insecure:  insecure,
		transport: cfg.Transport,
		userAgent: cfg.UserAgent,
	}
}

// Protocol returns the default protocol of the client
func (c *Client) Protocol() Protocol {
	return c.protocol
}

// IsInsecure reports whether the registry is reached over plain HTTP
func (c *Client) IsInsecure(registry string) bool {
	if c.protocol == ProtocolHTTP {
		return true
	}
	_, ok := c.insecure[normalizeHost(registry)]
	return ok
}

// ParseReference parses an OCI reference and applies the client's
// plaintext policy to its registry
func (c *Client) ParseReference(s string) (name.Reference, error) {
	ref, err := name.ParseReference(s)
	if err != nil {
		return nil, fmt.Errorf("invalid reference %s: %w", s, err)
	}
	if !c.IsInsecure(ref.Context().RegistryStr()) {
		return ref, nil
	}
	ref, err = name.ParseReference(s, name.Insecure)
	if err != nil {
		return nil, fmt.Errorf("invalid reference %s: %w", s, err)
	}
	return ref, nil
}

func (c *Client) remoteOptions(ctx context.Context, auth authn.Authenticator) []remote.Option {
	if auth == nil {
		auth = authn.Anonymous
	}
	opts := []remote.Option{
		remote.WithContext(ctx),
		remote.WithAuth(auth),
	}
	if c.transport != nil {
		opts = append(opts, remote.WithTransport(c.transport))
	}
	if c.userAgent != "" {
		opts = append(opts, remote.WithUserAgent(c.userAgent))
	}
	return opts
}

// Push uploads img to ref and returns the manifest digest
func (c *Client) Push(ctx context.Context, ref name.Reference, auth authn.Authenticator, img v1.Image) (v1.Hash, error) {
	if err := remote.Write(ref, img, c.remoteOptions(ctx, auth)...); err != nil {
		return v1.Hash{}, fmt.Errorf("unable to push image: %w", err)
	}

	digest, err := img.Digest()
	if err != nil {
		return v1.Hash{}, fmt.Errorf("failed to compute manifest digest: %w", err)
	}
	return digest, nil
}

// Layer is the downloaded content of one artifact layer
type Layer struct {
	MediaType types.MediaType
	Digest    v1.Hash
	Data      []byte
}

// Artifact is a pulled artifact with all layer contents in memory
type Artifact struct {
	Reference name.Reference
	Digest    v1.Hash
	Manifest  *v1.Manifest
	Config    []byte
	Layers    []Layer
}

// FirstLayer returns the bytes of the first layer, which carries the component
func (a *Artifact) FirstLayer() ([]byte, error) {
	if len(a.Layers) == 0 {
		return nil, ErrNoLayers
	}
	return a.Layers[0].Data, nil
}

// Pull downloads the manifest, config and every layer of ref
func (c *Client) Pull(ctx context.Context, ref name.Reference, auth authn.Authenticator) (*Artifact, error) {
	img, err := remote.Image(ref, c.remoteOptions(ctx, auth)...)
	if err != nil {
		return nil, fmt.Errorf("unable to pull image: %w", err)
	}

	manifest, err := img.Manifest()
	if err != nil {
		return nil, fmt.Errorf("failed to get manifest: %w", err)
	}

	digest, err := img.Digest()
	if err != nil {
		return nil, fmt.Errorf("failed to get manifest digest: %w", err)
	}

	config, err := img.RawConfigFile()
	if err != nil {
		return nil, fmt.Errorf("failed to get config: %w", err)
	}

	layers, err := img.Layers()
	if err != nil {
		return nil, fmt.Errorf("failed to get layers: %w", err)
	}

	artifact := &Artifact{
		Reference: ref,
		Digest:    digest,
		Manifest:  manifest,
		Config:    config,
		Layers:    make([]Layer, 0, len(layers)),
	}
	for i, l := range layers {
		data, err := readLayer(l)
		if err != nil {
			return nil, fmt.Errorf("failed to read layer %d: %w", i, err)
		}
		mt, err := l.MediaType()
		if err != nil {
			return nil, fmt.Errorf("failed to get layer %d media type: %w", i, err)
		}
		d, err := l.Digest()
		if err != nil {
			return nil, fmt.Errorf("failed to get layer %d digest: %w", i, err)
		}
		artifact.Layers = append(artifact.Layers, Layer{MediaType: mt, Digest: d, Data: data})
	}

	return artifact, nil
}

// readLayer returns the stored blob; wasm layers are not compressed
func readLayer(l v1.Layer) ([]byte, error) {
	rc, err := l.Compressed()
	if err != nil {
		return nil, err
	}
	defer func() { _ = rc.Close() }()
	return io.ReadAll(rc)
}

// BasicAuth returns an authenticator for a username/password pair
func BasicAuth(username, password string) authn.Authenticator {
	return &authn.Basic{
		Username: username,
		Password: password,
	}
}
