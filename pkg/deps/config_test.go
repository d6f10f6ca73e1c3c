package deps

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-containerregistry/pkg/authn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fastertools/wasm-pkg/pkg/oci"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, "wasi", cfg.DefaultNamespace)
	assert.Equal(t, "ghcr.io", cfg.DefaultConfig.Registry)
	assert.Equal(t, "WebAssembly", cfg.DefaultConfig.RegistrySubpath)
	assert.Empty(t, cfg.DefaultConfig.Protocol)
	assert.Nil(t, cfg.DefaultConfig.Auth)
	assert.NotNil(t, cfg.Namespaces)
	assert.Empty(t, cfg.Namespaces)
}

func TestConfig_Resolve(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Namespaces["acme"] = RegistryConfig{Registry: "registry.acme.dev", RegistrySubpath: "wit"}

	assert.Equal(t, "registry.acme.dev", cfg.Resolve("acme").Registry)

	for _, ns := range []string{"wasi", "unknown", "", "ACME"} {
		assert.Equal(t, cfg.DefaultConfig, cfg.Resolve(ns), "namespace %q should fall back to the default", ns)
	}
}

func TestRegistryConfig_Protocol(t *testing.T) {
	tests := []struct {
		protocol string
		want     oci.Protocol
	}{
		{protocol: "http", want: oci.ProtocolHTTP},
		{protocol: "https", want: oci.ProtocolHTTPS},
		{protocol: "", want: oci.ProtocolHTTPS},
		{protocol: "htps", want: oci.ProtocolHTTPS},
		{protocol: "grpc", want: oci.ProtocolHTTPS},
	}

	for _, tt := range tests {
		t.Run(tt.protocol, func(t *testing.T) {
			rc := RegistryConfig{Registry: "example.com", Protocol: tt.protocol}
			assert.Equal(t, tt.want, rc.ProtocolValue())

			client, _ := rc.Client()
			assert.Equal(t, tt.want, client.Protocol())
		})
	}
}

func TestRegistryConfig_Authenticator(t *testing.T) {
	anon := RegistryConfig{Registry: "example.com"}
	assert.Equal(t, authn.Anonymous, anon.Authenticator())

	withAuth := RegistryConfig{Registry: "example.com", Auth: &Auth{Username: "alice", Password: "secret"}}
	cfg, err := withAuth.Authenticator().Authorization()
	require.NoError(t, err)
	assert.Equal(t, "alice", cfg.Username)
	assert.Equal(t, "secret", cfg.Password)
}

func TestParseConfig(t *testing.T) {
	data := `
defaultNamespace = "acme"

[defaultConfig]
registry = "registry.example.com"

[namespaces.wasi]
registry = "ghcr.io"
registrySubpath = "WebAssembly"

[namespaces.local]
registry = "localhost:5000"
protocol = "http"

[namespaces.local.auth]
username = "admin"
password = "hunter2"
`
	cfg, err := ParseConfig([]byte(data))
	require.NoError(t, err)

	assert.Equal(t, "acme", cfg.DefaultNamespace)
	assert.Equal(t, RegistryConfig{Registry: "registry.example.com"}, cfg.DefaultConfig)
	assert.Len(t, cfg.Namespaces, 2)
	assert.Equal(t, "WebAssembly", cfg.Namespaces["wasi"].RegistrySubpath)

	local := cfg.Resolve("local")
	assert.Equal(t, oci.ProtocolHTTP, local.ProtocolValue())
	require.NotNil(t, local.Auth)
	assert.Equal(t, "admin", local.Auth.Username)
	assert.Equal(t, "hunter2", local.Auth.Password)
}

func TestParseConfig_Defaults(t *testing.T) {
	cfg, err := ParseConfig([]byte(""))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)

	cfg, err = ParseConfig([]byte("[namespaces.acme]\nregistry = \"acme.dev\"\n"))
	require.NoError(t, err)
	assert.Equal(t, "wasi", cfg.DefaultNamespace)
	assert.Equal(t, DefaultRegistryConfig(), cfg.DefaultConfig)
}

func TestParseConfig_Errors(t *testing.T) {
	tests := []struct {
		name    string
		data    string
		wantErr string
	}{
		{
			name:    "malformed toml",
			data:    "defaultNamespace = ",
			wantErr: "failed to parse config",
		},
		{
			name:    "namespace without registry",
			data:    "[namespaces.acme]\nregistrySubpath = \"x\"\n",
			wantErr: "namespaces.acme: registry is required",
		},
		{
			name:    "default without registry",
			data:    "[defaultConfig]\nprotocol = \"http\"\n",
			wantErr: "defaultConfig: registry is required",
		},
		{
			name:    "auth without username",
			data:    "[namespaces.acme]\nregistry = \"acme.dev\"\n[namespaces.acme.auth]\npassword = \"x\"\n",
			wantErr: "auth.username is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseConfig([]byte(tt.data))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestConfig_UnknownProtocols(t *testing.T) {
	cfg := DefaultConfig()
	assert.Empty(t, cfg.UnknownProtocols())

	cfg.DefaultConfig.Protocol = "htps"
	cfg.Namespaces["b"] = RegistryConfig{Registry: "b.dev", Protocol: "HTTP"}
	cfg.Namespaces["a"] = RegistryConfig{Registry: "a.dev", Protocol: "http"}

	assert.Equal(t, []string{`defaultConfig: "htps"`, `namespaces.b: "HTTP"`}, cfg.UnknownProtocols())
}

func TestConfig_SaveLoadRoundTrip(t *testing.T) {
	populated := DefaultConfig()
	populated.DefaultNamespace = "acme"
	populated.DefaultConfig = RegistryConfig{Registry: "registry.example.com", Protocol: "https"}
	populated.Namespaces["local"] = RegistryConfig{
		Registry:        "localhost:5000",
		Protocol:        "http",
		RegistrySubpath: "my/sub",
		Auth:            &Auth{Username: "admin", Password: "hunter2"},
	}
	populated.Namespaces["wasi"] = DefaultRegistryConfig()

	tests := []struct {
		name string
		cfg  *Config
	}{
		{name: "default", cfg: DefaultConfig()},
		{name: "populated", cfg: populated},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "nested", DefaultConfigFileName)
			require.NoError(t, tt.cfg.Save(path))

			info, err := os.Stat(path)
			require.NoError(t, err)
			assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

			loaded, err := LoadConfig(path)
			require.NoError(t, err)
			assert.Equal(t, tt.cfg, loaded)
		})
	}
}

func TestLoadConfig_Missing(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.toml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestConfig_EncodeUsesCamelCase(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Namespaces["acme"] = RegistryConfig{Registry: "acme.dev", Auth: &Auth{Username: "u", Password: "p"}}

	data, err := cfg.Encode()
	require.NoError(t, err)
	s := string(data)
	assert.Contains(t, s, "defaultNamespace")
	assert.Contains(t, s, "[defaultConfig]")
	assert.Contains(t, s, "registrySubpath")
	assert.Contains(t, s, "[namespaces.acme.auth]")
	assert.NotContains(t, s, "protocol")
}

func TestDefaultConfigPath(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)

	path, err := DefaultConfigPath()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "wasm-pkg", "config.toml"), path)
}
