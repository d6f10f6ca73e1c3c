package deps

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/BurntSushi/toml"
)

// DefaultManifestFileName is the default dependency manifest file name
const DefaultManifestFileName = "wit.toml"

// WitManifest maps package names (e.g. `wasi:http`) to the requested dependency.
//
// Packages are looked up in the registry under the kebab case form of the
// package name by default; an entry may override the name with PackageName.
type WitManifest map[string]ManifestEntry

// ManifestEntry is one dependency request: either a VersionEntry or a DependencyConfig
type ManifestEntry interface {
	// Dependency returns the structured form of the entry
	Dependency() DependencyConfig
	isManifestEntry()
}

// VersionEntry is a bare version with no overrides
type VersionEntry string

// Dependency returns a DependencyConfig with only Version set
func (v VersionEntry) Dependency() DependencyConfig {
	return DependencyConfig{Version: string(v)}
}

func (VersionEntry) isManifestEntry() {}

// DependencyConfig is a dependency request with per-entry overrides
type DependencyConfig struct {
	// Version of the dependency
	Version string `toml:"version"`
	// Registry overrides the namespace registry
	Registry string `toml:"registry,omitempty"`
	// Protocol overrides the namespace protocol ("https" or "http")
	Protocol string `toml:"protocol,omitempty"`
	// RegistrySubpath overrides the namespace subpath
	RegistrySubpath string `toml:"registrySubpath,omitempty"`
	// PackageName replaces the kebab case artifact name. It is appended to the
	// subpath: `my/subpath` + `my-wasi-http` gives `my/subpath/my-wasi-http`.
	PackageName string `toml:"packageName,omitempty"`
}

// Dependency returns the entry itself
func (d DependencyConfig) Dependency() DependencyConfig {
	return d
}

func (DependencyConfig) isManifestEntry() {}

// ParseManifest decodes a TOML manifest where each value is either a version
// string or a table
func ParseManifest(data []byte) (WitManifest, error) {
	var raw map[string]toml.Primitive
	md, err := toml.Decode(string(data), &raw)
	if err != nil {
		return nil, fmt.Errorf("failed to parse manifest: %w", err)
	}

	manifest := make(WitManifest, len(raw))
	var errs []error
	for _, key := range sortedKeys(raw) {
		entry, err := decodeEntry(md, raw[key])
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", key, err))
			continue
		}
		manifest[key] = entry
	}
	if err := errors.Join(errs...); err != nil {
		return nil, fmt.Errorf("invalid manifest: %w", err)
	}
	return manifest, nil
}

func decodeEntry(md toml.MetaData, prim toml.Primitive) (ManifestEntry, error) {
	var version string
	if err := md.PrimitiveDecode(prim, &version); err == nil {
		return VersionEntry(version), nil
	}

	var dc DependencyConfig
	if err := md.PrimitiveDecode(prim, &dc); err != nil {
		return nil, fmt.Errorf("expected a version string or a table: %w", err)
	}
	if dc.Version == "" {
		return nil, errors.New("version is required")
	}
	return dc, nil
}

// LoadManifest reads a manifest file
func LoadManifest(path string) (WitManifest, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}
	return ParseManifest(data)
}

// Packages returns the package names in sorted order
func (m WitManifest) Packages() []string {
	return sortedKeys(m)
}

// Encode returns the TOML form of the manifest. Bare versions stay bare.
func (m WitManifest) Encode() ([]byte, error) {
	out := make(map[string]any, len(m))
	for k, e := range m {
		switch v := e.(type) {
		case VersionEntry:
			out[k] = string(v)
		case DependencyConfig:
			out[k] = v
		default:
			return nil, fmt.Errorf("%s: unsupported manifest entry %T", k, e)
		}
	}

	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(out); err != nil {
		return nil, fmt.Errorf("failed to marshal manifest: %w", err)
	}
	return buf.Bytes(), nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
