package deps

import (
	"errors"
	"fmt"
	"strings"

	"github.com/Masterminds/semver/v3"
)

var (
	// ErrInvalidPackageName is returned for manifest keys not of the form namespace:name
	ErrInvalidPackageName = errors.New("invalid package name")
	// ErrInvalidVersion is returned for versions that are not strict semver
	ErrInvalidVersion = errors.New("invalid version")
)

// PackageName is a WIT package identifier such as wasi:http
type PackageName struct {
	Namespace string
	Name      string
}

// ParsePackageName splits a namespace:name identifier
func ParsePackageName(s string) (PackageName, error) {
	ns, name, ok := strings.Cut(s, ":")
	if !ok || ns == "" || name == "" {
		return PackageName{}, fmt.Errorf("%w %q: expected namespace:name", ErrInvalidPackageName, s)
	}
	return PackageName{Namespace: ns, Name: name}, nil
}

// String returns namespace:name
func (p PackageName) String() string {
	return p.Namespace + ":" + p.Name
}

// ArtifactName is the registry artifact name for the package (wasi:http -> wasi-http)
func (p PackageName) ArtifactName() string {
	return KebabCase(p.String())
}

// KebabCase lowercases s and replaces colons and underscores with dashes
func KebabCase(s string) string {
	return strings.NewReplacer(":", "-", "_", "-").Replace(strings.ToLower(s))
}

// ValidateVersion checks that v is a full semantic version without a v prefix
func ValidateVersion(v string) error {
	if _, err := semver.StrictNewVersion(v); err != nil {
		return fmt.Errorf("%w %q: %v", ErrInvalidVersion, v, err)
	}
	return nil
}

// Dependency is a manifest entry with its effective registry settings
type Dependency struct {
	Package      PackageName
	Version      string
	Registry     RegistryConfig
	ArtifactName string
}

// Repository returns [subpath/]artifact-name
func (d Dependency) Repository() string {
	if d.Registry.RegistrySubpath == "" {
		return d.ArtifactName
	}
	return d.Registry.RegistrySubpath + "/" + d.ArtifactName
}

// Reference returns registry/[subpath/]artifact-name:version
func (d Dependency) Reference() string {
	return fmt.Sprintf("%s/%s:%s", d.Registry.Registry, d.Repository(), d.Version)
}

// ResolveDependency applies the entry's overrides on top of the route for
// the package namespace. Credentials of the namespace route are dropped when
// the entry points at a different registry.
func (c *Config) ResolveDependency(pkg string, entry ManifestEntry) (Dependency, error) {
	name, err := ParsePackageName(pkg)
	if err != nil {
		return Dependency{}, err
	}
	if entry == nil {
		return Dependency{}, fmt.Errorf("%s: missing manifest entry", pkg)
	}

	dc := entry.Dependency()
	if err := ValidateVersion(dc.Version); err != nil {
		return Dependency{}, fmt.Errorf("%s: %w", pkg, err)
	}

	effective := c.Resolve(name.Namespace)
	if dc.Registry != "" && dc.Registry != effective.Registry {
		effective.Registry = dc.Registry
		effective.Auth = nil
	}
	if dc.Protocol != "" {
		effective.Protocol = dc.Protocol
	}
	if dc.RegistrySubpath != "" {
		effective.RegistrySubpath = dc.RegistrySubpath
	}
	effective.RegistrySubpath = strings.Trim(effective.RegistrySubpath, "/")

	artifact := name.ArtifactName()
	if dc.PackageName != "" {
		artifact = strings.Trim(dc.PackageName, "/")
	}

	return Dependency{
		Package:      name,
		Version:      dc.Version,
		Registry:     effective,
		ArtifactName: artifact,
	}, nil
}
