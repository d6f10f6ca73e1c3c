// Package deps loads the dependency configuration (namespace to registry
// routing) and the wit.toml dependency manifest, and maps manifest entries to
// registry references.
package deps
