// Package oci provides functionality for working with OCI (Open Container Initiative)
// registries and WASM (WebAssembly) components according to the CNCF TAG Runtime
// WASM OCI Artifact specification.
//
// This package implements:
//   - Validation of wasm component binaries before they are pushed
//   - WASM OCI image creation with the layerDigests config field used by wkg and Spin
//   - Registry push/pull operations with per-host plaintext (insecure) policy
//
// The registry protocol itself is handled by go-containerregistry.
//
// Example usage:
//
//	client := oci.NewClient(oci.ClientConfig{InsecureHosts: []string{"localhost:5000"}})
//	ref, err := client.ParseReference("localhost:5000/my/component:0.1.0")
//	img, _, err := oci.LoadComponent("component.wasm", oci.ImageOptions{Author: "me"})
//	digest, err := client.Push(ctx, ref, oci.BasicAuth("user", "pass"), img)
//
//	artifact, err := client.Pull(ctx, ref, authn.Anonymous)
//	data, err := artifact.FirstLayer()
package oci
