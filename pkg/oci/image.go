package oci

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	v1 "github.com/google/go-containerregistry/pkg/v1"
	"github.com/google/go-containerregistry/pkg/v1/static"
	"github.com/google/go-containerregistry/pkg/v1/types"
)

// WASMConfig represents the config blob of a WASM OCI artifact.
// This matches the structure expected by oci-wasm, wkg and Spin.
type WASMConfig struct {
	Created      string   `json:"created"`
	Author       string   `json:"author,omitempty"`
	Architecture string   `json:"architecture"`
	OS           string   `json:"os"`
	LayerDigests []string `json:"layerDigests"` // must stay camelCase, Spin reads this key
	RootFS       struct {
		Type    string   `json:"type"`
		DiffIDs []string `json:"diff_ids"`
	} `json:"rootfs"`
	Config struct{} `json:"config"`
}

// ImageOptions controls the metadata recorded for a pushed component
type ImageOptions struct {
	// Author is recorded in the config blob and the authors annotation
	Author string
	// Created overrides the creation time; zero means now
	Created time.Time
}

// LoadComponent reads a component file, validates it and assembles the
// config/layer image that gets pushed to a registry.
func LoadComponent(path string, opts ImageOptions) (v1.Image, *Component, error) {
	content, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read component file: %w", err)
	}

	comp, err := ParseComponent(content)
	if err != nil {
		return nil, nil, fmt.Errorf("unable to parse component %s: %w", path, err)
	}

	img, err := NewComponentImage(content, opts)
	if err != nil {
		return nil, nil, err
	}
	return img, comp, nil
}

// NewComponentImage wraps raw component bytes into a single-layer WASM OCI image
func NewComponentImage(content []byte, opts ImageOptions) (v1.Image, error) {
	created := opts.Created
	if created.IsZero() {
		created = time.Now()
	}
	createdStr := created.UTC().Format(time.RFC3339)

	sum := sha256.Sum256(content)
	hashStr := hex.EncodeToString(sum[:])
	digest := "sha256:" + hashStr

	cfg := WASMConfig{
		Created:      createdStr,
		Author:       opts.Author,
		Architecture: WASMArchitecture,
		OS:           WASMOS,
		LayerDigests: []string{digest},
	}
	cfg.RootFS.Type = "layers"
	cfg.RootFS.DiffIDs = []string{digest}

	configJSON, err := json.Marshal(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal config: %w", err)
	}

	annotations := map[string]string{
		AnnotationCreated: createdStr,
	}
	if opts.Author != "" {
		annotations[AnnotationAuthors] = opts.Author
	}

	return &wasmOCIImage{
		wasmLayer:   static.NewLayer(content, WASMLayerMediaType),
		config:      configJSON,
		hashStr:     hashStr,
		annotations: annotations,
	}, nil
}

// wasmOCIImage implements v1.Image with the wasm config blob in place of a
// container config file
type wasmOCIImage struct {
	wasmLayer   v1.Layer
	config      []byte
	hashStr     string
	annotations map[string]string
}

var _ v1.Image = (*wasmOCIImage)(nil)

// Layers returns the single wasm layer
func (w *wasmOCIImage) Layers() ([]v1.Layer, error) {
	return []v1.Layer{w.wasmLayer}, nil
}

// MediaType returns the manifest media type
func (w *wasmOCIImage) MediaType() (types.MediaType, error) {
	return WASMManifestMediaType, nil
}

// Size returns the size of the layer plus the config blob
func (w *wasmOCIImage) Size() (int64, error) {
	size, err := w.wasmLayer.Size()
	if err != nil {
		return 0, err
	}
	return size + int64(len(w.config)), nil
}

// ConfigName returns the digest of the config blob
func (w *wasmOCIImage) ConfigName() (v1.Hash, error) {
	h := sha256.Sum256(w.config)
	return v1.Hash{
		Algorithm: "sha256",
		Hex:       hex.EncodeToString(h[:]),
	}, nil
}

// ConfigFile returns a container-shaped view of the config.
// The real blob is served by RawConfigFile.
func (w *wasmOCIImage) ConfigFile() (*v1.ConfigFile, error) {
	return &v1.ConfigFile{
		Architecture: WASMArchitecture,
		OS:           WASMOS,
		Config:       v1.Config{},
		RootFS: v1.RootFS{
			Type:    "layers",
			DiffIDs: []v1.Hash{{Algorithm: "sha256", Hex: w.hashStr}},
		},
	}, nil
}

// RawConfigFile returns the wasm config blob
func (w *wasmOCIImage) RawConfigFile() ([]byte, error) {
	return w.config, nil
}

// Digest returns the digest of the raw manifest
func (w *wasmOCIImage) Digest() (v1.Hash, error) {
	raw, err := w.RawManifest()
	if err != nil {
		return v1.Hash{}, err
	}
	h := sha256.Sum256(raw)
	return v1.Hash{
		Algorithm: "sha256",
		Hex:       hex.EncodeToString(h[:]),
	}, nil
}

// Manifest returns the OCI manifest of the image
func (w *wasmOCIImage) Manifest() (*v1.Manifest, error) {
	layerDigest, err := w.wasmLayer.Digest()
	if err != nil {
		return nil, err
	}

	layerSize, err := w.wasmLayer.Size()
	if err != nil {
		return nil, err
	}

	configHash, err := w.ConfigName()
	if err != nil {
		return nil, err
	}

	return &v1.Manifest{
		SchemaVersion: 2,
		MediaType:     WASMManifestMediaType,
		Config: v1.Descriptor{
			MediaType: WASMConfigMediaType,
			Size:      int64(len(w.config)),
			Digest:    configHash,
		},
		Layers: []v1.Descriptor{{
			MediaType: WASMLayerMediaType,
			Size:      layerSize,
			Digest:    layerDigest,
		}},
		Annotations: w.annotations,
	}, nil
}

// RawManifest returns the JSON encoded manifest
func (w *wasmOCIImage) RawManifest() ([]byte, error) {
	manifest, err := w.Manifest()
	if err != nil {
		return nil, err
	}
	return json.Marshal(manifest)
}

// LayerByDigest returns the wasm layer if its digest matches
func (w *wasmOCIImage) LayerByDigest(h v1.Hash) (v1.Layer, error) {
	layerDigest, err := w.wasmLayer.Digest()
	if err != nil {
		return nil, err
	}
	if layerDigest == h {
		return w.wasmLayer, nil
	}
	return nil, fmt.Errorf("layer not found: %s", h)
}

// LayerByDiffID returns the wasm layer if its diff ID matches
func (w *wasmOCIImage) LayerByDiffID(h v1.Hash) (v1.Layer, error) {
	diffID, err := w.wasmLayer.DiffID()
	if err != nil {
		return nil, err
	}
	if diffID == h {
		return w.wasmLayer, nil
	}
	return nil, fmt.Errorf("layer not found: %s", h)
}
