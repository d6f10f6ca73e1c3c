package oci

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// testComponent is a component preamble followed by one custom section named "test"
var testComponent = []byte{
	0x00, 0x61, 0x73, 0x6d, // magic
	0x0d, 0x00, 0x01, 0x00, // version 13, component layer
	0x00, 0x06, 0x04, 't', 'e', 's', 't', 0x01,
}

func writeComponent(t *testing.T, content []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "component.wasm")
	require.NoError(t, os.WriteFile(path, content, 0600))
	return path
}
