package cli

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-containerregistry/pkg/name"
	"github.com/google/go-containerregistry/pkg/v1/empty"
	"github.com/google/go-containerregistry/pkg/v1/remote"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fastertools/wasm-pkg/pkg/oci"
)

func pushTestComponent(t *testing.T, reg *testRegistry, repo string) string {
	t.Helper()

	ref := reg.host() + "/" + repo
	ExecuteCommandTest(t, TestCommandExecution{
		Args: []string{"push", ref, writeTestComponent(t)},
	})
	return ref
}

func TestPullCommand(t *testing.T) {
	cmd := newPullCmd()

	assert.Equal(t, "pull <reference>", cmd.Use)
	assert.Equal(t, "o", cmd.Flags().Lookup("output").Shorthand)
	assert.NotNil(t, cmd.Flags().Lookup("insecure"))
	assert.Error(t, cmd.Args(cmd, []string{}))
}

func TestPull_RoundTrip(t *testing.T) {
	clearRegistryEnv(t)
	useMockCredentialStore(t)
	reg := newTestRegistry(t)
	ref := pushTestComponent(t, reg, "my/component:0.1.0")

	out := filepath.Join(t.TempDir(), "out.wasm")
	ExecuteCommandTest(t, TestCommandExecution{
		Args:         []string{"pull", ref, "-o", out},
		ExpectOutput: []string{"Successfully wrote " + ref + " to " + out},
	})

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, testComponent, data)
}

func TestPull_DefaultOutputPath(t *testing.T) {
	clearRegistryEnv(t)
	useMockCredentialStore(t)
	reg := newTestRegistry(t)
	ref := pushTestComponent(t, reg, "my/nested/component:0.1.0")

	dir := t.TempDir()
	chdirForTest(t, dir)

	ExecuteCommandTest(t, TestCommandExecution{
		Args:         []string{"pull", ref},
		ExpectOutput: []string{"to my_nested_component.wasm"},
	})

	data, err := os.ReadFile(filepath.Join(dir, "my_nested_component.wasm"))
	require.NoError(t, err)
	assert.Equal(t, testComponent, data)
}

func TestPull_NoLayers(t *testing.T) {
	clearRegistryEnv(t)
	useMockCredentialStore(t)
	reg := newTestRegistry(t)

	ref, err := name.ParseReference(reg.host() + "/empty:1.0.0")
	require.NoError(t, err)
	require.NoError(t, remote.Write(ref, empty.Image))

	out := filepath.Join(t.TempDir(), "out.wasm")
	ExecuteCommandTest(t, TestCommandExecution{
		Args:        []string{"pull", ref.String(), "-o", out},
		ExpectError: "no layers found",
		Validate: func(t *testing.T, output string, err error) {
			assert.True(t, errors.Is(err, oci.ErrNoLayers))
		},
	})

	_, err = os.Stat(out)
	assert.True(t, os.IsNotExist(err), "nothing may be written when the artifact has no layers")
}

func TestPull_NotFound(t *testing.T) {
	clearRegistryEnv(t)
	useMockCredentialStore(t)
	reg := newTestRegistry(t)

	ExecuteCommandTest(t, TestCommandExecution{
		Args:        []string{"pull", reg.host() + "/missing:1.0.0", "-o", filepath.Join(t.TempDir(), "x.wasm")},
		ExpectError: "unable to pull image",
	})
}

func TestPull_PartialCredentials(t *testing.T) {
	clearRegistryEnv(t)
	t.Setenv("WASM_PKG_PASSWORD", "secret")
	useMockCredentialStore(t)
	reg := newTestRegistry(t)

	ExecuteCommandTest(t, TestCommandExecution{
		Args:        []string{"pull", reg.host() + "/my/component:1.0.0"},
		ExpectError: "must provide both a username and password",
	})
	assert.Zero(t, reg.requests.Load())
}

func TestDefaultOutputPath(t *testing.T) {
	tests := map[string]string{
		"ghcr.io/my-org/hello:0.1.0":  "my-org_hello.wasm",
		"localhost:5000/a/b/c:1.0.0":  "a_b_c.wasm",
		"localhost:5000/single:1.0.0": "single.wasm",
	}
	for input, want := range tests {
		ref, err := name.ParseReference(input)
		require.NoError(t, err)
		assert.Equal(t, want, defaultOutputPath(ref), input)
	}
}
