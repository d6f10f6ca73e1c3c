package cli

import (
	"bytes"
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/AlecAivazis/survey/v2"
	"github.com/google/go-containerregistry/pkg/registry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fastertools/wasm-pkg/internal/auth"
)

// testComponent is the smallest valid component: preamble plus an empty custom section
var testComponent = []byte{
	0x00, 0x61, 0x73, 0x6d, // magic
	0x0d, 0x00, 0x01, 0x00, // version 13, layer 1
	0x00, 0x05, 0x04, 't', 'e', 's', 't', // custom section "test"
}

// TestCommandExecution describes one run of the root command
type TestCommandExecution struct {
	Args         []string
	ExpectError  string
	ExpectOutput []string
	Validate     func(t *testing.T, output string, err error)
}

// ExecuteCommandTest runs the root command with captured output
func ExecuteCommandTest(t *testing.T, test TestCommandExecution) {
	t.Helper()

	out := captureOutput(t)
	cmd := NewRootCmd()
	cmd.SetOut(out)
	cmd.SetErr(out)
	cmd.SetArgs(test.Args)

	err := cmd.Execute()

	if test.ExpectError != "" {
		require.Error(t, err)
		assert.Contains(t, err.Error(), test.ExpectError)
	} else {
		require.NoError(t, err)
	}

	output := out.String()
	for _, expected := range test.ExpectOutput {
		assert.Contains(t, output, expected)
	}

	if test.Validate != nil {
		test.Validate(t, output, err)
	}
}

// captureOutput redirects the color helpers into a buffer for the duration of the test
func captureOutput(t *testing.T) *syncBuffer {
	t.Helper()

	buf := &syncBuffer{}
	oldOut, oldErr := colorOutput, errorOutput
	colorOutput, errorOutput = buf, buf
	t.Cleanup(func() {
		colorOutput, errorOutput = oldOut, oldErr
	})
	return buf
}

// syncBuffer guards writes from the spinner goroutine
type syncBuffer struct {
	mu sync.Mutex
	bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.Buffer.Write(p)
}

// useMockCredentialStore swaps the keyring for an in-memory store
func useMockCredentialStore(t *testing.T) *auth.MockStore {
	t.Helper()

	store := auth.NewMockStore(nil)
	old := newCredentialStore
	newCredentialStore = func() auth.CredentialStore { return store }
	t.Cleanup(func() { newCredentialStore = old })
	return store
}

// testRegistry is an in-memory OCI registry that records requests
type testRegistry struct {
	*httptest.Server
	requests atomic.Int64

	mu          sync.Mutex
	authHeaders []string
}

func newTestRegistry(t *testing.T) *testRegistry {
	t.Helper()

	tr := &testRegistry{}
	handler := registry.New()
	tr.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tr.requests.Add(1)
		if h := r.Header.Get("Authorization"); h != "" {
			tr.mu.Lock()
			tr.authHeaders = append(tr.authHeaders, h)
			tr.mu.Unlock()
		}
		handler.ServeHTTP(w, r)
	}))
	t.Cleanup(tr.Close)
	return tr
}

// host returns the registry host, e.g. 127.0.0.1:54321
func (tr *testRegistry) host() string {
	return strings.TrimPrefix(tr.URL, "http://")
}

// sawBasicAuth reports whether any request carried the given basic credentials
func (tr *testRegistry) sawBasicAuth(username, password string) bool {
	want := "Basic " + base64.StdEncoding.EncodeToString([]byte(username+":"+password))
	tr.mu.Lock()
	defer tr.mu.Unlock()
	for _, h := range tr.authHeaders {
		if h == want {
			return true
		}
	}
	return false
}

// writeTestComponent writes testComponent to a temp file
func writeTestComponent(t *testing.T) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "component.wasm")
	require.NoError(t, os.WriteFile(path, testComponent, 0600))
	return path
}

// clearRegistryEnv unsets credential env vars the host may carry
func clearRegistryEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{"USERNAME", "PASSWORD", "INSECURE"} {
		t.Setenv(EnvPrefix+"_"+k, "")
	}
}

// MockSurveyAskOne mocks survey.AskOne for testing interactive prompts
func MockSurveyAskOne(responses ...interface{}) func(p survey.Prompt, response interface{}, opts ...survey.AskOpt) error {
	i := 0
	return func(p survey.Prompt, resp interface{}, opts ...survey.AskOpt) error {
		response := responses[i]
		i++
		switch v := resp.(type) {
		case *string:
			*v = response.(string)
		case *bool:
			*v = response.(bool)
		}
		return nil
	}
}

// chdirForTest changes the working directory for the duration of the test and
// restores it on cleanup (equivalent to testing.T.Chdir, which needs Go 1.24).
func chdirForTest(t *testing.T, dir string) {
	t.Helper()
	prev, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("chdir %s: %v", dir, err)
	}
	t.Cleanup(func() {
		if err := os.Chdir(prev); err != nil {
			t.Fatalf("restore working directory: %v", err)
		}
	})
}
