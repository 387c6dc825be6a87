package app

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/vk/valuegraph/internal/hcl"
	"github.com/vk/valuegraph/internal/registry"
	"github.com/vk/valuegraph/internal/testutil"
)

// WriteFiles writes HCL sources into a fresh temporary directory and returns
// it. Keys are file names.
func WriteFiles(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, src := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(src), 0o644); err != nil {
			t.Fatalf("writing %s: %v", name, err)
		}
	}
	return dir
}

// SetupAppTest creates a new app instance for system testing from the given
// configuration, loading HCL with the real loader.
func SetupAppTest(t *testing.T, cfg *Config, modules ...registry.Module) (*App, *testutil.SafeBuffer) {
	t.Helper()

	logBuffer := &testutil.SafeBuffer{}
	cfg.LogLevel = "debug"
	testApp, err := NewApp(logBuffer, cfg, hcl.NewLoader(), modules...)

	t.Cleanup(func() {
		if os.Getenv("VALUEGRAPH_TEST_LOGS") == "true" {
			t.Logf("--- Full Log Output for %s ---\n%s", t.Name(), logBuffer.String())
		}
	})
	if err != nil {
		t.Fatalf("app setup failed: %v\n%s", err, logBuffer.String())
	}
	return testApp, logBuffer
}
