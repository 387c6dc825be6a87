package integration_tests

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vk/valuegraph/internal/app"
	"github.com/vk/valuegraph/internal/builder"
	"github.com/vk/valuegraph/internal/testutil"
)

func build(t *testing.T, src string) (*builder.Result, *testutil.SafeBuffer) {
	t.Helper()
	dir := app.WriteFiles(t, map[string]string{"main.hcl": src})
	cfg, err := app.NewConfig(app.Config{ConfigPaths: []string{dir}})
	require.NoError(t, err)
	testApp, logs := app.SetupAppTest(t, cfg)

	builds, err := testApp.BuildAll(context.Background())
	require.NoError(t, err)
	require.Len(t, builds, 1)
	return builds[0].Result, logs
}
