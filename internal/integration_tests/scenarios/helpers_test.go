package integration_tests

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vk/valuegraph/internal/app"
	"github.com/vk/valuegraph/internal/builder"
	"github.com/vk/valuegraph/internal/value"
)

// buildOne loads src as the only configuration file and builds its single
// calc config.
func buildOne(t *testing.T, src string) *builder.Result {
	t.Helper()
	dir := app.WriteFiles(t, map[string]string{"main.hcl": src})
	cfg, err := app.NewConfig(app.Config{ConfigPaths: []string{dir}, WorkerCount: 4})
	require.NoError(t, err)
	testApp, _ := app.SetupAppTest(t, cfg)

	builds, err := testApp.BuildAll(context.Background())
	require.NoError(t, err)
	require.Len(t, builds, 1)
	require.Equal(t, builder.StatusComplete, builds[0].Result.Status)
	return builds[0].Result
}

func requirement(name, target string) value.ValueRequirement {
	return value.NewRequirement(name, value.MustParseTargetSpec(target), value.ValueProperties{})
}
