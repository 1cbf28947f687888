package startup_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/amp-labs/imperative/envutil"
	"github.com/amp-labs/imperative/startup"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	t.Parallel()

	vars := map[string]string{}

	err := startup.Parse(strings.NewReader(`
# tick settings
TICK_PERIOD=0.5
export INITIAL_STATE="ramp_up"
TRACE_CODEC = 'zstd'
`), vars)
	require.NoError(t, err)

	assert.Equal(t, map[string]string{
		"TICK_PERIOD":   "0.5",
		"INITIAL_STATE": "ramp_up",
		"TRACE_CODEC":   "zstd",
	}, vars)

	err = startup.Parse(strings.NewReader("JUST_A_WORD\n"), vars)
	require.ErrorIs(t, err, startup.ErrMalformedLine)
}

func TestConfigureEnvironment(t *testing.T) { //nolint:paralleltest // uses t.Setenv
	dir := t.TempDir()
	base := filepath.Join(dir, "base.env")
	local := filepath.Join(dir, "local.env")

	require.NoError(t, os.WriteFile(base, []byte("IMPERATIVE_STARTUP_A=base\nIMPERATIVE_STARTUP_B=base\n"), 0o600))
	require.NoError(t, os.WriteFile(local, []byte("IMPERATIVE_STARTUP_B=local\n"), 0o600))

	t.Setenv("IMPERATIVE_STARTUP_A", "process")
	t.Setenv("IMPERATIVE_STARTUP_B", "")
	require.NoError(t, os.Unsetenv("IMPERATIVE_STARTUP_B"))

	ctx := envutil.WithEnvOverride(context.Background(), startup.EnvFileKey, base+"; "+local)

	require.NoError(t, startup.ConfigureEnvironment(ctx))
	assert.Equal(t, "process", os.Getenv("IMPERATIVE_STARTUP_A"))
	assert.Equal(t, "local", os.Getenv("IMPERATIVE_STARTUP_B"))

	require.NoError(t, startup.ConfigureEnvironmentFromFiles(ctx, []string{base}, startup.WithAllowOverride(true)))
	assert.Equal(t, "base", os.Getenv("IMPERATIVE_STARTUP_A"))
}

func TestConfigureEnvironmentMissingFile(t *testing.T) {
	t.Parallel()

	err := startup.ConfigureEnvironmentFromFiles(context.Background(), []string{"/nonexistent/imperative.env"})
	require.Error(t, err)
}
