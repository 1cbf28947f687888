package cli_test

import (
	"context"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/amp-labs/imperative/cli"
	"github.com/amp-labs/imperative/envutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBannerBoxesEveryLine(t *testing.T) {
	t.Parallel()

	out := cli.Banner("adr cycle\nstate: soak", 20, cli.AlignCenter)
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")

	require.Len(t, lines, 4)

	for _, l := range lines {
		assert.Equal(t, 20, utf8.RuneCountInString(l), "line %q", l)
	}

	assert.Equal(t, "│    adr cycle     │", lines[1])
}

func TestBannerTruncates(t *testing.T) {
	t.Parallel()

	out := cli.Banner("ramp_down_to_target_temperature", 12, cli.AlignLeft)
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")

	assert.Equal(t, "│ramp_down…│", lines[1])
	assert.Empty(t, cli.Banner("", 12, cli.AlignLeft))
	assert.Empty(t, cli.Banner("x", 12, cli.Alignment(9)))
}

func TestBannerWideRunes(t *testing.T) {
	t.Parallel()

	out := cli.Banner("低温 soak\n低温低温低温", 12, cli.AlignLeft)
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")

	require.Len(t, lines, 4)
	assert.Equal(t, "│低温 soak │", lines[1])
	assert.Equal(t, "│低温低温… │", lines[2])
	assert.Equal(t, "temp  ok\n低温  2", cli.KeyValues("temp", "ok", "低温", 2))
}

func TestBannerAutoWidth(t *testing.T) {
	t.Parallel()

	ctx := envutil.WithEnvOverride(context.Background(), "COLUMNS", "10")
	ctx = envutil.WithEnvOverride(ctx, "IMPERATIVE_NO_BANNER", "false")

	out := cli.BannerAutoWidth(ctx, "x", cli.AlignRight)
	assert.Contains(t, out, "│       x│")

	plain := envutil.WithEnvOverride(ctx, "IMPERATIVE_NO_BANNER", "true")
	assert.Equal(t, "x\n", cli.BannerAutoWidth(plain, "x", cli.AlignRight))
}

func TestKeyValues(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "state   soak\ncycles  1", cli.KeyValues("state", "soak", "cycles", 1))
	assert.Equal(t, "┠────────┨\n", cli.Divider(10))
}
