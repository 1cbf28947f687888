package smtest_test

import (
	"context"
	"testing"

	"github.com/amp-labs/imperative/statemachine"
	"github.com/amp-labs/imperative/statemachine/smtest"
	"github.com/amp-labs/imperative/world"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProbeFollowsScript(t *testing.T) {
	t.Parallel()

	tr := &smtest.Trace{}
	p := smtest.NewProbe("p", tr, statemachine.Complete{})
	ctx := context.Background()

	require.NoError(t, p.OnEnter(ctx, world.View{}))

	cmd, err := p.Send(ctx, world.View{})
	require.NoError(t, err)
	assert.Equal(t, statemachine.Complete{}, cmd)

	cmd, err = p.Send(ctx, world.View{})
	require.NoError(t, err)
	assert.Nil(t, cmd)

	require.NoError(t, p.OnExit(ctx, world.View{}))

	assert.Equal(t, 2, tr.Count(smtest.Send, "p"))
	smtest.RequireHooks(t, tr, "enter:p exit:p")
	smtest.RequireSymmetric(t, tr)
	assert.Len(t, tr.Entries(), 4)
}
