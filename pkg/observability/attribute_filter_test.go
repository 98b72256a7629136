package observability

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAttributeFilter_IsAllowed_AllowsKnownPrefixesAndExactKeys(t *testing.T) {
	f := &attributeFilter{}
	require.True(t, f.isAllowed("flowsight.replay.fuel"))
	require.True(t, f.isAllowed("driver.reactivate"))
	require.True(t, f.isAllowed("worker_index"))
	require.True(t, f.isAllowed("error"))
}

func TestAttributeFilter_IsAllowed_BlocksBlockedPrefixesAndKeys(t *testing.T) {
	f := &attributeFilter{}
	require.False(t, f.isAllowed("user.id"))
	require.False(t, f.isAllowed("email"))
	require.False(t, f.isAllowed("request.body"))
	require.False(t, f.isAllowed("response.body"))
}

func TestAttributeFilter_IsAllowed_UnknownKeyIsBlocked(t *testing.T) {
	f := &attributeFilter{}
	require.False(t, f.isAllowed("some.random.key"))
}

func TestAttributeFilter_IsAllowed_DoesNotPanicWithoutLogger(t *testing.T) {
	f := &attributeFilter{logger: nil}
	require.NotPanics(t, func() { f.isAllowed("unknown") })
}
