package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseScope_Unscoped(t *testing.T) {
	scope, err := ParseScope()
	require.NoError(t, err)
	assert.True(t, scope.IsUnscoped())
	assert.Empty(t, scope.Expression())
	assert.Equal(t, "all tests", scope.String())
}

func TestParseScope_SingleSelector(t *testing.T) {
	scope, err := ParseScope("TargetA:ClassB/methodC")
	require.NoError(t, err)
	assert.False(t, scope.IsUnscoped())
	assert.Equal(t, "TargetA:ClassB/methodC", scope.Expression())
}

func TestParseScope_AccumulatesWithCommas(t *testing.T) {
	scope, err := ParseScope("T:C1", "T:C2")
	require.NoError(t, err)
	assert.Equal(t, "T:C1,T:C2", scope.Expression())
	assert.Equal(t, []string{"T:C1", "T:C2"}, scope.Selectors())
}

func TestParseScope_SplitsCommaJoinedArguments(t *testing.T) {
	scope, err := ParseScope("T:C1,T:C2", "U")
	require.NoError(t, err)
	assert.Equal(t, "T:C1,T:C2,U", scope.Expression())
}

func TestParseScope_Wildcards(t *testing.T) {
	for _, sel := range []string{
		"app",
		"app:LoginTest",
		"app:LoginTest/testHappyPath",
		"app:Login*",
		"app:*",
		"app:LoginTest/test*",
		"app:LoginTest/*",
	} {
		_, err := ParseScope(sel)
		assert.NoError(t, err, "selector %q should be valid", sel)
	}
}

func TestParseScope_RejectsMalformedSelectors(t *testing.T) {
	for _, sel := range []string{
		":Class",
		"app:",
		"app:Class/",
		"app:Class/method/extra",
		"app:*Class",
		"app Class",
		"app:Class/me thod",
	} {
		_, err := ParseScope(sel)
		assert.Error(t, err, "selector %q should be rejected", sel)
	}
}

func TestParseScope_SelectorsReturnsCopy(t *testing.T) {
	scope, err := ParseScope("T:C1")
	require.NoError(t, err)

	sels := scope.Selectors()
	sels[0] = "mutated"
	assert.Equal(t, "T:C1", scope.Expression())
}
