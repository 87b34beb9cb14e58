package ids

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrefixedIsTimestampDerived(t *testing.T) {
	at := time.Date(2024, 5, 17, 12, 0, 0, 0, time.UTC)
	id := Prefixed("role", at)

	require.True(t, strings.HasPrefix(id, "role_"))
	assert.Equal(t, strings.ToLower(id), id)

	ts, ok := Timestamp(id)
	require.True(t, ok)
	assert.True(t, ts.Equal(at), "got %v", ts)
}

func TestIdsAreUniqueWithinTheSameMillisecond(t *testing.T) {
	at := time.Date(2024, 5, 17, 12, 0, 0, 0, time.UTC)
	seen := make(map[string]struct{})
	for i := 0; i < 1000; i++ {
		id := Prefixed("perm", at)
		_, dup := seen[id]
		require.False(t, dup, "duplicate id %s", id)
		seen[id] = struct{}{}
	}
}

func TestTimestampRejectsGarbage(t *testing.T) {
	_, ok := Timestamp("role_not-a-ulid")
	assert.False(t, ok)
}
