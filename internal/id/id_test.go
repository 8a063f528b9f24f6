package id

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerate_Uniqueness(t *testing.T) {
	ids := make(map[string]bool)
	count := 1000

	for range count {
		id, err := Generate(PrefixRun)
		require.NoError(t, err)
		assert.False(t, ids[id], "ID should be unique: %s", id)
		ids[id] = true
	}

	assert.Len(t, ids, count)
}

func TestGenerate_Format(t *testing.T) {
	for _, prefix := range []string{PrefixRun, PrefixRequest, "custom"} {
		t.Run(prefix, func(t *testing.T) {
			id, err := Generate(prefix)
			require.NoError(t, err)

			rest, ok := strings.CutPrefix(id, prefix+"-")
			require.True(t, ok, "missing prefix in %q", id)
			assert.Len(t, rest, size)
			for _, r := range rest {
				assert.Contains(t, alphabet, string(r))
			}
		})
	}
}

func TestRun(t *testing.T) {
	assert.True(t, strings.HasPrefix(Run(), "run-"))
	assert.NotEqual(t, Run(), Run())
}

func TestMustGenerate(t *testing.T) {
	assert.NotPanics(t, func() {
		assert.True(t, strings.HasPrefix(MustGenerate(PrefixRequest), "req-"))
	})
}
