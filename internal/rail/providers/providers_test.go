package providers

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/rail-scheduler/internal/rail"
)

func TestNew(t *testing.T) {
	for _, p := range []rail.Provider{rail.ProviderSRT, rail.ProviderKorail} {
		a, err := New(p, Config{})
		require.NoError(t, err)
		assert.Equal(t, p, a.Provider())
	}
	_, err := New("ITX", Config{})
	assert.Error(t, err)
}
