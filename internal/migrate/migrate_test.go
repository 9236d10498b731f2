package migrate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFilesAreOrdered(t *testing.T) {
	files, err := Files()
	require.NoError(t, err)
	assert.Equal(t, []string{"0001_secrets.sql", "0002_runs.sql"}, files)
}
