package flags

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStringSlice(t *testing.T) {
	t.Parallel()

	var s StringSlice
	require.NoError(t, s.Set("10.0.0.0/8"))
	require.NoError(t, s.Set("192.168.1.1, ,172.16.0.0/12"))

	assert.Equal(t, StringSlice{"10.0.0.0/8", "192.168.1.1", "172.16.0.0/12"}, s)
	assert.Equal(t, "10.0.0.0/8,192.168.1.1,172.16.0.0/12", s.String())
	assert.Equal(t, "stringSlice", s.Type())
}
