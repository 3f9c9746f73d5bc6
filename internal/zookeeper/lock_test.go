package zookeeper

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPredecessor_OrdersBySequenceSuffix(t *testing.T) {
	children := []string{
		"_c_ffff-lock-0000000003",
		"_c_aaaa-lock-0000000001",
		"_c_0000-lock-0000000002",
	}

	prev, err := predecessor(children, "_c_aaaa-lock-0000000001")
	require.NoError(t, err)
	assert.Empty(t, prev)

	prev, err = predecessor(children, "_c_ffff-lock-0000000003")
	require.NoError(t, err)
	assert.Equal(t, "_c_0000-lock-0000000002", prev)
}

func TestPredecessor_MissingNode(t *testing.T) {
	_, err := predecessor([]string{"lock-0000000001"}, "lock-0000000009")
	assert.Error(t, err)
}

func TestUnlock_WithoutLock(t *testing.T) {
	l := &DistributedLock{}
	assert.Error(t, l.Unlock())
}
