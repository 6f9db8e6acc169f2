package pkg

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestContains(t *testing.T) {
	assert.True(t, Contains([]string{"alice", "bob"}, "bob"))
	assert.False(t, Contains([]string{"alice", "bob"}, "carol"))
	assert.False(t, Contains(nil, "anyone"))

	assert.True(t, Contains([]int{1, 2, 3}, 2))
	assert.False(t, Contains([]int{1, 2, 3}, 4))
}
