package iface

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLabels_Get(t *testing.T) {
	labels := Labels{0: "person", 1: "bicycle"}
	assert.Equal(t, "person", labels.Get(0))
	assert.Equal(t, "bicycle", labels.Get(1))

	for _, id := range []int{2, 99, 1000} {
		assert.Equal(t, Labels{}.Get(id), labels.Get(id))
	}
	assert.Equal(t, "99", labels.Get(99))
	assert.Equal(t, "7", Labels(nil).Get(7))
}
