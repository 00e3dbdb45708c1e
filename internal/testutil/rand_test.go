package testutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestScriptedRand_Sequence(t *testing.T) {
	r := NewScriptedRand(0.1, 0.5, 0.9)

	assert.Equal(t, 0.1, r.Float64())
	assert.Equal(t, 0.5, r.Float64())
	assert.Equal(t, 0.9, r.Float64())
	assert.Equal(t, 3, r.Used())
}

func TestScriptedRand_PanicsWhenExhausted(t *testing.T) {
	r := NewScriptedRand(0.1)
	r.Float64()

	assert.Panics(t, func() { r.Float64() })
}

func TestConstRand(t *testing.T) {
	assert.Equal(t, 0.0, Always.Float64())
	assert.Less(t, Never.Float64(), 1.0)
	assert.Greater(t, Never.Float64(), 0.99)
}
