package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMemory_SetGetDelete(t *testing.T) {
	mem := NewMemory()

	_, ok, err := mem.Get("missing")
	assert.NoError(t, err)
	assert.False(t, ok)

	assert.NoError(t, mem.Set("slot", []byte("value")))

	value, ok, err := mem.Get("slot")
	assert.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []byte("value"), value)

	assert.NoError(t, mem.Delete("slot"))
	_, ok, _ = mem.Get("slot")
	assert.False(t, ok)

	// Deleting an absent key is not an error.
	assert.NoError(t, mem.Delete("slot"))
}

func TestMemory_GetReturnsCopy(t *testing.T) {
	mem := NewMemory()
	assert.NoError(t, mem.Set("slot", []byte("value")))

	value, _, _ := mem.Get("slot")
	value[0] = 'X'

	again, _, _ := mem.Get("slot")
	assert.Equal(t, []byte("value"), again)
}

func TestMemory_SetCopiesInput(t *testing.T) {
	mem := NewMemory()
	input := []byte("value")
	assert.NoError(t, mem.Set("slot", input))

	input[0] = 'X'

	stored, _, _ := mem.Get("slot")
	assert.Equal(t, []byte("value"), stored)
}
