package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateUUIDv7(t *testing.T) {
	a := GenerateUUIDv7()
	b := GenerateUUIDv7()

	require.True(t, IsUUID(a))
	require.True(t, IsUUID(b))
	assert.NotEqual(t, a, b)
	assert.Equal(t, byte('7'), a[14], "version nibble")
}

func TestIsUUIDRejectsGarbage(t *testing.T) {
	assert.False(t, IsUUID(""))
	assert.False(t, IsUUID("not-a-uuid"))
	assert.False(t, IsUUID("0123456789abcdef0123456789abcdef0123"))
}

func TestElapsedMsSince(t *testing.T) {
	elapsed := ElapsedMsSince(time.Now().Add(-1500 * time.Millisecond))
	assert.GreaterOrEqual(t, elapsed, 1500.0)
}

func TestMarshalJSONIndent(t *testing.T) {
	data, err := MarshalJSONIndent(map[string]int{"a": 1})
	require.NoError(t, err)
	assert.Equal(t, "{\n  \"a\": 1\n}", string(data))

	_, err = MarshalJSONIndent(make(chan int))
	assert.Error(t, err)
}

func TestToJSONString(t *testing.T) {
	assert.Equal(t, `{"k":"v"}`, ToJSONString(map[string]string{"k": "v"}))
	assert.Equal(t, "{}", ToJSONString(make(chan int)))
}
