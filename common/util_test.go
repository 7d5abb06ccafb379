package common

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBytesCopy(t *testing.T) {
	src := []byte{0x01, 0x02, 0x05}
	dst := BytesCopy(src)
	dst[0] = 0xff

	assert.Equal(t, byte(0x01), src[0])
	assert.Nil(t, BytesCopy(nil))
	assert.Equal(t, []byte{}, BytesCopy([]byte{}))
}

func TestUint64Bytes(t *testing.T) {
	b := Uint64ToBytes(258)
	assert.Equal(t, []byte{0, 0, 0, 0, 0, 0, 1, 2}, b)
	assert.Equal(t, uint64(258), BytesToUint64(b))
}
