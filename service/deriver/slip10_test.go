package deriver

import (
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// vectors from SLIP-0010, test vector 1 for ed25519
func TestMasterNodeVector(t *testing.T) {
	seed, _ := hex.DecodeString("000102030405060708090a0b0c0d0e0f")

	m := masterNode(seed)
	assert.Equal(t, "2b4be7f19ee27bbf30c667b642d5f4aa69fd169872f8fc3059c08ebae2eb19e7", hex.EncodeToString(m.key))
	assert.Equal(t, "90046a93de5380a72b5e45010748567d5ea02bbf6522f979e05c0d8d8ca9fffb", hex.EncodeToString(m.chainCode))

	c, err := m.derive(0)
	require.NoError(t, err)
	assert.Equal(t, "68e0fe46dfb67e368c75379acec591dad19df3cde26e63b93a8e704f1dade7a3", hex.EncodeToString(c.key))
	assert.Equal(t, "8b59aa11380b624e81507a27fedda59fea6d0b779a778918a2fd3590e16e9c69", hex.EncodeToString(c.chainCode))
}

func TestChildIndexOverflow(t *testing.T) {
	_, err := masterNode([]byte("seed")).child(hardened)
	assert.ErrorIs(t, err, errIndexOverflow)
}

func TestUserIndex(t *testing.T) {
	assert.Equal(t, userIndex("u1"), userIndex("u1"))
	assert.NotEqual(t, userIndex("u1"), userIndex("u2"))
	assert.Less(t, userIndex("u1"), hardened)
}
