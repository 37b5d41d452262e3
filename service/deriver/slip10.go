package deriver

import (
	"crypto/ed25519"
	"crypto/hmac"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/binary"
	"errors"
)

// hardened is the SLIP-0010 offset; ed25519 only supports hardened children.
const hardened uint32 = 1 << 31

var errIndexOverflow = errors.New("derivation index out of range")

type node struct {
	key       []byte
	chainCode []byte
}

func masterNode(seed []byte) *node {
	mac := hmac.New(sha512.New, []byte("ed25519 seed"))
	mac.Write(seed)
	sum := mac.Sum(nil)
	return &node{key: sum[:32], chainCode: sum[32:]}
}

func (n *node) child(index uint32) (*node, error) {
	if index >= hardened {
		return nil, errIndexOverflow
	}

	data := make([]byte, 0, 1+32+4)
	data = append(data, 0)
	data = append(data, n.key...)
	data = binary.BigEndian.AppendUint32(data, index+hardened)

	mac := hmac.New(sha512.New, n.chainCode)
	mac.Write(data)
	sum := mac.Sum(nil)
	return &node{key: sum[:32], chainCode: sum[32:]}, nil
}

func (n *node) derive(indexes ...uint32) (*node, error) {
	var err error
	for _, index := range indexes {
		if n, err = n.child(index); err != nil {
			return nil, err
		}
	}

	return n, nil
}

func (n *node) privateKey() ed25519.PrivateKey {
	return ed25519.NewKeyFromSeed(n.key)
}

// userIndex maps a user id to the path segment used for derivation.
func userIndex(userID string) uint32 {
	sum := sha256.Sum256([]byte(userID))
	return binary.BigEndian.Uint32(sum[:4]) &^ hardened
}
