// Package chainkv implements the binary key layout, write-through caches,
// and typed storage access used by the chain core. No chain logic lives
// here: everything in this file is a pure function of its arguments.
package chainkv

import (
	"encoding/binary"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
)

// Key family prefixes. These match the byte layout used by Geth-compatible
// chain databases: a single-byte family tag, the 8-byte big-endian block
// number where applicable, and the 32-byte hash where applicable.
const (
	headerPrefix     = byte('h') // headerPrefix + num(8) + hash(32) -> header
	headerTDSuffix   = byte('t') // headerPrefix + num(8) + hash(32) + headerTDSuffix -> td
	bodyPrefix       = byte('b') // bodyPrefix + num(8) + hash(32) -> body
	numberPrefix     = byte('n') // numberPrefix + num(8) + numberSuffix -> hash
	numberSuffix     = byte('n')
	hashToNumberTag  = byte('H') // hashToNumberTag + hash(32) -> num(8)
)

var (
	headHeaderKeyBytes = []byte("LastHeader")
	headBlockKeyBytes  = []byte("LastBlock")
	headsKeyBytes      = []byte("heads")
)

// bufBE8 encodes n as 8 big-endian bytes. Block numbers are carried as
// uint64 throughout this package; the put path in package chainstore
// rejects a header whose number does not fit in a uint64 with
// ErrOutOfRange before any key is built for it.
func bufBE8(n uint64) []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, n)
	return buf
}

// HeaderKey returns the storage key for a header at (number, hash).
func HeaderKey(number uint64, hash common.Hash) []byte {
	key := make([]byte, 0, 1+8+32)
	key = append(key, headerPrefix)
	key = append(key, bufBE8(number)...)
	key = append(key, hash.Bytes()...)
	return key
}

// TdKey returns the storage key for a block's total difficulty.
func TdKey(number uint64, hash common.Hash) []byte {
	key := HeaderKey(number, hash)
	return append(key, headerTDSuffix)
}

// BodyKey returns the storage key for a block body.
func BodyKey(number uint64, hash common.Hash) []byte {
	key := make([]byte, 0, 1+8+32)
	key = append(key, bodyPrefix)
	key = append(key, bufBE8(number)...)
	key = append(key, hash.Bytes()...)
	return key
}

// NumberToHashKey returns the key mapping a canonical number to its hash.
func NumberToHashKey(number uint64) []byte {
	key := make([]byte, 0, 1+8+1)
	key = append(key, numberPrefix)
	key = append(key, bufBE8(number)...)
	key = append(key, numberSuffix)
	return key
}

// HashToNumberKey returns the key mapping a hash to its block number.
func HashToNumberKey(hash common.Hash) []byte {
	key := make([]byte, 0, 1+32)
	key = append(key, hashToNumberTag)
	key = append(key, hash.Bytes()...)
	return key
}

// HeadHeaderKey is the fixed key holding the canonical header-chain tip hash.
func HeadHeaderKey() []byte { return headHeaderKeyBytes }

// HeadBlockKey is the fixed key holding the canonical block-chain tip hash.
func HeadBlockKey() []byte { return headBlockKeyBytes }

// HeadsKey is the fixed key holding the JSON-encoded named iterator heads.
func HeadsKey() []byte { return headsKeyBytes }

// EncodeNumber exposes bufBE8 for callers that need a bare 8-byte number,
// e.g. decoding the value stored at a HashToNumberKey.
func EncodeNumber(n uint64) []byte { return bufBE8(n) }

// DecodeNumber parses an 8-byte big-endian number, failing closed on any
// other length rather than silently truncating.
func DecodeNumber(b []byte) (uint64, error) {
	if len(b) != 8 {
		return 0, fmt.Errorf("chainkv: malformed number encoding: %d bytes", len(b))
	}
	return binary.BigEndian.Uint64(b), nil
}
