package utils

import (
	"encoding/binary"
	"github.com/twmb/murmur3"
)

// separates joined tokens so that ["ab", "c"] and ["a", "bc"] hash differently
var tokenSeparator = []byte{0}

// HashStrings hashes the ordered sequence of tokens as a single key.
func HashStrings(ss []string) uint64 {
	hash := murmur3.New64()
	for i, s := range ss {
		if i > 0 {
			if _, err := hash.Write(tokenSeparator); err != nil {
				panic(err)
			}
		}
		if _, err := hash.Write([]byte(s)); err != nil {
			panic(err)
		}
	}
	return hash.Sum64()
}

// HashInts hashes the ordered sequence of ints, optionally extended by tail values.
func HashInts(ints []int, tail ...int) uint64 {
	hash := murmur3.New64()
	buf := make([]byte, binary.MaxVarintLen64)
	write := func(v int) {
		n := binary.PutVarint(buf, int64(v))
		if _, err := hash.Write(buf[:n]); err != nil {
			panic(err)
		}
	}
	for _, v := range ints {
		write(v)
	}
	for _, v := range tail {
		write(v)
	}
	return hash.Sum64()
}
