// Package base62 derives short codes from numeric ids.
//
// The alphabet is digits, then lowercase, then uppercase letters. Changing
// the order changes every code already handed out, so it is fixed.
package base62

import (
	"errors"
	"math"
	"strings"
)

// Alphabet is the symbol table, index i encodes digit value i.
const Alphabet = "0123456789abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"

const base = int64(len(Alphabet))

var (
	ErrNegative      = errors.New("base62: cannot encode negative number")
	ErrInvalidChar   = errors.New("base62: invalid character")
	ErrEmpty         = errors.New("base62: empty input")
	ErrValueOverflow = errors.New("base62: value overflows int64")
)

// Encode returns the positional base62 representation of id.
// Encode(0) is the first symbol of the alphabet.
func Encode(id int64) (string, error) {
	if id < 0 {
		return "", ErrNegative
	}
	if id == 0 {
		return Alphabet[:1], nil
	}

	// 11 symbols cover math.MaxInt64
	var buf [11]byte
	i := len(buf)
	for id > 0 {
		i--
		buf[i] = Alphabet[id%base]
		id /= base
	}
	return string(buf[i:]), nil
}

// Decode is the inverse of Encode.
func Decode(code string) (int64, error) {
	if code == "" {
		return 0, ErrEmpty
	}

	var n int64
	for _, r := range code {
		v := strings.IndexRune(Alphabet, r)
		if v < 0 {
			return 0, ErrInvalidChar
		}
		if n > (math.MaxInt64-int64(v))/base {
			return 0, ErrValueOverflow
		}
		n = n*base + int64(v)
	}
	return n, nil
}
