// Package orderkey implements dense, lexicographically ordered position keys.
//
// A Key is a string over a base-62 alphabet whose ASCII order matches digit
// order, so plain string comparison sorts keys. Between any two distinct valid
// keys another key always exists: generation picks the digit midpoint and only
// lengthens the key when two digits are adjacent.
package orderkey

import (
	"errors"
	"fmt"
	"strings"
)

// Alphabet is the ordered digit set. Index == digit value.
const Alphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"

const radix = len(Alphabet)

var (
	// ErrInvalidKey is returned for keys that are empty, contain characters outside
	// the alphabet, or end with the minimum digit.
	ErrInvalidKey = errors.New("invalid order key")
	// ErrInvalidRange is returned when Between is called with low >= high.
	ErrInvalidRange = errors.New("order key bounds out of order")
)

// Key is an opaque position in an ordered list.
type Key string

// String returns the key text.
func (k Key) String() string { return string(k) }

// Compare returns -1, 0 or 1 by lexicographic order.
func Compare(a, b Key) int {
	return strings.Compare(string(a), string(b))
}

// Validate reports whether k can take part in key generation.
//
// A trailing minimum digit is rejected because no key can sort strictly
// between "x" and "x0".
func Validate(k Key) error {
	if k == "" {
		return fmt.Errorf("%w: empty", ErrInvalidKey)
	}
	for i := 0; i < len(k); i++ {
		if digit(k[i]) < 0 {
			return fmt.Errorf("%w: %q has invalid character %q", ErrInvalidKey, k, k[i])
		}
	}
	if k[len(k)-1] == Alphabet[0] {
		return fmt.Errorf("%w: %q ends with %q", ErrInvalidKey, k, Alphabet[0])
	}
	return nil
}

// Initial returns the key used for the first item of an empty list. It sits in
// the middle of the alphabet so inserts on either side stay short.
func Initial() Key {
	return Key(Alphabet[radix/2 : radix/2+1])
}

// Between returns a key strictly greater than low and strictly less than high.
// An empty low means "before everything"; an empty high means "after
// everything". Both bounds empty yields Initial.
func Between(low, high Key) (Key, error) {
	if low != "" {
		if err := Validate(low); err != nil {
			return "", err
		}
	}
	if high != "" {
		if err := Validate(high); err != nil {
			return "", err
		}
	}
	if low != "" && high != "" && low >= high {
		return "", fmt.Errorf("%w: %q >= %q", ErrInvalidRange, low, high)
	}

	return Key(midpoint(string(low), string(high))), nil
}

// After returns a key greater than k.
func After(k Key) (Key, error) {
	return Between(k, "")
}

// Before returns a key less than k.
func Before(k Key) (Key, error) {
	return Between("", k)
}

// Sequence returns n ascending keys starting at Initial. The output is
// deterministic, so rebuilding the same list twice yields identical keys.
func Sequence(n int) []Key {
	keys := make([]Key, 0, n)
	var prev Key
	for range n {
		next := Key(midpoint(string(prev), ""))
		keys = append(keys, next)
		prev = next
	}
	return keys
}

// midpoint assumes a < b (b == "" is +inf) and neither ends with the minimum
// digit. a == "" is treated as an infinite run of minimum digits.
func midpoint(a, b string) string {
	if b != "" {
		// Strip the common prefix, treating a as padded with minimum digits.
		n := 0
		for n < len(b) && digitAt(a, n) == digit(b[n]) {
			n++
		}
		if n > 0 {
			return b[:n] + midpoint(tail(a, n), b[n:])
		}
	}

	lo := digitAt(a, 0)
	hi := radix
	if b != "" {
		hi = digit(b[0])
	}

	if hi-lo > 1 {
		return string(Alphabet[(lo+hi)/2])
	}

	// Adjacent digits. If b has more digits, its first digit alone already sits
	// strictly between a and b.
	if len(b) > 1 {
		return b[:1]
	}

	return string(Alphabet[lo]) + midpoint(tail(a, 1), "")
}

func digit(c byte) int {
	switch {
	case c >= '0' && c <= '9':
		return int(c - '0')
	case c >= 'A' && c <= 'Z':
		return int(c-'A') + 10
	case c >= 'a' && c <= 'z':
		return int(c-'a') + 36
	default:
		return -1
	}
}

func digitAt(s string, i int) int {
	if i >= len(s) {
		return 0
	}
	return digit(s[i])
}

func tail(s string, n int) string {
	if n >= len(s) {
		return ""
	}
	return s[n:]
}
