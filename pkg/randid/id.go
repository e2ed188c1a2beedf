// Package randid generates short random identifiers meant to be typed back
// at a prompt.
package randid

import "math/rand/v2"

// Alphabet holds the characters ids are drawn from. The digits 0 and 1 are
// left out so they cannot be misread as o and l.
const Alphabet = "abcdefghijklmnopqrstuvwxyz23456789"

// Generate returns a random id of length characters from Alphabet. It is not
// suitable for secrets.
func Generate(length int) string {
	b := make([]byte, length)
	for i := range b {
		b[i] = Alphabet[rand.IntN(len(Alphabet))]
	}
	return string(b)
}
