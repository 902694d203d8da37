// Package keygen produces candidate short keys for links. Collision
// resistance, not unpredictability, is the goal: candidates come from
// math/rand and uniqueness is enforced by the links table, with the caller
// retrying on conflict.
package keygen

import "math/rand"

// DefaultAlphabet is the 62-symbol alphanumeric alphabet.
const DefaultAlphabet = "0123456789abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"

// DefaultLength yields a key space of roughly 3.5e12.
const DefaultLength = 7

// Generator draws fixed-length keys uniformly from an alphabet. Alphabet and
// length are injectable so tests can shrink the key space.
type Generator struct {
	alphabet string
	length   int
}

// New returns a generator; zero values fall back to the defaults.
func New(alphabet string, length int) *Generator {
	if alphabet == "" {
		alphabet = DefaultAlphabet
	}
	if length <= 0 {
		length = DefaultLength
	}
	return &Generator{alphabet: alphabet, length: length}
}

// Generate returns one candidate key. Safe for concurrent use.
func (g *Generator) Generate() string {
	buf := make([]byte, g.length)
	for i := range buf {
		buf[i] = g.alphabet[rand.Intn(len(g.alphabet))]
	}
	return string(buf)
}

// Length reports the configured key length.
func (g *Generator) Length() int {
	return g.length
}
