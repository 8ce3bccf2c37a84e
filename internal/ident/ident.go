// Package ident allocates the short alphanumeric identifiers entries are
// addressed by.
package ident

import (
	"context"
	"crypto/rand"
	"math/big"

	"github.com/pkg/errors"
)

const alphabet = "0123456789abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"

// DefaultLength is the id length used when none is configured.
const DefaultLength = 6

// maxProbes bounds the collision retry loop. At sane length/occupancy ratios
// a single probe almost always suffices; hitting the bound means the id space
// is effectively full and allocation fails rather than spinning.
const maxProbes = 64

// ErrSpaceExhausted is returned when allocation keeps hitting occupied ids.
var ErrSpaceExhausted = errors.New("id space exhausted, increase the id length")

// Exister is the subset of the entry store the allocator needs.
type Exister interface {
	Exists(id string) (bool, error)
}

// New returns a uniformly random alphanumeric id of the given length.
func New(length int) (string, error) {
	if length <= 0 {
		length = DefaultLength
	}
	max := big.NewInt(int64(len(alphabet)))
	b := make([]byte, length)
	for i := range b {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", errors.Wrap(err, "failed to draw random id")
		}
		b[i] = alphabet[n.Int64()]
	}
	return string(b), nil
}

// Valid reports whether id is a well-formed identifier: non-empty and
// entirely drawn from the id alphabet.
func Valid(id string) bool {
	if id == "" {
		return false
	}
	for i := 0; i < len(id); i++ {
		c := id[i]
		if c >= '0' && c <= '9' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' {
			continue
		}
		return false
	}
	return true
}

// Allocate draws random ids of the given length until one is unused in the
// store. A collision window remains between the existence probe and a later
// insert; the store's insert-if-absent is what guarantees uniqueness, the
// probing only keeps the expected retry count near zero. Each probe checks
// ctx so an abandoned request stops allocating.
func Allocate(ctx context.Context, store Exister, length int) (string, error) {
	for i := 0; i < maxProbes; i++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		id, err := New(length)
		if err != nil {
			return "", err
		}
		taken, err := store.Exists(id)
		if err != nil {
			return "", err
		}
		if !taken {
			return id, nil
		}
	}
	return "", ErrSpaceExhausted
}
