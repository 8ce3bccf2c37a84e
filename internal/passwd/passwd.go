// Package passwd derives and verifies Argon2id password hashes in PHC string
// format: $argon2id$v=19$m=65536,t=1,p=4$<saltB64>$<hashB64>.
//
// Hashing is CPU- and memory-intensive on purpose. All digest computation is
// dispatched to a small fixed pool of worker goroutines so that a burst of
// login attempts cannot occupy every scheduler thread and starve unrelated
// request handling; callers block until their computation is done.
package passwd

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"runtime"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"golang.org/x/crypto/argon2"
)

// ErrMalformedHash is returned by Verify when the encoded hash cannot be
// parsed. A wrong password is not an error, it is a false result.
var ErrMalformedHash = errors.New("malformed argon2id hash")

// Params configures Argon2id hashing parameters
type Params struct {
	Time        uint32 `yaml:"time"`
	MemoryKiB   uint32 `yaml:"memory_kib"`
	Parallelism uint8  `yaml:"parallelism"`
	KeyLen      uint32 `yaml:"key_len"`
	SaltLen     uint32 `yaml:"salt_len"`
	// Secret is an optional pepper mixed into every digest. It is not
	// embedded in encoded hashes and must be configured identically
	// wherever hashes are verified.
	Secret string `yaml:"secret"`
}

// DefaultParams returns the parameter set used when a field is left at its
// zero value
func DefaultParams() Params {
	return Params{Time: 1, MemoryKiB: 64 * 1024, Parallelism: 4, KeyLen: 32, SaltLen: 16}
}

func (p Params) withDefaults() Params {
	d := DefaultParams()
	if p.Time == 0 {
		p.Time = d.Time
	}
	if p.MemoryKiB == 0 {
		p.MemoryKiB = d.MemoryKiB
	}
	if p.Parallelism == 0 {
		p.Parallelism = d.Parallelism
	}
	if p.KeyLen == 0 {
		p.KeyLen = d.KeyLen
	}
	if p.SaltLen == 0 {
		p.SaltLen = d.SaltLen
	}
	return p
}

// Hasher computes and verifies password hashes on a bounded worker pool.
type Hasher struct {
	params Params
	tasks  chan func()
}

// NewHasher returns a Hasher using the passed parameters (zero fields fall
// back to defaults) and starts its worker pool. workers <= 0 uses GOMAXPROCS.
func NewHasher(params Params, workers int) *Hasher {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	h := &Hasher{
		params: params.withDefaults(),
		tasks:  make(chan func()),
	}
	for i := 0; i < workers; i++ {
		go func() {
			for fn := range h.tasks {
				fn()
			}
		}()
	}
	return h
}

// Close stops the worker pool. Calls to Hash or Verify after Close panic.
func (h *Hasher) Close() {
	close(h.tasks)
}

// run hands fn to a pool worker and waits for it to finish. Submission is
// abandoned when ctx expires first; a computation already picked up runs to
// completion but its result is dropped.
func (h *Hasher) run(ctx context.Context, fn func()) error {
	done := make(chan struct{})
	wrapped := func() {
		fn()
		close(done)
	}
	select {
	case h.tasks <- wrapped:
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Hash derives a salted digest of password and returns it as a PHC-formatted
// string. A fresh random salt is drawn per call; salt and parameters are
// embedded in the result so verification is self-describing.
func (h *Hasher) Hash(ctx context.Context, password []byte) (string, error) {
	p := h.params
	salt := make([]byte, p.SaltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", errors.Wrap(err, "failed to draw salt")
	}
	var dk []byte
	if err := h.run(
		ctx, func() {
			dk = argon2.IDKey(h.pepper(password), salt, p.Time, p.MemoryKiB, p.Parallelism, p.KeyLen)
		},
	); err != nil {
		return "", err
	}
	saltB64 := base64.RawStdEncoding.EncodeToString(salt)
	hashB64 := base64.RawStdEncoding.EncodeToString(dk)
	return fmt.Sprintf("$argon2id$v=19$m=%d,t=%d,p=%d$%s$%s", p.MemoryKiB, p.Time, p.Parallelism, saltB64, hashB64), nil
}

// Verify recomputes the digest of password using the parameters embedded in
// encoded and compares in constant time. It returns false for a wrong
// password and ErrMalformedHash for input it cannot parse.
func (h *Hasher) Verify(ctx context.Context, encoded string, password []byte) (bool, error) {
	params, salt, hash, err := Parse(encoded)
	if err != nil {
		return false, err
	}
	var dk []byte
	if err = h.run(
		ctx, func() {
			dk = argon2.IDKey(h.pepper(password), salt, params.Time, params.MemoryKiB, params.Parallelism, uint32(len(hash)))
		},
	); err != nil {
		return false, err
	}
	return subtle.ConstantTimeCompare(dk, hash) == 1, nil
}

// pepper mixes the configured secret into the password bytes. The secret is
// never embedded in encoded hashes.
func (h *Hasher) pepper(password []byte) []byte {
	if h.params.Secret == "" {
		return password
	}
	out := make([]byte, 0, len(password)+len(h.params.Secret))
	out = append(out, password...)
	out = append(out, h.params.Secret...)
	return out
}

// Parse parses a PHC-formatted argon2id hash and returns parameters, salt and
// hash bytes. All parse failures wrap ErrMalformedHash.
func Parse(encoded string) (Params, []byte, []byte, error) {
	var out Params
	if !strings.HasPrefix(encoded, "$argon2id$") {
		return out, nil, nil, errors.Wrap(ErrMalformedHash, "unsupported hash format")
	}
	parts := strings.Split(encoded, "$")
	if len(parts) != 6 {
		return out, nil, nil, errors.Wrap(ErrMalformedHash, "wrong number of fields")
	}
	if parts[2] != "v=19" {
		return out, nil, nil, errors.Wrap(ErrMalformedHash, "unsupported argon2 version")
	}
	for _, kv := range strings.Split(parts[3], ",") {
		switch {
		case strings.HasPrefix(kv, "m="):
			v, err := strconv.ParseUint(strings.TrimPrefix(kv, "m="), 10, 32)
			if err != nil {
				return out, nil, nil, errors.Wrap(ErrMalformedHash, err.Error())
			}
			out.MemoryKiB = uint32(v)
		case strings.HasPrefix(kv, "t="):
			v, err := strconv.ParseUint(strings.TrimPrefix(kv, "t="), 10, 32)
			if err != nil {
				return out, nil, nil, errors.Wrap(ErrMalformedHash, err.Error())
			}
			out.Time = uint32(v)
		case strings.HasPrefix(kv, "p="):
			v, err := strconv.ParseUint(strings.TrimPrefix(kv, "p="), 10, 8)
			if err != nil {
				return out, nil, nil, errors.Wrap(ErrMalformedHash, err.Error())
			}
			out.Parallelism = uint8(v)
		}
	}
	// argon2.IDKey panics on zero rounds or parallelism, so an incomplete
	// params section must be rejected here.
	if out.MemoryKiB == 0 || out.Time == 0 || out.Parallelism == 0 {
		return out, nil, nil, errors.Wrap(ErrMalformedHash, "incomplete parameter section")
	}
	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return out, nil, nil, errors.Wrap(ErrMalformedHash, "bad salt encoding")
	}
	if len(salt) == 0 {
		return out, nil, nil, errors.Wrap(ErrMalformedHash, "empty salt")
	}
	hash, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil {
		return out, nil, nil, errors.Wrap(ErrMalformedHash, "bad hash encoding")
	}
	if len(hash) == 0 {
		return out, nil, nil, errors.Wrap(ErrMalformedHash, "empty hash")
	}
	out.SaltLen = uint32(len(salt))
	out.KeyLen = uint32(len(hash))
	return out, salt, hash, nil
}
