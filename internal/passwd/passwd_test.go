package passwd

import (
	"context"
	"strings"
	"testing"

	"github.com/pkg/errors"
)

// testParams keeps hashing fast enough for unit tests.
var testParams = Params{Time: 1, MemoryKiB: 8 * 1024, Parallelism: 1, KeyLen: 32, SaltLen: 16}

func TestHashVerifyRoundTrip(t *testing.T) {
	h := NewHasher(testParams, 2)
	defer h.Close()

	encoded, err := h.Hash(context.Background(), []byte("correct horse"))
	if err != nil {
		t.Fatalf("Hash failed: %v", err)
	}
	if !strings.HasPrefix(encoded, "$argon2id$v=19$") {
		t.Fatalf("unexpected hash format: %s", encoded)
	}

	ok, err := h.Verify(context.Background(), encoded, []byte("correct horse"))
	if err != nil {
		t.Fatalf("Verify failed: %v", err)
	}
	if !ok {
		t.Fatal("correct password did not verify")
	}

	ok, err = h.Verify(context.Background(), encoded, []byte("battery staple"))
	if err != nil {
		t.Fatalf("Verify failed: %v", err)
	}
	if ok {
		t.Fatal("wrong password verified")
	}
}

func TestHashUsesFreshSalt(t *testing.T) {
	h := NewHasher(testParams, 1)
	defer h.Close()

	a, err := h.Hash(context.Background(), []byte("pw"))
	if err != nil {
		t.Fatalf("Hash failed: %v", err)
	}
	b, err := h.Hash(context.Background(), []byte("pw"))
	if err != nil {
		t.Fatalf("Hash failed: %v", err)
	}
	if a == b {
		t.Fatal("two hashes of the same password are identical, salt is not fresh")
	}
}

func TestParseEmbeddedParams(t *testing.T) {
	h := NewHasher(testParams, 1)
	defer h.Close()

	encoded, err := h.Hash(context.Background(), []byte("pw"))
	if err != nil {
		t.Fatalf("Hash failed: %v", err)
	}
	params, salt, hash, err := Parse(encoded)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if params.Time != testParams.Time || params.MemoryKiB != testParams.MemoryKiB || params.Parallelism != testParams.Parallelism {
		t.Fatalf("embedded params do not match: %+v", params)
	}
	if uint32(len(salt)) != testParams.SaltLen {
		t.Fatalf("expected %d salt bytes, got %d", testParams.SaltLen, len(salt))
	}
	if uint32(len(hash)) != testParams.KeyLen {
		t.Fatalf("expected %d hash bytes, got %d", testParams.KeyLen, len(hash))
	}
}

func TestVerifyMalformedHash(t *testing.T) {
	h := NewHasher(testParams, 1)
	defer h.Close()

	for _, encoded := range []string{
		"",
		"not a hash",
		"$argon2i$v=19$m=8192,t=1,p=1$c2FsdA$aGFzaA",
		"$argon2id$v=18$m=8192,t=1,p=1$c2FsdA$aGFzaA",
		"$argon2id$v=19$m=8192,t=1,p=1$c2FsdA",
		"$argon2id$v=19$m=8192,t=1,p=1$!!!$aGFzaA",
		"$argon2id$v=19$m=8192,p=1$c2FsdA$aGFzaA",
		"$argon2id$v=19$m=8192,t=1$c2FsdA$aGFzaA",
		"$argon2id$v=19$t=1,p=1$c2FsdA$aGFzaA",
		"$argon2id$v=19$m=0,t=0,p=0$c2FsdA$aGFzaA",
		"$argon2id$v=19$m=8192,t=1,p=1$$aGFzaA",
		"$argon2id$v=19$m=8192,t=1,p=1$c2FsdA$",
	} {
		if _, err := h.Verify(context.Background(), encoded, []byte("pw")); !errors.Is(err, ErrMalformedHash) {
			t.Errorf("Verify(%q) = %v, want ErrMalformedHash", encoded, err)
		}
	}
}

func TestVerifyAcceptsForeignParams(t *testing.T) {
	// A hash created with one parameter set must verify on a Hasher
	// configured with another, since the parameters travel in the hash.
	strong := NewHasher(Params{Time: 2, MemoryKiB: 16 * 1024, Parallelism: 2, KeyLen: 32, SaltLen: 16}, 1)
	defer strong.Close()
	weak := NewHasher(testParams, 1)
	defer weak.Close()

	encoded, err := strong.Hash(context.Background(), []byte("pw"))
	if err != nil {
		t.Fatalf("Hash failed: %v", err)
	}
	ok, err := weak.Verify(context.Background(), encoded, []byte("pw"))
	if err != nil {
		t.Fatalf("Verify failed: %v", err)
	}
	if !ok {
		t.Fatal("hash with foreign params did not verify")
	}
}

func TestPepperChangesDigest(t *testing.T) {
	plain := NewHasher(testParams, 1)
	defer plain.Close()
	peppered := NewHasher(Params{Time: 1, MemoryKiB: 8 * 1024, Parallelism: 1, KeyLen: 32, SaltLen: 16, Secret: "pepper"}, 1)
	defer peppered.Close()

	encoded, err := peppered.Hash(context.Background(), []byte("pw"))
	if err != nil {
		t.Fatalf("Hash failed: %v", err)
	}
	ok, err := plain.Verify(context.Background(), encoded, []byte("pw"))
	if err != nil {
		t.Fatalf("Verify failed: %v", err)
	}
	if ok {
		t.Fatal("hash verified without the configured pepper")
	}
	ok, err = peppered.Verify(context.Background(), encoded, []byte("pw"))
	if err != nil {
		t.Fatalf("Verify failed: %v", err)
	}
	if !ok {
		t.Fatal("hash did not verify with the configured pepper")
	}
}

func TestRunRespectsContext(t *testing.T) {
	h := NewHasher(testParams, 1)
	defer h.Close()

	// Occupy the single worker so the next submission has to queue.
	release := make(chan struct{})
	h.tasks <- func() { <-release }
	defer close(release)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := h.Hash(ctx, []byte("pw")); !errors.Is(err, context.Canceled) {
		t.Fatalf("Hash with cancelled context = %v, want context.Canceled", err)
	}
}
