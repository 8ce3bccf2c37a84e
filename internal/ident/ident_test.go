package ident

import (
	"context"
	"strings"
	"testing"

	"github.com/pkg/errors"
)

func TestNewLengthAndAlphabet(t *testing.T) {
	for _, length := range []int{1, 6, 12, 32} {
		id, err := New(length)
		if err != nil {
			t.Fatalf("New(%d) failed: %v", length, err)
		}
		if len(id) != length {
			t.Fatalf("New(%d) returned %q (len %d)", length, id, len(id))
		}
		for i := 0; i < len(id); i++ {
			if !strings.ContainsRune(alphabet, rune(id[i])) {
				t.Fatalf("New(%d) returned %q with byte %q outside the alphabet", length, id, id[i])
			}
		}
	}
}

func TestNewDefaultsLength(t *testing.T) {
	id, err := New(0)
	if err != nil {
		t.Fatalf("New(0) failed: %v", err)
	}
	if len(id) != DefaultLength {
		t.Fatalf("New(0) returned %q, want length %d", id, DefaultLength)
	}
}

func TestValid(t *testing.T) {
	for id, want := range map[string]bool{
		"":        false,
		"abc123":  true,
		"ABCxyz0": true,
		"a b":     false,
		"a/b":     false,
		"ä":       false,
		"a-b":     false,
	} {
		if got := Valid(id); got != want {
			t.Errorf("Valid(%q) = %v, want %v", id, got, want)
		}
	}
}

// existerFunc adapts a function to the Exister interface
type existerFunc func(id string) (bool, error)

func (f existerFunc) Exists(id string) (bool, error) { return f(id) }

func TestAllocateRetriesCollisions(t *testing.T) {
	probes := 0
	store := existerFunc(
		func(id string) (bool, error) {
			probes++
			return probes <= 3, nil
		},
	)
	id, err := Allocate(context.Background(), store, 6)
	if err != nil {
		t.Fatalf("Allocate failed: %v", err)
	}
	if len(id) != 6 {
		t.Fatalf("allocated %q, want length 6", id)
	}
	if probes != 4 {
		t.Fatalf("expected 4 probes, got %d", probes)
	}
}

func TestAllocateGivesUpOnFullSpace(t *testing.T) {
	store := existerFunc(func(string) (bool, error) { return true, nil })
	if _, err := Allocate(context.Background(), store, 1); !errors.Is(err, ErrSpaceExhausted) {
		t.Fatalf("Allocate on full space = %v, want ErrSpaceExhausted", err)
	}
}

func TestAllocateRespectsContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	store := existerFunc(func(string) (bool, error) { return false, nil })
	if _, err := Allocate(ctx, store, 6); !errors.Is(err, context.Canceled) {
		t.Fatalf("Allocate with cancelled context = %v, want context.Canceled", err)
	}
}

func TestAllocatePropagatesStoreErrors(t *testing.T) {
	boom := errors.New("boom")
	store := existerFunc(func(string) (bool, error) { return false, boom })
	if _, err := Allocate(context.Background(), store, 6); !errors.Is(err, boom) {
		t.Fatalf("Allocate = %v, want store error", err)
	}
}
