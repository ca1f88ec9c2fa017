package ir

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestComputeIsOrderIndependent(t *testing.T) {
	a := Compute(FingerprintInput{
		BlockSet: []string{"b:emitter", "a:root"},
		Wiring:   []string{"root.out->emitter.in"},
		Seed:     7,
	})
	b := Compute(FingerprintInput{
		BlockSet: []string{"a:root", "b:emitter"},
		Wiring:   []string{"root.out->emitter.in"},
		Seed:     7,
	})

	if diff := cmp.Diff(a.Bytes(), b.Bytes()); diff != "" {
		t.Errorf("fingerprint should be order-independent over BlockSet (-got +want):\n%s", diff)
	}
}

func TestComputeDiffersOnSeed(t *testing.T) {
	base := FingerprintInput{BlockSet: []string{"a:root"}}
	a := Compute(base)
	base.Seed = 1
	b := Compute(base)

	if cmp.Equal(a.Bytes(), b.Bytes()) {
		t.Fatal("expected fingerprint to change when seed changes")
	}
}
