package randutil

import "testing"

func TestNewIsDeterministic(t *testing.T) {
	t.Parallel()

	a, b := New(99), New(99)
	for i := 0; i < 10; i++ {
		if x, y := a.Uint64(), b.Uint64(); x != y {
			t.Fatalf("draw %d differs: %d != %d", i, x, y)
		}
	}
}

func TestDeriveGivesIndependentStreams(t *testing.T) {
	t.Parallel()

	parent := New(5)
	c1, c2 := Derive(parent), Derive(parent)
	if c1.Uint64() == c2.Uint64() {
		t.Error("derived streams should differ")
	}
}
