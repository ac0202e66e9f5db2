package arena

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAllocAndTryGet(t *testing.T) {
	a := New()
	defer a.Close()

	h := AllocShared(a, 42)
	got, err := TryGet(a, h)
	require.NoError(t, err)
	require.Equal(t, 42, *got)
}

// Scenario C from spec.md: a handle from one arena must be rejected by
// another.
func TestDifferentArenaError(t *testing.T) {
	a := New()
	b := New()
	defer a.Close()
	defer b.Close()

	h := AllocShared(a, 42)

	_, err := TryGet(b, h)
	if err == nil {
		t.Fatal("expected DifferentArenaError, got nil")
	}
	var daErr *DifferentArenaError
	if !errorsAs(err, &daErr) {
		t.Fatalf("expected *DifferentArenaError, got %T: %v", err, err)
	}
	if daErr.Want != b.Index() || daErr.Got != a.Index() {
		t.Errorf("unexpected arena indices in error: %+v", daErr)
	}
}

func errorsAs(err error, target **DifferentArenaError) bool {
	e, ok := err.(*DifferentArenaError)
	if !ok {
		return false
	}
	*target = e
	return true
}

func TestOwningShareRoundTrip(t *testing.T) {
	a := New()
	defer a.Close()

	own := AllocOwning(a, "hello")
	p, err := TryGetMut(a, &own)
	require.NoError(t, err)
	require.Equal(t, "hello", *p)

	shared := own.Share()
	p2, err := TryGet(a, shared)
	require.NoError(t, err)
	require.Equal(t, "hello", *p2)
}

func TestZeroSizedAllocationsAreNotTracked(t *testing.T) {
	a := New()
	defer a.Close()

	before := a.Allocs()
	for i := 0; i < 100; i++ {
		_ = AllocShared(a, struct{}{})
	}
	after := a.Allocs()

	if after != before {
		t.Errorf("zero-sized allocations should not be tracked: before=%d after=%d", before, after)
	}
}

// Scenario D from spec.md: drop order on arena close.
type dropRecorder struct {
	id    int
	order *[]int
}

func (d *dropRecorder) Drop() {
	*d.order = append(*d.order, d.id)
}

func TestDropOrderMatchesRegistrationOrder(t *testing.T) {
	a := New()

	var order []int
	for i := 0; i < 5; i++ {
		Alloc(a, &dropRecorder{id: i, order: &order})
	}

	a.Close()

	require.Equal(t, []int{0, 1, 2, 3, 4}, order)
}

func TestCloseIsIdempotent(t *testing.T) {
	a := New()

	Alloc(a, &dropRecorder{id: 0, order: &[]int{}})
	drops := 0
	Alloc(a, dropOnce(&drops))

	a.Close()
	a.Close()
	a.Close()

	if drops != 1 {
		t.Errorf("expected Drop to run exactly once across repeated Close calls, got %d", drops)
	}
}

type dropFunc func()

func (f dropFunc) Drop() { f() }

func dropOnce(counter *int) dropFunc {
	return func() { *counter++ }
}
