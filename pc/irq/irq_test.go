package irq_test

import (
	"errors"
	"testing"

	"github.com/clktmr/hda/pc/irq"
	hdatesting "github.com/clktmr/hda/testing"
)

func TestMain(m *testing.M) { hdatesting.TestMain(m) }

func TestHookDispatch(t *testing.T) {
	n := 0
	h := irq.Hook(irq.Timer, func() { n++ })
	if got := irq.Hooked(irq.Timer); got != 1 {
		t.Fatalf("expected 1 hook, got %d", got)
	}

	irq.Dispatch(irq.Timer)
	irq.Dispatch(irq.Timer)
	if n != 2 {
		t.Errorf("expected 2 runs, got %d", n)
	}

	if err := irq.Unhook(h); err != nil {
		t.Fatal(err)
	}
	irq.Dispatch(irq.Timer)
	if n != 2 {
		t.Error("hook ran after unhook")
	}
	if got := irq.Hooked(irq.Timer); got != 0 {
		t.Errorf("expected 0 hooks, got %d", got)
	}
}

func TestUnhookErrors(t *testing.T) {
	if err := irq.Unhook(irq.Handle{}); !errors.Is(err, irq.ErrNotHooked) {
		t.Errorf("zero handle: expected ErrNotHooked, got %v", err)
	}

	h := irq.Hook(irq.Keyboard, func() {})
	if err := irq.Unhook(h); err != nil {
		t.Fatal(err)
	}
	if err := irq.Unhook(h); !errors.Is(err, irq.ErrNotHooked) {
		t.Errorf("double unhook: expected ErrNotHooked, got %v", err)
	}
}

func TestStaleHandle(t *testing.T) {
	h1 := irq.Hook(irq.Keyboard, func() {})
	if err := irq.Unhook(h1); err != nil {
		t.Fatal(err)
	}

	// The new hook reuses the free slot, but under a fresh id. The old
	// handle must not be able to remove it.
	h2 := irq.Hook(irq.Keyboard, func() {})
	defer irq.Unhook(h2)

	if err := irq.Unhook(h1); !errors.Is(err, irq.ErrNotHooked) {
		t.Errorf("stale handle: expected ErrNotHooked, got %v", err)
	}
	if got := irq.Hooked(irq.Keyboard); got != 1 {
		t.Errorf("expected 1 hook, got %d", got)
	}
}

func TestMultipleHooks(t *testing.T) {
	var a, b int
	ha := irq.Hook(irq.Timer, func() { a++ })
	hb := irq.Hook(irq.Timer, func() { b++ })
	defer irq.Unhook(hb)

	irq.Dispatch(irq.Timer)
	if a != 1 || b != 1 {
		t.Errorf("expected both hooks to run, got %d and %d", a, b)
	}

	if err := irq.Unhook(ha); err != nil {
		t.Fatal(err)
	}
	irq.Dispatch(irq.Timer)
	if a != 1 || b != 2 {
		t.Errorf("expected only second hook to run, got %d and %d", a, b)
	}
}

// TestOneShot removes a hook from within its own dispatch, the way
// drivers disarm completion handlers in handler mode.
func TestOneShot(t *testing.T) {
	n := 0
	var h irq.Handle
	h = irq.Hook(irq.Timer, func() {
		n++
		irq.Unhook(h)
	})

	irq.Dispatch(irq.Timer)
	irq.Dispatch(irq.Timer)
	if n != 1 {
		t.Errorf("expected a single run, got %d", n)
	}
	if got := irq.Hooked(irq.Timer); got != 0 {
		t.Errorf("expected 0 hooks, got %d", got)
	}
}
