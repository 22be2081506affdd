// Package irq distributes hardware events to driver supplied hooks.
//
// The kernel's interrupt handlers call [Dispatch] with the event kind
// they service; drivers and applications register interest with [Hook].
// Hooks run in handler mode and must follow the usual restrictions: no
// blocking, no allocation, no write barriers.
package irq

import (
	"embedded/rtos"
	"errors"

	_ "unsafe" // for linkname
)

// Kind enumerates the hardware events that can be hooked.
type Kind uint8

const (
	Timer Kind = iota
	Keyboard
	Mouse
	Sound

	numKinds
)

// Interrupt lines as routed by the legacy PIC pair. LineHDA is where the
// kernel expects the HDA controller's INTA# pin.
const (
	LineTimer    rtos.IRQ = 0
	LineKeyboard rtos.IRQ = 1
	LineHDA      rtos.IRQ = 11
	LineMouse    rtos.IRQ = 12
)

func (k Kind) line() rtos.IRQ {
	switch k {
	case Timer:
		return LineTimer
	case Keyboard:
		return LineKeyboard
	case Mouse:
		return LineMouse
	case Sound:
		return LineHDA
	}
	panic("irq: unknown kind")
}

// Enable unmasks the interrupt line that feeds events of kind k.
func Enable(k Kind) {
	k.line().Enable(rtos.IntPrioLow, 0)
}

// Disable masks the interrupt line that feeds events of kind k. Drivers
// bracket non-handler access to handler shared state with Disable/Enable.
func Disable(k Kind) {
	k.line().Disable(0)
}

const maxHooks = 8

var ErrNotHooked = errors.New("irq: not hooked")

type hook struct {
	id uint32 // nonzero while occupied
	fn func()
}

var (
	hooks  [numKinds][maxHooks]hook
	nextID uint32 = 1
)

func init() {
	LineHDA.Enable(rtos.IntPrioLow, 0)
}

//go:linkname hdaHandler IRQ11_Handler
//go:interrupthandler
func hdaHandler() {
	Dispatch(Sound)
}

// Handle identifies a previously installed hook. The zero Handle is
// invalid.
type Handle struct {
	kind Kind
	id   uint32
}

// Hook installs fn to be run whenever an event of kind k is dispatched
// and returns the hook's identity. It panics when all slots for the kind
// are occupied, which indicates a driver leaking hooks.
//
// Call from task context only: installing a hook stores a function
// value, which handler mode doesn't allow. A hook that serves recurring
// events stays installed and tracks its own state instead of rehooking.
func Hook(k Kind, fn func()) Handle {
	for i := range hooks[k] {
		if hooks[k][i].id != 0 {
			continue
		}
		id := nextID
		nextID++
		if nextID == 0 {
			nextID = 1
		}
		hooks[k][i].fn = fn
		hooks[k][i].id = id
		return Handle{kind: k, id: id}
	}
	panic("irq: hook slots exhausted")
}

// Unhook removes the hook identified by h. Returns ErrNotHooked if h was
// never installed or already removed.
//
// Safe in handler mode, which is how one-shot hooks remove themselves.
//
//go:nosplit
//go:nowritebarrierrec
func Unhook(h Handle) error {
	if h.id == 0 {
		return ErrNotHooked
	}
	for i := range hooks[h.kind] {
		if hooks[h.kind][i].id != h.id {
			continue
		}
		// Clear only the id. Dropping the fn reference would need a
		// write barrier, which handler mode doesn't allow. The stale
		// fn is overwritten when the slot is reused.
		hooks[h.kind][i].id = 0
		return nil
	}
	return ErrNotHooked
}

// Hooked returns the number of hooks currently installed for kind k.
func Hooked(k Kind) int {
	n := 0
	for i := range hooks[k] {
		if hooks[k][i].id != 0 {
			n++
		}
	}
	return n
}

// Dispatch runs all hooks installed for kind k. It is called by the
// kernel's interrupt handlers and, in tests, by hardware simulators.
//
//go:nosplit
//go:nowritebarrierrec
func Dispatch(k Kind) {
	for i := range hooks[k] {
		// Hooks may unhook themselves or install others while we
		// iterate; load fn together with the occupancy check.
		if hooks[k][i].id == 0 {
			continue
		}
		hooks[k][i].fn()
	}
}
