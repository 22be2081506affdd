package cpu

// Port I/O for the legacy x86 I/O address space. Reads and writes are
// serializing on the bus, no further ordering is required around them.

// In8 reads a byte from an I/O port.
func In8(port uint16) uint8

// Out8 writes a byte to an I/O port.
func Out8(port uint16, data uint8)

// In16 reads a word from an I/O port.
func In16(port uint16) uint16

// Out16 writes a word to an I/O port.
func Out16(port uint16, data uint16)

// In32 reads a dword from an I/O port.
func In32(port uint16) uint32

// Out32 writes a dword to an I/O port.
func Out32(port uint16, data uint32)
