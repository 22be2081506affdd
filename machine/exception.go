package machine

var excNames = [32]string{
	0:  "Divide Error",
	1:  "Debug",
	2:  "NMI",
	3:  "Breakpoint",
	4:  "Overflow",
	5:  "BOUND Range",
	6:  "Invalid Opcode",
	7:  "Device Not Available",
	8:  "Double Fault",
	10: "Invalid TSS",
	11: "Segment Not Present",
	12: "Stack Fault",
	13: "General Protection",
	14: "Page Fault",
	16: "x87 Floating-Point",
	17: "Alignment Check",
	18: "Machine Check",
	19: "SIMD Floating-Point",
	21: "Control Protection",
}

//go:nosplit
func Exception(vector, rip, errcode, cr2, rsp uint64) {
	var buf [16]byte
	DefaultWrite(0, []byte("Unhandled "))
	DefaultWrite(0, []byte(excNames[vector&31]))
	DefaultWrite(0, []byte(" Exception"))

	DefaultWrite(0, []byte("\nvector  0x"))
	DefaultWrite(0, itoa(buf[:], vector))
	DefaultWrite(0, []byte("\nrip     0x"))
	DefaultWrite(0, itoa(buf[:], rip))
	DefaultWrite(0, []byte("\nerrcode 0x"))
	DefaultWrite(0, itoa(buf[:], errcode))
	DefaultWrite(0, []byte("\ncr2     0x"))
	DefaultWrite(0, itoa(buf[:], cr2))
	DefaultWrite(0, []byte("\nrsp     0x"))
	DefaultWrite(0, itoa(buf[:], rsp))
	DefaultWrite(0, []byte("\n"))
}

//go:nosplit
func itoa(buf []byte, num uint64) []byte {
	for i := range 16 {
		char := byte(num>>(60-(4*i))) & 0xf
		if char > 9 {
			char += 'a' - 10
		} else {
			char += '0'
		}
		buf[i] = char
	}
	return buf
}
