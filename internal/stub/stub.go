// Package stub decodes the system-service number loaded by an x86 or x64
// syscall stub.
package stub

import (
	"golang.org/x/arch/x86/x86asm"
)

// maxInstructions bounds how far into a stub the decoder looks.
const maxInstructions = 4

// ServiceMask keeps the table selector and index bits of a service number.
const ServiceMask = 0x3FFF

// DecodeNumber looks for "mov eax, imm32" among the first instructions of
// code and returns the immediate. mode is 32 or 64.
func DecodeNumber(code []byte, mode int) (uint32, bool) {
	if mode != 32 && mode != 64 {
		return 0, false
	}

	for i := 0; i < maxInstructions && len(code) > 0; i++ {
		inst, err := x86asm.Decode(code, mode)
		if err != nil {
			return 0, false
		}

		switch inst.Op {
		case x86asm.MOV:
			if inst.Args[0] == x86asm.EAX {
				if imm, ok := inst.Args[1].(x86asm.Imm); ok {
					return uint32(imm), true
				}
			}
		case x86asm.RET, x86asm.JMP, x86asm.SYSCALL, x86asm.SYSENTER, x86asm.CALL:
			return 0, false
		}

		code = code[inst.Len:]
	}
	return 0, false
}
