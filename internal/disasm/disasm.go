// Package disasm renders a chunk's machine code as a sequence of x86-64
// instructions for diagnostic logging. It is adapted from a multi-
// architecture Seq/Inst disassembly abstraction (which also covered
// arm64), narrowed down to the single architecture this linker ever
// emits code for, and producing plain strings instead of an iterable
// instruction-sequence type, since the only consumer is cmd/tinyld's
// verbose log.
package disasm

import (
	"fmt"
	"strings"

	"golang.org/x/arch/x86/x86asm"
)

// Kind classifies an instruction's effect on control flow, for annotating
// call/jump/ret instructions in the verbose log.
type Kind int

const (
	KindOther Kind = iota
	KindCall
	KindJump
	KindRet
)

// Instruction is one decoded instruction at a known program counter.
type Instruction struct {
	PC   uint64
	Len  int
	Text string
	Kind Kind
}

// Disassemble decodes code as a sequence of 64-bit x86 instructions,
// starting at virtual address pc. An undecodable byte is reported as a
// one-byte "?" instruction and decoding resynchronizes on the next byte,
// so one bad instruction doesn't stop the rest of the chunk from being
// logged.
func Disassemble(code []byte, pc uint64) []Instruction {
	var out []Instruction
	for len(code) > 0 {
		inst, err := x86asm.Decode(code, 64)
		size := inst.Len
		if err != nil || size == 0 || inst.Op == 0 {
			inst = x86asm.Inst{}
			size = 1
		}

		out = append(out, Instruction{
			PC:   pc,
			Len:  size,
			Text: syntax(inst, pc),
			Kind: classify(inst),
		})

		code = code[size:]
		pc += uint64(size)
	}
	return out
}

func syntax(inst x86asm.Inst, pc uint64) string {
	if inst.Op == 0 {
		return "?"
	}
	return x86asm.GoSyntax(inst, pc, nil)
}

func classify(inst x86asm.Inst) Kind {
	switch inst.Op {
	case x86asm.CALL, x86asm.LCALL, x86asm.SYSCALL, x86asm.SYSENTER:
		return KindCall
	case x86asm.RET, x86asm.LRET, x86asm.SYSRET, x86asm.SYSEXIT:
		return KindRet
	case x86asm.JMP, x86asm.LJMP,
		x86asm.JA, x86asm.JAE, x86asm.JB, x86asm.JBE, x86asm.JCXZ, x86asm.JE,
		x86asm.JECXZ, x86asm.JG, x86asm.JGE, x86asm.JL, x86asm.JLE, x86asm.JNE,
		x86asm.JNO, x86asm.JNP, x86asm.JNS, x86asm.JO, x86asm.JP, x86asm.JRCXZ,
		x86asm.JS, x86asm.LOOP, x86asm.LOOPE, x86asm.LOOPNE, x86asm.XBEGIN:
		return KindJump
	default:
		return KindOther
	}
}

// Dump renders a sequence of instructions as one log-friendly multi-line
// string, one instruction per line, prefixed with its address.
func Dump(insts []Instruction) string {
	var b strings.Builder
	for _, in := range insts {
		marker := ""
		switch in.Kind {
		case KindCall:
			marker = " ; call"
		case KindJump:
			marker = " ; jump"
		case KindRet:
			marker = " ; ret"
		}
		fmt.Fprintf(&b, "%8x: %s%s\n", in.PC, in.Text, marker)
	}
	return b.String()
}
