// Package abi describes the two supported x86-64 calling conventions as
// constant, allocation-free fact tables.  Everything convention-specific that
// the translator needs — parameter registers, register ownership, stack-frame
// rules — lives here, so translation code never branches on the platform.
package abi

import (
	"fmt"
	"runtime"
)

// Syntax is the assembly dialect a convention is conventionally written in.
type Syntax int

const (
	GAS   Syntax = iota // AT&T syntax, GNU as
	Intel               // Intel syntax, NASM
)

// Spec is one calling convention's complete fact table.
type Spec struct {
	Name   string
	Syntax Syntax

	// Parameter passing.  IntParamRegs and FloatParamRegs are indexed by
	// parameter position; OverlapParamIndices reports whether the two index
	// spaces share positions (Windows x64) or advance independently
	// (System V).
	IntParamRegs        []string
	FloatParamRegs      []string
	OverlapParamIndices bool

	// Register classification, priority-ordered for allocation.
	// Volatile registers are caller-saved; NonVolatile are callee-saved.
	// Scratch lists the registers the temp allocator may hand out, volatile
	// first; ScratchNonVolatile is the subset of Scratch that must be saved
	// in the prologue when used.
	Volatile           []string
	NonVolatile        []string
	Scratch            []string
	FloatScratch       []string
	ScratchNonVolatile []string

	// Fixed roles.
	ReturnReg      string
	FloatReturnReg string
	StackPointer   string
	BasePointer    string

	// Stack-frame facts.
	StackAlign    int
	RedZone       int  // bytes below rsp usable by leaf functions; 0 = none
	ShadowSpace   int  // caller-reserved bytes before every call; 0 = none
	FramePointer  bool // convention requires establishing rbp
	StackSlotSize int
}

// SysV is the System V AMD64 ABI (Linux, macOS, the BSDs).
var SysV = &Spec{
	Name:                "sysv",
	Syntax:              GAS,
	IntParamRegs:        []string{"rdi", "rsi", "rdx", "rcx", "r8", "r9"},
	FloatParamRegs:      []string{"xmm0", "xmm1", "xmm2", "xmm3", "xmm4", "xmm5", "xmm6", "xmm7"},
	OverlapParamIndices: false,
	Volatile:            []string{"rax", "rcx", "rdx", "rsi", "rdi", "r8", "r9", "r10", "r11"},
	NonVolatile:         []string{"rbx", "rbp", "r12", "r13", "r14", "r15"},
	Scratch:             []string{"r10", "r11", "rbx", "r12"},
	FloatScratch:        []string{"xmm8", "xmm9", "xmm10", "xmm11"},
	ScratchNonVolatile:  []string{"rbx", "r12"},
	ReturnReg:           "rax",
	FloatReturnReg:      "xmm0",
	StackPointer:        "rsp",
	BasePointer:         "rbp",
	StackAlign:          16,
	RedZone:             128,
	ShadowSpace:         0,
	FramePointer:        true,
	StackSlotSize:       8,
}

// Win64 is the Microsoft x64 calling convention.
var Win64 = &Spec{
	Name:                "win64",
	Syntax:              Intel,
	IntParamRegs:        []string{"rcx", "rdx", "r8", "r9"},
	FloatParamRegs:      []string{"xmm0", "xmm1", "xmm2", "xmm3"},
	OverlapParamIndices: true,
	Volatile:            []string{"rax", "rcx", "rdx", "r8", "r9", "r10", "r11"},
	NonVolatile:         []string{"rbx", "rbp", "rdi", "rsi", "r12", "r13", "r14", "r15"},
	Scratch:             []string{"r10", "r11", "rbx", "r12"},
	FloatScratch:        []string{"xmm4", "xmm5"},
	ScratchNonVolatile:  []string{"rbx", "r12"},
	ReturnReg:           "rax",
	FloatReturnReg:      "xmm0",
	StackPointer:        "rsp",
	BasePointer:         "rbp",
	StackAlign:          16,
	RedZone:             0,
	ShadowSpace:         32,
	FramePointer:        true,
	StackSlotSize:       8,
}

// Lookup resolves a convention by its command-line identifier.
func Lookup(name string) (*Spec, error) {
	switch name {
	case "sysv":
		return SysV, nil
	case "win64":
		return Win64, nil
	default:
		return nil, fmt.Errorf("unknown target ABI %q (supported: sysv, win64)", name)
	}
}

// Host returns the convention of the platform the translator itself runs on.
func Host() *Spec {
	if runtime.GOOS == "windows" {
		return Win64
	}
	return SysV
}

// IntParamReg returns the register for integer parameter index i, or false
// when the index falls beyond the register-passed window.
func (s *Spec) IntParamReg(i int) (string, bool) {
	if i < 0 || i >= len(s.IntParamRegs) {
		return "", false
	}
	return s.IntParamRegs[i], true
}

// FloatParamReg returns the register for floating-point parameter index i,
// or false when the index falls beyond the register-passed window.
func (s *Spec) FloatParamReg(i int) (string, bool) {
	if i < 0 || i >= len(s.FloatParamRegs) {
		return "", false
	}
	return s.FloatParamRegs[i], true
}

// MaxIntParams is the number of integer parameters passed in registers.
func (s *Spec) MaxIntParams() int { return len(s.IntParamRegs) }

// MaxFloatParams is the number of float parameters passed in registers.
func (s *Spec) MaxFloatParams() int { return len(s.FloatParamRegs) }

// IsVolatile reports whether reg is caller-saved under this convention.
func (s *Spec) IsVolatile(reg string) bool { return contains(s.Volatile, reg) }

// IsNonVolatile reports whether reg is callee-saved under this convention.
func (s *Spec) IsNonVolatile(reg string) bool { return contains(s.NonVolatile, reg) }

// IsParamReg reports whether reg carries a parameter under this convention.
func (s *Spec) IsParamReg(reg string) bool {
	return contains(s.IntParamRegs, reg) || contains(s.FloatParamRegs, reg)
}

func contains(regs []string, r string) bool {
	for _, x := range regs {
		if x == r {
			return true
		}
	}
	return false
}
