// Package task implements the kernel's task control block and the status
// machine governing a thread's life cycle. The actual register-level
// context switch is a hand-written assembly trampoline external to this
// core — a peripheral treated as an external collaborator; this
// package only defines the data it saves and restores, plus the type of
// the collaborator hook that performs the switch.
package task

// Context is the callee-saved register set a context switch preserves:
// return address, stack pointer, and the twelve RISC-V s-registers
// (s0..s11) the calling convention requires a callee to preserve across a
// call — the same set the trampoline's assembly (out of scope here) saves
// on a switch away and restores on a switch back.
type Context struct {
	RA uint64
	SP uint64
	S  [12]uint64
}

// SwitchFunc performs the actual register-level context switch between two
// tasks, saving the caller's registers into from and restoring into the
// CPU the registers saved in to. It is supplied by the architecture-specific
// trampoline (out of scope for this core). The kernel run loop does not
// call it: its suspend/block/exit methods return (prev, next) and the
// caller invokes the switch.
type SwitchFunc func(from, to *Context)

// ZeroContext returns a context with every field zeroed. task.New gives
// every new TCB one as its initial Ctx.
func ZeroContext() *Context { return &Context{} }
