package translate

import "github.com/Giuseppe-Bianc/jsavrs-sub003/internal/abi"

// Config controls one translation run.
type Config struct {
	// ABI is the target calling convention.  Nil selects the host's own.
	ABI *abi.Spec

	// UnreachableTrap emits a ud2 trap for Unreachable terminators.
	// When false an Unreachable block ends without any instruction.
	UnreachableTrap bool

	// EmitMapping populates Output.Mapping with the IR→assembly side file.
	EmitMapping bool

	// FrameLimit rejects functions whose stack frame exceeds this many
	// bytes with a stack-overflow error.
	FrameLimit int
}

// DefaultConfig returns the defaults: host ABI, trapping Unreachable,
// no mapping, 1 MiB frame limit.
func DefaultConfig() *Config {
	return &Config{
		ABI:             abi.Host(),
		UnreachableTrap: true,
		FrameLimit:      1 << 20,
	}
}

func (c *Config) withDefaults() *Config {
	out := *c
	if out.ABI == nil {
		out.ABI = abi.Host()
	}
	if out.FrameLimit <= 0 {
		out.FrameLimit = 1 << 20
	}
	return &out
}
