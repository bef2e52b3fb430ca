package codeunit

// Class categorizes an instruction by its effect on control flow.
type Class int

const (
	// OpOther is any instruction that always falls through.
	OpOther Class = iota
	// OpJump transfers control unconditionally.
	OpJump
	// OpCondJump either jumps to Target or falls through, depending on a
	// consumed condition.
	OpCondJump
	// OpBackJump jumps backwards, closing a loop.
	OpBackJump
	// OpBoolJump branches on a boolean test. These are the decision
	// points condition coverage is measured against.
	OpBoolJump
	// OpTerm leaves the unit: a return, raise, or re-raise.
	OpTerm
)

var classNames = [...]string{
	OpOther:    "other",
	OpJump:     "jump",
	OpCondJump: "cond_jump",
	OpBackJump: "back_jump",
	OpBoolJump: "bool_jump",
	OpTerm:     "term",
}

// String returns the stable wire name of the class.
func (c Class) String() string {
	if c < 0 || int(c) >= len(classNames) {
		return classNames[OpOther]
	}
	return classNames[c]
}

// ClassFromName maps a wire name back to its class. Unrecognized names
// classify as OpOther so documents from newer producers stay readable.
func ClassFromName(name string) Class {
	for i, n := range classNames {
		if n == name {
			return Class(i)
		}
	}
	return OpOther
}

// IsJump reports whether the instruction can transfer control to its
// Target offset.
func (c Class) IsJump() bool {
	switch c {
	case OpJump, OpCondJump, OpBackJump, OpBoolJump:
		return true
	}
	return false
}

// BreaksFlow reports whether execution never falls through to the next
// instruction.
func (c Class) BreaksFlow() bool {
	switch c {
	case OpJump, OpBackJump, OpTerm:
		return true
	}
	return false
}
