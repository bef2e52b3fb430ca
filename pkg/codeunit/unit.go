// Package codeunit models compiled code objects: instruction streams,
// exception handlers, and their nesting into a whole program.
package codeunit

// Instruction is a single compiled instruction.
type Instruction struct {
	Offset int
	Op     Class
	Target int // jump destination offset, meaningful only when Op.IsJump()
	Line   int // source line, 0 when the compiler recorded none
}

// Unit is one compiled code object: a module body, function body, class
// body, or comprehension. Children holds the IDs of units defined inside
// this one, in definition order. Instructions are in ascending offset
// order.
type Unit struct {
	ID           int
	Name         string
	Instructions []Instruction
	Handlers     []int // exception handler entry offsets
	Children     []int
}

// Last returns the unit's final instruction, or nil for an empty unit.
func (u *Unit) Last() *Instruction {
	if len(u.Instructions) == 0 {
		return nil
	}
	return &u.Instructions[len(u.Instructions)-1]
}

// Program is a flat arena of units. The first unit added is the root
// (the module body); child links are arena IDs rather than pointers so
// programs serialize without back-references.
type Program struct {
	units []Unit
}

// NewProgram returns an empty program.
func NewProgram() *Program {
	return &Program{}
}

// Add appends a unit to the arena, assigns its ID, and returns that ID.
// Pointers previously returned by Unit or Root may be invalidated.
func (p *Program) Add(u Unit) int {
	u.ID = len(p.units)
	p.units = append(p.units, u)
	return u.ID
}

// Len returns the number of units in the arena.
func (p *Program) Len() int {
	return len(p.units)
}

// Unit returns the unit with the given ID, or nil when no such unit
// exists. The pointer is valid until the next Add.
func (p *Program) Unit(id int) *Unit {
	if id < 0 || id >= len(p.units) {
		return nil
	}
	return &p.units[id]
}

// Root returns the module-level unit, or nil for an empty program.
func (p *Program) Root() *Unit {
	return p.Unit(0)
}

// Walk visits units in preorder starting from the root. Units not
// reachable through child links are skipped, as is any unit already
// visited, so malformed child links cannot recurse forever.
func (p *Program) Walk(fn func(u *Unit)) {
	if len(p.units) == 0 {
		return
	}
	seen := make(map[int]bool, len(p.units))
	p.walk(0, seen, fn)
}

func (p *Program) walk(id int, seen map[int]bool, fn func(u *Unit)) {
	if id < 0 || id >= len(p.units) || seen[id] {
		return
	}
	seen[id] = true
	fn(&p.units[id])
	for _, child := range p.units[id].Children {
		p.walk(child, seen, fn)
	}
}
