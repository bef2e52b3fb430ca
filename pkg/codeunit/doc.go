package codeunit

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/vmihailenco/msgpack/v5"
)

// instrDoc is the serialized form of an Instruction. The op class
// travels by name so documents survive enum reordering.
type instrDoc struct {
	Offset int    `msgpack:"offset" json:"offset"`
	Op     string `msgpack:"op" json:"op"`
	Target int    `msgpack:"target" json:"target"`
	Line   int    `msgpack:"line" json:"line"`
}

// unitDoc is the serialized form of a Unit, with child units nested
// inline instead of referenced by ID.
type unitDoc struct {
	Name         string     `msgpack:"name" json:"name"`
	Instructions []instrDoc `msgpack:"instructions" json:"instructions"`
	Handlers     []int      `msgpack:"handlers,omitempty" json:"handlers,omitempty"`
	Children     []unitDoc  `msgpack:"children,omitempty" json:"children,omitempty"`
}

func docFromUnit(p *Program, u *Unit, seen map[int]bool) unitDoc {
	seen[u.ID] = true

	d := unitDoc{Name: u.Name}
	d.Instructions = make([]instrDoc, len(u.Instructions))
	for i, ins := range u.Instructions {
		d.Instructions[i] = instrDoc{
			Offset: ins.Offset,
			Op:     ins.Op.String(),
			Target: ins.Target,
			Line:   ins.Line,
		}
	}
	if len(u.Handlers) > 0 {
		d.Handlers = append([]int(nil), u.Handlers...)
	}
	for _, id := range u.Children {
		child := p.Unit(id)
		if child == nil || seen[id] {
			continue
		}
		d.Children = append(d.Children, docFromUnit(p, child, seen))
	}
	return d
}

func addDoc(p *Program, d unitDoc) int {
	u := Unit{Name: d.Name}
	u.Instructions = make([]Instruction, len(d.Instructions))
	for i, ins := range d.Instructions {
		u.Instructions[i] = Instruction{
			Offset: ins.Offset,
			Op:     ClassFromName(ins.Op),
			Target: ins.Target,
			Line:   ins.Line,
		}
	}
	if len(d.Handlers) > 0 {
		u.Handlers = append([]int(nil), d.Handlers...)
	}

	id := p.Add(u)
	if len(d.Children) > 0 {
		ids := make([]int, 0, len(d.Children))
		for _, cd := range d.Children {
			ids = append(ids, addDoc(p, cd))
		}
		p.Unit(id).Children = ids
	}
	return id
}

func programFromDoc(d unitDoc) *Program {
	p := NewProgram()
	addDoc(p, d)
	return p
}

// Encode writes the program as a msgpack unit document.
func Encode(w io.Writer, p *Program) error {
	root := p.Root()
	if root == nil {
		return errors.New("cannot encode an empty program")
	}
	doc := docFromUnit(p, root, make(map[int]bool, p.Len()))
	return msgpack.NewEncoder(w).Encode(doc)
}

// Decode reads a msgpack unit document written by Encode.
func Decode(r io.Reader) (*Program, error) {
	var doc unitDoc
	if err := msgpack.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("failed to decode unit document: %w", err)
	}
	return programFromDoc(doc), nil
}

// EncodeJSON writes the program as an indented JSON unit document.
func EncodeJSON(w io.Writer, p *Program) error {
	root := p.Root()
	if root == nil {
		return errors.New("cannot encode an empty program")
	}
	doc := docFromUnit(p, root, make(map[int]bool, p.Len()))
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(doc)
}

// DecodeJSON reads a JSON unit document written by EncodeJSON.
func DecodeJSON(r io.Reader) (*Program, error) {
	var doc unitDoc
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("failed to decode unit document: %w", err)
	}
	return programFromDoc(doc), nil
}
