package codec

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/ssargent/eventring/pkg/wire"
)

// TypeKind identifies a schema node variant. The set is closed; the wire
// format has no room for open-ended extension.
type TypeKind int

const (
	TBool TypeKind = iota
	TFloat
	TString
	TU8
	TU16
	TU32
	TU64
	TU128
	TI8
	TI16
	TI32
	TI64
	TI128
	TEth
	TIP4
	TIP6
	TIP    // not yet decodable
	TCidr4 // not yet decodable
	TCidr6 // not yet decodable
	TCidr  // not yet decodable
	TList  // not yet decodable
	TTuple
	TVec
	TRecord
)

var kindNames = map[TypeKind]string{
	TBool: "bool", TFloat: "float", TString: "string",
	TU8: "u8", TU16: "u16", TU32: "u32", TU64: "u64", TU128: "u128",
	TI8: "i8", TI16: "i16", TI32: "i32", TI64: "i64", TI128: "i128",
	TEth: "eth", TIP4: "ip4", TIP6: "ip6",
	TIP: "ip", TCidr4: "cidr4", TCidr6: "cidr6", TCidr: "cidr",
	TList: "list", TTuple: "tuple", TVec: "vec", TRecord: "record",
}

var namedKinds = func() map[string]TypeKind {
	m := make(map[string]TypeKind, len(kindNames))
	for k, n := range kindNames {
		m[n] = k
	}
	return m
}()

func (k TypeKind) String() string {
	if n, ok := kindNames[k]; ok {
		return n
	}
	return fmt.Sprintf("TypeKind(%d)", int(k))
}

// ParseKind resolves a kind name such as "u32" or "record".
func ParseKind(name string) (TypeKind, error) {
	k, ok := namedKinds[name]
	if !ok {
		return 0, fmt.Errorf("codec: unknown type kind %q", name)
	}
	return k, nil
}

// Type is a schema descriptor node. Which fields are meaningful depends on
// Kind: Vec uses Dim and Elem, Tuple and Record use Fields, Record
// additionally uses SerOrder; scalars use none of them.
type Type struct {
	Kind     TypeKind
	Nullable bool

	Dim  int
	Elem *Type

	Fields []TypeField

	// SerOrder maps serialization position to declared field index. When
	// nil, fields are serialized in declared order.
	SerOrder []int
}

// TypeField is one declared member of a tuple or record. Tuple members have
// no name.
type TypeField struct {
	Name string
	Type *Type
}

// nullmaskWords returns the footprint of this composite's nullmask: one bit
// per nullable immediate child, rounded up to whole words.
func (t *Type) nullmaskWords() int {
	n := 0
	switch t.Kind {
	case TTuple, TRecord:
		for _, f := range t.Fields {
			if f.Type.Nullable {
				n++
			}
		}
	case TVec:
		if t.Elem.Nullable {
			n = t.Dim
		}
	}
	return wire.NullmaskWords(n)
}

// serOrder returns the wire visit order for a record's fields.
func (t *Type) serOrder() []int {
	if t.SerOrder != nil {
		return t.SerOrder
	}
	order := make([]int, len(t.Fields))
	for i := range order {
		order[i] = i
	}
	return order
}

// Validate checks structural consistency of the descriptor tree.
func (t *Type) Validate() error {
	switch t.Kind {
	case TVec:
		if t.Elem == nil {
			return fmt.Errorf("codec: vec without element type")
		}
		if t.Dim <= 0 {
			return fmt.Errorf("codec: vec with dimension %d", t.Dim)
		}
		return t.Elem.Validate()
	case TTuple:
		for i, f := range t.Fields {
			if f.Type == nil {
				return fmt.Errorf("codec: tuple item %d without type", i)
			}
			if err := f.Type.Validate(); err != nil {
				return err
			}
		}
	case TRecord:
		if t.SerOrder != nil {
			if len(t.SerOrder) != len(t.Fields) {
				return fmt.Errorf("codec: serialization order has %d entries for %d fields",
					len(t.SerOrder), len(t.Fields))
			}
			seen := make([]bool, len(t.Fields))
			for _, idx := range t.SerOrder {
				if idx < 0 || idx >= len(t.Fields) || seen[idx] {
					return fmt.Errorf("codec: serialization order is not a permutation")
				}
				seen[idx] = true
			}
		}
		for i, f := range t.Fields {
			if f.Name == "" {
				return fmt.Errorf("codec: record field %d without name", i)
			}
			if f.Type == nil {
				return fmt.Errorf("codec: record field %q without type", f.Name)
			}
			if err := f.Type.Validate(); err != nil {
				return err
			}
		}
	}
	return nil
}

// yamlType mirrors Type for unmarshaling, with kinds as names.
type yamlType struct {
	Kind     string `yaml:"kind"`
	Nullable bool   `yaml:"nullable"`
	Dim      int    `yaml:"dim"`
	Elem     *Type  `yaml:"elem"`
	Fields   []struct {
		Name     string `yaml:"name"`
		Type     *Type  `yaml:"type"`
		Nullable *bool  `yaml:"nullable"`
	} `yaml:"fields"`
	SerOrder []int `yaml:"serorder"`
}

// UnmarshalYAML decodes a schema descriptor from its YAML form, e.g.
//
//	kind: record
//	fields:
//	  - name: start
//	    type: {kind: float}
//	  - name: addr
//	    type: {kind: ip4, nullable: true}
//	serorder: [1, 0]
func (t *Type) UnmarshalYAML(node *yaml.Node) error {
	var y yamlType
	if err := node.Decode(&y); err != nil {
		return err
	}
	kind, err := ParseKind(y.Kind)
	if err != nil {
		return err
	}
	t.Kind = kind
	t.Nullable = y.Nullable
	t.Dim = y.Dim
	t.Elem = y.Elem
	t.SerOrder = y.SerOrder
	t.Fields = nil
	for _, f := range y.Fields {
		ft := f.Type
		if ft == nil {
			return fmt.Errorf("codec: field %q without type", f.Name)
		}
		if f.Nullable != nil {
			ft.Nullable = *f.Nullable
		}
		t.Fields = append(t.Fields, TypeField{Name: f.Name, Type: ft})
	}
	return nil
}

// LoadSchema reads and validates a YAML schema descriptor.
func LoadSchema(path string) (*Type, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("codec: reading schema: %w", err)
	}
	var t Type
	if err := yaml.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("codec: parsing schema: %w", err)
	}
	if err := t.Validate(); err != nil {
		return nil, err
	}
	return &t, nil
}
