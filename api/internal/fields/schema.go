package fields

import (
	"errors"
	"fmt"
	"strings"
)

// Kind is the semantic type of a canonical field.
type Kind int

const (
	Text Kind = iota
	Category
	Color
)

func (k Kind) String() string {
	switch k {
	case Text:
		return "text"
	case Category:
		return "category"
	case Color:
		return "color"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Group is the section of the filing a field belongs to.
type Group string

const (
	GroupNotice   Group = "notice"
	GroupAspect   Group = "aspect"
	GroupAnalysis Group = "analyse"
)

type Field struct {
	Name    string
	Kind    Kind
	Group   Group
	Label   string
	Default string
	// Choices is the closed vocabulary of a Category field.
	Choices []string
}

// Record is a complete, validated set of field values keyed by canonical name.
type Record map[string]string

func (r Record) Clone() Record {
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// Schema is an ordered, immutable list of canonical fields.
type Schema struct {
	name   string
	fields []Field
	byName map[string]int
	byKey  map[string]int // FoldKey(name) -> position
}

func New(name string, fs []Field) (*Schema, error) {
	if strings.TrimSpace(name) == "" {
		return nil, errors.New("schema name is empty")
	}
	if len(fs) == 0 {
		return nil, fmt.Errorf("schema %q has no fields", name)
	}
	s := &Schema{
		name:   name,
		fields: make([]Field, len(fs)),
		byName: make(map[string]int, len(fs)),
		byKey:  make(map[string]int, len(fs)),
	}
	for i, f := range fs {
		if strings.TrimSpace(f.Name) == "" {
			return nil, fmt.Errorf("schema %q: field %d has no name", name, i)
		}
		if f.Kind == Category && len(f.Choices) == 0 {
			return nil, fmt.Errorf("schema %q: category field %q has no choices", name, f.Name)
		}
		if _, dup := s.byName[f.Name]; dup {
			return nil, fmt.Errorf("schema %q: duplicate field %q", name, f.Name)
		}
		k := FoldKey(f.Name)
		if j, dup := s.byKey[k]; dup {
			return nil, fmt.Errorf("schema %q: fields %q and %q fold to the same key", name, fs[j].Name, f.Name)
		}
		f.Choices = append([]string(nil), f.Choices...)
		s.fields[i] = f
		s.byName[f.Name] = i
		s.byKey[k] = i
	}
	return s, nil
}

func MustNew(name string, fs []Field) *Schema {
	s, err := New(name, fs)
	if err != nil {
		panic(err)
	}
	return s
}

func (s *Schema) Name() string { return s.name }
func (s *Schema) Len() int     { return len(s.fields) }

func (s *Schema) Fields() []Field {
	out := make([]Field, len(s.fields))
	copy(out, s.fields)
	return out
}

// Names returns the canonical names in schema order.
func (s *Schema) Names() []string {
	out := make([]string, len(s.fields))
	for i, f := range s.fields {
		out[i] = f.Name
	}
	return out
}

func (s *Schema) Field(name string) (Field, bool) {
	i, ok := s.byName[name]
	if !ok {
		return Field{}, false
	}
	return s.fields[i], true
}

// Lookup matches an arbitrary key against the schema, ignoring case,
// diacritics and separators.
func (s *Schema) Lookup(key string) (Field, bool) {
	i, ok := s.byKey[FoldKey(key)]
	if !ok {
		return Field{}, false
	}
	return s.fields[i], true
}

func (s *Schema) Group(g Group) []Field {
	var out []Field
	for _, f := range s.fields {
		if f.Group == g {
			out = append(out, f)
		}
	}
	return out
}

// Blank returns a record filled with the field defaults. It is meant for
// review forms and document placeholders, never for completing model output.
func (s *Schema) Blank() Record {
	r := make(Record, len(s.fields))
	for _, f := range s.fields {
		r[f.Name] = f.Default
	}
	return r
}
