package shaders

import (
	"fmt"
	"strings"
)

// Section is a slot in the program layout. Fragments are emitted in section
// order, then in insertion order within a section.
type Section uint8

const (
	SectionHeader Section = iota
	SectionCommon
	SectionTransform
	SectionClipping
	SectionShading
	SectionMain
	numSections
)

func (s Section) String() string {
	switch s {
	case SectionHeader:
		return "header"
	case SectionCommon:
		return "common"
	case SectionTransform:
		return "transform"
	case SectionClipping:
		return "clipping"
	case SectionShading:
		return "shading"
	case SectionMain:
		return "main"
	}
	return "unknown"
}

type fragment struct {
	name string
	text string
}

// Source assembles WGSL from named fragments.
type Source struct {
	sections [numSections][]fragment
	names    map[string]Section
}

func NewSource() *Source {
	return &Source{names: make(map[string]Section)}
}

// Add places a fragment in a section. Fragment names are unique across the
// whole program; adding a name twice panics.
func (s *Source) Add(section Section, name string, lines ...string) *Source {
	if section >= numSections {
		panic(fmt.Sprintf("shaders: fragment %q in invalid section %d", name, section))
	}
	if prev, ok := s.names[name]; ok {
		panic(fmt.Sprintf("shaders: fragment %q already added to %s", name, prev))
	}
	s.names[name] = section
	s.sections[section] = append(s.sections[section], fragment{name: name, text: strings.Join(lines, "\n")})
	return s
}

// Addf adds a single formatted fragment.
func (s *Source) Addf(section Section, name string, format string, args ...any) *Source {
	return s.Add(section, name, fmt.Sprintf(format, args...))
}

// Has reports whether a fragment with the name was added.
func (s *Source) Has(name string) bool {
	_, ok := s.names[name]
	return ok
}

// Names returns fragment names in emission order.
func (s *Source) Names() []string {
	var out []string
	for _, frags := range s.sections {
		for _, f := range frags {
			out = append(out, f.name)
		}
	}
	return out
}

// String renders the program text.
func (s *Source) String() string {
	var sb strings.Builder
	for _, frags := range s.sections {
		for _, f := range frags {
			sb.WriteString("// ")
			sb.WriteString(f.name)
			sb.WriteString("\n")
			sb.WriteString(f.text)
			sb.WriteString("\n\n")
		}
	}
	return sb.String()
}
