package profile

import "regexp"

// ValueSegment is the generic wrapper segment a property path may carry as
// its last element. Path matching ignores it.
const ValueSegment = "value"

type ObjectSchemaWrapper struct {
	Required          map[string][]string `yaml:"required"`
	Optional          map[string][]string `yaml:"optional"`
	MutuallyExclusive map[string][]string `yaml:"mutually_exclusive"`
}

type ServiceWrapper struct {
	Inbox       string `yaml:"inbox"`
	Destination string `yaml:"destination"`
	Workers     int    `yaml:"workers"`
}

type ProfileWrapper struct {
	Version          string                         `yaml:"version"`
	Contraindicators []string                       `yaml:"contraindicators"`
	Modifiers        []string                       `yaml:"modifiers"`
	Objects          map[string]ObjectSchemaWrapper `yaml:"supported_objects"`
	Service          *ServiceWrapper                `yaml:"service"`
}

// PathSpec is one compiled allow-list entry: the declared property path, its
// parsed segments, and the exclusion patterns guarding scalar values reached
// through it. An empty Exclude list permits every value.
type PathSpec struct {
	Path     string
	Segments []string
	Exclude  []*regexp.Regexp
}

func (s *PathSpec) Root() string {
	return s.Segments[0]
}

// Encloses reports whether every given segment appears among the spec path's
// non-root segments. Order does not matter; callers compare the non-root
// segments of a concrete property location against the declared path.
func (s *PathSpec) Encloses(segments []string) bool {
	for _, seg := range segments {
		found := false
		for _, have := range s.Segments[1:] {
			if have == seg {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// TrimValueSegment drops a trailing generic wrapper segment before path
// comparison.
func TrimValueSegment(segments []string) []string {
	if n := len(segments); n > 0 && segments[n-1] == ValueSegment {
		return segments[:n-1]
	}
	return segments
}

// PropertySpec maps a declared property path to its compiled entry.
type PropertySpec map[string]*PathSpec

type ObjectSchema struct {
	TypeTag           string
	Required          PropertySpec
	Optional          PropertySpec
	MutuallyExclusive PropertySpec
	full              PropertySpec
}

// Full is the union of Required, Optional and MutuallyExclusive. Later spec
// wins on a path collision; the union is fixed at compile time since the
// profile never changes after construction.
func (s *ObjectSchema) Full() PropertySpec {
	return s.full
}

type ServiceInfo struct {
	Inbox       string
	Destination string
	Workers     int
}

type Profile struct {
	Version          string
	Contraindicators []string
	Modifiers        []string
	Objects          map[string]*ObjectSchema
	Service          *ServiceInfo
}

// Schema returns the schema for one object type tag, nil when the tag is not
// a supported object.
func (p *Profile) Schema(typeTag string) *ObjectSchema {
	schema, ok := p.Objects[typeTag]
	if !ok {
		return nil
	}
	return schema
}
