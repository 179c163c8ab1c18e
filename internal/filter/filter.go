// Package filter selects named catalog objects with include/exclude regular
// expressions.
//
// An object is kept when its name matches at least one include pattern (or
// no include patterns are given) and matches no exclude pattern. Patterns
// are case-insensitive and unanchored: "full" matches "full_pii" and
// "FULL". Patterns are applied to bare names, never to qualified paths.
package filter

import (
	"regexp"

	"github.com/tokern/dbcat/internal/domain"
)

// Object is a named catalog object.
type Object struct {
	Name string
	ID   int64
}

// Filter is a compiled include/exclude pattern set. The zero value keeps
// everything.
type Filter struct {
	include []*regexp.Regexp
	exclude []*regexp.Regexp
}

// Compile builds a Filter. An invalid pattern is a *domain.ValidationError.
func Compile(include, exclude []string) (*Filter, error) {
	inc, err := compileAll("include", include)
	if err != nil {
		return nil, err
	}
	exc, err := compileAll("exclude", exclude)
	if err != nil {
		return nil, err
	}
	return &Filter{include: inc, exclude: exc}, nil
}

// MustCompile is like Compile but panics on an invalid pattern.
func MustCompile(include, exclude []string) *Filter {
	f, err := Compile(include, exclude)
	if err != nil {
		panic(err)
	}
	return f
}

func compileAll(kind string, patterns []string) ([]*regexp.Regexp, error) {
	out := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		re, err := regexp.Compile("(?i)" + p)
		if err != nil {
			return nil, domain.ErrValidation("invalid %s pattern %q: %v", kind, p, err)
		}
		out = append(out, re)
	}
	return out, nil
}

// Match reports whether name survives the filter. Exclude wins over include.
func (f *Filter) Match(name string) bool {
	if f == nil {
		return true
	}
	if len(f.include) > 0 && !anyMatch(f.include, name) {
		return false
	}
	return !anyMatch(f.exclude, name)
}

func anyMatch(res []*regexp.Regexp, name string) bool {
	for _, re := range res {
		if re.MatchString(name) {
			return true
		}
	}
	return false
}

// Apply returns the objects that survive the filter, in input order.
func (f *Filter) Apply(objects []Object) []Object {
	out := make([]Object, 0, len(objects))
	for _, o := range objects {
		if f.Match(o.Name) {
			out = append(out, o)
		}
	}
	return out
}

// Objects compiles the patterns and applies them to objects.
func Objects(objects []Object, include, exclude []string) ([]Object, error) {
	f, err := Compile(include, exclude)
	if err != nil {
		return nil, err
	}
	return f.Apply(objects), nil
}

// Set is the pair of filters a scan or export applies: one over schema
// names, one over table names within each kept schema.
type Set struct {
	Schemas *Filter
	Tables  *Filter
}

// Patterns is the uncompiled form of a Set.
type Patterns struct {
	IncludeSchema []string `json:"include_schema,omitempty" yaml:"include_schema,omitempty"`
	ExcludeSchema []string `json:"exclude_schema,omitempty" yaml:"exclude_schema,omitempty"`
	IncludeTable  []string `json:"include_table,omitempty" yaml:"include_table,omitempty"`
	ExcludeTable  []string `json:"exclude_table,omitempty" yaml:"exclude_table,omitempty"`
}

// Compile compiles both levels.
func (p Patterns) Compile() (Set, error) {
	schemas, err := Compile(p.IncludeSchema, p.ExcludeSchema)
	if err != nil {
		return Set{}, err
	}
	tables, err := Compile(p.IncludeTable, p.ExcludeTable)
	if err != nil {
		return Set{}, err
	}
	return Set{Schemas: schemas, Tables: tables}, nil
}
