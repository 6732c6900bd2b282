// Package extract pulls labeled fields out of a free-text completion that was
// asked to follow a format but may not have. Each field lists the label
// spellings it recognizes; fields that cannot be found resolve to a
// placeholder, so extraction as a whole never fails.
package extract

import (
	"regexp"
	"strings"
	"sync"
)

// Field is one named section of a multi-field answer.
type Field struct {
	// Name is the key of the field in the result map.
	Name string
	// Title names the field in its placeholder, "<Title> not available".
	Title string
	// Labels are regexp fragments for the label variants, tried in order.
	// Matching is case-insensitive and lets "." span lines.
	Labels []string
	// Until lists the regexp fragments that end the capture. When nil, the
	// capture ends at any label of the next field, or at the end of the text.
	Until []string
	// Placeholder overrides the default placeholder.
	Placeholder string
}

// PlaceholderText returns the value used when the field is missing.
func (f Field) PlaceholderText() string {
	if f.Placeholder != "" {
		return f.Placeholder
	}
	title := f.Title
	if title == "" {
		title = f.Name
	}
	return title + " not available"
}

// Schema is an ordered list of fields. It must be used by pointer: its label
// patterns are compiled once, on first use.
type Schema struct {
	Name   string
	Fields []Field
	// LineFallback enables positional line assignment when no field matches.
	// It only applies to schemas with at least MinFallbackFields fields.
	LineFallback bool

	once     sync.Once
	patterns [][]*regexp.Regexp
}

// MinFallbackFields is the smallest schema the line fallback is applied to.
const MinFallbackFields = 3

// NewSchema builds a schema from its fields.
func NewSchema(name string, lineFallback bool, fields ...Field) *Schema {
	return &Schema{Name: name, Fields: fields, LineFallback: lineFallback}
}

// Names returns the field names in declaration order.
func (s *Schema) Names() []string {
	names := make([]string, len(s.Fields))
	for i, f := range s.Fields {
		names[i] = f.Name
	}
	return names
}

func (s *Schema) compiled() [][]*regexp.Regexp {
	s.once.Do(func() {
		s.patterns = make([][]*regexp.Regexp, len(s.Fields))
		for i, f := range s.Fields {
			until := f.Until
			if until == nil && i+1 < len(s.Fields) {
				until = s.Fields[i+1].Labels
			}
			until = validFragments(until)
			for _, label := range f.Labels {
				// A variant that does not compile stays nil and never matches.
				var re *regexp.Regexp
				if _, err := regexp.Compile(label); err == nil {
					re, _ = regexp.Compile(capturePattern(label, until))
				}
				s.patterns[i] = append(s.patterns[i], re)
			}
		}
	})
	return s.patterns
}

func capturePattern(label string, until []string) string {
	var b strings.Builder
	b.WriteString(`(?is)(?:`)
	b.WriteString(label)
	b.WriteString(`)\s*(.*?)(?:`)
	for _, u := range until {
		b.WriteString(`(?:`)
		b.WriteString(u)
		b.WriteString(`)|`)
	}
	b.WriteString(`\z)`)
	return b.String()
}

// validFragments drops terminators that do not compile on their own, so one
// bad label cannot disable the field before it.
func validFragments(frags []string) []string {
	out := make([]string, 0, len(frags))
	for _, f := range frags {
		if _, err := regexp.Compile(f); err == nil {
			out = append(out, f)
		}
	}
	return out
}
