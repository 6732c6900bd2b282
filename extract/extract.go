package extract

import (
	"regexp"
	"sort"
	"strings"
)

// Source tells how a field value was obtained.
type Source string

const (
	SourceLabel        Source = "label"
	SourceLineFallback Source = "line_fallback"
	SourcePlaceholder  Source = "placeholder"
)

// Outcome is the result of Parse.
type Outcome struct {
	// Values holds an entry for every field of the schema.
	Values  map[string]string
	Sources map[string]Source
}

// Missing returns the sorted names of the fields that resolved to their placeholder.
func (o Outcome) Missing() []string {
	var out []string
	for name, src := range o.Sources {
		if src == SourcePlaceholder {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}

// Extract returns the value of every field of s found in raw. Fields that
// cannot be found hold their placeholder.
func Extract(raw string, s *Schema) map[string]string {
	return Parse(raw, s).Values
}

// Parse is Extract plus the provenance of every value.
func Parse(raw string, s *Schema) Outcome {
	out := Outcome{
		Values:  make(map[string]string, len(s.Fields)),
		Sources: make(map[string]Source, len(s.Fields)),
	}

	patterns := s.compiled()
	matched := 0
	for i, f := range s.Fields {
		if v, ok := firstMatch(raw, patterns[i]); ok {
			out.Values[f.Name] = v
			out.Sources[f.Name] = SourceLabel
			matched++
			continue
		}
		out.Values[f.Name] = f.PlaceholderText()
		out.Sources[f.Name] = SourcePlaceholder
	}

	if matched == 0 && s.LineFallback && len(s.Fields) >= MinFallbackFields {
		for i, line := range nonEmptyLines(raw) {
			if i == len(s.Fields) {
				break
			}
			name := s.Fields[i].Name
			out.Values[name] = line
			out.Sources[name] = SourceLineFallback
		}
	}
	return out
}

func firstMatch(raw string, variants []*regexp.Regexp) (string, bool) {
	for _, re := range variants {
		if re == nil {
			continue
		}
		m := re.FindStringSubmatch(raw)
		if len(m) < 2 {
			continue
		}
		if v := strings.TrimSpace(m[1]); v != "" {
			return v, true
		}
	}
	return "", false
}

func nonEmptyLines(raw string) []string {
	var lines []string
	for _, line := range strings.Split(raw, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}
