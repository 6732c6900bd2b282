// Package normalize strips the conversational wrapper artifacts a completion
// backend adds around its answer: wrapping quotes, "Here is the result:"
// preambles, echoed instruction labels, list markers and excess blank lines.
//
// Every function in this package is total. It never panics and never returns
// an error, whatever the input looks like.
package normalize

import (
	"regexp"
	"strings"
)

// Stage is a single named rewrite of the pipeline. Stages only ever remove text.
type Stage struct {
	Name  string
	Apply func(string) string
}

// Pipeline is an ordered list of stages. Order matters: later stages assume
// the earlier ones already removed the common wrapper characters.
type Pipeline []Stage

var (
	// preambleRe matches the closed set of lead-ins: "Here's"/"Here is",
	// optionally followed by a known qualifier such as "the rewritten text",
	// and "The result", "Output", "Response", "Answer", "Result".
	preambleRe = regexp.MustCompile(`(?i)^(?:here(?:'s|’s|\s+is)` +
		`(?:\s+(?:the|your)(?:\s+(?:rewritten|revised|corrected|translated|paraphrased|updated|improved|final|cleaned))?` +
		`\s+(?:result|output|response|answer|text|version|translation|summary|message|reply|email|paragraph|list|checklist))?` +
		`|(?:the\s+)?(?:result|output|response|answer))[ \t]*:\s*`)
	metaLineRe = regexp.MustCompile(`(?im)^[ \t]*(?:original|input|text|message|prompt|request|task|instruction|analysis|explanation|note)[ \t]*:[^\n]*(?:\n|\z)`)
	bulletRe   = regexp.MustCompile(`(?m)^[ \t]*(?:[-*][ \t]+|•[ \t]*)`)
	numberedRe = regexp.MustCompile(`(?m)^[ \t]*\d+\.[ \t]+`)
	blankRunRe = regexp.MustCompile(`\n\s*\n\s*\n`)
)

var (
	Trim = Stage{Name: "trim", Apply: strings.TrimSpace}

	// QuotePair strips one matching pair of ', ` or " wrapping the whole text.
	QuotePair = Stage{Name: "quote_pair", Apply: stripQuotePair}

	// DoubledQuotePair strips a wrapping "" "" or '' '' pair.
	DoubledQuotePair = Stage{Name: "doubled_quote_pair", Apply: stripDoubledQuotePair}

	// Preamble strips one leading lead-in such as "Here is the result:".
	Preamble = Stage{Name: "preamble", Apply: func(s string) string {
		return preambleRe.ReplaceAllString(s, "")
	}}

	// MetaLines deletes lines that echo the instruction, e.g. "Original: ...".
	MetaLines = Stage{Name: "meta_lines", Apply: func(s string) string {
		return metaLineRe.ReplaceAllString(s, "")
	}}

	Bullets = Stage{Name: "bullets", Apply: func(s string) string {
		return bulletRe.ReplaceAllString(s, "")
	}}

	Numbers = Stage{Name: "numbers", Apply: func(s string) string {
		return numberedRe.ReplaceAllString(s, "")
	}}

	// BlankLines collapses three or more line breaks into one blank line.
	BlankLines = Stage{Name: "blank_lines", Apply: func(s string) string {
		return blankRunRe.ReplaceAllString(s, "\n\n")
	}}
)

// Default is the full cleaning pipeline applied to single-answer completions.
var Default = Pipeline{
	Trim,
	QuotePair,
	DoubledQuotePair,
	Preamble,
	MetaLines,
	Bullets,
	Numbers,
	BlankLines,
	QuotePair,
	DoubledQuotePair,
	Trim,
}

// Lists is Default without the list marker stages, for answers whose bullets
// or numbering are the payload.
var Lists = Default.Without(Bullets.Name, Numbers.Name)

// Normalize cleans raw with the Default pipeline.
func Normalize(raw string) string {
	return Default.Normalize(raw)
}

// KeepLists cleans raw with the Lists pipeline.
func KeepLists(raw string) string {
	return Lists.Normalize(raw)
}

// Run applies every stage once, in order.
func (p Pipeline) Run(s string) string {
	for _, stage := range p {
		s = stage.Apply(s)
	}
	return s
}

// Normalize runs the pipeline until the text stops changing, which makes the
// result idempotent. Stages only delete text, so the loop terminates.
func (p Pipeline) Normalize(s string) string {
	for {
		next := p.Run(s)
		if next == s {
			return next
		}
		s = next
	}
}

// Step records the text after one stage of a single pass.
type Step struct {
	Stage  string
	Output string
}

// Trace runs one pass and returns the intermediate result of every stage.
func (p Pipeline) Trace(s string) []Step {
	steps := make([]Step, 0, len(p))
	for _, stage := range p {
		s = stage.Apply(s)
		steps = append(steps, Step{Stage: stage.Name, Output: s})
	}
	return steps
}

// Without returns a copy of p with the named stages removed.
func (p Pipeline) Without(names ...string) Pipeline {
	out := make(Pipeline, 0, len(p))
next:
	for _, stage := range p {
		for _, name := range names {
			if stage.Name == name {
				continue next
			}
		}
		out = append(out, stage)
	}
	return out
}

func stripQuotePair(s string) string {
	if len(s) < 2 {
		return s
	}
	first, last := s[0], s[len(s)-1]
	if first != last {
		return s
	}
	switch first {
	case '"', '\'', '`':
		return strings.TrimSpace(s[1 : len(s)-1])
	}
	return s
}

func stripDoubledQuotePair(s string) string {
	for _, pair := range []string{`""`, `''`} {
		if len(s) >= 2*len(pair) && strings.HasPrefix(s, pair) && strings.HasSuffix(s, pair) {
			return strings.TrimSpace(s[len(pair) : len(s)-len(pair)])
		}
	}
	return s
}
