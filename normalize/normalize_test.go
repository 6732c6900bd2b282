package normalize

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{name: "empty", raw: "", want: ""},
		{name: "whitespace only", raw: " \n\t ", want: ""},
		{name: "quoted preamble", raw: `"Here is the result: Hello there."`, want: "Hello there."},
		{name: "single quotes", raw: "'Hi.'", want: "Hi."},
		{name: "backticks", raw: "`Hi.`", want: "Hi."},
		{name: "doubled quotes", raw: `""Hi.""`, want: "Hi."},
		{name: "mismatched quotes kept", raw: `"Hi.'`, want: `"Hi.'`},
		{name: "preamble reveals quotes", raw: `Here's the rewritten text: "Good morning."`, want: "Good morning."},
		{name: "answer preamble", raw: "Answer:   42 apples", want: "42 apples"},
		{name: "preamble only at start", raw: "First line.\nOutput: second", want: "First line.\nOutput: second"},
		{name: "the result preamble", raw: "The result: done", want: "done"},
		{name: "qualified here preamble", raw: "Here is your revised version: Thanks!", want: "Thanks!"},
		{name: "labelled text kept", raw: "Customer response: we love it", want: "Customer response: we love it"},
		{name: "expected output kept", raw: "Expected output: 4", want: "Expected output: 4"},
		{name: "here is my kept", raw: "Here is my problem: the server crashed.", want: "Here is my problem: the server crashed."},
		{name: "here's what kept", raw: "Here's what I think: no.", want: "Here's what I think: no."},
		{
			name: "echoed labels removed",
			raw:  "Original: the prompt text\nHello world\n  note: extra chatter",
			want: "Hello world",
		},
		{name: "bullets", raw: "- one\n* two\n•three", want: "one\ntwo\nthree"},
		{name: "numbers", raw: "1. one\n2.  two\n10. ten", want: "one\ntwo\nten"},
		{name: "decimal kept", raw: "3.14 is pi", want: "3.14 is pi"},
		{name: "bold kept", raw: "**Bold** start", want: "**Bold** start"},
		{
			name: "blank runs collapse",
			raw:  "Para one.\n\n\n\nPara two.\n\nPara three.",
			want: "Para one.\n\nPara two.\n\nPara three.",
		},
		{
			name: "blank runs with spaces",
			raw:  "A\n  \n \n\t\nB",
			want: "A\n\nB",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Normalize(tt.raw))
		})
	}
}

func TestNormalizeArtifactFreeIsTrim(t *testing.T) {
	inputs := []string{
		"Hello there.",
		"  A sentence with spaces around.  ",
		"Line one\nLine two",
		"It's a quote-free answer, isn't it?",
		"\tWe ship on Friday.\n",
	}
	for _, in := range inputs {
		assert.Equal(t, trimmed(in), Normalize(in), "input %q", in)
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	inputs := []string{
		`"Here is the result: Hello there."`,
		`""'quoted twice'""`,
		"Response: - item\n- item two\n\n\n\n\nEnd",
		"` Here is: \"x\" `",
		"Note: skip\n1. a\n2. b",
		"'''",
		`"`,
		"",
	}
	for _, in := range inputs {
		once := Normalize(in)
		assert.Equal(t, once, Normalize(once), "input %q", in)
	}
}

func TestKeepLists(t *testing.T) {
	raw := "\"Here is the result:\n- first\n- second\n1. third\""
	assert.Equal(t, "- first\n- second\n1. third", KeepLists(raw))
	assert.Equal(t, "first\nsecond\nthird", Normalize(raw))
}

func TestPipelineWithout(t *testing.T) {
	p := Default.Without(Bullets.Name, Numbers.Name)
	require.Len(t, p, len(Default)-2)
	for _, stage := range p {
		assert.NotEqual(t, Bullets.Name, stage.Name)
		assert.NotEqual(t, Numbers.Name, stage.Name)
	}
}

func TestTrace(t *testing.T) {
	steps := Default.Trace(`"Result: - done"`)
	require.Len(t, steps, len(Default))

	got := map[string]string{}
	for _, s := range steps {
		if _, seen := got[s.Stage]; !seen {
			got[s.Stage] = s.Output
		}
	}
	assert.Equal(t, "Result: - done", got[QuotePair.Name])
	assert.Equal(t, "- done", got[Preamble.Name])
	assert.Equal(t, "done", got[Bullets.Name])
	assert.Equal(t, "done", steps[len(steps)-1].Output)
}

func trimmed(s string) string {
	return Trim.Apply(s)
}
