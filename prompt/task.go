// Package prompt renders transformation requests into the single instruction
// string sent to the completion backend. Everything in this package is pure:
// no I/O, no randomness, and identical requests produce identical prompts.
package prompt

import "sort"

// Task identifies one supported transformation.
type Task string

const (
	Humanize           Task = "humanize"
	Paraphrase         Task = "paraphrase"
	Summarize          Task = "summarize"
	Elaborate          Task = "elaborate"
	Grammar            Task = "grammar"
	Simplify           Task = "simplify"
	CustomRole         Task = "customrole"
	ParagraphToBullets Task = "paragraph-to-bullets"
	BulletsToParagraph Task = "bullets-to-paragraph"
	TableToText        Task = "table-to-text"
	TextToTable        Task = "text-to-table"
	Checklist          Task = "checklist"
	WordLimit          Task = "word-limit"
	LanguageConvert    Task = "language-convert"
	DeleteAll          Task = "delete-all"
	ReplaceAll         Task = "replace-all"
	PromptIt           Task = "prompt-it"
	CustomFormat       Task = "custom-format"
	Tone               Task = "tone"
	ContextAnalyze     Task = "context-analyze"
	ContextInsights    Task = "context-insights"
	GenerateVariations Task = "generate-variations"
	RegenerateAnswer   Task = "regenerate-answer"

	// Legacy tasks kept for older clients.
	LegacyHumanise Task = "humanise"
	LegacyCondense Task = "condense"
)

// Shape describes what kind of answer a task expects from the backend.
type Shape int

const (
	// SingleText tasks return one block of transformed text.
	SingleText Shape = iota
	// ListText tasks return one block whose list markers are part of the answer.
	ListText
	// Fields tasks return several labeled sections parsed by an extraction schema.
	Fields
)

// Info is the static description of a task.
type Info struct {
	Task  Task
	Title string // human readable name used in logs and error messages
	Path  string // HTTP path the task is served on
	Shape Shape
}

var registry = map[Task]Info{
	Humanize:           {Humanize, "Humanize", "/humanize", SingleText},
	Paraphrase:         {Paraphrase, "Paraphrase", "/paraphrase", SingleText},
	Summarize:          {Summarize, "Summarize", "/summarize", SingleText},
	Elaborate:          {Elaborate, "Elaborate", "/elaborate", SingleText},
	Grammar:            {Grammar, "Grammar correction", "/grammar", SingleText},
	Simplify:           {Simplify, "Simplify", "/simplify", SingleText},
	CustomRole:         {CustomRole, "Custom role rewrite", "/customrole", SingleText},
	ParagraphToBullets: {ParagraphToBullets, "Paragraph to bullets", "/paragraph-to-bullets", ListText},
	BulletsToParagraph: {BulletsToParagraph, "Bullets to paragraph", "/bullets-to-paragraph", SingleText},
	TableToText:        {TableToText, "Table to text", "/table-to-text", SingleText},
	TextToTable:        {TextToTable, "Text to table", "/text-to-table", SingleText},
	Checklist:          {Checklist, "Checklist conversion", "/checklist", ListText},
	WordLimit:          {WordLimit, "Word limit optimization", "/word-limit", SingleText},
	LanguageConvert:    {LanguageConvert, "Language conversion", "/language-convert", SingleText},
	DeleteAll:          {DeleteAll, "Delete all", "/delete-all", SingleText},
	ReplaceAll:         {ReplaceAll, "Replace all", "/replace-all", SingleText},
	PromptIt:           {PromptIt, "Prompt creation", "/prompt-it", SingleText},
	CustomFormat:       {CustomFormat, "Custom formatting", "/custom-format", SingleText},
	Tone:               {Tone, "Tone shift", "/tone", SingleText},
	ContextAnalyze:     {ContextAnalyze, "Context analysis", "/context-analyze", Fields},
	ContextInsights:    {ContextInsights, "Context insights", "/context-insights", Fields},
	GenerateVariations: {GenerateVariations, "Generate variations", "/generate-variations", Fields},
	RegenerateAnswer:   {RegenerateAnswer, "Regenerate answer", "/regenerate-answer", SingleText},
	LegacyHumanise:     {LegacyHumanise, "Humanise", "/humanise", SingleText},
	LegacyCondense:     {LegacyCondense, "Condense", "/condense", SingleText},
}

// Lookup returns the description of a task.
func Lookup(t Task) (Info, bool) {
	info, ok := registry[t]
	return info, ok
}

// Tasks returns every supported task sorted by path.
func Tasks() []Info {
	out := make([]Info, 0, len(registry))
	for _, info := range registry {
		out = append(out, info)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out
}

// Supported reports whether t is a known task.
func (t Task) Supported() bool {
	_, ok := registry[t]
	return ok
}
