package extract

// ResponseOptions parses three alternative replies to a message. Backends
// label them "RESPONSE 1:", "1." or "First:", and sometimes not at all, so
// the line fallback is on.
var ResponseOptions = NewSchema("response_options", true,
	Field{
		Name:   "response1",
		Title:  "Response 1",
		Labels: []string{`RESPONSE\s*1\s*:`, `(?m:^)[ \t]*1[.)]`, `(?m:^)[ \t]*First\s*:`},
	},
	Field{
		Name:   "response2",
		Title:  "Response 2",
		Labels: []string{`RESPONSE\s*2\s*:`, `(?m:^)[ \t]*2[.)]`, `(?m:^)[ \t]*Second\s*:`},
	},
	Field{
		Name:   "response3",
		Title:  "Response 3",
		Labels: []string{`RESPONSE\s*3\s*:`, `(?m:^)[ \t]*3[.)]`, `(?m:^)[ \t]*Third\s*:`},
	},
)

// ContextInsights parses the three-part analysis of a received message.
var ContextInsights = NewSchema("context_insights", false,
	Field{
		Name:        "senderIntent",
		Title:       "Sender intent",
		Labels:      []string{`SENDER[_ ]INTENT\s*:`},
		Placeholder: "Analysis not available",
	},
	Field{
		Name:        "impactOnYou",
		Title:       "Impact on you",
		Labels:      []string{`IMPACT[_ ]ON[_ ]YOU\s*:`},
		Placeholder: "Analysis not available",
	},
	Field{
		Name:        "perceptionImpact",
		Title:       "Perception impact",
		Labels:      []string{`PERCEPTION[_ ]IMPACT\s*:`},
		Placeholder: "Analysis not available",
	},
)

// Variations parses three rewritten versions, each followed by the
// explanation of what changed.
var Variations = NewSchema("variations", false,
	Field{Name: "answer1", Title: "Answer 1", Labels: []string{`ANSWER\s*1\s*:`}},
	Field{Name: "properties1", Title: "Properties 1", Labels: []string{`PROPERTIES\s*1\s*:`}},
	Field{Name: "answer2", Title: "Answer 2", Labels: []string{`ANSWER\s*2\s*:`}},
	Field{Name: "properties2", Title: "Properties 2", Labels: []string{`PROPERTIES\s*2\s*:`}},
	Field{Name: "answer3", Title: "Answer 3", Labels: []string{`ANSWER\s*3\s*:`}},
	Field{Name: "properties3", Title: "Properties 3", Labels: []string{`PROPERTIES\s*3\s*:`}},
)
